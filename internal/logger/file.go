package logger

import (
	"io"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Rotation limits for --log-file sinks.
const (
	fileMaxSizeMB  = 50
	fileMaxBackups = 5
	fileMaxAgeDays = 28
)

// FileSink returns a size-rotated writer for path. Callers close it on exit.
func FileSink(path string) io.WriteCloser {
	return &lumberjack.Logger{
		Filename:   path,
		MaxSize:    fileMaxSizeMB,
		MaxBackups: fileMaxBackups,
		MaxAge:     fileMaxAgeDays,
		Compress:   true,
	}
}
