package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v3"

	"github.com/samcharles93/tabpredict/internal/batch"
	"github.com/samcharles93/tabpredict/internal/logger"
	"github.com/samcharles93/tabpredict/internal/predict"
)

// Process exit codes.
const (
	exitOK              = 0
	exitFailure         = 1
	exitInput           = 2
	exitArtifactMissing = 3
	exitArtifactCorrupt = 4
	exitInference       = 5
)

// errUsage marks bad flags and unreadable configuration.
var errUsage = errors.New("usage error")

// logSink is closed by the root After hook when logs go to a file.
var logSink io.Closer

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newApp().Run(ctx, os.Args); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(exitCode(err))
	}
}

func newApp() *cli.Command {
	return &cli.Command{
		Name:   "tabpredict",
		Usage:  "Serve and batch-run tabular classifiers",
		Flags:  globalFlags(),
		Before: setup,
		After:  teardown,
		Action: func(ctx context.Context, cmd *cli.Command) error {
			return cli.ShowAppHelp(cmd)
		},
		Commands: []*cli.Command{
			serveCmd(),
			batchCmd(),
			inspectCmd(),
			versionCmd(),
		},
	}
}

// setup loads the config file and installs the process logger on ctx.
func setup(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	c, err := LoadConfig(configFile)
	if err != nil {
		return ctx, err
	}
	cfg = c
	applyGlobalConfig(cmd, cfg)

	format, err := logger.ParseFormat(logFormat)
	if err != nil {
		return ctx, fmt.Errorf("%w: %w", errUsage, err)
	}
	level := logger.ParseLevel(logLevel)
	if debug {
		level = slog.LevelDebug
	}

	var w io.Writer = os.Stderr
	if logFile != "" {
		sink := logger.FileSink(logFile)
		logSink = sink
		w = sink
	}
	return logger.WithContext(ctx, logger.Open(w, format, level)), nil
}

func teardown(context.Context, *cli.Command) error {
	if logSink == nil {
		return nil
	}
	err := logSink.Close()
	logSink = nil
	return err
}

// exitCode maps a command error to the process exit status.
func exitCode(err error) int {
	if err == nil {
		return exitOK
	}
	var coder cli.ExitCoder
	if errors.As(err, &coder) {
		return coder.ExitCode()
	}
	if errors.Is(err, errUsage) || errors.Is(err, batch.ErrInputMissing) || errors.Is(err, batch.ErrInputInvalid) {
		return exitInput
	}
	switch predict.Kind(err) {
	case predict.KindInputEmpty:
		return exitInput
	case predict.KindArtifactMissing:
		return exitArtifactMissing
	case predict.KindArtifactCorrupt:
		return exitArtifactCorrupt
	case predict.KindInferenceFailure:
		return exitInference
	default:
		return exitFailure
	}
}

// commandError turns a core error into a cli exit error carrying its code.
func commandError(err error) error {
	if err == nil {
		return nil
	}
	return cli.Exit(fmt.Sprintf("error: %v", err), exitCode(err))
}
