package main

import "github.com/urfave/cli/v3"

const envModelPath = "TABPREDICT_MODEL"

var (
	configFile string
	modelPath  string
	auditDB    string
	logLevel   string
	logFormat  string
	logFile    string
	debug      bool
)

func commonModelFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "model",
			Aliases:     []string{"m"},
			Usage:       "path to the classifier artifact (.json)",
			Sources:     cli.EnvVars(envModelPath),
			Destination: &modelPath,
		},
	}
}

func auditFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "audit-db",
			Usage:       "record each prediction outcome in this SQLite file",
			Destination: &auditDB,
		},
	}
}

func globalFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "config",
			Usage:       "path to config.yaml (default: user config dir)",
			Destination: &configFile,
		},
		&cli.StringFlag{
			Name:        "log-level",
			Usage:       "log level (debug, info, warn, error)",
			Value:       "info",
			Destination: &logLevel,
		},
		&cli.StringFlag{
			Name:        "log-format",
			Usage:       "log format (auto, pretty, json, text)",
			Value:       "auto",
			Destination: &logFormat,
		},
		&cli.StringFlag{
			Name:        "log-file",
			Usage:       "write logs to this file, rotated by size",
			Destination: &logFile,
		},
		&cli.BoolFlag{
			Name:        "debug",
			Usage:       "enable debug logging (shorthand for --log-level=debug)",
			Destination: &debug,
		},
	}
}
