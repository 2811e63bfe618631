package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/urfave/cli/v3"
	"gopkg.in/yaml.v3"
)

// Config represents the tabpredict configuration file
// (~/.config/tabpredict/config.yaml). CLI flags always win.
type Config struct {
	ModelPath string `yaml:"model_path"`
	AuditDB   string `yaml:"audit_db"`

	// Server
	ServerAddress string `yaml:"server_address"`
	BodyLimit     *int64 `yaml:"body_limit"`

	// Batch
	OutputColumn  string `yaml:"output_column"`
	Encoding      string `yaml:"encoding"`
	Probabilities *bool  `yaml:"probabilities"`

	// Logging
	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`
	LogFile   string `yaml:"log_file"`
}

// cfg is loaded once by the root command before any subcommand runs.
var cfg Config

func configPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "tabpredict", "config.yaml")
}

// LoadConfig reads the config file. An absent default file yields a zero
// Config; an explicitly named file must exist.
func LoadConfig(path string) (Config, error) {
	explicit := path != ""
	if !explicit {
		path = configPath()
	}
	if path == "" {
		return Config{}, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if !explicit && errors.Is(err, fs.ErrNotExist) {
			return Config{}, nil
		}
		return Config{}, fmt.Errorf("%w: read config: %w", errUsage, err)
	}
	var c Config
	if err := yaml.Unmarshal(data, &c); err != nil {
		return Config{}, fmt.Errorf("%w: parse config %s: %w", errUsage, path, err)
	}
	return c, nil
}

// applyGlobalConfig applies config file defaults to the root flags when the
// corresponding flag was not explicitly set.
func applyGlobalConfig(c *cli.Command, cfg Config) {
	if cfg.LogLevel != "" && !c.IsSet("log-level") {
		logLevel = cfg.LogLevel
	}
	if cfg.LogFormat != "" && !c.IsSet("log-format") {
		logFormat = cfg.LogFormat
	}
	if cfg.LogFile != "" && !c.IsSet("log-file") {
		logFile = cfg.LogFile
	}
}

// applyModelConfig fills --model and --audit-db. The TABPREDICT_MODEL
// variable counts as setting --model, so it also wins over the file.
func applyModelConfig(c *cli.Command, cfg Config) {
	if cfg.ModelPath != "" && !c.IsSet("model") {
		modelPath = cfg.ModelPath
	}
	if cfg.AuditDB != "" && !c.IsSet("audit-db") {
		auditDB = cfg.AuditDB
	}
}

func applyServeConfig(c *cli.Command, cfg Config, addr *string, bodyLimit *int64) {
	applyModelConfig(c, cfg)
	if cfg.ServerAddress != "" && !c.IsSet("addr") {
		*addr = cfg.ServerAddress
	}
	if cfg.BodyLimit != nil && !c.IsSet("body-limit") {
		*bodyLimit = *cfg.BodyLimit
	}
}

func applyBatchConfig(c *cli.Command, cfg Config, column, encoding *string, probabilities *bool) {
	applyModelConfig(c, cfg)
	if cfg.OutputColumn != "" && !c.IsSet("column") {
		*column = cfg.OutputColumn
	}
	if cfg.Encoding != "" && !c.IsSet("encoding") {
		*encoding = cfg.Encoding
	}
	if cfg.Probabilities != nil && !c.IsSet("probabilities") {
		*probabilities = *cfg.Probabilities
	}
}
