/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package config

import (
	stderrors "errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/suparena/recoveryregistry/errors"
	"gopkg.in/yaml.v3"
)

// EnvPrefix is prepended to every environment variable name.
const EnvPrefix = "RECOVERY_"

// Store backends.
const (
	BackendMemory   = "memory"
	BackendSQLite   = "sqlite"
	BackendDynamoDB = "dynamodb"
)

// Config selects and configures the slot store.
type Config struct {
	Backend          string `yaml:"backend" env:"BACKEND"`
	SQLitePath       string `yaml:"sqlite_path" env:"SQLITE_PATH"`
	AWSRegion        string `yaml:"aws_region" env:"AWS_REGION"`
	AWSAccessKey     string `yaml:"aws_access_key" env:"AWS_ACCESS_KEY"`
	AWSSecretKey     string `yaml:"aws_secret_key" env:"AWS_SECRET_KEY"`
	DynamoDBTable    string `yaml:"dynamodb_table" env:"DDB_TABLE"`
	DynamoDBEndpoint string `yaml:"dynamodb_endpoint" env:"DDB_ENDPOINT"`
	LogLevel         string `yaml:"log_level" env:"LOG_LEVEL"`
}

// LoadOptions names the optional files Load reads. Empty paths are skipped.
type LoadOptions struct {
	ConfigFile string
	DotEnvFile string
}

// Default returns the configuration used when nothing is set.
func Default() Config {
	return Config{
		Backend:    BackendMemory,
		SQLitePath: "recovery-registry.db",
		LogLevel:   "info",
	}
}

// Load builds a Config from defaults, then the YAML file, then the dotenv
// file, then the process environment. Later sources win. A missing dotenv
// file is not an error; a missing YAML file is.
func Load(opts LoadOptions) (Config, error) {
	cfg := Default()

	if opts.ConfigFile != "" {
		raw, err := os.ReadFile(opts.ConfigFile)
		if err != nil {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config file %s: %w", opts.ConfigFile, err)
		}
	}

	if opts.DotEnvFile != "" {
		if err := godotenv.Load(opts.DotEnvFile); err != nil && !stderrors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("load dotenv file: %w", err)
		}
	}

	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}

// Validate checks that the selected backend has the settings it needs.
func (c Config) Validate() error {
	switch c.Backend {
	case BackendMemory:
	case BackendSQLite:
		if strings.TrimSpace(c.SQLitePath) == "" {
			return errors.NewValidationError("sqlite_path", "required for the sqlite backend")
		}
	case BackendDynamoDB:
		if c.AWSRegion == "" {
			return errors.NewValidationError("aws_region", "required for the dynamodb backend")
		}
		if c.DynamoDBTable == "" {
			return errors.NewValidationError("dynamodb_table", "required for the dynamodb backend")
		}
		if (c.AWSAccessKey == "") != (c.AWSSecretKey == "") {
			return errors.NewValidationError("aws_secret_key", "access key and secret key must be set together")
		}
	default:
		return errors.NewValidationError("backend", fmt.Sprintf("unknown backend %q", c.Backend))
	}
	if _, err := c.SlogLevel(); err != nil {
		return err
	}
	return nil
}

// SlogLevel parses LogLevel.
func (c Config) SlogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return 0, errors.NewValidationError("log_level", err.Error())
	}
	return level, nil
}
