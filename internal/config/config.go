// Package config loads qstream settings from a YAML file, QSTREAM_*
// environment variables, and defaults.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// FileName is the config file looked up in the working directory.
const FileName = "qstream.yaml"

// EnvPrefix prefixes environment overrides, e.g. QSTREAM_JOURNAL.
const EnvPrefix = "QSTREAM"

// Config holds the settings shared by every command.
type Config struct {
	// IdentityFile holds the persisted core id.
	IdentityFile string `mapstructure:"identity_file"`
	// Journal is the SQLite database change batches are written to.
	// Empty disables journaling.
	Journal string `mapstructure:"journal"`
	// LogLevel is one of debug, info, warn, error.
	LogLevel string `mapstructure:"log_level"`
	// RequestWindow suppresses repeated repository requests.
	RequestWindow time.Duration `mapstructure:"request_window"`
}

// Defaults returns the settings used when nothing overrides them.
func Defaults() Config {
	return Config{
		IdentityFile:  "QSCore.cfg",
		Journal:       "",
		LogLevel:      "warn",
		RequestWindow: 5 * time.Second,
	}
}

// Load reads settings. An explicit path must exist; without one,
// qstream.yaml in the working directory is used when present.
func Load(path string) (Config, error) {
	v := viper.New()
	d := Defaults()
	v.SetDefault("identity_file", d.IdentityFile)
	v.SetDefault("journal", d.Journal)
	v.SetDefault("log_level", d.LogLevel)
	v.SetDefault("request_window", d.RequestWindow)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.AddConfigPath(".")
		v.SetConfigName(strings.TrimSuffix(FileName, ".yaml"))
		v.SetConfigType("yaml")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks field values.
func (c Config) Validate() error {
	if c.IdentityFile == "" {
		return errors.New("config: identity_file must not be empty")
	}
	if _, err := c.Level(); err != nil {
		return err
	}
	if c.RequestWindow <= 0 {
		return fmt.Errorf("config: request_window must be positive, got %s", c.RequestWindow)
	}
	return nil
}

// Level parses LogLevel.
func (c Config) Level() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return 0, fmt.Errorf("config: log_level %q: %w", c.LogLevel, err)
	}
	return level, nil
}
