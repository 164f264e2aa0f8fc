// Package config loads runtime settings from defaults, an optional config
// file, BINGO_* environment variables, and bound command-line flags.
package config

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"

	bingo "github.com/Parkreiner/climbingbingo"
	"github.com/Parkreiner/climbingbingo/gridgen"
)

// EnvPrefix is prepended to every environment variable, e.g.
// BINGO_HTTP_ADDR.
const EnvPrefix = "BINGO"

// Keys understood by Load.
const (
	KeyHTTPAddr     = "http_addr"
	KeyLogLevel     = "log_level"
	KeyLogFormat    = "log_format"
	KeyMaxAttempts  = "max_attempts"
	KeyCatalogPath  = "catalog_path"
	KeyEventLogPath = "event_log_path"
	KeyDefaultSize  = "default_size"
	KeyDefaultFree  = "default_free"
)

const (
	LogFormatText = "text"
	LogFormatJSON = "json"
)

// Config is the fully resolved runtime configuration.
type Config struct {
	HTTPAddr  string
	LogLevel  logrus.Level
	LogFormat string
	// MaxAttempts is the per-request attempt budget for grid generation.
	MaxAttempts int
	// CatalogPath is empty when the embedded catalog should be used.
	CatalogPath string
	// EventLogPath is empty when generation events should not be logged.
	EventLogPath string
	DefaultSize  int
	DefaultFree  bool
}

// New creates a viper instance with every default registered and environment
// variables enabled.
func New() *viper.Viper {
	v := viper.New()
	SetDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()
	return v
}

// SetDefaults registers the default value of every key.
func SetDefaults(v *viper.Viper) {
	v.SetDefault(KeyHTTPAddr, ":8080")
	v.SetDefault(KeyLogLevel, "info")
	v.SetDefault(KeyLogFormat, LogFormatText)
	v.SetDefault(KeyMaxAttempts, gridgen.DefaultMaxAttempts)
	v.SetDefault(KeyCatalogPath, "")
	v.SetDefault(KeyEventLogPath, "")
	v.SetDefault(KeyDefaultSize, 3)
	v.SetDefault(KeyDefaultFree, true)
}

// ReadFile merges a config file into v. The format is inferred from the
// file's extension.
func ReadFile(v *viper.Viper, path string) error {
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("reading config file %q: %w", path, err)
	}
	return nil
}

// Load resolves and validates a Config.
func Load(v *viper.Viper) (Config, error) {
	level, err := logrus.ParseLevel(v.GetString(KeyLogLevel))
	if err != nil {
		return Config{}, fmt.Errorf("%s: %w", KeyLogLevel, err)
	}

	cfg := Config{
		HTTPAddr:     v.GetString(KeyHTTPAddr),
		LogLevel:     level,
		LogFormat:    strings.ToLower(v.GetString(KeyLogFormat)),
		MaxAttempts:  v.GetInt(KeyMaxAttempts),
		CatalogPath:  v.GetString(KeyCatalogPath),
		EventLogPath: v.GetString(KeyEventLogPath),
		DefaultSize:  v.GetInt(KeyDefaultSize),
		DefaultFree:  v.GetBool(KeyDefaultFree),
	}

	var errs []error
	if cfg.HTTPAddr == "" {
		errs = append(errs, fmt.Errorf("%s must not be empty", KeyHTTPAddr))
	}
	if cfg.LogFormat != LogFormatText && cfg.LogFormat != LogFormatJSON {
		errs = append(errs, fmt.Errorf("%s must be %q or %q (got %q)", KeyLogFormat, LogFormatText, LogFormatJSON, cfg.LogFormat))
	}
	if cfg.MaxAttempts <= 0 {
		errs = append(errs, fmt.Errorf("%s must be positive (got %d)", KeyMaxAttempts, cfg.MaxAttempts))
	}
	if !slices.Contains(bingo.AllowedSizes, cfg.DefaultSize) {
		errs = append(errs, fmt.Errorf("%s must be one of %v (got %d)", KeyDefaultSize, bingo.AllowedSizes, cfg.DefaultSize))
	}
	if err := errors.Join(errs...); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// NewLogger builds the process-wide logger described by cfg.
func NewLogger(cfg Config) *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(cfg.LogLevel)
	if cfg.LogFormat == LogFormatJSON {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	return logger
}
