// Package config provides Viper configuration loading utilities.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

const (
	// JSONLogFormat indicates JSON log format.
	JSONLogFormat = "json"
	// TextLogFormat indicates text log format.
	TextLogFormat = "text"
)

// LogConfig holds logging configuration.
type LogConfig struct {
	Format     string        `mapstructure:"format"`
	Level      zerolog.Level `mapstructure:"level"`
	WithCaller bool          `mapstructure:"with_caller"`
}

// APIConfig holds REST API client configuration.
type APIConfig struct {
	URL     string        `mapstructure:"url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// ChannelConfig holds push channel configuration.
type ChannelConfig struct {
	URL              string        `mapstructure:"url"`
	HandshakeTimeout time.Duration `mapstructure:"handshake_timeout"`
	InitialBackoff   time.Duration `mapstructure:"initial_backoff"`
	MaxBackoff       time.Duration `mapstructure:"max_backoff"`
	// MaxAttempts bounds reconnect attempts per disconnect; 0 means
	// reconnect indefinitely for the life of the session.
	MaxAttempts int `mapstructure:"max_attempts"`
}

// CredentialConfig holds OS keyring configuration for the session token.
type CredentialConfig struct {
	Service string `mapstructure:"service"`
	FileDir string `mapstructure:"file_dir"`
}

// MetricsConfig holds the optional Prometheus exposition endpoint settings.
type MetricsConfig struct {
	ListenAddr string `mapstructure:"listen_addr"`
}

// ClientConfig holds the full client configuration.
type ClientConfig struct {
	API        APIConfig        `mapstructure:"api"`
	Channel    ChannelConfig    `mapstructure:"channel"`
	Credential CredentialConfig `mapstructure:"credential"`
	Metrics    MetricsConfig    `mapstructure:"metrics"`
	Logging    LogConfig        `mapstructure:"logging"`
}

// LoaderConfig holds configuration for the config loader.
type LoaderConfig struct {
	// EnvPrefix is the prefix for environment variables (e.g.,
	// "COURSEWIRE" -> COURSEWIRE_API_URL).
	EnvPrefix string

	// ConfigPaths is a list of directories to search for config files.
	ConfigPaths []string

	// ConfigName is the name of the config file (without extension).
	ConfigName string

	// Defaults is a map of default values.
	Defaults map[string]interface{}
}

// DefaultLoaderConfig returns default loader configuration.
func DefaultLoaderConfig(envPrefix string) *LoaderConfig {
	return &LoaderConfig{
		EnvPrefix:  envPrefix,
		ConfigName: "config",
		ConfigPaths: []string{
			fmt.Sprintf("/etc/%s/", strings.ToLower(envPrefix)),
			fmt.Sprintf("$HOME/.%s", strings.ToLower(envPrefix)),
			".",
		},
		Defaults: map[string]interface{}{
			"api.url":                   "https://api.coursewire.dev",
			"api.timeout":               30 * time.Second,
			"channel.url":               "wss://api.coursewire.dev/ws",
			"channel.handshake_timeout": 10 * time.Second,
			"channel.initial_backoff":   time.Second,
			"channel.max_backoff":       time.Minute,
			"channel.max_attempts":      0,
			"credential.service":        "coursewire",
			"credential.file_dir":       "~/.config/coursewire/credentials",
			"metrics.listen_addr":       "",
			"logging.level":             "info",
			"logging.format":            TextLogFormat,
			"logging.with_caller":       false,
		},
	}
}

// Load reads configuration from file and environment variables.
// If configPath is empty, it searches in default paths.
// If isFile is true, configPath is treated as a direct file path.
// A missing config file is not an error; defaults and environment variables
// still apply so the CLI works out of the box.
func Load(configPath string, isFile bool, cfg *LoaderConfig) error {
	if cfg == nil {
		cfg = DefaultLoaderConfig("coursewire")
	}

	log.Debug().Msg("Loading configuration")

	if isFile {
		viper.SetConfigFile(configPath)
	} else {
		viper.SetConfigName(cfg.ConfigName)
		if configPath == "" {
			for _, path := range cfg.ConfigPaths {
				viper.AddConfigPath(path)
			}
		} else {
			viper.AddConfigPath(configPath)
		}
	}

	// Environment variable configuration
	viper.SetEnvPrefix(cfg.EnvPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// Set defaults
	for key, value := range cfg.Defaults {
		viper.SetDefault(key, value)
	}

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if isFile || !errors.As(err, &notFound) {
			return fmt.Errorf("reading config file: %w", err)
		}
		log.Debug().Msg("No config file found, using defaults")
		return nil
	}

	log.Debug().
		Str("config_file", viper.ConfigFileUsed()).
		Msg("Configuration loaded")

	return nil
}

// GetLogConfig returns the logging configuration from Viper.
func GetLogConfig() LogConfig {
	logLevelStr := viper.GetString("logging.level")
	logLevel, err := zerolog.ParseLevel(logLevelStr)
	if err != nil {
		logLevel = zerolog.InfoLevel
	}

	logFormatOpt := viper.GetString("logging.format")
	var logFormat string
	switch logFormatOpt {
	case JSONLogFormat:
		logFormat = JSONLogFormat
	case TextLogFormat:
		logFormat = TextLogFormat
	case "":
		logFormat = TextLogFormat
	default:
		log.Warn().
			Str("format", logFormatOpt).
			Msg("Invalid log format, using text")
		logFormat = TextLogFormat
	}

	return LogConfig{
		Format:     logFormat,
		Level:      logLevel,
		WithCaller: viper.GetBool("logging.with_caller"),
	}
}

// GetClientConfig returns the client configuration from Viper.
// Applications should call this after Load().
func GetClientConfig() *ClientConfig {
	logConfig := GetLogConfig()
	zerolog.SetGlobalLevel(logConfig.Level)

	return &ClientConfig{
		Logging: logConfig,
		API: APIConfig{
			URL:     viper.GetString("api.url"),
			Timeout: viper.GetDuration("api.timeout"),
		},
		Channel: ChannelConfig{
			URL:              viper.GetString("channel.url"),
			HandshakeTimeout: viper.GetDuration("channel.handshake_timeout"),
			InitialBackoff:   viper.GetDuration("channel.initial_backoff"),
			MaxBackoff:       viper.GetDuration("channel.max_backoff"),
			MaxAttempts:      viper.GetInt("channel.max_attempts"),
		},
		Credential: CredentialConfig{
			Service: viper.GetString("credential.service"),
			FileDir: viper.GetString("credential.file_dir"),
		},
		Metrics: MetricsConfig{
			ListenAddr: viper.GetString("metrics.listen_addr"),
		},
	}
}

// ValidateRequired checks that required configuration fields are set.
func ValidateRequired(fields map[string]string) error {
	var missing []string
	for field, description := range fields {
		if viper.GetString(field) == "" {
			missing = append(missing, fmt.Sprintf("%s (%s)", field, description))
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required configuration: %s", strings.Join(missing, ", "))
	}
	return nil
}
