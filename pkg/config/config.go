// Package config loads and validates the HLHSInfo backend configuration.
//
// Configuration sources (in order of precedence):
//  1. Environment variables (HLHSINFO_*)
//  2. Configuration file (config.yaml in the data directory)
//  3. Default values
//
// The data directory also holds the signing keypair; it is resolved from
// HLHSINFO_DATA_DIR, falling back to an XDG-style per-user directory.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// ConfigFileName is the name of the configuration file in the data directory.
const ConfigFileName = "config.yaml"

// EnvDataDir overrides the data directory location.
const EnvDataDir = "HLHSINFO_DATA_DIR"

// Config represents the HLHSInfo backend configuration.
//
// All upstream session state lives inside signed bearer tokens, so the
// configuration is fully static: it is loaded once at startup and treated
// as immutable afterwards.
type Config struct {
	// Provider is the service name reported by the alive endpoint.
	Provider string `mapstructure:"provider" validate:"required" yaml:"provider"`

	// Port is the HTTP listen port.
	Port int `mapstructure:"port" validate:"required,gt=0,lte=65535" yaml:"port"`

	// Logging controls log output behavior.
	Logging LoggingConfig `mapstructure:"logging" yaml:"logging"`

	// Auth controls bearer credential lifetimes.
	Auth AuthConfig `mapstructure:"auth" yaml:"auth"`

	// Server holds HTTP server timeouts.
	Server ServerConfig `mapstructure:"server" yaml:"server"`

	// Metrics controls the Prometheus /metrics endpoint.
	Metrics MetricsConfig `mapstructure:"metrics" yaml:"metrics"`
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	// Level is the minimum log level: DEBUG, INFO, WARN, ERROR.
	Level string `mapstructure:"level" validate:"required,oneof=DEBUG INFO WARN ERROR debug info warn error" yaml:"level"`

	// Format is the log output format: text or json.
	Format string `mapstructure:"format" validate:"required,oneof=text json" yaml:"format"`

	// Output is where logs are written: stdout, stderr, or a file path.
	Output string `mapstructure:"output" validate:"required" yaml:"output"`
}

// AuthConfig controls credential lifetimes.
//
// A handshake credential only has to survive the captcha round-trip, so its
// lifetime is short. The session credential lifetime bounds how long a relayed
// upstream cookie is honored; the upstream usually drops the session itself
// before that.
type AuthConfig struct {
	// HandshakeTTL is the lifetime of phase-1 (pre-login) credentials.
	HandshakeTTL time.Duration `mapstructure:"handshake_ttl" validate:"required,gt=0" yaml:"handshake_ttl"`

	// SessionTTL is the lifetime of phase-2 (post-login) credentials.
	SessionTTL time.Duration `mapstructure:"session_ttl" validate:"required,gt=0" yaml:"session_ttl"`
}

// ServerConfig holds HTTP server timeouts.
type ServerConfig struct {
	ReadTimeout     time.Duration `mapstructure:"read_timeout" yaml:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout" yaml:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout" yaml:"idle_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" validate:"required,gt=0" yaml:"shutdown_timeout"`
}

// MetricsConfig controls the Prometheus metrics endpoint.
type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`
}

// DataDir returns the directory holding the config file and key material.
//
// Resolution order: HLHSINFO_DATA_DIR, then $XDG_CONFIG_HOME/hlhsinfo,
// then ~/.config/hlhsinfo, then the current directory.
func DataDir() string {
	if dir := os.Getenv(EnvDataDir); dir != "" {
		return dir
	}
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "hlhsinfo")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".config", "hlhsinfo")
}

// Load loads configuration from file, environment, and defaults.
//
// If no configuration file exists at the resolved path, a file populated
// with the defaults is written there so operators have something to edit,
// and the defaults are returned.
func Load(configPath string) (*Config, error) {
	if configPath == "" {
		configPath = filepath.Join(DataDir(), ConfigFileName)
	}

	v := viper.New()
	setupViper(v, configPath)

	found, err := readConfigFile(v)
	if err != nil {
		return nil, err
	}

	if !found {
		cfg := Default()
		if err := Save(cfg, configPath); err != nil {
			return nil, fmt.Errorf("cannot write default config file: %w", err)
		}
		return cfg, nil
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	ApplyDefaults(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

// Save writes the configuration to the given path in YAML format,
// creating parent directories as needed.
func Save(cfg *Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// setupViper configures viper with environment variables and the config file.
// Environment variables use the HLHSINFO_ prefix with underscores, e.g.
// HLHSINFO_LOGGING_LEVEL=DEBUG.
func setupViper(v *viper.Viper, configPath string) {
	v.SetEnvPrefix("HLHSINFO")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetConfigFile(configPath)
	v.SetConfigType("yaml")
}

// readConfigFile reads the configuration file if it exists.
// Returns (fileFound, error).
func readConfigFile(v *viper.Viper) (bool, error) {
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return false, nil
		}
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to read config file: %w", err)
	}
	return true, nil
}
