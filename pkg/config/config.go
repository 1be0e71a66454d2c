// Package config loads, defaults and validates the DriftFS server
// configuration, and provides factories that turn configuration sections
// into live components.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config represents the complete DriftFS configuration.
//
// This structure captures all configurable aspects of the server:
//   - Logging configuration
//   - HTTP server settings
//   - Authentication protocol settings
//   - Metadata store selection and type-specific configuration
//   - Storage node definitions
//
// Configuration sources (in order of precedence):
//  1. Environment variables (DRIFTFS_*)
//  2. Configuration file (YAML)
//  3. Default values (lowest priority)
//
// Store Configuration Pattern:
// The metadata section has a Type field plus one map per implementation;
// only the section matching the selected type is decoded, by the factory in
// factories.go.
type Config struct {
	// Logging controls log output behavior
	Logging LoggingConfig `mapstructure:"logging"`

	// Server contains HTTP server settings
	Server ServerConfig `mapstructure:"server"`

	// Auth contains challenge-response protocol settings
	Auth AuthConfig `mapstructure:"auth"`

	// Metadata specifies the metadata store type and type-specific configuration
	Metadata MetadataConfig `mapstructure:"metadata"`

	// Storages defines the storage nodes content is redirected to
	Storages []StorageNodeConfig `mapstructure:"storages" validate:"dive"`
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	// Level is the minimum log level to output
	// Valid values: DEBUG, INFO, WARN, ERROR (case-insensitive)
	Level string `mapstructure:"level" validate:"required,oneof=DEBUG INFO WARN ERROR debug info warn error"`

	// Format specifies the log output format
	// Valid values: text, json
	Format string `mapstructure:"format" validate:"required,oneof=text json"`

	// Output specifies where logs are written
	// Valid values: stdout, stderr, or a file path
	Output string `mapstructure:"output" validate:"required"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	// ListenAddress is the host:port the REST API binds to
	ListenAddress string `mapstructure:"listen_address" validate:"required"`

	// ShutdownTimeout is the maximum time to wait for graceful shutdown
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" validate:"required,gt=0"`
}

// AuthConfig contains challenge-response protocol settings.
type AuthConfig struct {
	// ChallengeTTL is how long an issued challenge stays valid
	ChallengeTTL time.Duration `mapstructure:"challenge_ttl" validate:"required,gt=0"`

	// MaxChallenges bounds the number of concurrently live challenges
	MaxChallenges int `mapstructure:"max_challenges" validate:"required,gt=0"`

	// DefaultStorageLimit is the byte quota assigned to newly registered keys
	DefaultStorageLimit int64 `mapstructure:"default_storage_limit" validate:"required,gt=0"`

	// AutoActivate marks newly registered keys as activated immediately.
	// When false an operator has to activate keys out of band.
	AutoActivate bool `mapstructure:"auto_activate"`
}

// MetadataConfig specifies metadata store configuration.
//
// The Type field determines which store implementation is used.
// Only the corresponding type-specific configuration section is used.
type MetadataConfig struct {
	// Type specifies which metadata store implementation to use
	// Valid values: memory, badger
	Type string `mapstructure:"type" validate:"required,oneof=memory badger"`

	// Memory contains memory-specific configuration
	// Only used when Type = "memory"
	Memory map[string]any `mapstructure:"memory"`

	// Badger contains BadgerDB-specific configuration
	// Only used when Type = "badger"
	Badger map[string]any `mapstructure:"badger"`
}

// StorageNodeConfig defines a single storage node.
type StorageNodeConfig struct {
	// ID is the node's stable identifier, referenced by file rows
	ID string `mapstructure:"id" validate:"required"`

	// Type specifies the backend protocol
	// Valid values: http, s3
	Type string `mapstructure:"type" validate:"required,oneof=http s3"`

	// URL is the node's base endpoint (http nodes only)
	URL string `mapstructure:"url"`

	// Token authenticates this server against the node (http nodes only)
	Token string `mapstructure:"token"`

	// Capacity is the node's advertised capacity in bytes
	Capacity int64 `mapstructure:"capacity" validate:"required,gt=0"`

	// Priority orders node selection; lower wins, <= 0 disables the node
	Priority int `mapstructure:"priority"`

	// Timeout bounds each request to the node (http nodes only)
	Timeout time.Duration `mapstructure:"timeout"`

	// S3 contains S3-specific configuration
	// Only used when Type = "s3"
	S3 map[string]any `mapstructure:"s3"`
}

// Load loads configuration from file, environment, and defaults.
//
// Configuration precedence (highest to lowest):
//  1. Environment variables (DRIFTFS_*)
//  2. Configuration file
//  3. Default values
func Load(configPath string) (*Config, error) {
	v := viper.New()

	setupViper(v, configPath)

	if err := readConfigFile(v); err != nil {
		return nil, err
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

// setupViper configures viper with environment variables and config file settings.
func setupViper(v *viper.Viper, configPath string) {
	// Environment variables use the DRIFTFS_ prefix with underscores.
	// Example: DRIFTFS_LOGGING_LEVEL=DEBUG
	v.SetEnvPrefix("DRIFTFS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.AddConfigPath(getConfigDir())
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}
}

// readConfigFile reads the configuration file if it exists. A missing file
// is acceptable; defaults apply.
func readConfigFile(v *viper.Viper) error {
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return nil
		}
		return fmt.Errorf("failed to read config file: %w", err)
	}
	return nil
}

// getConfigDir returns the configuration directory path.
//
// Uses XDG_CONFIG_HOME if set, otherwise ~/.config, or falls back to the
// current directory if the home directory cannot be determined.
func getConfigDir() string {
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, "driftfs")
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".config", "driftfs")
}

// GetDefaultConfigPath returns the default configuration file path.
func GetDefaultConfigPath() string {
	return filepath.Join(getConfigDir(), "config.yaml")
}
