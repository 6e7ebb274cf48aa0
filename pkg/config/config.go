package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config represents the complete DittoDrive configuration.
//
// This structure captures all configurable aspects of the DittoDrive server:
//   - Logging configuration
//   - HTTP server settings
//   - Metadata store selection and configuration (store-specific)
//   - Physical store selection and configuration (store-specific)
//   - Authentication settings and the static user registry
//
// Configuration sources (in order of precedence):
//  1. Environment variables (DITTODRIVE_*)
//  2. Configuration file (YAML or TOML)
//  3. Default values (lowest priority)
//
// Store Configuration Pattern:
// Each store implementation defines its own configuration type and factory
// function. The Config struct contains type-specific sections (e.g.
// physical.filesystem, physical.s3) and only the section matching the
// selected type is used.
type Config struct {
	// Logging controls log output behavior
	Logging LoggingConfig `mapstructure:"logging"`

	// Server contains HTTP server settings
	Server ServerConfig `mapstructure:"server"`

	// Metadata specifies the metadata store type and type-specific configuration
	Metadata MetadataConfig `mapstructure:"metadata"`

	// Physical specifies the physical store type and type-specific configuration
	Physical PhysicalConfig `mapstructure:"physical"`

	// Auth contains token settings and the user registry
	Auth AuthConfig `mapstructure:"auth"`
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	// Level is the minimum log level to output
	// Valid values: DEBUG, INFO, WARN, ERROR (case-insensitive, normalized to uppercase)
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
	// Listen is the address the HTTP server binds to (e.g., ":8080")
	Listen string `mapstructure:"listen" validate:"required"`

	// ShutdownTimeout is the maximum time to wait for graceful shutdown
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" validate:"required,gt=0"`
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

// PhysicalConfig specifies physical store configuration.
//
// The Type field determines which store implementation is used.
// Only the corresponding type-specific configuration section is used.
type PhysicalConfig struct {
	// Type specifies which physical store implementation to use
	// Valid values: filesystem, s3
	Type string `mapstructure:"type" validate:"required,oneof=filesystem s3"`

	// Filesystem contains filesystem-specific configuration
	// Only used when Type = "filesystem"
	Filesystem map[string]any `mapstructure:"filesystem"`

	// S3 contains S3-specific configuration
	// Only used when Type = "s3"
	S3 map[string]any `mapstructure:"s3"`
}

// AuthConfig contains token settings and the static user registry.
type AuthConfig struct {
	// JWTSecret signs access tokens. Change it in production.
	JWTSecret string `mapstructure:"jwt_secret" validate:"required,min=16"`

	// TokenTTL is how long issued tokens stay valid
	TokenTTL time.Duration `mapstructure:"token_ttl" validate:"required,gt=0"`

	// Users lists the provisioned accounts. There is no signup endpoint;
	// an empty list means nobody can log in.
	Users []UserConfig `mapstructure:"users" validate:"dive"`
}

// UserConfig defines a single provisioned account.
type UserConfig struct {
	// ID is the stable account id used as the storage owner
	ID string `mapstructure:"id" validate:"required"`

	// Username is the login name
	Username string `mapstructure:"username" validate:"required"`

	// PasswordHash is the bcrypt hash of the account password
	PasswordHash string `mapstructure:"password_hash" validate:"required"`
}

// Load loads configuration from file, environment, and defaults.
//
// Configuration precedence (highest to lowest):
//  1. Environment variables (DITTODRIVE_*)
//  2. Configuration file
//  3. Default values
//
// Parameters:
//   - configPath: Path to config file (empty string uses default location)
//
// Returns:
//   - *Config: Loaded and validated configuration
//   - error: Configuration loading or validation error
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
	// Environment variables use the DITTODRIVE_ prefix and underscores
	// Example: DITTODRIVE_LOGGING_LEVEL=DEBUG
	v.SetEnvPrefix("DITTODRIVE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		// Default location: $XDG_CONFIG_HOME/dittodrive/config.{yaml,toml}
		v.AddConfigPath(getConfigDir())
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}
}

// readConfigFile reads the configuration file if it exists.
func readConfigFile(v *viper.Viper) error {
	if err := v.ReadInConfig(); err != nil {
		// Config file not found is acceptable - use defaults
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return nil
		}
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to read config file: %w", err)
	}
	return nil
}

// getConfigDir returns the configuration directory path.
//
// Uses XDG_CONFIG_HOME if set, otherwise ~/.config, or falls back to current
// directory (.) if home directory cannot be determined.
func getConfigDir() string {
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, "dittodrive")
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}

	return filepath.Join(home, ".config", "dittodrive")
}

// GetDefaultConfigPath returns the default configuration file path.
func GetDefaultConfigPath() string {
	return filepath.Join(getConfigDir(), "config.yaml")
}
