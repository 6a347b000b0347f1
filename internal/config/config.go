package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/sweeparr/sweeparr/internal/dedupe"
)

// Config holds all application configuration.
type Config struct {
	Plex     PlexConfig     `mapstructure:"plex"`
	Radarr   ArrConfig      `mapstructure:"radarr"`
	Sonarr   ArrConfig      `mapstructure:"sonarr"`
	Sweep    SweepConfig    `mapstructure:"sweep"`
	Database DatabaseConfig `mapstructure:"database"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// PlexConfig holds media server connection configuration.
type PlexConfig struct {
	URL           string `mapstructure:"url"`
	Token         string `mapstructure:"token"`
	Timeout       int    `mapstructure:"timeout"`
	SkipSSLVerify bool   `mapstructure:"skip_ssl_verify"`
}

// ArrConfig holds PVR connection configuration. An empty URL disables the
// integration.
type ArrConfig struct {
	URL           string `mapstructure:"url"`
	APIKey        string `mapstructure:"api_key"`
	Timeout       int    `mapstructure:"timeout"`
	SkipSSLVerify bool   `mapstructure:"skip_ssl_verify"`
}

// Enabled reports whether the integration is configured.
func (c *ArrConfig) Enabled() bool {
	return c.URL != ""
}

// SweepConfig holds the cleanup policy.
type SweepConfig struct {
	Preference    string   `mapstructure:"preference"`
	PreserveTerms []string `mapstructure:"preserve_terms"`
	MaxInFlight   int      `mapstructure:"max_in_flight"`
}

// Policy converts the configured policy into its dedupe form.
func (c *SweepConfig) Policy() dedupe.Policy {
	return dedupe.Policy{
		Preference:    dedupe.Preference(c.Preference),
		PreserveTerms: c.PreserveTerms,
	}
}

// DatabaseConfig holds database configuration.
type DatabaseConfig struct {
	Path string `mapstructure:"path"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Default returns a Config with default values.
func Default() *Config {
	return &Config{
		Plex: PlexConfig{
			Timeout: 90,
		},
		Sweep: SweepConfig{
			Preference:  string(dedupe.DeleteSmallestFile),
			MaxInFlight: 6,
		},
		Database: DatabaseConfig{
			Path: "./data/sweeparr.db",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// Load reads configuration from file and environment variables.
// Priority: environment variables > config file > defaults
func Load(configPath string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		v.AddConfigPath("$HOME/.sweeparr")
	}

	v.SetEnvPrefix("SWEEPARR")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Read config file (ignore if not found)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the configuration for values the engine cannot run with.
func (c *Config) Validate() error {
	if c.Plex.URL == "" {
		return fmt.Errorf("plex.url is required")
	}
	if c.Plex.Token == "" {
		return fmt.Errorf("plex.token is required")
	}
	if !dedupe.ValidPreference(dedupe.Preference(c.Sweep.Preference)) {
		return fmt.Errorf("sweep.preference %q is not valid", c.Sweep.Preference)
	}
	if c.Radarr.Enabled() && c.Radarr.APIKey == "" {
		return fmt.Errorf("radarr.api_key is required when radarr.url is set")
	}
	if c.Sonarr.Enabled() && c.Sonarr.APIKey == "" {
		return fmt.Errorf("sonarr.api_key is required when sonarr.url is set")
	}
	return nil
}

// setDefaults sets default values in viper
func setDefaults(v *viper.Viper) {
	v.SetDefault("plex.timeout", 90)

	v.SetDefault("radarr.timeout", 90)
	v.SetDefault("sonarr.timeout", 90)

	v.SetDefault("sweep.preference", string(dedupe.DeleteSmallestFile))
	v.SetDefault("sweep.preserve_terms", []string{})
	v.SetDefault("sweep.max_in_flight", 6)

	v.SetDefault("database.path", "./data/sweeparr.db")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
}
