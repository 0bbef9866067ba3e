// Package config handles configuration loading and management for codeswap.
// It supports XDG config paths and environment variable overrides, and holds
// the model pricing table used for cost estimation.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

// DefaultModel is used when neither the CLI nor the config file picks one.
const DefaultModel = "anthropic/claude-sonnet-4.5"

// EnvAPIKey is the environment variable consulted for the OpenRouter key.
const EnvAPIKey = "OPENROUTER_API_KEY"

// Config holds all configuration for codeswap.
type Config struct {
	// APIKey is the OpenRouter API key.
	APIKey string `mapstructure:"api_key"`
	// Model is the default model slug for single completions.
	Model string `mapstructure:"model"`
	// AutoSave persists the conversation after every turn.
	AutoSave bool `mapstructure:"auto_save"`
	// AutoResume reopens the latest session on startup.
	AutoResume bool `mapstructure:"auto_resume"`
	// MaxSessions bounds how many auto-named sessions are kept.
	MaxSessions int `mapstructure:"max_sessions"`
	// YoloMode runs every tool without asking, regardless of permission.
	YoloMode bool `mapstructure:"yolo_mode"`
	// AutoRoute classifies each prompt and picks a model automatically.
	AutoRoute bool `mapstructure:"auto_route"`
	// RouteOverrides maps task category names to model slugs.
	RouteOverrides map[string]string `mapstructure:"route_overrides"`
}

// Load loads configuration from the user config file and environment.
// Precedence (highest to lowest):
//  1. Environment variables (OPENROUTER_API_KEY)
//  2. User config (~/.config/codeswap/config.yaml)
//  3. Built-in defaults
func Load() (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(userConfigDir())

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading user config: %w", err)
		}
	}

	v.BindEnv("api_key", EnvAPIKey)

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	cfg.APIKey = os.ExpandEnv(cfg.APIKey)
	return cfg, nil
}

// LoadFromPath loads configuration from a specific file (for testing).
func LoadFromPath(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading config from %s: %w", path, err)
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	cfg.APIKey = os.ExpandEnv(cfg.APIKey)
	return cfg, nil
}

// Save writes the current configuration to the user config file.
func Save(cfg *Config) error {
	dir := userConfigDir()
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	v := viper.New()
	v.SetConfigFile(filepath.Join(dir, "config.yaml"))

	// Only write the key if set, so an env-only setup stays env-only.
	if cfg.APIKey != "" {
		v.Set("api_key", cfg.APIKey)
	}
	v.Set("model", cfg.Model)
	v.Set("auto_save", cfg.AutoSave)
	v.Set("auto_resume", cfg.AutoResume)
	v.Set("max_sessions", cfg.MaxSessions)
	v.Set("yolo_mode", cfg.YoloMode)
	v.Set("auto_route", cfg.AutoRoute)
	if len(cfg.RouteOverrides) > 0 {
		v.Set("route_overrides", cfg.RouteOverrides)
	}

	return v.WriteConfig()
}

// ResolveAPIKey resolves the OpenRouter API key.
// Priority: cliKey -> OPENROUTER_API_KEY env var -> config file.
func (c *Config) ResolveAPIKey(cliKey string) (string, error) {
	if cliKey != "" {
		return cliKey, nil
	}
	if env := os.Getenv(EnvAPIKey); env != "" {
		return env, nil
	}
	if c.APIKey != "" {
		return c.APIKey, nil
	}
	return "", fmt.Errorf("no API key found: pass --api-key, set %s, or add api_key to %s",
		EnvAPIKey, GetUserConfigPath())
}

// ResolveModel resolves the model to use.
// Priority: cliModel -> config file model -> DefaultModel.
func (c *Config) ResolveModel(cliModel string) string {
	if cliModel != "" {
		return cliModel
	}
	if c.Model != "" {
		return c.Model
	}
	return DefaultModel
}

// GetUserConfigPath returns the path to the user config file.
func GetUserConfigPath() string {
	return filepath.Join(userConfigDir(), "config.yaml")
}

// CrewsDir returns the directory holding crew YAML definitions.
func CrewsDir() string {
	return filepath.Join(userConfigDir(), "crews")
}

// SessionsDir returns the directory holding session JSONL logs.
func SessionsDir() string {
	return filepath.Join(userDataDir(), "sessions")
}

// RunDBPath returns the path to the crew-run history database.
func RunDBPath() string {
	return filepath.Join(userDataDir(), "runs.db")
}

// SignalsDir returns the directory watched for the crew stop file.
func SignalsDir() string {
	return filepath.Join(userDataDir(), "signals")
}

// setDefaults configures default values.
func setDefaults(v *viper.Viper) {
	v.SetDefault("api_key", "")
	v.SetDefault("model", DefaultModel)
	v.SetDefault("auto_save", true)
	v.SetDefault("auto_resume", false)
	v.SetDefault("max_sessions", 50)
	v.SetDefault("yolo_mode", false)
	v.SetDefault("auto_route", false)
}

// userConfigDir returns the XDG config directory for codeswap.
func userConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "codeswap")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", ".config", "codeswap")
	}
	return filepath.Join(home, ".config", "codeswap")
}

// userDataDir returns the XDG data directory for codeswap.
func userDataDir() string {
	if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
		return filepath.Join(xdg, "codeswap")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", ".local", "share", "codeswap")
	}
	return filepath.Join(home, ".local", "share", "codeswap")
}
