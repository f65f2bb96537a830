package main

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	koanftoml "github.com/knadh/koanf/parsers/toml/v2"
	koanfenv "github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/file"
	koanf "github.com/knadh/koanf/v2"
)

// Config represents the application configuration structure
type Config struct {
	Backend    BackendConfig    `koanf:"backend"`
	Chat       ChatConfig       `koanf:"chat"`
	Logging    LoggingConfig    `koanf:"logging"`
	History    HistoryConfig    `koanf:"history"`
	Transcript TranscriptConfig `koanf:"transcript"`
}

// BackendConfig holds assistant backend configuration
type BackendConfig struct {
	BaseURL        string `koanf:"base_url"`
	TimeoutSeconds int    `koanf:"timeout_seconds"`
}

// ChatConfig holds per-turn chat behaviour
type ChatConfig struct {
	DeepSearch         bool `koanf:"deep_search"`
	TurnTimeoutSeconds int  `koanf:"turn_timeout_seconds"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level string `koanf:"level"`
	File  string `koanf:"file"`
}

// HistoryConfig holds prompt history configuration
type HistoryConfig struct {
	Enabled    bool `koanf:"enabled"`
	MaxEntries int  `koanf:"max_entries"`
}

// TranscriptConfig holds local transcript persistence configuration
type TranscriptConfig struct {
	Enabled        bool `koanf:"enabled"`
	MaxTranscripts int  `koanf:"max_transcripts"`
	MaxAgeDays     int  `koanf:"max_age_days"`
	ListLimit      int  `koanf:"list_limit"`
}

// defaultConfig returns the configuration populated with sensible defaults.
func defaultConfig() Config {
	return Config{
		Backend: BackendConfig{
			BaseURL:        "http://localhost:8000",
			TimeoutSeconds: 30,
		},
		Chat: ChatConfig{
			TurnTimeoutSeconds: 120,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
		History: HistoryConfig{
			Enabled:    true,
			MaxEntries: 500,
		},
		Transcript: TranscriptConfig{
			Enabled:        true,
			MaxTranscripts: 50,
			MaxAgeDays:     30,
			ListLimit:      10,
		},
	}
}

// TurnTimeout returns the per-turn deadline as a duration, zero for none.
func (c *Config) TurnTimeout() time.Duration {
	if c.Chat.TurnTimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(c.Chat.TurnTimeoutSeconds) * time.Second
}

// LoadConfig loads configuration from multiple sources: user config, project
// config, then ARTHA_* environment variables, later sources winning.
func LoadConfig() (*Config, error) {
	k := koanf.New(".")

	homeDir, err := os.UserHomeDir()
	if err != nil {
		log.Printf("Failed to get user home directory: %v", err)
	} else {
		userConfigPath := filepath.Join(homeDir, ".config", "artha", "conf.toml")
		if _, err := os.Stat(userConfigPath); err == nil {
			if err := k.Load(file.Provider(userConfigPath), koanftoml.Parser()); err != nil {
				log.Printf("Failed to load user config from %s: %v", userConfigPath, err)
			}
		}
	}

	projectConfigPath := filepath.Join(".artha", "conf.toml")
	if _, err := os.Stat(projectConfigPath); err == nil {
		if err := k.Load(file.Provider(projectConfigPath), koanftoml.Parser()); err != nil {
			log.Printf("Failed to load project config from %s: %v", projectConfigPath, err)
		}
	} else if !os.IsNotExist(err) {
		log.Printf("Unable to stat project config at %s: %v", projectConfigPath, err)
	}

	// Environment variables with prefix "ARTHA_" override config values,
	// e.g. ARTHA_BACKEND_BASE_URL overrides backend.base_url.
	if err := k.Load(koanfenv.Provider(".", koanfenv.Opt{
		Prefix: "ARTHA_",
		TransformFunc: func(key, value string) (string, any) {
			key = strings.ToLower(strings.TrimPrefix(key, "ARTHA_"))
			if section, rest, ok := strings.Cut(key, "_"); ok {
				return section + "." + rest, value
			}
			return key, value
		},
	}), nil); err != nil {
		log.Printf("Failed to load environment variables: %v", err)
	}

	config := defaultConfig()
	if err := k.Unmarshal("", &config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &config, nil
}

// SaveConfig persists the settings the app mutates at runtime to the
// project-level conf.toml file.
func SaveConfig(config *Config) error {
	projectConfigPath := filepath.Join(".artha", "conf.toml")

	if err := os.MkdirAll(".artha", 0o755); err != nil {
		return fmt.Errorf("failed to create .artha directory: %w", err)
	}

	k := koanf.New(".")
	if _, err := os.Stat(projectConfigPath); err == nil {
		if err := k.Load(file.Provider(projectConfigPath), koanftoml.Parser()); err != nil {
			return fmt.Errorf("failed to load existing project config: %w", err)
		}
	}

	if err := k.Set("chat.deep_search", config.Chat.DeepSearch); err != nil {
		return fmt.Errorf("failed to update deep_search in config: %w", err)
	}

	data, err := k.Marshal(koanftoml.Parser())
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(projectConfigPath, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// dataDir returns the app data directory, creating it if needed.
func dataDir() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home dir: %w", err)
	}
	dir := filepath.Join(homeDir, ".local", "share", "artha")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create data dir: %w", err)
	}
	return dir, nil
}
