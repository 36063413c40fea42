package config

import (
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

func homeDirOrFallback() string {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return "."
	}
	return home
}

// Config holds all user-configurable settings.
type Config struct {
	// DownloadDir is where crackme archives are extracted.
	DownloadDir string `json:"download_dir"`
	// RequestsPerSecond rate-limits HTTP requests to the catalog.
	RequestsPerSecond float64 `json:"requests_per_second"`
	// BaseURL is the root URL of the catalog site.
	BaseURL string `json:"base_url"`
	// ArchivePasswords are tried in order on encrypted archive members.
	ArchivePasswords []string `json:"archive_passwords"`
	// CacheDescriptions keeps fetched records and descriptions in the local database.
	CacheDescriptions bool `json:"cache_descriptions"`
	// LogLevel is one of debug, info, warn, error.
	LogLevel string `json:"log_level"`
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		DownloadDir:       ".",
		RequestsPerSecond: 2.0,
		BaseURL:           "https://crackmes.one",
		ArchivePasswords:  []string{"crackmes.one", "crackmes.de"},
		CacheDescriptions: true,
		LogLevel:          "info",
	}
}

// ConfigDir returns the directory where config and data files are stored.
func ConfigDir() string {
	if dir := os.Getenv("CRACKMES_CONFIG_DIR"); dir != "" {
		return dir
	}
	return filepath.Join(homeDirOrFallback(), ".config", "crackmes")
}

// DBPath returns the path to the SQLite cache.
func DBPath() string {
	return filepath.Join(ConfigDir(), "cache.db")
}

// ConfigPath returns the path to the config file.
func ConfigPath() string {
	return filepath.Join(ConfigDir(), "config.json")
}

// LogPath returns the path of the log file.
func LogPath() string {
	return filepath.Join(ConfigDir(), "crackmes.log")
}

// Level maps LogLevel to a slog level, defaulting to info.
func (c *Config) Level() slog.Level {
	switch strings.ToLower(strings.TrimSpace(c.LogLevel)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Load reads config from disk, writing defaults if the file doesn't exist.
func Load() (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(ConfigPath())
	if err != nil {
		if os.IsNotExist(err) {
			if err := cfg.Save(); err != nil {
				return nil, err
			}
			return cfg, nil
		}
		return nil, err
	}

	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes the config to disk.
func (c *Config) Save() error {
	dir := ConfigDir()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(ConfigPath(), data, 0o644)
}
