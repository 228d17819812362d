package model

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

// ServerConfig holds the REST and push-transport endpoints.
type ServerConfig struct {
	// BaseURL is the root URL of the platform REST API.
	BaseURL string `mapstructure:"base_url" yaml:"base_url"`

	// SocketURL is the websocket endpoint for live updates.
	SocketURL string `mapstructure:"socket_url" yaml:"socket_url"`

	// UserID scopes the push room and notification queries.
	UserID string `mapstructure:"user_id" yaml:"user_id"`
}

// SyncConfig holds refresh cadence and channel recovery settings.
type SyncConfig struct {
	// InterviewPollSec is how often the interview list is refetched.
	InterviewPollSec int `mapstructure:"interview_poll_sec" yaml:"interview_poll_sec"`

	// NotificationPollSec is how often the notification list is refetched.
	NotificationPollSec int `mapstructure:"notification_poll_sec" yaml:"notification_poll_sec"`

	// MaxReconnectAttempts bounds automatic channel reconnection; once
	// exhausted the channel stays down until reconnected explicitly.
	MaxReconnectAttempts int `mapstructure:"max_reconnect_attempts" yaml:"max_reconnect_attempts"`

	// FetchTimeoutSec bounds a single REST request.
	FetchTimeoutSec int `mapstructure:"fetch_timeout_sec" yaml:"fetch_timeout_sec"`
}

// NotifyConfig holds notification retention settings.
type NotifyConfig struct {
	// WorkingSetCap bounds the in-memory notification list; the oldest
	// beyond the cap are moved to the local archive.
	WorkingSetCap int `mapstructure:"working_set_cap" yaml:"working_set_cap"`

	// ArchivePath is the SQLite file holding evicted notification history.
	ArchivePath string `mapstructure:"archive_path" yaml:"archive_path"`
}

// AppConfig is the top-level application configuration.
type AppConfig struct {
	Server ServerConfig `mapstructure:"server" yaml:"server"`
	Sync   SyncConfig   `mapstructure:"sync" yaml:"sync"`
	Notify NotifyConfig `mapstructure:"notify" yaml:"notify"`
}

// DefaultConfigPath returns the default path for the configuration file,
// located at ~/.config/interviewsync/config.yaml.
func DefaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", "config.yaml")
	}
	return filepath.Join(home, ".config", "interviewsync", "config.yaml")
}

// DefaultArchivePath returns the default path for the local notification
// archive database.
func DefaultArchivePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", "history.db")
	}
	return filepath.Join(home, ".config", "interviewsync", "history.db")
}

// defaultAppConfig returns a sensible default configuration.
func defaultAppConfig() *AppConfig {
	return &AppConfig{
		Sync: SyncConfig{
			InterviewPollSec:     300,
			NotificationPollSec:  60,
			MaxReconnectAttempts: 10,
			FetchTimeoutSec:      30,
		},
		Notify: NotifyConfig{
			WorkingSetCap: 50,
			ArchivePath:   DefaultArchivePath(),
		},
	}
}

// LoadConfig reads configuration from the given YAML file path using Viper.
// If the file does not exist, it returns a default configuration.
func LoadConfig(path string) (*AppConfig, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	// Set defaults so missing keys resolve to sensible values.
	v.SetDefault("sync.interview_poll_sec", 300)
	v.SetDefault("sync.notification_poll_sec", 60)
	v.SetDefault("sync.max_reconnect_attempts", 10)
	v.SetDefault("sync.fetch_timeout_sec", 30)
	v.SetDefault("notify.working_set_cap", 50)
	v.SetDefault("notify.archive_path", DefaultArchivePath())

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(*os.PathError); ok {
			return defaultAppConfig(), nil
		}
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return defaultAppConfig(), nil
		}
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}

	cfg := defaultAppConfig()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	return cfg, nil
}

// SaveConfig writes the given configuration to a YAML file at path,
// creating parent directories if needed.
func SaveConfig(path string, cfg *AppConfig) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating config directory %s: %w", dir, err)
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	v.Set("server", cfg.Server)
	v.Set("sync", cfg.Sync)
	v.Set("notify", cfg.Notify)

	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}

	return nil
}
