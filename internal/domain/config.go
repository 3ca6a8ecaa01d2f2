package domain

import (
	"path/filepath"
	"time"
)

// Config represents the application configuration
type Config struct {
	Server       ServerConfig       `mapstructure:"server"`
	Spotify      SpotifyConfig      `mapstructure:"spotify"`
	Download     DownloadConfig     `mapstructure:"download"`
	Discovery    DiscoveryConfig    `mapstructure:"discovery"`
	Database     DatabaseConfig     `mapstructure:"database"`
	Notification NotificationConfig `mapstructure:"notification"`
	Logging      LoggingConfig      `mapstructure:"logging"`
}

// ServerConfig contains server-related configuration
type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

// SpotifyConfig contains catalog API configuration
type SpotifyConfig struct {
	ClientID          string        `mapstructure:"client_id"`
	ClientSecret      string        `mapstructure:"client_secret"`
	TokenURL          string        `mapstructure:"token_url"`
	BaseURL           string        `mapstructure:"base_url"`
	Market            string        `mapstructure:"market"`
	RequestTimeout    time.Duration `mapstructure:"request_timeout"`
	TokenSafetyMargin time.Duration `mapstructure:"token_safety_margin"`
	GenreSearchLimit  int           `mapstructure:"genre_search_limit"`
}

// PlanMode selects how discovered artists are turned into download tasks
type PlanMode string

const (
	PlanTracks PlanMode = "tracks" // popular tracks of every release
	PlanAlbums PlanMode = "albums" // every deduplicated release
)

// DownloadConfig contains downloader-related configuration
type DownloadConfig struct {
	OutputDir    string        `mapstructure:"output_dir"`
	CookieFile   string        `mapstructure:"cookie_file"`
	LogsDir      string        `mapstructure:"logs_dir"`
	SpotDLBinary string        `mapstructure:"spotdl_binary"`
	Format       string        `mapstructure:"format"`
	ItemTimeout  time.Duration `mapstructure:"item_timeout"`  // single track or album
	BatchTimeout time.Duration `mapstructure:"batch_timeout"` // whole-artist batches
	PlanMode     PlanMode      `mapstructure:"plan_mode"`
}

// DiscoveryConfig contains discovery-related configuration
type DiscoveryConfig struct {
	SettingsPath   string        `mapstructure:"settings_path"`
	SeedFile       string        `mapstructure:"seed_file"`
	ProcessedFile  string        `mapstructure:"processed_file"`
	RequestDelay   time.Duration `mapstructure:"request_delay"`
	Schedule       string        `mapstructure:"schedule"` // cron expression, empty disables
	SeedDiscovered bool          `mapstructure:"seed_discovered"`
}

// DatabaseConfig contains history database configuration
type DatabaseConfig struct {
	Path string `mapstructure:"path"`
}

// NotificationConfig contains notification-related configuration
type NotificationConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Method  string `mapstructure:"method"` // osascript, notify-send
}

// LoggingConfig contains logging-related configuration
type LoggingConfig struct {
	Level      string `mapstructure:"level"`       // debug, info, warn, error
	Format     string `mapstructure:"format"`      // json, console
	OutputPath string `mapstructure:"output_path"` // stdout, stderr, or file path
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
	Compress   bool   `mapstructure:"compress"`
}

// TimeoutFor returns the bounded wait for a downloader run. A task-level
// override wins over the configured item timeout.
func (c *DownloadConfig) TimeoutFor(task DownloadTask) time.Duration {
	if task.Timeout > 0 {
		return task.Timeout
	}
	if c.ItemTimeout > 0 {
		return c.ItemTimeout
	}
	return DefaultItemTimeout
}

const (
	DefaultItemTimeout  = 180 * time.Second
	DefaultBatchTimeout = 600 * time.Second
)

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	base := "$HOME/Music/harvest"
	return &Config{
		Server: ServerConfig{
			Host: "localhost",
			Port: 5001,
		},
		Spotify: SpotifyConfig{
			TokenURL:          "https://accounts.spotify.com/api/token",
			BaseURL:           "https://api.spotify.com/v1",
			Market:            "IT",
			RequestTimeout:    10 * time.Second,
			TokenSafetyMargin: 100 * time.Second,
			GenreSearchLimit:  50,
		},
		Download: DownloadConfig{
			OutputDir:    filepath.Join(base, "music"),
			CookieFile:   filepath.Join(base, "cookies.txt"),
			LogsDir:      filepath.Join(base, "logs"),
			SpotDLBinary: "spotdl",
			Format:       "opus",
			ItemTimeout:  DefaultItemTimeout,
			BatchTimeout: DefaultBatchTimeout,
			PlanMode:     PlanTracks,
		},
		Discovery: DiscoveryConfig{
			SettingsPath:  filepath.Join(base, "settings.json"),
			SeedFile:      filepath.Join(base, "seed_artists.txt"),
			ProcessedFile: filepath.Join(base, "processed_artists.txt"),
			RequestDelay:  time.Second,
			Schedule:      "",
		},
		Database: DatabaseConfig{
			Path: filepath.Join(base, "history.db"),
		},
		Notification: NotificationConfig{
			Enabled: false,
			Method:  "notify-send",
		},
		Logging: LoggingConfig{
			Level:      "info",
			Format:     "console",
			OutputPath: "stdout",
			MaxSizeMB:  50,
			MaxBackups: 5,
			MaxAgeDays: 30,
		},
	}
}
