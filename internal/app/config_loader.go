package app

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"github.com/yourusername/music-harvest-go/internal/domain"
)

// envBindings maps config keys to extra environment variable names honoured
// besides the HARVEST_ prefixed ones. CLIENT_ID and CLIENT_SECRET are the
// names older .env files use.
var envBindings = map[string][]string{
	"spotify.client_id":      {"HARVEST_SPOTIFY_CLIENT_ID", "CLIENT_ID"},
	"spotify.client_secret":  {"HARVEST_SPOTIFY_CLIENT_SECRET", "CLIENT_SECRET"},
	"server.host":            {"HARVEST_SERVER_HOST"},
	"server.port":            {"HARVEST_SERVER_PORT"},
	"download.output_dir":    {"HARVEST_DOWNLOAD_OUTPUT_DIR"},
	"download.cookie_file":   {"HARVEST_DOWNLOAD_COOKIE_FILE"},
	"download.spotdl_binary": {"HARVEST_DOWNLOAD_SPOTDL_BINARY"},
	"discovery.schedule":     {"HARVEST_DISCOVERY_SCHEDULE"},
	"logging.level":          {"HARVEST_LOGGING_LEVEL"},
}

// LoadConfig loads configuration from file and environment. A .env file in
// the working directory is loaded into the environment first.
func LoadConfig(configPath string) (*domain.Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}

	config := domain.DefaultConfig()

	v := viper.New()
	v.SetConfigType("yaml")

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.AddConfigPath("./configs")
		v.AddConfigPath("$HOME/.music-harvest")
		v.AddConfigPath("/etc/music-harvest")
	}

	v.SetEnvPrefix("HARVEST")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, names := range envBindings {
		if err := v.BindEnv(append([]string{key}, names...)...); err != nil {
			return nil, fmt.Errorf("failed to bind %s: %w", key, err)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	if err := v.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	config = expandPaths(config)

	if err := validateConfig(config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

func expandPaths(config *domain.Config) *domain.Config {
	config.Download.OutputDir = expandPath(config.Download.OutputDir)
	config.Download.CookieFile = expandPath(config.Download.CookieFile)
	config.Download.LogsDir = expandPath(config.Download.LogsDir)
	config.Discovery.SettingsPath = expandPath(config.Discovery.SettingsPath)
	config.Discovery.SeedFile = expandPath(config.Discovery.SeedFile)
	config.Discovery.ProcessedFile = expandPath(config.Discovery.ProcessedFile)
	config.Database.Path = expandPath(config.Database.Path)

	if config.Logging.OutputPath != "stdout" && config.Logging.OutputPath != "stderr" {
		config.Logging.OutputPath = expandPath(config.Logging.OutputPath)
	}

	return config
}

// expandPath expands environment variables and a leading ~ in path
func expandPath(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			path = filepath.Join(home, strings.TrimPrefix(path, "~"))
		}
	}
	return os.ExpandEnv(path)
}

func validateConfig(config *domain.Config) error {
	if config.Server.Port < 1 || config.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", config.Server.Port)
	}

	if config.Download.OutputDir == "" {
		return fmt.Errorf("download output directory not configured")
	}

	if config.Download.SpotDLBinary == "" {
		return fmt.Errorf("spotdl binary not configured")
	}

	if config.Download.ItemTimeout <= 0 || config.Download.BatchTimeout <= 0 {
		return fmt.Errorf("download timeouts must be positive")
	}

	switch config.Download.PlanMode {
	case domain.PlanTracks, domain.PlanAlbums:
	default:
		return fmt.Errorf("unknown plan mode: %q", config.Download.PlanMode)
	}

	if config.Spotify.BaseURL == "" || config.Spotify.TokenURL == "" {
		return fmt.Errorf("spotify endpoints not configured")
	}

	if config.Database.Path == "" {
		return fmt.Errorf("history database path not configured")
	}

	if config.Logging.Level == "" {
		config.Logging.Level = "info"
	}

	return nil
}

// SaveConfig saves configuration to file
func SaveConfig(config *domain.Config, path string) error {
	v := viper.New()
	v.SetConfigType("yaml")

	v.Set("server", map[string]interface{}{
		"host": config.Server.Host,
		"port": config.Server.Port,
	})
	v.Set("spotify", map[string]interface{}{
		"token_url":           config.Spotify.TokenURL,
		"base_url":            config.Spotify.BaseURL,
		"market":              config.Spotify.Market,
		"request_timeout":     config.Spotify.RequestTimeout.String(),
		"token_safety_margin": config.Spotify.TokenSafetyMargin.String(),
		"genre_search_limit":  config.Spotify.GenreSearchLimit,
	})
	v.Set("download", map[string]interface{}{
		"output_dir":    config.Download.OutputDir,
		"cookie_file":   config.Download.CookieFile,
		"logs_dir":      config.Download.LogsDir,
		"spotdl_binary": config.Download.SpotDLBinary,
		"format":        config.Download.Format,
		"item_timeout":  config.Download.ItemTimeout.String(),
		"batch_timeout": config.Download.BatchTimeout.String(),
		"plan_mode":     string(config.Download.PlanMode),
	})
	v.Set("discovery", map[string]interface{}{
		"settings_path":   config.Discovery.SettingsPath,
		"seed_file":       config.Discovery.SeedFile,
		"processed_file":  config.Discovery.ProcessedFile,
		"request_delay":   config.Discovery.RequestDelay.String(),
		"schedule":        config.Discovery.Schedule,
		"seed_discovered": config.Discovery.SeedDiscovered,
	})
	v.Set("database", map[string]interface{}{
		"path": config.Database.Path,
	})
	v.Set("notification", map[string]interface{}{
		"enabled": config.Notification.Enabled,
		"method":  config.Notification.Method,
	})
	v.Set("logging", map[string]interface{}{
		"level":        config.Logging.Level,
		"format":       config.Logging.Format,
		"output_path":  config.Logging.OutputPath,
		"max_size_mb":  config.Logging.MaxSizeMB,
		"max_backups":  config.Logging.MaxBackups,
		"max_age_days": config.Logging.MaxAgeDays,
		"compress":     config.Logging.Compress,
	})

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// LoadDiscoverySettings reads the discovery settings document (JSON or YAML,
// by extension). A missing or unreadable document is ErrConfigMissing.
// Chart labels come back lower-cased, as viper folds map keys.
func LoadDiscoverySettings(path string) (*domain.DiscoverySettings, error) {
	if path == "" {
		return nil, fmt.Errorf("%w: settings path not configured", domain.ErrConfigMissing)
	}
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrConfigMissing, err)
	}

	v := viper.New()
	v.SetConfigFile(path)
	if filepath.Ext(path) == "" {
		v.SetConfigType("json")
	}
	v.SetDefault("popularity_threshold_artist", domain.DefaultArtistPopularityThreshold)
	v.SetDefault("popularity_threshold_track", domain.DefaultTrackPopularityThreshold)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("%w: failed to parse %s: %v", domain.ErrConfigMissing, path, err)
	}

	settings := domain.DefaultDiscoverySettings()
	if err := v.Unmarshal(settings); err != nil {
		return nil, fmt.Errorf("%w: failed to decode %s: %v", domain.ErrConfigMissing, path, err)
	}
	if settings.TopChartPlaylists == nil {
		settings.TopChartPlaylists = map[string]string{}
	}

	if settings.PopularityThresholdArtist < 0 || settings.PopularityThresholdArtist > 100 ||
		settings.PopularityThresholdTrack < 0 || settings.PopularityThresholdTrack > 100 {
		return nil, fmt.Errorf("%w: popularity thresholds must be between 0 and 100", domain.ErrConfigMissing)
	}

	return settings, nil
}
