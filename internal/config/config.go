// Package config loads episodic's configuration from defaults, a YAML
// file, a .env file and EPISODIC_ environment variables.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/episodic/episodic/internal/notification"
)

// Version is injected at build time via ldflags.
var Version = "dev"

// Config holds all application configuration.
type Config struct {
	Server       ServerConfig        `mapstructure:"server"`
	Downloader   DownloaderConfig    `mapstructure:"downloader"`
	Paths        PathsConfig         `mapstructure:"paths"`
	Scheduler    SchedulerConfig     `mapstructure:"scheduler"`
	Feed         FeedConfig          `mapstructure:"feed"`
	Notification notification.Config `mapstructure:"notification"`
	Logging      LoggingConfig       `mapstructure:"logging"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
	// PublicURL is the externally reachable base used in playback links.
	PublicURL string `mapstructure:"public_url"`
}

// DownloaderConfig holds torrent client configuration.
type DownloaderConfig struct {
	Type        string        `mapstructure:"type"` // "qbittorrent" or "mock"
	Host        string        `mapstructure:"host"`
	Username    string        `mapstructure:"username"`
	Password    string        `mapstructure:"password"`
	Timeout     time.Duration `mapstructure:"timeout"`
	InsecureTLS bool          `mapstructure:"insecure_tls"`
	// DownloadPath is the root under which per-series folders are created.
	DownloadPath string `mapstructure:"download_path"`
}

// PathsConfig holds on-disk locations.
type PathsConfig struct {
	Data string `mapstructure:"data"`
}

// TasksFile returns the path of the YAML task file.
func (p PathsConfig) TasksFile() string {
	return filepath.Join(p.Data, "tasks.yaml")
}

// Database returns the path of the SQLite database.
func (p PathsConfig) Database() string {
	return filepath.Join(p.Data, "episodic.db")
}

// SchedulerConfig holds task polling configuration.
type SchedulerConfig struct {
	PollInterval    time.Duration `mapstructure:"poll_interval"`
	PollConcurrency int           `mapstructure:"poll_concurrency"`
}

// FeedConfig holds release feed configuration.
type FeedConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	URL      string        `mapstructure:"url"`
	Interval time.Duration `mapstructure:"interval"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	Path       string `mapstructure:"path"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
	Compress   bool   `mapstructure:"compress"`
}

// Load reads configuration from file and environment variables.
// Priority: environment variables > .env file > config file > defaults
func Load(configPath string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}

	v := viper.New()
	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		v.AddConfigPath("$HOME/.episodic")
	}

	v.SetEnvPrefix("EPISODIC")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
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

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.public_url", "http://127.0.0.1:8080")

	v.SetDefault("downloader.type", "qbittorrent")
	v.SetDefault("downloader.host", "localhost:8080")
	v.SetDefault("downloader.username", "admin")
	v.SetDefault("downloader.password", "adminadmin")
	v.SetDefault("downloader.timeout", 30*time.Second)
	v.SetDefault("downloader.insecure_tls", false)
	v.SetDefault("downloader.download_path", "/downloads")

	v.SetDefault("paths.data", "./data")

	v.SetDefault("scheduler.poll_interval", 60*time.Second)
	v.SetDefault("scheduler.poll_concurrency", 4)

	v.SetDefault("feed.enabled", true)
	v.SetDefault("feed.url", "https://acgrip.art")
	v.SetDefault("feed.interval", 600*time.Second)

	v.SetDefault("notification.type", "")
	v.SetDefault("notification.telegram.bot_token", "")
	v.SetDefault("notification.telegram.api_base", "")
	v.SetDefault("notification.telegram.topic_id", 0)
	v.SetDefault("notification.telegram.silent", false)
	v.SetDefault("notification.telegram.messages_per_second", 20.0)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
	v.SetDefault("logging.path", "")
	v.SetDefault("logging.max_size_mb", 10)
	v.SetDefault("logging.max_backups", 5)
	v.SetDefault("logging.max_age_days", 30)
	v.SetDefault("logging.compress", true)
}

// Validate checks values that would otherwise fail late at runtime.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server.port %d", c.Server.Port)
	}
	if _, err := url.ParseRequestURI(c.Server.PublicURL); err != nil {
		return fmt.Errorf("invalid server.public_url %q: %w", c.Server.PublicURL, err)
	}
	switch c.Downloader.Type {
	case "qbittorrent", "mock":
	default:
		return fmt.Errorf("unknown downloader.type %q", c.Downloader.Type)
	}
	if c.Downloader.DownloadPath == "" {
		return errors.New("downloader.download_path must be set")
	}
	if c.Paths.Data == "" {
		return errors.New("paths.data must be set")
	}
	if c.Scheduler.PollInterval <= 0 {
		return fmt.Errorf("invalid scheduler.poll_interval %s", c.Scheduler.PollInterval)
	}
	if c.Feed.Enabled && c.Feed.Interval <= 0 {
		return fmt.Errorf("invalid feed.interval %s", c.Feed.Interval)
	}
	return nil
}

// Address returns the server address string.
func (c *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
