package config

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config struct for environment variables.
type Config struct {
	BotToken string `envconfig:"BOT_TOKEN" required:"true"`

	DownloadPath           string        `envconfig:"DOWNLOAD_PATH" default:"./downloads"`
	MaxConcurrentDownloads int           `envconfig:"MAX_CONCURRENT_DOWNLOADS" default:"5"`
	CleanupDelay           time.Duration `envconfig:"CLEANUP_DELAY" default:"24h"`
	QueuePollInterval      time.Duration `envconfig:"QUEUE_POLL_INTERVAL" default:"1s"`

	DiscordWebhookURL string `envconfig:"DISCORD_WEBHOOK_URL"`

	DBPath   string  `envconfig:"DB_PATH" default:"mediagrab.db"`
	LogLevel string  `envconfig:"LOG_LEVEL" default:"INFO"`
	AdminIDs []int64 `envconfig:"ADMIN_IDS"`

	TikTok struct {
		APIBaseURL string `split_words:"true" default:"https://www.tikwm.com"`
		CookieFile string `split_words:"true"`
	}

	Instagram struct {
		CookieFile string `split_words:"true"`
	}

	Ytdlp struct {
		Binary string `split_words:"true" default:"yt-dlp"`
		Format string `split_words:"true" default:"best[height<=720]"`
	}

	Telemetry struct {
		Enabled     bool   `split_words:"true" default:"true"`
		ServiceName string `split_words:"true" default:"mediagrab"`
	}

	Web struct {
		BindAddress     string        `split_words:"true" default:"0.0.0.0:8080"`
		ReadTimeout     time.Duration `split_words:"true" default:"30s"`
		WriteTimeout    time.Duration `split_words:"true" default:"30s"`
		IdleTimeout     time.Duration `split_words:"true" default:"5s"`
		ShutdownTimeout time.Duration `split_words:"true" default:"30s"`
	}
}

// Load reads environment variables and populates the Config struct.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("error processing env: %w", err)
	}

	if cfg.MaxConcurrentDownloads < 1 {
		return nil, fmt.Errorf("MAX_CONCURRENT_DOWNLOADS must be at least 1, got %d", cfg.MaxConcurrentDownloads)
	}

	return &cfg, nil
}

func (c *Config) SlogLevel() slog.Level {
	switch strings.ToUpper(c.LogLevel) {
	case "DEBUG":
		return slog.LevelDebug
	case "INFO":
		return slog.LevelInfo
	case "WARN":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// IsAdmin reports whether the given chat user is listed as an administrator.
func (c *Config) IsAdmin(userID int64) bool {
	for _, id := range c.AdminIDs {
		if id == userID {
			return true
		}
	}

	return false
}
