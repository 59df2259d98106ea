package config

import (
	"log/slog"
	"testing"
	"time"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("BOT_TOKEN", "123:abc")
}

func TestLoad_Defaults(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.DownloadPath != "./downloads" {
		t.Errorf("DownloadPath = %q", cfg.DownloadPath)
	}

	if cfg.MaxConcurrentDownloads != 5 {
		t.Errorf("MaxConcurrentDownloads = %d", cfg.MaxConcurrentDownloads)
	}

	if cfg.CleanupDelay != 24*time.Hour {
		t.Errorf("CleanupDelay = %v", cfg.CleanupDelay)
	}

	if cfg.Ytdlp.Format != "best[height<=720]" {
		t.Errorf("Ytdlp.Format = %q", cfg.Ytdlp.Format)
	}

	if !cfg.Telemetry.Enabled {
		t.Error("telemetry should default to enabled")
	}
}

func TestLoad_MissingToken(t *testing.T) {
	t.Setenv("BOT_TOKEN", "")

	if _, err := Load(); err == nil {
		t.Fatal("expected error without BOT_TOKEN")
	}
}

func TestLoad_RejectsZeroConcurrency(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("MAX_CONCURRENT_DOWNLOADS", "0")

	if _, err := Load(); err == nil {
		t.Fatal("expected error for zero concurrency")
	}
}

func TestLoad_AdminIDs(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("ADMIN_IDS", "1,42")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if !cfg.IsAdmin(42) || cfg.IsAdmin(7) {
		t.Errorf("IsAdmin wrong for %v", cfg.AdminIDs)
	}
}

func TestSlogLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"DEBUG", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"WARN", slog.LevelWarn},
		{"ERROR", slog.LevelError},
		{"bogus", slog.LevelInfo},
	}

	for _, tt := range tests {
		cfg := &Config{LogLevel: tt.in}
		if got := cfg.SlogLevel(); got != tt.want {
			t.Errorf("SlogLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
