package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"fetchd/internal/config"
)

func TestDefaultsAreValid(t *testing.T) {
	cfg := config.Default()
	if cfg.Queue.MaxItems != 1000 {
		t.Fatalf("expected default max_items 1000, got %d", cfg.Queue.MaxItems)
	}
	if cfg.Queue.DefaultMaxRetries != 3 {
		t.Fatalf("expected default max retries 3, got %d", cfg.Queue.DefaultMaxRetries)
	}
	if cfg.Logging.Format != "console" || cfg.Logging.Level != "info" {
		t.Fatalf("unexpected logging defaults: %+v", cfg.Logging)
	}
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nonexistent.toml")
	cfg, resolved, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if exists {
		t.Fatal("expected exists=false for missing file")
	}
	if resolved == "" {
		t.Fatal("expected resolved path")
	}
	if cfg.Queue.MaxItems != 1000 {
		t.Fatalf("expected defaults applied, got max_items=%d", cfg.Queue.MaxItems)
	}
}

func TestLoadParsesOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "fetchd.toml")
	content := `
[paths]
state_dir = "` + filepath.Join(dir, "state") + `"
download_dir = "` + filepath.Join(dir, "dl") + `"
log_dir = "` + filepath.Join(dir, "logs") + `"

[queue]
max_items = 25
max_terminal_items = 10

[worker]
poll_interval_seconds = 1

[logging]
format = "json"
level = "debug"
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, _, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !exists {
		t.Fatal("expected exists=true")
	}
	if cfg.Queue.MaxItems != 25 || cfg.Queue.MaxTerminalItems != 10 {
		t.Fatalf("unexpected queue settings: %+v", cfg.Queue)
	}
	if cfg.Worker.PollIntervalSeconds != 1 {
		t.Fatalf("expected poll interval 1, got %d", cfg.Worker.PollIntervalSeconds)
	}
	if cfg.Logging.Format != "json" || cfg.Logging.Level != "debug" {
		t.Fatalf("unexpected logging settings: %+v", cfg.Logging)
	}
	if !filepath.IsAbs(cfg.Paths.StateDir) {
		t.Fatalf("expected absolute state dir, got %q", cfg.Paths.StateDir)
	}
}

func TestLoadRejectsInvalidQueueSettings(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "fetchd.toml")
	content := `
[queue]
max_items = 5
max_terminal_items = 50
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	_, _, _, err := config.Load(path)
	if err == nil {
		t.Fatal("expected validation error")
	}
	if !strings.Contains(err.Error(), "max_terminal_items") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestQueuePathsDerivedFromStateDir(t *testing.T) {
	cfg := config.Default()
	cfg.Paths.StateDir = "/tmp/fetchd-test"
	if got := cfg.QueueDBPath(); got != "/tmp/fetchd-test/queue.db" {
		t.Fatalf("unexpected db path %q", got)
	}
	if got := cfg.QueueBackupPath(); got != "/tmp/fetchd-test/queue.backup.db" {
		t.Fatalf("unexpected backup path %q", got)
	}
	cfg.Queue.BackupFile = "/elsewhere/backup.db"
	if got := cfg.QueueBackupPath(); got != "/elsewhere/backup.db" {
		t.Fatalf("expected backup override, got %q", got)
	}
}

func TestBinaryOverrides(t *testing.T) {
	cfg := config.Default()
	if cfg.YtDlpBinary() != "yt-dlp" {
		t.Fatalf("expected yt-dlp default, got %q", cfg.YtDlpBinary())
	}
	if cfg.FFmpegBinary() != "" {
		t.Fatalf("expected no ffmpeg override by default, got %q", cfg.FFmpegBinary())
	}
	cfg.Tools.YtDlp = "/opt/bin/yt-dlp"
	if cfg.YtDlpBinary() != "/opt/bin/yt-dlp" {
		t.Fatalf("expected override, got %q", cfg.YtDlpBinary())
	}
	cfg.Tools.FFmpeg = "/opt/ffmpeg/bin"
	if cfg.FFmpegBinary() != "/opt/ffmpeg/bin" {
		t.Fatalf("expected ffmpeg override, got %q", cfg.FFmpegBinary())
	}
}
