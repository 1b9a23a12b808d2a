package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	StateDir    string `toml:"state_dir"`
	DownloadDir string `toml:"download_dir"`
	LogDir      string `toml:"log_dir"`
}

// Queue contains limits and retention settings for the download queue.
type Queue struct {
	MaxItems              int    `toml:"max_items"`
	MaxTerminalItems      int    `toml:"max_terminal_items"`
	DefaultMaxRetries     int    `toml:"default_max_retries"`
	CleanupAgeHours       int    `toml:"cleanup_age_hours"`
	BackupIntervalSeconds int    `toml:"backup_interval_seconds"`
	BackupFile            string `toml:"backup_file"`
}

// Worker contains timing configuration for the download worker loop.
type Worker struct {
	PollIntervalSeconds    int `toml:"poll_interval_seconds"`
	CleanupIntervalSeconds int `toml:"cleanup_interval_seconds"`
	JobTimeoutSeconds      int `toml:"job_timeout_seconds"`
}

// Telegram contains configuration for chat notifications via the Bot API.
type Telegram struct {
	BotToken              string `toml:"bot_token"`
	APIBaseURL            string `toml:"api_base_url"`
	RequestTimeoutSeconds int    `toml:"request_timeout_seconds"`
}

// Tools contains the external binaries the executor shells out to.
type Tools struct {
	YtDlp  string `toml:"yt_dlp"`
	FFmpeg string `toml:"ffmpeg"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for fetchd.
//
// Configuration sections by subsystem:
//   - Paths: state, download, and log directories
//   - Queue: capacity, retention, retry, and backup settings
//   - Worker: poll/cleanup cadence and per-job timeout
//   - Telegram: chat notification credentials
//   - Tools: external binary overrides
//   - Logging: log format and level
type Config struct {
	Paths    Paths    `toml:"paths"`
	Queue    Queue    `toml:"queue"`
	Worker   Worker   `toml:"worker"`
	Telegram Telegram `toml:"telegram"`
	Tools    Tools    `toml:"tools"`
	Logging  Logging  `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/fetchd/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("fetchd.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates required directories for daemon operation.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.StateDir, c.Paths.DownloadDir, c.Paths.LogDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// QueueDBPath returns the location of the primary queue database.
func (c *Config) QueueDBPath() string {
	return filepath.Join(c.Paths.StateDir, "queue.db")
}

// QueueBackupPath returns the location of the queue database backup copy.
func (c *Config) QueueBackupPath() string {
	if strings.TrimSpace(c.Queue.BackupFile) != "" {
		return c.Queue.BackupFile
	}
	return filepath.Join(c.Paths.StateDir, "queue.backup.db")
}

// YtDlpBinary returns the yt-dlp executable used for downloads.
func (c *Config) YtDlpBinary() string {
	if strings.TrimSpace(c.Tools.YtDlp) != "" {
		return c.Tools.YtDlp
	}
	return "yt-dlp"
}

// FFmpegBinary returns the configured ffmpeg location handed to yt-dlp, or
// empty when yt-dlp should find ffmpeg on its own.
func (c *Config) FFmpegBinary() string {
	return strings.TrimSpace(c.Tools.FFmpeg)
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
