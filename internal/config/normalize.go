package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeQueue()
	c.normalizeWorker()
	c.normalizeTelegram()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.StateDir) == "" {
		c.Paths.StateDir = defaultStateDir
	}
	if c.Paths.StateDir, err = expandPath(c.Paths.StateDir); err != nil {
		return fmt.Errorf("paths.state_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.DownloadDir) == "" {
		c.Paths.DownloadDir = defaultDownloadDir
	}
	if c.Paths.DownloadDir, err = expandPath(c.Paths.DownloadDir); err != nil {
		return fmt.Errorf("paths.download_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeQueue() {
	if c.Queue.MaxItems <= 0 {
		c.Queue.MaxItems = defaultMaxItems
	}
	if c.Queue.MaxTerminalItems <= 0 {
		c.Queue.MaxTerminalItems = defaultMaxTerminalItems
	}
	if c.Queue.DefaultMaxRetries < 0 {
		c.Queue.DefaultMaxRetries = defaultMaxRetries
	}
	if c.Queue.CleanupAgeHours <= 0 {
		c.Queue.CleanupAgeHours = defaultCleanupAgeHours
	}
	c.Queue.BackupFile = strings.TrimSpace(c.Queue.BackupFile)
	if c.Queue.BackupFile != "" {
		if expanded, err := expandPath(c.Queue.BackupFile); err == nil {
			c.Queue.BackupFile = expanded
		}
	}
}

func (c *Config) normalizeWorker() {
	if c.Worker.PollIntervalSeconds <= 0 {
		c.Worker.PollIntervalSeconds = defaultPollIntervalSeconds
	}
	if c.Worker.CleanupIntervalSeconds <= 0 {
		c.Worker.CleanupIntervalSeconds = defaultCleanupIntervalSeconds
	}
	if c.Worker.JobTimeoutSeconds <= 0 {
		c.Worker.JobTimeoutSeconds = defaultJobTimeoutSeconds
	}
}

func (c *Config) normalizeTelegram() {
	c.Telegram.BotToken = strings.TrimSpace(c.Telegram.BotToken)
	if c.Telegram.BotToken == "" {
		if value, ok := os.LookupEnv("TELEGRAM_BOT_TOKEN"); ok {
			c.Telegram.BotToken = strings.TrimSpace(value)
		}
	}
	c.Telegram.APIBaseURL = strings.TrimSpace(c.Telegram.APIBaseURL)
	if c.Telegram.APIBaseURL == "" {
		c.Telegram.APIBaseURL = defaultTelegramAPIBaseURL
	}
	c.Telegram.APIBaseURL = strings.TrimSuffix(c.Telegram.APIBaseURL, "/")
	if c.Telegram.RequestTimeoutSeconds <= 0 {
		c.Telegram.RequestTimeoutSeconds = defaultTelegramTimeoutSeconds
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
