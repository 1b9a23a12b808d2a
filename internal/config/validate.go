package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateQueue(); err != nil {
		return err
	}
	if err := c.validateWorker(); err != nil {
		return err
	}
	return c.validateTelegram()
}

func (c *Config) validatePaths() error {
	if strings.TrimSpace(c.Paths.StateDir) == "" {
		return errors.New("paths.state_dir must be set")
	}
	if strings.TrimSpace(c.Paths.DownloadDir) == "" {
		return errors.New("paths.download_dir must be set")
	}
	return nil
}

func (c *Config) validateQueue() error {
	if c.Queue.MaxItems <= 0 {
		return errors.New("queue.max_items must be positive")
	}
	if c.Queue.MaxTerminalItems <= 0 {
		return errors.New("queue.max_terminal_items must be positive")
	}
	if c.Queue.MaxTerminalItems > c.Queue.MaxItems {
		return errors.New("queue.max_terminal_items must not exceed queue.max_items")
	}
	if c.Queue.DefaultMaxRetries < 0 {
		return errors.New("queue.default_max_retries must be >= 0")
	}
	if c.Queue.BackupIntervalSeconds < 0 {
		return errors.New("queue.backup_interval_seconds must be >= 0 (0 disables the backup loop)")
	}
	return nil
}

func (c *Config) validateWorker() error {
	return ensurePositiveMap(map[string]int{
		"worker.poll_interval_seconds":    c.Worker.PollIntervalSeconds,
		"worker.cleanup_interval_seconds": c.Worker.CleanupIntervalSeconds,
		"worker.job_timeout_seconds":      c.Worker.JobTimeoutSeconds,
	})
}

func (c *Config) validateTelegram() error {
	if c.Telegram.BotToken == "" {
		return nil
	}
	if strings.TrimSpace(c.Telegram.APIBaseURL) == "" {
		return errors.New("telegram.api_base_url must be set when telegram.bot_token is set")
	}
	if c.Telegram.RequestTimeoutSeconds <= 0 {
		return errors.New("telegram.request_timeout_seconds must be positive")
	}
	return nil
}

func ensurePositiveMap(values map[string]int) error {
	for key, value := range values {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}
