package main

import (
	"io"
	"log/slog"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"fetchd/internal/config"
	"fetchd/internal/logging"
	"fetchd/internal/queue"
)

type commandContext struct {
	configFlag *string

	configOnce sync.Once
	config     *config.Config
	configErr  error
}

func newCommandContext(configFlag *string) *commandContext {
	return &commandContext{configFlag: configFlag}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, _, _, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

// withManager opens the queue for a one-shot command and closes it when the
// callback returns. Queue commands operate on the database directly; the run
// command's file lock keeps a live daemon and a mutating CLI apart.
func (c *commandContext) withManager(fn func(*queue.Manager) error) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	store, err := queue.Open(cfg, logger)
	if err != nil {
		return err
	}
	manager, err := queue.NewManager(cfg, store, logger)
	if err != nil {
		_ = store.Close()
		return err
	}
	defer func() {
		_ = manager.Close()
	}()
	return fn(manager)
}

// withStore opens the queue database for read-only commands without the
// Manager's recovery pass, so inspecting the queue never rewrites state a
// running daemon owns.
func (c *commandContext) withStore(fn func(*queue.Store) error) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}

	store, err := queue.Open(cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err != nil {
		return err
	}
	defer func() {
		_ = store.Close()
	}()
	return fn(store)
}

func (c *commandContext) newLogger() (*slog.Logger, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	return logging.NewFromConfig(cfg)
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}
