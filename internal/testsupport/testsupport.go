// Package testsupport provides shared helpers for package tests.
package testsupport

import (
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"fetchd/internal/config"
	"fetchd/internal/queue"
)

// NewConfig returns a validated configuration rooted in a per-test temp
// directory.
func NewConfig(t *testing.T) *config.Config {
	t.Helper()

	base := t.TempDir()
	defaults := config.Default()
	cfg := &defaults
	cfg.Paths.StateDir = filepath.Join(base, "state")
	cfg.Paths.DownloadDir = filepath.Join(base, "downloads")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	cfg.Queue.BackupIntervalSeconds = 0

	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("ensure directories: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("validate test config: %v", err)
	}
	return cfg
}

// MustOpenStore opens the queue store for a test config and closes it when
// the test finishes.
func MustOpenStore(t *testing.T, cfg *config.Config) *queue.Store {
	t.Helper()

	store, err := queue.Open(cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err != nil {
		t.Fatalf("open queue store: %v", err)
	}
	t.Cleanup(func() {
		_ = store.Close()
	})
	return store
}

// NewManager builds a queue manager over a fresh store for a test config.
func NewManager(t *testing.T, cfg *config.Config) *queue.Manager {
	t.Helper()

	store := MustOpenStore(t, cfg)
	manager, err := queue.NewManager(cfg, store, slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err != nil {
		t.Fatalf("create queue manager: %v", err)
	}
	return manager
}
