package main

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/gofrs/flock"
	"github.com/spf13/cobra"

	"fetchd/internal/downloader"
	"fetchd/internal/notifications"
	"fetchd/internal/queue"
	"fetchd/internal/worker"
)

func newRunCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run the download daemon in the foreground",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			lockPath := filepath.Join(cfg.Paths.StateDir, "fetchd.lock")
			lock := flock.New(lockPath)
			locked, err := lock.TryLock()
			if err != nil {
				return fmt.Errorf("acquire run lock: %w", err)
			}
			if !locked {
				return fmt.Errorf("another fetchd instance holds %s", lockPath)
			}
			defer func() {
				_ = lock.Unlock()
				_ = os.Remove(lockPath)
			}()

			logger, err := ctx.newLogger()
			if err != nil {
				return err
			}

			store, err := queue.Open(cfg, logger)
			if err != nil {
				return err
			}
			manager, err := queue.NewManager(cfg, store, logger)
			if err != nil {
				_ = store.Close()
				return err
			}
			manager.AddListener(notifications.NewService(cfg, logger))

			runCtx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			manager.StartBackups(runCtx)

			executor := downloader.NewYtDlp(cfg, logger)
			runner := worker.NewRunner(cfg, manager, executor, logger)
			if err := runner.Start(runCtx); err != nil {
				_ = manager.Close()
				return err
			}

			logger.Info("fetchd running", "queue_db", store.Path(), "download_dir", cfg.Paths.DownloadDir)
			<-runCtx.Done()

			logger.Info("shutting down")
			runner.Stop()
			if err := manager.Close(); err != nil {
				return fmt.Errorf("close queue: %w", err)
			}
			return nil
		},
	}
}
