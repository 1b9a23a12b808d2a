package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"fetchd/internal/config"
	"fetchd/internal/downloader"
	"fetchd/internal/logging"
	"fetchd/internal/queue"
)

// Runner drives the queue: it polls for the next pending item, runs it
// through the executor, and reports progress and terminal state back to the
// manager. One item downloads at a time.
type Runner struct {
	manager  *queue.Manager
	executor downloader.Executor
	cfg      *config.Config
	logger   *slog.Logger

	cancel context.CancelFunc
	wg     sync.WaitGroup
	mu     sync.Mutex
}

// NewRunner wires a runner over the given manager and executor.
func NewRunner(cfg *config.Config, manager *queue.Manager, executor downloader.Executor, logger *slog.Logger) *Runner {
	return &Runner{
		manager:  manager,
		executor: executor,
		cfg:      cfg,
		logger:   logging.WithComponent(logger, "worker"),
	}
}

// Start launches the poll and cleanup loops. Calling Start on a running
// runner is an error.
func (r *Runner) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cancel != nil {
		return errors.New("runner already started")
	}

	runCtx, cancel := context.WithCancel(ctx)
	r.cancel = cancel

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		r.pollLoop(runCtx)
	}()

	if interval := time.Duration(r.cfg.Worker.CleanupIntervalSeconds) * time.Second; interval > 0 {
		r.wg.Add(1)
		go func() {
			defer r.wg.Done()
			r.cleanupLoop(runCtx, interval)
		}()
	}

	r.logger.Info("worker started",
		"poll_interval_seconds", r.cfg.Worker.PollIntervalSeconds,
		"job_timeout_seconds", r.cfg.Worker.JobTimeoutSeconds,
	)
	return nil
}

// Stop cancels in-flight work and waits for the loops to exit.
func (r *Runner) Stop() {
	r.mu.Lock()
	cancel := r.cancel
	r.cancel = nil
	r.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	r.wg.Wait()
	r.logger.Info("worker stopped")
}

func (r *Runner) pollLoop(ctx context.Context) {
	interval := time.Duration(r.cfg.Worker.PollIntervalSeconds) * time.Second
	if interval <= 0 {
		interval = 5 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		r.runOnce(ctx)
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (r *Runner) cleanupLoop(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if removed, err := r.manager.CleanupOldItems(ctx); err != nil {
				r.logger.Warn("cleanup failed", "error", err)
			} else if removed > 0 {
				r.logger.Info("cleanup removed old items", "count", removed)
			}
		}
	}
}

// runOnce claims and executes at most one item.
func (r *Runner) runOnce(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}

	item, err := r.manager.NextItem(ctx)
	if err != nil {
		r.logger.Error("claim next item", "error", err)
		return
	}
	if item == nil {
		return
	}

	if err := r.execute(ctx, item); err != nil {
		r.fail(ctx, item, err)
		return
	}

	if err := r.manager.UpdateStatus(ctx, item.ID, queue.StatusCompleted); err != nil {
		r.logger.Error("mark item completed", "item", item.ID, "error", err)
	}
}

func (r *Runner) execute(ctx context.Context, item *queue.Item) error {
	jobCtx := ctx
	if timeout := time.Duration(r.cfg.Worker.JobTimeoutSeconds) * time.Second; timeout > 0 {
		var cancel context.CancelFunc
		jobCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	_, err := r.executor.Execute(jobCtx, item, func(percent float64) {
		if updateErr := r.manager.UpdateStatus(ctx, item.ID, queue.StatusDownloading, queue.WithProgress(percent)); updateErr != nil {
			r.logger.Warn("report progress", "item", item.ID, "error", updateErr)
		}
	})
	if err != nil && jobCtx.Err() == context.DeadlineExceeded {
		return fmt.Errorf("download timed out after %ds", r.cfg.Worker.JobTimeoutSeconds)
	}
	return err
}

// fail records the failure and requeues the item while its retry budget
// lasts. Shutdown cancellation leaves the item for crash recovery instead of
// burning a retry.
func (r *Runner) fail(ctx context.Context, item *queue.Item, cause error) {
	if errors.Is(cause, context.Canceled) && ctx.Err() != nil {
		r.logger.Info("download interrupted by shutdown", "item", item.ID)
		return
	}

	r.logger.Error("download failed", "item", item.ID, "error", cause)
	if err := r.manager.UpdateStatus(ctx, item.ID, queue.StatusFailed, queue.WithErrorDetail(cause.Error())); err != nil {
		r.logger.Error("mark item failed", "item", item.ID, "error", err)
		return
	}

	failed := r.manager.Find(item.ID)
	if failed == nil || !failed.CanRetry() {
		return
	}
	if err := r.manager.Retry(ctx, item.ID); err != nil {
		r.logger.Warn("requeue for retry", "item", item.ID, "error", err)
	}
}
