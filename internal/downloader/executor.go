package downloader

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"fetchd/internal/config"
	"fetchd/internal/logging"
	"fetchd/internal/queue"
)

// ProgressFunc receives completion percentage updates during a download.
type ProgressFunc func(percent float64)

// Result describes a finished download.
type Result struct {
	// DestDir is the directory holding the downloaded files.
	DestDir string
}

// Executor runs download jobs. The production implementation shells out to
// yt-dlp; tests substitute a fake.
type Executor interface {
	Execute(ctx context.Context, item *queue.Item, progress ProgressFunc) (*Result, error)
	ListFormats(ctx context.Context, url string) ([]Format, error)
}

// YtDlp executes downloads through the yt-dlp command line tool.
type YtDlp struct {
	binary      string
	ffmpeg      string
	downloadDir string
	logger      *slog.Logger
}

// NewYtDlp builds an executor from the configured tool paths.
func NewYtDlp(cfg *config.Config, logger *slog.Logger) *YtDlp {
	return &YtDlp{
		binary:      cfg.YtDlpBinary(),
		ffmpeg:      cfg.FFmpegBinary(),
		downloadDir: cfg.Paths.DownloadDir,
		logger:      logging.WithComponent(logger, "downloader"),
	}
}

// Execute runs yt-dlp for the item, streaming progress as the tool reports
// it. Downloads land in a per-item directory so concurrent history never
// collides on file names.
func (y *YtDlp) Execute(ctx context.Context, item *queue.Item, progress ProgressFunc) (*Result, error) {
	destDir := filepath.Join(y.downloadDir, item.ID)
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return nil, fmt.Errorf("create download directory: %w", err)
	}

	args, err := commandArgs(item, destDir, y.ffmpeg)
	if err != nil {
		return nil, err
	}

	cmd := exec.CommandContext(ctx, y.binary, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("attach stdout pipe: %w", err)
	}

	y.logger.Info("starting download",
		"item", item.ID,
		"kind", item.Kind,
		"url", item.SourceURL,
	)

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start %s: %w", y.binary, err)
	}

	scanner := bufio.NewScanner(stdout)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	lastReported := -1
	for scanner.Scan() {
		percent, ok := parseProgress(scanner.Text())
		if !ok || progress == nil {
			continue
		}
		// Throttle to whole-percent steps to avoid hammering the queue store.
		if step := int(percent); step > lastReported {
			lastReported = step
			progress(percent)
		}
	}

	if err := cmd.Wait(); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%s failed: %w: %s", y.binary, err, tailOf(stderr.String()))
	}

	y.logger.Info("download finished", "item", item.ID, "dest", destDir)
	return &Result{DestDir: destDir}, nil
}

// ListFormats queries yt-dlp for the renditions available at a URL.
func (y *YtDlp) ListFormats(ctx context.Context, url string) ([]Format, error) {
	cmd := exec.CommandContext(ctx, y.binary, "--list-formats", "--no-warnings", url)
	output, err := cmd.Output()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return nil, fmt.Errorf("list formats: %w: %s", err, tailOf(string(exitErr.Stderr)))
		}
		return nil, fmt.Errorf("list formats: %w", err)
	}

	formats := parseFormats(string(output))
	if len(formats) == 0 {
		return nil, fmt.Errorf("no formats reported for %s", url)
	}
	return formats, nil
}

// tailOf keeps the last few lines of tool output for error messages.
func tailOf(output string) string {
	lines := strings.Split(strings.TrimSpace(output), "\n")
	if len(lines) > 3 {
		lines = lines[len(lines)-3:]
	}
	return strings.Join(lines, " | ")
}
