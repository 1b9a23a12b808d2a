// Package notifications delivers queue lifecycle updates to requesters
// through the Telegram Bot API.
package notifications

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"fetchd/internal/config"
	"fetchd/internal/logging"
	"fetchd/internal/queue"
)

// Service implements queue.Listener by sending one Telegram message per
// lifecycle event to the requester's chat.
type Service struct {
	baseURL string
	token   string
	client  *http.Client
	logger  *slog.Logger
}

// NewService builds a notification listener from configuration. Without a
// bot token it returns a no-op listener so the queue runs silently.
func NewService(cfg *config.Config, logger *slog.Logger) queue.Listener {
	if strings.TrimSpace(cfg.Telegram.BotToken) == "" {
		return noopListener{}
	}
	timeout := time.Duration(cfg.Telegram.RequestTimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Service{
		baseURL: strings.TrimRight(cfg.Telegram.APIBaseURL, "/"),
		token:   cfg.Telegram.BotToken,
		client:  &http.Client{Timeout: timeout},
		logger:  logging.WithComponent(logger, "notifications"),
	}
}

func (s *Service) ItemAdded(ctx context.Context, item *queue.Item) error {
	return s.send(ctx, item, fmt.Sprintf("Queued %s download: %s", item.Kind, item.SourceURL))
}

func (s *Service) ItemStarted(ctx context.Context, item *queue.Item) error {
	return s.send(ctx, item, fmt.Sprintf("Downloading: %s", item.SourceURL))
}

func (s *Service) ItemCompleted(ctx context.Context, item *queue.Item) error {
	return s.send(ctx, item, fmt.Sprintf("Finished: %s", item.SourceURL))
}

func (s *Service) ItemFailed(ctx context.Context, item *queue.Item) error {
	message := fmt.Sprintf("Failed: %s", item.SourceURL)
	if item.ErrorMessage != "" {
		message += "\nReason: " + item.ErrorMessage
	}
	if item.CanRetry() {
		message += fmt.Sprintf("\nRetrying (%d/%d attempts used)", item.RetryCount, item.MaxRetries)
	}
	return s.send(ctx, item, message)
}

type sendMessageRequest struct {
	ChatID int64  `json:"chat_id"`
	Text   string `json:"text"`
}

type apiResponse struct {
	OK          bool   `json:"ok"`
	Description string `json:"description"`
}

func (s *Service) send(ctx context.Context, item *queue.Item, text string) error {
	payload, err := json.Marshal(sendMessageRequest{ChatID: item.RequesterID, Text: text})
	if err != nil {
		return fmt.Errorf("marshal telegram payload: %w", err)
	}

	url := fmt.Sprintf("%s/bot%s/sendMessage", s.baseURL, s.token)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build telegram request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("send telegram message: %w", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	var parsed apiResponse
	if err := json.Unmarshal(body, &parsed); err != nil || !parsed.OK {
		if parsed.Description != "" {
			return fmt.Errorf("telegram api error: %s", parsed.Description)
		}
		return fmt.Errorf("telegram api returned status %d", resp.StatusCode)
	}

	s.logger.Debug("notification sent", "item", item.ID, "chat", item.RequesterID)
	return nil
}

// noopListener satisfies queue.Listener when notifications are disabled.
type noopListener struct{}

func (noopListener) ItemAdded(context.Context, *queue.Item) error     { return nil }
func (noopListener) ItemStarted(context.Context, *queue.Item) error   { return nil }
func (noopListener) ItemCompleted(context.Context, *queue.Item) error { return nil }
func (noopListener) ItemFailed(context.Context, *queue.Item) error    { return nil }
