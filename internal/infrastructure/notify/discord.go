package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"
)

const timestampLayout = "2006-01-02 15:04:05"

// DiscordNotifier posts operator messages to a Discord webhook. Failures are
// logged and swallowed.
type DiscordNotifier struct {
	webhookURL string
	client     *http.Client
	logger     *zap.Logger
	timeNow    func() time.Time
}

func NewDiscordNotifier(webhookURL string, logger *zap.Logger) *DiscordNotifier {
	return &DiscordNotifier{
		webhookURL: webhookURL,
		client:     &http.Client{Timeout: 10 * time.Second},
		logger:     logger,
		timeNow:    time.Now,
	}
}

func (d *DiscordNotifier) Notify(ctx context.Context, text string) {
	content := fmt.Sprintf("[%s] %s", d.timeNow().Format(timestampLayout), text)
	if err := d.send(ctx, content); err != nil {
		d.logger.Warn("Discord notification failed", zap.Error(err))
		return
	}
	d.logger.Debug("Discord notification sent", zap.String("content", content))
}

func (d *DiscordNotifier) send(ctx context.Context, content string) error {
	body, err := json.Marshal(map[string]string{"content": content})
	if err != nil {
		return fmt.Errorf("discord: marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.webhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("discord: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.client.Do(req)
	if err != nil {
		return fmt.Errorf("discord: send request: %w", err)
	}
	defer resp.Body.Close()

	// 204 No Content on success
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("discord: unexpected status %d: %s", resp.StatusCode, string(respBody))
	}
	return nil
}

// LogNotifier only writes messages to the log. Used when no webhook is set.
type LogNotifier struct {
	logger *zap.Logger
}

func NewLogNotifier(logger *zap.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

func (l *LogNotifier) Notify(_ context.Context, text string) {
	l.logger.Info("Notification", zap.String("text", text))
}
