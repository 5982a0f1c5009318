package alert

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"sandwich-guard/internal/domain"
)

const defaultTelegramAPI = "https://api.telegram.org"

// TelegramChannel sends verdicts via the Telegram Bot API.
type TelegramChannel struct {
	BotToken   string
	ChatID     string
	Client     *http.Client
	BaseURL    string
	MaxRetries int
	Backoff    time.Duration // first retry delay, doubled per attempt

	log logrus.FieldLogger
}

// NewTelegramChannel creates a Telegram channel.
func NewTelegramChannel(botToken, chatID string, log logrus.FieldLogger) *TelegramChannel {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &TelegramChannel{
		BotToken:   botToken,
		ChatID:     chatID,
		Client:     &http.Client{Timeout: 30 * time.Second},
		BaseURL:    defaultTelegramAPI,
		MaxRetries: 3,
		Backoff:    time.Second,
		log:        log.WithField("component", "telegram"),
	}
}

// Name implements Channel.
func (t *TelegramChannel) Name() string { return "telegram" }

// Deliver implements Channel.
func (t *TelegramChannel) Deliver(ctx context.Context, v domain.RiskVerdict) error {
	return t.SendWithRetry(ctx, FormatHTML(v))
}

// Send sends a message to the configured chat.
func (t *TelegramChannel) Send(ctx context.Context, text string) error {
	apiURL := fmt.Sprintf("%s/bot%s/sendMessage", strings.TrimRight(t.BaseURL, "/"), t.BotToken)
	payload := map[string]interface{}{
		"chat_id":                  t.ChatID,
		"text":                     text,
		"parse_mode":               "HTML",
		"disable_web_page_preview": true,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, apiURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.Client.Do(req)
	if err != nil {
		return fmt.Errorf("send message: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("telegram API error: status %d, body: %s", resp.StatusCode, string(respBody))
	}
	return nil
}

// SendWithRetry sends a message with exponential backoff retry.
func (t *TelegramChannel) SendWithRetry(ctx context.Context, text string) error {
	var lastErr error
	for i := 0; i <= t.MaxRetries; i++ {
		err := t.Send(ctx, text)
		if err == nil {
			return nil
		}
		lastErr = err
		if i == t.MaxRetries {
			break
		}

		backoff := t.Backoff * time.Duration(1<<uint(i))
		t.log.WithError(err).Warnf("send failed (attempt %d/%d), retrying in %v", i+1, t.MaxRetries+1, backoff)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
	}
	return fmt.Errorf("all %d attempts exhausted: %w", t.MaxRetries+1, lastErr)
}
