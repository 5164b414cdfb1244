// Package notifier delivers snapshot summaries, daily digests and command
// replies to an operator chat.
package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"time"
)

// DefaultAPIBase is the Telegram Bot API root.
const DefaultAPIBase = "https://api.telegram.org"

// Notifier is where the poller and the digest job report to.
type Notifier interface {
	Send(text string) error
	SendWithRetry(ctx context.Context, text string, maxRetries int) error
}

// NoopNotifier is wired in when no chat is configured.
type NoopNotifier struct{}

func (NoopNotifier) Send(string) error                                 { return nil }
func (NoopNotifier) SendWithRetry(context.Context, string, int) error { return nil }

// TelegramNotifier posts HTML-formatted messages to one chat.
type TelegramNotifier struct {
	BotToken string
	ChatID   string
	APIBase  string
	Client   *http.Client
	// Backoff is the first retry delay; it doubles on each later attempt.
	Backoff time.Duration
}

type sendMessageRequest struct {
	ChatID    string `json:"chat_id"`
	Text      string `json:"text"`
	ParseMode string `json:"parse_mode"`
}

// NewTelegramNotifier routes through proxyURL when it is set, the same
// proxy the feed fetcher uses.
func NewTelegramNotifier(botToken, chatID, proxyURL string) *TelegramNotifier {
	transport := &http.Transport{}
	if proxyURL != "" {
		if u, err := url.Parse(proxyURL); err == nil {
			transport.Proxy = http.ProxyURL(u)
		} else {
			log.Printf("[WARN] ignoring invalid proxy %q: %v", proxyURL, err)
		}
	}
	return &TelegramNotifier{
		BotToken: botToken,
		ChatID:   chatID,
		APIBase:  DefaultAPIBase,
		Client:   &http.Client{Timeout: 30 * time.Second, Transport: transport},
		Backoff:  time.Second,
	}
}

func (t *TelegramNotifier) endpoint(method string) string {
	return fmt.Sprintf("%s/bot%s/%s", t.APIBase, t.BotToken, method)
}

// Send posts text once. Callers escape any feed-derived content.
func (t *TelegramNotifier) Send(text string) error {
	body, err := json.Marshal(sendMessageRequest{ChatID: t.ChatID, Text: text, ParseMode: "HTML"})
	if err != nil {
		return fmt.Errorf("encode message: %w", err)
	}
	resp, err := t.Client.Post(t.endpoint("sendMessage"), "application/json", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("sendMessage: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("sendMessage status %d: %s", resp.StatusCode, detail)
	}
	return nil
}

// SendWithRetry makes up to maxRetries+1 attempts. It gives up early when ctx
// is cancelled during a backoff.
func (t *TelegramNotifier) SendWithRetry(ctx context.Context, text string, maxRetries int) error {
	var err error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if err = t.Send(text); err == nil {
			return nil
		}
		if attempt == maxRetries {
			break
		}
		wait := t.Backoff << uint(attempt)
		log.Printf("[WARN] notify attempt %d/%d failed: %v (next in %v)", attempt+1, maxRetries+1, err, wait)
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
	return fmt.Errorf("all %d retries exhausted: %w", maxRetries+1, err)
}
