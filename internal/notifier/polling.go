package notifier

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"
)

// CommandHandler answers a chat command such as "/latest". An empty reply
// sends nothing.
type CommandHandler func(command string) string

type chatUpdate struct {
	UpdateID int `json:"update_id"`
	Message  *struct {
		Text string `json:"text"`
	} `json:"message"`
}

type updatesResponse struct {
	OK     bool         `json:"ok"`
	Result []chatUpdate `json:"result"`
}

const (
	longPollSeconds = 30
	pollErrorPause  = 5 * time.Second
)

// StartPolling reads operator commands from the chat and answers each one
// with handler. It blocks until ctx is cancelled.
func (t *TelegramNotifier) StartPolling(ctx context.Context, handler CommandHandler) {
	client := &http.Client{
		Timeout:   (longPollSeconds + 5) * time.Second,
		Transport: t.Client.Transport,
	}

	offset := 0
	for ctx.Err() == nil {
		updates, err := t.getUpdates(ctx, client, offset)
		if err != nil {
			if ctx.Err() != nil {
				break
			}
			log.Printf("[WARN] command polling: %v", err)
			sleepCtx(ctx, pollErrorPause)
			continue
		}
		for _, u := range updates {
			offset = u.UpdateID + 1
			t.answer(u, handler)
		}
	}
	log.Println("[INFO] command polling stopped")
}

// getUpdates long-polls for chat updates newer than offset.
func (t *TelegramNotifier) getUpdates(ctx context.Context, client *http.Client, offset int) ([]chatUpdate, error) {
	u := fmt.Sprintf("%s?offset=%d&timeout=%d", t.endpoint("getUpdates"), offset, longPollSeconds)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read updates: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("getUpdates status %d: %s", resp.StatusCode, body)
	}

	var out updatesResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("decode updates: %w", err)
	}
	return out.Result, nil
}

func (t *TelegramNotifier) answer(u chatUpdate, handler CommandHandler) {
	if u.Message == nil {
		return
	}
	cmd := strings.TrimSpace(u.Message.Text)
	if cmd == "" {
		return
	}
	log.Printf("[INFO] command %q (update %d)", cmd, u.UpdateID)

	reply := handler(cmd)
	if reply == "" {
		return
	}
	if err := t.Send(reply); err != nil {
		log.Printf("[ERROR] reply to %q: %v", cmd, err)
	}
}

func sleepCtx(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
