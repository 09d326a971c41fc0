package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// PushConfig configures the push notification channel
type PushConfig struct {
	Endpoint  string
	ServerKey string
	Timeout   time.Duration
}

// PushChannel delivers alerts through an FCM-style HTTP push gateway
type PushChannel struct {
	config PushConfig
	client *http.Client
}

// NewPushChannel creates a push channel
func NewPushChannel(config PushConfig) *PushChannel {
	if config.Timeout == 0 {
		config.Timeout = 10 * time.Second
	}
	return &PushChannel{
		config: config,
		client: &http.Client{Timeout: config.Timeout},
	}
}

func (c *PushChannel) Name() string {
	return "push"
}

type pushPayload struct {
	To           string                 `json:"to"`
	Priority     string                 `json:"priority"`
	Notification pushNotification       `json:"notification"`
	Data         map[string]interface{} `json:"data,omitempty"`
}

type pushNotification struct {
	Title string `json:"title"`
	Body  string `json:"body"`
	Sound string `json:"sound"`
}

func (c *PushChannel) Send(ctx context.Context, recipient string, msg Message) error {
	payload := pushPayload{
		To:       recipient,
		Priority: "high",
		Notification: pushNotification{
			Title: msg.Title,
			Body:  msg.Body,
			Sound: "default",
		},
		Data: msg.Data,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal push payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.Endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create push request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "key="+c.config.ServerKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("push request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("push gateway returned status %d", resp.StatusCode)
	}

	return nil
}
