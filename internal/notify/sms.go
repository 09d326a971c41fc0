package notify

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// SMSConfig configures the SMS channel
type SMSConfig struct {
	GatewayURL string
	AccountSID string
	AuthToken  string
	From       string
	Timeout    time.Duration
}

// SMSChannel delivers alerts as text messages through a Twilio-style
// REST gateway.
type SMSChannel struct {
	config SMSConfig
	client *http.Client
}

// NewSMSChannel creates an SMS channel
func NewSMSChannel(config SMSConfig) *SMSChannel {
	if config.Timeout == 0 {
		config.Timeout = 10 * time.Second
	}
	return &SMSChannel{
		config: config,
		client: &http.Client{Timeout: config.Timeout},
	}
}

func (c *SMSChannel) Name() string {
	return "sms"
}

func (c *SMSChannel) Send(ctx context.Context, recipient string, msg Message) error {
	text := fmt.Sprintf("%s: %s", msg.Title, msg.Body)

	form := url.Values{}
	form.Set("To", recipient)
	form.Set("From", c.config.From)
	form.Set("Body", text)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.GatewayURL, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("failed to create sms request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.SetBasicAuth(c.config.AccountSID, c.config.AuthToken)

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("sms request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("sms gateway returned status %d", resp.StatusCode)
	}

	return nil
}
