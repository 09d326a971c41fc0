package notify

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"
)

// EmailConfig configures the SMTP email channel
type EmailConfig struct {
	Host     string
	Port     int
	From     string
	Username string
	Password string
}

// EmailChannel delivers alerts as HTML email over SMTP
type EmailChannel struct {
	config EmailConfig
	sendFn func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

// NewEmailChannel creates an email channel
func NewEmailChannel(config EmailConfig) *EmailChannel {
	return &EmailChannel{
		config: config,
		sendFn: smtp.SendMail,
	}
}

func (c *EmailChannel) Name() string {
	return "email"
}

func (c *EmailChannel) Send(ctx context.Context, recipient string, msg Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	subject := fmt.Sprintf("Smart Doorbell Alert - %s", msg.Title)
	body := c.renderHTML(msg)

	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", c.config.From)
	fmt.Fprintf(&b, "To: %s\r\n", recipient)
	fmt.Fprintf(&b, "Subject: %s\r\n", subject)
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/html; charset=\"UTF-8\"\r\n")
	b.WriteString("\r\n")
	b.WriteString(body)

	addr := fmt.Sprintf("%s:%d", c.config.Host, c.config.Port)
	auth := smtp.PlainAuth("", c.config.Username, c.config.Password, c.config.Host)

	if err := c.sendFn(addr, auth, c.config.From, []string{recipient}, []byte(b.String())); err != nil {
		return fmt.Errorf("smtp send failed: %w", err)
	}

	return nil
}

func (c *EmailChannel) renderHTML(msg Message) string {
	var photo string
	if filename, ok := msg.Data["photo_filename"].(string); ok && filename != "" {
		photo = fmt.Sprintf("<p><strong>Photo:</strong> %s</p>", filename)
	}

	return fmt.Sprintf(`<html>
<body>
	<h2>%s</h2>
	<p>%s</p>
	%s
	<p><strong>System:</strong> Smart Doorbell IoT</p>
</body>
</html>`, msg.Title, msg.Body, photo)
}
