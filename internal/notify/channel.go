package notify

import "context"

// Message is a rendered alert ready for delivery
type Message struct {
	Title string
	Body  string
	Type  string
	Data  map[string]interface{}
}

// Channel delivers alerts over a single transport
type Channel interface {
	// Name returns the channel identifier stored in the delivery log
	Name() string

	// Send delivers the message to the recipient
	Send(ctx context.Context, recipient string, msg Message) error
}
