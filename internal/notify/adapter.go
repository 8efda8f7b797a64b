// Package notify delivers reconciliation events to chat platforms and local
// notification commands, and runs the scheduled refresh sweep.
package notify

import "context"

// Adapter is the interface platform sinks implement. Adapters are send-only:
// nothing is ever read back from a platform.
type Adapter interface {
	// Connect establishes and verifies the platform connection.
	Connect(ctx context.Context) error

	// Send delivers a message to the platform's configured channel.
	Send(ctx context.Context, msg Message) error

	// Close shuts down the adapter.
	Close() error
}

// Message is one outbound notification.
type Message struct {
	Text   string           // plain text; fallback when events are attached
	Events []FormattedEvent // structured event attachments
}

// FormattedEvent is a ledger event formatted for display.
type FormattedEvent struct {
	Title    string  // headline (e.g. "Rack RACK-0141 pushed to Arena")
	Body     string  // detail text
	Severity string  // "info", "warning", "error", "success"
	Color    string  // sidebar color hint (e.g. "#36a64f" for success)
	Fields   []Field // key-value metadata pairs
}

// Field is a key-value pair displayed in an event attachment.
type Field struct {
	Name  string
	Value string
	Short bool // hint: render side-by-side with another field
}
