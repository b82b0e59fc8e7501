// Package notifier delivers operational events to webhook channels.
// It defines the Notifier interface which allows different delivery
// mechanisms (Discord, Slack) to be used interchangeably, plus a no-op
// implementation for when notifications are disabled.
package notifier

import (
	"context"
	"time"
)

// Event is one operational notification: a crawl report, a purge
// summary, or an alert worth a human's attention.
type Event struct {
	// Title is the headline shown in the channel.
	Title string

	// Body is the main message text. Markdown-ish; each channel
	// adapter maps it to its own formatting.
	Body string

	// Fields are short label/value pairs rendered below the body.
	Fields []Field

	// At is the event timestamp. Zero means now.
	At time.Time
}

// Field is a labeled value inside an Event.
type Field struct {
	Label string
	Value string
}

// Notifier is an interface for delivering operational events.
// Implementations handle rate limiting, retries, and error logging
// internally; callers treat delivery as fire-and-forget.
type Notifier interface {
	Notify(ctx context.Context, event Event) error
}
