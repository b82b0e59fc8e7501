// Package notify dispatches operational events across the configured
// notification channels. It owns fan-out, per-channel circuit breaking
// and worker-pool limits; the channels themselves handle delivery,
// rate limiting and retries.
package notify

import (
	"context"

	"postpilot/internal/infra/notifier"
)

// Channel represents one notification delivery channel.
//
// Thread safety: all methods must be safe for concurrent use.
// Implementations must respect context cancellation and apply their
// own rate limiting and retry policy.
type Channel interface {
	// Name returns the channel identifier used in logs and metrics.
	Name() string

	// IsEnabled returns true if this channel is enabled via configuration.
	// Disabled channels are skipped during dispatch.
	IsEnabled() bool

	// Send delivers one event to this channel. It returns a non-nil
	// error only after the channel's own retries are exhausted.
	Send(ctx context.Context, event notifier.Event) error
}

// notifierChannel adapts an infra notifier into a Channel.
type notifierChannel struct {
	name    string
	enabled bool
	n       notifier.Notifier
}

// NewChannel wraps a notifier as a named channel.
func NewChannel(name string, enabled bool, n notifier.Notifier) Channel {
	return &notifierChannel{name: name, enabled: enabled, n: n}
}

func (c *notifierChannel) Name() string    { return c.name }
func (c *notifierChannel) IsEnabled() bool { return c.enabled }

func (c *notifierChannel) Send(ctx context.Context, event notifier.Event) error {
	if !c.enabled {
		return ErrChannelDisabled
	}
	return c.n.Notify(ctx, event)
}
