package notifier

import "context"

// NoopNotifier discards all events. Used when notifications are
// disabled via configuration.
type NoopNotifier struct{}

// NewNoopNotifier creates a notifier that does nothing.
func NewNoopNotifier() *NoopNotifier {
	return &NoopNotifier{}
}

// Notify implements the Notifier interface and always succeeds.
func (n *NoopNotifier) Notify(_ context.Context, _ Event) error {
	return nil
}
