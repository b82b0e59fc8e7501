package notify

import "errors"

// Sentinel errors for notify use case operations.
var (
	// ErrChannelDisabled indicates that Send() was called on a disabled channel.
	ErrChannelDisabled = errors.New("channel is disabled")

	// ErrNotificationDropped indicates that an event was dropped because
	// the worker pool was saturated. Non-critical, used for observability.
	ErrNotificationDropped = errors.New("notification dropped due to pool saturation")

	// ErrCircuitBreakerOpen indicates that the channel's circuit breaker
	// is open and events are being rejected until it closes.
	ErrCircuitBreakerOpen = errors.New("circuit breaker is open for this channel")
)
