package notification

import "errors"

var (
	// ErrNotifierClosed is returned when publishing to a closed
	// ChannelNotifier.
	ErrNotifierClosed = errors.New("notification: notifier closed")
)
