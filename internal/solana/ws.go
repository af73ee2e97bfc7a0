package solana

import "context"

// LogsWatcher streams log notifications for transactions mentioning an address.
type LogsWatcher interface {
	// Watch delivers notifications until ctx is done, then closes the channel.
	Watch(ctx context.Context, address string) <-chan LogNotification
}

// LogsFilter defines subscription filter for logs.
type LogsFilter struct {
	// Mentions filters logs that mention any of these accounts.
	Mentions []string
}

// LogNotification represents a logs subscription message.
type LogNotification struct {
	Signature string
	Slot      int64
	Logs      []string
	Err       interface{}
}
