package delivery

import (
	"context"
)

// Dispatcher ships a finished lead brief to its destination channel.
// Delivery failures are never escalated into the call flow; callers log
// and move on.
type Dispatcher interface {
	// Send delivers body to destination. destination is channel-specific
	// (a WhatsApp number, an email address).
	Send(ctx context.Context, destination, body string) error

	// Name identifies the channel for logging.
	Name() string
}
