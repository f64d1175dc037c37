// File: internal/domain/ports/adapter/telegram.go
package adapter

import "context"

// Notifier delivers a text message to a chat. Delivery is best effort:
// failures are logged by the implementation and reported as false.
type Notifier interface {
	Send(ctx context.Context, chatID, text string) bool
}
