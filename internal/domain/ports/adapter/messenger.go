package adapter

import "context"

// MessengerAdapter is the port for outbound Telegram delivery. Delivery is
// best-effort: callers treat errors as log-only.
type MessengerAdapter interface {
	SendMessage(ctx context.Context, chatID int64, text string) error
	SendPhoto(ctx context.Context, chatID int64, photoPNG []byte, caption string) error
}
