package telegram

import (
	"context"
	"log"
	"time"

	"quickvision/internal/domain/ports/adapter"
)

var _ adapter.MessengerAdapter = (*NoopMessenger)(nil)

// NoopMessenger implements adapter.MessengerAdapter for local/dev testing.
// It logs messages instead of sending real Telegram messages.
type NoopMessenger struct{}

func NewNoopMessenger() *NoopMessenger {
	return &NoopMessenger{}
}

func (b *NoopMessenger) SendMessage(ctx context.Context, chatID int64, text string) error {
	select {
	case <-time.After(100 * time.Millisecond):
	case <-ctx.Done():
		return ctx.Err()
	}
	log.Printf("[noop-telegram] To chat %d: %s\n", chatID, text)
	return nil
}

func (b *NoopMessenger) SendPhoto(ctx context.Context, chatID int64, photoPNG []byte, caption string) error {
	select {
	case <-time.After(100 * time.Millisecond):
	case <-ctx.Done():
		return ctx.Err()
	}
	log.Printf("[noop-telegram] To chat %d: photo (%d bytes), caption: %s\n", chatID, len(photoPNG), caption)
	return nil
}
