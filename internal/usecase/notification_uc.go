package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"quickvision/internal/domain/model"
	"quickvision/internal/domain/ports/adapter"
)

// Dispatcher runs best-effort work detached from the caller's transaction.
// The worker pool satisfies it.
type Dispatcher interface {
	Submit(task func(ctx context.Context) error) error
}

// NotificationUseCase formats and delivers user-facing Telegram messages.
// Delivery is best-effort throughout: errors are returned for logging only
// and never roll anything back.
type NotificationUseCase struct {
	messenger   adapter.MessengerAdapter
	siteURL     string
	adminChatID int64
	log         *zerolog.Logger
}

func NewNotificationUseCase(messenger adapter.MessengerAdapter, siteURL string, logger *zerolog.Logger) *NotificationUseCase {
	l := logger.With().Str("component", "NotificationUC").Logger()
	return &NotificationUseCase{messenger: messenger, siteURL: siteURL, log: &l}
}

// SetAdminChat enables operator alerts. Zero leaves them off.
func (u *NotificationUseCase) SetAdminChat(chatID int64) { u.adminChatID = chatID }

// AdminAlert pushes a message to the operator chat. No-op when unset.
func (u *NotificationUseCase) AdminAlert(ctx context.Context, text string) error {
	if u.adminChatID == 0 {
		return nil
	}
	return u.messenger.SendMessage(ctx, u.adminChatID, "🛎 "+text)
}

func (u *NotificationUseCase) AnswerReady(ctx context.Context, chatID int64, answer string) error {
	text := fmt.Sprintf("✅ *Answers:*\n\n`%s`", answer)
	return u.messenger.SendMessage(ctx, chatID, text)
}

func (u *NotificationUseCase) PaymentCompleted(ctx context.Context, chatID int64, p *model.Payment, code string, expiresAt time.Time) error {
	text := fmt.Sprintf(
		"✅ *Payment received!*\n\n"+
			"💰 Amount: *%.2f*\n"+
			"⏰ Hours: *%d*\n"+
			"📅 Active until: *%s*\n\n"+
			"🔑 *Your activation code:*\n`%s`\n\n"+
			"📥 [Download the app](%s/download)\n\n"+
			"⚠️ Do not share the code with anyone.",
		float64(p.Amount)/100, p.Hours, expiresAt.Format("02.01.2006 15:04"), code, u.siteURL,
	)
	return u.messenger.SendMessage(ctx, chatID, text)
}

func (u *NotificationUseCase) PaymentFailed(ctx context.Context, chatID int64, p *model.Payment) error {
	text := fmt.Sprintf(
		"❌ *Payment failed*\n\n🆔 Payment: #%s\n💰 Amount: %.2f\n\nTry again: /buy",
		p.ID, float64(p.Amount)/100,
	)
	return u.messenger.SendMessage(ctx, chatID, text)
}

func (u *NotificationUseCase) SubscriptionExpired(ctx context.Context, chatID int64) error {
	return u.messenger.SendMessage(ctx, chatID, "⚠️ *Your subscription has expired*\n\nRenew to keep using the service: /buy")
}
