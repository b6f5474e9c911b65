package telegram

import (
	"context"
	"errors"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"quickvision/internal/domain/ports/adapter"
)

var _ adapter.MessengerAdapter = (*SenderBot)(nil)

// SenderBot is the delivery-only bot: answers, receipts, notices. It never
// polls; keeping it separate from the interactive bot means a flood of
// answer deliveries cannot starve command handling.
type SenderBot struct {
	bot *tgbotapi.BotAPI
}

func NewSenderBot(token string) (*SenderBot, error) {
	if token == "" {
		return nil, errors.New("telegram: empty sender token")
	}
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, err
	}
	return &SenderBot{bot: bot}, nil
}

func (s *SenderBot) SendMessage(ctx context.Context, chatID int64, text string) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeMarkdown
	_, err := s.bot.Send(msg)
	return err
}

func (s *SenderBot) SendPhoto(ctx context.Context, chatID int64, photoPNG []byte, caption string) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}
	msg := tgbotapi.NewPhoto(chatID, tgbotapi.FileBytes{Name: "qr.png", Bytes: photoPNG})
	msg.Caption = caption
	msg.ParseMode = tgbotapi.ModeMarkdown
	_, err := s.bot.Send(msg)
	return err
}
