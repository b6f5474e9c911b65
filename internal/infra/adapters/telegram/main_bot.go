package telegram

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"quickvision/internal/config"
	"quickvision/internal/domain"
	"quickvision/internal/infra/adapters/payment"
	red "quickvision/internal/infra/redis"
	"quickvision/internal/usecase"
)

// MainBot is the interactive bot: registration, purchase, status, code
// retrieval. Answer delivery goes through the separate sender bot.
type MainBot struct {
	bot        *tgbotapi.BotAPI
	cfg        *config.BotConfig
	ledger     usecase.LedgerUseCase
	activation usecase.ActivationUseCase
	settlement usecase.SettlementUseCase
	limiter    *red.RateLimiter
	prices     map[int]int64 // hours -> minor units

	adminIDsMap   map[int64]struct{}
	cancelPolling context.CancelFunc
	log           *zerolog.Logger
}

func NewMainBot(
	cfg *config.BotConfig,
	ledger usecase.LedgerUseCase,
	activation usecase.ActivationUseCase,
	settlement usecase.SettlementUseCase,
	limiter *red.RateLimiter,
	prices map[int]int64,
	logger *zerolog.Logger,
) (*MainBot, error) {
	if cfg == nil {
		return nil, errors.New("bot config is nil")
	}
	bot, err := tgbotapi.NewBotAPI(cfg.MainToken)
	if err != nil {
		return nil, err
	}

	adminMap := map[int64]struct{}{}
	for _, id := range cfg.AdminIDs {
		adminMap[id] = struct{}{}
	}

	l := logger.With().Str("component", "MainBot").Logger()
	return &MainBot{
		bot: bot, cfg: cfg, ledger: ledger, activation: activation,
		settlement: settlement, limiter: limiter, prices: prices,
		adminIDsMap: adminMap, log: &l,
	}, nil
}

func (b *MainBot) StartPolling(ctx context.Context) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := b.bot.GetUpdatesChan(u)

	ctx, cancel := context.WithCancel(ctx)
	b.cancelPolling = cancel

	workers := b.cfg.Workers
	if workers <= 0 {
		workers = 5
	}

	var wg sync.WaitGroup
	updateChan := make(chan tgbotapi.Update, 100)

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			for {
				select {
				case <-ctx.Done():
					return
				case up := <-updateChan:
					if err := b.handleUpdate(ctx, up); err != nil {
						b.log.Warn().Err(err).Int("worker", id).Msg("update handling failed")
					}
				}
			}
		}(i)
	}

	for {
		select {
		case <-ctx.Done():
			close(updateChan)
			wg.Wait()
			return ctx.Err()
		case up := <-updates:
			updateChan <- up
		}
	}
}

func (b *MainBot) StopPolling() {
	if b.cancelPolling != nil {
		b.cancelPolling()
	}
}

func (b *MainBot) handleUpdate(ctx context.Context, update tgbotapi.Update) error {
	if update.CallbackQuery != nil {
		return b.handleQuery(ctx, update.CallbackQuery)
	}
	if update.Message == nil || update.Message.From == nil {
		return nil
	}
	msg := update.Message
	chatID := msg.Chat.ID

	command := "message"
	if msg.IsCommand() {
		command = "/" + msg.Command()
	}
	if b.limiter != nil {
		allowed, err := b.limiter.Allow(ctx, red.ChatCommandKey(chatID, command), 20, time.Minute)
		if err != nil {
			b.log.Warn().Err(err).Msg("rate limit check failed")
		} else if !allowed {
			return b.send(chatID, "Too many requests. Please try again in a minute.")
		}
	}

	switch command {
	case "/start":
		return b.handleStart(ctx, msg)
	case "/buy":
		return b.sendPackageMenu(chatID)
	case "/status":
		return b.handleStatus(ctx, msg)
	case "/getcode":
		return b.handleGetCode(ctx, msg)
	case "/help":
		return b.send(chatID, helpText)
	case "/support":
		return b.send(chatID, "Describe your problem in one message; an operator will reply here.")
	case "message":
		// Plain text from a user in a support thread is forwarded to the
		// operator chat.
		if b.cfg.AdminChatID != 0 && chatID != b.cfg.AdminChatID {
			fwd := tgbotapi.NewForward(b.cfg.AdminChatID, chatID, msg.MessageID)
			_, err := b.bot.Send(fwd)
			return err
		}
		return nil
	default:
		return b.send(chatID, "Unknown command. Try /help.")
	}
}

func (b *MainBot) handleQuery(ctx context.Context, query *tgbotapi.CallbackQuery) error {
	// Ack first so the client stops its spinner.
	if _, err := b.bot.Request(tgbotapi.NewCallback(query.ID, "")); err != nil {
		b.log.Warn().Err(err).Msg("callback ack failed")
	}
	chatID := query.Message.Chat.ID
	data := query.Data

	if strings.HasPrefix(data, "buy:") {
		hours, err := strconv.Atoi(strings.TrimPrefix(data, "buy:"))
		if err != nil {
			return b.send(chatID, "Unknown package.")
		}
		return b.startPurchase(ctx, chatID, query.From.UserName, hours)
	}
	return nil
}

func (b *MainBot) handleStart(ctx context.Context, msg *tgbotapi.Message) error {
	if _, err := b.ledger.RegisterOrFind(ctx, msg.Chat.ID, msg.From.UserName); err != nil {
		b.log.Error().Err(err).Int64("chat_id", msg.Chat.ID).Msg("registration failed")
		return b.send(msg.Chat.ID, "Something went wrong. Please try again.")
	}
	return b.send(msg.Chat.ID,
		"👋 Welcome!\n\nBuy access with /buy, then activate the desktop app with the code you receive.\n\n"+helpText)
}

func (b *MainBot) handleStatus(ctx context.Context, msg *tgbotapi.Message) error {
	acc, err := b.ledger.GetByChatID(ctx, msg.Chat.ID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return b.send(msg.Chat.ID, "No account yet. Send /start first.")
		}
		return b.send(msg.Chat.ID, "Failed to get status.")
	}

	var lines []string
	lines = append(lines, fmt.Sprintf("Status: %s", acc.Status))
	if acc.ExpiresAt != nil {
		if acc.ExpiresAt.After(time.Now()) {
			lines = append(lines, fmt.Sprintf("Active until: %s", acc.ExpiresAt.Format("02.01.2006 15:04")))
			lines = append(lines, fmt.Sprintf("Time left: %s", time.Until(*acc.ExpiresAt).Round(time.Minute)))
		} else {
			lines = append(lines, fmt.Sprintf("Expired: %s", acc.ExpiresAt.Format("02.01.2006 15:04")))
		}
	} else {
		lines = append(lines, "No purchases yet. Use /buy to get started.")
	}
	lines = append(lines, fmt.Sprintf("Hours purchased: %d", acc.HoursPurchased))
	return b.send(msg.Chat.ID, strings.Join(lines, "\n"))
}

func (b *MainBot) handleGetCode(ctx context.Context, msg *tgbotapi.Message) error {
	acc, err := b.ledger.GetByChatID(ctx, msg.Chat.ID)
	if err != nil {
		return b.send(msg.Chat.ID, "No account yet. Send /start first.")
	}
	entitled, err := b.ledger.IsEntitled(ctx, acc.ID)
	if err != nil || !entitled {
		return b.send(msg.Chat.ID, "No active subscription. Use /buy first.")
	}
	code, err := b.activation.Issue(ctx, nil, acc.ID, false)
	if err != nil {
		b.log.Error().Err(err).Str("account_id", acc.ID).Msg("code issue failed")
		return b.send(msg.Chat.ID, "Failed to issue a code. Please try again.")
	}
	return b.sendMarkdown(msg.Chat.ID, fmt.Sprintf("🔑 Your activation code:\n`%s`\n\n⚠️ Do not share it with anyone.", code))
}

func (b *MainBot) sendPackageMenu(chatID int64) error {
	hours := make([]int, 0, len(b.prices))
	for h := range b.prices {
		hours = append(hours, h)
	}
	sort.Ints(hours)

	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(hours))
	for _, h := range hours {
		label := fmt.Sprintf("%d h — %.0f ₸", h, float64(b.prices[h])/100)
		rows = append(rows, []tgbotapi.InlineKeyboardButton{
			tgbotapi.NewInlineKeyboardButtonData(label, fmt.Sprintf("buy:%d", h)),
		})
	}

	msg := tgbotapi.NewMessage(chatID, "Choose a package:")
	msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(rows...)
	_, err := b.bot.Send(msg)
	return err
}

func (b *MainBot) startPurchase(ctx context.Context, chatID int64, username string, hours int) error {
	price, ok := b.prices[hours]
	if !ok {
		return b.send(chatID, "Unknown package.")
	}
	acc, err := b.ledger.RegisterOrFind(ctx, chatID, username)
	if err != nil {
		return b.send(chatID, "Something went wrong. Please try again.")
	}
	p, err := b.settlement.Initiate(ctx, acc.ID, hours, price, "kaspi")
	if err != nil {
		b.log.Error().Err(err).Str("account_id", acc.ID).Msg("payment initiation failed")
		return b.send(chatID, "Failed to start the payment. Please try again.")
	}

	caption := fmt.Sprintf(
		"💳 Payment #%s\n\n⏰ Package: %d hours\n💰 Amount: %.2f ₸\n\nScan the QR in the Kaspi app. Access and your activation code arrive here automatically after payment.",
		p.ID, hours, float64(price)/100,
	)
	qr, err := payment.PaymentQR(p.ID, price, 256)
	if err != nil {
		b.log.Warn().Err(err).Str("payment_id", p.ID).Msg("qr render failed")
		return b.send(chatID, caption)
	}
	photo := tgbotapi.NewPhoto(chatID, tgbotapi.FileBytes{Name: "kaspi-qr.png", Bytes: qr})
	photo.Caption = caption
	_, err = b.bot.Send(photo)
	return err
}

func (b *MainBot) send(chatID int64, text string) error {
	_, err := b.bot.Send(tgbotapi.NewMessage(chatID, text))
	return err
}

func (b *MainBot) sendMarkdown(chatID int64, text string) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeMarkdown
	_, err := b.bot.Send(msg)
	return err
}

const helpText = `Commands:
/buy — buy access
/status — subscription status
/getcode — show your activation code
/support — contact an operator
/help — this message`
