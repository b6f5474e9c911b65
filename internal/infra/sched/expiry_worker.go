package sched

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"quickvision/internal/infra/metrics"
	"quickvision/internal/usecase"
)

// ExpiryWorker periodically flips lapsed accounts to expired and tells them.
// Correctness does not depend on it: the ledger flips lazily on the next
// entitlement check anyway.
type ExpiryWorker struct {
	interval time.Duration
	ledger   usecase.LedgerUseCase
	notifier *usecase.NotificationUseCase
	log      *zerolog.Logger
}

func NewExpiryWorker(interval time.Duration, ledger usecase.LedgerUseCase, notifier *usecase.NotificationUseCase, logger *zerolog.Logger) *ExpiryWorker {
	l := logger.With().Str("component", "ExpiryWorker").Logger()
	if interval <= 0 {
		interval = 10 * time.Minute
	}
	return &ExpiryWorker{interval: interval, ledger: ledger, notifier: notifier, log: &l}
}

func (w *ExpiryWorker) Run(ctx context.Context) error {
	w.log.Info().Dur("interval", w.interval).Msg("starting expiry worker")
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("stopping expiry worker")
			return ctx.Err()
		case <-ticker.C:
			flipped, err := w.ledger.SweepExpired(ctx, 200)
			if err != nil {
				w.log.Error().Err(err).Msg("expiry sweep failed")
				continue
			}
			if len(flipped) == 0 {
				continue
			}
			metrics.IncAccountsExpired(len(flipped))
			w.log.Info().Int("count", len(flipped)).Msg("accounts expired")
			for _, acc := range flipped {
				if err := w.notifier.SubscriptionExpired(ctx, acc.TelegramChatID); err != nil {
					w.log.Warn().Err(err).Int64("chat_id", acc.TelegramChatID).Msg("expiry notice failed")
				}
			}
		}
	}
}
