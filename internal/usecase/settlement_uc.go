package usecase

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"

	"quickvision/internal/domain"
	"quickvision/internal/domain/model"
	"quickvision/internal/domain/ports/adapter"
	"quickvision/internal/domain/ports/repository"
)

// PaymentNotification is the decoded gateway callback. Amount is in major
// currency units as sent by the gateway; raw string forms are kept for
// signature verification.
type PaymentNotification struct {
	PaymentID      string
	Status         string
	TransactionRef string
	Amount         float64
	HasAmount      bool
	Signature      string
	RawAmount      string
	RawStatus      string
}

// SettlementOutcome reports what the notification did.
type SettlementOutcome struct {
	PaymentID        string
	Status           model.PaymentStatus
	ActivationCode   string
	Amount           int64 // minor units, as stored
	AlreadyProcessed bool
}

// Compile-time check
var _ SettlementUseCase = (*settlementUC)(nil)

// SettlementUseCase drives the payment-to-entitlement transition exactly once
// per payment.
type SettlementUseCase interface {
	// Initiate records a pending payment for an hour package.
	Initiate(ctx context.Context, accountID string, hours int, amount int64, method string) (*model.Payment, error)

	// HandleNotification settles a gateway callback. A duplicate notification
	// for an already-completed payment is a successful no-op; the atomic unit
	// {mark completed, extend ledger, mint code} commits or rolls back as one.
	HandleNotification(ctx context.Context, n PaymentNotification) (*SettlementOutcome, error)

	// Refund moves a completed payment to refunded (manual operator path).
	Refund(ctx context.Context, paymentID string, transactionRef *string) error
}

type settlementUC struct {
	payments   repository.PaymentRepository
	accounts   repository.AccountRepository
	activity   repository.ActivityRepository
	ledger     LedgerUseCase
	activation ActivationUseCase
	verifier   adapter.PaymentVerifier
	notifier   *NotificationUseCase
	dispatch   Dispatcher
	tm         repository.TransactionManager
	log        *zerolog.Logger
}

func NewSettlementUseCase(
	payments repository.PaymentRepository,
	accounts repository.AccountRepository,
	activity repository.ActivityRepository,
	ledger LedgerUseCase,
	activation ActivationUseCase,
	verifier adapter.PaymentVerifier,
	notifier *NotificationUseCase,
	dispatch Dispatcher,
	tm repository.TransactionManager,
	logger *zerolog.Logger,
) *settlementUC {
	l := logger.With().Str("component", "SettlementUC").Logger()
	return &settlementUC{
		payments: payments, accounts: accounts, activity: activity,
		ledger: ledger, activation: activation, verifier: verifier,
		notifier: notifier, dispatch: dispatch, tm: tm, log: &l,
	}
}

func (u *settlementUC) Initiate(ctx context.Context, accountID string, hours int, amount int64, method string) (*model.Payment, error) {
	if hours <= 0 || amount <= 0 {
		return nil, domain.ErrInvalidArgument
	}
	p := &model.Payment{
		ID:        uuid.NewString(),
		AccountID: accountID,
		Amount:    amount,
		Hours:     hours,
		Method:    method,
		Status:    model.PaymentStatusPending,
		CreatedAt: time.Now(),
	}
	if err := u.payments.Save(ctx, nil, p); err != nil {
		return nil, err
	}
	return p, nil
}

func (u *settlementUC) HandleNotification(ctx context.Context, n PaymentNotification) (*SettlementOutcome, error) {
	if n.PaymentID == "" {
		return nil, domain.ErrValidation
	}
	if n.Signature != "" && !u.verifier.Verify(n.PaymentID, n.RawAmount, n.RawStatus, n.Signature) {
		return nil, domain.ErrBadSignature
	}

	status, err := normalizeGatewayStatus(n.Status)
	if err != nil {
		return nil, err
	}

	p, err := u.payments.FindByID(ctx, nil, n.PaymentID)
	if err != nil {
		return nil, err
	}

	// Amount tolerance is one minor unit after rounding the gateway's float.
	if n.HasAmount {
		notified := int64(math.Round(n.Amount * 100))
		if diff := notified - p.Amount; diff > 1 || diff < -1 {
			u.log.Error().Str("payment_id", p.ID).Int64("expected", p.Amount).Int64("received", notified).Msg("amount mismatch")
			return nil, domain.ErrAmountMismatch
		}
	}

	switch status {
	case model.PaymentStatusCompleted:
		return u.settle(ctx, p, n.TransactionRef)
	case model.PaymentStatusPending:
		return &SettlementOutcome{PaymentID: p.ID, Status: model.PaymentStatusPending}, nil
	case model.PaymentStatusFailed:
		return u.fail(ctx, p, n.TransactionRef)
	case model.PaymentStatusRefunded:
		if err := u.Refund(ctx, p.ID, strPtrOrNil(n.TransactionRef)); err != nil {
			return nil, err
		}
		return &SettlementOutcome{PaymentID: p.ID, Status: model.PaymentStatusRefunded}, nil
	default:
		return nil, domain.ErrValidation
	}
}

// settle performs the atomic unit: mark completed, extend the ledger, mint a
// fresh activation code. The compare-and-set on the pending status makes a
// duplicate notification a no-op regardless of interleaving.
func (u *settlementUC) settle(ctx context.Context, p *model.Payment, ref string) (*SettlementOutcome, error) {
	if p.Status == model.PaymentStatusCompleted {
		u.log.Info().Str("payment_id", p.ID).Msg("payment already processed")
		return &SettlementOutcome{PaymentID: p.ID, Status: model.PaymentStatusCompleted, AlreadyProcessed: true}, nil
	}

	outcome := &SettlementOutcome{PaymentID: p.ID, Status: model.PaymentStatusCompleted, Amount: p.Amount}
	var newExpiry time.Time

	err := u.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		now := time.Now()
		won, err := u.payments.UpdateStatusIfPending(ctx, tx, p.ID, model.PaymentStatusCompleted, strPtrOrNil(ref), &now)
		if err != nil {
			return err
		}
		if !won {
			cur, err := u.payments.FindByID(ctx, tx, p.ID)
			if err != nil {
				return err
			}
			if cur.Status == model.PaymentStatusCompleted {
				outcome.AlreadyProcessed = true
				return nil
			}
			return domain.ErrConflict
		}

		newExpiry, err = u.ledger.Extend(ctx, tx, p.AccountID, p.Hours)
		if err != nil {
			return err
		}

		code, err := u.activation.Issue(ctx, tx, p.AccountID, true)
		if err != nil {
			return err
		}
		outcome.ActivationCode = code

		rec := &model.ActivityRecord{
			ID:        newULID(),
			AccountID: p.AccountID,
			Action:    model.ActionPaymentCompleted,
			Detail: map[string]interface{}{
				"payment_id": p.ID,
				"amount":     p.Amount,
				"hours":      p.Hours,
			},
			CreatedAt: now,
		}
		return u.activity.Append(ctx, tx, rec)
	})
	if err != nil {
		return nil, err
	}
	if outcome.AlreadyProcessed {
		return outcome, nil
	}

	u.log.Info().Str("payment_id", p.ID).Str("account_id", p.AccountID).Int("hours", p.Hours).Msg("payment settled")

	// Fire-and-forget receipt; a delivery failure never unwinds the settlement.
	accountID, code := p.AccountID, outcome.ActivationCode
	payment := *p
	payment.Status = model.PaymentStatusCompleted
	if err := u.dispatch.Submit(func(ctx context.Context) error {
		acc, err := u.accounts.FindByID(ctx, nil, accountID)
		if err != nil {
			return err
		}
		return u.notifier.PaymentCompleted(ctx, acc.TelegramChatID, &payment, code, newExpiry)
	}); err != nil {
		u.log.Warn().Err(err).Str("payment_id", p.ID).Msg("receipt dispatch rejected")
	}

	return outcome, nil
}

func (u *settlementUC) fail(ctx context.Context, p *model.Payment, ref string) (*SettlementOutcome, error) {
	now := time.Now()
	won, err := u.payments.UpdateStatusIfPending(ctx, nil, p.ID, model.PaymentStatusFailed, strPtrOrNil(ref), &now)
	if err != nil {
		return nil, err
	}
	if won {
		accountID := p.AccountID
		payment := *p
		payment.Status = model.PaymentStatusFailed
		if err := u.dispatch.Submit(func(ctx context.Context) error {
			acc, err := u.accounts.FindByID(ctx, nil, accountID)
			if err != nil {
				return err
			}
			if err := u.notifier.AdminAlert(ctx, fmt.Sprintf("Payment #%s failed (%.2f, account %s)", payment.ID, float64(payment.Amount)/100, accountID)); err != nil {
				u.log.Warn().Err(err).Msg("admin alert delivery failed")
			}
			return u.notifier.PaymentFailed(ctx, acc.TelegramChatID, &payment)
		}); err != nil {
			u.log.Warn().Err(err).Str("payment_id", p.ID).Msg("failure notice dispatch rejected")
		}
	}
	return &SettlementOutcome{PaymentID: p.ID, Status: model.PaymentStatusFailed}, nil
}

func (u *settlementUC) Refund(ctx context.Context, paymentID string, transactionRef *string) error {
	won, err := u.payments.UpdateStatusIfCompleted(ctx, nil, paymentID, transactionRef)
	if err != nil {
		return err
	}
	if !won {
		return domain.ErrConflict
	}
	u.log.Warn().Str("payment_id", paymentID).Msg("payment refunded")
	return nil
}

func normalizeGatewayStatus(s string) (model.PaymentStatus, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "completed", "success", "paid":
		return model.PaymentStatusCompleted, nil
	case "pending", "processing":
		return model.PaymentStatusPending, nil
	case "failed", "cancelled", "error":
		return model.PaymentStatusFailed, nil
	case "refunded":
		return model.PaymentStatusRefunded, nil
	default:
		return "", domain.ErrValidation
	}
}

func strPtrOrNil(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
