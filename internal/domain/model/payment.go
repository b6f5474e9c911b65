package model

import "time"

type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "pending"   // created, awaiting gateway notification
	PaymentStatusCompleted PaymentStatus = "completed" // settled; entitlement granted exactly once
	PaymentStatusFailed    PaymentStatus = "failed"    // gateway reported failure/cancel
	PaymentStatusRefunded  PaymentStatus = "refunded"  // manual, only from completed
)

// Payment records the external payment intent for an hour package.
// Status moves only forward: pending -> completed|failed, completed -> refunded.
type Payment struct {
	ID             string
	AccountID      string
	Amount         int64 // minor currency units (tiyn)
	Hours          int
	Method         string // e.g. "kaspi"
	Status         PaymentStatus
	TransactionRef *string // gateway transaction id, set on completion
	CreatedAt      time.Time
	CompletedAt    *time.Time
}

// CanTransition reports whether the forward-only state machine permits the move.
func (p *Payment) CanTransition(to PaymentStatus) bool {
	switch p.Status {
	case PaymentStatusPending:
		return to == PaymentStatusCompleted || to == PaymentStatusFailed
	case PaymentStatusCompleted:
		return to == PaymentStatusRefunded
	default:
		return false
	}
}
