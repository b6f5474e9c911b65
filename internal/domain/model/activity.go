package model

import "time"

// Activity log action names. The capture request action doubles as the rate
// window substrate, so its spelling is load-bearing.
const (
	ActionCaptureRequest   = "capture_request"
	ActionActivation       = "activation_success"
	ActionPaymentCompleted = "payment_completed"
	ActionSubscriptionView = "subscription_check"
)

// ActivityRecord is one append-only audit entry. Rate windows are always
// recomputed by counting these rows, never from a separate counter.
type ActivityRecord struct {
	ID        string // ULID, time-sortable
	AccountID string
	Action    string
	Detail    map[string]interface{}
	OriginIP  string
	CreatedAt time.Time
}
