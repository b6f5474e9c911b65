package usecase

import (
	"context"
	"time"

	"quickvision/internal/domain/ports/repository"
)

// Compile-time check
var _ AdmissionGate = (*admissionGate)(nil)

// AdmissionGate bounds how often an account may invoke the paid capability.
// The window is sliding, recomputed from the append-only activity log on
// every call: no bucket boundary a burst could straddle. The scan cost is
// proportional to traffic in the window, which is fine at this scale; a
// counter-bucket structure can replace the implementation behind the same
// contract if load grows.
type AdmissionGate interface {
	// Admit reports whether a new attempt is allowed: the count of the
	// action's records within [now-window, now] must be strictly below max.
	Admit(ctx context.Context, accountID, action string, max int, window time.Duration) (bool, error)
}

type admissionGate struct {
	activity repository.ActivityRepository
}

func NewAdmissionGate(activity repository.ActivityRepository) *admissionGate {
	return &admissionGate{activity: activity}
}

func (g *admissionGate) Admit(ctx context.Context, accountID, action string, max int, window time.Duration) (bool, error) {
	if max <= 0 {
		return false, nil
	}
	count, err := g.activity.CountSince(ctx, nil, accountID, action, time.Now().Add(-window))
	if err != nil {
		return false, err
	}
	return count < max, nil
}
