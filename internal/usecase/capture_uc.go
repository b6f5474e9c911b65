package usecase

import (
	"context"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"quickvision/internal/domain"
	"quickvision/internal/domain/model"
	"quickvision/internal/domain/ports/adapter"
	"quickvision/internal/domain/ports/repository"
)

// CaptureResult is returned to the desktop client.
type CaptureResult struct {
	Answer    string
	ElapsedMs int64
	Notified  bool
}

// Compile-time check
var _ CaptureUseCase = (*captureUC)(nil)

// CaptureUseCase runs one extraction invocation end to end:
// admission gate, payload validation, the bounded inference call, deterministic
// answer extraction, outcome persistence, and best-effort delivery.
type CaptureUseCase interface {
	Process(ctx context.Context, code, imageBase64, originIP string) (*CaptureResult, error)
}

type captureUC struct {
	activation ActivationUseCase
	ledger     LedgerUseCase
	gate       AdmissionGate
	activity   repository.ActivityRepository
	captures   repository.CaptureRepository
	vision     adapter.VisionAdapter
	notifier   *NotificationUseCase

	instruction   string
	maxImageBytes int64
	perMinute     int
	perHour       int
	log           *zerolog.Logger
}

func NewCaptureUseCase(
	activation ActivationUseCase,
	ledger LedgerUseCase,
	gate AdmissionGate,
	activity repository.ActivityRepository,
	captures repository.CaptureRepository,
	vision adapter.VisionAdapter,
	notifier *NotificationUseCase,
	instruction string,
	maxImageBytes int64,
	perMinute, perHour int,
	logger *zerolog.Logger,
) *captureUC {
	l := logger.With().Str("component", "CaptureUC").Logger()
	return &captureUC{
		activation: activation, ledger: ledger, gate: gate,
		activity: activity, captures: captures, vision: vision, notifier: notifier,
		instruction: instruction, maxImageBytes: maxImageBytes,
		perMinute: perMinute, perHour: perHour, log: &l,
	}
}

var dataURLPrefix = regexp.MustCompile(`^data:image/\w+;base64,`)

func (u *captureUC) Process(ctx context.Context, code, imageBase64, originIP string) (*CaptureResult, error) {
	if code == "" || imageBase64 == "" {
		return nil, domain.ErrValidation
	}

	// Admission gate: code found, not blocked, entitled, within both windows.
	ac, err := u.activation.Resolve(ctx, code)
	if err != nil {
		return nil, err
	}
	acc, err := u.ledger.Get(ctx, ac.AccountID)
	if err != nil {
		return nil, err
	}
	if acc.Status == model.AccountStatusBlocked {
		return nil, domain.ErrBlocked
	}
	entitled, err := u.ledger.IsEntitled(ctx, acc.ID)
	if err != nil {
		return nil, err
	}
	if !entitled {
		return nil, domain.ErrNotEntitled
	}
	if ok, err := u.gate.Admit(ctx, acc.ID, model.ActionCaptureRequest, u.perMinute, time.Minute); err != nil {
		return nil, err
	} else if !ok {
		return nil, domain.ErrRateLimited
	}
	if ok, err := u.gate.Admit(ctx, acc.ID, model.ActionCaptureRequest, u.perHour, time.Hour); err != nil {
		return nil, err
	} else if !ok {
		return nil, domain.ErrRateLimited
	}

	// The admitted attempt enters the window before any expensive work.
	u.appendRequestActivity(ctx, acc.ID, code, originIP)

	// Validation: well-formed base64 image under the hard size ceiling,
	// rejected before the expensive external call.
	raw := dataURLPrefix.ReplaceAllString(strings.TrimSpace(imageBase64), "")
	if int64(len(raw))/4*3 > u.maxImageBytes {
		return nil, domain.ErrValidation
	}
	img, err := base64.StdEncoding.DecodeString(raw)
	if err != nil || len(img) == 0 {
		return nil, domain.ErrValidation
	}
	if int64(len(img)) > u.maxImageBytes {
		return nil, domain.ErrValidation
	}

	sum := sha256.Sum256(img)
	hash := hex.EncodeToString(sum[:])

	start := time.Now()
	response, inferErr := u.vision.Describe(ctx, u.instruction, img)
	elapsed := time.Since(start).Milliseconds()

	if inferErr != nil {
		u.log.Error().Err(inferErr).Str("account_id", acc.ID).Int64("elapsed_ms", elapsed).Msg("inference failed")
		u.persistOutcome(ctx, acc.ID, code, hash, int64(len(img)), nil, nil, elapsed, inferErr)
		return nil, fmt.Errorf("%w: %v", domain.ErrInference, inferErr)
	}

	answer := ExtractCompactAnswer(response)
	u.persistOutcome(ctx, acc.ID, code, hash, int64(len(img)), &response, &answer, elapsed, nil)

	notified := true
	if err := u.notifier.AnswerReady(ctx, acc.TelegramChatID, answer); err != nil {
		// Delivery is best-effort; the persisted outcome stands.
		u.log.Warn().Err(err).Int64("chat_id", acc.TelegramChatID).Msg("answer delivery failed")
		notified = false
	}

	return &CaptureResult{Answer: answer, ElapsedMs: elapsed, Notified: notified}, nil
}

// persistOutcome writes exactly one outcome row per invocation, success or not.
func (u *captureUC) persistOutcome(ctx context.Context, accountID, code, hash string, size int64, raw, answer *string, elapsedMs int64, inferErr error) {
	c := &model.Capture{
		ID:          newULID(),
		AccountID:   accountID,
		Code:        code,
		ContentHash: hash,
		ContentSize: size,
		Prompt:      u.instruction,
		RawResponse: raw,
		Answer:      answer,
		ElapsedMs:   elapsedMs,
		Success:     inferErr == nil,
		CreatedAt:   time.Now(),
	}
	if inferErr != nil {
		msg := inferErr.Error()
		c.ErrorText = &msg
	}
	if err := u.captures.Save(ctx, repository.NoTX, c); err != nil {
		u.log.Error().Err(err).Str("account_id", accountID).Msg("outcome persistence failed")
	}
}

func (u *captureUC) appendRequestActivity(ctx context.Context, accountID, code, originIP string) {
	rec := &model.ActivityRecord{
		ID:        newULID(),
		AccountID: accountID,
		Action:    model.ActionCaptureRequest,
		Detail:    map[string]interface{}{"activation_code": code},
		OriginIP:  originIP,
		CreatedAt: time.Now(),
	}
	if err := u.activity.Append(ctx, repository.NoTX, rec); err != nil {
		u.log.Warn().Err(err).Str("account_id", accountID).Msg("activity append failed")
	}
}
