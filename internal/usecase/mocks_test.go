//go:build !integration

package usecase_test

import (
	"context"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"

	"quickvision/internal/domain"
	"quickvision/internal/domain/model"
	"quickvision/internal/domain/ports/adapter"
	"quickvision/internal/domain/ports/repository"
)

// newTestLogger creates a silent zerolog.Logger for use in tests.
func newTestLogger() *zerolog.Logger {
	logger := zerolog.New(io.Discard)
	return &logger
}

// =============================
// Repositories
// =============================

// MockAccountRepo is a small in-memory AccountRepository for unit tests.
type MockAccountRepo struct {
	mu    sync.RWMutex
	store map[string]*model.Account // by ID

	SaveFunc              func(ctx context.Context, tx repository.Tx, a *model.Account) error
	ExtendEntitlementFunc func(ctx context.Context, tx repository.Tx, id string, hours int) (time.Time, error)
}

var _ repository.AccountRepository = (*MockAccountRepo)(nil)

func NewMockAccountRepo() *MockAccountRepo {
	return &MockAccountRepo{store: make(map[string]*model.Account)}
}

func (m *MockAccountRepo) Save(ctx context.Context, tx repository.Tx, a *model.Account) error {
	if m.SaveFunc != nil {
		return m.SaveFunc(ctx, tx, a)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *a
	m.store[a.ID] = &cp
	return nil
}

func (m *MockAccountRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Account, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	a, ok := m.store[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *a
	return &cp, nil
}

func (m *MockAccountRepo) FindByChatID(ctx context.Context, tx repository.Tx, chatID int64) (*model.Account, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, a := range m.store {
		if a.TelegramChatID == chatID {
			cp := *a
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

// ExtendEntitlement mirrors the SQL semantics: base is max(now, expiry),
// status flips to active, hours accumulate.
func (m *MockAccountRepo) ExtendEntitlement(ctx context.Context, tx repository.Tx, id string, hours int) (time.Time, error) {
	if m.ExtendEntitlementFunc != nil {
		return m.ExtendEntitlementFunc(ctx, tx, id, hours)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.store[id]
	if !ok {
		return time.Time{}, domain.ErrNotFound
	}
	base := time.Now()
	if a.ExpiresAt != nil && a.ExpiresAt.After(base) {
		base = *a.ExpiresAt
	}
	exp := base.Add(time.Duration(hours) * time.Hour)
	a.ExpiresAt = &exp
	a.Status = model.AccountStatusActive
	a.HoursPurchased += hours
	a.UpdatedAt = time.Now()
	return exp, nil
}

func (m *MockAccountRepo) SetStatus(ctx context.Context, tx repository.Tx, id string, status model.AccountStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.store[id]
	if !ok {
		return domain.ErrNotFound
	}
	a.Status = status
	a.UpdatedAt = time.Now()
	return nil
}

func (m *MockAccountRepo) MarkExpiredIfPast(ctx context.Context, tx repository.Tx, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.store[id]
	if !ok {
		return false, domain.ErrNotFound
	}
	if a.ExpiredAt(time.Now()) {
		a.Status = model.AccountStatusExpired
		return true, nil
	}
	return false, nil
}

func (m *MockAccountRepo) FindLapsed(ctx context.Context, tx repository.Tx, limit int) ([]*model.Account, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*model.Account
	for _, a := range m.store {
		if a.ExpiredAt(time.Now()) {
			cp := *a
			out = append(out, &cp)
			if len(out) == limit {
				break
			}
		}
	}
	return out, nil
}

func (m *MockAccountRepo) Delete(ctx context.Context, tx repository.Tx, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.store[id]; !ok {
		return domain.ErrNotFound
	}
	delete(m.store, id)
	return nil
}

func (m *MockAccountRepo) List(ctx context.Context, tx repository.Tx, limit, offset int) ([]*model.Account, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*model.Account, 0, len(m.store))
	for _, a := range m.store {
		cp := *a
		out = append(out, &cp)
	}
	return out, nil
}

func (m *MockAccountRepo) CountByStatus(ctx context.Context, tx repository.Tx) (map[string]int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := map[string]int{}
	for _, a := range m.store {
		out[string(a.Status)]++
	}
	return out, nil
}

// ---- ActivationCodeRepository ----

type MockCodeRepo struct {
	mu    sync.Mutex
	store map[string]*model.ActivationCode // by Code

	MarkUsedFunc func(ctx context.Context, tx repository.Tx, code, origin string, deviceInfo *string) (bool, error)
}

var _ repository.ActivationCodeRepository = (*MockCodeRepo)(nil)

func NewMockCodeRepo() *MockCodeRepo {
	return &MockCodeRepo{store: make(map[string]*model.ActivationCode)}
}

func (m *MockCodeRepo) Save(ctx context.Context, tx repository.Tx, code *model.ActivationCode) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *code
	m.store[code.Code] = &cp
	return nil
}

func (m *MockCodeRepo) FindByCode(ctx context.Context, tx repository.Tx, code string) (*model.ActivationCode, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.store[code]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (m *MockCodeRepo) FindUnusedByAccount(ctx context.Context, tx repository.Tx, accountID string) (*model.ActivationCode, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.store {
		if c.AccountID == accountID && !c.IsUsed {
			cp := *c
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

// MarkUsed is the compare-and-set: it wins only if the code is still unused
// under the lock, exactly like the SQL WHERE is_used = FALSE guard.
func (m *MockCodeRepo) MarkUsed(ctx context.Context, tx repository.Tx, code, origin string, deviceInfo *string) (bool, error) {
	if m.MarkUsedFunc != nil {
		return m.MarkUsedFunc(ctx, tx, code, origin, deviceInfo)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.store[code]
	if !ok {
		return false, domain.ErrNotFound
	}
	if c.IsUsed {
		return false, nil
	}
	now := time.Now()
	c.IsUsed = true
	c.UsedAt = &now
	c.Origin = &origin
	c.DeviceInfo = deviceInfo
	return true, nil
}

func (m *MockCodeRepo) DeleteUnusedByAccount(ctx context.Context, tx repository.Tx, accountID string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for k, c := range m.store {
		if c.AccountID == accountID && !c.IsUsed {
			delete(m.store, k)
			n++
		}
	}
	return n, nil
}

func (m *MockCodeRepo) Exists(ctx context.Context, tx repository.Tx, code string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.store[code]
	return ok, nil
}

// ---- PaymentRepository ----

type MockPaymentRepo struct {
	mu    sync.Mutex
	store map[string]*model.Payment

	SaveFunc func(ctx context.Context, tx repository.Tx, p *model.Payment) error
}

var _ repository.PaymentRepository = (*MockPaymentRepo)(nil)

func NewMockPaymentRepo() *MockPaymentRepo {
	return &MockPaymentRepo{store: make(map[string]*model.Payment)}
}

func (m *MockPaymentRepo) Save(ctx context.Context, tx repository.Tx, p *model.Payment) error {
	if m.SaveFunc != nil {
		return m.SaveFunc(ctx, tx, p)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *p
	m.store[p.ID] = &cp
	return nil
}

func (m *MockPaymentRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Payment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.store[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (m *MockPaymentRepo) UpdateStatusIfPending(ctx context.Context, tx repository.Tx, id string, status model.PaymentStatus, transactionRef *string, completedAt *time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.store[id]
	if !ok {
		return false, domain.ErrNotFound
	}
	if p.Status != model.PaymentStatusPending {
		return false, nil
	}
	p.Status = status
	p.TransactionRef = transactionRef
	p.CompletedAt = completedAt
	return true, nil
}

func (m *MockPaymentRepo) UpdateStatusIfCompleted(ctx context.Context, tx repository.Tx, id string, transactionRef *string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.store[id]
	if !ok {
		return false, domain.ErrNotFound
	}
	if p.Status != model.PaymentStatusCompleted {
		return false, nil
	}
	p.Status = model.PaymentStatusRefunded
	if transactionRef != nil {
		p.TransactionRef = transactionRef
	}
	return true, nil
}

func (m *MockPaymentRepo) SumCompletedSince(ctx context.Context, tx repository.Tx, since time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var sum int64
	for _, p := range m.store {
		if p.Status == model.PaymentStatusCompleted && p.CompletedAt != nil && !p.CompletedAt.Before(since) {
			sum += p.Amount
		}
	}
	return sum, nil
}

func (m *MockPaymentRepo) ListByAccount(ctx context.Context, tx repository.Tx, accountID string, limit int) ([]*model.Payment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.Payment
	for _, p := range m.store {
		if p.AccountID == accountID {
			cp := *p
			out = append(out, &cp)
		}
	}
	return out, nil
}

// ---- ActivityRepository ----

type MockActivityRepo struct {
	mu   sync.Mutex
	recs []*model.ActivityRecord

	AppendFunc    func(ctx context.Context, tx repository.Tx, rec *model.ActivityRecord) error
	CountSinceErr error
}

var _ repository.ActivityRepository = (*MockActivityRepo)(nil)

func NewMockActivityRepo() *MockActivityRepo {
	return &MockActivityRepo{}
}

func (m *MockActivityRepo) Append(ctx context.Context, tx repository.Tx, rec *model.ActivityRecord) error {
	if m.AppendFunc != nil {
		return m.AppendFunc(ctx, tx, rec)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *rec
	m.recs = append(m.recs, &cp)
	return nil
}

func (m *MockActivityRepo) CountSince(ctx context.Context, tx repository.Tx, accountID, action string, since time.Time) (int, error) {
	if m.CountSinceErr != nil {
		return 0, m.CountSinceErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, r := range m.recs {
		if r.AccountID == accountID && r.Action == action && !r.CreatedAt.Before(since) {
			n++
		}
	}
	return n, nil
}

func (m *MockActivityRepo) ListByAccount(ctx context.Context, tx repository.Tx, accountID string, limit int) ([]*model.ActivityRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.ActivityRecord
	for _, r := range m.recs {
		if r.AccountID == accountID {
			cp := *r
			out = append(out, &cp)
		}
	}
	return out, nil
}

// Records returns a snapshot for assertions.
func (m *MockActivityRepo) Records() []*model.ActivityRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*model.ActivityRecord, len(m.recs))
	copy(out, m.recs)
	return out
}

// ---- CaptureRepository ----

type MockCaptureRepo struct {
	mu    sync.Mutex
	store []*model.Capture

	SaveErr error
}

var _ repository.CaptureRepository = (*MockCaptureRepo)(nil)

func NewMockCaptureRepo() *MockCaptureRepo {
	return &MockCaptureRepo{}
}

func (m *MockCaptureRepo) Save(ctx context.Context, tx repository.Tx, c *model.Capture) error {
	if m.SaveErr != nil {
		return m.SaveErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *c
	m.store = append(m.store, &cp)
	return nil
}

func (m *MockCaptureRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Capture, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.store {
		if c.ID == id {
			cp := *c
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *MockCaptureRepo) CountByAccount(ctx context.Context, tx repository.Tx, accountID string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, c := range m.store {
		if c.AccountID == accountID {
			n++
		}
	}
	return n, nil
}

func (m *MockCaptureRepo) CountAll(ctx context.Context, tx repository.Tx) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.store), nil
}

func (m *MockCaptureRepo) ListByAccount(ctx context.Context, tx repository.Tx, accountID string, limit int) ([]*model.Capture, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.Capture
	for _, c := range m.store {
		if c.AccountID == accountID {
			cp := *c
			out = append(out, &cp)
		}
	}
	return out, nil
}

// All returns a snapshot for assertions.
func (m *MockCaptureRepo) All() []*model.Capture {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*model.Capture, len(m.store))
	copy(out, m.store)
	return out
}

// =============================
// Adapters
// =============================

type MockVision struct {
	mu           sync.Mutex
	Calls        int
	DescribeFunc func(ctx context.Context, instruction string, imagePNG []byte) (string, error)
}

var _ adapter.VisionAdapter = (*MockVision)(nil)

func (m *MockVision) Name() string { return "mock-vision" }

func (m *MockVision) Describe(ctx context.Context, instruction string, imagePNG []byte) (string, error) {
	m.mu.Lock()
	m.Calls++
	m.mu.Unlock()
	if m.DescribeFunc != nil {
		return m.DescribeFunc(ctx, instruction, imagePNG)
	}
	return "1) A\n2) B", nil
}

type MockMessenger struct {
	mu   sync.Mutex
	Sent []string // message texts, in order

	SendMessageFunc func(ctx context.Context, chatID int64, text string) error
}

var _ adapter.MessengerAdapter = (*MockMessenger)(nil)

func (m *MockMessenger) SendMessage(ctx context.Context, chatID int64, text string) error {
	if m.SendMessageFunc != nil {
		return m.SendMessageFunc(ctx, chatID, text)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Sent = append(m.Sent, text)
	return nil
}

func (m *MockMessenger) SendPhoto(ctx context.Context, chatID int64, photoPNG []byte, caption string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Sent = append(m.Sent, caption)
	return nil
}

func (m *MockMessenger) Texts() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.Sent))
	copy(out, m.Sent)
	return out
}

func (m *MockMessenger) Contains(sub string) bool {
	for _, t := range m.Texts() {
		if strings.Contains(t, sub) {
			return true
		}
	}
	return false
}

type MockVerifier struct {
	Result bool
	Calls  int
}

var _ adapter.PaymentVerifier = (*MockVerifier)(nil)

func (m *MockVerifier) Verify(paymentID, amount, status, signature string) bool {
	m.Calls++
	return m.Result
}

// =============================
// Infrastructure stand-ins
// =============================

type MockTxManager struct {
	WithTxFunc func(ctx context.Context, txOpt pgx.TxOptions, fn func(ctx context.Context, tx repository.Tx) error) error
}

var _ repository.TransactionManager = (*MockTxManager)(nil)

func NewMockTxManager() *MockTxManager { return &MockTxManager{} }

// WithTx runs the function immediately without a real transaction. Tests
// that need transactional failure injection assign WithTxFunc.
func (m *MockTxManager) WithTx(ctx context.Context, txOpt pgx.TxOptions, fn func(ctx context.Context, tx repository.Tx) error) error {
	if m.WithTxFunc != nil {
		return m.WithTxFunc(ctx, txOpt, fn)
	}
	return fn(ctx, repository.NoTX)
}

// syncDispatcher runs submitted tasks inline so tests observe their effects
// without sleeping.
type syncDispatcher struct {
	SubmitErr error
}

func (d *syncDispatcher) Submit(task func(ctx context.Context) error) error {
	if d.SubmitErr != nil {
		return d.SubmitErr
	}
	_ = task(context.Background())
	return nil
}
