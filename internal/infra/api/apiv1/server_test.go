//go:build !integration

package apiv1_test

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"

	apiv1 "quickvision/internal/infra/api/apiv1"
	"quickvision/internal/usecase"

	"quickvision/internal/domain"
	"quickvision/internal/domain/model"
	"quickvision/internal/domain/ports/repository"
)

//
// ---------------- in-memory infra mocks (repos/tx) ----------------
//

type memAccountRepo struct {
	mu   sync.Mutex
	byID map[string]*model.Account
}

func newMemAccountRepo() *memAccountRepo { return &memAccountRepo{byID: map[string]*model.Account{}} }

func (m *memAccountRepo) Save(ctx context.Context, tx repository.Tx, a *model.Account) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *a
	m.byID[a.ID] = &cp
	return nil
}

func (m *memAccountRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if a, ok := m.byID[id]; ok {
		cp := *a
		return &cp, nil
	}
	return nil, domain.ErrNotFound
}

func (m *memAccountRepo) FindByChatID(ctx context.Context, tx repository.Tx, chatID int64) (*model.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.byID {
		if a.TelegramChatID == chatID {
			cp := *a
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *memAccountRepo) ExtendEntitlement(ctx context.Context, tx repository.Tx, id string, hours int) (time.Time, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.byID[id]
	if !ok {
		return time.Time{}, domain.ErrNotFound
	}
	base := time.Now()
	if a.ExpiresAt != nil && a.ExpiresAt.After(base) {
		base = *a.ExpiresAt
	}
	next := base.Add(time.Duration(hours) * time.Hour)
	a.ExpiresAt = &next
	a.Status = model.AccountStatusActive
	a.HoursPurchased += hours
	return next, nil
}

func (m *memAccountRepo) SetStatus(ctx context.Context, tx repository.Tx, id string, status model.AccountStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.byID[id]
	if !ok {
		return domain.ErrNotFound
	}
	a.Status = status
	return nil
}

func (m *memAccountRepo) MarkExpiredIfPast(ctx context.Context, tx repository.Tx, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.byID[id]
	if !ok {
		return false, domain.ErrNotFound
	}
	if a.ExpiredAt(time.Now()) {
		a.Status = model.AccountStatusExpired
		return true, nil
	}
	return false, nil
}

func (m *memAccountRepo) FindLapsed(ctx context.Context, tx repository.Tx, limit int) ([]*model.Account, error) {
	return nil, nil
}

func (m *memAccountRepo) Delete(ctx context.Context, tx repository.Tx, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.byID, id)
	return nil
}

func (m *memAccountRepo) List(ctx context.Context, tx repository.Tx, limit, offset int) ([]*model.Account, error) {
	return nil, nil
}

func (m *memAccountRepo) CountByStatus(ctx context.Context, tx repository.Tx) (map[string]int, error) {
	return map[string]int{}, nil
}

type memCodeRepo struct {
	mu     sync.Mutex
	byCode map[string]*model.ActivationCode
}

func newMemCodeRepo() *memCodeRepo { return &memCodeRepo{byCode: map[string]*model.ActivationCode{}} }

func (m *memCodeRepo) Save(ctx context.Context, tx repository.Tx, c *model.ActivationCode) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *c
	m.byCode[c.Code] = &cp
	return nil
}

func (m *memCodeRepo) FindByCode(ctx context.Context, tx repository.Tx, code string) (*model.ActivationCode, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if c, ok := m.byCode[code]; ok {
		cp := *c
		return &cp, nil
	}
	return nil, domain.ErrNotFound
}

func (m *memCodeRepo) FindUnusedByAccount(ctx context.Context, tx repository.Tx, accountID string) (*model.ActivationCode, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.byCode {
		if c.AccountID == accountID && !c.IsUsed {
			cp := *c
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *memCodeRepo) MarkUsed(ctx context.Context, tx repository.Tx, code, origin string, deviceInfo *string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.byCode[code]
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

func (m *memCodeRepo) DeleteUnusedByAccount(ctx context.Context, tx repository.Tx, accountID string) (int, error) {
	return 0, nil
}

func (m *memCodeRepo) Exists(ctx context.Context, tx repository.Tx, code string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.byCode[code]
	return ok, nil
}

type memActivityRepo struct {
	mu   sync.Mutex
	recs []*model.ActivityRecord
}

func (m *memActivityRepo) Append(ctx context.Context, tx repository.Tx, rec *model.ActivityRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *rec
	m.recs = append(m.recs, &cp)
	return nil
}

func (m *memActivityRepo) CountSince(ctx context.Context, tx repository.Tx, accountID, action string, since time.Time) (int, error) {
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

func (m *memActivityRepo) ListByAccount(ctx context.Context, tx repository.Tx, accountID string, limit int) ([]*model.ActivityRecord, error) {
	return nil, nil
}

type memCaptureRepo struct {
	mu    sync.Mutex
	saved []*model.Capture
}

func (m *memCaptureRepo) Save(ctx context.Context, tx repository.Tx, c *model.Capture) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *c
	m.saved = append(m.saved, &cp)
	return nil
}

func (m *memCaptureRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Capture, error) {
	return nil, domain.ErrNotFound
}

func (m *memCaptureRepo) CountByAccount(ctx context.Context, tx repository.Tx, accountID string) (int, error) {
	return 0, nil
}

func (m *memCaptureRepo) CountAll(ctx context.Context, tx repository.Tx) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.saved), nil
}

func (m *memCaptureRepo) ListByAccount(ctx context.Context, tx repository.Tx, accountID string, limit int) ([]*model.Capture, error) {
	return nil, nil
}

type memPaymentRepo struct {
	mu   sync.Mutex
	byID map[string]*model.Payment
}

func newMemPaymentRepo() *memPaymentRepo { return &memPaymentRepo{byID: map[string]*model.Payment{}} }

func (m *memPaymentRepo) Save(ctx context.Context, tx repository.Tx, p *model.Payment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *p
	m.byID[p.ID] = &cp
	return nil
}

func (m *memPaymentRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Payment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p, ok := m.byID[id]; ok {
		cp := *p
		return &cp, nil
	}
	return nil, domain.ErrNotFound
}

func (m *memPaymentRepo) UpdateStatusIfPending(ctx context.Context, tx repository.Tx, id string, status model.PaymentStatus, transactionRef *string, completedAt *time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.byID[id]
	if !ok || p.Status != model.PaymentStatusPending {
		return false, nil
	}
	p.Status = status
	p.TransactionRef = transactionRef
	p.CompletedAt = completedAt
	return true, nil
}

func (m *memPaymentRepo) UpdateStatusIfCompleted(ctx context.Context, tx repository.Tx, id string, transactionRef *string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.byID[id]
	if !ok || p.Status != model.PaymentStatusCompleted {
		return false, nil
	}
	p.Status = model.PaymentStatusRefunded
	return true, nil
}

func (m *memPaymentRepo) SumCompletedSince(ctx context.Context, tx repository.Tx, since time.Time) (int64, error) {
	return 0, nil
}

func (m *memPaymentRepo) ListByAccount(ctx context.Context, tx repository.Tx, accountID string, limit int) ([]*model.Payment, error) {
	return nil, nil
}

type mockTxManager struct{}

func (m *mockTxManager) WithTx(ctx context.Context, _ pgx.TxOptions, fn func(ctx context.Context, tx repository.Tx) error) error {
	return fn(ctx, repository.NoTX)
}

type stubVision struct{ reply string }

func (s *stubVision) Name() string { return "stub" }
func (s *stubVision) Describe(ctx context.Context, instruction string, imagePNG []byte) (string, error) {
	return s.reply, nil
}

type stubMessenger struct{}

func (s *stubMessenger) SendMessage(ctx context.Context, chatID int64, text string) error { return nil }
func (s *stubMessenger) SendPhoto(ctx context.Context, chatID int64, photoPNG []byte, caption string) error {
	return nil
}

type stubVerifier struct{ ok bool }

func (s *stubVerifier) Verify(paymentID, amount, status, signature string) bool { return s.ok }

type inlineDispatcher struct{}

func (inlineDispatcher) Submit(task func(ctx context.Context) error) error {
	return task(context.Background())
}

//
// -------------------- test helpers --------------------
//

func newLogger() *zerolog.Logger { l := zerolog.Nop(); return &l }

type apiFixture struct {
	router   *chi.Mux
	accounts *memAccountRepo
	codes    *memCodeRepo
	payments *memPaymentRepo
	verifier *stubVerifier
}

func newAPIFixture(t *testing.T) *apiFixture {
	t.Helper()

	accounts := newMemAccountRepo()
	codes := newMemCodeRepo()
	payments := newMemPaymentRepo()
	activity := &memActivityRepo{}
	captures := &memCaptureRepo{}
	verifier := &stubVerifier{ok: true}
	logger := newLogger()

	ledger := usecase.NewLedgerUseCase(accounts, logger)
	activation := usecase.NewActivationUseCase(codes, accounts, activity, logger)
	gate := usecase.NewAdmissionGate(activity)
	notifier := usecase.NewNotificationUseCase(&stubMessenger{}, "https://example.test", logger)
	capture := usecase.NewCaptureUseCase(
		activation, ledger, gate, activity, captures,
		&stubVision{reply: "1) A\n2) B"}, notifier,
		"answers only", 1<<20, 10, 50, logger,
	)
	settlement := usecase.NewSettlementUseCase(
		payments, accounts, activity, ledger, activation, verifier,
		notifier, inlineDispatcher{}, &mockTxManager{}, logger,
	)

	r := chi.NewRouter()
	srv := apiv1.NewServer(activation, capture, ledger, settlement, 1<<20, logger)
	apiv1.RegisterAPIV1(r, srv)

	return &apiFixture{router: r, accounts: accounts, codes: codes, payments: payments, verifier: verifier}
}

// seedEntitled creates an active account with a future expiry and an unused
// activation code for it.
func (f *apiFixture) seedEntitled(t *testing.T, code string) *model.Account {
	t.Helper()
	acc, err := model.NewAccount("", 777, "tester")
	if err != nil {
		t.Fatalf("new account: %v", err)
	}
	exp := time.Now().Add(12 * time.Hour)
	acc.ExpiresAt = &exp
	if err := f.accounts.Save(context.Background(), repository.NoTX, acc); err != nil {
		t.Fatalf("save account: %v", err)
	}
	f.codes.Save(context.Background(), repository.NoTX, &model.ActivationCode{
		ID: "code-1", Code: code, AccountID: acc.ID, CreatedAt: time.Now(),
	})
	return acc
}

func (f *apiFixture) postJSON(t *testing.T, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	b, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(b))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func pngBase64() string {
	return base64.StdEncoding.EncodeToString([]byte("fake-png-bytes-for-tests"))
}

//
// -------------------- tests --------------------
//

func TestActivations_AllPaths(t *testing.T) {
	t.Run("first redemption returns 200 and entitled view", func(t *testing.T) {
		f := newAPIFixture(t)
		f.seedEntitled(t, "AAAA-BBBB-CCCC")

		rec := f.postJSON(t, "/api/v1/activations", map[string]any{"code": "AAAA-BBBB-CCCC"})
		if rec.Code != http.StatusOK {
			t.Fatalf("want 200, got %d, body=%s", rec.Code, rec.Body.String())
		}
		var resp struct {
			AccountID string `json:"account_id"`
			Entitled  bool   `json:"entitled"`
			Reinstall bool   `json:"reinstall"`
		}
		if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if resp.AccountID == "" || !resp.Entitled || resp.Reinstall {
			t.Fatalf("unexpected view: %+v", resp)
		}
	})

	t.Run("repeat from same origin is a reinstall", func(t *testing.T) {
		f := newAPIFixture(t)
		f.seedEntitled(t, "AAAA-BBBB-CCCC")

		if rec := f.postJSON(t, "/api/v1/activations", map[string]any{"code": "AAAA-BBBB-CCCC"}); rec.Code != http.StatusOK {
			t.Fatalf("first redeem: got %d", rec.Code)
		}
		rec := f.postJSON(t, "/api/v1/activations", map[string]any{"code": "AAAA-BBBB-CCCC"})
		if rec.Code != http.StatusOK {
			t.Fatalf("want 200, got %d, body=%s", rec.Code, rec.Body.String())
		}
		var resp struct {
			Reinstall bool `json:"reinstall"`
		}
		json.Unmarshal(rec.Body.Bytes(), &resp)
		if !resp.Reinstall {
			t.Fatal("expected reinstall flag on same-origin repeat")
		}
	})

	t.Run("redeem from another origin -> 409", func(t *testing.T) {
		f := newAPIFixture(t)
		f.seedEntitled(t, "AAAA-BBBB-CCCC")

		// Bind to a different origin directly, then redeem over HTTP.
		other := "10.9.9.9"
		f.codes.MarkUsed(context.Background(), repository.NoTX, "AAAA-BBBB-CCCC", other, nil)

		rec := f.postJSON(t, "/api/v1/activations", map[string]any{"code": "AAAA-BBBB-CCCC"})
		if rec.Code != http.StatusConflict {
			t.Fatalf("want 409, got %d, body=%s", rec.Code, rec.Body.String())
		}
	})

	t.Run("unknown code -> 404", func(t *testing.T) {
		f := newAPIFixture(t)
		rec := f.postJSON(t, "/api/v1/activations", map[string]any{"code": "ZZZZ-ZZZZ-ZZZZ"})
		if rec.Code != http.StatusNotFound {
			t.Fatalf("want 404, got %d", rec.Code)
		}
	})

	t.Run("missing body -> 400", func(t *testing.T) {
		f := newAPIFixture(t)
		req := httptest.NewRequest(http.MethodPost, "/api/v1/activations", nil)
		rec := httptest.NewRecorder()
		f.router.ServeHTTP(rec, req)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("want 400, got %d", rec.Code)
		}
	})
}

func TestStatus_AllPaths(t *testing.T) {
	t.Run("known code returns the subscription view", func(t *testing.T) {
		f := newAPIFixture(t)
		f.seedEntitled(t, "AAAA-BBBB-CCCC")

		req := httptest.NewRequest(http.MethodGet, "/api/v1/status?code=AAAA-BBBB-CCCC", nil)
		rec := httptest.NewRecorder()
		f.router.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("want 200, got %d, body=%s", rec.Code, rec.Body.String())
		}
		var resp struct {
			Status   string `json:"status"`
			Entitled bool   `json:"entitled"`
		}
		json.Unmarshal(rec.Body.Bytes(), &resp)
		if resp.Status != "active" || !resp.Entitled {
			t.Fatalf("unexpected status view: %+v", resp)
		}
	})

	t.Run("missing code -> 400", func(t *testing.T) {
		f := newAPIFixture(t)
		req := httptest.NewRequest(http.MethodGet, "/api/v1/status", nil)
		rec := httptest.NewRecorder()
		f.router.ServeHTTP(rec, req)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("want 400, got %d", rec.Code)
		}
	})

	t.Run("unknown code -> 404", func(t *testing.T) {
		f := newAPIFixture(t)
		req := httptest.NewRequest(http.MethodGet, "/api/v1/status?code=NOPE", nil)
		rec := httptest.NewRecorder()
		f.router.ServeHTTP(rec, req)
		if rec.Code != http.StatusNotFound {
			t.Fatalf("want 404, got %d", rec.Code)
		}
	})
}

func TestCaptures_AllPaths(t *testing.T) {
	t.Run("entitled code gets a compact answer", func(t *testing.T) {
		f := newAPIFixture(t)
		f.seedEntitled(t, "AAAA-BBBB-CCCC")

		rec := f.postJSON(t, "/api/v1/captures", map[string]any{
			"code": "AAAA-BBBB-CCCC", "image": pngBase64(),
		})
		if rec.Code != http.StatusOK {
			t.Fatalf("want 200, got %d, body=%s", rec.Code, rec.Body.String())
		}
		var resp struct {
			Answer   string `json:"answer"`
			Notified bool   `json:"notified"`
		}
		json.Unmarshal(rec.Body.Bytes(), &resp)
		if resp.Answer != "1:A 2:B" {
			t.Fatalf("answer mismatch: %q", resp.Answer)
		}
		if !resp.Notified {
			t.Fatal("expected notified flag")
		}
	})

	t.Run("lapsed subscription -> 403", func(t *testing.T) {
		f := newAPIFixture(t)
		acc := f.seedEntitled(t, "AAAA-BBBB-CCCC")
		past := time.Now().Add(-time.Hour)
		acc.ExpiresAt = &past
		f.accounts.Save(context.Background(), repository.NoTX, acc)

		rec := f.postJSON(t, "/api/v1/captures", map[string]any{
			"code": "AAAA-BBBB-CCCC", "image": pngBase64(),
		})
		if rec.Code != http.StatusForbidden {
			t.Fatalf("want 403, got %d, body=%s", rec.Code, rec.Body.String())
		}
	})

	t.Run("blocked account -> 403", func(t *testing.T) {
		f := newAPIFixture(t)
		acc := f.seedEntitled(t, "AAAA-BBBB-CCCC")
		f.accounts.SetStatus(context.Background(), repository.NoTX, acc.ID, model.AccountStatusBlocked)

		rec := f.postJSON(t, "/api/v1/captures", map[string]any{
			"code": "AAAA-BBBB-CCCC", "image": pngBase64(),
		})
		if rec.Code != http.StatusForbidden {
			t.Fatalf("want 403, got %d", rec.Code)
		}
	})

	t.Run("malformed base64 -> 400", func(t *testing.T) {
		f := newAPIFixture(t)
		f.seedEntitled(t, "AAAA-BBBB-CCCC")

		rec := f.postJSON(t, "/api/v1/captures", map[string]any{
			"code": "AAAA-BBBB-CCCC", "image": "!!!not-base64!!!",
		})
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("want 400, got %d, body=%s", rec.Code, rec.Body.String())
		}
	})

	t.Run("unknown code -> 404", func(t *testing.T) {
		f := newAPIFixture(t)
		rec := f.postJSON(t, "/api/v1/captures", map[string]any{
			"code": "NOPE", "image": pngBase64(),
		})
		if rec.Code != http.StatusNotFound {
			t.Fatalf("want 404, got %d", rec.Code)
		}
	})
}

func TestPaymentCallback_AllPaths(t *testing.T) {
	seedPending := func(t *testing.T, f *apiFixture) (*model.Account, *model.Payment) {
		t.Helper()
		acc := f.seedEntitled(t, "AAAA-BBBB-CCCC")
		p := &model.Payment{
			ID: "pay-1", AccountID: acc.ID, Amount: 500000, Hours: 24,
			Method: "kaspi", Status: model.PaymentStatusPending, CreatedAt: time.Now(),
		}
		f.payments.Save(context.Background(), repository.NoTX, p)
		return acc, p
	}

	postForm := func(t *testing.T, f *apiFixture, values url.Values) *httptest.ResponseRecorder {
		t.Helper()
		req := httptest.NewRequest(http.MethodPost, "/api/v1/payments/kaspi",
			strings.NewReader(values.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		rec := httptest.NewRecorder()
		f.router.ServeHTTP(rec, req)
		return rec
	}

	t.Run("form callback settles the payment", func(t *testing.T) {
		f := newAPIFixture(t)
		_, p := seedPending(t, f)

		rec := postForm(t, f, url.Values{
			"payment_id": {p.ID},
			"status":     {"completed"},
			"amount":     {"5000.00"},
			"txn_id":     {"txn-42"},
			"sign":       {"stub"},
		})
		if rec.Code != http.StatusOK {
			t.Fatalf("want 200, got %d, body=%s", rec.Code, rec.Body.String())
		}
		var resp struct {
			Status string `json:"status"`
		}
		json.Unmarshal(rec.Body.Bytes(), &resp)
		if resp.Status != "completed" {
			t.Fatalf("status mismatch: %q", resp.Status)
		}

		got, _ := f.payments.FindByID(context.Background(), repository.NoTX, p.ID)
		if got.Status != model.PaymentStatusCompleted {
			t.Fatalf("payment not settled: %s", got.Status)
		}
	})

	t.Run("json callback settles the payment", func(t *testing.T) {
		f := newAPIFixture(t)
		_, p := seedPending(t, f)

		rec := f.postJSON(t, "/api/v1/payments/kaspi", map[string]any{
			"payment_id": p.ID, "status": "completed", "amount": "5000.00", "sign": "stub",
		})
		if rec.Code != http.StatusOK {
			t.Fatalf("want 200, got %d, body=%s", rec.Code, rec.Body.String())
		}
	})

	t.Run("bad signature -> 401", func(t *testing.T) {
		f := newAPIFixture(t)
		_, p := seedPending(t, f)
		f.verifier.ok = false

		rec := postForm(t, f, url.Values{
			"payment_id": {p.ID},
			"status":     {"completed"},
			"amount":     {"5000.00"},
			"sign":       {"forged"},
		})
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("want 401, got %d", rec.Code)
		}
	})

	t.Run("amount mismatch -> 400", func(t *testing.T) {
		f := newAPIFixture(t)
		_, p := seedPending(t, f)

		rec := postForm(t, f, url.Values{
			"payment_id": {p.ID},
			"status":     {"completed"},
			"amount":     {"4999.50"},
			"sign":       {"stub"},
		})
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("want 400, got %d, body=%s", rec.Code, rec.Body.String())
		}
	})

	t.Run("unknown payment -> 404", func(t *testing.T) {
		f := newAPIFixture(t)
		rec := postForm(t, f, url.Values{
			"payment_id": {"missing"},
			"status":     {"completed"},
		})
		if rec.Code != http.StatusNotFound {
			t.Fatalf("want 404, got %d", rec.Code)
		}
	})

	t.Run("missing payment_id -> 400", func(t *testing.T) {
		f := newAPIFixture(t)
		rec := postForm(t, f, url.Values{"status": {"completed"}})
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("want 400, got %d", rec.Code)
		}
	})
}
