package apiv1

import (
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"quickvision/internal/domain"
	"quickvision/internal/domain/model"
	"quickvision/internal/infra/metrics"
	"quickvision/internal/usecase"
)

// Server is the desktop-client facing API: activation, capture, status, and
// the payment gateway callback.
type Server struct {
	activation usecase.ActivationUseCase
	capture    usecase.CaptureUseCase
	ledger     usecase.LedgerUseCase
	settlement usecase.SettlementUseCase

	maxBodyBytes int64
	log          *zerolog.Logger
}

func NewServer(
	activation usecase.ActivationUseCase,
	capture usecase.CaptureUseCase,
	ledger usecase.LedgerUseCase,
	settlement usecase.SettlementUseCase,
	maxBodyBytes int64,
	logger *zerolog.Logger,
) *Server {
	if maxBodyBytes <= 0 {
		maxBodyBytes = 10 << 20
	}
	l := logger.With().Str("component", "APIv1").Logger()
	return &Server{
		activation: activation, capture: capture,
		ledger: ledger, settlement: settlement,
		maxBodyBytes: maxBodyBytes, log: &l,
	}
}

// RegisterAPIV1 mounts all v1 routes on the router.
func RegisterAPIV1(r chi.Router, s *Server) {
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(90 * time.Second))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/activations", s.handleActivate)
		r.Get("/status", s.handleStatus)
		r.Post("/captures", s.handleCapture)
		r.Post("/payments/kaspi", s.handlePaymentCallback)
	})
}

type activateRequest struct {
	Code       string  `json:"code"`
	DeviceInfo *string `json:"device_info,omitempty"`
}

type accountViewResponse struct {
	AccountID      string     `json:"account_id"`
	Status         string     `json:"status"`
	ExpiresAt      *time.Time `json:"expires_at,omitempty"`
	HoursPurchased int        `json:"hours_purchased"`
	Entitled       bool       `json:"entitled"`
	Reinstall      bool       `json:"reinstall,omitempty"`
}

func (s *Server) handleActivate(w http.ResponseWriter, r *http.Request) {
	var req activateRequest
	if err := s.decode(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	view, err := s.activation.Redeem(r.Context(), strings.TrimSpace(req.Code), clientIP(r), req.DeviceInfo)
	if err != nil {
		if errors.Is(err, domain.ErrCodeAlreadyUsed) {
			metrics.IncActivation("conflict")
		}
		s.writeDomainError(w, r, err)
		return
	}
	if view.Reinstall {
		metrics.IncActivation("reinstall")
	} else {
		metrics.IncActivation("first_use")
	}

	writeJSON(w, http.StatusOK, accountViewResponse{
		AccountID:      view.AccountID,
		Status:         string(view.Status),
		ExpiresAt:      view.ExpiresAt,
		HoursPurchased: view.HoursPurchased,
		Entitled:       view.Entitled,
		Reinstall:      view.Reinstall,
	})
}

// handleStatus resolves an activation code to the current subscription view.
// The client polls this on startup; it never consumes the code.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	code := strings.TrimSpace(r.URL.Query().Get("code"))
	if code == "" {
		writeError(w, http.StatusBadRequest, "code is required")
		return
	}

	ac, err := s.activation.Resolve(r.Context(), code)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	acc, err := s.ledger.Get(r.Context(), ac.AccountID)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	entitled, err := s.ledger.IsEntitled(r.Context(), acc.ID)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, accountViewResponse{
		AccountID:      acc.ID,
		Status:         string(acc.Status),
		ExpiresAt:      acc.ExpiresAt,
		HoursPurchased: acc.HoursPurchased,
		Entitled:       entitled,
	})
}

type captureRequest struct {
	Code  string `json:"code"`
	Image string `json:"image"` // base64, optionally a data URL
}

type captureResponse struct {
	Answer    string `json:"answer"`
	ElapsedMs int64  `json:"elapsed_ms"`
	Notified  bool   `json:"notified"`
}

func (s *Server) handleCapture(w http.ResponseWriter, r *http.Request) {
	var req captureRequest
	if err := s.decode(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	res, err := s.capture.Process(r.Context(), strings.TrimSpace(req.Code), req.Image, clientIP(r))
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrNotFound):
			metrics.IncCaptureRejection("not_found")
		case errors.Is(err, domain.ErrBlocked):
			metrics.IncCaptureRejection("blocked")
		case errors.Is(err, domain.ErrNotEntitled):
			metrics.IncCaptureRejection("not_entitled")
		case errors.Is(err, domain.ErrRateLimited):
			metrics.IncCaptureRejection("rate_limited")
		case errors.Is(err, domain.ErrValidation):
			metrics.IncCaptureRejection("invalid_payload")
		}
		s.writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, captureResponse{
		Answer:    res.Answer,
		ElapsedMs: res.ElapsedMs,
		Notified:  res.Notified,
	})
}

// handlePaymentCallback accepts the gateway notification as either a JSON
// body or a form post, whichever the gateway is configured to send.
func (s *Server) handlePaymentCallback(w http.ResponseWriter, r *http.Request) {
	n, err := decodeNotification(r, s.maxBodyBytes)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid callback payload")
		return
	}

	outcome, err := s.settlement.HandleNotification(r.Context(), n)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	if outcome.AlreadyProcessed {
		metrics.IncPayment("duplicate")
	} else {
		metrics.IncPayment(string(outcome.Status))
		if outcome.Status == model.PaymentStatusCompleted {
			metrics.AddPaymentRevenue(outcome.Amount)
		}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"payment_id": outcome.PaymentID,
		"status":     string(outcome.Status),
	})
}

func decodeNotification(r *http.Request, maxBytes int64) (usecase.PaymentNotification, error) {
	var n usecase.PaymentNotification
	r.Body = http.MaxBytesReader(nil, r.Body, maxBytes)

	ct := r.Header.Get("Content-Type")
	if strings.HasPrefix(ct, "application/json") {
		var body struct {
			PaymentID      string `json:"payment_id"`
			Status         string `json:"status"`
			TransactionRef string `json:"txn_id"`
			Amount         string `json:"amount"`
			Signature      string `json:"sign"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			return n, err
		}
		n.PaymentID = body.PaymentID
		n.RawStatus = body.Status
		n.TransactionRef = body.TransactionRef
		n.RawAmount = body.Amount
		n.Signature = body.Signature
	} else {
		if err := r.ParseForm(); err != nil {
			return n, err
		}
		n.PaymentID = r.PostFormValue("payment_id")
		n.RawStatus = r.PostFormValue("status")
		n.TransactionRef = r.PostFormValue("txn_id")
		n.RawAmount = r.PostFormValue("amount")
		n.Signature = r.PostFormValue("sign")
	}

	n.Status = strings.ToLower(strings.TrimSpace(n.RawStatus))
	if raw := strings.TrimSpace(n.RawAmount); raw != "" {
		amount, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return n, err
		}
		n.Amount = amount
		n.HasAmount = true
	}
	return n, nil
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxBodyBytes)
	return json.NewDecoder(r.Body).Decode(dst)
}

// writeDomainError maps domain sentinels to HTTP statuses. Anything unmapped
// is a 500 and gets logged; mapped errors are the client's fault and are not.
func (s *Server) writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, "not found")
	case errors.Is(err, domain.ErrValidation), errors.Is(err, domain.ErrInvalidArgument):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrAmountMismatch):
		writeError(w, http.StatusBadRequest, "amount mismatch")
	case errors.Is(err, domain.ErrBlocked):
		writeError(w, http.StatusForbidden, "account is blocked")
	case errors.Is(err, domain.ErrNotEntitled):
		writeError(w, http.StatusForbidden, "no active subscription")
	case errors.Is(err, domain.ErrRateLimited):
		writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
	case errors.Is(err, domain.ErrCodeAlreadyUsed), errors.Is(err, domain.ErrConflict):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, domain.ErrBadSignature):
		writeError(w, http.StatusUnauthorized, "invalid signature")
	case errors.Is(err, domain.ErrInference):
		writeError(w, http.StatusBadGateway, "inference unavailable")
	default:
		s.log.Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// clientIP prefers the RealIP middleware result and falls back to the socket
// peer when the header chain is absent.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
