package web

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"quickvision/internal/domain"
	"quickvision/internal/domain/model"
	"quickvision/internal/infra/metrics"
	"quickvision/internal/usecase"
)

func (s *Server) loginHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req struct {
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if !s.auth.CheckPassword(req.Password) {
		s.log.Warn().Str("remote", r.RemoteAddr).Msg("failed login attempt")
		http.Error(w, "Forbidden", http.StatusForbidden)
		return
	}
	token, err := s.auth.Mint(w)
	if err != nil {
		http.Error(w, "Failed to create session", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"token": token})
}

func (s *Server) logoutHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	s.auth.Clear(w)
	w.WriteHeader(http.StatusNoContent)
}

// statsHandler serves the operator dashboard summary and refreshes the
// account status gauge as a side effect.
func statsHandler(accountUC usecase.AccountUseCase) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		stats, err := accountUC.Stats(r.Context())
		if err != nil {
			http.Error(w, "Failed to get stats", http.StatusInternalServerError)
			return
		}
		metrics.SetAccountsTotal(stats.AccountsByStatus)

		response := struct {
			AccountsByStatus map[string]int `json:"accounts_by_status"`
			RevenueToday     int64          `json:"revenue_today_tiyn"`
			RevenueMonth     int64          `json:"revenue_month_tiyn"`
			CapturesTotal    int            `json:"captures_total"`
		}{
			AccountsByStatus: stats.AccountsByStatus,
			RevenueToday:     stats.RevenueToday,
			RevenueMonth:     stats.RevenueMonth,
			CapturesTotal:    stats.CapturesTotal,
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(response)
	}
}

// accountsListHandler returns a paginated account list.
// It accepts 'offset' and 'limit' query parameters.
func accountsListHandler(accountUC usecase.AccountUseCase) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
		if limit <= 0 {
			limit = 50 // Default page size
		}
		if offset < 0 {
			offset = 0
		}

		accounts, err := accountUC.List(r.Context(), limit, offset)
		if err != nil {
			http.Error(w, "Failed to list accounts", http.StatusInternalServerError)
			return
		}

		response := struct {
			Data   []*model.Account `json:"data"`
			Limit  int              `json:"limit"`
			Offset int              `json:"offset"`
		}{
			Data:   accounts,
			Limit:  limit,
			Offset: offset,
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(response)
	}
}

func accountGetHandler(accountUC usecase.AccountUseCase, id string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		details, err := accountUC.Details(r.Context(), id)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				http.NotFound(w, r)
				return
			}
			http.Error(w, "Failed to get account", http.StatusInternalServerError)
			return
		}

		response := struct {
			Account  *model.Account          `json:"account"`
			Code     *model.ActivationCode   `json:"code,omitempty"`
			Payments []*model.Payment        `json:"payments"`
			Captures int                     `json:"captures"`
			Activity []*model.ActivityRecord `json:"activity"`
		}{
			Account:  details.Account,
			Code:     details.Code,
			Payments: details.Payments,
			Captures: details.Captures,
			Activity: details.Activity,
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(response)
	}
}

func accountBlockHandler(accountUC usecase.AccountUseCase, id string, block bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var err error
		if block {
			err = accountUC.Block(r.Context(), id)
		} else {
			err = accountUC.Unblock(r.Context(), id)
		}
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				http.NotFound(w, r)
				return
			}
			http.Error(w, "Failed to change account status", http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func accountDeleteHandler(accountUC usecase.AccountUseCase, id string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := accountUC.Delete(r.Context(), id); err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				http.NotFound(w, r)
				return
			}
			http.Error(w, "Failed to delete account", http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func accountExtendHandler(accountUC usecase.AccountUseCase, id string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Hours int `json:"hours"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "Invalid request body", http.StatusBadRequest)
			return
		}

		expiresAt, err := accountUC.ExtendHours(r.Context(), id, req.Hours)
		if err != nil {
			switch {
			case errors.Is(err, domain.ErrNotFound):
				http.NotFound(w, r)
			case errors.Is(err, domain.ErrInvalidArgument):
				http.Error(w, "hours must be positive", http.StatusBadRequest)
			default:
				http.Error(w, "Failed to extend", http.StatusInternalServerError)
			}
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(struct {
			ExpiresAt time.Time `json:"expires_at"`
		}{ExpiresAt: expiresAt})
	}
}

func accountReissueHandler(accountUC usecase.AccountUseCase, id string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		code, err := accountUC.ReissueCode(r.Context(), id)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				http.NotFound(w, r)
				return
			}
			http.Error(w, "Failed to reissue code", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"code": code})
	}
}

func accountResetCodesHandler(accountUC usecase.AccountUseCase, id string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		removed, err := accountUC.ResetCodes(r.Context(), id)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				http.NotFound(w, r)
				return
			}
			http.Error(w, "Failed to reset codes", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]int{"removed": removed})
	}
}
