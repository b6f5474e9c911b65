package web

import (
	"net/http"
	"strings"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"quickvision/internal/usecase"
)

// Server is the operator API: account management, stats, and Prometheus
// scrape. It is bound to a separate port from the client-facing API.
type Server struct {
	accountUC usecase.AccountUseCase
	auth      *AuthManager
	log       *zerolog.Logger
}

func NewServer(accountUC usecase.AccountUseCase, auth *AuthManager, logger *zerolog.Logger) *Server {
	l := logger.With().Str("component", "OpsServer").Logger()
	return &Server{accountUC: accountUC, auth: auth, log: &l}
}

// RegisterRoutes sets up the routing for the operator API.
func (s *Server) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/api/v1/login", s.loginHandler)
	mux.HandleFunc("/api/v1/logout", s.logoutHandler)

	mux.Handle("/api/v1/stats", s.authMiddleware(statsHandler(s.accountUC)))

	// A single handler for all /api/v1/accounts/ routes
	accountsRouter := s.authMiddleware(s.accountsRouter())
	mux.Handle("/api/v1/accounts", accountsRouter)
	mux.Handle("/api/v1/accounts/", accountsRouter)

	// Scrape endpoint stays behind auth: the operator port is not expected
	// to be reachable from anywhere but the internal network anyway.
	mux.Handle("/metrics", s.authMiddleware(promhttp.Handler()))
}

func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, err := s.auth.ParseFromRequest(r); err != nil {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// accountsRouter dispatches /api/v1/accounts and /api/v1/accounts/{id}[/op].
func (s *Server) accountsRouter() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := strings.TrimPrefix(r.URL.Path, "/api/v1/accounts")
		path = strings.Trim(path, "/")

		if path == "" { // /api/v1/accounts
			if r.Method != http.MethodGet {
				http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
				return
			}
			accountsListHandler(s.accountUC)(w, r)
			return
		}

		parts := strings.SplitN(path, "/", 2)
		id := parts[0]
		op := ""
		if len(parts) == 2 {
			op = parts[1]
		}

		if op == "" {
			switch r.Method {
			case http.MethodGet:
				accountGetHandler(s.accountUC, id)(w, r)
			case http.MethodDelete:
				accountDeleteHandler(s.accountUC, id)(w, r)
			default:
				http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			}
			return
		}

		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		switch op {
		case "block":
			accountBlockHandler(s.accountUC, id, true)(w, r)
		case "unblock":
			accountBlockHandler(s.accountUC, id, false)(w, r)
		case "extend":
			accountExtendHandler(s.accountUC, id)(w, r)
		case "reissue-code":
			accountReissueHandler(s.accountUC, id)(w, r)
		case "reset-codes":
			accountResetCodesHandler(s.accountUC, id)(w, r)
		default:
			http.NotFound(w, r)
		}
	})
}
