// Package service exposes the settlement engine over HTTP JSON endpoints.
package service

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/deepflow/settlement/internal/apperr"
	"github.com/deepflow/settlement/internal/auth"
	"github.com/deepflow/settlement/internal/expense"
	"github.com/deepflow/settlement/internal/group"
	"github.com/deepflow/settlement/internal/middleware"
	"github.com/deepflow/settlement/internal/settlement"
	"github.com/deepflow/settlement/internal/storage"
)

// Service wires the domain services into HTTP handlers.
type Service struct {
	authn       auth.Authenticator
	jwt         *auth.JWTManager
	groups      *group.Service
	expenses    *expense.Service
	settlements *settlement.Service
	store       storage.Store
}

// New creates the HTTP service.
func New(
	authn auth.Authenticator,
	jwt *auth.JWTManager,
	groups *group.Service,
	expenses *expense.Service,
	settlements *settlement.Service,
	store storage.Store,
) *Service {
	return &Service{
		authn:       authn,
		jwt:         jwt,
		groups:      groups,
		expenses:    expenses,
		settlements: settlements,
		store:       store,
	}
}

// Handler builds the route table. Everything under /api except signup and
// login requires a Bearer token.
func (s *Service) Handler() http.Handler {
	public := http.NewServeMux()
	public.HandleFunc("POST /api/auth/signup", s.handleSignup)
	public.HandleFunc("POST /api/auth/login", s.handleLogin)

	protected := http.NewServeMux()
	protected.HandleFunc("POST /api/groups", s.handleCreateGroup)
	protected.HandleFunc("GET /api/groups/{id}", s.handleGetGroup)
	protected.HandleFunc("POST /api/groups/{id}/members", s.handleAddMembers)
	protected.HandleFunc("GET /api/groups/{id}/expenses", s.handleListExpenses)
	protected.HandleFunc("GET /api/groups/{id}/total", s.handleGroupTotal)
	protected.HandleFunc("GET /api/groups/{id}/balances", s.handleGroupBalances)
	protected.HandleFunc("POST /api/expenses", s.handleCreateExpense)
	protected.HandleFunc("GET /api/expenses/{id}", s.handleGetExpense)
	protected.HandleFunc("GET /api/settlements", s.handleListSettlements)
	protected.HandleFunc("GET /api/settlements/{id}", s.handleSettlementStatus)
	protected.HandleFunc("POST /api/settlements/{id}/request", s.handleRequestSettlement)
	protected.HandleFunc("POST /api/settlements/{id}/complete", s.handleCompleteSettlement)
	protected.HandleFunc("GET /api/settlements/summary/{userId}", s.handleSettlementSummary)
	protected.HandleFunc("PUT /api/me/kakao", s.handleLinkKakao)

	mux := http.NewServeMux()
	mux.Handle("/api/auth/", public)
	mux.Handle("/api/", middleware.RequireAuth(s.jwt, protected))
	return mux
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, err error) {
	code := apperr.CodeOf(err)
	writeJSON(w, apperr.HTTPStatus(code), map[string]string{
		"code":    string(code),
		"message": err.Error(),
	})
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, apperr.Wrap(apperr.CodeInvalidInput, "invalid request body", err))
		return false
	}
	return true
}
