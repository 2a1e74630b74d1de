// Package http exposes the ledger core as a JSON API for the external
// interaction layer. The conversational flow itself lives on the other side
// of this boundary; callers arrive here with already-confirmed identities.
package http

import (
	"net/http"
	"time"

	"hisobchi/internal/middleware/trace"
	"hisobchi/internal/services"
)

type Server struct {
	users    *services.Users
	families *services.Families
	budgets  *services.Budgets
	ledger   *services.Ledger
}

func NewServer(addr string, users *services.Users, families *services.Families, budgets *services.Budgets, ledger *services.Ledger) *http.Server {
	s := &Server{
		users:    users,
		families: families,
		budgets:  budgets,
		ledger:   ledger,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", s.handleHealth)

	mux.HandleFunc("POST /api/users/{id}/language", s.handleSetLanguage)
	mux.HandleFunc("POST /api/users/{id}/greeted", s.handleMarkGreeted)
	mux.HandleFunc("GET /api/users/{id}", s.handleGetUser)
	mux.HandleFunc("POST /api/users/{id}/budget/reduce", s.handleReduceBudget)

	mux.HandleFunc("POST /api/families", s.handleCreateFamily)
	mux.HandleFunc("POST /api/families/{id}/join", s.handleJoinFamily)
	mux.HandleFunc("PUT /api/families/{id}/budget", s.handleSetFamilyBudget)

	mux.HandleFunc("POST /api/transactions", s.handleRecordTransaction)
	mux.HandleFunc("POST /api/transactions/{id}/approve", s.handleApprove)
	mux.HandleFunc("POST /api/transactions/{id}/reject", s.handleReject)
	mux.HandleFunc("GET /api/transactions", s.handleListApproved)

	return &http.Server{
		Addr:           addr,
		Handler:        trace.Middleware(mux),
		ReadTimeout:    10 * time.Second,
		WriteTimeout:   10 * time.Second,
		IdleTimeout:    60 * time.Second,
		MaxHeaderBytes: 1 << 16, // 64KB
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
