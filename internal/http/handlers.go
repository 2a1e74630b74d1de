package http

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"hisobchi/internal/core"
	"hisobchi/internal/storage"
)

type setLanguageRequest struct {
	Language string `json:"language"`
}

type createFamilyRequest struct {
	Name   string `json:"name"`
	HeadID int64  `json:"head_id"`
}

type joinFamilyRequest struct {
	UserID int64 `json:"user_id"`
}

type setFamilyBudgetRequest struct {
	CallerID int64   `json:"caller_id"`
	Amount   float64 `json:"amount"`
}

type reduceBudgetRequest struct {
	Amount float64 `json:"amount"`
}

type recordTransactionRequest struct {
	Kind     string  `json:"kind"`
	OwnerID  int64   `json:"owner_id"`
	Amount   float64 `json:"amount"`
	Currency string  `json:"currency"`
	Category string  `json:"category"`
	Comment  string  `json:"comment"`
}

type decisionRequest struct {
	CallerID int64  `json:"caller_id"`
	Kind     string `json:"kind"`
}

type familyResponse struct {
	ID     int64  `json:"family_id"`
	Name   string `json:"name"`
	HeadID int64  `json:"head_id"`
}

type userResponse struct {
	ID        int64   `json:"id"`
	Language  string  `json:"language"`
	FirstTime bool    `json:"first_time"`
	Role      string  `json:"role"`
	FamilyID  *int64  `json:"family_id,omitempty"`
	Budget    float64 `json:"budget"`
}

type transactionResponse struct {
	ID       int64     `json:"id"`
	Kind     string    `json:"kind"`
	OwnerID  int64     `json:"owner_id"`
	Date     time.Time `json:"date"`
	Amount   float64   `json:"amount"`
	Currency string    `json:"currency"`
	Category string    `json:"category"`
	Comment  string    `json:"comment"`
	FamilyID *int64    `json:"family_id,omitempty"`
	State    string    `json:"state"`
}

func toTransactionResponse(t core.Transaction) transactionResponse {
	resp := transactionResponse{
		ID:       int64(t.ID),
		Kind:     string(t.Kind),
		OwnerID:  int64(t.OwnerID),
		Date:     t.Date,
		Amount:   t.Amount,
		Currency: t.Currency,
		Category: t.Category,
		Comment:  t.Comment,
		State:    string(t.State),
	}
	if t.FamilyID != nil {
		fid := int64(*t.FamilyID)
		resp.FamilyID = &fid
	}
	return resp
}

func decodeJSON(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return core.ValidationError("invalid request body")
	}
	return nil
}

func pathID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		return 0, core.ValidationError("invalid id in path")
	}
	return id, nil
}

func (s *Server) handleSetLanguage(w http.ResponseWriter, r *http.Request) {
	userID, err := pathID(r)
	if err != nil {
		respondError(w, r, err)
		return
	}
	var req setLanguageRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, r, err)
		return
	}
	lang, err := core.ParseLanguage(req.Language)
	if err != nil {
		respondError(w, r, err)
		return
	}
	if err := s.users.SetLanguage(r.Context(), core.UserID(userID), lang); err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusNoContent, nil)
}

func (s *Server) handleMarkGreeted(w http.ResponseWriter, r *http.Request) {
	userID, err := pathID(r)
	if err != nil {
		respondError(w, r, err)
		return
	}
	if err := s.users.MarkGreeted(r.Context(), core.UserID(userID)); err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusNoContent, nil)
}

func (s *Server) handleGetUser(w http.ResponseWriter, r *http.Request) {
	userID, err := pathID(r)
	if err != nil {
		respondError(w, r, err)
		return
	}
	// Unknown users resolve to defaults rather than 404; the interaction
	// layer treats "no data" as a brand-new user.
	u, err := s.users.Get(r.Context(), core.UserID(userID))
	if err != nil {
		respondError(w, r, err)
		return
	}

	resp := userResponse{
		ID:        userID,
		Language:  string(u.Language),
		FirstTime: u.FirstTime,
		Role:      string(u.Role),
		Budget:    u.Budget,
	}
	if u.FamilyID != nil {
		fid := int64(*u.FamilyID)
		resp.FamilyID = &fid
	}
	respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleCreateFamily(w http.ResponseWriter, r *http.Request) {
	var req createFamilyRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, r, err)
		return
	}
	fam, err := s.families.Create(r.Context(), req.Name, core.UserID(req.HeadID))
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, familyResponse{
		ID:     int64(fam.ID),
		Name:   fam.Name,
		HeadID: int64(fam.HeadID),
	})
}

func (s *Server) handleJoinFamily(w http.ResponseWriter, r *http.Request) {
	familyID, err := pathID(r)
	if err != nil {
		respondError(w, r, err)
		return
	}
	var req joinFamilyRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, r, err)
		return
	}
	if err := s.families.Join(r.Context(), core.UserID(req.UserID), core.FamilyID(familyID)); err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusNoContent, nil)
}

func (s *Server) handleSetFamilyBudget(w http.ResponseWriter, r *http.Request) {
	familyID, err := pathID(r)
	if err != nil {
		respondError(w, r, err)
		return
	}
	var req setFamilyBudgetRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, r, err)
		return
	}
	members, err := s.budgets.SetFamilyBudget(r.Context(), core.UserID(req.CallerID), core.FamilyID(familyID), req.Amount)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]int64{"members_updated": members})
}

func (s *Server) handleReduceBudget(w http.ResponseWriter, r *http.Request) {
	userID, err := pathID(r)
	if err != nil {
		respondError(w, r, err)
		return
	}
	var req reduceBudgetRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, r, err)
		return
	}
	if err := s.budgets.Reduce(r.Context(), core.UserID(userID), req.Amount); err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusNoContent, nil)
}

func (s *Server) handleRecordTransaction(w http.ResponseWriter, r *http.Request) {
	var req recordTransactionRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, r, err)
		return
	}
	kind, err := core.ParseKind(req.Kind)
	if err != nil {
		respondError(w, r, err)
		return
	}
	tx, err := s.ledger.RecordTransaction(r.Context(), kind, core.UserID(req.OwnerID),
		req.Amount, req.Currency, req.Category, req.Comment)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, toTransactionResponse(tx))
}

func (s *Server) handleApprove(w http.ResponseWriter, r *http.Request) {
	s.handleDecision(w, r, s.ledger.Approve)
}

func (s *Server) handleReject(w http.ResponseWriter, r *http.Request) {
	s.handleDecision(w, r, s.ledger.Reject)
}

func (s *Server) handleDecision(w http.ResponseWriter, r *http.Request, decide func(ctx context.Context, callerID core.UserID, kind core.Kind, id core.TransactionID) error) {
	txID, err := pathID(r)
	if err != nil {
		respondError(w, r, err)
		return
	}
	var req decisionRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, r, err)
		return
	}
	kind, err := core.ParseKind(req.Kind)
	if err != nil {
		respondError(w, r, err)
		return
	}
	if err := decide(r.Context(), core.UserID(req.CallerID), kind, core.TransactionID(txID)); err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusNoContent, nil)
}

func (s *Server) handleListApproved(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	var scope storage.Scope
	switch {
	case q.Get("family_id") != "":
		id, err := strconv.ParseInt(q.Get("family_id"), 10, 64)
		if err != nil {
			respondError(w, r, core.ValidationError("invalid family_id"))
			return
		}
		scope = storage.FamilyScope(core.FamilyID(id))
	case q.Get("user_id") != "":
		id, err := strconv.ParseInt(q.Get("user_id"), 10, 64)
		if err != nil {
			respondError(w, r, core.ValidationError("invalid user_id"))
			return
		}
		scope = storage.UserScope(core.UserID(id))
	default:
		respondError(w, r, core.ValidationError("user_id or family_id is required"))
		return
	}

	txs, err := s.ledger.ListApproved(r.Context(), scope)
	if err != nil {
		respondError(w, r, err)
		return
	}
	out := make([]transactionResponse, len(txs))
	for i, t := range txs {
		out[i] = toTransactionResponse(t)
	}
	respondJSON(w, http.StatusOK, out)
}
