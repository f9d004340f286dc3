// internal/httpserver/routes_games.go
//
// HTTP routes for the points ledger, mounted under /api/games:
//   - GET  /api/games/points    → current balance
//   - GET  /api/games/history   → recent matches, newest first
//   - POST /api/games/withdraw  → request a cash-out (minimum enforced)
//
// All three require auth. Match outcomes themselves are settled by the
// realtime arena; these routes only read and withdraw.

package httpserver

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/arcadeduel/server/internal/ledger"
)

// mountGames registers the gated ledger routes.
func (s *Server) mountGames(r chi.Router) {
	r.Route("/api/games", func(r chi.Router) {
		r.Use(s.requireAuth())
		r.Get("/points", s.handlePoints)
		r.Get("/history", s.handleHistory)
		r.Post("/withdraw", s.handleWithdraw)
	})
}

// handlePoints returns the caller's current balance.
func (s *Server) handlePoints(w http.ResponseWriter, r *http.Request) {
	me, _ := r.Context().Value(ctxUserKey{}).(*authUser)
	if me == nil {
		http.Error(w, `{"error":"Unauthorized"}`, http.StatusUnauthorized)
		return
	}
	points, err := s.ledger.GetPoints(r.Context(), me.ID)
	if err != nil {
		http.Error(w, `{"error":"db_error"}`, http.StatusInternalServerError)
		return
	}
	_ = json.NewEncoder(w).Encode(map[string]int{"points": points})
}

// handleHistory returns the caller's recent matches. Supports ?limit=N,
// capped server-side by the ledger default.
func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	me, _ := r.Context().Value(ctxUserKey{}).(*authUser)
	if me == nil {
		http.Error(w, `{"error":"Unauthorized"}`, http.StatusUnauthorized)
		return
	}
	limit := 20
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 100 {
			limit = n
		}
	}
	rows, err := s.ledger.History(r.Context(), me.ID, limit)
	if err != nil {
		http.Error(w, `{"error":"db_error"}`, http.StatusInternalServerError)
		return
	}
	_ = json.NewEncoder(w).Encode(map[string]any{"history": rows})
}

// withdrawReq is the request payload for POST /api/games/withdraw.
type withdrawReq struct {
	Amount int `json:"amount"`
}

// handleWithdraw debits a pending cash-out and returns the new balance.
func (s *Server) handleWithdraw(w http.ResponseWriter, r *http.Request) {
	me, _ := r.Context().Value(ctxUserKey{}).(*authUser)
	if me == nil {
		http.Error(w, `{"error":"Unauthorized"}`, http.StatusUnauthorized)
		return
	}
	var body withdrawReq
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, `{"error":"invalid_json"}`, http.StatusBadRequest)
		return
	}
	balance, err := s.ledger.Withdraw(r.Context(), me.ID, body.Amount)
	switch {
	case errors.Is(err, ledger.ErrBelowMinWithdrawal), errors.Is(err, ledger.ErrInsufficientPoints):
		http.Error(w, `{"error":"`+err.Error()+`"}`, http.StatusBadRequest)
		return
	case err != nil:
		http.Error(w, `{"error":"db_error"}`, http.StatusInternalServerError)
		return
	}
	_ = json.NewEncoder(w).Encode(map[string]any{"ok": true, "points": balance})
}
