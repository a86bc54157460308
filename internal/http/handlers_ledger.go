package http

import (
	"net/http"
	"time"

	"financequest/internal/core"
	"financequest/internal/ledger"
)

type createTransactionRequest struct {
	Type        string    `json:"type"`
	Amount      int64     `json:"amount"`
	Description string    `json:"description"`
	Category    string    `json:"category"`
	Date        core.Date `json:"date"`
}

type createGoalRequest struct {
	Name         string    `json:"name"`
	TargetAmount int64     `json:"targetAmount"`
	SavedAmount  int64     `json:"savedAmount"`
	TargetDate   core.Date `json:"targetDate"`
	Icon         string    `json:"icon"`
}

type contributeRequest struct {
	Amount int64 `json:"amount"`
}

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request, sess *ledger.Session) {
	writeJSON(w, http.StatusOK, map[string]any{
		"transactions": sess.Transactions(),
	})
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request, sess *ledger.Session) {
	var req createTransactionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Date.IsZero() {
		req.Date = core.DateOf(time.Now())
	}
	tx, err := sess.AddTransaction(r.Context(), core.TransactionKind(req.Type), req.Amount, req.Description, req.Category, req.Date)
	if err != nil {
		writeValidationError(w, err)
		return
	}
	username := sess.Profile().Username
	s.audit.LogTransactionRecorded(r.Context(), username, string(tx.Kind), tx.Amount, tx.Category)
	s.invalidateInsights(username)
	writeJSON(w, http.StatusCreated, map[string]any{
		"transaction": tx,
		"profile":     sess.Profile(),
		"sync":        syncStatus(sess),
	})
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request, sess *ledger.Session) {
	sess.DeleteTransaction(r.Context(), r.PathValue("id"))
	s.invalidateInsights(sess.Profile().Username)
	writeJSON(w, http.StatusOK, map[string]any{
		"sync": syncStatus(sess),
	})
}

func (s *Server) handleListGoals(w http.ResponseWriter, r *http.Request, sess *ledger.Session) {
	writeJSON(w, http.StatusOK, map[string]any{
		"goals": sess.Goals(),
	})
}

func (s *Server) handleCreateGoal(w http.ResponseWriter, r *http.Request, sess *ledger.Session) {
	var req createGoalRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	g, err := sess.AddGoal(r.Context(), req.Name, req.TargetAmount, req.SavedAmount, req.TargetDate, req.Icon)
	if err != nil {
		writeValidationError(w, err)
		return
	}
	s.invalidateInsights(sess.Profile().Username)
	writeJSON(w, http.StatusCreated, map[string]any{
		"goal":    g,
		"profile": sess.Profile(),
		"sync":    syncStatus(sess),
	})
}

func (s *Server) handleContributeGoal(w http.ResponseWriter, r *http.Request, sess *ledger.Session) {
	var req contributeRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	g, err := sess.ContributeToGoal(r.Context(), r.PathValue("id"), req.Amount)
	if err != nil {
		writeValidationError(w, err)
		return
	}
	s.invalidateInsights(sess.Profile().Username)
	writeJSON(w, http.StatusOK, map[string]any{
		"goal":    g,
		"profile": sess.Profile(),
		"sync":    syncStatus(sess),
	})
}

func (s *Server) handleDeleteGoal(w http.ResponseWriter, r *http.Request, sess *ledger.Session) {
	sess.DeleteGoal(r.Context(), r.PathValue("id"))
	s.invalidateInsights(sess.Profile().Username)
	writeJSON(w, http.StatusOK, map[string]any{
		"sync": syncStatus(sess),
	})
}
