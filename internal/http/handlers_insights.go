package http

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"financequest/internal/ledger"
)

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request, sess *ledger.Session) {
	username := sess.Profile().Username
	if summary, ok := s.summaryCache.Get(username); ok {
		slog.DebugContext(r.Context(), "Dashboard cache hit", "username", username)
		writeJSON(w, http.StatusOK, summary)
		return
	}
	summary := sess.Summarize()
	s.summaryCache.Set(username, summary)
	writeJSON(w, http.StatusOK, summary)
}

func (s *Server) handleAnalytics(w http.ResponseWriter, r *http.Request, sess *ledger.Session) {
	username := sess.Profile().Username
	if analytics, ok := s.analyticsCache.Get(username); ok {
		slog.DebugContext(r.Context(), "Analytics cache hit", "username", username)
		writeJSON(w, http.StatusOK, analytics)
		return
	}
	analytics := sess.Analyze()
	s.analyticsCache.Set(username, analytics)
	writeJSON(w, http.StatusOK, analytics)
}

func (s *Server) handleAdvice(w http.ResponseWriter, r *http.Request, sess *ledger.Session) {
	writeJSON(w, http.StatusOK, map[string]any{
		"advice": sess.Advice(),
	})
}

func (s *Server) handleAchievements(w http.ResponseWriter, r *http.Request, sess *ledger.Session) {
	writeJSON(w, http.StatusOK, map[string]any{
		"achievements": sess.Achievements(),
	})
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request, sess *ledger.Session) {
	doc := sess.Export()
	filename := fmt.Sprintf("financequest-backup-%s.json", doc.ExportDate.Format("2006-01-02"))
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	writeJSON(w, http.StatusOK, doc)
}

func (s *Server) handleImport(w http.ResponseWriter, r *http.Request, sess *ledger.Session) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := sess.Import(r.Context(), body); err != nil {
		writeValidationError(w, err)
		return
	}
	s.invalidateInsights(sess.Profile().Username)
	writeJSON(w, http.StatusOK, map[string]any{
		"profile": sess.Profile(),
		"sync":    syncStatus(sess),
	})
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request, sess *ledger.Session) {
	sess.Reset(r.Context())
	s.invalidateInsights(sess.Profile().Username)
	writeJSON(w, http.StatusOK, map[string]any{
		"profile": sess.Profile(),
		"sync":    syncStatus(sess),
	})
}
