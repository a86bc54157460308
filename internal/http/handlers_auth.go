package http

import (
	"net/http"

	"financequest/internal/core"
)

type registerRequest struct {
	Name            string `json:"name"`
	Username        string `json:"username"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirmPassword"`
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := core.ValidateRegistration(req.Name, req.Username, req.Password, req.ConfirmPassword); err != nil {
		writeValidationError(w, err)
		return
	}
	if err := s.store.CreateUser(r.Context(), req.Name, req.Username, req.Password); err != nil {
		writeValidationError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"profile": core.NewProfile(req.Name, req.Username),
	})
}

// handleLogin authenticates and starts the session: the streak evaluation
// runs here, so the first login of a day moves the streak.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if _, err := s.store.Authenticate(r.Context(), req.Username, req.Password); err != nil {
		writeStoreError(w, r, err)
		return
	}
	sess, err := s.sessions.get(r.Context(), req.Username)
	if err != nil {
		writeStoreError(w, r, err)
		return
	}
	profile := sess.Start(r.Context())
	s.invalidateInsights(profile.Username)
	writeJSON(w, http.StatusOK, map[string]any{
		"profile": profile,
		"sync":    syncStatus(sess),
	})
}
