package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"financequest/internal/core"
	"financequest/internal/ledger"
	"financequest/internal/store"
)

// maxBodyBytes bounds request bodies; backup imports are the largest payload.
const maxBodyBytes = 4 << 20

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// decodeJSON reads a bounded JSON body into dst.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	return json.NewDecoder(r.Body).Decode(dst)
}

// writeValidationError maps domain validation failures to 422 and everything
// else to 400.
func writeValidationError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, core.ErrInvalidAmount),
		errors.Is(err, core.ErrInvalidKind),
		errors.Is(err, core.ErrEmptyName),
		errors.Is(err, core.ErrEmptyUsername),
		errors.Is(err, core.ErrPastTargetDate),
		errors.Is(err, core.ErrPasswordTooShort),
		errors.Is(err, core.ErrPasswordMismatch),
		errors.Is(err, core.ErrDuplicateUsername):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, ledger.ErrGoalNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, ledger.ErrInvalidDocument):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	default:
		writeError(w, http.StatusBadRequest, err.Error())
	}
}

// writeStoreError maps backend lookup failures.
func writeStoreError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, "unknown user")
	case errors.Is(err, core.ErrBadCredentials):
		writeError(w, http.StatusUnauthorized, "invalid username or password")
	default:
		slog.ErrorContext(r.Context(), "Backend error", "error", err, "path", r.URL.Path)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

// syncStatus reports whether the session has unsynced writes. Persistence is
// optimistic: a failed write never fails the request, it just flips the flag.
func syncStatus(sess *ledger.Session) string {
	if sess.Pending() {
		return "pending"
	}
	return "ok"
}
