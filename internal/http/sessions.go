package http

import (
	"context"
	"net/http"
	"strings"
	"sync"

	"financequest/internal/ledger"
	"financequest/internal/store"
)

// sessionRegistry keeps one live ledger session per user. Sessions are
// loaded lazily from the backend and kept for the lifetime of the process.
type sessionRegistry struct {
	mu       sync.Mutex
	store    store.Store
	sessions map[string]*ledger.Session
}

func newSessionRegistry(st store.Store) *sessionRegistry {
	return &sessionRegistry{
		store:    st,
		sessions: make(map[string]*ledger.Session),
	}
}

// get returns the live session for username, hydrating it from the backend
// on first use.
func (r *sessionRegistry) get(ctx context.Context, username string) (*ledger.Session, error) {
	username = strings.ToLower(strings.TrimSpace(username))

	r.mu.Lock()
	defer r.mu.Unlock()
	if sess, ok := r.sessions[username]; ok {
		return sess, nil
	}
	sess, err := ledger.Load(ctx, r.store, username)
	if err != nil {
		return nil, err
	}
	r.sessions[username] = sess
	return sess, nil
}

// drop evicts a session so the next request reloads from the backend.
func (r *sessionRegistry) drop(username string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, strings.ToLower(strings.TrimSpace(username)))
}

// sessionHandler is a handler that already has the caller's session resolved.
type sessionHandler func(w http.ResponseWriter, r *http.Request, sess *ledger.Session)

// withSession resolves the calling user from the X-Username header (or the
// username query parameter) and hands the handler a live session. Transport
// authentication is left to the deployment; the API trusts the header the
// way the original client trusted its local storage.
func (s *Server) withSession(next sessionHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		username := strings.TrimSpace(r.Header.Get("X-Username"))
		if username == "" {
			username = strings.TrimSpace(r.URL.Query().Get("username"))
		}
		if username == "" {
			writeError(w, http.StatusUnauthorized, "missing username")
			return
		}
		sess, err := s.sessions.get(r.Context(), username)
		if err != nil {
			writeStoreError(w, r, err)
			return
		}
		next(w, r, sess)
	}
}
