// Package http exposes the ledger as a JSON API. Handlers go through a
// per-user session registry so state mutations and derived metrics share one
// authoritative in-memory ledger per user.
package http

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"financequest/internal/cache"
	"financequest/internal/ledger"
	applog "financequest/internal/log"
	"financequest/internal/middleware/ratelimit"
	"financequest/internal/middleware/security"
	"financequest/internal/middleware/trace"
	"financequest/internal/store"
)

type Server struct {
	http.Server

	store    store.Store
	sessions *sessionRegistry

	limiter  *ratelimit.Limiter
	detector *security.Detector
	headers  *security.HeadersMiddleware
	tracer   *trace.Middleware
	audit    *applog.StructuredLogger

	// Dashboard and analytics payloads are cached per user and invalidated
	// on every mutation.
	summaryCache   *cache.LRUCache[ledger.Summary]
	analyticsCache *cache.LRUCache[ledger.Analytics]
	cacheManager   *cache.Manager

	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run server.
func NewServer(addr string, st store.Store) *Server {
	mux := http.NewServeMux()

	detector := security.NewDetector()
	s := &Server{
		store:          st,
		sessions:       newSessionRegistry(st),
		limiter:        ratelimit.NewLimiter(ratelimit.DefaultConfig()),
		detector:       detector,
		headers:        security.NewHeadersMiddleware(security.DefaultHeadersConfig()),
		tracer:         trace.NewMiddleware(detector.ExtractClientIP),
		audit:          applog.NewStructuredLogger(applog.New(applog.Config{Component: applog.ComponentHTTP})),
		summaryCache:   cache.NewLRUCache[ledger.Summary](100, 5*time.Minute),
		analyticsCache: cache.NewLRUCache[ledger.Analytics](100, 5*time.Minute),
		cacheManager:   cache.NewManager(),
	}
	s.cacheManager.Register(s.summaryCache)
	s.cacheManager.Register(s.analyticsCache)
	s.cacheManager.StartCleanup(10 * time.Minute)

	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", handleReady)

	mux.HandleFunc("POST /api/register", s.handleRegister)
	mux.HandleFunc("POST /api/login", s.handleLogin)

	mux.HandleFunc("GET /api/transactions", s.withSession(s.handleListTransactions))
	mux.HandleFunc("POST /api/transactions", s.withSession(s.handleCreateTransaction))
	mux.HandleFunc("DELETE /api/transactions/{id}", s.withSession(s.handleDeleteTransaction))

	mux.HandleFunc("GET /api/goals", s.withSession(s.handleListGoals))
	mux.HandleFunc("POST /api/goals", s.withSession(s.handleCreateGoal))
	mux.HandleFunc("POST /api/goals/{id}/contribute", s.withSession(s.handleContributeGoal))
	mux.HandleFunc("DELETE /api/goals/{id}", s.withSession(s.handleDeleteGoal))

	mux.HandleFunc("GET /api/dashboard", s.withSession(s.handleDashboard))
	mux.HandleFunc("GET /api/analytics", s.withSession(s.handleAnalytics))
	mux.HandleFunc("GET /api/advice", s.withSession(s.handleAdvice))
	mux.HandleFunc("GET /api/achievements", s.withSession(s.handleAchievements))

	mux.HandleFunc("GET /api/export", s.withSession(s.handleExport))
	mux.HandleFunc("POST /api/import", s.withSession(s.handleImport))
	mux.HandleFunc("POST /api/reset", s.withSession(s.handleReset))

	s.Server = http.Server{
		Addr:    addr,
		Handler: s.tracer.Middleware(s.headers.Middleware(s.withRateLimit(mux))),
	}
	return s
}

// withRateLimit applies the per-IP limiter to mutating requests and flags
// suspicious ones. Reads stay unlimited so dashboards can poll.
func (s *Server) withRateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.detector.DetectSuspiciousRequest(r) {
			slog.WarnContext(r.Context(), "Suspicious request",
				"method", r.Method, "path", r.URL.Path,
				"client_ip", s.detector.ExtractClientIP(r))
		}
		if r.Method == http.MethodPost || r.Method == http.MethodDelete {
			clientIP := s.detector.ExtractClientIP(r)
			if !s.limiter.Allow(clientIP) {
				slog.WarnContext(r.Context(), "Rate limit exceeded",
					"client_ip", clientIP, "method", r.Method, "path", r.URL.Path)
				w.Header().Set("Retry-After", "60")
				writeError(w, http.StatusTooManyRequests, "rate limit exceeded, try again later")
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

// Shutdown gracefully shuts down the server and its background routines.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.cacheManager.Stop()
		s.limiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

func (s *Server) invalidateInsights(username string) {
	s.summaryCache.Delete(username)
	s.analyticsCache.Delete(username)
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func handleReady(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}
