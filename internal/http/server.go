package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"goaltrack/internal/cache"
	"goaltrack/internal/log"
	"goaltrack/internal/middleware/cors"
	"goaltrack/internal/middleware/trace"
	"goaltrack/internal/services"
)

type Server struct {
	http.Server
	goals       *services.GoalService
	rateLimiter *rateLimiter

	// Progress snapshots are cached per goal and invalidated by deposits
	// and deletions.
	progressCache *cache.LRUCache[string, progressResponse]
	cacheManager  *cache.Manager

	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run
// http.Server.
func NewServer(addr string, goals *services.GoalService, corsOrigins []string) *Server {
	mux := http.NewServeMux()

	s := &Server{
		goals:         goals,
		rateLimiter:   newRateLimiter(),
		progressCache: cache.NewLRUCache[string, progressResponse](500, 30*time.Second),
		cacheManager:  cache.NewManager(),
	}

	s.cacheManager.Register(s.progressCache)
	s.cacheManager.StartCleanup(10 * time.Minute)

	mux.HandleFunc("GET /api/", s.handleAPIRoot)
	mux.HandleFunc("POST /api/goals", s.withSecurity(s.handleCreateGoal))
	mux.HandleFunc("GET /api/goals", s.withSecurity(s.handleListGoals))
	mux.HandleFunc("GET /api/goals/{id}", s.withSecurity(s.handleGetGoal))
	mux.HandleFunc("DELETE /api/goals/{id}", s.withSecurity(s.handleDeleteGoal))
	mux.HandleFunc("GET /api/goals/{id}/progress", s.withSecurity(s.handleGoalProgress))
	mux.HandleFunc("POST /api/transactions", s.withSecurity(s.handleCreateTransaction))
	mux.HandleFunc("GET /api/transactions/{goalID}", s.withSecurity(s.handleListTransactions))
	mux.HandleFunc("/healthz", s.handleHealth)
	mux.HandleFunc("/readyz", s.handleReady)

	traceMW := trace.NewMiddleware(clientIP)
	httpLogger := log.New(log.Config{Component: log.ComponentHTTP})
	handler := cors.Middleware(corsOrigins)(log.Middleware(httpLogger)(traceMW.Middleware(mux)))

	s.Server = http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	return s
}

// withSecurity adds security headers and rate limits mutating requests
func (s *Server) withSecurity(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost || r.Method == http.MethodDelete {
			if !s.rateLimiter.allow(clientIP(r)) {
				w.Header().Set("Retry-After", "60")
				writeError(w, http.StatusTooManyRequests, "rate limit exceeded, try again later")
				return
			}
		}

		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")

		next(w, r)
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if err := s.goals.Ping(r.Context()); err != nil {
		writeError(w, http.StatusServiceUnavailable, "database unavailable")
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

func (s *Server) invalidateProgress(goalID string) {
	s.progressCache.Delete(goalID)
}

// Shutdown gracefully shuts down the server and its cleanup routines
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error

	s.shutdownOnce.Do(func() {
		s.cacheManager.Stop()
		s.rateLimiter.stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})

	return shutdownErr
}
