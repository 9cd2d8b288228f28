// Package http exposes the JSON API: auth, transactions, recurring
// templates, dashboard summaries and due date alerts.
package http

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"fintrack/internal/auth"
	"fintrack/internal/cache"
	"fintrack/internal/core"
	"fintrack/internal/services"
	"fintrack/internal/storage"
)

type Server struct {
	http.Server

	store        *storage.SQLiteRepository
	transactions *services.TransactionService
	alerts       *services.AlertScanner
	tokens       *auth.TokenIssuer
	rateLimiter  *rateLimiter

	// Cached per user-year-month; invalidated on any write by the
	// owning user.
	summaryCache *cache.LRUCache[*core.MonthlySummary]
	cacheManager *cache.Manager

	shutdownOnce sync.Once
}

type Options struct {
	Addr            string
	Store           *storage.SQLiteRepository
	Transactions    *services.TransactionService
	Alerts          *services.AlertScanner
	Tokens          *auth.TokenIssuer
	SummaryCacheTTL time.Duration
}

// NewServer configures routes and caches, returning a ready-to-run
// server.
func NewServer(opts Options) *Server {
	mux := http.NewServeMux()

	ttl := opts.SummaryCacheTTL
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}

	s := &Server{
		Server: http.Server{
			Addr:              opts.Addr,
			Handler:           mux,
			ReadHeaderTimeout: 10 * time.Second,
		},
		store:        opts.Store,
		transactions: opts.Transactions,
		alerts:       opts.Alerts,
		tokens:       opts.Tokens,
		rateLimiter:  newRateLimiter(),
		summaryCache: cache.NewLRUCache[*core.MonthlySummary](200, ttl),
		cacheManager: cache.NewManager(),
	}

	s.cacheManager.Register(s.summaryCache)
	s.cacheManager.StartCleanup(10 * time.Minute)

	mux.HandleFunc("GET /healthz", s.handleHealthz)
	mux.HandleFunc("GET /readyz", s.handleReadyz)

	mux.HandleFunc("POST /api/auth/register", s.public(s.handleRegister))
	mux.HandleFunc("POST /api/auth/login", s.public(s.handleLogin))
	mux.HandleFunc("GET /api/me", s.protected(s.handleMe))

	mux.HandleFunc("GET /api/transactions", s.protected(s.handleListTransactions))
	mux.HandleFunc("POST /api/transactions", s.protected(s.handleCreateTransaction))
	mux.HandleFunc("GET /api/transactions/{id}", s.protected(s.handleGetTransaction))
	mux.HandleFunc("PUT /api/transactions/{id}", s.protected(s.handleUpdateTransaction))
	mux.HandleFunc("DELETE /api/transactions/{id}", s.protected(s.handleDeleteTransaction))
	mux.HandleFunc("PUT /api/transactions/{id}/future", s.protected(s.handleUpdateFuture))
	mux.HandleFunc("DELETE /api/transactions/{id}/future", s.protected(s.handleDeleteFuture))
	mux.HandleFunc("POST /api/transactions/{id}/toggle-paid", s.protected(s.handleTogglePaid))
	mux.HandleFunc("POST /api/transactions/{id}/pay", s.protected(s.handlePay))

	mux.HandleFunc("GET /api/recurring", s.protected(s.handleListTemplates))
	mux.HandleFunc("POST /api/recurring/generate", s.protected(s.handleGenerateAll))
	mux.HandleFunc("POST /api/recurring/{id}/generate", s.protected(s.handleGenerate))

	mux.HandleFunc("GET /api/categories", s.protected(s.handleListCategories))

	mux.HandleFunc("GET /api/dashboard/summary", s.protected(s.handleSummary))
	mux.HandleFunc("GET /api/dashboard/chart-data", s.protected(s.handleChartData))
	mux.HandleFunc("GET /api/dashboard/years", s.protected(s.handleYears))

	mux.HandleFunc("GET /api/alerts/check", s.protected(s.handleAlertCheck))
	mux.HandleFunc("GET /api/alerts/upcoming", s.protected(s.handleAlertUpcoming))
	mux.HandleFunc("POST /api/alerts/{id}/dismiss", s.protected(s.handleAlertDismiss))

	return s
}

// Shutdown stops the HTTP listener and the background cleanup
// goroutines.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.cacheManager.Stop()
		s.rateLimiter.stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleReadyz(w http.ResponseWriter, r *http.Request) {
	if err := s.store.Ping(r.Context()); err != nil {
		respondJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "database unavailable"})
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func pathID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id %q", r.PathValue("id"))
	}
	return id, nil
}

func summaryCacheKey(userID int64, year, month int) string {
	return fmt.Sprintf("%d:%04d-%02d", userID, year, month)
}

func userCachePrefix(userID int64) string {
	return fmt.Sprintf("%d:", userID)
}

// invalidateSummaries drops all cached months for the user after a
// write.
func (s *Server) invalidateSummaries(userID int64) {
	s.summaryCache.DeletePrefix(userCachePrefix(userID))
}
