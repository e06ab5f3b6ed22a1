// Package http serves the aggregation engine, the record lookups and
// generation runs as a JSON API.
package http

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"datainsight/internal/analytics"
	"datainsight/internal/cache"
	"datainsight/internal/core"
	"datainsight/internal/log"
	"datainsight/internal/middleware/ratelimit"
	"datainsight/internal/middleware/security"
	"datainsight/internal/middleware/trace"
	"datainsight/internal/records"
	"datainsight/internal/services"
)

const (
	reportCacheSize      = 32
	cacheCleanupInterval = 10 * time.Minute
)

// RunGenerator runs generation jobs.
type RunGenerator interface {
	Run(ctx context.Context, params services.GenerationParams) (services.RunSummary, error)
}

// RecordLookup is the read and delete surface of the record store used by the API.
type RecordLookup interface {
	records.Lookup
	records.ClientReader
}

// Deps are the collaborators of the API server.
type Deps struct {
	Engine     *analytics.Engine
	Generation RunGenerator
	Records    RecordLookup
	Ping       func(ctx context.Context) error

	Report    analytics.ReportOptions
	CacheTTL  time.Duration
	RateLimit ratelimit.Config
	Logger    *log.Logger
}

type Server struct {
	http.Server

	engine  *analytics.Engine
	gen     RunGenerator
	records RecordLookup
	ping    func(ctx context.Context) error
	report  analytics.ReportOptions

	reportCache  *cache.LRUCache[core.Report]
	reportMu     sync.Mutex
	reportEpoch  uint64 // bumped by InvalidateReports
	cacheManager *cache.Manager
	limiter      *ratelimit.Limiter
	detector     *security.Detector
	tracer       *trace.Middleware

	logger     *slog.Logger
	structured *log.StructuredLogger

	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run server.
func NewServer(addr string, deps Deps) *Server {
	logger := deps.Logger
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	httpLogger := logger.WithComponent(log.ComponentHTTP)

	ttl := deps.CacheTTL
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	ping := deps.Ping
	if ping == nil {
		ping = func(context.Context) error { return nil }
	}

	detector := security.NewDetector()
	s := &Server{
		engine:       deps.Engine,
		gen:          deps.Generation,
		records:      deps.Records,
		ping:         ping,
		report:       deps.Report,
		reportCache:  cache.NewLRUCache[core.Report](reportCacheSize, ttl),
		cacheManager: cache.NewManager(logger.WithComponent(log.ComponentCache).Slog()),
		limiter:      ratelimit.NewLimiter(deps.RateLimit),
		detector:     detector,
		tracer:       trace.NewMiddleware(detector.ExtractClientIP, logger),
		logger:       httpLogger.Slog(),
		structured:   log.NewStructuredLogger(httpLogger),
	}
	s.cacheManager.Register(s.reportCache)
	s.cacheManager.StartCleanup(cacheCleanupInterval)

	s.Server = http.Server{
		Addr:              addr,
		Handler:           s.middleware(httpLogger, s.routes()),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

func (s *Server) routes() *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.HandleFunc("GET /api/metrics", s.handleMetrics)

	mux.HandleFunc("GET /api/stats/overview", s.handleOverview)
	mux.HandleFunc("GET /api/stats/revenue-by-country", s.handleRevenueByCountry)
	mux.HandleFunc("GET /api/stats/revenue-by-category", s.handleRevenueByCategory)
	mux.HandleFunc("GET /api/stats/top-clients", s.handleTopClients)
	mux.HandleFunc("GET /api/stats/sales-by-month", s.handleSalesByMonth)
	mux.HandleFunc("GET /api/stats/sales-by-day", s.handleSalesByDay)
	mux.HandleFunc("GET /api/stats/clients-by-country", s.handleClientsByCountry)
	mux.HandleFunc("GET /api/stats/clients-by-profession", s.handleClientsByProfession)
	mux.HandleFunc("GET /api/stats/age-by-country", s.handleAgeByCountry)
	mux.HandleFunc("GET /api/stats/report", s.handleReport)

	limited := s.limiter.Middleware(s.detector.ExtractClientIP, s.onRateLimit)
	mux.Handle("POST /api/generate", limited(http.HandlerFunc(s.handleGenerate)))

	mux.HandleFunc("GET /api/clients", s.handleListClients)
	mux.HandleFunc("GET /api/clients/{id}", s.handleGetClient)
	mux.HandleFunc("DELETE /api/clients/{id}", s.handleDeleteClient)
	mux.HandleFunc("GET /api/clients/{id}/transactions", s.handleClientTransactions)
	mux.HandleFunc("GET /api/transactions/recent", s.handleRecentTransactions)

	return mux
}

// middleware wraps h so that every request is traced, logged with its
// request ID, hardened and screened for probes.
func (s *Server) middleware(logger *log.Logger, h http.Handler) http.Handler {
	h = s.detector.Middleware(s.logger)(h)
	h = security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware(h)
	h = log.RequestIDMiddleware(func(r *http.Request) string { return trace.GetRequestID(r.Context()) })(h)
	h = s.tracer.Middleware(h)
	return log.Middleware(logger)(h)
}

func (s *Server) onRateLimit(w http.ResponseWriter, r *http.Request) {
	s.logger.WarnContext(r.Context(), "Rate limit exceeded",
		"client_ip", s.detector.ExtractClientIP(r), "path", r.URL.Path)
	writeJSON(w, http.StatusTooManyRequests, APIResponse{
		Success: false,
		Error:   "rate limit exceeded, please try again later",
	})
}

// InvalidateReports drops every cached report.
func (s *Server) InvalidateReports() {
	s.reportMu.Lock()
	defer s.reportMu.Unlock()
	s.reportEpoch++
	s.reportCache.Purge()
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

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	if err := s.ping(ctx); err != nil {
		s.logger.WarnContext(ctx, "Readiness check failed", "error", err)
		writeJSON(w, http.StatusServiceUnavailable, APIResponse{
			Success: false,
			Error:   fmt.Sprintf("record store not ready: %v", err),
		})
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

type metricsView struct {
	Requests  trace.Metrics             `json:"requests"`
	RateLimit ratelimit.Metrics         `json:"rateLimit"`
	Security  security.DetectionMetrics `json:"security"`
	Cache     cache.Stats               `json:"reportCache"`
}

func (s *Server) handleMetrics(w http.ResponseWriter, _ *http.Request) {
	respondData(w, http.StatusOK, metricsView{
		Requests:  s.tracer.GetMetrics(),
		RateLimit: s.limiter.GetMetrics(),
		Security:  s.detector.GetMetrics(),
		Cache:     s.reportCache.Stats(),
	})
}
