package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"tally/internal/cache"
	"tally/internal/core"
	"tally/internal/log"
	"tally/internal/middleware/ratelimit"
	"tally/internal/middleware/security"
	"tally/internal/middleware/trace"
	"tally/internal/records"
	"tally/internal/services"
	"tally/internal/spend"
)

// RecordWriter validates and persists records. *services.RecordService
// satisfies it.
type RecordWriter interface {
	CreateSubscription(ctx context.Context, sub core.Subscription) (core.Subscription, error)
	UpdateSubscription(ctx context.Context, sub core.Subscription) (core.Subscription, error)
	DeleteSubscription(ctx context.Context, id string) error
	CreateOneTimeItem(ctx context.Context, item core.OneTimeItem) (core.OneTimeItem, error)
	UpdateOneTimeItem(ctx context.Context, item core.OneTimeItem) (core.OneTimeItem, error)
	DeleteOneTimeItem(ctx context.Context, id string) error
}

type pinger interface {
	Ping(ctx context.Context) error
}

// Config holds the server settings.
type Config struct {
	Addr               string
	RateLimitPerMinute int
	CacheSize          int
	CacheTTL           time.Duration
	Logger             *log.Logger
}

type Server struct {
	http.Server

	store   records.Store
	writer  RecordWriter
	spend   *services.SpendService
	logger  *log.Logger
	started time.Time
	now     func() time.Time

	rateLimiter *ratelimit.Limiter
	detector    *security.Detector
	tracer      *trace.Middleware

	breakdownCache *cache.LRUCache[spend.Breakdown]
	drillCache     *cache.LRUCache[[]spend.Contribution]
	caches         *cache.Manager

	shutdownOnce sync.Once
}

// NewServer wires routes and middleware, returning a ready-to-run server.
// Reads go to store, writes to writer, and spend queries to spendSvc.
func NewServer(cfg Config, store records.Store, writer RecordWriter, spendSvc *services.SpendService) *Server {
	if cfg.Logger == nil {
		cfg.Logger = log.New(log.DefaultConfig())
	}
	if cfg.CacheSize <= 0 {
		cfg.CacheSize = 100
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 5 * time.Minute
	}

	s := &Server{
		store:          store,
		writer:         writer,
		spend:          spendSvc,
		logger:         cfg.Logger.WithComponent(log.ComponentHTTP),
		started:        time.Now(),
		now:            time.Now,
		rateLimiter:    ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: cfg.RateLimitPerMinute}),
		detector:       security.NewDetector(),
		breakdownCache: cache.NewLRUCache[spend.Breakdown](cfg.CacheSize, cfg.CacheTTL),
		drillCache:     cache.NewLRUCache[[]spend.Contribution](cfg.CacheSize*2, cfg.CacheTTL),
		caches:         cache.NewManager(),
	}
	s.caches.Register("breakdown", s.breakdownCache)
	s.caches.Register("drill_down", s.drillCache)
	s.tracer = trace.NewMiddleware(cfg.Logger, s.detector.ExtractClientIP)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)

	mux.HandleFunc("GET /api/categories", s.handleCategories)
	mux.HandleFunc("GET /api/spend", s.handleSpend)
	mux.HandleFunc("GET /api/spend/categories/{category}", s.handleDrillDown)
	mux.HandleFunc("GET /api/upcoming", s.handleUpcoming)

	mux.HandleFunc("GET /api/subscriptions", s.handleListSubscriptions)
	mux.HandleFunc("POST /api/subscriptions", s.handleCreateSubscription)
	mux.HandleFunc("GET /api/subscriptions/{id}", s.handleGetSubscription)
	mux.HandleFunc("PUT /api/subscriptions/{id}", s.handleUpdateSubscription)
	mux.HandleFunc("DELETE /api/subscriptions/{id}", s.handleDeleteSubscription)

	mux.HandleFunc("GET /api/one-time-items", s.handleListOneTimeItems)
	mux.HandleFunc("POST /api/one-time-items", s.handleCreateOneTimeItem)
	mux.HandleFunc("GET /api/one-time-items/{id}", s.handleGetOneTimeItem)
	mux.HandleFunc("PUT /api/one-time-items/{id}", s.handleUpdateOneTimeItem)
	mux.HandleFunc("DELETE /api/one-time-items/{id}", s.handleDeleteOneTimeItem)

	headers := security.NewHeadersMiddleware(security.DefaultHeadersConfig())
	limited := s.rateLimiter.Middleware(s.detector.ExtractClientIP, ratelimit.MutatingOnly, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusTooManyRequests, errorResponse{Error: "rate limit exceeded, try again later"})
	})

	s.Server = http.Server{
		Addr:              cfg.Addr,
		Handler:           s.tracer.Middleware(s.detector.Middleware(headers.Middleware(limited(mux)))),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       2 * time.Minute,
	}
	return s
}

// Caches exposes the response caches so record change notifications from
// other processes can purge them.
func (s *Server) Caches() *cache.Manager {
	return s.caches
}

// invalidate drops every cached spend result after a local write.
func (s *Server) invalidate() {
	s.caches.PurgeAll()
}

// Shutdown stops background work and gracefully shuts down the listener.
// It is safe to call more than once.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.rateLimiter.Stop()
		s.caches.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}
