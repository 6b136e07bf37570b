// Package http exposes the tracker as a JSON API on a chi router.
package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"fintrack/internal/cache"
	"fintrack/internal/ledger"
	"fintrack/internal/log"
	"fintrack/internal/metrics"
	"fintrack/internal/middleware/ratelimit"
	"fintrack/internal/middleware/security"
	"fintrack/internal/middleware/trace"
	"fintrack/internal/services"
)

// Config tunes the server. Zero values fall back to DefaultConfig.
type Config struct {
	Addr              string
	MetricsEnabled    bool
	SearchCacheSize   int
	SearchCacheTTL    time.Duration
	RequestsPerMinute int
}

// DefaultConfig returns the settings used by `fintrack serve`.
func DefaultConfig() Config {
	return Config{
		Addr:              ":8080",
		MetricsEnabled:    true,
		SearchCacheSize:   100,
		SearchCacheTTL:    5 * time.Minute,
		RequestsPerMinute: 60,
	}
}

type Server struct {
	http.Server
	tracker *services.Tracker
	logger  *log.Logger

	// searchMu orders cache fills against purges so a result computed
	// before a mutation is never stored after it.
	searchMu    sync.Mutex
	searchGen   uint64
	searchCache *cache.LRUCache[[]ledger.Entry]
	caches      *cache.Manager

	limiter      *ratelimit.Limiter
	shutdownOnce sync.Once
}

// NewServer builds the router and subscribes the search cache to tracker
// state changes.
func NewServer(cfg Config, tracker *services.Tracker, logger *log.Logger) *Server {
	def := DefaultConfig()
	if cfg.Addr == "" {
		cfg.Addr = def.Addr
	}
	if cfg.SearchCacheSize <= 0 {
		cfg.SearchCacheSize = def.SearchCacheSize
	}
	if cfg.SearchCacheTTL <= 0 {
		cfg.SearchCacheTTL = def.SearchCacheTTL
	}
	if logger == nil {
		logger = log.Default(log.ComponentHTTP)
	}

	s := &Server{
		tracker:     tracker,
		logger:      logger.WithComponent(log.ComponentHTTP),
		searchCache: cache.NewLRUCache[[]ledger.Entry](cfg.SearchCacheSize, cfg.SearchCacheTTL),
		caches:      cache.NewManager(),
		limiter:     ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: cfg.RequestsPerMinute}),
	}
	s.caches.Register(s.searchCache)
	s.caches.StartCleanup(cfg.SearchCacheTTL)

	tracker.Subscribe(services.ListenerFunc(func(context.Context, services.Event) error {
		s.invalidateSearch()
		return nil
	}))

	s.Server = http.Server{
		Addr:              cfg.Addr,
		Handler:           s.routes(cfg.MetricsEnabled),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

func (s *Server) routes(metricsEnabled bool) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(log.Middleware(s.logger))
	r.Use(trace.NewMiddleware(s.logger).Handler)
	r.Use(middleware.Recoverer)
	r.Use(security.Headers(security.DefaultHeadersConfig()))

	r.Get("/healthz", s.handleHealth)

	r.Route("/api", func(r chi.Router) {
		r.Use(log.ComponentMiddleware(log.ComponentAPI))
		r.Use(s.syncState)
		r.Use(s.limiter.Middleware(func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusTooManyRequests, errorResponse{Error: "rate limit exceeded, try again later"})
		}))

		r.Route("/transactions", func(r chi.Router) {
			r.Get("/", s.handleListTransactions)
			r.Post("/", s.handleAddTransaction)
			r.Get("/search", s.handleSearchTransactions)
			r.Delete("/{index}", s.handleDeleteTransaction)
		})

		r.Route("/recurring", func(r chi.Router) {
			r.Get("/", s.handleListRecurring)
			r.Delete("/{index}", s.handleStopRecurring)
			r.Patch("/{index}", s.handleEditRecurring)
		})

		r.Route("/categories", func(r chi.Router) {
			r.Get("/", s.handleListCategories)
			r.Post("/", s.handleAddCategory)
			r.Put("/{index}", s.handleRenameCategory)
			r.Delete("/{index}", s.handleDeleteCategory)
		})

		r.Get("/summary", s.handleSummary)
		r.Get("/chart", s.handleChart)
	})

	if metricsEnabled {
		r.Handle("/metrics", promhttp.Handler())
	}

	return r
}

// syncState reloads the tracker before reads so writes made by other
// processes sharing the store are visible. Mutations reload on their own.
func (s *Server) syncState(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			if err := s.tracker.Reload(r.Context()); err != nil {
				writeError(w, r, err)
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

// invalidateSearch drops every cached search result.
func (s *Server) invalidateSearch() {
	s.searchMu.Lock()
	defer s.searchMu.Unlock()
	s.searchGen++
	s.searchCache.Purge()
}

// search serves term from the cache or computes and stores it.
func (s *Server) search(term string) []ledger.Entry {
	key := ledger.Lower(term)

	s.searchMu.Lock()
	if hit, ok := s.searchCache.Get(key); ok {
		s.searchMu.Unlock()
		metrics.SearchCacheLookups.WithLabelValues("hit").Inc()
		return hit
	}
	metrics.SearchCacheLookups.WithLabelValues("miss").Inc()
	gen := s.searchGen
	s.searchMu.Unlock()

	result := s.tracker.QueryByText(term)

	s.searchMu.Lock()
	if s.searchGen == gen {
		s.searchCache.Set(key, result)
	}
	s.searchMu.Unlock()
	return result
}

// Shutdown stops background routines and drains the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		s.caches.Stop()
		s.limiter.Stop()
		err = s.Server.Shutdown(ctx)
	})
	return err
}
