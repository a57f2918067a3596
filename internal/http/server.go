package http

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"time"

	applog "paytrack/internal/log"
	"paytrack/internal/middleware/ratelimit"
	"paytrack/internal/middleware/security"
	"paytrack/internal/middleware/trace"
)

// Config holds the REST server settings.
type Config struct {
	// Addr is the listen address (default: ":8080")
	Addr string

	// BasePath prefixes every route (default: "/api")
	BasePath string

	// RequestsPerMinute per client; 0 disables rate limiting
	RequestsPerMinute int

	// ReadTimeout and WriteTimeout bound a single request (default: 15s)
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// DefaultConfig returns sensible defaults
func DefaultConfig() Config {
	return Config{
		Addr:              ":8080",
		BasePath:          "/api",
		RequestsPerMinute: ratelimit.DefaultConfig().RequestsPerMinute,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
	}
}

// Server serves the payment REST API.
type Server struct {
	http.Server
	store    Store
	logger   *applog.Logger
	tracer   *trace.Middleware
	detector *security.Detector
	limiter  *ratelimit.Limiter
	basePath string

	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run server.
func NewServer(cfg Config, store Store, logger *applog.Logger) *Server {
	def := DefaultConfig()
	if cfg.Addr == "" {
		cfg.Addr = def.Addr
	}
	if cfg.ReadTimeout <= 0 {
		cfg.ReadTimeout = def.ReadTimeout
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = def.WriteTimeout
	}
	if logger == nil {
		logger = applog.New(applog.DefaultConfig())
	}

	s := &Server{
		store:    store,
		logger:   logger.WithComponent(applog.ComponentHTTP),
		detector: security.NewDetector(),
		basePath: normalizeBasePath(cfg.BasePath),
	}
	s.tracer = trace.NewMiddleware(s.logger.Slog())
	if cfg.RequestsPerMinute > 0 {
		s.limiter = ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: cfg.RequestsPerMinute})
	}

	s.Server = http.Server{
		Addr:         cfg.Addr,
		Handler:      s.handler(),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}
	return s
}

// NewHandler builds the API handler without a listener or rate limiting,
// for in-process use.
func NewHandler(store Store, logger *applog.Logger, basePath string) http.Handler {
	if logger == nil {
		logger = applog.New(applog.DefaultConfig())
	}
	s := &Server{
		store:    store,
		logger:   logger.WithComponent(applog.ComponentMock),
		detector: security.NewDetector(),
		basePath: normalizeBasePath(basePath),
	}
	s.tracer = trace.NewMiddleware(s.logger.Slog())
	return s.handler()
}

func normalizeBasePath(p string) string {
	p = strings.TrimRight(strings.TrimSpace(p), "/")
	if p != "" && !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	return p
}

func (s *Server) routes() *http.ServeMux {
	mux := http.NewServeMux()
	p := s.basePath

	mux.HandleFunc("GET "+p+"/health", s.handleHealth)
	mux.HandleFunc("GET "+p+"/balance", s.handleBalance)
	mux.HandleFunc("GET "+p+"/categories", s.handleCategories)
	mux.HandleFunc("GET "+p+"/payments", s.handleListPayments)
	mux.HandleFunc("POST "+p+"/payments", s.handleCreatePayment)
	mux.HandleFunc("PUT "+p+"/payments/{id}", s.handleUpdatePayment)
	mux.HandleFunc("DELETE "+p+"/payments/{id}", s.handleDeletePayment)
	mux.HandleFunc("GET "+p+"/wallets", s.handleListWallets)
	mux.HandleFunc("POST "+p+"/wallets", s.handleCreateWallet)
	mux.HandleFunc("DELETE "+p+"/wallets/{id}", s.handleDeleteWallet)
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		NotFoundError("no route for " + r.Method + " " + r.URL.Path).Write(w)
	})
	return mux
}

// handler wraps the routes, outermost first: tracing, request logger,
// probe detection, security headers, rate limiting.
func (s *Server) handler() http.Handler {
	var h http.Handler = s.routes()
	if s.limiter != nil {
		h = s.limiter.Middleware(s.detector.ExtractClientIP, func(w http.ResponseWriter, r *http.Request) {
			s.logger.WarnContext(r.Context(), "Rate limit exceeded",
				applog.FieldClientIP, s.detector.ExtractClientIP(r),
				applog.FieldMethod, r.Method,
				applog.FieldPath, r.URL.Path)
			ErrorResponse(http.StatusTooManyRequests, CodeRateLimited, "rate limit exceeded, retry later").Write(w)
		})(h)
	}
	h = security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware(h)
	h = s.detector.Middleware(s.logger.Slog())(h)
	h = applog.Middleware(s.logger, func(r *http.Request) string { return trace.GetRequestID(r.Context()) })(h)
	return s.tracer.Middleware(h)
}

// Metrics returns request counters gathered by the tracing middleware.
func (s *Server) Metrics() trace.Metrics {
	return s.tracer.GetMetrics()
}

// Shutdown gracefully shuts down the server and the limiter cleanup.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		if s.limiter != nil {
			s.limiter.Stop()
		}
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}
