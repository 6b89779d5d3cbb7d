// Package server is the HTTP + WebSocket API surface for webgrade: the
// authenticated, rate-limited serving boundary around the audit pipeline.
package server

import (
	"context"
	"embed"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	httpSwagger "github.com/swaggo/http-swagger/v2"
	"go.uber.org/zap"

	"github.com/webgrade/webgrade/internal/audit"
	"github.com/webgrade/webgrade/internal/config"
	"github.com/webgrade/webgrade/internal/history"
	"github.com/webgrade/webgrade/internal/jobs"
	"github.com/webgrade/webgrade/internal/ratelimit"
	"github.com/webgrade/webgrade/internal/urlguard"
	"github.com/webgrade/webgrade/internal/webclient"

	_ "github.com/webgrade/webgrade/docs" // registered OpenAPI document
)

//go:embed index.html
var indexFS embed.FS

// Validator guards target URLs before any fetch. *urlguard.Gate satisfies
// it.
type Validator interface {
	ValidatePublicURL(ctx context.Context, raw string) (string, error)
}

// Auditor executes the fetch-and-score pipeline on an already validated
// URL. *audit.Runner satisfies it.
type Auditor interface {
	Audit(ctx context.Context, req audit.Request) *audit.Result
}

// Server owns all serving-boundary state: the limiter buckets, the job
// orchestrator and the history store. Construct once at startup with New;
// no package-level mutable state exists.
type Server struct {
	cfg          Config
	env          *config.Env
	logger       *zap.Logger
	validator    Validator
	auditor      Auditor
	limiter      *ratelimit.Limiter
	orchestrator *jobs.Orchestrator
	history      *history.Store
	client       webclient.Client
	router       chi.Router
	upgrader     websocket.Upgrader
}

// New wires the service object together and starts the job worker. Call
// Close during shutdown.
func New(cfg Config) (*Server, error) {
	env := cfg.Env
	if env == nil {
		env = config.New()
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.ListenAddr == "" {
		cfg.ListenAddr = env.ListenAddr()
	}

	s := &Server{
		cfg:       cfg,
		env:       env,
		logger:    logger,
		validator: cfg.Validator,
		auditor:   cfg.Auditor,
		limiter:   ratelimit.New(),
		history:   cfg.History,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}

	if s.validator == nil {
		s.validator = urlguard.NewGate(nil)
	}
	if s.auditor == nil {
		client, err := webclient.New(webclient.Config{Backend: env.ClientBackend()}, logger)
		if err != nil {
			return nil, fmt.Errorf("construct webclient: %w", err)
		}
		s.client = client
		s.auditor = audit.NewRunner(urlguard.NewGate(nil), client, logger)
	}
	if s.history == nil {
		if path := env.HistoryPath(); path != "" {
			store, err := history.Open(path, logger)
			if err != nil {
				if s.client != nil {
					_ = s.client.Close()
				}
				return nil, fmt.Errorf("open history store: %w", err)
			}
			s.history = store
		}
	}

	// The worker records completed audits the same way the sync path does.
	s.orchestrator = jobs.New(func(ctx context.Context, req audit.Request) *audit.Result {
		result := s.auditor.Audit(ctx, req)
		s.record(ctx, result)
		return result
	}, logger)
	s.orchestrator.Start()

	r := chi.NewRouter()
	s.router = r
	s.routes()

	return s, nil
}

func (s *Server) routes() {
	r := s.router

	r.Use(s.requestLogger)
	r.Use(s.corsMiddleware)

	r.Get("/", s.handleIndex)
	r.Get("/api/health", s.handleHealth)
	r.Get("/swagger/*", httpSwagger.Handler())

	// Everything below requires a valid API key and a rate-limit slot.
	r.Group(func(r chi.Router) {
		r.Use(s.requireAPIKey)
		r.Use(s.rateLimit)

		r.Post("/api/analyze", s.handleAnalyze)
		r.Get("/api/jobs/{jobID}", s.handleGetJob)
		r.Get("/api/jobs/{jobID}/events", s.handleJobEvents)
		r.Get("/api/history", s.handleHistoryList)
		r.Get("/api/history/diff", s.handleHistoryDiff)
	})
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// HTTPServer creates an *http.Server ready to ListenAndServe.
func (s *Server) HTTPServer() *http.Server {
	return &http.Server{
		Addr:         s.cfg.ListenAddr,
		Handler:      s,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 0, // audits and websockets outlive fixed write budgets
	}
}

// Close stops the worker (waiting briefly for an in-flight audit) and
// releases the history store and fetch client.
func (s *Server) Close() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.orchestrator.Stop(ctx); err != nil {
		s.logger.Warn("orchestrator stop", zap.Error(err))
	}
	if s.history != nil {
		if err := s.history.Close(); err != nil {
			s.logger.Warn("history close", zap.Error(err))
		}
	}
	if s.client != nil {
		_ = s.client.Close()
	}
}

// record persists a completed audit, best effort: storage trouble is
// logged and never fails the audit response.
func (s *Server) record(ctx context.Context, result *audit.Result) {
	if s.history == nil {
		return
	}
	if _, err := s.history.Record(ctx, result); err != nil {
		s.logger.Warn("record audit", zap.Error(err))
	}
}

// ─── Middleware ─────────────────────────────────────────────────────────

type contextKey string

const apiKeyContextKey contextKey = "api_key"

func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, x-api-key")
		w.Header().Set("Access-Control-Max-Age", "86400")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// statusRecorder captures the response code for the request log.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (rec *statusRecorder) WriteHeader(code int) {
	rec.status = code
	rec.ResponseWriter.WriteHeader(code)
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// WebSocket upgrades need the raw ResponseWriter (Hijacker).
		if strings.EqualFold(r.Header.Get("Upgrade"), "websocket") {
			next.ServeHTTP(w, r)
			return
		}

		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.logger.Info("http_request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", rec.status),
			zap.Duration("duration", time.Since(start)))
	})
}

// requireAPIKey enforces the shared-secret check. Keys are re-read from
// the environment on every request so operators can rotate them live.
func (s *Server) requireAPIKey(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		keys := s.env.APIKeys()
		if len(keys) == 0 {
			writeError(w, http.StatusServiceUnavailable,
				"Server misconfigured: set WEBGRADE_API_KEY or WEBGRADE_API_KEYS")
			return
		}

		provided := strings.TrimSpace(r.Header.Get("x-api-key"))
		if provided == "" {
			writeError(w, http.StatusUnauthorized, "Missing x-api-key header")
			return
		}
		if _, ok := keys[provided]; !ok {
			writeError(w, http.StatusUnauthorized, "Invalid API key")
			return
		}

		ctx := context.WithValue(r.Context(), apiKeyContextKey, provided)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// rateLimit governs authenticated requests per key+IP identity.
func (s *Server) rateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		maxRequests, windowSeconds := s.env.RateLimit()

		allowed, retryAfter := s.limiter.Allow(s.identity(r), maxRequests, windowSeconds)
		if !allowed {
			w.Header().Set("Retry-After", fmt.Sprintf("%d", retryAfter))
			writeError(w, http.StatusTooManyRequests,
				fmt.Sprintf("Rate limit exceeded. Retry in %ds", retryAfter))
			return
		}
		next.ServeHTTP(w, r)
	})
}

// identity keys rate-limit buckets by API key and client IP.
func (s *Server) identity(r *http.Request) string {
	key, _ := r.Context().Value(apiKeyContextKey).(string)
	return key + ":" + clientIP(r)
}

// clientIP prefers the first X-Forwarded-For entry, falling back to the
// peer address.
func clientIP(r *http.Request) string {
	if forwarded := strings.TrimSpace(r.Header.Get("X-Forwarded-For")); forwarded != "" {
		first, _, _ := strings.Cut(forwarded, ",")
		return strings.TrimSpace(first)
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	if r.RemoteAddr != "" {
		return r.RemoteAddr
	}
	return "unknown"
}

// ─── JSON helpers ───────────────────────────────────────────────────────

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		_ = json.NewEncoder(w).Encode(v)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, ErrorResponse{Error: msg})
}
