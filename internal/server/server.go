package server

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/ziadkadry99/ops-console/internal/audit"
	"github.com/ziadkadry99/ops-console/internal/config"
	"github.com/ziadkadry99/ops-console/internal/db"
	"github.com/ziadkadry99/ops-console/internal/feed"
	"github.com/ziadkadry99/ops-console/internal/logging"
	"github.com/ziadkadry99/ops-console/internal/tracking"
)

// ActorHeader carries the authenticated user, set by the proxy in front
// of the console.
const ActorHeader = "X-Actor-Id"

// Server is the ops-console HTTP server.
type Server struct {
	cfg        *config.Config
	log        *logging.Logger
	audit      *audit.Store
	tracking   *tracking.Store
	agg        *feed.Aggregator
	router     chi.Router
	httpServer *http.Server
}

// New creates a server over the audit and tracking databases and mounts
// every route.
func New(cfg *config.Config, log *logging.Logger, auditDB, trackingDB *db.DB) *Server {
	if log == nil {
		log = logging.Nop()
	}
	s := &Server{
		cfg:      cfg,
		log:      log,
		audit:    audit.NewStore(auditDB),
		tracking: tracking.NewStore(trackingDB),
	}
	s.agg = NewAggregator(cfg.Feed, log, s.audit, s.tracking)

	s.router = s.buildRouter()
	return s
}

// NewAggregator builds the activity feed over both stores.
func NewAggregator(cfg config.FeedConfig, log *logging.Logger, a *audit.Store, t *tracking.Store) *feed.Aggregator {
	return feed.NewAggregator(feed.Options{
		MaxLimit:      cfg.MaxLimit,
		MaxWindow:     cfg.MaxWindow,
		SourceTimeout: cfg.SourceTimeout,
		Logger:        log,
	}, feed.NewAuditSource(a), feed.NewTrackingSource(t))
}

// buildRouter creates and configures the chi router with all routes.
func (s *Server) buildRouter() chi.Router {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(s.log.Named("http")))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	// CORS
	corsOpts := cors.Options{
		AllowedOrigins:   []string{"http://localhost:*", "http://127.0.0.1:*"},
		AllowedMethods:   []string{"GET", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", ActorHeader},
		AllowCredentials: true,
		MaxAge:           300,
	}
	if s.cfg.Server.AllowAllOrigins {
		corsOpts.AllowedOrigins = []string{"*"}
	}
	r.Use(cors.Handler(corsOpts))

	if s.cfg.Tracking.Enabled {
		r.Use(tracking.Middleware(s.tracking, tracking.MiddlewareOptions{
			Exclude: s.cfg.Tracking.Exclude,
			Actor:   actorFromHeader,
			Logger:  s.log.Named("tracking"),
		}))
	}

	// Health check
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	})
	r.Handle("/metrics", promhttp.Handler())

	audit.RegisterRoutes(r, s.audit)
	tracking.RegisterRoutes(r, s.tracking)
	feed.RegisterRoutes(r, s.agg, s.cfg.Feed.DefaultLimit)

	return r
}

func actorFromHeader(r *http.Request) *string {
	v := strings.TrimSpace(r.Header.Get(ActorHeader))
	if v == "" {
		return nil
	}
	return &v
}

// requestLogger logs one entry per request once the handler returns.
func requestLogger(log *logging.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			defer func() {
				log.Info(r.Context(), "request",
					zap.String("method", r.Method),
					zap.String("path", r.URL.Path),
					zap.Int("status", ww.Status()),
					zap.Int("bytes", ww.BytesWritten()),
					zap.Duration("duration", time.Since(start)),
				)
			}()
			next.ServeHTTP(ww, r)
		})
	}
}

// Router returns the chi router for registering additional routes.
func (s *Server) Router() chi.Router { return s.router }

// Aggregator returns the activity feed aggregator.
func (s *Server) Aggregator() *feed.Aggregator { return s.agg }

// AuditStore returns the audit trail store.
func (s *Server) AuditStore() *audit.Store { return s.audit }

// TrackingStore returns the tracking log store.
func (s *Server) TrackingStore() *tracking.Store { return s.tracking }

// Start begins listening on the configured port.
func (s *Server) Start() error {
	addr := fmt.Sprintf(":%d", s.cfg.Server.Port)
	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      120 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	s.log.Info(context.Background(), "ops-console listening", zap.String("addr", addr))
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer != nil {
		return s.httpServer.Shutdown(ctx)
	}
	return nil
}
