// Package api serves the scored asset table, KPIs and runs over HTTP.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/OlawumiPT/power-transitions-dashboard-sub000/internal/metrics"
	"github.com/OlawumiPT/power-transitions-dashboard-sub000/internal/model"
	"github.com/OlawumiPT/power-transitions-dashboard-sub000/internal/ranking"
	"github.com/OlawumiPT/power-transitions-dashboard-sub000/internal/scoring"
	"github.com/OlawumiPT/power-transitions-dashboard-sub000/internal/store"
)

// Recalcer rescores every stored asset. *pipeline.Pipeline satisfies it.
type Recalcer interface {
	Recalc(ctx context.Context) (*model.Run, error)
}

// AssetSaver upserts and rescores one asset. *pipeline.Pipeline satisfies it.
type AssetSaver interface {
	SaveAsset(ctx context.Context, a model.AssetRecord) (*model.Run, ranking.Row, error)
}

// Server holds the handler dependencies.
type Server struct {
	store   store.Store
	calc    scoring.Calculator
	year    int
	origins []string
	recalc  Recalcer
	saver   AssetSaver
	limiter *rate.Limiter // nil disables limiting
}

// Option configures a Server.
type Option func(*Server)

// WithAllowedOrigins sets the CORS origins. The default allows any origin.
func WithAllowedOrigins(origins []string) Option {
	return func(s *Server) {
		if len(origins) > 0 {
			s.origins = origins
		}
	}
}

// WithRecalcer enables POST /api/recalc.
func WithRecalcer(r Recalcer) Option {
	return func(s *Server) { s.recalc = r }
}

// WithAssetSaver enables creating and editing assets.
func WithAssetSaver(a AssetSaver) Option {
	return func(s *Server) { s.saver = a }
}

// WithWriteLimit caps write requests (POST, PUT, PATCH) at rps per second with
// the given burst. rps <= 0 leaves them unlimited.
func WithWriteLimit(rps float64, burst int) Option {
	return func(s *Server) {
		if rps > 0 {
			s.limiter = rate.NewLimiter(rate.Limit(rps), max(burst, 1))
		}
	}
}

// NewServer creates a Server that scores with calc as of currentYear.
func NewServer(st store.Store, calc scoring.Calculator, currentYear int, opts ...Option) *Server {
	s := &Server{
		store:   st,
		calc:    calc,
		year:    currentYear,
		origins: []string{"*"},
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Router builds the chi router with middleware and all routes.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.origins,
		AllowedMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))
	r.Use(observe)

	r.Get("/health", s.handleHealth)
	r.Handle("/metrics", metrics.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Get("/assets", s.handleListAssets)
		r.With(s.limitWrites).Post("/assets", s.handleCreateAsset)
		r.Get("/assets/{id}", s.handleGetAsset)
		r.With(s.limitWrites).Put("/assets/{id}", s.handleReplaceAsset)
		r.With(s.limitWrites).Patch("/assets/{id}", s.handlePatchAsset)
		r.Delete("/assets/{id}", s.handleDeleteAsset)
		r.With(s.limitWrites).Post("/score", s.handleScore)
		r.Get("/kpis", s.handleKPIs)
		r.Get("/columns", s.handleColumns)
		r.Get("/config", s.handleConfig)
		r.Get("/runs", s.handleListRuns)
		r.Get("/runs/{id}", s.handleGetRun)
		r.With(s.limitWrites).Post("/recalc", s.handleRecalc)
	})
	return r
}

// limitWrites rejects requests over the write budget with 429.
func (s *Server) limitWrites(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.limiter != nil && !s.limiter.Allow() {
			w.Header().Set("Retry-After", "1")
			writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// observe logs each request and records it against its route pattern so
// path parameters do not explode metric cardinality.
func observe(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		route := r.URL.Path
		if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
			route = rc.RoutePattern()
		}
		elapsed := time.Since(start)
		metrics.ObserveRequest(route, status, elapsed)
		zap.L().Debug("api: request",
			zap.String("method", r.Method),
			zap.String("route", route),
			zap.Int("status", status),
			zap.Duration("elapsed", elapsed),
			zap.String("request_id", middleware.GetReqID(r.Context())),
		)
	})
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		zap.L().Info("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx) //nolint:errcheck
	}()

	zap.L().Info("starting server", zap.String("addr", addr))
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return eris.Wrap(err, "api: listen")
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Warn("api: encode response", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeStoreError maps ErrNotFound to 404 and logs everything else as a 500.
func writeStoreError(w http.ResponseWriter, err error, msg string) {
	if eris.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	zap.L().Error("api: "+msg, zap.Error(err))
	writeError(w, http.StatusInternalServerError, msg)
}
