// Package api provides the HTTP REST API server for etfdj.
//
// It exposes the composite ETF report, single report sections, batch
// fetches, exports and the ETF news feed.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/seenimoa/etfdj/internal/config"
	"github.com/seenimoa/etfdj/internal/datasource"
	"github.com/seenimoa/etfdj/internal/report"
	"github.com/seenimoa/etfdj/pkg/models"
	"github.com/seenimoa/etfdj/pkg/utils"
)

// maxBatchTickers caps GET /api/v1/etfs.
const maxBatchTickers = 20

// Server is the HTTP API server.
type Server struct {
	router  chi.Router
	cfg     *config.Config
	agg     *datasource.Aggregator
	news    *datasource.News
	logger  *zap.Logger
	version string
}

// NewServer creates a configured API server with all routes and middleware.
func NewServer(cfg *config.Config, agg *datasource.Aggregator, news *datasource.News, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	srv := &Server{
		cfg:     cfg,
		agg:     agg,
		news:    news,
		logger:  logger,
		version: "dev",
	}
	srv.router = srv.buildRouter()
	return srv
}

// SetVersion sets the version reported by the health endpoint.
func (s *Server) SetVersion(v string) {
	s.version = v
}

// Router returns the chi router for testing.
func (s *Server) Router() chi.Router {
	return s.router
}

// ListenAndServe starts the HTTP server with graceful shutdown.
func (s *Server) ListenAndServe(addr string) error {
	httpSrv := &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(done)

	errCh := make(chan error, 1)
	go func() {
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()
	s.logger.Info("api server listening", zap.String("addr", addr))

	select {
	case err := <-errCh:
		return fmt.Errorf("HTTP server error: %w", err)
	case <-done:
	}
	s.logger.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	return httpSrv.Shutdown(ctx)
}

// buildRouter configures all routes and middleware.
func (s *Server) buildRouter() chi.Router {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(120 * time.Second))

	// CORS
	origins := []string{"*"}
	if len(s.cfg.API.CORSOrigins) > 0 {
		origins = s.cfg.API.CORSOrigins
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID"},
		ExposedHeaders: []string{"X-Request-ID"},
		MaxAge:         300,
	}))

	// Health check
	r.Get("/health", s.handleHealth)

	// API v1 routes
	r.Route("/api/v1", func(r chi.Router) {
		// Health (also available at /health)
		r.Get("/health", s.handleHealth)

		// Config
		r.Get("/config", s.handleGetConfig)

		// Batch
		r.Get("/etfs", s.handleGetETFs)

		// Single ETF
		r.Route("/etf/{ticker}", func(r chi.Router) {
			r.Get("/", s.handleGetETF)
			r.Get("/news", s.handleNews)
			r.Get("/export", s.handleExport)
			r.Get("/{section}", s.handleGetSection)
		})
	})

	return r
}

// requestLogger logs each request through zap, tagged with the request id.
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		defer func() {
			s.logger.Info("request",
				zap.String("request_id", middleware.GetReqID(r.Context())),
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Int("bytes", ww.BytesWritten()),
				zap.Duration("elapsed", time.Since(start)),
			)
		}()
		next.ServeHTTP(ww, r)
	})
}

// ============================================================
// Request / Response types
// ============================================================

// APIResponse is the standard JSON envelope.
type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// ============================================================
// Handlers
// ============================================================

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, APIResponse{
		Success: true,
		Data: map[string]interface{}{
			"status":       "ok",
			"version":      s.version,
			"news_enabled": s.news != nil && s.news.Enabled(),
			"time_taipei":  utils.FormatTimestamp(utils.NowTaipei()),
		},
	})
}

func (s *Server) handleGetETF(w http.ResponseWriter, r *http.Request) {
	ticker := tickerParam(r)

	rep, err := s.agg.FetchAll(r.Context(), ticker)
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, APIResponse{Success: true, Data: rep})
}

func (s *Server) handleGetETFs(w http.ResponseWriter, r *http.Request) {
	var tickers []string
	for _, t := range strings.Split(r.URL.Query().Get("tickers"), ",") {
		if t = strings.TrimSpace(t); t != "" {
			tickers = append(tickers, t)
		}
	}
	if len(tickers) == 0 {
		writeError(w, http.StatusBadRequest, "tickers query parameter is required")
		return
	}
	if len(tickers) > maxBatchTickers {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("at most %d tickers per request", maxBatchTickers))
		return
	}

	reps, err := s.agg.FetchMany(r.Context(), tickers)
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, APIResponse{Success: true, Data: reps})
}

func (s *Server) handleGetSection(w http.ResponseWriter, r *http.Request) {
	ticker := tickerParam(r)
	name := chi.URLParam(r, "section")
	section, ok := models.ParseSection(name)
	if !ok {
		writeError(w, http.StatusNotFound, fmt.Sprintf("unknown section %q (want basic, holdings, risk, comparison or trends)", name))
		return
	}

	data, err := s.agg.FetchSection(r.Context(), ticker, section)
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, APIResponse{Success: true, Data: data})
}

func (s *Server) handleNews(w http.ResponseWriter, r *http.Request) {
	ticker := tickerParam(r)
	if s.news == nil || !s.news.Enabled() {
		writeError(w, http.StatusServiceUnavailable, datasource.ErrNewsDisabled.Error())
		return
	}

	limit := s.cfg.News.Limit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}

	items, err := s.news.GetNews(r.Context(), ticker, limit)
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, APIResponse{Success: true, Data: items})
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	ticker := tickerParam(r)
	format, err := report.ParseFormat(r.URL.Query().Get("format"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	rep, err := s.agg.FetchAll(r.Context(), ticker)
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}

	w.Header().Set("Content-Type", format.ContentType())
	if format == report.FormatCSV {
		w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s.csv"`, rep.Ticker))
	}
	w.WriteHeader(http.StatusOK)
	if err := report.Write(w, rep, format); err != nil {
		s.logger.Error("export failed", zap.String("ticker", rep.Ticker), zap.Error(err))
	}
}

// ============================================================
// Helpers
// ============================================================

// tickerParam reads the {ticker} path parameter. There is no validation: the
// client query-escapes it, and an unknown ticker comes back as a report with
// empty sections.
func tickerParam(r *http.Request) string {
	return utils.NormalizeTicker(chi.URLParam(r, "ticker"))
}

// statusFor maps extractor errors to HTTP status codes.
func statusFor(err error) int {
	var fe *datasource.FetchError
	var se *datasource.ScrapeError
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.As(err, &fe):
		return http.StatusBadGateway
	case errors.As(err, &se):
		return http.StatusUnprocessableEntity
	case errors.Is(err, datasource.ErrNewsDisabled):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		zap.L().Error("failed to write JSON response", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, APIResponse{
		Success: false,
		Error:   msg,
	})
}
