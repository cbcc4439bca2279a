package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"trade-journal-go/internal/journal"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/patrickmn/go-cache"
	"go.uber.org/zap"
)

const (
	reportCacheExpiration = 10 * time.Minute
	reportCacheCleanup    = 20 * time.Minute
)

// Server provides an HTTP interface for the journal.
type Server struct {
	server  *http.Server
	book    *journal.Book
	reports *cache.Cache
	logger  *zap.Logger
	now     func() time.Time
}

// NewServer creates a Server listening on port.
func NewServer(port int, book *journal.Book, logger *zap.Logger) *Server {
	s := &Server{
		book:    book,
		reports: cache.New(reportCacheExpiration, reportCacheCleanup),
		logger:  logger.Named("api-server"),
		now:     time.Now,
	}
	s.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Router builds the route table.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.requestLogger)

	r.Get("/health", s.healthHandler)

	r.Route("/api", func(r chi.Router) {
		r.Get("/trades", s.listTradesHandler)
		r.Post("/trades", s.addTradeHandler)
		r.Get("/trades/recent", s.recentTradesHandler)
		r.Post("/trades/restore", s.restoreTradesHandler)
		r.Delete("/trades/{id}", s.deleteTradeHandler)

		r.Get("/statistics", s.statisticsHandler)
		r.Get("/calendar", s.calendarHandler)
		r.Get("/equity", s.equityHandler)

		r.Get("/reports", s.reportHandler)
		r.Get("/reports/export", s.exportHandler)

		r.Get("/todos", s.listTodosHandler)
		r.Post("/todos", s.addTodoHandler)
		r.Post("/todos/{id}/toggle", s.toggleTodoHandler)
		r.Delete("/todos/{id}", s.deleteTodoHandler)
	})
	return r
}

// Start runs the HTTP server in a new goroutine.
func (s *Server) Start() {
	s.logger.Info("Starting API server", zap.String("address", s.server.Addr))
	go func() {
		if err := s.server.ListenAndServe(); err != http.ErrServerClosed {
			s.logger.Error("API server failed", zap.Error(err))
		}
	}()
}

// Stop gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("Stopping API server...")
	return s.server.Shutdown(ctx)
}

// requestLogger logs one line per request with its chi request id.
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		s.logger.Debug("Request served",
			zap.String("request_id", middleware.GetReqID(r.Context())),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Int("bytes", ww.BytesWritten()),
			zap.Duration("duration", time.Since(start)),
		)
	})
}
