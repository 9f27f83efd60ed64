// Package server exposes the collection store over a local HTTP API.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/nikbrunner/quickmark/internal/library"
	"github.com/nikbrunner/quickmark/internal/logger"
	"github.com/nikbrunner/quickmark/internal/notify"
)

// Deps holds what the handlers share.
type Deps struct {
	Library   *library.Library
	Logger    logger.Logger
	Notifier  notify.Notifier
	StartTime time.Time
	Version   string
	TimeNow   func() time.Time // defaults to time.Now
}

// Server wraps the HTTP server and its router.
type Server struct {
	http   *http.Server
	logger logger.Logger
}

// New builds the HTTP server listening on addr.
func New(addr string, d Deps) *Server {
	d = d.withDefaults()

	s := &http.Server{
		Addr:              addr,
		Handler:           NewRouter(d),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}

	return &Server{http: s, logger: d.Logger}
}

func (d Deps) withDefaults() Deps {
	if d.Logger == nil {
		d.Logger = logger.NewNop()
	}
	if d.Notifier == nil {
		d.Notifier = notify.NewLogNotifier(d.Logger)
	}
	if d.TimeNow == nil {
		d.TimeNow = time.Now
	}
	if d.StartTime.IsZero() {
		d.StartTime = d.TimeNow()
	}
	return d
}

// NewRouter returns the API routes with the global middlewares applied.
func NewRouter(d Deps) http.Handler {
	d = d.withDefaults()
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(10 * time.Second))
	r.Use(accessLog(d.Logger))

	h := &handlers{Deps: d}

	r.Get("/healthz", h.healthz)

	r.Route("/api", func(r chi.Router) {
		r.Get("/bookmarks", h.listBookmarks)
		r.Post("/bookmarks", h.addBookmark)
		r.Delete("/bookmarks", h.removeBookmarkByURL)
		r.Delete("/bookmarks/{id}", h.removeBookmark)

		r.Get("/tags", h.listTags)
		r.Delete("/tags/{tag}", h.deleteTag)
		r.Put("/tags/{tag}", h.renameTag)

		r.Get("/stats", h.stats)
		r.Get("/export", h.export)
		r.Post("/import", h.importDocument)
	})

	return r
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler {
	return s.http.Handler
}

// Start runs the HTTP server (blocks until error or shutdown).
func (s *Server) Start() error {
	s.logger.Infof("HTTP server listening on %s", s.http.Addr)
	err := s.http.ListenAndServe()
	// http.ErrServerClosed is expected on graceful shutdown.
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Stop gracefully shuts down the server with the provided context deadline.
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("HTTP server shutting down...")
	return s.http.Shutdown(ctx)
}
