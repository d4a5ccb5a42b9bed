// Package server exposes ordering sessions over HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/tahirahmadin/shopify-ai-search-demo/internal/api/middleware"
	"github.com/tahirahmadin/shopify-ai-search-demo/internal/catalog"
	"github.com/tahirahmadin/shopify-ai-search-demo/internal/session"
	"github.com/tahirahmadin/shopify-ai-search-demo/internal/storage"
)

// maxBodyBytes bounds request bodies; images dominate.
const maxBodyBytes = 28 << 20

type Server struct {
	Router *chi.Mux
	Port   int

	sessions *session.Manager
	catalog  *catalog.Holder
	store    storage.Store
	logger   *slog.Logger
}

// Options configures New. RequestTimeout of zero disables the per-request
// deadline. Without a Store the transcript and order routes are not
// mounted.
type Options struct {
	Port           int
	RequestTimeout time.Duration
	Sessions       *session.Manager
	Catalog        *catalog.Holder
	Store          storage.Store
	Logger         *slog.Logger
}

func New(opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	r := chi.NewRouter()

	r.Use(middleware.RequestIDMiddleware)
	r.Use(middleware.LoggingMiddleware(logger))
	r.Use(middleware.TimeoutMiddleware(opts.RequestTimeout))
	r.Use(chimw.Recoverer)
	r.Use(func(next http.Handler) http.Handler {
		return otelhttp.NewHandler(next, "orderbot")
	})

	s := &Server{
		Router:   r,
		Port:     opts.Port,
		sessions: opts.Sessions,
		catalog:  opts.Catalog,
		store:    opts.Store,
		logger:   logger,
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.Router.Get("/healthz", s.handleHealth)
	s.Router.Get("/v1/catalog", s.handleCatalog)

	s.Router.Route("/v1/sessions", func(r chi.Router) {
		r.Post("/", s.handleCreateSession)

		r.Route("/{sessionID}", func(r chi.Router) {
			r.Get("/", s.handleGetSession)
			r.Delete("/", s.handleDeleteSession)
			r.Post("/messages", s.handleMessage)
			r.Post("/images", s.handleImage)
			r.Post("/retry", s.handleRetry)
			r.Put("/mode", s.handleMode)

			r.Post("/checkout", s.handleBeginCheckout)
			r.Post("/checkout/cancel", s.handleCancelCheckout)
			r.Post("/checkout/pay", s.handlePay)

			r.Get("/cart", s.handleGetCart)
			r.Delete("/cart", s.handleClearCart)
			r.Post("/cart/items", s.handleAddItem)
			r.Put("/cart/items/{itemID}", s.handleSetItem)
			r.Delete("/cart/items/{itemID}", s.handleRemoveItem)
		})
	})

	if s.store != nil {
		s.recordRoutes(s.Router)
	}
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.Router.ServeHTTP(w, r)
}

// Run serves until ctx is cancelled, then shuts down within
// shutdownTimeout.
func (s *Server) Run(ctx context.Context, shutdownTimeout time.Duration) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", s.Port),
		Handler:           s.Router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("starting server", slog.Int("port", s.Port))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	s.logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down server: %w", err)
	}
	return nil
}
