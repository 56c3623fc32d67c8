// Package api expone el tracker por HTTP: advice bajo demanda y el ciclo de
// vida de las solicitudes de borrado GDPR.
package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// Server es el servidor HTTP del tracker.
type Server struct {
	http *http.Server
}

// NewServer monta las rutas sobre el handler dado y prepara el http.Server.
func NewServer(addr, corsOrigin string, h *Handler) *Server {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger)

	if corsOrigin != "" {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: []string{corsOrigin},
			AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowedHeaders: []string{"Accept", "Content-Type"},
			MaxAge:         300,
		}))
	}

	r.Get("/health", h.Health)
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/advice", h.GetAdvice)
		r.Post("/deletion-requests", h.CreateDeletionRequest)
		r.Get("/deletion-requests/{id}", h.GetDeletionRequest)
		r.Get("/users/{userID}/deletion-requests", h.ListDeletionRequests)
		r.Get("/users/{userID}/deletion-estimate", h.GetDeletionEstimate)
	})

	return &Server{
		http: &http.Server{
			Addr:              addr,
			Handler:           r,
			ReadHeaderTimeout: 5 * time.Second,
		},
	}
}

// Run arranca el servidor y lo apaga limpiamente cuando el contexto se cancela.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		slog.Info("http server listening", "addr", s.http.Addr)
		if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		slog.Info("http server shutting down")
		return s.http.Shutdown(shutdownCtx)
	}
}

// requestLogger registra cada request con slog.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		slog.Debug("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(start).Round(time.Microsecond),
		)
	})
}
