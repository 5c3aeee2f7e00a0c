package rest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/litergames/litergames-backend/internal/repository"
)

type Server struct {
	logger *slog.Logger
	users  repository.UserRepository
}

func New(logger *slog.Logger, users repository.UserRepository) *Server {
	return &Server{
		logger: logger,
		users:  users,
	}
}

// Start - starts the HTTP server and shuts it down when the context is
// canceled.
func (that *Server) Start(ctx context.Context, port string) error {
	srv := &http.Server{
		Addr:         ":" + port,
		Handler:      that.Handler(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  30 * time.Second,
	}

	go func() {
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		_ = srv.Shutdown(shutdownCtx)
	}()

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("failed to start server: %w", err)
	}

	return nil
}

func (that *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /ping", that.pingHandler)
	mux.HandleFunc("POST /api/auth/login", that.loginHandler)
	mux.HandleFunc("GET /api/auth/me/{id}", that.meHandler)

	return mux
}
