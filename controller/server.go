package controller

import (
	"context"
	"errors"
	"net/http"
	"time"

	"graphbench/middleware"
	"graphbench/structs"

	log "github.com/sirupsen/logrus"
)

// RouteRegistrar is implemented by every API handler.
type RouteRegistrar interface {
	RegisterRoutes(mux *http.ServeMux)
}

// NewMux registers all handlers on one mux and wraps it with request logging.
func NewMux(handlers ...RouteRegistrar) http.Handler {
	mux := http.NewServeMux()
	for _, h := range handlers {
		h.RegisterRoutes(mux)
	}
	return middleware.LoggingMiddleware(mux)
}

// StartServer serves handlers on cfg.Addr until ctx is cancelled, then shuts
// down gracefully.
func StartServer(ctx context.Context, cfg structs.ServerConfig, handlers ...RouteRegistrar) error {
	server := &http.Server{
		Addr:         cfg.Addr,
		Handler:      NewMux(handlers...),
		ReadTimeout:  time.Duration(cfg.ReadTimeoutSeconds) * time.Second,
		WriteTimeout: time.Duration(cfg.WriteTimeoutSeconds) * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		log.Infof("API server starting on %s", cfg.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErrors <- err
		}
	}()

	select {
	case err := <-serverErrors:
		return err
	case <-ctx.Done():
	}

	log.Info("Shutting down API server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Errorf("API server graceful shutdown failed: %v", err)
		return err
	}
	log.Info("API server stopped gracefully.")
	return nil
}
