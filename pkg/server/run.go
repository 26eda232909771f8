package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"
)

const shutdownTimeout = 10 * time.Second

// ShutdownHook releases a dependency once the server has stopped accepting requests.
type ShutdownHook func(ctx context.Context) error

// Run serves srv until ctx is cancelled or SIGINT/SIGTERM arrives, then drains in-flight
// requests and runs hooks in order. Hook errors are logged, not returned.
func Run(ctx context.Context, srv *http.Server, logger *slog.Logger, hooks ...ShutdownHook) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server starting", "addr", srv.Addr)
		errCh <- srv.ListenAndServe()
	}()

	var serveErr error
	select {
	case <-ctx.Done():
		logger.Info("shutting down", "cause", context.Cause(ctx))
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			serveErr = err
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if serveErr == nil {
		serveErr = srv.Shutdown(shutdownCtx)
	}
	for _, hook := range hooks {
		if err := hook(shutdownCtx); err != nil {
			logger.Error("shutdown hook failed", slog.Any("error", err))
		}
	}
	return serveErr
}
