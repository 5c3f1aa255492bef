// Package server runs an HTTP service with signal-driven graceful shutdown.
// The auth service, the catalog service and the gateway all go through Run;
// only the handler and the bind address differ.
package server

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dpolyakov/minimart/internal/logging"
)

const shutdownTimeout = 5 * time.Second

// Run serves handler on addr until ctx is cancelled or SIGINT/SIGTERM/SIGQUIT
// arrives, then drains in-flight requests before returning.
func Run(ctx context.Context, addr string, handler http.Handler, log logging.Logger) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
	defer stop()

	srv := &http.Server{
		Addr:    addr,
		Handler: handler,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info(ctx, "listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info(context.Background(), "shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// Exit logs a startup failure and terminates with a non-zero status.
func Exit(log logging.Logger, err error) {
	log.Error(context.Background(), "fatal", "error", err.Error())
	os.Exit(1)
}
