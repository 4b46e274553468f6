// Package signal turns termination signals into context cancellation.
package signal

import (
	"context"
	"os"
	gosignal "os/signal"
	"sync"
	"syscall"

	"go.uber.org/zap"

	"github.com/mimecast/gzscan/internal/constants"
)

// exit is replaced in tests.
var exit = os.Exit

// NotifyContext returns a copy of ctx that is cancelled on the first SIGINT
// or SIGTERM. A second signal exits the process without waiting for the scan
// to wind down. The returned stop function releases the signal handlers.
func NotifyContext(ctx context.Context, logger *zap.Logger) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(ctx)

	sigCh := make(chan os.Signal, 2)
	gosignal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	done := make(chan struct{})

	go func() {
		defer gosignal.Stop(sigCh)
		select {
		case sig := <-sigCh:
			logger.Info("Received signal, stopping scan", zap.String("signal", sig.String()))
			cancel()
		case <-done:
			return
		}

		select {
		case sig := <-sigCh:
			logger.Warn("Received second signal, exiting", zap.String("signal", sig.String()))
			exit(constants.ExitFatal)
		case <-done:
		}
	}()

	var once sync.Once
	return ctx, func() {
		once.Do(func() { close(done) })
		cancel()
	}
}
