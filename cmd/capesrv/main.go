// Command capesrv is the cape file-service entrypoint: it wires
// configuration, the credential store, the path sandbox, and the worker-pool
// server together and serves until a shutdown signal arrives (spec §7).
// Grounded on go-storage/cmd/server/main.go's logger-first, config-next,
// serve-until-signal shape.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/keaganluttrell/cape/internal/config"
	"github.com/keaganluttrell/cape/internal/credentials"
	"github.com/keaganluttrell/cape/internal/sandbox"
	"github.com/keaganluttrell/cape/internal/server"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	cfg, err := config.Load()
	if err != nil {
		logger.Error("configuration error", "err", err)
		os.Exit(1)
	}

	fsys, err := sandbox.New(cfg.HomeDir)
	if err != nil {
		logger.Error("failed to root sandbox at home directory", "err", err)
		os.Exit(1)
	}

	store, err := credentials.Open(fsys.Home().String())
	if err != nil {
		logger.Error("failed to open credential store", "err", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := server.New(addr, time.Duration(cfg.TimeoutSeconds)*time.Second, 0, store, fsys, logger)

	errCh := make(chan error, 1)
	go func() {
		logger.Info("cape server starting", "addr", addr, "home", fsys.Home().String(), "timeout_s", cfg.TimeoutSeconds)
		errCh <- srv.Run(ctx)
	}()

	// shutdownSignals is defined in signals.go (os.Interrupt) and extended by
	// signals_unix.go (+ SIGTERM) via build tags; SIGPIPE is ignored globally
	// there so a client hangup mid-write never kills the process.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, shutdownSignals...)

	select {
	case <-quit:
		logger.Info("shutdown signal received — draining connections")
		cancel()
		<-errCh
	case err := <-errCh:
		if err != nil {
			logger.Error("server stopped unexpectedly", "err", err)
			os.Exit(1)
		}
	}

	logger.Info("cape server stopped")
}
