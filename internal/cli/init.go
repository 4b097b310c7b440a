// Package cli wires configuration, logging and the ledger backends into the
// carpool command tree.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"carpool/internal/backend"
	"carpool/internal/config"
	"carpool/internal/ledger"
	"carpool/internal/log"
)

// SetupLogger builds the process logger from the configured level and
// format and installs it as the slog default.
func SetupLogger(cfg *config.Config, w io.Writer) *log.Logger {
	logger := log.New(log.Config{
		Level:     log.ParseLevel(cfg.LogLevel),
		Format:    cfg.LogFormat,
		Component: log.ComponentApp,
		Output:    w,
	})
	log.SetDefault(logger)
	return logger
}

// LoadEnvFile loads variables from path for local development.
// A missing file is not an error.
func LoadEnvFile(path string) error {
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("load env file %s: %w", path, err)
	}
	return nil
}

// LoadAndValidateConfig loads configuration from the environment and
// validates it.
func LoadAndValidateConfig() (*config.Config, error) {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LocalLedger is an open ledger store and the backend it persists to.
type LocalLedger struct {
	Store *ledger.Store
	// Pinger is set when the local backend can report its health.
	Pinger  backend.Pinger
	Cleanup backend.CleanupFunc
}

// OpenLedger opens the configured local backend and loads the ledger from it.
func OpenLedger(cfg *config.Config, logger *log.Logger) (*LocalLedger, error) {
	bcfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		return nil, err
	}
	local, err := backend.NewFactory(logger).CreateLocal(bcfg)
	if err != nil {
		return nil, fmt.Errorf("open local backend: %w", err)
	}

	store := ledger.New(local.Store,
		ledger.WithLogger(logger),
		ledger.WithAutoToll(cfg.AutoToll()),
	)

	out := &LocalLedger{Store: store, Cleanup: local.Cleanup}
	if p, ok := local.Store.(backend.Pinger); ok {
		out.Pinger = p
	}
	if out.Cleanup == nil {
		out.Cleanup = func() error { return nil }
	}
	return out, nil
}

// GracefulShutdown returns a context cancelled on SIGINT or SIGTERM.
// The returned cancel func releases the signal handler.
func GracefulShutdown(parent context.Context, logger *log.Logger) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		defer signal.Stop(sigChan)
		select {
		case sig := <-sigChan:
			logger.Info("Shutdown signal received", "signal", sig.String())
			cancel()
		case <-ctx.Done():
		}
	}()

	return ctx, cancel
}
