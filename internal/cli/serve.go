package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/sony/gobreaker"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"carpool/internal/amqp"
	"carpool/internal/backend"
	apphttp "carpool/internal/http"
	"carpool/internal/log"
	"carpool/internal/remote"
	"carpool/internal/worker"
)

const shutdownTimeout = 30 * time.Second

func newServeCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and the sync loop",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := newService(cmd.Context(), a)
			if err != nil {
				return err
			}
			defer svc.close()
			return svc.run(cmd.Context())
		},
	}
}

// service is everything serve starts, in the order it is torn down.
type service struct {
	app      *app
	local    *LocalLedger
	remote   *backend.RemoteResult
	coord    *worker.Coordinator
	broker   *amqp.Client
	server   *apphttp.Server
	registry *prometheus.Registry
}

func newService(ctx context.Context, a *app) (*service, error) {
	logger := a.logger.WithComponent(log.ComponentCLI)

	local, err := OpenLedger(a.cfg, a.logger)
	if err != nil {
		return nil, err
	}
	svc := &service{app: a, local: local, registry: prometheus.NewRegistry()}
	svc.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	bcfg, err := backend.FromAppConfig(a.cfg)
	if err != nil {
		svc.close()
		return nil, err
	}
	rem, err := backend.NewFactory(a.logger).CreateRemote(ctx, bcfg)
	if err != nil {
		svc.close()
		return nil, err
	}
	svc.remote = rem

	readiness := []apphttp.ReadinessCheck{}
	if local.Pinger != nil {
		readiness = append(readiness, apphttp.ReadinessCheck{Name: "local", Check: local.Pinger.Ping})
	}

	deps := apphttp.Deps{
		Ledger:   local.Store,
		Registry: svc.registry,
		RateLimit: apphttp.RateLimitConfig{
			RPS:   a.cfg.RateLimitRPS,
			Burst: a.cfg.RateLimitBurst,
		},
		Logger: a.logger,
	}

	if rem.Endpoint != nil {
		opts := []worker.Option{
			worker.WithLogger(a.logger),
			worker.WithMetrics(worker.NewMetrics(svc.registry)),
		}
		if a.cfg.AMQPURL != "" {
			broker, err := amqp.NewClient(a.cfg.AMQPURL, a.cfg.AMQPExchange, a.cfg.AMQPQueue, a.logger)
			if err != nil {
				// Polling still converges without notifications.
				logger.Warn("AMQP unavailable, continuing with polling only", log.FieldError, err)
			} else {
				svc.broker = broker
				opts = append(opts, worker.WithPublisher(broker))
			}
		}

		svc.coord = worker.NewCoordinator(local.Store, rem.Endpoint, worker.Config{
			PollInterval: a.cfg.SyncPollInterval,
			Debounce:     a.cfg.SyncDebounce,
		}, opts...)
		deps.Sync = svc.coord
		readiness = append(readiness, apphttp.ReadinessCheck{Name: "remote", Check: remoteCheck(rem)})
	}
	deps.Readiness = readiness

	svc.server = apphttp.NewServer(":"+a.cfg.Port, deps)
	return svc, nil
}

// remoteCheck fails while the breaker is open, then defers to the backend's
// own ping when it has one.
func remoteCheck(rem *backend.RemoteResult) func(context.Context) error {
	return func(ctx context.Context) error {
		if rem.Breaker != nil && rem.Breaker.State() == gobreaker.StateOpen {
			return remote.ErrUnavailable
		}
		if rem.Pinger != nil {
			return rem.Pinger.Ping(ctx)
		}
		return nil
	}
}

func (s *service) run(ctx context.Context) error {
	logger := s.app.logger.WithComponent(log.ComponentCLI)
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("Starting carpool server",
			"port", s.app.cfg.Port,
			"local_backend", s.app.cfg.LocalBackend,
			"remote_backend", s.app.cfg.RemoteBackend)
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	if s.coord != nil {
		if err := s.coord.Start(gctx); err != nil {
			return err
		}
		if owner := s.app.cfg.LedgerOwner; owner != "" {
			if err := s.coord.Login(owner); err != nil {
				logger.Warn("Automatic sign-in failed", "owner", owner, log.FieldError, err)
			}
		}
		if s.broker != nil {
			g.Go(func() error {
				err := s.broker.ConsumeLedgerSaved(gctx, s.coord.HandleLedgerSaved)
				if err != nil && !errors.Is(err, context.Canceled) {
					logger.Error("AMQP consumer stopped", log.FieldError, err)
				}
				return nil
			})
		}
	}

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutting down carpool server")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := s.server.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown failed", log.FieldError, err)
		}
		if s.coord != nil {
			if err := s.coord.Stop(shutdownCtx); err != nil {
				logger.Error("Sync coordinator stop failed", log.FieldError, err)
			}
			// Last chance for edits made after the final debounce tick.
			if err := s.coord.Push(shutdownCtx); err != nil && !errors.Is(err, worker.ErrNotAuthenticated) {
				logger.Warn("Final push failed", log.FieldError, err)
			}
		}
		return nil
	})

	return g.Wait()
}

func (s *service) close() {
	logger := s.app.logger.WithComponent(log.ComponentCLI)
	if s.broker != nil {
		if err := s.broker.Close(); err != nil {
			logger.Warn("Failed to close AMQP client", log.FieldError, err)
		}
	}
	if s.remote != nil && s.remote.Cleanup != nil {
		if err := s.remote.Cleanup(); err != nil {
			logger.Warn("Failed to close remote backend", log.FieldError, err)
		}
	}
	if err := s.local.Cleanup(); err != nil {
		logger.Warn("Failed to close local backend", log.FieldError, err)
	}
}
