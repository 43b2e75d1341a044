package agent

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"rmf-simulator/internal/baseline"
	"rmf-simulator/internal/config"
	"rmf-simulator/internal/sink"
	"rmf-simulator/internal/timefactor"
)

type Agent struct {
	cfg      config.Config
	logger   *slog.Logger
	tlsCfg   *tls.Config
	registry *baseline.Registry
	factors  *timefactor.Model
	health   *HealthStatus

	// startedAt backs the uptime reported by /system-info.
	startedAt time.Time

	// Set once sinks are open; read by shutdown and the metrics server.
	fanout     atomic.Pointer[sink.Fanout]
	prometheus atomic.Pointer[sink.PrometheusSink]
	seed       atomic.Uint64
}

// New validates everything that can be checked without touching the network.
// Sinks are opened by Run so a signal can interrupt connection retries.
func New(cfg config.Config, logger *slog.Logger) (*Agent, error) {
	tlsCfg, err := cfg.TLSConfig()
	if err != nil {
		return nil, fmt.Errorf("tls config: %w", err)
	}
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}
	sysplex, lpars, err := config.LoadLPARs(cfg)
	if err != nil {
		return nil, err
	}
	registry, err := baseline.NewRegistry(sysplex, lpars)
	if err != nil {
		return nil, fmt.Errorf("baseline registry: %w", err)
	}

	return &Agent{
		cfg:      cfg,
		logger:   logger,
		tlsCfg:   tlsCfg,
		registry: registry,
		factors:  timefactor.NewModel(loc),
		health:   NewHealthStatus(),

		startedAt: time.Now(),
	}, nil
}

func (a *Agent) Health() *HealthStatus {
	return a.health
}

func (a *Agent) Run(ctx context.Context) error {
	a.logger.Info("starting rmf-simulator",
		"version", a.cfg.Version,
		"sysplex", a.registry.Sysplex(),
		"lpars", a.registry.Names(),
		"tick_interval", a.cfg.TickInterval.String(),
		"timezone", a.factors.Location().String(),
	)
	runCtx, cancelRun := context.WithCancel(ctx)
	defer cancelRun()

	runErrCh := make(chan error, 1)
	go func() {
		runErrCh <- a.run(runCtx)
	}()

	sigCh := make(chan os.Signal, 2)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	var runErr error
	select {
	case runErr = <-runErrCh:
		// Stopped on its own: startup failure, fatal tick error or parent ctx.
	case sig := <-sigCh:
		a.logger.Info("shutdown signal received, starting graceful shutdown", "signal", sig.String(), "timeout", a.cfg.ShutdownTimeout)
		cancelRun()

		graceTimer := time.NewTimer(a.cfg.ShutdownTimeout)
		defer graceTimer.Stop()

		select {
		case runErr = <-runErrCh:
		case sig2 := <-sigCh:
			a.logger.Warn("second signal received, forcing immediate shutdown", "signal", sig2.String())
			runErr = context.Canceled
		case <-graceTimer.C:
			a.logger.Warn("graceful shutdown timeout reached, abandoning in-flight work", "timeout", a.cfg.ShutdownTimeout)
			runErr = context.DeadlineExceeded
		}
	}

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
	defer cancelShutdown()
	a.shutdown(shutdownCtx)

	if runErr != nil && !errors.Is(runErr, context.Canceled) && !errors.Is(runErr, context.DeadlineExceeded) {
		return runErr
	}
	a.logger.Info("rmf-simulator stopped")
	return nil
}

func (a *Agent) shutdown(ctx context.Context) {
	a.health.SetRunning(false)
	f := a.fanout.Load()
	if f == nil {
		return
	}
	if err := f.Close(ctx); err != nil {
		a.logger.Warn("sink close failed", "error", err)
		return
	}
	a.logger.Info("sinks drained and closed", "sinks", f.Names())
}
