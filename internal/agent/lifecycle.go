package agent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"rmf-simulator/internal/collector"
	"rmf-simulator/internal/engine"
	"rmf-simulator/internal/sink"
)

func (a *Agent) run(ctx context.Context) error {
	set, err := sink.NewSinksFromConfig(ctx, a.cfg, a.registry.Sysplex(), a.tlsCfg, a.logger)
	if err != nil {
		return fmt.Errorf("open sinks: %w", err)
	}
	fanout := sink.NewFanout(set.Sinks, a.cfg.SinkWriteTimeout, a.logger.With("component", "fanout"))
	a.fanout.Store(fanout)
	if set.Prometheus != nil {
		a.prometheus.Store(set.Prometheus)
	}
	a.health.RegisterSinks(fanout.Names())

	eng := engine.New(a.registry, a.factors, fanout, engine.Options{Seed: uint64(a.cfg.Seed)}, a.logger.With("component", "engine"))
	a.seed.Store(eng.Seed())
	a.logger.Info("engine ready", "seed", eng.Seed(), "sinks", fanout.Names())

	var flushInterval time.Duration
	if len(a.cfg.BufferedSinks) > 0 {
		flushInterval = a.cfg.FlushInterval
	}
	scheduler := collector.NewScheduler(
		a.logger.With("component", "scheduler"),
		eng,
		a.health,
		fanout,
		a.cfg.TickInterval,
		flushInterval,
		a.cfg.ErrorBackoff,
	)
	a.health.SetRunning(true)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return scheduler.Run(gctx)
	})
	g.Go(func() error {
		return a.runHealthLoop(gctx)
	})
	g.Go(func() error {
		return a.runProbeListener(gctx)
	})
	if a.cfg.MetricsListenAddr != "" {
		g.Go(func() error {
			return a.runMetricsServer(gctx)
		})
	}

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func (a *Agent) runHealthLoop(ctx context.Context) error {
	t := time.NewTicker(a.cfg.HealthInterval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-t.C:
			if !a.health.Healthy(time.Now(), a.staleAfter()) {
				a.logger.Warn("no tick completed recently", "max_age", a.staleAfter().String())
			}
			for name, st := range a.health.Sinks() {
				if st.ConsecutiveFailures > 0 {
					a.logger.Warn("sink degraded", "sink", name, "consecutive_failures", st.ConsecutiveFailures, "last_error", st.LastError)
				}
			}
			a.logger.Log(ctx, slog.LevelDebug, "simulator health", "snapshot", a.health.Snapshot())
		}
	}
}

// staleAfter is how long the health endpoint tolerates no completed tick.
func (a *Agent) staleAfter() time.Duration {
	return 3*a.cfg.TickInterval + a.cfg.SinkWriteTimeout
}
