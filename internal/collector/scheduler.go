package collector

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"rmf-simulator/internal/engine"
)

type TickRunner interface {
	GenerateAndStore(ctx context.Context) (engine.BatchResult, error)
}

type TickObserver interface {
	ObserveTick(res engine.BatchResult)
}

type Flusher interface {
	Flush(ctx context.Context) error
}

// Scheduler drives the engine on a fixed interval. Ticks run on a single
// goroutine; a slow tick delays the next one and missed ticks are skipped.
type Scheduler struct {
	logger        *slog.Logger
	engine        TickRunner
	observer      TickObserver
	flusher       Flusher
	tickInterval  time.Duration
	flushInterval time.Duration
	errorBackoff  time.Duration
}

func NewScheduler(
	logger *slog.Logger,
	eng TickRunner,
	observer TickObserver,
	flusher Flusher,
	tickInterval, flushInterval, errorBackoff time.Duration,
) *Scheduler {
	if errorBackoff <= 0 {
		errorBackoff = time.Second
	}
	return &Scheduler{
		logger:        logger,
		engine:        eng,
		observer:      observer,
		flusher:       flusher,
		tickInterval:  tickInterval,
		flushInterval: flushInterval,
		errorBackoff:  errorBackoff,
	}
}

// Run blocks until ctx is done or a tick hits a configuration error.
func (s *Scheduler) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return s.runTickLoop(gctx)
	})
	if s.flusher != nil && s.flushInterval > 0 {
		g.Go(func() error {
			return s.runFlushLoop(gctx)
		})
	}
	return g.Wait()
}

func (s *Scheduler) runTickLoop(ctx context.Context) error {
	ticker := time.NewTicker(s.tickInterval)
	defer ticker.Stop()

	if err := s.tick(ctx); err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := s.tick(ctx); err != nil {
				return err
			}
		}
	}
}

func (s *Scheduler) runFlushLoop(ctx context.Context) error {
	ticker := time.NewTicker(s.flushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := s.flusher.Flush(ctx); err != nil {
				s.logger.Warn("buffered sink flush failed", "error", err)
			}
		}
	}
}

// tick returns an error only when the process must stop.
func (s *Scheduler) tick(ctx context.Context) error {
	res, err := s.engine.GenerateAndStore(ctx)
	switch {
	case err == nil:
	case errors.Is(err, engine.ErrTickInProgress):
		s.logger.Warn("previous tick still running, skipping")
		return nil
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return nil
	default:
		s.logger.Error("tick failed", "error", err)
		return err
	}

	if s.observer != nil {
		s.observer.ObserveTick(res)
	}

	failed := res.Failed()
	s.logger.Info("tick stored",
		"batch_id", res.BatchID,
		"samples", res.Samples,
		"sinks", len(res.Sinks),
		"failed_sinks", failed,
		"dropped_lpars", res.DroppedLPARs,
	)
	if len(res.Sinks) > 0 && len(failed) == len(res.Sinks) {
		s.logger.Error("every sink failed this tick", "batch_id", res.BatchID)
		s.sleepWithContext(ctx, s.errorBackoff)
	}
	return nil
}

func (s *Scheduler) sleepWithContext(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
