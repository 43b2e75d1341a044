package sink

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"rmf-simulator/internal/model"
)

const defaultWriteTimeout = 10 * time.Second

type Result struct {
	Sink     string        `json:"sink"`
	Err      error         `json:"-"`
	Duration time.Duration `json:"duration"`
	Samples  int           `json:"samples"`
}

func (r Result) OK() bool {
	return r.Err == nil
}

// Fanout writes every batch to all sinks concurrently. Sinks never see each
// other's failures and a slow sink only costs its own timeout.
type Fanout struct {
	sinks   []Sink
	timeout time.Duration
	logger  *slog.Logger
}

func NewFanout(sinks []Sink, timeout time.Duration, logger *slog.Logger) *Fanout {
	if timeout <= 0 {
		timeout = defaultWriteTimeout
	}
	return &Fanout{sinks: sinks, timeout: timeout, logger: logger}
}

func (f *Fanout) Names() []string {
	out := make([]string, 0, len(f.sinks))
	for _, s := range f.sinks {
		out = append(out, s.Name())
	}
	return out
}

// Write returns one Result per sink. Writes run on a context detached from
// ctx cancellation so a shutdown does not cut an in-flight write short; each
// write is still bounded by the per-sink timeout.
func (f *Fanout) Write(ctx context.Context, batch model.MetricBatch) map[string]Result {
	results := make([]Result, len(f.sinks))
	base := context.WithoutCancel(ctx)

	var g errgroup.Group
	for i, s := range f.sinks {
		g.Go(func() error {
			results[i] = f.writeOne(base, s, batch)
			return nil
		})
	}
	_ = g.Wait()

	out := make(map[string]Result, len(results))
	for _, r := range results {
		out[r.Sink] = r
	}
	return out
}

func (f *Fanout) writeOne(ctx context.Context, s Sink, batch model.MetricBatch) Result {
	start := time.Now()
	wctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- fmt.Errorf("sink %s panicked: %v", s.Name(), r)
			}
		}()
		done <- s.Write(wctx, batch)
	}()

	var err error
	select {
	case err = <-done:
	case <-wctx.Done():
		err = fmt.Errorf("write timed out after %s: %w", f.timeout, wctx.Err())
		f.logger.Warn("sink write abandoned", "sink", s.Name(), "batch_id", batch.ID, "timeout", f.timeout)
	}

	res := Result{Sink: s.Name(), Err: err, Duration: time.Since(start), Samples: batch.Len()}
	if err != nil {
		f.logger.Warn("sink write failed", "sink", s.Name(), "batch_id", batch.ID, "error", err)
	} else {
		f.logger.Debug("sink write ok", "sink", s.Name(), "batch_id", batch.ID, "samples", res.Samples, "duration", res.Duration)
	}
	return res
}

// Close drains and closes every sink concurrently. Sinks still closing when
// ctx expires are abandoned and reported in the returned error.
func (f *Fanout) Close(ctx context.Context) error {
	return f.each(ctx, "close", f.sinks, func(s Sink) error {
		return s.Close(ctx)
	})
}

// Flush forces out samples held by buffering sinks, each bounded by the write timeout.
func (f *Fanout) Flush(ctx context.Context) error {
	var buffered []Sink
	for _, s := range f.sinks {
		if _, ok := s.(Flusher); ok {
			buffered = append(buffered, s)
		}
	}
	return f.each(ctx, "flush", buffered, func(s Sink) error {
		fctx, cancel := context.WithTimeout(ctx, f.timeout)
		defer cancel()
		return s.(Flusher).Flush(fctx)
	})
}

// each runs op on every sink and returns once all of them finish or ctx is
// done, whichever comes first.
func (f *Fanout) each(ctx context.Context, op string, sinks []Sink, fn func(Sink) error) error {
	if len(sinks) == 0 {
		return nil
	}
	var (
		mu      sync.Mutex
		errs    []error
		pending = make(map[string]struct{}, len(sinks))
	)
	for _, s := range sinks {
		pending[s.Name()] = struct{}{}
	}

	var g errgroup.Group
	for _, s := range sinks {
		g.Go(func() error {
			err := callSafely(s, fn)
			mu.Lock()
			defer mu.Unlock()
			delete(pending, s.Name())
			if err != nil {
				errs = append(errs, fmt.Errorf("%s %s: %w", op, s.Name(), err))
			}
			return nil
		})
	}
	done := make(chan struct{})
	go func() {
		_ = g.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
	}

	mu.Lock()
	defer mu.Unlock()
	if len(pending) > 0 {
		stuck := slices.Sorted(maps.Keys(pending))
		f.logger.Warn("abandoning sinks", "op", op, "sinks", stuck, "error", ctx.Err())
		errs = append(errs, fmt.Errorf("%s abandoned %s: %w", op, strings.Join(stuck, ","), ctx.Err()))
	}
	return errors.Join(errs...)
}

func callSafely(s Sink, fn func(Sink) error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("sink %s panicked: %v", s.Name(), r)
		}
	}()
	return fn(s)
}
