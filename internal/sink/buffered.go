package sink

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"rmf-simulator/internal/model"
)

// Buffered accumulates samples and hands them to the inner sink as one batch
// once either threshold is crossed. A failed flush drops its samples.
type Buffered struct {
	mu sync.Mutex

	inner      Sink
	maxSamples int
	interval   time.Duration
	now        func() time.Time

	sysplex   string
	pending   []model.MetricSample
	lastFlush time.Time
	closed    bool
}

func NewBuffered(inner Sink, maxSamples int, interval time.Duration) *Buffered {
	if maxSamples <= 0 {
		maxSamples = 50
	}
	if interval <= 0 {
		interval = time.Minute
	}
	b := &Buffered{
		inner:      inner,
		maxSamples: maxSamples,
		interval:   interval,
		now:        time.Now,
	}
	b.lastFlush = b.now()
	return b
}

func (b *Buffered) Name() string {
	return b.inner.Name()
}

func (b *Buffered) Pending() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.pending)
}

func (b *Buffered) Write(ctx context.Context, batch model.MetricBatch) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return ErrSinkClosed
	}
	if batch.Sysplex != "" {
		b.sysplex = batch.Sysplex
	}
	b.pending = append(b.pending, batch.Samples...)

	if len(b.pending) >= b.maxSamples || b.now().Sub(b.lastFlush) >= b.interval {
		return b.flushLocked(ctx)
	}
	return nil
}

func (b *Buffered) Flush(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.flushLocked(ctx)
}

// Close flushes whatever is pending before closing the inner sink.
func (b *Buffered) Close(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil
	}
	b.closed = true
	flushErr := b.flushLocked(ctx)
	return errors.Join(flushErr, b.inner.Close(ctx))
}

func (b *Buffered) flushLocked(ctx context.Context) error {
	now := b.now()
	b.lastFlush = now
	if len(b.pending) == 0 {
		return nil
	}
	out := model.MetricBatch{
		ID:      uuid.NewString(),
		Sysplex: b.sysplex,
		Tick:    now,
		Samples: b.pending,
	}
	b.pending = nil
	if err := b.inner.Write(ctx, out); err != nil {
		return fmt.Errorf("flush %d samples: %w", out.Len(), err)
	}
	return nil
}
