// Package sink delivers metric batches to storage and streaming backends.
package sink

import (
	"context"
	"errors"

	"rmf-simulator/internal/model"
)

var ErrSinkClosed = errors.New("sink closed")

// Sink is the single capability every backend implements.
type Sink interface {
	Name() string
	Write(ctx context.Context, batch model.MetricBatch) error
	Close(ctx context.Context) error
}

// Flusher is implemented by sinks that hold samples between writes.
type Flusher interface {
	Flush(ctx context.Context) error
}
