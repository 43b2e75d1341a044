package sink

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time { return c.t }

func newTestBuffered(inner Sink, max int, interval time.Duration) (*Buffered, *fakeClock) {
	clock := &fakeClock{t: time.Date(2024, 5, 15, 12, 0, 0, 0, time.UTC)}
	b := NewBuffered(inner, max, interval)
	b.now = clock.now
	b.lastFlush = clock.t
	return b, clock
}

func TestBuffered_FlushOnCount(t *testing.T) {
	inner := &recordingSink{name: "s3"}
	b, _ := newTestBuffered(inner, 5, time.Hour)

	require.NoError(t, b.Write(context.Background(), testBatch("a", 3)))
	assert.Empty(t, inner.received())
	assert.Equal(t, 3, b.Pending())

	require.NoError(t, b.Write(context.Background(), testBatch("b", 3)))
	got := inner.received()
	require.Len(t, got, 1)
	assert.Len(t, got[0].Samples, 6)
	assert.Equal(t, "SYSPLEX01", got[0].Sysplex)
	assert.NotEmpty(t, got[0].ID)
	assert.Equal(t, 0, b.Pending())
}

func TestBuffered_FlushOnInterval(t *testing.T) {
	inner := &recordingSink{name: "s3"}
	b, clock := newTestBuffered(inner, 1000, time.Minute)

	require.NoError(t, b.Write(context.Background(), testBatch("a", 1)))
	clock.t = clock.t.Add(30 * time.Second)
	require.NoError(t, b.Write(context.Background(), testBatch("b", 1)))
	assert.Empty(t, inner.received())

	clock.t = clock.t.Add(31 * time.Second)
	require.NoError(t, b.Write(context.Background(), testBatch("c", 1)))
	got := inner.received()
	require.Len(t, got, 1)
	assert.Len(t, got[0].Samples, 3)
}

func TestBuffered_CloseDrains(t *testing.T) {
	inner := &recordingSink{name: "s3"}
	b, _ := newTestBuffered(inner, 1000, time.Hour)

	require.NoError(t, b.Write(context.Background(), testBatch("a", 2)))
	require.NoError(t, b.Close(context.Background()))

	got := inner.received()
	require.Len(t, got, 1)
	assert.Len(t, got[0].Samples, 2)
	assert.True(t, inner.closed.Load())

	err := b.Write(context.Background(), testBatch("late", 1))
	assert.True(t, errors.Is(err, ErrSinkClosed))
	require.NoError(t, b.Close(context.Background()))
}

func TestBuffered_FailedFlushDropsSamples(t *testing.T) {
	inner := &recordingSink{name: "s3", err: errors.New("bucket gone")}
	b, _ := newTestBuffered(inner, 2, time.Hour)

	err := b.Write(context.Background(), testBatch("a", 2))
	require.Error(t, err)
	assert.ErrorContains(t, err, "flush 2 samples")
	assert.Equal(t, 0, b.Pending())
}

func TestBuffered_EmptyFlushIsNoop(t *testing.T) {
	inner := &recordingSink{name: "s3"}
	b, _ := newTestBuffered(inner, 2, time.Hour)

	require.NoError(t, b.Flush(context.Background()))
	assert.Equal(t, int32(0), inner.writes.Load())
	assert.Equal(t, "s3", b.Name())
}
