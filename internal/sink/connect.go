package sink

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"time"
)

// RetryPolicy bounds the startup connect loop of database backed sinks.
type RetryPolicy struct {
	Attempts  int
	Wait      time.Duration
	MaxJitter time.Duration
}

func (p RetryPolicy) jitter() time.Duration {
	if p.MaxJitter <= 0 {
		return 0
	}
	return time.Duration(rand.Int64N(int64(p.MaxJitter)))
}

// connectWithRetry calls dial until it succeeds, the attempts run out or ctx ends.
func connectWithRetry(ctx context.Context, logger *slog.Logger, target string, p RetryPolicy, dial func(context.Context) error) error {
	if p.Attempts <= 0 {
		p.Attempts = 1
	}
	if p.Wait <= 0 {
		p.Wait = 3 * time.Second
	}

	var lastErr error
	for attempt := 1; attempt <= p.Attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		lastErr = dial(ctx)
		if lastErr == nil {
			if attempt > 1 {
				logger.Info("connected after retry", "target", target, "attempt", attempt)
			}
			return nil
		}
		if attempt == p.Attempts {
			break
		}

		wait := p.Wait + p.jitter()
		logger.Error("connect failed", "target", target, "attempt", attempt, "error", lastErr, "retry_in", wait)
		t := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			t.Stop()
			return ctx.Err()
		case <-t.C:
		}
	}
	return fmt.Errorf("connect %s after %d attempts: %w", target, p.Attempts, lastErr)
}
