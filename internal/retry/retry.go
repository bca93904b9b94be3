package retry

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// Policy bounds how often and how fast an operation is retried. The delay is
// fixed, there is no backoff growth.
type Policy struct {
	MaxAttempts int
	Delay       time.Duration
}

// Do invokes op until it succeeds or the policy is exhausted. Every failed
// attempt is logged and followed by the fixed pause; after the last failure a
// single aggregated error naming the operation is returned. The pause is
// interruptible by context cancellation.
func Do[T any](ctx context.Context, logger *zap.Logger, name string, p Policy, op func() (T, error)) (T, error) {
	var zero T
	for attempt := 1; attempt <= p.MaxAttempts; attempt++ {
		v, err := op()
		if err == nil {
			return v, nil
		}
		logger.Error("operation failed",
			zap.String("op", name),
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", p.MaxAttempts),
			zap.Error(err))
		logger.Debug("waiting before next attempt",
			zap.String("op", name),
			zap.Duration("delay", p.Delay))
		select {
		case <-time.After(p.Delay):
		case <-ctx.Done():
			return zero, ctx.Err()
		}
	}
	logger.Error("operation exhausted all attempts",
		zap.String("op", name),
		zap.Int("max_attempts", p.MaxAttempts))
	return zero, fmt.Errorf("%s failed after %d attempts", name, p.MaxAttempts)
}
