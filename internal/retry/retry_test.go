package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestDoSucceedsAfterFailures(t *testing.T) {
	calls := 0
	v, err := Do(context.Background(), zap.NewNop(), "open source", Policy{MaxAttempts: 3, Delay: time.Millisecond}, func() (string, error) {
		calls++
		if calls < 3 {
			return "", errors.New("connection refused")
		}
		return "conn", nil
	})
	require.NoError(t, err)
	require.Equal(t, "conn", v)
	require.Equal(t, 3, calls)
}

func TestDoExhaustsAttempts(t *testing.T) {
	calls := 0
	start := time.Now()
	_, err := Do(context.Background(), zap.NewNop(), "open sink", Policy{MaxAttempts: 3, Delay: 10 * time.Millisecond}, func() (int, error) {
		calls++
		return 0, errors.New("always fails")
	})
	require.Error(t, err)
	require.EqualError(t, err, "open sink failed after 3 attempts")
	require.Equal(t, 3, calls)
	// Every failure pauses, so three attempts cost at least three delays.
	require.GreaterOrEqual(t, time.Since(start), 30*time.Millisecond)
}

func TestDoCanceledDuringPause(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	calls := 0
	_, err := Do(ctx, zap.NewNop(), "open source", Policy{MaxAttempts: 3, Delay: time.Minute}, func() (int, error) {
		calls++
		return 0, errors.New("boom")
	})
	require.ErrorIs(t, err, context.Canceled)
	require.Equal(t, 1, calls)
}
