package repo

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBackoff_DoublesAndCaps(t *testing.T) {
	base := time.Second
	capDelay := 5 * time.Second
	jitter := 250 * time.Millisecond

	for attempt, want := range []time.Duration{time.Second, 2 * time.Second, 4 * time.Second, capDelay, capDelay} {
		got := backoff(attempt, base, capDelay)
		assert.GreaterOrEqual(t, got, want, "attempt %d", attempt)
		assert.Less(t, got, want+jitter, "attempt %d", attempt)
	}

	// overflow falls back to the cap
	got := backoff(200, base, capDelay)
	assert.Less(t, got, capDelay+jitter)
}

func shrinkDelays(t *testing.T) {
	t.Helper()

	base, maxDelay := connectBaseDelay, connectMaxDelay
	connectBaseDelay, connectMaxDelay = time.Millisecond, time.Millisecond
	t.Cleanup(func() {
		connectBaseDelay, connectMaxDelay = base, maxDelay
	})
}

func TestDialWithRetry(t *testing.T) {
	shrinkDelays(t)
	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	t.Run("succeeds after transient failures", func(t *testing.T) {
		calls := 0
		v, err := dialWithRetry(context.Background(), log, "test", func(context.Context) (string, error) {
			calls++
			if calls < 3 {
				return "", errors.New("connection refused")
			}
			return "conn", nil
		})
		require.NoError(t, err)
		assert.Equal(t, "conn", v)
		assert.Equal(t, 3, calls)
	})

	t.Run("gives up after the last attempt", func(t *testing.T) {
		calls := 0
		dialErr := errors.New("connection refused")
		_, err := dialWithRetry(context.Background(), log, "test", func(context.Context) (int, error) {
			calls++
			return 0, dialErr
		})
		assert.ErrorIs(t, err, dialErr)
		assert.Equal(t, connectAttempts, calls)
	})

	t.Run("stops when the context ends", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		calls := 0
		_, err := dialWithRetry(ctx, log, "test", func(context.Context) (int, error) {
			calls++
			cancel()
			return 0, errors.New("connection refused")
		})
		assert.ErrorIs(t, err, context.Canceled)
		assert.Equal(t, 1, calls)
	})
}
