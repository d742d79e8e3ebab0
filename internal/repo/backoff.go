package repo

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"math/rand"
	"time"
)

const connectAttempts = 5

var (
	connectBaseDelay = 500 * time.Millisecond
	connectMaxDelay  = 10 * time.Second
)

// backoff doubles from base on every attempt, capped at capDelay.
// attempt=0 => base, attempt=1 => 2*base, ...
func backoff(attempt int, base, capDelay time.Duration) time.Duration {
	delay := time.Duration(float64(base) * math.Pow(2, float64(attempt)))

	if delay > capDelay || delay <= 0 {
		delay = capDelay
	}

	// small jitter (0-250ms) so replicas do not dial in lockstep
	return delay + time.Duration(rand.Intn(250))*time.Millisecond
}

// dialWithRetry calls dial until it succeeds, connectAttempts run out or
// ctx is done.
func dialWithRetry[T any](ctx context.Context, log *slog.Logger, store string, dial func(context.Context) (T, error)) (T, error) {
	var (
		zero    T
		lastErr error
	)

	for attempt := 0; attempt < connectAttempts; attempt++ {
		v, err := dial(ctx)
		if err == nil {
			return v, nil
		}
		lastErr = err

		if attempt == connectAttempts-1 {
			break
		}

		wait := backoff(attempt, connectBaseDelay, connectMaxDelay)
		log.Warn("store not reachable, retrying",
			"store", store,
			"attempt", attempt+1,
			"wait", wait.String(),
			"err", err,
		)

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return zero, errors.Join(lastErr, ctx.Err())
		case <-timer.C:
		}
	}

	return zero, lastErr
}
