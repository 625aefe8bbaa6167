package calc

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestBackoff(t *testing.T) {
	t.Run("doubles from base", func(t *testing.T) {
		base := 2 * time.Second

		assert.Equal(t, 2*time.Second, Backoff(base, 1))
		assert.Equal(t, 4*time.Second, Backoff(base, 2))
		assert.Equal(t, 8*time.Second, Backoff(base, 3))
		assert.Equal(t, 16*time.Second, Backoff(base, 4))
	})

	t.Run("is non-decreasing and equals base times two to the attempt minus one", func(t *testing.T) {
		base := 150 * time.Millisecond
		prev := time.Duration(0)
		for attempt := 1; attempt <= 20; attempt++ {
			got := Backoff(base, attempt)
			assert.Equal(t, base*time.Duration(1<<(attempt-1)), got, "attempt %d", attempt)
			assert.GreaterOrEqual(t, got, prev)
			prev = got
		}
	})

	t.Run("attempts below one are treated as one", func(t *testing.T) {
		assert.Equal(t, time.Second, Backoff(time.Second, 0))
		assert.Equal(t, time.Second, Backoff(time.Second, -5))
	})

	t.Run("zero base never sleeps", func(t *testing.T) {
		assert.Zero(t, Backoff(0, 5))
	})

	t.Run("saturates instead of overflowing", func(t *testing.T) {
		assert.Equal(t, time.Duration(math.MaxInt64), Backoff(time.Hour, 80))
		prev := time.Duration(0)
		for attempt := 1; attempt <= 100; attempt++ {
			got := Backoff(time.Hour, attempt)
			assert.GreaterOrEqual(t, got, prev)
			prev = got
		}
	})
}

func TestSleepContext(t *testing.T) {
	t.Run("returns after duration", func(t *testing.T) {
		assert.NoError(t, sleepContext(context.Background(), time.Millisecond))
	})

	t.Run("returns early on cancel", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		start := time.Now()
		err := sleepContext(ctx, time.Hour)

		assert.ErrorIs(t, err, context.Canceled)
		assert.Less(t, time.Since(start), time.Second)
	})
}
