package crawl

import (
	"context"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/go-scripts/research/pkg/common"
)

func TestHumanizerRanges(t *testing.T) {
	h := NewHumanizer(common.Humanize{}, WithRand(rand.New(rand.NewSource(42))), WithSleep(NoSleep))

	for i := 0; i < 500; i++ {
		n := h.Int(common.IntRange{Min: 3, Max: 7})
		assert.GreaterOrEqual(t, n, 3)
		assert.LessOrEqual(t, n, 7)

		d := h.Duration(common.DurationRange{Min: 50 * time.Millisecond, Max: 150 * time.Millisecond})
		assert.GreaterOrEqual(t, d, 50*time.Millisecond)
		assert.LessOrEqual(t, d, 150*time.Millisecond)
	}

	assert.Equal(t, 5, h.Int(common.IntRange{Min: 5, Max: 5}))
	assert.Equal(t, time.Second, h.Duration(common.DurationRange{Min: time.Second}))
	assert.False(t, h.Chance(0))
	assert.True(t, h.Chance(1))
}

func TestHumanizerSleepHonoursContext(t *testing.T) {
	h := NewHumanizer(common.Humanize{ActionPause: time.Hour})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	start := time.Now()
	err := h.Pause(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Less(t, time.Since(start), time.Second)
}

func TestHumanizerCustomSleep(t *testing.T) {
	var slept []time.Duration
	h := NewHumanizer(common.Humanize{ActionPause: 2 * time.Second}, WithSleep(func(_ context.Context, d time.Duration) error {
		slept = append(slept, d)
		return nil
	}))

	assert.NoError(t, h.Pause(context.Background()))
	assert.NoError(t, h.SleepRange(context.Background(), common.DurationRange{Min: time.Second, Max: time.Second}))
	assert.Equal(t, []time.Duration{2 * time.Second, time.Second}, slept)
}
