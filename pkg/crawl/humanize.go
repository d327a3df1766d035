package crawl

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/go-scripts/research/pkg/common"
)

// SleepFunc blocks for d or until ctx is done
type SleepFunc func(ctx context.Context, d time.Duration) error

// Humanizer draws randomized pauses and distances from the configured ranges
type Humanizer struct {
	cfg   common.Humanize
	mu    sync.Mutex
	rng   *rand.Rand
	sleep SleepFunc
}

// HumanizerOption customizes a Humanizer
type HumanizerOption func(*Humanizer)

// WithRand sets the random source, mainly for deterministic tests
func WithRand(r *rand.Rand) HumanizerOption {
	return func(h *Humanizer) { h.rng = r }
}

// WithSleep replaces the sleep implementation
func WithSleep(fn SleepFunc) HumanizerOption {
	return func(h *Humanizer) { h.sleep = fn }
}

// NewHumanizer creates a Humanizer for cfg
func NewHumanizer(cfg common.Humanize, opts ...HumanizerOption) *Humanizer {
	h := &Humanizer{
		cfg:   cfg,
		rng:   rand.New(rand.NewSource(time.Now().UnixNano())),
		sleep: contextSleep,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// NoSleep returns immediately unless ctx is already done
func NoSleep(ctx context.Context, _ time.Duration) error {
	return ctx.Err()
}

func contextSleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Config returns the pacing configuration
func (h *Humanizer) Config() common.Humanize {
	return h.cfg
}

// Int draws a value from r, inclusive on both ends
func (h *Humanizer) Int(r common.IntRange) int {
	if r.Max <= r.Min {
		return r.Min
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	return r.Min + h.rng.Intn(r.Max-r.Min+1)
}

// Duration draws a value from r
func (h *Humanizer) Duration(r common.DurationRange) time.Duration {
	if r.Max <= r.Min {
		return r.Min
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	return r.Min + time.Duration(h.rng.Int63n(int64(r.Max-r.Min)+1))
}

// Chance reports true with probability p
func (h *Humanizer) Chance(p float64) bool {
	if p <= 0 {
		return false
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.rng.Float64() < p
}

// Sleep pauses for d
func (h *Humanizer) Sleep(ctx context.Context, d time.Duration) error {
	return h.sleep(ctx, d)
}

// SleepRange pauses for a duration drawn from r
func (h *Humanizer) SleepRange(ctx context.Context, r common.DurationRange) error {
	return h.sleep(ctx, h.Duration(r))
}

// Pause waits the fixed delay between browser actions
func (h *Humanizer) Pause(ctx context.Context) error {
	return h.sleep(ctx, h.cfg.ActionPause)
}
