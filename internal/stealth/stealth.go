// Package stealth produces human-looking input: curved mouse paths, typing
// cadence with corrected typos, eased scrolling and jittered pauses. It only
// computes plans; the browser layer dispatches them.
package stealth

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/gkmur/letterboxd-cli/internal/core"
)

// Humanizer coordinates mouse, keyboard, scroll and pause generation
type Humanizer struct {
	cfg core.StealthConfig

	mu  sync.Mutex
	rng *rand.Rand
}

// New creates a Humanizer. A nil rng is seeded from the clock.
func New(cfg core.StealthConfig, rng *rand.Rand) *Humanizer {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Humanizer{cfg: withDefaults(cfg), rng: rng}
}

func withDefaults(cfg core.StealthConfig) core.StealthConfig {
	if cfg.TypingSpeedMin < 1 {
		cfg.TypingSpeedMin = 60
	}
	if cfg.TypingSpeedMax < cfg.TypingSpeedMin {
		cfg.TypingSpeedMax = cfg.TypingSpeedMin
	}
	if cfg.MouseSpeedMin <= 0 {
		cfg.MouseSpeedMin = 0.8
	}
	if cfg.MouseSpeedMax < cfg.MouseSpeedMin {
		cfg.MouseSpeedMax = cfg.MouseSpeedMin
	}
	if cfg.ScrollChunkMin < 1 {
		cfg.ScrollChunkMin = 80
	}
	if cfg.ScrollChunkMax < cfg.ScrollChunkMin {
		cfg.ScrollChunkMax = cfg.ScrollChunkMin
	}
	if cfg.TypoProbability < 0 {
		cfg.TypoProbability = 0
	}
	if cfg.TypoProbability > 1 {
		cfg.TypoProbability = 1
	}
	return cfg
}

// Enabled reports whether humanised input is switched on
func (h *Humanizer) Enabled() bool { return h.cfg.Enabled }

// Config returns the effective configuration
func (h *Humanizer) Config() core.StealthConfig { return h.cfg }

func (h *Humanizer) float64() float64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.rng.Float64()
}

func (h *Humanizer) intn(n int) int {
	if n <= 0 {
		return 0
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.rng.Intn(n)
}

// between returns a uniform value in [min, max]
func (h *Humanizer) between(min, max float64) float64 {
	if max < min {
		min, max = max, min
	}
	return min + h.float64()*(max-min)
}

// PauseDuration draws a delay between the configured base bounds. It never
// lands on a whole millisecond.
func (h *Humanizer) PauseDuration() time.Duration {
	if !h.cfg.Enabled || h.cfg.BaseDelayMax <= 0 {
		return 0
	}
	seconds := h.between(h.cfg.BaseDelayMin, h.cfg.BaseDelayMax) + h.float64()*0.0001
	return time.Duration(seconds * float64(time.Second))
}

// Pause sleeps for PauseDuration, returning early with ctx.Err() on cancellation
func (h *Humanizer) Pause(ctx context.Context) error {
	return Sleep(ctx, h.PauseDuration())
}

// Sleep waits for d or until ctx is done
func Sleep(ctx context.Context, d time.Duration) error {
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
