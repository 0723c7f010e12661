package stealth

import (
	"context"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gkmur/letterboxd-cli/internal/core"
)

func humanizer(cfg core.StealthConfig) *Humanizer {
	return New(cfg, rand.New(rand.NewSource(42)))
}

func TestMousePathEndsOnTarget(t *testing.T) {
	h := humanizer(core.StealthConfig{Enabled: true, OvershootChance: 1})

	for i := 0; i < 20; i++ {
		start := Point{X: 10, Y: 10}
		end := Point{X: 640 + float64(i), Y: 380}
		path := h.MousePath(start, end)

		require.GreaterOrEqual(t, len(path), 10)
		assert.InDelta(t, start.X, path[0].X, 1e-9)
		assert.InDelta(t, end.X, path[len(path)-1].X, 1e-9)
		assert.InDelta(t, end.Y, path[len(path)-1].Y, 1e-9)
	}

	assert.Equal(t, []Point{{X: 5, Y: 5}}, h.MousePath(Point{X: 5, Y: 5}, Point{X: 5, Y: 5}))
}

func replay(actions []KeyAction) string {
	var out []rune
	for _, a := range actions {
		if a.Backspace {
			out = out[:len(out)-1]
			continue
		}
		out = append(out, []rune(a.Key)...)
	}
	return string(out)
}

func TestTypingReplaysToText(t *testing.T) {
	h := humanizer(core.StealthConfig{TypingSpeedMin: 300, TypingSpeedMax: 400, TypoProbability: 0.5})

	text := "A quietly devastating film. Loved it!"
	actions := h.Typing(text)
	assert.Equal(t, text, replay(actions))

	backspaces := 0
	for _, a := range actions {
		assert.Positive(t, a.Delay)
		if a.Backspace {
			backspaces++
		}
	}
	assert.Positive(t, backspaces, "typos should be planned at this probability")
}

func TestTypingWithoutTypos(t *testing.T) {
	h := humanizer(core.StealthConfig{})
	actions := h.Typing("secret")
	require.Len(t, actions, 6)
	assert.Equal(t, "secret", replay(actions))
}

func TestScrollSumsToDistance(t *testing.T) {
	h := humanizer(core.StealthConfig{ScrollChunkMin: 60, ScrollChunkMax: 180})

	for _, d := range []int{1, 150, 999, -640} {
		steps := h.Scroll(d)
		sum := 0
		for _, s := range steps {
			sum += s.Delta
			if d < 0 {
				assert.Negative(t, s.Delta)
			}
		}
		assert.Equal(t, d, sum)
	}
	assert.Empty(t, h.Scroll(0))
}

func TestPause(t *testing.T) {
	off := humanizer(core.StealthConfig{BaseDelayMin: 1, BaseDelayMax: 2})
	assert.Zero(t, off.PauseDuration())

	on := humanizer(core.StealthConfig{Enabled: true, BaseDelayMin: 0.01, BaseDelayMax: 0.02})
	d := on.PauseDuration()
	assert.GreaterOrEqual(t, d, 10*time.Millisecond)
	assert.LessOrEqual(t, d, 21*time.Millisecond)
	assert.NotZero(t, d%time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	slow := humanizer(core.StealthConfig{Enabled: true, BaseDelayMin: 60, BaseDelayMax: 61})
	assert.ErrorIs(t, slow.Pause(ctx), context.Canceled)
}

func TestDefaults(t *testing.T) {
	cfg := humanizer(core.StealthConfig{TypoProbability: 3}).Config()
	assert.Equal(t, 60, cfg.TypingSpeedMin)
	assert.Equal(t, 1.0, cfg.TypoProbability)
	assert.Equal(t, 80, cfg.ScrollChunkMin)

	actions := humanizer(cfg).Typing("ok")
	require.Len(t, actions, 4)
	assert.NotEqual(t, "o", actions[0].Key)
	assert.True(t, actions[1].Backspace)
}
