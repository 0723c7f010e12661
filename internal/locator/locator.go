// Package locator resolves semantic targets to on-page elements through an
// ordered list of candidate strategies. The first strategy with a match wins;
// later strategies are never evaluated and results are never unioned.
package locator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gkmur/letterboxd-cli/internal/core"
)

// DefaultPoll is the interval between visibility checks
const DefaultPoll = 100 * time.Millisecond

// Spec is an ordered, non-empty list of strategies for one semantic target
type Spec struct {
	Target     string
	Strategies []Strategy
}

// New builds a Spec. The signature guarantees at least one strategy.
func New(target string, first Strategy, rest ...Strategy) Spec {
	return Spec{
		Target:     target,
		Strategies: append([]Strategy{first}, rest...),
	}
}

// Join concatenates the strategies of specs, in order, under one target.
// AwaitVisible on the result waits for whichever part appears first.
func Join(target string, first Spec, rest ...Spec) Spec {
	out := Spec{Target: target, Strategies: append([]Strategy(nil), first.Strategies...)}
	for _, s := range rest {
		out.Strategies = append(out.Strategies, s.Strategies...)
	}
	return out
}

func (s Spec) String() string {
	parts := make([]string, len(s.Strategies))
	for i, st := range s.Strategies {
		parts[i] = st.String()
	}
	return fmt.Sprintf("%s [%s]", s.Target, strings.Join(parts, " | "))
}

// Match is a resolved element along with the strategy that produced it
type Match struct {
	Element  core.Element
	Strategy int
}

type options struct {
	index int
	poll  time.Duration
}

// Option tunes resolution
type Option func(*options)

// WithIndex selects the element at i within the winning strategy's matches
func WithIndex(i int) Option {
	return func(o *options) { o.index = i }
}

// WithPoll sets the polling interval of the await functions
func WithPoll(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.poll = d
		}
	}
}

func collect(opts []Option) options {
	o := options{poll: DefaultPoll}
	for _, fn := range opts {
		fn(&o)
	}
	return o
}

// All returns every match of the first strategy that yields at least one.
// It returns ErrElementNotFound when every strategy yields nothing.
func All(ctx context.Context, scope core.Scope, spec Spec) ([]core.Element, int, error) {
	for i, st := range spec.Strategies {
		if err := ctx.Err(); err != nil {
			return nil, -1, err
		}
		found, err := st.find(ctx, scope)
		if err != nil {
			return nil, -1, fmt.Errorf("evaluating %s for %s: %w", st, spec.Target, err)
		}
		if len(found) > 0 {
			return found, i, nil
		}
	}
	return nil, -1, fmt.Errorf("%s: %w", spec.Target, core.ErrElementNotFound)
}

// Resolve returns the element at the requested index (default 0) of the
// winning strategy. It does not wait.
func Resolve(ctx context.Context, scope core.Scope, spec Spec, opts ...Option) (Match, error) {
	o := collect(opts)
	found, winner, err := All(ctx, scope, spec)
	if err != nil {
		return Match{}, err
	}
	if o.index < 0 || o.index >= len(found) {
		return Match{}, fmt.Errorf("%s: index %d of %d matches (%s): %w",
			spec.Target, o.index, len(found), spec.Strategies[winner], core.ErrElementNotFound)
	}
	return Match{Element: found[o.index], Strategy: winner}, nil
}

// Exists reports whether any strategy yields a match
func Exists(ctx context.Context, scope core.Scope, spec Spec) (bool, error) {
	_, _, err := All(ctx, scope, spec)
	if err == nil {
		return true, nil
	}
	if isNotFound(err) {
		return false, nil
	}
	return false, err
}

// Visible returns the first strategy's match that is visible right now. It
// does not wait. Hidden matches count as absent.
func Visible(ctx context.Context, scope core.Scope, spec Spec, opts ...Option) (Match, bool, error) {
	return firstVisible(ctx, scope, spec, collect(opts).index)
}

// AwaitVisible polls the strategies in order until one's selected match is
// visible, or returns ErrVisibilityTimeout once timeout elapses.
func AwaitVisible(ctx context.Context, scope core.Scope, spec Spec, timeout time.Duration, opts ...Option) (Match, error) {
	o := collect(opts)
	var match Match
	err := poll(ctx, timeout, o.poll, func() (bool, error) {
		m, ok, err := firstVisible(ctx, scope, spec, o.index)
		if ok {
			match = m
		}
		return ok, err
	})
	if err != nil {
		return Match{}, fmt.Errorf("%s after %s: %w", spec.Target, timeout, err)
	}
	return match, nil
}

// AwaitGone polls until no strategy yields a visible match. It is the
// completion signal for dialogs closing.
func AwaitGone(ctx context.Context, scope core.Scope, spec Spec, timeout time.Duration, opts ...Option) error {
	o := collect(opts)
	err := poll(ctx, timeout, o.poll, func() (bool, error) {
		_, visible, err := firstVisible(ctx, scope, spec, o.index)
		return !visible, err
	})
	if err != nil {
		return fmt.Errorf("%s still visible after %s: %w", spec.Target, timeout, err)
	}
	return nil
}

// AwaitCondition polls cond until it holds or timeout elapses
func AwaitCondition(ctx context.Context, timeout, interval time.Duration, cond func(context.Context) (bool, error)) error {
	if interval <= 0 {
		interval = DefaultPoll
	}
	return poll(ctx, timeout, interval, func() (bool, error) { return cond(ctx) })
}

func firstVisible(ctx context.Context, scope core.Scope, spec Spec, index int) (Match, bool, error) {
	for i, st := range spec.Strategies {
		found, err := st.find(ctx, scope)
		if err != nil {
			return Match{}, false, err
		}
		if index < 0 || index >= len(found) {
			continue
		}
		visible, err := found[index].Visible(ctx)
		if err != nil {
			return Match{}, false, err
		}
		if visible {
			return Match{Element: found[index], Strategy: i}, true, nil
		}
	}
	return Match{}, false, nil
}

// poll checks immediately and then every interval. Errors from check are not
// retried: a page that fails to answer will not recover by waiting.
func poll(ctx context.Context, timeout, interval time.Duration, check func() (bool, error)) error {
	deadline := time.NewTimer(timeout)
	defer deadline.Stop()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		ok, err := check()
		if err != nil {
			return err
		}
		if ok {
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-deadline.C:
			return core.ErrVisibilityTimeout
		case <-ticker.C:
		}
	}
}

func isNotFound(err error) bool {
	return errors.Is(err, core.ErrElementNotFound)
}
