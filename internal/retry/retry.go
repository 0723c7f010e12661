// Package retry runs idempotent operations with a bounded number of attempts
// and a fixed delay between them. Never wrap a submitted mutation in it.
package retry

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"

	"github.com/gkmur/letterboxd-cli/internal/core"
)

const (
	DefaultAttempts = 3
	DefaultDelay    = time.Second
)

// Policy configures attempts and the fixed delay between them
type Policy struct {
	Attempts int
	Delay    time.Duration
	Logger   *zap.Logger
}

// DefaultPolicy returns 3 attempts with 1s between them
func DefaultPolicy() Policy {
	return Policy{Attempts: DefaultAttempts, Delay: DefaultDelay}
}

// FromConfig builds a policy from configuration, falling back to defaults for zero values
func FromConfig(cfg core.RetryConfig, logger *zap.Logger) Policy {
	p := DefaultPolicy()
	if cfg.Attempts > 0 {
		p.Attempts = cfg.Attempts
	}
	if cfg.Delay > 0 {
		p.Delay = cfg.Delay
	}
	p.Logger = logger
	return p
}

// Do calls op up to p.Attempts times. The last attempt's error is returned as is.
// Cancelling ctx during a delay returns ctx.Err().
func Do(ctx context.Context, p Policy, op func(ctx context.Context) error) error {
	_, err := Value(ctx, p, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, op(ctx)
	})
	return err
}

// Value is Do for operations that produce a result
func Value[T any](ctx context.Context, p Policy, op func(ctx context.Context) (T, error)) (T, error) {
	attempts := p.Attempts
	if attempts < 1 {
		attempts = 1
	}

	b := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(p.Delay), uint64(attempts-1)),
		ctx,
	)

	attempt := 0
	operation := func() (T, error) {
		attempt++
		result, err := op(ctx)
		if err != nil && core.IsTerminal(err) {
			return result, backoff.Permanent(err)
		}
		return result, err
	}

	notify := func(err error, delay time.Duration) {
		if p.Logger == nil {
			return
		}
		p.Logger.Warn("Attempt failed, retrying",
			zap.Int("attempt", attempt),
			zap.Int("attempts", attempts),
			zap.Duration("delay", delay),
			zap.Error(err),
		)
	}

	return backoff.RetryNotifyWithData(operation, b, notify)
}
