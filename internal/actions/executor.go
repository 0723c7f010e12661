// Package actions performs mutating workflows on a film page: rating, logging
// a diary entry, and toggling the watchlist or like state.
//
// Every action follows the same protocol (see Executor.run). Mandatory steps
// fail the action; best-effort fields are skipped when their control cannot
// be found; a missing completion signal marks the result Incomplete without
// failing it.
package actions

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/gkmur/letterboxd-cli/internal/core"
	"github.com/gkmur/letterboxd-cli/internal/locator"
	"github.com/gkmur/letterboxd-cli/internal/site"
)

// Authenticator ensures the page is signed in before a mutation
type Authenticator interface {
	EnsureAuthenticated(ctx context.Context, page core.Page) error
}

// Field is one best-effort input of a mutation. Apply reports whether it
// changed anything; an error wrapping ErrElementNotFound or
// ErrVisibilityTimeout means the control is missing and the field is skipped.
type Field struct {
	Name  string
	Apply func(ctx context.Context, scope core.Scope) (bool, error)
}

// Commit performs the mandatory step that makes the change. It returns false
// when nothing had to be done, e.g. a toggle already in the desired state.
type Commit func(ctx context.Context, scope core.Scope) (bool, error)

// Mutation describes one action in terms of the shared protocol
type Mutation struct {
	Action string
	Slug   string

	// Surface is the control that opens the mutation surface. Nil for inline widgets.
	Surface *locator.Spec
	// Dialog is awaited after Surface is clicked. Fields and Commit are
	// resolved inside it. Nil when the surface is inline.
	Dialog *locator.Spec

	Fields []Field
	Commit Commit

	// Settled is the completion signal for mutations without a dialog.
	// When nil the page is waited idle instead.
	Settled func(ctx context.Context, page core.Page) (bool, error)
}

// Executor runs mutations against a page
type Executor struct {
	auth     Authenticator
	urls     site.Locations
	timeouts core.TimeoutsConfig
	logger   *zap.Logger
}

// NewExecutor creates an executor that authenticates through auth
func NewExecutor(auth Authenticator, siteCfg core.SiteConfig, timeouts core.TimeoutsConfig, logger *zap.Logger) *Executor {
	return &Executor{
		auth:     auth,
		urls:     site.New(siteCfg.BaseURL),
		timeouts: timeouts,
		logger:   logger.Named("actions"),
	}
}

// run executes the protocol:
//  1. ensure authentication
//  2. open the film page and await its ready marker (fatal)
//  3. click the surface control (fatal)
//  4. await the dialog (fatal)
//  5. apply each field, skipping missing controls
//  6. commit (fatal)
//  7. await completion (non-fatal, sets Incomplete)
func (x *Executor) run(ctx context.Context, page core.Page, m Mutation) (core.ActionResult, error) {
	res := core.ActionResult{Action: m.Action, Slug: m.Slug}
	log := x.logger.With(zap.String("action", m.Action), zap.String("slug", m.Slug))

	if m.Slug == "" {
		return res, fmt.Errorf("film slug is required")
	}

	if err := x.auth.EnsureAuthenticated(ctx, page); err != nil {
		return res, err
	}

	if err := page.Navigate(ctx, x.urls.Film(m.Slug)); err != nil {
		return res, fmt.Errorf("failed to open film page: %w", err)
	}
	if _, err := locator.AwaitVisible(ctx, page, filmReady, x.timeouts.Ready, x.poll()); err != nil {
		return res, fmt.Errorf("film page never became ready: %w", err)
	}

	if m.Surface != nil {
		open, err := locator.Resolve(ctx, page, *m.Surface)
		if err != nil {
			return res, err
		}
		if err := open.Element.Click(ctx); err != nil {
			return res, fmt.Errorf("failed to click %s: %w", m.Surface.Target, err)
		}
	}

	var scope core.Scope = page
	if m.Dialog != nil {
		dialog, err := locator.AwaitVisible(ctx, page, *m.Dialog, x.timeouts.Dialog, x.poll())
		if err != nil {
			return res, fmt.Errorf("mutation surface did not appear: %w", err)
		}
		scope = dialog.Element
	}

	for _, f := range m.Fields {
		_, err := f.Apply(ctx, scope)
		switch {
		case err == nil:
			res.Applied = append(res.Applied, f.Name)
		case core.IsTerminal(err):
			return res, fmt.Errorf("failed to set %s: %w", f.Name, err)
		default:
			log.Warn("Skipping field", zap.String("field", f.Name), zap.Error(err))
			res.Skipped = append(res.Skipped, f.Name)
		}
	}

	changed, err := m.Commit(ctx, scope)
	if err != nil {
		return res, fmt.Errorf("failed to submit %s: %w", m.Action, err)
	}
	res.Changed = changed || len(res.Applied) > 0
	if !changed && m.Dialog == nil {
		log.Info("Already in the requested state")
		return res, nil
	}

	if err := x.awaitCompletion(ctx, page, m); err != nil {
		if core.IsTerminal(err) {
			return res, err
		}
		log.Warn("Completion not observed; the change may still have applied", zap.Error(err))
		res.Incomplete = true
		return res, nil
	}

	log.Info("Action completed", zap.Strings("applied", res.Applied), zap.Strings("skipped", res.Skipped))
	return res, nil
}

func (x *Executor) awaitCompletion(ctx context.Context, page core.Page, m Mutation) error {
	switch {
	case m.Dialog != nil:
		return locator.AwaitGone(ctx, page, *m.Dialog, x.timeouts.Completion, x.poll())
	case m.Settled != nil:
		return locator.AwaitCondition(ctx, x.timeouts.Completion, x.timeouts.Poll, func(ctx context.Context) (bool, error) {
			return m.Settled(ctx, page)
		})
	default:
		return page.WaitIdle(ctx, x.timeouts.Completion)
	}
}

func (x *Executor) poll() locator.Option {
	return locator.WithPoll(x.timeouts.Poll)
}

// click resolves spec in scope and clicks it
func click(spec locator.Spec) Commit {
	return func(ctx context.Context, scope core.Scope) (bool, error) {
		match, err := locator.Resolve(ctx, scope, spec)
		if err != nil {
			return false, err
		}
		if err := match.Element.Click(ctx); err != nil {
			return false, fmt.Errorf("failed to click %s: %w", spec.Target, err)
		}
		return true, nil
	}
}
