package actions

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/gkmur/letterboxd-cli/internal/core"
	"github.com/gkmur/letterboxd-cli/internal/locator"
)

// errUnknownState means a toggle's current state could not be read. Such a
// toggle is never clicked, since a click would invert an unknown state.
var errUnknownState = errors.New("toggle state unreadable")

var (
	removeText = regexp.MustCompile(`(?i)^(remove|unlike)\b`)
	addText    = regexp.MustCompile(`(?i)^add\b`)
)

// readToggle derives on/off from ARIA state, the checked property of native
// inputs, state classes, and finally add/remove wording.
func readToggle(ctx context.Context, el core.Element) (bool, error) {
	for _, attr := range []string{"aria-pressed", "aria-checked"} {
		v, ok, err := el.Attribute(ctx, attr)
		if err != nil {
			return false, err
		}
		if ok {
			switch v {
			case "true":
				return true, nil
			case "false":
				return false, nil
			}
		}
	}

	typ, _, err := el.Attribute(ctx, "type")
	if err != nil {
		return false, err
	}
	if typ == "checkbox" || typ == "radio" {
		return el.Checked(ctx)
	}

	class, _, err := el.Attribute(ctx, "class")
	if err != nil {
		return false, err
	}
	for _, c := range strings.Fields(class) {
		switch c {
		case "-on", "on", "active", "is-active", "-active":
			return true, nil
		case "-off", "off":
			return false, nil
		}
	}

	text, err := el.Text(ctx)
	if err != nil {
		return false, err
	}
	text = strings.TrimSpace(text)
	switch {
	case removeText.MatchString(text):
		return true, nil
	case addText.MatchString(text):
		return false, nil
	}
	return false, errUnknownState
}

// toggle sets the control matched by spec to want, clicking only when its
// current state differs
func toggle(spec locator.Spec, want bool) func(ctx context.Context, scope core.Scope) (bool, error) {
	return func(ctx context.Context, scope core.Scope) (bool, error) {
		match, err := locator.Resolve(ctx, scope, spec)
		if err != nil {
			return false, err
		}
		on, err := readToggle(ctx, match.Element)
		if err != nil {
			return false, fmt.Errorf("%s: %w", spec.Target, err)
		}
		if on == want {
			return false, nil
		}
		if err := match.Element.Click(ctx); err != nil {
			return false, fmt.Errorf("failed to click %s: %w", spec.Target, err)
		}
		return true, nil
	}
}

// toggleSettled reports whether the toggle now reads want
func toggleSettled(spec locator.Spec, want bool) func(ctx context.Context, page core.Page) (bool, error) {
	return func(ctx context.Context, page core.Page) (bool, error) {
		match, err := locator.Resolve(ctx, page, spec)
		if err != nil {
			if errors.Is(err, core.ErrElementNotFound) {
				return false, nil
			}
			return false, err
		}
		on, err := readToggle(ctx, match.Element)
		if errors.Is(err, errUnknownState) {
			return false, nil
		}
		return on == want, err
	}
}
