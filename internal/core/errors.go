package core

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrElementNotFound means a locator resolved zero elements when one was required
	ErrElementNotFound = errors.New("element not found")
	// ErrVisibilityTimeout means an awaited element never became visible in time
	ErrVisibilityTimeout = errors.New("visibility timeout")
	// ErrAuthenticationFailure means login failed or no credentials were available
	ErrAuthenticationFailure = errors.New("authentication failure")
	// ErrSessionClosed means the browser session was torn down
	ErrSessionClosed = errors.New("session closed")
	// ErrPageClosed means the page was released by its owning operation
	ErrPageClosed = errors.New("page closed")
	// ErrMalformedItem is internal to the scraper and never returned by it
	ErrMalformedItem = errors.New("malformed item")
	// ErrInvalidRating means a rating is outside 0.5..5.0 or not a half step
	ErrInvalidRating = errors.New("invalid rating")
	// ErrDailyLimit means the configured number of mutations for today was reached
	ErrDailyLimit = errors.New("daily action limit reached")
)

// OpError attaches the operation name and its subject (slug, query, username)
// to an error kind.
type OpError struct {
	Op      string
	Subject string
	Err     error
}

func (e *OpError) Error() string {
	if e.Subject == "" {
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("%s %q: %v", e.Op, e.Subject, e.Err)
}

func (e *OpError) Unwrap() error { return e.Err }

// Kind returns the taxonomy name of err, or "" when it carries none
func Kind(err error) string {
	switch {
	case errors.Is(err, ErrElementNotFound):
		return "ElementNotFound"
	case errors.Is(err, ErrVisibilityTimeout):
		return "VisibilityTimeout"
	case errors.Is(err, ErrAuthenticationFailure):
		return "AuthenticationFailure"
	case errors.Is(err, ErrSessionClosed):
		return "SessionClosed"
	case errors.Is(err, ErrPageClosed):
		return "PageClosed"
	case errors.Is(err, ErrInvalidRating):
		return "InvalidRating"
	case errors.Is(err, ErrDailyLimit):
		return "DailyLimit"
	}
	return ""
}

// IsTerminal reports errors that no later step of an operation can recover
// from: a torn-down session or page, or a cancelled context. Best-effort
// steps swallow everything else.
func IsTerminal(err error) bool {
	return errors.Is(err, ErrSessionClosed) ||
		errors.Is(err, ErrPageClosed) ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded)
}
