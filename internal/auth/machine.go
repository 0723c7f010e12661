// Package auth derives the authentication state from the live page and drives
// the sign-in form.
//
// A Machine lives for one operation. Its state moves
// Unauthenticated -> LoggingIn -> Authenticated, or back to Unauthenticated
// when a login fails. Once Authenticated it only moves back when CheckStatus
// finds the sign-in affordance again.
package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/gkmur/letterboxd-cli/internal/core"
	"github.com/gkmur/letterboxd-cli/internal/locator"
	"github.com/gkmur/letterboxd-cli/internal/site"
)

// Status is the result of CheckStatus
type Status struct {
	State    core.AuthState
	Username string // scraped profile name, when authenticated and readable
}

// LoginResult is the outcome of one login attempt
type LoginResult struct {
	Authenticated   bool
	ScrapedUsername string
	Message         string // error text shown by the site, if any
}

// Machine is the authentication state machine for one operation
type Machine struct {
	urls     site.Locations
	timeouts core.TimeoutsConfig
	creds    core.CredentialSource
	logger   *zap.Logger

	state    core.AuthState
	username string
}

// NewMachine creates a machine in the Unauthenticated state
func NewMachine(siteCfg core.SiteConfig, timeouts core.TimeoutsConfig, creds core.CredentialSource, logger *zap.Logger) *Machine {
	return &Machine{
		urls:     site.New(siteCfg.BaseURL),
		timeouts: timeouts,
		creds:    creds,
		logger:   logger.Named("auth"),
		state:    core.Unauthenticated,
	}
}

// State returns the current state
func (m *Machine) State() core.AuthState { return m.state }

// Username returns the last profile name scraped from the site, if any
func (m *Machine) Username() string { return m.username }

// CheckStatus navigates home and looks for the sign-in affordance. Its
// presence means Unauthenticated; its absence means Authenticated, in which
// case the profile name is scraped from the account menu when possible.
func (m *Machine) CheckStatus(ctx context.Context, page core.Page) (Status, error) {
	if err := page.Navigate(ctx, m.urls.Home()); err != nil {
		return Status{}, fmt.Errorf("failed to open home page: %w", err)
	}

	signedOut, err := locator.Exists(ctx, page, signInAffordance)
	if err != nil {
		return Status{}, fmt.Errorf("failed to check sign-in affordance: %w", err)
	}
	if signedOut {
		m.state = core.Unauthenticated
		m.logger.Debug("Checked status", zap.Stringer("state", m.state))
		return Status{State: m.state}, nil
	}

	m.state = core.Authenticated
	if name := m.scrapeUsername(ctx, page); name != "" {
		m.username = name
	}
	m.logger.Debug("Checked status",
		zap.Stringer("state", m.state),
		zap.String("username", m.username),
	)
	return Status{State: m.state, Username: m.username}, nil
}

// scrapeUsername reads the profile name from the account menu. The link's
// target is preferred over its text, which may be a display name.
func (m *Machine) scrapeUsername(ctx context.Context, page core.Page) string {
	if match, err := locator.Resolve(ctx, page, accountMenu); err == nil {
		if v, ok, err := match.Element.Attribute(ctx, "data-username"); err == nil && ok && v != "" {
			return v
		}
		if href, ok, err := match.Element.Attribute(ctx, "href"); err == nil && ok {
			if name := site.MemberFromHref(href); name != "" {
				return name
			}
		}
	}

	label, err := locator.Resolve(ctx, page, accountName)
	if err != nil {
		m.logger.Debug("Profile name not found", zap.Error(err))
		return ""
	}
	text, err := label.Element.Text(ctx)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(text)
}

// Login fills and submits the sign-in form once. A rejected login is reported
// through LoginResult, not an error; errors mean the form itself could not be
// driven. Login never retries.
func (m *Machine) Login(ctx context.Context, page core.Page, cred core.Credential) (LoginResult, error) {
	m.state = core.LoggingIn
	res, err := m.login(ctx, page, cred)
	if err != nil || !res.Authenticated {
		m.state = core.Unauthenticated
	}
	return res, err
}

func (m *Machine) login(ctx context.Context, page core.Page, cred core.Credential) (LoginResult, error) {
	log := m.logger.With(zap.String("username", cred.Username))
	log.Info("Starting authentication process")

	if err := page.Navigate(ctx, m.urls.SignIn()); err != nil {
		return LoginResult{}, fmt.Errorf("failed to navigate to sign-in page: %w", err)
	}

	user, err := locator.AwaitVisible(ctx, page, usernameField, m.timeouts.Ready, locator.WithPoll(m.timeouts.Poll))
	if err != nil {
		return LoginResult{}, fmt.Errorf("login form not found: %w", err)
	}
	if err := user.Element.Fill(ctx, cred.Username); err != nil {
		return LoginResult{}, fmt.Errorf("failed to type username: %w", err)
	}

	pass, err := locator.Resolve(ctx, page, passwordField)
	if err != nil {
		return LoginResult{}, err
	}
	if err := pass.Element.Fill(ctx, cred.Secret); err != nil {
		return LoginResult{}, fmt.Errorf("failed to type password: %w", err)
	}

	submit, err := locator.Resolve(ctx, page, submitButton)
	if err != nil {
		return LoginResult{}, err
	}
	if err := submit.Element.Click(ctx); err != nil {
		return LoginResult{}, fmt.Errorf("failed to click submit button: %w", err)
	}

	// Wait to leave the sign-in location, or for the form to show an error.
	// Empty error containers sit hidden in the form until then.
	var outcome string
	err = locator.AwaitCondition(ctx, m.timeouts.Login, m.timeouts.Poll, func(ctx context.Context) (bool, error) {
		current, err := page.URL(ctx)
		if err != nil {
			return false, err
		}
		if !m.urls.IsSignIn(current) {
			outcome = "left"
			return true, nil
		}
		for _, spec := range []locator.Spec{challenge, loginError} {
			_, shown, err := locator.Visible(ctx, page, spec)
			if err != nil {
				return false, err
			}
			if shown {
				outcome = spec.Target
				return true, nil
			}
		}
		return false, nil
	})
	if err != nil && !errors.Is(err, core.ErrVisibilityTimeout) {
		return LoginResult{}, err
	}

	switch outcome {
	case challenge.Target:
		log.Warn("Security challenge shown on sign-in; complete it in a visible browser")
		return LoginResult{Message: "security challenge required"}, nil
	case loginError.Target:
		msg := m.readError(ctx, page)
		log.Warn("Sign-in rejected", zap.String("message", msg))
		return LoginResult{Message: msg}, nil
	case "":
		log.Warn("Still on sign-in page after submit", zap.Duration("timeout", m.timeouts.Login))
	}

	status, err := m.CheckStatus(ctx, page)
	if err != nil {
		return LoginResult{}, fmt.Errorf("failed to verify authentication: %w", err)
	}
	if status.State != core.Authenticated {
		return LoginResult{Message: "still signed out after submitting credentials"}, nil
	}

	log.Info("Authentication successful", zap.String("profile", status.Username))
	return LoginResult{Authenticated: true, ScrapedUsername: status.Username}, nil
}

func (m *Machine) readError(ctx context.Context, page core.Page) string {
	match, shown, err := locator.Visible(ctx, page, loginError)
	if err != nil || !shown {
		return ""
	}
	text, err := match.Element.Text(ctx)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(text)
}

// EnsureAuthenticated is a no-op once the machine is Authenticated. Otherwise
// it checks the live page and logs in with the stored credentials when signed
// out. Every failure wraps core.ErrAuthenticationFailure except page errors.
func (m *Machine) EnsureAuthenticated(ctx context.Context, page core.Page) error {
	if m.state == core.Authenticated {
		return nil
	}

	status, err := m.CheckStatus(ctx, page)
	if err != nil {
		return err
	}
	if status.State == core.Authenticated {
		return nil
	}

	cred, err := m.creds.GetCredentials(ctx)
	if err != nil {
		if errors.Is(err, core.ErrAuthenticationFailure) {
			return err
		}
		return fmt.Errorf("%w: %v", core.ErrAuthenticationFailure, err)
	}

	res, err := m.Login(ctx, page, cred)
	if err != nil {
		return err
	}
	if !res.Authenticated {
		if res.Message != "" {
			return fmt.Errorf("%w: %s", core.ErrAuthenticationFailure, res.Message)
		}
		return core.ErrAuthenticationFailure
	}
	return nil
}
