package workflows

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/gkmur/letterboxd-cli/internal/auth"
	"github.com/gkmur/letterboxd-cli/internal/core"
)

// Login signs in with cred, or with the stored credential when cred is empty,
// and stores the credential once the site accepts it. An existing session is
// reused without submitting the form.
func (s *Service) Login(ctx context.Context, cred core.Credential) (auth.LoginResult, error) {
	c := &call{op: "login", subject: cred.Username}
	var res auth.LoginResult

	err := s.withPage(ctx, c, func(ctx context.Context, page core.Page) error {
		if cred.Username == "" {
			stored, err := s.credentials().GetCredentials(ctx)
			if err != nil {
				return err
			}
			cred = stored
			c.subject = cred.Username
		}

		status, err := c.machine.CheckStatus(ctx, page)
		if err != nil {
			return fmt.Errorf("failed to check authentication status: %w", err)
		}
		if status.State == core.Authenticated {
			s.logger.Info("Already authenticated, using existing session", zap.String("profile", status.Username))
			res = auth.LoginResult{Authenticated: true, ScrapedUsername: status.Username}
		} else {
			res, err = c.machine.Login(ctx, page, cred)
			if err != nil {
				return err
			}
		}

		if !res.Authenticated {
			if res.Message == "" {
				return core.ErrAuthenticationFailure
			}
			return fmt.Errorf("%w: %s", core.ErrAuthenticationFailure, res.Message)
		}
		if err := s.repo.SetCredentials(ctx, cred); err != nil {
			return fmt.Errorf("failed to store credentials: %w", err)
		}
		return nil
	})
	if err != nil {
		return res, err
	}

	s.record(ctx, &core.History{ActionType: core.ActionLogin, Subject: cred.Username}, historyDetails{
		Request: map[string]string{"profile": res.ScrapedUsername},
	})
	return res, nil
}

// Logout forgets the stored credential and the browser profile holding the
// site's cookies
func (s *Service) Logout(ctx context.Context) error {
	if err := s.repo.ClearCredentials(ctx); err != nil {
		return &core.OpError{Op: "logout", Err: fmt.Errorf("failed to clear credentials: %w", err)}
	}
	if err := s.sessions.Forget(ctx, s.cfg.Browser.ProfileDir); err != nil {
		return &core.OpError{Op: "logout", Err: err}
	}
	s.logger.Info("Logged out")
	return nil
}

// Status reports the live authentication state without logging in
func (s *Service) Status(ctx context.Context) (auth.Status, error) {
	c := &call{op: "status"}
	var status auth.Status
	err := s.withPage(ctx, c, func(ctx context.Context, page core.Page) error {
		var err error
		status, err = c.machine.CheckStatus(ctx, page)
		return err
	})
	return status, err
}
