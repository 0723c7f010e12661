// Package workflows runs one operation per call. Each call acquires the
// session, opens its own page, authenticates when the operation needs it,
// acts or extracts, and closes the page whatever the outcome.
package workflows

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/gkmur/letterboxd-cli/internal/auth"
	"github.com/gkmur/letterboxd-cli/internal/core"
	"github.com/gkmur/letterboxd-cli/internal/retry"
	"github.com/gkmur/letterboxd-cli/internal/scraper"
)

// Service is the entry point for every command
type Service struct {
	sessions core.SessionManager
	repo     core.RepositoryPort
	cfg      *core.Config
	retry    retry.Policy
	scraper  *scraper.Scraper
	logger   *zap.Logger

	slugs sync.Map // normalized title -> core.FilmReference
}

// NewService wires the operation layer
func NewService(sessions core.SessionManager, repo core.RepositoryPort, cfg *core.Config, logger *zap.Logger) *Service {
	logger = logger.Named("workflows")
	return &Service{
		sessions: sessions,
		repo:     repo,
		cfg:      cfg,
		retry:    retry.FromConfig(cfg.Retry, logger),
		scraper:  scraper.New(cfg.Site, cfg.Timeouts, logger),
		logger:   logger,
	}
}

// call is the state of one operation. subject is refined as the operation
// learns it (a resolved slug, a resolved username).
type call struct {
	op      string
	subject string
	machine *auth.Machine
}

// withPage runs fn against a fresh page and closes it afterwards. Errors
// leave as *core.OpError carrying the operation and its subject.
func (s *Service) withPage(ctx context.Context, c *call, fn func(ctx context.Context, page core.Page) error) error {
	session, err := s.sessions.Acquire(ctx, s.cfg.Browser.ProfileDir)
	if err != nil {
		return c.fail(fmt.Errorf("failed to acquire session: %w", err))
	}

	page, err := session.NewPage(ctx)
	if err != nil {
		return c.fail(fmt.Errorf("failed to open page: %w", err))
	}
	defer func() {
		if err := page.Close(); err != nil && !errors.Is(err, core.ErrSessionClosed) {
			s.logger.Warn("Failed to close page", zap.String("op", c.op), zap.Error(err))
		}
	}()

	c.machine = auth.NewMachine(s.cfg.Site, s.cfg.Timeouts, s.credentials(), s.logger)
	err = fn(ctx, page)
	s.rememberProfile(ctx, c.machine.Username())
	if err != nil {
		return c.fail(err)
	}
	return nil
}

func (c *call) fail(err error) error {
	var opErr *core.OpError
	if errors.As(err, &opErr) {
		return err
	}
	return &core.OpError{Op: c.op, Subject: c.subject, Err: err}
}

// rememberProfile stores a freshly scraped profile name for the active account
func (s *Service) rememberProfile(ctx context.Context, name string) {
	if name == "" {
		return
	}
	if err := s.repo.SetProfileName(ctx, name); err != nil {
		s.logger.Debug("Profile name not stored", zap.String("profile", name), zap.Error(err))
	}
}

// credentials reads the store first, then the configured seed
func (s *Service) credentials() core.CredentialSource {
	return seededCredentials{
		store: s.repo,
		seed: core.Credential{
			Username: s.cfg.Credentials.Username,
			Secret:   s.cfg.Credentials.Password,
		},
	}
}

type seededCredentials struct {
	store core.CredentialSource
	seed  core.Credential
}

func (c seededCredentials) GetCredentials(ctx context.Context) (core.Credential, error) {
	cred, err := c.store.GetCredentials(ctx)
	if err != nil && errors.Is(err, core.ErrAuthenticationFailure) && c.seed.Username != "" && c.seed.Secret != "" {
		return c.seed, nil
	}
	return cred, err
}

// checkLimit refuses a mutation once today's count reaches the limit. A
// failing count is logged and the mutation goes ahead.
func (s *Service) checkLimit(ctx context.Context) error {
	limit := s.cfg.Limits.MaxActionsPerDay
	ok, err := s.repo.CanPerformAction(ctx, limit)
	if err != nil {
		s.logger.Warn("Failed to check daily limits", zap.Error(err))
		return nil
	}
	if !ok {
		return fmt.Errorf("%w (%d per day)", core.ErrDailyLimit, limit)
	}
	return nil
}

type historyDetails struct {
	Request any      `json:"request,omitempty"`
	Applied []string `json:"applied,omitempty"`
	Skipped []string `json:"skipped,omitempty"`
}

// record saves an action to history. Failing to save never fails the action.
func (s *Service) record(ctx context.Context, h *core.History, details historyDetails) {
	if data, err := json.Marshal(details); err == nil {
		h.Details = string(data)
	}
	if err := s.repo.CreateHistory(ctx, h); err != nil {
		s.logger.Warn("Failed to save history", zap.String("action", h.ActionType), zap.Error(err))
	}
}

// History returns the most recent actions, newest first
func (s *Service) History(ctx context.Context, limit int) ([]*core.History, error) {
	if limit <= 0 {
		limit = 20
	}
	entries, err := s.repo.GetRecentHistory(ctx, limit)
	if err != nil {
		return nil, &core.OpError{Op: "history", Err: fmt.Errorf("failed to read history: %w", err)}
	}
	return entries, nil
}
