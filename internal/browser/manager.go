// Package browser owns the one browser session per process. Sessions are bound
// to a persistent profile directory (the cookie store); no other package
// touches that directory.
package browser

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/gkmur/letterboxd-cli/internal/core"
	"github.com/gkmur/letterboxd-cli/internal/stealth"
)

type launchFunc func(ctx context.Context, dir string) (engine, error)

// Manager hands out the session singleton
type Manager struct {
	cfg        core.BrowserConfig
	navTimeout time.Duration
	logger     *zap.Logger
	launch     launchFunc

	mu      sync.Mutex
	session *Session
}

// NewManager creates a manager for rod-driven Chromium. Headless mode is read
// from cfg when a session is created and cannot change on a live session.
// Every navigation is bounded by timeouts.Navigation.
func NewManager(cfg core.BrowserConfig, timeouts core.TimeoutsConfig, human *stealth.Humanizer, logger *zap.Logger) *Manager {
	logger = logger.Named("browser")
	hc := human.Config()
	logger.Debug("Input humanizer configured",
		zap.Bool("enabled", hc.Enabled),
		zap.Int("typing_wpm_min", hc.TypingSpeedMin),
		zap.Int("typing_wpm_max", hc.TypingSpeedMax),
		zap.Duration("navigation_timeout", timeouts.Navigation),
	)
	return &Manager{
		cfg:        cfg,
		navTimeout: timeouts.Navigation,
		logger:     logger,
		launch: func(ctx context.Context, dir string) (engine, error) {
			return launchRod(ctx, cfg, human, dir, logger)
		},
	}
}

// Acquire returns the live session, creating one bound to cookieStorePath when
// none is open. A live session is never replaced: a different path is logged
// and ignored.
func (m *Manager) Acquire(ctx context.Context, cookieStorePath string) (core.Session, error) {
	s, err := m.acquire(ctx, cookieStorePath)
	if err != nil {
		return nil, err
	}
	return s, nil
}

func (m *Manager) acquire(ctx context.Context, dir string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.session != nil && !m.session.Closed() {
		if open := m.session.Dir(); dir != open {
			m.logger.Warn("Session already open with another profile, reusing it",
				zap.String("open", open),
				zap.String("requested", dir),
			)
		}
		return m.session, nil
	}

	if dir == "" {
		dir = m.cfg.ProfileDir
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("failed to create profile directory: %w", err)
	}

	eng, err := m.launch(ctx, dir)
	if err != nil {
		return nil, err
	}

	s := newSession(dir, eng, m.navTimeout, m.logger)
	n, err := loadCookies(ctx, eng, dir, m.logger)
	if err != nil {
		m.logger.Warn("Failed to restore cookie snapshot", zap.Error(err))
	} else if n > 0 {
		m.logger.Info("Cookies loaded", zap.String("dir", dir), zap.Int("count", n))
	}

	s.onClose = func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		if m.session == s {
			m.session = nil
		}
	}
	m.session = s
	return s, nil
}

// Current returns the live session, if any
func (m *Manager) Current() (*Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.session == nil || m.session.Closed() {
		return nil, false
	}
	return m.session, true
}

// Close closes the live session, if any
func (m *Manager) Close(ctx context.Context) error {
	s, ok := m.Current()
	if !ok {
		return nil
	}
	return s.Close(ctx)
}

// Forget closes the live session and deletes the profile directory, signing
// the browser out of every site. An empty path means the configured profile.
func (m *Manager) Forget(ctx context.Context, cookieStorePath string) error {
	if err := m.Close(ctx); err != nil {
		m.logger.Warn("Failed to close session before forgetting it", zap.Error(err))
	}

	dir := cookieStorePath
	if dir == "" {
		dir = m.cfg.ProfileDir
	}
	clean := filepath.Clean(dir)
	if dir == "" || clean == "/" || clean == "." {
		return fmt.Errorf("refusing to remove profile directory %q", dir)
	}
	if err := os.RemoveAll(clean); err != nil {
		return fmt.Errorf("failed to remove profile directory: %w", err)
	}
	m.logger.Info("Browser profile removed", zap.String("dir", clean))
	return nil
}
