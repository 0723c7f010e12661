package browser

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/gkmur/letterboxd-cli/internal/core"
)

// Session is the single live browser context. Pages it hands out fail with
// core.ErrSessionClosed once it is closed.
type Session struct {
	dir        string
	eng        engine
	navTimeout time.Duration
	logger     *zap.Logger

	mu      sync.Mutex
	closed  bool
	pages   map[*page]struct{}
	onClose func()
}

func newSession(dir string, eng engine, navTimeout time.Duration, logger *zap.Logger) *Session {
	return &Session{
		dir:        dir,
		eng:        eng,
		navTimeout: navTimeout,
		logger:     logger,
		pages:      make(map[*page]struct{}),
	}
}

// Dir is the persistent cookie store the session is bound to
func (s *Session) Dir() string { return s.dir }

// NewPage opens a page owned by the caller, who must Close it
func (s *Session) NewPage(ctx context.Context) (core.Page, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, core.ErrSessionClosed
	}

	inner, err := s.eng.newPage(ctx)
	if err != nil {
		return nil, err
	}
	p := &page{inner: inner, session: s}
	s.pages[p] = struct{}{}
	return p, nil
}

// Closed reports whether Close has run
func (s *Session) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// Close saves the cookie snapshot, closes every open page and stops the
// browser. Closing a closed session is a no-op.
func (s *Session) Close(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	pages := make([]*page, 0, len(s.pages))
	for p := range s.pages {
		pages = append(pages, p)
	}
	s.pages = nil
	onClose := s.onClose
	s.mu.Unlock()

	var errs []error
	if err := saveCookies(ctx, s.eng, s.dir); err != nil {
		s.logger.Warn("Failed to save cookie snapshot", zap.String("dir", s.dir), zap.Error(err))
	}
	for _, p := range pages {
		if err := p.inner.Close(); err != nil {
			s.logger.Debug("Failed to close page", zap.Error(err))
		}
	}
	if err := s.eng.close(); err != nil {
		errs = append(errs, err)
	}
	if onClose != nil {
		onClose()
	}

	s.logger.Info("Browser session closed", zap.String("dir", s.dir))
	return errors.Join(errs...)
}

func (s *Session) release(p *page) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.pages, p)
}

// page guards a driver page against use after release or session close
type page struct {
	inner   core.Page
	session *Session

	mu       sync.Mutex
	released bool
}

func (p *page) check() error {
	if p.session.Closed() {
		return core.ErrSessionClosed
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.released {
		return core.ErrPageClosed
	}
	return nil
}

// Navigate bounds the driver's navigation and load wait by the session's
// navigation timeout. Running out of time is a VisibilityTimeout.
func (p *page) Navigate(ctx context.Context, url string) error {
	if err := p.check(); err != nil {
		return err
	}
	timeout := p.session.navTimeout
	if timeout <= 0 {
		return p.inner.Navigate(ctx, url)
	}

	navCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	err := p.inner.Navigate(navCtx, url)
	if err != nil && ctx.Err() == nil && errors.Is(navCtx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("navigation to %s took longer than %s: %w", url, timeout, core.ErrVisibilityTimeout)
	}
	return err
}

func (p *page) URL(ctx context.Context) (string, error) {
	if err := p.check(); err != nil {
		return "", err
	}
	return p.inner.URL(ctx)
}

func (p *page) WaitIdle(ctx context.Context, timeout time.Duration) error {
	if err := p.check(); err != nil {
		return err
	}
	return p.inner.WaitIdle(ctx, timeout)
}

func (p *page) Scroll(ctx context.Context, distance int) error {
	if err := p.check(); err != nil {
		return err
	}
	return p.inner.Scroll(ctx, distance)
}

func (p *page) Elements(ctx context.Context, selector string) ([]core.Element, error) {
	if err := p.check(); err != nil {
		return nil, err
	}
	els, err := p.inner.Elements(ctx, selector)
	if err != nil {
		return nil, err
	}
	return p.wrap(els), nil
}

func (p *page) wrap(els []core.Element) []core.Element {
	out := make([]core.Element, len(els))
	for i, el := range els {
		out[i] = &element{inner: el, page: p}
	}
	return out
}

// Close releases the page. Releasing twice is a no-op.
func (p *page) Close() error {
	p.mu.Lock()
	if p.released {
		p.mu.Unlock()
		return nil
	}
	p.released = true
	p.mu.Unlock()

	p.session.release(p)
	if p.session.Closed() {
		return nil
	}
	if err := p.inner.Close(); err != nil {
		return fmt.Errorf("failed to close page: %w", err)
	}
	return nil
}

// element carries its page's guard
type element struct {
	inner core.Element
	page  *page
}

func (e *element) Elements(ctx context.Context, selector string) ([]core.Element, error) {
	if err := e.page.check(); err != nil {
		return nil, err
	}
	els, err := e.inner.Elements(ctx, selector)
	if err != nil {
		return nil, err
	}
	return e.page.wrap(els), nil
}

func (e *element) Text(ctx context.Context) (string, error) {
	if err := e.page.check(); err != nil {
		return "", err
	}
	return e.inner.Text(ctx)
}

func (e *element) Attribute(ctx context.Context, name string) (string, bool, error) {
	if err := e.page.check(); err != nil {
		return "", false, err
	}
	return e.inner.Attribute(ctx, name)
}

func (e *element) Visible(ctx context.Context) (bool, error) {
	if err := e.page.check(); err != nil {
		return false, err
	}
	return e.inner.Visible(ctx)
}

func (e *element) Checked(ctx context.Context) (bool, error) {
	if err := e.page.check(); err != nil {
		return false, err
	}
	return e.inner.Checked(ctx)
}

func (e *element) Click(ctx context.Context) error {
	if err := e.page.check(); err != nil {
		return err
	}
	return e.inner.Click(ctx)
}

func (e *element) Fill(ctx context.Context, text string) error {
	if err := e.page.check(); err != nil {
		return err
	}
	return e.inner.Fill(ctx, text)
}
