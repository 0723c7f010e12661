package browser

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-rod/rod/lib/proto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"

	"github.com/gkmur/letterboxd-cli/internal/core"
	"github.com/gkmur/letterboxd-cli/internal/stealth"
	"github.com/gkmur/letterboxd-cli/internal/testutil/htmlpage"
)

type fakeEngine struct {
	site     *htmlpage.Site
	jar      []*proto.NetworkCookie
	restored []*proto.NetworkCookieParam
	closes   int
}

func (f *fakeEngine) newPage(ctx context.Context) (core.Page, error) { return f.site.NewPage(ctx) }

func (f *fakeEngine) cookies(context.Context) ([]*proto.NetworkCookie, error) { return f.jar, nil }

func (f *fakeEngine) setCookies(_ context.Context, c []*proto.NetworkCookieParam) error {
	f.restored = c
	return nil
}

func (f *fakeEngine) close() error {
	f.closes++
	return nil
}

// stalledPage never finishes loading
type stalledPage struct {
	core.Page
}

func (stalledPage) Navigate(ctx context.Context, _ string) error {
	<-ctx.Done()
	return ctx.Err()
}

type stalledEngine struct {
	fakeEngine
}

func (e *stalledEngine) newPage(ctx context.Context) (core.Page, error) {
	p, err := e.site.NewPage(ctx)
	if err != nil {
		return nil, err
	}
	return stalledPage{Page: p}, nil
}

func newTestManager(t *testing.T, logger *zap.Logger) (*Manager, *[]*fakeEngine) {
	t.Helper()
	var engines []*fakeEngine
	m := &Manager{
		cfg:    core.BrowserConfig{Headless: true, ProfileDir: t.TempDir()},
		logger: logger,
		launch: func(ctx context.Context, dir string) (engine, error) {
			site := htmlpage.NewSite().Route("https://letterboxd.test/", `<a class="nav-account">me</a>`)
			e := &fakeEngine{site: site}
			engines = append(engines, e)
			return e, nil
		},
	}
	return m, &engines
}

func TestAcquireIsSingleton(t *testing.T) {
	ctx := context.Background()
	obs, logs := observer.New(zap.WarnLevel)
	m, engines := newTestManager(t, zap.New(obs))
	dir := t.TempDir()

	first, err := m.Acquire(ctx, dir)
	require.NoError(t, err)
	second, err := m.Acquire(ctx, dir)
	require.NoError(t, err)
	assert.Same(t, first, second)

	third, err := m.Acquire(ctx, t.TempDir())
	require.NoError(t, err)
	assert.Same(t, first, third)
	assert.Equal(t, dir, first.(*Session).Dir(), "the live session keeps its store")
	assert.Len(t, *engines, 1)
	assert.Equal(t, 1, logs.FilterMessageSnippet("already open").Len())
}

func TestCloseIsIdempotentAndInvalidatesPages(t *testing.T) {
	ctx := context.Background()
	m, engines := newTestManager(t, zaptest.NewLogger(t))

	s, err := m.Acquire(ctx, t.TempDir())
	require.NoError(t, err)
	p, err := s.NewPage(ctx)
	require.NoError(t, err)
	require.NoError(t, p.Navigate(ctx, "https://letterboxd.test/"))
	els, err := p.Elements(ctx, ".nav-account")
	require.NoError(t, err)
	require.Len(t, els, 1)

	require.NoError(t, s.Close(ctx))
	require.NoError(t, s.Close(ctx))
	assert.True(t, s.Closed())
	assert.Equal(t, 1, (*engines)[0].closes)

	assert.ErrorIs(t, p.Navigate(ctx, "https://letterboxd.test/"), core.ErrSessionClosed)
	_, err = els[0].Text(ctx)
	assert.ErrorIs(t, err, core.ErrSessionClosed)
	_, err = s.NewPage(ctx)
	assert.ErrorIs(t, err, core.ErrSessionClosed)
}

func TestReleasedPage(t *testing.T) {
	ctx := context.Background()
	m, _ := newTestManager(t, zaptest.NewLogger(t))

	s, err := m.Acquire(ctx, t.TempDir())
	require.NoError(t, err)
	p, err := s.NewPage(ctx)
	require.NoError(t, err)

	require.NoError(t, p.Close())
	require.NoError(t, p.Close())
	_, err = p.URL(ctx)
	assert.ErrorIs(t, err, core.ErrPageClosed)
	assert.False(t, s.Closed())
}

func TestAcquireAfterCloseStartsNewSession(t *testing.T) {
	ctx := context.Background()
	m, engines := newTestManager(t, zaptest.NewLogger(t))
	dir := t.TempDir()

	first, err := m.Acquire(ctx, dir)
	require.NoError(t, err)
	require.NoError(t, m.Close(ctx))
	_, ok := m.Current()
	assert.False(t, ok)

	second, err := m.Acquire(ctx, dir)
	require.NoError(t, err)
	assert.NotSame(t, first, second)
	assert.Len(t, *engines, 2)
}

func TestCookieSnapshotRoundTrip(t *testing.T) {
	ctx := context.Background()
	m, engines := newTestManager(t, zaptest.NewLogger(t))
	dir := t.TempDir()

	s, err := m.Acquire(ctx, dir)
	require.NoError(t, err)
	(*engines)[0].jar = []*proto.NetworkCookie{
		{Name: "letterboxd.user.CURRENT", Value: "abc", Domain: ".letterboxd.test", Path: "/"},
	}
	require.NoError(t, s.Close(ctx))

	_, err = os.Stat(filepath.Join(dir, CookieFile))
	require.NoError(t, err)

	_, err = m.Acquire(ctx, dir)
	require.NoError(t, err)
	restored := (*engines)[1].restored
	require.Len(t, restored, 1)
	assert.Equal(t, "letterboxd.user.CURRENT", restored[0].Name)
	assert.Equal(t, "abc", restored[0].Value)
}

func TestCorruptCookieSnapshotIsNotFatal(t *testing.T) {
	ctx := context.Background()
	m, _ := newTestManager(t, zaptest.NewLogger(t))
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, CookieFile), []byte("{nope"), 0o600))

	s, err := m.Acquire(ctx, dir)
	require.NoError(t, err)
	assert.False(t, s.Closed())
}

func TestLaunchFailurePropagates(t *testing.T) {
	boom := errors.New("no chromium")
	m := &Manager{
		cfg:    core.BrowserConfig{},
		logger: zaptest.NewLogger(t),
		launch: func(context.Context, string) (engine, error) { return nil, boom },
	}
	_, err := m.Acquire(context.Background(), t.TempDir())
	assert.ErrorIs(t, err, boom)
	_, ok := m.Current()
	assert.False(t, ok)
}

func TestForgetClosesSessionAndRemovesProfile(t *testing.T) {
	ctx := context.Background()
	m, engines := newTestManager(t, zaptest.NewLogger(t))
	dir := filepath.Join(t.TempDir(), "profile")

	s, err := m.Acquire(ctx, dir)
	require.NoError(t, err)
	require.NoError(t, m.Forget(ctx, dir))

	assert.True(t, s.Closed())
	assert.Equal(t, 1, (*engines)[0].closes)
	_, err = os.Stat(dir)
	assert.True(t, os.IsNotExist(err))

	require.NoError(t, m.Forget(ctx, dir), "forgetting twice is harmless")
	assert.Error(t, m.Forget(ctx, "/"))
}

func TestStalledNavigationTimesOut(t *testing.T) {
	ctx := context.Background()
	m := &Manager{
		cfg:        core.BrowserConfig{ProfileDir: t.TempDir()},
		navTimeout: 20 * time.Millisecond,
		logger:     zaptest.NewLogger(t),
		launch: func(ctx context.Context, dir string) (engine, error) {
			return &stalledEngine{fakeEngine{site: htmlpage.NewSite()}}, nil
		},
	}
	t.Cleanup(func() { _ = m.Close(ctx) })

	s, err := m.Acquire(ctx, "")
	require.NoError(t, err)
	p, err := s.NewPage(ctx)
	require.NoError(t, err)

	start := time.Now()
	err = p.Navigate(ctx, "https://letterboxd.test/film/parasite-2019/")
	assert.ErrorIs(t, err, core.ErrVisibilityTimeout)
	assert.Less(t, time.Since(start), time.Second)

	// the caller's own cancellation is reported as such
	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	err = p.Navigate(cancelled, "https://letterboxd.test/")
	assert.ErrorIs(t, err, context.Canceled)
	assert.NotErrorIs(t, err, core.ErrVisibilityTimeout)
}

func TestNewManagerLogsEffectiveInputSettings(t *testing.T) {
	obs, logs := observer.New(zap.DebugLevel)
	human := stealth.New(core.StealthConfig{Enabled: true}, nil)

	m := NewManager(core.BrowserConfig{}, core.TimeoutsConfig{Navigation: 30 * time.Second}, human, zap.New(obs))
	assert.Equal(t, 30*time.Second, m.navTimeout)

	entries := logs.FilterMessage("Input humanizer configured").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, true, fields["enabled"])
	assert.Equal(t, int64(human.Config().TypingSpeedMin), fields["typing_wpm_min"])
}
