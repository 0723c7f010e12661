package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/gkmur/letterboxd-cli/internal/core"
	"github.com/gkmur/letterboxd-cli/internal/testutil/htmlpage"
)

const (
	base   = "https://letterboxd.test"
	home   = base + "/"
	signIn = base + "/sign-in/"
)

const signedOutHome = `<html><body>
<nav class="main-nav"><ul><li><a class="sign-in-menu" href="/sign-in/">Sign in</a></li><li><a href="/create-account/">Create account</a></li></ul></nav>
</body></html>`

const signedInHome = `<html><body>
<nav class="main-nav"><div class="nav-account"><a class="toggle-menu" href="/anareads/"><span class="label">Ana R.</span></a></div></nav>
</body></html>`

const signInForm = `<html><body>
<form id="signin" action="/user/login.do" method="post">
  <label for="field-username">Username or email address</label>
  <input id="field-username" name="username" type="text">
  <label for="field-password">Password</label>
  <input id="field-password" name="password" type="password">
  <button type="submit">Sign in</button>
</form>
</body></html>`

type staticCreds struct {
	cred  core.Credential
	err   error
	calls int
}

func (s *staticCreds) GetCredentials(context.Context) (core.Credential, error) {
	s.calls++
	return s.cred, s.err
}

var timeouts = core.TimeoutsConfig{
	Ready:      200 * time.Millisecond,
	Login:      200 * time.Millisecond,
	Poll:       5 * time.Millisecond,
	Navigation: time.Second,
	Dialog:     time.Second,
	Completion: time.Second,
}

// newSite serves a sign-in form that accepts ana@example.com / hunter2
func newSite(signedIn bool) (*htmlpage.Site, *int) {
	submits := 0
	s := htmlpage.NewSite().Route(signIn, signInForm)
	if signedIn {
		s.Route(home, signedInHome)
	} else {
		s.Route(home, signedOutHome)
	}
	s.OnClick(`button[type="submit"]`, func(p *htmlpage.Page, _ *goquery.Selection) {
		submits++
		user := p.Doc().Find("#field-username").AttrOr("value", "")
		pass := p.Doc().Find("#field-password").AttrOr("value", "")
		if user == "ana@example.com" && pass == "hunter2" {
			p.Site().Route(home, signedInHome)
			p.Goto(home)
			return
		}
		p.Doc().Find("form").AppendHtml(`<div class="form-error">Your credentials don’t match. Please try again.</div>`)
	})
	return s, &submits
}

func newMachine(t *testing.T, creds core.CredentialSource) *Machine {
	return NewMachine(core.SiteConfig{BaseURL: base}, timeouts, creds, zaptest.NewLogger(t))
}

func open(t *testing.T, s *htmlpage.Site) *htmlpage.Page {
	t.Helper()
	p, err := s.Open(context.Background())
	require.NoError(t, err)
	return p
}

func TestEnsureAuthenticatedTwiceWhenAlreadySignedIn(t *testing.T) {
	ctx := context.Background()
	s, submits := newSite(true)
	page := open(t, s)
	creds := &staticCreds{cred: core.Credential{Username: "ana@example.com", Secret: "hunter2"}}
	m := newMachine(t, creds)

	require.NoError(t, m.EnsureAuthenticated(ctx, page))
	assert.Equal(t, []string{home}, s.Navigations)
	assert.Equal(t, core.Authenticated, m.State())
	assert.Equal(t, "anareads", m.Username())

	require.NoError(t, m.EnsureAuthenticated(ctx, page))
	assert.Equal(t, []string{home}, s.Navigations, "second call must not navigate")
	assert.Zero(t, *submits)
	assert.Zero(t, creds.calls)
}

func TestEnsureAuthenticatedLogsInOnce(t *testing.T) {
	ctx := context.Background()
	s, submits := newSite(false)
	page := open(t, s)
	creds := &staticCreds{cred: core.Credential{Username: "ana@example.com", Secret: "hunter2"}}
	m := newMachine(t, creds)

	require.NoError(t, m.EnsureAuthenticated(ctx, page))
	assert.Equal(t, core.Authenticated, m.State())
	assert.Equal(t, "anareads", m.Username())
	assert.Equal(t, 1, *submits)
	assert.Equal(t, []string{home, signIn, home}, s.Navigations)
	assert.Equal(t, "hunter2", page.Fills["input#field-password[password]"])

	require.NoError(t, m.EnsureAuthenticated(ctx, page))
	assert.Equal(t, 1, *submits)
	assert.Len(t, s.Navigations, 3)
}

func TestLoginRejectedIsTerminal(t *testing.T) {
	ctx := context.Background()
	s, submits := newSite(false)
	page := open(t, s)
	m := newMachine(t, &staticCreds{cred: core.Credential{Username: "ana@example.com", Secret: "wrong"}})

	err := m.EnsureAuthenticated(ctx, page)
	require.ErrorIs(t, err, core.ErrAuthenticationFailure)
	assert.Contains(t, err.Error(), "credentials don’t match")
	assert.Equal(t, 1, *submits)
	assert.Equal(t, core.Unauthenticated, m.State())
}

func TestLoginResultReportsScrapedUsername(t *testing.T) {
	ctx := context.Background()
	s, _ := newSite(false)
	page := open(t, s)
	m := newMachine(t, &staticCreds{})

	res, err := m.Login(ctx, page, core.Credential{Username: "ana@example.com", Secret: "hunter2"})
	require.NoError(t, err)
	assert.True(t, res.Authenticated)
	assert.Equal(t, "anareads", res.ScrapedUsername)
}

func TestMissingCredentials(t *testing.T) {
	ctx := context.Background()
	s, _ := newSite(false)
	page := open(t, s)
	m := newMachine(t, &staticCreds{err: errors.New("keychain locked")})

	err := m.EnsureAuthenticated(ctx, page)
	assert.ErrorIs(t, err, core.ErrAuthenticationFailure)
	assert.Equal(t, []string{home}, s.Navigations)
}

func TestMissingLoginFormPropagates(t *testing.T) {
	ctx := context.Background()
	s := htmlpage.NewSite().
		Route(home, signedOutHome).
		Route(signIn, `<html><body><p>Maintenance</p></body></html>`)
	page := open(t, s)
	m := newMachine(t, &staticCreds{cred: core.Credential{Username: "ana", Secret: "pw"}})

	err := m.EnsureAuthenticated(ctx, page)
	assert.ErrorIs(t, err, core.ErrVisibilityTimeout)
	assert.Equal(t, core.Unauthenticated, m.State())
}

func TestSecurityChallenge(t *testing.T) {
	ctx := context.Background()
	s, _ := newSite(false)
	s.OnClick(`button[type="submit"]`, func(p *htmlpage.Page, _ *goquery.Selection) {
		p.Doc().Find("body").AppendHtml(`<div class="g-recaptcha" data-sitekey="abc"></div>`)
	})
	page := open(t, s)
	m := newMachine(t, &staticCreds{})

	res, err := m.Login(ctx, page, core.Credential{Username: "ana@example.com", Secret: "nope"})
	require.NoError(t, err)
	assert.False(t, res.Authenticated)
	assert.Equal(t, "security challenge required", res.Message)
}

func TestHiddenErrorContainerIsNotARejection(t *testing.T) {
	ctx := context.Background()
	s := htmlpage.NewSite().Route(home, signedOutHome).Route(signIn, `<html><body>
<form id="signin">
  <div role="alert" hidden></div>
  <div class="form-error" hidden></div>
  <label for="field-username">Username or email address</label>
  <input id="field-username" name="username" type="text">
  <label for="field-password">Password</label>
  <input id="field-password" name="password" type="password">
  <button type="submit">Sign in</button>
</form>
</body></html>`)
	// the session is accepted but the browser stays on the form
	s.OnClick(`button[type="submit"]`, func(p *htmlpage.Page, _ *goquery.Selection) {
		p.Site().Route(home, signedInHome)
	})
	page := open(t, s)
	m := newMachine(t, &staticCreds{})

	res, err := m.Login(ctx, page, core.Credential{Username: "ana@example.com", Secret: "hunter2"})
	require.NoError(t, err)
	assert.True(t, res.Authenticated)
	assert.Empty(t, res.Message)
	assert.Equal(t, "anareads", res.ScrapedUsername)
	assert.Equal(t, []string{signIn, home}, s.Navigations)
}

func TestCheckStatusRevertsWhenSignedOut(t *testing.T) {
	ctx := context.Background()
	s, _ := newSite(true)
	page := open(t, s)
	m := newMachine(t, &staticCreds{})

	status, err := m.CheckStatus(ctx, page)
	require.NoError(t, err)
	assert.Equal(t, core.Authenticated, status.State)

	s.Route(home, signedOutHome)
	status, err = m.CheckStatus(ctx, page)
	require.NoError(t, err)
	assert.Equal(t, core.Unauthenticated, status.State)
	assert.Equal(t, core.Unauthenticated, m.State())
}

func TestUsernameFallsBackToLabel(t *testing.T) {
	ctx := context.Background()
	s := htmlpage.NewSite().Route(home, `<nav class="main-nav"><div class="nav-account"><span class="label"> anareads </span></div></nav>`)
	page := open(t, s)
	m := newMachine(t, &staticCreds{})

	status, err := m.CheckStatus(ctx, page)
	require.NoError(t, err)
	assert.Equal(t, core.Authenticated, status.State)
	assert.Equal(t, "anareads", status.Username)
}
