package actions

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap/zaptest"

	"github.com/gkmur/letterboxd-cli/internal/core"
	"github.com/gkmur/letterboxd-cli/internal/testutil/htmlpage"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

const (
	base     = "https://letterboxd.test"
	filmURL  = base + "/film/parasite-2019/"
	submitID = "button#diary-entry-submit-button"
)

var timeouts = core.TimeoutsConfig{
	Ready:      200 * time.Millisecond,
	Dialog:     200 * time.Millisecond,
	Completion: 100 * time.Millisecond,
	Poll:       5 * time.Millisecond,
}

type authStub struct {
	err   error
	calls int
}

func (a *authStub) EnsureAuthenticated(context.Context, core.Page) error {
	a.calls++
	return a.err
}

func stars(prefix string) string {
	var b strings.Builder
	b.WriteString(`<div class="rateit-range">`)
	for i := 1; i <= 10; i++ {
		fmt.Fprintf(&b, `<span id="%s-%d" class="rateit-star" data-value="%.1f"></span>`, prefix, i, float64(i)/2)
	}
	b.WriteString(`</div>`)
	return b.String()
}

const allFields = `
<label for="frm-viewing-date-string">Watched on</label>
<input type="checkbox" id="frm-specify-date" name="specifiedDate">
<input id="frm-viewing-date-string" name="viewingDateStr" type="text">
<label><input type="checkbox" id="frm-rewatch" name="rewatch"> I’ve watched this film before</label>
<label for="frm-review">Review</label>
<textarea id="frm-review" name="review"></textarea>
<label><input type="checkbox" id="frm-has-spoilers" name="containsSpoilers"> Contains spoilers</label>
<input type="checkbox" id="frm-like" name="liked">
`

const submitButton = `<button id="diary-entry-submit-button" type="submit">Save</button>`

// filmPage renders a film page whose dialog contains dialogBody
func filmPage(sidebar, dialogBody string) string {
	return `<html><body>
<div id="film-page-wrapper" data-film-slug="parasite-2019">
  <h1 class="headline-1">Parasite</h1>
  <aside class="sidebar"><ul class="actions-panel">
    <li><a class="add-this-film" href="#">Review or log…</a></li>
    ` + sidebar + `
  </ul></aside>
</div>
<div id="diary-entry-form-modal" role="dialog" hidden>
  <form id="diary-entry-form">` + dialogBody + `</form>
</div>
</body></html>`
}

const defaultSidebar = `
<li class="like-link-target"><a class="ajax-click-action -like" aria-pressed="false" href="#">Like</a></li>
<li class="watchlist-link-target"><a class="ajax-click-action" href="#">Add to watchlist</a></li>
`

// newSite opens the dialog on the log control and closes it on save when closeOnSave
func newSite(body string, closeOnSave bool) *htmlpage.Site {
	s := htmlpage.NewSite().Route(filmURL, body)
	s.OnClick(".add-this-film", func(p *htmlpage.Page, _ *goquery.Selection) {
		p.Doc().Find("#diary-entry-form-modal").RemoveAttr("hidden")
	})
	if closeOnSave {
		s.OnClick("#diary-entry-submit-button", func(p *htmlpage.Page, _ *goquery.Selection) {
			p.Doc().Find("#diary-entry-form-modal").SetAttr("hidden", "")
		})
	}
	return s
}

func newExecutor(t *testing.T, auth Authenticator) *Executor {
	return NewExecutor(auth, core.SiteConfig{BaseURL: base}, timeouts, zaptest.NewLogger(t))
}

func open(t *testing.T, s *htmlpage.Site) *htmlpage.Page {
	t.Helper()
	p, err := s.Open(context.Background())
	require.NoError(t, err)
	return p
}

func ratingOf(v float64) *core.RatingValue {
	r := core.RatingValue(v)
	return &r
}

func TestLogWithOnlyRating(t *testing.T) {
	s := newSite(filmPage(defaultSidebar, stars("dlg")+allFields+submitButton), true)
	page := open(t, s)
	auth := &authStub{}

	res, err := newExecutor(t, auth).Log(context.Background(), page,
		core.FilmReference{Slug: "parasite-2019"}, core.LogRequest{Rating: ratingOf(4.5)})
	require.NoError(t, err)

	assert.Equal(t, 1, auth.calls)
	assert.Equal(t, []string{"rating"}, res.Applied)
	assert.Empty(t, res.Skipped)
	assert.True(t, res.Changed)
	assert.False(t, res.Incomplete)
	assert.Equal(t, []string{"a.add-this-film", "span#dlg-9.rateit-star", submitID}, page.Clicks)
	assert.Empty(t, page.Fills)
	assert.Equal(t, []string{filmURL}, page.Navigations)
}

func TestLogPrefersExplicitRatingValue(t *testing.T) {
	dialog := `<div class="rating-control">
  <button data-rating-value="4.0">4</button><button data-rating-value="4.5">4½</button>
</div>` + stars("dlg") + submitButton
	page := open(t, newSite(filmPage(defaultSidebar, dialog), true))

	res, err := newExecutor(t, &authStub{}).Log(context.Background(), page,
		core.FilmReference{Slug: "parasite-2019"}, core.LogRequest{Rating: ratingOf(4.5)})
	require.NoError(t, err)
	assert.Equal(t, []string{"rating"}, res.Applied)
	assert.Contains(t, page.Clicks, "button")
	assert.NotContains(t, page.Clicks, "span#dlg-9.rateit-star")
}

func TestLogAppliesFieldsAndSkipsMissingControls(t *testing.T) {
	// no review control in this dialog
	dialog := strings.Replace(allFields, `<textarea id="frm-review" name="review"></textarea>`, "", 1)
	dialog = strings.Replace(dialog, `<label for="frm-review">Review</label>`, "", 1)
	page := open(t, newSite(filmPage(defaultSidebar, dialog+submitButton), true))

	yes, no := true, false
	date := time.Date(2024, 3, 9, 0, 0, 0, 0, time.UTC)
	review := "Stairs."
	res, err := newExecutor(t, &authStub{}).Log(context.Background(), page,
		core.FilmReference{Slug: "parasite-2019"},
		core.LogRequest{Date: &date, Liked: &yes, Rewatch: &yes, Review: &review, Spoilers: &no})
	require.NoError(t, err)

	assert.Equal(t, []string{"date", "liked", "rewatch", "spoilers"}, res.Applied)
	assert.Equal(t, []string{"review"}, res.Skipped)
	assert.Equal(t, "2024-03-09", page.Fills["input#frm-viewing-date-string[viewingDateStr]"])

	doc := page.Doc()
	assert.True(t, doc.Find("#frm-specify-date").Is("[checked]"))
	assert.True(t, doc.Find("#frm-like").Is("[checked]"))
	assert.True(t, doc.Find("#frm-rewatch").Is("[checked]"))
	assert.False(t, doc.Find("#frm-has-spoilers").Is("[checked]"), "spoilers already off, never clicked")
	assert.NotContains(t, page.Clicks, "input#frm-has-spoilers[containsSpoilers]")
}

func TestLogCompletionTimeoutIsIncomplete(t *testing.T) {
	page := open(t, newSite(filmPage(defaultSidebar, stars("dlg")+submitButton), false))

	res, err := newExecutor(t, &authStub{}).Log(context.Background(), page,
		core.FilmReference{Slug: "parasite-2019"}, core.LogRequest{Rating: ratingOf(3)})
	require.NoError(t, err)
	assert.True(t, res.Incomplete)
	assert.True(t, res.Changed)
	assert.Contains(t, page.Clicks, submitID)
}

func TestLogFailsWithoutSubmit(t *testing.T) {
	page := open(t, newSite(filmPage(defaultSidebar, stars("dlg")), true))

	res, err := newExecutor(t, &authStub{}).Log(context.Background(), page,
		core.FilmReference{Slug: "parasite-2019"}, core.LogRequest{Rating: ratingOf(3)})
	assert.ErrorIs(t, err, core.ErrElementNotFound)
	assert.Equal(t, []string{"rating"}, res.Applied)
}

func TestLogFailsWhenDialogNeverAppears(t *testing.T) {
	s := htmlpage.NewSite().Route(filmURL, filmPage(defaultSidebar, submitButton))
	page := open(t, s)

	_, err := newExecutor(t, &authStub{}).Log(context.Background(), page,
		core.FilmReference{Slug: "parasite-2019"}, core.LogRequest{Rating: ratingOf(3)})
	assert.ErrorIs(t, err, core.ErrVisibilityTimeout)
	assert.NotContains(t, page.Clicks, submitID)
}

func TestLogRejectsInvalidRating(t *testing.T) {
	s := newSite(filmPage(defaultSidebar, submitButton), true)
	page := open(t, s)
	auth := &authStub{}

	_, err := newExecutor(t, auth).Log(context.Background(), page,
		core.FilmReference{Slug: "parasite-2019"}, core.LogRequest{Rating: ratingOf(4.2)})
	assert.ErrorIs(t, err, core.ErrInvalidRating)
	assert.Zero(t, auth.calls)
	assert.Empty(t, s.Navigations)
}

func TestActionStopsWhenAuthenticationFails(t *testing.T) {
	s := newSite(filmPage(defaultSidebar, submitButton), true)
	page := open(t, s)

	_, err := newExecutor(t, &authStub{err: core.ErrAuthenticationFailure}).SetLiked(context.Background(), page, "parasite-2019", true)
	assert.ErrorIs(t, err, core.ErrAuthenticationFailure)
	assert.Empty(t, s.Navigations)
}

func TestActionFailsWhenFilmPageNeverReady(t *testing.T) {
	page := open(t, htmlpage.NewSite())

	_, err := newExecutor(t, &authStub{}).SetWatchlist(context.Background(), page, "no-such-film", true)
	assert.ErrorIs(t, err, core.ErrVisibilityTimeout)
	assert.Empty(t, page.Clicks)
}

func TestSetLikedReadsStateBeforeClicking(t *testing.T) {
	s := newSite(filmPage(defaultSidebar, ""), true)
	s.OnClick(".like-link-target a", func(_ *htmlpage.Page, el *goquery.Selection) {
		if el.AttrOr("aria-pressed", "") == "true" {
			el.SetAttr("aria-pressed", "false")
		} else {
			el.SetAttr("aria-pressed", "true")
		}
	})
	page := open(t, s)
	x := newExecutor(t, &authStub{})

	res, err := x.SetLiked(context.Background(), page, "parasite-2019", true)
	require.NoError(t, err)
	assert.True(t, res.Changed)
	assert.False(t, res.Incomplete)
	assert.Equal(t, []string{"a.ajax-click-action.-like"}, page.Clicks)

	// the page is reloaded between actions, so serve the liked state
	s.Route(filmURL, filmPage(strings.Replace(defaultSidebar, `aria-pressed="false"`, `aria-pressed="true"`, 1), ""))
	res, err = x.SetLiked(context.Background(), page, "parasite-2019", true)
	require.NoError(t, err)
	assert.False(t, res.Changed)
	assert.Len(t, page.Clicks, 1, "an already-liked film must not be clicked")
}

func TestSetWatchlistUsesWording(t *testing.T) {
	s := newSite(filmPage(defaultSidebar, ""), true)
	s.OnClick(".watchlist-link-target a", func(_ *htmlpage.Page, el *goquery.Selection) {
		el.SetText("Remove from watchlist")
	})
	page := open(t, s)

	res, err := newExecutor(t, &authStub{}).SetWatchlist(context.Background(), page, "parasite-2019", true)
	require.NoError(t, err)
	assert.True(t, res.Changed)
	assert.False(t, res.Incomplete)
	assert.Equal(t, "Remove from watchlist", page.Doc().Find(".watchlist-link-target a").Text())

	res, err = newExecutor(t, &authStub{}).SetWatchlist(context.Background(), page, "parasite-2019", false)
	require.NoError(t, err)
	assert.False(t, res.Changed, "fresh page still reads Add, so removing is a no-op")
}

func TestToggleWithUnreadableStateIsNotClicked(t *testing.T) {
	sidebar := `<li><a data-js-trigger="like" href="#">♥</a></li>`
	page := open(t, newSite(filmPage(sidebar, ""), true))

	_, err := newExecutor(t, &authStub{}).SetLiked(context.Background(), page, "parasite-2019", true)
	assert.True(t, errors.Is(err, errUnknownState))
	assert.Empty(t, page.Clicks)
}

func TestToggleWithoutSettlingIsIncomplete(t *testing.T) {
	page := open(t, newSite(filmPage(defaultSidebar, ""), true))

	res, err := newExecutor(t, &authStub{}).SetLiked(context.Background(), page, "parasite-2019", true)
	require.NoError(t, err)
	assert.True(t, res.Changed)
	assert.True(t, res.Incomplete)
}

func ratingSidebar(current string) string {
	return `<li><div class="rateit" data-rateit-value="` + current + `">` + stars("star") + `</div></li>`
}

func TestRateClicksOrdinalStar(t *testing.T) {
	s := newSite(filmPage(ratingSidebar("0"), ""), true)
	s.OnClick(".sidebar .rateit-star", func(p *htmlpage.Page, el *goquery.Selection) {
		p.Doc().Find(".sidebar .rateit").SetAttr("data-rateit-value", el.AttrOr("data-value", ""))
	})
	page := open(t, s)

	res, err := newExecutor(t, &authStub{}).Rate(context.Background(), page, "parasite-2019", 3.5)
	require.NoError(t, err)
	assert.Equal(t, core.ActionRate, res.Action)
	assert.True(t, res.Changed)
	assert.False(t, res.Incomplete)
	assert.Equal(t, []string{"span#star-7.rateit-star"}, page.Clicks)
}

func TestRateSkipsWhenAlreadyRated(t *testing.T) {
	page := open(t, newSite(filmPage(ratingSidebar("3.5"), ""), true))

	res, err := newExecutor(t, &authStub{}).Rate(context.Background(), page, "parasite-2019", 3.5)
	require.NoError(t, err)
	assert.False(t, res.Changed)
	assert.Empty(t, page.Clicks)
}

func TestRateRejectsInvalidValue(t *testing.T) {
	s := newSite(filmPage(ratingSidebar("0"), ""), true)
	page := open(t, s)

	_, err := newExecutor(t, &authStub{}).Rate(context.Background(), page, "parasite-2019", 5.5)
	assert.ErrorIs(t, err, core.ErrInvalidRating)
	assert.Empty(t, s.Navigations)
}

func TestReadToggle(t *testing.T) {
	cases := map[string]bool{
		`<a id="t" aria-pressed="true">x</a>`:           true,
		`<a id="t" aria-checked="false">x</a>`:          false,
		`<input id="t" type="checkbox" checked>`:        true,
		`<input id="t" type="checkbox">`:                false,
		`<a id="t" class="ajax-click-action -on">x</a>`: true,
		`<a id="t">Remove from watchlist</a>`:           true,
		`<a id="t">Add to watchlist</a>`:                false,
	}
	ctx := context.Background()
	for body, want := range cases {
		page := htmlpage.Load(base, body)
		els, err := page.Elements(ctx, "#t")
		require.NoError(t, err)
		got, err := readToggle(ctx, els[0])
		require.NoError(t, err, body)
		assert.Equal(t, want, got, body)
	}
}
