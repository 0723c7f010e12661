package scraper

import "github.com/gkmur/letterboxd-cli/internal/locator"

// Shared film fields

var (
	filmMarker = locator.New("film marker",
		locator.ByAttribute("data-film-slug", ""),
		locator.ByAttribute("data-target-link", ""),
	)

	filmLink = locator.New("film link",
		locator.ByCSS(`.film-title-wrapper a[href*="/film/"]`),
		locator.ByCSS(`h2 a[href*="/film/"], h3 a[href*="/film/"]`),
		locator.ByCSS(`a[href*="/film/"]`),
	)

	posterImage = locator.New("poster image",
		locator.ByCSS(".film-poster img[alt]"),
		locator.ByCSS("img[alt]"),
	)

	nextPage = locator.New("next page",
		locator.ByCSS(".paginate-nextprev a.next"),
		locator.ByAttribute("rel", "next"),
	)
)

// Search results

var (
	searchListing = locator.New("search results",
		locator.ByCSS("ul.results"),
		locator.ByCSS(".search-results"),
	)

	searchEmpty = locator.New("no search results",
		locator.ByClass("empty-state"),
		locator.ByText("h2, p, .ui-block-heading", `no (matches|results)`),
	)

	searchItem = locator.New("search result",
		locator.ByCSS("li.search-result"),
		locator.ByCSS("li"),
		locator.ByCSS(".film-detail"),
	)

	searchTitle = locator.New("result title",
		locator.ByCSS(".film-title-wrapper > a"),
		locator.ByCSS("h2 a"),
	)

	searchYear = locator.New("result year",
		locator.ByCSS(".film-title-wrapper small.metadata"),
		locator.ByCSS(`.metadata a[href*="/year/"]`),
	)

	searchDirector = locator.New("result director",
		locator.ByCSS(`.film-metadata a[href*="/director/"]`),
		locator.ByCSS("p.film-metadata a"),
	)
)

// Diary

var (
	diaryListing = locator.New("diary table",
		locator.ByAttribute("id", "diary-table"),
		locator.ByCSS("table.diary-table, .diary-table tbody"),
	)

	diaryEmpty = locator.New("empty diary",
		locator.ByClass("empty-state"),
		locator.ByText("h2, p", `no (diary )?entries|hasn’t logged|hasn't logged`),
	)

	diaryRow = locator.New("diary row",
		locator.ByClass("diary-entry-row"),
		locator.ByCSS("tbody tr"),
	)

	diaryTitle = locator.New("diary title",
		locator.ByCSS(".td-film-details h3 a"),
		locator.ByCSS("h3 a"),
	)

	diaryReleased = locator.New("diary release year",
		locator.ByClass("td-released"),
		locator.ByCSS("td.td-released span"),
	)

	diaryDay = locator.New("diary day",
		locator.ByCSS("td.td-day a[href]"),
		locator.ByCSS(".diary-day a[href]"),
	)

	diaryRating = locator.New("diary rating",
		locator.ByCSS(".td-rating .rating"),
		locator.ByCSS(`[class*="rated-"]`),
	)

	diaryLiked = locator.New("diary like",
		locator.ByCSS(".td-like .icon-liked"),
		locator.ByCSS(".td-like .-liked"),
	)

	diaryRewatch = locator.New("diary rewatch",
		locator.ByClass("td-rewatch"),
	)

	diaryReview = locator.New("diary review",
		locator.ByCSS(".td-review a[href]"),
	)
)

// Watchlist

var (
	watchlistListing = locator.New("watchlist",
		locator.ByCSS("ul.poster-list"),
		locator.ByCSS(".poster-grid ul"),
	)

	watchlistEmpty = locator.New("empty watchlist",
		locator.ByClass("empty-state"),
		locator.ByText("h2, p", `watchlist is empty|no films`),
	)

	watchlistItem = locator.New("watchlist film",
		locator.ByClass("poster-container"),
		locator.ByCSS("li.griditem"),
		locator.ByCSS("li"),
	)
)

// Profile

var (
	profileReady = locator.New("profile header",
		locator.ByCSS(".profile-stats"),
		locator.ByCSS(".profile-summary"),
		locator.ByAttribute("id", "profile-header"),
	)

	profileName = locator.New("display name",
		locator.ByCSS(".profile-name h1"),
		locator.ByCSS(".profile-summary h1"),
		locator.ByCSS("h1.title-1"),
	)

	profileStat = locator.New("profile statistic",
		locator.ByCSS(".profile-stats .profile-statistic"),
		locator.ByCSS(".profile-statistic"),
	)

	statValue = locator.New("statistic value",
		locator.ByClass("value"),
	)

	statLabel = locator.New("statistic label",
		locator.ByClass("definition"),
	)
)
