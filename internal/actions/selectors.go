package actions

import (
	"strconv"

	"github.com/gkmur/letterboxd-cli/internal/core"
	"github.com/gkmur/letterboxd-cli/internal/locator"
)

var (
	filmReady = locator.New("film page",
		locator.ByCSS("#film-page-wrapper"),
		locator.ByCSS("section.film-header, .film-header-group"),
		locator.ByCSS("[data-film-slug] h1, h1.headline-1"),
	)

	// Sidebar actions

	logControl = locator.New("log control",
		locator.ByAttribute("data-js-trigger", "add-to-diary"),
		locator.ByClass("add-this-film"),
		locator.ByText("a, button", `^(review or )?log\b`),
	)

	likeToggle = locator.New("like toggle",
		locator.ByAttribute("data-js-trigger", "like"),
		locator.ByCSS(".like-link-target .ajax-click-action, .like-link-target a"),
		locator.ByRole("button", `^like$|^liked$`),
	)

	watchlistToggle = locator.New("watchlist toggle",
		locator.ByAttribute("data-js-trigger", "watchlist"),
		locator.ByCSS(".watchlist-link-target .ajax-click-action, .add-to-watchlist"),
		locator.ByText("a, button", `watchlist`),
	)

	sidebarRating = locator.New("sidebar rating",
		locator.ByCSS(".sidebar .rateit[data-rateit-value]"),
		locator.ByCSS(".actions-panel .rateit"),
		locator.ByClass("rateit"),
	)

	// Diary entry dialog. Stars and the rating value controls exist both here
	// and in the sidebar.

	logDialog = locator.New("diary entry dialog",
		locator.ByRole("dialog", ""),
		locator.ByCSS("#diary-entry-form-modal, .diary-entry-modal"),
		locator.ByCSS("#modal form#diary-entry-form"),
	)

	specifyDate = locator.New("specify date",
		locator.ByAttribute("id", "frm-specify-date"),
		locator.ByAttribute("name", "specifiedDate"),
	)

	dateField = locator.New("watched date",
		locator.ByLabel(`watched on|date`),
		locator.ByAttribute("id", "frm-viewing-date-string"),
		locator.ByAttribute("name", "viewingDateStr"),
	)

	reviewField = locator.New("review",
		locator.ByLabel(`review`),
		locator.ByAttribute("id", "frm-review"),
		locator.ByCSS(`textarea[name="review"]`),
	)

	spoilersToggle = locator.New("spoilers",
		locator.ByLabel(`spoilers`),
		locator.ByAttribute("id", "frm-has-spoilers"),
		locator.ByAttribute("name", "containsSpoilers"),
	)

	rewatchToggle = locator.New("rewatch",
		locator.ByLabel(`watched .*before|rewatch`),
		locator.ByAttribute("id", "frm-rewatch"),
		locator.ByAttribute("name", "rewatch"),
	)

	dialogLike = locator.New("liked",
		locator.ByRole("checkbox", `^like`),
		locator.ByAttribute("id", "frm-like"),
		locator.ByClass("frm-like"),
	)

	ratingStars = locator.New("rating stars",
		locator.ByCSS(".rateit-range .rateit-star"),
		locator.ByCSS(".rating-stars .star"),
	)

	logSubmit = locator.New("save diary entry",
		locator.ByAttribute("id", "diary-entry-submit-button"),
		locator.ByRole("button", `^save$`),
		locator.ByCSS(`form button[type="submit"], form input[type="submit"]`),
	)
)

// ratingValue addresses a rating control by its explicit value
func ratingValue(r core.RatingValue) locator.Spec {
	v := strconv.FormatFloat(float64(r), 'f', 1, 64)
	return locator.New("rating "+v,
		locator.ByAttribute("data-rating-value", v),
		locator.ByAttribute("data-rate", strconv.Itoa(r.HalfStars())),
	)
}
