package scraper

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/gkmur/letterboxd-cli/internal/core"
	"github.com/gkmur/letterboxd-cli/internal/locator"
	"github.com/gkmur/letterboxd-cli/pkg/utils"
)

// Search returns up to SearchCap films matching query, in the site's order
func (s *Scraper) Search(ctx context.Context, page core.Page, query string) (Result[core.FilmReference], error) {
	if strings.TrimSpace(query) == "" {
		return Result[core.FilmReference]{}, fmt.Errorf("search query is empty")
	}
	return list(ctx, s, page, s.urls.Search(query), listing[core.FilmReference]{
		name:      "search results",
		container: searchListing,
		empty:     searchEmpty,
		item:      searchItem,
		cap:       SearchCap,
		extract:   searchResult,
	})
}

// FindFirst is the head of Search. It reports false when nothing matched.
func (s *Scraper) FindFirst(ctx context.Context, page core.Page, query string) (core.FilmReference, bool, error) {
	res, err := s.Search(ctx, page, query)
	if err != nil || len(res.Items) == 0 {
		return core.FilmReference{}, false, err
	}
	return res.Items[0], true, nil
}

func searchResult(ctx context.Context, item core.Element) (core.FilmReference, error) {
	slug, err := filmSlug(ctx, item)
	if err != nil {
		return core.FilmReference{}, err
	}
	if slug == "" {
		return core.FilmReference{}, fmt.Errorf("search result without film link: %w", core.ErrMalformedItem)
	}

	film := core.FilmReference{Slug: slug}
	if film.Title, err = filmTitle(ctx, item, searchTitle); err != nil {
		return film, err
	}
	year, err := textOf(ctx, item, searchYear)
	if err != nil {
		return film, err
	}
	film.Year = yearIn(year)
	if film.Director, err = textOf(ctx, item, searchDirector); err != nil {
		return film, err
	}
	return film, nil
}

// Diary returns up to DiaryCap entries of user's diary, narrowed to year and
// month when they are non-zero
func (s *Scraper) Diary(ctx context.Context, page core.Page, user string, year, month int) (Result[core.DiaryEntry], error) {
	if user == "" {
		return Result[core.DiaryEntry]{}, fmt.Errorf("username is required")
	}
	return list(ctx, s, page, s.urls.Diary(user, year, month), listing[core.DiaryEntry]{
		name:      "diary",
		container: diaryListing,
		empty:     diaryEmpty,
		item:      diaryRow,
		cap:       DiaryCap,
		paged:     true,
		extract:   diaryEntry,
	})
}

func diaryEntry(ctx context.Context, row core.Element) (core.DiaryEntry, error) {
	slug, err := filmSlug(ctx, row)
	if err != nil {
		return core.DiaryEntry{}, err
	}
	if slug == "" {
		return core.DiaryEntry{}, fmt.Errorf("diary row without film: %w", core.ErrMalformedItem)
	}

	entry := core.DiaryEntry{Film: core.FilmReference{Slug: slug}}
	if entry.Film.Title, err = filmTitle(ctx, row, diaryTitle); err != nil {
		return entry, err
	}
	released, err := textOf(ctx, row, diaryReleased)
	if err != nil {
		return entry, err
	}
	entry.Film.Year = yearIn(released)

	day, err := attrOf(ctx, row, diaryDay, "href")
	if err != nil {
		return entry, err
	}
	entry.WatchedOn = diaryDate(day)

	if entry.Rating, err = diaryRatingOf(ctx, row); err != nil {
		return entry, err
	}
	if entry.Liked, err = exists(ctx, row, diaryLiked); err != nil {
		return entry, err
	}

	rewatch, err := attrOf(ctx, row, diaryRewatch, "class")
	if err != nil {
		return entry, err
	}
	entry.Rewatch = rewatch != "" && !hasClass(rewatch, statusOff)

	if entry.Reviewed, err = exists(ctx, row, diaryReview); err != nil {
		return entry, err
	}
	return entry, nil
}

// diaryDate reads the day link, /<user>/films/diary/for/YYYY/MM/DD/
func diaryDate(href string) *time.Time {
	m := dayInDiary.FindStringSubmatch(href)
	if m == nil {
		return nil
	}
	y, _ := strconv.Atoi(m[1])
	mo, _ := strconv.Atoi(m[2])
	d, _ := strconv.Atoi(m[3])
	if mo < 1 || mo > 12 || d < 1 || d > 31 {
		return nil
	}
	t := time.Date(y, time.Month(mo), d, 0, 0, 0, 0, time.UTC)
	return &t
}

// diaryRatingOf prefers the rated-N class over the star text
func diaryRatingOf(ctx context.Context, row core.Element) (*core.RatingValue, error) {
	m, err := locator.Resolve(ctx, row, diaryRating)
	if err != nil {
		return nil, keep(err)
	}
	for _, read := range []func() (string, error){
		func() (string, error) { return attr(ctx, m.Element, "class") },
		func() (string, error) {
			text, err := m.Element.Text(ctx)
			return text, keep(err)
		},
	} {
		v, err := read()
		if err != nil {
			return nil, err
		}
		if r, ok := utils.ParseRatingText(v); ok {
			return &r, nil
		}
	}
	return nil, nil
}

// Watchlist returns up to WatchlistCap films from user's watchlist
func (s *Scraper) Watchlist(ctx context.Context, page core.Page, user string) (Result[core.WatchlistItem], error) {
	if user == "" {
		return Result[core.WatchlistItem]{}, fmt.Errorf("username is required")
	}
	return list(ctx, s, page, s.urls.Watchlist(user), listing[core.WatchlistItem]{
		name:      "watchlist",
		container: watchlistListing,
		empty:     watchlistEmpty,
		item:      watchlistItem,
		cap:       WatchlistCap,
		paged:     true,
		lazy:      true,
		extract:   watchlistEntry,
	})
}

func watchlistEntry(ctx context.Context, item core.Element) (core.WatchlistItem, error) {
	slug, err := filmSlug(ctx, item)
	if err != nil {
		return core.WatchlistItem{}, err
	}
	if slug == "" {
		return core.WatchlistItem{}, fmt.Errorf("poster without film: %w", core.ErrMalformedItem)
	}

	film := core.FilmReference{Slug: slug}
	if film.Title, err = filmTitle(ctx, item, filmLink); err != nil {
		return core.WatchlistItem{}, err
	}
	// "Parasite (2019)" style alt text carries the year
	if year := yearIn(film.Title); year != "" && strings.HasSuffix(film.Title, "("+year+")") {
		film.Year = year
		film.Title = strings.TrimSpace(strings.TrimSuffix(film.Title, "("+year+")"))
	}
	if film.Year == "" {
		m, err := locator.Resolve(ctx, item, filmMarker)
		if err == nil {
			if film.Year, err = attr(ctx, m.Element, "data-film-release-year"); err != nil {
				return core.WatchlistItem{}, err
			}
		} else if err := keep(err); err != nil {
			return core.WatchlistItem{}, err
		}
	}
	return core.WatchlistItem{Film: film}, nil
}

// Stats reads the statistics block of user's profile. Every number is optional.
func (s *Scraper) Stats(ctx context.Context, page core.Page, user string) (core.ProfileStats, error) {
	stats := core.ProfileStats{Username: user}
	if user == "" {
		return stats, fmt.Errorf("username is required")
	}

	if err := page.Navigate(ctx, s.urls.Profile(user)); err != nil {
		return stats, fmt.Errorf("failed to open profile: %w", err)
	}
	if _, err := locator.AwaitVisible(ctx, page, profileReady, s.timeouts.Ready, locator.WithPoll(s.timeouts.Poll)); err != nil {
		return stats, fmt.Errorf("profile did not load: %w", err)
	}

	var err error
	if stats.DisplayName, err = textOf(ctx, page, profileName); err != nil {
		return stats, err
	}

	blocks, _, err := locator.All(ctx, page, profileStat)
	if err != nil {
		if errors.Is(err, core.ErrElementNotFound) {
			s.logger.Warn("Profile has no statistics", zap.String("username", user))
			return stats, nil
		}
		return stats, err
	}

	for _, block := range blocks {
		value, err := textOf(ctx, block, statValue)
		if err != nil {
			return stats, err
		}
		label, err := textOf(ctx, block, statLabel)
		if err != nil {
			return stats, err
		}
		n, ok := parseCount(value)
		if !ok {
			continue
		}
		switch strings.ToLower(label) {
		case "films", "film":
			stats.FilmsWatched = &n
		case "this year":
			stats.ThisYear = &n
		case "lists", "list":
			stats.Lists = &n
		case "following":
			stats.Following = &n
		case "followers", "follower":
			stats.Followers = &n
		}
	}
	return stats, nil
}
