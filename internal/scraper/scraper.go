// Package scraper extracts bounded listings from rendered pages. Every item is
// extracted field by field; an item without a film slug is skipped and
// counted, never fatal to the listing.
package scraper

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/gkmur/letterboxd-cli/internal/core"
	"github.com/gkmur/letterboxd-cli/internal/locator"
	"github.com/gkmur/letterboxd-cli/internal/site"
)

// Caps per listing type
const (
	SearchCap    = 10
	DiaryCap     = 20
	WatchlistCap = 50

	// maxPages bounds pagination when a listing's first page is short of its cap
	maxPages = 5
)

// Result is a listing in document order plus the number of skipped items
type Result[T any] struct {
	Items   []T
	Skipped int
}

// Scraper reads listings from a page
type Scraper struct {
	urls     site.Locations
	timeouts core.TimeoutsConfig
	logger   *zap.Logger
}

// New creates a scraper for the configured site
func New(siteCfg core.SiteConfig, timeouts core.TimeoutsConfig, logger *zap.Logger) *Scraper {
	return &Scraper{
		urls:     site.New(siteCfg.BaseURL),
		timeouts: timeouts,
		logger:   logger.Named("scraper"),
	}
}

// listing describes one listing type
type listing[T any] struct {
	name      string
	container locator.Spec
	empty     locator.Spec
	item      locator.Spec
	cap       int
	paged     bool
	lazy      bool // posters load on scroll
	extract   func(ctx context.Context, item core.Element) (T, error)
}

// list opens url and collects up to l.cap items, following pagination when
// l.paged is set
func list[T any](ctx context.Context, s *Scraper, page core.Page, url string, l listing[T]) (Result[T], error) {
	log := s.logger.With(zap.String("listing", l.name), zap.String("url", url))
	var res Result[T]

	if err := page.Navigate(ctx, url); err != nil {
		return res, fmt.Errorf("failed to open %s: %w", l.name, err)
	}

	seen := 0
	for pageNo := 1; ; pageNo++ {
		container, empty, err := s.awaitListing(ctx, page, l.name, l.container, l.empty)
		if err != nil {
			return res, err
		}
		if empty {
			log.Debug("Listing is empty")
			break
		}

		if l.lazy {
			if err := page.Scroll(ctx, 1200); err != nil && core.IsTerminal(err) {
				return res, err
			}
		}

		items, _, err := locator.All(ctx, container, l.item)
		if err != nil && !errors.Is(err, core.ErrElementNotFound) {
			return res, err
		}

		part, err := collect(ctx, items, l.cap-seen, l.extract, log)
		if err != nil {
			return res, err
		}
		seen += min(len(items), l.cap-seen)
		res.Items = append(res.Items, part.Items...)
		res.Skipped += part.Skipped

		if !l.paged || seen >= l.cap || pageNo >= maxPages {
			break
		}
		next, ok, err := nextPageURL(ctx, page)
		if err != nil {
			return res, err
		}
		if !ok {
			break
		}
		if err := page.Navigate(ctx, next); err != nil {
			return res, fmt.Errorf("failed to open page %d of %s: %w", pageNo+1, l.name, err)
		}
	}

	if res.Skipped > 0 {
		log.Warn("Skipped malformed items", zap.Int("skipped", res.Skipped), zap.Int("items", len(res.Items)))
	}
	return res, nil
}

// awaitListing waits for the listing container or its empty-state message.
// Neither appearing in time is fatal.
func (s *Scraper) awaitListing(ctx context.Context, page core.Page, name string, container, empty locator.Spec) (core.Element, bool, error) {
	either := locator.Join(name+" or empty state", container, empty)
	match, err := locator.AwaitVisible(ctx, page, either, s.timeouts.Ready, locator.WithPoll(s.timeouts.Poll))
	if err != nil {
		return nil, false, fmt.Errorf("%s did not load: %w", name, err)
	}
	return match.Element, match.Strategy >= len(container.Strategies), nil
}

// collect extracts up to limit items in order, skipping malformed ones
func collect[T any](
	ctx context.Context,
	items []core.Element,
	limit int,
	extract func(context.Context, core.Element) (T, error),
	log *zap.Logger,
) (Result[T], error) {
	var res Result[T]
	if limit < len(items) {
		items = items[:max(limit, 0)]
	}

	for i, item := range items {
		v, err := extract(ctx, item)
		if errors.Is(err, core.ErrMalformedItem) {
			log.Debug("Skipping item", zap.Int("position", i+1), zap.Error(err))
			res.Skipped++
			continue
		}
		if err != nil {
			return res, err
		}
		res.Items = append(res.Items, v)
	}
	return res, nil
}

func nextPageURL(ctx context.Context, page core.Page) (string, bool, error) {
	href, err := attrOf(ctx, page, nextPage, "href")
	if err != nil || href == "" {
		return "", false, err
	}
	current, err := page.URL(ctx)
	if err != nil {
		return "", false, err
	}
	next, err := site.Resolve(current, href)
	if err != nil {
		return "", false, nil
	}
	return next, true, nil
}
