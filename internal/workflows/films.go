package workflows

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/gkmur/letterboxd-cli/internal/actions"
	"github.com/gkmur/letterboxd-cli/internal/core"
	"github.com/gkmur/letterboxd-cli/internal/retry"
	"github.com/gkmur/letterboxd-cli/pkg/utils"
)

// Film names the target of a mutation: a slug, or a title to look up
type Film struct {
	Slug  string
	Title string
}

func (f Film) String() string {
	if f.Slug != "" {
		return f.Slug
	}
	return f.Title
}

type mutation func(ctx context.Context, x *actions.Executor, page core.Page, film core.FilmReference) (core.ActionResult, error)

// Rate sets the film's star rating
func (s *Service) Rate(ctx context.Context, film Film, rating core.RatingValue) (core.ActionResult, error) {
	if !rating.Valid() {
		c := &call{op: "rate", subject: film.String()}
		return core.ActionResult{}, c.fail(fmt.Errorf("%w: %v", core.ErrInvalidRating, float64(rating)))
	}
	return s.mutate(ctx, "rate", film, map[string]float64{"rating": float64(rating)},
		func(ctx context.Context, x *actions.Executor, page core.Page, ref core.FilmReference) (core.ActionResult, error) {
			return x.Rate(ctx, page, ref.Slug, rating)
		})
}

// Log adds a diary entry for the film
func (s *Service) Log(ctx context.Context, film Film, req core.LogRequest) (core.ActionResult, error) {
	if req.Rating != nil && !req.Rating.Valid() {
		c := &call{op: "log", subject: film.String()}
		return core.ActionResult{}, c.fail(fmt.Errorf("%w: %v", core.ErrInvalidRating, float64(*req.Rating)))
	}
	return s.mutate(ctx, "log", film, req,
		func(ctx context.Context, x *actions.Executor, page core.Page, ref core.FilmReference) (core.ActionResult, error) {
			return x.Log(ctx, page, ref, req)
		})
}

// SetLiked likes or unlikes the film
func (s *Service) SetLiked(ctx context.Context, film Film, liked bool) (core.ActionResult, error) {
	return s.mutate(ctx, "like", film, map[string]bool{"liked": liked},
		func(ctx context.Context, x *actions.Executor, page core.Page, ref core.FilmReference) (core.ActionResult, error) {
			return x.SetLiked(ctx, page, ref.Slug, liked)
		})
}

// SetWatchlist adds the film to the watchlist or removes it
func (s *Service) SetWatchlist(ctx context.Context, film Film, listed bool) (core.ActionResult, error) {
	return s.mutate(ctx, "watchlist", film, map[string]bool{"watchlist": listed},
		func(ctx context.Context, x *actions.Executor, page core.Page, ref core.FilmReference) (core.ActionResult, error) {
			return x.SetWatchlist(ctx, page, ref.Slug, listed)
		})
}

// mutate runs one remote mutation. It is never retried. Only a mutation that
// changed something is recorded and counted against the daily limit.
func (s *Service) mutate(ctx context.Context, op string, film Film, request any, do mutation) (core.ActionResult, error) {
	c := &call{op: op, subject: film.String()}
	if err := s.checkLimit(ctx); err != nil {
		return core.ActionResult{}, c.fail(err)
	}

	var res core.ActionResult
	err := s.withPage(ctx, c, func(ctx context.Context, page core.Page) error {
		ref, err := s.resolveFilm(ctx, page, film)
		if err != nil {
			return err
		}
		c.subject = ref.Slug

		x := actions.NewExecutor(c.machine, s.cfg.Site, s.cfg.Timeouts, s.logger)
		res, err = do(ctx, x, page, ref)
		return err
	})
	if err != nil {
		return res, err
	}

	if res.Changed {
		s.record(ctx, &core.History{
			ActionType: res.Action,
			Subject:    res.Slug,
			Incomplete: res.Incomplete,
		}, historyDetails{Request: request, Applied: res.Applied, Skipped: res.Skipped})
	}
	return res, nil
}

// ResolveFilm maps a title to a film without changing anything
func (s *Service) ResolveFilm(ctx context.Context, film Film) (core.FilmReference, error) {
	c := &call{op: "resolve", subject: film.String()}
	var ref core.FilmReference
	err := s.withPage(ctx, c, func(ctx context.Context, page core.Page) error {
		var err error
		ref, err = s.resolveFilm(ctx, page, film)
		return err
	})
	return ref, err
}

// resolveFilm returns the slug as given, or looks the title up: the first
// search result wins, and the slugified title stands in only when the search
// page reports no matches. A failed search fails the operation. Answers are
// cached for the life of the process so a title always maps to the same slug.
func (s *Service) resolveFilm(ctx context.Context, page core.Page, film Film) (core.FilmReference, error) {
	if film.Slug != "" {
		return core.FilmReference{Slug: film.Slug, Title: film.Title}, nil
	}

	key := strings.ToLower(strings.Join(strings.Fields(film.Title), " "))
	if key == "" {
		return core.FilmReference{}, fmt.Errorf("a film title or slug is required")
	}
	if ref, ok := s.slugs.Load(key); ok {
		return ref.(core.FilmReference), nil
	}

	type found struct {
		ref core.FilmReference
		ok  bool
	}
	hit, err := retry.Value(ctx, s.retry, func(ctx context.Context) (found, error) {
		ref, ok, err := s.scraper.FindFirst(ctx, page, film.Title)
		return found{ref, ok}, err
	})
	if err != nil {
		return core.FilmReference{}, fmt.Errorf("failed to look up %q: %w", film.Title, err)
	}

	ref := hit.ref
	if !hit.ok {
		slug := utils.Slugify(film.Title)
		if slug == "" {
			return core.FilmReference{}, fmt.Errorf("cannot derive a slug from %q", film.Title)
		}
		s.logger.Warn("Search found no match, using the title's slug",
			zap.String("title", film.Title),
			zap.String("slug", slug),
		)
		ref = core.FilmReference{Slug: slug, Title: film.Title}
	}

	actual, _ := s.slugs.LoadOrStore(key, ref)
	ref = actual.(core.FilmReference)
	s.logger.Debug("Resolved title", zap.String("title", film.Title), zap.String("slug", ref.Slug))
	return ref, nil
}
