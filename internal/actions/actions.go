package actions

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/gkmur/letterboxd-cli/internal/core"
	"github.com/gkmur/letterboxd-cli/internal/locator"
	"github.com/gkmur/letterboxd-cli/pkg/utils"
)

// Rate sets the film's rating from the sidebar widget. A widget already
// showing rating is left alone.
func (x *Executor) Rate(ctx context.Context, page core.Page, slug string, rating core.RatingValue) (core.ActionResult, error) {
	if !rating.Valid() {
		return core.ActionResult{Action: core.ActionRate, Slug: slug}, fmt.Errorf("%w: %v", core.ErrInvalidRating, float64(rating))
	}

	return x.run(ctx, page, Mutation{
		Action: core.ActionRate,
		Slug:   slug,
		Commit: func(ctx context.Context, scope core.Scope) (bool, error) {
			widget, err := locator.Resolve(ctx, scope, sidebarRating)
			if err != nil {
				return false, err
			}
			if current, ok := widgetRating(ctx, widget.Element); ok && current == rating {
				return false, nil
			}
			return setRating(rating)(ctx, widget.Element)
		},
		Settled: func(ctx context.Context, page core.Page) (bool, error) {
			widget, err := locator.Resolve(ctx, page, sidebarRating)
			if err != nil {
				return false, nil
			}
			current, ok := widgetRating(ctx, widget.Element)
			return ok && current == rating, nil
		},
	})
}

// widgetRating reads the value the rating widget currently shows. Zero means unrated.
func widgetRating(ctx context.Context, el core.Element) (core.RatingValue, bool) {
	for _, attr := range []string{"data-rateit-value", "data-rating"} {
		v, ok, err := el.Attribute(ctx, attr)
		if err != nil || !ok {
			continue
		}
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil || f <= 0 {
			return 0, false
		}
		r := core.RatingValue(f)
		return r, r.Valid()
	}
	return 0, false
}

// setRating clicks the control carrying the explicit value, or the ordinal
// star at round(r*2)-1 when the widget only exposes positions
func setRating(r core.RatingValue) func(ctx context.Context, scope core.Scope) (bool, error) {
	return func(ctx context.Context, scope core.Scope) (bool, error) {
		explicit := ratingValue(r)
		match, err := locator.Resolve(ctx, scope, explicit)
		if errors.Is(err, core.ErrElementNotFound) {
			match, err = locator.Resolve(ctx, scope, ratingStars, locator.WithIndex(r.HalfStars()-1))
		}
		if err != nil {
			return false, err
		}
		if err := match.Element.Click(ctx); err != nil {
			return false, fmt.Errorf("failed to click %s: %w", explicit.Target, err)
		}
		return true, nil
	}
}

// Log opens the diary entry dialog, applies every field set in req and saves.
// Fields whose controls are missing are reported in Skipped.
func (x *Executor) Log(ctx context.Context, page core.Page, film core.FilmReference, req core.LogRequest) (core.ActionResult, error) {
	if req.Rating != nil && !req.Rating.Valid() {
		return core.ActionResult{Action: core.ActionLog, Slug: film.Slug}, fmt.Errorf("%w: %v", core.ErrInvalidRating, float64(*req.Rating))
	}

	return x.run(ctx, page, Mutation{
		Action:  core.ActionLog,
		Slug:    film.Slug,
		Surface: &logControl,
		Dialog:  &logDialog,
		Fields:  logFields(req),
		Commit:  click(logSubmit),
	})
}

func logFields(req core.LogRequest) []Field {
	var fields []Field
	if req.Rating != nil {
		fields = append(fields, Field{Name: "rating", Apply: setRating(*req.Rating)})
	}
	if req.Date != nil {
		date := utils.FormatDate(*req.Date)
		fields = append(fields, Field{Name: "date", Apply: func(ctx context.Context, scope core.Scope) (bool, error) {
			if _, err := toggle(specifyDate, true)(ctx, scope); err != nil && !errors.Is(err, core.ErrElementNotFound) {
				return false, err
			}
			return fill(dateField, date)(ctx, scope)
		}})
	}
	if req.Liked != nil {
		fields = append(fields, Field{Name: "liked", Apply: toggle(dialogLike, *req.Liked)})
	}
	if req.Rewatch != nil {
		fields = append(fields, Field{Name: "rewatch", Apply: toggle(rewatchToggle, *req.Rewatch)})
	}
	if req.Review != nil {
		fields = append(fields, Field{Name: "review", Apply: fill(reviewField, *req.Review)})
	}
	if req.Spoilers != nil {
		fields = append(fields, Field{Name: "spoilers", Apply: toggle(spoilersToggle, *req.Spoilers)})
	}
	return fields
}

func fill(spec locator.Spec, text string) func(ctx context.Context, scope core.Scope) (bool, error) {
	return func(ctx context.Context, scope core.Scope) (bool, error) {
		match, err := locator.Resolve(ctx, scope, spec)
		if err != nil {
			return false, err
		}
		if err := match.Element.Fill(ctx, text); err != nil {
			return false, fmt.Errorf("failed to fill %s: %w", spec.Target, err)
		}
		return true, nil
	}
}

// SetWatchlist adds the film to the watchlist or removes it
func (x *Executor) SetWatchlist(ctx context.Context, page core.Page, slug string, want bool) (core.ActionResult, error) {
	return x.run(ctx, page, Mutation{
		Action:  core.ActionWatchlist,
		Slug:    slug,
		Commit:  toggle(watchlistToggle, want),
		Settled: toggleSettled(watchlistToggle, want),
	})
}

// SetLiked likes or unlikes the film
func (x *Executor) SetLiked(ctx context.Context, page core.Page, slug string, want bool) (core.ActionResult, error) {
	return x.run(ctx, page, Mutation{
		Action:  core.ActionLike,
		Slug:    slug,
		Commit:  toggle(likeToggle, want),
		Settled: toggleSettled(likeToggle, want),
	})
}
