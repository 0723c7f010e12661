package scraper

import (
	"context"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/gkmur/letterboxd-cli/internal/core"
	"github.com/gkmur/letterboxd-cli/internal/locator"
	"github.com/gkmur/letterboxd-cli/internal/site"
)

var (
	yearPattern = regexp.MustCompile(`\b(1[89]|20)\d{2}\b`)
	dayInDiary  = regexp.MustCompile(`/for/(\d{4})/(\d{2})/(\d{2})/?`)
)

// statusOff marks diary cells whose flag is unset
const statusOff = "icon-status-off"

// keep drops errors of optional fields, passing through only terminal ones
func keep(err error) error {
	if core.IsTerminal(err) {
		return err
	}
	return nil
}

// textOf returns the trimmed text of spec's first match in scope, or "" when
// nothing matches
func textOf(ctx context.Context, scope core.Scope, spec locator.Spec) (string, error) {
	m, err := locator.Resolve(ctx, scope, spec)
	if err != nil {
		return "", keep(err)
	}
	text, err := m.Element.Text(ctx)
	if err != nil {
		return "", keep(err)
	}
	return strings.TrimSpace(text), nil
}

// attrOf returns an attribute of spec's first match in scope, or ""
func attrOf(ctx context.Context, scope core.Scope, spec locator.Spec, name string) (string, error) {
	m, err := locator.Resolve(ctx, scope, spec)
	if err != nil {
		return "", keep(err)
	}
	return attr(ctx, m.Element, name)
}

func attr(ctx context.Context, el core.Element, name string) (string, error) {
	v, _, err := el.Attribute(ctx, name)
	if err != nil {
		return "", keep(err)
	}
	return strings.TrimSpace(v), nil
}

func exists(ctx context.Context, scope core.Scope, spec locator.Spec) (bool, error) {
	ok, err := locator.Exists(ctx, scope, spec)
	if err != nil {
		return false, keep(err)
	}
	return ok, nil
}

// filmSlug reads the mandatory identifier of an item: a slug marker on the
// item or a descendant, then a film link. It returns "" when neither exists.
func filmSlug(ctx context.Context, item core.Element) (string, error) {
	if v, err := attr(ctx, item, "data-film-slug"); err != nil || v != "" {
		return v, err
	}

	m, err := locator.Resolve(ctx, item, filmMarker)
	if err == nil {
		if v, err := attr(ctx, m.Element, "data-film-slug"); err != nil || v != "" {
			return v, err
		}
		if v, err := attr(ctx, m.Element, "data-target-link"); err != nil || site.SlugFromHref(v) != "" {
			return site.SlugFromHref(v), err
		}
	} else if err := keep(err); err != nil {
		return "", err
	}

	href, err := attrOf(ctx, item, filmLink, "href")
	if err != nil {
		return "", err
	}
	return site.SlugFromHref(href), nil
}

// filmTitle reads the display title from spec, falling back to the poster's alt text
func filmTitle(ctx context.Context, item core.Element, spec locator.Spec) (string, error) {
	title, err := textOf(ctx, item, spec)
	if err != nil || title != "" {
		return title, err
	}
	if v, err := attr(ctx, item, "data-film-name"); err != nil || v != "" {
		return v, err
	}
	return attrOf(ctx, item, posterImage, "alt")
}

func yearIn(s string) string {
	return yearPattern.FindString(s)
}

// parseCount reads counts like "1,234" and abbreviations like "2.1K"
func parseCount(s string) (int, bool) {
	s = strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(s), ",", ""))
	mult := 1.0
	switch {
	case strings.HasSuffix(s, "K"):
		mult, s = 1e3, strings.TrimSuffix(s, "K")
	case strings.HasSuffix(s, "M"):
		mult, s = 1e6, strings.TrimSuffix(s, "M")
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || v < 0 {
		return 0, false
	}
	return int(math.Round(v * mult)), true
}

func hasClass(class, name string) bool {
	for _, c := range strings.Fields(class) {
		if c == name {
			return true
		}
	}
	return false
}
