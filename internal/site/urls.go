// Package site knows the target site's location templates
package site

import (
	"fmt"
	"net/url"
	"strings"
)

// Locations builds absolute URLs from the configured base
type Locations struct {
	base string
}

// New returns Locations rooted at baseURL
func New(baseURL string) Locations {
	return Locations{base: strings.TrimRight(baseURL, "/")}
}

func (l Locations) Home() string { return l.base + "/" }

func (l Locations) SignIn() string { return l.base + "/sign-in/" }

func (l Locations) Search(query string) string {
	return fmt.Sprintf("%s/search/films/%s/", l.base, url.PathEscape(strings.TrimSpace(query)))
}

func (l Locations) Film(slug string) string {
	return fmt.Sprintf("%s/film/%s/", l.base, slug)
}

// Diary is the member's diary, narrowed to a year and month when they are
// non-zero. A month without a year is ignored.
func (l Locations) Diary(user string, year, month int) string {
	u := fmt.Sprintf("%s/%s/films/diary/", l.base, user)
	if year > 0 {
		u += fmt.Sprintf("for/%d/", year)
		if month >= 1 && month <= 12 {
			u += fmt.Sprintf("%02d/", month)
		}
	}
	return u
}

func (l Locations) Watchlist(user string) string {
	return fmt.Sprintf("%s/%s/watchlist/", l.base, user)
}

func (l Locations) Profile(user string) string {
	return fmt.Sprintf("%s/%s/", l.base, user)
}

// IsSignIn reports whether rawURL is the sign-in location
func (l Locations) IsSignIn(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	return strings.TrimRight(u.Path, "/") == "/sign-in"
}

// SlugFromHref extracts the film slug from links like /film/<slug>/ or
// /<member>/film/<slug>/. It returns "" when href is not a film link.
func SlugFromHref(href string) string {
	u, err := url.Parse(href)
	if err != nil {
		return ""
	}
	parts := strings.Split(strings.Trim(u.Path, "/"), "/")
	for i := 0; i+1 < len(parts); i++ {
		if parts[i] == "film" && parts[i+1] != "" {
			return parts[i+1]
		}
	}
	return ""
}

// MemberFromHref extracts the member name from a profile link such as /<member>/
func MemberFromHref(href string) string {
	u, err := url.Parse(href)
	if err != nil {
		return ""
	}
	parts := strings.Split(strings.Trim(u.Path, "/"), "/")
	if len(parts) != 1 || parts[0] == "" {
		return ""
	}
	switch parts[0] {
	case "films", "lists", "members", "journal", "search", "sign-in", "settings", "activity":
		return ""
	}
	return parts[0]
}

// Resolve turns href into an absolute URL relative to current
func Resolve(current, href string) (string, error) {
	base, err := url.Parse(current)
	if err != nil {
		return "", err
	}
	ref, err := url.Parse(href)
	if err != nil {
		return "", err
	}
	return base.ResolveReference(ref).String(), nil
}
