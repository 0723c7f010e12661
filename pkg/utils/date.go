package utils

import (
	"regexp"
	"strings"
	"time"
)

const isoDate = "2006-01-02"

var dateLayouts = []string{
	isoDate,
	"January 2, 2006",
	"January 2 2006",
	"Jan 2, 2006",
	"Jan 2 2006",
	"2 January 2006",
	"2 Jan 2006",
	"Monday, January 2, 2006",
	"Mon, Jan 2, 2006",
	"2006/01/02",
}

var ordinalSuffix = regexp.MustCompile(`(\d)(st|nd|rd|th)\b`)

// ParseDatePhrase understands ISO dates, "today"/"yesterday" (relative to now,
// any case) and common long-form dates. The result is midnight in now's location.
func ParseDatePhrase(s string, now time.Time) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}

	switch strings.ToLower(s) {
	case "today":
		return midnight(now), true
	case "yesterday":
		return midnight(now).AddDate(0, 0, -1), true
	}

	s = strings.Join(strings.Fields(ordinalSuffix.ReplaceAllString(s, "$1")), " ")
	for _, layout := range dateLayouts {
		if t, err := time.ParseInLocation(layout, s, now.Location()); err == nil {
			return midnight(t), true
		}
	}
	return time.Time{}, false
}

// FormatDate renders t as YYYY-MM-DD
func FormatDate(t time.Time) string {
	return t.Format(isoDate)
}

func midnight(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
