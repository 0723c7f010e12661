package utils

import (
	"regexp"
	"strings"
)

var (
	apostrophes  = strings.NewReplacer("'", "", "’", "", "‘", "")
	disallowed   = regexp.MustCompile(`[^a-z0-9\s-]`)
	separatorRun = regexp.MustCompile(`[\s-]+`)
)

// Slugify derives the URL slug for a title. Applying it twice changes nothing.
func Slugify(title string) string {
	s := strings.ToLower(title)
	s = apostrophes.Replace(s)
	s = disallowed.ReplaceAllString(s, "")
	s = separatorRun.ReplaceAllString(s, "-")
	return strings.Trim(s, "-")
}
