package utils

import (
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/gkmur/letterboxd-cli/internal/core"
)

const (
	fullStar = "★"
	halfStar = "½"
)

var (
	ratedClass    = regexp.MustCompile(`\brated-(\d{1,2})\b`)
	leadingNumber = regexp.MustCompile(`^-?\d+(?:[.,]\d+)?`)
)

// ParseRatingText reads a rating from star notation ("★★★½"), a rated-N class
// (half-star units) or a number ("3.5", "3,5/5"). Values below 0.5 clamp to 0.5,
// values above 5 clamp to 5, everything else rounds to the nearest half star.
func ParseRatingText(s string) (core.RatingValue, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}

	if strings.ContainsAny(s, fullStar+halfStar) {
		return parseStars(s)
	}

	if m := ratedClass.FindStringSubmatch(s); m != nil {
		units, err := strconv.Atoi(m[1])
		if err != nil {
			return 0, false
		}
		return clampRating(float64(units) / 2), true
	}

	num := leadingNumber.FindString(s)
	if num == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(strings.Replace(num, ",", ".", 1), 64)
	if err != nil {
		return 0, false
	}
	return clampRating(v), true
}

func parseStars(s string) (core.RatingValue, bool) {
	var v float64
	for _, r := range s {
		switch string(r) {
		case fullStar:
			v++
		case halfStar:
			v += 0.5
		case " ":
		default:
			return 0, false
		}
	}
	return clampRating(v), true
}

func clampRating(v float64) core.RatingValue {
	switch {
	case v < 0.5:
		return 0.5
	case v > 5:
		return 5
	}
	return core.RatingValue(math.Round(v*2) / 2)
}

// FormatRating renders r in star notation, the inverse of ParseRatingText for
// canonical strings
func FormatRating(r core.RatingValue) string {
	units := r.HalfStars()
	out := strings.Repeat(fullStar, units/2)
	if units%2 == 1 {
		out += halfStar
	}
	return out
}
