package core

import (
	"fmt"
	"math"
	"time"
)

// AuthState is the authentication state derived from the live page
type AuthState int

const (
	Unauthenticated AuthState = iota
	LoggingIn
	Authenticated
)

func (s AuthState) String() string {
	switch s {
	case Authenticated:
		return "Authenticated"
	case LoggingIn:
		return "LoggingIn"
	default:
		return "Unauthenticated"
	}
}

// Credential is a username (or email) and secret supplied by the credential store
type Credential struct {
	Username string
	Secret   string
}

// FilmReference identifies a film. Slug is the key for every mutating action;
// the remaining fields are display metadata.
type FilmReference struct {
	Slug     string `json:"slug"`
	Title    string `json:"title"`
	Year     string `json:"year,omitempty"`
	Director string `json:"director,omitempty"`
}

// RatingValue is a half-star rating between 0.5 and 5.0
type RatingValue float64

// NewRatingValue validates v against the half-star scale
func NewRatingValue(v float64) (RatingValue, error) {
	r := RatingValue(v)
	if !r.Valid() {
		return 0, fmt.Errorf("%w: %v", ErrInvalidRating, v)
	}
	return r, nil
}

// Valid reports whether r is one of 0.5, 1.0, ..., 5.0
func (r RatingValue) Valid() bool {
	v := float64(r)
	if v < 0.5 || v > 5.0 {
		return false
	}
	return math.Abs(v*2-math.Round(v*2)) < 1e-9
}

// HalfStars returns the number of half-star units, round(r*2)
func (r RatingValue) HalfStars() int {
	return int(math.Round(float64(r) * 2))
}

// LogRequest holds the optional fields of a diary entry. Nil means "leave alone".
type LogRequest struct {
	Rating   *RatingValue `json:"rating,omitempty"`
	Liked    *bool        `json:"liked,omitempty"`
	Date     *time.Time   `json:"date,omitempty"`
	Review   *string      `json:"review,omitempty"`
	Rewatch  *bool        `json:"rewatch,omitempty"`
	Spoilers *bool        `json:"spoilers,omitempty"`
}

// DiaryEntry is one scraped row of a member's diary
type DiaryEntry struct {
	Film      FilmReference `json:"film"`
	WatchedOn *time.Time    `json:"watched_on,omitempty"`
	Rating    *RatingValue  `json:"rating,omitempty"`
	Liked     bool          `json:"liked"`
	Rewatch   bool          `json:"rewatch"`
	Reviewed  bool          `json:"reviewed"`
}

// WatchlistItem is one scraped film from a member's watchlist
type WatchlistItem struct {
	Film FilmReference `json:"film"`
}

// ProfileStats is the statistics block of a member's profile page
type ProfileStats struct {
	Username     string `json:"username"`
	DisplayName  string `json:"display_name,omitempty"`
	FilmsWatched *int   `json:"films_watched,omitempty"`
	ThisYear     *int   `json:"this_year,omitempty"`
	Lists        *int   `json:"lists,omitempty"`
	Following    *int   `json:"following,omitempty"`
	Followers    *int   `json:"followers,omitempty"`
}

// ActionResult reports the outcome of a mutating action. Incomplete means the
// submit went through but the completion signal was never observed.
type ActionResult struct {
	Action     string   `json:"action"`
	Slug       string   `json:"slug"`
	Applied    []string `json:"applied,omitempty"`
	Skipped    []string `json:"skipped,omitempty"`
	Changed    bool     `json:"changed"`
	Incomplete bool     `json:"incomplete"`
}

// Account is the persisted credential record, keyed by the login identifier
type Account struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Identifier  string    `gorm:"uniqueIndex;not null" json:"identifier"`
	Secret      string    `gorm:"not null" json:"-"`
	ProfileName string    `json:"profile_name"` // scraped from the site, authoritative
	Active      bool      `gorm:"index" json:"active"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// History represents an action log entry
type History struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	ActionType string    `gorm:"index;not null" json:"action_type"` // Rate, Log, Watchlist, Like, Login
	Subject    string    `gorm:"index" json:"subject"`
	Details    string    `gorm:"type:text" json:"details"`
	Incomplete bool      `json:"incomplete"`
	Timestamp  time.Time `gorm:"index;not null" json:"timestamp"`
}

// Action types recorded in History
const (
	ActionRate      = "Rate"
	ActionLog       = "Log"
	ActionWatchlist = "Watchlist"
	ActionLike      = "Like"
	ActionLogin     = "Login"
)

// MutationActions are the action types counted against the daily limit
var MutationActions = []string{ActionRate, ActionLog, ActionWatchlist, ActionLike}
