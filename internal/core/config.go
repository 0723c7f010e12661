package core

import "time"

// BrowserConfig controls the browser session. Headless is fixed once a session exists.
type BrowserConfig struct {
	Headless       bool   `mapstructure:"headless"`
	ProfileDir     string `mapstructure:"profile_dir"` // persistent cookie store
	Bin            string `mapstructure:"bin"`         // optional browser binary
	Trace          bool   `mapstructure:"trace"`
	ViewportWidth  int    `mapstructure:"viewport_width"`
	ViewportHeight int    `mapstructure:"viewport_height"`
}

// StealthConfig holds stealth/humanization parameters
type StealthConfig struct {
	Enabled         bool    `mapstructure:"enabled"`
	TypingSpeedMin  int     `mapstructure:"typing_speed_min"` // WPM minimum
	TypingSpeedMax  int     `mapstructure:"typing_speed_max"` // WPM maximum
	TypoProbability float64 `mapstructure:"typo_probability"`
	MouseSpeedMin   float64 `mapstructure:"mouse_speed_min"`
	MouseSpeedMax   float64 `mapstructure:"mouse_speed_max"`
	OvershootChance float64 `mapstructure:"overshoot_chance"`
	ScrollChunkMin  int     `mapstructure:"scroll_chunk_min"` // pixels
	ScrollChunkMax  int     `mapstructure:"scroll_chunk_max"` // pixels
	BaseDelayMin    float64 `mapstructure:"base_delay_min"`   // seconds
	BaseDelayMax    float64 `mapstructure:"base_delay_max"`   // seconds
}

// TimeoutsConfig bounds every wait. There is no operation-wide deadline.
type TimeoutsConfig struct {
	Navigation time.Duration `mapstructure:"navigation"`
	Ready      time.Duration `mapstructure:"ready"`
	Dialog     time.Duration `mapstructure:"dialog"`
	Completion time.Duration `mapstructure:"completion"`
	Login      time.Duration `mapstructure:"login"`
	Poll       time.Duration `mapstructure:"poll"`
}

// RetryConfig configures the retry combinator for read-only operations
type RetryConfig struct {
	Attempts int           `mapstructure:"attempts"`
	Delay    time.Duration `mapstructure:"delay"`
}

// SiteConfig holds the target site's base location
type SiteConfig struct {
	BaseURL string `mapstructure:"base_url"`
}

// LimitsConfig caps remote mutations per day
type LimitsConfig struct {
	MaxActionsPerDay int `mapstructure:"max_actions_per_day"`
}

// LogConfig configures the zap logger and the optional rotated log file
type LogConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"` // console or json
	File       string `mapstructure:"file"`
	MaxSize    int    `mapstructure:"max_size"` // megabytes
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAge     int    `mapstructure:"max_age"` // days
	Compress   bool   `mapstructure:"compress"`
}

// Config represents the application configuration
type Config struct {
	Credentials struct {
		Username string `mapstructure:"username"`
		Password string `mapstructure:"password"`
	} `mapstructure:"credentials"`

	Browser  BrowserConfig  `mapstructure:"browser"`
	Stealth  StealthConfig  `mapstructure:"stealth"`
	Timeouts TimeoutsConfig `mapstructure:"timeouts"`
	Retry    RetryConfig    `mapstructure:"retry"`
	Site     SiteConfig     `mapstructure:"site"`
	Limits   LimitsConfig   `mapstructure:"limits"`
	Log      LogConfig      `mapstructure:"log"`

	Database struct {
		Path string `mapstructure:"path"`
	} `mapstructure:"database"`
}
