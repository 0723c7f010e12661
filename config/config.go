package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/gkmur/letterboxd-cli/internal/core"
)

// EnvPrefix prefixes every environment override, e.g. LETTERBOXD_BROWSER_HEADLESS
const EnvPrefix = "LETTERBOXD"

// Load loads configuration from a YAML file and environment variables. An
// empty configPath searches ./config.yaml, ./config/config.yaml and the user
// config directory; a missing file is not an error.
func Load(configPath string) (*core.Config, error) {
	v := viper.New()
	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		if dir, err := os.UserConfigDir(); err == nil {
			v.AddConfigPath(filepath.Join(dir, "letterboxd"))
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	cfg := &core.Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	cfg.Browser.ProfileDir = expandHome(cfg.Browser.ProfileDir)
	cfg.Database.Path = expandHome(cfg.Database.Path)
	cfg.Log.File = expandHome(cfg.Log.File)

	if err := validateConfig(cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	// Credentials seed the credential store on login; normally empty
	v.SetDefault("credentials.username", "")
	v.SetDefault("credentials.password", "")

	v.SetDefault("browser.headless", true)
	v.SetDefault("browser.profile_dir", "~/.letterboxd-cli/browser")
	v.SetDefault("browser.bin", "")
	v.SetDefault("browser.trace", false)
	v.SetDefault("browser.viewport_width", 1366)
	v.SetDefault("browser.viewport_height", 768)

	v.SetDefault("stealth.enabled", true)
	v.SetDefault("stealth.typing_speed_min", 60)
	v.SetDefault("stealth.typing_speed_max", 110)
	v.SetDefault("stealth.typo_probability", 0.02)
	v.SetDefault("stealth.mouse_speed_min", 0.8)
	v.SetDefault("stealth.mouse_speed_max", 1.6)
	v.SetDefault("stealth.overshoot_chance", 0.2)
	v.SetDefault("stealth.scroll_chunk_min", 80)
	v.SetDefault("stealth.scroll_chunk_max", 240)
	v.SetDefault("stealth.base_delay_min", 0.1)
	v.SetDefault("stealth.base_delay_max", 0.4)

	v.SetDefault("timeouts.navigation", 30*time.Second)
	v.SetDefault("timeouts.ready", 15*time.Second)
	v.SetDefault("timeouts.dialog", 10*time.Second)
	v.SetDefault("timeouts.completion", 10*time.Second)
	v.SetDefault("timeouts.login", 15*time.Second)
	v.SetDefault("timeouts.poll", 100*time.Millisecond)

	v.SetDefault("retry.attempts", 3)
	v.SetDefault("retry.delay", time.Second)

	v.SetDefault("site.base_url", "https://letterboxd.com")

	v.SetDefault("limits.max_actions_per_day", 100)

	v.SetDefault("database.path", "~/.letterboxd-cli/letterboxd.db")

	v.SetDefault("log.level", "warn")
	v.SetDefault("log.format", "console")
	v.SetDefault("log.file", "")
	v.SetDefault("log.max_size", 10)
	v.SetDefault("log.max_backups", 3)
	v.SetDefault("log.max_age", 28)
	v.SetDefault("log.compress", true)
}

// validateConfig validates that required configuration fields are set
func validateConfig(cfg *core.Config) error {
	if cfg.Site.BaseURL == "" {
		return fmt.Errorf("site.base_url is required")
	}
	if !strings.HasPrefix(cfg.Site.BaseURL, "http://") && !strings.HasPrefix(cfg.Site.BaseURL, "https://") {
		return fmt.Errorf("site.base_url must be an http(s) URL, got %q", cfg.Site.BaseURL)
	}
	cfg.Site.BaseURL = strings.TrimRight(cfg.Site.BaseURL, "/")

	if cfg.Browser.ProfileDir == "" {
		return fmt.Errorf("browser.profile_dir is required")
	}
	if cfg.Database.Path == "" {
		return fmt.Errorf("database.path is required")
	}
	if cfg.Retry.Attempts < 1 {
		return fmt.Errorf("retry.attempts must be at least 1, got %d", cfg.Retry.Attempts)
	}
	if cfg.Retry.Delay < 0 {
		return fmt.Errorf("retry.delay must not be negative")
	}

	t := cfg.Timeouts
	for name, d := range map[string]time.Duration{
		"navigation": t.Navigation,
		"ready":      t.Ready,
		"dialog":     t.Dialog,
		"completion": t.Completion,
		"login":      t.Login,
		"poll":       t.Poll,
	} {
		if d <= 0 {
			return fmt.Errorf("timeouts.%s must be positive", name)
		}
	}

	if cfg.Stealth.TypingSpeedMax < cfg.Stealth.TypingSpeedMin {
		return fmt.Errorf("stealth.typing_speed_max must be >= stealth.typing_speed_min")
	}

	switch cfg.Log.Format {
	case "console", "json":
	default:
		return fmt.Errorf("log.format must be console or json, got %q", cfg.Log.Format)
	}
	return nil
}

func expandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}
