package browser

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-rod/rod/lib/proto"
	"go.uber.org/zap"
)

// CookieFile is the snapshot written inside the profile directory
const CookieFile = "cookies.json"

// saveCookies writes the browser's cookies to dir/cookies.json
func saveCookies(ctx context.Context, eng engine, dir string) error {
	cookies, err := eng.cookies(ctx)
	if err != nil {
		return fmt.Errorf("failed to get cookies: %w", err)
	}

	data, err := json.MarshalIndent(cookies, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal cookies: %w", err)
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("failed to create profile directory: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, CookieFile), data, 0o600); err != nil {
		return fmt.Errorf("failed to write cookies file: %w", err)
	}
	return nil
}

// loadCookies restores dir/cookies.json when present. It returns the number
// of cookies restored.
func loadCookies(ctx context.Context, eng engine, dir string, logger *zap.Logger) (int, error) {
	path := filepath.Join(dir, CookieFile)
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		logger.Debug("Cookies file not found, skipping load", zap.String("path", path))
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read cookies file: %w", err)
	}

	var cookies []*proto.NetworkCookie
	if err := json.Unmarshal(data, &cookies); err != nil {
		return 0, fmt.Errorf("failed to unmarshal cookies: %w", err)
	}
	if len(cookies) == 0 {
		return 0, nil
	}
	if err := eng.setCookies(ctx, proto.CookiesToParams(cookies)); err != nil {
		return 0, fmt.Errorf("failed to set cookies: %w", err)
	}
	return len(cookies), nil
}
