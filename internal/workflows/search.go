package workflows

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/gkmur/letterboxd-cli/internal/core"
	"github.com/gkmur/letterboxd-cli/internal/retry"
	"github.com/gkmur/letterboxd-cli/internal/scraper"
)

// Search lists films matching query. Search pages are public, so no login
// happens.
func (s *Service) Search(ctx context.Context, query string) (scraper.Result[core.FilmReference], error) {
	c := &call{op: "search", subject: query}
	var res scraper.Result[core.FilmReference]
	if strings.TrimSpace(query) == "" {
		return res, c.fail(fmt.Errorf("search query is empty"))
	}

	err := s.withPage(ctx, c, func(ctx context.Context, page core.Page) error {
		var err error
		res, err = retry.Value(ctx, s.retry, func(ctx context.Context) (scraper.Result[core.FilmReference], error) {
			return s.scraper.Search(ctx, page, query)
		})
		return err
	})
	if err == nil {
		s.logger.Info("Search completed", zap.String("query", query), zap.Int("results", len(res.Items)))
	}
	return res, err
}

// Diary lists a member's diary. An empty user means the signed-in member.
func (s *Service) Diary(ctx context.Context, user string, year, month int) (scraper.Result[core.DiaryEntry], error) {
	c := &call{op: "diary", subject: user}
	var res scraper.Result[core.DiaryEntry]
	if month < 0 || month > 12 || (month > 0 && year == 0) {
		return res, c.fail(fmt.Errorf("invalid diary period %d/%d", year, month))
	}

	err := s.withPage(ctx, c, func(ctx context.Context, page core.Page) error {
		name, err := s.username(ctx, page, c, user)
		if err != nil {
			return err
		}
		res, err = retry.Value(ctx, s.retry, func(ctx context.Context) (scraper.Result[core.DiaryEntry], error) {
			return s.scraper.Diary(ctx, page, name, year, month)
		})
		return err
	})
	return res, err
}

// Watchlist lists a member's watchlist. An empty user means the signed-in member.
func (s *Service) Watchlist(ctx context.Context, user string) (scraper.Result[core.WatchlistItem], error) {
	c := &call{op: "watchlist", subject: user}
	var res scraper.Result[core.WatchlistItem]

	err := s.withPage(ctx, c, func(ctx context.Context, page core.Page) error {
		name, err := s.username(ctx, page, c, user)
		if err != nil {
			return err
		}
		res, err = retry.Value(ctx, s.retry, func(ctx context.Context) (scraper.Result[core.WatchlistItem], error) {
			return s.scraper.Watchlist(ctx, page, name)
		})
		return err
	})
	return res, err
}

// Stats reads a member's profile statistics. An empty user means the
// signed-in member.
func (s *Service) Stats(ctx context.Context, user string) (core.ProfileStats, error) {
	c := &call{op: "stats", subject: user}
	var stats core.ProfileStats

	err := s.withPage(ctx, c, func(ctx context.Context, page core.Page) error {
		name, err := s.username(ctx, page, c, user)
		if err != nil {
			return err
		}
		stats, err = retry.Value(ctx, s.retry, func(ctx context.Context) (core.ProfileStats, error) {
			return s.scraper.Stats(ctx, page, name)
		})
		return err
	})
	return stats, err
}

// username picks the member a profile listing is about: the explicit name,
// then the stored profile name, then the name scraped after authenticating.
// The login identifier's local part is the last resort.
func (s *Service) username(ctx context.Context, page core.Page, c *call, explicit string) (string, error) {
	if explicit != "" {
		return explicit, nil
	}

	if name, err := s.repo.GetProfileName(ctx); err != nil {
		s.logger.Warn("Failed to read stored profile name", zap.Error(err))
	} else if name != "" {
		c.subject = name
		return name, nil
	}

	if err := c.machine.EnsureAuthenticated(ctx, page); err != nil {
		return "", err
	}
	if name := c.machine.Username(); name != "" {
		c.subject = name
		return name, nil
	}

	cred, err := s.credentials().GetCredentials(ctx)
	if err == nil {
		if name := localPart(cred.Username); name != "" {
			s.logger.Warn("Profile name not found, deriving it from the login identifier",
				zap.String("username", name),
			)
			c.subject = name
			return name, nil
		}
	}
	return "", fmt.Errorf("profile name unknown, pass a username")
}

func localPart(identifier string) string {
	name, _, _ := strings.Cut(strings.TrimSpace(identifier), "@")
	return strings.ToLower(name)
}
