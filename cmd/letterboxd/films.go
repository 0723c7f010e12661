package main

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/gkmur/letterboxd-cli/internal/core"
	"github.com/gkmur/letterboxd-cli/internal/workflows"
	"github.com/gkmur/letterboxd-cli/pkg/utils"
)

// bySlug makes film arguments slugs instead of titles
var bySlug bool

func filmArg(arg string) workflows.Film {
	if bySlug {
		return workflows.Film{Slug: strings.Trim(arg, "/ ")}
	}
	return workflows.Film{Title: arg}
}

// parseRating accepts 4.5 as well as star notation like ★★★★½
func parseRating(s string) (core.RatingValue, error) {
	if v, err := strconv.ParseFloat(strings.TrimSpace(s), 64); err == nil {
		return core.NewRatingValue(v)
	}
	if r, ok := utils.ParseRatingText(s); ok {
		return r, nil
	}
	return 0, fmt.Errorf("%w: %q", core.ErrInvalidRating, s)
}

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Searches films by title.",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		res, err := current.svc.Search(cmd.Context(), strings.Join(args, " "))
		if err != nil {
			return err
		}
		if jsonOutput {
			return printJSON(res.Items)
		}

		t := newTable()
		t.AppendHeader(table.Row{"#", "Title", "Year", "Director", "Slug"})
		for i, film := range res.Items {
			t.AppendRow(table.Row{i + 1, utils.Truncate(film.Title, 40), film.Year, film.Director, film.Slug})
		}
		t.Render()
		printSkipped(res.Skipped)
		return nil
	},
}

var rateCmd = &cobra.Command{
	Use:   "rate <film> <rating>",
	Short: "Rates a film from 0.5 to 5 stars in half steps.",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		rating, err := parseRating(args[1])
		if err != nil {
			return err
		}
		start := time.Now()
		res, err := current.svc.Rate(cmd.Context(), filmArg(args[0]), rating)
		if err != nil {
			return err
		}
		return printAction("Rated", res, time.Since(start))
	},
}

var logFlags struct {
	rating   string
	date     string
	review   string
	liked    bool
	rewatch  bool
	spoilers bool
}

var logCmd = &cobra.Command{
	Use:   "log <film>",
	Short: "Adds a diary entry. Only the flags given are applied.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		req, err := logRequest(cmd)
		if err != nil {
			return err
		}
		start := time.Now()
		res, err := current.svc.Log(cmd.Context(), filmArg(args[0]), req)
		if err != nil {
			return err
		}
		return printAction("Logged", res, time.Since(start))
	},
}

func logRequest(cmd *cobra.Command) (core.LogRequest, error) {
	var req core.LogRequest
	flags := cmd.Flags()

	if flags.Changed("rating") {
		r, err := parseRating(logFlags.rating)
		if err != nil {
			return req, err
		}
		req.Rating = &r
	}
	if flags.Changed("date") {
		d, ok := utils.ParseDatePhrase(logFlags.date, time.Now())
		if !ok {
			return req, fmt.Errorf("unrecognized date %q", logFlags.date)
		}
		req.Date = &d
	}
	if flags.Changed("review") {
		req.Review = &logFlags.review
	}
	if flags.Changed("liked") {
		req.Liked = &logFlags.liked
	}
	if flags.Changed("rewatch") {
		req.Rewatch = &logFlags.rewatch
	}
	if flags.Changed("spoilers") {
		req.Spoilers = &logFlags.spoilers
	}
	return req, nil
}

var unlike bool

var likeCmd = &cobra.Command{
	Use:   "like <film>",
	Short: "Likes a film, or unlikes it with --undo.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		start := time.Now()
		res, err := current.svc.SetLiked(cmd.Context(), filmArg(args[0]), !unlike)
		if err != nil {
			return err
		}
		verb := "Liked"
		if unlike {
			verb = "Unliked"
		}
		return printAction(verb, res, time.Since(start))
	},
}

func init() {
	for _, c := range []*cobra.Command{rateCmd, logCmd, likeCmd, watchlistAddCmd, watchlistRemoveCmd} {
		c.Flags().BoolVar(&bySlug, "slug", false, "treat the film argument as a slug")
	}

	logCmd.Flags().StringVarP(&logFlags.rating, "rating", "r", "", "rating, e.g. 4.5 or ★★★★½")
	logCmd.Flags().StringVarP(&logFlags.date, "date", "d", "", "watched date: YYYY-MM-DD, today, yesterday or 'March 9, 2024'")
	logCmd.Flags().StringVar(&logFlags.review, "review", "", "review text")
	logCmd.Flags().BoolVar(&logFlags.liked, "liked", false, "like the film")
	logCmd.Flags().BoolVar(&logFlags.rewatch, "rewatch", false, "mark as a rewatch")
	logCmd.Flags().BoolVar(&logFlags.spoilers, "spoilers", false, "the review contains spoilers")

	likeCmd.Flags().BoolVar(&unlike, "undo", false, "remove the like")

	rootCmd.AddCommand(searchCmd, rateCmd, logCmd, likeCmd)
}
