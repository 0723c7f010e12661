package main

import (
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/gkmur/letterboxd-cli/pkg/utils"
)

var watchlistCmd = &cobra.Command{
	Use:   "watchlist",
	Short: "Adds, removes and lists watchlist films.",
}

var watchlistAddCmd = &cobra.Command{
	Use:   "add <film>",
	Short: "Adds a film to the watchlist.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		start := time.Now()
		res, err := current.svc.SetWatchlist(cmd.Context(), filmArg(args[0]), true)
		if err != nil {
			return err
		}
		return printAction("Added", res, time.Since(start))
	},
}

var watchlistRemoveCmd = &cobra.Command{
	Use:   "remove <film>",
	Short: "Removes a film from the watchlist.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		start := time.Now()
		res, err := current.svc.SetWatchlist(cmd.Context(), filmArg(args[0]), false)
		if err != nil {
			return err
		}
		return printAction("Removed", res, time.Since(start))
	},
}

var watchlistListCmd = &cobra.Command{
	Use:   "list [username]",
	Short: "Lists up to 50 watchlist films. Defaults to your own.",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		res, err := current.svc.Watchlist(cmd.Context(), optionalArg(args))
		if err != nil {
			return err
		}
		if jsonOutput {
			return printJSON(res.Items)
		}

		t := newTable()
		t.AppendHeader(table.Row{"#", "Title", "Year", "Slug"})
		for i, item := range res.Items {
			t.AppendRow(table.Row{i + 1, utils.Truncate(item.Film.Title, 40), item.Film.Year, item.Film.Slug})
		}
		t.Render()
		printSkipped(res.Skipped)
		return nil
	},
}

var diaryPeriod struct {
	year  int
	month int
}

var diaryCmd = &cobra.Command{
	Use:   "diary [username]",
	Short: "Lists up to 20 diary entries. Defaults to your own.",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		res, err := current.svc.Diary(cmd.Context(), optionalArg(args), diaryPeriod.year, diaryPeriod.month)
		if err != nil {
			return err
		}
		if jsonOutput {
			return printJSON(res.Items)
		}

		t := newTable()
		t.AppendHeader(table.Row{"Date", "Title", "Year", "Rating", "Liked", "Rewatch", "Review"})
		for _, e := range res.Items {
			t.AppendRow(table.Row{
				formatOptionalDate(e.WatchedOn),
				utils.Truncate(e.Film.Title, 40),
				e.Film.Year,
				formatOptionalRating(e.Rating),
				check(e.Liked),
				check(e.Rewatch),
				check(e.Reviewed),
			})
		}
		t.Render()
		printSkipped(res.Skipped)
		return nil
	},
}

var statsCmd = &cobra.Command{
	Use:   "stats [username]",
	Short: "Shows profile statistics. Defaults to your own.",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		stats, err := current.svc.Stats(cmd.Context(), optionalArg(args))
		if err != nil {
			return err
		}
		if jsonOutput {
			return printJSON(stats)
		}

		t := newTable()
		title := stats.Username
		if stats.DisplayName != "" {
			title = stats.DisplayName + " (" + stats.Username + ")"
		}
		t.SetTitle(title)
		t.AppendRows([]table.Row{
			{"Films", formatCount(stats.FilmsWatched)},
			{"This year", formatCount(stats.ThisYear)},
			{"Lists", formatCount(stats.Lists)},
			{"Following", formatCount(stats.Following)},
			{"Followers", formatCount(stats.Followers)},
		})
		t.Render()
		return nil
	},
}

var historyLimit int

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Lists recent actions taken by this tool.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		entries, err := current.svc.History(cmd.Context(), historyLimit)
		if err != nil {
			return err
		}
		if jsonOutput {
			return printJSON(entries)
		}

		t := newTable()
		t.AppendHeader(table.Row{"When", "Action", "Subject", "Details", "Confirmed"})
		for _, h := range entries {
			t.AppendRow(table.Row{
				h.Timestamp.Local().Format("2006-01-02 15:04"),
				h.ActionType,
				h.Subject,
				utils.Truncate(h.Details, 50),
				check(!h.Incomplete),
			})
		}
		t.Render()
		return nil
	},
}

func optionalArg(args []string) string {
	if len(args) == 0 {
		return ""
	}
	return strings.TrimSpace(args[0])
}

func init() {
	diaryCmd.Flags().IntVar(&diaryPeriod.year, "year", 0, "only entries from this year")
	diaryCmd.Flags().IntVar(&diaryPeriod.month, "month", 0, "only entries from this month (needs --year)")
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "number of entries")

	watchlistCmd.AddCommand(watchlistAddCmd, watchlistRemoveCmd, watchlistListCmd)
	rootCmd.AddCommand(watchlistCmd, diaryCmd, statsCmd, historyCmd)
}
