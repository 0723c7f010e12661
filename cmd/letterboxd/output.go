package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/gkmur/letterboxd-cli/internal/core"
	"github.com/gkmur/letterboxd-cli/pkg/utils"
)

func newTable() table.Writer {
	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.SetOutputMirror(os.Stdout)
	return t
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// printSkipped notes items the scraper could not read
func printSkipped(n int) {
	if n > 0 {
		fmt.Fprintf(os.Stderr, "%d unreadable item(s) skipped\n", n)
	}
}

func printAction(verb string, res core.ActionResult, elapsed time.Duration) error {
	if jsonOutput {
		return printJSON(res)
	}

	switch {
	case !res.Changed:
		fmt.Printf("%s: nothing to change\n", res.Slug)
	case res.Incomplete:
		fmt.Printf("%s %s, but the site did not confirm it; check again later\n", verb, res.Slug)
	default:
		fmt.Printf("%s %s in %s\n", verb, res.Slug, utils.FormatDuration(elapsed))
	}
	if len(res.Applied) > 0 {
		fmt.Printf("  applied: %s\n", strings.Join(res.Applied, ", "))
	}
	if len(res.Skipped) > 0 {
		fmt.Printf("  skipped: %s\n", strings.Join(res.Skipped, ", "))
	}
	return nil
}

func formatOptionalRating(r *core.RatingValue) string {
	if r == nil {
		return ""
	}
	return utils.FormatRating(*r)
}

func formatOptionalDate(t *time.Time) string {
	if t == nil {
		return ""
	}
	return utils.FormatDate(*t)
}

func formatCount(n *int) string {
	if n == nil {
		return "-"
	}
	return fmt.Sprintf("%d", *n)
}

func check(b bool) string {
	if b {
		return "✓"
	}
	return ""
}
