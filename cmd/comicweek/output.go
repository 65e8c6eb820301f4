package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"gopkg.in/yaml.v3"

	"comicweek/internal/browse"
	"comicweek/internal/config"
	"comicweek/internal/releases"
	"comicweek/internal/schedule"
)

func newTable(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
}

func writeRows(tw *tabwriter.Writer, items []releases.Release, now time.Time) {
	for _, it := range items {
		onsale := "tbd"
		if !it.OnsaleDate.IsZero() {
			onsale = it.OnsaleDate.String() + " (" + humanize.RelTime(it.OnsaleDate.Time, releases.NewDate(now).Time, "ago", "from now") + ")"
			if it.OnsaleDate.Equal(releases.NewDate(now).Time) {
				onsale = it.OnsaleDate.String() + " (today)"
			}
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", it.ID, it.DisplayTitle(), onsale, it.DisplayFormat())
	}
}

func printPage(w io.Writer, vs browse.ViewState, now time.Time) error {
	label := vs.Mode.String()
	if vs.Mode.Kind == browse.ModeWeek {
		label = "week of " + browse.WeekLabel(vs.Mode.Week)
	}
	fmt.Fprintln(w, label)
	if vs.Total == 0 {
		fmt.Fprintln(w, "no releases found")
		return nil
	}
	items := vs.Visible()
	tw := newTable(w)
	fmt.Fprintln(tw, "ID\tTITLE\tON SALE\tFORMAT")
	writeRows(tw, items, now)
	if err := tw.Flush(); err != nil {
		return err
	}
	if len(items) == 0 {
		fmt.Fprintln(w, "nothing on this page matches the filter")
	}
	_, err := fmt.Fprintf(w, "page %d of %d (%s releases)\n", vs.Page, vs.PageCount(), humanize.Comma(int64(vs.Total)))
	return err
}

func printWeeks(w io.Writer, results []schedule.WeekResult, now time.Time) error {
	tw := newTable(w)
	for i, wr := range results {
		if i > 0 {
			fmt.Fprintln(tw)
		}
		fmt.Fprintf(tw, "== %s: %d %s\n", browse.WeekLabel(wr.Anchor), len(wr.Items), pluralize(len(wr.Items), "release", "releases"))
		writeRows(tw, wr.Items, now)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "%s releases over %d weeks\n", humanize.Comma(int64(schedule.Total(results))), len(results))
	return err
}

func printRelease(w io.Writer, r releases.Release) error {
	tw := newTable(w)
	row := func(k, v string) {
		if v != "" {
			fmt.Fprintf(tw, "%s\t%s\n", k, v)
		}
	}
	onsale := "tbd"
	if !r.OnsaleDate.IsZero() {
		onsale = r.OnsaleDate.Format("Monday, Jan 2, 2006")
	}
	row("ID", fmt.Sprint(r.ID))
	row("Title", r.DisplayTitle())
	row("On sale", onsale)
	row("Format", r.DisplayFormat())
	row("Author", r.Author)
	row("Cover", r.ThumbnailURL)
	if err := tw.Flush(); err != nil {
		return err
	}
	if desc := releases.PlainText(r.Description); desc != "" {
		_, err := fmt.Fprintf(w, "\n%s\n", strings.TrimSpace(desc))
		return err
	}
	return nil
}

func printConfig(w io.Writer, c config.Config) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(c); err != nil {
		return err
	}
	return enc.Close()
}

func pluralize(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
