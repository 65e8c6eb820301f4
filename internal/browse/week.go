package browse

import (
	"fmt"
	"time"

	"comicweek/internal/releases"
)

// A date belongs to the Wednesday of its Sunday-to-Saturday calendar week,
// the day new issues hit the shelves. The release service answers a
// Wednesday with the on-sale window running from that Wednesday to the
// following Tuesday, so labels show that window.

// WeekAnchor returns the Wednesday of the Sunday-to-Saturday week containing d.
func WeekAnchor(d time.Time) time.Time {
	day := releases.NewDate(d).Time
	return day.AddDate(0, 0, int(time.Wednesday)-int(day.Weekday()))
}

// WeekWindow returns the inclusive on-sale window fetched for the week of
// anchor: its Wednesday through the following Tuesday.
func WeekWindow(anchor time.Time) (start, end time.Time) {
	a := WeekAnchor(anchor)
	return a, a.AddDate(0, 0, 6)
}

// WeekLabel renders the window of a week, e.g. "Oct 14 – Oct 20, 2026".
func WeekLabel(anchor time.Time) string {
	start, end := WeekWindow(anchor)
	if start.Year() != end.Year() {
		return fmt.Sprintf("%s – %s", start.Format("Jan 2, 2006"), end.Format("Jan 2, 2006"))
	}
	return fmt.Sprintf("%s – %s", start.Format("Jan 2"), end.Format("Jan 2, 2006"))
}

// WeekOption is one entry of the week selector.
type WeekOption struct {
	Anchor time.Time
	Label  string // "Wed Oct 14, 2026"
	Value  string // "2026-10-14"
}

const (
	weeksBefore = 4
	weeksAfter  = 7
)

// WeekOptions lists the anchors from four weeks before to seven weeks after
// the week of selected.
func WeekOptions(selected time.Time) []WeekOption {
	base := WeekAnchor(selected)
	opts := make([]WeekOption, 0, weeksBefore+weeksAfter+1)
	for i := -weeksBefore; i <= weeksAfter; i++ {
		a := base.AddDate(0, 0, 7*i)
		opts = append(opts, WeekOption{
			Anchor: a,
			Label:  a.Format("Mon Jan 2, 2006"),
			Value:  a.Format(releases.DateLayout),
		})
	}
	return opts
}

// MonthRange returns the first and last day of the month containing anchor.
func MonthRange(anchor time.Time) (first, last time.Time) {
	a := releases.NewDate(anchor).Time
	first = time.Date(a.Year(), a.Month(), 1, 0, 0, 0, 0, time.UTC)
	return first, first.AddDate(0, 1, -1)
}
