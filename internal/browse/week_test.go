package browse

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestWeekAnchorSharedAcrossWeek(t *testing.T) {
	wed := day(2026, time.October, 14)
	for d := day(2026, time.October, 11); !d.After(day(2026, time.October, 17)); d = d.AddDate(0, 0, 1) {
		assert.Equal(t, wed, WeekAnchor(d), "anchor of %s", d.Weekday())
	}
	assert.Equal(t, day(2026, time.October, 21), WeekAnchor(day(2026, time.October, 18)), "next Sunday starts a new week")
}

func TestWeekAnchorDropsTimeOfDay(t *testing.T) {
	loc := time.FixedZone("UTC-7", -7*3600)
	late := time.Date(2026, time.October, 17, 23, 59, 0, 0, loc)
	assert.Equal(t, day(2026, time.October, 14), WeekAnchor(late))
}

func TestWeekWindowAndLabel(t *testing.T) {
	start, end := WeekWindow(day(2026, time.October, 14))
	assert.Equal(t, day(2026, time.October, 14), start)
	assert.Equal(t, day(2026, time.October, 20), end)
	assert.Equal(t, "Oct 14 – Oct 20, 2026", WeekLabel(day(2026, time.October, 14)))
	assert.Equal(t, "Oct 14 – Oct 20, 2026", WeekLabel(day(2026, time.October, 11)), "a Sunday labels the window of its anchor")
	assert.Equal(t, "Dec 30, 2026 – Jan 5, 2027", WeekLabel(day(2026, time.December, 30)))
}

func TestWeekOptions(t *testing.T) {
	opts := WeekOptions(day(2026, time.October, 16))
	require.Len(t, opts, 12)
	assert.Equal(t, "2026-09-16", opts[0].Value)
	assert.Equal(t, "Wed Oct 14, 2026", opts[4].Label)
	assert.Equal(t, "2026-10-14", opts[4].Value)
	assert.Equal(t, day(2026, time.December, 2), opts[11].Anchor)
	for i := 1; i < len(opts); i++ {
		assert.Equal(t, 7*24*time.Hour, opts[i].Anchor.Sub(opts[i-1].Anchor))
	}
}

func TestMonthRange(t *testing.T) {
	first, last := MonthRange(day(2026, time.October, 14))
	assert.Equal(t, day(2026, time.October, 1), first)
	assert.Equal(t, day(2026, time.October, 31), last)

	first, last = MonthRange(day(2028, time.February, 16))
	assert.Equal(t, day(2028, time.February, 1), first)
	assert.Equal(t, day(2028, time.February, 29), last)
}
