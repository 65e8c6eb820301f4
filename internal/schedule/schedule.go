// Package schedule builds multi-week release digests.
package schedule

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"comicweek/internal/browse"
	"comicweek/internal/releases"
)

// DefaultLimit bounds concurrent week fetches.
const DefaultLimit = 4

// WeekResult is the release list of one week.
type WeekResult struct {
	Anchor time.Time
	Items  []releases.Release
}

// FetchWeeks loads `weeks` consecutive weeks starting with the week of from.
// At most limit fetches run at once. Results are ordered by anchor; the
// first failure cancels the remaining fetches and is returned.
func FetchWeeks(ctx context.Context, svc releases.Service, from time.Time, weeks, limit int) ([]WeekResult, error) {
	if weeks < 1 {
		return nil, fmt.Errorf("schedule: weeks must be positive, got %d", weeks)
	}
	if limit < 1 {
		limit = DefaultLimit
	}
	first := browse.WeekAnchor(from)
	out := make([]WeekResult, weeks)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for i := range out {
		anchor := first.AddDate(0, 0, 7*i)
		g.Go(func() error {
			rs, err := svc.FetchByWeek(gctx, anchor)
			if err != nil {
				return fmt.Errorf("week %s: %w", anchor.Format(releases.DateLayout), err)
			}
			out[i] = WeekResult{Anchor: anchor, Items: rs.Items}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// Total counts the releases across results.
func Total(results []WeekResult) int {
	n := 0
	for _, r := range results {
		n += len(r.Items)
	}
	return n
}
