package browse

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"comicweek/internal/infra/logx"
	"comicweek/internal/releases"
)

// weekServer answers /api/comics/week like the release service: one release
// per day of the inclusive window from wed to the Tuesday after.
func weekServer(t *testing.T, gotWed *string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*gotWed = r.URL.Query().Get("wed")
		wed, err := time.Parse(releases.DateLayout, *gotWed)
		if err != nil {
			http.Error(w, "bad wed", http.StatusBadRequest)
			return
		}
		type comic struct {
			ID         int    `json:"id"`
			Title      string `json:"title"`
			OnsaleDate string `json:"onsale_date"`
		}
		var out []comic
		for i := 0; i <= 6; i++ {
			out = append(out, comic{ID: i + 1, Title: "Issue", OnsaleDate: wed.AddDate(0, 0, i).Format(releases.DateLayout)})
		}
		_ = json.NewEncoder(w).Encode(out)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestFetchedWeekLiesInsideLabelledWindow(t *testing.T) {
	for _, picked := range []time.Time{
		day(2026, time.October, 11), // Sunday
		day(2026, time.October, 14), // Wednesday
		day(2026, time.October, 17), // Saturday
	} {
		var gotWed string
		svc := releases.New(weekServer(t, &gotWed).URL)

		s, req := New(today, Options{PageSize: 50}).SelectWeek(picked)
		require.NotNil(t, req)
		s = Run(context.Background(), svc, s, req)
		require.Equal(t, PhaseReady, s.Status.Phase, "picked %s: %v", picked.Weekday(), s.Status.Err)

		start, end := WeekWindow(s.Mode.Week)
		assert.Equal(t, start.Format(releases.DateLayout), gotWed, "window starts at the queried Wednesday")
		require.Len(t, s.Items, 7)
		for _, it := range s.Items {
			assert.False(t, it.OnsaleDate.Before(start) || it.OnsaleDate.After(end),
				"picked %s: %s outside %s", picked.Weekday(), it.OnsaleDate, WeekLabel(s.Mode.Week))
		}
	}
}

func TestExecuteReportsTransportRetries(t *testing.T) {
	t.Setenv("COMICWEEK_RETRY_BASE_MS", "0")
	t.Setenv("COMICWEEK_RETRY_MAX", "2")

	// failures left before the server recovers; negative never recovers
	var failures atomic.Int32
	failures.Store(1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if n := failures.Load(); n != 0 {
			if n > 0 {
				failures.Add(-1)
			}
			http.Error(w, "busy", http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`[{"id":1,"title":"Issue #1","onsale_date":"2026-10-14"}]`))
	}))
	t.Cleanup(srv.Close)
	svc := releases.New(srv.URL)

	res := Execute(context.Background(), svc, Request{Token: 1, Mode: Week(today)})
	require.NoError(t, res.Err)
	assert.Len(t, res.Items, 1)
	assert.Equal(t, int64(1), res.Retries.Total)
	assert.Equal(t, int64(1), res.Retries.Status5xx)

	var buf bytes.Buffer
	logx.SetOutput(&buf)
	logx.SetMinLevel(logx.LevelWarn)
	t.Cleanup(func() { logx.SetOutput(io.Discard) })

	failures.Store(-1)
	res = Execute(context.Background(), svc, Request{Token: 2, Mode: Week(today)})
	require.Error(t, res.Err)
	assert.Equal(t, int64(2), res.Retries.Total)
	assert.Contains(t, buf.String(), `"retries":2`)
	assert.Contains(t, buf.String(), `"retries_5xx":2`)
}
