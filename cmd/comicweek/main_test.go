package main

import (
	"bytes"
	"context"
	"io"
	"log"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"comicweek/internal/browse"
	"comicweek/internal/config"
	"comicweek/internal/infra/logx"
	"comicweek/internal/releases"
)

var fixedNow = time.Date(2026, time.October, 17, 9, 0, 0, 0, time.UTC)

type fakeService struct {
	mu        sync.Mutex
	items     []releases.Release
	detailErr error
	weeks     []time.Time
	terms     []string
	syncs     [][2]time.Time
}

func (f *fakeService) FetchByWeek(_ context.Context, week time.Time) (releases.ResultSet, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.weeks = append(f.weeks, week)
	return releases.ResultSet{Items: f.items, Total: len(f.items)}, nil
}

func (f *fakeService) FetchBySearch(_ context.Context, term string) (releases.ResultSet, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.terms = append(f.terms, term)
	return releases.ResultSet{Items: f.items, Total: len(f.items)}, nil
}

func (f *fakeService) FetchDetail(_ context.Context, id int) (releases.Release, error) {
	if f.detailErr != nil {
		return releases.Release{}, f.detailErr
	}
	for _, it := range f.items {
		if it.ID == id {
			return it, nil
		}
	}
	return releases.Release{}, releases.ErrNotFound
}

func (f *fakeService) TriggerSync(_ context.Context, start, end time.Time) (releases.SyncSummary, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.syncs = append(f.syncs, [2]time.Time{start, end})
	return releases.SyncSummary{Inserted: 2, Updated: 5}, nil
}

func (f *fakeService) Health(context.Context) error { return nil }

func sampleItems() []releases.Release {
	day := releases.NewDate(time.Date(2026, time.October, 14, 0, 0, 0, 0, time.UTC))
	return []releases.Release{
		{ID: 1, Title: "Saga #70", Format: "Comic", OnsaleDate: day},
		{ID: 2, Title: "Saga Vol. 12", Format: "Trade Paperback", OnsaleDate: day, Description: "<p>The <b>war</b> goes on.</p>"},
	}
}

// run executes the CLI against svc with an isolated config path.
func run(t *testing.T, svc releases.Service, args ...string) (string, error) {
	t.Helper()
	a := newApp()
	a.now = func() time.Time { return fixedNow }
	a.newService = func(config.Config) releases.Service { return svc }

	var out bytes.Buffer
	cmd := newRootCmd(a)
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append([]string{"--config", filepath.Join(t.TempDir(), "missing.rc")}, args...))
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestWeekCommandPrintsTable(t *testing.T) {
	svc := &fakeService{items: sampleItems()}
	out, err := run(t, svc, "week", "2026-10-12")
	require.NoError(t, err)

	require.Len(t, svc.weeks, 1)
	assert.Equal(t, "2026-10-14", svc.weeks[0].Format(releases.DateLayout), "week is anchored on its Wednesday")
	assert.Contains(t, out, "week of Oct 14 – Oct 20, 2026")
	assert.Contains(t, out, "ID")
	assert.Contains(t, out, "Saga #70")
	assert.Contains(t, out, "Trade Paperback")
	assert.Contains(t, out, "page 1 of 1 (2 releases)")
}

func TestWeekCommandDefaultsToToday(t *testing.T) {
	svc := &fakeService{}
	out, err := run(t, svc, "week")
	require.NoError(t, err)
	require.Len(t, svc.weeks, 1)
	assert.Equal(t, "2026-10-14", svc.weeks[0].Format(releases.DateLayout))
	assert.Contains(t, out, "no releases found")
}

func TestWeekCommandSinglesFilter(t *testing.T) {
	out, err := run(t, &fakeService{items: sampleItems()}, "week", "2026-10-14", "--singles")
	require.NoError(t, err)
	assert.Contains(t, out, "Saga #70")
	assert.NotContains(t, out, "Saga Vol. 12")
	assert.Contains(t, out, "(2 releases)", "the filter does not change the total")
}

func TestWeekCommandRejectsBadDate(t *testing.T) {
	svc := &fakeService{}
	_, err := run(t, svc, "week", "next tuesday")
	require.Error(t, err)
	assert.Empty(t, svc.weeks)
}

func TestSearchCommand(t *testing.T) {
	svc := &fakeService{items: sampleItems()}
	out, err := run(t, svc, "search", "saga", "vol")
	require.NoError(t, err)
	assert.Equal(t, []string{"saga vol"}, svc.terms)
	assert.Contains(t, out, `search "saga vol"`)
	assert.Contains(t, out, "Saga Vol. 12")
}

func TestSearchCommandTooShort(t *testing.T) {
	svc := &fakeService{}
	_, err := run(t, svc, "search", "x")
	require.ErrorIs(t, err, browse.ErrQueryTooShort)
	assert.Empty(t, svc.terms)
}

func TestShowCommand(t *testing.T) {
	out, err := run(t, &fakeService{items: sampleItems()}, "show", "2")
	require.NoError(t, err)
	assert.Contains(t, out, "Saga Vol. 12")
	assert.Contains(t, out, "Wednesday, Oct 14, 2026")
	assert.Contains(t, out, "The war goes on.")
	assert.NotContains(t, out, "<b>")
}

func TestShowCommandNotFound(t *testing.T) {
	_, err := run(t, &fakeService{items: sampleItems()}, "show", "99")
	require.EqualError(t, err, "release 99 not found")

	_, err = run(t, &fakeService{}, "show", "abc")
	require.EqualError(t, err, `invalid id "abc"`)
}

func TestSyncCommandMonth(t *testing.T) {
	svc := &fakeService{items: sampleItems()}
	out, err := run(t, svc, "sync", "--month", "2026-09")
	require.NoError(t, err)

	require.Len(t, svc.syncs, 1)
	got := []string{svc.syncs[0][0].Format(releases.DateLayout), svc.syncs[0][1].Format(releases.DateLayout)}
	if diff := cmp.Diff([]string{"2026-09-01", "2026-09-30"}, got); diff != "" {
		t.Fatalf("sync range mismatch (-want +got):\n%s", diff)
	}
	assert.Contains(t, out, "synced 2026-09-01..2026-09-30: 2 inserted, 5 updated")
	assert.Len(t, svc.weeks, 1, "a completed sync refreshes the current week")
}

func TestSyncCommandDefaultsToCurrentMonth(t *testing.T) {
	svc := &fakeService{}
	_, err := run(t, svc, "sync")
	require.NoError(t, err)
	require.Len(t, svc.syncs, 1)
	assert.Equal(t, "2026-10-01", svc.syncs[0][0].Format(releases.DateLayout))
	assert.Equal(t, "2026-10-31", svc.syncs[0][1].Format(releases.DateLayout))
}

func TestSyncCommandInvalidRange(t *testing.T) {
	svc := &fakeService{}
	_, err := run(t, svc, "sync", "--start", "2026-10-20", "--end", "2026-10-01")
	require.ErrorIs(t, err, browse.ErrInvalidRange)
	assert.Empty(t, svc.syncs)
}

func TestWeeksCommand(t *testing.T) {
	svc := &fakeService{items: sampleItems()}
	out, err := run(t, svc, "weeks", "--count", "3", "--from", "2026-10-14", "--concurrency", "2")
	require.NoError(t, err)
	assert.Len(t, svc.weeks, 3)
	assert.Contains(t, out, "== Oct 14 – Oct 20, 2026: 2 releases")
	assert.Contains(t, out, "== Oct 28 – Nov 3, 2026: 2 releases")
	assert.Contains(t, out, "6 releases over 3 weeks")
}

func TestHealthCommand(t *testing.T) {
	out, err := run(t, &fakeService{}, "health")
	require.NoError(t, err)
	assert.Contains(t, out, "http://localhost:8000 ok")
}

func TestConfigInitAndShow(t *testing.T) {
	path := filepath.Join(t.TempDir(), "comicweek.yaml")
	out, err := run(t, &fakeService{}, "--api", "http://comics.test:9000/", "config", "init", path)
	require.NoError(t, err)
	assert.Contains(t, out, "wrote "+path)

	cfg, err := config.Load(path)
	require.NoError(t, err)
	want := config.Defaults()
	want.APIURL = "http://comics.test:9000"
	if diff := cmp.Diff(want, cfg); diff != "" {
		t.Fatalf("saved config mismatch (-want +got):\n%s", diff)
	}

	out, err = run(t, &fakeService{}, "config", "show")
	require.NoError(t, err)
	assert.Contains(t, out, "api_url: http://localhost:8000")
	assert.Contains(t, out, "page_size: 12")
}

func TestLogFileReceivesInfoLines(t *testing.T) {
	t.Cleanup(func() {
		logx.SetOutput(io.Discard)
		logx.SetMinLevel(logx.LevelWarn)
		log.SetOutput(os.Stderr)
	})
	path := filepath.Join(t.TempDir(), "comicweek.log")
	_, err := run(t, &fakeService{}, "--log-file", path, "health")
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"msg":"config loaded"`)
	assert.Contains(t, string(data), `"msg":"health ok"`)
}
