package releases

import (
	"context"
	"errors"
	"net/http"
	"sync/atomic"
	"testing"
	"time"
)

// fakeClock allows deterministic control of time passage.
type fakeClock struct {
	now   time.Time
	slept time.Duration
}

func newFakeClock() *fakeClock              { return &fakeClock{now: time.Unix(0, 0)} }
func (fc *fakeClock) Now() time.Time        { return fc.now }
func (fc *fakeClock) Sleep(d time.Duration) { fc.now = fc.now.Add(d); fc.slept += d }

// fakeRT returns a queued series of responses or errors.
type fakeRT struct {
	calls atomic.Int64
	queue []any // *http.Response or error
	ids   []string
}

func (frt *fakeRT) RoundTrip(req *http.Request) (*http.Response, error) {
	frt.ids = append(frt.ids, req.Header.Get(RequestIDHeader))
	idx := frt.calls.Add(1) - 1
	if int(idx) >= len(frt.queue) {
		return &http.Response{StatusCode: http.StatusOK, Body: http.NoBody}, nil
	}
	switch item := frt.queue[idx].(type) {
	case *http.Response:
		if item.Body == nil {
			item.Body = http.NoBody
		}
		return item, nil
	case error:
		return nil, item
	}
	return &http.Response{StatusCode: http.StatusOK, Body: http.NoBody}, nil
}

func testOptions(fc *fakeClock) TransportOptions {
	return TransportOptions{
		RetryMax:     2,
		BackoffBase:  250 * time.Millisecond,
		BackoffCap:   5 * time.Second,
		Clock:        fc,
		JitterFn:     func(time.Duration, int) time.Duration { return 0 },
		Metrics:      NewMetrics(),
		DefaultLimit: Limit{RPS: 1000, Burst: 1000},
	}
}

func newReq(method string) *http.Request {
	req, _ := http.NewRequestWithContext(context.Background(), method, "http://releases.test/api/comics/week", nil)
	return req
}

func TestRetryAfterSeconds(t *testing.T) {
	fc := newFakeClock()
	opt := testOptions(fc)
	frt := &fakeRT{queue: []any{
		&http.Response{StatusCode: 429, Header: http.Header{"Retry-After": []string{"2"}}},
		&http.Response{StatusCode: 200},
	}}
	tr := NewRetryingLimiterTransport(opt)
	tr.Base = frt

	resp, err := tr.RoundTrip(newReq(http.MethodGet))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.StatusCode != 200 {
		t.Fatalf("want 200, got %d", resp.StatusCode)
	}
	if fc.slept != 2*time.Second {
		t.Fatalf("expected 2s sleep, got %v", fc.slept)
	}
	snap := opt.Metrics.Snapshot()
	if snap.TotalRetries != 1 || snap.Status429 != 1 || snap.Status2xx != 1 {
		t.Fatalf("unexpected metrics %+v", snap)
	}
}

func TestBackoffOn503(t *testing.T) {
	fc := newFakeClock()
	frt := &fakeRT{queue: []any{
		&http.Response{StatusCode: 503},
		&http.Response{StatusCode: 503},
		&http.Response{StatusCode: 200},
	}}
	tr := NewRetryingLimiterTransport(testOptions(fc))
	tr.Base = frt

	resp, err := tr.RoundTrip(newReq(http.MethodGet))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.StatusCode != 200 {
		t.Fatalf("want 200, got %d", resp.StatusCode)
	}
	// 250ms then 500ms
	if fc.slept != 750*time.Millisecond {
		t.Fatalf("expected 750ms sleep, got %v", fc.slept)
	}
}

func TestRetriesExhaustedReturnsLastResponse(t *testing.T) {
	fc := newFakeClock()
	frt := &fakeRT{queue: []any{
		&http.Response{StatusCode: 502},
		&http.Response{StatusCode: 502},
		&http.Response{StatusCode: 502},
	}}
	tr := NewRetryingLimiterTransport(testOptions(fc))
	tr.Base = frt

	resp, err := tr.RoundTrip(newReq(http.MethodGet))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.StatusCode != 502 {
		t.Fatalf("want final 502, got %d", resp.StatusCode)
	}
	if got := frt.calls.Load(); got != 3 {
		t.Fatalf("expected 3 attempts, got %d", got)
	}
}

func TestPostIsNotRetried(t *testing.T) {
	fc := newFakeClock()
	frt := &fakeRT{queue: []any{
		&http.Response{StatusCode: 503},
		&http.Response{StatusCode: 200},
	}}
	tr := NewRetryingLimiterTransport(testOptions(fc))
	tr.Base = frt

	resp, err := tr.RoundTrip(newReq(http.MethodPost))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.StatusCode != 503 {
		t.Fatalf("want 503 passed through, got %d", resp.StatusCode)
	}
	if frt.calls.Load() != 1 {
		t.Fatalf("expected a single attempt, got %d", frt.calls.Load())
	}
}

type timeoutErr struct{}

func (timeoutErr) Error() string   { return "i/o timeout" }
func (timeoutErr) Timeout() bool   { return true }
func (timeoutErr) Temporary() bool { return true }

func TestNetworkErrorRetriedWithCounters(t *testing.T) {
	fc := newFakeClock()
	frt := &fakeRT{queue: []any{timeoutErr{}, &http.Response{StatusCode: 200}}}
	tr := NewRetryingLimiterTransport(testOptions(fc))
	tr.Base = frt

	var rc RetryCounters
	req := newReq(http.MethodGet).WithContext(WithRetryCounters(context.Background(), &rc))
	if _, err := tr.RoundTrip(req); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rc.Total != 1 || rc.Net != 1 {
		t.Fatalf("unexpected counters %+v", rc)
	}
	if len(frt.ids) != 2 || frt.ids[0] == "" || frt.ids[0] != frt.ids[1] {
		t.Fatalf("request id must be set and stable across retries: %v", frt.ids)
	}
}

func TestCanceledContextIsNotRetried(t *testing.T) {
	fc := newFakeClock()
	frt := &fakeRT{queue: []any{context.Canceled}}
	tr := NewRetryingLimiterTransport(testOptions(fc))
	tr.Base = frt

	_, err := tr.RoundTrip(newReq(http.MethodGet))
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if frt.calls.Load() != 1 {
		t.Fatalf("expected one attempt, got %d", frt.calls.Load())
	}
}

func TestLimiterPacing(t *testing.T) {
	fc := newFakeClock()
	opt := testOptions(fc)
	opt.RetryMax = 0
	opt.DefaultLimit = Limit{RPS: 2, Burst: 1}
	tr := NewRetryingLimiterTransport(opt)
	tr.Base = &fakeRT{}

	for i := 0; i < 3; i++ {
		if _, err := tr.RoundTrip(newReq(http.MethodGet)); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	// burst 1 at 2 rps: the 2nd and 3rd request wait ~500ms each
	if fc.slept < time.Second || fc.slept > 1100*time.Millisecond {
		t.Fatalf("expected ~1s of pacing, got %v", fc.slept)
	}
}

func TestParseRetryAfter(t *testing.T) {
	now := time.Date(2026, 10, 17, 12, 0, 0, 0, time.UTC)
	if d := parseRetryAfter("3", now); d != 3*time.Second {
		t.Fatalf("seconds: got %v", d)
	}
	date := now.Add(90 * time.Second).Format(http.TimeFormat)
	if d := parseRetryAfter(date, now); d != 90*time.Second {
		t.Fatalf("http-date: got %v", d)
	}
	if d := parseRetryAfter("soon", now); d != 0 {
		t.Fatalf("garbage: got %v", d)
	}
}
