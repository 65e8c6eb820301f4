package releases

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"net"
	"net/http"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"comicweek/internal/infra/logx"
)

// RequestIDHeader carries a per-request id that stays the same across retries.
const RequestIDHeader = "X-Request-ID"

// Clock abstracts time for deterministic tests.
type Clock interface {
	Now() time.Time
	Sleep(d time.Duration)
}

type realClock struct{}

func (realClock) Now() time.Time        { return time.Now() }
func (realClock) Sleep(d time.Duration) { time.Sleep(d) }

// Limit is a request rate with a burst capacity.
type Limit struct {
	RPS   float64
	Burst int
}

// TransportOptions configures the retrying, rate-limited transport.
type TransportOptions struct {
	RetryMax    int
	BackoffBase time.Duration
	BackoffCap  time.Duration
	JitterFn    func(base time.Duration, attempt int) time.Duration
	Clock       Clock
	Metrics     *Metrics

	// Per-host limits keyed by req.URL.Host; DefaultLimit applies otherwise.
	HostLimits   map[string]Limit
	DefaultLimit Limit
}

// DefaultTransportOptionsFromEnv returns defaults tuned for a single release
// service. COMICWEEK_RPS, COMICWEEK_BURST, COMICWEEK_RETRY_MAX,
// COMICWEEK_RETRY_BASE_MS and COMICWEEK_RETRY_CAP_MS override them.
func DefaultTransportOptionsFromEnv() TransportOptions {
	lim := Limit{RPS: 8, Burst: 8}
	if f, ok := envFloat("COMICWEEK_RPS"); ok && f > 0 {
		lim.RPS = f
	}
	if n, ok := envInt("COMICWEEK_BURST"); ok && n > 0 {
		lim.Burst = n
	}

	retryMax := 3
	if n, ok := envInt("COMICWEEK_RETRY_MAX"); ok && n >= 0 {
		retryMax = n
	}
	backoffBase := 200 * time.Millisecond
	if ms, ok := envInt("COMICWEEK_RETRY_BASE_MS"); ok && ms >= 0 {
		backoffBase = time.Duration(ms) * time.Millisecond
	}
	backoffCap := 3 * time.Second
	if ms, ok := envInt("COMICWEEK_RETRY_CAP_MS"); ok && ms > 0 {
		backoffCap = time.Duration(ms) * time.Millisecond
	}

	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	var rngMu sync.Mutex
	return TransportOptions{
		RetryMax:    retryMax,
		BackoffBase: backoffBase,
		BackoffCap:  backoffCap,
		Clock:       realClock{},
		JitterFn: func(base time.Duration, _ int) time.Duration {
			if base <= 0 {
				return 0
			}
			rngMu.Lock()
			defer rngMu.Unlock()
			return time.Duration(rng.Int63n(base.Nanoseconds()))
		},
		Metrics:      NewMetrics(),
		DefaultLimit: lim,
	}
}

func envInt(key string) (int, bool) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return 0, false
	}
	n, err := strconv.Atoi(v)
	return n, err == nil
}

func envFloat(key string) (float64, bool) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(v, 64)
	return f, err == nil
}

// tokenBucket is a per-host rate limiter with fractional tokens.
type tokenBucket struct {
	mu     sync.Mutex
	rps    float64
	burst  float64
	tokens float64
	last   time.Time
	clock  Clock
}

func newTokenBucket(lim Limit, clock Clock) *tokenBucket {
	burst := float64(max(1, lim.Burst))
	return &tokenBucket{
		rps:    lim.RPS,
		burst:  burst,
		tokens: burst,
		last:   clock.Now(),
		clock:  clock,
	}
}

func (tb *tokenBucket) refillLocked(now time.Time) {
	delta := now.Sub(tb.last).Seconds() * tb.rps
	if delta > 0 {
		tb.tokens = math.Min(tb.burst, tb.tokens+delta)
		tb.last = now
	}
}

// Wait blocks until a token is available or ctx is done.
func (tb *tokenBucket) Wait(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		tb.mu.Lock()
		tb.refillLocked(tb.clock.Now())
		if tb.tokens >= 1 {
			tb.tokens--
			tb.mu.Unlock()
			return nil
		}
		wait := time.Duration(((1 - tb.tokens) / tb.rps) * float64(time.Second))
		tb.mu.Unlock()
		// sleep in short slices so cancellation is observed
		tb.clock.Sleep(min(max(wait, 5*time.Millisecond), 50*time.Millisecond))
	}
}

// adjustRPS nudges the limiter rate within [lo, hi].
func (tb *tokenBucket) adjustRPS(delta, lo, hi float64) {
	tb.mu.Lock()
	defer tb.mu.Unlock()
	tb.rps = math.Max(lo, math.Min(hi, tb.rps+delta))
}

// RetryingLimiterTransport wraps a RoundTripper with per-host rate limiting
// and retries. Only idempotent requests are retried; a sync POST runs once.
type RetryingLimiterTransport struct {
	Base     http.RoundTripper
	Opts     TransportOptions
	limMu    sync.Mutex
	limiters map[string]*tokenBucket
}

func NewRetryingLimiterTransport(opts TransportOptions) *RetryingLimiterTransport {
	return &RetryingLimiterTransport{Opts: opts, limiters: make(map[string]*tokenBucket)}
}

func (t *RetryingLimiterTransport) limitFor(host string) Limit {
	if lim, ok := t.Opts.HostLimits[host]; ok && lim.RPS > 0 {
		return lim
	}
	if t.Opts.DefaultLimit.RPS > 0 {
		return t.Opts.DefaultLimit
	}
	return Limit{RPS: 8, Burst: 8}
}

func (t *RetryingLimiterTransport) getLimiter(host string) *tokenBucket {
	t.limMu.Lock()
	defer t.limMu.Unlock()
	if tb, ok := t.limiters[host]; ok {
		return tb
	}
	tb := newTokenBucket(t.limitFor(host), t.clock())
	t.limiters[host] = tb
	return tb
}

func (t *RetryingLimiterTransport) base() http.RoundTripper {
	if t.Base != nil {
		return t.Base
	}
	return http.DefaultTransport
}

func (t *RetryingLimiterTransport) clock() Clock {
	if t.Opts.Clock != nil {
		return t.Opts.Clock
	}
	return realClock{}
}

func (t *RetryingLimiterTransport) jitter(base time.Duration, attempt int) time.Duration {
	if t.Opts.JitterFn != nil {
		return t.Opts.JitterFn(base, attempt)
	}
	return 0
}

func (t *RetryingLimiterTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if req.Header.Get(RequestIDHeader) == "" {
		req = req.Clone(req.Context())
		req.Header.Set(RequestIDHeader, uuid.NewString())
	}
	host := req.URL.Host
	lim := t.getLimiter(host)
	ceiling := t.limitFor(host).RPS
	if t.Opts.Metrics != nil {
		t.Opts.Metrics.IncRequest(req.Method)
	}

	attempts := 1
	if isIdempotent(req.Method) {
		attempts = max(1, t.Opts.RetryMax+1)
	}
	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		if err := lim.Wait(req.Context()); err != nil {
			return nil, err
		}

		resp, err := t.base().RoundTrip(req)
		if err != nil {
			if isTransientNetErr(err) && attempt < attempts-1 {
				lastErr = err
				t.countRetry(req.Context(), 0)
				logx.Debugw("retrying after network error", "request_id", req.Header.Get(RequestIDHeader), "attempt", attempt+1, "error", err.Error())
				t.sleepBackoff(attempt)
				lim.adjustRPS(-0.1, 1, ceiling)
				continue
			}
			return nil, err
		}

		if t.Opts.Metrics != nil {
			t.Opts.Metrics.IncStatus(resp.StatusCode)
		}
		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			lim.adjustRPS(+0.02, 1, ceiling)
		}

		if shouldRetryStatus(resp.StatusCode) && attempt < attempts-1 {
			resp.Body.Close()
			t.countRetry(req.Context(), resp.StatusCode)
			lim.adjustRPS(-0.3, 1, ceiling)
			logx.Debugw("retrying after status", "request_id", req.Header.Get(RequestIDHeader), "status", resp.StatusCode, "attempt", attempt+1)
			if ra := parseRetryAfter(resp.Header.Get("Retry-After"), t.clock().Now()); ra > 0 {
				d := min(ra, t.backoffCap())
				t.clock().Sleep(d)
				if t.Opts.Metrics != nil {
					t.Opts.Metrics.AddBackoff(d)
				}
				continue
			}
			t.sleepBackoff(attempt)
			continue
		}

		return resp, nil
	}
	if lastErr == nil {
		lastErr = errors.New("max retries exceeded")
	}
	return nil, lastErr
}

func (t *RetryingLimiterTransport) countRetry(ctx context.Context, status int) {
	if t.Opts.Metrics != nil {
		t.Opts.Metrics.IncRetry()
	}
	rc := getRetryCounters(ctx)
	if rc == nil {
		return
	}
	rc.Total++
	switch {
	case status == 0:
		rc.Net++
	case status == http.StatusTooManyRequests:
		rc.Status429++
	case status >= 500:
		rc.Status5xx++
	}
}

func (t *RetryingLimiterTransport) backoffCap() time.Duration {
	if t.Opts.BackoffCap > 0 {
		return t.Opts.BackoffCap
	}
	return 3 * time.Second
}

func (t *RetryingLimiterTransport) sleepBackoff(attempt int) {
	base := t.Opts.BackoffBase
	if base <= 0 {
		base = 200 * time.Millisecond
	}
	// base * 2^attempt, capped, plus jitter
	delay := min(time.Duration(float64(base)*math.Pow(2, float64(attempt))), t.backoffCap())
	d := min(delay+t.jitter(delay, attempt), t.backoffCap())
	t.clock().Sleep(d)
	if t.Opts.Metrics != nil {
		t.Opts.Metrics.AddBackoff(d)
	}
}

func isIdempotent(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		return true
	}
	return false
}

func isTransientNetErr(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return true
	}
	var op *net.OpError
	if errors.As(err, &op) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "connection reset") || strings.Contains(msg, "timeout") || strings.Contains(msg, "temporary")
}

func shouldRetryStatus(code int) bool {
	return code == http.StatusTooManyRequests || code == http.StatusBadGateway ||
		code == http.StatusServiceUnavailable || code == http.StatusGatewayTimeout
}

func parseRetryAfter(h string, now time.Time) time.Duration {
	h = strings.TrimSpace(h)
	if h == "" {
		return 0
	}
	if secs, err := strconv.Atoi(h); err == nil && secs >= 0 {
		return time.Duration(secs) * time.Second
	}
	if when, err := http.ParseTime(h); err == nil {
		if d := when.Sub(now); d > 0 {
			return d
		}
	}
	return 0
}
