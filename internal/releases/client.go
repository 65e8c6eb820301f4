package releases

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"comicweek/internal/infra/logx"
)

const (
	// DefaultBaseURL is where the release service listens in a local setup.
	DefaultBaseURL = "http://localhost:8000"
	// DefaultSyncPath is the upstream ingestion endpoint.
	DefaultSyncPath = "/api/marvel/sync"
)

// Client talks to the release service over HTTP.
type Client struct {
	http     *http.Client
	base     string
	syncPath string
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default retrying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithSyncPath overrides DefaultSyncPath.
func WithSyncPath(p string) Option {
	return func(c *Client) {
		if p = strings.TrimSpace(p); p != "" {
			c.syncPath = "/" + strings.TrimLeft(p, "/")
		}
	}
}

// WithTimeout sets the per-request timeout of the underlying HTTP client.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.http.Timeout = d
		}
	}
}

// New builds a client for the service at baseURL. Without WithHTTPClient the
// client retries idempotent requests through a RetryingLimiterTransport.
func New(baseURL string, opts ...Option) *Client {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	topt := DefaultTransportOptionsFromEnv()
	c := &Client{
		http: &http.Client{
			Timeout:   10 * time.Second,
			Transport: NewRetryingLimiterTransport(topt),
		},
		base:     baseURL,
		syncPath: DefaultSyncPath,
	}
	for _, opt := range opts {
		opt(c)
	}
	if u, err := url.Parse(baseURL); err == nil && u.User != nil {
		if pw, ok := u.User.Password(); ok {
			logx.RegisterSecret(pw)
		}
	}
	return c
}

// Metrics returns the transport counters, or nil when a custom HTTP client is in use.
func (c *Client) Metrics() *Metrics {
	if rt, ok := c.http.Transport.(*RetryingLimiterTransport); ok {
		return rt.Opts.Metrics
	}
	return nil
}

// Health checks that the service answers.
func (c *Client) Health(ctx context.Context) error {
	var payload struct {
		Status string `json:"status"`
	}
	if err := c.do(ctx, "health", http.MethodGet, "/api/health", nil, &payload); err != nil {
		return err
	}
	if payload.Status != "" && payload.Status != "ok" {
		return fmt.Errorf("health: service reports %q", payload.Status)
	}
	return nil
}

// FetchByWeek lists the releases of the week identified by weekStart.
func (c *Client) FetchByWeek(ctx context.Context, weekStart time.Time) (ResultSet, error) {
	q := url.Values{}
	q.Set("wed", NewDate(weekStart).String())
	var items []Release
	if err := c.do(ctx, "comics.week", http.MethodGet, "/api/comics/week", q, &items); err != nil {
		return ResultSet{}, err
	}
	return ResultSet{Items: items, Total: len(items)}, nil
}

// FetchBySearch lists releases whose title contains term.
func (c *Client) FetchBySearch(ctx context.Context, term string) (ResultSet, error) {
	term = strings.TrimSpace(term)
	if term == "" {
		return ResultSet{}, errors.New("comics.search: empty term")
	}
	q := url.Values{}
	q.Set("q", term)
	var items []Release
	if err := c.do(ctx, "comics.search", http.MethodGet, "/api/comics/search", q, &items); err != nil {
		return ResultSet{}, err
	}
	return ResultSet{Items: items, Total: len(items)}, nil
}

// FetchDetail loads a single release. A missing release yields an error matching ErrNotFound.
func (c *Client) FetchDetail(ctx context.Context, id int) (Release, error) {
	if id < 1 {
		return Release{}, fmt.Errorf("comics.get: invalid id %d", id)
	}
	var r Release
	if err := c.do(ctx, "comics.get", http.MethodGet, "/api/comics/"+strconv.Itoa(id), nil, &r); err != nil {
		return Release{}, err
	}
	return r, nil
}

// TriggerSync asks the service to ingest upstream data for [start, end].
func (c *Client) TriggerSync(ctx context.Context, start, end time.Time) (SyncSummary, error) {
	s, e := NewDate(start), NewDate(end)
	if e.Before(s.Time) {
		return SyncSummary{}, fmt.Errorf("sync: end %s before start %s", e, s)
	}
	q := url.Values{}
	q.Set("start", s.String())
	q.Set("end", e.String())
	var sum SyncSummary
	if err := c.do(ctx, "sync", http.MethodPost, c.syncPath, q, &sum); err != nil {
		return SyncSummary{}, err
	}
	return sum, nil
}

func (c *Client) do(ctx context.Context, op, method, path string, q url.Values, out any) error {
	u := c.base + path
	if len(q) > 0 {
		u += "?" + q.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, method, u, nil)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	res, err := c.http.Do(req)
	if err != nil {
		logx.Warnw("request failed", "op", op, "error", err.Error())
		return fmt.Errorf("%s: %w", op, err)
	}
	defer res.Body.Close()
	logx.Debugw("request done", "op", op, "status", res.StatusCode, "took", time.Since(start).String())

	if res.StatusCode < 200 || res.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(res.Body, 4*maxErrorBody))
		return newHTTPError(op, res.StatusCode, body)
	}

	body, err := io.ReadAll(res.Body)
	if err != nil {
		return fmt.Errorf("%s: read body: %w", op, err)
	}
	// sync may answer with an empty body
	if len(strings.TrimSpace(string(body))) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("%s: decode: %w", op, err)
	}
	return nil
}
