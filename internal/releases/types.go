package releases

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// DateLayout is the calendar date format used on the wire.
const DateLayout = "2006-01-02"

// Date is a calendar date without time of day. The zero value means unknown.
type Date struct {
	time.Time
}

// NewDate strips the time of day from t.
func NewDate(t time.Time) Date {
	if t.IsZero() {
		return Date{}
	}
	return Date{time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)}
}

// ParseDate parses a YYYY-MM-DD string. Longer timestamps are cut to their date part.
func ParseDate(s string) (Date, error) {
	s = strings.TrimSpace(s)
	if len(s) > len(DateLayout) {
		s = s[:len(DateLayout)]
	}
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return Date{}, fmt.Errorf("invalid date %q: use YYYY-MM-DD", s)
	}
	return Date{t}, nil
}

func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(DateLayout)
}

func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(d.String())
}

// UnmarshalJSON accepts null, "" and unparseable values as unknown dates;
// the service fills on-sale dates from upstream data of uneven quality.
func (d *Date) UnmarshalJSON(b []byte) error {
	if bytes.Equal(b, []byte("null")) {
		*d = Date{}
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	parsed, err := ParseDate(s)
	if err != nil {
		*d = Date{}
		return nil
	}
	*d = parsed
	return nil
}

// Release is a single comic on the release schedule.
type Release struct {
	ID           int    `json:"id"`
	Title        string `json:"title"`
	Author       string `json:"author,omitempty"`
	OnsaleDate   Date   `json:"onsale_date"`
	Format       string `json:"format,omitempty"`
	ThumbnailURL string `json:"thumbnail_url,omitempty"`
	Description  string `json:"description,omitempty"`
}

// DisplayTitle returns the title or "Untitled".
func (r Release) DisplayTitle() string {
	if t := strings.TrimSpace(r.Title); t != "" {
		return t
	}
	return "Untitled"
}

// DisplayFormat returns the format or "Comic".
func (r Release) DisplayFormat() string {
	if f := strings.TrimSpace(r.Format); f != "" {
		return f
	}
	return "Comic"
}

// ResultSet is the complete answer to a week or search query.
type ResultSet struct {
	Items []Release
	Total int
}

// SyncSummary reports what an upstream ingestion changed.
type SyncSummary struct {
	Inserted int `json:"inserted"`
	Updated  int `json:"updated"`
}

// Service is the release query API the browser talks to.
type Service interface {
	FetchByWeek(ctx context.Context, weekStart time.Time) (ResultSet, error)
	FetchBySearch(ctx context.Context, term string) (ResultSet, error)
	FetchDetail(ctx context.Context, id int) (Release, error)
	TriggerSync(ctx context.Context, start, end time.Time) (SyncSummary, error)
	Health(ctx context.Context) error
}
