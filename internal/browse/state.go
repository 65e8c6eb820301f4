package browse

import (
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"comicweek/internal/releases"
)

var (
	// ErrQueryTooShort rejects search terms below the minimum length.
	ErrQueryTooShort = errors.New("query too short")
	// ErrInvalidRange rejects a sync range that ends before it starts.
	ErrInvalidRange = errors.New("invalid date range")
)

const (
	DefaultPageSize    = 12
	DefaultMinQueryLen = 2
)

// ModeKind tells week browsing and title search apart.
type ModeKind int

const (
	ModeWeek ModeKind = iota
	ModeSearch
)

// QueryMode is the active query. Week is set for ModeWeek, Term for ModeSearch.
type QueryMode struct {
	Kind ModeKind
	Week time.Time
	Term string
}

// Week returns the week mode for the week containing d.
func Week(d time.Time) QueryMode { return QueryMode{Kind: ModeWeek, Week: WeekAnchor(d)} }

// Search returns the search mode for term.
func Search(term string) QueryMode { return QueryMode{Kind: ModeSearch, Term: strings.TrimSpace(term)} }

func (q QueryMode) String() string {
	if q.Kind == ModeSearch {
		return fmt.Sprintf("search %q", q.Term)
	}
	return "week of " + q.Week.Format("Jan 2, 2006")
}

type Phase int

const (
	PhaseIdle Phase = iota
	PhaseLoading
	PhaseError
	PhaseReady
)

func (p Phase) String() string {
	switch p {
	case PhaseLoading:
		return "loading"
	case PhaseError:
		return "error"
	case PhaseReady:
		return "ready"
	default:
		return "idle"
	}
}

// ErrorKind classifies an error status.
type ErrorKind int

const (
	KindNone ErrorKind = iota
	KindValidation
	KindTransport
)

// Status is the lifecycle of the current result set.
type Status struct {
	Phase   Phase
	Kind    ErrorKind
	Message string
	Err     error
}

func failed(kind ErrorKind, err error) Status {
	return Status{Phase: PhaseError, Kind: kind, Message: err.Error(), Err: err}
}

// SyncRecord is the outcome of the last sync that completed while current.
type SyncRecord struct {
	Start, End time.Time
	Inserted   int
	Updated    int
}

type RequestKind int

const (
	RequestQuery RequestKind = iota
	RequestSync
)

// Request is the effect a caller must execute. Its result goes back through
// ViewState.Resolve with the same Token.
type Request struct {
	Token    uint64
	Kind     RequestKind
	Mode     QueryMode
	KeepPage bool
	Start    time.Time // sync only
	End      time.Time // sync only
}

// Result is the outcome of executing a Request.
type Result struct {
	Token uint64
	Items []releases.Release
	Sync  releases.SyncSummary
	Err   error

	// Retries made by the transport while serving this request.
	Retries releases.RetryCounters
}

// Options configure a ViewState. Zero values fall back to the defaults.
type Options struct {
	PageSize    int
	MinQueryLen int
	Filter      Projection
}

// ViewState is the release browser's state. Methods never mutate the
// receiver; they return the next state and, when something must be fetched,
// the Request to execute. Only the most recently issued Request is current.
type ViewState struct {
	Mode     QueryMode
	Page     int
	PageSize int
	Items    []releases.Release
	Total    int
	Status   Status
	Selected *releases.Release
	LastSync *SyncRecord
	Filter   Projection
	// Anchor is the week the selector points at. It survives searches so
	// clearing a search returns to the same week.
	Anchor time.Time

	minQueryLen int
	seq         uint64
	current     uint64
	inflight    *Request
}

// New returns an idle state browsing the week of today.
func New(today time.Time, opts Options) ViewState {
	if opts.PageSize < 1 {
		opts.PageSize = DefaultPageSize
	}
	if opts.MinQueryLen < 1 {
		opts.MinQueryLen = DefaultMinQueryLen
	}
	mode := Week(today)
	return ViewState{
		Mode:        mode,
		Page:        1,
		PageSize:    opts.PageSize,
		Filter:      opts.Filter,
		Anchor:      mode.Week,
		minQueryLen: opts.MinQueryLen,
	}
}

// MinQueryLen is the shortest accepted search term, in runes.
func (s ViewState) MinQueryLen() int { return s.minQueryLen }

// Current returns the token of the request in flight, or 0.
func (s ViewState) Current() uint64 { return s.current }

// Loading reports whether a request is in flight.
func (s ViewState) Loading() bool { return s.current != 0 }

// PageCount is the number of pages of the held result set.
func (s ViewState) PageCount() int { return PageCount(s.Total, s.PageSize) }

// PageItems returns the unfiltered slice for the current page.
func (s ViewState) PageItems() []releases.Release { return PageSlice(s.Items, s.Page, s.PageSize) }

// Visible returns the current page with the projection applied.
func (s ViewState) Visible() []releases.Release { return s.Filter.Apply(s.PageItems()) }

// Start issues the initial fetch.
func (s ViewState) Start() (ViewState, *Request) { return s.issueQuery(false) }

// SelectWeek switches to the week containing d and fetches it from page 1.
func (s ViewState) SelectWeek(d time.Time) (ViewState, *Request) {
	s.Mode = Week(d)
	s.Anchor = s.Mode.Week
	s.Page = 1
	return s.issueQuery(false)
}

// ShiftWeek moves the week selector n weeks from the remembered anchor.
func (s ViewState) ShiftWeek(n int) (ViewState, *Request) {
	return s.SelectWeek(s.Anchor.AddDate(0, 0, 7*n))
}

// Search fetches releases matching term. Terms shorter than MinQueryLen
// only set a validation error; nothing is issued and an in-flight request
// stays current.
func (s ViewState) Search(term string) (ViewState, *Request) {
	term = strings.TrimSpace(term)
	if utf8.RuneCountInString(term) < s.minQueryLen {
		s.Status = failed(KindValidation, fmt.Errorf("%w: enter at least %d characters", ErrQueryTooShort, s.minQueryLen))
		return s, nil
	}
	s.Mode = Search(term)
	s.Page = 1
	return s.issueQuery(false)
}

// ClearSearch returns to the remembered week.
func (s ViewState) ClearSearch() (ViewState, *Request) {
	s.Mode = Week(s.Anchor)
	s.Page = 1
	return s.issueQuery(false)
}

// SetPage moves to page n, clamped to the held result set. It never fetches.
func (s ViewState) SetPage(n int) ViewState {
	s.Page = ClampPage(n, s.Total, s.PageSize)
	return s
}

// Refresh re-issues the current query and keeps the page.
func (s ViewState) Refresh() (ViewState, *Request) { return s.issueQuery(true) }

// SyncRange asks the service to ingest [start, end]. When the sync completes
// while still current, the current query is refreshed in place.
func (s ViewState) SyncRange(start, end time.Time) (ViewState, *Request) {
	start, end = releases.NewDate(start).Time, releases.NewDate(end).Time
	if end.Before(start) {
		s.Status = failed(KindValidation, fmt.Errorf("%w: %s is before %s", ErrInvalidRange,
			end.Format(releases.DateLayout), start.Format(releases.DateLayout)))
		return s, nil
	}
	return s.issue(Request{Kind: RequestSync, Mode: s.Mode, KeepPage: true, Start: start, End: end})
}

// SyncMonth syncs the month containing the remembered anchor.
func (s ViewState) SyncMonth() (ViewState, *Request) {
	return s.SyncRange(MonthRange(s.Anchor))
}

// Select marks item as the one shown in detail.
func (s ViewState) Select(item releases.Release) ViewState {
	s.Selected = &item
	return s
}

func (s ViewState) ClearSelection() ViewState {
	s.Selected = nil
	return s
}

// ApplyDetail replaces the selection with a freshly fetched copy, but only
// while the same release is still selected.
func (s ViewState) ApplyDetail(item releases.Release) ViewState {
	if s.Selected == nil || s.Selected.ID != item.ID {
		return s
	}
	s.Selected = &item
	return s
}

// SetFilter replaces the projection. Total and PageCount are unaffected.
func (s ViewState) SetFilter(p Projection) ViewState {
	s.Filter = p
	return s
}

// Resolve applies the result of a request. Results whose token is not
// current are dropped; so is a second delivery of the same result. A
// completed sync returns the refresh request to execute next.
func (s ViewState) Resolve(r Result) (ViewState, *Request) {
	if s.current == 0 || r.Token != s.current {
		return s, nil
	}
	req := *s.inflight
	s.current, s.inflight = 0, nil

	if r.Err != nil {
		s.Status = failed(KindTransport, r.Err)
		if req.Kind == RequestQuery {
			s.Items, s.Total, s.Page = nil, 0, 1
		}
		return s, nil
	}

	if req.Kind == RequestSync {
		s.LastSync = &SyncRecord{Start: req.Start, End: req.End, Inserted: r.Sync.Inserted, Updated: r.Sync.Updated}
		return s.issueQuery(true)
	}

	s.Items = r.Items
	s.Total = len(r.Items)
	if !req.KeepPage {
		s.Page = 1
	}
	s.Page = ClampPage(s.Page, s.Total, s.PageSize)
	s.Status = Status{Phase: PhaseReady}
	return s, nil
}

func (s ViewState) issueQuery(keepPage bool) (ViewState, *Request) {
	return s.issue(Request{Kind: RequestQuery, Mode: s.Mode, KeepPage: keepPage})
}

func (s ViewState) issue(req Request) (ViewState, *Request) {
	s.seq++
	req.Token = s.seq
	s.current = req.Token
	s.inflight = &req
	s.Status = Status{Phase: PhaseLoading}
	out := req
	return s, &out
}
