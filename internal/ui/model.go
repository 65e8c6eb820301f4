package ui

import (
	"time"

	"github.com/charmbracelet/bubbles/paginator"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"comicweek/internal/browse"
	"comicweek/internal/config"
	"comicweek/internal/releases"
)

// --- Model / State ---
type state int

const (
	stateBrowse state = iota
	stateSearch
	stateWeekPicker
	statePageJump
	stateFilter
	stateDetail
	stateQuit
)

type healthState int

const (
	healthUnknown healthState = iota
	healthOK
	healthDown
)

type DetailState struct {
	loading bool
	err     error
	view    viewport.Model
}

type PickerState struct {
	options []browse.WeekOption
	index   int
}

type Model struct {
	state  state
	vs     browse.ViewState
	svc    releases.Service
	cfg    config.Config
	now    func() time.Time
	cursor int
	offset int

	metrics *releases.Metrics
	health  healthState

	width, height int
	statusMsg     string
	statusFor     uint64 // token whose result keeps statusMsg

	spinner     spinner.Model
	pager       paginator.Model
	searchInput textinput.Model
	jumpInput   textinput.Model
	filterInput textinput.Model

	picker PickerState
	detail DetailState
}

// New builds the browser for svc. The first week fetch starts with Init.
func New(svc releases.Service, cfg config.Config) Model {
	return newModel(svc, cfg, time.Now)
}

func newModel(svc releases.Service, cfg config.Config, now func() time.Time) Model {
	filter := browse.Projection{SingleIssues: cfg.SingleIssues, Config: browse.DefaultFilterConfig}
	m := Model{
		state: stateBrowse,
		svc:   svc,
		cfg:   cfg,
		now:   now,
		vs: browse.New(now(), browse.Options{
			PageSize:    cfg.PageSize,
			MinQueryLen: cfg.MinQueryLen,
			Filter:      filter,
		}),
	}
	if mp, ok := svc.(interface{ Metrics() *releases.Metrics }); ok {
		m.metrics = mp.Metrics()
	}

	si := textinput.New()
	si.Placeholder = "Search titles…"
	si.CharLimit = 120
	si.Width = 40
	m.searchInput = si

	ji := textinput.New()
	ji.Placeholder = "Page number"
	ji.CharLimit = 4
	ji.Width = 8
	m.jumpInput = ji

	fi := textinput.New()
	fi.Placeholder = "Fuzzy filter this page…"
	fi.CharLimit = 80
	fi.Width = 40
	m.filterInput = fi

	sp := spinner.New()
	sp.Spinner = spinner.Line
	sp.Style = subtleStyle
	m.spinner = sp

	pg := paginator.New()
	pg.Type = paginator.Arabic
	pg.ArabicFormat = "page %d of %d"
	m.pager = pg
	m.syncPager()

	m.detail.view = viewport.New(72, 16)
	return m
}

// Init fires the first week fetch and the health check.
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.startCmd(), m.healthCmd())
}

// Init cannot return a model, so the first request is issued on startMsg.
func (m Model) startCmd() tea.Cmd {
	return func() tea.Msg { return startMsg{} }
}

func (m *Model) syncPager() {
	m.pager.PerPage = m.vs.PageSize
	m.pager.TotalPages = m.vs.PageCount()
	m.pager.Page = m.vs.Page - 1
}

func (m *Model) clampCursor() {
	n := len(m.vs.Visible())
	if m.cursor >= n {
		m.cursor = n - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
}

func (m Model) current() (releases.Release, bool) {
	items := m.vs.Visible()
	if m.cursor < 0 || m.cursor >= len(items) {
		return releases.Release{}, false
	}
	return items[m.cursor], true
}

func (m Model) timeout() time.Duration {
	if m.cfg.Timeout > 0 {
		return m.cfg.Timeout
	}
	return 10 * time.Second
}
