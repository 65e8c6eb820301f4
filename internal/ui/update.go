package ui

import (
	"errors"
	"fmt"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"comicweek/internal/browse"
	"comicweek/internal/infra/logx"
	"comicweek/internal/releases"
)

// ---------- Update ----------
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {

	case tea.KeyMsg:
		key := msg.String()
		if key == "ctrl+c" {
			m.state = stateQuit
			return m, tea.Quit
		}
		switch m.state {
		case stateSearch:
			return m.handleSearchKey(msg)
		case statePageJump:
			return m.handlePageJumpKey(msg)
		case stateFilter:
			return m.handleFilterKey(msg)
		}
		// q quits everywhere except in text inputs
		if key == "q" {
			m.state = stateQuit
			return m, tea.Quit
		}
		switch m.state {
		case stateWeekPicker:
			return m.handleWeekPickerKey(key)
		case stateDetail:
			return m.handleDetailKey(msg)
		default:
			nm, cmd := m.handleBrowseKey(key)
			nm.ensureCursorInView()
			return nm, cmd
		}

	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.detail.view.Width = max(20, min(m.width-8, 96))
		m.detail.view.Height = max(5, m.height-12)
		m.ensureCursorInView()
		if m.state == stateDetail {
			m.refreshDetail()
		}

	case startMsg:
		vs, req := m.vs.Start()
		m.vs = vs
		return m, m.issue(req)

	case resultMsg:
		applied := m.vs.Loading() && msg.res.Token == m.vs.Current()
		prevSync := m.vs.LastSync
		vs, next := m.vs.Resolve(msg.res)
		m.vs = vs
		switch ls := m.vs.LastSync; {
		case ls != nil && ls != prevSync:
			m.statusMsg = fmt.Sprintf("Synced %s – %s: %d inserted, %d updated.",
				ls.Start.Format("Jan 2"), ls.End.Format("Jan 2"), ls.Inserted, ls.Updated)
			m.statusFor = 0
			if next != nil {
				m.statusFor = next.Token
			}
		case !applied:
		case m.vs.Status.Phase == browse.PhaseError || msg.res.Token != m.statusFor:
			m.statusMsg, m.statusFor = "", 0
		default:
			// the refresh that follows a sync keeps its report
			m.statusFor = 0
		}
		m.syncPager()
		m.clampCursor()
		m.ensureCursorInView()
		return m, m.issue(next)

	case detailMsg:
		if m.vs.Selected == nil || m.vs.Selected.ID != msg.id {
			return m, nil
		}
		m.detail.loading = false
		if msg.err != nil {
			if errors.Is(msg.err, releases.ErrNotFound) {
				m.detail.err = errors.New("this release is no longer available")
			} else {
				m.detail.err = msg.err
			}
			logx.Warnw("detail fetch failed", "id", msg.id, "error", msg.err.Error())
		} else {
			m.vs = m.vs.ApplyDetail(msg.item)
		}
		m.refreshDetail()
		return m, nil

	case healthMsg:
		if msg.err != nil {
			m.health = healthDown
			logx.Warnw("health check failed", "error", msg.err.Error())
		} else {
			m.health = healthOK
		}
		return m, nil

	case spinner.TickMsg:
		if m.vs.Loading() || m.detail.loading {
			var cmd tea.Cmd
			m.spinner, cmd = m.spinner.Update(msg)
			return m, cmd
		}
		return m, nil
	}
	return m, nil
}
