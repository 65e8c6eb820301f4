package ui

import (
	"strconv"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"comicweek/internal/browse"
	"comicweek/internal/releases"
)

// ---------- Browse Handlers ----------

func (m Model) handleBrowseKey(key string) (Model, tea.Cmd) {
	var req *browse.Request
	switch key {
	case "j", "down":
		if m.cursor < len(m.vs.Visible())-1 {
			m.cursor++
		}
		return m, nil
	case "k", "up":
		if m.cursor > 0 {
			m.cursor--
		}
		return m, nil
	case "n", "right":
		return m.setPage(m.vs.Page + 1), nil
	case "p", "left":
		return m.setPage(m.vs.Page - 1), nil
	case "h", "[":
		m.vs, req = m.vs.ShiftWeek(-1)
	case "l", "]":
		m.vs, req = m.vs.ShiftWeek(1)
	case "s":
		m.vs, req = m.vs.SyncMonth()
		if req != nil {
			first, last := browse.MonthRange(m.vs.Anchor)
			m.statusMsg = "Syncing " + first.Format("Jan 2") + " – " + last.Format("Jan 2, 2006") + "…"
			m.statusFor = req.Token
		}
	case "r":
		m.vs, req = m.vs.Refresh()
	case "/":
		m.state = stateSearch
		if m.vs.Mode.Kind == browse.ModeSearch {
			m.searchInput.SetValue(m.vs.Mode.Term)
		} else {
			m.searchInput.SetValue("")
		}
		m.searchInput.CursorEnd()
		return m, m.searchInput.Focus()
	case "w":
		m.state = stateWeekPicker
		m.picker.options = browse.WeekOptions(m.vs.Anchor)
		m.picker.index = 0
		for i, opt := range m.picker.options {
			if opt.Anchor.Equal(m.vs.Anchor) {
				m.picker.index = i
			}
		}
		return m, nil
	case "g":
		m.state = statePageJump
		m.jumpInput.SetValue("")
		return m, m.jumpInput.Focus()
	case "f":
		m.state = stateFilter
		m.filterInput.SetValue(m.vs.Filter.Query)
		m.filterInput.CursorEnd()
		return m, m.filterInput.Focus()
	case "i":
		f := m.vs.Filter
		f.SingleIssues = !f.SingleIssues
		m.vs = m.vs.SetFilter(f)
		m.cursor = 0
		return m, nil
	case "esc":
		// drop the fuzzy filter first, then leave search mode
		if m.vs.Filter.Query != "" {
			f := m.vs.Filter
			f.Query = ""
			m.vs = m.vs.SetFilter(f)
			m.clampCursor()
			return m, nil
		}
		if m.vs.Mode.Kind == browse.ModeSearch {
			m.vs, req = m.vs.ClearSearch()
		}
	case "enter":
		item, ok := m.current()
		if !ok {
			return m, nil
		}
		return m.openDetail(item)
	default:
		return m, nil
	}
	if req != nil {
		m.cursor = 0
	}
	m.syncPager()
	return m, m.issue(req)
}

func (m Model) setPage(n int) Model {
	before := m.vs.Page
	m.vs = m.vs.SetPage(n)
	if m.vs.Page != before {
		m.cursor = 0
	}
	m.syncPager()
	return m
}

func (m Model) handleSearchKey(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.state = stateBrowse
		m.searchInput.Blur()
		return m, nil
	case "enter":
		m.state = stateBrowse
		m.searchInput.Blur()
		term := strings.TrimSpace(m.searchInput.Value())
		var req *browse.Request
		if term == "" {
			m.vs, req = m.vs.ClearSearch()
		} else {
			m.vs, req = m.vs.Search(term)
		}
		if req != nil {
			m.cursor = 0
		}
		m.syncPager()
		return m, m.issue(req)
	default:
		var cmd tea.Cmd
		m.searchInput, cmd = m.searchInput.Update(msg)
		return m, cmd
	}
}

func (m Model) handleWeekPickerKey(key string) (Model, tea.Cmd) {
	switch key {
	case "j", "down":
		if m.picker.index < len(m.picker.options)-1 {
			m.picker.index++
		}
	case "k", "up":
		if m.picker.index > 0 {
			m.picker.index--
		}
	case "esc":
		m.state = stateBrowse
	case "enter":
		m.state = stateBrowse
		if m.picker.index >= len(m.picker.options) {
			return m, nil
		}
		var req *browse.Request
		m.vs, req = m.vs.SelectWeek(m.picker.options[m.picker.index].Anchor)
		m.cursor = 0
		m.syncPager()
		return m, m.issue(req)
	}
	return m, nil
}

func (m Model) handlePageJumpKey(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.state = stateBrowse
		m.jumpInput.Blur()
		return m, nil
	case "enter":
		m.state = stateBrowse
		m.jumpInput.Blur()
		n, err := strconv.Atoi(strings.TrimSpace(m.jumpInput.Value()))
		if err != nil {
			m.statusMsg = "Not a page number."
			return m, nil
		}
		return m.setPage(n), nil
	default:
		var cmd tea.Cmd
		m.jumpInput, cmd = m.jumpInput.Update(msg)
		return m, cmd
	}
}

func (m Model) handleFilterKey(msg tea.KeyMsg) (Model, tea.Cmd) {
	f := m.vs.Filter
	switch msg.String() {
	case "esc":
		f.Query = ""
		m.filterInput.SetValue("")
		m.state = stateBrowse
		m.filterInput.Blur()
	case "enter":
		// keep the filter, leave the input
		m.state = stateBrowse
		m.filterInput.Blur()
		return m, nil
	case "ctrl+up":
		f.Config.MinCoverage = min(f.Config.MinCoverage+0.05, 0.95)
	case "ctrl+down":
		f.Config.MinCoverage = max(f.Config.MinCoverage-0.05, 0.3)
	default:
		var cmd tea.Cmd
		m.filterInput, cmd = m.filterInput.Update(msg)
		f.Query = m.filterInput.Value()
		m.vs = m.vs.SetFilter(f)
		m.clampCursor()
		return m, cmd
	}
	m.vs = m.vs.SetFilter(f)
	m.clampCursor()
	return m, nil
}

// ---------- Detail ----------

func (m Model) openDetail(item releases.Release) (Model, tea.Cmd) {
	m.vs = m.vs.Select(item)
	m.state = stateDetail
	m.detail.err = nil
	m.detail.loading = true
	m.refreshDetail()
	m.detail.view.GotoTop()
	return m, tea.Batch(m.spinner.Tick, m.detailCmd(item.ID))
}

func (m Model) handleDetailKey(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch msg.String() {
	case "esc", "enter", "backspace":
		m.vs = m.vs.ClearSelection()
		m.state = stateBrowse
		m.detail.loading = false
		return m, nil
	default:
		var cmd tea.Cmd
		m.detail.view, cmd = m.detail.view.Update(msg)
		return m, cmd
	}
}

func (m *Model) refreshDetail() {
	if m.vs.Selected == nil {
		m.detail.view.SetContent("")
		return
	}
	m.detail.view.SetContent(renderDetailBody(*m.vs.Selected, m.detail.view.Width))
}
