package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"comicweek/internal/browse"
	"comicweek/internal/releases"
)

func (m Model) View() string {
	if m.state == stateQuit {
		return ""
	}
	var b strings.Builder
	b.WriteString(titleStyle.Render("Comic Week") + "  " + m.renderHealth())
	b.WriteString("\n")
	b.WriteString(dividerStyle.Render(strings.Repeat("─", max(10, m.width-2))))
	b.WriteString("\n")
	b.WriteString(subtitleStyle.Render(m.modeLine()) + "\n")
	b.WriteString(m.statusLine() + "\n\n")

	switch m.state {
	case stateDetail:
		b.WriteString(m.viewDetail())
		b.WriteString("\n\n")
		b.WriteString(renderFooter("", "↑/↓ scroll  |  esc close  |  q quit"))
		return b.String()
	case stateWeekPicker:
		b.WriteString(m.viewWeekPicker())
		b.WriteString("\n")
		b.WriteString(renderFooter("", "j/k move  |  enter select  |  esc back"))
		return b.String()
	}

	b.WriteString(m.viewList())
	b.WriteString("\n")

	switch m.state {
	case stateSearch:
		b.WriteString("Search: " + m.searchInput.View() + "\n")
		b.WriteString(renderFooter("", "enter search (empty returns to the week)  |  esc cancel"))
		return b.String()
	case statePageJump:
		b.WriteString(fmt.Sprintf("Go to page (1-%d): ", m.vs.PageCount()) + m.jumpInput.View() + "\n")
		b.WriteString(renderFooter("", "enter jump  |  esc cancel"))
		return b.String()
	case stateFilter:
		b.WriteString("Filter: " + m.filterInput.View() + "\n")
		b.WriteString(renderFooter(fmt.Sprintf("coverage ≥ %.2f", m.vs.Filter.Config.MinCoverage),
			"type to filter this page  |  ctrl+↑/↓ stricter/looser  |  enter keep  |  esc clear"))
		return b.String()
	}

	b.WriteString(renderFooter(m.metricsLine(),
		"/ search  |  h/l week  |  w pick week  |  n/p page  |  g go to page  |  enter details",
		"i single issues  |  f filter  |  s sync month  |  r refresh  |  q quit"))
	return b.String()
}

func (m Model) renderHealth() string {
	switch m.health {
	case healthOK:
		return okStyle.Render("● service ok")
	case healthDown:
		return errorStyle.Render("● service unreachable")
	default:
		return subtleStyle.Render("○ checking service…")
	}
}

func (m Model) modeLine() string {
	if m.vs.Mode.Kind == browse.ModeSearch {
		return fmt.Sprintf("Search %q", m.vs.Mode.Term)
	}
	return "Week " + browse.WeekLabel(m.vs.Mode.Week)
}

func (m Model) statusLine() string {
	var parts []string
	switch st := m.vs.Status; st.Phase {
	case browse.PhaseLoading:
		parts = append(parts, m.spinner.View()+" Loading…")
	case browse.PhaseError:
		if st.Kind == browse.KindValidation {
			parts = append(parts, warnStyle.Render(st.Message))
		} else {
			parts = append(parts, errorStyle.Render("Error: "+st.Message))
		}
	case browse.PhaseReady:
		parts = append(parts, okStyle.Render(fmt.Sprintf("%s %s", humanize.Comma(int64(m.vs.Total)), plural(m.vs.Total, "release", "releases"))))
	}
	if f := m.vs.Filter; f.Active() {
		var on []string
		if f.SingleIssues {
			on = append(on, "single issues")
		}
		if f.Query != "" {
			on = append(on, fmt.Sprintf("title ~ %q", f.Query))
		}
		parts = append(parts, subtleStyle.Render("filter: "+strings.Join(on, ", ")))
	}
	if m.statusMsg != "" {
		parts = append(parts, subtleStyle.Render(m.statusMsg))
	}
	return strings.Join(parts, "  ")
}

func (m Model) viewList() string {
	var b strings.Builder
	items := m.vs.Visible()
	if len(items) == 0 {
		switch {
		case m.vs.Loading():
		case m.vs.Total > 0:
			b.WriteString(warnStyle.Render("Nothing on this page matches the filter.") + "\n")
		default:
			b.WriteString(subtleStyle.Render("No releases found.") + "\n")
		}
	}
	titleWidth := max(20, min(m.width-40, 60))
	today := releases.NewDate(m.now()).Time
	start, end := m.visibleRows()
	for i := start; i < end; i++ {
		it := items[i]
		title := truncate(it.DisplayTitle(), titleWidth)
		line := fmt.Sprintf("%-*s  %-22s  %s", titleWidth, title, relDate(it.OnsaleDate, today), formatStyle.Render(it.DisplayFormat()))
		if i == m.cursor {
			b.WriteString(cursorBarStyle.Render(" ") + cursorLineStyle.Render(focusStyle.Render(line)) + "\n")
		} else {
			b.WriteString("  " + line + "\n")
		}
	}
	if start > 0 || end < len(items) {
		b.WriteString(subtleStyle.Render(fmt.Sprintf("  rows %d-%d of %d on this page", start+1, end, len(items))) + "\n")
	}
	if m.vs.Total > 0 {
		b.WriteString("\n" + subtleStyle.Render(m.pager.View()))
	}
	return b.String()
}

func (m Model) viewWeekPicker() string {
	var b strings.Builder
	b.WriteString(listHeaderStyle.Render("Pick a week"))
	b.WriteString("\n")
	for i, opt := range m.picker.options {
		cursor := "  "
		if i == m.picker.index {
			cursor = "> "
		}
		line := cursor + opt.Label
		if opt.Anchor.Equal(m.vs.Anchor) {
			line += subtleStyle.Render("  (current)")
		}
		if i == m.picker.index {
			line = focusStyle.Render(line)
		}
		b.WriteString(line + "\n")
	}
	return b.String()
}

func (m Model) viewDetail() string {
	if m.vs.Selected == nil {
		return ""
	}
	it := *m.vs.Selected
	var b strings.Builder
	b.WriteString(listHeaderStyle.Render(it.DisplayTitle()))
	b.WriteString("\n")
	switch {
	case m.detail.loading:
		b.WriteString(m.spinner.View() + " Loading details…\n")
	case m.detail.err != nil:
		b.WriteString(errorStyle.Render(m.detail.err.Error()) + "\n")
	}
	b.WriteString(m.detail.view.View())
	return modalStyle.Render(b.String())
}

func renderDetailBody(it releases.Release, width int) string {
	var b strings.Builder
	row := func(label, value string) {
		if value == "" {
			return
		}
		b.WriteString(subtleStyle.Render(fmt.Sprintf("%-10s", label)) + value + "\n")
	}
	onsale := "date tbd"
	if !it.OnsaleDate.IsZero() {
		onsale = it.OnsaleDate.Format("Monday, Jan 2, 2006")
	}
	row("On sale", onsale)
	row("Format", it.DisplayFormat())
	row("Author", it.Author)
	row("Cover", it.ThumbnailURL)
	if desc := releases.PlainText(it.Description); desc != "" {
		b.WriteString("\n")
		b.WriteString(lipgloss.NewStyle().Width(max(20, width)).Render(desc))
	} else {
		b.WriteString("\n" + subtleStyle.Render("No description."))
	}
	return b.String()
}

func (m Model) metricsLine() string {
	var parts []string
	if ls := m.vs.LastSync; ls != nil {
		parts = append(parts, fmt.Sprintf("last sync %s – %s (+%d/~%d)",
			ls.Start.Format("Jan 2"), ls.End.Format("Jan 2"), ls.Inserted, ls.Updated))
	}
	if m.metrics != nil {
		s := m.metrics.Snapshot()
		parts = append(parts, fmt.Sprintf("requests %s  retries %s  backoff %s  5xx %d  429 %d",
			humanize.Comma(s.TotalRequests), humanize.Comma(s.TotalRetries),
			s.TotalBackoff.Round(time.Millisecond), s.Status5xx, s.Status429))
	}
	return strings.Join(parts, "  |  ")
}

// relDate renders an on-sale date with its distance from today.
func relDate(d releases.Date, today time.Time) string {
	if d.IsZero() {
		return "date tbd"
	}
	label := d.Format("Jan 2")
	switch days := int(d.Sub(today).Hours() / 24); days {
	case 0:
		return label + " (today)"
	case -1:
		return label + " (yesterday)"
	case 1:
		return label + " (tomorrow)"
	}
	return label + " (" + humanize.RelTime(d.Time, today, "ago", "from now") + ")"
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}

func truncate(s string, width int) string {
	r := []rune(s)
	if len(r) <= width {
		return s
	}
	if width <= 1 {
		return string(r[:width])
	}
	return string(r[:width-1]) + "…"
}
