package ui

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"

	"comicweek/internal/browse"
	"comicweek/internal/releases"
)

// ---------- Messages / Cmds ----------
type startMsg struct{}

// resultMsg carries the outcome of a browse.Request back to the reducer.
type resultMsg struct {
	res browse.Result
}

type detailMsg struct {
	id   int
	item releases.Release
	err  error
}

type healthMsg struct {
	err error
}

func (m Model) execCmd(req browse.Request) tea.Cmd {
	svc, timeout := m.svc, m.timeout()
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		return resultMsg{res: browse.Execute(ctx, svc, req)}
	}
}

// issue turns an optional request into the command that runs it, ticking
// the spinner while it is in flight.
func (m Model) issue(req *browse.Request) tea.Cmd {
	if req == nil {
		return nil
	}
	return tea.Batch(m.spinner.Tick, m.execCmd(*req))
}

func (m Model) detailCmd(id int) tea.Cmd {
	svc, timeout := m.svc, m.timeout()
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		item, err := svc.FetchDetail(ctx, id)
		return detailMsg{id: id, item: item, err: err}
	}
}

func (m Model) healthCmd() tea.Cmd {
	svc, timeout := m.svc, m.timeout()
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		return healthMsg{err: svc.Health(ctx)}
	}
}
