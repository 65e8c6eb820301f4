package ui

// listHeight is the number of release rows that fit on screen; 0 means the
// terminal size is not known yet and every row is drawn.
func (m Model) listHeight() int {
	if m.height == 0 {
		return 0
	}
	return max(3, m.height-12)
}

// ensureCursorInView adjusts the list offset so that the cursor row is
// within the visible window with a scroll margin.
func (m *Model) ensureCursorInView() {
	height := m.listHeight()
	n := len(m.vs.Visible())
	if height == 0 || n <= height {
		m.offset = 0
		return
	}

	scrollMargin := 3
	if height < 8 {
		scrollMargin = 1
	}

	top := m.offset
	bottom := top + height - 1
	switch {
	case m.cursor < top+scrollMargin:
		m.offset = max(0, m.cursor-scrollMargin)
	case m.cursor > bottom-scrollMargin:
		m.offset = m.cursor - height + scrollMargin + 1
	}
	m.offset = min(max(0, m.offset), n-height)
}

// visibleRows returns the window of rows to draw and the index of its first row.
func (m Model) visibleRows() (int, int) {
	n := len(m.vs.Visible())
	height := m.listHeight()
	if height == 0 || n <= height {
		return 0, n
	}
	start := min(m.offset, n-height)
	return start, start + height
}
