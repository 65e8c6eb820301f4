package ui

import "testing"

func TestEnsureCursorInViewScrollsWithMargin(t *testing.T) {
	m := loaded(t, comics(40))
	m.height = 20 // 8 rows, margin 3

	for i := 0; i < 6; i++ {
		m, _ = press(t, m, runes("j"))
	}
	if m.cursor != 6 || m.offset != 2 {
		t.Fatalf("after 6 downs cursor=%d offset=%d, want 6/2", m.cursor, m.offset)
	}
	start, end := m.visibleRows()
	if start != 2 || end != 10 {
		t.Fatalf("visible rows = [%d,%d), want [2,10)", start, end)
	}

	for i := 0; i < 6; i++ {
		m, _ = press(t, m, runes("k"))
	}
	if m.cursor != 0 || m.offset != 0 {
		t.Fatalf("after moving back cursor=%d offset=%d, want 0/0", m.cursor, m.offset)
	}
}

func TestVisibleRowsWithoutSize(t *testing.T) {
	m := loaded(t, comics(5))
	start, end := m.visibleRows()
	if start != 0 || end != 5 {
		t.Fatalf("visible rows = [%d,%d), want [0,5)", start, end)
	}
}
