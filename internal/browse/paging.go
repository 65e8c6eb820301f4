package browse

// PageCount is max(1, ceil(total/size)).
func PageCount(total, size int) int {
	if size < 1 || total <= 0 {
		return 1
	}
	return (total + size - 1) / size
}

// ClampPage bounds page to [1, PageCount(total, size)].
func ClampPage(page, total, size int) int {
	return min(max(page, 1), PageCount(total, size))
}

// PageSlice returns the window of items shown on page. Out of range pages
// are clamped first, so the result is empty only when items is.
func PageSlice[T any](items []T, page, size int) []T {
	if size < 1 || len(items) == 0 {
		return nil
	}
	page = ClampPage(page, len(items), size)
	lo := (page - 1) * size
	hi := min(lo+size, len(items))
	return items[lo:hi]
}
