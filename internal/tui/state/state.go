package state

func ClampCursor(cursor, size int) int {
	if size <= 0 {
		return 0
	}
	if cursor >= size {
		return size - 1
	}
	if cursor < 0 {
		return 0
	}
	return cursor
}

// PageStep is how many rows a page jump moves inside a column body.
func PageStep(height int, hasStatus bool) int {
	if height <= 0 {
		return 10
	}
	headerLines := 6
	if hasStatus {
		headerLines += 2
	}
	step := height - headerLines
	if step < 3 {
		step = 3
	}
	return step
}

func CenteredWindow(totalRows, cursor, height int) (int, int) {
	if totalRows <= 0 {
		return 0, 0
	}
	if height <= 0 || totalRows <= height {
		return 0, totalRows
	}
	cursor = ClampCursor(cursor, totalRows)
	start := cursor - height/2
	if start < 0 {
		start = 0
	}
	maxStart := totalRows - height
	if start > maxStart {
		start = maxStart
	}
	return start, start + height
}

// ColumnLayout decides how many of count columns fit in width when each
// needs at least minWidth cells, and how wide each visible one is.
func ColumnLayout(width, count, minWidth int) (visible, columnWidth int) {
	if count <= 0 {
		return 0, 0
	}
	if width <= 0 || minWidth <= 0 {
		return count, 0
	}
	visible = width / minWidth
	if visible < 1 {
		visible = 1
	}
	if visible > count {
		visible = count
	}
	return visible, width / visible
}

// ColumnWindow keeps the selected column inside the visible range
// [start, start+visible), scrolling as little as possible from prevStart.
func ColumnWindow(count, visible, selected, prevStart int) int {
	if visible <= 0 || count <= visible {
		return 0
	}
	selected = ClampCursor(selected, count)
	start := prevStart
	if selected < start {
		start = selected
	}
	if selected >= start+visible {
		start = selected - visible + 1
	}
	if maxStart := count - visible; start > maxStart {
		start = maxStart
	}
	if start < 0 {
		start = 0
	}
	return start
}
