// pattern: Functional Core

package tui

// Region defines a rectangular area within the terminal.
type Region struct {
	X      int // Left position (0-indexed)
	Y      int // Top position (0-indexed)
	Width  int // Width in cells
	Height int // Height in lines
}

// Layout holds computed regions for all UI components.
type Layout struct {
	Header    Region // Title + stats line
	Progress  Region // Deletion progress bar, zero height when idle
	Table     Region // Environment table including its header row
	Details   Region // Details of the selected environment
	Separator Region // Separator above the log panel
	Logs      Region // Log panel when open
	StatusBar Region // Status bar (1 line)
}

// Fixed heights for chrome elements
const (
	headerHeight    = 2 // Title + stats
	progressHeight  = 1
	detailsHeight   = 7 // Border (2) + five lines of fields
	statusBarHeight = 1
	marginHeight    = 1 // Blank line above the status bar
	separatorHeight = 1
	minTableHeight  = 3 // Header row + two environments
)

// ComputeLayout calculates regions based on terminal dimensions. When
// logPanelOpen is true the space below the header is split 60/40 between
// table and logs. The details panel is dropped when the terminal is too
// short to fit it alongside a usable table.
func ComputeLayout(width, height int, logPanelOpen, deleting bool) Layout {
	fixed := headerHeight + statusBarHeight + marginHeight
	if deleting {
		fixed += progressHeight
	}

	details := detailsHeight
	if height-fixed-details < minTableHeight {
		details = 0
	}
	available := height - fixed - details
	if available < minTableHeight {
		available = minTableHeight
	}

	tableHeight, logsHeight := available, 0
	if logPanelOpen {
		logsHeight = int(float64(available-separatorHeight) * 0.4)
		tableHeight = available - separatorHeight - logsHeight
		if tableHeight < minTableHeight {
			tableHeight = minTableHeight
		}
	}

	y := 0
	var l Layout

	l.Header = Region{X: 0, Y: y, Width: width, Height: headerHeight}
	y += headerHeight

	if deleting {
		l.Progress = Region{X: 0, Y: y, Width: width, Height: progressHeight}
		y += progressHeight
	}

	l.Table = Region{X: 0, Y: y, Width: width, Height: tableHeight}
	y += tableHeight

	if details > 0 {
		l.Details = Region{X: 0, Y: y, Width: width, Height: details}
		y += details
	}

	if logPanelOpen {
		l.Separator = Region{X: 0, Y: y, Width: width, Height: separatorHeight}
		y += separatorHeight
		l.Logs = Region{X: 0, Y: y, Width: width, Height: logsHeight}
		y += logsHeight
	}

	y += marginHeight
	l.StatusBar = Region{X: 0, Y: y, Width: width, Height: statusBarHeight}

	return l
}

// VisibleRows returns how many environments fit in the table region.
func (l Layout) VisibleRows() int {
	rows := l.Table.Height - 1
	if rows < 1 {
		return 1
	}
	return rows
}
