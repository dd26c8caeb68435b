// pattern: Imperative Shell

package tui

import (
	"context"
	"fmt"
	"path/filepath"
	"slices"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"venvkiller/internal/cleaner"
	"venvkiller/internal/discovery"
	"venvkiller/internal/logging"
	"venvkiller/internal/watch"
)

type scanDoneMsg struct {
	envs     []discovery.Environment
	duration time.Duration
	err      error
}

type deleteProgressMsg struct {
	done  int
	total int
	desc  string
}

type deleteDoneMsg struct {
	report cleaner.Report
}

type watchEventMsg struct {
	event watch.Event
}

type logEntriesMsg struct {
	entries []logging.LogEntry
}

type folderOpenedMsg struct {
	dir string
	err error
}

type clearStatusMsg struct {
	message string
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.progress.Width = min(40, max(10, m.width-30))
		m.resizeLogViewport()
		m.clampCursor()
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case scanDoneMsg:
		return m.handleScanDone(msg)

	case deleteProgressMsg:
		m.deleteDone = msg.done
		m.deleteTotal = msg.total
		m.deleteDesc = msg.desc
		return m, waitForDelete(m.deleteCh)

	case deleteDoneMsg:
		return m.handleDeleteDone(msg)

	case watchEventMsg:
		m.staleCount++
		m.logger.Debug("filesystem change", "kind", msg.event.Kind.String(), "path", msg.event.Path)
		if !m.deleting && !m.scanning {
			m.setStatus(StatusInfo, fmt.Sprintf("%d change(s) on disk since the last scan (r to rescan)", m.staleCount))
		}
		return m, m.waitForWatch()

	case logEntriesMsg:
		m.logEntries = append(m.logEntries, msg.entries...)
		if over := len(m.logEntries) - maxLogEntries; over > 0 {
			m.logEntries = slices.Clone(m.logEntries[over:])
		}
		if m.logPanelOpen && m.logReady {
			m.updateLogViewportContent()
		}
		return m, m.consumeLogEntries()

	case folderOpenedMsg:
		if msg.err != nil {
			m.logger.Warn("open folder failed", "dir", msg.dir, "error", msg.err)
			m.setError(fmt.Errorf("open %s: %w", msg.dir, msg.err))
		}
		return m, nil

	case clearStatusMsg:
		if m.statusLevel != StatusError && m.statusMessage == msg.message {
			m.clearStatus()
		}
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	if m.logPanelOpen && m.logReady {
		var cmd tea.Cmd
		m.logViewport, cmd = m.logViewport.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m Model) handleScanDone(msg scanDoneMsg) (tea.Model, tea.Cmd) {
	m.scanning = false
	m.scanDuration = msg.duration
	if msg.err != nil {
		m.logger.Error("scan failed", "root", m.root, "error", msg.err)
		m.setError(fmt.Errorf("scan failed: %w", msg.err))
		return m, nil
	}

	m.envs = msg.envs
	m.foundCount = len(msg.envs)
	m.foundBytes = discovery.TotalSize(msg.envs)
	m.staleCount = 0
	m.cursor, m.offset = 0, 0

	// Marks survive a rescan only for paths that still exist.
	kept := make(map[string]bool)
	for _, e := range m.envs {
		if m.marked[e.Path] {
			kept[e.Path] = true
		}
	}
	m.marked = kept

	m.logger.Info("scan complete", "root", m.root, "found", m.foundCount, "duration", msg.duration.String())

	if m.watcher != nil {
		paths := make([]string, len(m.envs))
		for i, e := range m.envs {
			paths[i] = e.Path
		}
		if err := m.watcher.Track(paths); err != nil {
			m.logger.Warn("watch failed", "error", err)
		}
	}

	if len(m.envs) == 0 {
		m.setStatus(StatusInfo, "No virtual environments found under "+m.root)
		return m, nil
	}
	text := fmt.Sprintf("Found %d environment(s)", len(m.envs))
	m.setStatus(StatusSuccess, text)
	return m, clearStatusAfter(text)
}

func (m Model) handleDeleteDone(msg deleteDoneMsg) (tea.Model, tea.Cmd) {
	report := msg.report
	m.deleting = false
	m.deleteCh = nil
	m.deleteCancel = nil

	gone := make(map[string]bool)
	for _, o := range report.Outcomes {
		delete(m.marked, o.Path)
		if o.Success {
			m.deleted[o.Path] = true
			gone[o.Path] = true
		}
	}
	m.envs = slices.DeleteFunc(m.envs, func(e discovery.Environment) bool { return gone[e.Path] })
	m.savedBytes += report.BytesFreed
	m.failedCount += len(report.Failures)
	m.lastFailures = report.Failures
	m.clampCursor()

	text := report.Describe(discovery.FormatSize)
	m.logger.Info("deletion finished", "deleted", report.Deleted, "freed", report.BytesFreed, "failed", len(report.Failures))
	if len(report.Failures) > 0 {
		m.setError(fmt.Errorf("%s (f for details)", text))
		return m, nil
	}
	m.setStatus(StatusSuccess, text)
	return m, clearStatusAfter(text)
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.Type == tea.KeyCtrlC {
		if m.deleting {
			if m.deleteCancel != nil {
				m.deleteCancel()
			}
			m.setStatus(StatusLoading, "Cancelling deletion...")
			return m, nil
		}
		return m, tea.Quit
	}

	if m.confirmOpen {
		return m.handleConfirmKey(msg)
	}

	if m.failuresOpen {
		switch msg.String() {
		case "esc", "f", "q", "enter":
			m.failuresOpen = false
		}
		return m, nil
	}

	if msg.Type == tea.KeyEscape && m.statusLevel == StatusError {
		m.clearStatus()
		return m, nil
	}

	switch msg.String() {
	case "q":
		if m.deleting {
			m.setStatus(StatusInfo, "Deletion in progress, ctrl+c to cancel")
			return m, nil
		}
		return m, tea.Quit

	case "up", "k":
		m.moveCursor(-1)
	case "down", "j":
		m.moveCursor(1)
	case "pgup":
		m.moveCursor(-m.layout().VisibleRows())
	case "pgdown":
		m.moveCursor(m.layout().VisibleRows())
	case "home", "g":
		m.moveCursor(-len(m.envs))
	case "end", "G":
		m.moveCursor(len(m.envs))

	case " ":
		if env, ok := m.Selected(); ok && !m.deleting {
			if m.marked[env.Path] {
				delete(m.marked, env.Path)
			} else {
				m.marked[env.Path] = true
			}
			m.moveCursor(1)
		}

	case "a":
		if m.deleting {
			return m, nil
		}
		if paths, _ := m.markedPaths(); len(paths) == len(m.envs) {
			m.marked = make(map[string]bool)
		} else {
			for _, e := range m.envs {
				m.marked[e.Path] = true
			}
		}

	case "d":
		return m.requestDelete()

	case "o":
		env, ok := m.Selected()
		if !ok {
			return m, nil
		}
		dir := filepath.Dir(env.Path)
		opener := m.opener
		return m, func() tea.Msg {
			return folderOpenedMsg{dir: dir, err: opener(dir)}
		}

	case "r":
		if m.deleting || m.scanning {
			return m, nil
		}
		m.scanning = true
		m.scanStarted = time.Now()
		m.setStatus(StatusLoading, "Scanning "+m.root+"...")
		return m, m.scan()

	case "f":
		if len(m.lastFailures) > 0 {
			m.failuresOpen = true
		}

	case "l", "L":
		m.logPanelOpen = !m.logPanelOpen
		m.resizeLogViewport()
		m.clampCursor()

	default:
		if m.logPanelOpen && m.logReady {
			var cmd tea.Cmd
			m.logViewport, cmd = m.logViewport.Update(msg)
			return m, cmd
		}
	}
	return m, nil
}

func (m Model) requestDelete() (tea.Model, tea.Cmd) {
	if m.deleting || m.scanning {
		return m, nil
	}
	paths, total := m.markedPaths()
	if len(paths) == 0 {
		m.setStatus(StatusInfo, "Nothing marked (space to mark, a for all)")
		return m, nil
	}
	if !m.cfg.ConfirmDelete {
		return m.startDelete(paths)
	}
	m.confirmOpen = true
	m.confirmMessage = fmt.Sprintf("Delete %d environment(s), %s?\nThis cannot be undone.", len(paths), discovery.FormatSize(total))
	return m, nil
}

// handleConfirmKey processes key events when the confirmation dialog is open.
func (m Model) handleConfirmKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc", "n", "N":
		m.confirmOpen = false
		m.confirmMessage = ""
		return m, nil
	case "enter", "y", "Y":
		m.confirmOpen = false
		m.confirmMessage = ""
		paths, _ := m.markedPaths()
		if len(paths) == 0 {
			return m, nil
		}
		return m.startDelete(paths)
	}
	return m, nil
}

// startDelete runs the batch on a goroutine and streams its progress back
// through a channel.
func (m Model) startDelete(paths []string) (tea.Model, tea.Cmd) {
	ch := make(chan tea.Msg, 64)
	ctx, cancel := context.WithCancel(context.Background())

	m.deleting = true
	m.deleteCh = ch
	m.deleteCancel = cancel
	m.deleteDone, m.deleteTotal, m.deleteDesc = 0, len(paths), ""
	m.lastFailures = nil
	m.setStatus(StatusLoading, fmt.Sprintf("Deleting %d environment(s)...", len(paths)))
	m.logger.Info("deleting environments", "count", len(paths))

	if m.watcher != nil {
		for _, p := range paths {
			m.watcher.Forget(p)
		}
	}

	engine := m.engine
	go func() {
		defer cancel()
		report := engine.DeleteMany(ctx, paths, func(done, total int, desc string) {
			// Progress may be dropped when the UI falls behind; the next
			// update supersedes it.
			select {
			case ch <- deleteProgressMsg{done: done, total: total, desc: desc}:
			default:
			}
		})
		ch <- deleteDoneMsg{report: report}
		close(ch)
	}()

	return m, waitForDelete(ch)
}

// waitForDelete returns a command that waits for the next deletion message.
func waitForDelete(ch <-chan tea.Msg) tea.Cmd {
	if ch == nil {
		return nil
	}
	return func() tea.Msg {
		msg, ok := <-ch
		if !ok {
			return nil
		}
		return msg
	}
}

func (m *Model) moveCursor(delta int) {
	m.cursor += delta
	m.clampCursor()
}

// clampCursor keeps the cursor on a row and the row inside the window.
func (m *Model) clampCursor() {
	if m.cursor >= len(m.envs) {
		m.cursor = len(m.envs) - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
	rows := m.layout().VisibleRows()
	if m.cursor < m.offset {
		m.offset = m.cursor
	}
	if m.cursor >= m.offset+rows {
		m.offset = m.cursor - rows + 1
	}
	if maxOffset := max(0, len(m.envs)-rows); m.offset > maxOffset {
		m.offset = maxOffset
	}
}

func (m Model) layout() Layout {
	return ComputeLayout(m.width, m.height, m.logPanelOpen, m.deleting)
}

func (m *Model) resizeLogViewport() {
	if !m.logPanelOpen {
		return
	}
	l := m.layout()
	height := max(1, l.Logs.Height-1)
	if !m.logReady {
		m.logViewport = viewport.New(l.Logs.Width, height)
		m.logReady = true
	} else {
		m.logViewport.Width = l.Logs.Width
		m.logViewport.Height = height
	}
	m.updateLogViewportContent()
}

func (m *Model) updateLogViewportContent() {
	m.logViewport.SetContent(m.renderLogLines())
	m.logViewport.GotoBottom()
}
