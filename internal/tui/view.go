// pattern: Imperative Shell

package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
	"github.com/dustin/go-humanize"

	"venvkiller/internal/discovery"
	"venvkiller/internal/logging"
)

// Column widths of the environment table. The path column takes the rest.
const (
	markWidth    = 2
	sizeWidth    = 10
	ageWidth     = 9
	pythonWidth  = 8
	reqWidth     = 3
	columnGap    = 1
	minPathWidth = 10
)

// View renders the UI.
func (m Model) View() string {
	if m.width == 0 || m.height == 0 {
		return "Loading..."
	}

	if m.confirmOpen {
		return m.renderDialog(m.styles.DialogStyle(), m.confirmMessage+"\n\n"+
			m.styles.HelpStyle().Render("enter/y: delete • esc/n: cancel"))
	}
	if m.failuresOpen {
		return m.renderDialog(m.styles.BoxStyle(), m.renderFailures())
	}

	layout := m.layout()
	sections := []string{m.renderHeader(layout)}
	if m.deleting {
		sections = append(sections, m.renderProgress())
	}
	sections = append(sections, m.renderTable(layout))
	if layout.Details.Height > 0 {
		sections = append(sections, m.renderDetails(layout))
	}
	if m.logPanelOpen {
		sections = append(sections,
			m.styles.HelpStyle().Render(strings.Repeat("─", max(0, layout.Separator.Width))),
			m.renderLogPanel(layout))
	}
	sections = append(sections, "", m.renderStatusBar(layout.StatusBar.Width))

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (m Model) renderDialog(style lipgloss.Style, content string) string {
	box := style.Render(content)
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, box)
}

func (m Model) renderHeader(layout Layout) string {
	title := m.styles.TitleStyle().Render("venvkiller") + " " +
		m.styles.SubtitleStyle().Render(ansi.Truncate(m.root, max(0, layout.Header.Width-12), "…"))
	return title + "\n" + m.renderStats()
}

// renderStats builds the "Found / Saved / Scan" line.
func (m Model) renderStats() string {
	label, value := m.styles.StatLabelStyle(), m.styles.StatValueStyle()
	stat := func(name, v string) string {
		return label.Render(name+": ") + value.Render(v)
	}

	parts := []string{}
	if m.scanning {
		parts = append(parts, m.spinner.View()+" "+label.Render("scanning..."))
	} else {
		parts = append(parts, stat("Found", fmt.Sprintf("%d (%s)", m.foundCount, discovery.FormatSize(m.foundBytes))))
		parts = append(parts, stat("Scan", formatDuration(m.scanDuration)))
	}
	parts = append(parts, stat("Saved", fmt.Sprintf("%s (%d deleted)", discovery.FormatSize(m.savedBytes), len(m.deleted))))
	if paths, total := m.markedPaths(); len(paths) > 0 {
		parts = append(parts, stat("Marked", fmt.Sprintf("%d (%s)", len(paths), discovery.FormatSize(total))))
	}
	return strings.Join(parts, label.Render("  •  "))
}

func (m Model) renderProgress() string {
	var percent float64
	if m.deleteTotal > 0 {
		percent = float64(m.deleteDone) / float64(m.deleteTotal)
	}
	counter := fmt.Sprintf("%s %d/%d ", m.spinner.View(), min(m.deleteDone+1, m.deleteTotal), m.deleteTotal)
	line := counter + m.progress.ViewAs(percent) + " " + m.deleteDesc
	return ansi.Truncate(line, max(0, m.width), "…")
}

func (m Model) pathWidth(width int) int {
	fixed := markWidth + sizeWidth + ageWidth + pythonWidth + reqWidth + 4*columnGap
	return max(minPathWidth, width-fixed)
}

func (m Model) renderTable(layout Layout) string {
	pw := m.pathWidth(layout.Table.Width)
	header := m.styles.TableHeaderStyle().Render(
		fmt.Sprintf("%-*s%-*s %*s %-*s %-*s %-*s",
			markWidth, "",
			pw, "PATH",
			sizeWidth, "SIZE",
			ageWidth, "AGE",
			pythonWidth, "PYTHON",
			reqWidth, "REQ"))

	lines := []string{header}
	if len(m.envs) == 0 {
		msg := "No environments"
		if m.scanning {
			msg = "Scanning..."
		}
		lines = append(lines, m.styles.InfoStatusStyle().Render("  "+msg))
	}

	rows := layout.VisibleRows()
	end := min(len(m.envs), m.offset+rows)
	for i := m.offset; i < end; i++ {
		lines = append(lines, m.renderRow(m.envs[i], i == m.cursor, pw))
	}
	for len(lines) < layout.Table.Height {
		lines = append(lines, "")
	}
	return strings.Join(lines, "\n")
}

func (m Model) renderRow(e discovery.Environment, selected bool, pathWidth int) string {
	mark := "  "
	if m.marked[e.Path] {
		mark = m.styles.MarkStyle().Render("✓ ")
	}

	path := ansi.Truncate(e.Path, pathWidth, "…")
	path += strings.Repeat(" ", max(0, pathWidth-ansi.StringWidth(path)))
	path = m.styles.AgeStyle(e.Age(m.cfg.RecentDays, m.cfg.OldDays)).Render(path)

	rest := fmt.Sprintf(" %*s %-*s %-*s %-*s",
		sizeWidth, discovery.FormatSize(e.SizeBytes),
		ageWidth, discovery.FormatAge(e.AgeDays),
		pythonWidth, ansi.Truncate(e.InterpreterVersion, pythonWidth, ""),
		reqWidth, discovery.YesNo(e.HasManifest))

	row := mark + path + m.styles.InfoStyle().Render(rest)
	if selected {
		return m.styles.SelectedRowStyle().Render(row)
	}
	return row
}

func (m Model) renderDetails(layout Layout) string {
	style := m.styles.BoxStyle().Padding(0, 1)
	inner := max(10, layout.Details.Width-4)

	env, ok := m.Selected()
	if !ok {
		return style.Width(layout.Details.Width - 2).Render(m.styles.InfoStatusStyle().Render("No environment selected"))
	}

	label := m.styles.StatLabelStyle()
	field := func(name, value string) string {
		return ansi.Truncate(label.Render(fmt.Sprintf("%-10s", name))+value, inner, "…")
	}

	manifests := "none"
	if len(env.ManifestPaths) > 0 {
		manifests = strings.Join(env.ManifestPaths, ", ")
	}
	modified := "unknown"
	if !env.ModifiedAt.IsZero() {
		modified = fmt.Sprintf("%s (%s)", env.ModifiedAt.Format("2006-01-02 15:04"), humanize.Time(env.ModifiedAt))
	}

	lines := []string{
		field("Path", env.Path),
		field("Size", fmt.Sprintf("%s (%s bytes)", discovery.FormatSize(env.SizeBytes), humanize.Comma(int64(env.SizeBytes)))),
		field("Modified", modified),
		field("Python", fmt.Sprintf("%s, %d package(s)", env.InterpreterVersion, env.PackageCount)),
		field("Manifest", manifests),
	}
	return style.Width(layout.Details.Width - 2).Render(strings.Join(lines, "\n"))
}

func (m Model) renderFailures() string {
	var b strings.Builder
	b.WriteString(m.styles.ErrorStyle().Render(fmt.Sprintf("%d deletion(s) failed", len(m.lastFailures))))
	b.WriteString("\n")
	width := max(20, m.width-10)
	for _, f := range m.lastFailures {
		b.WriteString("\n")
		b.WriteString(m.styles.InfoStyle().Render(ansi.Truncate(f.Path, width, "…")))
		for _, line := range strings.Split(f.Detail, "\n") {
			b.WriteString("\n  ")
			b.WriteString(m.styles.HelpStyle().Render(ansi.Truncate(line, width-2, "…")))
		}
	}
	b.WriteString("\n\n")
	b.WriteString(m.styles.HelpStyle().Render("esc: close"))
	return b.String()
}

// renderLogEntry formats a single log entry for display.
func (m Model) renderLogEntry(entry logging.LogEntry) string {
	ts := m.styles.LogTimestampStyle().Render(entry.Timestamp.Format("15:04:05"))

	var level string
	switch entry.Level {
	case "DEBUG":
		level = m.styles.LogDebugStyle().Render("DEBUG")
	case "INFO":
		level = m.styles.LogInfoStyle().Render("INFO ")
	case "WARN":
		level = m.styles.LogWarnStyle().Render("WARN ")
	case "ERROR":
		level = m.styles.LogErrorStyle().Render("ERROR")
	default:
		level = m.styles.LogInfoStyle().Render(entry.Level)
	}

	scope := m.styles.LogScopeStyle().Render("[" + entry.Scope + "]")
	return fmt.Sprintf("%s %s %s %s", ts, level, scope, entry.Message)
}

func (m Model) renderLogLines() string {
	if len(m.logEntries) == 0 {
		return m.styles.InfoStatusStyle().Render("No log entries")
	}
	lines := make([]string, len(m.logEntries))
	for i, e := range m.logEntries {
		lines[i] = m.renderLogEntry(e)
	}
	return strings.Join(lines, "\n")
}

func (m Model) renderLogPanel(layout Layout) string {
	header := m.styles.PanelHeaderStyle().Width(layout.Logs.Width).Render(" Logs")
	if m.logReady {
		return lipgloss.JoinVertical(lipgloss.Left, header, m.logViewport.View())
	}
	return lipgloss.JoinVertical(lipgloss.Left,
		header,
		lipgloss.NewStyle().
			Width(layout.Logs.Width).
			Height(max(1, layout.Logs.Height-1)).
			Render(m.renderLogLines()),
	)
}

func (m Model) renderStatusBar(width int) string {
	var statusIcon string
	var messageStyle lipgloss.Style

	switch m.statusLevel {
	case StatusLoading:
		statusIcon = m.spinner.View()
		messageStyle = m.styles.InfoStatusStyle()
	case StatusSuccess:
		statusIcon = m.styles.SuccessStyle().Render("✓")
		messageStyle = m.styles.SuccessStyle()
	case StatusError:
		statusIcon = m.styles.ErrorStyle().Render("✗")
		messageStyle = m.styles.ErrorStyle()
	default:
		messageStyle = m.styles.InfoStatusStyle()
	}

	var statusText string
	if statusIcon != "" {
		statusText = statusIcon + " " + messageStyle.Render(m.statusMessage)
	} else if m.statusMessage != "" {
		statusText = messageStyle.Render(m.statusMessage)
	}
	if m.statusLevel == StatusError && m.err != nil {
		statusText += m.styles.HelpStyle().Render(" (esc to clear)")
	}

	help := m.renderContextualHelp()

	spacerWidth := width - lipgloss.Width(statusText) - lipgloss.Width(help) - 2
	if spacerWidth < 1 {
		spacerWidth = 1
	}

	return lipgloss.JoinHorizontal(lipgloss.Bottom,
		statusText,
		strings.Repeat(" ", spacerWidth),
		help,
	)
}

func (m Model) renderContextualHelp() string {
	var help string
	switch {
	case m.deleting:
		help = "ctrl+c: cancel"
	case len(m.lastFailures) > 0:
		help = "space: mark • a: all • d: delete • f: failures • o: open • r: rescan • l: logs • q: quit"
	default:
		help = "space: mark • a: all • d: delete • o: open • r: rescan • l: logs • q: quit"
	}
	return m.styles.HelpStyle().Render(help)
}
