package tui

import (
	"context"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"venvkiller/internal/cleaner"
	"venvkiller/internal/config"
	"venvkiller/internal/discovery"
	"venvkiller/internal/logging"
	"venvkiller/internal/watch"
)

// StatusLevel selects the icon and color of the status bar message.
type StatusLevel int

const (
	StatusInfo StatusLevel = iota
	StatusLoading
	StatusSuccess
	StatusError
)

// maxLogEntries bounds the log panel history.
const maxLogEntries = 500

// statusClearDelay is how long success messages stay visible.
const statusClearDelay = 6 * time.Second

// Deps wires the model to the rest of the program. Only Config and Root
// are required.
type Deps struct {
	Config  config.Config
	Root    string
	Logs    logging.LoggerProvider
	Entries <-chan logging.LogEntry
	Watcher *watch.Watcher

	// Opener reveals a directory in the platform file manager. Defaults
	// to OpenFolder.
	Opener func(dir string) error
}

// Model represents the TUI application state.
type Model struct {
	width  int
	height int
	styles *Styles

	cfg  config.Config
	root string

	logger     *logging.ScopedLogger
	entries    <-chan logging.LogEntry
	scanner    *discovery.Scanner
	classifier *discovery.Classifier
	engine     *cleaner.Engine
	watcher    *watch.Watcher
	opener     func(dir string) error

	// envs holds the environments still on disk, largest first. Rows
	// leave this slice once deleted.
	envs   []discovery.Environment
	cursor int
	offset int

	// marked and deleted are keyed by environment path.
	marked  map[string]bool
	deleted map[string]bool

	scanning     bool
	scanStarted  time.Time
	scanDuration time.Duration
	foundCount   int
	foundBytes   uint64

	savedBytes  uint64
	failedCount int

	deleting     bool
	deleteCh     <-chan tea.Msg
	deleteCancel context.CancelFunc
	deleteDone   int
	deleteTotal  int
	deleteDesc   string
	lastFailures []cleaner.Failure

	confirmOpen    bool
	confirmMessage string
	failuresOpen   bool

	logPanelOpen bool
	logReady     bool
	logViewport  viewport.Model
	logEntries   []logging.LogEntry

	staleCount int

	spinner       spinner.Model
	progress      progress.Model
	statusLevel   StatusLevel
	statusMessage string
	err           error
}

// NewModel creates a model that starts scanning as soon as it is run.
func NewModel(d Deps) Model {
	styles := NewStyles(d.Config.Theme)

	var logger *logging.ScopedLogger
	if d.Logs != nil {
		logger = d.Logs.For("tui")
	} else {
		logger = logging.NopLogger()
	}
	scopeFor := func(scope string) *logging.ScopedLogger {
		if d.Logs == nil {
			return logging.NopLogger()
		}
		return d.Logs.For(scope)
	}

	opener := d.Opener
	if opener == nil {
		opener = OpenFolder
	}

	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = styles.AccentStyle()

	from, to := styles.ProgressColors()
	bar := progress.New(progress.WithGradient(from, to), progress.WithWidth(40))

	return Model{
		styles:      styles,
		cfg:         d.Config,
		root:        d.Root,
		logger:      logger,
		entries:     d.Entries,
		scanner:     discovery.NewScanner(scopeFor("scan")),
		classifier:  discovery.NewClassifier(scopeFor("classify")),
		engine:      cleaner.NewEngine(scopeFor("delete")),
		watcher:     d.Watcher,
		opener:      opener,
		marked:      make(map[string]bool),
		deleted:     make(map[string]bool),
		scanning:    true,
		scanStarted: time.Now(),
		spinner:     s,
		progress:    bar,
	}
}

// Init returns the initial command to run.
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		m.spinner.Tick,
		m.scan(),
		m.consumeLogEntries(),
		m.waitForWatch(),
	)
}

// scan returns a command that finds and classifies environments under the
// root.
func (m Model) scan() tea.Cmd {
	scanner, classifier, root := m.scanner, m.classifier, m.root
	opts := discovery.Options{MaxDepth: m.cfg.MaxDepth, Exclude: m.cfg.Exclude, Parallel: m.cfg.Parallel}
	started := m.scanStarted
	return func() tea.Msg {
		envs, err := discovery.Find(context.Background(), scanner, classifier, root, opts)
		return scanDoneMsg{envs: envs, duration: time.Since(started), err: err}
	}
}

// consumeLogEntries returns a command that batches whatever log entries are
// waiting, blocking for the first one.
func (m Model) consumeLogEntries() tea.Cmd {
	ch := m.entries
	if ch == nil {
		return nil
	}
	return func() tea.Msg {
		first, ok := <-ch
		if !ok {
			return nil
		}
		batch := []logging.LogEntry{first}
		for len(batch) < 64 {
			select {
			case e, ok := <-ch:
				if !ok {
					return logEntriesMsg{entries: batch}
				}
				batch = append(batch, e)
			default:
				return logEntriesMsg{entries: batch}
			}
		}
		return logEntriesMsg{entries: batch}
	}
}

// waitForWatch returns a command that delivers the next watcher event.
func (m Model) waitForWatch() tea.Cmd {
	if m.watcher == nil {
		return nil
	}
	events := m.watcher.Events()
	return func() tea.Msg {
		ev, ok := <-events
		if !ok {
			return nil
		}
		return watchEventMsg{event: ev}
	}
}

// Summary reports what happened during the session.
type Summary struct {
	Found      int
	FoundBytes uint64
	Deleted    int
	SavedBytes uint64
	Failed     int
}

// Summary returns the session totals shown after the TUI exits.
func (m Model) Summary() Summary {
	return Summary{
		Found:      m.foundCount,
		FoundBytes: m.foundBytes,
		Deleted:    len(m.deleted),
		SavedBytes: m.savedBytes,
		Failed:     m.failedCount,
	}
}

// Selected returns the environment under the cursor.
func (m Model) Selected() (discovery.Environment, bool) {
	if m.cursor < 0 || m.cursor >= len(m.envs) {
		return discovery.Environment{}, false
	}
	return m.envs[m.cursor], true
}

// markedPaths returns marked environments in table order.
func (m Model) markedPaths() ([]string, uint64) {
	var paths []string
	var total uint64
	for _, e := range m.envs {
		if m.marked[e.Path] {
			paths = append(paths, e.Path)
			total += e.SizeBytes
		}
	}
	return paths, total
}

func (m *Model) setStatus(level StatusLevel, msg string) {
	m.statusLevel = level
	m.statusMessage = msg
	if level != StatusError {
		m.err = nil
	}
}

func (m *Model) setError(err error) {
	m.statusLevel = StatusError
	m.statusMessage = err.Error()
	m.err = err
}

func (m *Model) clearStatus() {
	m.statusLevel = StatusInfo
	m.statusMessage = ""
	m.err = nil
}

// clearStatusAfter returns a command that clears msg if it is still shown.
func clearStatusAfter(msg string) tea.Cmd {
	return tea.Tick(statusClearDelay, func(time.Time) tea.Msg {
		return clearStatusMsg{message: msg}
	})
}
