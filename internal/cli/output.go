// pattern: Functional Core
package cli

import (
	"fmt"
	"io"
	"sync"

	"github.com/charmbracelet/x/ansi"
	"github.com/mattn/go-isatty"

	"venvkiller/internal/config"
	"venvkiller/internal/discovery"
)

// progressWidth is the widest progress line written to a terminal.
const progressWidth = 100

// writeTable prints environments as aligned columns.
func writeTable(w io.Writer, envs []discovery.Environment, cfg config.Config) {
	fmt.Fprintf(w, "%-10s %-10s %-7s %-8s %-4s %s\n", "SIZE", "AGE", "CLASS", "PYTHON", "REQ", "PATH")
	for _, e := range envs {
		fmt.Fprintf(w, "%-10s %-10s %-7s %-8s %-4s %s\n",
			discovery.FormatSize(e.SizeBytes),
			discovery.FormatAge(e.AgeDays),
			e.Age(cfg.RecentDays, cfg.OldDays),
			e.InterpreterVersion,
			discovery.YesNo(e.HasManifest),
			e.Path)
	}
}

// writerIsTTY reports whether w is a terminal.
func writerIsTTY(w io.Writer) bool {
	type fder interface {
		Fd() uintptr
	}
	if f, ok := w.(fder); ok {
		return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
	}
	return false
}

// progressPrinter renders batch progress. On a terminal it rewrites one
// line; elsewhere it prints a line each time a new path starts.
type progressPrinter struct {
	mu       sync.Mutex
	w        io.Writer
	tty      bool
	lastDone int
	started  bool
}

func newProgressPrinter(w io.Writer) *progressPrinter {
	return &progressPrinter{w: w, tty: writerIsTTY(w), lastDone: -1}
}

// update has the cleaner.BatchProgressFunc signature.
func (p *progressPrinter) update(done, total int, desc string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if done >= total {
		return
	}
	line := fmt.Sprintf("[%d/%d] %s", done+1, total, desc)
	if p.tty {
		fmt.Fprintf(p.w, "\r%s\x1b[K", ansi.Truncate(line, progressWidth, "…"))
		p.started = true
		return
	}
	if done != p.lastDone {
		p.lastDone = done
		fmt.Fprintln(p.w, line)
	}
}

func (p *progressPrinter) finish() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.tty && p.started {
		fmt.Fprintln(p.w)
	}
}
