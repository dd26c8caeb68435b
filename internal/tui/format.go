// pattern: Functional Core

package tui

import (
	"fmt"
	"strings"
	"time"

	"venvkiller/internal/discovery"
)

func formatDuration(d time.Duration) string {
	if d < time.Second {
		return d.Round(time.Millisecond).String()
	}
	return d.Round(100 * time.Millisecond).String()
}

// String renders the summary printed after the TUI exits.
func (s Summary) String() string {
	var b strings.Builder
	b.WriteString("Session summary\n")
	fmt.Fprintf(&b, "  Environments found:   %d (%s)\n", s.Found, discovery.FormatSize(s.FoundBytes))
	fmt.Fprintf(&b, "  Environments deleted: %d\n", s.Deleted)
	if s.Failed > 0 {
		fmt.Fprintf(&b, "  Failed deletions:     %d\n", s.Failed)
	}
	fmt.Fprintf(&b, "  Disk space saved:     %s", discovery.FormatSize(s.SavedBytes))
	return b.String()
}
