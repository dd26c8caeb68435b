// pattern: Functional Core

package discovery

import (
	"fmt"

	"github.com/dustin/go-humanize"
)

// FormatSize renders a byte count in binary units, e.g. "3.0 MiB".
func FormatSize(n uint64) string {
	return humanize.IBytes(n)
}

// FormatAge renders an age in whole days.
func FormatAge(days int) string {
	switch days {
	case 0:
		return "today"
	case 1:
		return "1 day"
	default:
		return fmt.Sprintf("%d days", days)
	}
}

// YesNo renders a manifest flag for table columns.
func YesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
