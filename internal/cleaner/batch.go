// pattern: Imperative Shell

package cleaner

import (
	"context"
	"fmt"
)

// BatchProgressFunc receives batch progress. done counts paths already
// processed (successfully or not) and description names the current path
// with its byte-level percentage.
type BatchProgressFunc func(done, total int, description string)

// Failure records a path that could not be deleted.
type Failure struct {
	Path   string
	Detail string
}

// Report aggregates a batch deletion. Deleted + len(Failures) always equals
// the number of requested paths.
type Report struct {
	Deleted    int
	BytesFreed uint64
	Failures   []Failure
	Outcomes   []Outcome
}

// Describe returns a one-line summary suitable for a status bar.
func (r Report) Describe(format func(uint64) string) string {
	if len(r.Failures) == 0 {
		return fmt.Sprintf("Deleted %d environment(s), freed %s", r.Deleted, format(r.BytesFreed))
	}
	return fmt.Sprintf("Deleted %d environment(s), freed %s, %d failed",
		r.Deleted, format(r.BytesFreed), len(r.Failures))
}

// DeleteMany deletes paths one at a time. Each path is measured just before
// it is deleted and that size is credited to BytesFreed when the deletion
// succeeds. onProgress may be nil.
//
// If ctx is cancelled, the path in flight stops early and every remaining
// path is reported as a failure.
func (e *Engine) DeleteMany(ctx context.Context, paths []string, onProgress BatchProgressFunc) Report {
	total := len(paths)
	report := Report{Outcomes: make([]Outcome, 0, total)}

	emit := func(done int, desc string) {
		if onProgress != nil {
			onProgress(done, total, desc)
		}
	}

	for i, path := range paths {
		if err := ctx.Err(); err != nil {
			for _, rest := range paths[i:] {
				detail := fmt.Sprintf("deletion cancelled: %v", err)
				report.Failures = append(report.Failures, Failure{Path: rest, Detail: detail})
				report.Outcomes = append(report.Outcomes, Outcome{Path: rest, Detail: detail})
			}
			break
		}

		size := e.Measure(path)
		emit(i, describe(path, 0, size))

		out := e.DeleteOne(ctx, path, func(bytesDone, bytesTotal uint64) {
			emit(i, describe(path, bytesDone, bytesTotal))
		})
		report.Outcomes = append(report.Outcomes, out)

		if out.Success {
			report.Deleted++
			report.BytesFreed += size
		} else {
			report.Failures = append(report.Failures, Failure{Path: path, Detail: out.Detail})
		}
	}

	e.logger.Info("batch finished",
		"requested", total,
		"deleted", report.Deleted,
		"failed", len(report.Failures),
		"bytes_freed", report.BytesFreed)
	emit(total, "done")
	return report
}

// describe formats "<path> (NN%)".
func describe(path string, done, total uint64) string {
	pct := 0
	if total > 0 {
		pct = int(done * 100 / total)
		if pct > 100 {
			pct = 100
		}
	}
	return fmt.Sprintf("%s (%d%%)", path, pct)
}
