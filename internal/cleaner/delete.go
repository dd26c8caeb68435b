// pattern: Imperative Shell

package cleaner

import (
	"context"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"

	"venvkiller/internal/logging"
)

// maxReportedErrors is how many individual errors a failure detail lists.
const maxReportedErrors = 3

// ProgressFunc receives the running byte count during a single deletion.
// bytesDone never decreases between calls.
type ProgressFunc func(bytesDone, bytesTotal uint64)

// Outcome is the result of deleting one directory.
type Outcome struct {
	Path       string
	Success    bool
	BytesFreed uint64
	Detail     string // Empty on clean success
}

// Engine deletes directory trees while tolerating per-entry failures.
type Engine struct {
	fs     FS
	logger *logging.ScopedLogger
}

// NewEngine creates an engine operating on the real filesystem.
func NewEngine(logger *logging.ScopedLogger) *Engine {
	return NewEngineWithFS(OSFS{}, logger)
}

// NewEngineWithFS creates an engine operating on fsys. A nil fsys means OSFS
// and a nil logger disables logging.
func NewEngineWithFS(fsys FS, logger *logging.ScopedLogger) *Engine {
	if fsys == nil {
		fsys = OSFS{}
	}
	if logger == nil {
		logger = logging.NopLogger()
	}
	return &Engine{fs: fsys, logger: logger}
}

// deletion is the state of one DeleteOne call.
type deletion struct {
	ctx        context.Context
	fs         FS
	onProgress ProgressFunc
	total      uint64
	done       uint64
	errs       []string
}

// DeleteOne removes path and everything below it. Files are deleted first,
// reporting progress after each one, then directories deepest first, then
// path itself. Errors on individual entries are collected without stopping
// the walk. onProgress may be nil.
//
// Cancelling ctx stops the walk between filesystem operations; path is then
// left in place and the outcome reports the bytes freed so far.
func (e *Engine) DeleteOne(ctx context.Context, path string, onProgress ProgressFunc) (out Outcome) {
	out.Path = path
	log := e.logger.With("path", path)

	defer func() {
		if r := recover(); r != nil {
			log.Error("deletion panicked", "panic", r)
			out.Success = false
			out.Detail = fmt.Sprintf("unexpected error during deletion: %v", r)
		}
	}()

	info, err := e.fs.Lstat(path)
	if err != nil {
		out.Detail = fmt.Sprintf("directory does not exist: %s", path)
		return out
	}
	if !info.IsDir() {
		out.Detail = fmt.Sprintf("not a directory: %s", path)
		return out
	}

	d := &deletion{
		ctx:        ctx,
		fs:         e.fs,
		onProgress: onProgress,
		total:      measure(e.fs, path),
	}
	log.Debug("deleting", "bytes_total", d.total)

	d.removeContents(path)
	out.BytesFreed = d.done

	if err := ctx.Err(); err != nil {
		log.Warn("deletion cancelled", "bytes_freed", d.done)
		out.Detail = fmt.Sprintf("deletion cancelled: %v", err)
		return out
	}

	if err := e.fs.Remove(path); err != nil {
		if err := e.fs.RemoveAll(path); err != nil {
			d.errs = append(d.errs, fmt.Sprintf("error deleting root directory %s: %v", path, err))
		}
	}

	switch {
	case len(d.errs) == 0:
		out.Success = true
		log.Info("deleted", "bytes_freed", d.done)
	case d.done > 0:
		out.Success = true
		out.Detail = fmt.Sprintf("partially deleted (%d errors)", len(d.errs))
		log.Warn("partially deleted", "bytes_freed", d.done, "errors", len(d.errs))
	default:
		out.Detail = summarizeErrors(d.errs)
		log.Error("deletion failed", "errors", len(d.errs), "first", d.errs[0])
	}
	return out
}

// removeContents deletes the files of dir, then each subdirectory after its
// own contents. Subdirectory symlinks are removed as links, never followed.
func (d *deletion) removeContents(dir string) {
	entries, err := d.fs.ReadDir(dir)
	if err != nil {
		d.errs = append(d.errs, fmt.Sprintf("error reading directory %s: %v", dir, err))
		return
	}

	var subdirs []string
	for _, entry := range entries {
		child := filepath.Join(dir, entry.Name())
		if entry.IsDir() {
			subdirs = append(subdirs, child)
			continue
		}
		if d.ctx.Err() != nil {
			return
		}
		d.removeFile(child, entry)
	}

	for _, sub := range subdirs {
		if d.ctx.Err() != nil {
			return
		}
		d.removeContents(sub)
		if d.ctx.Err() != nil {
			return
		}
		if err := d.fs.Remove(sub); err != nil {
			d.errs = append(d.errs, fmt.Sprintf("error deleting directory %s: %v", sub, err))
		}
	}
}

func (d *deletion) removeFile(path string, entry fs.DirEntry) {
	var size uint64
	if info, err := entry.Info(); err == nil {
		size = uint64(info.Size())
	}
	if err := d.fs.Remove(path); err != nil {
		d.errs = append(d.errs, fmt.Sprintf("error deleting file %s: %v", path, err))
		return
	}
	d.done += size
	if d.onProgress != nil {
		d.onProgress(d.done, d.total)
	}
}

// measure sums the sizes of non-directory entries below root, ignoring
// anything that cannot be read.
func measure(fsys FS, root string) uint64 {
	entries, err := fsys.ReadDir(root)
	if err != nil {
		return 0
	}
	var total uint64
	for _, entry := range entries {
		if entry.IsDir() {
			total += measure(fsys, filepath.Join(root, entry.Name()))
			continue
		}
		if info, err := entry.Info(); err == nil {
			total += uint64(info.Size())
		}
	}
	return total
}

// Measure returns the current size of the tree at path.
func (e *Engine) Measure(path string) uint64 {
	return measure(e.fs, path)
}

// summarizeErrors lists the first few errors and counts the rest.
func summarizeErrors(errs []string) string {
	if len(errs) <= maxReportedErrors {
		return strings.Join(errs, "\n")
	}
	return fmt.Sprintf("%s (and %d more errors)",
		strings.Join(errs[:maxReportedErrors], "\n"), len(errs)-maxReportedErrors)
}
