// pattern: Imperative Shell

package discovery

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"venvkiller/internal/logging"
)

// DefaultMaxDepth bounds how far below the root a scan descends.
const DefaultMaxDepth = 5

// markers are checked directly beneath a candidate directory, in order.
var markers = []string{
	"pyvenv.cfg",
	filepath.Join("bin", "activate"),
	filepath.Join("Scripts", "activate"),
	filepath.Join("bin", "python"),
	filepath.Join("Scripts", "python.exe"),
}

// hiddenAllowed lists dot-directories the scanner is willing to enter.
var hiddenAllowed = map[string]bool{
	".venv":       true,
	".env":        true,
	".virtualenv": true,
}

// likelyEnvNames are directory names conventionally used for environments.
// Unlike hiddenAllowed this list does not influence traversal.
var likelyEnvNames = map[string]bool{
	"venv":        true,
	"env":         true,
	".venv":       true,
	".env":        true,
	"virtualenv":  true,
	".virtualenv": true,
	"pyenv":       true,
}

// IsLikelyEnvName reports whether name is a conventional environment name.
func IsLikelyEnvName(name string) bool {
	return likelyEnvNames[strings.ToLower(name)]
}

// DefaultExcludes returns the system directories never worth scanning on
// the current platform.
func DefaultExcludes() []string {
	return defaultExcludesFor(runtime.GOOS)
}

func defaultExcludesFor(goos string) []string {
	if goos == "windows" {
		return []string{"Windows", "Program Files", "Program Files (x86)"}
	}
	return []string{"proc", "sys", "dev", "run"}
}

// IsEnvironment reports whether dir directly contains any environment marker.
func IsEnvironment(dir string) bool {
	for _, m := range markers {
		if _, err := os.Stat(filepath.Join(dir, m)); err == nil {
			return true
		}
	}
	return false
}

// Options controls a single scan.
type Options struct {
	MaxDepth int      // Levels below the root to descend; negative means DefaultMaxDepth
	Exclude  []string // Directory names to skip, merged with DefaultExcludes
	Parallel bool     // Scan each top-level child on the worker pool
	Workers  int      // Pool size; 0 means runtime.NumCPU()
}

// Scanner finds virtual environments below a root directory.
type Scanner struct {
	logger *logging.ScopedLogger
}

// NewScanner creates a scanner. A nil logger disables logging.
func NewScanner(logger *logging.ScopedLogger) *Scanner {
	if logger == nil {
		logger = logging.NopLogger()
	}
	return &Scanner{logger: logger}
}

// walker carries per-scan state shared by sequential and parallel traversal.
type walker struct {
	ctx      context.Context
	root     string
	excluded map[string]bool
	skipped  atomic.Int64 // directories that could not be read
	linked   sync.Map     // resolved symlink targets already entered
}

// Scan returns the roots of all environments below root. Environments are
// never descended into and excluded names stop descent below root.
// Symlinked directories are followed once when they point outside root.
// Directories that cannot be read are skipped and counted in the scan log.
// An error is returned only when root itself is unusable or ctx is
// cancelled; in the latter case the paths found so far are returned
// alongside ctx.Err().
func (s *Scanner) Scan(ctx context.Context, root string, opts Options) ([]string, error) {
	root, err := canonicalRoot(root)
	if err != nil {
		return nil, err
	}

	depth := opts.MaxDepth
	if depth < 0 {
		depth = DefaultMaxDepth
	}

	w := &walker{ctx: ctx, root: root, excluded: make(map[string]bool)}
	for _, name := range DefaultExcludes() {
		w.excluded[name] = true
	}
	for _, name := range opts.Exclude {
		w.excluded[name] = true
	}

	s.logger.Debug("scan started", "root", root, "max_depth", depth, "parallel", opts.Parallel)

	var found []string
	if opts.Parallel {
		found = w.parallel(root, depth, opts.Workers)
	} else {
		found = w.walk(root, depth, nil)
	}

	if err := ctx.Err(); err != nil {
		s.logger.Warn("scan cancelled", "root", root, "found", len(found), "unreadable", w.skipped.Load())
		return found, err
	}

	s.logger.Info("scan finished", "root", root, "found", len(found), "unreadable", w.skipped.Load())
	return found, nil
}

// walk performs the depth-first traversal from dir, appending matches to acc.
func (w *walker) walk(dir string, depth int, acc []string) []string {
	if w.ctx.Err() != nil {
		return acc
	}
	if IsEnvironment(dir) {
		return append(acc, dir)
	}
	if depth <= 0 {
		return acc
	}
	for _, child := range w.children(dir) {
		acc = w.walk(child, depth-1, acc)
	}
	return acc
}

// children lists the subdirectories of dir eligible for descent. A
// symlinked directory is returned as its resolved target.
func (w *walker) children(dir string) []string {
	entries, err := os.ReadDir(dir)
	if err != nil {
		w.skipped.Add(1)
		return nil
	}
	var out []string
	for _, entry := range entries {
		name := entry.Name()
		if w.excluded[name] {
			continue
		}
		if strings.HasPrefix(name, ".") && !hiddenAllowed[strings.ToLower(name)] {
			continue
		}
		child := filepath.Join(dir, name)
		switch {
		case entry.IsDir():
			out = append(out, child)
		case entry.Type()&os.ModeSymlink != 0:
			if target, ok := w.followLink(child); ok {
				out = append(out, target)
			}
		}
	}
	return out
}

// followLink resolves a symlink to a directory outside the scan root. Each
// target is entered at most once per scan, and targets inside root or above
// it are refused so traversal cannot loop or report a path twice.
func (w *walker) followLink(link string) (string, bool) {
	target, err := filepath.EvalSymlinks(link)
	if err != nil {
		return "", false
	}
	info, err := os.Stat(target)
	if err != nil || !info.IsDir() {
		return "", false
	}
	if within(target, w.root) || within(w.root, target) {
		return "", false
	}
	if _, seen := w.linked.LoadOrStore(target, true); seen {
		return "", false
	}
	return target, true
}

// within reports whether path is dir or lies below it.
func within(path, dir string) bool {
	rel, err := filepath.Rel(dir, path)
	if err != nil {
		return false
	}
	return rel == "." || (rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)))
}

// parallel applies the root checks of walk, then scans each eligible child
// of root as an independent unit on a bounded pool.
func (w *walker) parallel(root string, depth, workers int) []string {
	if IsEnvironment(root) {
		return []string{root}
	}
	if depth <= 0 {
		return nil
	}

	top := w.children(root)
	results := make([][]string, len(top))

	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	var g errgroup.Group
	g.SetLimit(workers)
	for i, child := range top {
		g.Go(func() error {
			results[i] = w.walk(child, depth-1, nil)
			return nil
		})
	}
	_ = g.Wait()

	var found []string
	for _, r := range results {
		found = append(found, r...)
	}
	return found
}

// canonicalRoot makes root absolute, resolves symlinks and checks that it is
// a directory.
func canonicalRoot(root string) (string, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return "", fmt.Errorf("resolve scan root: %w", err)
	}
	resolved, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return "", fmt.Errorf("resolve scan root: %w", err)
	}
	info, err := os.Stat(resolved)
	if err != nil {
		return "", fmt.Errorf("scan root: %w", err)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("scan root %s is not a directory", resolved)
	}
	return resolved, nil
}
