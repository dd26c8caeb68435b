// pattern: Imperative Shell

// Package watch notices environments that disappear or appear on disk after
// a scan, so the TUI can suggest a rescan.
package watch

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"

	"venvkiller/internal/discovery"
	"venvkiller/internal/logging"
)

// Kind describes what happened to a path.
type Kind int

const (
	// Removed means a tracked environment was deleted or renamed away.
	Removed Kind = iota
	// Appeared means a directory with a conventional environment name was
	// created next to a tracked environment.
	Appeared
)

func (k Kind) String() string {
	if k == Appeared {
		return "appeared"
	}
	return "removed"
}

// Event is a change observed outside the tool.
type Event struct {
	Kind Kind
	Path string
}

const eventBuffer = 64

// Watcher watches the parent directories of tracked environments.
type Watcher struct {
	fsw    *fsnotify.Watcher
	logger *logging.ScopedLogger
	events chan Event

	mu      sync.Mutex
	tracked map[string]bool
	dirs    map[string]bool
}

// New creates a watcher. Call Run to start delivering events.
func New(logger *logging.ScopedLogger) (*Watcher, error) {
	if logger == nil {
		logger = logging.NopLogger()
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	return &Watcher{
		fsw:     fsw,
		logger:  logger,
		events:  make(chan Event, eventBuffer),
		tracked: make(map[string]bool),
		dirs:    make(map[string]bool),
	}, nil
}

// Track replaces the tracked set with envPaths and adjusts the watched
// parent directories. Directories that cannot be watched are skipped.
func (w *Watcher) Track(envPaths []string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	tracked := make(map[string]bool, len(envPaths))
	dirs := make(map[string]bool)
	for _, p := range envPaths {
		p = filepath.Clean(p)
		tracked[p] = true
		dirs[filepath.Dir(p)] = true
	}

	for dir := range w.dirs {
		if !dirs[dir] {
			_ = w.fsw.Remove(dir)
		}
	}

	var errs []error
	watched := make(map[string]bool, len(dirs))
	for dir := range dirs {
		if w.dirs[dir] {
			watched[dir] = true
			continue
		}
		if err := w.fsw.Add(dir); err != nil {
			errs = append(errs, err)
			continue
		}
		watched[dir] = true
	}

	w.tracked = tracked
	w.dirs = watched
	w.logger.Debug("tracking environments", "environments", len(tracked), "directories", len(watched))
	return errors.Join(errs...)
}

// Forget stops reporting path, typically because the tool is deleting it.
func (w *Watcher) Forget(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	delete(w.tracked, filepath.Clean(path))
}

// Events delivers observed changes. It is closed when Run returns.
func (w *Watcher) Events() <-chan Event {
	return w.events
}

// Run processes filesystem notifications until ctx is done or the watcher
// is closed.
func (w *Watcher) Run(ctx context.Context) error {
	defer close(w.events)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			w.handle(ev)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("watch error", "error", err)
		}
	}
}

// Close stops the underlying notifier.
func (w *Watcher) Close() error {
	return w.fsw.Close()
}

func (w *Watcher) handle(ev fsnotify.Event) {
	name := filepath.Clean(ev.Name)

	w.mu.Lock()
	var out []Event
	switch {
	case ev.Has(fsnotify.Remove) || ev.Has(fsnotify.Rename):
		if w.tracked[name] {
			delete(w.tracked, name)
			out = append(out, Event{Kind: Removed, Path: name})
		}
		if w.dirs[name] {
			// The watched parent itself went away.
			delete(w.dirs, name)
			for p := range w.tracked {
				if filepath.Dir(p) == name {
					delete(w.tracked, p)
					out = append(out, Event{Kind: Removed, Path: p})
				}
			}
		}
	case ev.Has(fsnotify.Create):
		if !w.tracked[name] && discovery.IsLikelyEnvName(filepath.Base(name)) {
			if info, err := os.Stat(name); err == nil && info.IsDir() {
				out = append(out, Event{Kind: Appeared, Path: name})
			}
		}
	}
	w.mu.Unlock()

	for _, e := range out {
		w.logger.Info("environment changed on disk", "kind", e.Kind.String(), "path", e.Path)
		select {
		case w.events <- e:
		default:
			w.logger.Warn("dropping watch event", "path", e.Path)
		}
	}
}
