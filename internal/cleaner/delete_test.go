package cleaner

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// faultyFS wraps OSFS and fails Remove for selected paths. stuckOn fails
// only the single-entry Remove, leaving RemoveAll working.
type faultyFS struct {
	OSFS
	mu        sync.Mutex
	failOn    map[string]bool
	stuckOn   map[string]bool
	failAll   bool
	removed   []string
	panicRead bool
}

func (f *faultyFS) Remove(name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failAll || f.failOn[name] || f.stuckOn[name] {
		return &fs.PathError{Op: "remove", Path: name, Err: errors.New("file is locked")}
	}
	f.removed = append(f.removed, name)
	return os.Remove(name)
}

func (f *faultyFS) RemoveAll(name string) error {
	if f.failAll || f.failOn[name] {
		return &fs.PathError{Op: "removeall", Path: name, Err: errors.New("file is locked")}
	}
	return os.RemoveAll(name)
}

func (f *faultyFS) ReadDir(name string) ([]fs.DirEntry, error) {
	if f.panicRead {
		panic("disk on fire")
	}
	return os.ReadDir(name)
}

func writeFile(t *testing.T, path string, size int) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(strings.Repeat("x", size)), 0o644))
}

// buildVenv creates a small environment tree totalling 1000 bytes.
func buildVenv(t *testing.T, root string) string {
	t.Helper()
	writeFile(t, filepath.Join(root, "pyvenv.cfg"), 100)
	writeFile(t, filepath.Join(root, "bin", "activate"), 200)
	writeFile(t, filepath.Join(root, "lib", "python3.11", "site-packages", "pkg", "__init__.py"), 300)
	writeFile(t, filepath.Join(root, "lib", "python3.11", "site-packages", "pkg", "core.py"), 400)
	return root
}

func TestDeleteOne_RemovesEverything(t *testing.T) {
	venv := buildVenv(t, filepath.Join(t.TempDir(), "venv"))

	var calls []uint64
	out := NewEngine(nil).DeleteOne(context.Background(), venv, func(done, total uint64) {
		assert.Equal(t, uint64(1000), total)
		calls = append(calls, done)
	})

	assert.True(t, out.Success)
	assert.Empty(t, out.Detail)
	assert.Equal(t, uint64(1000), out.BytesFreed)
	assert.NoDirExists(t, venv)

	require.Len(t, calls, 4)
	for i := 1; i < len(calls); i++ {
		assert.GreaterOrEqual(t, calls[i], calls[i-1], "progress must be monotonic")
	}
	assert.Equal(t, uint64(1000), calls[len(calls)-1])
}

func TestDeleteOne_EmptyDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "empty")
	require.NoError(t, os.Mkdir(dir, 0o755))

	out := NewEngine(nil).DeleteOne(context.Background(), dir, nil)
	assert.True(t, out.Success)
	assert.Zero(t, out.BytesFreed)
	assert.NoDirExists(t, dir)
}

func TestDeleteOne_Preconditions(t *testing.T) {
	base := t.TempDir()
	file := filepath.Join(base, "file.txt")
	writeFile(t, file, 10)

	tests := []struct {
		name   string
		path   string
		detail string
	}{
		{"missing path", filepath.Join(base, "does-not-exist"), "does not exist"},
		{"regular file", file, "not a directory"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			called := false
			out := NewEngine(nil).DeleteOne(context.Background(), tt.path, func(uint64, uint64) { called = true })
			assert.False(t, out.Success)
			assert.Contains(t, out.Detail, tt.detail)
			assert.Zero(t, out.BytesFreed)
			assert.False(t, called)
		})
	}
	assert.FileExists(t, file)
}

func TestDeleteOne_SymlinkIsNotFollowed(t *testing.T) {
	base := t.TempDir()
	outside := filepath.Join(base, "outside")
	writeFile(t, filepath.Join(outside, "keep.txt"), 50)

	venv := buildVenv(t, filepath.Join(base, "venv"))
	require.NoError(t, os.Symlink(outside, filepath.Join(venv, "lib", "linked")))

	out := NewEngine(nil).DeleteOne(context.Background(), venv, nil)
	assert.True(t, out.Success)
	assert.NoDirExists(t, venv)
	assert.FileExists(t, filepath.Join(outside, "keep.txt"))
}

func TestDeleteOne_PartialFailure(t *testing.T) {
	venv := buildVenv(t, filepath.Join(t.TempDir(), "venv"))
	locked := filepath.Join(venv, "bin", "activate")

	fsys := &faultyFS{failOn: map[string]bool{
		locked:                       true,
		filepath.Join(venv, "bin"): true,
		venv:                         true,
	}}
	out := NewEngineWithFS(fsys, nil).DeleteOne(context.Background(), venv, nil)

	assert.True(t, out.Success, "bytes were freed so the outcome counts as success")
	assert.Equal(t, uint64(800), out.BytesFreed)
	assert.Equal(t, "partially deleted (3 errors)", out.Detail)
	assert.FileExists(t, locked)
	assert.NoFileExists(t, filepath.Join(venv, "pyvenv.cfg"))
}

func TestDeleteOne_RootRemoveFallsBackToRemoveAll(t *testing.T) {
	venv := buildVenv(t, filepath.Join(t.TempDir(), "venv"))
	fsys := &faultyFS{stuckOn: map[string]bool{venv: true}}

	out := NewEngineWithFS(fsys, nil).DeleteOne(context.Background(), venv, nil)

	assert.True(t, out.Success)
	assert.Empty(t, out.Detail)
	assert.Equal(t, uint64(1000), out.BytesFreed)
	assert.NoDirExists(t, venv)
}

func TestDeleteOne_NothingFreed(t *testing.T) {
	venv := buildVenv(t, filepath.Join(t.TempDir(), "venv"))

	out := NewEngineWithFS(&faultyFS{failAll: true}, nil).DeleteOne(context.Background(), venv, nil)

	assert.False(t, out.Success)
	assert.Zero(t, out.BytesFreed)
	// 4 files plus 5 directories plus the root.
	lines := strings.Split(out.Detail, "\n")
	require.Len(t, lines, 3)
	assert.True(t, strings.HasSuffix(out.Detail, "(and 7 more errors)"), out.Detail)
	assert.DirExists(t, venv)
}

func TestDeleteOne_RecoversFromPanic(t *testing.T) {
	venv := buildVenv(t, filepath.Join(t.TempDir(), "venv"))

	out := NewEngineWithFS(&faultyFS{panicRead: true}, nil).DeleteOne(context.Background(), venv, nil)
	assert.False(t, out.Success)
	assert.Contains(t, out.Detail, "unexpected error during deletion")
	assert.Contains(t, out.Detail, "disk on fire")
}

func TestDeleteOne_Cancelled(t *testing.T) {
	venv := buildVenv(t, filepath.Join(t.TempDir(), "venv"))

	ctx, cancel := context.WithCancel(context.Background())
	out := NewEngine(nil).DeleteOne(ctx, venv, func(done, _ uint64) {
		if done > 0 {
			cancel()
		}
	})

	assert.False(t, out.Success)
	assert.Contains(t, out.Detail, "cancelled")
	assert.Positive(t, out.BytesFreed)
	assert.Less(t, out.BytesFreed, uint64(1000))
	assert.DirExists(t, venv)
}

func TestSummarizeErrors(t *testing.T) {
	assert.Equal(t, "a\nb", summarizeErrors([]string{"a", "b"}))
	assert.Equal(t, "a\nb\nc", summarizeErrors([]string{"a", "b", "c"}))
	assert.Equal(t, "a\nb\nc (and 2 more errors)", summarizeErrors([]string{"a", "b", "c", "d", "e"}))
}

func TestMeasure(t *testing.T) {
	venv := buildVenv(t, filepath.Join(t.TempDir(), "venv"))
	e := NewEngine(nil)
	assert.Equal(t, uint64(1000), e.Measure(venv))
	assert.Zero(t, e.Measure(filepath.Join(venv, "missing")))
}
