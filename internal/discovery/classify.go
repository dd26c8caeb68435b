// pattern: Imperative Shell

package discovery

import (
	"bufio"
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"venvkiller/internal/logging"
)

// Classifier characterizes discovered environments.
type Classifier struct {
	logger *logging.ScopedLogger
	now    func() time.Time
}

// NewClassifier creates a classifier. A nil logger disables logging.
func NewClassifier(logger *logging.ScopedLogger) *Classifier {
	if logger == nil {
		logger = logging.NopLogger()
	}
	return &Classifier{logger: logger, now: time.Now}
}

// Classify builds an Environment for path. It fails only when path itself
// cannot be stat'ed; every other problem degrades to a best-effort value.
func (c *Classifier) Classify(path string) (Environment, error) {
	info, err := os.Stat(path)
	if err != nil {
		return Environment{}, fmt.Errorf("classify %s: %w", path, err)
	}

	size, newest := usage(path, info.ModTime())

	ageDays := int(c.now().Sub(newest).Hours() / 24)
	if ageDays < 0 {
		ageDays = 0
	}

	manifests := FindManifests(path)

	return Environment{
		Path:               path,
		SizeBytes:          size,
		ModifiedAt:         newest,
		AgeDays:            ageDays,
		InterpreterVersion: InterpreterVersion(path),
		HasManifest:        len(manifests) > 0,
		ManifestPaths:      manifests,
		PackageCount:       PackageCount(path),
	}, nil
}

// ClassifyAll classifies each path in order, dropping paths that vanished
// since the scan. It stops early when ctx is cancelled.
func (c *Classifier) ClassifyAll(ctx context.Context, paths []string) ([]Environment, error) {
	envs := make([]Environment, 0, len(paths))
	for _, p := range paths {
		if err := ctx.Err(); err != nil {
			return envs, err
		}
		env, err := c.Classify(p)
		if err != nil {
			c.logger.Warn("skipping environment", "path", p, "error", err)
			continue
		}
		envs = append(envs, env)
	}
	c.logger.Debug("classified environments", "count", len(envs))
	return envs, nil
}

// DirSize returns the total size of all entries below root.
func DirSize(root string) uint64 {
	size, _ := usage(root, time.Time{})
	return size
}

// usage walks root summing the sizes of non-directory entries and tracking
// the newest modification time. Symlinks are measured, not followed, and
// entries that cannot be stat'ed are skipped.
func usage(root string, rootMod time.Time) (uint64, time.Time) {
	var size uint64
	newest := rootMod
	_ = filepath.WalkDir(root, func(_ string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return nil
		}
		if info.ModTime().After(newest) {
			newest = info.ModTime()
		}
		if !d.IsDir() {
			size += uint64(info.Size())
		}
		return nil
	})
	return size, newest
}

// InterpreterVersion reads the Python version of the environment at root
// from pyvenv.cfg, falling back to the lib/pythonX.Y directory name.
func InterpreterVersion(root string) string {
	if v := versionFromConfig(filepath.Join(root, "pyvenv.cfg")); v != "" {
		return v
	}
	if v := versionFromLibDir(root); v != "" {
		return v
	}
	return UnknownVersion
}

func versionFromConfig(cfgPath string) string {
	f, err := os.Open(cfgPath)
	if err != nil {
		return ""
	}
	defer func() { _ = f.Close() }()

	values := make(map[string]string)
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		key, value, ok := strings.Cut(sc.Text(), "=")
		if !ok {
			continue
		}
		values[strings.ToLower(strings.TrimSpace(key))] = strings.TrimSpace(value)
	}

	if v := values["version"]; v != "" {
		return v
	}
	// virtualenv writes version_info = 3.9.7.final.0
	if v := values["version_info"]; v != "" {
		parts := strings.Split(v, ".")
		if len(parts) > 3 {
			parts = parts[:3]
		}
		return strings.Join(parts, ".")
	}
	return ""
}

func versionFromLibDir(root string) string {
	entries, err := os.ReadDir(filepath.Join(root, "lib"))
	if err != nil {
		return ""
	}
	for _, e := range entries {
		if v, ok := strings.CutPrefix(e.Name(), "python"); ok && e.IsDir() && v != "" {
			return v
		}
	}
	return ""
}

// PackageCount counts installed distributions (dist-info and egg-info
// entries) in the environment's site-packages. Returns 0 if none is found.
func PackageCount(root string) int {
	dirs, _ := filepath.Glob(filepath.Join(root, "lib", "python*", "site-packages"))
	dirs = append(dirs, filepath.Join(root, "Lib", "site-packages"))

	count := 0
	for _, dir := range dirs {
		entries, err := os.ReadDir(dir)
		if err != nil {
			continue
		}
		for _, e := range entries {
			name := e.Name()
			if strings.HasSuffix(name, ".dist-info") || strings.HasSuffix(name, ".egg-info") {
				count++
			}
		}
		if count > 0 {
			break
		}
	}
	return count
}
