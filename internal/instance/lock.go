// pattern: Imperative Shell
package instance

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gofrs/flock"
)

const (
	lockFileName = "venvkiller.lock"
	pidFileName  = "venvkiller.pid"
)

// Lock takes the exclusive session lock in dataDir so two sessions never
// delete concurrently. The caller must defer Cleanup. The holder's PID is
// recorded for the error message seen by the next session.
func Lock(dataDir string) (*flock.Flock, error) {
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("create data directory: %w", err)
	}

	fl := flock.New(filepath.Join(dataDir, lockFileName))
	locked, err := fl.TryLock()
	if err != nil {
		return nil, fmt.Errorf("failed to acquire lock: %w", err)
	}
	if !locked {
		if pid, ok := Holder(dataDir); ok {
			return nil, fmt.Errorf("another venvkiller session is already running (pid %d)", pid)
		}
		return nil, fmt.Errorf("another venvkiller session is already running")
	}

	pidPath := filepath.Join(dataDir, pidFileName)
	_ = os.WriteFile(pidPath, []byte(strconv.Itoa(os.Getpid())), 0o600)
	return fl, nil
}

// Holder returns the PID recorded by the current lock holder, if any.
func Holder(dataDir string) (int, bool) {
	data, err := os.ReadFile(filepath.Join(dataDir, pidFileName))
	if err != nil {
		return 0, false
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return 0, false
	}
	return pid, true
}

// Cleanup removes the PID file and releases the lock.
func Cleanup(dataDir string, fl *flock.Flock) {
	_ = os.Remove(filepath.Join(dataDir, pidFileName))
	if fl != nil {
		_ = fl.Unlock()
	}
}
