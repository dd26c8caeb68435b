// pattern: Imperative Shell

package tui

import (
	"os/exec"
	"runtime"
)

// openCommand returns the file manager invocation for goos.
func openCommand(goos, dir string) (string, []string) {
	switch goos {
	case "darwin":
		return "open", []string{dir}
	case "windows":
		return "explorer", []string{dir}
	default:
		return "xdg-open", []string{dir}
	}
}

// OpenFolder reveals dir in the platform file manager without waiting for
// it to exit.
func OpenFolder(dir string) error {
	name, args := openCommand(runtime.GOOS, dir)
	cmd := exec.Command(name, args...)
	if err := cmd.Start(); err != nil {
		return err
	}
	go func() { _ = cmd.Wait() }()
	return nil
}
