// pattern: Imperative Shell

package discovery

import (
	"os"
	"path/filepath"
)

// manifestLevels is the number of directories searched, starting at the
// environment's parent.
const manifestLevels = 3

// ManifestNames are the dependency manifest files looked for near an
// environment, in the order they are reported.
var ManifestNames = []string{
	"requirements.txt",
	"pyproject.toml",
	"Pipfile",
	"setup.py",
	"poetry.lock",
	"Pipfile.lock",
}

// FindManifests returns the manifests found in the parent of envPath and up
// to two further ancestors, nearest directory first. The search stops at the
// filesystem root.
func FindManifests(envPath string) []string {
	var found []string
	dir := filepath.Dir(filepath.Clean(envPath))
	for range manifestLevels {
		for _, name := range ManifestNames {
			candidate := filepath.Join(dir, name)
			if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
				found = append(found, candidate)
			}
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return found
}
