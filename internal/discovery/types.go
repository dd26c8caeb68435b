// pattern: Functional Core

package discovery

import (
	"sort"
	"time"
)

// UnknownVersion is reported when no interpreter version can be determined.
const UnknownVersion = "Unknown"

// Environment is a snapshot of one virtual environment found during a scan.
// It is never re-validated; the directory may be gone by the time it is used.
type Environment struct {
	Path               string    // Absolute path to the environment root
	SizeBytes          uint64    // Sum of all entry sizes under Path
	ModifiedAt         time.Time // Newest modification time seen under Path
	AgeDays            int       // Whole days between ModifiedAt and classification
	InterpreterVersion string    // e.g. "3.11.4", or UnknownVersion
	HasManifest        bool      // Any dependency manifest found near the environment
	ManifestPaths      []string  // Manifests in search order (nearest directory first)
	PackageCount       int       // Installed distributions in site-packages, 0 if unknown
}

// Age reports the age class of the environment for the given thresholds.
func (e Environment) Age(recentDays, oldDays int) AgeClass {
	return ClassifyAge(e.AgeDays, recentDays, oldDays)
}

// AgeClass buckets environments by how long ago they were touched.
type AgeClass int

const (
	AgeNormal AgeClass = iota
	AgeRecent
	AgeOld
)

func (a AgeClass) String() string {
	switch a {
	case AgeRecent:
		return "recent"
	case AgeOld:
		return "old"
	default:
		return "normal"
	}
}

// ClassifyAge returns AgeRecent when ageDays < recentDays, AgeOld when
// ageDays > oldDays, and AgeNormal otherwise.
func ClassifyAge(ageDays, recentDays, oldDays int) AgeClass {
	switch {
	case ageDays < recentDays:
		return AgeRecent
	case ageDays > oldDays:
		return AgeOld
	default:
		return AgeNormal
	}
}

// SortBySize orders environments largest first. Ties are broken by path so
// the order is stable across rescans.
func SortBySize(envs []Environment) {
	sort.SliceStable(envs, func(i, j int) bool {
		if envs[i].SizeBytes != envs[j].SizeBytes {
			return envs[i].SizeBytes > envs[j].SizeBytes
		}
		return envs[i].Path < envs[j].Path
	})
}

// TotalSize sums SizeBytes over envs.
func TotalSize(envs []Environment) uint64 {
	var total uint64
	for _, e := range envs {
		total += e.SizeBytes
	}
	return total
}
