// pattern: Imperative Shell

package cleaner

import (
	"io/fs"
	"os"
)

// FS abstracts the filesystem calls made while deleting, for testability.
type FS interface {
	Lstat(name string) (fs.FileInfo, error)
	ReadDir(name string) ([]fs.DirEntry, error)
	Remove(name string) error
	RemoveAll(name string) error
}

// OSFS is the FS backed by package os.
type OSFS struct{}

func (OSFS) Lstat(name string) (fs.FileInfo, error)     { return os.Lstat(name) }
func (OSFS) ReadDir(name string) ([]fs.DirEntry, error) { return os.ReadDir(name) }
func (OSFS) Remove(name string) error                   { return os.Remove(name) }
func (OSFS) RemoveAll(name string) error                { return os.RemoveAll(name) }
