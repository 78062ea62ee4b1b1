package store

import (
	"fmt"
	"io/fs"
	"os"
)

// FileSystem is what a store needs from the disk: reading a collection,
// checking its directory, and replacing it through a temporary file.
// MockFileSystem implements it in memory for tests.
type FileSystem interface {
	Stat(name string) (fs.FileInfo, error)
	ReadFile(name string) ([]byte, error)
	WriteFile(name string, data []byte, perm fs.FileMode) error
	Rename(oldpath, newpath string) error
	Remove(name string) error
}

// OSFileSystem is the FileSystem of the host.
type OSFileSystem struct{}

func (OSFileSystem) Stat(name string) (fs.FileInfo, error) { return os.Stat(name) }
func (OSFileSystem) ReadFile(name string) ([]byte, error) { return os.ReadFile(name) }
func (OSFileSystem) Rename(oldpath, newpath string) error { return os.Rename(oldpath, newpath) }
func (OSFileSystem) Remove(name string) error { return os.Remove(name) }
func (OSFileSystem) WriteFile(name string, data []byte, perm fs.FileMode) error {
	return os.WriteFile(name, data, perm)
}

// tempSuffix names the file a collection is staged in before the rename.
const tempSuffix = ".tmp"

// replaceFile writes data next to path and renames it over path, so
// readers see either the old or the new collection. A failed rename
// removes the staged file.
func replaceFile(fsys FileSystem, path string, data []byte) error {
	tmp := path + tempSuffix
	if err := fsys.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("failed to stage %s: %w", tmp, err)
	}
	if err := fsys.Rename(tmp, path); err != nil {
		_ = fsys.Remove(tmp)
		return fmt.Errorf("failed to replace %s: %w", path, err)
	}
	return nil
}
