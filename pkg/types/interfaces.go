package types

import "io/fs"

// FS is the slice of filesystem behaviour the resolver, conflict detector
// and pipeline need. pkg/filesystem backs it with afero so tests can run
// against memory.
type FS interface {
	Stat(name string) (fs.FileInfo, error)
	// Lstat reports on a symlink itself. Backends without links fall back
	// to Stat.
	Lstat(name string) (fs.FileInfo, error)
	ReadFile(name string) ([]byte, error)
	ReadDir(name string) ([]fs.DirEntry, error)
	Readlink(name string) (string, error)

	WriteFile(name string, data []byte, perm fs.FileMode) error
	MkdirAll(path string, perm fs.FileMode) error
	Symlink(oldname, newname string) error
	Rename(oldpath, newpath string) error
	Remove(name string) error
	RemoveAll(path string) error
}
