package filesystem

import (
	"io/fs"
	"os"

	"github.com/arthur-debert/harnesssync/pkg/types"
	"github.com/spf13/afero"
)

// Afero adapts an afero.Fs to types.FS. Link calls go through afero's
// optional Linker, LinkReader and Lstater interfaces; backends without them
// report afero.ErrNoSymlink / ErrNoReadlink and Lstat degrades to Stat.
type Afero struct {
	afero.Fs
}

var _ types.FS = (*Afero)(nil)

// NewOS returns the real filesystem.
func NewOS() types.FS {
	return New(afero.NewOsFs())
}

// NewMemory returns an empty in-memory filesystem.
func NewMemory() types.FS {
	return New(afero.NewMemMapFs())
}

// New wraps backing.
func New(backing afero.Fs) *Afero {
	return &Afero{Fs: backing}
}

// ReadFile refuses directories on every backend; MemMapFs would otherwise
// return an empty read.
func (a *Afero) ReadFile(name string) ([]byte, error) {
	if info, err := a.Fs.Stat(name); err != nil {
		return nil, err
	} else if info.IsDir() {
		return nil, &fs.PathError{Op: "read", Path: name, Err: fs.ErrInvalid}
	}
	return afero.ReadFile(a.Fs, name)
}

func (a *Afero) WriteFile(name string, data []byte, perm fs.FileMode) error {
	return afero.WriteFile(a.Fs, name, data, perm)
}

func (a *Afero) ReadDir(name string) ([]fs.DirEntry, error) {
	infos, err := afero.ReadDir(a.Fs, name)
	if err != nil {
		return nil, err
	}
	entries := make([]fs.DirEntry, 0, len(infos))
	for _, info := range infos {
		entries = append(entries, fs.FileInfoToDirEntry(info))
	}
	return entries, nil
}

func (a *Afero) Lstat(name string) (fs.FileInfo, error) {
	l, ok := a.Fs.(afero.Lstater)
	if !ok {
		return a.Fs.Stat(name)
	}
	info, _, err := l.LstatIfPossible(name)
	return info, err
}

func (a *Afero) Symlink(oldname, newname string) error {
	l, ok := a.Fs.(afero.Linker)
	if !ok {
		return &os.LinkError{Op: "symlink", Old: oldname, New: newname, Err: afero.ErrNoSymlink}
	}
	return l.SymlinkIfPossible(oldname, newname)
}

func (a *Afero) Readlink(name string) (string, error) {
	r, ok := a.Fs.(afero.LinkReader)
	if !ok {
		return "", &fs.PathError{Op: "readlink", Path: name, Err: afero.ErrNoReadlink}
	}
	return r.ReadlinkIfPossible(name)
}
