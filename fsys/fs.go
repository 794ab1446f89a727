// Package fsys defines the primitive filesystem capability the locking core
// is built on. The only atomicity the core relies on is Mkdir's
// create-or-fail semantics; everything else is ordinary POSIX-like file I/O.
//
// The interface exists so tests can substitute an in-memory implementation
// and inject failures; production code uses the OS-backed implementation.
package fsys

import (
	"io/fs"
	"os"
	"time"
)

const (
	// ownRWOthR represents file permission 0644 (owner read/write, others read).
	ownRWOthR = 0644

	// ownRWXOthRX represents directory permission 0755 (owner read/write/execute, others read/execute).
	ownRWXOthRX = 0755
)

// FileSystem exposes the filesystem primitives used by the lock protocol.
// Implementations must report not-found conditions with errors that satisfy
// os.IsNotExist, and already-exists conditions with errors that satisfy
// os.IsExist.
type FileSystem interface {
	// Mkdir atomically creates the directory at path. It fails with an
	// os.IsExist error if an entry already exists at path. This is the
	// single atomic create-or-fail primitive the lock protocol depends on.
	Mkdir(path string) error

	// Stat returns metadata for the entry at path, in particular its
	// modification time.
	Stat(path string) (fs.FileInfo, error)

	// Chtimes updates the access and modification times of the entry at
	// path.
	Chtimes(path string, atime, mtime time.Time) error

	// ReadFile reads the entire file at path.
	ReadFile(path string) ([]byte, error)

	// WriteFile writes data to the file at path, creating it if necessary.
	WriteFile(path string, data []byte) error

	// Remove deletes the file or empty directory at path.
	Remove(path string) error
}

// osFileSystem implements FileSystem on top of the os package.
type osFileSystem struct{}

// NewOSFileSystem returns a FileSystem backed by the local filesystem.
func NewOSFileSystem() FileSystem {
	return &osFileSystem{}
}

func (osFileSystem) Mkdir(path string) error {
	return os.Mkdir(path, ownRWXOthRX)
}

func (osFileSystem) Stat(path string) (fs.FileInfo, error) {
	return os.Stat(path)
}

func (osFileSystem) Chtimes(path string, atime, mtime time.Time) error {
	return os.Chtimes(path, atime, mtime)
}

func (osFileSystem) ReadFile(path string) ([]byte, error) {
	return os.ReadFile(path)
}

func (osFileSystem) WriteFile(path string, data []byte) error {
	return os.WriteFile(path, data, ownRWOthR)
}

func (osFileSystem) Remove(path string) error {
	return os.Remove(path)
}
