// Package scratch provides a scoped temporary file: acquire a private file
// holding some content, hand its path to a collaborator, and release it with
// a guarantee that the file is gone on every exit path.
package scratch

import (
	"fmt"
	"os"
	"path/filepath"
)

// File is a process-local scratch file. Always pair New with a deferred
// Remove.
type File struct {
	path string
}

// New writes content to a fresh file named after id under the OS temp dir.
func New(id string, content []byte) (*File, error) {
	path := filepath.Join(os.TempDir(), id+".session")
	if err := os.WriteFile(path, content, 0o600); err != nil {
		return nil, fmt.Errorf("failed to write scratch file: %w", err)
	}
	return &File{path: path}, nil
}

// Path returns the location of the scratch file.
func (f *File) Path() string {
	return f.path
}

// Remove deletes the file. Safe to call more than once and on files a
// collaborator already cleaned up.
func (f *File) Remove() {
	if f == nil {
		return
	}
	_ = os.Remove(f.path)
}
