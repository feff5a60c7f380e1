// Package fileref reads and atomically writes text files through an afero
// file system, so callers can swap in an in-memory one for tests.
package fileref

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/afero"
)

// FS is the file system used by the package level helpers.
var FS afero.Fs = afero.NewOsFs()

// File is a path on a file system.
type File struct {
	fs   afero.Fs
	Path string
}

// New returns a file on the default file system.
func New(path string) File {
	return File{fs: FS, Path: path}
}

// On returns a file on fs.
func On(fs afero.Fs, path string) File {
	return File{fs: fs, Path: path}
}

// Read returns the contents of the file.
func (f File) Read() (string, error) {
	data, err := afero.ReadFile(f.filesystem(), f.Path)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", f.Path, err)
	}
	return string(data), nil
}

// Exists reports whether the file is present.
func (f File) Exists() bool {
	ok, err := afero.Exists(f.filesystem(), f.Path)
	return err == nil && ok
}

// Write replaces the file contents. The data goes to a temporary file in the
// same directory first and is renamed over the target, so readers never see
// a partial file.
func (f File) Write(contents string) error {
	fs := f.filesystem()
	dir := filepath.Dir(f.Path)
	if err := fs.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("write %s: %w", f.Path, err)
	}

	tmp, err := afero.TempFile(fs, dir, "."+filepath.Base(f.Path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("write %s: %w", f.Path, err)
	}
	name := tmp.Name()
	if _, err := tmp.WriteString(contents); err != nil {
		tmp.Close()
		fs.Remove(name)
		return fmt.Errorf("write %s: %w", f.Path, err)
	}
	if err := tmp.Close(); err != nil {
		fs.Remove(name)
		return fmt.Errorf("write %s: %w", f.Path, err)
	}

	mode := os.FileMode(0o644)
	if info, err := fs.Stat(f.Path); err == nil {
		mode = info.Mode().Perm()
	}
	if err := fs.Chmod(name, mode); err != nil {
		fs.Remove(name)
		return fmt.Errorf("write %s: %w", f.Path, err)
	}
	if err := fs.Rename(name, f.Path); err != nil {
		fs.Remove(name)
		return fmt.Errorf("write %s: %w", f.Path, err)
	}
	return nil
}

func (f File) filesystem() afero.Fs {
	if f.fs == nil {
		return FS
	}
	return f.fs
}

// Read returns the contents of path on the default file system.
func Read(path string) (string, error) {
	return New(path).Read()
}

// Write atomically replaces the contents of path on the default file system.
func Write(path, contents string) error {
	return New(path).Write(contents)
}
