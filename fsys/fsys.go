// Package fsys is the whole-file access layer the rest of tradebook talks to.
//
// Paths handed to a FileService are slash separated and relative to the
// service root, e.g. "trades/2024/AAPL_01-15_001/entry.md". Every call works
// on a whole file or a whole listing; nothing is streamed.
package fsys

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rustyeddy/tradebook/internal/apperrors"
)

// Entry is one item of a directory listing.
type Entry struct {
	Name  string
	IsDir bool
}

// FileService is the file-access collaborator supplied by the host.
type FileService interface {
	ReadFile(p string) ([]byte, error)
	WriteFile(p string, data []byte) error
	Exists(p string) bool
	// CreateDir creates p and any missing parents. An existing directory is
	// not an error.
	CreateDir(p string) error
	// DeleteDir removes p and everything below it. p may also be a file.
	DeleteDir(p string) error
	ReadDir(p string) ([]Entry, error)
}

// OS is a FileService backed by the local filesystem under Root.
type OS struct {
	Root string
}

// NewOS returns an OS service rooted at root.
func NewOS(root string) *OS {
	return &OS{Root: root}
}

func (o *OS) abs(p string) (string, error) {
	// Cleaning a rooted path drops any ".." that would climb above the root.
	clean := path.Clean("/" + filepath.ToSlash(p))
	return filepath.Join(o.Root, filepath.FromSlash(strings.TrimPrefix(clean, "/"))), nil
}

func (o *OS) ReadFile(p string) ([]byte, error) {
	full, err := o.abs(p)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(full)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("read %s: %w", p, apperrors.ErrNotFound)
	}
	return data, err
}

func (o *OS) WriteFile(p string, data []byte) error {
	full, err := o.abs(p)
	if err != nil {
		return err
	}
	return os.WriteFile(full, data, 0o644)
}

func (o *OS) Exists(p string) bool {
	full, err := o.abs(p)
	if err != nil {
		return false
	}
	_, err = os.Stat(full)
	return err == nil
}

func (o *OS) CreateDir(p string) error {
	full, err := o.abs(p)
	if err != nil {
		return err
	}
	return os.MkdirAll(full, 0o755)
}

func (o *OS) DeleteDir(p string) error {
	full, err := o.abs(p)
	if err != nil {
		return err
	}
	if full == filepath.Clean(o.Root) {
		return fmt.Errorf("refusing to delete service root")
	}
	if _, err := os.Lstat(full); errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("delete %s: %w", p, apperrors.ErrNotFound)
	}
	return os.RemoveAll(full)
}

func (o *OS) ReadDir(p string) ([]Entry, error) {
	full, err := o.abs(p)
	if err != nil {
		return nil, err
	}
	des, err := os.ReadDir(full)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("list %s: %w", p, apperrors.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	out := make([]Entry, 0, len(des))
	for _, de := range des {
		out = append(out, Entry{Name: de.Name(), IsDir: de.IsDir()})
	}
	return out, nil
}

// Join joins slash separated path elements.
func Join(elem ...string) string {
	return path.Join(elem...)
}

// CopyTree copies src into dst recursively and returns the number of files
// written. dst is created if needed; existing files are overwritten.
func CopyTree(f FileService, src, dst string) (int, error) {
	if err := f.CreateDir(dst); err != nil {
		return 0, fmt.Errorf("create %s: %w", dst, err)
	}
	entries, err := f.ReadDir(src)
	if err != nil {
		return 0, err
	}

	n := 0
	for _, e := range entries {
		from, to := Join(src, e.Name), Join(dst, e.Name)
		if e.IsDir {
			c, err := CopyTree(f, from, to)
			n += c
			if err != nil {
				return n, err
			}
			continue
		}
		if err := CopyFile(f, from, to); err != nil {
			return n, err
		}
		n++
	}
	return n, nil
}

// CopyFile copies one whole file.
func CopyFile(f FileService, src, dst string) error {
	data, err := f.ReadFile(src)
	if err != nil {
		return fmt.Errorf("copy %s: %w", src, err)
	}
	if err := f.WriteFile(dst, data); err != nil {
		return fmt.Errorf("copy %s to %s: %w", src, dst, err)
	}
	return nil
}

// CountFiles returns how many regular files live below p.
func CountFiles(f FileService, p string) (int, error) {
	entries, err := f.ReadDir(p)
	if err != nil {
		return 0, err
	}
	n := 0
	for _, e := range entries {
		if !e.IsDir {
			n++
			continue
		}
		c, err := CountFiles(f, Join(p, e.Name))
		if err != nil {
			return n, err
		}
		n += c
	}
	return n, nil
}

// Files lists the regular files below p as paths relative to p, sorted.
func Files(f FileService, p string) ([]string, error) {
	var out []string
	var walk func(rel string) error
	walk = func(rel string) error {
		entries, err := f.ReadDir(Join(p, rel))
		if err != nil {
			return err
		}
		for _, e := range entries {
			r := Join(rel, e.Name)
			if e.IsDir {
				if err := walk(r); err != nil {
					return err
				}
				continue
			}
			out = append(out, r)
		}
		return nil
	}
	if err := walk(""); err != nil {
		return nil, err
	}
	sort.Strings(out)
	return out, nil
}
