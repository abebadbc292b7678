// Package media manages the on-disk image files referenced by capture records.
package media

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/biosim/geocap/internal/parent"
)

const (
	extension   = ".jpg"
	stampLayout = "20060102_150405"
)

// Store lays out images as <root>/<kind>-<parentID>/<PREFIX>_<parentID>_<stamp>_<suffix>.jpg.
type Store struct {
	root string
}

func NewStore(root string) *Store {
	return &Store{root: root}
}

// ParentDir returns the directory that stores images for p.
func (s *Store) ParentDir(p parent.Parent) string {
	return filepath.Join(s.root, parent.StorageKey(p))
}

// Allocate reserves a fresh destination path for an image of p taken at
// at. The parent directory is created; the file itself is not.
func (s *Store) Allocate(p parent.Parent, at time.Time) (string, error) {
	dir := s.ParentDir(p)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return "", fmt.Errorf("creating media directory: %w", err)
	}
	return filepath.Join(dir, FileName(p, at)), nil
}

// Destination binds Allocate to p.
func (s *Store) Destination(p parent.Parent) func(time.Time) (string, error) {
	return func(at time.Time) (string, error) {
		return s.Allocate(p, at)
	}
}

// FileName builds the image file name for p. The random suffix keeps two
// captures within the same second apart.
func FileName(p parent.Parent, at time.Time) string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	return p.Kind.Prefix() + "_" + strconv.FormatInt(p.ID, 10) + "_" + at.Format(stampLayout) + "_" + suffix + extension
}

// Exists reports whether path names a regular, non-empty file.
func Exists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return info.Mode().IsRegular() && info.Size() > 0
}

// Remove deletes a file. A missing file is not an error.
func Remove(path string) error {
	if path == "" {
		return nil
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

// RemoveParent removes every stored image of p.
func (s *Store) RemoveParent(p parent.Parent) error {
	dir := s.ParentDir(p)
	if _, err := os.Stat(dir); errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return os.RemoveAll(dir)
}

// Hash returns the hex SHA-256 digest of the file at path.
func Hash(path string) (string, error) {
	//nolint:gosec // G304: path is from database, controlled by application
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// WalkFunc is called for each file stored under a parent directory.
type WalkFunc func(path string, d fs.DirEntry) error

// WalkParent iterates over the files stored for p.
func (s *Store) WalkParent(p parent.Parent, fn WalkFunc) error {
	entries, err := os.ReadDir(s.ParentDir(p))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return err
	}

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), extension) {
			continue
		}
		if err := fn(filepath.Join(s.ParentDir(p), entry.Name()), entry); err != nil {
			return err
		}
	}
	return nil
}
