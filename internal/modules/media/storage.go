package media

import (
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Store keeps uploaded files on local disk under root/yyyy/mm/.
type Store struct {
	root string
}

func NewStore(root string) *Store {
	return &Store{root: root}
}

// Save streams the upload to disk and returns the path relative to root.
func (st *Store) Save(file *multipart.FileHeader, ext string) (string, error) {
	now := time.Now()
	dir := filepath.Join(st.root, fmt.Sprintf("%04d", now.Year()), fmt.Sprintf("%02d", now.Month()))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}

	name := uuid.New().String() + ext
	dst := filepath.Join(dir, name)

	src, err := file.Open()
	if err != nil {
		return "", err
	}
	defer src.Close()

	out, err := os.Create(dst)
	if err != nil {
		return "", err
	}
	defer out.Close()

	if _, err := io.Copy(out, src); err != nil {
		os.Remove(dst)
		return "", err
	}

	rel, err := filepath.Rel(st.root, dst)
	if err != nil {
		return "", err
	}
	return filepath.ToSlash(rel), nil
}

// Abs resolves a stored relative path, refusing traversal outside root.
func (st *Store) Abs(rel string) (string, error) {
	clean := filepath.Clean(filepath.FromSlash(rel))
	if strings.HasPrefix(clean, "..") || filepath.IsAbs(clean) {
		return "", fmt.Errorf("invalid stored path %q", rel)
	}
	return filepath.Join(st.root, clean), nil
}

// Remove deletes a stored file; a missing file is not an error.
func (st *Store) Remove(rel string) error {
	if rel == "" {
		return nil
	}
	abs, err := st.Abs(rel)
	if err != nil {
		return err
	}
	if err := os.Remove(abs); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
