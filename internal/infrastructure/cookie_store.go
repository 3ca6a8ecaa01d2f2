package infrastructure

import (
	"fmt"
	"os"
	"path/filepath"
)

// FileCookieStore keeps the downloader's session-cookie file on disk
type FileCookieStore struct {
	path string
}

// NewFileCookieStore creates a cookie store for path
func NewFileCookieStore(path string) *FileCookieStore {
	return &FileCookieStore{path: path}
}

// Path returns the cookie file location
func (s *FileCookieStore) Path() string {
	return s.path
}

// Exists checks the cookie file on every call
func (s *FileCookieStore) Exists() bool {
	if s.path == "" {
		return false
	}
	info, err := os.Stat(s.path)
	return err == nil && !info.IsDir()
}

// Update replaces the cookie file content
func (s *FileCookieStore) Update(content string) error {
	if s.path == "" {
		return fmt.Errorf("cookie file path not configured")
	}
	if err := writeFileAtomic(s.path, []byte(content), 0600); err != nil {
		return fmt.Errorf("failed to write cookie file: %w", err)
	}
	return nil
}

// writeFileAtomic writes data to a temp file next to path and renames it over path
func writeFileAtomic(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Chmod(perm); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}
