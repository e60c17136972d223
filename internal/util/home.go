package util

import (
	"fmt"
	"os"
	"os/user"
	"path/filepath"
)

// CatalogDirName is the per-user directory holding the catalog, relative to home
const CatalogDirName = ".config/deduplicator"

// HomeDir resolves the current user's home directory.
// The OS user database is consulted first; HOME is the fallback.
func HomeDir() (string, error) {
	if u, err := user.Current(); err == nil && u.HomeDir != "" {
		return u.HomeDir, nil
	}
	if home, ok := os.LookupEnv("HOME"); ok && home != "" {
		return home, nil
	}
	return "", ErrNoHome
}

// DefaultCatalogPath returns ~/.config/deduplicator/db
func DefaultCatalogPath() (string, error) {
	home, err := HomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, CatalogDirName, "db"), nil
}

// EnsureDir creates dir (and parents) if missing and verifies it is a directory
func EnsureDir(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}
	info, err := os.Stat(dir)
	if err != nil {
		return fmt.Errorf("failed to access directory %s: %w", dir, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%s is not a directory", dir)
	}
	return nil
}
