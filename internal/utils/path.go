package utils

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
)

var ErrEmptyPath = errors.New("path cannot be empty")

// ResolvePath expands a leading `~` and returns a clean absolute path.
func ResolvePath(p string) (string, error) {
	if p == "" {
		return "", ErrEmptyPath
	}

	if strings.HasPrefix(p, "~") {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", errors.New("failed to retrieve home directory")
		}
		p = strings.Replace(p, "~", homeDir, 1)
	}

	absPath, err := filepath.Abs(p)
	if err != nil {
		return "", err
	}
	return filepath.Clean(absPath), nil
}

func EnsureParent(p string) error {
	return EnsureDir(filepath.Dir(p))
}

func EnsureDir(p string) error {
	if DirExists(p) {
		return nil
	}
	return os.MkdirAll(p, 0o755)
}

func DirExists(p string) bool {
	info, err := os.Stat(p)
	return err == nil && info.IsDir()
}

func FileExists(p string) bool {
	info, err := os.Stat(p)
	return err == nil && !info.IsDir()
}

// RelSlash returns abs relative to root using forward slashes.
// ok is false when abs does not live under root.
func RelSlash(root, abs string) (rel string, ok bool) {
	rel, err := filepath.Rel(root, abs)
	if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", false
	}
	return filepath.ToSlash(rel), true
}
