package vault

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/gofrs/flock"
	"github.com/openmined/vaultsync/internal/utils"
)

const (
	metadataDir = ".vaultsync"
	lockFile    = "vaultsync.lock"
)

var (
	ErrVaultLocked  = errors.New("vault locked by another process")
	ErrInvalidPath  = errors.New("path escapes the vault")
	ErrFileExists   = errors.New("file already exists")
	ErrFileNotFound = errors.New("file not found")
)

// Vault is the local file tree being synced. All paths taken and returned are
// vault-relative and slash separated.
type Vault struct {
	Root        string
	MetadataDir string

	ignore *IgnoreList
	flock  *flock.Flock
}

func New(rootDir string) (*Vault, error) {
	root, err := utils.ResolvePath(rootDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve path %s: %w", rootDir, err)
	}

	metaDir := filepath.Join(root, metadataDir)
	ignore := NewIgnoreList(root)
	ignore.Load()

	return &Vault{
		Root:        root,
		MetadataDir: metaDir,
		ignore:      ignore,
		flock:       flock.New(filepath.Join(metaDir, lockFile)),
	}, nil
}

// Bootstrap creates the vault root and its metadata directory.
func (v *Vault) Bootstrap() error {
	if err := utils.EnsureDir(v.Root); err != nil {
		return fmt.Errorf("failed to create vault %s: %w", v.Root, err)
	}
	if err := utils.EnsureDir(v.MetadataDir); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", v.MetadataDir, err)
	}
	return nil
}

// Lock takes an exclusive, non-blocking lock on the vault so that two sync
// daemons never reconcile the same tree.
func (v *Vault) Lock() error {
	if err := utils.EnsureDir(v.MetadataDir); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", v.MetadataDir, err)
	}

	locked, err := v.flock.TryLock()
	if err != nil {
		return fmt.Errorf("failed to lock vault: %w", err)
	}
	if !locked {
		return ErrVaultLocked
	}
	return nil
}

func (v *Vault) Unlock() error {
	if !v.flock.Locked() {
		return nil
	}
	if err := v.flock.Unlock(); err != nil {
		return fmt.Errorf("failed to unlock vault: %w", err)
	}
	return os.Remove(v.flock.Path())
}

func (v *Vault) Ignore() *IgnoreList {
	return v.ignore
}

// AbsPath resolves a vault path to an absolute OS path, refusing anything outside the root.
func (v *Vault) AbsPath(p string) (string, error) {
	clean := path.Clean(p)
	if p == "" || path.IsAbs(p) || clean == "." || clean == ".." || strings.HasPrefix(clean, "../") {
		return "", fmt.Errorf("%w: %q", ErrInvalidPath, p)
	}
	return filepath.Join(v.Root, filepath.FromSlash(clean)), nil
}

// ListFiles walks the vault and returns every regular file not matched by the ignore list.
func (v *Vault) ListFiles() ([]*File, error) {
	var files []*File

	err := filepath.WalkDir(v.Root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		rel, ok := utils.RelSlash(v.Root, p)
		if !ok {
			return nil // root
		}

		if d.IsDir() {
			if v.ignore.ShouldIgnore(rel + "/") {
				return filepath.SkipDir
			}
			return nil
		}

		if !d.Type().IsRegular() || v.ignore.ShouldIgnore(rel) {
			return nil
		}

		files = append(files, NewFile(rel))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk vault: %w", err)
	}

	sort.Slice(files, func(i, j int) bool { return files[i].Path < files[j].Path })
	return files, nil
}

func (v *Vault) Read(p string) (string, error) {
	content, err := v.ReadBinary(p)
	if err != nil {
		return "", err
	}
	return string(content), nil
}

func (v *Vault) ReadBinary(p string) ([]byte, error) {
	abs, err := v.AbsPath(p)
	if err != nil {
		return nil, err
	}
	content, err := os.ReadFile(abs)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrFileNotFound, p)
		}
		return nil, err
	}
	return content, nil
}

// Create writes a new file. The parent folder must already exist.
func (v *Vault) Create(p string, content []byte) (*File, error) {
	abs, err := v.AbsPath(p)
	if err != nil {
		return nil, err
	}

	f, err := os.OpenFile(abs, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		if errors.Is(err, fs.ErrExist) {
			return nil, fmt.Errorf("%w: %s", ErrFileExists, p)
		}
		return nil, err
	}

	if _, err := f.Write(content); err != nil {
		f.Close()
		return nil, fmt.Errorf("write %s: %w", p, err)
	}
	if err := f.Close(); err != nil {
		return nil, err
	}

	return NewFile(p), nil
}

// Modify replaces the content of an existing file.
func (v *Vault) Modify(p string, content []byte) error {
	abs, err := v.AbsPath(p)
	if err != nil {
		return err
	}

	info, err := os.Stat(abs)
	if err != nil || info.IsDir() {
		return fmt.Errorf("%w: %s", ErrFileNotFound, p)
	}

	// write next to the target and rename so readers never observe a partial file
	tmp, err := os.CreateTemp(filepath.Dir(abs), ".vaultsync-*.tmp")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(content); err != nil {
		tmp.Close()
		return fmt.Errorf("write %s: %w", p, err)
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmp.Name(), info.Mode().Perm()); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), abs)
}

func (v *Vault) CreateFolder(p string) error {
	abs, err := v.AbsPath(p)
	if err != nil {
		return err
	}
	return os.MkdirAll(abs, 0o755)
}

// Exists returns the file at p, or nil when there is no regular file there.
func (v *Vault) Exists(p string) *File {
	abs, err := v.AbsPath(p)
	if err != nil {
		return nil
	}
	if !utils.FileExists(abs) {
		return nil
	}
	return NewFile(p)
}

// FolderExists reports whether p is an existing directory.
func (v *Vault) FolderExists(p string) bool {
	abs, err := v.AbsPath(p)
	if err != nil {
		return false
	}
	return utils.DirExists(abs)
}
