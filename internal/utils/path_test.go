package utils

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolvePath(t *testing.T) {
	_, err := ResolvePath("")
	assert.ErrorIs(t, err, ErrEmptyPath)

	abs, err := ResolvePath("./vault")
	require.NoError(t, err)
	assert.True(t, filepath.IsAbs(abs))

	home, err := os.UserHomeDir()
	require.NoError(t, err)
	resolved, err := ResolvePath("~/Vault")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, "Vault"), resolved)
}

func TestEnsureParent(t *testing.T) {
	root := t.TempDir()
	target := filepath.Join(root, "a", "b", "c.md")

	require.NoError(t, EnsureParent(target))
	assert.True(t, DirExists(filepath.Join(root, "a", "b")))
	assert.False(t, FileExists(target))

	require.NoError(t, os.WriteFile(target, []byte("x"), 0o644))
	assert.True(t, FileExists(target))
	assert.False(t, DirExists(target))
}

func TestRelSlash(t *testing.T) {
	root := filepath.Join(string(filepath.Separator), "vault")

	tests := []struct {
		name   string
		abs    string
		want   string
		wantOk bool
	}{
		{"nested", filepath.Join(root, "notes", "a.md"), "notes/a.md", true},
		{"top", filepath.Join(root, "a.md"), "a.md", true},
		{"root itself", root, "", false},
		{"outside", filepath.Join(string(filepath.Separator), "other", "a.md"), "", false},
		{"dotdot prefix name", filepath.Join(root, "..notes", "a.md"), "..notes/a.md", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := RelSlash(root, tt.abs)
			assert.Equal(t, tt.wantOk, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}
