package vault

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestVault(t *testing.T) *Vault {
	t.Helper()
	v, err := New(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, v.Bootstrap())
	return v
}

func writeFile(t *testing.T, v *Vault, rel, content string) {
	t.Helper()
	abs := filepath.Join(v.Root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(abs), 0o755))
	require.NoError(t, os.WriteFile(abs, []byte(content), 0o644))
}

func TestNewFile(t *testing.T) {
	f := NewFile("notes/Daily.MD")
	assert.Equal(t, "md", f.Extension)
	assert.True(t, f.IsText())

	img := NewFile("assets/photo.png")
	assert.Equal(t, KindBinary, img.Kind)
	assert.Equal(t, "binary", img.Kind.String())
}

func TestVaultListFiles(t *testing.T) {
	v := newTestVault(t)

	writeFile(t, v, "a.md", "a")
	writeFile(t, v, "notes/b.md", "b")
	writeFile(t, v, "assets/c.png", "c")
	writeFile(t, v, ".git/config", "x")
	writeFile(t, v, ".DS_Store", "x")
	writeFile(t, v, "notes/draft.tmp", "x")

	files, err := v.ListFiles()
	require.NoError(t, err)

	var paths []string
	for _, f := range files {
		paths = append(paths, f.Path)
	}
	assert.Equal(t, []string{"a.md", "assets/c.png", "notes/b.md"}, paths)
}

func TestVaultSyncIgnoreFile(t *testing.T) {
	v := newTestVault(t)
	writeFile(t, v, ignoreFileName, "# private notes\nprivate/\n")
	writeFile(t, v, "private/secret.md", "s")
	writeFile(t, v, "public/open.md", "o")

	v.Ignore().Load()
	files, err := v.ListFiles()
	require.NoError(t, err)

	var paths []string
	for _, f := range files {
		paths = append(paths, f.Path)
	}
	assert.Contains(t, paths, "public/open.md")
	assert.NotContains(t, paths, "private/secret.md")
}

func TestVaultReadWrite(t *testing.T) {
	v := newTestVault(t)

	require.NoError(t, v.CreateFolder("notes/deep"))
	assert.True(t, v.FolderExists("notes/deep"))

	f, err := v.Create("notes/deep/a.md", []byte("# one"))
	require.NoError(t, err)
	assert.Equal(t, "notes/deep/a.md", f.Path)

	_, err = v.Create("notes/deep/a.md", []byte("again"))
	assert.ErrorIs(t, err, ErrFileExists)

	text, err := v.Read("notes/deep/a.md")
	require.NoError(t, err)
	assert.Equal(t, "# one", text)

	require.NoError(t, v.Modify("notes/deep/a.md", []byte("# two")))
	content, err := v.ReadBinary("notes/deep/a.md")
	require.NoError(t, err)
	assert.Equal(t, []byte("# two"), content)

	assert.ErrorIs(t, v.Modify("notes/missing.md", []byte("x")), ErrFileNotFound)

	_, err = v.ReadBinary("notes/missing.md")
	assert.ErrorIs(t, err, ErrFileNotFound)

	assert.NotNil(t, v.Exists("notes/deep/a.md"))
	assert.Nil(t, v.Exists("notes/deep"))
	assert.Nil(t, v.Exists("notes/nope.md"))
}

func TestVaultRejectsEscapingPaths(t *testing.T) {
	v := newTestVault(t)

	for _, p := range []string{"", "..", "../outside.md", "a/../../outside.md", "/etc/passwd"} {
		_, err := v.AbsPath(p)
		assert.ErrorIs(t, err, ErrInvalidPath, p)
	}

	_, err := v.Create("../outside.md", []byte("x"))
	assert.ErrorIs(t, err, ErrInvalidPath)

	abs, err := v.AbsPath("a/../b.md")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(v.Root, "b.md"), abs)
}

func TestVaultLock(t *testing.T) {
	root := t.TempDir()
	v1, err := New(root)
	require.NoError(t, err)
	v2, err := New(root)
	require.NoError(t, err)

	require.NoError(t, v1.Lock())
	assert.ErrorIs(t, v2.Lock(), ErrVaultLocked)

	require.NoError(t, v1.Unlock())
	require.NoError(t, v2.Lock())
	require.NoError(t, v2.Unlock())
}
