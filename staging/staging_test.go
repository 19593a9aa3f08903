package staging

import (
	"archive/zip"
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	base := t.TempDir()

	a, err := New(base)
	require.NoError(t, err)
	defer a.Remove()

	assert.DirExists(t, a.Input)
	assert.DirExists(t, a.Output)
	assert.True(t, strings.HasPrefix(filepath.Base(a.Root()), "packbridge-"))

	// Two areas never share a root.
	b, err := New(base)
	require.NoError(t, err)
	defer b.Remove()
	assert.NotEqual(t, a.Root(), b.Root())
}

func TestArea_StageDirectory(t *testing.T) {
	src := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(src, "assets", "minecraft", "models", "item"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(src, "pack.mcmeta"), []byte(`{}`), 0644))
	require.NoError(t, os.WriteFile(
		filepath.Join(src, "assets", "minecraft", "models", "item", "stick.json"),
		[]byte(`{"parent": "item/handheld"}`), 0644))
	require.NoError(t, os.MkdirAll(filepath.Join(src, ".git"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(src, ".git", "config"), []byte("[core]"), 0644))

	a, err := New(t.TempDir())
	require.NoError(t, err)
	defer a.Remove()

	count, err := a.Stage(context.Background(), src, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	assert.FileExists(t, filepath.Join(a.Input, "pack.mcmeta"))
	assert.FileExists(t, filepath.Join(a.Input, "assets", "minecraft", "models", "item", "stick.json"))
	assert.NoFileExists(t, filepath.Join(a.Input, ".git", "config"))
}

func TestArea_StageZip(t *testing.T) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create("pack.mcmeta")
	require.NoError(t, err)
	_, err = w.Write([]byte(`{"pack": {"pack_format": 34}}`))
	require.NoError(t, err)
	require.NoError(t, zw.Close())

	zipPath := filepath.Join(t.TempDir(), "pack.ZIP")
	require.NoError(t, os.WriteFile(zipPath, buf.Bytes(), 0644))

	a, err := New(t.TempDir())
	require.NoError(t, err)
	defer a.Remove()

	count, err := a.Stage(context.Background(), zipPath, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
	assert.FileExists(t, filepath.Join(a.Input, "pack.mcmeta"))
}

func TestArea_StageUnsupported(t *testing.T) {
	file := filepath.Join(t.TempDir(), "pack.rar")
	require.NoError(t, os.WriteFile(file, []byte("not a pack"), 0644))

	a, err := New(t.TempDir())
	require.NoError(t, err)
	defer a.Remove()

	_, err = a.Stage(context.Background(), file, nil)
	assert.Error(t, err)

	_, err = a.Stage(context.Background(), filepath.Join(t.TempDir(), "missing"), nil)
	assert.Error(t, err)
}

func TestArea_Remove(t *testing.T) {
	a, err := New(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, a.Remove())
	assert.NoDirExists(t, a.Root())
}
