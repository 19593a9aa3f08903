package archive

import (
	"archive/zip"
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func stageDir(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for rel, content := range files {
		dest := filepath.Join(dir, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(dest), 0755))
		require.NoError(t, os.WriteFile(dest, []byte(content), 0644))
	}
	return dir
}

func writeZip(t *testing.T, entries map[string]string) string {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, content := range entries {
		w, err := zw.CreateHeader(&zip.FileHeader{Name: name})
		require.NoError(t, err)
		_, err = w.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())

	path := filepath.Join(t.TempDir(), "input.zip")
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0644))
	return path
}

func TestBuild(t *testing.T) {
	dir := stageDir(t, map[string]string{
		"pack.mcmeta":                              `{"pack": {"pack_format": 46}}`,
		"assets/minecraft/items/stick.json":        `{"model": {"type": "model", "model": "item/stick"}}`,
		"assets/minecraft/textures/item/stick.png": "png-bytes",
	})
	dest := filepath.Join(t.TempDir(), "out.zip")

	sum, err := Build(context.Background(), dir, dest, nil)
	require.NoError(t, err)
	require.NotEmpty(t, sum)

	r, err := zip.OpenReader(dest)
	require.NoError(t, err)
	defer r.Close()

	// Entries are sorted, slash separated and carry no directories.
	var names []string
	for _, f := range r.File {
		names = append(names, f.Name)
		assert.False(t, f.FileInfo().IsDir())
	}
	assert.Equal(t, []string{
		"assets/minecraft/items/stick.json",
		"assets/minecraft/textures/item/stick.png",
		"pack.mcmeta",
	}, names)

	// The sidecar digest matches the archive bytes.
	data, err := os.ReadFile(dest)
	require.NoError(t, err)
	raw := sha256.Sum256(data)
	assert.Equal(t, hex.EncodeToString(raw[:]), sum)

	sidecar, err := os.ReadFile(dest + ChecksumSuffix)
	require.NoError(t, err)
	assert.Equal(t, sum+"  out.zip\n", string(sidecar))

	// No partial file may survive a successful build.
	assert.NoFileExists(t, dest+".partial")
}

func TestBuild_Deterministic(t *testing.T) {
	dir := stageDir(t, map[string]string{
		"pack.mcmeta":                       `{"pack": {"pack_format": 46}}`,
		"assets/minecraft/items/a.json":     `{"model": {"type": "model", "model": "item/a"}}`,
		"assets/minecraft/items/b.json":     `{"model": {"type": "model", "model": "item/b"}}`,
		"assets/custom/models/item/c.json":  `{"parent": "item/generated"}`,
		"assets/custom/textures/item/c.png": strings.Repeat("x", 4096),
	})

	dest1 := filepath.Join(t.TempDir(), "one.zip")
	dest2 := filepath.Join(t.TempDir(), "two.zip")

	sum1, err := Build(context.Background(), dir, dest1, nil)
	require.NoError(t, err)
	sum2, err := Build(context.Background(), dir, dest2, nil)
	require.NoError(t, err)
	assert.Equal(t, sum1, sum2)

	b1, err := os.ReadFile(dest1)
	require.NoError(t, err)
	b2, err := os.ReadFile(dest2)
	require.NoError(t, err)
	assert.Equal(t, b1, b2)
}

func TestBuild_Cancelled(t *testing.T) {
	dir := stageDir(t, map[string]string{"pack.mcmeta": `{}`})
	dest := filepath.Join(t.TempDir(), "out.zip")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Build(ctx, dir, dest, nil)
	require.ErrorIs(t, err, context.Canceled)
	assert.NoFileExists(t, dest)
	assert.NoFileExists(t, dest+".partial")
}

func TestExtract(t *testing.T) {
	zipPath := writeZip(t, map[string]string{
		"pack.mcmeta":                             `{"pack": {"pack_format": 34}}`,
		".git/config":                             "[core]",
		"assets/minecraft/models/item/stick.json": `{"parent": "item/handheld"}`,
	})
	dest := t.TempDir()

	count, err := Extract(context.Background(), zipPath, dest, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	data, err := os.ReadFile(filepath.Join(dest, "assets", "minecraft", "models", "item", "stick.json"))
	require.NoError(t, err)
	assert.Equal(t, `{"parent": "item/handheld"}`, string(data))

	// Version-control internals never leave the archive.
	assert.NoFileExists(t, filepath.Join(dest, ".git", "config"))
}

func TestExtract_RoundTrip(t *testing.T) {
	src := stageDir(t, map[string]string{
		"pack.mcmeta":                        `{"pack": {"pack_format": 46}}`,
		"assets/custom/models/item/orb.json": `{"parent": "item/generated"}`,
	})
	dest := filepath.Join(t.TempDir(), "pack.zip")
	_, err := Build(context.Background(), src, dest, nil)
	require.NoError(t, err)

	out := t.TempDir()
	count, err := Extract(context.Background(), dest, out, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	data, err := os.ReadFile(filepath.Join(out, "assets", "custom", "models", "item", "orb.json"))
	require.NoError(t, err)
	assert.Equal(t, `{"parent": "item/generated"}`, string(data))
}

func TestExtract_RejectsTraversal(t *testing.T) {
	tests := []struct {
		name  string
		entry string
	}{
		{
			name:  "parent traversal",
			entry: "../evil.txt",
		},
		{
			name:  "nested traversal",
			entry: "assets/../../evil.txt",
		},
		{
			name:  "absolute path",
			entry: "/etc/passwd",
		},
		{
			name:  "backslash path",
			entry: `assets\evil.txt`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			zipPath := writeZip(t, map[string]string{
				"pack.mcmeta": `{}`,
				tt.entry:      "evil",
			})
			dest := t.TempDir()

			_, err := Extract(context.Background(), zipPath, dest, nil)
			require.Error(t, err)

			var pse *PathSecurityError
			require.True(t, errors.As(err, &pse))
			assert.Equal(t, tt.entry, pse.Entry)

			// Validation runs before extraction, so nothing is written.
			entries, err := os.ReadDir(dest)
			require.NoError(t, err)
			assert.Empty(t, entries)
		})
	}
}

func TestSanitizeEntry(t *testing.T) {
	tests := []struct {
		name        string
		entry       string
		want        string
		wantOK      bool
		shouldError bool
	}{
		{
			name:   "plain file",
			entry:  "assets/minecraft/items/stick.json",
			want:   "assets/minecraft/items/stick.json",
			wantOK: true,
		},
		{
			name:   "dot segment cleaned",
			entry:  "assets/./pack.png",
			want:   "assets/pack.png",
			wantOK: true,
		},
		{
			name:   "directory entry skipped",
			entry:  "assets/",
			wantOK: false,
		},
		{
			name:   "git internals skipped",
			entry:  ".git/HEAD",
			wantOK: false,
		},
		{
			name:        "traversal rejected",
			entry:       "../../x",
			shouldError: true,
		},
		{
			name:        "drive letter rejected",
			entry:       "C:/evil",
			shouldError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok, err := sanitizeEntry(tt.entry)
			if tt.shouldError {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantOK, ok)
			if tt.wantOK {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}
