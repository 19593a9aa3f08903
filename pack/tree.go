package pack

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
)

// parsedCacheSize bounds how many parsed JSON documents a tree keeps around.
// Large packs hold thousands of files but the converters revisit only a few
// hundred of them, so a bounded cache avoids holding two copies of the pack.
const parsedCacheSize = 512

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Tree is an in-memory resource-pack hierarchy keyed by slash-separated
// relative paths. A tree is owned by exactly one conversion phase at a time;
// none of its methods are safe for concurrent use.
type Tree struct {
	files  map[string][]byte
	parsed *lru.Cache[string, map[string]any]
}

// NewTree returns an empty tree.
func NewTree() *Tree {
	cache, err := lru.New[string, map[string]any](parsedCacheSize)
	if err != nil {
		// lru.New only fails for a non-positive size.
		panic(err)
	}
	return &Tree{
		files:  make(map[string][]byte),
		parsed: cache,
	}
}

// LoadTree reads a staged directory into memory. Version-control directories
// and dot-prefixed entries are skipped by convention.
func LoadTree(dir string) (*Tree, error) {
	t := NewTree()

	err := filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if skipName(d.Name()) && p != dir {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}

		rel, err := filepath.Rel(dir, p)
		if err != nil {
			return err
		}
		data, err := os.ReadFile(p)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", p, err)
		}
		t.files[filepath.ToSlash(rel)] = data
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load tree from %s: %w", dir, err)
	}

	return t, nil
}

// skipName reports whether a directory entry is excluded from traversal.
func skipName(name string) bool {
	return strings.HasPrefix(name, ".")
}

// Len returns the number of files held by the tree.
func (t *Tree) Len() int {
	return len(t.files)
}

// Has reports whether the tree holds a file at the given relative path.
func (t *Tree) Has(rel string) bool {
	_, ok := t.files[rel]
	return ok
}

// Get returns the raw bytes of a file.
func (t *Tree) Get(rel string) ([]byte, bool) {
	data, ok := t.files[rel]
	return data, ok
}

// Put stores raw bytes at the given relative path, replacing any previous
// content.
func (t *Tree) Put(rel string, data []byte) {
	t.files[rel] = data
	t.parsed.Remove(rel)
}

// Remove drops a file from the tree.
func (t *Tree) Remove(rel string) {
	delete(t.files, rel)
	t.parsed.Remove(rel)
}

// Paths returns every relative path in the tree in sorted order. All
// tree-wide rewrites iterate this slice so runs are deterministic regardless
// of filesystem walk order.
func (t *Tree) Paths() []string {
	paths := make([]string, 0, len(t.files))
	for rel := range t.files {
		paths = append(paths, rel)
	}
	sort.Strings(paths)
	return paths
}

// JSON returns the parsed object form of a JSON file, going through the
// bounded parse cache. A leading UTF-8 byte-order mark is tolerated because
// Windows editors keep producing them in real packs.
func (t *Tree) JSON(rel string) (map[string]any, error) {
	if obj, ok := t.parsed.Get(rel); ok {
		return obj, nil
	}

	data, ok := t.files[rel]
	if !ok {
		return nil, fmt.Errorf("no such file in tree: %s", rel)
	}

	var obj map[string]any
	if err := json.Unmarshal(bytes.TrimPrefix(data, utf8BOM), &obj); err != nil {
		return nil, &ParseError{Path: rel, Err: err}
	}

	t.parsed.Add(rel, obj)
	return obj, nil
}

// PutJSON marshals v with the given indent and stores it at rel. HTML escaping
// is disabled so model references survive round-trips unmangled.
func (t *Tree) PutJSON(rel string, v any, indent string) error {
	data, err := EncodeJSON(v, indent)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", rel, err)
	}
	t.Put(rel, data)
	return nil
}

// EncodeJSON marshals v using the given indentation, without HTML escaping and
// without a trailing newline.
func EncodeJSON(v any, indent string) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", indent)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// WriteTo flushes the tree into dir. New content lands before stale files are
// removed, and every file is written to a temporary name and renamed into
// place, so an interrupted flush never leaves a half-written asset at its
// final path.
func (t *Tree) WriteTo(dir string) error {
	for _, rel := range t.Paths() {
		dest := filepath.Join(dir, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
			return fmt.Errorf("failed to create directory for %s: %w", rel, err)
		}
		if err := writeFileAtomic(dest, t.files[rel]); err != nil {
			return fmt.Errorf("failed to write %s: %w", rel, err)
		}
	}

	if err := t.removeStale(dir); err != nil {
		return err
	}
	return pruneEmptyDirs(dir)
}

// removeStale deletes on-disk files that are no longer part of the tree,
// honoring the same skip conventions as LoadTree.
func (t *Tree) removeStale(dir string) error {
	return filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if skipName(d.Name()) && p != dir {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(dir, p)
		if err != nil {
			return err
		}
		if !t.Has(filepath.ToSlash(rel)) {
			if err := os.Remove(p); err != nil {
				return fmt.Errorf("failed to remove stale file %s: %w", p, err)
			}
		}
		return nil
	})
}

// writeFileAtomic writes data to a temporary file and renames it into place.
func writeFileAtomic(dest string, data []byte) error {
	tmp := dest + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return err
	}
	if err := os.Rename(tmp, dest); err != nil {
		os.Remove(tmp)
		return err
	}
	return nil
}

// pruneEmptyDirs removes directories left empty after stale files were
// deleted. Deepest directories go first so parents empty out naturally.
func pruneEmptyDirs(dir string) error {
	var dirs []string
	err := filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() && p != dir {
			dirs = append(dirs, p)
		}
		return nil
	})
	if err != nil {
		return err
	}

	sort.Sort(sort.Reverse(sort.StringSlice(dirs)))
	for _, d := range dirs {
		entries, err := os.ReadDir(d)
		if err == nil && len(entries) == 0 {
			os.Remove(d)
		}
	}
	return nil
}
