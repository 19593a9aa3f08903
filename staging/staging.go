// Package staging prepares isolated working directories for conversion runs.
// Every run gets its own temporary tree, so concurrent invocations never
// share mutable state.
package staging

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/d1nch8g/packbridge/archive"
	"github.com/d1nch8g/packbridge/pack"
)

// Area is one run's private staging space. Input receives the staged source
// pack, Output collects the converted tree before archiving.
type Area struct {
	Input  string
	Output string
	root   string
}

// New creates a fresh staging area under baseDir, or the system temp
// directory when baseDir is empty.
func New(baseDir string) (*Area, error) {
	if baseDir == "" {
		baseDir = os.TempDir()
	}

	root := filepath.Join(baseDir, "packbridge-"+uuid.NewString())
	a := &Area{
		Input:  filepath.Join(root, "input"),
		Output: filepath.Join(root, "output"),
		root:   root,
	}
	for _, dir := range []string{a.Input, a.Output} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create staging directory: %w", err)
		}
	}

	logrus.Debugf("staging area created at %s", root)
	return a, nil
}

// Root returns the staging area's base path.
func (a *Area) Root() string {
	return a.root
}

// Stage copies a source pack into the input directory and returns the number
// of files staged. The source may be a pack directory or a ZIP archive;
// unsafe archive entries abort staging before anything is written.
func (a *Area) Stage(ctx context.Context, src string, sink pack.ProgressSink) (int, error) {
	info, err := os.Stat(src)
	if err != nil {
		return 0, fmt.Errorf("failed to read input %s: %w", src, err)
	}

	if info.IsDir() {
		return copyTree(ctx, src, a.Input, pack.SinkOrNop(sink))
	}
	if strings.EqualFold(filepath.Ext(src), ".zip") {
		return archive.Extract(ctx, src, a.Input, sink)
	}
	return 0, fmt.Errorf("unsupported input %s: want a directory or a .zip archive", src)
}

// Remove deletes the whole staging area.
func (a *Area) Remove() error {
	return os.RemoveAll(a.root)
}

// copyTree mirrors src into dst, skipping dot-prefixed entries. The file
// count is taken up front so progress can report a meaningful total.
func copyTree(ctx context.Context, src, dst string, sink pack.ProgressSink) (int, error) {
	var files []string
	err := filepath.WalkDir(src, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if strings.HasPrefix(d.Name(), ".") && p != src {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() || !d.Type().IsRegular() {
			return nil
		}
		files = append(files, p)
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("failed to scan %s: %w", src, err)
	}

	total := len(files)
	sink.Report(0, total)

	for i, p := range files {
		if err := ctx.Err(); err != nil {
			return 0, err
		}

		rel, err := filepath.Rel(src, p)
		if err != nil {
			return 0, err
		}
		dest := filepath.Join(dst, rel)
		if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
			return 0, fmt.Errorf("failed to create directory for %s: %w", rel, err)
		}
		if err := copyFile(p, dest); err != nil {
			return 0, fmt.Errorf("failed to copy %s: %w", rel, err)
		}

		sink.Message("staging " + filepath.ToSlash(rel))
		sink.Report(i+1, total)
	}

	return total, nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
