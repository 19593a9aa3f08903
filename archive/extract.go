package archive

import (
	"archive/zip"
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/flate"

	"github.com/d1nch8g/packbridge/pack"
)

// PathSecurityError reports an archive entry whose name would land outside
// the extraction directory. Staging aborts before anything is written.
type PathSecurityError struct {
	Entry string
}

func (e *PathSecurityError) Error() string {
	return fmt.Sprintf("unsafe archive entry %q", e.Entry)
}

// Extract unpacks zipPath into destDir and returns the number of files
// written. Every entry name is validated before the first byte is extracted.
// Directory entries and version-control paths are skipped.
func Extract(ctx context.Context, zipPath, destDir string, sink pack.ProgressSink) (int, error) {
	progress := pack.SinkOrNop(sink)

	r, err := zip.OpenReader(zipPath)
	if err != nil {
		return 0, fmt.Errorf("failed to open archive %s: %w", zipPath, err)
	}
	defer r.Close()
	r.RegisterDecompressor(zip.Deflate, func(in io.Reader) io.ReadCloser {
		return flate.NewReader(in)
	})

	type entry struct {
		file *zip.File
		rel  string
	}
	var entries []entry
	for _, zf := range r.File {
		rel, ok, err := sanitizeEntry(zf.Name)
		if err != nil {
			return 0, err
		}
		if !ok || zf.FileInfo().IsDir() {
			continue
		}
		entries = append(entries, entry{file: zf, rel: rel})
	}

	total := len(entries)
	progress.Report(0, total)

	for i, e := range entries {
		if err := ctx.Err(); err != nil {
			return 0, err
		}

		dest := filepath.Join(destDir, filepath.FromSlash(e.rel))
		if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
			return 0, fmt.Errorf("failed to create directory for %s: %w", e.rel, err)
		}

		src, err := e.file.Open()
		if err != nil {
			return 0, fmt.Errorf("failed to read entry %s: %w", e.rel, err)
		}
		dst, err := os.Create(dest)
		if err != nil {
			src.Close()
			return 0, fmt.Errorf("failed to create %s: %w", dest, err)
		}
		_, err = io.Copy(dst, src)
		src.Close()
		if cerr := dst.Close(); err == nil {
			err = cerr
		}
		if err != nil {
			return 0, fmt.Errorf("failed to extract %s: %w", e.rel, err)
		}

		progress.Message("extracting " + e.rel)
		progress.Report(i+1, total)
	}

	return total, nil
}

// sanitizeEntry validates one archive entry name. The second return is false
// for entries that are skipped rather than rejected: directories and
// version-control internals.
func sanitizeEntry(name string) (string, bool, error) {
	if name == "" || strings.HasSuffix(name, "/") {
		return "", false, nil
	}
	if strings.Contains(name, "\\") || strings.HasPrefix(name, "/") || strings.Contains(name, ":") {
		return "", false, &PathSecurityError{Entry: name}
	}
	for _, seg := range strings.Split(name, "/") {
		if seg == ".." {
			return "", false, &PathSecurityError{Entry: name}
		}
	}

	clean := path.Clean(name)

	if clean == ".git" || strings.HasPrefix(clean, ".git/") {
		return "", false, nil
	}
	return clean, true, nil
}
