// Package archive packs finished trees into ZIP files and stages input ZIPs,
// refusing entries that would escape their target directory.
package archive

import (
	"archive/zip"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/flate"
	"github.com/sirupsen/logrus"

	"github.com/d1nch8g/packbridge/pack"
)

// ChecksumSuffix is appended to the archive path for the digest sidecar.
const ChecksumSuffix = ".sha256"

// Build archives every file under dir into destZip. Entries are written in
// sorted path order with no timestamps or directory entries, so the same
// tree always produces the same bytes. The archive grows at a temporary
// path and is renamed over destZip only when complete; a sha256 sidecar is
// written next to it. Returns the hex digest of the finished archive.
func Build(ctx context.Context, dir, destZip string, sink pack.ProgressSink) (string, error) {
	progress := pack.SinkOrNop(sink)

	tree, err := pack.LoadTree(dir)
	if err != nil {
		return "", err
	}

	partial := destZip + ".partial"
	f, err := os.Create(partial)
	if err != nil {
		return "", fmt.Errorf("failed to create archive: %w", err)
	}

	digest := sha256.New()
	zw := zip.NewWriter(io.MultiWriter(f, digest))
	zw.RegisterCompressor(zip.Deflate, func(out io.Writer) (io.WriteCloser, error) {
		return flate.NewWriter(out, flate.DefaultCompression)
	})

	fail := func(err error) (string, error) {
		zw.Close()
		f.Close()
		os.Remove(partial)
		return "", err
	}

	paths := tree.Paths()
	total := len(paths)
	progress.Report(0, total)

	for i, rel := range paths {
		if err := ctx.Err(); err != nil {
			return fail(err)
		}

		w, err := zw.CreateHeader(&zip.FileHeader{
			Name:   rel,
			Method: zip.Deflate,
		})
		if err != nil {
			return fail(fmt.Errorf("failed to add %s: %w", rel, err))
		}
		data, _ := tree.Get(rel)
		if _, err := w.Write(data); err != nil {
			return fail(fmt.Errorf("failed to compress %s: %w", rel, err))
		}

		progress.Message("compressing " + rel)
		progress.Report(i+1, total)
	}

	if err := zw.Close(); err != nil {
		f.Close()
		os.Remove(partial)
		return "", fmt.Errorf("failed to finish archive: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(partial)
		return "", fmt.Errorf("failed to finish archive: %w", err)
	}

	if err := os.Rename(partial, destZip); err != nil {
		os.Remove(partial)
		return "", fmt.Errorf("failed to move archive into place: %w", err)
	}

	sum := hex.EncodeToString(digest.Sum(nil))
	sidecar := sum + "  " + filepath.Base(destZip) + "\n"
	if err := os.WriteFile(destZip+ChecksumSuffix, []byte(sidecar), 0644); err != nil {
		return "", fmt.Errorf("failed to write checksum: %w", err)
	}

	logrus.Infof("archived %d files into %s (sha256 %s)", total, destZip, sum)
	return sum, nil
}
