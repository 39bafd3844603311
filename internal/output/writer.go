// Package output writes stamped images, records what was written and checks
// output folders for completeness.
package output

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	"io"
	"os"
	"path/filepath"

	"github.com/cespare/xxhash/v2"

	"github.com/electronjoe/sitestamp/internal/exifmeta"
	"github.com/electronjoe/sitestamp/internal/stamp"
)

// Writer encodes images as JPEG under Root and applies EXIF through Exif.
type Writer struct {
	Root    string
	Quality int
	Exif    exifmeta.Writer
}

func NewWriter(root string, quality int, exif exifmeta.Writer) *Writer {
	return &Writer{Root: root, Quality: quality, Exif: exif}
}

// Path joins rel onto the output root.
func (w *Writer) Path(rel ...string) string {
	return filepath.Join(append([]string{w.Root}, rel...)...)
}

// Save writes img to dst, creating parent directories, and returns the
// xxhash of the written file.
func (w *Writer) Save(dst string, img image.Image, src string, c stamp.Container) (uint64, error) {
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return 0, fmt.Errorf("create output directory: %w", err)
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: w.Quality}); err != nil {
		return 0, fmt.Errorf("encode %s: %w", dst, err)
	}
	if err := w.Exif.Write(dst, buf.Bytes(), src, c); err != nil {
		return 0, fmt.Errorf("write %s: %w", dst, err)
	}
	return hashFile(dst)
}

func hashFile(path string) (uint64, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	h := xxhash.New()
	if _, err := io.Copy(h, f); err != nil {
		return 0, fmt.Errorf("hash %s: %w", path, err)
	}
	return h.Sum64(), nil
}
