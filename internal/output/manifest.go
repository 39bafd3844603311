package output

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/electronjoe/sitestamp/internal/config"
)

const ManifestName = "manifest.csv"

var manifestHeader = []string{"run_id", "folder", "category", "suffix", "source", "dest", "captured", "xxhash"}

// Entry is one manifest row.
type Entry struct {
	Folder   string
	Category string
	Suffix   string
	Source   string
	Dest     string
	Captured time.Time
	Hash     uint64
}

// Manifest appends one CSV row per written image.
type Manifest struct {
	runID string
	f     *os.File
	w     *csv.Writer
}

// OpenManifest opens (or creates) path for appending. The header is written
// only to a new file.
func OpenManifest(path, runID string) (*Manifest, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create manifest directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open manifest: %w", err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}

	m := &Manifest{runID: runID, f: f, w: csv.NewWriter(f)}
	if info.Size() == 0 {
		if err := m.w.Write(manifestHeader); err != nil {
			f.Close()
			return nil, err
		}
	}
	return m, nil
}

// Add appends e. A nil Manifest ignores it.
func (m *Manifest) Add(e Entry) error {
	if m == nil {
		return nil
	}
	captured := ""
	if !e.Captured.IsZero() {
		captured = e.Captured.Format(config.ExifDateLayout)
	}
	return m.w.Write([]string{
		m.runID,
		e.Folder,
		e.Category,
		e.Suffix,
		e.Source,
		e.Dest,
		captured,
		strconv.FormatUint(e.Hash, 16),
	})
}

func (m *Manifest) Close() error {
	if m == nil {
		return nil
	}
	m.w.Flush()
	if err := m.w.Error(); err != nil {
		m.f.Close()
		return err
	}
	return m.f.Close()
}
