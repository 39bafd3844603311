package output

import (
	"encoding/csv"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/electronjoe/sitestamp/internal/exifmeta"
	"github.com/electronjoe/sitestamp/internal/stamp"
)

func touch(t *testing.T, path string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestValidate(t *testing.T) {
	root := t.TempDir()
	touch(t, filepath.Join(root, "A - B", "Front.jpg"))
	touch(t, filepath.Join(root, "A - B", "Cable (Network 2).jpg"))
	touch(t, filepath.Join(root, "A - B", "Cable (Network 4).jpg"))
	touch(t, filepath.Join(root, "C - D", "Front.jpeg"))
	touch(t, filepath.Join(root, "C - D", "Cable.txt"))

	got := Validate(root, []string{"A - B", "C - D", "E - F"}, []string{"Front", "Cable"})
	want := []Missing{
		{Folder: "A - B"},
		{Folder: "C - D", Categories: []string{"Cable"}},
		{Folder: "E - F", Categories: []string{"Cable", "Front"}},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Validate = %+v, want %+v", got, want)
	}
	if !got[0].Complete() || got[1].Complete() {
		t.Errorf("Complete() wrong for %+v", got)
	}
}

func TestWriterSave(t *testing.T) {
	root := t.TempDir()
	w := NewWriter(root, 90, exifmeta.NativeWriter{})

	img := image.NewRGBA(image.Rect(0, 0, 16, 16))
	for i := range img.Pix {
		img.Pix[i] = 200
	}
	img.Set(0, 0, color.Black)

	dst := w.Path("A - B", "Front.jpg")
	c := stamp.Container{DateTime: "2025:04:23 17:00:00", DateTimeOriginal: "2025:04:23 17:00:00"}
	hash, err := w.Save(dst, img, "", c)
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if hash == 0 {
		t.Errorf("zero hash")
	}

	again, err := hashFile(dst)
	if err != nil || again != hash {
		t.Errorf("hashFile = %x, %v; want %x", again, err, hash)
	}

	info, err := exifmeta.ReadFile(dst)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if !info.HasTime {
		t.Errorf("saved image has no capture time")
	}
}

func TestManifest(t *testing.T) {
	path := filepath.Join(t.TempDir(), ManifestName)

	for run := 0; run < 2; run++ {
		m, err := OpenManifest(path, "run-"+string(rune('a'+run)))
		if err != nil {
			t.Fatalf("OpenManifest: %v", err)
		}
		err = m.Add(Entry{
			Folder:   "A - B",
			Category: "Cable",
			Suffix:   "Network 2",
			Source:   "pool/Cable/1.jpg",
			Dest:     "out/A - B/Cable (Network 2).jpg",
			Captured: time.Date(2025, 4, 23, 17, 0, 0, 0, time.UTC),
			Hash:     0xbeef,
		})
		if err != nil {
			t.Fatalf("Add: %v", err)
		}
		if err := m.Close(); err != nil {
			t.Fatalf("Close: %v", err)
		}
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 3 {
		t.Fatalf("rows = %d, want header plus two entries", len(rows))
	}
	if !reflect.DeepEqual(rows[0], manifestHeader) {
		t.Errorf("header = %v", rows[0])
	}
	if rows[1][0] != "run-a" || rows[2][0] != "run-b" {
		t.Errorf("run ids = %q, %q", rows[1][0], rows[2][0])
	}
	if rows[2][6] != "2025:04:23 17:00:00" || rows[2][7] != "beef" {
		t.Errorf("row = %v", rows[2])
	}

	var nilManifest *Manifest
	if err := nilManifest.Add(Entry{}); err != nil {
		t.Errorf("nil manifest Add: %v", err)
	}
}
