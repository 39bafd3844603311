package locate

import (
	"bytes"
	"context"
	"image"
	"image/jpeg"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/electronjoe/sitestamp/internal/exifmeta"
	"github.com/electronjoe/sitestamp/internal/folder"
	"github.com/electronjoe/sitestamp/internal/stamp"
)

type fixedGeocoder string

func (g fixedGeocoder) Resolve(ctx context.Context, lat, lon float64) string { return string(g) }

func writeStamped(t *testing.T, path string, c stamp.Container) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, image.NewGray(image.Rect(0, 0, 8, 8)), nil); err != nil {
		t.Fatal(err)
	}
	if err := (exifmeta.NativeWriter{}).Write(path, buf.Bytes(), "", c); err != nil {
		t.Fatal(err)
	}
}

func at(ts string) stamp.Container {
	return stamp.Container{DateTime: ts, DateTimeOriginal: ts, DateTimeDigitized: ts}
}

func TestScanAndWriteCSV(t *testing.T) {
	root := t.TempDir()
	late := at("2025:04:23 17:10:00")
	late.GPS = &stamp.GPS{Lat: -6.5, Lon: 107.25}
	writeStamped(t, filepath.Join(root, "CGK05-070", "1.jpg"), late)
	writeStamped(t, filepath.Join(root, "CGK05-070", "2.jpg"), at("2025:04:23 16:50:00"))
	writeStamped(t, filepath.Join(root, "CGK05-071", "1.jpg"), stamp.Container{})

	rows, err := Scan(context.Background(), root, fixedGeocoder("Jln raya Setu"), nil)
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("rows = %+v", rows)
	}
	if !rows[0].HasTime || !rows[0].HasGPS || rows[0].Address != "Jln raya Setu" || rows[0].Images != 2 {
		t.Errorf("row 0 = %+v", rows[0])
	}
	if rows[1].HasTime || rows[1].HasGPS || rows[1].Address != "" {
		t.Errorf("row 1 = %+v", rows[1])
	}

	var buf bytes.Buffer
	if err := WriteCSV(&buf, rows); err != nil {
		t.Fatalf("WriteCSV: %v", err)
	}
	want := "folder,start,end,lat,lon,address\n" +
		"CGK05-070,2025:04:23 16:50:00,2025:04:23 17:10:00,-6.500000,107.250000,Jln raya Setu\n" +
		"CGK05-071,,,,,\n"
	if got := buf.String(); got != want {
		t.Errorf("csv =\n%s\nwant\n%s", got, want)
	}

	// The skeleton loads back as folder metadata.
	path := filepath.Join(t.TempDir(), "folder_metadata.csv")
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		t.Fatal(err)
	}
	recs, _, err := folder.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if rec := recs.Get("CGK05-070"); rec == nil || !rec.HasWindow || !strings.Contains(rec.Address, "Setu") {
		t.Errorf("reloaded record = %+v", rec)
	}
	if rec := recs.Get("CGK05-071"); rec == nil || rec.HasWindow {
		t.Errorf("reloaded blank record = %+v", rec)
	}
}

func TestScanMissingRoot(t *testing.T) {
	if _, err := Scan(context.Background(), filepath.Join(t.TempDir(), "nope"), nil, nil); err == nil {
		t.Errorf("expected error for missing root")
	}
}
