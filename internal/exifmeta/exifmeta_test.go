package exifmeta

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"math"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/electronjoe/sitestamp/internal/config"
	"github.com/electronjoe/sitestamp/internal/stamp"
)

func encodedJPEG(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 32, 24))
	for y := 0; y < 24; y++ {
		for x := 0; x < 32; x++ {
			img.Set(x, y, color.RGBA{uint8(x * 8), uint8(y * 10), 90, 255})
		}
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 90}); err != nil {
		t.Fatalf("encode: %v", err)
	}
	return buf.Bytes()
}

func stamped() stamp.Container {
	return stamp.Container{
		DateTime:          "2025:04:23 16:59:02",
		DateTimeOriginal:  "2025:04:23 16:59:02",
		DateTimeDigitized: "2025:04:23 16:59:02",
		GPS:               &stamp.GPS{Lat: -6.5, Lon: 107.25},
	}
}

func TestNativeWriterRoundTrip(t *testing.T) {
	dir := t.TempDir()
	dst := filepath.Join(dir, "out.jpg")

	w, err := New(BackendNative)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer w.Close()

	if err := w.Write(dst, encodedJPEG(t), "", stamped()); err != nil {
		t.Fatalf("Write: %v", err)
	}

	info, err := ReadFile(dst)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if !info.HasTime {
		t.Fatalf("no capture time read back")
	}
	if got := info.Taken.Format(config.ExifDateLayout); got != "2025:04:23 16:59:02" {
		t.Errorf("Taken = %q", got)
	}
	if !info.HasGPS {
		t.Fatalf("no GPS read back")
	}
	if math.Abs(info.Lat-(-6.5)) > 1e-6 || math.Abs(info.Lon-107.25) > 1e-6 {
		t.Errorf("GPS = %v,%v", info.Lat, info.Lon)
	}
}

func TestNativeWriterCarriesSource(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src.jpg")
	dst := filepath.Join(dir, "dst.jpg")

	if err := (NativeWriter{}).Write(src, encodedJPEG(t), "", stamped()); err != nil {
		t.Fatalf("seed source: %v", err)
	}

	// Only the date changes; GPS must come from the source block.
	c := stamp.Container{DateTime: "2024:01:02 03:04:05", DateTimeOriginal: "2024:01:02 03:04:05"}
	if err := (NativeWriter{}).Write(dst, encodedJPEG(t), src, c); err != nil {
		t.Fatalf("Write: %v", err)
	}

	info, err := ReadFile(dst)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if got := info.Taken.Format(config.ExifDateLayout); got != "2024:01:02 03:04:05" {
		t.Errorf("Taken = %q", got)
	}
	if !info.HasGPS || math.Abs(info.Lat-(-6.5)) > 1e-6 {
		t.Errorf("source GPS not carried: %+v", info)
	}
	if !info.Container().HadGPS {
		t.Errorf("Container().HadGPS = false")
	}
}

func TestNativeWriterUnmodified(t *testing.T) {
	dst := filepath.Join(t.TempDir(), "plain.jpg")
	data := encodedJPEG(t)
	if err := (NativeWriter{}).Write(dst, data, "", stamp.Container{}); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got, err := os.ReadFile(dst)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if !bytes.Equal(got, data) {
		t.Errorf("unmodified write changed the bytes")
	}

	info, err := ReadFile(dst)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if info.HasTime || info.HasGPS {
		t.Errorf("plain jpeg reported metadata: %+v", info)
	}
}

func TestNativeWriterOrientation(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src.jpg")
	seed := stamp.Container{DateTime: "2024:01:02 03:04:05", Orientation: 6}
	if err := (NativeWriter{}).Write(src, encodedJPEG(t), "", seed); err != nil {
		t.Fatalf("seed source: %v", err)
	}
	info, err := ReadFile(src)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if info.Orientation != 6 {
		t.Fatalf("source orientation = %d, want 6", info.Orientation)
	}

	tests := []struct {
		name    string
		rotated bool
		want    int
	}{
		{"kept", false, 6},
		{"rotated", true, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dst := filepath.Join(dir, tt.name+".jpg")
			c := info.Container()
			c.Rotated = tt.rotated
			if err := (NativeWriter{}).Write(dst, encodedJPEG(t), src, c); err != nil {
				t.Fatalf("Write: %v", err)
			}
			got, err := ReadFile(dst)
			if err != nil {
				t.Fatalf("ReadFile: %v", err)
			}
			if got.Orientation != tt.want {
				t.Errorf("orientation = %d, want %d", got.Orientation, tt.want)
			}
			if got.Taken.Format(config.ExifDateLayout) != "2024:01:02 03:04:05" {
				t.Errorf("source date not carried: %v", got.Taken)
			}
		})
	}
}

func TestNewUnknownBackend(t *testing.T) {
	if _, err := New("magic"); err == nil {
		t.Errorf("expected error for unknown backend")
	}
}

func TestToolWriter(t *testing.T) {
	if _, err := exec.LookPath("exiftool"); err != nil {
		t.Skip("exiftool not installed")
	}
	w, err := NewToolWriter()
	if err != nil {
		t.Fatalf("NewToolWriter: %v", err)
	}
	defer w.Close()

	dst := filepath.Join(t.TempDir(), "tool.jpg")
	if err := w.Write(dst, encodedJPEG(t), "", stamped()); err != nil {
		t.Fatalf("Write: %v", err)
	}
	info, err := ReadFile(dst)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if !info.HasGPS || math.Abs(info.Lon-107.25) > 1e-4 {
		t.Errorf("GPS not written: %+v", info)
	}

	kept := filepath.Join(t.TempDir(), "kept.jpg")
	if err := w.Write(kept, encodedJPEG(t), "", stamp.Container{Orientation: 6}); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if info, err := ReadFile(kept); err != nil || info.Orientation != 6 {
		t.Errorf("orientation not kept: %+v, %v", info, err)
	}
}
