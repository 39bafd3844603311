package render

import (
	"errors"
	"image"
	"image/color"
	"math/rand"
	"os"
	"path/filepath"
	"testing"
)

func halves(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			c := color.RGBA{255, 0, 0, 255}
			if x >= w/2 {
				c = color.RGBA{0, 0, 255, 255}
			}
			img.SetRGBA(x, y, c)
		}
	}
	return img
}

func isBlue(c color.Color) bool {
	r, _, b, _ := c.RGBA()
	return b > 0xc000 && r < 0x4000
}

func isRed(c color.Color) bool {
	r, _, b, _ := c.RGBA()
	return r > 0xc000 && b < 0x4000
}

func TestRotateQuarterTurn(t *testing.T) {
	out, err := Rotate(halves(40, 20), 90)
	if err != nil {
		t.Fatalf("Rotate: %v", err)
	}
	if got := out.Bounds(); got.Dx() != 20 || got.Dy() != 40 {
		t.Fatalf("bounds = %v, want 20x40", got)
	}
	// Counter-clockwise: the right (blue) half ends up on top.
	if c := out.At(10, 5); !isBlue(c) {
		t.Errorf("top pixel = %v, want blue", c)
	}
	if c := out.At(10, 34); !isRed(c) {
		t.Errorf("bottom pixel = %v, want red", c)
	}
}

func TestRotateHalfTurn(t *testing.T) {
	out, err := Rotate(halves(40, 20), 180)
	if err != nil {
		t.Fatalf("Rotate: %v", err)
	}
	if got := out.Bounds(); got.Dx() != 40 || got.Dy() != 20 {
		t.Fatalf("bounds = %v, want 40x20", got)
	}
	if c := out.At(5, 10); !isBlue(c) {
		t.Errorf("left pixel = %v, want blue", c)
	}
}

func TestRotateZero(t *testing.T) {
	src := halves(8, 8)
	out, err := Rotate(src, 360)
	if err != nil {
		t.Fatalf("Rotate: %v", err)
	}
	if out != image.Image(src) {
		t.Errorf("full turn should return the source unchanged")
	}
}

func TestRandomAngle(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	seen := map[int]bool{}
	for i := 0; i < 100; i++ {
		a := RandomAngle(rng)
		if a != 90 && a != 180 && a != 270 {
			t.Fatalf("unexpected angle %d", a)
		}
		seen[a] = true
	}
	if len(seen) != 3 {
		t.Errorf("angles seen = %v", seen)
	}
}

func TestLoadFont(t *testing.T) {
	if f, err := LoadFont(""); err != nil || f == nil {
		t.Errorf("LoadFont(\"\") = %v, %v", f, err)
	}

	missing := filepath.Join(t.TempDir(), "missing.ttf")
	if _, err := LoadFont(missing); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("missing font err = %v", err)
	}

	bad := filepath.Join(t.TempDir(), "bad.ttf")
	if err := os.WriteFile(bad, []byte("not a font"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadFont(bad); err == nil {
		t.Errorf("expected parse error for %s", bad)
	}
}

func TestFontSize(t *testing.T) {
	f, err := LoadFont("")
	if err != nil {
		t.Fatal(err)
	}
	c := NewCompositor(f, DefaultLayout())
	tests := []struct{ h, want int }{
		{100, 16},
		{533, 16},
		{1000, 30},
		{4000, 120},
	}
	for _, tt := range tests {
		if got := c.FontSize(tt.h); got != tt.want {
			t.Errorf("FontSize(%d) = %d, want %d", tt.h, got, tt.want)
		}
	}
}

func TestCompositorDraw(t *testing.T) {
	f, err := LoadFont("")
	if err != nil {
		t.Fatal(err)
	}
	gray := color.RGBA{128, 128, 128, 255}
	src := image.NewRGBA(image.Rect(0, 0, 400, 300))
	for i := range src.Pix {
		src.Pix[i] = 128
		if i%4 == 3 {
			src.Pix[i] = 255
		}
	}

	out := NewCompositor(f, DefaultLayout()).Draw(src, []string{
		"23 Apr 2025 16:59:02", "107.055986E 6.323015S", "Jln raya Setu", "CGK05-070", "CGK05-071",
	})

	if c := color.RGBAModel.Convert(out.At(5, 5)).(color.RGBA); c != gray {
		t.Errorf("top-left pixel changed to %v", c)
	}
	if c := src.RGBAAt(300, 150); c != gray {
		t.Errorf("source image was modified: %v", c)
	}

	// Bounding boxes of the white text and of the black shadow.
	var white, dark image.Rectangle
	grow := func(r image.Rectangle, x, y int) image.Rectangle {
		p := image.Rect(x, y, x+1, y+1)
		if r.Empty() {
			return p
		}
		return r.Union(p)
	}
	for y := 0; y < 300; y++ {
		for x := 0; x < 400; x++ {
			r, g, b, _ := out.At(x, y).RGBA()
			switch {
			case r > 0xe000 && g > 0xe000 && b > 0xe000:
				white = grow(white, x, y)
			case r < 0x2000 && g < 0x2000 && b < 0x2000:
				dark = grow(dark, x, y)
			}
		}
	}
	if white.Empty() || dark.Empty() {
		t.Fatalf("text or shadow missing: white=%v dark=%v", white, dark)
	}

	layout := DefaultLayout()
	right := 400 - layout.Margin
	if white.Max.X > right+1 || white.Max.X < right-4 {
		t.Errorf("text right edge = %d, want just inside %d", white.Max.X, right)
	}
	if white.Max.Y > 300-layout.Margin-layout.BottomPadding {
		t.Errorf("text bottom %d runs into the bottom padding", white.Max.Y)
	}
	for _, d := range []struct {
		name string
		got  int
	}{
		{"x", dark.Max.X - white.Max.X},
		{"y", dark.Max.Y - white.Max.Y},
	} {
		if d.got < layout.ShadowOffset-1 || d.got > layout.ShadowOffset+1 {
			t.Errorf("shadow %s offset = %d, want about %d", d.name, d.got, layout.ShadowOffset)
		}
	}
}
