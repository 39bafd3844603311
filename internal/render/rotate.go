package render

import (
	"image"
	"image/draw"
	"math"
	"math/rand"

	"github.com/BurntSushi/graphics-go/graphics"
)

// RightAngles are the counter-clockwise rotations picked from.
var RightAngles = []int{90, 180, 270}

// RandomAngle picks one of RightAngles.
func RandomAngle(rng *rand.Rand) int {
	return RightAngles[rng.Intn(len(RightAngles))]
}

// Rotate turns img counter-clockwise by deg degrees, expanding the canvas so
// nothing is cropped. Multiples of 90 swap or keep the dimensions exactly.
func Rotate(img image.Image, deg int) (image.Image, error) {
	deg = ((deg % 360) + 360) % 360
	if deg == 0 {
		return img, nil
	}

	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	rad := float64(deg) * math.Pi / 180
	cos, sin := math.Abs(math.Cos(rad)), math.Abs(math.Sin(rad))
	dw := int(math.Round(float64(w)*cos + float64(h)*sin))
	dh := int(math.Round(float64(w)*sin + float64(h)*cos))

	src := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(src, src.Bounds(), img, b.Min, draw.Src)

	dst := image.NewRGBA(image.Rect(0, 0, dw, dh))
	// graphics rotates clockwise.
	if err := graphics.Rotate(dst, src, &graphics.RotateOptions{Angle: -rad}); err != nil {
		return nil, err
	}
	return dst, nil
}
