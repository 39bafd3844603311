// Package render rotates images and draws the stamp text block onto them.
package render

import (
	"fmt"
	"os"

	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
)

// LoadFont parses the TrueType font at path. An empty path gives the bundled
// Go Regular font.
func LoadFont(path string) (*truetype.Font, error) {
	if path == "" {
		return GoRegular()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read font %s: %w", path, err)
	}
	f, err := truetype.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parse font %s: %w", path, err)
	}
	return f, nil
}

// GoRegular parses the bundled Go Regular font.
func GoRegular() (*truetype.Font, error) {
	f, err := truetype.Parse(goregular.TTF)
	if err != nil {
		return nil, fmt.Errorf("parse bundled font: %w", err)
	}
	return f, nil
}

func newFace(f *truetype.Font, size int) font.Face {
	return truetype.NewFace(f, &truetype.Options{Size: float64(size), Hinting: font.HintingFull})
}
