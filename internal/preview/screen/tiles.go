package screen

import (
	"fmt"
	"image"
	_ "image/jpeg"
	"math"
	"os"

	"github.com/hajimehoshi/ebiten/v2"
)

const maxTileSize = 2048

// TiledImage holds one large image split into tiles no larger than Ebiten's
// maximum texture size.
type TiledImage struct {
	tiles       []*ebiten.Image
	totalWidth  int
	totalHeight int
}

func loadTiledImage(filePath string) (*TiledImage, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("unable to open file %s: %w", filePath, err)
	}
	defer file.Close()

	src, _, err := image.Decode(file)
	if err != nil {
		return nil, fmt.Errorf("unable to decode image %s: %w", filePath, err)
	}

	w := src.Bounds().Dx()
	h := src.Bounds().Dy()
	sub, ok := src.(interface {
		SubImage(r image.Rectangle) image.Image
	})
	if !ok {
		return nil, fmt.Errorf("image %s does not support sub-images", filePath)
	}

	var tiles []*ebiten.Image
	for y := 0; y < h; y += maxTileSize {
		for x := 0; x < w; x += maxTileSize {
			rect := image.Rect(x, y, min(x+maxTileSize, w), min(y+maxTileSize, h))
			tiles = append(tiles, ebiten.NewImageFromImage(sub.SubImage(rect)))
		}
	}
	return &TiledImage{tiles: tiles, totalWidth: w, totalHeight: h}, nil
}

func (t *TiledImage) dispose() {
	for _, tile := range t.tiles {
		tile.Deallocate()
	}
}

func computeScale(imgW, imgH, screenW, screenH int) float64 {
	if imgW == 0 || imgH == 0 {
		return 1.0
	}
	return math.Min(float64(screenW)/float64(imgW), float64(screenH)/float64(imgH))
}
