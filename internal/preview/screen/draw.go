package screen

import (
	"image/color"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
	"github.com/hajimehoshi/ebiten/v2/text"
	"golang.org/x/image/font/basicfont"

	"github.com/electronjoe/sitestamp/internal/preview"
)

const overlayMargin = 20

func drawMessage(screen *ebiten.Image, msg string) {
	screen.Fill(color.Black)
	ebitenutil.DebugPrint(screen, msg)
}

// drawSlide renders one or two images and their "folder / file" captions.
func drawSlide(screen *ebiten.Image, slide preview.Slide, images []*TiledImage) {
	screen.Fill(color.Black)

	switch len(images) {
	case 1:
		drawSingle(screen, images[0])
		drawCaptionLeft(screen, caption(slide, 0))
	case 2:
		drawSideBySide(screen, images[0], images[1])
		drawCaptionLeft(screen, caption(slide, 0))
		drawCaptionRight(screen, caption(slide, 1))
	}
}

func caption(slide preview.Slide, i int) string {
	if i >= len(slide.Photos) {
		return ""
	}
	return slide.Folder + " / " + slide.Photos[i].Name()
}

func drawSingle(screen *ebiten.Image, t *TiledImage) {
	b := screen.Bounds()
	sw, sh := b.Dx(), b.Dy()
	scale := computeScale(t.totalWidth, t.totalHeight, sw, sh)

	offsetX := (float64(sw) - float64(t.totalWidth)*scale) / 2
	offsetY := (float64(sh) - float64(t.totalHeight)*scale) / 2
	drawTiled(screen, t, scale, offsetX, offsetY)
}

// drawSideBySide places two portraits flush in the center with one shared
// scale.
func drawSideBySide(screen *ebiten.Image, left, right *TiledImage) {
	b := screen.Bounds()
	sw, sh := b.Dx(), b.Dy()

	combinedWidth := left.totalWidth + right.totalWidth
	combinedHeight := max(left.totalHeight, right.totalHeight)
	scale := computeScale(combinedWidth, combinedHeight, sw, sh)

	scaledLW := float64(left.totalWidth) * scale
	totalW := float64(combinedWidth) * scale

	leftX := float64(sw)/2 - totalW/2
	rightX := leftX + scaledLW
	leftY := float64(sh)/2 - float64(left.totalHeight)*scale/2
	rightY := float64(sh)/2 - float64(right.totalHeight)*scale/2

	drawTiled(screen, left, scale, leftX, leftY)
	drawTiled(screen, right, scale, rightX, rightY)
}

func drawTiled(screen *ebiten.Image, t *TiledImage, scale, offsetX, offsetY float64) {
	tileIndex := 0
	for tileY := 0; tileY*maxTileSize < t.totalHeight; tileY++ {
		for tileX := 0; tileX*maxTileSize < t.totalWidth; tileX++ {
			op := &ebiten.DrawImageOptions{}
			op.GeoM.Scale(scale, scale)
			op.GeoM.Translate(
				offsetX+float64(tileX*maxTileSize)*scale,
				offsetY+float64(tileY*maxTileSize)*scale,
			)
			screen.DrawImage(t.tiles[tileIndex], op)
			tileIndex++
		}
	}
}

func drawCaptionLeft(screen *ebiten.Image, s string) {
	sh := screen.Bounds().Dy()
	text.Draw(screen, s, basicfont.Face7x13, overlayMargin, sh-overlayMargin, color.White)
}

func drawCaptionRight(screen *ebiten.Image, s string) {
	b := screen.Bounds()
	w := text.BoundString(basicfont.Face7x13, s).Dx()
	text.Draw(screen, s, basicfont.Face7x13, b.Dx()-w-overlayMargin, b.Dy()-overlayMargin, color.White)
}

func drawPauseIndicator(screen *ebiten.Image) {
	text.Draw(screen, "PAUSED", basicfont.Face7x13, overlayMargin, overlayMargin+13, color.White)
}
