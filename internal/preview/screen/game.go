// Package screen shows preview slides full screen with Ebiten.
package screen

import (
	"errors"
	"time"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/inpututil"

	"github.com/electronjoe/sitestamp/internal/preview"
)

// ErrExit is returned from Update when the viewer asks to quit.
var ErrExit = errors.New("exit requested")

// Game is the review slideshow. Left/Right step through slides, Up/Down jump
// between output folders, Space pauses auto-advance and Escape quits.
type Game struct {
	slides       []preview.Slide
	currentIndex int
	images       []*TiledImage
	loadingError error

	interval   time.Duration
	switchTime time.Time
	paused     bool
}

func NewGame(slides []preview.Slide, interval time.Duration) *Game {
	return &Game{
		slides:     slides,
		interval:   interval,
		switchTime: time.Now().Add(interval),
	}
}

func (g *Game) Update() error {
	if inpututil.IsKeyJustPressed(ebiten.KeyEscape) {
		return ErrExit
	}
	if len(g.slides) == 0 {
		return nil
	}

	switch {
	case inpututil.IsKeyJustPressed(ebiten.KeyArrowRight):
		g.show((g.currentIndex + 1) % len(g.slides))
	case inpututil.IsKeyJustPressed(ebiten.KeyArrowLeft):
		g.show((g.currentIndex - 1 + len(g.slides)) % len(g.slides))
	case inpututil.IsKeyJustPressed(ebiten.KeyArrowDown):
		g.show(preview.NextFolder(g.slides, g.currentIndex))
	case inpututil.IsKeyJustPressed(ebiten.KeyArrowUp):
		g.show(preview.PrevFolder(g.slides, g.currentIndex))
	case inpututil.IsKeyJustPressed(ebiten.KeySpace):
		g.paused = !g.paused
	}

	if !g.paused && g.interval > 0 && time.Now().After(g.switchTime) {
		g.show((g.currentIndex + 1) % len(g.slides))
	}
	return nil
}

func (g *Game) Draw(screen *ebiten.Image) {
	if g.loadingError != nil {
		drawMessage(screen, "Error loading image(s):\n"+g.loadingError.Error())
		return
	}
	if len(g.slides) == 0 {
		drawMessage(screen, "No stamped images found.")
		return
	}
	drawSlide(screen, g.slides[g.currentIndex], g.images)
	if g.paused {
		drawPauseIndicator(screen)
	}
}

func (g *Game) Layout(outsideWidth, outsideHeight int) (int, int) {
	return 1920, 1080
}

// LoadCurrentSlide decodes the images of the current slide.
func (g *Game) LoadCurrentSlide() error {
	if g.currentIndex < 0 || g.currentIndex >= len(g.slides) {
		return nil
	}
	g.freeImages()

	var images []*TiledImage
	for _, p := range g.slides[g.currentIndex].Photos {
		tiled, err := loadTiledImage(p.Path)
		if err != nil {
			return err
		}
		images = append(images, tiled)
	}
	g.images = images
	return nil
}

func (g *Game) show(i int) {
	g.currentIndex = i
	g.loadingError = g.LoadCurrentSlide()
	g.switchTime = time.Now().Add(g.interval)
}

func (g *Game) freeImages() {
	for _, t := range g.images {
		t.dispose()
	}
	g.images = nil
}

func (g *Game) SetLoadingError(err error) {
	g.loadingError = err
}
