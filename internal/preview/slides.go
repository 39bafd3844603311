// Package preview collects the stamped images of an output tree into slides
// for visual review.
package preview

import (
	"fmt"
	"image"
	_ "image/jpeg"
	"os"
	"path/filepath"

	"github.com/electronjoe/sitestamp/internal/logger"
	"github.com/electronjoe/sitestamp/internal/pool"
)

// Photo is one stamped image.
type Photo struct {
	Folder string
	Path   string
	Width  int
	Height int
}

func (p Photo) Name() string { return filepath.Base(p.Path) }

func (p Photo) isPortrait() bool { return p.Height > p.Width }

// Slide holds up to two photos; two portraits of the same folder share a slide.
type Slide struct {
	Folder string
	Photos []Photo
}

// Load walks the output folders under root in natural order and reads the
// dimensions of every JPEG. Unreadable images are logged and skipped.
func Load(root string, log *logger.Logger) ([]Photo, error) {
	if log == nil {
		log = logger.Nop()
	}
	folders, err := pool.Categories(root)
	if err != nil {
		return nil, &pool.RootError{Root: root, Err: err}
	}
	var photos []Photo
	for _, folder := range folders {
		files, err := pool.ListImages(filepath.Join(root, folder))
		if err != nil {
			log.Warn("Error reading folder", "folder", folder, "error", err)
			continue
		}
		for _, file := range files {
			path := filepath.Join(root, folder, file)
			w, h, err := dimensions(path)
			if err != nil {
				log.Warn("Could not read image dimensions", "path", path, "error", err)
				continue
			}
			photos = append(photos, Photo{Folder: folder, Path: path, Width: w, Height: h})
		}
	}
	return photos, nil
}

func dimensions(path string) (int, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, 0, fmt.Errorf("open file for dimensions: %w", err)
	}
	defer f.Close()

	cfg, _, err := image.DecodeConfig(f)
	if err != nil {
		return 0, 0, fmt.Errorf("decode config failed for %s: %w", path, err)
	}
	return cfg.Width, cfg.Height, nil
}

// BuildSlides merges consecutive portraits of the same folder into one slide.
func BuildSlides(photos []Photo) []Slide {
	var slides []Slide
	i := 0
	for i < len(photos) {
		current := photos[i]
		if i+1 < len(photos) {
			next := photos[i+1]
			if next.Folder == current.Folder && current.isPortrait() && next.isPortrait() {
				slides = append(slides, Slide{Folder: current.Folder, Photos: []Photo{current, next}})
				i += 2
				continue
			}
		}
		slides = append(slides, Slide{Folder: current.Folder, Photos: []Photo{current}})
		i++
	}
	return slides
}

// NextFolder returns the index of the first slide of the folder after the
// one containing slide i, wrapping around.
func NextFolder(slides []Slide, i int) int {
	if len(slides) == 0 {
		return 0
	}
	folder := slides[i].Folder
	for j := 1; j <= len(slides); j++ {
		k := (i + j) % len(slides)
		if slides[k].Folder != folder {
			return k
		}
	}
	return i
}

// PrevFolder returns the index of the first slide of the folder before the
// one containing slide i, wrapping around.
func PrevFolder(slides []Slide, i int) int {
	if len(slides) == 0 {
		return 0
	}
	start := firstOfFolder(slides, i)
	prev := (start - 1 + len(slides)) % len(slides)
	return firstOfFolder(slides, prev)
}

func firstOfFolder(slides []Slide, i int) int {
	for i > 0 && slides[i-1].Folder == slides[i].Folder {
		i--
	}
	return i
}
