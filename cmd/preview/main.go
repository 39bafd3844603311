package main

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/spf13/pflag"

	"github.com/electronjoe/sitestamp/internal/config"
	"github.com/electronjoe/sitestamp/internal/logger"
	"github.com/electronjoe/sitestamp/internal/preview"
	"github.com/electronjoe/sitestamp/internal/preview/screen"
)

func main() {
	configPath := pflag.StringP("config", "c", "", "config file (default ~/.sitestamp/config.yaml)")
	root := pflag.StringP("root", "r", "", "output tree to review (default: outputRoot from the config)")
	interval := pflag.DurationP("interval", "i", 5*time.Second, "auto-advance interval, 0 to disable")
	windowed := pflag.Bool("windowed", false, "run in a window instead of full screen")
	pflag.Parse()

	// 1. Read config
	cfg, err := config.Read(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to read config: %v\n", err)
		os.Exit(1)
	}
	log, err := logger.New(cfg.LogMode, false)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to build logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	if *root == "" {
		*root = cfg.OutputRoot
	}

	// 2. Load stamped images
	photos, err := preview.Load(*root, log)
	if err != nil {
		log.Fatal("Failed to load output tree", "root", *root, "error", err)
	}
	if len(photos) == 0 {
		log.Info("No stamped images found. Exiting.", "root", *root)
		return
	}

	// 3. Build slides and the game
	slides := preview.BuildSlides(photos)
	game := screen.NewGame(slides, *interval)
	if err := game.LoadCurrentSlide(); err != nil {
		game.SetLoadingError(err)
	}

	// 4. Configure Ebiten
	ebiten.SetFullscreen(!*windowed)
	ebiten.SetWindowResizingMode(ebiten.WindowResizingModeEnabled)
	ebiten.SetWindowTitle("sitestamp preview")

	// 5. Run the Ebiten game loop
	if err := ebiten.RunGame(game); err != nil && !errors.Is(err, screen.ErrExit) {
		log.Fatal("Ebiten run error", "error", err)
	}
}
