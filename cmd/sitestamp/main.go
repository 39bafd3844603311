package main

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"github.com/golang/freetype/truetype"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/electronjoe/sitestamp/internal/config"
	"github.com/electronjoe/sitestamp/internal/exifmeta"
	"github.com/electronjoe/sitestamp/internal/folder"
	"github.com/electronjoe/sitestamp/internal/geocode"
	"github.com/electronjoe/sitestamp/internal/logger"
	"github.com/electronjoe/sitestamp/internal/output"
	"github.com/electronjoe/sitestamp/internal/pipeline"
	"github.com/electronjoe/sitestamp/internal/render"
	"github.com/electronjoe/sitestamp/internal/stamp"
)

// Persistent flags.
var (
	configPath string
	seed       int64
	verbose    bool
	logMode    string
	dryRun     bool
)

var rootCmd = &cobra.Command{
	Use:   "sitestamp",
	Short: "Stamp site photos with capture time, location and labels",
	Long: `sitestamp assigns source photos to site folders, rewrites their capture
time and GPS position from a folder metadata table and draws the values
onto the image.`,
	SilenceUsage: true,
}

func addPersistentFlags(fs *pflag.FlagSet) {
	fs.StringVarP(&configPath, "config", "c", "", "config file (default ~/.sitestamp/config.yaml)")
	fs.Int64Var(&seed, "seed", 0, "random seed; 0 picks one from the clock")
	fs.BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	fs.StringVar(&logMode, "log-mode", "", "log encoder: dev or prod")
	fs.BoolVar(&dryRun, "dry-run", false, "plan and log without writing anything")
}

func init() {
	addPersistentFlags(rootCmd.PersistentFlags())
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

// app is the state shared by every subcommand.
type app struct {
	cfg   config.Config
	log   *logger.Logger
	rng   *rand.Rand
	runID string
}

func setup(cmd *cobra.Command) (*app, error) {
	cfg, err := config.Read(configPath)
	if err != nil {
		return nil, err
	}
	flags := cmd.Flags()
	if flags.Changed("seed") {
		cfg.Seed = seed
	}
	if flags.Changed("log-mode") {
		cfg.LogMode = logMode
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	log, err := logger.New(cfg.LogMode, verbose)
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}
	runID := uuid.NewString()
	log = log.With("run_id", runID)

	s := cfg.Seed
	if s == 0 {
		s = time.Now().UnixNano()
	}
	log.Info("Starting run", "command", cmd.Name(), "seed", s, "dry_run", dryRun)

	return &app{cfg: cfg, log: log, rng: rand.New(rand.NewSource(s)), runID: runID}, nil
}

// loadRecords loads the folder metadata. A malformed row stops loading but
// the rows read before it are still used.
func (a *app) loadRecords() folder.Records {
	recs, warnings, err := folder.Load(a.cfg.MetadataPath)
	for _, w := range warnings {
		a.log.Warn("Invalid coordinates; folder kept without GPS", "row", w.Row, "folder", w.Folder, "error", w.Err)
	}
	if err != nil {
		var loadErr *folder.LoadError
		if errors.As(err, &loadErr) && loadErr.Row > 0 {
			a.log.Error("Error loading folder metadata; continuing with rows read so far", "error", err, "loaded", recs.Len())
		} else {
			a.log.Error("Error loading folder metadata", "error", err)
		}
	}
	a.log.Info("Loaded folder metadata", "path", a.cfg.MetadataPath, "folders", recs.Len())
	return recs
}

// runner wires the pipeline. The returned func releases what it opened.
func (a *app) runner() (*pipeline.Runner, func(), error) {
	var closers []func() error
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			if err := closers[i](); err != nil {
				a.log.Warn("Cleanup failed", "error", err)
			}
		}
	}

	var geocoder stamp.Geocoder
	if a.cfg.Geocode.Enabled {
		client, err := geocode.New(a.cfg.Geocode, a.log)
		if err != nil {
			return nil, cleanup, err
		}
		closers = append(closers, client.Close)
		geocoder = client
	}

	font, err := loadFont(a.cfg.FontPath, a.log)
	if err != nil {
		return nil, cleanup, err
	}
	layout := render.Layout{
		Scale:         a.cfg.FontScale,
		Floor:         a.cfg.FontFloor,
		Margin:        a.cfg.Margin,
		BottomPadding: a.cfg.BottomPadding,
		LineGap:       a.cfg.LineGap,
		ShadowOffset:  render.DefaultLayout().ShadowOffset,
	}

	exifWriter, err := exifmeta.New(a.cfg.ExifBackend)
	if err != nil {
		return nil, cleanup, err
	}
	closers = append(closers, exifWriter.Close)

	var manifest *output.Manifest
	if !dryRun {
		manifest, err = output.OpenManifest(filepath.Join(a.cfg.OutputRoot, output.ManifestName), a.runID)
		if err != nil {
			return nil, cleanup, fmt.Errorf("output root unusable: %w", err)
		}
		closers = append(closers, manifest.Close)
	}

	r := pipeline.New(a.cfg, a.log, a.rng, pipeline.Options{
		Records:    a.loadRecords(),
		Rewriter:   stamp.NewRewriter(a.cfg, geocoder),
		Compositor: render.NewCompositor(font, layout),
		Writer:     output.NewWriter(a.cfg.OutputRoot, a.cfg.JPEGQuality, exifWriter),
		Manifest:   manifest,
		DryRun:     dryRun,
	})
	return r, cleanup, nil
}

// loadFont falls back to the bundled Go font when the configured one cannot
// be read or parsed.
func loadFont(path string, log *logger.Logger) (*truetype.Font, error) {
	f, err := render.LoadFont(path)
	if err == nil {
		return f, nil
	}
	log.Warn("Cannot use font; using the bundled Go font", "font", path, "error", err)
	return render.GoRegular()
}

func (a *app) report(sum pipeline.Summary, err error) error {
	a.log.Info("Run complete",
		"processed", sum.Processed,
		"failed", sum.Failed,
		"skipped", sum.Skipped,
		"incomplete_folders", len(sum.Incomplete()),
	)
	a.log.Sync()
	if err != nil {
		return err
	}
	if sum.Failed > 0 {
		return fmt.Errorf("%d images failed", sum.Failed)
	}
	return nil
}
