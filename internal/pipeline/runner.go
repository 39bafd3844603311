// Package pipeline drives the stamping modes: it pairs output folders with
// source images, rewrites their metadata, draws the stamp and writes the
// result.
package pipeline

import (
	"context"
	"fmt"
	"image"
	"image/jpeg"
	"math/rand"
	"os"

	"github.com/electronjoe/sitestamp/internal/assign"
	"github.com/electronjoe/sitestamp/internal/config"
	"github.com/electronjoe/sitestamp/internal/exifmeta"
	"github.com/electronjoe/sitestamp/internal/folder"
	"github.com/electronjoe/sitestamp/internal/logger"
	"github.com/electronjoe/sitestamp/internal/output"
	"github.com/electronjoe/sitestamp/internal/render"
	"github.com/electronjoe/sitestamp/internal/stamp"
)

// Stages reported by ImageError.
const (
	StageRead   = "read"
	StageDecode = "decode"
	StageRotate = "rotate"
	StageWrite  = "write"
)

// ImageError is a failure to process one source image. The run continues.
type ImageError struct {
	Path  string
	Stage string
	Err   error
}

func (e *ImageError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Stage, e.Path, e.Err)
}

func (e *ImageError) Unwrap() error { return e.Err }

// Summary totals one run.
type Summary struct {
	Processed int
	Failed    int
	Skipped   int
	Missing   []output.Missing
	Errors    []error
}

// Incomplete returns the folders the validator found incomplete.
func (s Summary) Incomplete() []output.Missing {
	var out []output.Missing
	for _, m := range s.Missing {
		if !m.Complete() {
			out = append(out, m)
		}
	}
	return out
}

// Options carries the collaborators a Runner needs.
type Options struct {
	Records    folder.Records
	Rewriter   *stamp.Rewriter
	Compositor *render.Compositor
	Writer     *output.Writer
	Manifest   *output.Manifest // optional
	DryRun     bool
}

// Runner executes the modes sequentially; all randomness is drawn from one
// seeded source so a run is reproducible.
type Runner struct {
	cfg        config.Config
	log        *logger.Logger
	rng        *rand.Rand
	records    folder.Records
	rewriter   *stamp.Rewriter
	compositor *render.Compositor
	writer     *output.Writer
	manifest   *output.Manifest
	dryRun     bool
}

func New(cfg config.Config, log *logger.Logger, rng *rand.Rand, opts Options) *Runner {
	if log == nil {
		log = logger.Nop()
	}
	return &Runner{
		cfg:        cfg,
		log:        log,
		rng:        rng,
		records:    opts.Records,
		rewriter:   opts.Rewriter,
		compositor: opts.Compositor,
		writer:     opts.Writer,
		manifest:   opts.Manifest,
		dryRun:     opts.DryRun,
	}
}

// job is one image to stamp.
type job struct {
	assign.Assignment
	rewriter *stamp.Rewriter
	record   *folder.FolderRecord
	// name is what labels are derived from; usually the output folder.
	name   string
	timing stamp.Timing
	rotate bool
	dst    string
}

// process stamps one image. Image failures are counted in sum; only a
// cancelled context is returned.
func (r *Runner) process(ctx context.Context, j job, sum *Summary) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	log := r.log.With("folder", j.Folder, "category", j.Category, "source", j.Source)

	info, err := exifmeta.ReadFile(j.Source)
	if err != nil {
		r.fail(sum, log, &ImageError{Path: j.Source, Stage: StageRead, Err: err})
		return nil
	}
	c := info.Container()
	d := j.rewriter.Rewrite(ctx, r.rng, j.name, j.record, j.timing, &c)

	angle := 0
	if j.rotate {
		angle = render.RandomAngle(r.rng)
	}

	if r.dryRun {
		log.Info("Would stamp image", "dest", j.dst, "date", d.Date, "rotation", angle)
		sum.Processed++
		return nil
	}

	img, err := decodeJPEG(j.Source)
	if err != nil {
		r.fail(sum, log, &ImageError{Path: j.Source, Stage: StageDecode, Err: err})
		return nil
	}
	if angle != 0 {
		if img, err = render.Rotate(img, angle); err != nil {
			r.fail(sum, log, &ImageError{Path: j.Source, Stage: StageRotate, Err: err})
			return nil
		}
		c.Rotated = true
	}
	stamped := r.compositor.Draw(img, d.Lines())

	hash, err := r.writer.Save(j.dst, stamped, j.Source, c)
	if err != nil {
		r.fail(sum, log, &ImageError{Path: j.Source, Stage: StageWrite, Err: err})
		return nil
	}
	if err := r.manifest.Add(output.Entry{
		Folder:   j.Folder,
		Category: j.Category,
		Suffix:   j.Suffix,
		Source:   j.Source,
		Dest:     j.dst,
		Captured: d.Captured,
		Hash:     hash,
	}); err != nil {
		log.Warn("Failed to record manifest entry", "error", err)
	}

	log.Info("Stamped image", "dest", j.dst, "date", d.Date, "rotation", angle)
	sum.Processed++
	return nil
}

func (r *Runner) fail(sum *Summary, log *logger.Logger, err *ImageError) {
	log.Error("Failed to process image", "stage", err.Stage, "error", err.Err)
	sum.Failed++
	sum.Errors = append(sum.Errors, err)
}

func decodeJPEG(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return jpeg.Decode(f)
}

// withModes returns a copy of the base rewriter with the given label mode and
// GPS policy.
func (r *Runner) withModes(labelMode, gpsPolicy string) *stamp.Rewriter {
	rw := *r.rewriter
	rw.LabelMode = labelMode
	rw.GPSPolicy = gpsPolicy
	return &rw
}
