package pipeline

import (
	"context"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/electronjoe/sitestamp/internal/assign"
	"github.com/electronjoe/sitestamp/internal/folder"
	"github.com/electronjoe/sitestamp/internal/pool"
	"github.com/electronjoe/sitestamp/internal/stamp"
)

// RunStamp writes a stamped copy of every JPEG below the input root to the
// output root, mirroring the directory layout. Each image takes a random
// time from the window of the metadata row named like its parent directory.
func (r *Runner) RunStamp(ctx context.Context) (Summary, error) {
	var sum Summary
	root := r.cfg.InputRoot
	rw := r.withModes(r.cfg.StampLabelMode, stamp.GPSAlways)

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == root {
				return err
			}
			r.log.Warn("Error accessing path", "path", path, "error", err)
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() || !pool.IsImageFile(path) {
			return nil
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		dir := filepath.Base(filepath.Dir(path))
		rec := r.records.Get(dir)
		if rec == nil {
			r.log.Warn("No metadata for folder; stamping placeholders", "folder", dir)
		}

		return r.process(ctx, job{
			Assignment: assign.Assignment{
				Folder:   filepath.Dir(rel),
				Category: strings.TrimSuffix(d.Name(), filepath.Ext(d.Name())),
				Source:   path,
				Dest:     d.Name(),
			},
			rewriter: rw,
			record:   rec,
			name:     dir,
			dst:      r.writer.Path(rel),
		}, &sum)
	})
	if err != nil {
		return sum, fmt.Errorf("walk %s: %w", root, err)
	}
	return sum, nil
}

// RunStatic applies the fixed stamp from the configuration to every JPEG
// directly inside the input root. Output goes to
// "<label> - <next label>/<rename prefix>.jpg"; further images in the same
// run get " (2)", " (3)", ... appended to the prefix.
func (r *Runner) RunStatic(ctx context.Context) (Summary, error) {
	var sum Summary

	rec, when, err := stamp.StaticRecord(r.cfg.Static)
	if err != nil {
		return sum, err
	}
	files, err := pool.ListImages(r.cfg.InputRoot)
	if err != nil {
		return sum, fmt.Errorf("list %s: %w", r.cfg.InputRoot, err)
	}

	rw := r.withModes(folder.LabelModeIncrement, stamp.GPSAlways)
	rw.Jitter.Probability = 0
	labels := folder.ParseLabels(rec.Name, folder.LabelModeIncrement, "")
	outDir := labels.Current + " - " + labels.Next

	for i, file := range files {
		name := r.cfg.Static.RenamePrefix
		if i > 0 {
			name = fmt.Sprintf("%s (%d)", name, i+1)
		}
		dest := name + ".jpg"
		err := r.process(ctx, job{
			Assignment: assign.Assignment{
				Folder:   outDir,
				Category: r.cfg.Static.RenamePrefix,
				Source:   filepath.Join(r.cfg.InputRoot, file),
				Dest:     dest,
				Base:     when,
			},
			rewriter: rw,
			record:   &rec,
			name:     rec.Name,
			timing:   stamp.Timing{Base: when},
			dst:      r.writer.Path(outDir, dest),
		}, &sum)
		if err != nil {
			return sum, err
		}
	}
	return sum, nil
}
