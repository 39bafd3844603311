package pipeline

import (
	"context"
	"errors"
	"path/filepath"
	"time"

	"github.com/electronjoe/sitestamp/internal/assign"
	"github.com/electronjoe/sitestamp/internal/output"
	"github.com/electronjoe/sitestamp/internal/pool"
	"github.com/electronjoe/sitestamp/internal/stamp"
)

// RunRandomize fills every output folder named by the metadata with one
// image per category:
//   - plain categories draw one image under the reuse cooldown;
//   - network categories draw two distinct images, one per network suffix;
//   - ordered categories give their idx-th file to the idx-th folder;
//   - ordered-random groups are shuffled and the idx-th group goes to the
//     idx-th folder.
//
// Every folder gets a base time from the configured window and each image a
// random offset within the folder span. Output folders are validated at the
// end.
func (r *Runner) RunRandomize(ctx context.Context) (Summary, error) {
	var sum Summary

	bounds, err := r.cfg.Window.Bounds()
	if err != nil {
		return sum, err
	}
	folders := r.records.Names()
	if len(folders) == 0 {
		r.log.Warn("No output folders in metadata; nothing to do", "metadata", r.cfg.MetadataPath)
		return sum, nil
	}

	plain := r.buildPools("plain", r.cfg.InputRoot)
	network := r.buildPools("network", r.cfg.NetworkRoot)
	ordered := r.buildPools("ordered", r.cfg.OrderedRoot)
	groups, groupCategories := r.buildGroups(r.cfg.OrderedRandomRoot)

	engine := assign.NewEngine(r.rng)
	span := time.Duration(r.cfg.FolderSpanMinutes) * time.Minute
	suffixes := r.cfg.NetworkSuffixes

	for idx, name := range folders {
		if err := ctx.Err(); err != nil {
			return sum, err
		}
		rec := r.records.Get(name)
		base := stamp.BaseTime(r.rng, bounds)
		r.log.Debug("Filling output folder", "folder", name, "index", idx, "base", base)

		newJob := func(category, suffix, source string) job {
			dest := assign.DestName(category, suffix, filepath.Ext(source))
			return job{
				Assignment: assign.Assignment{
					Folder:   name,
					Index:    idx,
					Category: category,
					Suffix:   suffix,
					Source:   source,
					Dest:     dest,
					Base:     base,
				},
				rewriter: r.rewriter,
				record:   rec,
				name:     name,
				timing:   stamp.Timing{Base: base, Span: span},
				rotate:   r.cfg.Rotate && !r.cfg.Exempt(category),
				dst:      r.writer.Path(name, dest),
			}
		}

		for _, p := range plain {
			file, err := engine.Pick(p, idx, assign.DefaultSuffix)
			if errors.Is(err, assign.ErrEmptyPool) {
				r.log.Warn("No images in category", "category", p.Category, "dir", p.Dir())
				sum.Skipped++
				continue
			}
			if err := r.process(ctx, newJob(p.Category, "", p.Path(file)), &sum); err != nil {
				return sum, err
			}
		}

		for _, p := range network {
			first, second, err := engine.PickPair(p, idx, suffixes[0], suffixes[1])
			if errors.Is(err, assign.ErrEmptyPool) {
				r.log.Warn("No images in category", "category", p.Category, "dir", p.Dir())
				sum.Skipped += 2
				continue
			}
			for i, file := range []string{first, second} {
				if err := r.process(ctx, newJob(p.Category, suffixes[i], p.Path(file)), &sum); err != nil {
					return sum, err
				}
			}
		}

		for _, p := range ordered {
			if idx >= len(p.Files) {
				continue
			}
			if err := r.process(ctx, newJob(p.Category, "", p.Path(p.Files[idx])), &sum); err != nil {
				return sum, err
			}
		}

		if idx < len(groups) {
			g := groups[idx]
			for _, category := range groupCategories {
				file, ok := g.Files[category]
				if !ok {
					continue
				}
				source := filepath.Join(r.cfg.OrderedRandomRoot, category, file)
				if err := r.process(ctx, newJob(category, "", source), &sum); err != nil {
					return sum, err
				}
			}
		}
	}

	if !r.dryRun {
		expected := pool.Names(plain, network, ordered)
		sum.Missing = output.Validate(r.cfg.OutputRoot, folders, expected)
		r.logValidation(sum.Missing)
	}
	return sum, nil
}

func (r *Runner) buildPools(kind, root string) []pool.CategoryPool {
	if root == "" {
		return nil
	}
	pools, errs := pool.Build(root)
	for _, err := range errs {
		r.log.Warn("Skipping unreadable image root", "kind", kind, "error", err)
	}
	return pools
}

func (r *Runner) buildGroups(root string) ([]pool.Group, []string) {
	if root == "" {
		return nil, nil
	}
	groups, categories, err := pool.Grouped(root)
	if err != nil {
		r.log.Warn("Skipping unreadable image root", "kind", "ordered-random", "error", err)
		return nil, nil
	}
	r.rng.Shuffle(len(groups), func(i, j int) { groups[i], groups[j] = groups[j], groups[i] })
	return groups, categories
}

func (r *Runner) logValidation(report []output.Missing) {
	for _, m := range report {
		if m.Complete() {
			r.log.Info("All expected files present", "folder", m.Folder)
			continue
		}
		r.log.Warn("Missing files in output folder", "folder", m.Folder, "categories", m.Categories)
	}
}
