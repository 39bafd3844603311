// Package pool enumerates category directories of source images.
package pool

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/maruel/natural"
)

// CategoryPool is the set of candidate source images for one category.
type CategoryPool struct {
	Root     string
	Category string
	Files    []string // base names, natural order
	// Gap is the reuse cooldown; it equals the pool size.
	Gap int
}

// Dir is the category directory.
func (p CategoryPool) Dir() string {
	return filepath.Join(p.Root, p.Category)
}

// Path returns the full path of one of the pool's files.
func (p CategoryPool) Path(file string) string {
	return filepath.Join(p.Root, p.Category, file)
}

// Empty reports whether the pool has no candidates.
func (p CategoryPool) Empty() bool {
	return len(p.Files) == 0
}

// IsImageFile checks for the JPEG extensions the pipeline can stamp.
func IsImageFile(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".jpg", ".jpeg":
		return true
	}
	return false
}

// ListImages returns the JPEG base names directly inside dir, natural order.
func ListImages(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var files []string
	for _, entry := range entries {
		if entry.IsDir() || !IsImageFile(entry.Name()) {
			continue
		}
		files = append(files, entry.Name())
	}
	sort.Sort(natural.StringSlice(files))
	return files, nil
}

// Categories returns the immediate subdirectory names of root, natural order.
func Categories(root string) ([]string, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, err
	}
	var names []string
	for _, entry := range entries {
		if entry.IsDir() && !strings.HasPrefix(entry.Name(), ".") {
			names = append(names, entry.Name())
		}
	}
	sort.Sort(natural.StringSlice(names))
	return names, nil
}

// RootError reports a root directory that could not be scanned.
type RootError struct {
	Root string
	Err  error
}

func (e *RootError) Error() string {
	return fmt.Sprintf("scan %s: %v", e.Root, e.Err)
}

func (e *RootError) Unwrap() error { return e.Err }

// Build scans each root and returns one pool per category directory, in
// root order and then category order. A root that cannot be read is
// reported in errs and skipped; the other roots are still scanned.
func Build(roots ...string) (pools []CategoryPool, errs []error) {
	for _, root := range roots {
		categories, err := Categories(root)
		if err != nil {
			errs = append(errs, &RootError{Root: root, Err: err})
			continue
		}
		for _, category := range categories {
			files, err := ListImages(filepath.Join(root, category))
			if err != nil {
				errs = append(errs, &RootError{Root: filepath.Join(root, category), Err: err})
				continue
			}
			pools = append(pools, CategoryPool{
				Root:     root,
				Category: category,
				Files:    files,
				Gap:      len(files),
			})
		}
	}
	return pools, errs
}

// Names returns the union of category names over pools, sorted.
func Names(pools ...[]CategoryPool) []string {
	seen := make(map[string]struct{})
	var names []string
	for _, group := range pools {
		for _, p := range group {
			if _, ok := seen[p.Category]; ok {
				continue
			}
			seen[p.Category] = struct{}{}
			names = append(names, p.Category)
		}
	}
	sort.Strings(names)
	return names
}

// Group is one ordered-random unit: files sharing a base name across categories.
type Group struct {
	Key   string
	Files map[string]string // category -> file name
}

// Grouped scans root and groups files by base name (extension ignored)
// across its categories. Groups are returned in natural key order; callers
// shuffle them. The category list is returned in natural order.
func Grouped(root string) ([]Group, []string, error) {
	categories, err := Categories(root)
	if err != nil {
		return nil, nil, &RootError{Root: root, Err: err}
	}
	byKey := make(map[string]map[string]string)
	for _, category := range categories {
		files, err := ListImages(filepath.Join(root, category))
		if err != nil {
			return nil, nil, &RootError{Root: filepath.Join(root, category), Err: err}
		}
		for _, file := range files {
			key := strings.TrimSuffix(file, filepath.Ext(file))
			if byKey[key] == nil {
				byKey[key] = make(map[string]string)
			}
			byKey[key][category] = file
		}
	}

	keys := make([]string, 0, len(byKey))
	for key := range byKey {
		keys = append(keys, key)
	}
	sort.Sort(natural.StringSlice(keys))

	groups := make([]Group, 0, len(keys))
	for _, key := range keys {
		groups = append(groups, Group{Key: key, Files: byKey[key]})
	}
	return groups, categories, nil
}
