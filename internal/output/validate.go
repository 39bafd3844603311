package output

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/electronjoe/sitestamp/internal/pool"
)

// Missing lists the expected categories absent from one output folder. An
// empty Categories means the folder is complete.
type Missing struct {
	Folder     string
	Categories []string
}

func (m Missing) Complete() bool { return len(m.Categories) == 0 }

// Validate reports, for every folder under root, which categories have no
// JPEG whose name contains the category. A folder that does not exist is
// missing everything. Validate never fails.
func Validate(root string, folders, categories []string) []Missing {
	report := make([]Missing, 0, len(folders))
	for _, folder := range folders {
		names := jpegNames(filepath.Join(root, folder))
		m := Missing{Folder: folder}
		for _, category := range categories {
			if !containsCategory(names, category) {
				m.Categories = append(m.Categories, category)
			}
		}
		sort.Strings(m.Categories)
		report = append(report, m)
	}
	return report
}

func jpegNames(dir string) []string {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil
	}
	var names []string
	for _, e := range entries {
		if !e.IsDir() && pool.IsImageFile(e.Name()) {
			names = append(names, e.Name())
		}
	}
	return names
}

func containsCategory(names []string, category string) bool {
	for _, name := range names {
		if strings.Contains(name, category) {
			return true
		}
	}
	return false
}
