// Package locate scans a tree of site folders and builds a folder metadata
// skeleton from the EXIF data already present in their images.
package locate

import (
	"context"
	"encoding/csv"
	"io"
	"path/filepath"
	"strconv"
	"time"

	"github.com/electronjoe/sitestamp/internal/config"
	"github.com/electronjoe/sitestamp/internal/exifmeta"
	"github.com/electronjoe/sitestamp/internal/logger"
	"github.com/electronjoe/sitestamp/internal/pool"
	"github.com/electronjoe/sitestamp/internal/stamp"
)

// Row summarises one folder.
type Row struct {
	Folder  string
	Start   time.Time
	End     time.Time
	HasTime bool
	Lat     float64
	Lon     float64
	HasGPS  bool
	Address string
	Images  int
}

// Scan processes every immediate subdirectory of root: the earliest and
// latest capture time, the first GPS fix and, when geocoder is set, the
// address of that fix.
func Scan(ctx context.Context, root string, geocoder stamp.Geocoder, log *logger.Logger) ([]Row, error) {
	if log == nil {
		log = logger.Nop()
	}
	dirs, err := pool.Categories(root)
	if err != nil {
		return nil, &pool.RootError{Root: root, Err: err}
	}

	rows := make([]Row, 0, len(dirs))
	for _, dir := range dirs {
		if err := ctx.Err(); err != nil {
			return rows, err
		}
		subDir := filepath.Join(root, dir)
		log.Info("Processing sub-directory", "dir", subDir)

		files, err := pool.ListImages(subDir)
		if err != nil {
			log.Warn("Failed to read directory", "dir", subDir, "error", err)
			continue
		}
		row := Row{Folder: dir}
		for _, file := range files {
			info, err := exifmeta.ReadFile(filepath.Join(subDir, file))
			if err != nil {
				log.Warn("Error processing image", "file", file, "error", err)
				continue
			}
			row.Images++
			if info.HasTime {
				if !row.HasTime || info.Taken.Before(row.Start) {
					row.Start = info.Taken
				}
				if !row.HasTime || info.Taken.After(row.End) {
					row.End = info.Taken
				}
				row.HasTime = true
			}
			if info.HasGPS && !row.HasGPS {
				row.Lat, row.Lon, row.HasGPS = info.Lat, info.Lon, true
			}
		}
		if row.HasGPS && geocoder != nil {
			row.Address = geocoder.Resolve(ctx, row.Lat, row.Lon)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// WriteCSV writes rows in the folder metadata layout. Unknown values are
// left blank.
func WriteCSV(w io.Writer, rows []Row) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"folder", "start", "end", "lat", "lon", "address"}); err != nil {
		return err
	}
	for _, r := range rows {
		rec := []string{r.Folder, "", "", "", "", r.Address}
		if r.HasTime {
			rec[1] = r.Start.Format(config.ExifDateLayout)
			rec[2] = r.End.Format(config.ExifDateLayout)
		}
		if r.HasGPS {
			rec[3] = strconv.FormatFloat(r.Lat, 'f', 6, 64)
			rec[4] = strconv.FormatFloat(r.Lon, 'f', 6, 64)
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
