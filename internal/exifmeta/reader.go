// Package exifmeta reads and writes the EXIF fields the stamping pipeline
// cares about.
package exifmeta

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rwcarlsen/goexif/exif"

	"github.com/electronjoe/sitestamp/internal/stamp"
)

// Info is what was found in an image's EXIF block.
type Info struct {
	Taken       time.Time
	HasTime     bool
	Lat         float64
	Lon         float64
	HasGPS      bool
	Orientation int
}

// Container seeds a stamp.Container from the source metadata.
func (i Info) Container() stamp.Container {
	return stamp.Container{HadGPS: i.HasGPS, Orientation: i.Orientation}
}

// ReadFile decodes the EXIF block of the JPEG at path. A file without EXIF
// yields a zero Info and no error.
func ReadFile(path string) (Info, error) {
	f, err := os.Open(path)
	if err != nil {
		return Info{}, fmt.Errorf("open file: %w", err)
	}
	defer f.Close()
	return Read(f)
}

// Read decodes EXIF from r.
func Read(r io.Reader) (Info, error) {
	x, err := exif.Decode(r)
	if err != nil || x == nil {
		// No EXIF is the normal case for freshly exported images.
		return Info{}, nil
	}

	var info Info
	if t, err := x.DateTime(); err == nil {
		info.Taken = t
		info.HasTime = true
	}
	if lat, lon, err := x.LatLong(); err == nil {
		info.Lat, info.Lon = lat, lon
		info.HasGPS = true
	}
	if tag, err := x.Get(exif.Orientation); err == nil {
		if v, err := tag.Int(0); err == nil {
			info.Orientation = v
		}
	}
	return info, nil
}
