// Package stamp rewrites capture time and location for an image and derives
// the text lines drawn onto it.
package stamp

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"time"

	"github.com/electronjoe/sitestamp/internal/config"
	"github.com/electronjoe/sitestamp/internal/folder"
)

const (
	UnknownDate    = "Unknown Date"
	UnknownGPS     = "Unknown GPS"
	UnknownAddress = "Address"

	DisplayDateLayout = "02 Jan 2006 15:04:05"

	GPSAlways   = "always"
	GPSExisting = "existing"
)

// Geocoder resolves an address for a coordinate. Implementations never fail;
// they return a placeholder instead.
type Geocoder interface {
	Resolve(ctx context.Context, lat, lon float64) string
}

// Timing selects how the capture time is drawn. A zero Base means a uniform
// second within the record's own window; otherwise Base plus a uniform
// whole-second offset in [0, Span].
type Timing struct {
	Base time.Time
	Span time.Duration
}

// Display holds the derived text for one image.
type Display struct {
	Date    string
	Coords  string
	Address string
	Labels  folder.Labels
	// Captured is the chosen capture time; zero when unknown.
	Captured time.Time
}

// Lines returns the five watermark lines, top to bottom.
func (d Display) Lines() []string {
	return []string{d.Date, d.Coords, d.Address, d.Labels.Current, d.Labels.Next}
}

// Rewriter derives capture time, coordinates and display text for images of
// a folder.
type Rewriter struct {
	Jitter         config.Jitter
	GPSPolicy      string
	LabelMode      string
	LabelDelimiter string
	Geocoder       Geocoder // optional; consulted when a record has no address
}

// NewRewriter builds a Rewriter from the configuration.
func NewRewriter(cfg config.Config, geocoder Geocoder) *Rewriter {
	return &Rewriter{
		Jitter:         cfg.Jitter,
		GPSPolicy:      cfg.GPSPolicy,
		LabelMode:      cfg.LabelMode,
		LabelDelimiter: cfg.LabelDelimiter,
		Geocoder:       geocoder,
	}
}

// Rewrite draws the capture time and coordinates for one image of the folder
// name and applies them to c. A nil rec leaves c untouched and yields the
// "unknown" placeholders. All randomness comes from rng, so a fixed seed
// reproduces the same result.
func (r *Rewriter) Rewrite(ctx context.Context, rng *rand.Rand, name string, rec *folder.FolderRecord, timing Timing, c *Container) Display {
	d := Display{
		Date:    UnknownDate,
		Coords:  UnknownGPS,
		Address: UnknownAddress,
		Labels:  folder.ParseLabels(name, r.LabelMode, r.LabelDelimiter),
	}
	if rec == nil {
		return d
	}

	if captured, ok := drawTime(rng, rec, timing); ok {
		exifStr := captured.Format(config.ExifDateLayout)
		c.DateTime = exifStr
		c.DateTimeOriginal = exifStr
		c.DateTimeDigitized = exifStr
		d.Date = captured.Format(DisplayDateLayout)
		d.Captured = captured
	}

	coord := rec.Coordinate()
	lat, lon := coord.Lat, coord.Lon
	if r.Jitter.Magnitude > 0 && rng.Float64() < r.Jitter.Probability {
		lat += (rng.Float64()*2 - 1) * r.Jitter.Magnitude
		lon += (rng.Float64()*2 - 1) * r.Jitter.Magnitude
	}
	d.Coords = FormatCoords(lat, lon)

	d.Address = rec.Address
	if d.Address == "" && r.Geocoder != nil && len(rec.Coords) > 0 {
		d.Address = r.Geocoder.Resolve(ctx, coord.Lat, coord.Lon)
	}

	if r.GPSPolicy != GPSExisting || c.HadGPS {
		c.GPS = &GPS{Lat: lat, Lon: lon}
	}
	return d
}

func drawTime(rng *rand.Rand, rec *folder.FolderRecord, timing Timing) (time.Time, bool) {
	if !timing.Base.IsZero() {
		span := int64(timing.Span / time.Second)
		if span <= 0 {
			return timing.Base, true
		}
		return timing.Base.Add(time.Duration(rng.Int63n(span+1)) * time.Second), true
	}
	if !rec.HasWindow {
		return time.Time{}, false
	}
	span := int64(rec.End.Sub(rec.Start) / time.Second)
	if span <= 0 {
		return rec.Start, true
	}
	return rec.Start.Add(time.Duration(rng.Int63n(span+1)) * time.Second), true
}

// FormatCoords renders a coordinate pair longitude first with hemisphere
// letters, e.g. "107.055986E 6.323015S".
func FormatCoords(lat, lon float64) string {
	return fmt.Sprintf("%.6f%s %.6f%s", math.Abs(lon), ref(lon, "E", "W"), math.Abs(lat), ref(lat, "N", "S"))
}

// BaseTime draws a folder's base timestamp from the configured window: a
// uniform day in the date range and a uniform second in the time-of-day range.
func BaseTime(rng *rand.Rand, b config.Bounds) time.Time {
	day := b.StartDate.AddDate(0, 0, rng.Intn(b.Days+1))
	sec := b.StartSec + rng.Intn(b.EndSec-b.StartSec+1)
	return day.Add(time.Duration(sec) * time.Second)
}

// StaticRecord builds the fixed record and capture time of the static mode.
func StaticRecord(s config.Static) (folder.FolderRecord, time.Time, error) {
	when, err := time.Parse(config.ExifDateLayout, s.DateTime)
	if err != nil {
		return folder.FolderRecord{}, time.Time{}, fmt.Errorf("static.dateTime: %w", err)
	}
	coords, err := folder.ParseCoords(s.Coords)
	if err != nil {
		return folder.FolderRecord{}, time.Time{}, fmt.Errorf("static.coords: %w", err)
	}
	return folder.FolderRecord{Name: s.Label, Coords: coords, Address: s.Address}, when, nil
}
