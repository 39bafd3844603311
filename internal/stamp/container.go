package stamp

import "math"

// Rational is an unsigned EXIF rational.
type Rational struct {
	Num uint32
	Den uint32
}

// GPS is a coordinate pair destined for the GPS IFD.
type GPS struct {
	Lat float64
	Lon float64
}

// LatitudeDMS returns the latitude as degree/minute/second rationals and
// its reference ("N" or "S").
func (g GPS) LatitudeDMS() ([3]Rational, string) {
	return toDMS(g.Lat), ref(g.Lat, "N", "S")
}

// LongitudeDMS returns the longitude as degree/minute/second rationals and
// its reference ("E" or "W").
func (g GPS) LongitudeDMS() ([3]Rational, string) {
	return toDMS(g.Lon), ref(g.Lon, "E", "W")
}

func ref(v float64, positive, negative string) string {
	if v >= 0 {
		return positive
	}
	return negative
}

// toDMS truncates to whole degrees and minutes and keeps seconds in
// hundredths.
func toDMS(v float64) [3]Rational {
	abs := math.Abs(v)
	d := math.Floor(abs)
	m := math.Floor((abs - d) * 60)
	s := math.Floor((abs - d - m/60) * 3600 * 100)
	if s < 0 {
		s = 0
	}
	return [3]Rational{
		{Num: uint32(d), Den: 1},
		{Num: uint32(m), Den: 1},
		{Num: uint32(s), Den: 100},
	}
}

// Container is the in-memory view of an image's embedded metadata that the
// rewriter edits and the writers persist. Empty date fields and a nil GPS
// leave the corresponding tags of the source untouched.
type Container struct {
	DateTime          string
	DateTimeOriginal  string
	DateTimeDigitized string
	GPS               *GPS

	// HadGPS reports that the source carried both GPSLatitude and GPSLongitude.
	HadGPS bool
	// Orientation is the source orientation tag, 0 when absent.
	Orientation int
	// Rotated is set when the pixels were rotated after decoding; the
	// written image is then upright and its orientation tag must be 1.
	Rotated bool
}

// OutputOrientation is the orientation tag the written image carries.
func (c Container) OutputOrientation() int {
	if c.Rotated {
		return 1
	}
	return c.Orientation
}

// Modified reports whether the rewriter changed anything.
func (c Container) Modified() bool {
	return c.DateTime != "" || c.DateTimeOriginal != "" || c.DateTimeDigitized != "" || c.GPS != nil
}
