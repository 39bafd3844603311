package exifmeta

import (
	"bytes"
	"fmt"
	"math"
	"os"

	"github.com/barasher/go-exiftool"
	exif "github.com/dsoprea/go-exif/v3"
	exifcommon "github.com/dsoprea/go-exif/v3/common"
	jpegstructure "github.com/dsoprea/go-jpeg-image-structure/v2"

	"github.com/electronjoe/sitestamp/internal/stamp"
)

const (
	BackendNative   = "native"
	BackendExiftool = "exiftool"
)

// Writer persists an encoded JPEG to dst with the container's fields applied
// on top of the EXIF carried by src.
type Writer interface {
	Write(dst string, encoded []byte, src string, c stamp.Container) error
	Close() error
}

// New returns the writer for backend.
func New(backend string) (Writer, error) {
	switch backend {
	case "", BackendNative:
		return NativeWriter{}, nil
	case BackendExiftool:
		return NewToolWriter()
	default:
		return nil, fmt.Errorf("unknown exif backend %q", backend)
	}
}

// NativeWriter edits EXIF in-process. The source's EXIF block is copied over
// and the rewritten fields replace their counterparts.
type NativeWriter struct{}

func (NativeWriter) Close() error { return nil }

func (NativeWriter) Write(dst string, encoded []byte, src string, c stamp.Container) error {
	rootIb, carried := sourceBuilder(src)
	if rootIb == nil && !c.Modified() {
		return os.WriteFile(dst, encoded, 0o644)
	}
	if rootIb == nil {
		var err error
		if rootIb, err = newBuilder(); err != nil {
			return err
		}
	}
	if err := apply(rootIb, c); err != nil {
		if !carried {
			return err
		}
		// The carried block may hold tags the builder refuses to re-encode.
		fresh, ferr := newBuilder()
		if ferr != nil {
			return ferr
		}
		if err := apply(fresh, c); err != nil {
			return err
		}
		rootIb = fresh
	}

	out, err := embed(encoded, rootIb)
	if err != nil {
		return err
	}
	return os.WriteFile(dst, out, 0o644)
}

func sourceBuilder(src string) (*exif.IfdBuilder, bool) {
	if src == "" {
		return nil, false
	}
	intfc, err := jpegstructure.NewJpegMediaParser().ParseFile(src)
	if err != nil {
		return nil, false
	}
	sl, ok := intfc.(*jpegstructure.SegmentList)
	if !ok {
		return nil, false
	}
	rootIb, err := sl.ConstructExifBuilder()
	if err != nil {
		return nil, false
	}
	return rootIb, true
}

func newBuilder() (*exif.IfdBuilder, error) {
	im, err := exifcommon.NewIfdMappingWithStandard()
	if err != nil {
		return nil, fmt.Errorf("ifd mapping: %w", err)
	}
	ti := exif.NewTagIndex()
	return exif.NewIfdBuilder(im, ti, exifcommon.IfdStandardIfdIdentity, exifcommon.EncodeDefaultByteOrder), nil
}

func apply(rootIb *exif.IfdBuilder, c stamp.Container) error {
	if c.DateTime != "" {
		if err := rootIb.SetStandardWithName("DateTime", c.DateTime); err != nil {
			return fmt.Errorf("set DateTime: %w", err)
		}
	}
	if c.Orientation > 1 {
		o := uint16(c.OutputOrientation())
		if err := rootIb.SetStandardWithName("Orientation", []uint16{o}); err != nil {
			return fmt.Errorf("set Orientation: %w", err)
		}
	}
	if c.DateTimeOriginal != "" || c.DateTimeDigitized != "" {
		exifIb, err := exif.GetOrCreateIbFromRootIb(rootIb, "IFD/Exif")
		if err != nil {
			return fmt.Errorf("exif ifd: %w", err)
		}
		if c.DateTimeOriginal != "" {
			if err := exifIb.SetStandardWithName("DateTimeOriginal", c.DateTimeOriginal); err != nil {
				return fmt.Errorf("set DateTimeOriginal: %w", err)
			}
		}
		if c.DateTimeDigitized != "" {
			if err := exifIb.SetStandardWithName("DateTimeDigitized", c.DateTimeDigitized); err != nil {
				return fmt.Errorf("set DateTimeDigitized: %w", err)
			}
		}
	}
	if c.GPS != nil {
		gpsIb, err := exif.GetOrCreateIbFromRootIb(rootIb, "IFD/GPSInfo")
		if err != nil {
			return fmt.Errorf("gps ifd: %w", err)
		}
		lat, latRef := c.GPS.LatitudeDMS()
		lon, lonRef := c.GPS.LongitudeDMS()
		fields := []struct {
			name  string
			value interface{}
		}{
			{"GPSVersionID", []byte{2, 2, 0, 0}},
			{"GPSLatitudeRef", latRef},
			{"GPSLatitude", rationals(lat)},
			{"GPSLongitudeRef", lonRef},
			{"GPSLongitude", rationals(lon)},
		}
		for _, f := range fields {
			if err := gpsIb.SetStandardWithName(f.name, f.value); err != nil {
				return fmt.Errorf("set %s: %w", f.name, err)
			}
		}
	}
	return nil
}

func rationals(dms [3]stamp.Rational) []exifcommon.Rational {
	out := make([]exifcommon.Rational, len(dms))
	for i, r := range dms {
		out[i] = exifcommon.Rational{Numerator: r.Num, Denominator: r.Den}
	}
	return out
}

func embed(encoded []byte, rootIb *exif.IfdBuilder) ([]byte, error) {
	intfc, err := jpegstructure.NewJpegMediaParser().ParseBytes(encoded)
	if err != nil {
		return nil, fmt.Errorf("parse encoded jpeg: %w", err)
	}
	sl, ok := intfc.(*jpegstructure.SegmentList)
	if !ok {
		return nil, fmt.Errorf("unexpected jpeg structure %T", intfc)
	}
	if err := sl.SetExif(rootIb); err != nil {
		return nil, fmt.Errorf("set exif: %w", err)
	}
	var buf bytes.Buffer
	if err := sl.Write(&buf); err != nil {
		return nil, fmt.Errorf("write jpeg: %w", err)
	}
	return buf.Bytes(), nil
}

// ToolWriter delegates EXIF edits to an exiftool process kept open for the
// writer's lifetime. Tags of the source other than the rewritten ones and
// the orientation are not carried over.
type ToolWriter struct {
	et *exiftool.Exiftool
}

func NewToolWriter() (*ToolWriter, error) {
	et, err := exiftool.NewExiftool(exiftool.NoPrintConversion())
	if err != nil {
		return nil, fmt.Errorf("start exiftool: %w", err)
	}
	return &ToolWriter{et: et}, nil
}

func (w *ToolWriter) Close() error { return w.et.Close() }

func (w *ToolWriter) Write(dst string, encoded []byte, src string, c stamp.Container) error {
	if err := os.WriteFile(dst, encoded, 0o644); err != nil {
		return err
	}
	if !c.Modified() && c.Orientation <= 1 {
		return nil
	}

	fm := exiftool.EmptyFileMetadata()
	fm.File = dst
	if c.DateTime != "" {
		fm.SetString("ModifyDate", c.DateTime)
	}
	if c.DateTimeOriginal != "" {
		fm.SetString("DateTimeOriginal", c.DateTimeOriginal)
	}
	if c.DateTimeDigitized != "" {
		fm.SetString("CreateDate", c.DateTimeDigitized)
	}
	if c.Orientation > 1 {
		fm.SetInt("Orientation", int64(c.OutputOrientation()))
	}
	if c.GPS != nil {
		_, latRef := c.GPS.LatitudeDMS()
		_, lonRef := c.GPS.LongitudeDMS()
		fm.SetFloat("GPSLatitude", math.Abs(c.GPS.Lat))
		fm.SetString("GPSLatitudeRef", latRef)
		fm.SetFloat("GPSLongitude", math.Abs(c.GPS.Lon))
		fm.SetString("GPSLongitudeRef", lonRef)
	}

	fms := []exiftool.FileMetadata{fm}
	w.et.WriteMetadata(fms)
	if fms[0].Err != nil {
		return fmt.Errorf("exiftool write %s: %w", dst, fms[0].Err)
	}
	return nil
}
