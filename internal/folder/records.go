// Package folder loads the tabular metadata describing each output folder's
// time window, location and address.
package folder

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/electronjoe/sitestamp/internal/config"
)

// Coordinate is a latitude/longitude pair in decimal degrees.
type Coordinate struct {
	Lat float64
	Lon float64
}

// FolderRecord is one output folder's target context.
type FolderRecord struct {
	Name      string
	Start     time.Time
	End       time.Time
	HasWindow bool
	Coords    []Coordinate
	Address   string
}

// Coordinate returns the first coordinate of the record, or 0,0 when the
// record carries none.
func (r FolderRecord) Coordinate() Coordinate {
	if len(r.Coords) == 0 {
		return Coordinate{}
	}
	return r.Coords[0]
}

// Records keeps folder records in file order with lookup by name.
type Records struct {
	order  []string
	byName map[string]*FolderRecord
}

// NewRecords builds a Records set; later duplicates replace earlier ones but
// keep the position of the first occurrence.
func NewRecords(recs ...FolderRecord) Records {
	r := Records{byName: make(map[string]*FolderRecord)}
	for _, rec := range recs {
		r.add(rec)
	}
	return r
}

func (r *Records) add(rec FolderRecord) {
	if r.byName == nil {
		r.byName = make(map[string]*FolderRecord)
	}
	if _, ok := r.byName[rec.Name]; !ok {
		r.order = append(r.order, rec.Name)
	}
	r.byName[rec.Name] = &rec
}

// Get returns the record for name, or nil.
func (r Records) Get(name string) *FolderRecord {
	return r.byName[name]
}

// Names returns folder names in file order.
func (r Records) Names() []string {
	return append([]string(nil), r.order...)
}

func (r Records) Len() int { return len(r.order) }

// LoadError describes a failure to load the metadata table. Row is the
// 1-based data row (0 when the failure is not row specific).
type LoadError struct {
	Path string
	Row  int
	Err  error
}

func (e *LoadError) Error() string {
	if e.Row > 0 {
		return fmt.Sprintf("load metadata %s: row %d: %v", e.Path, e.Row, e.Err)
	}
	return fmt.Sprintf("load metadata %s: %v", e.Path, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

// Warning is a non-fatal problem found while loading a row.
type Warning struct {
	Row    int
	Folder string
	Err    error
}

// Load reads a .csv or .xlsx metadata table. On a LoadError the records read
// before the failure are still returned.
func Load(path string) (Records, []Warning, error) {
	var (
		rows [][]string
		err  error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx", ".xlsm":
		rows, err = readXLSX(path, "")
	default:
		rows, err = readCSV(path)
	}
	if err != nil {
		return NewRecords(), nil, &LoadError{Path: path, Err: err}
	}
	return parseRows(path, rows)
}

func readCSV(path string) ([][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return readCSVFrom(f)
}

func readCSVFrom(r io.Reader) ([][]string, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	return reader.ReadAll()
}

// readXLSX returns the rows of sheet, or of the first sheet when sheet is empty.
func readXLSX(path, sheet string) ([][]string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	if sheet == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return nil, errors.New("workbook has no sheets")
		}
		sheet = sheets[0]
	}
	return f.GetRows(sheet)
}

type columns struct {
	folder, start, end, lat, lon, coords, address int
}

func headerIndex(header []string, name string) int {
	for i, value := range header {
		v := strings.TrimPrefix(value, "\ufeff")
		if strings.EqualFold(strings.TrimSpace(v), name) {
			return i
		}
	}
	return -1
}

func parseRows(path string, rows [][]string) (Records, []Warning, error) {
	recs := NewRecords()
	if len(rows) == 0 {
		return recs, nil, &LoadError{Path: path, Err: errors.New("empty table")}
	}
	header := rows[0]
	cols := columns{
		folder:  headerIndex(header, "folder"),
		start:   headerIndex(header, "start"),
		end:     headerIndex(header, "end"),
		lat:     headerIndex(header, "lat"),
		lon:     headerIndex(header, "lon"),
		coords:  headerIndex(header, "coords"),
		address: headerIndex(header, "address"),
	}
	if cols.folder == -1 {
		return recs, nil, &LoadError{Path: path, Err: errors.New("missing folder column")}
	}

	var warnings []Warning
	for i, row := range rows[1:] {
		rowNum := i + 1
		name := strings.TrimSpace(cell(row, cols.folder))
		if name == "" {
			continue
		}
		rec := FolderRecord{Name: name, Address: cell(row, cols.address)}

		// Blank cells mean the folder has no window or no fix; they are
		// what `locate` emits for folders without EXIF data.
		if cols.start != -1 && cols.end != -1 && !blank(row, cols.start, cols.end) {
			start, err := time.Parse(config.ExifDateLayout, strings.TrimSpace(cell(row, cols.start)))
			if err != nil {
				return recs, warnings, &LoadError{Path: path, Row: rowNum, Err: fmt.Errorf("start: %w", err)}
			}
			end, err := time.Parse(config.ExifDateLayout, strings.TrimSpace(cell(row, cols.end)))
			if err != nil {
				return recs, warnings, &LoadError{Path: path, Row: rowNum, Err: fmt.Errorf("end: %w", err)}
			}
			if end.Before(start) {
				return recs, warnings, &LoadError{Path: path, Row: rowNum, Err: fmt.Errorf("end %s before start %s", end, start)}
			}
			rec.Start, rec.End, rec.HasWindow = start, end, true
		}

		if cols.lat != -1 && cols.lon != -1 && !blank(row, cols.lat, cols.lon) {
			lat, err := strconv.ParseFloat(strings.TrimSpace(cell(row, cols.lat)), 64)
			if err != nil {
				return recs, warnings, &LoadError{Path: path, Row: rowNum, Err: fmt.Errorf("lat: %w", err)}
			}
			lon, err := strconv.ParseFloat(strings.TrimSpace(cell(row, cols.lon)), 64)
			if err != nil {
				return recs, warnings, &LoadError{Path: path, Row: rowNum, Err: fmt.Errorf("lon: %w", err)}
			}
			rec.Coords = []Coordinate{{Lat: lat, Lon: lon}}
		} else if cols.coords != -1 {
			coords, err := ParseCoords(cell(row, cols.coords))
			if err != nil {
				// The row keeps the pairs parsed before the error.
				warnings = append(warnings, Warning{Row: rowNum, Folder: name, Err: err})
			}
			rec.Coords = coords
		}

		recs.add(rec)
	}
	return recs, warnings, nil
}

func blank(row []string, idx ...int) bool {
	for _, i := range idx {
		if strings.TrimSpace(cell(row, i)) != "" {
			return false
		}
	}
	return true
}

func cell(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return row[idx]
}

// ParseCoords parses whitespace separated "lat° lon°" pairs. Coordinates
// parsed before an error are returned alongside it; a trailing unpaired
// value is an error but the complete pairs are kept.
func ParseCoords(s string) ([]Coordinate, error) {
	fields := strings.Fields(strings.ReplaceAll(s, "°", ""))
	var coords []Coordinate
	for i := 0; i+1 < len(fields); i += 2 {
		lat, err := strconv.ParseFloat(strings.TrimSuffix(fields[i], ","), 64)
		if err != nil {
			return coords, fmt.Errorf("latitude %q: %w", fields[i], err)
		}
		lon, err := strconv.ParseFloat(strings.TrimSuffix(fields[i+1], ","), 64)
		if err != nil {
			return coords, fmt.Errorf("longitude %q: %w", fields[i+1], err)
		}
		coords = append(coords, Coordinate{Lat: lat, Lon: lon})
	}
	if len(fields)%2 != 0 {
		return coords, fmt.Errorf("odd number of coordinate values in %q", s)
	}
	return coords, nil
}
