package folder

import (
	"encoding/csv"
	"fmt"
	"os"
	"strings"
)

// ConvertXLSX writes one sheet of an Excel workbook to a CSV file. Line
// breaks inside cells become spaces and doubled spaces are collapsed, so
// multi-line addresses survive as a single CSV field.
func ConvertXLSX(src, sheet, dst string) (int, error) {
	rows, err := readXLSX(src, sheet)
	if err != nil {
		return 0, fmt.Errorf("read workbook %s: %w", src, err)
	}

	out, err := os.Create(dst)
	if err != nil {
		return 0, fmt.Errorf("create %s: %w", dst, err)
	}
	defer out.Close()

	width := 0
	for _, row := range rows {
		if len(row) > width {
			width = len(row)
		}
	}

	w := csv.NewWriter(out)
	for _, row := range rows {
		record := make([]string, width)
		for i, value := range row {
			record[i] = cleanCell(value)
		}
		if err := w.Write(record); err != nil {
			return 0, fmt.Errorf("write %s: %w", dst, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return 0, fmt.Errorf("flush %s: %w", dst, err)
	}
	return len(rows), nil
}

func cleanCell(s string) string {
	s = strings.ReplaceAll(s, "\r\n", " ")
	s = strings.ReplaceAll(s, "\n", " ")
	return strings.ReplaceAll(s, "  ", " ")
}
