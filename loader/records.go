package loader

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/zalepa/crashmap/crash"
)

var (
	ErrNoRows        = errors.New("no data rows")
	ErrMissingColumn = errors.New("missing area column")
	ErrUnsupported   = errors.New("unsupported crash file format")
)

// LoadRecords reads crash records from a .csv or .xlsx file. areaColumn
// names the column listing each crash's areas; empty means the standard
// column.
func LoadRecords(path, areaColumn string) ([]crash.Record, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("open file: %w", err)
		}
		defer f.Close()
		return ReadCSV(f, areaColumn)
	case ".xlsx", ".xlsm":
		f, err := excelize.OpenFile(path)
		if err != nil {
			return nil, fmt.Errorf("open file: %w", err)
		}
		defer f.Close()
		return readWorkbook(f, areaColumn)
	}
	return nil, fmt.Errorf("%w: %s", ErrUnsupported, path)
}

// ReadCSV reads crash records from CSV with a header row.
func ReadCSV(r io.Reader, areaColumn string) ([]crash.Record, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	rows, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read rows: %w", err)
	}
	return fromRows(rows, areaColumn)
}

// ReadXLSX reads crash records from the first sheet of a workbook.
func ReadXLSX(r io.Reader, areaColumn string) ([]crash.Record, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()
	return readWorkbook(f, areaColumn)
}

func readWorkbook(f *excelize.File, areaColumn string) ([]crash.Record, error) {
	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("no sheets")
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read rows: %w", err)
	}
	return fromRows(rows, areaColumn)
}

// fromRows maps every row after the header to a record keyed by header
// name. Short rows leave the trailing columns empty.
func fromRows(rows [][]string, areaColumn string) ([]crash.Record, error) {
	if len(rows) <= 1 {
		return nil, ErrNoRows
	}
	if areaColumn == "" {
		areaColumn = crash.AreaColumn
	}

	header := make([]string, len(rows[0]))
	areaIdx := -1
	for i, h := range rows[0] {
		h = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
		header[i] = h
		if h == areaColumn {
			areaIdx = i
		}
	}
	if areaIdx == -1 {
		return nil, fmt.Errorf("%w: %s", ErrMissingColumn, areaColumn)
	}

	out := make([]crash.Record, 0, len(rows)-1)
	for _, row := range rows[1:] {
		if blank(row) {
			continue
		}
		fields := make(map[string]string, len(header))
		for i, h := range header {
			if h == "" || i >= len(row) {
				continue
			}
			fields[h] = row[i]
		}
		if areaColumn != crash.AreaColumn {
			fields[crash.AreaColumn] = fields[areaColumn]
		}
		out = append(out, crash.NewRecord(fields))
	}
	return out, nil
}

func blank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
