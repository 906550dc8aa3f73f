package crash

import (
	"math"
	"strconv"
	"strings"
)

// AreaColumn is the column listing every area a crash belongs to.
const AreaColumn = "LGA_NAME_ALL"

// Record holds one road-crash event. Values are kept as the raw strings read
// from the source file; metrics and splits interpret them on demand.
type Record struct {
	Areas  []string
	fields map[string]string
}

// NewRecord builds a record from raw column values. The area column is split
// on commas and each name is cleansed.
func NewRecord(fields map[string]string) Record {
	r := Record{fields: make(map[string]string, len(fields))}
	for k, v := range fields {
		r.fields[k] = v
	}
	r.Areas = SplitAreas(fields[AreaColumn])
	return r
}

// Field returns the raw value for a column, or "" if the record lacks it.
func (r Record) Field(name string) string {
	return r.fields[name]
}

// SplitAreas cleanses each comma-delimited area name. Empty names are dropped.
func SplitAreas(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		name := Cleanse(p)
		if name == "" {
			continue
		}
		out = append(out, name)
	}
	return out
}

// number parses a numeric field. Unparseable or missing values yield NaN so
// callers can decide how to treat them.
func (r Record) number(name string) float64 {
	s := strings.TrimSpace(r.fields[name])
	if s == "" {
		return math.NaN()
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return math.NaN()
	}
	return v
}

// flag reports whether a Yes/No style field contains "Yes".
func (r Record) flag(name string) bool {
	return strings.Contains(r.fields[name], "Yes")
}
