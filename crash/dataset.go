package crash

import "sort"

// Dataset is the immutable record store: every loaded crash record, the
// canonical area names from the boundary data, and the possible values of
// each split attribute.
type Dataset struct {
	records   []Record
	areas     []string
	areaSet   map[string]bool
	values    PossibleValues
	unmatched map[string]int
}

// NewDataset builds a dataset. Area names are cleansed and de-duplicated,
// keeping their input order. Possible values are discovered once here.
func NewDataset(records []Record, areaNames []string) *Dataset {
	ds := &Dataset{
		records:   records,
		areaSet:   make(map[string]bool, len(areaNames)),
		unmatched: make(map[string]int),
	}
	for _, n := range areaNames {
		name := Cleanse(n)
		if name == "" || ds.areaSet[name] {
			continue
		}
		ds.areaSet[name] = true
		ds.areas = append(ds.areas, name)
	}
	for _, r := range records {
		for _, a := range r.Areas {
			if !ds.areaSet[a] {
				ds.unmatched[a]++
			}
		}
	}
	ds.values = DiscoverValues(records)
	return ds
}

// Records returns every record. The slice must not be modified.
func (ds *Dataset) Records() []Record { return ds.records }

// Len is the number of records.
func (ds *Dataset) Len() int { return len(ds.records) }

// Areas returns the canonical area names. The slice must not be modified.
func (ds *Dataset) Areas() []string { return ds.areas }

// HasArea reports whether name is a canonical area.
func (ds *Dataset) HasArea(name string) bool { return ds.areaSet[name] }

// Values returns the possible values of every split.
func (ds *Dataset) Values() PossibleValues { return ds.values }

// Unmatched returns, for each area name referenced by a record but missing
// from the canonical set, the number of records referencing it.
func (ds *Dataset) Unmatched() map[string]int {
	out := make(map[string]int, len(ds.unmatched))
	for k, v := range ds.unmatched {
		out[k] = v
	}
	return out
}

// UnmatchedNames returns the unmatched area names sorted alphabetically.
func (ds *Dataset) UnmatchedNames() []string {
	names := make([]string, 0, len(ds.unmatched))
	for n := range ds.unmatched {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
