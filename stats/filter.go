package stats

import "github.com/zalepa/crashmap/crash"

// IsExcluded reports whether any active filter excludes the record's value
// for its attribute.
func IsExcluded(r crash.Record, filters Filters) bool {
	for sp, excluded := range filters {
		v := sp.Value(r)
		for _, x := range excluded {
			if x == v {
				return true
			}
		}
	}
	return false
}
