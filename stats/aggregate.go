package stats

import (
	"encoding/json"
	"math"
	"strings"

	"github.com/zalepa/crashmap/crash"
)

// Stat is the total and average of one metric.
type Stat struct {
	Total   float64 `json:"total"`
	Average float64 `json:"average"`
}

// MetricStats holds an area's statistic for one metric. When a grouping is
// active, Groups has one entry per possible group value and Unknown counts
// occurrences of values that are empty or undeclared.
type MetricStats struct {
	Stat
	Groups  map[string]*Stat `json:"groups,omitempty"`
	Unknown float64          `json:"unknown,omitempty"`
}

// AreaStats holds every metric's statistics for one area, indexed by Metric.
type AreaStats [crash.MetricCount]MetricStats

// MarshalJSON encodes the stats as an object keyed by metric key.
func (a *AreaStats) MarshalJSON() ([]byte, error) {
	out := make(map[string]*MetricStats, crash.MetricCount)
	for _, m := range crash.Metrics() {
		out[m.Key()] = &a[m]
	}
	return json.Marshal(out)
}

func newAreaStats(groupValues []string, grouped bool) *AreaStats {
	as := &AreaStats{}
	if !grouped {
		return as
	}
	for i := range as {
		as[i].Groups = make(map[string]*Stat, len(groupValues))
		for _, v := range groupValues {
			as[i].Groups[v] = &Stat{}
		}
	}
	return as
}

// Aggregate computes per-area statistics and ranges for the dataset under
// the given settings. It makes one pass over the records to accumulate
// totals and a second pass over the areas to derive averages and ranges.
// Every call builds a fresh Result; nothing is shared between calls.
func Aggregate(ds *crash.Dataset, s Settings) *Result {
	group, grouped := s.GroupSplit()
	var groupValues []string
	if grouped {
		groupValues = ds.Values().Of(group)
	}

	res := &Result{
		Settings:    s,
		Areas:       make(map[string]*AreaStats, len(ds.Areas())),
		Ranges:      NewRanges(),
		GroupValues: groupValues,
		Unmatched:   make(map[string]int),
		areaOrder:   ds.Areas(),
	}
	for _, name := range ds.Areas() {
		res.Areas[name] = newAreaStats(groupValues, grouped)
	}

	var (
		amounts [crash.MetricCount]float64
		applies [crash.MetricCount]bool
	)
	for _, r := range ds.Records() {
		if IsExcluded(r, s.Filters) {
			continue
		}
		res.Selected++

		for _, m := range crash.Metrics() {
			amounts[m] = m.Derive(r)
			applies[m] = m.Applies(r)
		}
		var recordGroups []string
		if grouped {
			recordGroups = strings.Split(group.Value(r), ",")
		}

		for _, area := range r.Areas {
			as, ok := res.Areas[area]
			if !ok {
				res.Unmatched[area]++
				continue
			}
			for m := range as {
				if !applies[m] {
					continue
				}
				ms := &as[m]
				ms.Total += amounts[m]
				for _, v := range recordGroups {
					if st, ok := ms.Groups[v]; ok {
						st.Total += amounts[m]
					} else {
						// Unknown counts occurrences, not magnitude.
						ms.Unknown++
					}
				}
			}
		}
	}

	threshold := float64(s.Threshold)
	selected := float64(res.Selected)
	for _, name := range ds.Areas() {
		as := res.Areas[name]
		crashes := as[crash.Crashes].Total

		for _, m := range crash.Metrics() {
			ms := &as[m]
			denom := crashes
			if m == crash.Crashes {
				denom = selected
			}
			ms.Average = ratio(ms.Total, denom)
			if crashes >= threshold {
				res.Ranges.Update(Global, m, ms.Total)
				res.Ranges.Update(GlobalAverage, m, ms.Average)
			}
		}

		for _, v := range groupValues {
			groupCrashes := as[crash.Crashes].Groups[v].Total
			for _, m := range crash.Metrics() {
				st := as[m].Groups[v]
				denom := groupCrashes
				if m == crash.Crashes {
					denom = crashes
				}
				st.Average = ratio(st.Total, denom)
				if groupCrashes >= threshold {
					res.Ranges.Update(GroupScope(v, false), m, st.Total)
					res.Ranges.Update(GroupScope(v, true), m, st.Average)
				}
			}
		}
	}
	return res
}

// ratio divides, returning 0 when the result is undefined.
func ratio(num, denom float64) float64 {
	if denom == 0 {
		return 0
	}
	v := num / denom
	if math.IsNaN(v) {
		return 0
	}
	return v
}
