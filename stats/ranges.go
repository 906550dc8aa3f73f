package stats

import (
	"math"
	"sort"

	"github.com/zalepa/crashmap/crash"
)

// Range is the lowest and highest value seen for a metric in one scope.
type Range struct {
	Lowest  float64 `json:"lowest"`
	Highest float64 `json:"highest"`
}

// Span is Highest - Lowest.
func (r Range) Span() float64 { return r.Highest - r.Lowest }

// Scope identifies which values a range covers: all areas or one group
// value, totals or averages. An empty Group means all areas.
type Scope struct {
	Group   string
	Average bool
}

var (
	Global        = Scope{}
	GlobalAverage = Scope{Average: true}
)

// GroupScope is the scope of one group value.
func GroupScope(value string, average bool) Scope {
	return Scope{Group: value, Average: average}
}

// Ranges tracks running (lowest, highest) pairs per scope and metric.
type Ranges struct {
	m map[Scope]map[crash.Metric]Range
}

func NewRanges() *Ranges {
	return &Ranges{m: make(map[Scope]map[crash.Metric]Range)}
}

// Update widens the range for (scope, metric) to include v. NaN is ignored.
func (r *Ranges) Update(scope Scope, metric crash.Metric, v float64) {
	if math.IsNaN(v) {
		return
	}
	byMetric, ok := r.m[scope]
	if !ok {
		byMetric = make(map[crash.Metric]Range)
		r.m[scope] = byMetric
	}
	cur, ok := byMetric[metric]
	if !ok {
		byMetric[metric] = Range{Lowest: v, Highest: v}
		return
	}
	if v < cur.Lowest {
		cur.Lowest = v
	}
	if v > cur.Highest {
		cur.Highest = v
	}
	byMetric[metric] = cur
}

// Get returns the range for (scope, metric). ok is false when no qualifying
// value was seen, which callers must render as "no data".
func (r *Ranges) Get(scope Scope, metric crash.Metric) (Range, bool) {
	rg, ok := r.m[scope][metric]
	return rg, ok
}

// RangeEntry is one tracked range, as listed by Entries.
type RangeEntry struct {
	Group   string       `json:"group,omitempty"`
	Average bool         `json:"average"`
	Metric  crash.Metric `json:"metric"`
	Range
}

// Entries lists every tracked range, ordered by group, totals before
// averages, then metric.
func (r *Ranges) Entries() []RangeEntry {
	var out []RangeEntry
	for scope, byMetric := range r.m {
		for m, rg := range byMetric {
			out = append(out, RangeEntry{Group: scope.Group, Average: scope.Average, Metric: m, Range: rg})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Group != b.Group {
			return a.Group < b.Group
		}
		if a.Average != b.Average {
			return !a.Average
		}
		return a.Metric < b.Metric
	})
	return out
}
