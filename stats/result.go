package stats

import "github.com/zalepa/crashmap/crash"

// Result is one completed aggregation pass. It is never modified after
// Aggregate returns.
type Result struct {
	Version     uint64                `json:"version"`
	Settings    Settings              `json:"settings"`
	Selected    int                   `json:"selected"`
	Areas       map[string]*AreaStats `json:"areas"`
	Ranges      *Ranges               `json:"-"`
	GroupValues []string              `json:"groupValues,omitempty"`
	Unmatched   map[string]int        `json:"unmatched,omitempty"`

	areaOrder []string
}

// AreaNames returns the areas in canonical order.
func (r *Result) AreaNames() []string { return r.areaOrder }

// Grouped reports whether the pass used a grouping attribute.
func (r *Result) Grouped() bool {
	_, ok := r.Settings.GroupSplit()
	return ok
}

// Stat returns an area's overall statistic for a metric.
func (r *Result) Stat(area string, m crash.Metric) (Stat, bool) {
	as, ok := r.Areas[area]
	if !ok {
		return Stat{}, false
	}
	return as[m].Stat, true
}

// GroupStat returns an area's statistic for one group value.
func (r *Result) GroupStat(area string, m crash.Metric, value string) (Stat, bool) {
	as, ok := r.Areas[area]
	if !ok {
		return Stat{}, false
	}
	st, ok := as[m].Groups[value]
	if !ok {
		return Stat{}, false
	}
	return *st, true
}

// Value picks the total or average of an area's statistic. An empty group
// value selects the overall statistic.
func (r *Result) Value(area string, m crash.Metric, mode Mode, groupValue string) (float64, bool) {
	var (
		st Stat
		ok bool
	)
	if groupValue == "" {
		st, ok = r.Stat(area, m)
	} else {
		st, ok = r.GroupStat(area, m, groupValue)
	}
	if !ok {
		return 0, false
	}
	if mode == Average {
		return st.Average, true
	}
	return st.Total, true
}

// Range returns the tracked range for a metric and mode, overall or for one
// group value. ok is false when no area qualified under the threshold; the
// caller must show a "no data" state instead of a color scale.
func (r *Result) Range(m crash.Metric, mode Mode, groupValue string) (Range, bool) {
	return r.Ranges.Get(Scope{Group: groupValue, Average: mode == Average}, m)
}

// HasData reports whether any scope the result can display has a range for
// the metric: the overall scope when there are no group values, any group value
// otherwise.
func (r *Result) HasData(m crash.Metric, mode Mode) bool {
	if len(r.GroupValues) == 0 {
		_, ok := r.Range(m, mode, "")
		return ok
	}
	for _, v := range r.GroupValues {
		if _, ok := r.Range(m, mode, v); ok {
			return true
		}
	}
	return false
}

// Qualifies reports whether an area's crash count meets the threshold,
// overall or for one group value. Areas that do not qualify are drawn as
// excluded from the scale.
func (r *Result) Qualifies(area, groupValue string) bool {
	var (
		st Stat
		ok bool
	)
	if groupValue == "" {
		st, ok = r.Stat(area, crash.Crashes)
	} else {
		st, ok = r.GroupStat(area, crash.Crashes, groupValue)
	}
	return ok && st.Total >= float64(r.Settings.Threshold)
}
