package stats

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/zalepa/crashmap/crash"
)

// ErrUnknownArea is returned when an area name is not in the canonical set.
var ErrUnknownArea = errors.New("unknown area")

// GroupLine is one group value's contribution in a Summary.
type GroupLine struct {
	Value  string  `json:"value"`
	Amount float64 `json:"amount"`
}

// FilterLine describes one active filter.
type FilterLine struct {
	Split    crash.Split `json:"split"`
	Excluded int         `json:"excluded"`
}

// Summary describes a single area under the current settings.
type Summary struct {
	Area           string       `json:"area"`
	Metric         crash.Metric `json:"metric"`
	Mode           Mode         `json:"mode"`
	Crashes        float64      `json:"crashes"`
	Selected       int          `json:"selected"`
	Share          float64      `json:"share"`
	Value          float64      `json:"value"`
	Proportion     bool         `json:"proportion"`
	Group          *crash.Split `json:"group,omitempty"`
	Groups         []GroupLine  `json:"groups,omitempty"`
	Hidden         int          `json:"hidden"`
	Filters        []FilterLine `json:"filters,omitempty"`
	BelowThreshold bool         `json:"belowThreshold"`
}

// Summarize collects the statistics of one area for the given metric and
// mode. Group values whose amount is zero are counted in Hidden rather than
// listed.
func Summarize(res *Result, area string, m crash.Metric, mode Mode) (Summary, error) {
	as, ok := res.Areas[area]
	if !ok {
		return Summary{}, fmt.Errorf("%w: %q", ErrUnknownArea, area)
	}
	crashes := as[crash.Crashes].Total
	sum := Summary{
		Area:           area,
		Metric:         m,
		Mode:           mode,
		Crashes:        crashes,
		Selected:       res.Selected,
		Share:          ratio(crashes, float64(res.Selected)) * 100,
		Proportion:     mode == Average && m.Proportion(),
		Group:          res.Settings.Group,
		BelowThreshold: crashes < float64(res.Settings.Threshold),
	}
	sum.Value, _ = res.Value(area, m, mode, "")

	for _, v := range res.GroupValues {
		amt, _ := res.Value(area, m, mode, v)
		if amt == 0 {
			sum.Hidden++
			continue
		}
		sum.Groups = append(sum.Groups, GroupLine{Value: v, Amount: amt})
	}
	for _, sp := range res.Settings.Filters.Splits() {
		sum.Filters = append(sum.Filters, FilterLine{Split: sp, Excluded: len(res.Settings.Filters[sp])})
	}
	return sum, nil
}

// Lines renders the summary as short sentences.
func (s Summary) Lines() []string {
	name := s.Metric.Label()
	lines := []string{
		fmt.Sprintf("%s represents %s of %d (%.3f%%) selected cases.", s.Area, trimFloat(s.Crashes), s.Selected, s.Share),
	}

	word := "the"
	switch {
	case s.Mode == Total:
		lines = append(lines, fmt.Sprintf("Overall, the %s was %s.", name, trimFloat(s.Value)))
	case s.Proportion:
		name = strings.TrimPrefix(name, "# of ")
		word = "the proportion of"
		lines = append(lines, fmt.Sprintf("Overall, the proportion of %s was %.3f.", name, s.Value))
	default:
		word = "the average"
		lines = append(lines, fmt.Sprintf("Overall, on average, the %s was %.3f.", name, s.Value))
	}

	if s.Group == nil {
		lines = append(lines, "No grouping was applied to the dataset.")
	} else {
		lines = append(lines, fmt.Sprintf("The dataset was grouped by %s:", s.Group.Label()))
		for _, g := range s.Groups {
			amt := trimFloat(g.Amount)
			if s.Mode == Average {
				amt = fmt.Sprintf("%.3f", g.Amount)
			}
			lines = append(lines, fmt.Sprintf("  For %s, %s %s was %s.", g.Value, word, name, amt))
		}
		if s.Hidden > 0 {
			lines = append(lines, fmt.Sprintf("%d empty %s not shown.", s.Hidden, plural(s.Hidden, "variable was", "variables were")))
		}
	}

	if len(s.Filters) == 0 {
		lines = append(lines, "No filters were applied to the dataset.")
	} else {
		lines = append(lines, fmt.Sprintf("%d %s applied to the dataset:", len(s.Filters), plural(len(s.Filters), "filter was", "filters were")))
		for _, f := range s.Filters {
			lines = append(lines, fmt.Sprintf("  %s, excluding %d %s.", f.Split.Label(), f.Excluded, plural(f.Excluded, "value", "values")))
		}
	}

	if s.BelowThreshold {
		lines = append(lines, "This area does not appear on the colour scale due to falling below the minimum case count.")
	}
	return lines
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}

func trimFloat(v float64) string {
	if v == float64(int64(v)) {
		return fmt.Sprintf("%d", int64(v))
	}
	return fmt.Sprintf("%.3f", v)
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
