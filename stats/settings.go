package stats

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/zalepa/crashmap/crash"
)

// MaxThreshold bounds the minimum-case threshold a user may enter.
const MaxThreshold = 3000

var (
	ErrFilterOnGroup  = errors.New("cannot filter an attribute that is being grouped")
	ErrGroupOnFilter  = errors.New("cannot group by an attribute that has a filter")
	ErrNotGroupable   = errors.New("attribute cannot be used for grouping")
	ErrThresholdRange = fmt.Errorf("threshold must be a whole number between 0 and %d", MaxThreshold)
	ErrUnknownMode    = errors.New("unknown display mode")
)

// Mode selects whether totals or averages drive the color scale.
type Mode int

const (
	Total Mode = iota
	Average
)

func (m Mode) String() string {
	if m == Average {
		return "average"
	}
	return "total"
}

// MarshalText encodes the mode as "total" or "average".
func (m Mode) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

// UnmarshalText decodes "total" or "average".
func (m *Mode) UnmarshalText(b []byte) error {
	v, err := ParseMode(string(b))
	if err != nil {
		return err
	}
	*m = v
	return nil
}

// ParseMode parses "total" or "average", case-insensitively.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "total", "totals":
		return Total, nil
	case "average", "averages", "avg":
		return Average, nil
	}
	return Total, fmt.Errorf("%w: %q", ErrUnknownMode, s)
}

// Filters maps a split attribute to the values it excludes.
type Filters map[crash.Split][]string

// Splits returns the filtered attributes in declaration order.
func (f Filters) Splits() []crash.Split {
	out := make([]crash.Split, 0, len(f))
	for s := range f {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func (f Filters) clone() Filters {
	out := make(Filters, len(f))
	for k, v := range f {
		out[k] = append([]string(nil), v...)
	}
	return out
}

// Settings bundles every user control that affects an aggregation pass. A
// Settings value is never modified in place: the With* methods return a new
// value, or the receiver unchanged plus an error when the change is invalid.
type Settings struct {
	Metric    crash.Metric `json:"metric"`
	Mode      Mode         `json:"mode"`
	Group     *crash.Split `json:"group,omitempty"`
	Threshold int          `json:"threshold"`
	Filters   Filters      `json:"filters,omitempty"`
}

// DefaultSettings shows crash totals with no filters, grouping or threshold.
func DefaultSettings() Settings {
	return Settings{Metric: crash.Crashes, Mode: Total}
}

// GroupSplit returns the active grouping attribute, if any.
func (s Settings) GroupSplit() (crash.Split, bool) {
	if s.Group == nil {
		return 0, false
	}
	return *s.Group, true
}

// Filtered reports whether sp carries an active filter.
func (s Settings) Filtered(sp crash.Split) bool {
	_, ok := s.Filters[sp]
	return ok
}

func (s Settings) WithMetric(m crash.Metric) Settings {
	s.Metric = m
	return s
}

func (s Settings) WithMode(m Mode) Settings {
	s.Mode = m
	return s
}

// WithGroup groups by sp. Grouping is rejected for attributes that carry a
// filter and for attributes that are not groupable.
func (s Settings) WithGroup(sp crash.Split) (Settings, error) {
	if !sp.Groupable() {
		return s, fmt.Errorf("%w: %s", ErrNotGroupable, sp.Key())
	}
	if s.Filtered(sp) {
		return s, fmt.Errorf("%w: %s", ErrGroupOnFilter, sp.Key())
	}
	g := sp
	s.Group = &g
	return s, nil
}

func (s Settings) WithoutGroup() Settings {
	s.Group = nil
	return s
}

// WithFilter excludes the given values of sp, replacing any existing filter
// on sp. An empty exclusion list removes the filter. Filtering the grouped
// attribute is rejected.
func (s Settings) WithFilter(sp crash.Split, excluded []string) (Settings, error) {
	if g, ok := s.GroupSplit(); ok && g == sp {
		return s, fmt.Errorf("%w: %s", ErrFilterOnGroup, sp.Key())
	}
	if len(excluded) == 0 {
		return s.WithoutFilter(sp), nil
	}
	f := s.Filters.clone()
	f[sp] = append([]string(nil), excluded...)
	s.Filters = f
	return s, nil
}

func (s Settings) WithoutFilter(sp crash.Split) Settings {
	if !s.Filtered(sp) {
		return s
	}
	f := s.Filters.clone()
	delete(f, sp)
	if len(f) == 0 {
		f = nil
	}
	s.Filters = f
	return s
}

// WithThreshold sets the minimum crash count an area needs to take part in
// range computation.
func (s Settings) WithThreshold(n int) (Settings, error) {
	if n < 0 || n > MaxThreshold {
		return s, ErrThresholdRange
	}
	s.Threshold = n
	return s, nil
}

// Validate checks a Settings value that was assembled field by field, e.g.
// decoded from a file.
func (s Settings) Validate() error {
	if s.Metric < 0 || int(s.Metric) >= crash.MetricCount {
		return fmt.Errorf("%w: %d", crash.ErrUnknownMetric, int(s.Metric))
	}
	if s.Mode != Total && s.Mode != Average {
		return fmt.Errorf("%w: %d", ErrUnknownMode, int(s.Mode))
	}
	if s.Threshold < 0 || s.Threshold > MaxThreshold {
		return ErrThresholdRange
	}
	if g, ok := s.GroupSplit(); ok {
		if !g.Groupable() {
			return fmt.Errorf("%w: %s", ErrNotGroupable, g.Key())
		}
		if s.Filtered(g) {
			return fmt.Errorf("%w: %s", ErrFilterOnGroup, g.Key())
		}
	}
	return nil
}

// ParseThreshold validates raw user input for the threshold.
func ParseThreshold(raw string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || n < 0 || n > MaxThreshold {
		return 0, ErrThresholdRange
	}
	return n, nil
}
