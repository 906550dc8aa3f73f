package crash

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

// ErrUnknownMetric is returned when a metric key is not recognised.
var ErrUnknownMetric = errors.New("unknown metric")

// Metric is a numeric quantity derived from each crash record.
type Metric int

const (
	AlcoholRelated Metric = iota
	Injuries
	Fatalities
	AlcoholTime
	Females
	Males
	Crashes
	Pedestrians
	RunOffRoad
	Unlicensed

	metricCount
)

// MetricCount is the number of metrics.
const MetricCount = int(metricCount)

type metricDef struct {
	key        string
	label      string
	proportion bool
	derive     func(Record) float64

	// conditional metrics only credit records whose flag is set, group
	// buckets included.
	conditional bool
}

// metricDefs is indexed by Metric. Its length is fixed by metricCount, so
// adding a metric without a definition fails to compile.
var metricDefs = [metricCount]metricDef{
	AlcoholRelated: {"ALCOHOL_RELATED", "# of Alcohol-Related Accidents", true, yes("ALCOHOL_RELATED"), true},
	Injuries: {"INJURIES", "# of Serious & Non-serious Injuries", false, func(r Record) float64 {
		return r.number("SERIOUSINJURY") + r.number("OTHERINJURY")
	}, false},
	Fatalities: {"FATALITIES", "# of Fatalities", false, func(r Record) float64 {
		return r.number("TOTAL_PERSONS") - r.number("SERIOUSINJURY") - r.number("OTHERINJURY") - r.number("NONINJURED")
	}, false},
	AlcoholTime: {"NO_ALCOHOLTIME", "# of Accidents during Alcohol Time", true, yes("ALCOHOLTIME"), true},
	Females:     {"NO_FEMALES", "# of Females Involved", false, column("FEMALES"), false},
	Males:       {"NO_MALES", "# of Males Involved", false, column("MALES"), false},
	Crashes:     {"NO_OF_CRASHES", "# of Accidents", true, func(Record) float64 { return 1 }, false},
	Pedestrians: {"NO_PEDESTRIANS", "# of Pedestrians Involved", false, column("PEDESTRIAN"), false},
	RunOffRoad:  {"NO_RUN_OFFROAD", "# of Cars Run Off-road", true, yes("RUN_OFFROAD"), true},
	Unlicensed:  {"NO_UNLICENSED", "# of Unlicensed Drivers Involved", false, column("UNLICENCSED"), false},
}

func column(name string) func(Record) float64 {
	return func(r Record) float64 { return r.number(name) }
}

func yes(name string) func(Record) float64 {
	return func(r Record) float64 {
		if r.flag(name) {
			return 1
		}
		return 0
	}
}

// Metrics returns every metric in declaration order.
func Metrics() []Metric {
	out := make([]Metric, MetricCount)
	for i := range out {
		out[i] = Metric(i)
	}
	return out
}

func (m Metric) def() metricDef {
	if m < 0 || m >= metricCount || metricDefs[m].derive == nil {
		panic(fmt.Sprintf("crash: no derivation rule for metric %d", int(m)))
	}
	return metricDefs[m]
}

// Key is the stable identifier used in settings files and the API.
func (m Metric) Key() string { return m.def().key }

// Label is the human-readable name.
func (m Metric) Label() string { return m.def().label }

func (m Metric) String() string { return m.Key() }

// Proportion reports whether the metric's average is a proportion of
// selected cases rather than a per-crash mean.
func (m Metric) Proportion() bool { return m.def().proportion }

// Applies reports whether a record is credited to the metric at all. Flag
// metrics skip records whose flag is not set.
func (m Metric) Applies(r Record) bool {
	d := m.def()
	return !d.conditional || d.derive(r) != 0
}

// Derive returns the metric's contribution for one record. Unparseable input
// contributes 0.
func (m Metric) Derive(r Record) float64 {
	v := m.def().derive(r)
	if math.IsNaN(v) {
		return 0
	}
	return v
}

// MarshalText encodes the metric as its key.
func (m Metric) MarshalText() ([]byte, error) {
	return []byte(m.Key()), nil
}

// UnmarshalText decodes a metric key.
func (m *Metric) UnmarshalText(b []byte) error {
	v, err := ParseMetric(string(b))
	if err != nil {
		return err
	}
	*m = v
	return nil
}

// ParseMetric looks a metric up by key, case-insensitively.
func ParseMetric(key string) (Metric, error) {
	k := strings.ToUpper(strings.TrimSpace(key))
	for i, d := range metricDefs {
		if d.key == k {
			return Metric(i), nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownMetric, key)
}
