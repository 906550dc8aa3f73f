package crash

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrUnknownSplit is returned when a split key is not recognised.
var ErrUnknownSplit = errors.New("unknown split attribute")

// Split is a categorical record field usable for filtering or grouping.
type Split int

const (
	AccidentType Split = iota
	AlcoholTimeFlag
	DayOfWeek
	DCACode
	HitRunFlag
	LightCondition
	RMAAll
	RoadGeometry
	RunOffRoadFlag
	SpeedZone
	Severity

	splitCount
)

type splitDef struct {
	key       string
	label     string
	groupable bool
}

var splitDefs = [splitCount]splitDef{
	AccidentType:    {"ACCIDENT_TYPE", "Type of Accident", true},
	AlcoholTimeFlag: {"ALCOHOLTIME", "Happened during Alcohol Time", true},
	DayOfWeek:       {"DAY_OF_WEEK", "Days of The Week", true},
	DCACode:         {"DCA_CODE", "DCA Classification Code", false},
	HitRunFlag:      {"HIT_RUN_FLAG", "Hit-and-Run", true},
	LightCondition:  {"LIGHT_CONDITION", "Light Conditions", true},
	RMAAll:          {"RMA_ALL", "Road Management Act Road Classification", true},
	RoadGeometry:    {"ROAD_GEOMETRY", "Type of Accident Location", true},
	RunOffRoadFlag:  {"RUN_OFFROAD", "Car Ran Off-road", true},
	SpeedZone:       {"SPEED_ZONE", "Speed Limit", true},
	Severity:        {"SEVERITY", "Severity of Accident", true},
}

// Splits returns every split attribute in declaration order.
func Splits() []Split {
	out := make([]Split, int(splitCount))
	for i := range out {
		out[i] = Split(i)
	}
	return out
}

func (s Split) def() splitDef {
	if s < 0 || s >= splitCount {
		panic(fmt.Sprintf("crash: unknown split %d", int(s)))
	}
	return splitDefs[s]
}

// Key is the column name of the split.
func (s Split) Key() string { return s.def().key }

// Label is the human-readable name.
func (s Split) Label() string { return s.def().label }

func (s Split) String() string { return s.Key() }

// Groupable reports whether the split may be used for grouping. DCA codes
// have too many distinct values to group by.
func (s Split) Groupable() bool { return s.def().groupable }

// Value returns the record's raw value for the split.
func (s Split) Value(r Record) string { return r.Field(s.Key()) }

// MarshalText encodes the split as its key.
func (s Split) MarshalText() ([]byte, error) {
	return []byte(s.Key()), nil
}

// UnmarshalText decodes a split key.
func (s *Split) UnmarshalText(b []byte) error {
	v, err := ParseSplit(string(b))
	if err != nil {
		return err
	}
	*s = v
	return nil
}

// ParseSplit looks a split up by key, case-insensitively.
func ParseSplit(key string) (Split, error) {
	k := strings.ToUpper(strings.TrimSpace(key))
	for i, d := range splitDefs {
		if d.key == k {
			return Split(i), nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownSplit, key)
}

// PossibleValues maps each split to the distinct values seen across the
// loaded records.
type PossibleValues map[Split][]string

// Of returns the possible values of a split. The slice must not be modified.
func (pv PossibleValues) Of(s Split) []string {
	return pv[s]
}

// Contains reports whether v is a declared value of s.
func (pv PossibleValues) Contains(s Split, v string) bool {
	for _, x := range pv[s] {
		if x == v {
			return true
		}
	}
	return false
}

var dayOrder = []string{"Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday", "Sunday"}

var zoneOrder = []string{
	"30 km/hr", "40 km/hr", "50 km/hr", "60 km/hr", "70 km/hr", "75 km/hr",
	"80 km/hr", "90 km/hr", "100 km/hr", "110 km/hr",
	"Other speed limit", "Camping grounds or off road", "Not known",
}

// DiscoverValues scans every record once and collects, per split, the first
// comma-delimited token of each non-empty value in first-seen order. Days of
// the week and speed zones are then put in their natural order.
func DiscoverValues(records []Record) PossibleValues {
	pv := make(PossibleValues, int(splitCount))
	seen := make(map[Split]map[string]bool, int(splitCount))
	for _, s := range Splits() {
		pv[s] = []string{}
		seen[s] = make(map[string]bool)
	}

	for _, r := range records {
		for _, s := range Splits() {
			v := strings.Split(s.Value(r), ",")[0]
			if v == "" || seen[s][v] {
				continue
			}
			seen[s][v] = true
			pv[s] = append(pv[s], v)
		}
	}

	orderBy(pv[DayOfWeek], dayOrder)
	orderBy(pv[SpeedZone], zoneOrder)
	return pv
}

// orderBy sorts vals by their position in order. Values missing from order
// keep their first-seen order after the known ones.
func orderBy(vals []string, order []string) {
	rank := make(map[string]int, len(order))
	for i, v := range order {
		rank[v] = i
	}
	pos := func(v string) int {
		if i, ok := rank[v]; ok {
			return i
		}
		return len(order)
	}
	sort.SliceStable(vals, func(i, j int) bool {
		return pos(vals[i]) < pos(vals[j])
	})
}
