package stats

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zalepa/crashmap/crash"
)

// record builds a crash record from an area list and key/value pairs.
func record(areas string, kv ...string) crash.Record {
	fields := map[string]string{crash.AreaColumn: areas}
	for i := 0; i+1 < len(kv); i += 2 {
		fields[kv[i]] = kv[i+1]
	}
	return crash.NewRecord(fields)
}

// fixture is a small dataset covering multi-area crediting, grouping,
// unknown areas and an empty group value.
func fixture() *crash.Dataset {
	records := []crash.Record{
		record("NORTH", "DAY_OF_WEEK", "Monday", "SEVERITY", "Serious injury accident", "ALCOHOL_RELATED", "Yes",
			"TOTAL_PERSONS", "3", "SERIOUSINJURY", "1", "OTHERINJURY", "1", "NONINJURED", "1", "MALES", "2", "FEMALES", "1"),
		record("NORTH,SOUTH", "DAY_OF_WEEK", "Tuesday", "SEVERITY", "Other injury accident", "ALCOHOL_RELATED", "No",
			"TOTAL_PERSONS", "2", "SERIOUSINJURY", "0", "OTHERINJURY", "2", "NONINJURED", "0", "MALES", "1", "FEMALES", "1"),
		record("SOUTH", "DAY_OF_WEEK", "Monday", "SEVERITY", "Fatal accident", "ALCOHOL_RELATED", "Yes",
			"TOTAL_PERSONS", "4", "SERIOUSINJURY", "1", "OTHERINJURY", "0", "NONINJURED", "1", "MALES", "4", "FEMALES", "0"),
		record("SOUTH", "DAY_OF_WEEK", "Monday", "SEVERITY", "Other injury accident",
			"TOTAL_PERSONS", "1", "SERIOUSINJURY", "0", "OTHERINJURY", "1", "NONINJURED", "0", "MALES", "1"),
		record("ATLANTIS", "DAY_OF_WEEK", "Sunday", "SEVERITY", "Other injury accident"),
	}
	return crash.NewDataset(records, []string{"North", "South", "East"})
}

func groupedBy(t *testing.T, s Settings, sp crash.Split) Settings {
	t.Helper()
	s, err := s.WithGroup(sp)
	require.NoError(t, err)
	return s
}

// --- settings ---

func TestParseMode(t *testing.T) {
	for in, want := range map[string]Mode{"": Total, "TOTAL": Total, "average": Average, " Avg ": Average} {
		got, err := ParseMode(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	_, err := ParseMode("median")
	assert.ErrorIs(t, err, ErrUnknownMode)
}

func TestSettings_FilterOnGroupRejected(t *testing.T) {
	s := groupedBy(t, DefaultSettings(), crash.DayOfWeek)

	got, err := s.WithFilter(crash.DayOfWeek, []string{"Monday"})
	assert.ErrorIs(t, err, ErrFilterOnGroup)
	assert.Empty(t, got.Filters)
	assert.Equal(t, s, got)
}

func TestSettings_GroupOnFilterRejected(t *testing.T) {
	s, err := DefaultSettings().WithFilter(crash.SpeedZone, []string{"100 km/hr"})
	require.NoError(t, err)

	got, err := s.WithGroup(crash.SpeedZone)
	assert.ErrorIs(t, err, ErrGroupOnFilter)
	assert.Nil(t, got.Group)
}

func TestSettings_DCANotGroupable(t *testing.T) {
	_, err := DefaultSettings().WithGroup(crash.DCACode)
	assert.ErrorIs(t, err, ErrNotGroupable)

	s, err := DefaultSettings().WithFilter(crash.DCACode, []string{"121"})
	require.NoError(t, err)
	assert.True(t, s.Filtered(crash.DCACode))
}

func TestSettings_EmptyFilterRemoves(t *testing.T) {
	s, err := DefaultSettings().WithFilter(crash.Severity, []string{"Fatal accident"})
	require.NoError(t, err)
	require.True(t, s.Filtered(crash.Severity))

	s, err = s.WithFilter(crash.Severity, nil)
	require.NoError(t, err)
	assert.False(t, s.Filtered(crash.Severity))
	assert.Nil(t, s.Filters)
}

func TestSettings_WithFilterDoesNotAlias(t *testing.T) {
	base, err := DefaultSettings().WithFilter(crash.Severity, []string{"Fatal accident"})
	require.NoError(t, err)
	_, err = base.WithFilter(crash.DayOfWeek, []string{"Monday"})
	require.NoError(t, err)

	assert.Equal(t, []crash.Split{crash.Severity}, base.Filters.Splits())
}

func TestSettings_Threshold(t *testing.T) {
	_, err := DefaultSettings().WithThreshold(-1)
	assert.ErrorIs(t, err, ErrThresholdRange)
	_, err = DefaultSettings().WithThreshold(MaxThreshold + 1)
	assert.ErrorIs(t, err, ErrThresholdRange)

	s, err := DefaultSettings().WithThreshold(MaxThreshold)
	require.NoError(t, err)
	assert.Equal(t, MaxThreshold, s.Threshold)

	n, err := ParseThreshold(" 25 ")
	require.NoError(t, err)
	assert.Equal(t, 25, n)
	for _, raw := range []string{"", "abc", "-3", "3001", "2.5"} {
		_, err := ParseThreshold(raw)
		assert.ErrorIs(t, err, ErrThresholdRange, raw)
	}
}

func TestSettings_Validate(t *testing.T) {
	g := crash.Severity
	s := Settings{Metric: crash.Injuries, Mode: Average, Group: &g, Filters: Filters{crash.Severity: {"Fatal accident"}}}
	assert.ErrorIs(t, s.Validate(), ErrFilterOnGroup)

	s = Settings{Metric: crash.Metric(42)}
	assert.ErrorIs(t, s.Validate(), crash.ErrUnknownMetric)

	assert.NoError(t, DefaultSettings().Validate())
}

// --- filter ---

func TestIsExcluded(t *testing.T) {
	r := record("NORTH", "SEVERITY", "Fatal accident", "DAY_OF_WEEK", "Friday")

	assert.False(t, IsExcluded(r, nil))
	assert.True(t, IsExcluded(r, Filters{crash.Severity: {"Fatal accident"}}))
	assert.False(t, IsExcluded(r, Filters{crash.Severity: {"Fatal"}}))
	assert.True(t, IsExcluded(r, Filters{crash.Severity: {"Other"}, crash.DayOfWeek: {"Friday"}}))
}

// --- ranges ---

func TestRanges(t *testing.T) {
	r := NewRanges()
	_, ok := r.Get(Global, crash.Crashes)
	assert.False(t, ok)

	r.Update(Global, crash.Crashes, 4)
	r.Update(Global, crash.Crashes, math.NaN())
	r.Update(Global, crash.Crashes, 1)
	r.Update(Global, crash.Crashes, 3)
	r.Update(GroupScope("Monday", true), crash.Crashes, 0.5)

	rg, ok := r.Get(Global, crash.Crashes)
	require.True(t, ok)
	assert.Equal(t, Range{Lowest: 1, Highest: 4}, rg)
	assert.Equal(t, 3.0, rg.Span())

	_, ok = r.Get(GlobalAverage, crash.Crashes)
	assert.False(t, ok)

	entries := r.Entries()
	require.Len(t, entries, 2)
	assert.Equal(t, "", entries[0].Group)
	assert.Equal(t, "Monday", entries[1].Group)
	assert.True(t, entries[1].Average)
}

func TestRanges_NaNOnlyStaysEmpty(t *testing.T) {
	r := NewRanges()
	r.Update(Global, crash.Injuries, math.NaN())
	_, ok := r.Get(Global, crash.Injuries)
	assert.False(t, ok)
}

// --- aggregate ---

func TestAggregate_CreditsOnlyNamedAreas(t *testing.T) {
	ds := crash.NewDataset([]crash.Record{
		record("NORTH"),
		record("WEST", "SEVERITY", "x"),
		record("WEST", "SEVERITY", "x"),
	}, []string{"North", "South"})
	s, err := DefaultSettings().WithFilter(crash.Severity, []string{"x"})
	require.NoError(t, err)

	res := Aggregate(ds, s)

	assert.Equal(t, 1.0, res.Areas["North"][crash.Crashes].Total)
	assert.Equal(t, 0.0, res.Areas["South"][crash.Crashes].Total)
	assert.Equal(t, 1, res.Selected)
	assert.Empty(t, res.Unmatched)
}

func TestAggregate_Ungrouped(t *testing.T) {
	res := Aggregate(fixture(), DefaultSettings())

	assert.Equal(t, 5, res.Selected)
	assert.Equal(t, []string{"North", "South", "East"}, res.AreaNames())
	assert.Equal(t, map[string]int{"Atlantis": 1}, res.Unmatched)

	north := res.Areas["North"]
	assert.Equal(t, 2.0, north[crash.Crashes].Total)
	assert.InDelta(t, 2.0/5, north[crash.Crashes].Average, 1e-9)
	assert.Equal(t, 4.0, north[crash.Injuries].Total)
	assert.InDelta(t, 2.0, north[crash.Injuries].Average, 1e-9)
	assert.Equal(t, 1.0, north[crash.AlcoholRelated].Total)
	assert.InDelta(t, 0.5, north[crash.AlcoholRelated].Average, 1e-9)

	south := res.Areas["South"]
	assert.Equal(t, 3.0, south[crash.Crashes].Total)
	assert.Equal(t, 2.0, south[crash.Fatalities].Total)

	east := res.Areas["East"]
	for _, m := range crash.Metrics() {
		assert.Zero(t, east[m].Total, m.Key())
		assert.Zero(t, east[m].Average, m.Key())
	}
	assert.Nil(t, north[crash.Crashes].Groups)

	rg, ok := res.Range(crash.Crashes, Total, "")
	require.True(t, ok)
	assert.Equal(t, Range{Lowest: 0, Highest: 3}, rg)
}

func TestAggregate_EmptyGroupValueIsUnknown(t *testing.T) {
	ds := crash.NewDataset([]crash.Record{
		record("NORTH", "DAY_OF_WEEK", "Monday", "MALES", "4"),
		record("NORTH", "DAY_OF_WEEK", "", "MALES", "7"),
	}, []string{"North"})

	res := Aggregate(ds, groupedBy(t, DefaultSettings(), crash.DayOfWeek))

	north := res.Areas["North"]
	assert.Equal(t, []string{"Monday"}, res.GroupValues)
	assert.Equal(t, 1.0, north[crash.Crashes].Unknown)
	assert.Equal(t, 1.0, north[crash.Males].Unknown)
	assert.Equal(t, 4.0, north[crash.Males].Groups["Monday"].Total)
	assert.Equal(t, 11.0, north[crash.Males].Total)
}

func TestAggregate_GroupedAverages(t *testing.T) {
	res := Aggregate(fixture(), groupedBy(t, DefaultSettings(), crash.DayOfWeek))

	assert.Equal(t, []string{"Monday", "Tuesday", "Sunday"}, res.GroupValues)

	south := res.Areas["South"]
	monday := south[crash.Crashes].Groups["Monday"]
	assert.Equal(t, 2.0, monday.Total)
	assert.InDelta(t, 2.0/3, monday.Average, 1e-9)

	males := south[crash.Males].Groups["Monday"]
	assert.Equal(t, 5.0, males.Total)
	assert.InDelta(t, 2.5, males.Average, 1e-9)

	sunday := south[crash.Males].Groups["Sunday"]
	assert.Zero(t, sunday.Total)
	assert.Zero(t, sunday.Average)
}

// For single-valued group fields, every occurrence-counting metric splits
// its total exactly over the group buckets and Unknown.
func TestAggregate_SumInvariant(t *testing.T) {
	ds := crash.NewDataset(append(fixture().Records(),
		record("NORTH", "DAY_OF_WEEK", "", "ALCOHOL_RELATED", "No", "RUN_OFFROAD", "Yes"),
		record("SOUTH", "SEVERITY", "", "ALCOHOL_RELATED", "Yes", "ALCOHOLTIME", "Yes"),
	), []string{"North", "South", "East"})

	counted := []crash.Metric{crash.Crashes, crash.AlcoholRelated, crash.AlcoholTime, crash.RunOffRoad}
	for _, sp := range []crash.Split{crash.DayOfWeek, crash.Severity, crash.SpeedZone} {
		res := Aggregate(ds, groupedBy(t, DefaultSettings(), sp))
		for _, area := range res.AreaNames() {
			for _, m := range counted {
				ms := res.Areas[area][m]
				sum := ms.Unknown
				for _, st := range ms.Groups {
					sum += st.Total
				}
				assert.Equal(t, ms.Total, sum, "%s/%s/%s", sp.Key(), area, m.Key())
			}
		}
	}
}

func TestAggregate_FlagMetricSkipsUnsetRecords(t *testing.T) {
	ds := crash.NewDataset([]crash.Record{
		record("NORTH", "DAY_OF_WEEK", "Monday", "ALCOHOL_RELATED", "No"),
		record("NORTH", "DAY_OF_WEEK", "", "ALCOHOL_RELATED", "No"),
		record("NORTH", "DAY_OF_WEEK", "", "ALCOHOL_RELATED", "No"),
	}, []string{"North"})

	res := Aggregate(ds, groupedBy(t, DefaultSettings(), crash.DayOfWeek))
	north := res.Areas["North"]

	alcohol := north[crash.AlcoholRelated]
	assert.Zero(t, alcohol.Total)
	assert.Zero(t, alcohol.Unknown)
	assert.Zero(t, alcohol.Groups["Monday"].Total)

	// Occurrence metrics still count every record.
	assert.Equal(t, 2.0, north[crash.Crashes].Unknown)
	assert.Equal(t, 3.0, north[crash.Crashes].Total)
}

func TestAggregate_FlagMetricUnknownCountsSetRecords(t *testing.T) {
	ds := crash.NewDataset([]crash.Record{
		record("NORTH", "DAY_OF_WEEK", "Monday", "ALCOHOL_RELATED", "Yes"),
		record("NORTH", "DAY_OF_WEEK", "", "ALCOHOL_RELATED", "Yes"),
		record("NORTH", "DAY_OF_WEEK", "", "ALCOHOL_RELATED", "No"),
	}, []string{"North"})

	res := Aggregate(ds, groupedBy(t, DefaultSettings(), crash.DayOfWeek))
	alcohol := res.Areas["North"][crash.AlcoholRelated]
	assert.Equal(t, 2.0, alcohol.Total)
	assert.Equal(t, 1.0, alcohol.Unknown)
	assert.Equal(t, 1.0, alcohol.Groups["Monday"].Total)
}

func TestAggregate_MultiValuedGroupField(t *testing.T) {
	ds := crash.NewDataset([]crash.Record{
		record("NORTH", "DAY_OF_WEEK", "Monday", "MALES", "1"),
		record("NORTH", "DAY_OF_WEEK", "Tuesday", "MALES", "1"),
		record("NORTH", "DAY_OF_WEEK", "Monday,Tuesday", "MALES", "3"),
	}, []string{"North"})

	res := Aggregate(ds, groupedBy(t, DefaultSettings(), crash.DayOfWeek))
	north := res.Areas["North"]

	assert.Equal(t, []string{"Monday", "Tuesday"}, res.GroupValues)
	assert.Equal(t, 2.0, north[crash.Crashes].Groups["Monday"].Total)
	assert.Equal(t, 2.0, north[crash.Crashes].Groups["Tuesday"].Total)
	assert.Equal(t, 4.0, north[crash.Males].Groups["Monday"].Total)
	assert.Equal(t, 4.0, north[crash.Males].Groups["Tuesday"].Total)
	assert.Zero(t, north[crash.Crashes].Unknown)
	assert.Equal(t, 3.0, north[crash.Crashes].Total)
}

func TestAggregate_UndeclaredGroupValueIsUnknown(t *testing.T) {
	// "Funday" only ever appears after a comma, so value discovery never
	// declares it.
	ds := crash.NewDataset([]crash.Record{
		record("NORTH", "DAY_OF_WEEK", "Monday,Funday", "MALES", "5"),
	}, []string{"North"})

	res := Aggregate(ds, groupedBy(t, DefaultSettings(), crash.DayOfWeek))
	north := res.Areas["North"]

	assert.Equal(t, []string{"Monday"}, res.GroupValues)
	assert.NotContains(t, north[crash.Crashes].Groups, "Funday")
	assert.Equal(t, 1.0, north[crash.Crashes].Groups["Monday"].Total)
	assert.Equal(t, 1.0, north[crash.Crashes].Unknown)
	assert.Equal(t, 5.0, north[crash.Males].Groups["Monday"].Total)
	assert.Equal(t, 1.0, north[crash.Males].Unknown)
}

func TestAggregate_AverageBounds(t *testing.T) {
	res := Aggregate(fixture(), groupedBy(t, DefaultSettings(), crash.Severity))
	for _, area := range res.AreaNames() {
		as := res.Areas[area]
		crashes := as[crash.Crashes].Total
		for _, m := range crash.Metrics() {
			assert.GreaterOrEqual(t, as[m].Average, 0.0, "%s/%s", area, m.Key())
			if crashes == 0 {
				assert.Zero(t, as[m].Average, "%s/%s", area, m.Key())
			}
		}
	}
}

func TestAggregate_MultiAreaCrediting(t *testing.T) {
	res := Aggregate(fixture(), DefaultSettings())

	var credited float64
	for _, area := range res.AreaNames() {
		credited += res.Areas[area][crash.Crashes].Total
	}
	// The North/South crash is selected once but credited to both areas.
	assert.Equal(t, 5, res.Selected)
	assert.Equal(t, 5.0, credited)
}

func TestAggregate_ThresholdMonotonic(t *testing.T) {
	ds := fixture()
	prev := math.Inf(1)
	for _, th := range []int{0, 1, 2, 3, 4} {
		s, err := DefaultSettings().WithThreshold(th)
		require.NoError(t, err)
		res := Aggregate(ds, s)

		rg, ok := res.Range(crash.Injuries, Total, "")
		span := 0.0
		if ok {
			span = rg.Span()
		}
		assert.LessOrEqual(t, span, prev, "threshold %d", th)
		prev = span
	}
}

func TestAggregate_ThresholdExcludesEverything(t *testing.T) {
	s, err := DefaultSettings().WithThreshold(5)
	require.NoError(t, err)
	res := Aggregate(fixture(), s)

	_, ok := res.Range(crash.Crashes, Total, "")
	assert.False(t, ok)
	rg, ok := res.Range(crash.Crashes, Average, "")
	assert.False(t, ok)
	assert.Equal(t, Range{}, rg)
	assert.False(t, res.Qualifies("South", ""))
}

func TestAggregate_Idempotent(t *testing.T) {
	ds := fixture()
	s := groupedBy(t, DefaultSettings(), crash.DayOfWeek)
	s, err := s.WithFilter(crash.Severity, []string{"Fatal accident"})
	require.NoError(t, err)

	a, b := Aggregate(ds, s), Aggregate(ds, s)
	assert.Equal(t, a.Areas, b.Areas)
	assert.Equal(t, a.Ranges.Entries(), b.Ranges.Entries())
	assert.Equal(t, a.Selected, b.Selected)
}

func TestAggregate_Filtered(t *testing.T) {
	s, err := DefaultSettings().WithFilter(crash.Severity, []string{"Fatal accident"})
	require.NoError(t, err)
	res := Aggregate(fixture(), s)

	assert.Equal(t, 4, res.Selected)
	assert.Equal(t, 2.0, res.Areas["South"][crash.Crashes].Total)
	assert.Zero(t, res.Areas["South"][crash.Fatalities].Total)
}

func TestResult_Accessors(t *testing.T) {
	res := Aggregate(fixture(), groupedBy(t, DefaultSettings(), crash.DayOfWeek))

	v, ok := res.Value("North", crash.Crashes, Total, "Tuesday")
	require.True(t, ok)
	assert.Equal(t, 1.0, v)

	_, ok = res.Value("North", crash.Crashes, Total, "Friday")
	assert.False(t, ok)
	_, ok = res.Value("Nowhere", crash.Crashes, Total, "")
	assert.False(t, ok)

	assert.True(t, res.Grouped())
	assert.True(t, res.Qualifies("North", "Monday"))
}

func TestAreaStats_MarshalJSON(t *testing.T) {
	res := Aggregate(fixture(), DefaultSettings())
	b, err := res.Areas["North"].MarshalJSON()
	require.NoError(t, err)
	assert.Contains(t, string(b), `"NO_OF_CRASHES":{"total":2`)
}
