package cmd

import (
	"bytes"
	"encoding/csv"
	"errors"
	"strings"
	"testing"

	"github.com/spf13/cobra"

	"github.com/zalepa/crashmap/crash"
	"github.com/zalepa/crashmap/stats"
)

func record(areas, day, severity, males string) crash.Record {
	return crash.NewRecord(map[string]string{
		crash.AreaColumn: areas,
		"DAY_OF_WEEK":    day,
		"SEVERITY":       severity,
		"MALES":          males,
	})
}

// testDataset has two matched areas, one area without crashes and one
// record naming an area that only matches after suffix stripping.
func testDataset() *crash.Dataset {
	return crash.NewDataset([]crash.Record{
		record("NORTH", "Monday", "Serious injury accident", "2"),
		record("NORTH,SOUTH", "Tuesday", "Other injury accident", "1"),
		record("SOUTH", "Monday", "Fatal accident", "4"),
		record("MOUNT_BULLER ALPINE RESORT", "Monday", "Other injury accident", "1"),
	}, []string{"North", "South", "Mount Buller"})
}

func TestMatchKey(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"MOUNT BULLER ALPINE RESORT", "mountbuller"},
		{"Mount Buller", "mountbuller"},
		{"UNINCORPORATED VIC", "unincorporatedvic"},
		{"FALLS CREEK UNINC", "fallscreek"},
		{"(COLAC-OTWAY)", "colacotway"},
	}
	for _, tt := range tests {
		got := matchKey(tt.input)
		if got != tt.want {
			t.Errorf("matchKey(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestSuggestNames(t *testing.T) {
	ds := testDataset()
	got := suggestNames(ds.Unmatched(), ds.Areas())
	if len(got) != 1 {
		t.Fatalf("expected 1 suggestion, got %d", len(got))
	}
	s := got[0]
	if s.name != "Mount Buller Alpine Resort" || s.records != 1 {
		t.Errorf("suggestion = %q (%d records), want Mount Buller Alpine Resort (1)", s.name, s.records)
	}
	if len(s.candidates) != 1 || s.candidates[0] != "Mount Buller" {
		t.Errorf("candidates = %v, want [Mount Buller]", s.candidates)
	}
}

func TestSuggestNames_SortedByRecords(t *testing.T) {
	got := suggestNames(map[string]int{"Bravo": 1, "Alpha": 1, "Zulu": 5}, []string{"North"})
	var names []string
	for _, s := range got {
		names = append(names, s.name)
		if len(s.candidates) != 0 {
			t.Errorf("%s: unexpected candidates %v", s.name, s.candidates)
		}
	}
	if strings.Join(names, ",") != "Zulu,Alpha,Bravo" {
		t.Errorf("order = %v, want Zulu, Alpha, Bravo", names)
	}
}

func TestWriteSuggestions(t *testing.T) {
	var buf bytes.Buffer
	writeSuggestions(&buf, 10, nil)
	if !strings.Contains(buf.String(), "All 10 records reference known areas.") {
		t.Errorf("unexpected output: %q", buf.String())
	}

	buf.Reset()
	writeSuggestions(&buf, 10, []nameSuggestion{{name: "Falls Creek Uninc", records: 3, candidates: []string{"Falls Creek"}}})
	out := buf.String()
	if !strings.Contains(out, "1 area names") || !strings.Contains(out, "did you mean Falls Creek?") {
		t.Errorf("unexpected output: %q", out)
	}
}

func TestParseFilter(t *testing.T) {
	sp, values, err := parseFilter("SEVERITY=Fatal accident| Other injury accident ")
	if err != nil {
		t.Fatal(err)
	}
	if sp != crash.Severity {
		t.Errorf("split = %v, want SEVERITY", sp)
	}
	if len(values) != 2 || values[1] != "Other injury accident" {
		t.Errorf("values = %q", values)
	}

	if _, values, err = parseFilter("SEVERITY="); err != nil || values != nil {
		t.Errorf("empty list: values=%v err=%v", values, err)
	}
	if _, _, err = parseFilter("SEVERITY"); err == nil {
		t.Error("expected error for missing '='")
	}
	if _, _, err = parseFilter("COLOUR=Red"); err == nil {
		t.Error("expected error for unknown attribute")
	}
}

func newFlagCommand(t *testing.T, args ...string) (*cobra.Command, *settingsFlags) {
	t.Helper()
	var f settingsFlags
	cmd := &cobra.Command{Use: "test"}
	f.register(cmd)
	if err := cmd.ParseFlags(args); err != nil {
		t.Fatal(err)
	}
	return cmd, &f
}

func TestSettingsFlags(t *testing.T) {
	cmd, f := newFlagCommand(t,
		"--metric", "NO_MALES", "--mode", "average", "--group", "DAY_OF_WEEK",
		"--filter", "SEVERITY=Fatal accident", "--threshold", "2")
	s, err := f.settings(cmd)
	if err != nil {
		t.Fatal(err)
	}
	if s.Metric != crash.Males || s.Mode != stats.Average || s.Threshold != 2 {
		t.Errorf("settings = %+v", s)
	}
	if g, ok := s.GroupSplit(); !ok || g != crash.DayOfWeek {
		t.Errorf("group = %v, %v", g, ok)
	}
	if !s.Filtered(crash.Severity) {
		t.Error("SEVERITY filter not applied")
	}
}

func TestSettingsFlags_Rejected(t *testing.T) {
	tests := [][]string{
		{"--group", "DAY_OF_WEEK", "--filter", "DAY_OF_WEEK=Monday"},
		{"--group", "DCA_CODE"},
		{"--threshold", "3001"},
		{"--mode", "median"},
		{"--metric", "SPEED"},
	}
	for _, args := range tests {
		cmd, f := newFlagCommand(t, args...)
		if _, err := f.settings(cmd); err == nil {
			t.Errorf("%v: expected error", args)
		}
	}
}

func TestWriteCSV(t *testing.T) {
	s, err := stats.DefaultSettings().WithGroup(crash.DayOfWeek)
	if err != nil {
		t.Fatal(err)
	}
	res := stats.Aggregate(testDataset(), s)

	var buf bytes.Buffer
	if err := writeCSV(&buf, res); err != nil {
		t.Fatal(err)
	}
	rows, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 4 {
		t.Fatalf("expected header + 3 rows, got %d", len(rows))
	}

	col := make(map[string]int)
	for i, h := range rows[0] {
		col[h] = i
	}
	for _, h := range []string{"NO_OF_CRASHES_Total", "NO_OF_CRASHES[Monday]_Total", "NO_OF_CRASHES[Tuesday]_Total", "NO_OF_CRASHES[Unknown]_Total"} {
		if _, ok := col[h]; !ok {
			t.Fatalf("missing column %s in %v", h, rows[0])
		}
	}

	north := rows[1]
	if north[0] != "North" {
		t.Fatalf("first row = %s, want North", north[0])
	}
	if got := north[col["NO_OF_CRASHES_Total"]]; got != "2" {
		t.Errorf("North crashes = %s, want 2", got)
	}
	if got := north[col["NO_OF_CRASHES[Monday]_Total"]]; got != "1" {
		t.Errorf("North Monday crashes = %s, want 1", got)
	}
	if got := north[col["NO_MALES_Total"]]; got != "3" {
		t.Errorf("North males = %s, want 3", got)
	}
}

func TestRenderHistogram(t *testing.T) {
	res := stats.Aggregate(testDataset(), stats.DefaultSettings())
	h, err := stats.Histogram(res, crash.Crashes, stats.Total, 2)
	if err != nil {
		t.Fatal(err)
	}
	var buf bytes.Buffer
	renderHistogram(&buf, h)
	out := buf.String()
	if !strings.Contains(out, "# of Accidents (total), 3 areas") {
		t.Errorf("missing title in %q", out)
	}
	lines := strings.Split(strings.TrimSpace(out), "\n")
	if !strings.HasSuffix(lines[len(lines)-1], " 2") {
		t.Errorf("last bin should hold 2 areas: %q", lines[len(lines)-1])
	}
}

func TestRenderTable(t *testing.T) {
	s, err := stats.DefaultSettings().WithThreshold(2)
	if err != nil {
		t.Fatal(err)
	}
	res := stats.Aggregate(testDataset(), s)

	var buf bytes.Buffer
	renderTable(&buf, res, "", 0, true)
	out := buf.String()
	if !strings.Contains(out, "Scale: 2 to 2") {
		t.Errorf("missing scale in %q", out)
	}
	if !strings.Contains(out, "*0") {
		t.Errorf("Mount Buller should be marked below the minimum: %q", out)
	}

	s, err = s.WithThreshold(10)
	if err != nil {
		t.Fatal(err)
	}
	buf.Reset()
	renderTable(&buf, stats.Aggregate(testDataset(), s), "", 1, false)
	if !strings.Contains(buf.String(), "no data") {
		t.Errorf("expected no data message: %q", buf.String())
	}
}

func TestHistogramCommand_RejectsBins(t *testing.T) {
	defer func(n int) { histogramBins = n }(histogramBins)

	for _, bins := range []int{0, stats.MaxBins + 1, 2000000000} {
		histogramBins = bins
		// The bin check runs before any data is loaded.
		err := histogramCmd.RunE(histogramCmd, nil)
		if !errors.Is(err, stats.ErrBadBins) {
			t.Errorf("--bins %d: err = %v, want ErrBadBins", bins, err)
		}
	}
}

func TestTableRows_TrendMarksBelowMinimum(t *testing.T) {
	s, err := stats.DefaultSettings().WithGroup(crash.DayOfWeek)
	if err != nil {
		t.Fatal(err)
	}
	if s, err = s.WithThreshold(1); err != nil {
		t.Fatal(err)
	}
	rows := tableRows(stats.Aggregate(testDataset(), s), "")

	for _, r := range rows {
		if len(r.trend) != 2 {
			t.Fatalf("%s: trend has %d points, want 2", r.name, len(r.trend))
		}
		for i, p := range r.trend {
			wantBelow := r.name == "Mount Buller"
			if p.Below != wantBelow {
				t.Errorf("%s trend[%d].Below = %v, want %v", r.name, i, p.Below, wantBelow)
			}
		}
	}
}
