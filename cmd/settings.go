package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/zalepa/crashmap/config"
	"github.com/zalepa/crashmap/crash"
	"github.com/zalepa/crashmap/stats"
)

// settingsFlags are the aggregation controls shared by every command that
// computes statistics. Flags override the preset file field by field.
type settingsFlags struct {
	preset    string
	metric    string
	mode      string
	group     string
	threshold int
	filters   []string
}

func (f *settingsFlags) register(cmd *cobra.Command) {
	fl := cmd.Flags()
	fl.StringVar(&f.preset, "settings", "", "Settings preset (yaml)")
	fl.StringVar(&f.metric, "metric", crash.Crashes.Key(), "Metric: "+strings.Join(metricKeys(), ", "))
	fl.StringVar(&f.mode, "mode", "total", "Display mode: total or average")
	fl.StringVar(&f.group, "group", "", "Group by attribute: "+strings.Join(groupableKeys(), ", "))
	fl.IntVar(&f.threshold, "threshold", 0, fmt.Sprintf("Minimum crash count for an area to enter the color scale (0-%d)", stats.MaxThreshold))
	fl.StringArrayVar(&f.filters, "filter", nil, "Exclude values: ATTRIBUTE=value1|value2 (repeatable)")
}

// settings builds validated settings from the preset and changed flags.
func (f *settingsFlags) settings(cmd *cobra.Command) (stats.Settings, error) {
	s := stats.DefaultSettings()
	if f.preset != "" {
		p, err := config.LoadSettings(f.preset)
		if err != nil {
			return s, err
		}
		s = p
	}
	changed := cmd.Flags().Changed

	if changed("metric") || f.preset == "" {
		m, err := crash.ParseMetric(f.metric)
		if err != nil {
			return s, err
		}
		s = s.WithMetric(m)
	}
	if changed("mode") || f.preset == "" {
		mode, err := stats.ParseMode(f.mode)
		if err != nil {
			return s, err
		}
		s = s.WithMode(mode)
	}
	if changed("group") {
		s = s.WithoutGroup()
	}
	for _, raw := range f.filters {
		sp, values, err := parseFilter(raw)
		if err != nil {
			return s, err
		}
		if s, err = s.WithFilter(sp, values); err != nil {
			return s, err
		}
	}
	if f.group != "" {
		sp, err := crash.ParseSplit(f.group)
		if err != nil {
			return s, err
		}
		if s, err = s.WithGroup(sp); err != nil {
			return s, err
		}
	}
	if changed("threshold") {
		var err error
		if s, err = s.WithThreshold(f.threshold); err != nil {
			return s, err
		}
	}
	return s, nil
}

// parseFilter parses ATTRIBUTE=value1|value2. An empty value list clears
// the filter.
func parseFilter(raw string) (crash.Split, []string, error) {
	key, list, ok := strings.Cut(raw, "=")
	if !ok {
		return 0, nil, fmt.Errorf("invalid --filter %q; want ATTRIBUTE=value1|value2", raw)
	}
	sp, err := crash.ParseSplit(key)
	if err != nil {
		return 0, nil, err
	}
	var values []string
	for _, v := range strings.Split(list, "|") {
		if v = strings.TrimSpace(v); v != "" {
			values = append(values, v)
		}
	}
	return sp, values, nil
}

func metricKeys() []string {
	var keys []string
	for _, m := range crash.Metrics() {
		keys = append(keys, m.Key())
	}
	return keys
}

func groupableKeys() []string {
	var keys []string
	for _, s := range crash.Splits() {
		if s.Groupable() {
			keys = append(keys, s.Key())
		}
	}
	return keys
}
