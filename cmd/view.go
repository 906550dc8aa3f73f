package cmd

import (
	"fmt"
	"io"
	"math"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/zalepa/crashmap/crash"
	"github.com/zalepa/crashmap/report"
	"github.com/zalepa/crashmap/stats"
)

var (
	viewFlags  settingsFlags
	viewArea   string
	viewValue  string
	viewTop    int
	viewSortBy string
)

// viewCmd prints the statistics table in the terminal, or one area's
// summary with --area.
var viewCmd = &cobra.Command{
	Use:   "view",
	Short: "Show per-area statistics in the terminal",
	Example: `  crashmap view --metric FATALITIES --mode average --threshold 50
  crashmap view --group DAY_OF_WEEK --value Saturday
  crashmap view --group SPEED_ZONE --area Melbourne`,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := viewFlags.settings(cmd)
		if err != nil {
			return err
		}
		ds, err := loadDataset()
		if err != nil {
			return err
		}
		res, err := stats.NewStore(ds, log.Component("stats")).Recompute(s)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if viewArea != "" {
			sum, err := stats.Summarize(res, viewArea, s.Metric, s.Mode)
			if err != nil {
				return err
			}
			for _, l := range sum.Lines() {
				fmt.Fprintln(out, l)
			}
			return nil
		}
		if viewValue != "" && !res.Grouped() {
			return fmt.Errorf("--value needs --group")
		}
		renderTable(out, res, viewValue, viewTop, viewSortBy == "name")
		return nil
	},
}

type tableRow struct {
	name      string
	value     float64
	crashes   float64
	qualifies bool
	trend     []report.Spark
}

// tableRows collects one row per area. groupValue selects the group the
// value column shows; the trend column always spans every group value and
// dots the values under the minimum crash count.
func tableRows(res *stats.Result, groupValue string) []tableRow {
	s := res.Settings
	rows := make([]tableRow, 0, len(res.AreaNames()))
	for _, area := range res.AreaNames() {
		v, _ := res.Value(area, s.Metric, s.Mode, groupValue)
		crashes, _ := res.Stat(area, crash.Crashes)
		row := tableRow{
			name:      area,
			value:     v,
			crashes:   crashes.Total,
			qualifies: res.Qualifies(area, groupValue),
		}
		for _, g := range res.GroupValues {
			gv, ok := res.Value(area, s.Metric, s.Mode, g)
			if !ok {
				gv = math.NaN()
			}
			row.trend = append(row.trend, report.Spark{Value: gv, Below: !res.Qualifies(area, g)})
		}
		rows = append(rows, row)
	}
	return rows
}

func renderTable(w io.Writer, res *stats.Result, groupValue string, top int, byName bool) {
	s := res.Settings
	rows := tableRows(res, groupValue)
	if byName {
		sort.SliceStable(rows, func(i, j int) bool { return rows[i].name < rows[j].name })
	} else {
		sort.SliceStable(rows, func(i, j int) bool { return rows[i].value > rows[j].value })
	}
	if top > 0 && top < len(rows) {
		rows = rows[:top]
	}

	title := fmt.Sprintf("%s (%s)", s.Metric.Label(), s.Mode)
	if g, ok := s.GroupSplit(); ok {
		title += " grouped by " + g.Label()
		if groupValue != "" {
			title += ": " + groupValue
		}
	}
	fmt.Fprintln(w, title)
	fmt.Fprintf(w, "%s selected crashes", report.FormatNum(float64(res.Selected)))
	if len(s.Filters) > 0 {
		fmt.Fprintf(w, ", %d filters", len(s.Filters))
	}
	if s.Threshold > 0 {
		fmt.Fprintf(w, ", minimum %d crashes", s.Threshold)
	}
	fmt.Fprintln(w)

	if rg, ok := res.Range(s.Metric, s.Mode, groupValue); ok {
		fmt.Fprintf(w, "Scale: %s to %s\n\n", report.FormatNum(rg.Lowest), report.FormatNum(rg.Highest))
	} else {
		fmt.Fprintf(w, "Scale: no data (no area reaches the minimum of %d crashes)\n\n", s.Threshold)
	}

	maxName := 10
	for _, r := range rows {
		if len(r.name) > maxName {
			maxName = len(r.name)
		}
	}
	rowFmt := fmt.Sprintf("%%-%ds  %%12s  %%10s  %%s", maxName)
	header := fmt.Sprintf(rowFmt, "Area", "Value", "Crashes", trendHeader(res))
	fmt.Fprintln(w, header)
	fmt.Fprintln(w, strings.Repeat("─", maxName+2+12+2+10+2+len(res.GroupValues)))

	for _, r := range rows {
		value := report.FormatNum(r.value)
		if !r.qualifies {
			value = "*" + value
		}
		fmt.Fprintf(w, rowFmt+"\n", r.name, value, report.FormatNum(r.crashes), report.Sparkline(r.trend))
	}
	if s.Threshold > 0 {
		fmt.Fprintf(w, "\n* below the minimum crash count, left off the scale\n")
	}
}

func trendHeader(res *stats.Result) string {
	if !res.Grouped() {
		return ""
	}
	return "By " + strings.ToLower(res.Settings.Group.Label())
}

func init() {
	viewFlags.register(viewCmd)
	viewCmd.Flags().StringVar(&viewArea, "area", "", "Summarize one area")
	viewCmd.Flags().StringVar(&viewValue, "value", "", "Show one group value instead of the overall statistic")
	viewCmd.Flags().IntVar(&viewTop, "top", 0, "Show only the first N areas")
	viewCmd.Flags().StringVar(&viewSortBy, "sort", "value", "Sort by value or name")
	rootCmd.AddCommand(viewCmd)
}
