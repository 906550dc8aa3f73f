package cmd

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/zalepa/crashmap/crash"
	"github.com/zalepa/crashmap/stats"
)

var (
	aggregateFlags settingsFlags
	jsonOut        string
	csvOut         string
)

// snapshot is the JSON form of a result with its ranges listed.
type snapshot struct {
	*stats.Result
	Ranges []stats.RangeEntry `json:"ranges"`
}

// aggregateCmd runs one aggregation pass and writes the statistics table.
var aggregateCmd = &cobra.Command{
	Use:   "aggregate",
	Short: "Compute per-area statistics and write them as JSON and/or CSV",
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := aggregateFlags.settings(cmd)
		if err != nil {
			return err
		}
		ds, err := loadDataset()
		if err != nil {
			return err
		}
		store := stats.NewStore(ds, log.Component("stats"))
		res, err := store.Recompute(s)
		if err != nil {
			return err
		}

		if jsonOut == "" && csvOut == "" {
			return writeJSON(cmd.OutOrStdout(), res)
		}
		if jsonOut != "" {
			if err := writeFile(jsonOut, func(w io.Writer) error { return writeJSON(w, res) }); err != nil {
				return fmt.Errorf("writing JSON: %w", err)
			}
		}
		if csvOut != "" {
			if err := writeFile(csvOut, func(w io.Writer) error { return writeCSV(w, res) }); err != nil {
				return fmt.Errorf("writing CSV: %w", err)
			}
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "%d records, %d selected, %d areas\n",
			ds.Len(), res.Selected, len(res.AreaNames()))
		return nil
	},
}

func writeFile(path string, write func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := write(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func writeJSON(w io.Writer, res *stats.Result) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(snapshot{Result: res, Ranges: res.Ranges.Entries()})
}

// writeCSV writes one row per area: the total and average of every metric,
// then, when grouped, the selected metric per group value.
func writeCSV(out io.Writer, res *stats.Result) error {
	w := csv.NewWriter(out)

	header := []string{"Area"}
	for _, m := range crash.Metrics() {
		header = append(header, m.Key()+"_Total", m.Key()+"_Average")
	}
	metric := res.Settings.Metric
	if res.Grouped() {
		for _, g := range res.GroupValues {
			header = append(header, metric.Key()+"["+g+"]_Total", metric.Key()+"["+g+"]_Average")
		}
		header = append(header, metric.Key()+"[Unknown]_Total")
	}
	if err := w.Write(header); err != nil {
		return err
	}

	for _, area := range res.AreaNames() {
		as := res.Areas[area]
		row := []string{area}
		for _, m := range crash.Metrics() {
			row = append(row, num(as[m].Total), num(as[m].Average))
		}
		if res.Grouped() {
			ms := as[metric]
			for _, g := range res.GroupValues {
				st := ms.Groups[g]
				row = append(row, num(st.Total), num(st.Average))
			}
			row = append(row, num(ms.Unknown))
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}

	w.Flush()
	return w.Error()
}

func num(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func init() {
	aggregateFlags.register(aggregateCmd)
	aggregateCmd.Flags().StringVar(&jsonOut, "json", "", "Output JSON file path")
	aggregateCmd.Flags().StringVar(&csvOut, "csv", "", "Output CSV file path")
	rootCmd.AddCommand(aggregateCmd)
}
