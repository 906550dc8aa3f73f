package cmd

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/zalepa/crashmap/report"
	"github.com/zalepa/crashmap/stats"
)

var (
	histogramFlags settingsFlags
	histogramBins  int
	histogramPDF   string
	histogramAreas []string
)

// histogramCmd bins every area's value into a histogram, printed in the
// terminal or written as a PDF report.
var histogramCmd = &cobra.Command{
	Use:   "histogram",
	Short: "Show the distribution of area values",
	Example: `  crashmap histogram --metric INJURIES --bins 12
  crashmap histogram --group SEVERITY --pdf severity.pdf --area Melbourne --area Geelong`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := stats.CheckBins(histogramBins); err != nil {
			return err
		}
		s, err := histogramFlags.settings(cmd)
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

		h, err := stats.Histogram(res, s.Metric, s.Mode, histogramBins)
		noData := errors.Is(err, stats.ErrNoData)
		if err != nil && !noData {
			return err
		}

		if histogramPDF == "" {
			if noData {
				fmt.Fprintf(cmd.OutOrStdout(), "No data: no area reaches the minimum of %d crashes.\n", s.Threshold)
				return nil
			}
			renderHistogram(cmd.OutOrStdout(), h)
			return nil
		}

		doc := report.Document{Title: s.Metric.Label()}
		if !noData {
			doc.Histograms = append(doc.Histograms, h)
		}
		for _, area := range histogramAreas {
			sum, err := stats.Summarize(res, area, s.Metric, s.Mode)
			if err != nil {
				return err
			}
			doc.Summaries = append(doc.Summaries, sum)
		}
		if err := report.WriteFile(histogramPDF, doc); err != nil {
			return fmt.Errorf("writing PDF: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "wrote %s (%d pages)\n", histogramPDF, doc.Pages())
		return nil
	},
}

// renderHistogram prints one line per bin with a bar scaled to the fullest
// bin. Grouped histograms list the per-value counts after the bar.
func renderHistogram(w io.Writer, h stats.Hist) {
	const barWidth = 40

	fmt.Fprintf(w, "%s (%s), %d areas\n\n", h.Metric.Label(), h.Mode, h.Total())

	max := 0
	totals := make([]int, len(h.Bins))
	for i, b := range h.Bins {
		for _, c := range b.Counts {
			totals[i] += c
		}
		if totals[i] > max {
			max = totals[i]
		}
	}

	labels := make([]string, len(h.Bins))
	width := 0
	for i, b := range h.Bins {
		labels[i] = report.FormatNum(b.Lo) + " - " + report.FormatNum(b.Hi)
		if len(labels[i]) > width {
			width = len(labels[i])
		}
	}

	for i, b := range h.Bins {
		line := fmt.Sprintf("%*s │%-*s %d", width, labels[i], barWidth, report.Bar(float64(totals[i]), float64(max), barWidth), totals[i])
		if len(h.Series) > 1 && totals[i] > 0 {
			var parts []string
			for si, c := range b.Counts {
				if c > 0 {
					parts = append(parts, fmt.Sprintf("%s %d", h.Series[si], c))
				}
			}
			line += "  (" + strings.Join(parts, ", ") + ")"
		}
		fmt.Fprintln(w, strings.TrimRight(line, " "))
	}
}

func init() {
	histogramFlags.register(histogramCmd)
	histogramCmd.Flags().IntVar(&histogramBins, "bins", 10, fmt.Sprintf("Number of bins (1-%d)", stats.MaxBins))
	histogramCmd.Flags().StringVar(&histogramPDF, "pdf", "", "Output PDF file path (omit for terminal output)")
	histogramCmd.Flags().StringArrayVar(&histogramAreas, "area", nil, "Add a summary page for an area (PDF only, repeatable)")
	rootCmd.AddCommand(histogramCmd)
}
