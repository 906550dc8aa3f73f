package cmd

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/zalepa/crashmap/crash"
)

var strictCheck bool

// nameSuggestion pairs an area named by crash records but missing from the
// boundaries with the boundary names it most likely refers to.
type nameSuggestion struct {
	name       string
	records    int
	candidates []string
}

// suggestNames matches each unmatched name against the boundary names after
// stripping designation suffixes such as " Alpine Resort" and " Uninc", and
// by case-insensitive comparison with spaces removed.
func suggestNames(unmatched map[string]int, areas []string) []nameSuggestion {
	// key -> boundary names sharing it
	index := make(map[string][]string)
	for _, a := range areas {
		k := matchKey(a)
		index[k] = append(index[k], a)
	}

	out := make([]nameSuggestion, 0, len(unmatched))
	for name, n := range unmatched {
		s := nameSuggestion{name: name, records: n}
		s.candidates = append(s.candidates, index[matchKey(name)]...)
		sort.Strings(s.candidates)
		out = append(out, s)
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].records != out[j].records {
			return out[i].records > out[j].records
		}
		return out[i].name < out[j].name
	})
	return out
}

func matchKey(name string) string {
	k := crash.StripAreaSuffix(crash.Cleanse(name))
	return strings.ToLower(strings.ReplaceAll(k, " ", ""))
}

func writeSuggestions(w io.Writer, total int, suggestions []nameSuggestion) {
	if len(suggestions) == 0 {
		fmt.Fprintf(w, "All %d records reference known areas.\n", total)
		return
	}
	fmt.Fprintf(w, "%d area names in crash records have no boundary:\n", len(suggestions))
	for _, s := range suggestions {
		hint := "no similar boundary"
		if len(s.candidates) > 0 {
			hint = "did you mean " + strings.Join(s.candidates, " or ") + "?"
		}
		fmt.Fprintf(w, "  %-30s %6d records  %s\n", s.name, s.records, hint)
	}
}

// checkCmd cross-checks area names in the crash records against the
// boundary file.
var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Report crash record area names that match no boundary",
	RunE: func(cmd *cobra.Command, args []string) error {
		ds, err := loadDataset()
		if err != nil {
			return err
		}
		suggestions := suggestNames(ds.Unmatched(), ds.Areas())
		writeSuggestions(cmd.OutOrStdout(), ds.Len(), suggestions)
		if strictCheck && len(suggestions) > 0 {
			return fmt.Errorf("%d unmatched area names", len(suggestions))
		}
		return nil
	},
}

func init() {
	checkCmd.Flags().BoolVar(&strictCheck, "strict", false, "Exit non-zero when any name is unmatched")
	rootCmd.AddCommand(checkCmd)
}
