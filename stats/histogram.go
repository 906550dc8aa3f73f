package stats

import (
	"errors"
	"fmt"

	"github.com/zalepa/crashmap/crash"
)

// MaxBins bounds the bin count a caller may request.
const MaxBins = 100

var (
	ErrNoData  = errors.New("no area meets the minimum case count")
	ErrBadBins = errors.New("invalid bin count")
)

// CheckBins rejects bin counts outside 1..MaxBins.
func CheckBins(bins int) error {
	if bins < 1 || bins > MaxBins {
		return fmt.Errorf("%w: %d (want 1-%d)", ErrBadBins, bins, MaxBins)
	}
	return nil
}

// Bin is one histogram bucket. Counts has one entry per series.
type Bin struct {
	Lo     float64 `json:"lo"`
	Hi     float64 `json:"hi"`
	Counts []int   `json:"counts"`
}

// Hist is a histogram of area values. Ungrouped results have a single
// unnamed series; grouped results have one series per group value, meant to
// be stacked.
type Hist struct {
	Metric   crash.Metric `json:"metric"`
	Mode     Mode         `json:"mode"`
	Domain   Range        `json:"domain"`
	Series   []string     `json:"series"`
	Bins     []Bin        `json:"bins"`
	Selected int          `json:"selected"`
}

// Histogram bins every area's value for a metric into equal-width buckets
// over the metric's range. Grouped results use the union of all group value
// ranges as the domain. Values outside the domain are left out.
func Histogram(res *Result, m crash.Metric, mode Mode, bins int) (Hist, error) {
	if err := CheckBins(bins); err != nil {
		return Hist{}, err
	}

	series := []string{""}
	if res.Grouped() {
		series = res.GroupValues
	}

	var (
		domain Range
		found  bool
	)
	for _, v := range series {
		rg, ok := res.Range(m, mode, v)
		if !ok {
			continue
		}
		if !found {
			domain, found = rg, true
			continue
		}
		if rg.Lowest < domain.Lowest {
			domain.Lowest = rg.Lowest
		}
		if rg.Highest > domain.Highest {
			domain.Highest = rg.Highest
		}
	}
	if !found {
		return Hist{}, ErrNoData
	}

	h := Hist{
		Metric:   m,
		Mode:     mode,
		Domain:   domain,
		Series:   append([]string(nil), series...),
		Selected: res.Selected,
	}
	if domain.Span() == 0 {
		bins = 1
	}
	width := domain.Span() / float64(bins)
	h.Bins = make([]Bin, bins)
	for i := range h.Bins {
		h.Bins[i] = Bin{
			Lo:     domain.Lowest + float64(i)*width,
			Hi:     domain.Lowest + float64(i+1)*width,
			Counts: make([]int, len(series)),
		}
	}
	h.Bins[bins-1].Hi = domain.Highest

	for si, v := range series {
		for _, area := range res.AreaNames() {
			x, ok := res.Value(area, m, mode, v)
			if !ok || x < domain.Lowest || x > domain.Highest {
				continue
			}
			idx := 0
			if width > 0 {
				idx = int((x - domain.Lowest) / width)
			}
			if idx >= bins {
				idx = bins - 1
			}
			h.Bins[idx].Counts[si]++
		}
	}
	return h, nil
}

// Total is the number of areas counted across every series.
func (h Hist) Total() int {
	n := 0
	for _, b := range h.Bins {
		for _, c := range b.Counts {
			n += c
		}
	}
	return n
}
