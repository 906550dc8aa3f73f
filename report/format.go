package report

import (
	"math"
	"strconv"
	"strings"
)

// FormatNum renders whole numbers with thousands separators and everything
// else with up to three decimals. NaN renders as "- -".
func FormatNum(v float64) string {
	if math.IsNaN(v) {
		return "- -"
	}
	if v == float64(int64(v)) && math.Abs(v) < 1e15 {
		return formatInt(int64(v))
	}
	s := strconv.FormatFloat(v, 'f', 3, 64)
	s = strings.TrimRight(strings.TrimRight(s, "0"), ".")
	return s
}

// formatInt groups digits in threes from the right.
func formatInt(v int64) string {
	digits := strconv.FormatInt(v, 10)
	sign := ""
	if v < 0 {
		sign, digits = "-", digits[1:]
	}
	parts := make([]string, 0, len(digits)/3+1)
	for len(digits) > 3 {
		parts = append([]string{digits[len(digits)-3:]}, parts...)
		digits = digits[:len(digits)-3]
	}
	parts = append([]string{digits}, parts...)
	return sign + strings.Join(parts, ",")
}

// FormatCompact renders axis labels: 1.2M, 35k, 0.25, 12.
func FormatCompact(v float64) string {
	abs := math.Abs(v)
	switch {
	case abs >= 1e6:
		return strconv.FormatFloat(v/1e6, 'f', 1, 64) + "M"
	case abs >= 1e3:
		return strconv.FormatFloat(v/1e3, 'f', 0, 64) + "k"
	case abs > 0 && abs < 10 && v != math.Trunc(v):
		return strconv.FormatFloat(v, 'f', 2, 64)
	default:
		return strconv.FormatFloat(v, 'f', 0, 64)
	}
}

// Spark is one point of a sparkline. Below marks a value whose crash count
// is under the minimum, which is drawn as a dot and left out of the scale.
type Spark struct {
	Value float64
	Below bool
}

var sparkBlocks = []rune("▁▂▃▄▅▆▇█")

// Sparkline draws one block per point, scaled between the smallest and
// largest qualifying values. NaN leaves a gap.
func Sparkline(points []Spark) string {
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, p := range points {
		if p.Below || math.IsNaN(p.Value) {
			continue
		}
		lo = math.Min(lo, p.Value)
		hi = math.Max(hi, p.Value)
	}

	top := len(sparkBlocks) - 1
	out := make([]rune, len(points))
	for i, p := range points {
		switch {
		case math.IsNaN(p.Value):
			out[i] = ' '
		case p.Below:
			out[i] = '·'
		case hi == lo:
			out[i] = sparkBlocks[len(sparkBlocks)/2]
		default:
			out[i] = sparkBlocks[min(top, int((p.Value-lo)/(hi-lo)*float64(top)))]
		}
	}
	return string(out)
}

// Bar is a horizontal bar of width proportional to v/max.
func Bar(v, max float64, width int) string {
	if max <= 0 || v <= 0 || math.IsNaN(v) {
		return ""
	}
	n := int(math.Round(v / max * float64(width)))
	if n < 1 {
		n = 1
	}
	if n > width {
		n = width
	}
	return strings.Repeat("█", n)
}
