package report

import (
	"math"
	"testing"
)

func TestFormatNum(t *testing.T) {
	tests := []struct {
		input float64
		want  string
	}{
		{0, "0"},
		{999, "999"},
		{1000, "1,000"},
		{1234567, "1,234,567"},
		{-4500, "-4,500"},
		{0.5, "0.5"},
		{2.0 / 3, "0.667"},
		{math.NaN(), "- -"},
	}
	for _, tt := range tests {
		got := FormatNum(tt.input)
		if got != tt.want {
			t.Errorf("FormatNum(%v) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestFormatCompact(t *testing.T) {
	tests := []struct {
		input float64
		want  string
	}{
		{12, "12"},
		{0.25, "0.25"},
		{35000, "35k"},
		{1200000, "1.2M"},
	}
	for _, tt := range tests {
		got := FormatCompact(tt.input)
		if got != tt.want {
			t.Errorf("FormatCompact(%v) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestSparkline(t *testing.T) {
	tests := []struct {
		name   string
		points []Spark
		want   string
	}{
		{"scaled with gap", []Spark{{Value: 0}, {Value: math.NaN()}, {Value: 7}}, "▁ █"},
		{"all gaps", []Spark{{Value: math.NaN()}, {Value: math.NaN()}}, "  "},
		{"flat", []Spark{{Value: 3}, {Value: 3}}, "▅▅"},
		{"below minimum left off the scale", []Spark{{Value: 100, Below: true}, {Value: 2}, {Value: 4}}, "·▁█"},
		{"only below minimum", []Spark{{Value: 1, Below: true}}, "·"},
	}
	for _, tt := range tests {
		if got := Sparkline(tt.points); got != tt.want {
			t.Errorf("%s: Sparkline = %q, want %q", tt.name, got, tt.want)
		}
	}
}

func TestBar(t *testing.T) {
	if got := Bar(5, 10, 10); got != "█████" {
		t.Errorf("Bar(5,10,10) = %q", got)
	}
	if got := Bar(0.01, 10, 10); got != "█" {
		t.Errorf("Bar of small value = %q", got)
	}
	if got := Bar(0, 10, 10); got != "" {
		t.Errorf("Bar(0) = %q", got)
	}
}
