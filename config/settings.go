package config

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/zalepa/crashmap/crash"
	"github.com/zalepa/crashmap/stats"
)

// Preset is the file and wire form of stats.Settings. Attributes and
// metrics are named by their record column keys.
type Preset struct {
	Metric    string              `yaml:"metric" json:"metric"`
	Mode      string              `yaml:"mode" json:"mode"`
	Group     string              `yaml:"group,omitempty" json:"group,omitempty"`
	Threshold int                 `yaml:"threshold" json:"threshold"`
	Filters   map[string][]string `yaml:"filters,omitempty" json:"filters,omitempty"`
}

// LoadSettings reads a YAML settings preset. Unknown keys are rejected.
func LoadSettings(path string) (stats.Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return stats.Settings{}, fmt.Errorf("reading settings preset: %w", err)
	}
	return DecodeSettings(bytes.NewReader(data))
}

// DecodeSettings parses a YAML preset from r and validates it.
func DecodeSettings(r io.Reader) (stats.Settings, error) {
	var p Preset
	decoder := yaml.NewDecoder(r)
	decoder.KnownFields(true)
	if err := decoder.Decode(&p); err != nil && err != io.EOF {
		return stats.Settings{}, fmt.Errorf("parsing settings preset: %w", err)
	}
	return p.Settings()
}

// Settings converts the preset, applying each field through the validating
// constructors so conflicting presets are rejected the same way
// interactive changes are.
func (p Preset) Settings() (stats.Settings, error) {
	s := stats.DefaultSettings()

	if p.Metric != "" {
		m, err := crash.ParseMetric(p.Metric)
		if err != nil {
			return s, err
		}
		s = s.WithMetric(m)
	}

	mode, err := stats.ParseMode(p.Mode)
	if err != nil {
		return s, err
	}
	s = s.WithMode(mode)

	keys := make([]string, 0, len(p.Filters))
	for k := range p.Filters {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		sp, err := crash.ParseSplit(k)
		if err != nil {
			return s, err
		}
		if s, err = s.WithFilter(sp, p.Filters[k]); err != nil {
			return s, err
		}
	}

	if p.Group != "" {
		sp, err := crash.ParseSplit(p.Group)
		if err != nil {
			return s, err
		}
		if s, err = s.WithGroup(sp); err != nil {
			return s, err
		}
	}

	return s.WithThreshold(p.Threshold)
}

// PresetOf is the inverse of Preset.Settings.
func PresetOf(s stats.Settings) Preset {
	p := Preset{
		Metric:    s.Metric.Key(),
		Mode:      s.Mode.String(),
		Threshold: s.Threshold,
	}
	if g, ok := s.GroupSplit(); ok {
		p.Group = g.Key()
	}
	if len(s.Filters) > 0 {
		p.Filters = make(map[string][]string, len(s.Filters))
		for sp, vals := range s.Filters {
			p.Filters[sp.Key()] = append([]string(nil), vals...)
		}
	}
	return p
}
