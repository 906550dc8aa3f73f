package loader

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
)

// ErrNoAreas is returned when no feature carries the area property.
var ErrNoAreas = errors.New("no area names found")

type featureCollection struct {
	Features []struct {
		Properties map[string]any `json:"properties"`
	} `json:"features"`
}

// LoadAreaNames reads the canonical area names from a GeoJSON feature
// collection, one per feature, in file order.
func LoadAreaNames(path, property string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	defer f.Close()
	return ReadAreaNames(f, property)
}

// ReadAreaNames is LoadAreaNames reading from r. Features whose property is
// missing or not a string are skipped.
func ReadAreaNames(r io.Reader, property string) ([]string, error) {
	var fc featureCollection
	if err := json.NewDecoder(r).Decode(&fc); err != nil {
		return nil, fmt.Errorf("decode geojson: %w", err)
	}
	var names []string
	for _, feat := range fc.Features {
		name, ok := feat.Properties[property].(string)
		if !ok || name == "" {
			continue
		}
		names = append(names, name)
	}
	if len(names) == 0 {
		return nil, fmt.Errorf("%w: property %q", ErrNoAreas, property)
	}
	return names, nil
}
