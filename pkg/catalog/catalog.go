// Package catalog holds the predefined product templates a model can start
// from.
package catalog

import (
	"bytes"
	_ "embed"
	"fmt"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/iwvelando/revenue-forecast/pkg/projection"
)

//go:embed data/templates.yaml
var templatesYAML []byte

// Template is a named starting point for a segment.
type Template struct {
	Name                string  `json:"name" yaml:"name"`
	Category            string  `json:"category" yaml:"category"`
	Market              string  `json:"market" yaml:"market"`
	PricePerTransaction float64 `json:"pricePerTransaction" yaml:"pricePerTransaction"`
	CostPerTransaction  float64 `json:"costPerTransaction" yaml:"costPerTransaction"`
	MonthlyVolume       float64 `json:"monthlyVolume" yaml:"monthlyVolume"`
	VolumeGrowth        float64 `json:"volumeGrowth" yaml:"volumeGrowth"`
}

type templateFile struct {
	Templates []Template `yaml:"templates"`
}

var (
	loadOnce  sync.Once
	templates []Template
	loadErr   error
)

func load() ([]Template, error) {
	loadOnce.Do(func() {
		templates, loadErr = Parse(templatesYAML)
	})
	return templates, loadErr
}

// Parse decodes a template document.
func Parse(data []byte) ([]Template, error) {
	var file templateFile
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&file); err != nil {
		return nil, fmt.Errorf("failed to decode templates: %w", err)
	}
	return file.Templates, nil
}

// Templates returns a copy of the built-in templates in catalog order.
func Templates() ([]Template, error) {
	loaded, err := load()
	if err != nil {
		return nil, err
	}
	out := make([]Template, len(loaded))
	copy(out, loaded)
	return out, nil
}

// Lookup finds a template by case-insensitive name.
func Lookup(name string) (Template, bool) {
	loaded, err := load()
	if err != nil {
		return Template{}, false
	}
	want := strings.TrimSpace(name)
	for _, t := range loaded {
		if strings.EqualFold(t.Name, want) {
			return t, true
		}
	}
	return Template{}, false
}

// ToSegment instantiates a template as a segment with the given id.
func ToSegment(t Template, id string) projection.Segment {
	return projection.Segment{
		ID:                  id,
		Name:                t.Name,
		PricePerTransaction: t.PricePerTransaction,
		CostPerTransaction:  t.CostPerTransaction,
		MonthlyVolume:       t.MonthlyVolume,
		VolumeGrowth:        t.VolumeGrowth,
		Category:            t.Category,
		Notes:               "Market: " + t.Market,
		Metadata: map[string]string{
			"source": "catalog",
			"market": t.Market,
		},
	}
}
