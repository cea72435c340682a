package demographics

import (
	"embed"
	"errors"
	"fmt"
	"io"
	"path"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/iwvelando/revenue-forecast/pkg/projection"
)

//go:embed data/*.yaml
var datasetFS embed.FS

// ErrUnknownDataset is returned by LoadDataset for names with no embedded file.
var ErrUnknownDataset = errors.New("unknown demographic dataset")

// Dataset is a named set of records for one country.
type Dataset struct {
	Name    string   `json:"name" yaml:"name"`
	Country string   `json:"country" yaml:"country"`
	Kind    Kind     `json:"kind" yaml:"kind"`
	Records []Record `json:"records" yaml:"records"`
}

// ParseDataset decodes a YAML dataset and checks it is usable.
func ParseDataset(r io.Reader) (*Dataset, error) {
	var dataset Dataset
	decoder := yaml.NewDecoder(r)
	decoder.KnownFields(true)
	if err := decoder.Decode(&dataset); err != nil {
		return nil, fmt.Errorf("failed to decode dataset: %w", err)
	}

	kind, err := ParseKind(string(dataset.Kind))
	if err != nil {
		return nil, err
	}
	dataset.Kind = kind

	if len(dataset.Records) == 0 {
		return nil, fmt.Errorf("dataset %q has no records", dataset.Name)
	}
	for i, record := range dataset.Records {
		if record.Population <= 0 {
			return nil, fmt.Errorf("dataset %q record %d (%s): population must be positive", dataset.Name, i, record.Name)
		}
		if strings.TrimSpace(record.Name) == "" && strings.TrimSpace(record.Region) == "" {
			return nil, fmt.Errorf("dataset %q record %d: name or region is required", dataset.Name, i)
		}
	}
	return &dataset, nil
}

// LoadDataset loads an embedded dataset by name.
func LoadDataset(name string) (*Dataset, error) {
	clean := strings.ToLower(strings.TrimSpace(name))
	if clean == "" || strings.ContainsAny(clean, `/\`) {
		return nil, fmt.Errorf("%w: %q", ErrUnknownDataset, name)
	}
	f, err := datasetFS.Open(path.Join("data", clean+".yaml"))
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrUnknownDataset, name)
	}
	defer f.Close()
	return ParseDataset(f)
}

// DatasetNames lists the embedded datasets.
func DatasetNames() []string {
	entries, err := datasetFS.ReadDir("data")
	if err != nil {
		return nil
	}
	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if name, ok := strings.CutSuffix(entry.Name(), ".yaml"); ok {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

// Segments converts the dataset using its own kind.
func (d *Dataset) Segments(newID func() string) []projection.Segment {
	return ToSegments(d.Records, d.Kind, newID)
}
