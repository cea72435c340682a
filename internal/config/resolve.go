package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/iwvelando/revenue-forecast/pkg/catalog"
	"github.com/iwvelando/revenue-forecast/pkg/datetime"
	"github.com/iwvelando/revenue-forecast/pkg/demographics"
	"github.com/iwvelando/revenue-forecast/pkg/projection"
	"github.com/iwvelando/revenue-forecast/pkg/validation"
)

// NewID returns a random segment identifier.
func NewID() string {
	return uuid.New().String()
}

// ResolveSegments assembles the model's segments in order: inline segments,
// catalog templates, then demographic records. Segments without an ID get
// one from newID, or a UUID when newID is nil. Blocking validation problems
// are returned as errors.
func (c *Configuration) ResolveSegments(newID func() string) ([]projection.Segment, error) {
	if newID == nil {
		newID = NewID
	}

	segments := make([]projection.Segment, 0, len(c.Segments)+len(c.Templates))
	for _, segment := range c.Segments {
		segment.Name = strings.TrimSpace(segment.Name)
		segments = append(segments, segment)
	}

	for _, name := range c.Templates {
		template, ok := catalog.Lookup(name)
		if !ok {
			return nil, fmt.Errorf("unknown segment template %q", name)
		}
		segments = append(segments, catalog.ToSegment(template, ""))
	}

	if c.Demographics != nil {
		records, kind, err := c.Demographics.Load()
		if err != nil {
			return nil, err
		}
		segments = append(segments, demographics.ToSegments(records, kind, nil)...)
	}

	for i := range segments {
		if segments[i].ID == "" {
			segments[i].ID = newID()
		}
	}

	if len(segments) == 0 {
		return nil, projection.ErrEmptySegmentSet
	}
	if _, err := validation.ValidateSegments(segments); err != nil {
		return nil, err
	}
	return segments, nil
}

// Load reads the records from the configured source and applies the kind
// override.
func (d *DemographicsConfig) Load() ([]demographics.Record, demographics.Kind, error) {
	var records []demographics.Record
	var kind demographics.Kind

	switch {
	case d.Dataset != "":
		dataset, err := demographics.LoadDataset(d.Dataset)
		if err != nil {
			return nil, "", err
		}
		records, kind = dataset.Records, dataset.Kind
	case d.File != "":
		f, err := os.Open(d.File)
		if err != nil {
			return nil, "", fmt.Errorf("failed to open demographics file: %w", err)
		}
		defer f.Close()
		dataset, err := demographics.ParseDataset(f)
		if err != nil {
			return nil, "", fmt.Errorf("%s: %w", d.File, err)
		}
		records, kind = dataset.Records, dataset.Kind
	default:
		records = d.Records
		kind = demographics.KindDemographic
	}

	if strings.TrimSpace(d.Kind) != "" {
		override, err := demographics.ParseKind(d.Kind)
		if err != nil {
			return nil, "", err
		}
		kind = override
	}
	return records, kind, nil
}

// OperatingExpensePolicy returns the engine's opex policy. An unparseable
// type is passed through so the engine's zero fallback applies.
func (c *Configuration) OperatingExpensePolicy() projection.OperatingExpensePolicy {
	opexType, err := projection.ParseOpexType(c.Model.OperatingExpense.Type)
	if err != nil {
		opexType = projection.OpexType(c.Model.OperatingExpense.Type)
	}
	return projection.OperatingExpensePolicy{
		Type:       opexType,
		Fixed:      c.Model.OperatingExpense.Fixed,
		Percentage: c.Model.OperatingExpense.Percentage,
	}
}

// Parameters builds the engine's run parameters. now resolves an empty start
// date to the current month.
func (c *Configuration) Parameters(now time.Time) (projection.Parameters, error) {
	seasonality, err := projection.ParseSeasonality(c.Model.Seasonality)
	if err != nil {
		return projection.Parameters{}, err
	}
	start, err := datetime.ParseStartDate(c.Model.StartDate, now)
	if err != nil {
		return projection.Parameters{}, err
	}
	return projection.Parameters{
		Months:           c.Model.Months,
		Seasonality:      seasonality,
		OperatingExpense: c.OperatingExpensePolicy(),
		StartDate:        start,
	}, nil
}

// ActiveScenarios returns the active scenarios in configured order, or the
// default set when none are active.
func (c *Configuration) ActiveScenarios() []projection.Scenario {
	var scenarios []projection.Scenario
	for _, scenario := range c.Scenarios {
		if scenario.Active {
			scenarios = append(scenarios, scenario.ToScenario())
		}
	}
	if len(scenarios) == 0 {
		return projection.DefaultScenarios()
	}
	return scenarios
}
