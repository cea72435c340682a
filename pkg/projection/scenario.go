package projection

import (
	"context"
	"fmt"
	"runtime"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Scenario is a named set of multiplicative adjustments.
type Scenario struct {
	Name                       string  `json:"name" yaml:"name"`
	VolumeGrowthMultiplier     float64 `json:"volumeGrowthMultiplier" yaml:"volumeGrowthMultiplier"`
	PriceMultiplier            float64 `json:"priceMultiplier" yaml:"priceMultiplier"`
	CostMultiplier             float64 `json:"costMultiplier" yaml:"costMultiplier"`
	OperatingExpenseMultiplier float64 `json:"operatingExpenseMultiplier" yaml:"operatingExpenseMultiplier"`
}

// Default scenario names.
const (
	ScenarioConservative = "Conservative"
	ScenarioBaseCase     = "Base Case"
	ScenarioOptimistic   = "Optimistic"
)

// DefaultScenarios returns the standard conservative, base and optimistic set.
func DefaultScenarios() []Scenario {
	return []Scenario{
		{Name: ScenarioConservative, VolumeGrowthMultiplier: 0.6, PriceMultiplier: 0.95, CostMultiplier: 1.1, OperatingExpenseMultiplier: 1.15},
		BaseCase(),
		{Name: ScenarioOptimistic, VolumeGrowthMultiplier: 1.5, PriceMultiplier: 1.08, CostMultiplier: 0.92, OperatingExpenseMultiplier: 0.95},
	}
}

// BaseCase returns the identity scenario.
func BaseCase() Scenario {
	return Scenario{Name: ScenarioBaseCase, VolumeGrowthMultiplier: 1, PriceMultiplier: 1, CostMultiplier: 1, OperatingExpenseMultiplier: 1}
}

// Apply returns the segment as seen under the scenario. The original is not
// modified.
func (s Scenario) Apply(segment Segment) Segment {
	adjusted := segment
	adjusted.VolumeGrowth = segment.VolumeGrowth * s.VolumeGrowthMultiplier
	adjusted.PricePerTransaction = segment.PricePerTransaction * s.PriceMultiplier
	adjusted.CostPerTransaction = segment.CostPerTransaction * s.CostMultiplier
	return adjusted
}

// ApplyAll adjusts every segment.
func (s Scenario) ApplyAll(segments []Segment) []Segment {
	adjusted := make([]Segment, len(segments))
	for i, segment := range segments {
		adjusted[i] = s.Apply(segment)
	}
	return adjusted
}

// ScenarioResult is one scenario's outcome.
type ScenarioResult struct {
	Scenario   Scenario    `json:"scenario"`
	Summary    Summary     `json:"summary"`
	Projection *Projection `json:"projection,omitempty"`
}

// RunScenarios runs each scenario and returns its totals keyed by name.
// An empty scenario list runs DefaultScenarios.
func (e *Engine) RunScenarios(ctx context.Context, segments []Segment, params Parameters, scenarios []Scenario) (map[string]Summary, error) {
	results, err := e.RunScenarioSet(ctx, segments, params, scenarios)
	if err != nil {
		return nil, err
	}
	summaries := make(map[string]Summary, len(results))
	for _, result := range results {
		summaries[result.Scenario.Name] = result.Summary
	}
	return summaries, nil
}

// RunScenarioSet runs scenarios concurrently and returns results in input
// order. Each scenario is an adjusted view of the segments fed through the
// same algorithm as Run, so the identity scenario reproduces Run exactly.
func (e *Engine) RunScenarioSet(ctx context.Context, segments []Segment, params Parameters, scenarios []Scenario) ([]ScenarioResult, error) {
	if len(segments) == 0 {
		return nil, ErrEmptySegmentSet
	}
	if len(scenarios) == 0 {
		scenarios = DefaultScenarios()
	}

	seen := make(map[string]struct{}, len(scenarios))
	for _, scenario := range scenarios {
		key := strings.ToLower(strings.TrimSpace(scenario.Name))
		if _, exists := seen[key]; exists {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateScenario, scenario.Name)
		}
		seen[key] = struct{}{}
	}

	results := make([]ScenarioResult, len(scenarios))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))

	for i, scenario := range scenarios {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			p, err := e.run(scenario.ApplyAll(segments), params, scenario.OperatingExpenseMultiplier)
			if err != nil {
				return fmt.Errorf("scenario %s: %w", scenario.Name, err)
			}
			results[i] = ScenarioResult{Scenario: scenario, Summary: p.Totals(), Projection: p}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	e.logger.Debug("scenarios computed",
		zap.String("op", "projection.RunScenarioSet"),
		zap.Int("scenarios", len(scenarios)),
		zap.Int("segments", len(segments)),
	)

	return results, nil
}
