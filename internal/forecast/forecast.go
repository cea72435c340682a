// Package forecast runs a configured revenue model through the projection
// engine and collects everything the outputs need.
package forecast

import (
	"context"
	"fmt"
	"time"

	"github.com/iwvelando/revenue-forecast/internal/config"
	"github.com/iwvelando/revenue-forecast/pkg/optimization"
	"github.com/iwvelando/revenue-forecast/pkg/projection"
	"go.uber.org/zap"
)

// Input is a fully resolved model.
type Input struct {
	Name         string
	Description  string
	Country      string
	ExchangeRate float64
	Segments     []projection.Segment
	Parameters   projection.Parameters
	Scenarios    []projection.Scenario
}

// Result holds a base projection with its aggregates and scenario outcomes.
type Result struct {
	Name          string                      `json:"name"`
	Description   string                      `json:"description,omitempty"`
	Country       string                      `json:"country,omitempty"`
	ExchangeRate  float64                     `json:"exchangeRate"`
	Parameters    projection.Parameters       `json:"parameters"`
	Segments      []projection.Segment        `json:"segments"`
	Projection    *projection.Projection      `json:"projection"`
	Summary       projection.Summary          `json:"summary"`
	Yearly        []projection.YearRecord     `json:"yearly"`
	Breakdown     []projection.SegmentTotal   `json:"breakdown"`
	Scenarios     []projection.ScenarioResult `json:"scenarios"`
	Optimizations []optimization.Summary      `json:"optimizations,omitempty"`
	Warnings      []string                    `json:"warnings,omitempty"`
}

// Scenario returns the named scenario result.
func (r *Result) Scenario(name string) (projection.ScenarioResult, bool) {
	if r == nil {
		return projection.ScenarioResult{}, false
	}
	for _, scenario := range r.Scenarios {
		if scenario.Scenario.Name == name {
			return scenario, true
		}
	}
	return projection.ScenarioResult{}, false
}

// InputFromConfig resolves segments, parameters and scenarios from a
// validated configuration.
func InputFromConfig(conf config.Configuration, now time.Time) (Input, error) {
	segments, err := conf.ResolveSegments(nil)
	if err != nil {
		return Input{}, fmt.Errorf("failed to resolve segments: %w", err)
	}
	params, err := conf.Parameters(now)
	if err != nil {
		return Input{}, err
	}
	return Input{
		Name:         conf.Model.Name,
		Description:  conf.Model.Description,
		Country:      conf.Model.Country,
		ExchangeRate: conf.Model.ExchangeRate,
		Segments:     segments,
		Parameters:   params,
		Scenarios:    conf.ActiveScenarios(),
	}, nil
}

// GetForecast computes the forecast for a configuration starting from the
// current month when the model has no start date.
func GetForecast(ctx context.Context, logger *zap.Logger, conf config.Configuration) (*Result, error) {
	return GetForecastWithFixedTime(ctx, logger, conf, time.Now())
}

// GetForecastWithFixedTime computes the forecast with an injectable clock.
func GetForecastWithFixedTime(ctx context.Context, logger *zap.Logger, conf config.Configuration, now time.Time) (*Result, error) {
	in, err := InputFromConfig(conf, now)
	if err != nil {
		return nil, err
	}
	return Compute(ctx, logger, in)
}

// Compute runs the base projection and every scenario.
func Compute(ctx context.Context, logger *zap.Logger, in Input) (*Result, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	engine := projection.NewEngine(logger)

	base, err := engine.Run(in.Segments, in.Parameters)
	if err != nil {
		return nil, err
	}

	yearly, err := projection.AggregateByYear(base.Monthly)
	if err != nil {
		return nil, err
	}

	scenarios, err := engine.RunScenarioSet(ctx, in.Segments, in.Parameters, in.Scenarios)
	if err != nil {
		return nil, err
	}

	result := &Result{
		Name:         in.Name,
		Description:  in.Description,
		Country:      in.Country,
		ExchangeRate: in.ExchangeRate,
		Parameters:   in.Parameters,
		Segments:     in.Segments,
		Projection:   base,
		Summary:      base.Totals(),
		Yearly:       yearly,
		Breakdown:    projection.SegmentBreakdown(base),
		Scenarios:    scenarios,
	}

	logger.Debug("forecast computed",
		zap.String("op", "forecast.Compute"),
		zap.String("model", in.Name),
		zap.Int("segments", len(in.Segments)),
		zap.Int("months", in.Parameters.Months),
		zap.Int("scenarios", len(scenarios)),
		zap.Float64("totalRevenue", result.Summary.TotalRevenue),
	)

	return result, nil
}
