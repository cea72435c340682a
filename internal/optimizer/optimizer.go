// Package optimizer solves for the scenario multiplier on one lever (price,
// cost, volume growth or opex) that makes a projection hit a goal.
package optimizer

import (
	"context"
	"fmt"
	"math"

	"github.com/iwvelando/revenue-forecast/internal/config"
	"github.com/iwvelando/revenue-forecast/internal/forecast"
	"github.com/iwvelando/revenue-forecast/pkg/format"
	"github.com/iwvelando/revenue-forecast/pkg/optimization"
	"github.com/iwvelando/revenue-forecast/pkg/projection"
	"go.uber.org/zap"
)

// Runner evaluates optimizer directives against a resolved model.
type Runner struct {
	logger     *zap.Logger
	engine     *projection.Engine
	in         forecast.Input
	optimizers []config.OptimizerConfig
}

type target struct {
	cfg      config.OptimizerConfig
	scenario projection.Scenario
	goal     float64
}

type evaluation struct {
	value    float64
	achieved float64
	residual float64
}

// Result summarizes optimizer adjustments keyed by scenario name.
type Result struct {
	Summaries map[string][]optimization.Summary
}

// Empty indicates whether any optimizer adjustments were produced.
func (r Result) Empty() bool {
	return len(r.Summaries) == 0
}

// Apply attaches optimizer summaries to the forecast result in scenario order.
func (r Result) Apply(result *forecast.Result) {
	if result == nil || len(r.Summaries) == 0 {
		return
	}
	seen := make(map[string]bool)
	for _, scenario := range result.Scenarios {
		name := scenario.Scenario.Name
		result.Optimizations = append(result.Optimizations, r.Summaries[name]...)
		seen[name] = true
	}
	for name, summaries := range r.Summaries {
		if !seen[name] {
			result.Optimizations = append(result.Optimizations, summaries...)
		}
	}
}

// NewRunner constructs a Runner for the provided model and directives.
func NewRunner(logger *zap.Logger, in forecast.Input, optimizers []config.OptimizerConfig) (*Runner, error) {
	if len(in.Segments) == 0 {
		return nil, projection.ErrEmptySegmentSet
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{logger: logger, engine: projection.NewEngine(logger), in: in, optimizers: optimizers}, nil
}

// Run executes all optimizer directives. The model itself is not modified.
func (r *Runner) Run(ctx context.Context) (*Result, error) {
	targets, err := r.collectTargets()
	if err != nil {
		return nil, err
	}

	summaries := make(map[string][]optimization.Summary)
	for _, t := range targets {
		summary, err := r.solve(ctx, t)
		if err != nil {
			return nil, err
		}
		summaries[t.scenario.Name] = append(summaries[t.scenario.Name], summary)

		r.logger.Info("optimizer solved scenario lever",
			zap.String("op", "optimizer.Run"),
			zap.String("scenario", t.scenario.Name),
			zap.String("optimizer", t.cfg.Name),
			zap.String("field", t.cfg.Field),
			zap.String("goal", t.cfg.Goal),
			zap.Float64("target", summary.Target),
			zap.Float64("multiplier", summary.Value),
			zap.Float64("achieved", summary.Achieved),
			zap.Int("iterations", summary.Iterations),
			zap.Bool("converged", summary.Converged),
		)
	}

	return &Result{Summaries: summaries}, nil
}

func (r *Runner) collectTargets() ([]target, error) {
	scenarios := r.in.Scenarios
	if len(scenarios) == 0 {
		scenarios = projection.DefaultScenarios()
	}

	targets := make([]target, 0, len(r.optimizers))
	for i := range r.optimizers {
		cfg := r.optimizers[i]
		if err := cfg.Validate(); err != nil {
			return nil, fmt.Errorf("optimizer %s: %w", cfg.Name, err)
		}

		var scenario *projection.Scenario
		for j := range scenarios {
			if scenarios[j].Name == cfg.Scenario {
				scenario = &scenarios[j]
				break
			}
		}
		if scenario == nil {
			if cfg.Scenario != projection.ScenarioBaseCase {
				return nil, fmt.Errorf("optimizer %s: scenario %s is not active", cfg.Name, cfg.Scenario)
			}
			base := projection.BaseCase()
			scenario = &base
		}

		goal := cfg.Target
		if cfg.Goal == config.OptimizerGoalBreakEven {
			goal = 0
		}
		targets = append(targets, target{cfg: cfg, scenario: *scenario, goal: goal})
	}
	return targets, nil
}

// solve bisects the lever multiplier between the configured bounds. The
// goal metric must change sign across the bracket for a solution to exist.
func (r *Runner) solve(ctx context.Context, t target) (optimization.Summary, error) {
	cfg := t.cfg
	summary := optimization.Summary{
		Scope:           t.scenario.Name,
		TargetName:      cfg.Name,
		Field:           cfg.Field,
		Goal:            cfg.Goal,
		Target:          t.goal,
		Original:        1,
		OriginalDisplay: formatMultiplier(1),
	}

	lower, err := r.evaluate(ctx, t, *cfg.Min)
	if err != nil {
		return summary, err
	}
	upper, err := r.evaluate(ctx, t, *cfg.Max)
	if err != nil {
		return summary, err
	}

	if sameSign(lower.residual, upper.residual) {
		closest := upper
		if math.Abs(lower.residual) < math.Abs(upper.residual) {
			closest = lower
		}
		r.finish(&summary, closest, 0, closest.residual == 0)
		if closest.residual != 0 {
			summary.Notes = append(summary.Notes, fmt.Sprintf(
				"unable to reach %s %s within multipliers %s to %s",
				cfg.Goal, displayGoal(cfg.Goal, t.goal), formatMultiplier(*cfg.Min), formatMultiplier(*cfg.Max)))
		}
		return summary, nil
	}

	iterations := 0
	best := lower
	if math.Abs(upper.residual) < math.Abs(lower.residual) {
		best = upper
	}
	for iterations < cfg.MaxIterations && math.Abs(upper.value-lower.value) > cfg.Tolerance {
		mid, err := r.evaluate(ctx, t, lower.value+(upper.value-lower.value)/2)
		if err != nil {
			return summary, err
		}
		iterations++
		if math.Abs(mid.residual) < math.Abs(best.residual) {
			best = mid
		}
		if mid.residual == 0 {
			break
		}
		if sameSign(mid.residual, lower.residual) {
			lower = mid
		} else {
			upper = mid
		}
	}

	converged := best.residual == 0 || math.Abs(upper.value-lower.value) <= cfg.Tolerance
	r.finish(&summary, best, iterations, converged)
	if !converged {
		summary.Notes = append(summary.Notes, fmt.Sprintf("stopped after %d iterations", iterations))
	}
	return summary, nil
}

func (r *Runner) finish(summary *optimization.Summary, e evaluation, iterations int, converged bool) {
	summary.Value = e.value
	summary.ValueDisplay = formatMultiplier(e.value)
	summary.Achieved = e.achieved
	summary.Residual = e.residual
	summary.Iterations = iterations
	summary.Converged = converged
}

func (r *Runner) evaluate(ctx context.Context, t target, multiplier float64) (evaluation, error) {
	scenario := adjust(t.scenario, t.cfg.Field, multiplier)
	scenario.Name = t.scenario.Name + " (optimizer)"

	results, err := r.engine.RunScenarioSet(ctx, r.in.Segments, r.in.Parameters, []projection.Scenario{scenario})
	if err != nil {
		return evaluation{}, fmt.Errorf("optimizer evaluation failed: %w", err)
	}

	summary := results[0].Summary
	achieved := summary.NetProfit
	if t.cfg.Goal == config.OptimizerGoalMargin {
		achieved = summary.ProfitMargin
	}
	return evaluation{value: multiplier, achieved: achieved, residual: achieved - t.goal}, nil
}

// adjust scales one lever of the scenario by multiplier.
func adjust(s projection.Scenario, field string, multiplier float64) projection.Scenario {
	switch field {
	case config.OptimizerFieldPrice:
		s.PriceMultiplier *= multiplier
	case config.OptimizerFieldCost:
		s.CostMultiplier *= multiplier
	case config.OptimizerFieldVolumeGrowth:
		s.VolumeGrowthMultiplier *= multiplier
	case config.OptimizerFieldOpex:
		s.OperatingExpenseMultiplier *= multiplier
	}
	return s
}

func sameSign(a, b float64) bool {
	return (a > 0 && b > 0) || (a < 0 && b < 0)
}

func formatMultiplier(value float64) string {
	return fmt.Sprintf("x%.4f", value)
}

func displayGoal(goal string, value float64) string {
	if goal == config.OptimizerGoalMargin {
		return format.Percent(value)
	}
	return format.INR(value)
}
