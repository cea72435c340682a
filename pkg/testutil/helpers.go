// Package testutil provides common utility functions for testing.
package testutil

import (
	"math"
	"testing"

	"github.com/iwvelando/revenue-forecast/internal/config"
	"github.com/iwvelando/revenue-forecast/pkg/projection"
)

// FindScenario finds a scenario by name in the results slice.
// Returns a pointer to the result if found, nil otherwise.
func FindScenario(results []projection.ScenarioResult, name string) *projection.ScenarioResult {
	for i := range results {
		if results[i].Scenario.Name == name {
			return &results[i]
		}
	}
	return nil
}

// LoadConfig loads, normalizes and validates a configuration file, failing
// the test on any error.
func LoadConfig(t testing.TB, path string) *config.Configuration {
	t.Helper()

	conf, err := config.LoadConfiguration(path)
	if err != nil {
		t.Fatalf("LoadConfiguration(%s) error = %v", path, err)
	}
	conf.Normalize()
	if err := conf.Validate(); err != nil {
		t.Fatalf("Validate(%s) error = %v", path, err)
	}
	return conf
}

// WithinRelative reports whether a and b differ by at most rel of the larger
// magnitude.
func WithinRelative(a, b, rel float64) bool {
	return math.Abs(a-b) <= rel*math.Max(math.Abs(a), math.Abs(b))
}
