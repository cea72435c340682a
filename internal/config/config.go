// Package config defines the data structures related to configuration and
// includes functions for loading, normalizing and resolving a revenue model.
package config

import (
	"fmt"
	"io"
	"math"
	"strings"
	"time"

	"github.com/iwvelando/revenue-forecast/pkg/constants"
	"github.com/iwvelando/revenue-forecast/pkg/demographics"
	"github.com/iwvelando/revenue-forecast/pkg/projection"
	"github.com/iwvelando/revenue-forecast/pkg/validation"
	"github.com/spf13/viper"
)

// DateTimeLayout is the format expected for the model start date.
const DateTimeLayout = constants.DateTimeLayout

// Storage and cache drivers.
const (
	DriverNone     = "none"
	DriverMemory   = "memory"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverRedis    = "redis"
)

// Configuration holds all configuration for revenue-forecast.
type Configuration struct {
	Model        ModelConfig          `yaml:"model" mapstructure:"model"`
	Segments     []projection.Segment `yaml:"segments,omitempty" mapstructure:"segments"`
	Templates    []string             `yaml:"templates,omitempty" mapstructure:"templates"`
	Demographics *DemographicsConfig  `yaml:"demographics,omitempty" mapstructure:"demographics"`
	Scenarios    []Scenario           `yaml:"scenarios,omitempty" mapstructure:"scenarios"`
	Optimizers   []OptimizerConfig    `yaml:"optimizers,omitempty" mapstructure:"optimizers"`
	Storage      StorageConfig        `yaml:"storage,omitempty" mapstructure:"storage"`
	Cache        CacheConfig          `yaml:"cache,omitempty" mapstructure:"cache"`
	Logging      LoggingConfig        `yaml:"logging,omitempty" mapstructure:"logging"`
	Output       OutputConfig         `yaml:"output,omitempty" mapstructure:"output"`
}

// ModelConfig holds the global projection parameters.
type ModelConfig struct {
	Name             string                 `yaml:"name,omitempty" mapstructure:"name"`
	Description      string                 `yaml:"description,omitempty" mapstructure:"description"`
	Country          string                 `yaml:"country,omitempty" mapstructure:"country"`
	StartDate        string                 `yaml:"startDate,omitempty" mapstructure:"startDate"` // YYYY-MM, empty means the current month
	Months           int                    `yaml:"months,omitempty" mapstructure:"months"`
	Seasonality      string                 `yaml:"seasonality,omitempty" mapstructure:"seasonality"`
	OperatingExpense OperatingExpenseConfig `yaml:"operatingExpense,omitempty" mapstructure:"operatingExpense"`
	ExchangeRate     float64                `yaml:"exchangeRate,omitempty" mapstructure:"exchangeRate"` // INR per USD
}

// OperatingExpenseConfig selects the opex policy.
type OperatingExpenseConfig struct {
	Type       string  `yaml:"type,omitempty" mapstructure:"type"` // fixed, percentage, hybrid
	Fixed      float64 `yaml:"fixed,omitempty" mapstructure:"fixed"`
	Percentage float64 `yaml:"percentage,omitempty" mapstructure:"percentage"`
}

// Scenario is a named set of multipliers. Unset multipliers default to 1.
type Scenario struct {
	Name                       string   `yaml:"name" mapstructure:"name"`
	Active                     bool     `yaml:"active" mapstructure:"active"`
	VolumeGrowthMultiplier     *float64 `yaml:"volumeGrowthMultiplier,omitempty" mapstructure:"volumeGrowthMultiplier"`
	PriceMultiplier            *float64 `yaml:"priceMultiplier,omitempty" mapstructure:"priceMultiplier"`
	CostMultiplier             *float64 `yaml:"costMultiplier,omitempty" mapstructure:"costMultiplier"`
	OperatingExpenseMultiplier *float64 `yaml:"operatingExpenseMultiplier,omitempty" mapstructure:"operatingExpenseMultiplier"`
}

// DemographicsConfig loads segments from population data. Exactly one of
// Dataset, File or Records is expected.
type DemographicsConfig struct {
	Dataset string                `yaml:"dataset,omitempty" mapstructure:"dataset"`
	File    string                `yaml:"file,omitempty" mapstructure:"file"`
	Kind    string                `yaml:"kind,omitempty" mapstructure:"kind"`
	Records []demographics.Record `yaml:"records,omitempty" mapstructure:"records"`
}

// StorageConfig selects where segments and saved models are persisted.
type StorageConfig struct {
	Driver string `yaml:"driver,omitempty" mapstructure:"driver"` // none, memory, sqlite, postgres
	Path   string `yaml:"path,omitempty" mapstructure:"path"`     // sqlite database file
	DSN    string `yaml:"dsn,omitempty" mapstructure:"dsn"`       // postgres connection string
}

// CacheConfig selects the projection result cache.
type CacheConfig struct {
	Driver     string `yaml:"driver,omitempty" mapstructure:"driver"` // none, memory, redis
	URL        string `yaml:"url,omitempty" mapstructure:"url"`
	TTLSeconds int    `yaml:"ttlSeconds,omitempty" mapstructure:"ttlSeconds"`
}

// TTL returns the cache entry lifetime.
func (c CacheConfig) TTL() time.Duration {
	return time.Duration(c.TTLSeconds) * time.Second
}

// LoggingConfig holds logging configuration options
type LoggingConfig struct {
	Level      string `yaml:"level,omitempty" mapstructure:"level"`           // debug, info, warn, error
	Format     string `yaml:"format,omitempty" mapstructure:"format"`         // json, console
	OutputFile string `yaml:"outputFile,omitempty" mapstructure:"outputFile"` // optional file output
}

// OutputConfig holds output format configuration options
type OutputConfig struct {
	Format string `yaml:"format,omitempty" mapstructure:"format"` // pretty, csv, json, yaml
	Period string `yaml:"period,omitempty" mapstructure:"period"` // monthly, yearly, daily
	Window string `yaml:"window,omitempty" mapstructure:"window"` // 1M, 1Y, 2Y, 5Y, 10Y, ALL
}

// envKeys are bound explicitly so overrides apply even when the file omits them.
var envKeys = []string{
	"model.months",
	"model.startDate",
	"model.exchangeRate",
	"model.seasonality",
	"storage.driver",
	"storage.path",
	"storage.dsn",
	"cache.driver",
	"cache.url",
	"logging.level",
	"output.format",
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(constants.EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for _, key := range envKeys {
		_ = v.BindEnv(key)
	}
	v.SetConfigType("yml")
	return v
}

// LoadConfiguration takes a file path as input and loads the YAML-formatted
// configuration there. Environment variables prefixed REVENUE_FORECAST_
// override file values.
func LoadConfiguration(configPath string) (*Configuration, error) {
	v := newViper()
	v.SetConfigFile(configPath)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("error reading config file, %s", err)
	}

	return decode(v)
}

// LoadConfigurationFromReader loads a YAML configuration from r.
func LoadConfigurationFromReader(r io.Reader) (*Configuration, error) {
	v := newViper()

	if err := v.ReadConfig(r); err != nil {
		return nil, fmt.Errorf("error reading config, %s", err)
	}

	return decode(v)
}

func decode(v *viper.Viper) (*Configuration, error) {
	var configuration Configuration
	if err := v.Unmarshal(&configuration); err != nil {
		return nil, fmt.Errorf("unable to decode into struct, %s", err)
	}
	return &configuration, nil
}

// Normalize applies defaults and canonical values. Values that cannot be
// canonicalised are left for Validate to report.
func (c *Configuration) Normalize() {
	if c == nil {
		return
	}

	m := &c.Model
	m.Name = strings.TrimSpace(m.Name)
	if m.Name == "" {
		m.Name = "Revenue Model"
	}
	if m.Months == 0 {
		m.Months = constants.DefaultProjectionMonths
	}
	if m.ExchangeRate == 0 {
		m.ExchangeRate = constants.DefaultExchangeRate
	}
	if profile, err := projection.ParseSeasonality(m.Seasonality); err == nil {
		m.Seasonality = string(profile)
	}
	if opexType, err := projection.ParseOpexType(m.OperatingExpense.Type); err == nil {
		m.OperatingExpense.Type = string(opexType)
	}

	for i := range c.Scenarios {
		c.Scenarios[i].Name = strings.TrimSpace(c.Scenarios[i].Name)
	}
	for i := range c.Optimizers {
		c.Optimizers[i].Normalize()
	}

	c.Storage.Normalize()
	c.Cache.Normalize()

	c.Output.Format = strings.ToLower(strings.TrimSpace(c.Output.Format))
	if c.Output.Format == "" {
		c.Output.Format = constants.OutputFormatPretty
	}
	c.Output.Period = strings.ToLower(strings.TrimSpace(c.Output.Period))
	if c.Output.Period == "" {
		c.Output.Period = constants.PeriodMonthly
	}
	if window, err := projection.ParsePeriod(c.Output.Window); err == nil {
		c.Output.Window = string(window)
	}
}

func canonicalDriver(value string) string {
	driver := strings.ToLower(strings.TrimSpace(value))
	switch driver {
	case "":
		return DriverNone
	case "sqlite3":
		return DriverSQLite
	case "postgresql", "pg":
		return DriverPostgres
	default:
		return driver
	}
}

// Validate normalizes the configuration and returns an error for settings
// that cannot produce a projection.
func (c *Configuration) Validate() error {
	if c == nil {
		return fmt.Errorf("configuration cannot be nil")
	}
	c.Normalize()

	m := c.Model
	if m.Months < 0 {
		return fmt.Errorf("model months must be positive, got %d", m.Months)
	}
	if _, err := projection.ParseSeasonality(m.Seasonality); err != nil {
		return err
	}
	if _, err := projection.ParseOpexType(m.OperatingExpense.Type); err != nil {
		return err
	}
	if m.OperatingExpense.Fixed < 0 || !isFinite(m.OperatingExpense.Fixed) {
		return fmt.Errorf("fixed operating expense must be a non-negative number, got %v", m.OperatingExpense.Fixed)
	}
	if m.OperatingExpense.Percentage < 0 || !isFinite(m.OperatingExpense.Percentage) {
		return fmt.Errorf("operating expense percentage must be a non-negative number, got %v", m.OperatingExpense.Percentage)
	}
	if _, err := time.Parse(DateTimeLayout, m.StartDate); m.StartDate != "" && err != nil {
		return fmt.Errorf("model start date %q must be formatted YYYY-MM", m.StartDate)
	}

	seen := make(map[string]struct{}, len(c.Scenarios))
	for i, scenario := range c.Scenarios {
		if err := scenario.Validate(); err != nil {
			return fmt.Errorf("scenario %d: %w", i, err)
		}
		key := strings.ToLower(scenario.Name)
		if _, exists := seen[key]; exists {
			return fmt.Errorf("%w: %s", projection.ErrDuplicateScenario, scenario.Name)
		}
		seen[key] = struct{}{}
	}

	for i := range c.Optimizers {
		if err := c.Optimizers[i].Validate(); err != nil {
			return fmt.Errorf("optimizer %d: %w", i, err)
		}
	}

	if c.Demographics != nil {
		if err := c.Demographics.Validate(); err != nil {
			return err
		}
	}

	if err := c.Storage.Validate(); err != nil {
		return err
	}
	if err := c.Cache.Validate(); err != nil {
		return err
	}

	if err := validation.ValidateOutputFormat(c.Output.Format); err != nil {
		return err
	}
	if err := validation.ValidateOutputPeriod(c.Output.Period); err != nil {
		return err
	}
	if _, err := projection.ParsePeriod(c.Output.Window); err != nil {
		return err
	}

	return nil
}

// Validate checks the scenario name and multipliers.
func (s Scenario) Validate() error {
	if s.Name == "" {
		return fmt.Errorf("scenario name cannot be empty")
	}
	multipliers := map[string]*float64{
		"volumeGrowthMultiplier":     s.VolumeGrowthMultiplier,
		"priceMultiplier":            s.PriceMultiplier,
		"costMultiplier":             s.CostMultiplier,
		"operatingExpenseMultiplier": s.OperatingExpenseMultiplier,
	}
	for field, value := range multipliers {
		if value == nil {
			continue
		}
		if !isFinite(*value) || *value < 0 {
			return fmt.Errorf("scenario %s %s must be a non-negative number, got %v", s.Name, field, *value)
		}
	}
	return nil
}

// ToScenario converts to the engine's scenario, defaulting unset multipliers to 1.
func (s Scenario) ToScenario() projection.Scenario {
	return projection.Scenario{
		Name:                       s.Name,
		VolumeGrowthMultiplier:     valueOrOne(s.VolumeGrowthMultiplier),
		PriceMultiplier:            valueOrOne(s.PriceMultiplier),
		CostMultiplier:             valueOrOne(s.CostMultiplier),
		OperatingExpenseMultiplier: valueOrOne(s.OperatingExpenseMultiplier),
	}
}

// Normalize canonicalises the driver name.
func (s *StorageConfig) Normalize() {
	s.Driver = canonicalDriver(s.Driver)
}

// Validate checks the kind parses and exactly one source is set.
func (d *DemographicsConfig) Validate() error {
	if _, err := demographics.ParseKind(d.Kind); err != nil {
		return err
	}
	sources := 0
	for _, set := range []bool{d.Dataset != "", d.File != "", len(d.Records) > 0} {
		if set {
			sources++
		}
	}
	if sources != 1 {
		return fmt.Errorf("demographics requires exactly one of dataset, file or records")
	}
	return nil
}

// Validate checks the storage driver has what it needs to connect.
func (s StorageConfig) Validate() error {
	switch s.Driver {
	case DriverNone, DriverMemory:
	case DriverSQLite:
		if strings.TrimSpace(s.Path) == "" {
			return fmt.Errorf("storage driver sqlite requires a path")
		}
	case DriverPostgres:
		if strings.TrimSpace(s.DSN) == "" {
			return fmt.Errorf("storage driver postgres requires a dsn")
		}
	default:
		return fmt.Errorf("storage driver %q is not supported", s.Driver)
	}
	return nil
}

// Normalize canonicalises the driver name and defaults the TTL.
func (c *CacheConfig) Normalize() {
	c.Driver = canonicalDriver(c.Driver)
	if c.TTLSeconds <= 0 {
		c.TTLSeconds = constants.DefaultCacheTTLSeconds
	}
}

// Validate checks the cache driver has what it needs to connect.
func (c CacheConfig) Validate() error {
	switch c.Driver {
	case DriverNone, DriverMemory:
	case DriverRedis:
		if strings.TrimSpace(c.URL) == "" {
			return fmt.Errorf("cache driver redis requires a url")
		}
	default:
		return fmt.Errorf("cache driver %q is not supported", c.Driver)
	}
	return nil
}

// ValidateConfiguration performs general validation of the configuration and returns warnings
func (c *Configuration) ValidateConfiguration() []string {
	var warnings []string

	segments, err := c.ResolveSegments(nil)
	if err != nil {
		warnings = append(warnings, fmt.Sprintf("Segments could not be resolved: %v", err))
	}

	var scenarios []validation.ScenarioConfig
	for _, scenario := range c.Scenarios {
		scenarios = append(scenarios, validation.ScenarioConfig{Name: scenario.Name, Active: scenario.Active})
	}

	validator := validation.ConfigValidator{
		Months:           c.Model.Months,
		OperatingExpense: c.OperatingExpensePolicy(),
		ExchangeRate:     c.Model.ExchangeRate,
		Segments:         segments,
		Scenarios:        scenarios,
	}
	return append(warnings, validator.ValidateAll()...)
}

func valueOrOne(value *float64) float64 {
	if value == nil {
		return 1
	}
	return *value
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
