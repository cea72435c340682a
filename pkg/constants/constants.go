// Package constants provides shared constants for the revenue-forecast application.
package constants

// DateTimeLayout is the format expected for start dates in config files.
const DateTimeLayout = "2006-01"

// MonthLabelLayout is the layout of generated month labels, e.g. "2025 Jan".
// The leading year token is what yearly aggregation keys on.
const MonthLabelLayout = "2006 Jan"

// AltMonthLabelLayout is accepted when parsing labels produced elsewhere.
const AltMonthLabelLayout = "Jan 2006"

// Projection constants
const (
	// MonthsPerYear is the number of months in a year
	MonthsPerYear = 12

	// DaysPerMonth is the fixed number of synthetic days a month is expanded into
	DaysPerMonth = 30

	// DecimalPrecision is the precision for currency rounding (2 decimal places)
	DecimalPrecision = 100

	// DefaultProjectionMonths is the horizon used when none is configured
	DefaultProjectionMonths = 36

	// MaxProjectionMonths is the longest horizon that is charted without a warning
	MaxProjectionMonths = 120

	// MaxSegments is the soft limit on segments per model
	MaxSegments = 100

	// DefaultExchangeRate is the INR per USD rate used for display conversion
	DefaultExchangeRate = 83.50
)

// Segment bounds enforced at the input boundary
const (
	// MinGrowthRate is the lowest accepted monthly growth percent
	MinGrowthRate = -100.0

	// MaxGrowthRate is the highest accepted monthly growth percent
	MaxGrowthRate = 1000.0

	// MaxMonthlyVolume is the volume above which a segment is considered unrealistic
	MaxMonthlyVolume = 10_000_000_000.0

	// MinSegmentNameLength is the shortest accepted segment name
	MinSegmentNameLength = 2
)

// Seasonality profile names
const (
	SeasonalityNone     = "none"
	SeasonalityFestival = "festival"
	SeasonalitySummer   = "summer"
)

// Operating expense policy names
const (
	OpexFixed      = "fixed"
	OpexPercentage = "percentage"
	OpexHybrid     = "hybrid"
)

// Output format constants
const (
	// OutputFormatPretty is the human-readable output format
	OutputFormatPretty = "pretty"

	// OutputFormatCSV is the CSV output format
	OutputFormatCSV = "csv"

	// OutputFormatJSON exports the model configuration and results as JSON
	OutputFormatJSON = "json"

	// OutputFormatYAML exports the model configuration as YAML
	OutputFormatYAML = "yaml"
)

// Output period constants
const (
	PeriodMonthly = "monthly"
	PeriodYearly  = "yearly"
	PeriodDaily   = "daily"
)

// Configuration file constants
const (
	// DefaultConfigFile is the default configuration file name
	DefaultConfigFile = "config.yaml"

	// DefaultServerConfigFile is the default server configuration file name
	DefaultServerConfigFile = "server-config.yaml"

	// EnvPrefix is the prefix for environment overrides, e.g. REVENUE_FORECAST_MODEL_MONTHS
	EnvPrefix = "REVENUE_FORECAST"
)

// Server configuration defaults
const (
	// DefaultServerAddress is the default HTTP listen address for the API
	DefaultServerAddress = ":8080"

	// DefaultMaxUploadSizeBytes is the default maximum upload size for YAML configs (256 KB)
	DefaultMaxUploadSizeBytes int64 = 256 * 1024

	// DefaultCacheTTLSeconds is how long cached projection responses live
	DefaultCacheTTLSeconds = 300

	// MetricsNamespace prefixes every exported Prometheus metric
	MetricsNamespace = "revenue_forecast"
)

// Validation constants
const (
	// CurrencyTolerance is the tolerance for currency comparisons (1 paisa)
	CurrencyTolerance = 0.01

	// PercentageMultiplier is used for percentage conversions
	PercentageMultiplier = 100.0

	// LowMarginThreshold flags thin margins in profitability checks
	LowMarginThreshold = 10.0

	// HighMarginThreshold flags margins that are probably unrealistic
	HighMarginThreshold = 80.0
)
