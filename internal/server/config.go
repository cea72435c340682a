package server

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/iwvelando/revenue-forecast/internal/config"
	"github.com/iwvelando/revenue-forecast/pkg/constants"
	"github.com/spf13/viper"
)

// ServerEnvPrefix prefixes environment overrides of the server config, e.g.
// REVENUE_FORECAST_SERVER_STORAGE_DSN.
const ServerEnvPrefix = constants.EnvPrefix + "_SERVER"

const (
	defaultReadHeaderTimeout = 10 * time.Second
	defaultShutdownTimeout   = 15 * time.Second
)

// Config holds the revenue API listener, its upload limit, the segment and
// model store, the editor response cache and logging.
type Config struct {
	Address           string               `yaml:"address" mapstructure:"address"`
	MaxUploadSize     string               `yaml:"maxUploadSize" mapstructure:"maxUploadSize"`
	ReadHeaderTimeout time.Duration        `yaml:"readHeaderTimeout" mapstructure:"readHeaderTimeout"`
	ShutdownTimeout   time.Duration        `yaml:"shutdownTimeout" mapstructure:"shutdownTimeout"`
	Storage           config.StorageConfig `yaml:"storage" mapstructure:"storage"`
	Cache             config.CacheConfig   `yaml:"cache" mapstructure:"cache"`
	Logging           config.LoggingConfig `yaml:"logging" mapstructure:"logging"`
	uploadSizeBytes   int64
}

// serverEnvKeys are bound so that secrets such as the postgres DSN can come
// from the environment alone.
var serverEnvKeys = []string{
	"address",
	"maxUploadSize",
	"readHeaderTimeout",
	"shutdownTimeout",
	"storage.driver",
	"storage.path",
	"storage.dsn",
	"cache.driver",
	"cache.url",
	"cache.ttlSeconds",
	"logging.level",
	"logging.format",
	"logging.outputFile",
}

// LoadConfig reads the server config at path with REVENUE_FORECAST_SERVER_*
// overrides applied. A missing file or empty path yields the defaults plus
// any overrides: no storage, no cache, 256KB uploads on :8080.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix(ServerEnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for _, key := range serverEnvKeys {
		_ = v.BindEnv(key)
	}
	v.SetConfigType("yml")

	v.SetDefault("address", constants.DefaultServerAddress)
	v.SetDefault("maxUploadSize", strconv.FormatInt(constants.DefaultMaxUploadSizeBytes, 10))
	v.SetDefault("readHeaderTimeout", defaultReadHeaderTimeout)
	v.SetDefault("shutdownTimeout", defaultShutdownTimeout)
	v.SetDefault("cache.ttlSeconds", constants.DefaultCacheTTLSeconds)

	if path != "" {
		f, err := os.Open(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("failed to read server config: %w", err)
		default:
			defer f.Close()
			if err := v.ReadConfig(f); err != nil {
				return nil, fmt.Errorf("failed to parse server config: %w", err)
			}
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to decode server config: %w", err)
	}
	if err := cfg.normalize(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// UploadSizeBytes returns the configured upload size in bytes.
func (c *Config) UploadSizeBytes() int64 {
	return c.uploadSizeBytes
}

func (c *Config) normalize() error {
	c.Address = strings.TrimSpace(c.Address)
	if c.Address == "" {
		c.Address = constants.DefaultServerAddress
	}
	if c.ReadHeaderTimeout <= 0 {
		c.ReadHeaderTimeout = defaultReadHeaderTimeout
	}
	if c.ShutdownTimeout <= 0 {
		c.ShutdownTimeout = defaultShutdownTimeout
	}

	c.Storage.Normalize()
	if err := c.Storage.Validate(); err != nil {
		return err
	}
	c.Cache.Normalize()
	if err := c.Cache.Validate(); err != nil {
		return err
	}

	size, err := ParseSize(c.MaxUploadSize)
	if err != nil {
		return fmt.Errorf("maxUploadSize: %w", err)
	}
	if size <= 0 {
		size = constants.DefaultMaxUploadSizeBytes
	}
	c.uploadSizeBytes = size
	c.MaxUploadSize = strconv.FormatInt(size, 10)
	return nil
}

var sizeUnits = map[string]int64{
	"":   1,
	"B":  1,
	"K":  1 << 10,
	"KB": 1 << 10,
	"M":  1 << 20,
	"MB": 1 << 20,
	"G":  1 << 30,
	"GB": 1 << 30,
}

// ParseSize converts a byte count with an optional binary unit ("256KB",
// "2M") into bytes. An empty value is the default upload limit.
func ParseSize(value string) (int64, error) {
	trimmed := strings.ToUpper(strings.TrimSpace(value))
	if trimmed == "" {
		return constants.DefaultMaxUploadSizeBytes, nil
	}

	digits := strings.IndexFunc(trimmed, func(r rune) bool { return r < '0' || r > '9' })
	if digits == -1 {
		digits = len(trimmed)
	}
	if digits == 0 {
		return 0, fmt.Errorf("invalid size: %s", value)
	}

	unit := strings.TrimSpace(trimmed[digits:])
	multiplier, ok := sizeUnits[unit]
	if !ok {
		return 0, fmt.Errorf("unsupported size unit %q", unit)
	}

	n, err := strconv.ParseInt(trimmed[:digits], 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid size value %q: %w", value, err)
	}
	if n > (1<<63-1)/multiplier {
		return 0, fmt.Errorf("size overflow for value %s", value)
	}
	return n * multiplier, nil
}
