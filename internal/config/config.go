package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/newthinker/crossover/internal/core"
	"github.com/newthinker/crossover/internal/indicator"
	"github.com/newthinker/crossover/internal/storage/archive"
	"github.com/newthinker/crossover/internal/strategy/ema_crossover"
	"github.com/spf13/viper"
	"go.uber.org/zap/zapcore"
)

// EnvPrefix prefixes environment overrides, e.g. CROSSOVER_STRATEGY_FAST_SPAN.
const EnvPrefix = "CROSSOVER"

// Source types
const (
	SourceParquet    = "parquet"
	SourceCSV        = "csv"
	SourceClickHouse = "clickhouse"
)

type Config struct {
	Strategy StrategyConfig `mapstructure:"strategy"`
	Source   SourceConfig   `mapstructure:"source"`
	Output   OutputConfig   `mapstructure:"output"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
	Log      LogConfig      `mapstructure:"log"`
}

type StrategyConfig struct {
	FastSpan             int    `mapstructure:"fast_span"`
	SlowSpan             int    `mapstructure:"slow_span"`
	NullPolicy           string `mapstructure:"null_policy"`
	RequireFastBelowSlow bool   `mapstructure:"require_fast_below_slow"`
}

type SourceConfig struct {
	Type       string           `mapstructure:"type"` // parquet, csv or clickhouse
	Path       string           `mapstructure:"path"`
	BatchSize  int64            `mapstructure:"batch_size"`
	ClickHouse ClickHouseConfig `mapstructure:"clickhouse"`
}

type ClickHouseConfig struct {
	Addr     string `mapstructure:"addr"`
	Database string `mapstructure:"database"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	Table    string `mapstructure:"table"`
}

type OutputConfig struct {
	TradesKey string        `mapstructure:"trades_key"`
	RunSubdir bool          `mapstructure:"run_subdir"`
	Overwrite bool          `mapstructure:"overwrite"` // false refuses to replace an existing trade table
	Storage   StorageConfig `mapstructure:"storage"`
}

type StorageConfig struct {
	Type string   `mapstructure:"type"` // "localfs" or "s3"
	Path string   `mapstructure:"path"` // For localfs
	S3   S3Config `mapstructure:"s3"`   // For S3
}

type S3Config struct {
	Bucket    string `mapstructure:"bucket"`
	Endpoint  string `mapstructure:"endpoint"`
	Region    string `mapstructure:"region"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	Prefix    string `mapstructure:"prefix"`
}

// MetricsConfig holds metrics configuration.
type MetricsConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Textfile string `mapstructure:"textfile"`
}

type LogConfig struct {
	Development bool   `mapstructure:"development"`
	Level       string `mapstructure:"level"`
}

// Load reads configuration from file. An empty path loads defaults plus
// environment overrides only.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	// Support environment variable overrides
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, core.WrapError(core.ErrConfigInvalid, fmt.Errorf("reading config: %w", err))
		}
	}

	// Expand environment variables in string values
	for _, key := range v.AllKeys() {
		val, ok := v.Get(key).(string)
		if ok && strings.Contains(val, "${") {
			v.Set(key, os.ExpandEnv(val))
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, core.WrapError(core.ErrConfigInvalid, fmt.Errorf("unmarshaling config: %w", err))
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	d := Defaults()
	v.SetDefault("strategy.fast_span", d.Strategy.FastSpan)
	v.SetDefault("strategy.slow_span", d.Strategy.SlowSpan)
	v.SetDefault("strategy.null_policy", d.Strategy.NullPolicy)
	v.SetDefault("strategy.require_fast_below_slow", d.Strategy.RequireFastBelowSlow)
	v.SetDefault("source.type", d.Source.Type)
	v.SetDefault("source.path", d.Source.Path)
	v.SetDefault("source.batch_size", d.Source.BatchSize)
	v.SetDefault("source.clickhouse.addr", d.Source.ClickHouse.Addr)
	v.SetDefault("source.clickhouse.database", d.Source.ClickHouse.Database)
	v.SetDefault("source.clickhouse.username", d.Source.ClickHouse.Username)
	v.SetDefault("source.clickhouse.password", d.Source.ClickHouse.Password)
	v.SetDefault("source.clickhouse.table", d.Source.ClickHouse.Table)
	v.SetDefault("output.trades_key", d.Output.TradesKey)
	v.SetDefault("output.run_subdir", d.Output.RunSubdir)
	v.SetDefault("output.overwrite", d.Output.Overwrite)
	v.SetDefault("output.storage.type", d.Output.Storage.Type)
	v.SetDefault("output.storage.path", d.Output.Storage.Path)
	for _, k := range []string{"bucket", "endpoint", "region", "access_key", "secret_key", "prefix"} {
		v.SetDefault("output.storage.s3."+k, "")
	}
	v.SetDefault("metrics.enabled", d.Metrics.Enabled)
	v.SetDefault("metrics.textfile", d.Metrics.Textfile)
	v.SetDefault("log.development", d.Log.Development)
	v.SetDefault("log.level", d.Log.Level)
}

// Defaults returns a config with sensible defaults
func Defaults() *Config {
	return &Config{
		Strategy: StrategyConfig{
			FastSpan:   20,
			SlowSpan:   50,
			NullPolicy: string(indicator.SkipNull),
		},
		Source: SourceConfig{
			Type:      SourceParquet,
			BatchSize: 64 * 1024,
			ClickHouse: ClickHouseConfig{
				Addr:     "localhost:9000",
				Database: "default",
				Username: "default",
				Table:    "bars",
			},
		},
		Output: OutputConfig{
			TradesKey: "ema_crossover_trades.csv",
			Overwrite: true,
			Storage: StorageConfig{
				Type: "localfs",
				Path: ".",
			},
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if err := c.Strategy.Crossover().Validate(); err != nil {
		return err
	}

	switch c.Source.Type {
	case SourceParquet, SourceCSV:
		if c.Source.Path == "" {
			return core.WrapError(core.ErrConfigMissing,
				fmt.Errorf("source.path required for %s source", c.Source.Type))
		}
		if c.Source.Type == SourceParquet && c.Source.BatchSize <= 0 {
			return core.WrapError(core.ErrConfigInvalid,
				fmt.Errorf("batch_size must be positive, got %d", c.Source.BatchSize))
		}
	case SourceClickHouse:
		if c.Source.ClickHouse.Addr == "" || c.Source.ClickHouse.Table == "" {
			return core.WrapError(core.ErrConfigMissing,
				errors.New("clickhouse addr and table required when source is clickhouse"))
		}
	default:
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("unknown source type %q", c.Source.Type))
	}

	if c.Output.TradesKey == "" {
		return core.WrapError(core.ErrConfigMissing, errors.New("output.trades_key required"))
	}
	switch c.Output.Storage.Type {
	case "localfs":
	case "s3":
		if c.Output.Storage.S3.Bucket == "" {
			return core.WrapError(core.ErrConfigMissing,
				errors.New("s3 bucket required when storage type is s3"))
		}
	default:
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("unknown storage type %q", c.Output.Storage.Type))
	}

	if c.Log.Level != "" {
		if _, err := zapcore.ParseLevel(c.Log.Level); err != nil {
			return core.WrapError(core.ErrConfigInvalid, fmt.Errorf("log.level: %w", err))
		}
	}

	if c.Metrics.Enabled && c.Metrics.Textfile == "" {
		return core.WrapError(core.ErrConfigMissing,
			errors.New("metrics.textfile required when metrics are enabled"))
	}

	return nil
}

// Crossover converts the strategy section for the backtester. An unknown
// null policy is passed through so Validate reports it.
func (s StrategyConfig) Crossover() ema_crossover.Config {
	policy, err := indicator.ParseNullPolicy(s.NullPolicy)
	if err != nil {
		policy = indicator.NullPolicy(s.NullPolicy)
	}
	return ema_crossover.Config{
		FastSpan:             s.FastSpan,
		SlowSpan:             s.SlowSpan,
		NullPolicy:           policy,
		RequireFastBelowSlow: s.RequireFastBelowSlow,
	}
}

// Archive converts the storage section.
func (s StorageConfig) Archive() archive.Config {
	return archive.Config{
		Type: s.Type,
		Path: s.Path,
		S3: archive.S3Config{
			Bucket:    s.S3.Bucket,
			Endpoint:  s.S3.Endpoint,
			Region:    s.S3.Region,
			AccessKey: s.S3.AccessKey,
			SecretKey: s.S3.SecretKey,
			Prefix:    s.S3.Prefix,
		},
	}
}
