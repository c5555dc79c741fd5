package config

import (
	"os"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"
)

// Config holds the full application configuration.
type Config struct {
	Store   StoreConfig   `yaml:"store" mapstructure:"store"`
	Edgar   EdgarConfig   `yaml:"edgar" mapstructure:"edgar"`
	Scanner ScannerConfig `yaml:"scanner" mapstructure:"scanner"`
	Cache   CacheConfig   `yaml:"cache" mapstructure:"cache"`
	Rating  RatingConfig  `yaml:"rating" mapstructure:"rating"`
	Batch   BatchConfig   `yaml:"batch" mapstructure:"batch"`
	Server  ServerConfig  `yaml:"server" mapstructure:"server"`
	Log     LogConfig     `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the fundamentals store backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	SQLitePath  string `yaml:"sqlite_path" mapstructure:"sqlite_path"`
}

// EdgarConfig configures the filing-fetch collaborator.
type EdgarConfig struct {
	BaseURL     string  `yaml:"base_url" mapstructure:"base_url"`
	UserAgent   string  `yaml:"user_agent" mapstructure:"user_agent"`
	RatePerSec  float64 `yaml:"rate_per_sec" mapstructure:"rate_per_sec"`
	TimeoutSecs int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	MaxRetries  int     `yaml:"max_retries" mapstructure:"max_retries"`
}

// ScannerConfig configures the filing signal scanner.
type ScannerConfig struct {
	MaxFilings    int `yaml:"max_filings" mapstructure:"max_filings"`
	DeepScanYears int `yaml:"deep_scan_years" mapstructure:"deep_scan_years"`
	NarrowWindow  int `yaml:"narrow_window" mapstructure:"narrow_window"`
	WideWindow    int `yaml:"wide_window" mapstructure:"wide_window"`
	SnippetLen    int `yaml:"snippet_len" mapstructure:"snippet_len"`
}

// CacheConfig configures the signal cache.
type CacheConfig struct {
	Backend  string `yaml:"backend" mapstructure:"backend"`
	Dir      string `yaml:"dir" mapstructure:"dir"`
	RedisURL string `yaml:"redis_url" mapstructure:"redis_url"`
	TTLHours int    `yaml:"ttl_hours" mapstructure:"ttl_hours"`
}

// TTL returns the cache TTL as a duration.
func (c CacheConfig) TTL() time.Duration {
	return time.Duration(c.TTLHours) * time.Hour
}

// RatingConfig carries the empirically tuned bands of the rating engine.
// The values were calibrated against historical outcomes and are ported
// as-is; they are configuration constants, never re-derived at runtime.
type RatingConfig struct {
	RawMin float64 `yaml:"raw_min" mapstructure:"raw_min"`
	RawMax float64 `yaml:"raw_max" mapstructure:"raw_max"`

	// Tier thresholds on the normalized 0-100 scale, descending.
	TierElite  float64 `yaml:"tier_elite" mapstructure:"tier_elite"`
	TierStrong float64 `yaml:"tier_strong" mapstructure:"tier_strong"`
	TierSolid  float64 `yaml:"tier_solid" mapstructure:"tier_solid"`
	TierMixed  float64 `yaml:"tier_mixed" mapstructure:"tier_mixed"`
	TierWeak   float64 `yaml:"tier_weak" mapstructure:"tier_weak"`

	// Growth-stage intensity ramps: value at RampFloor maps to 0, at
	// RampFloor+RampSpan to 1, clamped.
	GrowthRampFloor float64 `yaml:"growth_ramp_floor" mapstructure:"growth_ramp_floor"`
	GrowthRampSpan  float64 `yaml:"growth_ramp_span" mapstructure:"growth_ramp_span"`
	BurnRampFloor   float64 `yaml:"burn_ramp_floor" mapstructure:"burn_ramp_floor"`
	BurnRampSpan    float64 `yaml:"burn_ramp_span" mapstructure:"burn_ramp_span"`
	CapexRampFloor  float64 `yaml:"capex_ramp_floor" mapstructure:"capex_ramp_floor"`
	CapexRampSpan   float64 `yaml:"capex_ramp_span" mapstructure:"capex_ramp_span"`

	// HypergrowthIntensity gates the hard penalty cap on softened rules.
	HypergrowthIntensity float64 `yaml:"hypergrowth_intensity" mapstructure:"hypergrowth_intensity"`
	HypergrowthFloor     float64 `yaml:"hypergrowth_floor" mapstructure:"hypergrowth_floor"`

	// Mid/large-cap gate for lifecycle softening.
	MidCapAssets    float64 `yaml:"mid_cap_assets" mapstructure:"mid_cap_assets"`
	MidCapMarketCap float64 `yaml:"mid_cap_market_cap" mapstructure:"mid_cap_market_cap"`

	// Growth-phase adjustment bonus points by revenue-growth band.
	GrowthBonus30 float64 `yaml:"growth_bonus_30" mapstructure:"growth_bonus_30"`
	GrowthBonus50 float64 `yaml:"growth_bonus_50" mapstructure:"growth_bonus_50"`
	GrowthBonus80 float64 `yaml:"growth_bonus_80" mapstructure:"growth_bonus_80"`

	// Small-cap biotech event-risk cap.
	EventDropPct    float64 `yaml:"event_drop_pct" mapstructure:"event_drop_pct"`
	EventWindowDays int     `yaml:"event_window_days" mapstructure:"event_window_days"`
	EventCeiling    float64 `yaml:"event_ceiling" mapstructure:"event_ceiling"`
	SmallCapLimit   float64 `yaml:"small_cap_limit" mapstructure:"small_cap_limit"`

	// Split detector tolerances.
	SplitShareRatio float64 `yaml:"split_share_ratio" mapstructure:"split_share_ratio"`
	SplitProductTol float64 `yaml:"split_product_tol" mapstructure:"split_product_tol"`
	SplitIncomeTol  float64 `yaml:"split_income_tol" mapstructure:"split_income_tol"`
}

// BatchConfig bounds concurrent entity processing.
type BatchConfig struct {
	MaxConcurrent int `yaml:"max_concurrent" mapstructure:"max_concurrent"`
}

// ServerConfig configures the HTTP serve command.
type ServerConfig struct {
	Port           int      `yaml:"port" mapstructure:"port"`
	AllowedOrigins []string `yaml:"allowed_origins" mapstructure:"allowed_origins"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from config.yaml and RATING_* environment
// variables, applying defaults for everything unset.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("RATING")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.sqlite_path", "rating.db")
	v.SetDefault("edgar.base_url", "https://www.sec.gov")
	v.SetDefault("edgar.user_agent", "Oakline Research ops@oakline-research.com")
	v.SetDefault("edgar.rate_per_sec", 8)
	v.SetDefault("edgar.timeout_secs", 30)
	v.SetDefault("edgar.max_retries", 3)
	v.SetDefault("scanner.max_filings", 8)
	v.SetDefault("scanner.deep_scan_years", 3)
	v.SetDefault("scanner.narrow_window", 60)
	v.SetDefault("scanner.wide_window", 1800)
	v.SetDefault("scanner.snippet_len", 240)
	v.SetDefault("cache.backend", "file")
	v.SetDefault("cache.dir", ".rating-cache")
	v.SetDefault("cache.ttl_hours", 72)
	v.SetDefault("batch.max_concurrent", 4)
	v.SetDefault("server.port", 8080)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	setRatingDefaults(v)

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// setRatingDefaults installs the tuned rating bands. See RatingConfig.
func setRatingDefaults(v *viper.Viper) {
	v.SetDefault("rating.raw_min", -60)
	v.SetDefault("rating.raw_max", 80)
	v.SetDefault("rating.tier_elite", 90)
	v.SetDefault("rating.tier_strong", 75)
	v.SetDefault("rating.tier_solid", 60)
	v.SetDefault("rating.tier_mixed", 45)
	v.SetDefault("rating.tier_weak", 30)
	v.SetDefault("rating.growth_ramp_floor", 20)
	v.SetDefault("rating.growth_ramp_span", 60)
	v.SetDefault("rating.burn_ramp_floor", 5)
	v.SetDefault("rating.burn_ramp_span", 35)
	v.SetDefault("rating.capex_ramp_floor", 10)
	v.SetDefault("rating.capex_ramp_span", 50)
	v.SetDefault("rating.hypergrowth_intensity", 0.6)
	v.SetDefault("rating.hypergrowth_floor", -4)
	v.SetDefault("rating.mid_cap_assets", 1_000_000_000)
	v.SetDefault("rating.mid_cap_market_cap", 2_000_000_000)
	v.SetDefault("rating.growth_bonus_30", 8)
	v.SetDefault("rating.growth_bonus_50", 10)
	v.SetDefault("rating.growth_bonus_80", 12)
	v.SetDefault("rating.event_drop_pct", 30)
	v.SetDefault("rating.event_window_days", 5)
	v.SetDefault("rating.event_ceiling", 45)
	v.SetDefault("rating.small_cap_limit", 2_000_000_000)
	v.SetDefault("rating.split_share_ratio", 2.0)
	v.SetDefault("rating.split_product_tol", 0.15)
	v.SetDefault("rating.split_income_tol", 0.3)
}

// ApplyTuningFile overlays a YAML tuning file on top of the loaded rating
// config. Used to ship recalibrated bands without a rebuild.
func ApplyTuningFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return eris.Wrapf(err, "config: read tuning file %s", path)
	}
	var overlay struct {
		Rating RatingConfig `yaml:"rating"`
	}
	overlay.Rating = cfg.Rating
	if err := yaml.Unmarshal(data, &overlay); err != nil {
		return eris.Wrapf(err, "config: parse tuning file %s", path)
	}
	cfg.Rating = overlay.Rating
	return nil
}

// InitLogger builds the global zap logger from LogConfig.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
