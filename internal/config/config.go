package config

import (
	"errors"
	"fmt"
	"net/url"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

// MaxCallTimeout bounds every outbound call timeout accepted by Validate.
const MaxCallTimeout = 10 * time.Second

// Config stores all configuration for the application.
// The values are read by viper from a config file or environment variables
// once at startup and are read-only afterwards.
type Config struct {
	Trading    TradingConfig
	Risk       RiskConfig
	Blacklists BlacklistConfig
	Checks     ChecksConfig
	MarketData MarketDataConfig `mapstructure:"market_data"`
	Audit      AuditConfig
	Venue      VenueConfig
	Database   DatabaseConfig
	Feed       FeedConfig
	Logging    LoggingConfig
	Metrics    MetricsConfig
}

// TradingConfig defines position sizing settings.
type TradingConfig struct {
	// PositionSizePct is the fraction of available balance used per trade, in (0, 1].
	PositionSizePct decimal.Decimal `mapstructure:"position_size_pct"`
	Leverage        int             `mapstructure:"leverage"`
}

// RiskConfig defines exit settings attached to every order.
type RiskConfig struct {
	StopLossPct   decimal.Decimal `mapstructure:"stop_loss_pct"`
	TakeProfitPct decimal.Decimal `mapstructure:"take_profit_pct"`
}

// BlacklistConfig lists blocked token and developer addresses.
type BlacklistConfig struct {
	Tokens     []string
	Developers []string
}

// ChecksConfig defines the thresholds of the market-data based security checks.
// A zero value disables the corresponding suspicious-volume heuristic.
type ChecksConfig struct {
	MinLiquidityUSD         decimal.Decimal `mapstructure:"min_liquidity_usd"`
	MinVolume24hUSD         decimal.Decimal `mapstructure:"min_volume_24h_usd"`
	MaxHourlyVolumeShare    decimal.Decimal `mapstructure:"max_hourly_volume_share"`
	MaxVolumeLiquidityRatio decimal.Decimal `mapstructure:"max_volume_liquidity_ratio"`
	MaxTopHolderPct         decimal.Decimal `mapstructure:"max_top_holder_pct"`
	MinHolders              int64           `mapstructure:"min_holders"`
}

// MarketDataConfig defines the market data provider settings.
type MarketDataConfig struct {
	Endpoint      string
	Chain         string
	Timeout       time.Duration
	RatePerSecond float64 `mapstructure:"rate_per_second"`
	Burst         int
}

// AuditConfig defines the audit provider settings.
type AuditConfig struct {
	Endpoint string
	MinScore decimal.Decimal `mapstructure:"min_score"`
	Timeout  time.Duration
}

// VenueConfig defines the trading venue settings.
type VenueConfig struct {
	// Name selects the venue client: "gmgn" or "paper".
	Name           string
	Endpoint       string
	APIKey         string          `mapstructure:"api_key"`
	BalanceTimeout time.Duration   `mapstructure:"balance_timeout"`
	OrderTimeout   time.Duration   `mapstructure:"order_timeout"`
	PaperBalance   decimal.Decimal `mapstructure:"paper_balance"`
}

// DatabaseConfig defines the database connection settings.
// The decision journal is disabled when Host is empty.
type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
}

// FeedConfig defines the websocket pair feed settings.
type FeedConfig struct {
	URL           string
	MaxConcurrent int `mapstructure:"max_concurrent"`
}

// LoggingConfig defines log output settings.
type LoggingConfig struct {
	Level      string
	Format     string
	File       string
	MaxSizeMB  int `mapstructure:"max_size_mb"`
	MaxBackups int `mapstructure:"max_backups"`
	MaxAgeDays int `mapstructure:"max_age_days"`
}

// MetricsConfig defines the Prometheus endpoint. Disabled when Addr is empty.
type MetricsConfig struct {
	Addr string
}

// Enabled reports whether the decision journal should be opened.
func (d DatabaseConfig) Enabled() bool {
	return d.Host != ""
}

// DSN returns the postgres connection string.
func (d DatabaseConfig) DSN() string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(d.User, d.Password),
		Host:   d.Host + ":" + strconv.Itoa(d.Port),
		Path:   "/" + d.DBName,
	}
	return u.String()
}

// LoadConfig reads configuration from file or environment variables.
func LoadConfig(path string) (config Config, err error) {
	v := viper.New()
	v.AddConfigPath(path)
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)
	for _, key := range requiredKeys {
		// Unmarshal only sees env-only values for bound keys.
		if err = v.BindEnv(key); err != nil {
			return
		}
	}

	err = v.ReadInConfig()
	if err != nil {
		return
	}

	// Gates that would silently disable themselves at their zero value must be explicit.
	missing := missingKeys(v)

	err = v.Unmarshal(&config, viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
		decimalHookFunc(),
	)))
	if err != nil {
		return
	}

	err = errors.Join(missing, config.Validate())
	return
}

// requiredKeys must be present in the file or the environment. An empty
// blacklist has to be written as an empty list.
var requiredKeys = []string{
	"trading.position_size_pct",
	"risk.stop_loss_pct",
	"risk.take_profit_pct",
	"blacklists.tokens",
	"blacklists.developers",
	"checks.min_liquidity_usd",
	"checks.min_volume_24h_usd",
	"checks.max_top_holder_pct",
	"audit.min_score",
}

func missingKeys(v *viper.Viper) error {
	var errs []error
	for _, key := range requiredKeys {
		if !v.IsSet(key) {
			errs = append(errs, fmt.Errorf("%s is required", key))
		}
	}
	return errors.Join(errs...)
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("trading.leverage", 1)
	v.SetDefault("market_data.endpoint", "https://api.dexscreener.com")
	v.SetDefault("market_data.timeout", "5s")
	v.SetDefault("market_data.rate_per_second", 5)
	v.SetDefault("market_data.burst", 5)
	v.SetDefault("audit.timeout", "5s")
	v.SetDefault("venue.name", "gmgn")
	v.SetDefault("venue.balance_timeout", "5s")
	v.SetDefault("venue.order_timeout", "10s")
	v.SetDefault("database.port", 5432)
	v.SetDefault("feed.max_concurrent", 4)
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.max_size_mb", 100)
	v.SetDefault("logging.max_backups", 5)
	v.SetDefault("logging.max_age_days", 30)
}

// Validate reports every structural problem in the configuration.
// A non-nil error is startup-fatal.
func (c Config) Validate() error {
	var errs []error
	add := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf(format, args...))
	}

	one := decimal.NewFromInt(1)
	if !c.Trading.PositionSizePct.IsPositive() || c.Trading.PositionSizePct.GreaterThan(one) {
		add("trading.position_size_pct must be in (0, 1], got %s", c.Trading.PositionSizePct)
	}
	if c.Trading.Leverage < 1 {
		add("trading.leverage must be >= 1, got %d", c.Trading.Leverage)
	}
	if c.Risk.StopLossPct.IsNegative() {
		add("risk.stop_loss_pct must not be negative")
	}
	if c.Risk.TakeProfitPct.IsNegative() {
		add("risk.take_profit_pct must not be negative")
	}

	if c.Checks.MinLiquidityUSD.IsNegative() || c.Checks.MinVolume24hUSD.IsNegative() {
		add("checks minimums must not be negative")
	}
	if c.Checks.MaxHourlyVolumeShare.IsNegative() || c.Checks.MaxHourlyVolumeShare.GreaterThan(one) {
		add("checks.max_hourly_volume_share must be in [0, 1]")
	}
	if c.Checks.MaxVolumeLiquidityRatio.IsNegative() {
		add("checks.max_volume_liquidity_ratio must not be negative")
	}
	if !c.Checks.MaxTopHolderPct.IsPositive() || c.Checks.MaxTopHolderPct.GreaterThan(decimal.NewFromInt(100)) {
		add("checks.max_top_holder_pct must be in (0, 100], got %s", c.Checks.MaxTopHolderPct)
	}
	if c.Checks.MinHolders < 0 {
		add("checks.min_holders must not be negative")
	}

	if c.MarketData.Endpoint == "" {
		add("market_data.endpoint is required")
	}
	if err := checkTimeout("market_data.timeout", c.MarketData.Timeout); err != nil {
		errs = append(errs, err)
	}
	if c.MarketData.RatePerSecond <= 0 || c.MarketData.Burst < 1 {
		add("market_data rate limit must be positive")
	}

	if c.Audit.Endpoint == "" {
		add("audit.endpoint is required")
	}
	if c.Audit.MinScore.IsNegative() {
		add("audit.min_score must not be negative")
	}
	if err := checkTimeout("audit.timeout", c.Audit.Timeout); err != nil {
		errs = append(errs, err)
	}

	switch c.Venue.Name {
	case "gmgn":
		if c.Venue.Endpoint == "" {
			add("venue.endpoint is required")
		}
		if c.Venue.APIKey == "" {
			add("venue.api_key is required")
		}
	case "paper":
		if c.Venue.PaperBalance.IsNegative() {
			add("venue.paper_balance must not be negative")
		}
	default:
		add("unknown venue: %q", c.Venue.Name)
	}
	if err := checkTimeout("venue.balance_timeout", c.Venue.BalanceTimeout); err != nil {
		errs = append(errs, err)
	}
	if err := checkTimeout("venue.order_timeout", c.Venue.OrderTimeout); err != nil {
		errs = append(errs, err)
	}

	if c.Feed.MaxConcurrent < 1 {
		add("feed.max_concurrent must be >= 1")
	}

	return errors.Join(errs...)
}

func checkTimeout(key string, d time.Duration) error {
	if d <= 0 || d > MaxCallTimeout {
		return fmt.Errorf("%s must be in (0, %s], got %s", key, MaxCallTimeout, d)
	}
	return nil
}

// decimalHookFunc decodes yaml numbers and env strings into decimal.Decimal.
func decimalHookFunc() mapstructure.DecodeHookFuncType {
	decimalType := reflect.TypeOf(decimal.Decimal{})
	return func(_ reflect.Type, t reflect.Type, data any) (any, error) {
		if t != decimalType {
			return data, nil
		}
		switch v := data.(type) {
		case decimal.Decimal:
			return v, nil
		case string:
			return decimal.NewFromString(strings.TrimSpace(v))
		case float64:
			return decimal.NewFromFloat(v), nil
		case float32:
			return decimal.NewFromFloat32(v), nil
		case int:
			return decimal.NewFromInt(int64(v)), nil
		case int64:
			return decimal.NewFromInt(v), nil
		case int32:
			return decimal.NewFromInt32(v), nil
		default:
			return nil, fmt.Errorf("cannot decode %T into decimal", data)
		}
	}
}
