package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Default configuration values.
const (
	DefaultRPCEndpoint    = "https://api.mainnet-beta.solana.com"
	DefaultWSEndpoint     = "wss://api.mainnet-beta.solana.com"
	DefaultRefreshRateMs  = 2000
	DefaultPriceImpact    = 3.0
	DefaultPoolActivity   = 5
	DefaultTimeWindowSec  = 60
	DefaultSlippage       = 1.0
	DefaultLargeTradeSize = 1000

	DefaultPollBatchSize          = 10
	DefaultWalletBatchSize        = 5
	DefaultErrorBackoffMultiplier = 5
	DefaultFailureReportAfter     = 3
	DefaultSeenTTL                = time.Hour
	DefaultHousekeepingSchedule   = "@every 1m"
	DefaultAlertQueueSize         = 256
	DefaultRedisChannel           = "sandwich:alerts"
	DefaultMetricsAddr            = ":9090"
)

// Config holds all application configuration.
type Config struct {
	Detection DetectionConfig `yaml:"detection"`
	Solana    SolanaConfig    `yaml:"solana"`
	Wallet    WalletConfig    `yaml:"wallet"`
	Monitor   MonitorConfig   `yaml:"monitor"`
	Alerts    AlertsConfig    `yaml:"alerts"`
	Storage   StorageConfig   `yaml:"storage"`
	Metrics   MetricsConfig   `yaml:"metrics"`
	Log       LogConfig       `yaml:"log"`
}

// SolanaConfig configures the chain clients. The HTTP endpoint lives in DetectionConfig.
type SolanaConfig struct {
	WSEndpoint string        `yaml:"ws_endpoint" validate:"omitempty,url"`
	Timeout    time.Duration `yaml:"timeout"`
	MaxRetries int           `yaml:"max_retries" validate:"gte=0"`
}

// WalletConfig selects the watched wallet.
type WalletConfig struct {
	PublicKey string `yaml:"public_key"`
}

// MonitorConfig tunes the stream monitor loops.
type MonitorConfig struct {
	PollBatchSize          int           `yaml:"poll_batch_size" validate:"gt=0,lte=1000"`
	WalletBatchSize        int           `yaml:"wallet_batch_size" validate:"gt=0,lte=1000"`
	ErrorBackoffMultiplier int           `yaml:"error_backoff_multiplier" validate:"gte=1"`
	FailureReportAfter     int           `yaml:"failure_report_after" validate:"gte=1"`
	SeenTTL                time.Duration `yaml:"seen_ttl" validate:"gt=0"`
	HousekeepingSchedule   string        `yaml:"housekeeping_schedule" validate:"cron"`
	WatchedPools           []string      `yaml:"watched_pools"`
	ExtraDEXPrograms       []string      `yaml:"extra_dex_programs"`
}

// AlertsConfig configures alert delivery.
type AlertsConfig struct {
	QueueSize int            `yaml:"queue_size" validate:"gt=0"`
	Telegram  TelegramConfig `yaml:"telegram"`
	Redis     RedisConfig    `yaml:"redis"`
}

// TelegramConfig enables the Telegram sink when BotToken and ChatID are set.
type TelegramConfig struct {
	BotToken string `yaml:"bot_token"`
	ChatID   string `yaml:"chat_id"`
	MinLevel string `yaml:"min_level" validate:"omitempty,oneof=low medium high"`
}

// Enabled reports whether both credentials are present.
func (t TelegramConfig) Enabled() bool {
	return t.BotToken != "" && t.ChatID != ""
}

// RedisConfig enables the pub/sub sink when Addr is set.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db" validate:"gte=0"`
	Channel  string `yaml:"channel"`
}

// StorageConfig selects the cursor store. Empty PostgresDSN means in-memory.
type StorageConfig struct {
	PostgresDSN string `yaml:"postgres_dsn"`
}

// MetricsConfig configures the metrics endpoint.
type MetricsConfig struct {
	Addr string `yaml:"addr"`
}

// LogConfig configures logrus.
type LogConfig struct {
	Level  string `yaml:"level" validate:"omitempty,oneof=trace debug info warn warning error fatal panic"`
	Format string `yaml:"format" validate:"omitempty,oneof=text json"`
}

// DefaultDetectionConfig returns the detection settings used when none are configured.
func DefaultDetectionConfig() DetectionConfig {
	return DetectionConfig{
		RPCEndpoint:                 DefaultRPCEndpoint,
		RefreshRateMs:               DefaultRefreshRateMs,
		PriceImpactWarningThreshold: DefaultPriceImpact,
		PoolActivityThreshold:       DefaultPoolActivity,
		TimeWindowSeconds:           DefaultTimeWindowSec,
		SlippageThreshold:           DefaultSlippage,
		LargeTradeSize:              DefaultLargeTradeSize,
	}
}

// Default returns a fully populated configuration.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

// Load reads config from a YAML file, then applies environment variable overrides.
// A missing file is not an error; defaults and environment still apply.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if len(data) > 0 {
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parse config: %w", err)
			}
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	if v := os.Getenv("SANDWICH_RPC_ENDPOINT"); v != "" {
		c.Detection.RPCEndpoint = v
	}
	if v := os.Getenv("SANDWICH_WS_ENDPOINT"); v != "" {
		c.Solana.WSEndpoint = v
	}
	if v := os.Getenv("SANDWICH_WALLET"); v != "" {
		c.Wallet.PublicKey = v
	}
	if v := os.Getenv("SANDWICH_WATCHED_POOLS"); v != "" {
		c.Monitor.WatchedPools = splitList(v)
	}
	if v := os.Getenv("SANDWICH_REFRESH_RATE_MS"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return &ValidationError{Field: "SANDWICH_REFRESH_RATE_MS", Reason: fmt.Sprintf("not an integer: %q", v)}
		}
		c.Detection.RefreshRateMs = n
	}
	if v := os.Getenv("TELEGRAM_BOT_TOKEN"); v != "" {
		c.Alerts.Telegram.BotToken = v
	}
	if v := os.Getenv("TELEGRAM_CHAT_ID"); v != "" {
		c.Alerts.Telegram.ChatID = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		c.Alerts.Redis.Addr = v
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		c.Alerts.Redis.Password = v
	}
	if v := os.Getenv("POSTGRES_DSN"); v != "" {
		c.Storage.PostgresDSN = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	return nil
}

func (c *Config) applyDefaults() {
	d := DefaultDetectionConfig()
	if c.Detection.RPCEndpoint == "" {
		c.Detection.RPCEndpoint = d.RPCEndpoint
	}
	if c.Detection.RefreshRateMs == 0 {
		c.Detection.RefreshRateMs = d.RefreshRateMs
	}
	if c.Detection.PriceImpactWarningThreshold == 0 {
		c.Detection.PriceImpactWarningThreshold = d.PriceImpactWarningThreshold
	}
	if c.Detection.PoolActivityThreshold == 0 {
		c.Detection.PoolActivityThreshold = d.PoolActivityThreshold
	}
	if c.Detection.TimeWindowSeconds == 0 {
		c.Detection.TimeWindowSeconds = d.TimeWindowSeconds
	}
	if c.Detection.SlippageThreshold == 0 {
		c.Detection.SlippageThreshold = d.SlippageThreshold
	}
	if c.Detection.LargeTradeSize == 0 {
		c.Detection.LargeTradeSize = d.LargeTradeSize
	}

	if c.Solana.WSEndpoint == "" {
		c.Solana.WSEndpoint = deriveWSEndpoint(c.Detection.RPCEndpoint)
	}
	if c.Solana.Timeout == 0 {
		c.Solana.Timeout = 30 * time.Second
	}
	if c.Solana.MaxRetries == 0 {
		c.Solana.MaxRetries = 3
	}

	if c.Monitor.PollBatchSize == 0 {
		c.Monitor.PollBatchSize = DefaultPollBatchSize
	}
	if c.Monitor.WalletBatchSize == 0 {
		c.Monitor.WalletBatchSize = DefaultWalletBatchSize
	}
	if c.Monitor.ErrorBackoffMultiplier == 0 {
		c.Monitor.ErrorBackoffMultiplier = DefaultErrorBackoffMultiplier
	}
	if c.Monitor.FailureReportAfter == 0 {
		c.Monitor.FailureReportAfter = DefaultFailureReportAfter
	}
	if c.Monitor.SeenTTL == 0 {
		c.Monitor.SeenTTL = DefaultSeenTTL
	}
	// The seen-set must outlive the activity window, otherwise a re-polled
	// signature could be counted twice in the same window.
	if window := time.Duration(c.Detection.TimeWindowSeconds) * time.Second; c.Monitor.SeenTTL < window {
		c.Monitor.SeenTTL = window
	}
	if c.Monitor.HousekeepingSchedule == "" {
		c.Monitor.HousekeepingSchedule = DefaultHousekeepingSchedule
	}

	if c.Alerts.QueueSize == 0 {
		c.Alerts.QueueSize = DefaultAlertQueueSize
	}
	if c.Alerts.Telegram.MinLevel == "" {
		c.Alerts.Telegram.MinLevel = "medium"
	}
	if c.Alerts.Redis.Channel == "" {
		c.Alerts.Redis.Channel = DefaultRedisChannel
	}

	if c.Metrics.Addr == "" {
		c.Metrics.Addr = DefaultMetricsAddr
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}
}

// Validate checks every section against its constraints.
func (c *Config) Validate() error {
	if err := c.Detection.Validate(); err != nil {
		return err
	}
	if err := validateStruct(c); err != nil {
		return err
	}
	return nil
}

// RefreshRate returns the polling interval as a duration.
func (d DetectionConfig) RefreshRate() time.Duration {
	return time.Duration(d.RefreshRateMs) * time.Millisecond
}

// TimeWindow returns the activity window as a duration.
func (d DetectionConfig) TimeWindow() time.Duration {
	return time.Duration(d.TimeWindowSeconds) * time.Second
}

// deriveWSEndpoint maps http(s) RPC endpoints to their ws(s) counterpart.
func deriveWSEndpoint(rpc string) string {
	switch {
	case strings.HasPrefix(rpc, "https://"):
		return "wss://" + strings.TrimPrefix(rpc, "https://")
	case strings.HasPrefix(rpc, "http://"):
		return "ws://" + strings.TrimPrefix(rpc, "http://")
	default:
		return DefaultWSEndpoint
	}
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
