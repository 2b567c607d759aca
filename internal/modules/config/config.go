package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v2"
)

const (
	configFilePathENV = "CONFIG_FILE"
	configDirENV      = "CONFIG_DIR"
	tokenTelegramENV  = "TELEGRAM_TOKEN"
	chatTelegramENV   = "TELEGRAM_CHAT_ID"
	databaseDSN       = "DATABASE_DSN"
	redisAddrENV      = "REDIS_ADDR"
	okxKeyENV         = "OKX_API_KEY"
	okxSecretENV      = "OKX_API_SECRET"
	okxPassENV        = "OKX_PASSPHRASE"
	symbolsENV        = "SYMBOLS"
	logLevelENV       = "LOG_LEVEL"
)

const (
	PolicyTrustVenue = "trust_venue"
	PolicyTrustLocal = "trust_local"

	StorageMemory   = "memory"
	StoragePostgres = "postgres"

	SizeFixed = "fixed"
	SizeRisk  = "risk"

	AnchorLine  = "line"
	AnchorEntry = "entry"
)

// Config ...
type Config struct {
	Service struct {
		Name       string `yaml:"name" toml:"name"`
		HealthAddr string `yaml:"health_addr" toml:"health_addr"`
	} `yaml:"service" toml:"service"`

	Log struct {
		Level      string `yaml:"level" toml:"level"`
		File       string `yaml:"file" toml:"file"`
		MaxSizeMB  int    `yaml:"max_size_mb" toml:"max_size_mb"`
		MaxBackups int    `yaml:"max_backups" toml:"max_backups"`
		MaxAgeDays int    `yaml:"max_age_days" toml:"max_age_days"`
	} `yaml:"log" toml:"log"`

	Telegram struct {
		Token  string `yaml:"token" toml:"token"`
		ChatID int64  `yaml:"chat_id" toml:"chat_id"`
	} `yaml:"telegram" toml:"telegram"`

	DB      string `yaml:"db_dsn" toml:"db_dsn"`
	Storage struct {
		Driver string `yaml:"driver" toml:"driver"` // memory | postgres
	} `yaml:"storage" toml:"storage"`

	Redis struct {
		Addr     string        `yaml:"addr" toml:"addr"`
		Password string        `yaml:"password" toml:"password"`
		DB       int           `yaml:"db" toml:"db"`
		LeaseKey string        `yaml:"lease_key" toml:"lease_key"`
		LeaseTTL time.Duration `yaml:"lease_ttl" toml:"lease_ttl"`
	} `yaml:"redis" toml:"redis"`

	Tracing struct {
		Enabled bool   `yaml:"enabled" toml:"enabled"`
		Host    string `yaml:"host" toml:"host"`
		Port    int    `yaml:"port" toml:"port"`
	} `yaml:"tracing" toml:"tracing"`

	OKX struct {
		BaseURL    string `yaml:"base_url" toml:"base_url"`
		WSURL      string `yaml:"ws_url" toml:"ws_url"`
		APIKey     string `yaml:"api_key" toml:"api_key"`
		APISecret  string `yaml:"api_secret" toml:"api_secret"`
		Passphrase string `yaml:"passphrase" toml:"passphrase"`
		Simulated  bool   `yaml:"simulated" toml:"simulated"`
		TdMode     string `yaml:"td_mode" toml:"td_mode"`
	} `yaml:"okx" toml:"okx"`

	Strategy struct {
		Symbols              []string `yaml:"symbols" toml:"symbols"`
		Timeframe            string   `yaml:"timeframe" toml:"timeframe"`
		EMAPeriod            int      `yaml:"ema_period" toml:"ema_period"`
		SwingWindow          int      `yaml:"swing_window" toml:"swing_window"`
		LinePoints           int      `yaml:"line_points" toml:"line_points"`
		StaleAfter           int      `yaml:"stale_after" toml:"stale_after"`
		PullbackEnabled      bool     `yaml:"pullback_enabled" toml:"pullback_enabled"`
		PullbackTolerancePct float64  `yaml:"pullback_tolerance_pct" toml:"pullback_tolerance_pct"` // 0.3 => 0.3%
		StopPct              float64  `yaml:"stop_pct" toml:"stop_pct"`                             // 1.0 => 1%
		StopAnchor           string   `yaml:"stop_anchor" toml:"stop_anchor"`                       // line | entry
		RiskReward           float64  `yaml:"risk_reward" toml:"risk_reward"`
		HistoryCandles       int      `yaml:"history_candles" toml:"history_candles"`
	} `yaml:"strategy" toml:"strategy"`

	Trading struct {
		Leverage   float64 `yaml:"leverage" toml:"leverage"`
		SizeMode   string  `yaml:"size_mode" toml:"size_mode"` // fixed | risk
		Quantity   float64 `yaml:"quantity" toml:"quantity"`
		RiskAmount float64 `yaml:"risk_amount" toml:"risk_amount"`
		LotSize    float64 `yaml:"lot_size" toml:"lot_size"`
		MinSize    float64 `yaml:"min_size" toml:"min_size"`
	} `yaml:"trading" toml:"trading"`

	Scheduler struct {
		SignalInterval  time.Duration `yaml:"signal_interval" toml:"signal_interval"`
		MonitorInterval time.Duration `yaml:"monitor_interval" toml:"monitor_interval"`
		CallTimeout     time.Duration `yaml:"call_timeout" toml:"call_timeout"`
		Workers         int           `yaml:"workers" toml:"workers"`
		RecoveryPolicy  string        `yaml:"recovery_policy" toml:"recovery_policy"`
		PriceMaxAge     time.Duration `yaml:"price_max_age" toml:"price_max_age"`
		NotifyBuffer    int           `yaml:"notify_buffer" toml:"notify_buffer"`
	} `yaml:"scheduler" toml:"scheduler"`
}

func NewConfig() (*Config, error) {
	_ = godotenv.Load()

	configFileName := getenvDefault(configFilePathENV, "values_local.yaml")
	dir := getenvDefault(configDirENV, "configs")

	return Load(filepath.Join(dir, configFileName))
}

// Load reads a yaml or toml file on top of the defaults and applies env overrides.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		if _, err := toml.DecodeFile(path, cfg); err != nil {
			return nil, fmt.Errorf("config: decode %s: %w", path, err)
		}
	default:
		file, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("config: open %s: %w", path, err)
		}
		defer func() {
			_ = file.Close()
		}()
		if err := yaml.NewDecoder(file).Decode(cfg); err != nil {
			return nil, fmt.Errorf("config: decode %s: %w", path, err)
		}
	}

	applyEnv(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func Defaults() *Config {
	cfg := &Config{}
	cfg.Service.Name = "breakout_bot"
	cfg.Service.HealthAddr = ":8080"

	cfg.Log.Level = "info"
	cfg.Log.MaxSizeMB = 100
	cfg.Log.MaxBackups = 5
	cfg.Log.MaxAgeDays = 14

	cfg.Storage.Driver = StorageMemory

	cfg.Redis.LeaseKey = "breakout_bot:lease"
	cfg.Redis.LeaseTTL = 30 * time.Second

	cfg.Tracing.Host = "localhost"
	cfg.Tracing.Port = 6831

	cfg.OKX.BaseURL = "https://www.okx.com"
	cfg.OKX.WSURL = "wss://ws.okx.com:8443/ws/v5/public"
	cfg.OKX.TdMode = "cross"

	cfg.Strategy.Timeframe = "5m"
	cfg.Strategy.EMAPeriod = 200
	cfg.Strategy.SwingWindow = 5
	cfg.Strategy.LinePoints = 2
	cfg.Strategy.StaleAfter = 40
	cfg.Strategy.PullbackEnabled = true
	cfg.Strategy.PullbackTolerancePct = 0.3
	cfg.Strategy.StopPct = 1.0
	cfg.Strategy.StopAnchor = AnchorLine
	cfg.Strategy.RiskReward = 2.0
	cfg.Strategy.HistoryCandles = 300

	cfg.Trading.Leverage = 1
	cfg.Trading.SizeMode = SizeFixed
	cfg.Trading.Quantity = 1

	cfg.Scheduler.SignalInterval = 5 * time.Minute
	cfg.Scheduler.MonitorInterval = 10 * time.Second
	cfg.Scheduler.CallTimeout = 10 * time.Second
	cfg.Scheduler.Workers = 4
	cfg.Scheduler.RecoveryPolicy = PolicyTrustVenue
	cfg.Scheduler.PriceMaxAge = 15 * time.Second
	cfg.Scheduler.NotifyBuffer = 256
	return cfg
}

func (c *Config) Validate() error {
	var problems []string
	s := c.Strategy
	if len(s.Symbols) == 0 {
		problems = append(problems, "strategy.symbols is empty")
	}
	if s.EMAPeriod < 1 {
		problems = append(problems, "strategy.ema_period < 1")
	}
	if s.SwingWindow < 1 {
		problems = append(problems, "strategy.swing_window < 1")
	}
	if s.LinePoints < 2 {
		problems = append(problems, "strategy.line_points < 2")
	}
	if s.StaleAfter < 1 {
		problems = append(problems, "strategy.stale_after < 1")
	}
	if s.StopPct <= 0 || s.StopPct >= 100 {
		problems = append(problems, "strategy.stop_pct must be in (0,100)")
	}
	if s.RiskReward <= 0 {
		problems = append(problems, "strategy.risk_reward <= 0")
	}
	if s.StopAnchor != AnchorLine && s.StopAnchor != AnchorEntry {
		problems = append(problems, fmt.Sprintf("strategy.stop_anchor %q", s.StopAnchor))
	}
	switch c.Trading.SizeMode {
	case SizeFixed:
		if c.Trading.Quantity <= 0 {
			problems = append(problems, "trading.quantity <= 0")
		}
	case SizeRisk:
		if c.Trading.RiskAmount <= 0 {
			problems = append(problems, "trading.risk_amount <= 0")
		}
	default:
		problems = append(problems, fmt.Sprintf("trading.size_mode %q", c.Trading.SizeMode))
	}
	switch c.Scheduler.RecoveryPolicy {
	case PolicyTrustVenue, PolicyTrustLocal:
	default:
		problems = append(problems, fmt.Sprintf("scheduler.recovery_policy %q", c.Scheduler.RecoveryPolicy))
	}
	switch c.Storage.Driver {
	case StorageMemory:
	case StoragePostgres:
		if c.DB == "" {
			problems = append(problems, "db_dsn is required for postgres storage")
		}
	default:
		problems = append(problems, fmt.Sprintf("storage.driver %q", c.Storage.Driver))
	}
	if c.Scheduler.SignalInterval <= 0 || c.Scheduler.MonitorInterval <= 0 {
		problems = append(problems, "scheduler intervals must be positive")
	}
	if c.Scheduler.CallTimeout <= 0 {
		problems = append(problems, "scheduler.call_timeout must be positive")
	}
	if c.Redis.Addr != "" && c.Redis.LeaseTTL < 3*time.Millisecond {
		problems = append(problems, "redis.lease_ttl too small")
	}
	if c.Scheduler.Workers < 1 {
		c.Scheduler.Workers = 1
	}
	if len(problems) > 0 {
		return fmt.Errorf("config: %s", strings.Join(problems, "; "))
	}
	return nil
}

func applyEnv(cfg *Config) {
	cfg.Telegram.Token = getenvDefault(tokenTelegramENV, cfg.Telegram.Token)
	cfg.Telegram.ChatID = int64FromEnv(chatTelegramENV, cfg.Telegram.ChatID)
	cfg.DB = getenvDefault(databaseDSN, cfg.DB)
	cfg.Redis.Addr = getenvDefault(redisAddrENV, cfg.Redis.Addr)
	cfg.OKX.APIKey = getenvDefault(okxKeyENV, cfg.OKX.APIKey)
	cfg.OKX.APISecret = getenvDefault(okxSecretENV, cfg.OKX.APISecret)
	cfg.OKX.Passphrase = getenvDefault(okxPassENV, cfg.OKX.Passphrase)
	cfg.OKX.Simulated = boolFromEnv("OKX_SIMULATED", cfg.OKX.Simulated)
	cfg.Log.Level = getenvDefault(logLevelENV, cfg.Log.Level)
	if v := os.Getenv(symbolsENV); v != "" {
		cfg.Strategy.Symbols = strings.Split(v, ",")
	}
	cfg.Scheduler.Workers = intFromEnv("WORKERS", cfg.Scheduler.Workers)
	cfg.Scheduler.SignalInterval = durationFromEnv("SIGNAL_INTERVAL", cfg.Scheduler.SignalInterval)
	cfg.Scheduler.MonitorInterval = durationFromEnv("MONITOR_INTERVAL", cfg.Scheduler.MonitorInterval)
	cfg.Strategy.RiskReward = floatFromEnv("RISK_REWARD", cfg.Strategy.RiskReward)
	cfg.Scheduler.RecoveryPolicy = getenvDefault("RECOVERY_POLICY", cfg.Scheduler.RecoveryPolicy)
}

func intFromEnv(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func int64FromEnv(key string, def int64) int64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return def
}

func floatFromEnv(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func boolFromEnv(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		if v == "1" || v == "true" || v == "TRUE" {
			return true
		}
		if v == "0" || v == "false" || v == "FALSE" {
			return false
		}
	}
	return def
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func durationFromEnv(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}
