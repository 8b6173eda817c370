package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all application configuration.
type Config struct {
	Telegram struct {
		BotToken string `yaml:"bot_token"`
		ChatID   string `yaml:"chat_id"`
	} `yaml:"telegram"`
	DataSource struct {
		Provider  string `yaml:"provider"` // yahoo, rest or mock
		BaseURL   string `yaml:"base_url"`
		APIKey    string `yaml:"api_key"`
		Timeframe string `yaml:"timeframe"`
		BarLimit  int    `yaml:"bar_limit"`
	} `yaml:"data_source"`
	Symbols  []string `yaml:"symbols"`
	Analysis struct {
		SwingLookback       int     `yaml:"swing_lookback"`
		OrderBlockLookback  int     `yaml:"order_block_lookback"`
		FVGMinGap           float64 `yaml:"fvg_min_gap"`
		FVGUseATR           *bool   `yaml:"fvg_use_atr"`
		LiquidityTolerance  float64 `yaml:"liquidity_tolerance_pct"`
		LiquidityMinTouches int     `yaml:"liquidity_min_touches"`
		AlignBoost          float64 `yaml:"align_boost"`
		CounterDamp         float64 `yaml:"counter_damp"`
		Workers             int     `yaml:"workers"`
	} `yaml:"analysis"`
	Retrain struct {
		Threshold  float64 `yaml:"threshold"`
		MinSamples int     `yaml:"min_samples"`
		Window     int     `yaml:"window"` // verified predictions considered
		Decay      float64 `yaml:"decay"`
	} `yaml:"retrain"`
	Verify struct {
		Horizon       time.Duration `yaml:"horizon"`
		MoveThreshold float64       `yaml:"move_threshold_pct"`
		BatchSize     int           `yaml:"batch_size"`
	} `yaml:"verify"`
	Weights struct {
		File string `yaml:"file"`
	} `yaml:"weights"`
	Schedule struct {
		AnalysisCron string `yaml:"analysis_cron"`
		VerifyCron   string `yaml:"verify_cron"`
	} `yaml:"schedule"`
	Database struct {
		Driver      string `yaml:"driver"` // sqlite, postgres or none
		SQLitePath  string `yaml:"sqlite_path"`
		PostgresURL string `yaml:"postgres_url"`
	} `yaml:"database"`
	Redis struct {
		Addr      string `yaml:"addr"`
		Password  string `yaml:"password"`
		DB        int    `yaml:"db"`
		KeyPrefix string `yaml:"key_prefix"`
		Channel   string `yaml:"channel"`
	} `yaml:"redis"`
	API struct {
		Addr string `yaml:"addr"`
	} `yaml:"api"`
	Log struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"` // json or console
	} `yaml:"log"`
	Proxy string `yaml:"proxy"`
}

// UseATR reports whether FVG sizing follows ATR. Defaults to true.
func (c *Config) UseATR() bool {
	return c.Analysis.FVGUseATR == nil || *c.Analysis.FVGUseATR
}

// Load reads config from a YAML file, loads .env files into the environment
// (existing variables win), then applies environment overrides and defaults.
// With no envFiles, ".env" in the working directory is tried.
func Load(path string, envFiles ...string) (*Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("load %s: %w", f, err)
		}
	}

	cfg := &Config{}

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	cfg.applyEnv()
	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("TELEGRAM_BOT_TOKEN"); v != "" {
		c.Telegram.BotToken = v
	}
	if v := os.Getenv("TELEGRAM_CHAT_ID"); v != "" {
		c.Telegram.ChatID = v
	}
	if v := os.Getenv("DATA_PROVIDER"); v != "" {
		c.DataSource.Provider = v
	}
	if v := os.Getenv("DATA_BASE_URL"); v != "" {
		c.DataSource.BaseURL = v
	}
	if v := os.Getenv("DATA_API_KEY"); v != "" {
		c.DataSource.APIKey = v
	}
	if v := os.Getenv("DATA_TIMEFRAME"); v != "" {
		c.DataSource.Timeframe = v
	}
	if v := os.Getenv("SYMBOLS"); v != "" {
		c.Symbols = splitList(v)
	}
	if v := os.Getenv("HTTPS_PROXY"); v != "" {
		c.Proxy = v
	}
	if v := os.Getenv("CRON_ANALYSIS"); v != "" {
		c.Schedule.AnalysisCron = v
	}
	if v := os.Getenv("CRON_VERIFY"); v != "" {
		c.Schedule.VerifyCron = v
	}
	if v := os.Getenv("WEIGHTS_FILE"); v != "" {
		c.Weights.File = v
	}
	if v := os.Getenv("SQLITE_PATH"); v != "" {
		c.Database.SQLitePath = v
	}
	if v := os.Getenv("DATABASE_URL"); v != "" {
		c.Database.PostgresURL = v
		if c.Database.Driver == "" {
			c.Database.Driver = "postgres"
		}
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		c.Redis.Addr = v
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		c.Redis.Password = v
	}
	if v := os.Getenv("API_ADDR"); v != "" {
		c.API.Addr = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	if v := os.Getenv("RETRAIN_THRESHOLD"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			c.Retrain.Threshold = f
		}
	}
	if v := os.Getenv("RETRAIN_MIN_SAMPLES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Retrain.MinSamples = n
		}
	}
	if v := os.Getenv("SWING_LOOKBACK"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Analysis.SwingLookback = n
		}
	}
}

func (c *Config) applyDefaults() {
	if c.DataSource.Provider == "" {
		c.DataSource.Provider = "yahoo"
	}
	if c.DataSource.Timeframe == "" {
		c.DataSource.Timeframe = "1d"
	}
	if c.DataSource.BarLimit == 0 {
		c.DataSource.BarLimit = 300
	}
	if len(c.Symbols) == 0 {
		c.Symbols = []string{"SPX500"}
	}
	if c.Analysis.SwingLookback == 0 {
		c.Analysis.SwingLookback = 5
	}
	if c.Analysis.OrderBlockLookback == 0 {
		c.Analysis.OrderBlockLookback = 100
	}
	if c.Analysis.LiquidityTolerance == 0 {
		c.Analysis.LiquidityTolerance = 0.05
	}
	if c.Analysis.LiquidityMinTouches == 0 {
		c.Analysis.LiquidityMinTouches = 2
	}
	if c.Analysis.AlignBoost == 0 {
		c.Analysis.AlignBoost = 1.2
	}
	if c.Analysis.CounterDamp == 0 {
		c.Analysis.CounterDamp = 0.8
	}
	if c.Analysis.Workers == 0 {
		c.Analysis.Workers = 4
	}
	if c.Retrain.Threshold == 0 {
		c.Retrain.Threshold = 0.70
	}
	if c.Retrain.MinSamples == 0 {
		c.Retrain.MinSamples = 10
	}
	if c.Retrain.Window == 0 {
		c.Retrain.Window = 100
	}
	if c.Retrain.Decay == 0 {
		c.Retrain.Decay = 0.95
	}
	if c.Verify.Horizon == 0 {
		c.Verify.Horizon = 24 * time.Hour
	}
	if c.Verify.MoveThreshold == 0 {
		c.Verify.MoveThreshold = 0.2
	}
	if c.Verify.BatchSize == 0 {
		c.Verify.BatchSize = 200
	}
	if c.Weights.File == "" {
		c.Weights.File = "data/rule_weights.json"
	}
	if c.Schedule.AnalysisCron == "" {
		c.Schedule.AnalysisCron = "0 5 * * * *"
	}
	if c.Schedule.VerifyCron == "" {
		c.Schedule.VerifyCron = "0 30 * * * *"
	}
	if c.Database.Driver == "" {
		c.Database.Driver = "sqlite"
	}
	if c.Database.SQLitePath == "" {
		c.Database.SQLitePath = "data/bias_sentinel.db"
	}
	if c.Redis.KeyPrefix == "" {
		c.Redis.KeyPrefix = "bias:latest:"
	}
	if c.Redis.Channel == "" {
		c.Redis.Channel = "bias:updates"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "console"
	}
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	if len(c.Symbols) == 0 {
		return fmt.Errorf("symbols must not be empty")
	}
	switch c.DataSource.Provider {
	case "yahoo", "mock":
	case "rest":
		if c.DataSource.BaseURL == "" {
			return fmt.Errorf("data_source.base_url is required for the rest provider")
		}
	default:
		return fmt.Errorf("data_source.provider %q is not supported", c.DataSource.Provider)
	}
	if (c.Telegram.BotToken == "") != (c.Telegram.ChatID == "") {
		return fmt.Errorf("telegram.bot_token and telegram.chat_id must be set together")
	}
	if c.Analysis.SwingLookback < 1 {
		return fmt.Errorf("analysis.swing_lookback must be positive")
	}
	if c.Analysis.LiquidityTolerance < 0 {
		return fmt.Errorf("analysis.liquidity_tolerance_pct must not be negative")
	}
	if c.Analysis.FVGMinGap < 0 {
		return fmt.Errorf("analysis.fvg_min_gap must not be negative")
	}
	if c.Analysis.LiquidityMinTouches < 1 {
		return fmt.Errorf("analysis.liquidity_min_touches must be at least 1")
	}
	if c.Analysis.Workers < 1 {
		return fmt.Errorf("analysis.workers must be at least 1")
	}
	if c.Retrain.Threshold <= 0 || c.Retrain.Threshold >= 1 {
		return fmt.Errorf("retrain.threshold must be in (0, 1)")
	}
	if c.Retrain.MinSamples < 1 {
		return fmt.Errorf("retrain.min_samples must be positive")
	}
	if c.Retrain.Decay <= 0 || c.Retrain.Decay > 1 {
		return fmt.Errorf("retrain.decay must be in (0, 1]")
	}
	switch c.Database.Driver {
	case "sqlite", "none":
	case "postgres":
		if c.Database.PostgresURL == "" {
			return fmt.Errorf("database.postgres_url is required for the postgres driver")
		}
	default:
		return fmt.Errorf("database.driver %q is not supported", c.Database.Driver)
	}
	return nil
}

func splitList(v string) []string {
	var out []string
	for _, s := range strings.Split(v, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, strings.ToUpper(s))
		}
	}
	return out
}
