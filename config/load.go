package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// AppConfig is the full runtime configuration, constructed once at startup
// and passed into component constructors. No component reads ambient state.
type AppConfig struct {
	Env          string           `yaml:"env"` // "live" or "paper"
	Symbol       string           `yaml:"symbol"`
	Timeframe    string           `yaml:"timeframe"`
	CycleSeconds int              `yaml:"cycleSeconds"`
	Gateway      GatewayConfig    `yaml:"gateway"`
	Model        ModelConfig      `yaml:"model"`
	Inventory    InventoryConfig  `yaml:"inventory"`
	Risk         RiskConfig       `yaml:"risk"`
	Volatility   VolatilityConfig `yaml:"volatility"`
	Order        OrderConfig      `yaml:"order"`
	Stream       StreamConfig     `yaml:"stream"`
	Logging      LoggingConfig    `yaml:"logging"`
	Metrics      MetricsConfig    `yaml:"metrics"`
	Alert        AlertConfig      `yaml:"alert"`
}

type GatewayConfig struct {
	APIKey    string `yaml:"apiKey"`
	APISecret string `yaml:"apiSecret"`
	BaseURL   string `yaml:"baseURL"`
}

type ModelConfig struct {
	Gamma           float64 `yaml:"gamma"`
	LambdaB         float64 `yaml:"lambdaB"`
	LambdaA         float64 `yaml:"lambdaA"`
	EstimateLambdas bool    `yaml:"estimateLambdas"` // seed lambdas from order-book depth at startup
}

type InventoryConfig struct {
	MaxInventoryPct float64 `yaml:"maxInventoryPct"`
	// Pointer so an explicit 0 (skew every imbalance) survives defaulting.
	SkewThreshold *float64 `yaml:"skewThreshold"`
}

type RiskConfig struct {
	CircuitBreakerPct float64 `yaml:"circuitBreakerPct"`
}

type VolatilityConfig struct {
	Method     string  `yaml:"method"` // "realized" or "bollinger"
	Window     int     `yaml:"window"`
	StdDevMult float64 `yaml:"stdDevMult"`
}

type OrderConfig struct {
	BaseSize       float64 `yaml:"baseSize"`
	PriceThreshold float64 `yaml:"priceThreshold"`
}

type StreamConfig struct {
	Enabled bool `yaml:"enabled"`
}

type LoggingConfig struct {
	Level      string `yaml:"level"`
	Format     string `yaml:"format"` // "json" or "console"
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"maxSizeMB"`
	MaxBackups int    `yaml:"maxBackups"`
	MaxAgeDays int    `yaml:"maxAgeDays"`
}

type MetricsConfig struct {
	Addr string `yaml:"addr"`
}

type AlertConfig struct {
	ThrottleSeconds int    `yaml:"throttleSeconds"`
	TelegramToken   string `yaml:"telegramToken"`
	TelegramChatID  int64  `yaml:"telegramChatID"`
}

// stableBases are quoted on a slower cycle with longer bars.
var stableBases = map[string]bool{"USDT": true, "USDC": true, "DAI": true, "BUSD": true}

// ApplyDefaults fills every zero-valued tunable with the stock parameters.
// Timeframe and cycle interval default by asset class: stablecoins quote on
// 5m bars every 300s, everything else on 1m bars every 60s.
func (c *AppConfig) ApplyDefaults() {
	if c.Env == "" {
		c.Env = "paper"
	}
	if c.Symbol == "" {
		c.Symbol = "USDT/USD"
	}
	base := strings.SplitN(c.Symbol, "/", 2)[0]
	if c.Timeframe == "" {
		if stableBases[base] {
			c.Timeframe = "5m"
		} else {
			c.Timeframe = "1m"
		}
	}
	if c.CycleSeconds == 0 {
		if stableBases[base] {
			c.CycleSeconds = 300
		} else {
			c.CycleSeconds = 60
		}
	}
	if c.Model.Gamma == 0 {
		c.Model.Gamma = 0.001
	}
	if c.Model.LambdaB == 0 {
		c.Model.LambdaB = 397.57
	}
	if c.Model.LambdaA == 0 {
		c.Model.LambdaA = 1442.46
	}
	if c.Inventory.MaxInventoryPct == 0 {
		c.Inventory.MaxInventoryPct = 0.35
	}
	if c.Inventory.SkewThreshold == nil {
		skew := 0.20
		c.Inventory.SkewThreshold = &skew
	}
	if c.Risk.CircuitBreakerPct == 0 {
		c.Risk.CircuitBreakerPct = 0.2
	}
	if c.Volatility.Method == "" {
		c.Volatility.Method = "realized"
	}
	if c.Volatility.Window == 0 {
		c.Volatility.Window = 20
	}
	if c.Volatility.StdDevMult == 0 {
		c.Volatility.StdDevMult = 2.0
	}
	if c.Order.BaseSize == 0 {
		c.Order.BaseSize = 5
	}
	if c.Order.PriceThreshold == 0 {
		c.Order.PriceThreshold = 0.0005
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "json"
	}
	if c.Alert.ThrottleSeconds == 0 {
		c.Alert.ThrottleSeconds = 300
	}
}

// Validate rejects misconfiguration eagerly; the process must refuse to
// start rather than divide by zero mid-cycle.
func Validate(cfg AppConfig) error {
	if cfg.Env != "live" && cfg.Env != "paper" {
		return fmt.Errorf("config: env must be \"live\" or \"paper\", got %q", cfg.Env)
	}
	if !strings.Contains(cfg.Symbol, "/") {
		return fmt.Errorf("config: symbol must be BASE/QUOTE, got %q", cfg.Symbol)
	}
	if cfg.Env == "live" && (cfg.Gateway.APIKey == "" || cfg.Gateway.APISecret == "") {
		return fmt.Errorf("config: gateway.apiKey/apiSecret required for live trading (or env overrides)")
	}
	if cfg.CycleSeconds <= 0 {
		return fmt.Errorf("config: cycleSeconds must be > 0")
	}
	if cfg.Model.Gamma <= 0 {
		return fmt.Errorf("config: model.gamma must be > 0")
	}
	if cfg.Model.LambdaB <= 0 || cfg.Model.LambdaA <= 0 {
		return fmt.Errorf("config: model arrival rates must be > 0")
	}
	if cfg.Inventory.MaxInventoryPct <= 0 {
		return fmt.Errorf("config: inventory.maxInventoryPct must be > 0")
	}
	if cfg.Inventory.SkewThreshold == nil {
		return fmt.Errorf("config: inventory.skewThreshold not set (call ApplyDefaults)")
	}
	if skew := *cfg.Inventory.SkewThreshold; skew < 0 || skew >= cfg.Inventory.MaxInventoryPct {
		return fmt.Errorf("config: require 0 <= skewThreshold < maxInventoryPct")
	}
	if cfg.Risk.CircuitBreakerPct <= 0 {
		return fmt.Errorf("config: risk.circuitBreakerPct must be > 0")
	}
	if m := cfg.Volatility.Method; m != "realized" && m != "bollinger" {
		return fmt.Errorf("config: volatility.method must be \"realized\" or \"bollinger\", got %q", m)
	}
	if cfg.Volatility.Window <= 0 {
		return fmt.Errorf("config: volatility.window must be > 0")
	}
	if cfg.Volatility.StdDevMult <= 0 {
		return fmt.Errorf("config: volatility.stdDevMult must be > 0")
	}
	if cfg.Order.BaseSize <= 0 {
		return fmt.Errorf("config: order.baseSize must be > 0")
	}
	if cfg.Order.PriceThreshold <= 0 {
		return fmt.Errorf("config: order.priceThreshold must be > 0")
	}
	return nil
}

func parse(path string) (AppConfig, error) {
	var cfg AppConfig
	raw, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("config: read: %w", err)
	}
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return cfg, fmt.Errorf("config: parse yaml: %w", err)
	}
	cfg.ApplyDefaults()
	return cfg, nil
}

// Load reads YAML config from path, applies defaults and validates.
func Load(path string) (AppConfig, error) {
	cfg, err := parse(path)
	if err != nil {
		return cfg, err
	}
	return cfg, Validate(cfg)
}

// LoadWithEnvOverrides loads config and overrides secrets from the
// environment when present. Validation runs after the overrides so a live
// deployment may keep credentials out of the file entirely.
func LoadWithEnvOverrides(path string) (AppConfig, error) {
	cfg, err := parse(path)
	if err != nil {
		return cfg, err
	}
	if v := os.Getenv("MM_KRAKEN_API_KEY"); v != "" {
		cfg.Gateway.APIKey = v
	}
	if v := os.Getenv("MM_KRAKEN_API_SECRET"); v != "" {
		cfg.Gateway.APISecret = v
	}
	if v := os.Getenv("MM_TELEGRAM_TOKEN"); v != "" {
		cfg.Alert.TelegramToken = v
	}
	return cfg, Validate(cfg)
}
