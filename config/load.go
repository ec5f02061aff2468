package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"stock-exchange-go/infrastructure/logger"
)

// ErrInvalid 配置校验失败。
var ErrInvalid = errors.New("invalid config")

// AppConfig holds the main runtime configuration.
type AppConfig struct {
	Env     string                  `yaml:"env"`
	Logging logger.Config           `yaml:"logging"`
	Metrics MetricsConfig           `yaml:"metrics"`
	Feed    FeedConfig              `yaml:"feed"`
	Alerts  AlertConfig             `yaml:"alerts"`
	Market  MarketConfig            `yaml:"market"`
	Engine  EngineConfig            `yaml:"engine"`
	Risk    RiskConfig              `yaml:"risk"`
	Symbols map[string]SymbolConfig `yaml:"symbols"`
	Traders []TraderConfig          `yaml:"traders"`
}

type MetricsConfig struct {
	Addr      string `yaml:"addr"` // 为空时不启动 /metrics
	Namespace string `yaml:"namespace"`
}

type FeedConfig struct {
	Addr string `yaml:"addr"` // 为空时不启动行情推送
}

type AlertConfig struct {
	ThrottleSeconds int  `yaml:"throttleSeconds"`
	Console         bool `yaml:"console"` // 同时把告警打到 stderr
}

type MarketConfig struct {
	KlineSeconds int `yaml:"klineSeconds"`
}

type EngineConfig struct {
	TradeHistory int `yaml:"tradeHistory"`
}

// RiskConfig 全局风控参数；数量为 0 表示不限制，熔断阈值为 0 表示关闭。
type RiskConfig struct {
	SingleMax      int64           `yaml:"singleMax"`
	DailyMax       int64           `yaml:"dailyMax"`
	CircuitOneMin  decimal.Decimal `yaml:"circuitOneMin"`
	CircuitFiveMin decimal.Decimal `yaml:"circuitFiveMin"`
	OrderRate      float64         `yaml:"orderRate"`  // 每个账户每秒下单数，0 为不限
	OrderBurst     int             `yaml:"orderBurst"` // 允许的突发下单数
}

// SymbolConfig 上市股票的初始价格与下单约束。
type SymbolConfig struct {
	InitialPrice decimal.Decimal `yaml:"initialPrice"`
	TickSize     decimal.Decimal `yaml:"tickSize"`
	MinQty       int64           `yaml:"minQty"`
	MaxQty       int64           `yaml:"maxQty"`
	Halted       bool            `yaml:"halted"`
}

// TraderConfig 预置的交易员账户。
type TraderConfig struct {
	ID       string           `yaml:"id"`
	Name     string           `yaml:"name"`
	Balance  decimal.Decimal  `yaml:"balance"`
	Holdings map[string]int64 `yaml:"holdings"`
}

// Load reads YAML config from path and applies basic validation.
func Load(path string) (AppConfig, error) {
	var cfg AppConfig
	raw, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return cfg, fmt.Errorf("parse yaml: %w", err)
	}
	if err := Validate(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// LoadWithEnvOverrides loads config then overrides deployment fields from env vars if present.
func LoadWithEnvOverrides(path string) (AppConfig, error) {
	cfg, err := Load(path)
	if err != nil {
		return cfg, err
	}
	if v := os.Getenv("EXCHANGE_ENV"); v != "" {
		cfg.Env = v
	}
	if v := os.Getenv("EXCHANGE_METRICS_ADDR"); v != "" {
		cfg.Metrics.Addr = v
	}
	if v := os.Getenv("EXCHANGE_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	return cfg, Validate(cfg)
}

// Validate ensures required fields are present.
func Validate(cfg AppConfig) error {
	if cfg.Env == "" {
		return fmt.Errorf("%w: env is required", ErrInvalid)
	}
	if cfg.Risk.SingleMax < 0 || cfg.Risk.DailyMax < 0 {
		return fmt.Errorf("%w: risk limits must be >= 0", ErrInvalid)
	}
	if cfg.Risk.OrderRate < 0 || cfg.Risk.OrderBurst < 0 {
		return fmt.Errorf("%w: order rate must be >= 0", ErrInvalid)
	}
	if cfg.Risk.CircuitOneMin.IsNegative() || cfg.Risk.CircuitFiveMin.IsNegative() {
		return fmt.Errorf("%w: circuit thresholds must be >= 0", ErrInvalid)
	}
	if cfg.Engine.TradeHistory < 0 || cfg.Market.KlineSeconds < 0 || cfg.Alerts.ThrottleSeconds < 0 {
		return fmt.Errorf("%w: engine/market/alerts settings must be >= 0", ErrInvalid)
	}
	if len(cfg.Symbols) == 0 {
		return fmt.Errorf("%w: symbols config is required", ErrInvalid)
	}
	for sym, sc := range cfg.Symbols {
		if !sc.InitialPrice.IsPositive() {
			return fmt.Errorf("%w: symbol %s initialPrice must be > 0", ErrInvalid, sym)
		}
		if sc.TickSize.IsNegative() {
			return fmt.Errorf("%w: symbol %s tickSize must be >= 0", ErrInvalid, sym)
		}
		if sc.MinQty < 0 || sc.MaxQty < 0 {
			return fmt.Errorf("%w: symbol %s qty bounds must be >= 0", ErrInvalid, sym)
		}
		if sc.MaxQty > 0 && sc.MinQty > sc.MaxQty {
			return fmt.Errorf("%w: symbol %s minQty > maxQty", ErrInvalid, sym)
		}
	}
	seen := make(map[string]bool, len(cfg.Traders))
	for _, tc := range cfg.Traders {
		if tc.ID == "" {
			return fmt.Errorf("%w: trader id is required", ErrInvalid)
		}
		if seen[tc.ID] {
			return fmt.Errorf("%w: duplicate trader %s", ErrInvalid, tc.ID)
		}
		seen[tc.ID] = true
		if tc.Balance.IsNegative() {
			return fmt.Errorf("%w: trader %s balance must be >= 0", ErrInvalid, tc.ID)
		}
		for sym, qty := range tc.Holdings {
			if _, ok := cfg.Symbols[sym]; !ok {
				return fmt.Errorf("%w: trader %s holds unknown symbol %s", ErrInvalid, tc.ID, sym)
			}
			if qty < 0 {
				return fmt.Errorf("%w: trader %s holding %s must be >= 0", ErrInvalid, tc.ID, sym)
			}
		}
	}
	return nil
}
