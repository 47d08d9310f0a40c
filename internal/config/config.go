// Package config loads the trading and backtest settings from a YAML file,
// an optional .env file and TRADEBOT_* environment variables, in that order.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"tradebot/internal/indicator"
	"tradebot/internal/risk"
	"tradebot/internal/scoring"
	"tradebot/internal/sizing"
	"tradebot/internal/strategy"
	"tradebot/internal/trader"
	"tradebot/types"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

var ErrInvalidConfig = errors.New("invalid config")

const (
	PresetFourVote = "four_vote"
	PresetTwoVote  = "two_vote"

	SourceCSV      = "csv"
	SourceDatabase = "db"

	dateLayout = "2006-01-02"
)

type App struct {
	LogLevel    string `yaml:"log_level" env:"TRADEBOT_LOG_LEVEL"`
	MetricsAddr string `yaml:"metrics_addr" env:"TRADEBOT_METRICS_ADDR"`
}

// Rule is the exchange's order size rule for one base currency.
type Rule struct {
	BuyPrecision   int32   `yaml:"buy_precision"`
	SellPrecision  int32   `yaml:"sell_precision"`
	MinTradeAmount float64 `yaml:"min_trade_amount"`
}

type Trading struct {
	BuyFraction         float64 `yaml:"buy_fraction" env:"TRADEBOT_BUY_FRACTION"`
	SellFraction        float64 `yaml:"sell_fraction" env:"TRADEBOT_SELL_FRACTION"`
	StopLossPct         float64 `yaml:"stop_loss_pct" env:"TRADEBOT_STOP_LOSS_PCT"`
	TakeProfitPct       float64 `yaml:"take_profit_pct" env:"TRADEBOT_TAKE_PROFIT_PCT"`
	DrawdownLiquidation float64 `yaml:"drawdown_liquidation" env:"TRADEBOT_DRAWDOWN_LIQUIDATION"`
}

// Scoring picks a vote table preset. Votes, when set, replaces the preset's table.
type Scoring struct {
	Preset        string                          `yaml:"preset" env:"TRADEBOT_SCORING_PRESET"`
	MinSamples    int                             `yaml:"min_samples"`
	RSIOverbought float64                         `yaml:"rsi_overbought"`
	RSIOversold   float64                         `yaml:"rsi_oversold"`
	BuyAbove      float64                         `yaml:"buy_above" env:"TRADEBOT_BUY_ABOVE"`
	SellBelow     float64                         `yaml:"sell_below" env:"TRADEBOT_SELL_BELOW"`
	Votes         map[scoring.Vote]scoring.Weight `yaml:"votes"`
}

type Live struct {
	CollectFor    time.Duration `yaml:"collect_for" env:"TRADEBOT_COLLECT_FOR"`
	SleepFor      time.Duration `yaml:"sleep_for" env:"TRADEBOT_SLEEP_FOR"`
	FeedURL       string        `yaml:"feed_url" env:"TRADEBOT_FEED_URL"`
	RetryAttempts int           `yaml:"retry_attempts"`
	RetryDelay    time.Duration `yaml:"retry_delay"`
	// PaperCash seeds the paper account in the quote currency.
	PaperCash float64 `yaml:"paper_cash" env:"TRADEBOT_PAPER_CASH"`
}

type Backtest struct {
	Source       string  `yaml:"source" env:"TRADEBOT_BACKTEST_SOURCE"`
	DataDir      string  `yaml:"data_dir" env:"TRADEBOT_DATA_DIR"`
	Interval     string  `yaml:"interval" env:"TRADEBOT_BACKTEST_INTERVAL"`
	Start        string  `yaml:"start" env:"TRADEBOT_BACKTEST_START"`
	End          string  `yaml:"end" env:"TRADEBOT_BACKTEST_END"`
	InitialCash  float64 `yaml:"initial_cash" env:"TRADEBOT_INITIAL_CASH"`
	TradesFile   string  `yaml:"trades_file" env:"TRADEBOT_TRADES_FILE"`
	ShowProgress bool    `yaml:"show_progress"`
}

type Journal struct {
	Path         string   `yaml:"path" env:"TRADEBOT_JOURNAL_PATH"`
	KafkaBrokers []string `yaml:"kafka_brokers" env:"KAFKA_BROKERS" envSeparator:","`
	KafkaTopic   string   `yaml:"kafka_topic" env:"KAFKA_TOPIC"`
}

type Config struct {
	App           App              `yaml:"app"`
	QuoteCurrency string           `yaml:"quote_currency" env:"TRADEBOT_QUOTE_CURRENCY"`
	Instruments   []string         `yaml:"instruments" env:"TRADEBOT_INSTRUMENTS" envSeparator:","`
	Rules         map[string]Rule  `yaml:"rules"`
	Trading       Trading          `yaml:"trading"`
	Scoring       Scoring          `yaml:"scoring"`
	Indicators    indicator.Config `yaml:"indicators"`
	Live          Live             `yaml:"live"`
	Backtest      Backtest         `yaml:"backtest"`
	Journal       Journal          `yaml:"journal"`
	DatabaseURL   string           `yaml:"database_url" env:"DATABASE_URL"`
}

// DefaultRules are the exchange size rules of the supported base currencies.
func DefaultRules() map[string]Rule {
	return map[string]Rule{
		"BTC":  {BuyPrecision: 2, SellPrecision: 4, MinTradeAmount: 0.0001},
		"ETH":  {BuyPrecision: 2, SellPrecision: 6, MinTradeAmount: 0.0001},
		"LTC":  {BuyPrecision: 2, SellPrecision: 2, MinTradeAmount: 0.01},
		"BCH":  {BuyPrecision: 2, SellPrecision: 2, MinTradeAmount: 0.01},
		"ADA":  {BuyPrecision: 2, SellPrecision: 6, MinTradeAmount: 10},
		"LINK": {BuyPrecision: 2, SellPrecision: 1, MinTradeAmount: 0.1},
		"DOT":  {BuyPrecision: 2, SellPrecision: 1, MinTradeAmount: 0.1},
		"DOGE": {BuyPrecision: 2, SellPrecision: 6, MinTradeAmount: 10},
		"UNI":  {BuyPrecision: 2, SellPrecision: 1, MinTradeAmount: 0.1},
		"SOL":  {BuyPrecision: 2, SellPrecision: 3, MinTradeAmount: 0.001},
		"SHIB": {BuyPrecision: 2, SellPrecision: 6, MinTradeAmount: 1000},
		"AAVE": {BuyPrecision: 2, SellPrecision: 2, MinTradeAmount: 0.01},
		"ALGO": {BuyPrecision: 2, SellPrecision: 6, MinTradeAmount: 10},
		"ATOM": {BuyPrecision: 2, SellPrecision: 6, MinTradeAmount: 1},
		"FIL":  {BuyPrecision: 2, SellPrecision: 1, MinTradeAmount: 0.1},
		"XTZ":  {BuyPrecision: 2, SellPrecision: 6, MinTradeAmount: 1},
	}
}

func Default() Config {
	live := trader.DefaultConfig()
	four := scoring.FourVote()
	return Config{
		App:           App{LogLevel: "info", MetricsAddr: ":9090"},
		QuoteCurrency: live.QuoteCurrency,
		Instruments:   []string{"BTC-GBP", "ETH-GBP"},
		Rules:         DefaultRules(),
		Trading: Trading{
			BuyFraction:         0.3,
			SellFraction:        0.3,
			StopLossPct:         0.05,
			TakeProfitPct:       0.10,
			DrawdownLiquidation: 0.1,
		},
		Scoring: Scoring{
			Preset:        PresetFourVote,
			MinSamples:    four.MinSamples,
			RSIOverbought: four.RSIOverbought,
			RSIOversold:   four.RSIOversold,
			BuyAbove:      four.BuyAbove,
			SellBelow:     four.SellBelow,
		},
		Indicators: indicator.DefaultConfig(),
		Live: Live{
			CollectFor:    live.CollectFor,
			SleepFor:      live.SleepFor,
			RetryAttempts: 5,
			RetryDelay:    5 * time.Second,
			PaperCash:     1000,
		},
		Backtest: Backtest{
			Source:      SourceCSV,
			DataDir:     ".",
			Interval:    string(types.Day),
			Start:       "2021-01-01",
			InitialCash: 50000,
		},
		Journal: Journal{
			Path:       "orders.jsonl",
			KafkaTopic: "tradebot.orders",
		},
	}
}

// LoadDotEnv exports the variables of the given .env files. Missing files are
// skipped.
func LoadDotEnv(paths ...string) error {
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("load %s: %w", p, err)
		}
	}
	return nil
}

// Load starts from Default, overlays the YAML file at path (skipped when path
// is empty) and then the environment.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		file, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		if err := yaml.NewDecoder(file).Decode(&cfg); err != nil {
			return nil, fmt.Errorf("decode yaml: %w", err)
		}
	}
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	if len(c.Instruments) == 0 {
		return fmt.Errorf("%w: no instruments", ErrInvalidConfig)
	}
	if _, err := c.InstrumentList(); err != nil {
		return err
	}
	sc, err := c.StrategyConfig()
	if err != nil {
		return err
	}
	if err := sc.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if c.Trading.DrawdownLiquidation < 0 || c.Trading.DrawdownLiquidation >= 1 {
		return fmt.Errorf("%w: drawdown liquidation %v not in [0, 1)", ErrInvalidConfig, c.Trading.DrawdownLiquidation)
	}
	if c.Live.CollectFor <= 0 || c.Live.SleepFor < 0 {
		return fmt.Errorf("%w: collect_for must be positive and sleep_for not negative", ErrInvalidConfig)
	}
	if c.Live.RetryAttempts < 1 {
		return fmt.Errorf("%w: retry_attempts must be at least 1", ErrInvalidConfig)
	}
	if c.Backtest.InitialCash <= 0 {
		return fmt.Errorf("%w: initial_cash must be positive", ErrInvalidConfig)
	}
	switch c.Backtest.Source {
	case SourceCSV, SourceDatabase:
	default:
		return fmt.Errorf("%w: unknown backtest source %q", ErrInvalidConfig, c.Backtest.Source)
	}
	if _, err := types.ParseInterval(c.Backtest.Interval); err != nil {
		return fmt.Errorf("%w: backtest interval: %w", ErrInvalidConfig, err)
	}
	if _, _, err := c.BacktestRange(); err != nil {
		return err
	}
	return nil
}

func (c *Config) BacktestInterval() (types.Interval, error) {
	return types.ParseInterval(c.Backtest.Interval)
}

// InstrumentList resolves the configured symbols against the size rules. A
// symbol without a quote currency uses QuoteCurrency.
func (c *Config) InstrumentList() ([]types.Instrument, error) {
	out := make([]types.Instrument, 0, len(c.Instruments))
	seen := make(map[string]bool, len(c.Instruments))
	for _, symbol := range c.Instruments {
		symbol = strings.TrimSpace(symbol)
		if !strings.Contains(symbol, "-") {
			symbol = symbol + "-" + c.QuoteCurrency
		}
		base, _, err := types.ParseSymbol(symbol)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
		}
		rule, ok := c.Rules[base]
		if !ok {
			return nil, fmt.Errorf("%w: no size rule for %s", ErrInvalidConfig, base)
		}
		inst, err := types.NewInstrument(symbol, rule.BuyPrecision, rule.SellPrecision, decimal.NewFromFloat(rule.MinTradeAmount))
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
		}
		if seen[inst.Symbol] {
			return nil, fmt.Errorf("%w: duplicate instrument %s", ErrInvalidConfig, inst.Symbol)
		}
		seen[inst.Symbol] = true
		out = append(out, inst)
	}
	return out, nil
}

func (c *Config) ScoringConfig() (scoring.Config, error) {
	var cfg scoring.Config
	switch c.Scoring.Preset {
	case PresetFourVote, "":
		cfg = scoring.FourVote()
	case PresetTwoVote:
		cfg = scoring.TwoVote()
	default:
		return scoring.Config{}, fmt.Errorf("%w: unknown scoring preset %q", ErrInvalidConfig, c.Scoring.Preset)
	}
	cfg.MinSamples = c.Scoring.MinSamples
	cfg.RSIOverbought = c.Scoring.RSIOverbought
	cfg.RSIOversold = c.Scoring.RSIOversold
	cfg.BuyAbove = c.Scoring.BuyAbove
	cfg.SellBelow = c.Scoring.SellBelow
	if len(c.Scoring.Votes) > 0 {
		cfg.Votes = c.Scoring.Votes
	}
	return cfg, nil
}

func (c *Config) StrategyConfig() (strategy.Config, error) {
	sc, err := c.ScoringConfig()
	if err != nil {
		return strategy.Config{}, err
	}
	return strategy.Config{
		Indicators: c.Indicators,
		Scoring:    sc,
		Sizing: sizing.Config{
			BuyFraction:  decimal.NewFromFloat(c.Trading.BuyFraction),
			SellFraction: decimal.NewFromFloat(c.Trading.SellFraction),
		},
		Risk: risk.Config{
			StopLossPct:   decimal.NewFromFloat(c.Trading.StopLossPct),
			TakeProfitPct: decimal.NewFromFloat(c.Trading.TakeProfitPct),
		},
	}, nil
}

func (c *Config) TraderConfig() trader.Config {
	return trader.Config{
		CollectFor:    c.Live.CollectFor,
		SleepFor:      c.Live.SleepFor,
		QuoteCurrency: c.QuoteCurrency,
	}
}

// BacktestRange parses the backtest dates. An empty end is the zero time.
func (c *Config) BacktestRange() (start, end time.Time, err error) {
	start, err = time.Parse(dateLayout, c.Backtest.Start)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: backtest start: %w", ErrInvalidConfig, err)
	}
	if c.Backtest.End == "" {
		return start, time.Time{}, nil
	}
	end, err = time.Parse(dateLayout, c.Backtest.End)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: backtest end: %w", ErrInvalidConfig, err)
	}
	if !end.After(start) {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: backtest end %s not after start %s", ErrInvalidConfig, c.Backtest.End, c.Backtest.Start)
	}
	return start, end, nil
}
