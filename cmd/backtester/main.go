package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"tradebot/internal/config"
	"tradebot/internal/engine"
	"tradebot/internal/repository"
	"tradebot/internal/strategy"
	"tradebot/internal/util"

	"github.com/shopspring/decimal"
)

func main() {
	configPath := flag.String("config", "", "path to the YAML config file")
	envFile := flag.String("env", ".env", "optional .env file")
	source := flag.String("source", "", "historical data source: csv or db (overrides config)")
	dataDir := flag.String("data", "", "directory with historical_data_<BASE>.csv files (overrides config)")
	trades := flag.String("trades", "", "write the trade history CSV here (overrides config)")
	progress := flag.Bool("progress", false, "show a progress bar")
	flag.Parse()

	log := util.NewLogger("info")
	if err := config.LoadDotEnv(*envFile); err != nil {
		log.Fatal().Err(err).Msg("failed to load env file")
	}
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	log = util.NewLogger(cfg.App.LogLevel)

	if *source != "" {
		cfg.Backtest.Source = *source
	}
	if *dataDir != "" {
		cfg.Backtest.DataDir = *dataDir
	}
	if *trades != "" {
		cfg.Backtest.TradesFile = *trades
	}
	cfg.Backtest.ShowProgress = cfg.Backtest.ShowProgress || *progress
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("invalid config")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var historical engine.HistoricalSource
	switch cfg.Backtest.Source {
	case config.SourceDatabase:
		db, err := repository.NewDatabase(ctx, cfg.DatabaseURL)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to database")
		}
		defer db.Close()
		historical = db
	default:
		historical = repository.NewCSVSource(cfg.Backtest.DataDir)
	}

	instruments, err := cfg.InstrumentList()
	if err != nil {
		log.Fatal().Err(err).Msg("invalid instruments")
	}
	start, end, err := cfg.BacktestRange()
	if err != nil {
		log.Fatal().Err(err).Msg("invalid backtest range")
	}
	interval, err := cfg.BacktestInterval()
	if err != nil {
		log.Fatal().Err(err).Msg("invalid backtest interval")
	}
	feeds := make([]*engine.InstrumentConfig, 0, len(instruments))
	for _, inst := range instruments {
		feeds = append(feeds, engine.NewInstrumentConfig(inst, interval, start, end))
	}

	strategyConfig, err := cfg.StrategyConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("invalid strategy config")
	}

	eng := engine.NewEngine(
		engine.NewInstrumentConfigs(feeds...),
		strategy.New(strategyConfig, log),
		historical,
		engine.NewPortfolioConfig(
			decimal.NewFromFloat(cfg.Backtest.InitialCash),
			decimal.NewFromFloat(cfg.Trading.DrawdownLiquidation),
		),
		engine.NewReportingConfig(true, cfg.Backtest.TradesFile, cfg.Backtest.ShowProgress),
		log,
	)
	if _, err := eng.Run(ctx); err != nil {
		log.Fatal().Err(err).Msg("backtest failed")
	}
}
