package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"tradebot/internal/config"
	"tradebot/internal/feed"
	"tradebot/internal/gateway"
	"tradebot/internal/journal"
	"tradebot/internal/metrics"
	"tradebot/internal/strategy"
	"tradebot/internal/trader"
	"tradebot/internal/util"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

func main() {
	configPath := flag.String("config", "", "path to the YAML config file")
	envFile := flag.String("env", ".env", "optional .env file")
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

	instruments, err := cfg.InstrumentList()
	if err != nil {
		log.Fatal().Err(err).Msg("invalid instruments")
	}
	strategyConfig, err := cfg.StrategyConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("invalid strategy config")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.App.MetricsAddr != "" {
		srv := metrics.Serve(cfg.App.MetricsAddr)
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
		log.Info().Str("addr", cfg.App.MetricsAddr).Msg("serving metrics")
	}

	orders, err := openJournal(cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open order journal")
	}
	defer orders.Close()

	symbols := make([]string, 0, len(instruments))
	for _, inst := range instruments {
		symbols = append(symbols, inst.Symbol)
	}
	paper := gateway.NewPaper(instruments, map[string]decimal.Decimal{
		cfg.QuoteCurrency: decimal.NewFromFloat(cfg.Live.PaperCash),
	}, log)
	collector := feed.NewCollector(
		feed.NewWebsocketFeed(cfg.Live.FeedURL, symbols, log),
		cfg.Live.RetryAttempts,
		cfg.Live.RetryDelay,
		log,
	)

	session := gateway.NewSessionID()
	t, err := trader.New(cfg.TraderConfig(), instruments, trader.Deps{
		Feed:      collector,
		Gateway:   paper,
		Account:   paper,
		Strategy:  strategy.New(strategyConfig, log),
		Journal:   orders,
		Observers: []feed.Sink{paper},
	}, session, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create trader")
	}

	if err := t.Run(ctx); err != nil {
		log.Error().Err(err).Msg("trader exited")
	}
}

func openJournal(cfg *config.Config, log zerolog.Logger) (journal.Journal, error) {
	var journals []journal.Journal
	if cfg.Journal.Path != "" {
		j, err := journal.NewJSONL(cfg.Journal.Path)
		if err != nil {
			return nil, err
		}
		journals = append(journals, j)
	}
	if len(cfg.Journal.KafkaBrokers) > 0 {
		journals = append(journals, journal.NewKafka(cfg.Journal.KafkaBrokers, cfg.Journal.KafkaTopic))
		log.Info().Strs("brokers", cfg.Journal.KafkaBrokers).Str("topic", cfg.Journal.KafkaTopic).Msg("journaling orders to kafka")
	}
	if len(journals) == 0 {
		return journal.Nop(), nil
	}
	return journal.Multi(journals...), nil
}
