package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"dogebot/internal/di"
	"dogebot/internal/learn"
	"dogebot/pkg/config"
)

// One-shot parameter search: runs a single learning pass against exchange
// history and exits. Intended for cron jobs and manual tuning; the trading
// daemon runs its own passes on a schedule.
func main() {
	configPath := flag.String("config", "config/config.yaml", "config file path")
	days := flag.Int("days", 0, "days of history to search (0 = config value)")
	flag.Parse()

	cfg, err := config.LoadWithEnv(*configPath)
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}
	if *days > 0 {
		cfg.Learning.Days = *days
	}

	logger, err := di.ProvideLogger(cfg)
	if err != nil {
		log.Fatalf("logger init failed: %v", err)
	}

	client := di.ProvideExchangeClient(cfg, logger)
	market := di.ProvideMarketData(client, cfg, logger)
	params := di.ProvideParamStore(cfg, logger)
	learner := learn.New(market, params, nil, logger, di.LearnConfig(cfg))

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	outcome, err := learner.Run(ctx, cfg.Learning.Days)
	if err != nil {
		log.Fatalf("learning pass failed: %v", err)
	}

	if !outcome.Found {
		fmt.Printf("no parameter set beat the bar over %d days (%d candles); keeping current parameters\n",
			cfg.Learning.Days, outcome.Candles)
		return
	}
	fmt.Printf("saved: period=%d entry=%d exit=%d granularity=%s return=%.2f%% trades=%d\n",
		outcome.Params.Period, outcome.Params.Entry, outcome.Params.Exit,
		outcome.Params.Granularity, outcome.ReturnPct, outcome.Trades)
}
