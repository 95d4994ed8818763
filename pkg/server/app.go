package server

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	drepo "dogebot/internal/domain/repository"
	"dogebot/internal/usecase"
	"dogebot/pkg/config"
	xhttp "dogebot/pkg/http"
	applogger "dogebot/pkg/logger"
)

// App encapsulates the entire application lifecycle: the trading loop, the
// optional ticker stream, the HTTP status API, and graceful shutdown.
type App struct {
	cfg        *config.Config
	log        *applogger.Logger
	loop       *usecase.TradingLoop
	prices     *usecase.PriceCollector
	publisher  drepo.Publisher
	archive    drepo.Archive
	httpServer *xhttp.Server
}

// New creates a new App instance with all dependencies. prices, publisher
// and archive may be nil.
func New(
	cfg *config.Config,
	log *applogger.Logger,
	loop *usecase.TradingLoop,
	prices *usecase.PriceCollector,
	publisher drepo.Publisher,
	archive drepo.Archive,
	handler xhttp.Handler,
) *App {
	httpServer := xhttp.NewServer(handler,
		xhttp.WithPort(cfg.Server.Port),
		xhttp.WithTimeouts(cfg.Server.ReadTimeout, cfg.Server.WriteTimeout, cfg.Server.ShutdownTimeout),
	)
	return &App{
		cfg:        cfg,
		log:        log,
		loop:       loop,
		prices:     prices,
		publisher:  publisher,
		archive:    archive,
		httpServer: httpServer,
	}
}

// Run starts the application and blocks until interrupted or the trading
// loop stops on its own.
func (a *App) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if a.prices != nil {
		if err := a.prices.Start(ctx); err != nil {
			// Degrade: the loop falls back to candle close prices.
			a.log.Warn("ticker stream unavailable", applogger.Error(err))
		} else {
			a.log.Info("ticker stream started")
		}
	}

	if err := a.httpServer.Start(); err != nil {
		a.log.Error("http server start error", applogger.Error(err))
		return err
	}
	a.log.Info("status api listening", applogger.Int("port", a.cfg.Server.Port))

	loopDone := make(chan error, 1)
	go func() {
		loopDone <- a.loop.Run(ctx)
	}()
	a.log.Info("trading loop started",
		applogger.String("product", a.cfg.Exchange.ProductID),
		applogger.Bool("dry_run", a.cfg.Trading.DryRun),
		applogger.Bool("allow_live", a.cfg.Trading.AllowLive))

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	select {
	case <-sigCh:
		a.log.Info("shutdown signal received")
	case err := <-loopDone:
		if err != nil && err != context.Canceled {
			a.log.Error("trading loop stopped", applogger.Error(err))
		}
	}

	cancel()
	return a.shutdown()
}

// shutdown gracefully stops all services.
func (a *App) shutdown() error {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := a.httpServer.Stop(shutdownCtx); err != nil {
		a.log.Error("http shutdown error", applogger.Error(err))
	}
	if a.prices != nil {
		if err := a.prices.Stop(); err != nil {
			a.log.Warn("ticker stream close error", applogger.Error(err))
		}
	}
	if a.publisher != nil {
		if err := a.publisher.Close(); err != nil {
			a.log.Warn("publisher close error", applogger.Error(err))
		}
	}
	if a.archive != nil {
		if err := a.archive.Close(); err != nil {
			a.log.Warn("archive close error", applogger.Error(err))
		}
	}

	a.log.Info("shutdown complete")
	return nil
}
