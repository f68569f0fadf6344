package server

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	drepo "MarketSleuth/internal/domain/repository"
	"MarketSleuth/internal/services/stream"
	"MarketSleuth/internal/usecase"
	"MarketSleuth/pkg/config"
	xhttp "MarketSleuth/pkg/http"
	"MarketSleuth/pkg/logger"
)

// App encapsulates the application lifecycle: the periodic watchlist
// sweep, the optional live tick stream, and the HTTP API.
type App struct {
	cfg        *config.Config
	log        *logger.Logger
	monitor    *usecase.Monitor
	ticks      drepo.TickStream
	recorder   *stream.Recorder
	store      drepo.SignalStore
	publisher  drepo.Publisher
	handler    xhttp.Handler
	httpServer *xhttp.Server
}

func New(
	cfg *config.Config,
	log *logger.Logger,
	monitor *usecase.Monitor,
	ticks drepo.TickStream,
	recorder *stream.Recorder,
	store drepo.SignalStore,
	publisher drepo.Publisher,
	handler xhttp.Handler,
) *App {
	return &App{
		cfg:       cfg,
		log:       log,
		monitor:   monitor,
		ticks:     ticks,
		recorder:  recorder,
		store:     store,
		publisher: publisher,
		handler:   handler,
	}
}

// Run starts all components and blocks until interrupted.
func (a *App) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a.httpServer = xhttp.NewServer(a.handler,
		xhttp.WithPort(a.cfg.Server.Port),
		xhttp.WithTimeouts(a.cfg.Server.ReadTimeout, a.cfg.Server.WriteTimeout, a.cfg.Server.ShutdownTimeout),
	)

	if a.ticks != nil && a.recorder != nil {
		if err := a.ticks.Connect(ctx); err != nil {
			a.log.Error("tick stream connect failed", logger.Error(err))
		} else if err := a.ticks.Subscribe(ctx); err != nil {
			a.log.Error("tick stream subscribe failed", logger.Error(err))
		} else {
			go a.recorder.Run(ctx, a.ticks)
			a.log.Info("tick stream running", logger.Strings("symbols", a.cfg.Monitor.Symbols))
		}
	}

	go a.monitor.Run(ctx, a.cfg.Monitor.Interval)
	a.log.Info("monitor started",
		logger.Strings("symbols", a.cfg.Monitor.Symbols),
		logger.Duration("interval", a.cfg.Monitor.Interval))

	if err := a.httpServer.Start(); err != nil {
		a.log.Error("http server start failed", logger.Error(err))
		return err
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	a.log.Info("shutdown signal received")
	cancel()
	return a.shutdown()
}

func (a *App) shutdown() error {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := a.httpServer.Stop(shutdownCtx); err != nil {
		a.log.Error("http shutdown error", logger.Error(err))
	}
	if a.ticks != nil {
		if err := a.ticks.Close(); err != nil {
			a.log.Warn("tick stream close error", logger.Error(err))
		}
	}
	if a.publisher != nil {
		if err := a.publisher.Close(); err != nil {
			a.log.Warn("publisher close error", logger.Error(err))
		}
	}
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.log.Warn("store close error", logger.Error(err))
		}
	}

	a.log.Info("shutdown complete")
	return nil
}
