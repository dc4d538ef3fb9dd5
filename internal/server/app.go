// Package server initializes and runs the main application server.
// It opens the store, wires the services, starts the background sweeps,
// and serves the HTTP API until shutdown.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/livepaste/livepaste/internal/logging"
	"github.com/livepaste/livepaste/internal/server/config"
	"github.com/livepaste/livepaste/internal/server/jobs"
	"github.com/livepaste/livepaste/internal/server/password"
	"github.com/livepaste/livepaste/internal/server/repositories/repomanager"
	"github.com/livepaste/livepaste/internal/server/services"
	"github.com/livepaste/livepaste/internal/server/syncsessions"
	"github.com/livepaste/livepaste/internal/server/web"
)

type App struct {
	config   *config.Config
	logger   logging.Logger
	web      *web.Server
	sweep    *jobs.RetentionSweep
	registry *syncsessions.Registry
}

func NewApp(c *config.Config) (*App, error) {

	sl := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	logger := logging.NewSlogLogger(sl)

	rm, err := repomanager.NewPostgresRepositoryManager(c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	hasher := password.NewDefault()
	registry := syncsessions.NewRegistry(c.SessionTTL)

	roomSvc := services.NewRoomService(rm, hasher)
	fileSvc := services.NewFileService(rm)
	syncSvc := services.NewSyncService(rm, registry, c.SessionTTL, fileSvc)
	opSvc := services.NewOpService(rm)
	csSvc := services.NewChangesetService(rm)

	ws := web.NewServer(c, logger, roomSvc, fileSvc, syncSvc, opSvc, csSvc)

	sweep := jobs.NewRetentionSweep(rm.Rooms(), rm.Files(), jobs.Config{
		RetentionPeriod: c.RetentionPeriod(),
		Horizon:         c.TombstoneHorizon,
		Interval:        c.SweepInterval,
		SweepTimeout:    jobs.DefaultConfig().SweepTimeout,
	}, logger)

	return &App{config: c, logger: logger, web: ws, sweep: sweep, registry: registry}, nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	// Channel to catch OS signals.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) Run(ctx context.Context) {

	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "starting app...")

	app.initSignalHandler(cancelFunc)

	app.sweep.Start()
	defer app.sweep.Stop()

	stopSweeper := make(chan struct{})
	go app.registry.RunSweeper(app.config.SessionSweepInterval, stopSweeper)
	defer close(stopSweeper)

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := app.web.Run(ctx); err != nil {
			app.logger.Error(ctx, err.Error())
			cancelFunc()
		}
	}()

	wg.Wait()
}
