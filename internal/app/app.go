// Package app wires configuration, logging, storage, the catalog client, the
// scheduling engine, and the reconciliation pipeline into one process.
package app

import (
	"context"
	"fmt"
	"sync"

	"github.com/coreos/go-systemd/v22/daemon"
	"github.com/redis/go-redis/v9"

	"schedsync/internal/catalog"
	"schedsync/internal/config"
	"schedsync/internal/dispatch"
	"schedsync/internal/engine"
	"schedsync/internal/queue"
	"schedsync/internal/reconcile"
	"schedsync/internal/storage"
	logx "schedsync/pkg/logx"
)

type App struct {
	cfgm *config.Manager
	logs *logx.Service
	log  logx.Logger

	store storage.Store
	api   *catalog.Client
	eng   *engine.CronEngine
	gw    *reconcile.Gateway

	rdb      *redis.Client
	consumer *queue.Consumer

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func New(cfgPath string) (*App, error) {
	cfgm := config.NewManager(cfgPath)
	cfg, err := cfgm.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	logSvc, log := logx.New(logx.Config{
		Level:   cfg.Logging.Level,
		Console: cfg.Logging.Console,
		File: logx.FileConfig{
			Enabled: cfg.Logging.File.Enabled,
			Path:    cfg.Logging.File.Path,
		},
	})
	log = log.With(logx.String("comp", "app"))
	cfgm.SetLogger(log.With(logx.String("comp", "config")))

	var store storage.Store
	if cfg.Storage != nil {
		busy, err := config.ParseDurationField("storage.busy_timeout", cfg.Storage.BusyTimeout)
		if err != nil {
			return nil, err
		}
		store, err = storage.Open(storage.Config{
			Driver:      cfg.Storage.Driver,
			Path:        cfg.Storage.Path,
			BusyTimeout: busy,
		}, log.With(logx.String("comp", "storage")))
		if err != nil {
			return nil, fmt.Errorf("open storage: %w", err)
		}
	}

	apiTimeout, err := config.ParseDurationField("api.timeout", cfg.API.Timeout)
	if err != nil {
		return nil, err
	}
	api, err := catalog.New(catalog.Config{
		BaseURL:  cfg.API.BaseURL,
		Username: cfg.API.Username,
		Password: cfg.API.Password,
		Timeout:  apiTimeout,
	}, log.With(logx.String("comp", "catalog")))
	if err != nil {
		return nil, err
	}

	dispTimeout, err := config.ParseDurationField("dispatch.timeout", cfg.Dispatch.Timeout)
	if err != nil {
		return nil, err
	}
	disp := dispatch.New(dispatch.Config{
		RatePerSec: cfg.Dispatch.RatePerSec,
		Timeout:    dispTimeout,
	}, api, store, log.With(logx.String("comp", "dispatch")))

	eng := engine.New(engine.Config{
		MaxConcurrent: cfg.Engine.MaxConcurrent,
		QueueSize:     cfg.Engine.QueueSize,
	}, disp, log.With(logx.String("comp", "engine")))
	// Lifecycle notifications are observability only.
	eng.SetListener(engine.LogListener(log.With(logx.String("comp", "engine-events"))))

	rec := reconcile.NewReconciler(eng, log.With(logx.String("comp", "reconcile")))
	gw := reconcile.NewGateway(reconcile.GatewayConfig{
		BulkWorkers: cfg.Reconcile.BulkWorkers,
	}, rec, store, log.With(logx.String("comp", "reconcile")))

	return &App{
		cfgm:  cfgm,
		logs:  logSvc,
		log:   log,
		store: store,
		api:   api,
		eng:   eng,
		gw:    gw,
	}, nil
}

// Start performs the bulk load and brings the process to readiness. A fetch
// or auth failure here is fatal: any partially started engine is shut down
// cleanly and the error is returned.
func (a *App) Start(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(ctx)
	a.cancel = cancel
	cfg := a.cfgm.Get()

	a.log.Info("loading schedule definitions")
	records, err := a.api.FetchSchedules(runCtx)
	if err != nil {
		a.log.Error("schedule fetch failed", logx.Err(err))
		if a.eng.IsRunning() {
			_ = a.eng.Stop(context.Background())
		}
		cancel()
		return fmt.Errorf("fetch schedules: %w", err)
	}
	a.log.Info("schedule definitions loaded", logx.Int("count", len(records)))

	// Start the engine before feeding it; the reconciler re-ensures liveness
	// on every call anyway.
	if err := a.eng.Start(runCtx); err != nil {
		cancel()
		return fmt.Errorf("start engine: %w", err)
	}

	if failed := a.gw.BulkLoad(runCtx, records); failed > 0 {
		a.log.Warn("bulk load finished with failures",
			logx.Int("total", len(records)),
			logx.Int("failed", failed),
		)
	}

	if cfg.Queue != nil && cfg.Queue.Enabled {
		rdb, err := queue.Connect(runCtx, cfg.Queue.URL)
		if err != nil {
			a.log.Error("queue connect failed", logx.Err(err))
			_ = a.eng.Stop(context.Background())
			cancel()
			return fmt.Errorf("connect queue: %w", err)
		}
		a.rdb = rdb
		a.consumer = queue.NewConsumer(queue.Config{Name: cfg.Queue.Name},
			rdb, a.gw, a.log.With(logx.String("comp", "queue")))

		a.wg.Add(1)
		go func() {
			defer a.wg.Done()
			_ = a.consumer.Run(runCtx)
		}()
	}

	// Hot-reload logging config; everything else requires a restart.
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		_ = a.cfgm.Watch(runCtx, func(c *config.Config) {
			a.logs.Apply(logx.Config{
				Level:   c.Logging.Level,
				Console: c.Logging.Console,
				File: logx.FileConfig{
					Enabled: c.Logging.File.Enabled,
					Path:    c.Logging.File.Path,
				},
			})
		})
	}()

	// Best effort; no-op outside systemd.
	_, _ = daemon.SdNotify(false, daemon.SdNotifyReady)

	a.log.Info("started")
	return nil
}

func (a *App) Stop(ctx context.Context) error {
	_, _ = daemon.SdNotify(false, daemon.SdNotifyStopping)

	if a.cancel != nil {
		a.cancel()
	}
	a.wg.Wait()

	err := a.eng.Stop(ctx)

	if a.rdb != nil {
		_ = a.rdb.Close()
	}
	if a.store != nil {
		_ = a.store.Close()
	}
	a.log.Info("stopped")
	_ = a.logs.Close()
	return err
}
