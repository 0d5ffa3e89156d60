// Package app wires the daemon together: config manager with hot
// reload, logging service, storage, the cron-driven collection, egress
// and prune jobs, and the optional metrics endpoint.
package app

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"

	"netmond/internal/collector"
	"netmond/internal/config"
	"netmond/internal/egress"
	"netmond/internal/metricsexporter"
	"netmond/internal/storage"
	"netmond/pkg/logx"
)

const (
	defaultCollectSchedule = "@every 1h"
	defaultEgressSchedule  = "@daily"
	defaultPruneSchedule   = "@daily"
)

type App struct {
	cfgm *config.Manager
	logs *logx.Service
	log  logx.Logger

	store    storage.Store
	exporter *metricsexporter.Exporter

	mu  sync.RWMutex
	cfg *config.Config

	cron        *cron.Cron
	cronParser  cron.Parser
	cancel      context.CancelFunc
	wg          sync.WaitGroup
	collectBusy atomic.Bool
	egressBusy  atomic.Bool
}

func New(cfgPath string) (*App, error) {
	cfgm := config.NewManager(cfgPath)
	cfg, err := cfgm.Load()
	if err != nil {
		return nil, err
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
	sc, err := MapStorageConfig(cfg)
	if err != nil {
		return nil, err
	}
	store, err = storage.Open(sc, log.With(logx.String("comp", "storage")))
	if err != nil {
		return nil, err
	}
	if store != nil {
		log.Info("storage enabled", logx.String("driver", sc.Driver), logx.String("path", sc.Path))
	}

	a := &App{
		cfgm:  cfgm,
		logs:  logSvc,
		log:   log,
		store: store,
		cfg:   cfg,
		// SecondOptional allows both 5-field and 6-field cron specs.
		cronParser: cron.NewParser(cron.SecondOptional | cron.Minute | cron.Hour |
			cron.Dom | cron.Month | cron.Dow | cron.Descriptor),
	}

	if cfg.Metrics.Enabled {
		a.exporter = metricsexporter.New(metricsexporter.Config{
			Enabled: true,
			Addr:    cfg.Metrics.Addr,
		}, log.With(logx.String("comp", "metrics")))
	}
	return a, nil
}

// Start launches the scheduler, metrics endpoint and config watcher.
func (a *App) Start(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(ctx)
	a.cancel = cancel

	if a.exporter != nil {
		a.exporter.Start()
	}

	if err := a.startCron(runCtx); err != nil {
		cancel()
		return err
	}

	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		_ = a.cfgm.Watch(runCtx)
	}()

	sub := a.cfgm.Subscribe(1)
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		defer a.cfgm.Unsubscribe(sub)
		for {
			select {
			case <-runCtx.Done():
				return
			case cfg, ok := <-sub:
				if !ok {
					return
				}
				a.applyReload(runCtx, cfg)
			}
		}
	}()

	a.log.Info("daemon started",
		logx.Int("paths", len(a.snapshot().Collector.Paths)),
		logx.Bool("metrics", a.exporter != nil))
	return nil
}

func (a *App) Stop(ctx context.Context) error {
	if a.cancel != nil {
		a.cancel()
	}
	if a.cron != nil {
		stopCtx := a.cron.Stop()
		select {
		case <-stopCtx.Done():
		case <-ctx.Done():
		}
	}
	if a.exporter != nil {
		_ = a.exporter.Stop(ctx)
	}
	a.wg.Wait()
	if a.store != nil {
		_ = a.store.Close()
	}
	a.log.Info("daemon stopped")
	return a.logs.Close()
}

func (a *App) snapshot() *config.Config {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.cfg
}

// startCron registers the jobs from the current config snapshot.
func (a *App) startCron(ctx context.Context) error {
	cfg := a.snapshot()
	c := cron.New(cron.WithParser(a.cronParser))

	if cfg.Collector.Enabled {
		spec := orDefault(cfg.Collector.Schedule, defaultCollectSchedule)
		if _, err := c.AddFunc(spec, func() { a.runCollection(ctx) }); err != nil {
			return err
		}
	}
	if cfg.Egress.Enabled {
		spec := orDefault(cfg.Egress.Schedule, defaultEgressSchedule)
		if _, err := c.AddFunc(spec, func() { a.runEgress(ctx) }); err != nil {
			return err
		}
	}
	if a.store != nil {
		spec := orDefault(cfg.Storage.PruneSchedule, defaultPruneSchedule)
		if _, err := c.AddFunc(spec, func() { a.runPrune(ctx) }); err != nil {
			return err
		}
	}

	c.Start()
	a.cron = c
	return nil
}

// applyReload commits a validated config: logging is reconfigured in
// place, job bodies read the new snapshot on their next run, and the
// cron is rebuilt so schedule changes take effect.
func (a *App) applyReload(ctx context.Context, cfg *config.Config) {
	old := a.snapshot()
	a.mu.Lock()
	a.cfg = cfg
	a.mu.Unlock()

	changed, attrs := config.SummarizeConfigChange(old, cfg)
	if len(changed) == 0 {
		return
	}
	a.log.Info("config applied",
		append([]logx.Field{logx.String("sections", strings.Join(changed, ","))}, attrs...)...)

	a.logs.Apply(logx.Config{
		Level:   cfg.Logging.Level,
		Console: cfg.Logging.Console,
		File: logx.FileConfig{
			Enabled: cfg.Logging.File.Enabled,
			Path:    cfg.Logging.File.Path,
		},
	})

	if a.cron != nil {
		<-a.cron.Stop().Done()
	}
	if err := a.startCron(ctx); err != nil {
		a.log.Error("cron rebuild failed", logx.Err(err))
	}
}

// RunCollection runs one measurement pass immediately. Used by the
// scheduler and by the one-shot CLI.
func (a *App) RunCollection(ctx context.Context) error {
	cfg := a.snapshot()
	ccfg, err := MapCollectorConfig(cfg)
	if err != nil {
		return err
	}
	col := collector.New(ccfg, a.store, a.log.With(logx.String("comp", "collector")))
	records := col.Collect(ctx)
	if a.exporter != nil {
		for _, rec := range records {
			a.exporter.ObserveRecord(rec)
		}
	}
	return nil
}

func (a *App) runCollection(ctx context.Context) {
	if !a.collectBusy.CompareAndSwap(false, true) {
		a.log.Warn("collection still running, skipping pass")
		return
	}
	defer a.collectBusy.Store(false)

	start := time.Now()
	if err := a.RunCollection(ctx); err != nil {
		a.log.Error("collection pass failed", logx.Err(err))
		return
	}
	a.log.Info("collection pass done", logx.Duration("took", time.Since(start)))
}

func (a *App) runEgress(ctx context.Context) {
	if !a.egressBusy.CompareAndSwap(false, true) {
		a.log.Warn("egress test still running, skipping pass")
		return
	}
	defer a.egressBusy.Store(false)

	m := egress.New(MapEgressConfig(a.snapshot()), a.store,
		a.log.With(logx.String("comp", "egress")))
	row, err := m.Measure(ctx)
	if err != nil {
		a.log.Error("egress measurement failed", logx.Err(err))
		return
	}
	if a.exporter != nil {
		a.exporter.ObserveEgress(*row)
	}
}

func (a *App) runPrune(ctx context.Context) {
	cutoff, err := RetentionCutoff(a.snapshot(), time.Now())
	if err != nil || cutoff.IsZero() {
		return
	}
	n, err := a.store.PruneBefore(ctx, cutoff)
	if err != nil {
		a.log.Error("prune failed", logx.Err(err))
		return
	}
	if n > 0 {
		a.log.Info("pruned old records", logx.Int64("rows", n))
	}
}

func orDefault(s, def string) string {
	if strings.TrimSpace(s) == "" {
		return def
	}
	return s
}
