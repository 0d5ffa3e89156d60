// Package collector runs the measurement pass over the configured
// host-to-host paths and persists one record per path per pass.
//
// Paths collect in parallel under a bounded semaphore; the phases
// within one path stay strictly sequential because cache-state control
// only holds between consecutive steps. A path that fails outright
// still yields a record carrying error status, so the time series never
// silently skips a path.
package collector

import (
	"context"
	"errors"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"netmond/internal/bench"
	"netmond/internal/netperf"
	"netmond/internal/netprobe"
	"netmond/internal/remote"
	"netmond/internal/storage"
	"netmond/pkg/logx"
)

// PathConfig identifies one monitored host-to-host path.
type PathConfig struct {
	Source   string
	Dest     string
	PathType string
	User     string // SSH user on the destination; empty uses ssh defaults
}

// Config controls one collection pass. Zero fields take the documented
// defaults.
type Config struct {
	Paths []PathConfig

	PingCount     int           // default 10
	FullTest      bool          // run the three-phase benchmark instead of quick mode
	IperfDuration time.Duration // quick-mode duration, default 10s
	QuickSizeMB   int           // quick-mode SSH payload, default 50
	NumFiles      int           // full-test payload files, default 3
	FileSizeMB    int           // per-file size, default 10
	Parallelism   int           // concurrent paths, default 2
	CmdRate       float64       // remote command launches per second, default 2

	SSH remote.SSHConfig // host and user come from each path
}

func (c Config) withDefaults() Config {
	if c.PingCount <= 0 {
		c.PingCount = 10
	}
	if c.IperfDuration <= 0 {
		c.IperfDuration = 10 * time.Second
	}
	if c.QuickSizeMB <= 0 {
		c.QuickSizeMB = 50
	}
	if c.Parallelism <= 0 {
		c.Parallelism = 2
	}
	if c.CmdRate <= 0 {
		c.CmdRate = 2
	}
	return c
}

// Collector measures the configured paths and writes results to the
// store. A nil store is allowed; records are then only returned.
type Collector struct {
	cfg   Config
	store storage.Store
	local remote.Runner
	lim   *rate.Limiter
	log   logx.Logger
}

func New(cfg Config, store storage.Store, log logx.Logger) *Collector {
	cfg = cfg.withDefaults()
	return &Collector{
		cfg:   cfg,
		store: store,
		local: remote.LocalRunner{},
		lim:   rate.NewLimiter(rate.Limit(cfg.CmdRate), 1),
		log:   log,
	}
}

// Collect runs one pass over all configured paths and returns the
// records in config order. Per-path failures are recorded as
// error-status records and do not affect the other paths.
func (c *Collector) Collect(ctx context.Context) []netperf.Record {
	records := make([]netperf.Record, len(c.cfg.Paths))

	sem := make(chan struct{}, c.cfg.Parallelism)
	var wg sync.WaitGroup
	for i, p := range c.cfg.Paths {
		wg.Add(1)
		go func(i int, p PathConfig) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()
			records[i] = c.collectPath(ctx, p)
		}(i, p)
	}
	wg.Wait()

	for _, rec := range records {
		if c.store == nil {
			continue
		}
		if err := c.store.InsertRecord(ctx, rec); err != nil {
			c.log.Error("persist record failed", logx.Err(err),
				logx.String("dest", rec.DestHost))
		}
	}
	return records
}

// collectPath measures one path: latency probe first, then the full
// benchmark (falling back to quick mode when the transport is down) or
// quick mode directly.
func (c *Collector) collectPath(ctx context.Context, p PathConfig) netperf.Record {
	log := c.log.With(logx.String("source", p.Source), logx.String("dest", p.Dest))
	rec := netperf.Record{
		SourceHost: p.Source,
		DestHost:   p.Dest,
		PathType:   netperf.ParsePathType(p.PathType),
		Timestamp:  time.Now(),
	}

	local := pacedRunner{inner: c.local, lim: c.lim}

	prober := netprobe.NewProber(local, c.cfg.PingCount, log)
	rec.Ping = prober.Measure(ctx, p.Dest)
	rec.Probed = true
	if rec.Ping.Failed() {
		log.Warn("latency probe failed, host may be unreachable")
	}

	t := c.transport(p)
	if c.cfg.FullTest {
		res, err := bench.New(bench.Config{
			NumFiles:   c.cfg.NumFiles,
			FileSizeMB: c.cfg.FileSizeMB,
		}, t, local, log).Run(ctx)
		switch {
		case err == nil:
			rec.Cold, rec.Hot, rec.Write = res.Cold, res.Hot, res.Write
		case errors.Is(err, bench.ErrTransportUnavailable):
			log.Warn("destination unreachable, falling back to quick mode", logx.Err(err))
			rec.Hot = c.quick(ctx, t, local, p.Dest, log)
		default:
			log.Error("benchmark failed", logx.Err(err))
		}
	} else {
		rec.Hot = c.quick(ctx, t, local, p.Dest, log)
	}

	rec.Status = rec.DeriveStatus()
	log.Info("path collected",
		logx.String("status", string(rec.Status)),
		logx.Float64("ping_avg_ms", rec.Ping.AvgMS),
		logx.Float64("loss_pct", rec.Ping.LossPct))
	return rec
}

func (c *Collector) quick(ctx context.Context, t bench.Transport, local remote.Runner, dest string, log logx.Logger) *netperf.ThroughputStats {
	q := bench.NewQuick(local, t, c.cfg.IperfDuration, c.cfg.QuickSizeMB, log)
	return q.Measure(ctx, dest)
}

func (c *Collector) transport(p PathConfig) bench.Transport {
	ssh := c.cfg.SSH
	ssh.Host = p.Dest
	if p.User != "" {
		ssh.User = p.User
	}
	return newPacedTransport(remote.NewSSHClient(ssh), c.lim)
}
