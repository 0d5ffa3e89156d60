// Package bench implements the phased throughput benchmark.
//
// Three phases isolate network bandwidth from storage effects: cold
// cache (flush, then stream to a discard sink), hot cache (pin files in
// memory, stream three times, average), and true write (stream to a
// file the destination persists and deletes). Page-cache state
// dominates apparent "network" throughput on shared filesystems;
// separating the phases tells a disk-bound slowdown from a cache-bound
// or genuinely network-bound one.
package bench

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"netmond/internal/netperf"
	"netmond/internal/netprobe"
	"netmond/internal/remote"
	"netmond/pkg/logx"
)

// ErrTransportUnavailable means the destination cannot be reached over
// SSH at all; the full protocol is skipped and callers fall back to the
// quick single-shot measurement.
var ErrTransportUnavailable = errors.New("benchmark transport unavailable")

// Remote sink commands. Discard isolates the network path; the write
// sink persists then removes the payload to exercise the real write path.
const (
	discardSink = "cat > /dev/null"
	writeSink   = "cat > /tmp/netmond_nettest_recv.tmp && rm -f /tmp/netmond_nettest_recv.tmp"
)

// Transport moves benchmark payloads and runs commands on the
// destination host.
type Transport interface {
	Available(ctx context.Context) error
	Run(ctx context.Context, timeout time.Duration, name string, args ...string) (string, error)
	Stream(ctx context.Context, timeout time.Duration, r io.Reader, sink string) (int64, error)
}

// Config controls one benchmark run. Zero fields take the documented
// defaults (3 files of 10 MiB, 3 hot runs, 5s pause, 5m phase timeout).
type Config struct {
	NumFiles     int
	FileSizeMB   int
	HotRuns      int
	RunPause     time.Duration
	PhaseTimeout time.Duration
	WorkDir      string // defaults to the system temp dir
}

func (c Config) withDefaults() Config {
	if c.NumFiles <= 0 {
		c.NumFiles = 3
	}
	if c.FileSizeMB <= 0 {
		c.FileSizeMB = 10
	}
	if c.HotRuns <= 0 {
		c.HotRuns = 3
	}
	if c.RunPause <= 0 {
		c.RunPause = 5 * time.Second
	}
	if c.PhaseTimeout <= 0 {
		c.PhaseTimeout = 5 * time.Minute
	}
	return c
}

// Result carries per-phase measurements. A nil phase means that phase
// failed or was skipped; the benchmark still returns what it has.
type Result struct {
	Cold    *netperf.ThroughputStats
	Hot     *netperf.ThroughputStats // average of the individual hot runs
	HotRuns []netperf.ThroughputStats
	Write   *netperf.ThroughputStats

	// RetransTotal covers the whole three-phase sequence and is also
	// attributed to the hot phase as the representative figure.
	RetransTotal int64
}

// Benchmark orchestrates the three-phase protocol against one path.
// Phases run strictly sequentially: hot-cache state is only valid
// immediately after the preceding flush or pin step.
type Benchmark struct {
	cfg     Config
	t       Transport
	local   remote.Runner
	retrans *netprobe.RetransReader
	log     logx.Logger
}

func New(cfg Config, t Transport, local remote.Runner, log logx.Logger) *Benchmark {
	if local == nil {
		local = remote.LocalRunner{}
	}
	return &Benchmark{
		cfg:     cfg.withDefaults(),
		t:       t,
		local:   local,
		retrans: netprobe.NewRetransReader(local),
		log:     log,
	}
}

// Run executes the full protocol. It returns ErrTransportUnavailable
// when the destination is unreachable, a file-generation error when no
// payload could be produced, and otherwise a (possibly partial) Result.
func (b *Benchmark) Run(ctx context.Context) (*Result, error) {
	if err := b.t.Available(ctx); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTransportUnavailable, err)
	}

	fs, err := generateTestFiles(b.cfg.WorkDir, b.cfg.NumFiles, b.cfg.FileSizeMB)
	if err != nil {
		return nil, err
	}
	defer fs.cleanup()

	res := &Result{}
	retransStart := b.retrans.Read(ctx)

	// Cold cache: both ends flushed, then stream to discard.
	flushLocal(ctx, b.local, b.log)
	flushRemote(ctx, b.t, b.log)
	if st, err := b.transfer(ctx, fs, discardSink); err != nil {
		b.log.Warn("cold cache run failed", logx.Err(err))
	} else {
		res.Cold = st
	}

	// Hot cache: pin the files, repeat the discard transfer, average.
	// The pause between runs avoids transient coupling between tests.
	pinFiles(ctx, b.local, fs.paths, b.log)
	for run := 0; run < b.cfg.HotRuns; run++ {
		st, err := b.transfer(ctx, fs, discardSink)
		if err != nil {
			b.log.Warn("hot cache run failed", logx.Int("run", run+1), logx.Err(err))
		} else {
			res.HotRuns = append(res.HotRuns, *st)
		}
		if run < b.cfg.HotRuns-1 {
			select {
			case <-ctx.Done():
				return res, nil
			case <-time.After(b.cfg.RunPause):
			}
		}
	}
	res.Hot = netperf.AverageThroughput(res.HotRuns)

	// True write: flush, re-pin, then stream to the persisting sink.
	flushLocal(ctx, b.local, b.log)
	flushRemote(ctx, b.t, b.log)
	pinFiles(ctx, b.local, fs.paths, b.log)
	if st, err := b.transfer(ctx, fs, writeSink); err != nil {
		b.log.Warn("true write run failed", logx.Err(err))
	} else {
		res.Write = st
	}

	res.RetransTotal = netprobe.Delta(retransStart, b.retrans.Read(ctx))
	if res.Hot != nil {
		res.Hot.TCPRetrans = res.RetransTotal
	}

	return res, nil
}

// transfer streams the whole file set through the transport once and
// derives the rate from bytes actually moved and measured wall time.
func (b *Benchmark) transfer(ctx context.Context, fs *fileSet, sink string) (*netperf.ThroughputStats, error) {
	r, err := fs.open()
	if err != nil {
		return nil, err
	}
	defer r.Close()

	start := time.Now()
	n, err := b.t.Stream(ctx, b.cfg.PhaseTimeout, r, sink)
	if err != nil {
		return nil, err
	}
	dur := time.Since(start).Seconds()
	if dur <= 0 {
		dur = 0.001
	}

	return &netperf.ThroughputStats{
		BytesTransferred: n,
		RateMbps:         float64(n) * 8 / dur / 1e6,
		DurationSec:      dur,
	}, nil
}
