// Package netprobe measures latency and kernel TCP counters for one host.
package netprobe

import (
	"context"
	"regexp"
	"strconv"
	"time"

	"netmond/internal/netperf"
	"netmond/internal/remote"
	"netmond/pkg/logx"
)

var (
	// "10 packets transmitted, 10 received, 0% packet loss, time 9012ms"
	lossRe = regexp.MustCompile(`(\d+(?:\.\d+)?)% packet loss`)
	// "rtt min/avg/max/mdev = 0.123/0.456/0.789/0.111 ms"
	rttRe = regexp.MustCompile(`rtt min/avg/max/mdev = ([\d.]+)/([\d.]+)/([\d.]+)/([\d.]+)`)
)

// Prober issues fixed-count ping probes and parses round-trip stats.
type Prober struct {
	runner remote.Runner
	count  int
	log    logx.Logger
}

// NewProber builds a prober sending count probes per measurement
// (default 10 when count <= 0).
func NewProber(runner remote.Runner, count int, log logx.Logger) *Prober {
	if count <= 0 {
		count = 10
	}
	if runner == nil {
		runner = remote.LocalRunner{}
	}
	return &Prober{runner: runner, count: count, log: log}
}

// Measure pings dest and returns latency statistics. A failed probe
// yields the sentinel PingStats{LossPct: 100} rather than an error:
// total loss and an unreachable host are treated the same way.
func (p *Prober) Measure(ctx context.Context, dest string) netperf.PingStats {
	var stats netperf.PingStats

	timeout := time.Duration(p.count+10) * time.Second
	out, err := p.runner.Run(ctx, timeout, "ping", "-q", "-c", strconv.Itoa(p.count), dest)
	if err != nil {
		p.log.Warn("ping probe failed", logx.String("dest", dest), logx.Err(err))
		stats.LossPct = 100.0
		return stats
	}

	return ParsePingOutput(out)
}

// ParsePingOutput extracts stats from raw ping output. Split out of
// Measure so the parsing rules stay testable without a live probe.
func ParsePingOutput(out string) netperf.PingStats {
	var stats netperf.PingStats
	if m := lossRe.FindStringSubmatch(out); m != nil {
		stats.LossPct, _ = strconv.ParseFloat(m[1], 64)
	}
	if m := rttRe.FindStringSubmatch(out); m != nil {
		stats.MinMS, _ = strconv.ParseFloat(m[1], 64)
		stats.AvgMS, _ = strconv.ParseFloat(m[2], 64)
		stats.MaxMS, _ = strconv.ParseFloat(m[3], 64)
		stats.MdevMS, _ = strconv.ParseFloat(m[4], 64)
	}
	return stats
}
