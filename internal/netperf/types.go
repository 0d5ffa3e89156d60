package netperf

import (
	"strings"
	"time"
)

// PathType classifies a monitored network route.
type PathType string

const (
	PathDirect  PathType = "direct"
	PathSwitch  PathType = "switch"
	PathNFS     PathType = "nfs"
	PathUnknown PathType = "unknown"
)

// ParsePathType maps a config string to a PathType, defaulting to
// unknown. Matching is case-insensitive, same as config validation.
func ParsePathType(s string) PathType {
	switch p := PathType(strings.ToLower(strings.TrimSpace(s))); p {
	case PathDirect, PathSwitch, PathNFS:
		return p
	default:
		return PathUnknown
	}
}

// Status is the overall health classification of one measured path.
type Status string

const (
	StatusHealthy  Status = "healthy"
	StatusDegraded Status = "degraded"
	StatusError    Status = "error"
	StatusUnknown  Status = "unknown"
)

// PingStats holds round-trip latency statistics from one probe run.
//
// LossPct == 100 is the sentinel for a probe that failed entirely; all
// other fields stay at zero in that case.
type PingStats struct {
	MinMS   float64 `json:"min_ms"`
	AvgMS   float64 `json:"avg_ms"`
	MaxMS   float64 `json:"max_ms"`
	MdevMS  float64 `json:"mdev_ms"` // jitter
	LossPct float64 `json:"loss_pct"`
}

// Failed reports whether the probe produced no usable data at all.
func (p PingStats) Failed() bool { return p.LossPct >= 100 }

// ThroughputStats holds one throughput measurement.
//
// Estimated marks quick-mode results whose duration was assumed rather
// than measured; such rates must never be presented as measured values.
type ThroughputStats struct {
	BytesTransferred int64   `json:"bytes_transferred"`
	RateMbps         float64 `json:"rate_mbps"`
	DurationSec      float64 `json:"duration_sec"`
	TCPRetrans       int64   `json:"tcp_retrans"`
	Estimated        bool    `json:"estimated,omitempty"`
}

// Record is one collection result for one configured path.
// Records are append-only once stored.
//
// A nil phase pointer means that phase was not measured (tool missing,
// phase failed, or quick mode); absence is a typed state, not a zero.
type Record struct {
	SourceHost string    `json:"source_host"`
	DestHost   string    `json:"dest_host"`
	PathType   PathType  `json:"path_type"`
	Timestamp  time.Time `json:"timestamp"`

	Probed bool      `json:"probed"` // whether Ping carries a real probe result
	Ping   PingStats `json:"ping"`

	Cold  *ThroughputStats `json:"throughput_cold,omitempty"`
	Hot   *ThroughputStats `json:"throughput_hot,omitempty"` // average of hot-cache runs
	Write *ThroughputStats `json:"throughput_write,omitempty"`

	Status Status `json:"status"`
}

// Healthy thresholds for a path record.
const (
	healthyMaxLossPct  = 1.0
	healthyMaxAvgMS    = 50.0
	healthyMaxMdevMS   = 20.0
	healthyMinHotMbps  = 100.0
	degradedMaxLossPct = 10.0
)

// IsHealthy reports whether the record satisfies the healthy invariant:
// loss <= 1%, avg latency <= 50ms, jitter <= 20ms, and hot-cache
// throughput >= 100 Mbps when a hot measurement is present.
func (r *Record) IsHealthy() bool {
	if !r.Probed {
		return false
	}
	if r.Ping.LossPct > healthyMaxLossPct {
		return false
	}
	if r.Ping.AvgMS > healthyMaxAvgMS {
		return false
	}
	if r.Ping.MdevMS > healthyMaxMdevMS {
		return false
	}
	if r.Hot != nil && r.Hot.RateMbps < healthyMinHotMbps {
		return false
	}
	return true
}

// DeriveStatus classifies the record: healthy per IsHealthy, degraded
// when unhealthy but packet loss stays below 10%, error otherwise.
func (r *Record) DeriveStatus() Status {
	if r.IsHealthy() {
		return StatusHealthy
	}
	if r.Probed && r.Ping.LossPct < degradedMaxLossPct {
		return StatusDegraded
	}
	return StatusError
}

// BestThroughput returns the representative throughput for persistence
// and display: hot if present, else cold, else write, else nil.
func (r *Record) BestThroughput() *ThroughputStats {
	switch {
	case r.Hot != nil:
		return r.Hot
	case r.Cold != nil:
		return r.Cold
	case r.Write != nil:
		return r.Write
	default:
		return nil
	}
}

// AverageThroughput averages a set of per-run measurements into one
// ThroughputStats: rates and durations are arithmetic means, bytes the
// integer average. Returns nil for empty input.
func AverageThroughput(runs []ThroughputStats) *ThroughputStats {
	if len(runs) == 0 {
		return nil
	}
	var bytes int64
	var rate, dur float64
	est := false
	for _, r := range runs {
		bytes += r.BytesTransferred
		rate += r.RateMbps
		dur += r.DurationSec
		est = est || r.Estimated
	}
	n := int64(len(runs))
	return &ThroughputStats{
		BytesTransferred: bytes / n,
		RateMbps:         rate / float64(n),
		DurationSec:      dur / float64(len(runs)),
		Estimated:        est,
	}
}
