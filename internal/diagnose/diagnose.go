// Package diagnose turns the collected time series for one path into a
// human-readable assessment: current state, historical aggregates,
// weekday/business-hours patterns, metric trends, flagged causes, and
// remediation steps. Diagnostics are computed on demand and never
// persisted.
package diagnose

import (
	"context"
	"time"

	"netmond/internal/analysis"
	"netmond/internal/storage"
	"netmond/pkg/logx"
)

// Diagnostic is the complete assessment of one path.
type Diagnostic struct {
	SourceHost string
	DestHost   string
	PathType   string
	Status     string
	LastSeen   time.Time

	// Most recent measurement.
	LatencyAvgMS    float64
	LatencyJitterMS float64
	PacketLossPct   float64
	ThroughputMbps  float64
	TCPRetrans      int64
	Estimated       bool

	// Aggregates over the analysis window.
	SamplesCount      int
	AvgThroughputMbps float64
	MinThroughputMbps float64
	MaxThroughputMbps float64

	Patterns analysis.TimePatterns

	// Trends keyed by metric name ("throughput", "latency").
	Trends map[string]analysis.TrendResult

	Causes          []Cause
	Recommendations []string
}

// Config tunes the diagnostic run.
type Config struct {
	HistoryHours int // analysis window, default 168 (one week)
	Thresholds   Thresholds
	Trend        analysis.TrendConfig
}

// Diagnoser reads the store and runs the engine over one path.
type Diagnoser struct {
	cfg    Config
	store  storage.Store
	engine *Engine
	log    logx.Logger
}

func New(cfg Config, store storage.Store, log logx.Logger) *Diagnoser {
	if cfg.HistoryHours <= 0 {
		cfg.HistoryHours = 168
	}
	return &Diagnoser{
		cfg:    cfg,
		store:  store,
		engine: NewEngine(cfg.Thresholds),
		log:    log,
	}
}

// Diagnose assesses one path. Empty source/dest match the most recent
// path in the store. It returns nil when neither a current state nor
// any history exists.
func (d *Diagnoser) Diagnose(ctx context.Context, source, dest string) (*Diagnostic, error) {
	current, err := d.store.LatestRecord(ctx, source, dest)
	if err != nil {
		return nil, err
	}
	since := time.Now().Add(-time.Duration(d.cfg.HistoryHours) * time.Hour)
	history, err := d.store.RecordsSince(ctx, source, dest, since)
	if err != nil {
		return nil, err
	}
	if current == nil && len(history) == 0 {
		return nil, nil
	}

	diag := &Diagnostic{
		SourceHost: source,
		DestHost:   dest,
		PathType:   "unknown",
		Status:     "no_data",
	}
	if current != nil {
		diag.SourceHost = current.SourceHost
		diag.DestHost = current.DestHost
		diag.PathType = current.PathType
		diag.Status = current.Status
		diag.LastSeen = current.Timestamp
		diag.LatencyAvgMS = current.PingAvgMS
		diag.LatencyJitterMS = current.PingMdevMS
		diag.PacketLossPct = current.PingLossPct
		diag.ThroughputMbps = current.ThroughputMbps
		diag.TCPRetrans = current.TCPRetrans
		diag.Estimated = current.Estimated
	}

	throughputSamples, latencySamples := historySamples(history)
	summarizeThroughput(diag, throughputSamples)

	diag.Patterns = analysis.AnalyzeTimePatterns(throughputSamples)
	diag.Trends = map[string]analysis.TrendResult{
		"throughput": analysis.AnalyzeTrend(throughputSamples, d.cfg.Trend),
		"latency":    analysis.AnalyzeTrend(latencySamples, d.cfg.Trend),
	}

	diag.Causes = d.engine.Causes(current, diag.Trends, diag.Patterns)
	diag.Recommendations = Recommendations(diag.Causes)

	d.log.Debug("diagnostic computed",
		logx.String("dest", diag.DestHost),
		logx.Int("samples", diag.SamplesCount),
		logx.Int("causes", len(diag.Causes)))
	return diag, nil
}

// historySamples extracts trend inputs in chronological order; the
// store returns rows newest first. Zero values are skipped so a failed
// collection does not read as a measurement of zero.
func historySamples(history []storage.PerfRow) (throughput, latency []analysis.Sample) {
	for i := len(history) - 1; i >= 0; i-- {
		row := history[i]
		if row.ThroughputMbps > 0 {
			throughput = append(throughput, analysis.Sample{T: row.Timestamp, V: row.ThroughputMbps})
		}
		if row.PingAvgMS > 0 {
			latency = append(latency, analysis.Sample{T: row.Timestamp, V: row.PingAvgMS})
		}
	}
	return throughput, latency
}

func summarizeThroughput(diag *Diagnostic, samples []analysis.Sample) {
	if len(samples) == 0 {
		return
	}
	diag.SamplesCount = len(samples)
	min, max, sum := samples[0].V, samples[0].V, 0.0
	for _, s := range samples {
		sum += s.V
		if s.V < min {
			min = s.V
		}
		if s.V > max {
			max = s.V
		}
	}
	diag.AvgThroughputMbps = sum / float64(len(samples))
	diag.MinThroughputMbps = min
	diag.MaxThroughputMbps = max
}
