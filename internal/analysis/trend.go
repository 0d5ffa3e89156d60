// Package analysis provides windowed time-series analysis over
// collected path metrics: first-derivative trend detection and
// weekday/business-hours partitioning.
package analysis

import (
	"math"
	"time"
)

// Trend is the coarse directional classification of a metric.
type Trend string

const (
	TrendIncreasing Trend = "increasing"
	TrendDecreasing Trend = "decreasing"
	TrendStable     Trend = "stable"
	TrendUnknown    Trend = "unknown"
)

// AlertLevel grades the magnitude of a detected change rate.
type AlertLevel string

const (
	AlertNormal   AlertLevel = "normal"
	AlertWarning  AlertLevel = "warning"
	AlertCritical AlertLevel = "critical"
)

// Sample is one timestamped metric observation.
type Sample struct {
	T time.Time
	V float64
}

// TrendConfig tunes trend detection. Rates are relative to the window
// mean, per hour: a NoiseFraction of 0.01 means the metric has to move
// at least 1% of its mean value per hour before it counts as a trend.
type TrendConfig struct {
	WindowSize    int
	NoiseFraction float64
	WarnFraction  float64
	CritFraction  float64
}

// DefaultTrendConfig matches collection intervals of roughly an hour
// over a one-week lookback.
func DefaultTrendConfig() TrendConfig {
	return TrendConfig{
		WindowSize:    48,
		NoiseFraction: 0.01,
		WarnFraction:  0.05,
		CritFraction:  0.10,
	}
}

// TrendResult summarizes one metric's recent behavior.
type TrendResult struct {
	Current         float64
	Trend           Trend
	FirstDerivative float64 // metric units per hour
	AlertLevel      AlertLevel
}

// AnalyzeTrend computes the first derivative of the most recent
// WindowSize samples via least-squares regression against time and
// classifies it against the noise threshold. Degenerate input (empty,
// one sample, or zero time span) yields an unknown trend, not an error.
func AnalyzeTrend(samples []Sample, cfg TrendConfig) TrendResult {
	if cfg.WindowSize <= 0 {
		cfg.WindowSize = DefaultTrendConfig().WindowSize
	}
	if cfg.NoiseFraction <= 0 {
		cfg.NoiseFraction = DefaultTrendConfig().NoiseFraction
	}
	if cfg.WarnFraction <= 0 {
		cfg.WarnFraction = DefaultTrendConfig().WarnFraction
	}
	if cfg.CritFraction <= 0 {
		cfg.CritFraction = DefaultTrendConfig().CritFraction
	}

	res := TrendResult{Trend: TrendUnknown, AlertLevel: AlertNormal}
	if len(samples) == 0 {
		return res
	}
	if len(samples) > cfg.WindowSize {
		samples = samples[len(samples)-cfg.WindowSize:]
	}
	res.Current = samples[len(samples)-1].V
	if len(samples) < 2 {
		return res
	}

	// Least-squares slope of value against hours since the first sample.
	t0 := samples[0].T
	var sumX, sumY, sumXY, sumXX float64
	for _, s := range samples {
		x := s.T.Sub(t0).Hours()
		sumX += x
		sumY += s.V
		sumXY += x * s.V
		sumXX += x * x
	}
	n := float64(len(samples))
	denom := n*sumXX - sumX*sumX
	if denom == 0 {
		// All samples share one timestamp; no usable time axis.
		return res
	}
	slope := (n*sumXY - sumX*sumY) / denom
	res.FirstDerivative = slope

	mean := sumY / n
	scale := math.Abs(mean)
	if scale == 0 {
		scale = 1
	}
	rel := math.Abs(slope) / scale

	switch {
	case rel <= cfg.NoiseFraction:
		res.Trend = TrendStable
	case slope > 0:
		res.Trend = TrendIncreasing
	default:
		res.Trend = TrendDecreasing
	}

	switch {
	case res.Trend != TrendStable && rel >= cfg.CritFraction:
		res.AlertLevel = AlertCritical
	case res.Trend != TrendStable && rel >= cfg.WarnFraction:
		res.AlertLevel = AlertWarning
	}

	return res
}
