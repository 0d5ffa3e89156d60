package analysis

import (
	"testing"
	"time"
)

func hourlySamples(start time.Time, values []float64) []Sample {
	out := make([]Sample, len(values))
	for i, v := range values {
		out[i] = Sample{T: start.Add(time.Duration(i) * time.Hour), V: v}
	}
	return out
}

func TestAnalyzeTrendDirections(t *testing.T) {
	t.Parallel()
	start := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name   string
		values []float64
		want   Trend
	}{
		{"increasing", []float64{100, 120, 140, 160, 180}, TrendIncreasing},
		{"decreasing", []float64{180, 160, 140, 120, 100}, TrendDecreasing},
		{"stable", []float64{150, 150.1, 149.9, 150, 150.05}, TrendStable},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			got := AnalyzeTrend(hourlySamples(start, tt.values), TrendConfig{})
			if got.Trend != tt.want {
				t.Fatalf("Trend = %q, want %q (derivative %v)", got.Trend, tt.want, got.FirstDerivative)
			}
			if got.Current != tt.values[len(tt.values)-1] {
				t.Fatalf("Current = %v, want %v", got.Current, tt.values[len(tt.values)-1])
			}
		})
	}
}

func TestAnalyzeTrendDegenerateInput(t *testing.T) {
	t.Parallel()
	if got := AnalyzeTrend(nil, TrendConfig{}); got.Trend != TrendUnknown {
		t.Fatalf("empty input: Trend = %q, want unknown", got.Trend)
	}

	one := []Sample{{T: time.Now(), V: 42}}
	got := AnalyzeTrend(one, TrendConfig{})
	if got.Trend != TrendUnknown || got.Current != 42 {
		t.Fatalf("single sample: got %+v", got)
	}

	// All samples at one instant: no usable time axis.
	now := time.Now()
	same := []Sample{{T: now, V: 1}, {T: now, V: 2}, {T: now, V: 3}}
	if got := AnalyzeTrend(same, TrendConfig{}); got.Trend != TrendUnknown {
		t.Fatalf("zero time span: Trend = %q, want unknown", got.Trend)
	}
}

func TestAnalyzeTrendWindowing(t *testing.T) {
	t.Parallel()
	start := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)

	// Old decline followed by a strong recent climb; a window of 5 must
	// only see the climb.
	values := []float64{500, 400, 300, 200, 100, 100, 150, 200, 250, 300}
	got := AnalyzeTrend(hourlySamples(start, values), TrendConfig{WindowSize: 5})
	if got.Trend != TrendIncreasing {
		t.Fatalf("windowed Trend = %q, want increasing", got.Trend)
	}
}

func TestAnalyzeTrendAlertLevels(t *testing.T) {
	t.Parallel()
	start := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)

	// ~21% of the mean per hour: well past the critical fraction.
	steep := AnalyzeTrend(hourlySamples(start, []float64{100, 140, 180, 220}), TrendConfig{})
	if steep.AlertLevel != AlertCritical {
		t.Fatalf("steep AlertLevel = %q, want critical", steep.AlertLevel)
	}

	flat := AnalyzeTrend(hourlySamples(start, []float64{100, 100, 100, 100}), TrendConfig{})
	if flat.AlertLevel != AlertNormal {
		t.Fatalf("flat AlertLevel = %q, want normal", flat.AlertLevel)
	}
}
