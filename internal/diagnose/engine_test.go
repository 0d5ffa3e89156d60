package diagnose

import (
	"reflect"
	"testing"

	"netmond/internal/analysis"
	"netmond/internal/storage"
)

func kinds(causes []Cause) []CauseKind {
	out := make([]CauseKind, len(causes))
	for i, c := range causes {
		out[i] = c.Kind
	}
	return out
}

func TestCausesNoData(t *testing.T) {
	t.Parallel()
	e := NewEngine(Thresholds{})
	causes := e.Causes(nil, nil, analysis.TimePatterns{})
	if len(causes) != 1 || causes[0].Kind != CauseNoData {
		t.Fatalf("causes = %v, want single no-data cause", kinds(causes))
	}
	if causes[0].Confidence != ConfidenceHigh {
		t.Fatalf("no-data confidence = %q, want high", causes[0].Confidence)
	}
}

func TestCausesMultipleHighConfidence(t *testing.T) {
	t.Parallel()
	e := NewEngine(Thresholds{})
	row := &storage.PerfRow{
		PingLossPct: 7,
		PingAvgMS:   120,
		TCPRetrans:  150,
	}
	causes := e.Causes(row, nil, analysis.TimePatterns{})

	want := []CauseKind{CauseHighPacketLoss, CauseHighLatency, CauseExcessiveRetransmit}
	if !reflect.DeepEqual(kinds(causes), want) {
		t.Fatalf("causes = %v, want %v", kinds(causes), want)
	}
	for _, c := range causes {
		if c.Confidence != ConfidenceHigh {
			t.Fatalf("%s confidence = %q, want high", c.Kind, c.Confidence)
		}
	}
}

func TestCausesElevatedTiers(t *testing.T) {
	t.Parallel()
	e := NewEngine(Thresholds{})
	row := &storage.PerfRow{
		PingLossPct: 3,
		PingAvgMS:   70,
		TCPRetrans:  50,
	}
	causes := e.Causes(row, nil, analysis.TimePatterns{})

	want := []CauseKind{CauseElevatedPacketLoss, CauseElevatedLatency, CauseElevatedRetransmit}
	if !reflect.DeepEqual(kinds(causes), want) {
		t.Fatalf("causes = %v, want %v", kinds(causes), want)
	}
	for _, c := range causes {
		if c.Confidence != ConfidenceMedium {
			t.Fatalf("%s confidence = %q, want medium", c.Kind, c.Confidence)
		}
	}
}

func TestCausesHealthyPath(t *testing.T) {
	t.Parallel()
	e := NewEngine(Thresholds{})
	row := &storage.PerfRow{
		PingLossPct:    0.2,
		PingAvgMS:      0.4,
		PingMdevMS:     0.1,
		ThroughputMbps: 940,
	}
	causes := e.Causes(row, nil, analysis.TimePatterns{})
	if len(causes) != 1 || causes[0].Kind != CauseNone {
		t.Fatalf("causes = %v, want single none cause", kinds(causes))
	}
	if causes[0].Confidence != ConfidenceLow {
		t.Fatalf("none confidence = %q, want low", causes[0].Confidence)
	}
}

func TestCausesBusinessCongestionTiers(t *testing.T) {
	t.Parallel()
	e := NewEngine(Thresholds{})
	healthy := &storage.PerfRow{PingAvgMS: 0.4, ThroughputMbps: 900}

	// 40% drop during business hours.
	heavy := analysis.TimePatterns{BusinessHoursAvg: 600, OffHoursAvg: 1000}
	causes := e.Causes(healthy, nil, heavy)
	if len(causes) != 1 || causes[0].Kind != CauseBusinessCongestion {
		t.Fatalf("heavy drop causes = %v, want congestion", kinds(causes))
	}

	// 20% drop: mild tier.
	mild := analysis.TimePatterns{BusinessHoursAvg: 800, OffHoursAvg: 1000}
	causes = e.Causes(healthy, nil, mild)
	if len(causes) != 1 || causes[0].Kind != CauseMildBusinessImpact {
		t.Fatalf("mild drop causes = %v, want mild impact", kinds(causes))
	}

	// 10% drop: below both tiers.
	small := analysis.TimePatterns{BusinessHoursAvg: 900, OffHoursAvg: 1000}
	causes = e.Causes(healthy, nil, small)
	if len(causes) != 1 || causes[0].Kind != CauseNone {
		t.Fatalf("small drop causes = %v, want none", kinds(causes))
	}
}

func TestCausesTrends(t *testing.T) {
	t.Parallel()
	e := NewEngine(Thresholds{})
	healthy := &storage.PerfRow{PingAvgMS: 0.4, ThroughputMbps: 900}
	trends := map[string]analysis.TrendResult{
		"throughput": {Trend: analysis.TrendDecreasing},
		"latency":    {Trend: analysis.TrendIncreasing},
	}
	causes := e.Causes(healthy, trends, analysis.TimePatterns{})
	want := []CauseKind{CauseDecliningThroughput, CauseIncreasingLatency}
	if !reflect.DeepEqual(kinds(causes), want) {
		t.Fatalf("causes = %v, want %v", kinds(causes), want)
	}
}

func TestCausesZeroThroughputNotLow(t *testing.T) {
	t.Parallel()
	// Missing throughput must not trigger the low-throughput cause.
	e := NewEngine(Thresholds{})
	row := &storage.PerfRow{PingAvgMS: 0.4, ThroughputMbps: 0}
	causes := e.Causes(row, nil, analysis.TimePatterns{})
	if len(causes) != 1 || causes[0].Kind != CauseNone {
		t.Fatalf("causes = %v, want none", kinds(causes))
	}
}

func TestCausesIdempotent(t *testing.T) {
	t.Parallel()
	e := NewEngine(Thresholds{})
	row := &storage.PerfRow{PingLossPct: 7, PingAvgMS: 120, TCPRetrans: 150}

	first := e.Causes(row, nil, analysis.TimePatterns{})
	second := e.Causes(row, nil, analysis.TimePatterns{})
	if !reflect.DeepEqual(first, second) {
		t.Fatal("same evidence must produce identical causes")
	}
}

func TestRecommendationsDeduped(t *testing.T) {
	t.Parallel()
	// High loss and excessive retransmits share no steps, but two loss
	// tiers would: feed both and expect each step once, in first-seen
	// order.
	causes := []Cause{
		{Kind: CauseHighPacketLoss},
		{Kind: CauseElevatedPacketLoss},
		{Kind: CauseExcessiveRetransmit},
	}
	recs := Recommendations(causes)

	seen := map[string]int{}
	for _, r := range recs {
		seen[r]++
	}
	for r, n := range seen {
		if n > 1 {
			t.Fatalf("recommendation %q appears %d times", r, n)
		}
	}
	if recs[0] != recommendationTable[CauseHighPacketLoss][0] {
		t.Fatalf("first rec = %q, want first packet-loss step", recs[0])
	}
	wantLen := len(recommendationTable[CauseHighPacketLoss]) + len(recommendationTable[CauseExcessiveRetransmit])
	if len(recs) != wantLen {
		t.Fatalf("recs = %d, want %d after dedup", len(recs), wantLen)
	}
}

func TestRecommendationsLatencyTrend(t *testing.T) {
	t.Parallel()
	// A worsening latency trend is a flagged degradation; it must get
	// the latency remediation steps, not the healthy placeholder.
	recs := Recommendations([]Cause{{Kind: CauseIncreasingLatency}})
	if !reflect.DeepEqual(recs, recommendationTable[CauseHighLatency]) {
		t.Fatalf("recs = %v, want latency steps", recs)
	}

	// A throughput trend alone carries no steps of its own.
	recs = Recommendations([]Cause{{Kind: CauseDecliningThroughput}})
	if len(recs) != 1 {
		t.Fatalf("recs = %v, want single placeholder", recs)
	}
}

func TestRecommendationsHealthyPlaceholder(t *testing.T) {
	t.Parallel()
	recs := Recommendations([]Cause{{Kind: CauseNone}})
	if len(recs) != 1 {
		t.Fatalf("recs = %v, want single placeholder", recs)
	}
}

func TestThresholdOverrides(t *testing.T) {
	t.Parallel()
	// Loosen the latency tiers; 120ms should now only be elevated.
	e := NewEngine(Thresholds{LatencyHighMS: 200, LatencyElevatedMS: 100})
	row := &storage.PerfRow{PingAvgMS: 120}
	causes := e.Causes(row, nil, analysis.TimePatterns{})
	if len(causes) != 1 || causes[0].Kind != CauseElevatedLatency {
		t.Fatalf("causes = %v, want elevated latency only", kinds(causes))
	}
}
