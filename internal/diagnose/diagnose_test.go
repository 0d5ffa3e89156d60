package diagnose

import (
	"context"
	"testing"
	"time"

	"netmond/internal/analysis"
	"netmond/internal/netperf"
	"netmond/internal/storage"
	"netmond/pkg/logx"
)

// stubStore serves canned rows; only the read paths matter here.
type stubStore struct {
	latest  *storage.PerfRow
	history []storage.PerfRow
}

func (s *stubStore) InsertRecord(context.Context, netperf.Record) error { return nil }
func (s *stubStore) LatestRecord(context.Context, string, string) (*storage.PerfRow, error) {
	return s.latest, nil
}
func (s *stubStore) RecordsSince(context.Context, string, string, time.Time) ([]storage.PerfRow, error) {
	return s.history, nil
}
func (s *stubStore) PruneBefore(context.Context, time.Time) (int64, error) { return 0, nil }
func (s *stubStore) InsertEgress(context.Context, storage.EgressRow) error { return nil }
func (s *stubStore) RecentEgress(context.Context, int) ([]storage.EgressRow, error) {
	return nil, nil
}
func (s *stubStore) Close() error { return nil }

func TestDiagnoseNoData(t *testing.T) {
	t.Parallel()
	d := New(Config{}, &stubStore{}, logx.Nop())
	diag, err := d.Diagnose(context.Background(), "node-a", "node-b")
	if err != nil {
		t.Fatalf("Diagnose: %v", err)
	}
	if diag != nil {
		t.Fatalf("diag = %+v, want nil without state or history", diag)
	}
}

func TestDiagnoseAggregates(t *testing.T) {
	t.Parallel()
	now := time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC) // Monday noon

	latest := &storage.PerfRow{
		Timestamp:      now,
		SourceHost:     "node-a",
		DestHost:       "node-b",
		PathType:       "direct",
		Status:         "degraded",
		PingAvgMS:      60,
		PingMdevMS:     4,
		PingLossPct:    0.5,
		ThroughputMbps: 300,
		TCPRetrans:     5,
	}
	// Newest first, as the store returns them. Throughput halves over
	// three hours: a clear decline once re-ordered chronologically.
	history := []storage.PerfRow{
		{Timestamp: now, ThroughputMbps: 300, PingAvgMS: 60},
		{Timestamp: now.Add(-1 * time.Hour), ThroughputMbps: 450, PingAvgMS: 40},
		{Timestamp: now.Add(-2 * time.Hour), ThroughputMbps: 600, PingAvgMS: 20},
	}

	d := New(Config{}, &stubStore{latest: latest, history: history}, logx.Nop())
	diag, err := d.Diagnose(context.Background(), "node-a", "node-b")
	if err != nil {
		t.Fatalf("Diagnose: %v", err)
	}
	if diag == nil {
		t.Fatal("diag = nil, want populated diagnostic")
	}

	if diag.Status != "degraded" || diag.LatencyAvgMS != 60 {
		t.Fatalf("current snapshot not carried over: %+v", diag)
	}
	if diag.SamplesCount != 3 {
		t.Fatalf("SamplesCount = %d, want 3", diag.SamplesCount)
	}
	if diag.MinThroughputMbps != 300 || diag.MaxThroughputMbps != 600 {
		t.Fatalf("min/max = %v/%v, want 300/600", diag.MinThroughputMbps, diag.MaxThroughputMbps)
	}
	if diag.AvgThroughputMbps != 450 {
		t.Fatalf("avg = %v, want 450", diag.AvgThroughputMbps)
	}

	if tr := diag.Trends["throughput"]; tr.Trend != analysis.TrendDecreasing {
		t.Fatalf("throughput trend = %q, want decreasing", tr.Trend)
	}
	if tr := diag.Trends["latency"]; tr.Trend != analysis.TrendIncreasing {
		t.Fatalf("latency trend = %q, want increasing", tr.Trend)
	}
	if tr := diag.Trends["throughput"]; tr.Current != 300 {
		t.Fatalf("trend current = %v, want most recent value 300", tr.Current)
	}

	// Elevated latency plus both trend causes.
	want := []CauseKind{CauseElevatedLatency, CauseDecliningThroughput, CauseIncreasingLatency}
	got := kinds(diag.Causes)
	if len(got) != len(want) {
		t.Fatalf("causes = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("causes = %v, want %v", got, want)
		}
	}
	if len(diag.Recommendations) == 0 {
		t.Fatal("expected recommendations for flagged causes")
	}
}

func TestDiagnoseHistoryOnly(t *testing.T) {
	t.Parallel()
	history := []storage.PerfRow{
		{Timestamp: time.Now(), ThroughputMbps: 500, PingAvgMS: 1},
	}
	d := New(Config{}, &stubStore{history: history}, logx.Nop())
	diag, err := d.Diagnose(context.Background(), "", "")
	if err != nil {
		t.Fatalf("Diagnose: %v", err)
	}
	if diag == nil {
		t.Fatal("diag = nil, want history-only diagnostic")
	}
	if diag.Status != "no_data" {
		t.Fatalf("Status = %q, want no_data without a current row", diag.Status)
	}
	if len(diag.Causes) != 1 || diag.Causes[0].Kind != CauseNoData {
		t.Fatalf("causes = %v, want no-data", kinds(diag.Causes))
	}
}
