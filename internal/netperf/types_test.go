package netperf

import "testing"

func TestDeriveStatus(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		rec  Record
		want Status
	}{
		{
			name: "healthy",
			rec: Record{
				Probed: true,
				Ping:   PingStats{AvgMS: 0.5, MdevMS: 0.1, LossPct: 0},
				Hot:    &ThroughputStats{RateMbps: 900},
			},
			want: StatusHealthy,
		},
		{
			name: "healthy without throughput phase",
			rec: Record{
				Probed: true,
				Ping:   PingStats{AvgMS: 10, MdevMS: 2, LossPct: 0.5},
			},
			want: StatusHealthy,
		},
		{
			name: "degraded on elevated latency",
			rec: Record{
				Probed: true,
				Ping:   PingStats{AvgMS: 75, MdevMS: 5, LossPct: 0},
			},
			want: StatusDegraded,
		},
		{
			name: "degraded on slow hot throughput",
			rec: Record{
				Probed: true,
				Ping:   PingStats{AvgMS: 1, MdevMS: 0.2, LossPct: 0},
				Hot:    &ThroughputStats{RateMbps: 80},
			},
			want: StatusDegraded,
		},
		{
			name: "degraded on jitter",
			rec: Record{
				Probed: true,
				Ping:   PingStats{AvgMS: 5, MdevMS: 25, LossPct: 0},
			},
			want: StatusDegraded,
		},
		{
			name: "error on heavy loss",
			rec: Record{
				Probed: true,
				Ping:   PingStats{AvgMS: 5, MdevMS: 1, LossPct: 12},
			},
			want: StatusError,
		},
		{
			name: "error on probe failure sentinel",
			rec: Record{
				Probed: true,
				Ping:   PingStats{LossPct: 100},
			},
			want: StatusError,
		},
		{
			name: "error when never probed",
			rec:  Record{},
			want: StatusError,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.rec.DeriveStatus(); got != tt.want {
				t.Fatalf("DeriveStatus() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestHealthyBoundaries(t *testing.T) {
	t.Parallel()
	// Exactly at the limits still counts as healthy.
	rec := Record{
		Probed: true,
		Ping:   PingStats{AvgMS: 50, MdevMS: 20, LossPct: 1},
		Hot:    &ThroughputStats{RateMbps: 100},
	}
	if !rec.IsHealthy() {
		t.Fatal("record at exact thresholds should be healthy")
	}
	rec.Ping.AvgMS = 50.01
	if rec.IsHealthy() {
		t.Fatal("record just over latency threshold should not be healthy")
	}
}

func TestBestThroughputPrefersHot(t *testing.T) {
	t.Parallel()
	cold := &ThroughputStats{RateMbps: 400}
	hot := &ThroughputStats{RateMbps: 900}
	write := &ThroughputStats{RateMbps: 300}

	rec := Record{Cold: cold, Hot: hot, Write: write}
	if got := rec.BestThroughput(); got != hot {
		t.Fatalf("BestThroughput() = %v, want hot phase", got)
	}
	rec.Hot = nil
	if got := rec.BestThroughput(); got != cold {
		t.Fatalf("BestThroughput() = %v, want cold phase", got)
	}
	rec.Cold = nil
	if got := rec.BestThroughput(); got != write {
		t.Fatalf("BestThroughput() = %v, want write phase", got)
	}
	rec.Write = nil
	if got := rec.BestThroughput(); got != nil {
		t.Fatalf("BestThroughput() = %v, want nil", got)
	}
}

func TestAverageThroughput(t *testing.T) {
	t.Parallel()
	runs := []ThroughputStats{
		{BytesTransferred: 10, RateMbps: 100, DurationSec: 1},
		{BytesTransferred: 11, RateMbps: 200, DurationSec: 2},
		{BytesTransferred: 12, RateMbps: 300, DurationSec: 3},
	}
	avg := AverageThroughput(runs)
	if avg == nil {
		t.Fatal("AverageThroughput returned nil for non-empty runs")
	}
	if avg.BytesTransferred != 11 {
		t.Fatalf("BytesTransferred = %d, want 11", avg.BytesTransferred)
	}
	if avg.RateMbps != 200 {
		t.Fatalf("RateMbps = %v, want 200", avg.RateMbps)
	}
	if avg.DurationSec != 2 {
		t.Fatalf("DurationSec = %v, want 2", avg.DurationSec)
	}
	if avg.Estimated {
		t.Fatal("Estimated should be false when no run is estimated")
	}

	runs[1].Estimated = true
	if avg := AverageThroughput(runs); !avg.Estimated {
		t.Fatal("Estimated should propagate from any run")
	}

	if AverageThroughput(nil) != nil {
		t.Fatal("AverageThroughput(nil) should be nil")
	}
}

func TestParsePathType(t *testing.T) {
	t.Parallel()
	tests := []struct {
		in   string
		want PathType
	}{
		{"direct", PathDirect},
		{"SWITCH", PathSwitch},
		{"nfs", PathNFS},
		{" Direct ", PathDirect},
		{"", PathUnknown},
		{"bogus", PathUnknown},
	}
	for _, tt := range tests {
		if got := ParsePathType(tt.in); got != tt.want {
			t.Fatalf("ParsePathType(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestPingFailedSentinel(t *testing.T) {
	t.Parallel()
	p := PingStats{LossPct: 100}
	if !p.Failed() {
		t.Fatal("LossPct=100 should report failure")
	}
	if (PingStats{LossPct: 99}).Failed() {
		t.Fatal("LossPct=99 should not report failure")
	}
}
