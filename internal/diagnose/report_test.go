package diagnose

import (
	"strings"
	"testing"
	"time"

	"netmond/internal/analysis"
	"netmond/internal/storage"
)

func TestFormatReportSections(t *testing.T) {
	t.Parallel()
	d := &Diagnostic{
		SourceHost:      "node-a",
		DestHost:        "node-b",
		PathType:        "direct",
		Status:          "degraded",
		LastSeen:        time.Date(2026, 3, 2, 14, 0, 0, 0, time.UTC),
		LatencyAvgMS:    72.4,
		LatencyJitterMS: 8.1,
		PacketLossPct:   2.5,
		ThroughputMbps:  84.2,
		Estimated:       true,
		SamplesCount:    32,
		Patterns:        analysis.TimePatterns{BusinessHoursAvg: 80, OffHoursAvg: 120},
		Trends: map[string]analysis.TrendResult{
			"throughput": {Trend: analysis.TrendDecreasing},
			"latency":    {Trend: analysis.TrendStable},
		},
		Causes:          []Cause{{Kind: CauseElevatedLatency, Title: "Elevated Latency", Confidence: ConfidenceMedium, Detail: "72.4ms average latency"}},
		Recommendations: []string{"a", "b", "c", "d", "e", "f", "g", "h"},
	}

	out := FormatReport(d)
	for _, want := range []string{
		"node-a → node-b",
		"Current Metrics",
		"Historical Summary (32 samples)",
		"Time-based Analysis",
		"Trends",
		"Potential Causes",
		"Recommendations",
		"(estimated)",
		"[MEDIUM]",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("report missing %q:\n%s", want, out)
		}
	}

	// Recommendation list is capped at six entries.
	arrow := ansiCyan + "→" + ansiReset
	if got := strings.Count(out, arrow); got != maxReportRecommendations {
		t.Fatalf("recommendation arrows = %d, want %d:\n%s", got, maxReportRecommendations, out)
	}
	if strings.Contains(out, arrow+" g") {
		t.Fatal("recommendations beyond the cap must not render")
	}
}

func TestFormatReportNil(t *testing.T) {
	t.Parallel()
	if out := FormatReport(nil); !strings.Contains(out, "No diagnostic data") {
		t.Fatalf("nil diagnostic report = %q", out)
	}
}

func TestFormatEgressSummary(t *testing.T) {
	t.Parallel()
	rows := []storage.EgressRow{
		{
			Timestamp:     time.Date(2026, 2, 10, 3, 0, 0, 0, time.UTC),
			DownloadMbps:  812.4,
			UploadMbps:    640.1,
			PingMS:        4,
			PacketLossPct: 0.5,
			ServerName:    "ExampleNet",
			ServerCountry: "Germany",
		},
	}
	out := FormatEgressSummary(rows)
	for _, want := range []string{
		"WAN Egress (recent)",
		"812.4 Mbps",
		"640.1 Mbps",
		"loss 0.5%",
		"ExampleNet, Germany",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("egress summary missing %q:\n%s", want, out)
		}
	}
}

func TestFormatEgressSummaryEmpty(t *testing.T) {
	t.Parallel()
	if out := FormatEgressSummary(nil); out != "" {
		t.Fatalf("empty egress summary = %q", out)
	}
}
