package diagnose

import (
	"fmt"

	"netmond/internal/analysis"
	"netmond/internal/storage"
)

// CauseKind identifies one condition the engine can flag. Downstream
// consumers switch on the kind, never on display text.
type CauseKind string

const (
	CauseNoData              CauseKind = "no_data"
	CauseHighPacketLoss      CauseKind = "high_packet_loss"
	CauseElevatedPacketLoss  CauseKind = "elevated_packet_loss"
	CauseHighLatency         CauseKind = "high_latency"
	CauseElevatedLatency     CauseKind = "elevated_latency"
	CauseHighJitter          CauseKind = "high_jitter"
	CauseExcessiveRetransmit CauseKind = "excessive_retransmits"
	CauseElevatedRetransmit  CauseKind = "elevated_retransmits"
	CauseLowThroughput       CauseKind = "low_throughput"
	CauseBusinessCongestion  CauseKind = "business_hours_congestion"
	CauseMildBusinessImpact  CauseKind = "mild_business_hours_impact"
	CauseDecliningThroughput CauseKind = "declining_throughput_trend"
	CauseIncreasingLatency   CauseKind = "increasing_latency_trend"
	CauseNone                CauseKind = "none"
)

// Confidence grades how strongly the evidence supports a cause.
type Confidence string

const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
)

// Cause is one flagged condition with its supporting detail.
type Cause struct {
	Kind       CauseKind
	Title      string
	Confidence Confidence
	Detail     string
}

// Thresholds are the trigger levels for cause detection. Zero values
// take the documented defaults via withDefaults.
type Thresholds struct {
	LossHighPct     float64 // 5
	LossElevatedPct float64 // 1

	LatencyHighMS     float64 // 100
	LatencyElevatedMS float64 // 50

	JitterHighMS float64 // 20

	RetransHigh     int64 // 100
	RetransElevated int64 // 10

	ThroughputLowMbps float64 // 100

	// Business-hours throughput drop relative to off-hours.
	BusinessDropHigh float64 // 0.30
	BusinessDropMild float64 // 0.15
}

func (t Thresholds) withDefaults() Thresholds {
	if t.LossHighPct <= 0 {
		t.LossHighPct = 5
	}
	if t.LossElevatedPct <= 0 {
		t.LossElevatedPct = 1
	}
	if t.LatencyHighMS <= 0 {
		t.LatencyHighMS = 100
	}
	if t.LatencyElevatedMS <= 0 {
		t.LatencyElevatedMS = 50
	}
	if t.JitterHighMS <= 0 {
		t.JitterHighMS = 20
	}
	if t.RetransHigh <= 0 {
		t.RetransHigh = 100
	}
	if t.RetransElevated <= 0 {
		t.RetransElevated = 10
	}
	if t.ThroughputLowMbps <= 0 {
		t.ThroughputLowMbps = 100
	}
	if t.BusinessDropHigh <= 0 {
		t.BusinessDropHigh = 0.30
	}
	if t.BusinessDropMild <= 0 {
		t.BusinessDropMild = 0.15
	}
	return t
}

// Engine evaluates one path's evidence against the thresholds. It is a
// pure function of its inputs: same evidence, same causes.
type Engine struct {
	t Thresholds
}

func NewEngine(t Thresholds) *Engine {
	return &Engine{t: t.withDefaults()}
}

// Causes flags every condition the evidence supports, in a fixed
// evaluation order (loss, latency, jitter, retransmits, throughput,
// congestion, trends). A nil current row yields a single no-data cause;
// no triggered condition yields a single low-confidence "none".
func (e *Engine) Causes(current *storage.PerfRow, trends map[string]analysis.TrendResult, patterns analysis.TimePatterns) []Cause {
	if current == nil {
		return []Cause{{
			Kind:       CauseNoData,
			Title:      "No network data available",
			Confidence: ConfidenceHigh,
			Detail:     "No recent measurements found for this path",
		}}
	}

	var causes []Cause
	add := func(kind CauseKind, title string, conf Confidence, detail string) {
		causes = append(causes, Cause{Kind: kind, Title: title, Confidence: conf, Detail: detail})
	}

	switch loss := current.PingLossPct; {
	case loss > e.t.LossHighPct:
		add(CauseHighPacketLoss, "High Packet Loss", ConfidenceHigh,
			fmt.Sprintf("%.1f%% packet loss indicates network instability", loss))
	case loss > e.t.LossElevatedPct:
		add(CauseElevatedPacketLoss, "Elevated Packet Loss", ConfidenceMedium,
			fmt.Sprintf("%.1f%% packet loss, minor network issues", loss))
	}

	switch lat := current.PingAvgMS; {
	case lat > e.t.LatencyHighMS:
		add(CauseHighLatency, "High Latency", ConfidenceHigh,
			fmt.Sprintf("%.1fms average latency significantly impacts performance", lat))
	case lat > e.t.LatencyElevatedMS:
		add(CauseElevatedLatency, "Elevated Latency", ConfidenceMedium,
			fmt.Sprintf("%.1fms average latency", lat))
	}

	if jitter := current.PingMdevMS; jitter > e.t.JitterHighMS {
		add(CauseHighJitter, "High Jitter", ConfidenceHigh,
			fmt.Sprintf("%.1fms jitter indicates network congestion or instability", jitter))
	}

	switch retrans := current.TCPRetrans; {
	case retrans > e.t.RetransHigh:
		add(CauseExcessiveRetransmit, "Excessive TCP Retransmits", ConfidenceHigh,
			fmt.Sprintf("%d retransmits, significant packet loss or corruption", retrans))
	case retrans > e.t.RetransElevated:
		add(CauseElevatedRetransmit, "Elevated TCP Retransmits", ConfidenceMedium,
			fmt.Sprintf("%d retransmits", retrans))
	}

	if tp := current.ThroughputMbps; tp > 0 && tp < e.t.ThroughputLowMbps {
		add(CauseLowThroughput, "Low Throughput", ConfidenceMedium,
			fmt.Sprintf("%.1f Mbps, below expected performance", tp))
	}

	if biz, off := patterns.BusinessHoursAvg, patterns.OffHoursAvg; biz > 0 && off > 0 {
		drop := 1 - biz/off
		switch {
		case drop >= e.t.BusinessDropHigh:
			add(CauseBusinessCongestion, "Business Hours Congestion", ConfidenceHigh,
				fmt.Sprintf("%.0f%% throughput drop during 9am-5pm weekdays", drop*100))
		case drop >= e.t.BusinessDropMild:
			add(CauseMildBusinessImpact, "Mild Business Hours Impact", ConfidenceMedium,
				fmt.Sprintf("%.0f%% throughput drop during business hours", drop*100))
		}
	}

	if trends["throughput"].Trend == analysis.TrendDecreasing {
		add(CauseDecliningThroughput, "Declining Throughput Trend", ConfidenceMedium,
			"Throughput has been decreasing over time")
	}
	if trends["latency"].Trend == analysis.TrendIncreasing {
		add(CauseIncreasingLatency, "Increasing Latency Trend", ConfidenceMedium,
			"Latency has been increasing over time")
	}

	if len(causes) == 0 {
		add(CauseNone, "No obvious issues detected", ConfidenceLow,
			"Network path appears healthy")
	}
	return causes
}

// recommendationTable maps each cause kind to its actionable steps.
// Keyed on the kind so wording changes never break the mapping.
var recommendationTable = map[CauseKind][]string{
	CauseHighPacketLoss: {
		"Check cable connections and switch ports",
		"Verify switch port error counters: show interface counters errors",
		"Test with different cables or ports",
	},
	CauseHighLatency: {
		"Check for routing changes: traceroute <dest>",
		"Verify no bandwidth-heavy processes running",
		"Check switch/router CPU utilization",
	},
	CauseHighJitter: {
		"Network jitter often indicates congestion",
		"Check for broadcast storms or network loops",
		"Consider QoS policies for critical traffic",
	},
	CauseExcessiveRetransmit: {
		"TCP retransmits indicate packet loss",
		"Check for duplex mismatch: ethtool <interface>",
		"Verify MTU settings match across path",
	},
	CauseBusinessCongestion: {
		"Consider dedicated network path for bulk compute traffic",
		"Evaluate traffic shaping or QoS policies",
		"Schedule large transfers for off-hours",
		"Document congestion pattern for infrastructure upgrade proposal",
	},
	CauseLowThroughput: {
		"Run iperf3 test to isolate bottleneck: iperf3 -c <dest>",
		"Check NIC link speed: ethtool <interface>",
		"Verify no half-duplex links in path",
	},
}

func init() {
	// Elevated tiers share the remediation steps of their high tier;
	// a worsening latency trend gets the same steps as high latency.
	recommendationTable[CauseElevatedPacketLoss] = recommendationTable[CauseHighPacketLoss]
	recommendationTable[CauseElevatedLatency] = recommendationTable[CauseHighLatency]
	recommendationTable[CauseIncreasingLatency] = recommendationTable[CauseHighLatency]
	recommendationTable[CauseElevatedRetransmit] = recommendationTable[CauseExcessiveRetransmit]
	recommendationTable[CauseMildBusinessImpact] = recommendationTable[CauseBusinessCongestion]
}

// Recommendations flattens the causes into actionable steps, deduped
// while preserving first-seen order. Causes without remediation steps
// (throughput trend, no-data) contribute nothing; an empty result gets
// the healthy placeholder.
func Recommendations(causes []Cause) []string {
	var out []string
	seen := make(map[string]struct{})
	for _, c := range causes {
		for _, rec := range recommendationTable[c.Kind] {
			if _, ok := seen[rec]; ok {
				continue
			}
			seen[rec] = struct{}{}
			out = append(out, rec)
		}
	}
	if len(out) == 0 {
		out = append(out, "Network appears healthy - no action required")
	}
	return out
}
