package diagnose

import (
	"fmt"
	"strings"

	"netmond/internal/analysis"
	"netmond/internal/storage"
)

// ANSI escape sequences used by the terminal report.
const (
	ansiReset  = "\033[0m"
	ansiBold   = "\033[1m"
	ansiRed    = "\033[91m"
	ansiGreen  = "\033[92m"
	ansiYellow = "\033[93m"
	ansiCyan   = "\033[96m"
	ansiGray   = "\033[90m"
)

const ruleWidth = 56

// maxReportRecommendations caps the report's action list; the full
// list stays on the Diagnostic.
const maxReportRecommendations = 6

func colorize(color, s string) string { return color + s + ansiReset }

func rule() string { return "  " + strings.Repeat("─", ruleWidth) }

func section(b *strings.Builder, title string) {
	fmt.Fprintf(b, "\n  %s\n%s\n", colorize(ansiBold, title), rule())
}

// FormatReport renders the diagnostic as ANSI-colored terminal text.
func FormatReport(d *Diagnostic) string {
	if d == nil {
		return "  No diagnostic data available.\n"
	}

	var b strings.Builder

	path := fmt.Sprintf("%s → %s", d.SourceHost, d.DestHost)
	fmt.Fprintf(&b, "\n  %s — %s\n", colorize(ansiBold, "Network Path Diagnostic"), colorize(ansiCyan, path))
	fmt.Fprintf(&b, "  Path type: %s\n%s\n", d.PathType, rule())

	fmt.Fprintf(&b, "\n  %s %s\n", colorize(ansiBold, "Status:"), colorize(statusColor(d.Status), d.Status))
	if !d.LastSeen.IsZero() {
		fmt.Fprintf(&b, "  %s %s\n", colorize(ansiBold, "Last Test:"), d.LastSeen.Format("2006-01-02 15:04:05"))
	}

	section(&b, "Current Metrics")
	latColor := grade(d.LatencyAvgMS, 50, 20)
	fmt.Fprintf(&b, "    Latency:      %s (jitter: %.1f ms)\n",
		colorize(latColor, fmt.Sprintf("%.1f ms", d.LatencyAvgMS)), d.LatencyJitterMS)

	lossColor := ansiGreen
	if d.PacketLossPct > 1 {
		lossColor = ansiRed
	}
	fmt.Fprintf(&b, "    Packet Loss:  %s\n", colorize(lossColor, fmt.Sprintf("%.1f%%", d.PacketLossPct)))

	if d.ThroughputMbps > 0 {
		tpColor := gradeInverse(d.ThroughputMbps, 500, 100)
		label := fmt.Sprintf("%.1f Mbps", d.ThroughputMbps)
		if d.Estimated {
			label += " (estimated)"
		}
		fmt.Fprintf(&b, "    Throughput:   %s\n", colorize(tpColor, label))
	}
	if d.TCPRetrans > 0 {
		retColor := grade(float64(d.TCPRetrans), 50, 10)
		fmt.Fprintf(&b, "    Retransmits:  %s\n", colorize(retColor, fmt.Sprintf("%d", d.TCPRetrans)))
	}

	if d.SamplesCount > 0 {
		section(&b, fmt.Sprintf("Historical Summary (%d samples)", d.SamplesCount))
		fmt.Fprintf(&b, "    Avg Throughput:  %.1f Mbps\n", d.AvgThroughputMbps)
		fmt.Fprintf(&b, "    Min/Max:         %.1f / %.1f Mbps\n", d.MinThroughputMbps, d.MaxThroughputMbps)
	}

	writeTimePatterns(&b, d.Patterns)
	writeTrends(&b, d.Trends)

	section(&b, "Potential Causes")
	for _, c := range d.Causes {
		fmt.Fprintf(&b, "    %s %s\n", colorize(confidenceColor(c.Confidence),
			"["+strings.ToUpper(string(c.Confidence))+"]"), c.Title)
		fmt.Fprintf(&b, "           %s\n", colorize(ansiGray, c.Detail))
	}

	section(&b, "Recommendations")
	recs := d.Recommendations
	if len(recs) > maxReportRecommendations {
		recs = recs[:maxReportRecommendations]
	}
	for _, rec := range recs {
		fmt.Fprintf(&b, "    %s %s\n", colorize(ansiCyan, "→"), rec)
	}

	b.WriteString("\n")
	return b.String()
}

// FormatEgressSummary renders recent WAN egress measurements in the
// same terminal style as the path reports.
func FormatEgressSummary(rows []storage.EgressRow) string {
	if len(rows) == 0 {
		return ""
	}

	var b strings.Builder
	section(&b, "WAN Egress (recent)")
	for _, r := range rows {
		server := r.ServerName
		if r.ServerCountry != "" {
			server += ", " + r.ServerCountry
		}
		fmt.Fprintf(&b, "    %s  ↓ %s  ↑ %s  ping %.0f ms",
			r.Timestamp.Format("2006-01-02 15:04"),
			colorize(gradeInverse(r.DownloadMbps, 500, 100), fmt.Sprintf("%.1f Mbps", r.DownloadMbps)),
			colorize(gradeInverse(r.UploadMbps, 500, 100), fmt.Sprintf("%.1f Mbps", r.UploadMbps)),
			r.PingMS)
		if r.PacketLossPct > 0 {
			fmt.Fprintf(&b, "  loss %.1f%%", r.PacketLossPct)
		}
		if server != "" {
			fmt.Fprintf(&b, "  %s", colorize(ansiGray, "("+server+")"))
		}
		b.WriteString("\n")
	}
	b.WriteString("\n")
	return b.String()
}

func writeTimePatterns(b *strings.Builder, p analysis.TimePatterns) {
	if p.BusinessHoursAvg == 0 && p.OffHoursAvg == 0 {
		return
	}
	section(b, "Time-based Analysis")

	if p.WeekdayAvg > 0 && p.WeekendAvg > 0 {
		fmt.Fprintf(b, "    Weekday Avg:      %.1f Mbps\n", p.WeekdayAvg)
		fmt.Fprintf(b, "    Weekend Avg:      %.1f Mbps\n", p.WeekendAvg)
	}
	if p.BusinessHoursAvg > 0 && p.OffHoursAvg > 0 {
		dropPct := (p.OffHoursAvg - p.BusinessHoursAvg) / p.OffHoursAvg * 100
		bizColor := ansiGreen
		if dropPct > 20 {
			bizColor = ansiRed
		} else if dropPct > 10 {
			bizColor = ansiYellow
		}
		fmt.Fprintf(b, "    Business Hours:   %s\n",
			colorize(bizColor, fmt.Sprintf("%.1f Mbps", p.BusinessHoursAvg)))
		fmt.Fprintf(b, "    Off Hours:        %.1f Mbps\n", p.OffHoursAvg)
		if dropPct > 5 {
			fmt.Fprintf(b, "    %s\n", colorize(ansiYellow,
				fmt.Sprintf("↓ %.0f%% drop during business hours", dropPct)))
		}
	}
}

func writeTrends(b *strings.Builder, trends map[string]analysis.TrendResult) {
	if len(trends) == 0 {
		return
	}
	section(b, "Trends")
	// Fixed order: throughput first, then latency.
	labels := map[string]string{"throughput": "Throughput", "latency": "Latency"}
	for _, name := range []string{"throughput", "latency"} {
		tr, ok := trends[name]
		if !ok {
			continue
		}
		color := ansiGray
		switch {
		case name == "throughput" && tr.Trend == analysis.TrendDecreasing,
			name == "latency" && tr.Trend == analysis.TrendIncreasing:
			color = ansiRed
		case name == "throughput" && tr.Trend == analysis.TrendIncreasing,
			name == "latency" && tr.Trend == analysis.TrendDecreasing:
			color = ansiGreen
		}
		fmt.Fprintf(b, "    %-12s %s\n", labels[name], colorize(color, string(tr.Trend)))
	}
}

func statusColor(status string) string {
	switch status {
	case "healthy":
		return ansiGreen
	case "degraded":
		return ansiYellow
	default:
		return ansiRed
	}
}

// grade colors a metric where higher is worse.
func grade(v, redAt, yellowAt float64) string {
	switch {
	case v > redAt:
		return ansiRed
	case v > yellowAt:
		return ansiYellow
	default:
		return ansiGreen
	}
}

// gradeInverse colors a metric where lower is worse.
func gradeInverse(v, greenAt, yellowAt float64) string {
	switch {
	case v > greenAt:
		return ansiGreen
	case v > yellowAt:
		return ansiYellow
	default:
		return ansiRed
	}
}

func confidenceColor(c Confidence) string {
	switch c {
	case ConfidenceHigh:
		return ansiRed
	case ConfidenceMedium:
		return ansiYellow
	default:
		return ansiGray
	}
}
