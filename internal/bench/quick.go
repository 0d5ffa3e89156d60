package bench

import (
	"bytes"
	"context"
	"crypto/rand"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"netmond/internal/netperf"
	"netmond/internal/netprobe"
	"netmond/internal/remote"
	"netmond/pkg/logx"
)

// Quick is the single-shot fallback used when the full phased protocol
// cannot run: iperf3 against the destination when installed, otherwise
// a plain transport stream whose duration is assumed rather than timed
// end-to-end on the remote side (the result is labeled Estimated).
type Quick struct {
	local    remote.Runner
	t        Transport
	retrans  *netprobe.RetransReader
	duration time.Duration
	sizeMB   int
	log      logx.Logger
}

func NewQuick(local remote.Runner, t Transport, duration time.Duration, sizeMB int, log logx.Logger) *Quick {
	if local == nil {
		local = remote.LocalRunner{}
	}
	if duration <= 0 {
		duration = 10 * time.Second
	}
	if sizeMB <= 0 {
		sizeMB = 50
	}
	return &Quick{
		local:    local,
		t:        t,
		retrans:  netprobe.NewRetransReader(local),
		duration: duration,
		sizeMB:   sizeMB,
		log:      log,
	}
}

// Measure runs the quick test and returns nil when every method failed;
// callers record the path without throughput rather than erroring.
func (q *Quick) Measure(ctx context.Context, dest string) *netperf.ThroughputStats {
	if remote.LookPath("iperf3") {
		if st, err := q.measureIperf(ctx, dest); err == nil {
			return st
		} else {
			q.log.Debug("iperf3 measurement failed", logx.String("dest", dest), logx.Err(err))
		}
	}
	if q.t == nil {
		return nil
	}
	st, err := q.measureStream(ctx)
	if err != nil {
		q.log.Debug("stream measurement failed", logx.String("dest", dest), logx.Err(err))
		return nil
	}
	return st
}

// iperfSummary is the slice of iperf3 -J output we consume.
type iperfSummary struct {
	End struct {
		SumSent struct {
			Bytes         int64   `json:"bytes"`
			BitsPerSecond float64 `json:"bits_per_second"`
			Seconds       float64 `json:"seconds"`
		} `json:"sum_sent"`
	} `json:"end"`
}

func (q *Quick) measureIperf(ctx context.Context, dest string) (*netperf.ThroughputStats, error) {
	secs := int(q.duration.Seconds())
	if secs <= 0 {
		secs = 10
	}

	before := q.retrans.Read(ctx)
	out, err := q.local.Run(ctx, q.duration+30*time.Second,
		"iperf3", "-c", dest, "-t", strconv.Itoa(secs), "-J")
	if err != nil {
		return nil, err
	}
	after := q.retrans.Read(ctx)

	var sum iperfSummary
	if err := json.Unmarshal([]byte(out), &sum); err != nil {
		return nil, fmt.Errorf("parse iperf3 output: %w", err)
	}
	sent := sum.End.SumSent
	if sent.Bytes == 0 && sent.BitsPerSecond == 0 {
		return nil, fmt.Errorf("iperf3 output missing sum_sent")
	}

	// Output without a measured duration falls back to the nominal test
	// window; such rates are estimates and labeled as such.
	dur := sent.Seconds
	estimated := false
	if dur <= 0 {
		dur = float64(secs)
		estimated = true
	}
	return &netperf.ThroughputStats{
		BytesTransferred: sent.Bytes,
		RateMbps:         sent.BitsPerSecond / 1e6,
		DurationSec:      dur,
		TCPRetrans:       netprobe.Delta(before, after),
		Estimated:        estimated,
	}, nil
}

// measureStream pushes a random payload to the discard sink. The local
// wall clock includes connection setup and remote teardown, so the rate
// is derived from the nominal test window instead and flagged Estimated.
func (q *Quick) measureStream(ctx context.Context) (*netperf.ThroughputStats, error) {
	payload := make([]byte, q.sizeMB*mib)
	if _, err := rand.Read(payload); err != nil {
		return nil, err
	}

	before := q.retrans.Read(ctx)
	n, err := q.t.Stream(ctx, q.duration+5*time.Minute, bytes.NewReader(payload), discardSink)
	if err != nil {
		return nil, err
	}
	after := q.retrans.Read(ctx)

	assumed := q.duration.Seconds()
	return &netperf.ThroughputStats{
		BytesTransferred: n,
		RateMbps:         float64(n) * 8 / assumed / 1e6,
		DurationSec:      assumed,
		TCPRetrans:       netprobe.Delta(before, after),
		Estimated:        true,
	}, nil
}
