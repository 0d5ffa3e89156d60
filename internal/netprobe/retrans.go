package netprobe

import (
	"context"
	"strconv"
	"strings"
	"time"

	"netmond/internal/remote"
)

// retransCounter is the kernel counter sampled around transfer windows.
const retransCounter = "TcpRetransSegs"

// RetransReader samples the monotonically increasing TCP retransmit
// counter from kernel network statistics. The signal is supplementary:
// any failure (nstat missing, parse error) reads as 0 so a missing tool
// never degrades a throughput measurement.
type RetransReader struct {
	runner remote.Runner
}

func NewRetransReader(runner remote.Runner) *RetransReader {
	if runner == nil {
		runner = remote.LocalRunner{}
	}
	return &RetransReader{runner: runner}
}

// Read returns the current counter value, or 0 on any failure.
func (r *RetransReader) Read(ctx context.Context) int64 {
	out, err := r.runner.Run(ctx, 10*time.Second, "nstat", "-az", retransCounter)
	if err != nil {
		return 0
	}
	return ParseNstatOutput(out)
}

// Delta reports retransmits attributable to a transfer window bounded
// by two counter readings, clamped at zero.
func Delta(before, after int64) int64 {
	if d := after - before; d > 0 {
		return d
	}
	return 0
}

// ParseNstatOutput finds the counter line and returns its value.
// nstat prints "TcpRetransSegs   1234   0.0" style rows.
func ParseNstatOutput(out string) int64 {
	for _, line := range strings.Split(out, "\n") {
		fields := strings.Fields(line)
		if len(fields) >= 2 && fields[0] == retransCounter {
			v, err := strconv.ParseInt(fields[1], 10, 64)
			if err != nil {
				return 0
			}
			return v
		}
	}
	return 0
}
