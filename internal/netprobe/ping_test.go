package netprobe

import (
	"context"
	"errors"
	"testing"
	"time"

	"netmond/pkg/logx"
)

const pingOutput = `PING node-b (10.0.0.12) 56(84) bytes of data.

--- node-b ping statistics ---
10 packets transmitted, 10 received, 0% packet loss, time 9012ms
rtt min/avg/max/mdev = 0.112/0.287/0.501/0.094 ms
`

const pingLossyOutput = `PING node-b (10.0.0.12) 56(84) bytes of data.

--- node-b ping statistics ---
10 packets transmitted, 7 received, 30% packet loss, time 9102ms
rtt min/avg/max/mdev = 0.412/12.871/80.119/22.334 ms
`

func TestParsePingOutput(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		out  string
		want struct{ min, avg, max, mdev, loss float64 }
	}{
		{
			name: "clean run",
			out:  pingOutput,
			want: struct{ min, avg, max, mdev, loss float64 }{0.112, 0.287, 0.501, 0.094, 0},
		},
		{
			name: "lossy run",
			out:  pingLossyOutput,
			want: struct{ min, avg, max, mdev, loss float64 }{0.412, 12.871, 80.119, 22.334, 30},
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			got := ParsePingOutput(tt.out)
			if got.MinMS != tt.want.min || got.AvgMS != tt.want.avg ||
				got.MaxMS != tt.want.max || got.MdevMS != tt.want.mdev {
				t.Fatalf("rtt = %v/%v/%v/%v, want %v/%v/%v/%v",
					got.MinMS, got.AvgMS, got.MaxMS, got.MdevMS,
					tt.want.min, tt.want.avg, tt.want.max, tt.want.mdev)
			}
			if got.LossPct != tt.want.loss {
				t.Fatalf("LossPct = %v, want %v", got.LossPct, tt.want.loss)
			}
		})
	}
}

func TestParsePingOutputGarbage(t *testing.T) {
	t.Parallel()
	got := ParsePingOutput("no statistics here")
	if got.LossPct != 0 || got.AvgMS != 0 {
		t.Fatalf("garbage input should parse to zero stats, got %+v", got)
	}
}

// fakeRunner returns canned output or an error for every command.
type fakeRunner struct {
	out string
	err error
}

func (f fakeRunner) Run(_ context.Context, _ time.Duration, _ string, _ ...string) (string, error) {
	return f.out, f.err
}

func TestMeasureFailureSentinel(t *testing.T) {
	t.Parallel()
	p := NewProber(fakeRunner{err: errors.New("host unreachable")}, 10, logx.Nop())
	got := p.Measure(context.Background(), "node-b")
	if !got.Failed() {
		t.Fatalf("failed probe should yield loss sentinel, got %+v", got)
	}
}

func TestMeasureParsesRunnerOutput(t *testing.T) {
	t.Parallel()
	p := NewProber(fakeRunner{out: pingOutput}, 10, logx.Nop())
	got := p.Measure(context.Background(), "node-b")
	if got.AvgMS != 0.287 {
		t.Fatalf("AvgMS = %v, want 0.287", got.AvgMS)
	}
}
