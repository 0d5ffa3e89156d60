package collector

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"golang.org/x/time/rate"
)

func TestConfigDefaults(t *testing.T) {
	t.Parallel()
	c := Config{}.withDefaults()
	if c.PingCount != 10 {
		t.Fatalf("PingCount = %d", c.PingCount)
	}
	if c.IperfDuration != 10*time.Second {
		t.Fatalf("IperfDuration = %v", c.IperfDuration)
	}
	if c.QuickSizeMB != 50 || c.Parallelism != 2 || c.CmdRate != 2 {
		t.Fatalf("defaults = %+v", c)
	}
}

func TestConfigDefaultsKeepExplicit(t *testing.T) {
	t.Parallel()
	c := Config{PingCount: 5, Parallelism: 8, CmdRate: 0.5}.withDefaults()
	if c.PingCount != 5 || c.Parallelism != 8 || c.CmdRate != 0.5 {
		t.Fatalf("explicit values overwritten: %+v", c)
	}
}

type recordingRunner struct {
	calls []string
	out   string
	err   error
}

func (r *recordingRunner) Run(_ context.Context, _ time.Duration, name string, args ...string) (string, error) {
	r.calls = append(r.calls, strings.Join(append([]string{name}, args...), " "))
	return r.out, r.err
}

func TestPacedRunnerDelegates(t *testing.T) {
	t.Parallel()
	inner := &recordingRunner{out: "ok"}
	p := pacedRunner{inner: inner, lim: rate.NewLimiter(rate.Inf, 1)}

	out, err := p.Run(context.Background(), time.Second, "ping", "-c", "1", "host")
	if err != nil || out != "ok" {
		t.Fatalf("Run = %q, %v", out, err)
	}
	if len(inner.calls) != 1 || inner.calls[0] != "ping -c 1 host" {
		t.Fatalf("calls = %v", inner.calls)
	}
}

func TestPacedRunnerCancelled(t *testing.T) {
	t.Parallel()
	inner := &recordingRunner{}
	// limiter that never admits, so Wait blocks until ctx cancel
	p := pacedRunner{inner: inner, lim: rate.NewLimiter(0, 0)}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := p.Run(ctx, time.Second, "ping")
	if err == nil {
		t.Fatal("expected error from cancelled wait")
	}
	if len(inner.calls) != 0 {
		t.Fatal("inner runner must not run when pacing fails")
	}
}

type fakeBenchTransport struct {
	availErr error
	streamed int64
	sinks    []string
}

func (f *fakeBenchTransport) Run(_ context.Context, _ time.Duration, name string, _ ...string) (string, error) {
	return name, nil
}

func (f *fakeBenchTransport) Available(context.Context) error { return f.availErr }

func (f *fakeBenchTransport) Stream(_ context.Context, _ time.Duration, r io.Reader, sink string) (int64, error) {
	n, err := io.Copy(io.Discard, r)
	f.streamed += n
	f.sinks = append(f.sinks, sink)
	return n, err
}

func TestPacedTransport(t *testing.T) {
	t.Parallel()
	inner := &fakeBenchTransport{availErr: errors.New("down")}
	p := newPacedTransport(inner, rate.NewLimiter(rate.Inf, 1))

	if err := p.Available(context.Background()); !errors.Is(err, inner.availErr) {
		t.Fatalf("Available = %v", err)
	}

	n, err := p.Stream(context.Background(), time.Second, strings.NewReader("payload"), "/dev/null")
	if err != nil || n != int64(len("payload")) {
		t.Fatalf("Stream = %d, %v", n, err)
	}
	if inner.streamed != n || len(inner.sinks) != 1 {
		t.Fatalf("inner transport not used: %+v", inner)
	}
}
