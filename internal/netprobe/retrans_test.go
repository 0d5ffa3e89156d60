package netprobe

import (
	"context"
	"errors"
	"testing"
)

const nstatOutput = `#kernel
IpInReceives                    1829482            0.0
TcpRetransSegs                  1523               0.0
TcpInSegs                       1724933            0.0
`

func TestParseNstatOutput(t *testing.T) {
	t.Parallel()
	if got := ParseNstatOutput(nstatOutput); got != 1523 {
		t.Fatalf("ParseNstatOutput = %d, want 1523", got)
	}
	if got := ParseNstatOutput("no counters"); got != 0 {
		t.Fatalf("missing counter should read 0, got %d", got)
	}
	if got := ParseNstatOutput("TcpRetransSegs notanumber 0.0"); got != 0 {
		t.Fatalf("unparsable counter should read 0, got %d", got)
	}
}

func TestRetransReaderFailureReadsZero(t *testing.T) {
	t.Parallel()
	r := NewRetransReader(fakeRunner{err: errors.New("nstat: not found")})
	if got := r.Read(context.Background()); got != 0 {
		t.Fatalf("Read on failure = %d, want 0", got)
	}
}

func TestDeltaClamped(t *testing.T) {
	t.Parallel()
	if got := Delta(100, 150); got != 50 {
		t.Fatalf("Delta(100,150) = %d, want 50", got)
	}
	// Counter reset between readings must not go negative.
	if got := Delta(150, 100); got != 0 {
		t.Fatalf("Delta(150,100) = %d, want 0", got)
	}
}
