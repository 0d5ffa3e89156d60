package collector

import (
	"context"
	"io"
	"time"

	"golang.org/x/time/rate"

	"netmond/internal/bench"
	"netmond/internal/remote"
)

// pacedRunner rate-limits command launches across parallel path
// collections so a burst of probes does not hammer the hosts. Transfer
// streams are not limited: only their launch is.
type pacedRunner struct {
	inner remote.Runner
	lim   *rate.Limiter
}

func (p pacedRunner) Run(ctx context.Context, timeout time.Duration, name string, args ...string) (string, error) {
	if err := p.lim.Wait(ctx); err != nil {
		return "", err
	}
	return p.inner.Run(ctx, timeout, name, args...)
}

type pacedTransport struct {
	pacedRunner
	inner bench.Transport
}

func newPacedTransport(t bench.Transport, lim *rate.Limiter) pacedTransport {
	return pacedTransport{pacedRunner: pacedRunner{inner: t, lim: lim}, inner: t}
}

func (p pacedTransport) Available(ctx context.Context) error {
	if err := p.lim.Wait(ctx); err != nil {
		return err
	}
	return p.inner.Available(ctx)
}

func (p pacedTransport) Stream(ctx context.Context, timeout time.Duration, r io.Reader, sink string) (int64, error) {
	if err := p.lim.Wait(ctx); err != nil {
		return 0, err
	}
	return p.inner.Stream(ctx, timeout, r, sink)
}
