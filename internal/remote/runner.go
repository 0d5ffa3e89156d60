// Package remote executes measurement commands locally or over SSH.
//
// Every command carries an explicit timeout; failures surface as
// *CollectionError so callers can degrade the specific measurement
// instead of aborting the whole collection run.
package remote

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// CollectionError marks a failed or timed-out measurement command.
// The command excerpt is truncated so log lines stay readable.
type CollectionError struct {
	Cmd string
	Err error
}

func (e *CollectionError) Error() string {
	return fmt.Sprintf("command failed: %s: %v", excerpt(e.Cmd, 50), e.Err)
}

func (e *CollectionError) Unwrap() error { return e.Err }

func excerpt(cmd string, n int) string {
	if len(cmd) <= n {
		return cmd
	}
	return cmd[:n] + "..."
}

// IsCollectionError reports whether err wraps a CollectionError.
func IsCollectionError(err error) bool {
	var ce *CollectionError
	return errors.As(err, &ce)
}

// Runner executes a command and returns trimmed standard output.
type Runner interface {
	Run(ctx context.Context, timeout time.Duration, name string, args ...string) (string, error)
}

// LocalRunner runs commands on the collecting host via os/exec.
// Commands are built from explicit argv, never a shell string.
type LocalRunner struct{}

func (LocalRunner) Run(ctx context.Context, timeout time.Duration, name string, args ...string) (string, error) {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	rctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(rctx, name, args...)
	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out

	err := cmd.Run()
	if rctx.Err() == context.DeadlineExceeded {
		return "", &CollectionError{Cmd: cmdLine(name, args), Err: context.DeadlineExceeded}
	}
	if err != nil {
		return "", &CollectionError{Cmd: cmdLine(name, args), Err: err}
	}
	return strings.TrimSpace(out.String()), nil
}

// LookPath probes whether a tool exists on the collecting host.
func LookPath(name string) bool {
	_, err := exec.LookPath(name)
	return err == nil
}

func cmdLine(name string, args []string) string {
	if len(args) == 0 {
		return name
	}
	return name + " " + strings.Join(args, " ")
}
