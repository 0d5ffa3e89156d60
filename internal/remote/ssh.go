package remote

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"golang.org/x/crypto/ssh"
)

// SSHConfig describes how to reach a destination host.
type SSHConfig struct {
	Host           string
	Port           int
	User           string
	KeyFile        string
	ConnectTimeout time.Duration
}

func (c SSHConfig) addr() string {
	port := c.Port
	if port <= 0 {
		port = 22
	}
	return net.JoinHostPort(c.Host, strconv.Itoa(port))
}

// SSHClient executes commands and streams data on a remote host.
//
// Each call dials its own connection and closes it when done; no
// connection state is shared across measurements.
type SSHClient struct {
	cfg SSHConfig
}

func NewSSHClient(cfg SSHConfig) *SSHClient {
	if cfg.ConnectTimeout <= 0 {
		cfg.ConnectTimeout = 10 * time.Second
	}
	return &SSHClient{cfg: cfg}
}

// Host returns the configured destination host.
func (c *SSHClient) Host() string { return c.cfg.Host }

func (c *SSHClient) dial() (*ssh.Client, error) {
	auth, err := c.authMethods()
	if err != nil {
		return nil, err
	}
	conf := &ssh.ClientConfig{
		User: c.cfg.User,
		Auth: auth,
		// Measurement paths are provisioned hosts inside the cluster;
		// accept their keys the way `ssh -o StrictHostKeyChecking=no` would.
		HostKeyCallback: ssh.InsecureIgnoreHostKey(),
		Timeout:         c.cfg.ConnectTimeout,
	}
	return ssh.Dial("tcp", c.cfg.addr(), conf)
}

func (c *SSHClient) authMethods() ([]ssh.AuthMethod, error) {
	key := strings.TrimSpace(c.cfg.KeyFile)
	if key == "" {
		home, _ := os.UserHomeDir()
		key = home + "/.ssh/id_rsa"
	}
	b, err := os.ReadFile(key)
	if err != nil {
		return nil, fmt.Errorf("read ssh key %s: %w", key, err)
	}
	signer, err := ssh.ParsePrivateKey(b)
	if err != nil {
		return nil, fmt.Errorf("parse ssh key: %w", err)
	}
	return []ssh.AuthMethod{ssh.PublicKeys(signer)}, nil
}

// Available probes whether the SSH transport can reach the host at all.
func (c *SSHClient) Available(ctx context.Context) error {
	done := make(chan error, 1)
	go func() {
		cl, err := c.dial()
		if err == nil {
			_ = cl.Close()
		}
		done <- err
	}()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-done:
		return err
	}
}

// Run executes a command on the remote host and returns trimmed output.
// It satisfies the Runner interface; argv is joined into the single
// command line sshd expects.
func (c *SSHClient) Run(ctx context.Context, timeout time.Duration, name string, args ...string) (string, error) {
	line := cmdLine(name, args)

	cl, err := c.dial()
	if err != nil {
		return "", &CollectionError{Cmd: "ssh " + c.cfg.Host + " " + line, Err: err}
	}
	defer cl.Close()

	sess, err := cl.NewSession()
	if err != nil {
		return "", &CollectionError{Cmd: "ssh " + c.cfg.Host + " " + line, Err: err}
	}
	defer sess.Close()

	type result struct {
		out []byte
		err error
	}
	done := make(chan result, 1)
	go func() {
		out, err := sess.CombinedOutput(line)
		done <- result{out, err}
	}()

	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		_ = cl.Close() // unblocks the session goroutine
		return "", &CollectionError{Cmd: "ssh " + c.cfg.Host + " " + line, Err: ctx.Err()}
	case <-timer.C:
		_ = cl.Close()
		return "", &CollectionError{Cmd: "ssh " + c.cfg.Host + " " + line, Err: context.DeadlineExceeded}
	case r := <-done:
		if r.err != nil {
			return "", &CollectionError{Cmd: "ssh " + c.cfg.Host + " " + line, Err: r.err}
		}
		return strings.TrimSpace(string(r.out)), nil
	}
}

// Stream pipes r into a remote sink command via the session's stdin and
// returns the byte count actually written to the transport. Each pipe
// stage (local reader, ssh stdin, remote sink) fails independently, so
// errors identify the failing stage instead of one opaque exit code.
func (c *SSHClient) Stream(ctx context.Context, timeout time.Duration, r io.Reader, sink string) (int64, error) {
	cl, err := c.dial()
	if err != nil {
		return 0, &CollectionError{Cmd: "ssh " + c.cfg.Host + " " + sink, Err: err}
	}
	defer cl.Close()

	sess, err := cl.NewSession()
	if err != nil {
		return 0, &CollectionError{Cmd: "ssh " + c.cfg.Host + " " + sink, Err: err}
	}
	defer sess.Close()

	stdin, err := sess.StdinPipe()
	if err != nil {
		return 0, &CollectionError{Cmd: "ssh " + c.cfg.Host + " " + sink, Err: err}
	}

	if err := sess.Start(sink); err != nil {
		return 0, &CollectionError{Cmd: "ssh " + c.cfg.Host + " " + sink, Err: err}
	}

	var n atomic.Int64
	copyDone := make(chan error, 1)
	go func() {
		written, cerr := io.Copy(stdin, r)
		n.Store(written)
		closeErr := stdin.Close()
		if cerr == nil {
			cerr = closeErr
		}
		copyDone <- cerr
	}()

	waitDone := make(chan error, 1)
	go func() { waitDone <- sess.Wait() }()

	if timeout <= 0 {
		timeout = 5 * time.Minute
	}
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	var copyErr, waitErr error
	pending := 2
	for pending > 0 {
		select {
		case <-ctx.Done():
			_ = cl.Close()
			return n.Load(), &CollectionError{Cmd: "ssh " + c.cfg.Host + " " + sink, Err: ctx.Err()}
		case <-timer.C:
			_ = cl.Close()
			return n.Load(), &CollectionError{Cmd: "ssh " + c.cfg.Host + " " + sink, Err: context.DeadlineExceeded}
		case copyErr = <-copyDone:
			pending--
		case waitErr = <-waitDone:
			pending--
		}
	}

	if copyErr != nil && !errors.Is(copyErr, io.EOF) {
		return n.Load(), &CollectionError{Cmd: "stream to " + c.cfg.Host, Err: copyErr}
	}
	if waitErr != nil {
		return n.Load(), &CollectionError{Cmd: "ssh " + c.cfg.Host + " " + sink, Err: waitErr}
	}
	return n.Load(), nil
}
