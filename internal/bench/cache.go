package bench

import (
	"context"
	"io"
	"os"
	"time"

	"netmond/internal/remote"
	"netmond/pkg/logx"
)

const (
	cacheTimeout = 30 * time.Second
	pinTimeout   = 60 * time.Second
)

// flushLocal drops the page cache on the collecting host. Requires
// passwordless sudo; failure is tolerated because an unflushed cache
// only makes the cold number optimistic, it never blocks the transfer.
func flushLocal(ctx context.Context, runner remote.Runner, log logx.Logger) bool {
	_, err := runner.Run(ctx, cacheTimeout,
		"sudo", "-n", "sh", "-c", "sync; echo 3 > /proc/sys/vm/drop_caches")
	if err != nil {
		log.Debug("local cache flush failed", logx.Err(err))
		return false
	}
	return true
}

// flushRemote drops the page cache on the destination over the same
// transport used for transfers. Best-effort, same tolerance as local.
func flushRemote(ctx context.Context, t Transport, log logx.Logger) bool {
	_, err := t.Run(ctx, cacheTimeout,
		"sync; echo 3 | sudo -n tee /proc/sys/vm/drop_caches > /dev/null")
	if err != nil {
		log.Debug("remote cache flush failed", logx.Err(err))
		return false
	}
	return true
}

// pinFiles forces the test files into the local page cache. Prefers
// vmtouch when installed; otherwise a sequential read to discard warms
// the cache just as well for files this small.
func pinFiles(ctx context.Context, runner remote.Runner, paths []string, log logx.Logger) bool {
	if remote.LookPath("vmtouch") {
		ok := true
		for _, p := range paths {
			if _, err := runner.Run(ctx, pinTimeout, "vmtouch", "-t", p); err != nil {
				log.Debug("vmtouch failed", logx.String("file", p), logx.Err(err))
				ok = false
			}
		}
		if ok {
			return true
		}
	}

	for _, p := range paths {
		f, err := os.Open(p)
		if err != nil {
			return false
		}
		_, err = io.Copy(io.Discard, f)
		f.Close()
		if err != nil {
			return false
		}
	}
	return true
}
