//go:build darwin || linux

package registry

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"syscall"
	"time"
)

// fileLock wraps an open, exclusively-flocked sidecar file. Grounded on
// cmd/nebo's lock_unix.go: a dedicated "<doc>.lock" file carries the
// holder's PID so a contention timeout can tell a truly live holder apart
// from a stale lock (spec.md §4.A, SPEC_FULL.md §12.2).
type fileLock struct {
	file *os.File
	path string
}

// acquireExclusive blocks (with bounded retry + backoff) until it holds an
// exclusive advisory lock on path+".lock", or returns a LockContentionError
// once deadline elapses (spec §4.A).
func acquireExclusive(path string, timeout time.Duration) (*fileLock, error) {
	return acquireFlock(path, syscall.LOCK_EX, timeout)
}

// acquireShared blocks until it holds a shared advisory lock, for read-only
// snapshots (spec §4.A "read-only snapshots that acquire a shared lock").
func acquireShared(path string, timeout time.Duration) (*fileLock, error) {
	return acquireFlock(path, syscall.LOCK_SH, timeout)
}

func acquireFlock(path string, how int, timeout time.Duration) (*fileLock, error) {
	lockPath := path + ".lock"
	deadline := time.Now().Add(timeout)
	backoff := 5 * time.Millisecond
	const maxBackoff = 200 * time.Millisecond

	staleChecked := false

	for {
		file, err := os.OpenFile(lockPath, os.O_CREATE|os.O_RDWR, 0o600)
		if err != nil {
			return nil, fmt.Errorf("open lock file %s: %w", lockPath, err)
		}

		ferr := syscall.Flock(int(file.Fd()), how|syscall.LOCK_NB)
		if ferr == nil {
			if how == syscall.LOCK_EX {
				file.Truncate(0)
				file.Seek(0, 0)
				fmt.Fprintf(file, "%d\n", os.Getpid())
				file.Sync()
			}
			return &fileLock{file: file, path: lockPath}, nil
		}
		file.Close()

		if time.Now().After(deadline) {
			return nil, errLockTimeout(lockPath)
		}

		// One-shot stale-holder check per acquisition attempt: if the PID
		// recorded in the lock file belongs to a dead process, break the
		// lock by removing the sidecar file, mirroring cmd/nebo/
		// lock_unix.go's acquireLock. The kernel already released the
		// dead holder's flock on process exit, but the sidecar file
		// itself can otherwise linger forever with a stale PID, so it is
		// actively removed rather than left for the next reader to
		// puzzle over.
		if !staleChecked {
			staleChecked = true
			if pid := readLockPID(lockPath); pid > 0 && !isProcessAlive(pid) {
				os.Remove(lockPath)
				time.Sleep(100 * time.Millisecond)
			}
		}

		time.Sleep(backoff)
		backoff *= 2
		if backoff > maxBackoff {
			backoff = maxBackoff
		}
	}
}

func (l *fileLock) release() {
	if l == nil || l.file == nil {
		return
	}
	syscall.Flock(int(l.file.Fd()), syscall.LOCK_UN)
	l.file.Close()
}

func readLockPID(lockPath string) int {
	data, err := os.ReadFile(lockPath)
	if err != nil {
		return 0
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return 0
	}
	return pid
}

func isProcessAlive(pid int) bool {
	return syscall.Kill(pid, 0) == nil
}
