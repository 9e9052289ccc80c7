//go:build windows

package registry

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sys/windows"
)

// fileLock mirrors the unix implementation using LockFileEx, the same way
// cmd/nebo/lock_windows.go mirrors lock_unix.go.
type fileLock struct {
	file *os.File
	path string
}

func acquireExclusive(path string, timeout time.Duration) (*fileLock, error) {
	return acquireFlock(path, windows.LOCKFILE_EXCLUSIVE_LOCK, timeout)
}

func acquireShared(path string, timeout time.Duration) (*fileLock, error) {
	return acquireFlock(path, 0, timeout)
}

func acquireFlock(path string, flags uint32, timeout time.Duration) (*fileLock, error) {
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

		handle := windows.Handle(file.Fd())
		overlapped := &windows.Overlapped{}
		ferr := windows.LockFileEx(handle, flags|windows.LOCKFILE_FAIL_IMMEDIATELY, 0, 1, 0, overlapped)
		if ferr == nil {
			if flags&windows.LOCKFILE_EXCLUSIVE_LOCK != 0 {
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

		// One-shot stale-holder check, mirroring lock_unix.go and
		// cmd/nebo/lock_windows.go's own dead-owner recovery.
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
	handle := windows.Handle(l.file.Fd())
	overlapped := &windows.Overlapped{}
	windows.UnlockFileEx(handle, 0, 1, 0, overlapped)
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
	handle, err := windows.OpenProcess(windows.PROCESS_QUERY_LIMITED_INFORMATION, false, uint32(pid))
	if err != nil {
		return false
	}
	defer windows.CloseHandle(handle)
	var exitCode uint32
	if err := windows.GetExitCodeProcess(handle, &exitCode); err != nil {
		return false
	}
	return exitCode == 259 // STILL_ACTIVE
}
