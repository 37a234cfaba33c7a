//go:build !windows

package index

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	"langidx/internal/errors"
)

const lockFile = "index.lock"

// Lock is an exclusive, advisory lock on a scratch directory.
type Lock struct {
	path string
	file *os.File
}

// AcquireLock takes the scratch directory lock without blocking. It fails
// with WORKSPACE_LOCKED if another process holds it.
func AcquireLock(scratchDir string) (*Lock, error) {
	if err := os.MkdirAll(scratchDir, 0755); err != nil {
		return nil, errors.New(errors.ResourceFailure, "cannot create scratch directory", err, nil)
	}

	path := filepath.Join(scratchDir, lockFile)
	file, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0644)
	if err != nil {
		return nil, errors.New(errors.ResourceFailure, "cannot open lock file", err, nil)
	}

	if err := syscall.Flock(int(file.Fd()), syscall.LOCK_EX|syscall.LOCK_NB); err != nil {
		_ = file.Close()
		msg := "workspace is locked by another langidx process"
		if content, readErr := os.ReadFile(path); readErr == nil && len(content) > 0 {
			msg = fmt.Sprintf("workspace is locked by another langidx process (PID %s)", strings.TrimSpace(string(content)))
		}
		return nil, errors.New(errors.WorkspaceLocked, msg, nil, errors.GetSuggestedFixes(errors.WorkspaceLocked))
	}

	release := func(cause error, what string) (*Lock, error) {
		_ = syscall.Flock(int(file.Fd()), syscall.LOCK_UN)
		_ = file.Close()
		return nil, fmt.Errorf("%s: %w", what, cause)
	}
	if err := file.Truncate(0); err != nil {
		return release(err, "truncating lock file")
	}
	if _, err := file.Seek(0, 0); err != nil {
		return release(err, "seeking lock file")
	}
	if _, err := file.WriteString(strconv.Itoa(os.Getpid())); err != nil {
		return release(err, "writing PID to lock file")
	}

	return &Lock{path: path, file: file}, nil
}

// Release drops the lock and removes the lock file. It is safe on a nil Lock.
func (l *Lock) Release() {
	if l == nil || l.file == nil {
		return
	}
	_ = syscall.Flock(int(l.file.Fd()), syscall.LOCK_UN)
	_ = l.file.Close()
	_ = os.Remove(l.path)
	l.file = nil
}
