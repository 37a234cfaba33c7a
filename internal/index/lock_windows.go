//go:build windows

package index

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"langidx/internal/errors"
)

const lockFile = "index.lock"

// Lock is a PID file. Windows has no flock, so creation with O_EXCL is the
// only exclusion.
type Lock struct {
	path string
	file *os.File
}

// AcquireLock creates the lock file exclusively.
func AcquireLock(scratchDir string) (*Lock, error) {
	if err := os.MkdirAll(scratchDir, 0755); err != nil {
		return nil, errors.New(errors.ResourceFailure, "cannot create scratch directory", err, nil)
	}

	path := filepath.Join(scratchDir, lockFile)
	file, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_RDWR, 0644)
	if err != nil {
		if os.IsExist(err) {
			return nil, errors.New(errors.WorkspaceLocked, "workspace is locked by another langidx process", nil,
				errors.GetSuggestedFixes(errors.WorkspaceLocked))
		}
		return nil, errors.New(errors.ResourceFailure, "cannot open lock file", err, nil)
	}

	if _, err := file.WriteString(strconv.Itoa(os.Getpid())); err != nil {
		_ = file.Close()
		_ = os.Remove(path)
		return nil, fmt.Errorf("writing PID to lock file: %w", err)
	}
	return &Lock{path: path, file: file}, nil
}

// Release removes the lock file.
func (l *Lock) Release() {
	if l == nil || l.file == nil {
		return
	}
	_ = l.file.Close()
	_ = os.Remove(l.path)
	l.file = nil
}
