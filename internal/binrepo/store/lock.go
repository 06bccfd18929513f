package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"syscall"
	"time"

	"github.com/greeddj/binrepo-store/internal/binrepo/helpers"
)

// LockOwner is persisted inside the store lock file.
type LockOwner struct {
	PID        int       `json:"pid"`
	Command    string    `json:"command,omitempty"`
	AcquiredAt time.Time `json:"acquired_at"`
}

// AcquireLock creates a PID lock file in the store root so only one process
// mutates the store at a time. A lock left by a dead process is replaced.
// The returned function releases the lock if it is still ours.
func AcquireLock(storeRoot, command string) (func() error, error) {
	if storeRoot == "" {
		return nil, helpers.ErrStorePathEmpty
	}
	lockPath := filepath.Join(storeRoot, helpers.StoreLock)
	owner := LockOwner{
		PID:        os.Getpid(),
		Command:    command,
		AcquiredAt: time.Now().UTC(),
	}
	payload, err := json.Marshal(&owner)
	if err != nil {
		return nil, err
	}

	for {
		created, err := createLockFile(lockPath, payload)
		if err != nil {
			return nil, err
		}
		if created {
			return func() error { return releaseLock(lockPath, owner.PID) }, nil
		}
		if err := clearStaleLock(lockPath); err != nil {
			return nil, err
		}
	}
}

// ReadLockOwner returns the current lock holder, if any.
func ReadLockOwner(storeRoot string) (LockOwner, bool, error) {
	return readLockOwner(filepath.Join(storeRoot, helpers.StoreLock))
}

func createLockFile(lockPath string, payload []byte) (bool, error) {
	//nolint:gosec // lockPath is derived from the store root.
	f, err := os.OpenFile(lockPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, helpers.FileMod)
	if err != nil {
		if errors.Is(err, os.ErrExist) {
			return false, nil
		}
		return false, fmt.Errorf("failed to create lock %s: %w", lockPath, err)
	}
	if _, err := f.Write(payload); err != nil {
		_ = f.Close()
		_ = os.Remove(lockPath)
		return false, err
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(lockPath)
		return false, err
	}
	return true, nil
}

func clearStaleLock(lockPath string) error {
	owner, ok, err := readLockOwner(lockPath)
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}
	if processAlive(owner.PID) {
		if owner.Command != "" {
			return fmt.Errorf("%w (pid %d, %s since %s)", helpers.ErrAnotherInstanceIsRunning,
				owner.PID, owner.Command, owner.AcquiredAt.Format(time.RFC3339))
		}
		return fmt.Errorf("%w (pid %d)", helpers.ErrAnotherInstanceIsRunning, owner.PID)
	}
	if err := os.Remove(lockPath); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

func readLockOwner(lockPath string) (LockOwner, bool, error) {
	//nolint:gosec // lockPath is derived from the store root.
	data, err := os.ReadFile(lockPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return LockOwner{}, false, nil
		}
		return LockOwner{}, false, err
	}
	var owner LockOwner
	if err := json.Unmarshal(data, &owner); err != nil {
		return LockOwner{}, false, fmt.Errorf("%w: %s: %w", helpers.ErrLockFileInvalid, lockPath, err)
	}
	return owner, true, nil
}

// releaseLock removes the lock file unless another process took it over.
func releaseLock(lockPath string, pid int) error {
	owner, ok, err := readLockOwner(lockPath)
	if err != nil || !ok {
		return err
	}
	if owner.PID != pid {
		return nil
	}
	if err := os.Remove(lockPath); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

// processAlive reports whether a process PID is still running.
func processAlive(pid int) bool {
	if pid <= 0 {
		return false
	}
	if runtime.GOOS == "windows" {
		return true
	}
	err := syscall.Kill(pid, 0)
	return err == nil || errors.Is(err, syscall.EPERM)
}
