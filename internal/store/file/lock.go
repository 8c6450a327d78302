package file

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gofrs/flock"
)

type LockConfig struct {
	LockTimeout time.Duration
	LockRetry   time.Duration
}

func DefaultLockConfig() LockConfig {
	return LockConfig{
		LockTimeout: 5 * time.Second,
		LockRetry:   25 * time.Millisecond,
	}
}

// fileLock is an advisory lock on the data directory, held for one read or
// read-modify-write so two processes sharing a directory never interleave.
type fileLock struct {
	fileLock   *flock.Flock
	lockPath   string
	shared     bool
	acquiredAt time.Time
	mu         sync.Mutex
}

func acquireLock(ctx context.Context, lockPath string, shared bool, cfg LockConfig) (*fileLock, error) {
	if cfg.LockTimeout <= 0 {
		cfg.LockTimeout = DefaultLockConfig().LockTimeout
	}
	if cfg.LockRetry <= 0 {
		cfg.LockRetry = DefaultLockConfig().LockRetry
	}

	ctx, cancel := context.WithTimeout(ctx, cfg.LockTimeout)
	defer cancel()

	fl := &fileLock{fileLock: flock.New(lockPath), lockPath: lockPath, shared: shared}

	var (
		locked bool
		err    error
	)
	if shared {
		locked, err = fl.fileLock.TryRLockContext(ctx, cfg.LockRetry)
	} else {
		locked, err = fl.fileLock.TryLockContext(ctx, cfg.LockRetry)
	}
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("data dir is locked by another process (timeout after %v)", cfg.LockTimeout)
		}
		return nil, fmt.Errorf("failed to attempt lock: %w", err)
	}
	if !locked {
		return nil, fmt.Errorf("data dir is locked by another process (timeout after %v)", cfg.LockTimeout)
	}

	fl.acquiredAt = time.Now()
	return fl, nil
}

func (fl *fileLock) Unlock() {
	fl.mu.Lock()
	defer fl.mu.Unlock()

	if fl.fileLock == nil {
		return
	}

	if err := fl.fileLock.Unlock(); err != nil {
		slog.Error("Failed to release file lock", "path", fl.lockPath, "error", err)
	} else {
		slog.Debug("File lock released",
			"path", fl.lockPath,
			"shared", fl.shared,
			"held_duration_ms", time.Since(fl.acquiredAt).Milliseconds(),
		)
	}
	fl.fileLock = nil
}

func (fl *fileLock) IsLocked() bool {
	fl.mu.Lock()
	defer fl.mu.Unlock()
	return fl.fileLock != nil
}
