package file

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/gofrs/flock"
)

func shortLockConfig(timeout time.Duration) LockConfig {
	return LockConfig{LockTimeout: timeout, LockRetry: 10 * time.Millisecond}
}

func TestAcquireLock(t *testing.T) {
	lockPath := filepath.Join(t.TempDir(), lockFileName)

	lock, err := acquireLock(context.Background(), lockPath, false, DefaultLockConfig())
	if err != nil {
		t.Fatalf("Failed to acquire lock: %v", err)
	}
	if !lock.IsLocked() {
		t.Error("Expected lock to be held")
	}

	lock.Unlock()
	if lock.IsLocked() {
		t.Error("Expected lock to be released after Unlock()")
	}

	lock.Unlock()
	if lock.IsLocked() {
		t.Error("Expected lock to remain released after double unlock")
	}
}

func TestAcquireLock_ExclusiveBlocksSecondHolder(t *testing.T) {
	lockPath := filepath.Join(t.TempDir(), lockFileName)

	lock1, err := acquireLock(context.Background(), lockPath, false, DefaultLockConfig())
	if err != nil {
		t.Fatalf("Failed to acquire first lock: %v", err)
	}
	defer lock1.Unlock()

	start := time.Now()
	lock2, err := acquireLock(context.Background(), lockPath, false, shortLockConfig(120*time.Millisecond))
	if err == nil {
		lock2.Unlock()
		t.Fatal("Expected second lock acquisition to fail")
	}
	if elapsed := time.Since(start); elapsed < 100*time.Millisecond {
		t.Errorf("Expected retry behavior before failing, got elapsed=%v", elapsed)
	}

	raw := flock.New(lockPath)
	locked, err := raw.TryLock()
	if err != nil {
		t.Fatalf("flock TryLock failed: %v", err)
	}
	if locked {
		raw.Unlock()
		t.Error("Expected flock to fail due to held lock")
	}
}

func TestAcquireLock_SharedReaders(t *testing.T) {
	lockPath := filepath.Join(t.TempDir(), lockFileName)

	r1, err := acquireLock(context.Background(), lockPath, true, DefaultLockConfig())
	if err != nil {
		t.Fatalf("first reader: %v", err)
	}
	defer r1.Unlock()

	r2, err := acquireLock(context.Background(), lockPath, true, shortLockConfig(100*time.Millisecond))
	if err != nil {
		t.Fatalf("second reader should share the lock: %v", err)
	}
	r2.Unlock()
}

func TestAcquireLock_ConcurrentExclusive(t *testing.T) {
	lockPath := filepath.Join(t.TempDir(), lockFileName)
	cfg := shortLockConfig(2 * time.Second)

	var wg sync.WaitGroup
	numGoroutines := 10
	wg.Add(numGoroutines)

	acquiredCount := 0
	currentInCritical := 0
	maxConcurrent := 0
	var mu sync.Mutex

	for i := 0; i < numGoroutines; i++ {
		go func() {
			defer wg.Done()

			lock, err := acquireLock(context.Background(), lockPath, false, cfg)
			if err != nil {
				return
			}
			defer lock.Unlock()

			mu.Lock()
			acquiredCount++
			currentInCritical++
			if currentInCritical > maxConcurrent {
				maxConcurrent = currentInCritical
			}
			mu.Unlock()

			time.Sleep(5 * time.Millisecond)

			mu.Lock()
			currentInCritical--
			mu.Unlock()
		}()
	}

	wg.Wait()

	if acquiredCount == 0 {
		t.Error("Expected at least one lock to be acquired")
	}
	if maxConcurrent > 1 {
		t.Errorf("Expected lock exclusivity, max concurrent holders=%d", maxConcurrent)
	}
}
