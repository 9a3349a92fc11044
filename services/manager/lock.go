package manager

import (
	"context"
	"fmt"
	"os"
	"time"
)

// RunLocked is Run guarded by the filesystem lock. The lock is
// released when the run finishes, whether or not it succeeded.
func (s *Service) RunLocked(ctx context.Context, lockPath string, timeout time.Duration) (int, error) {
	release, err := AcquireLock(ctx, lockPath, timeout)
	if err != nil {
		return 0, err
	}
	defer release()
	return s.Run(ctx)
}

// AcquireLock takes an exclusive filesystem lock so overlapping manager
// runs can't race each other's deletes. If the lock is held it waits,
// polling once a second, and gives up after timeout on the assumption
// that a run which held the lock that long crashed without cleanup.
// The returned release removes the lock.
func AcquireLock(ctx context.Context, path string, timeout time.Duration) (func(), error) {
	deadline := time.Now().Add(timeout)
	for {
		file, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
		if err == nil {
			file.Close()
			return func() { os.Remove(path) }, nil
		}
		if !os.IsExist(err) {
			return nil, err
		}
		if time.Now().After(deadline) {
			return nil, fmt.Errorf("lock %s stuck? giving up", path)
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(time.Second):
		}
	}
}
