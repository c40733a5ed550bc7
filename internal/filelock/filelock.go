// Package filelock provides file locking and atomic write operations so the
// results document on disk survives concurrent qcbench runs (two invocations
// against the same --output path) and abrupt interruption mid-write.
package filelock

import (
	"os"
	"path/filepath"

	"github.com/gofrs/flock"

	"github.com/qcbench/qcbench/internal/qcerr"
)

// FileLock wraps a flock file lock for coordinating access to a results
// document across processes.
type FileLock struct {
	flock *flock.Flock
	path  string
}

// NewFileLock creates a new file lock for the given path. The lock file
// will be created at the specified path.
func NewFileLock(path string) *FileLock {
	return &FileLock{
		flock: flock.New(path),
		path:  path,
	}
}

// Lock acquires an exclusive lock on the file, blocking until the lock is
// available.
func (fl *FileLock) Lock() error {
	if err := fl.flock.Lock(); err != nil {
		return qcerr.Wrap(qcerr.KindDataIntegrity, "filelock.lock", fl.path, 1, err)
	}
	return nil
}

// TryLock attempts to acquire an exclusive lock on the file without
// blocking. Returns false, not an error, when another process already
// holds the lock.
func (fl *FileLock) TryLock() (bool, error) {
	acquired, err := fl.flock.TryLock()
	if err != nil {
		return false, qcerr.Wrap(qcerr.KindDataIntegrity, "filelock.trylock", fl.path, 1, err)
	}
	return acquired, nil
}

// Unlock releases the lock.
func (fl *FileLock) Unlock() error {
	if err := fl.flock.Unlock(); err != nil {
		return qcerr.Wrap(qcerr.KindDataIntegrity, "filelock.unlock", fl.path, 1, err)
	}
	return nil
}

// AtomicWrite writes data to a file atomically using a temp file and rename
// strategy, so a reader (or a second qcbench process) never observes a
// partially written results document.
//
// The process:
//  1. create a temporary file in the same directory as the target
//  2. write content to the temporary file
//  3. rename the temporary file to the target path (atomic on the same
//     filesystem)
//
// If the operation fails at any point, the original file (if it exists)
// remains unchanged.
func AtomicWrite(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return qcerr.Wrap(qcerr.KindDataIntegrity, "filelock.atomicwrite.mkdir", dir, 1, err)
	}

	tempFile, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return qcerr.Wrap(qcerr.KindDataIntegrity, "filelock.atomicwrite.create", dir, 1, err)
	}
	tempPath := tempFile.Name()

	defer func() {
		if tempFile != nil {
			tempFile.Close()
			os.Remove(tempPath)
		}
	}()

	if _, err := tempFile.Write(data); err != nil {
		return qcerr.Wrap(qcerr.KindDataIntegrity, "filelock.atomicwrite.write", tempPath, 1, err)
	}
	if err := tempFile.Sync(); err != nil {
		return qcerr.Wrap(qcerr.KindDataIntegrity, "filelock.atomicwrite.sync", tempPath, 1, err)
	}
	if err := tempFile.Close(); err != nil {
		return qcerr.Wrap(qcerr.KindDataIntegrity, "filelock.atomicwrite.close", tempPath, 1, err)
	}
	if err := os.Chmod(tempPath, 0644); err != nil {
		return qcerr.Wrap(qcerr.KindDataIntegrity, "filelock.atomicwrite.chmod", tempPath, 1, err)
	}

	if err := os.Rename(tempPath, path); err != nil {
		return qcerr.Wrap(qcerr.KindDataIntegrity, "filelock.atomicwrite.rename", path, 1, err)
	}

	tempFile = nil
	return nil
}

// LockAndWrite acquires a lock, performs an atomic write, and releases the
// lock. Store.Save uses this to serialize concurrent qcbench processes
// writing the same results document.
//
// The lock path is derived by appending ".lock" to the target path.
func LockAndWrite(path string, data []byte) error {
	lockPath := path + ".lock"
	lock := NewFileLock(lockPath)

	if err := lock.Lock(); err != nil {
		return err
	}
	defer lock.Unlock()

	return AtomicWrite(path, data)
}
