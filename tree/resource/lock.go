//go:build unix

package resource

import (
	"os"
	"path/filepath"

	"golang.org/x/sys/unix"
)

// lockFile is the flock target inside the resource directory. Holding
// the exclusive lock fences off other processes; in-process writer
// exclusion is handled by the manager itself.
const lockFile = ".lock"

type dirLock struct {
	f *os.File
}

// acquireDirLock takes a non-blocking exclusive lock on the resource
// directory.
func acquireDirLock(dir string) (*dirLock, error) {
	f, err := os.OpenFile(filepath.Join(dir, lockFile), os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return nil, err
	}
	if err := unix.Flock(int(f.Fd()), unix.LOCK_EX|unix.LOCK_NB); err != nil {
		f.Close()
		return nil, err
	}
	return &dirLock{f: f}, nil
}

// release drops the lock and closes the file.
func (l *dirLock) release() error {
	if err := unix.Flock(int(l.f.Fd()), unix.LOCK_UN); err != nil {
		l.f.Close()
		return err
	}
	return l.f.Close()
}
