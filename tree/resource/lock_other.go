//go:build !unix

package resource

import (
	"os"
	"path/filepath"
)

// lockFile marks the resource directory as open. Without flock support
// the marker file is advisory only.
const lockFile = ".lock"

type dirLock struct {
	f *os.File
}

func acquireDirLock(dir string) (*dirLock, error) {
	f, err := os.OpenFile(filepath.Join(dir, lockFile), os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return nil, err
	}
	return &dirLock{f: f}, nil
}

func (l *dirLock) release() error {
	return l.f.Close()
}
