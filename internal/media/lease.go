package media

import (
	"fmt"
	"os"
	"sync/atomic"

	"github.com/google/uuid"
)

// ErrLeaseReleased is returned when a lease is released twice.
var ErrLeaseReleased = fmt.Errorf("file lease already released")

// FileLease is a scoped grant of access to a media file. A slot holds at
// most one lease at a time and releases it exactly once when its source
// changes away from the file. Release is guarded so a duplicate release is
// an error instead of a double-unlock.
type FileLease struct {
	id       string
	path     string
	file     *os.File
	released atomic.Bool
}

// AcquireFileLease opens the file and returns the lease guarding it.
func AcquireFileLease(path string) (*FileLease, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	return &FileLease{
		id:   uuid.NewString(),
		path: path,
		file: f,
	}, nil
}

// ID returns the lease's unique identifier.
func (l *FileLease) ID() string { return l.id }

// Path returns the leased file path.
func (l *FileLease) Path() string { return l.path }

// File returns the open file handle. Nil after Release.
func (l *FileLease) File() *os.File {
	if l.released.Load() {
		return nil
	}
	return l.file
}

// Released reports whether the lease has been given up.
func (l *FileLease) Released() bool { return l.released.Load() }

// Release closes the file and invalidates the lease. The second and later
// calls return ErrLeaseReleased without touching the file handle.
func (l *FileLease) Release() error {
	if !l.released.CompareAndSwap(false, true) {
		return ErrLeaseReleased
	}
	return l.file.Close()
}
