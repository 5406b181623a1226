package hasher

import (
	"fmt"
	"os"
)

// MappedView is a read-only view of a file's bytes.
//
// The view is only valid while no other process writes to or truncates the
// underlying file. Violating this is undefined behavior: the bytes may change
// under the reader, and reading past a truncated end faults the process. The
// slice returned by Bytes must not be used after Close.
type MappedView interface {
	Bytes() []byte
	Close() error
}

// Map returns a read-only view of the first size bytes of f
func Map(f *os.File, size int64) (MappedView, error) {
	if size < 0 {
		return nil, fmt.Errorf("invalid size %d", size)
	}
	if size == 0 {
		return emptyView{}, nil
	}
	if int64(int(size)) != size {
		return nil, fmt.Errorf("file too large to map: %d bytes", size)
	}
	return mapFile(f, int(size))
}

type emptyView struct{}

func (emptyView) Bytes() []byte { return nil }
func (emptyView) Close() error  { return nil }
