//go:build linux || darwin || freebsd

package hasher

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

type mmapView struct {
	data []byte
}

func mapFile(f *os.File, size int) (MappedView, error) {
	data, err := unix.Mmap(int(f.Fd()), 0, size, unix.PROT_READ, unix.MAP_SHARED)
	if err != nil {
		return nil, fmt.Errorf("mmap: %w", err)
	}
	// Advisory only
	_ = unix.Madvise(data, unix.MADV_SEQUENTIAL)
	return &mmapView{data: data}, nil
}

func (v *mmapView) Bytes() []byte {
	return v.data
}

func (v *mmapView) Close() error {
	if v.data == nil {
		return nil
	}
	err := unix.Munmap(v.data)
	v.data = nil
	return err
}
