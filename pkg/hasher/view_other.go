//go:build !(linux || darwin || freebsd)

package hasher

import (
	"fmt"
	"io"
	"os"
)

// heapView backs the view with a single read on platforms without mmap support here
type heapView struct {
	data []byte
}

func mapFile(f *os.File, size int) (MappedView, error) {
	data := make([]byte, size)
	if _, err := io.ReadFull(f, data); err != nil {
		return nil, fmt.Errorf("read: %w", err)
	}
	return &heapView{data: data}, nil
}

func (v *heapView) Bytes() []byte {
	return v.data
}

func (v *heapView) Close() error {
	v.data = nil
	return nil
}
