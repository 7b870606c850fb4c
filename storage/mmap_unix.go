//go:build unix || linux || darwin

// mmap(2)/msync(2)/munmap(2) implementation for Unix platforms.
package storage

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

type mmapRegion struct {
	data []byte
}

// NewMmapRegion maps the first size bytes of f for shared read/write
// access. f must remain open for the lifetime of the returned Region.
func NewMmapRegion(f *os.File, size int) (Region, error) {
	data, err := unix.Mmap(int(f.Fd()), 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		return nil, fmt.Errorf("storage: mmap: %w", err)
	}
	return &mmapRegion{data: data}, nil
}

func (r *mmapRegion) Bytes() []byte { return r.data }

func (r *mmapRegion) Sync() error {
	if r.data == nil {
		return nil
	}
	return unix.Msync(r.data, unix.MS_SYNC)
}

func (r *mmapRegion) Close() error {
	if r.data == nil {
		return nil
	}
	err := unix.Munmap(r.data)
	r.data = nil
	return err
}
