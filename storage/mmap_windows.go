//go:build windows

// CreateFileMapping/MapViewOfFile implementation for Windows.
package storage

import (
	"fmt"
	"os"
	"unsafe"

	"golang.org/x/sys/windows"
)

type mmapRegion struct {
	handle windows.Handle
	addr   uintptr
	data   []byte
}

// NewMmapRegion maps the first size bytes of f for shared read/write
// access. f must remain open for the lifetime of the returned Region.
func NewMmapRegion(f *os.File, size int) (Region, error) {
	h, err := windows.CreateFileMapping(windows.Handle(f.Fd()), nil, windows.PAGE_READWRITE, 0, uint32(size), nil)
	if err != nil {
		return nil, fmt.Errorf("storage: CreateFileMapping: %w", err)
	}

	addr, err := windows.MapViewOfFile(h, windows.FILE_MAP_WRITE, 0, 0, uintptr(size))
	if err != nil {
		windows.CloseHandle(h)
		return nil, fmt.Errorf("storage: MapViewOfFile: %w", err)
	}

	data := unsafe.Slice((*byte)(unsafe.Pointer(addr)), size)
	return &mmapRegion{handle: h, addr: addr, data: data}, nil
}

func (r *mmapRegion) Bytes() []byte { return r.data }

func (r *mmapRegion) Sync() error {
	if r.addr == 0 {
		return nil
	}
	return windows.FlushViewOfFile(r.addr, uintptr(len(r.data)))
}

func (r *mmapRegion) Close() error {
	if r.addr == 0 {
		return nil
	}
	err := windows.UnmapViewOfFile(r.addr)
	windows.CloseHandle(r.handle)
	r.addr = 0
	r.data = nil
	return err
}
