// Package storage provides byte-range backing stores for callers that
// persist a mailbox index's header and record bytes to a file.
//
// mdxsync itself never touches a filesystem (see doc.go): a View's
// LogView supplies the transaction log, and whatever owns the index
// file is responsible for materializing Header/record bytes into (and
// back out of) a Region before and after a sync. This package is that
// "whatever" for the common cases: plain heap memory for tests and
// small indexes, or an mmap'd file for anything large enough that a
// full-file read on every open would be wasteful.
package storage

// Region is a contiguous byte range a caller can read and write in
// place.
type Region interface {
	// Bytes returns the region's backing slice. Valid until Close.
	Bytes() []byte
	// Sync flushes any buffered writes to stable storage. A no-op for
	// heap-backed regions.
	Sync() error
	// Close releases the region. For an mmap'd region this unmaps the
	// view; it does not close the underlying file handle.
	Close() error
}

// memoryRegion is a heap-backed Region.
type memoryRegion struct {
	buf []byte
}

// NewMemoryRegion returns a zeroed, heap-backed Region of size bytes.
func NewMemoryRegion(size int) Region {
	return &memoryRegion{buf: make([]byte, size)}
}

func (r *memoryRegion) Bytes() []byte { return r.buf }
func (r *memoryRegion) Sync() error   { return nil }
func (r *memoryRegion) Close() error  { return nil }
