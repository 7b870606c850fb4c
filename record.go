// Message record format.
//
// Every message occupies a fixed record_size slice inside the record
// map's arena (§3, §4.A). The base portion is typed; any bytes beyond
// BaseRecordSize belong to extensions enabled for this index and are
// opaque to this package beyond sizing and zero-fill on append.
//
//	Offset  Size  Field
//	0x00    4     UID
//	0x04    1     Flags
//	0x05    3     reserved (zero-filled on append)
package mdxsync

import (
	"encoding/binary"
	"fmt"
)

// BaseRecordSize is the byte size of the fixed (non-extension) portion
// of a message record.
const BaseRecordSize = 8

// RecordFlags is the per-message flag bitset (§3, §4.C).
type RecordFlags uint8

const (
	// FlagSeen marks a message as having been read.
	FlagSeen RecordFlags = 1 << iota
	// FlagDeleted marks a message for expunge.
	FlagDeleted
	// FlagDirty marks a message as needing attention from an external
	// collaborator; its presence anywhere in the map drives the
	// header's HeaderHaveDirty bit (§3 invariant 6).
	FlagDirty
)

// recordUID reads the UID field of a record slice of at least
// BaseRecordSize bytes.
func recordUID(rec []byte) uint32 {
	return binary.LittleEndian.Uint32(rec[0:4])
}

// setRecordUID writes the UID field of a record slice.
func setRecordUID(rec []byte, uid uint32) {
	binary.LittleEndian.PutUint32(rec[0:4], uid)
}

// recordFlags reads the Flags field of a record slice.
func recordFlags(rec []byte) RecordFlags {
	return RecordFlags(rec[4])
}

// setRecordFlags writes the Flags field of a record slice.
func setRecordFlags(rec []byte, flags RecordFlags) {
	rec[4] = byte(flags)
}

// validateRecordSize checks that a configured record size is large
// enough to hold the base record and returns the corruption-worthy
// error otherwise.
func validateRecordSize(recordSize uint32) error {
	if recordSize < BaseRecordSize {
		return fmt.Errorf("%w: record_size %d smaller than base record %d", ErrIOFailure, recordSize, BaseRecordSize)
	}
	return nil
}
