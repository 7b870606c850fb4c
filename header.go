// Header management for the mailbox index.
//
// The header is a fixed MinHeaderSize-byte little-endian binary struct
// at the start of the index file. Indexes that carry extension header
// data may declare a larger BaseHeaderSize; HEADER_UPDATE records are
// bounds-checked against that value, not MinHeaderSize (§4.E).
//
// Header is re-encoded into a mirror byte buffer (hdrCopyBuf, owned by
// indexMap) after each HEADER_UPDATE and at the end of every SyncMap
// call, so a sync always ends with a byte-accurate on-disk
// representation ready to be written back to the index's residence.
package mdxsync

import (
	"encoding/binary"
	"fmt"
)

// MinHeaderSize is the byte size of the fixed portion of Header.
//
//	Offset  Size  Field
//	0x00    4     IndexID
//	0x04    4     MessagesCount
//	0x08    4     RecordSize
//	0x0c    4     HeaderSize
//	0x10    4     BaseHeaderSize
//	0x14    4     NextUID
//	0x18    4     SeenMessagesCount
//	0x1c    4     DeletedMessagesCount
//	0x20    4     FirstUnseenUIDLowwater
//	0x24    4     FirstDeletedUIDLowwater
//	0x28    4     Flags
//	0x2c    4     LogFileSeq
//	0x30    8     LogFileHeadOffset
//	0x38    8     LogFileTailOffset
const MinHeaderSize = 0x40

// HeaderFlags is the header's bitset field (§3).
type HeaderFlags uint32

const (
	// HeaderHaveDirty is set iff at least one record in the map
	// carries FlagDirty. Only enforced at end of sync (§3 invariant 6).
	HeaderHaveDirty HeaderFlags = 1 << iota

	// HeaderFSCKD marks an index that was previously repaired by an
	// external fsck pass. Propagated across log resets (§4.G step 5).
	HeaderFSCKD
)

// Header is the persistent metadata block of a mailbox index (§3).
type Header struct {
	IndexID                 uint32
	MessagesCount           uint32
	RecordSize              uint32
	HeaderSize              uint32
	BaseHeaderSize          uint32
	NextUID                 uint32
	SeenMessagesCount       uint32
	DeletedMessagesCount    uint32
	FirstUnseenUIDLowwater  uint32
	FirstDeletedUIDLowwater uint32
	Flags                   HeaderFlags
	LogFileSeq              uint32
	LogFileHeadOffset       int64
	LogFileTailOffset       int64
}

// decodeHeader parses MinHeaderSize bytes into a Header.
func decodeHeader(buf []byte) (*Header, error) {
	if len(buf) < MinHeaderSize {
		return nil, fmt.Errorf("%w: header buffer too short (%d < %d)", ErrIOFailure, len(buf), MinHeaderSize)
	}
	le := binary.LittleEndian
	h := &Header{
		IndexID:                 le.Uint32(buf[0x00:]),
		MessagesCount:           le.Uint32(buf[0x04:]),
		RecordSize:              le.Uint32(buf[0x08:]),
		HeaderSize:              le.Uint32(buf[0x0c:]),
		BaseHeaderSize:          le.Uint32(buf[0x10:]),
		NextUID:                 le.Uint32(buf[0x14:]),
		SeenMessagesCount:       le.Uint32(buf[0x18:]),
		DeletedMessagesCount:    le.Uint32(buf[0x1c:]),
		FirstUnseenUIDLowwater:  le.Uint32(buf[0x20:]),
		FirstDeletedUIDLowwater: le.Uint32(buf[0x24:]),
		Flags:                   HeaderFlags(le.Uint32(buf[0x28:])),
		LogFileSeq:              le.Uint32(buf[0x2c:]),
		LogFileHeadOffset:       int64(le.Uint64(buf[0x30:])),
		LogFileTailOffset:       int64(le.Uint64(buf[0x38:])),
	}
	return h, nil
}

// encode serialises the header into a caller-sized buffer (at least
// MinHeaderSize bytes; the remainder, if BaseHeaderSize is larger, is
// left untouched for extension header data to occupy).
func (h *Header) encode(buf []byte) error {
	if len(buf) < MinHeaderSize {
		return fmt.Errorf("%w: encode buffer too short (%d < %d)", ErrIOFailure, len(buf), MinHeaderSize)
	}
	le := binary.LittleEndian
	le.PutUint32(buf[0x00:], h.IndexID)
	le.PutUint32(buf[0x04:], h.MessagesCount)
	le.PutUint32(buf[0x08:], h.RecordSize)
	le.PutUint32(buf[0x0c:], h.HeaderSize)
	le.PutUint32(buf[0x10:], h.BaseHeaderSize)
	le.PutUint32(buf[0x14:], h.NextUID)
	le.PutUint32(buf[0x18:], h.SeenMessagesCount)
	le.PutUint32(buf[0x1c:], h.DeletedMessagesCount)
	le.PutUint32(buf[0x20:], h.FirstUnseenUIDLowwater)
	le.PutUint32(buf[0x24:], h.FirstDeletedUIDLowwater)
	le.PutUint32(buf[0x28:], uint32(h.Flags))
	le.PutUint32(buf[0x2c:], h.LogFileSeq)
	le.PutUint64(buf[0x30:], uint64(h.LogFileHeadOffset))
	le.PutUint64(buf[0x38:], uint64(h.LogFileTailOffset))
	return nil
}

// clone returns a deep copy of the header.
func (h *Header) clone() *Header {
	cp := *h
	return &cp
}
