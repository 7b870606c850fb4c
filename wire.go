// Transaction record wire format (§6).
//
// All multi-byte integers are little-endian. The outer TxnHeader
// (type bitfield + u32 size) precedes size bytes of payload, whose
// layout depends on the type's base case. Variable-length entries
// inside a payload (EXT_INTRO descriptors in decodeExtIntro,
// EXT_REC_UPDATE entries in apply.go) are padded to a 4-byte boundary
// and the cursor advances by pad4(len) rather than len. Each record's
// payload is decoded on its own, so a malformed payload never affects
// the records after it.
package mdxsync

import (
	"encoding/binary"
	"fmt"
)

// TxnType is the outer record header's type bitfield: a base case in
// the low bits plus the TxnExternal/TxnExpungeProt modifier bits.
type TxnType uint32

// Base record type cases (§4.E dispatch table).
const (
	TxnAppend TxnType = iota + 1
	TxnExpunge
	TxnExpungeGUID
	TxnFlagUpdate
	TxnHeaderUpdate
	TxnExtIntro
	TxnExtReset
	TxnExtHdrUpdate
	TxnExtHdrUpdate32
	TxnExtRecUpdate
	TxnExtAtomicInc
	TxnKeywordUpdate
	TxnKeywordReset
	TxnModseqUpdate
	TxnIndexDeleted
	TxnIndexUndeleted
	TxnBoundary
	TxnAttributeUpdate

	txnBaseMask TxnType = 0x0fffffff
)

// Modifier bits, outside the base-case mask.
const (
	// TxnExternal marks an entry as already having affected the
	// authoritative store; the applier commits it. Non-external
	// entries are requests the applier only records (§4.E, GLOSSARY).
	TxnExternal TxnType = 1 << 28
	// TxnExpungeProt protects an expunge request from being dropped
	// by an intervening reset. The dispatcher strips it with baseType
	// and does not act on it or pass it to any handler.
	TxnExpungeProt TxnType = 1 << 29
)

// baseType strips the modifier bits, leaving the dispatch case.
func (t TxnType) baseType() TxnType { return t & txnBaseMask }
func (t TxnType) isExternal() bool  { return t&TxnExternal != 0 }

// pad4 rounds n up to the next multiple of 4.
func pad4(n uint32) uint32 { return (n + 3) &^ 3 }

// decodeTxnHeader reads an 8-byte outer header from buf.
func decodeTxnHeader(buf []byte) (TxnHeader, error) {
	if len(buf) < 8 {
		return TxnHeader{}, fmt.Errorf("%w: txn header needs 8 bytes, got %d", ErrIOFailure, len(buf))
	}
	return TxnHeader{
		Type: TxnType(binary.LittleEndian.Uint32(buf[0:4])),
		Size: binary.LittleEndian.Uint32(buf[4:8]),
	}, nil
}

// uidRange is a request-side {uid1, uid2} pair as carried on the wire
// by EXPUNGE and KEYWORD_RESET (§4.E).
type uidRange struct {
	UID1, UID2 uint32
}

func decodeUIDRanges(payload []byte) ([]uidRange, error) {
	const sz = 8
	if len(payload)%sz != 0 {
		return nil, fmt.Errorf("%w: uid range payload size %d not a multiple of %d", ErrIOFailure, len(payload), sz)
	}
	n := len(payload) / sz
	out := make([]uidRange, n)
	for i := 0; i < n; i++ {
		b := payload[i*sz:]
		out[i] = uidRange{
			UID1: binary.LittleEndian.Uint32(b[0:4]),
			UID2: binary.LittleEndian.Uint32(b[4:8]),
		}
	}
	return out, nil
}

// expungeGUIDEntry is one entry of an EXPUNGE_GUID payload.
type expungeGUIDEntry struct {
	UID  uint32
	GUID [16]byte
}

func decodeExpungeGUID(payload []byte) ([]expungeGUIDEntry, error) {
	const sz = 20
	if len(payload)%sz != 0 {
		return nil, fmt.Errorf("%w: expunge-guid payload size %d not a multiple of %d", ErrIOFailure, len(payload), sz)
	}
	n := len(payload) / sz
	out := make([]expungeGUIDEntry, n)
	for i := 0; i < n; i++ {
		b := payload[i*sz:]
		out[i].UID = binary.LittleEndian.Uint32(b[0:4])
		copy(out[i].GUID[:], b[4:20])
	}
	return out, nil
}

// flagUpdate is the payload of a FLAG_UPDATE record.
type flagUpdate struct {
	UID1, UID2  uint32
	Add, Remove RecordFlags
}

func decodeFlagUpdate(payload []byte) (flagUpdate, error) {
	if len(payload) < 10 {
		return flagUpdate{}, fmt.Errorf("%w: flag update payload too short (%d)", ErrIOFailure, len(payload))
	}
	return flagUpdate{
		UID1:   binary.LittleEndian.Uint32(payload[0:4]),
		UID2:   binary.LittleEndian.Uint32(payload[4:8]),
		Add:    RecordFlags(payload[8]),
		Remove: RecordFlags(payload[9]),
	}, nil
}

// headerUpdate is the payload of HEADER_UPDATE (16-bit offset/size).
type headerUpdate struct {
	Offset uint16
	Bytes  []byte
}

func decodeHeaderUpdate(payload []byte) (headerUpdate, error) {
	if len(payload) < 4 {
		return headerUpdate{}, fmt.Errorf("%w: header update payload too short (%d)", ErrIOFailure, len(payload))
	}
	offset := binary.LittleEndian.Uint16(payload[0:2])
	size := binary.LittleEndian.Uint16(payload[2:4])
	if int(size) > len(payload)-4 {
		return headerUpdate{}, fmt.Errorf("%w: header update size %d exceeds payload", ErrIOFailure, size)
	}
	return headerUpdate{Offset: offset, Bytes: payload[4 : 4+int(size)]}, nil
}

// extHdrUpdate is the shared shape of EXT_HDR_UPDATE (16-bit) and
// EXT_HDR_UPDATE32 (32-bit offset/size).
type extHdrUpdate struct {
	ExtID  uint32
	Offset uint32
	Bytes  []byte
}

func decodeExtHdrUpdate(payload []byte, wide bool) (extHdrUpdate, error) {
	if wide {
		if len(payload) < 12 {
			return extHdrUpdate{}, fmt.Errorf("%w: ext hdr update32 payload too short (%d)", ErrIOFailure, len(payload))
		}
		extID := binary.LittleEndian.Uint32(payload[0:4])
		offset := binary.LittleEndian.Uint32(payload[4:8])
		size := binary.LittleEndian.Uint32(payload[8:12])
		if int(size) > len(payload)-12 {
			return extHdrUpdate{}, fmt.Errorf("%w: ext hdr update32 size %d exceeds payload", ErrIOFailure, size)
		}
		return extHdrUpdate{ExtID: extID, Offset: offset, Bytes: payload[12 : 12+int(size)]}, nil
	}
	if len(payload) < 8 {
		return extHdrUpdate{}, fmt.Errorf("%w: ext hdr update payload too short (%d)", ErrIOFailure, len(payload))
	}
	extID := binary.LittleEndian.Uint32(payload[0:4])
	offset := uint32(binary.LittleEndian.Uint16(payload[4:6]))
	size := uint32(binary.LittleEndian.Uint16(payload[6:8]))
	if int(size) > len(payload)-8 {
		return extHdrUpdate{}, fmt.Errorf("%w: ext hdr update size %d exceeds payload", ErrIOFailure, size)
	}
	return extHdrUpdate{ExtID: extID, Offset: offset, Bytes: payload[8 : 8+int(size)]}, nil
}

// extIntroDescriptor is one entry of an EXT_INTRO payload.
type extIntroDescriptor struct {
	ExtID      uint32
	RecordSize uint32
	Name       string
}

func decodeExtIntro(payload []byte) ([]extIntroDescriptor, error) {
	var out []extIntroDescriptor
	pos := 0
	for pos < len(payload) {
		if len(payload)-pos < 10 {
			return nil, fmt.Errorf("%w: ext intro descriptor truncated", ErrIOFailure)
		}
		extID := binary.LittleEndian.Uint32(payload[pos : pos+4])
		recSize := binary.LittleEndian.Uint32(payload[pos+4 : pos+8])
		nameLen := binary.LittleEndian.Uint16(payload[pos+8 : pos+10])
		start := pos + 10
		if int(nameLen) > len(payload)-start {
			return nil, fmt.Errorf("%w: ext intro name length %d exceeds payload", ErrIOFailure, nameLen)
		}
		name := string(payload[start : start+int(nameLen)])
		consumed := pad4(uint32(10 + int(nameLen)))
		out = append(out, extIntroDescriptor{ExtID: extID, RecordSize: recSize, Name: name})
		pos += int(consumed)
	}
	return out, nil
}

// extResetDescriptor is the payload of EXT_RESET.
type extResetDescriptor struct {
	ExtID      uint32
	NewResetID uint32
}

func decodeExtReset(payload []byte) (extResetDescriptor, error) {
	if len(payload) < 8 {
		return extResetDescriptor{}, fmt.Errorf("%w: ext reset payload too short (%d)", ErrIOFailure, len(payload))
	}
	return extResetDescriptor{
		ExtID:      binary.LittleEndian.Uint32(payload[0:4]),
		NewResetID: binary.LittleEndian.Uint32(payload[4:8]),
	}, nil
}

// extAtomicIncEntry is one entry of an EXT_ATOMIC_INC payload.
type extAtomicIncEntry struct {
	UID   uint32
	Delta int32
}

func decodeExtAtomicInc(payload []byte) ([]extAtomicIncEntry, error) {
	const sz = 8
	if len(payload)%sz != 0 {
		return nil, fmt.Errorf("%w: ext atomic inc payload size %d not a multiple of %d", ErrIOFailure, len(payload), sz)
	}
	n := len(payload) / sz
	out := make([]extAtomicIncEntry, n)
	for i := 0; i < n; i++ {
		b := payload[i*sz:]
		out[i] = extAtomicIncEntry{
			UID:   binary.LittleEndian.Uint32(b[0:4]),
			Delta: int32(binary.LittleEndian.Uint32(b[4:8])),
		}
	}
	return out, nil
}

// keywordUpdate is the payload of KEYWORD_UPDATE.
type keywordUpdate struct {
	KeywordIdx uint32
	Add        bool
	UID1, UID2 uint32
}

func decodeKeywordUpdate(payload []byte) (keywordUpdate, error) {
	if len(payload) < 13 {
		return keywordUpdate{}, fmt.Errorf("%w: keyword update payload too short (%d)", ErrIOFailure, len(payload))
	}
	return keywordUpdate{
		KeywordIdx: binary.LittleEndian.Uint32(payload[0:4]),
		Add:        payload[4] != 0,
		UID1:       binary.LittleEndian.Uint32(payload[5:9]),
		UID2:       binary.LittleEndian.Uint32(payload[9:13]),
	}, nil
}

func decodeKeywordReset(payload []byte) (uidRange, error) {
	if len(payload) < 8 {
		return uidRange{}, fmt.Errorf("%w: keyword reset payload too short (%d)", ErrIOFailure, len(payload))
	}
	return uidRange{
		UID1: binary.LittleEndian.Uint32(payload[0:4]),
		UID2: binary.LittleEndian.Uint32(payload[4:8]),
	}, nil
}

// modseqUpdateEntry is one entry of a MODSEQ_UPDATE payload.
type modseqUpdateEntry struct {
	UID      uint32
	ModseqHi uint32
	ModseqLo uint32
}

func (e modseqUpdateEntry) modseq() uint64 {
	return uint64(e.ModseqHi)<<32 | uint64(e.ModseqLo)
}

func decodeModseqUpdate(payload []byte) ([]modseqUpdateEntry, error) {
	const sz = 12
	if len(payload)%sz != 0 {
		return nil, fmt.Errorf("%w: modseq update payload size %d not a multiple of %d", ErrIOFailure, len(payload), sz)
	}
	n := len(payload) / sz
	out := make([]modseqUpdateEntry, n)
	for i := 0; i < n; i++ {
		b := payload[i*sz:]
		out[i] = modseqUpdateEntry{
			UID:      binary.LittleEndian.Uint32(b[0:4]),
			ModseqHi: binary.LittleEndian.Uint32(b[4:8]),
			ModseqLo: binary.LittleEndian.Uint32(b[8:12]),
		}
	}
	return out, nil
}
