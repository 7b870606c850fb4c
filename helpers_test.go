// Test helpers: a minimal in-memory LogView and wire-format encoders
// the rest of the test suite uses to build transaction logs without
// hand-assembling byte slices inline. Grounded on the teacher's
// db_test.go openTestDB/collect helper pattern — one small shared
// fixture builder per package, used by every _test.go file.
package mdxsync

import "encoding/binary"

// txnEntry is one not-yet-positioned transaction for newTestLog.
type txnEntry struct {
	Type    TxnType
	Payload []byte
}

// testLogView is a single-segment, slice-backed LogView. Each
// record's wire "offset" is simply its index in the slice, which is
// all SyncMap needs: a total order it can compare positions against.
type testLogView struct {
	seq     uint32
	records []LogRecord
	pos     int // index of the last record returned by Next, or -1
}

// newTestLog builds a testLogView whose records carry real positions,
// so the idempotent skip-check (§4.G step 6) and ext-intro rewind
// (§4.G step 8) behave the way they would against a real log.
func newTestLog(seq uint32, entries ...txnEntry) *testLogView {
	lv := &testLogView{seq: seq, pos: -1}
	for i, e := range entries {
		lv.records = append(lv.records, LogRecord{
			PrevSeq:    seq,
			PrevOffset: int64(i),
			Header:     TxnHeader{Type: e.Type, Size: uint32(len(e.Payload))},
			Payload:    e.Payload,
		})
	}
	return lv
}

func (lv *testLogView) Set(seq uint32, offset int64, maxSeq uint32, maxOffset int64) (SetResult, error) {
	if seq != lv.seq {
		return SetResult{OK: true, Reset: true, Reason: "unknown log file sequence"}, nil
	}
	if offset < 0 || offset > int64(len(lv.records)) {
		return SetResult{Reason: "offset out of range"}, nil
	}
	lv.pos = int(offset) - 1
	return SetResult{OK: true}, nil
}

func (lv *testLogView) Next() (LogRecord, bool, error) {
	next := lv.pos + 1
	if next >= len(lv.records) {
		return LogRecord{}, false, nil
	}
	lv.pos = next
	return lv.records[next], true, nil
}

func (lv *testLogView) GetPrevPos() (uint32, int64) {
	return lv.seq, int64(lv.pos + 1)
}

func (lv *testLogView) AtEOL() bool {
	return lv.pos+1 >= len(lv.records)
}

func (lv *testLogView) HeadFileSeq() uint32  { return lv.seq }
func (lv *testLogView) MaxTailOffset() int64 { return int64(len(lv.records)) }

// --- wire-format encoders mirroring wire.go's decoders ---

func encodeAppendPayload(uid uint32, flags RecordFlags, extra []byte) []byte {
	buf := make([]byte, BaseRecordSize+len(extra))
	setRecordUID(buf, uid)
	setRecordFlags(buf, flags)
	copy(buf[BaseRecordSize:], extra)
	return buf
}

func encodeUIDRangesPayload(ranges ...uidRange) []byte {
	buf := make([]byte, 8*len(ranges))
	for i, r := range ranges {
		binary.LittleEndian.PutUint32(buf[i*8:], r.UID1)
		binary.LittleEndian.PutUint32(buf[i*8+4:], r.UID2)
	}
	return buf
}

func encodeFlagUpdatePayload(uid1, uid2 uint32, add, remove RecordFlags) []byte {
	buf := make([]byte, 10)
	binary.LittleEndian.PutUint32(buf[0:], uid1)
	binary.LittleEndian.PutUint32(buf[4:], uid2)
	buf[8] = byte(add)
	buf[9] = byte(remove)
	return buf
}

func encodeHeaderUpdatePayload(offset uint16, bytes []byte) []byte {
	buf := make([]byte, 4+len(bytes))
	binary.LittleEndian.PutUint16(buf[0:], offset)
	binary.LittleEndian.PutUint16(buf[2:], uint16(len(bytes)))
	copy(buf[4:], bytes)
	return buf
}

func encodeModseqUpdatePayload(entries ...modseqUpdateEntry) []byte {
	buf := make([]byte, 12*len(entries))
	for i, e := range entries {
		binary.LittleEndian.PutUint32(buf[i*12:], e.UID)
		binary.LittleEndian.PutUint32(buf[i*12+4:], e.ModseqHi)
		binary.LittleEndian.PutUint32(buf[i*12+8:], e.ModseqLo)
	}
	return buf
}

func encodeModseq(uid uint32, modseq uint64) modseqUpdateEntry {
	return modseqUpdateEntry{UID: uid, ModseqHi: uint32(modseq >> 32), ModseqLo: uint32(modseq)}
}

func encodeExtIntroPayload(descs ...extIntroDescriptor) []byte {
	var buf []byte
	for _, d := range descs {
		entry := make([]byte, pad4(uint32(10+len(d.Name))))
		binary.LittleEndian.PutUint32(entry[0:], d.ExtID)
		binary.LittleEndian.PutUint32(entry[4:], d.RecordSize)
		binary.LittleEndian.PutUint16(entry[8:], uint16(len(d.Name)))
		copy(entry[10:], d.Name)
		buf = append(buf, entry...)
	}
	return buf
}

func encodeExtResetPayload(extID, newResetID uint32) []byte {
	buf := make([]byte, 8)
	binary.LittleEndian.PutUint32(buf[0:], extID)
	binary.LittleEndian.PutUint32(buf[4:], newResetID)
	return buf
}

func encodeExtAtomicIncPayload(entries ...extAtomicIncEntry) []byte {
	buf := make([]byte, 8*len(entries))
	for i, e := range entries {
		binary.LittleEndian.PutUint32(buf[i*8:], e.UID)
		binary.LittleEndian.PutUint32(buf[i*8+4:], uint32(e.Delta))
	}
	return buf
}

// stubIntroHandler claims every extension at a fixed map index (or
// ignores it when ignore is set), for tests that only need
// EXT_REC_UPDATE/EXT_ATOMIC_INC to have an active intro to attach to.
// The record size comes from the intro descriptor; recordSize is not
// consulted.
type stubIntroHandler struct {
	mapIdx     uint32
	recordSize uint32
	ignore     bool
}

func (h *stubIntroHandler) HandleExtIntro(extID uint32, recordSize uint32, name string) (uint32, bool, error) {
	if h.ignore {
		return 0, true, nil
	}
	return h.mapIdx, false, nil
}

// recordingExpungeHandler captures every expunged record's UID, for
// tests asserting the expunge engine notifies handlers before
// compacting.
type recordingExpungeHandler struct {
	uids []uint32
}

func (h *recordingExpungeHandler) HandleExpunge(extensionID, recordOffset uint32, record []byte, handlerCtx any) error {
	h.uids = append(h.uids, recordUID(record))
	return nil
}
