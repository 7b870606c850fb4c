// Record applier / dispatcher (§4.E): one function per transaction
// type, called in turn by SyncMap for every record the log yields.
//
// None of these handlers ever abort a sync on a data-condition problem
// — they call setCorrupted and move on to the next record, so a
// single corrupt entry never takes down the rest of the replay (§7).
// A non-nil error return from dispatch comes only from the expunge
// path (an expunge handler's error or a rejected compaction); SyncMap
// stops on it and reports IOError.
package mdxsync

import "encoding/binary"

// atomicMap forks ctx.view.mapRef for record-byte mutation and keeps
// ctx.modseq pinned to whatever map that fork produced — a
// copy-on-write fork silently retires the map modseqSub was
// constructed against otherwise (§4.B, §4.F).
func atomicMap(ctx *syncContext) *indexMap {
	im := getAtomicMap(ctx.view)
	ctx.modseq.mapReplaced(im)
	return im
}

// privateMap is atomicMap's counterpart for mutations that only touch
// the header or modseq vector, not record bytes, so the record map
// itself need not fork.
func privateMap(ctx *syncContext) *indexMap {
	moveToPrivateMemory(ctx.view)
	im := ctx.view.mapRef
	ctx.modseq.mapReplaced(im)
	return im
}

// dispatch applies one transaction log record to ctx's view (§4.E).
func dispatch(ctx *syncContext, rec LogRecord) error {
	base := rec.Header.Type.baseType()
	external := rec.Header.Type.isExternal()
	payload := rec.Payload

	switch base {
	case TxnAppend:
		applyAppend(ctx, payload)

	case TxnExpunge:
		if !external {
			return nil
		}
		ranges, err := decodeUIDRanges(payload)
		if err != nil {
			setCorrupted(ctx, CorruptionBadSize, "expunge: %v", err)
			return nil
		}
		return doExpunge(ctx, ranges)

	case TxnExpungeGUID:
		if !external {
			return nil
		}
		entries, err := decodeExpungeGUID(payload)
		if err != nil {
			setCorrupted(ctx, CorruptionBadSize, "expunge-guid: %v", err)
			return nil
		}
		ranges := make([]uidRange, len(entries))
		for i, e := range entries {
			ranges[i] = uidRange{UID1: e.UID, UID2: e.UID}
		}
		return doExpunge(ctx, ranges)

	case TxnFlagUpdate:
		applyFlagUpdate(ctx, payload, external)

	case TxnHeaderUpdate:
		applyHeaderUpdate(ctx, payload)

	case TxnExtIntro:
		applyExtIntro(ctx, rec, payload)

	case TxnExtReset:
		applyExtReset(ctx, payload)

	case TxnExtHdrUpdate:
		if _, err := decodeExtHdrUpdate(payload, false); err != nil {
			setCorrupted(ctx, CorruptionBadSize, "ext hdr update: %v", err)
		}

	case TxnExtHdrUpdate32:
		if _, err := decodeExtHdrUpdate(payload, true); err != nil {
			setCorrupted(ctx, CorruptionBadSize, "ext hdr update32: %v", err)
		}

	case TxnExtRecUpdate:
		applyExtRecUpdate(ctx, payload)

	case TxnExtAtomicInc:
		applyExtAtomicInc(ctx, payload)

	case TxnKeywordUpdate:
		applyKeywordUpdate(ctx, payload, external)

	case TxnKeywordReset:
		applyKeywordReset(ctx, payload, external)

	case TxnModseqUpdate:
		applyModseqUpdate(ctx, payload)

	case TxnIndexDeleted:
		if external {
			ctx.indexDeleteRequested = true
		}

	case TxnIndexUndeleted:
		if external {
			ctx.indexDeleteRequested = false
		}

	case TxnBoundary, TxnAttributeUpdate:
		// No persistent effect; these exist purely as stream markers
		// a handler may observe via a future extension point.

	default:
		setCorrupted(ctx, CorruptionUnknownType, "unknown transaction type %#x", uint32(base))
	}

	return nil
}

// applyAppend handles TxnAppend: a new message record at the end of
// the arena. Re-applying an already-seen append (idempotent replay
// after a reset) is a no-op rather than a corruption.
func applyAppend(ctx *syncContext, payload []byte) {
	if len(payload) < BaseRecordSize {
		setCorrupted(ctx, CorruptionBadSize, "append payload too short (%d)", len(payload))
		return
	}
	uid := recordUID(payload)
	flags := recordFlags(payload)

	im := atomicMap(ctx)

	if im.records.lastAppendedUID != 0 && uid <= im.records.lastAppendedUID {
		return
	}
	if uid < im.header.NextUID {
		setCorrupted(ctx, CorruptionUIDOrder, "append uid %d below next_uid %d", uid, im.header.NextUID)
		return
	}

	im.records.append(uid, flags)
	seq := im.records.recordsCount

	if extra := payload[BaseRecordSize:]; len(extra) > 0 {
		rec := im.records.recordAt(seq)
		n := uint32(len(extra))
		if room := uint32(len(rec)) - BaseRecordSize; n > room {
			n = room
		}
		copy(rec[BaseRecordSize:BaseRecordSize+n], extra[:n])
	}

	ctx.modseq.append(seq)

	im.header.MessagesCount++
	im.header.NextUID = uid + 1

	if err := updateCounts(im.header, 0, flags); err != nil {
		setCorrupted(ctx, CorruptionCounterMath, "append: %v", err)
	}
	updateLowwaters(im.header, uid, flags)
}

// applyFlagUpdate handles TxnFlagUpdate: add/remove flag bits across a
// resolved sequence range, updating counters per touched record and
// bumping modseq once for the whole range if external (§4.F).
func applyFlagUpdate(ctx *syncContext, payload []byte, external bool) {
	fu, err := decodeFlagUpdate(payload)
	if err != nil {
		setCorrupted(ctx, CorruptionBadSize, "flag update: %v", err)
		return
	}

	im := atomicMap(ctx)
	sr, ok := im.records.resolveUIDRange(fu.UID1, fu.UID2)
	if !ok {
		return
	}

	for seq := sr.Start; seq <= sr.End; seq++ {
		old := im.records.flagsAt(seq)
		next := (old &^ fu.Remove) | fu.Add
		if next == old {
			continue
		}
		im.records.setFlagsAt(seq, next)
		uid := im.records.uidAt(seq)
		if err := updateCounts(im.header, old, next); err != nil {
			setCorrupted(ctx, CorruptionCounterMath, "flag update: %v", err)
		}
		updateLowwaters(im.header, uid, next)
	}

	if external {
		ctx.modseq.updateFlags(fu.Add|fu.Remove, sr.Start, sr.End)
	}
}

// applyHeaderUpdate handles TxnHeaderUpdate: a byte-range write into
// the header's mirror buffer. Sync-engine-owned fields (log position)
// always survive unchanged, and next_uid only ever moves forward
// (§4.E).
func applyHeaderUpdate(ctx *syncContext, payload []byte) {
	hu, err := decodeHeaderUpdate(payload)
	if err != nil {
		setCorrupted(ctx, CorruptionBadSize, "header update: %v", err)
		return
	}

	im := privateMap(ctx)
	end := uint32(hu.Offset) + uint32(len(hu.Bytes))
	if end > im.header.BaseHeaderSize {
		setCorrupted(ctx, CorruptionHeaderBounds, "header update [%d,%d) exceeds base_header_size %d", hu.Offset, end, im.header.BaseHeaderSize)
		return
	}

	if uint32(len(im.hdrCopyBuf)) < im.header.BaseHeaderSize {
		grown := make([]byte, im.header.BaseHeaderSize)
		copy(grown, im.hdrCopyBuf)
		im.hdrCopyBuf = grown
	}
	copy(im.hdrCopyBuf[hu.Offset:], hu.Bytes)

	if end <= MinHeaderSize {
		decoded, err := decodeHeader(im.hdrCopyBuf)
		if err != nil {
			setCorrupted(ctx, CorruptionHeaderBounds, "header update produced unparsable header: %v", err)
			return
		}
		decoded.LogFileSeq = im.header.LogFileSeq
		decoded.LogFileHeadOffset = im.header.LogFileHeadOffset
		decoded.LogFileTailOffset = im.header.LogFileTailOffset
		if decoded.NextUID < im.header.NextUID {
			decoded.NextUID = im.header.NextUID
		}
		im.header = decoded
	}
	mirrorHeader(im)
}

// applyExtIntro handles TxnExtIntro: one or more extension descriptors
// announcing a newly (re-)registered extension. Records the rewind
// position a later sync must resume from if replay stops mid-intro
// (§4.G step 8) and asks the registered ExtIntroHandler, if any, to
// claim each descriptor.
func applyExtIntro(ctx *syncContext, rec LogRecord, payload []byte) {
	descs, err := decodeExtIntro(payload)
	if err != nil {
		setCorrupted(ctx, CorruptionBadSize, "ext intro: %v", err)
		return
	}

	endSeq, endOff := ctx.view.Log.GetPrevPos()
	ctx.extIntroSeq = endSeq
	ctx.extIntroOffset = rec.PrevOffset
	ctx.extIntroEndOffset = endOff

	for _, d := range descs {
		if d.Name == modseqExtensionName {
			ctx.modseq.enableIfNeeded()
		}
		if ctx.handlers == nil || ctx.handlers.introH == nil {
			ctx.curExtMapIdx = extIdxNone
			ctx.curExtRecordSize = 0
			ctx.curExtIgnore = true
			continue
		}
		idx, ignore, err := ctx.handlers.introH.HandleExtIntro(d.ExtID, d.RecordSize, d.Name)
		if err != nil {
			setCorrupted(ctx, CorruptionMissingExtension, "ext intro %d (%s): %v", d.ExtID, d.Name, err)
			ctx.curExtMapIdx = extIdxNone
			ctx.curExtRecordSize = 0
			ctx.curExtIgnore = true
			continue
		}
		if ignore {
			ctx.curExtMapIdx = extIdxNone
			ctx.curExtRecordSize = 0
			ctx.curExtIgnore = true
			continue
		}
		ctx.curExtMapIdx = idx
		ctx.curExtRecordSize = d.RecordSize
		ctx.curExtIgnore = false
	}
}

// applyExtReset handles TxnExtReset: clears the active extension
// state and notifies the registered ExtResetHandler, if any.
func applyExtReset(ctx *syncContext, payload []byte) {
	er, err := decodeExtReset(payload)
	if err != nil {
		setCorrupted(ctx, CorruptionBadSize, "ext reset: %v", err)
		return
	}

	ctx.curExtMapIdx = extIdxNone
	ctx.curExtRecordSize = 0
	ctx.curExtIgnore = false

	if ctx.handlers != nil && ctx.handlers.resetH != nil {
		if err := ctx.handlers.resetH.HandleExtReset(er.ExtID, er.NewResetID); err != nil {
			setCorrupted(ctx, CorruptionMissingExtension, "ext reset %d: %v", er.ExtID, err)
		}
	}
}

// applyExtRecUpdate handles TxnExtRecUpdate: a batch of {uid, extension
// bytes} entries written into the extension tail of each matching
// record's slot. Requires an active, non-ignored EXT_INTRO (§4.E).
func applyExtRecUpdate(ctx *syncContext, payload []byte) {
	if ctx.curExtIgnore {
		return
	}
	if ctx.curExtMapIdx == extIdxNone {
		setCorrupted(ctx, CorruptionMissingExtension, "%s", ErrNoActiveExtension)
		return
	}

	entrySize := pad4(4 + ctx.curExtRecordSize)
	if entrySize == 0 || uint32(len(payload))%entrySize != 0 {
		setCorrupted(ctx, CorruptionBadSize, "ext rec update payload size %d not a multiple of entry size %d", len(payload), entrySize)
		return
	}

	im := atomicMap(ctx)
	for pos := uint32(0); pos < uint32(len(payload)); pos += entrySize {
		entry := payload[pos : pos+entrySize]
		uid := binary.LittleEndian.Uint32(entry[0:4])
		seq, ok := im.records.seqForUID(uid)
		if !ok {
			continue
		}
		rec := im.records.recordAt(seq)
		n := uint32(len(rec)) - BaseRecordSize
		if ctx.curExtRecordSize < n {
			n = ctx.curExtRecordSize
		}
		copy(rec[BaseRecordSize:BaseRecordSize+n], entry[4:4+n])
	}
}

// applyExtAtomicInc handles TxnExtAtomicInc: adds a signed delta to a
// 4-byte counter at the start of each record's extension tail.
// Requires an active, non-ignored EXT_INTRO with at least 4 bytes of
// extension record space (§4.E).
func applyExtAtomicInc(ctx *syncContext, payload []byte) {
	if ctx.curExtIgnore {
		return
	}
	if ctx.curExtMapIdx == extIdxNone {
		setCorrupted(ctx, CorruptionMissingExtension, "%s", ErrNoActiveExtension)
		return
	}
	entries, err := decodeExtAtomicInc(payload)
	if err != nil {
		setCorrupted(ctx, CorruptionBadSize, "ext atomic inc: %v", err)
		return
	}
	if ctx.curExtRecordSize < 4 {
		return
	}

	im := atomicMap(ctx)
	for _, e := range entries {
		seq, ok := im.records.seqForUID(e.UID)
		if !ok {
			continue
		}
		rec := im.records.recordAt(seq)
		cur := int32(binary.LittleEndian.Uint32(rec[BaseRecordSize : BaseRecordSize+4]))
		binary.LittleEndian.PutUint32(rec[BaseRecordSize:BaseRecordSize+4], uint32(cur+e.Delta))
	}
}

// applyKeywordUpdate handles TxnKeywordUpdate. Keyword storage itself
// is an extension's concern (no base-record bits are reserved for it,
// §3 GLOSSARY); the dispatcher validates the payload and, for external
// entries, bumps modseq across the resolved range the same way a flag
// change would.
func applyKeywordUpdate(ctx *syncContext, payload []byte, external bool) {
	ku, err := decodeKeywordUpdate(payload)
	if err != nil {
		setCorrupted(ctx, CorruptionBadSize, "keyword update: %v", err)
		return
	}
	if !external {
		return
	}
	im := privateMap(ctx)
	sr, ok := im.records.resolveUIDRange(ku.UID1, ku.UID2)
	if !ok {
		return
	}
	ctx.modseq.updateFlags(0, sr.Start, sr.End)
}

// applyKeywordReset handles TxnKeywordReset the same way as
// applyKeywordUpdate: validate, and bump modseq across the range for
// external entries.
func applyKeywordReset(ctx *syncContext, payload []byte, external bool) {
	kr, err := decodeKeywordReset(payload)
	if err != nil {
		setCorrupted(ctx, CorruptionBadSize, "keyword reset: %v", err)
		return
	}
	if !external {
		return
	}
	im := privateMap(ctx)
	sr, ok := im.records.resolveUIDRange(kr.UID1, kr.UID2)
	if !ok {
		return
	}
	ctx.modseq.updateFlags(0, sr.Start, sr.End)
}

// applyModseqUpdate handles TxnModseqUpdate: an explicit modseq value
// per UID, applied only if it is not already reflected by the stored
// vector (§4.F). Entries that arrive for an index with modseq tracking
// disabled are reported as corruption rather than silently dropped,
// since that combination should never occur in a well-formed log.
func applyModseqUpdate(ctx *syncContext, payload []byte) {
	entries, err := decodeModseqUpdate(payload)
	if err != nil {
		setCorrupted(ctx, CorruptionBadSize, "modseq update: %v", err)
		return
	}

	im := privateMap(ctx)
	if !im.modseqEnabled {
		setCorrupted(ctx, CorruptionModseqDisabled, "%s", ErrModseqNotEnabled)
		return
	}

	for _, e := range entries {
		seq, ok := im.records.seqForUID(e.UID)
		if !ok {
			continue
		}
		switch ctx.modseq.set(seq, e.modseq()) {
		case setIgnored:
			if ctx.ownCommit {
				ctx.ignoredModseqChanges++
			}
		case setError:
			setCorrupted(ctx, CorruptionModseqDisabled, "modseq set failed for uid %d", e.UID)
		}
	}
}
