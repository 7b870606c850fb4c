// Record map: the flat arena of fixed-size message records (§4.A).
//
// Sequence numbers are 1-based and index directly into the arena;
// UIDs are strictly increasing by sequence. recordMap is shared
// read-only across every IndexMap that has not yet diverged from it;
// mutation always goes through clone() first (copy-on-write, §3
// invariant 7, §4.B).
package mdxsync

import (
	"fmt"
	"sort"
)

// recordMap owns the raw record bytes for one or more index maps.
type recordMap struct {
	recordSize      uint32
	buf             []byte // len == recordsCount * recordSize; cap may exceed it
	recordsCount    uint32
	lastAppendedUID uint32
	bloom           *uidBloom

	// owners tracks the set of IndexMap instances currently sharing
	// this recordMap, so getAtomicMap can decide whether a mutation
	// needs to fork it first.
	owners map[*indexMap]struct{}
}

// newRecordMap returns an empty record map configured for recordSize
// bytes per record.
func newRecordMap(recordSize uint32) *recordMap {
	return &recordMap{
		recordSize: recordSize,
		bloom:      newUIDBloom(),
		owners:     make(map[*indexMap]struct{}),
	}
}

func (rm *recordMap) addOwner(im *indexMap)    { rm.owners[im] = struct{}{} }
func (rm *recordMap) removeOwner(im *indexMap) { delete(rm.owners, im) }
func (rm *recordMap) shared() bool             { return len(rm.owners) > 1 }

// clone returns an independent copy of the record map, sharing no
// owners (the caller is expected to add the new owner itself). Used
// by copy-on-write mutation entry points (§4.B).
func (rm *recordMap) clone() *recordMap {
	cp := &recordMap{
		recordSize:      rm.recordSize,
		buf:             append([]byte(nil), rm.buf...),
		recordsCount:    rm.recordsCount,
		lastAppendedUID: rm.lastAppendedUID,
		bloom:           rm.bloom.clone(),
		owners:          make(map[*indexMap]struct{}),
	}
	return cp
}

// recordAt returns the byte slice for sequence seq (1-based). It does
// not check seq against recordsCount: seq 0 panics, and a seq past the
// end either panics or, where buf's capacity still extends that far
// (after compact), returns stale bytes. Callers must bounds-check
// first, since an out-of-range sequence is always a caller bug
// (UID→seq resolution never produces one).
func (rm *recordMap) recordAt(seq uint32) []byte {
	off := int64(seq-1) * int64(rm.recordSize)
	return rm.buf[off : off+int64(rm.recordSize)]
}

// uidAt and flagsAt read the base record fields at sequence seq.
func (rm *recordMap) uidAt(seq uint32) uint32        { return recordUID(rm.recordAt(seq)) }
func (rm *recordMap) flagsAt(seq uint32) RecordFlags  { return recordFlags(rm.recordAt(seq)) }
func (rm *recordMap) setFlagsAt(seq uint32, f RecordFlags) { setRecordFlags(rm.recordAt(seq), f) }

// append adds a new record with the given uid/flags at the end of the
// arena, zero-filling the extension tail, and records it in the
// membership bloom filter. Requires exclusive ownership (go through
// getAtomicMap first if shared).
func (rm *recordMap) append(uid uint32, flags RecordFlags) {
	rm.buf = append(rm.buf, make([]byte, rm.recordSize)...)
	rec := rm.recordAt(rm.recordsCount + 1)
	setRecordUID(rec, uid)
	setRecordFlags(rec, flags)
	rm.recordsCount++
	rm.lastAppendedUID = uid
	rm.bloom.Add(uid)
}

// seqForUID returns the sequence number of the record with the given
// UID via binary search (UIDs are strictly increasing by sequence),
// or ok=false if absent. Consults the bloom filter first so a
// definitely-absent UID never pays for the search.
func (rm *recordMap) seqForUID(uid uint32) (seq uint32, ok bool) {
	if !rm.bloom.Contains(uid) {
		return 0, false
	}
	n := int(rm.recordsCount)
	i := sort.Search(n, func(i int) bool { return rm.uidAt(uint32(i+1)) >= uid })
	if i < n && rm.uidAt(uint32(i+1)) == uid {
		return uint32(i + 1), true
	}
	return 0, false
}

// ceilSeqForUID returns the smallest sequence whose UID is >= uid, or
// ok=false if none exists (uid is past the end of the map).
func (rm *recordMap) ceilSeqForUID(uid uint32) (seq uint32, ok bool) {
	n := int(rm.recordsCount)
	i := sort.Search(n, func(i int) bool { return rm.uidAt(uint32(i+1)) >= uid })
	if i >= n {
		return 0, false
	}
	return uint32(i + 1), true
}

// floorSeqForUID returns the largest sequence whose UID is <= uid, or
// ok=false if none exists (uid is before the first record).
func (rm *recordMap) floorSeqForUID(uid uint32) (seq uint32, ok bool) {
	n := int(rm.recordsCount)
	i := sort.Search(n, func(i int) bool { return rm.uidAt(uint32(i+1)) > uid })
	if i == 0 {
		return 0, false
	}
	return uint32(i), true
}

// seqRange is an inclusive 1-based sequence range.
type seqRange struct {
	Start, End uint32
}

// resolveUIDRange translates a UID range to a sequence range. Returns
// ok=false if no record in the map falls within [uid1,uid2] (the
// range is "absent" and dropped by the caller, §4.D).
func (rm *recordMap) resolveUIDRange(uid1, uid2 uint32) (seqRange, bool) {
	lo, ok := rm.ceilSeqForUID(uid1)
	if !ok {
		return seqRange{}, false
	}
	hi, ok := rm.floorSeqForUID(uid2)
	if !ok || lo > hi {
		return seqRange{}, false
	}
	return seqRange{Start: lo, End: hi}, true
}

// compact performs the single left-to-right gap-closing pass described
// in §4.A. ranges must be sorted, disjoint, and within [1,
// recordsCount]. Returns the number of records removed.
func (rm *recordMap) compact(ranges []seqRange) (uint32, error) {
	if len(ranges) == 0 {
		return 0, nil
	}
	for i, r := range ranges {
		if r.Start == 0 || r.Start > r.End || r.End > rm.recordsCount {
			return 0, fmt.Errorf("%w: invalid compact range [%d,%d] over %d records", ErrSharedMutation, r.Start, r.End, rm.recordsCount)
		}
		if i > 0 && r.Start <= ranges[i-1].End {
			return 0, fmt.Errorf("%w: unsorted/overlapping compact ranges", ErrSharedMutation)
		}
	}

	rs := int64(rm.recordSize)
	dest := uint32(1)
	prevEnd := uint32(0)
	var removed uint32

	moveBlock := func(srcStart, n uint32) {
		if n == 0 {
			return
		}
		srcOff := int64(srcStart-1) * rs
		dstOff := int64(dest-1) * rs
		copy(rm.buf[dstOff:dstOff+int64(n)*rs], rm.buf[srcOff:srcOff+int64(n)*rs])
		dest += n
	}

	for _, r := range ranges {
		if prevEnd+1 <= r.Start-1 {
			n := r.Start - 1 - prevEnd
			moveBlock(prevEnd+1, n)
		}
		prevEnd = r.End
		removed += r.End - r.Start + 1
	}
	// Trailing block after the last range.
	if prevEnd < rm.recordsCount {
		moveBlock(prevEnd+1, rm.recordsCount-prevEnd)
	}

	rm.recordsCount -= removed
	rm.buf = rm.buf[:int64(rm.recordsCount)*rs]
	rm.rebuildBloom()
	return removed, nil
}

// rebuildBloom reconstructs the membership filter after compaction,
// since Contains has no way to remove a single UID.
func (rm *recordMap) rebuildBloom() {
	rm.bloom.Reset()
	for seq := uint32(1); seq <= rm.recordsCount; seq++ {
		rm.bloom.Add(rm.uidAt(seq))
	}
}
