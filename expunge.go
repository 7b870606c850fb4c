// Expunge engine (§4.D): resolves UID ranges to sequence ranges,
// notifies registered expunge handlers, decrements flag counters, and
// gap-closes the record array in a single compacting pass.
package mdxsync

import "sort"

// mergeSeqRanges sorts and merges overlapping/adjacent ranges in
// place, returning the deduplicated, sorted result §4.D requires
// before compaction.
func mergeSeqRanges(in []seqRange) []seqRange {
	if len(in) == 0 {
		return in
	}
	sort.Slice(in, func(i, j int) bool { return in[i].Start < in[j].Start })
	out := in[:1]
	for _, r := range in[1:] {
		last := &out[len(out)-1]
		if r.Start <= last.End+1 {
			if r.End > last.End {
				last.End = r.End
			}
			continue
		}
		out = append(out, r)
	}
	return out
}

// doExpunge resolves ranges (UID pairs, possibly referring to
// already-compacted-away sequences which are silently dropped), runs
// handlers, decrements counters, and compacts the record array
// (§4.D). Callers pass the sync context so modseq/handlers/typ are
// available.
func doExpunge(ctx *syncContext, ranges []uidRange) error {
	pre := ctx.view.mapRef
	var segs []seqRange
	for _, r := range ranges {
		if sr, ok := pre.records.resolveUIDRange(r.UID1, r.UID2); ok {
			segs = append(segs, sr)
		}
	}
	if len(segs) == 0 {
		return nil
	}
	segs = mergeSeqRanges(segs)

	im := atomicMap(ctx)

	if ctx.typ == SyncTypeFile && ctx.handlers != nil {
		for _, sr := range segs {
			for seq := sr.Start; seq <= sr.End; seq++ {
				if err := ctx.handlers.notifyExpunge(im.records.recordAt(seq)); err != nil {
					return err
				}
			}
		}
	}

	for _, sr := range segs {
		for seq := sr.Start; seq <= sr.End; seq++ {
			flags := im.records.flagsAt(seq)
			if err := updateCounts(im.header, flags, 0); err != nil {
				setCorrupted(ctx, CorruptionCounterMath, "expunge: %v", err)
			}
		}
	}

	for i := len(segs) - 1; i >= 0; i-- {
		ctx.modseq.expunge(segs[i].Start, segs[i].End)
	}

	removed, err := im.records.compact(segs)
	if err != nil {
		return err
	}
	im.header.MessagesCount -= removed
	return nil
}
