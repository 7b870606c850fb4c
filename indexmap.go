// Index map: header + record map + refcounted copy-on-write sharing
// between the index's published map and any views syncing against it
// (§3, §4.B).
package mdxsync

import "fmt"

// residence describes where an indexMap's bytes currently live.
type residence int

const (
	residenceMemory residence = iota
	residenceMmap
)

// indexMap is the in-memory index for one mailbox at one point in
// time. Multiple Views and the owning Index's published pointer may
// all reference the same indexMap; refcount tracks how many. Any
// mutation must go through moveToPrivateMemory/getAtomicMap first
// (§3 invariant 7).
type indexMap struct {
	header     *Header
	hdrCopyBuf []byte
	records    *recordMap
	refcount   int
	residence  residence

	// modseq state is persistent per-map (parallel to records,
	// reshaped on append/expunge, §4.F) — not part of the transient
	// SyncContext, which only brackets one sync's view of it.
	modseqEnabled bool
	modseqVec     []uint64
	highestModseq uint64
}

// newIndexMap allocates a fresh, empty index map. Only indexID and
// (on reset) a handful of header fields are inherited by callers; see
// sync.go's reset path.
func newIndexMap(indexID uint32, recordSize, baseHeaderSize uint32) *indexMap {
	hdr := &Header{
		IndexID:        indexID,
		RecordSize:     recordSize,
		HeaderSize:     baseHeaderSize,
		BaseHeaderSize: baseHeaderSize,
		NextUID:        1,
	}
	im := &indexMap{
		header:     hdr,
		hdrCopyBuf: make([]byte, baseHeaderSize),
		records:    newRecordMap(recordSize),
		refcount:   1,
	}
	im.records.addOwner(im)
	hdr.encode(im.hdrCopyBuf)
	return im
}

// cloneHeaderAndRecords returns a new indexMap with its own header and
// hdrCopyBuf, but still sharing the record map (fork happens
// separately, only when a mutation actually needs to touch records).
func (im *indexMap) cloneHeaderAndRecords() *indexMap {
	cp := &indexMap{
		header:        im.header.clone(),
		hdrCopyBuf:    append([]byte(nil), im.hdrCopyBuf...),
		records:       im.records,
		refcount:      1,
		residence:     im.residence,
		modseqEnabled: im.modseqEnabled,
		modseqVec:     append([]uint64(nil), im.modseqVec...),
		highestModseq: im.highestModseq,
	}
	im.records.addOwner(cp)
	return cp
}

// moveToPrivateMemory ensures view.mapRef is not shared with any other
// holder (clones header+records-reference if refcount>1) and, if the
// map's residence was mmap, materializes the record map into private
// memory so subsequent byte writes never touch a shared mapping
// (§4.B).
func moveToPrivateMemory(view *View) {
	im := view.mapRef
	if im.refcount > 1 {
		im.refcount--
		clone := im.cloneHeaderAndRecords()
		view.mapRef = clone
		im = clone
	}
	if im.residence == residenceMmap {
		im.records.removeOwner(im)
		im.records = im.records.clone()
		im.records.addOwner(im)
		im.residence = residenceMemory
	}
}

// getAtomicMap calls moveToPrivateMemory, then additionally forks the
// record map if it is still shared with any other indexMap, so that
// byte-level record mutation (append, flag writes, compaction) never
// touches bytes another holder can observe (§4.B).
func getAtomicMap(view *View) *indexMap {
	moveToPrivateMemory(view)
	im := view.mapRef
	if im.records.shared() {
		im.records.removeOwner(im)
		im.records = im.records.clone()
		im.records.addOwner(im)
	}
	return im
}

// replaceMap finalizes the log offset on the map being retired, swaps
// it for newMap on the view, rebinds the index's published pointer for
// FILE/HEAD syncs (never for VIEW, §3's lifecycle rule), and notifies
// the modseq state of the swap.
func replaceMap(ctx *syncContext, newMap *indexMap) {
	old := ctx.view.mapRef
	finalizeLogOffset(ctx, old)

	old.refcount--
	newMap.refcount++
	ctx.view.mapRef = newMap

	if ctx.typ == SyncTypeFile || ctx.typ == SyncTypeHead {
		ctx.view.index.published.refcount--
		ctx.view.index.published = newMap
		newMap.refcount++
	}

	mapReplaced(ctx)
}

// assertExclusive returns ErrSharedMutation if im is still visible to
// another holder. The dispatch path does not call it; its mutation
// entry points rely on getAtomicMap/moveToPrivateMemory having run.
func assertExclusive(im *indexMap) error {
	if im.refcount > 1 {
		return fmt.Errorf("%w: map refcount %d", ErrSharedMutation, im.refcount)
	}
	if im.records.shared() {
		return fmt.Errorf("%w: record map shared by %d owners", ErrSharedMutation, len(im.records.owners))
	}
	return nil
}
