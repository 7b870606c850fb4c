// Sync driver (§4.G): the SyncMap entry point. Opens a log view from
// the map's recorded offset, replays records through the dispatcher
// (apply.go), updates the header's log offsets, and publishes the
// result.
package mdxsync

import "fmt"

// SyncType selects which of the index's published map a sync
// advances, and whether the result is republished (§3's lifecycle
// rule: only FILE/HEAD rebind the index's published pointer).
type SyncType int

const (
	// SyncTypeFile syncs from the map's tail offset (the normal,
	// incremental path) and republishes the result.
	SyncTypeFile SyncType = iota
	// SyncTypeView syncs a private snapshot for one observer; never
	// republished, never skips already-applied records.
	SyncTypeView
	// SyncTypeHead syncs from the map's head offset and republishes
	// the result.
	SyncTypeHead
)

// extIdxNone is the "no active extension" sentinel for
// syncContext.curExtMapIdx (§3).
const extIdxNone = ^uint32(0)

// Index is the mailbox-level owner of the currently published map.
// Views borrow it for the duration of one sync and may replace it.
type Index struct {
	published   *indexMap
	Config      Config
	checksumAlg ChecksumAlgorithm
}

// NewIndex allocates a fresh, empty index with the given identifier
// and configuration.
func NewIndex(indexID uint32, cfg Config) *Index {
	cfg = cfg.withDefaults()
	return &Index{
		published:   newIndexMap(indexID, cfg.RecordSize, cfg.BaseHeaderSize),
		Config:      cfg,
		checksumAlg: cfg.ChecksumAlgorithm,
	}
}

// Close discards the index's published map. Views already opened keep
// operating on their own reference; OpenView called after Close
// returns ErrClosed.
func (idx *Index) Close() {
	idx.published = nil
}

// View is a transient handle one caller uses to sync against an
// Index's published map, or against its own private copy for
// SyncTypeView (§3's "Sync context").
type View struct {
	index  *Index
	mapRef *indexMap
	Log    LogView
}

// OpenView returns a new View sharing the index's currently published
// map (refcount is incremented; the map is not cloned until a sync
// actually mutates it). Returns ErrClosed if the index has been
// closed and has no published map to share.
func (idx *Index) OpenView(log LogView) (*View, error) {
	if idx.published == nil {
		return nil, ErrClosed
	}
	idx.published.refcount++
	return &View{index: idx, mapRef: idx.published, Log: log}, nil
}

// syncContext is the transient per-call state threaded through the
// dispatcher for one SyncMap invocation (§3).
type syncContext struct {
	view *View
	typ  SyncType

	modseq *modseqSub

	curExtMapIdx     uint32
	curExtRecordSize uint32
	curExtIgnore     bool

	extIntroSeq       uint32
	extIntroOffset    int64
	extIntroEndOffset int64

	handlers *HandlerRegistry

	errored              bool
	unknownExtensions    []byte
	ignoredModseqChanges uint64
	events               []CorruptionEvent
	checksumAlg          ChecksumAlgorithm

	// ownCommit tells the MODSEQ_UPDATE handler that this log stream
	// is one the caller itself just committed, so an ignored update
	// should count toward ignoredModseqChanges (resolves the spec's
	// open question on this point; see DESIGN.md).
	ownCommit bool

	indexDeleteRequested bool
}

// SyncResult is returned by SyncMap (§4.G).
type SyncResult struct {
	OK                   bool
	LostLog              bool
	LostLogReason        string
	IOError              bool
	RewriteRecommended   bool
	FsckScheduled        bool
	Events               []CorruptionEvent
	IgnoredModseqChanges uint64
}

// setCorrupted records a per-record corruption condition without
// aborting the sync (§4.E, §7).
func setCorrupted(ctx *syncContext, kind CorruptionKind, format string, args ...any) {
	ctx.errored = true
	ctx.events = append(ctx.events, CorruptionEvent{
		Kind:    kind,
		Message: fmt.Sprintf(format, args...),
	})
}

// SyncMap replays the log against view's map starting from its
// recorded offset and returns the outcome (§4.G).
func SyncMap(view *View, typ SyncType, handlers *HandlerRegistry) SyncResult {
	ctx := &syncContext{
		view:         view,
		typ:          typ,
		curExtMapIdx: extIdxNone,
		handlers:     handlers,
		checksumAlg:  view.index.checksumAlg,
	}
	ctx.modseq = newModseqSub(view.mapRef)

	hdr := view.mapRef.header
	startOffset := hdr.LogFileTailOffset
	if typ != SyncTypeFile {
		startOffset = hdr.LogFileHeadOffset
	}

	setRes, err := view.Log.Set(hdr.LogFileSeq, startOffset, view.Log.HeadFileSeq(), view.Log.MaxTailOffset())
	if err != nil {
		return SyncResult{IOError: true}
	}
	if !setRes.OK {
		return SyncResult{LostLog: true, LostLogReason: fmt.Errorf("%w: %s", ErrLostLog, setRes.Reason).Error()}
	}

	hadDirty := hdr.Flags&HeaderHaveDirty != 0
	hdr.Flags &^= HeaderHaveDirty

	if setRes.Reset {
		resetSeq, _ := view.Log.GetPrevPos()
		fresh := newIndexMap(hdr.IndexID, hdr.RecordSize, hdr.BaseHeaderSize)
		fresh.header.LogFileSeq = resetSeq
		fresh.header.LogFileTailOffset = 0
		if hdr.Flags&HeaderFSCKD != 0 {
			fresh.header.Flags |= HeaderFSCKD
		}
		fresh.refcount = 0
		replaceMap(ctx, fresh)
		hdr = view.mapRef.header
	}

	rewriteNeeded := view.Log.MaxTailOffset()-hdr.LogFileTailOffset > view.index.Config.RewriteMinLogBytes

	for {
		rec, ok, err := view.Log.Next()
		if err != nil {
			return SyncResult{IOError: true, Events: ctx.events}
		}
		if !ok {
			break
		}
		cur := view.mapRef.header
		if typ == SyncTypeFile && lessPos(rec.PrevSeq, rec.PrevOffset, cur.LogFileSeq, cur.LogFileHeadOffset) {
			continue
		}
		if err := dispatch(ctx, rec); err != nil {
			return SyncResult{IOError: true, Events: ctx.events}
		}
	}

	if hadDirty {
		recomputeHaveDirty(view.mapRef)
	}

	ctx.modseq.end()

	finalizeLogOffset(ctx, view.mapRef)

	if maxTail := view.Log.MaxTailOffset(); maxTail > view.mapRef.header.LogFileTailOffset {
		view.mapRef.header.LogFileTailOffset = maxTail
	}

	mirrorHeader(view.mapRef)

	fsckNeeded := ctx.errored
	if view.index.Config.DebugChecks {
		if err := checkIntegrity(view.mapRef); err != nil {
			fsckNeeded = true
			ctx.events = append(ctx.events, CorruptionEvent{Kind: CorruptionCounterMath, Message: err.Error()})
		}
	}

	if (typ == SyncTypeFile || typ == SyncTypeHead) && view.index.published != nil && view.index.published != view.mapRef {
		view.index.published.refcount--
		view.index.published = view.mapRef
		view.mapRef.refcount++
	}

	return SyncResult{
		OK:                   true,
		RewriteRecommended:   rewriteNeeded,
		FsckScheduled:        fsckNeeded,
		Events:               ctx.events,
		IgnoredModseqChanges: ctx.ignoredModseqChanges,
	}
}

// lessPos implements the §4.G step 6 lexicographic comparison.
func lessPos(seqA uint32, offA int64, seqB uint32, offB int64) bool {
	if seqA != seqB {
		return seqA < seqB
	}
	return offA < offB
}

// recomputeHaveDirty rescans the record array for any FlagDirty
// record and sets HeaderHaveDirty accordingly (§4.G step 7).
func recomputeHaveDirty(im *indexMap) {
	for seq := uint32(1); seq <= im.records.recordsCount; seq++ {
		if im.records.flagsAt(seq)&FlagDirty != 0 {
			im.header.Flags |= HeaderHaveDirty
			return
		}
	}
}

// finalizeLogOffset implements the §4.G step 8 / §4.B replaceMap log
// offset update rule on im (either the final working map at sync end,
// or a map being retired mid-sync by replaceMap).
func finalizeLogOffset(ctx *syncContext, im *indexMap) {
	pseq, poff := ctx.view.Log.GetPrevPos()
	if ctx.view.Log.AtEOL() {
		if im.header.LogFileSeq != pseq {
			im.header.LogFileSeq = pseq
			im.header.LogFileTailOffset = 0
		}
		im.header.LogFileHeadOffset = poff
		return
	}
	if pseq == ctx.extIntroSeq && poff == ctx.extIntroEndOffset {
		poff = ctx.extIntroOffset
	}
	im.header.LogFileHeadOffset = poff
}

// mapReplaced rebinds modseq tracking after replaceMap swaps in a new
// working map.
func mapReplaced(ctx *syncContext) {
	ctx.modseq.mapReplaced(ctx.view.mapRef)
}

// mirrorHeader re-serializes the live header into hdrCopyBuf so the
// map's byte-accurate mirror is always in sync after SyncMap returns
// (§5 "Memory" guarantee).
func mirrorHeader(im *indexMap) {
	if uint32(len(im.hdrCopyBuf)) < im.header.BaseHeaderSize {
		im.hdrCopyBuf = make([]byte, im.header.BaseHeaderSize)
	}
	im.header.encode(im.hdrCopyBuf)
}
