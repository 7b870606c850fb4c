package mdxsync

import "errors"

// Sentinel errors returned by sync-map operations.
var (
	// ErrClosed is returned when operating on an index that has no
	// published map (never opened, or explicitly discarded).
	ErrClosed = errors.New("index has no published map")

	// ErrLostLog is returned when the log view cannot seek to the
	// map's recorded offset. The caller typically re-initializes the
	// index from scratch when this occurs.
	ErrLostLog = errors.New("log view lost: cannot resume from recorded offset")

	// ErrIOFailure wraps byte-level decode failures: a header, record
	// size or transaction payload too short or misaligned for the
	// layout being read (header.go, record.go, wire.go). A log view
	// I/O error during SyncMap is reported through SyncResult.IOError,
	// not through this sentinel.
	ErrIOFailure = errors.New("log view I/O failure")

	// ErrSharedMutation marks a bug in the applier, not a data
	// condition — see CorruptionEvent for data-condition errors.
	// assertExclusive wraps it for a map or record map that is still
	// shared, and recordMap.compact wraps it for ranges that are out
	// of bounds, unsorted or overlapping.
	ErrSharedMutation = errors.New("mutation attempted on shared map")

	// ErrNoActiveExtension names the corruption recorded when
	// EXT_REC_UPDATE or EXT_ATOMIC_INC arrives with no active
	// EXT_INTRO in effect; it is used as the CorruptionEvent message,
	// not returned.
	ErrNoActiveExtension = errors.New("extension record update with no active intro")

	// ErrModseqNotEnabled names the corruption recorded when a
	// MODSEQ_UPDATE record arrives but modseq tracking was never
	// enabled for this index; it is used as the CorruptionEvent
	// message, not returned.
	ErrModseqNotEnabled = errors.New("modseq update received but modseq tracking is not enabled")
)

// CorruptionKind classifies a per-record corruption condition (§4.E,
// §7 in the spec this package implements). It exists so callers can
// filter or aggregate CorruptionEvents without string-matching the
// message.
type CorruptionKind int

const (
	CorruptionUnknownType CorruptionKind = iota
	CorruptionBadSize
	CorruptionUIDOrder
	CorruptionCounterMath
	CorruptionHeaderBounds
	CorruptionMissingExtension
	CorruptionModseqDisabled
)

// CorruptionEvent records a single detected invariant break. The
// applier never raises these as Go errors that abort the sync — the
// dispatcher's policy is to continue to the next log record, so a
// single sync can accumulate many of these and still run to
// completion. SyncResult carries the full slice so a caller can log
// each one naming the index and the offending condition.
type CorruptionEvent struct {
	Kind      CorruptionKind
	Message   string
	LogSeq    uint32
	LogOffset int64
}

func (c CorruptionEvent) Error() string {
	return c.Message
}
