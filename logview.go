// LogView is the transaction log cursor this package consumes (§6).
//
// The log file itself — its on-disk layout, segment rotation, and
// durability — is an external collaborator (§1); this package only
// needs to iterate records from a given (seq, offset) to EOF and learn
// where iteration stopped. No implementation of LogView ships in this
// package; see helpers_test.go for a reference in-memory
// implementation used by the test suite.
package mdxsync

// TxnHeader is the outer 8-byte header preceding every transaction
// record's payload (§6): a type bitfield and a payload size in bytes.
type TxnHeader struct {
	Type TxnType
	Size uint32
}

// LogRecord is one transaction log entry as yielded by LogView.Next:
// the position it was read from (for the idempotence skip-test, §4.G
// step 6), its outer header, and its payload bytes. Payload's lifetime
// spans only until the next call to Next (§6).
type LogRecord struct {
	PrevSeq    uint32
	PrevOffset int64
	Header     TxnHeader
	Payload    []byte
}

// SetResult is returned by LogView.Set.
type SetResult struct {
	OK     bool
	Reset  bool
	Reason string
}

// LogView is the iterator over one mailbox's transaction log, scoped
// to a single sync call.
type LogView interface {
	// Set positions the cursor at (seq, offset) and bounds iteration
	// to (maxSeq, maxOffset) inclusive of EOF. If the view reports
	// OK together with Reset=true, the caller's map must be discarded
	// and replaced
	// with a fresh one (§4.G step 2/5). An I/O failure is reported
	// through the returned error, not through SetResult.
	Set(seq uint32, offset int64, maxSeq uint32, maxOffset int64) (SetResult, error)

	// Next yields the next transaction record, or ok=false at EOF. An
	// I/O failure is reported through the returned error.
	Next() (rec LogRecord, ok bool, err error)

	// GetPrevPos returns the (seq, offset) just past the last record
	// yielded by Next, i.e. the position a successor would resume from.
	GetPrevPos() (seq uint32, offset int64)

	// AtEOL reports whether the cursor has reached the log's current
	// head (as opposed to stopping mid-stream because the caller
	// broke iteration early, e.g. via replaceMap during an EXT_INTRO,
	// §4.G step 8).
	AtEOL() bool

	// HeadFileSeq and MaxTailOffset describe the log's current head
	// position. sync.go passes both to Set as the iteration bound and
	// piggy-backs the tail offset forward to MaxTailOffset (§4.G step
	// 9).
	HeadFileSeq() uint32
	MaxTailOffset() int64
}
