// Package mdxsync implements the index sync-map applier for a mailbox
// index: it replays a transaction log against an in-memory copy of a
// mailbox's message index and publishes the result atomically.
//
// A mailbox index is a compact binary structure: a fixed-size header
// followed by one fixed-size record per message (plus optional
// per-message extension bytes). A parallel write-ahead log records
// appends, expunges, flag changes, header patches, extension
// introductions/resets, keyword changes and modseq updates. SyncMap
// walks the log from the index's recorded offset, applies each record
// to a private copy-on-write map, maintains derived counters (seen/
// deleted counts, unseen/deleted UID lowwaters, the dirty flag) and
// publishes the advanced map back to the index.
//
// The package does not perform any file I/O itself. The transaction
// log is accessed through the narrow LogView interface; index bytes
// are materialized and persisted by whatever owns the index file (see
// the storage subpackage for a reference mmap/memory-backed byte
// Region). There is no locking, durability guarantee, or whole-file
// compaction in this package — those are the responsibility of
// external collaborators (fsck/recovery, the log file writer, the
// filter/config layer).
package mdxsync
