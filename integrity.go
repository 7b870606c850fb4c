// Debug-only invariant checker (§3, §7), run at the end of a sync when
// Config.DebugChecks is set. Independent of the main replay path: it
// re-derives every counter from the record array and compares against
// the header's maintained values, so a bug in counters.go or apply.go
// shows up here even if it never surfaces as a CorruptionEvent during
// replay itself.
package mdxsync

import "fmt"

// checkIntegrity walks im's record array and returns an error
// describing the first invariant it finds broken, or nil if none are.
func checkIntegrity(im *indexMap) error {
	rm := im.records
	hdr := im.header

	if rm.recordsCount != hdr.MessagesCount {
		return fmt.Errorf("messages_count %d does not match record count %d", hdr.MessagesCount, rm.recordsCount)
	}

	var seen, deleted uint32
	var prevUID uint32
	for seq := uint32(1); seq <= rm.recordsCount; seq++ {
		uid := rm.uidAt(seq)
		if uid <= prevUID {
			return fmt.Errorf("uid %d at seq %d is not strictly greater than preceding uid %d", uid, seq, prevUID)
		}
		prevUID = uid

		flags := rm.flagsAt(seq)
		if flags&FlagSeen != 0 {
			seen++
		}
		if flags&FlagDeleted != 0 {
			deleted++
		}
	}

	if prevUID >= hdr.NextUID {
		return fmt.Errorf("highest uid %d is not below next_uid %d", prevUID, hdr.NextUID)
	}
	if seen != hdr.SeenMessagesCount {
		return fmt.Errorf("seen_messages_count %d does not match recomputed %d", hdr.SeenMessagesCount, seen)
	}
	if deleted != hdr.DeletedMessagesCount {
		return fmt.Errorf("deleted_messages_count %d does not match recomputed %d", hdr.DeletedMessagesCount, deleted)
	}
	if hdr.FirstUnseenUIDLowwater > hdr.NextUID {
		return fmt.Errorf("first_unseen_uid_lowwater %d exceeds next_uid %d", hdr.FirstUnseenUIDLowwater, hdr.NextUID)
	}
	if hdr.FirstDeletedUIDLowwater > hdr.NextUID {
		return fmt.Errorf("first_deleted_uid_lowwater %d exceeds next_uid %d", hdr.FirstDeletedUIDLowwater, hdr.NextUID)
	}

	if im.modseqEnabled && uint32(len(im.modseqVec)) != rm.recordsCount {
		return fmt.Errorf("modseq vector length %d does not match record count %d", len(im.modseqVec), rm.recordsCount)
	}

	return nil
}
