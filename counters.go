// Counter and lowwater maintenance (§4.C).
//
// Pure updates over a Header's derived fields. Every function here is
// called with the map already made exclusive (§4.B) by its caller;
// none of them touch the record array.
package mdxsync

import "fmt"

// updateCountsSeen applies a SEEN transition to hdr.SeenMessagesCount,
// per §4.C's precondition list.
func updateCountsSeen(hdr *Header, wasSeen, isSeen bool) error {
	switch {
	case wasSeen && !isSeen:
		if hdr.SeenMessagesCount == 0 {
			return fmt.Errorf("%w: seen counter wrong", errCounterMath)
		}
		hdr.SeenMessagesCount--
	case !wasSeen && isSeen:
		if hdr.SeenMessagesCount >= hdr.MessagesCount {
			return fmt.Errorf("%w: seen counter wrong", errCounterMath)
		}
		hdr.SeenMessagesCount++
		if hdr.SeenMessagesCount == hdr.MessagesCount {
			hdr.FirstUnseenUIDLowwater = hdr.NextUID
		}
	}
	return nil
}

// updateCountsDeleted applies a DELETED transition to
// hdr.DeletedMessagesCount, per §4.C's precondition list.
func updateCountsDeleted(hdr *Header, wasDeleted, isDeleted bool) error {
	switch {
	case !wasDeleted && isDeleted:
		hdr.DeletedMessagesCount++
		if hdr.DeletedMessagesCount > hdr.MessagesCount {
			return fmt.Errorf("%w: deleted counter wrong", errCounterMath)
		}
	case wasDeleted && !isDeleted:
		if hdr.DeletedMessagesCount == 0 || hdr.DeletedMessagesCount > hdr.MessagesCount {
			return fmt.Errorf("%w: deleted counter wrong", errCounterMath)
		}
		hdr.DeletedMessagesCount--
		if hdr.DeletedMessagesCount == 0 {
			hdr.FirstDeletedUIDLowwater = hdr.NextUID
		}
	}
	return nil
}

// updateCounts applies both SEEN and DELETED transitions implied by a
// flag change from oldFlags to newFlags.
func updateCounts(hdr *Header, oldFlags, newFlags RecordFlags) error {
	if err := updateCountsSeen(hdr, oldFlags&FlagSeen != 0, newFlags&FlagSeen != 0); err != nil {
		return err
	}
	return updateCountsDeleted(hdr, oldFlags&FlagDeleted != 0, newFlags&FlagDeleted != 0)
}

// updateLowwaters tightens the unseen lowwater when a record without
// SEEN is observed below the current lowwater, and tightens the
// deleted lowwater when a record with DELETED is observed below it
// (§4.C, invariant 5: every DELETED record's uid is >=
// first_deleted_uid_lowwater).
func updateLowwaters(hdr *Header, uid uint32, flags RecordFlags) {
	if flags&FlagSeen == 0 && uid < hdr.FirstUnseenUIDLowwater {
		hdr.FirstUnseenUIDLowwater = uid
	}
	if flags&FlagDeleted != 0 && uid < hdr.FirstDeletedUIDLowwater {
		hdr.FirstDeletedUIDLowwater = uid
	}
}

// errCounterMath is wrapped with the specific counter name by callers
// above; kept unexported since it is only ever surfaced via
// CorruptionEvent, never returned directly to a library caller.
var errCounterMath = fmt.Errorf("counter math broken")
