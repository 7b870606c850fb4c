package mdxsync

import "testing"

func TestUpdateCountsSeenTransitions(t *testing.T) {
	hdr := &Header{MessagesCount: 2}

	if err := updateCountsSeen(hdr, false, true); err != nil {
		t.Fatalf("mark seen: %v", err)
	}
	if hdr.SeenMessagesCount != 1 {
		t.Errorf("SeenMessagesCount = %d, want 1", hdr.SeenMessagesCount)
	}

	if err := updateCountsSeen(hdr, true, true); err != nil {
		t.Fatalf("no-op seen transition: %v", err)
	}
	if hdr.SeenMessagesCount != 1 {
		t.Errorf("SeenMessagesCount changed on no-op transition: %d", hdr.SeenMessagesCount)
	}

	if err := updateCountsSeen(hdr, true, false); err != nil {
		t.Fatalf("unmark seen: %v", err)
	}
	if hdr.SeenMessagesCount != 0 {
		t.Errorf("SeenMessagesCount = %d, want 0", hdr.SeenMessagesCount)
	}
}

func TestUpdateCountsSeenSetsLowwaterWhenAllSeen(t *testing.T) {
	hdr := &Header{MessagesCount: 1, NextUID: 5}
	if err := updateCountsSeen(hdr, false, true); err != nil {
		t.Fatalf("mark seen: %v", err)
	}
	if hdr.FirstUnseenUIDLowwater != hdr.NextUID {
		t.Errorf("FirstUnseenUIDLowwater = %d, want %d (next_uid, all caught up)", hdr.FirstUnseenUIDLowwater, hdr.NextUID)
	}
}

func TestUpdateCountsSeenRejectsOverflow(t *testing.T) {
	hdr := &Header{MessagesCount: 1, SeenMessagesCount: 1}
	if err := updateCountsSeen(hdr, false, true); err == nil {
		t.Error("marking seen past messages_count: want error, got nil")
	}
}

func TestUpdateCountsSeenRejectsUnderflow(t *testing.T) {
	hdr := &Header{MessagesCount: 1, SeenMessagesCount: 0}
	if err := updateCountsSeen(hdr, true, false); err == nil {
		t.Error("unmarking seen at zero count: want error, got nil")
	}
}

func TestUpdateCountsDeletedTransitions(t *testing.T) {
	hdr := &Header{MessagesCount: 2, NextUID: 9}

	if err := updateCountsDeleted(hdr, false, true); err != nil {
		t.Fatalf("mark deleted: %v", err)
	}
	if hdr.DeletedMessagesCount != 1 {
		t.Errorf("DeletedMessagesCount = %d, want 1", hdr.DeletedMessagesCount)
	}

	if err := updateCountsDeleted(hdr, true, false); err != nil {
		t.Fatalf("unmark deleted: %v", err)
	}
	if hdr.DeletedMessagesCount != 0 {
		t.Errorf("DeletedMessagesCount = %d, want 0", hdr.DeletedMessagesCount)
	}
	if hdr.FirstDeletedUIDLowwater != hdr.NextUID {
		t.Errorf("FirstDeletedUIDLowwater = %d, want %d once deleted count returns to zero", hdr.FirstDeletedUIDLowwater, hdr.NextUID)
	}
}

func TestUpdateCountsDeletedRejectsOverflow(t *testing.T) {
	hdr := &Header{MessagesCount: 1, DeletedMessagesCount: 1}
	if err := updateCountsDeleted(hdr, false, true); err == nil {
		t.Error("marking deleted past messages_count: want error, got nil")
	}
}

func TestUpdateCountsCombinesSeenAndDeleted(t *testing.T) {
	hdr := &Header{MessagesCount: 1}
	if err := updateCounts(hdr, 0, FlagSeen|FlagDeleted); err != nil {
		t.Fatalf("updateCounts: %v", err)
	}
	if hdr.SeenMessagesCount != 1 || hdr.DeletedMessagesCount != 1 {
		t.Errorf("SeenMessagesCount=%d DeletedMessagesCount=%d, want 1, 1", hdr.SeenMessagesCount, hdr.DeletedMessagesCount)
	}
}

func TestUpdateLowwatersTightensOnlyWhenBelowCurrent(t *testing.T) {
	hdr := &Header{FirstUnseenUIDLowwater: 10, FirstDeletedUIDLowwater: 10}

	updateLowwaters(hdr, 20, 0) // above current lowwater: no change
	if hdr.FirstUnseenUIDLowwater != 10 {
		t.Errorf("FirstUnseenUIDLowwater = %d, want unchanged 10", hdr.FirstUnseenUIDLowwater)
	}

	updateLowwaters(hdr, 5, FlagDeleted) // below current, unseen+deleted: tightens both
	if hdr.FirstUnseenUIDLowwater != 5 {
		t.Errorf("FirstUnseenUIDLowwater = %d, want 5", hdr.FirstUnseenUIDLowwater)
	}
	if hdr.FirstDeletedUIDLowwater != 5 {
		t.Errorf("FirstDeletedUIDLowwater = %d, want 5", hdr.FirstDeletedUIDLowwater)
	}
}

func TestUpdateLowwatersSkipsSeenRecordsAndNonDeletedRecords(t *testing.T) {
	hdr := &Header{FirstUnseenUIDLowwater: 10, FirstDeletedUIDLowwater: 10}
	updateLowwaters(hdr, 3, FlagSeen) // seen, not deleted: neither lowwater should move
	if hdr.FirstUnseenUIDLowwater != 10 || hdr.FirstDeletedUIDLowwater != 10 {
		t.Errorf("lowwaters moved for a seen, non-deleted record: unseen=%d deleted=%d", hdr.FirstUnseenUIDLowwater, hdr.FirstDeletedUIDLowwater)
	}
}

func TestUpdateLowwatersTightensDeletedLowwaterForDeletedRecord(t *testing.T) {
	hdr := &Header{FirstUnseenUIDLowwater: 10, FirstDeletedUIDLowwater: 10}
	updateLowwaters(hdr, 3, FlagSeen|FlagDeleted)
	if hdr.FirstDeletedUIDLowwater != 3 {
		t.Errorf("FirstDeletedUIDLowwater = %d, want 3 (record is DELETED and below current lowwater)", hdr.FirstDeletedUIDLowwater)
	}
	if hdr.FirstUnseenUIDLowwater != 10 {
		t.Errorf("FirstUnseenUIDLowwater = %d, want unchanged 10 (record is SEEN)", hdr.FirstUnseenUIDLowwater)
	}
}
