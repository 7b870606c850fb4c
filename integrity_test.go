package mdxsync

import "testing"

func cleanIndexMap() *indexMap {
	im := newIndexMap(1, BaseRecordSize, MinHeaderSize)
	im.records.append(1, FlagSeen)
	im.records.append(2, FlagDeleted)
	im.records.append(3, 0)
	im.header.MessagesCount = 3
	im.header.SeenMessagesCount = 1
	im.header.DeletedMessagesCount = 1
	im.header.NextUID = 4
	return im
}

func TestCheckIntegrityCleanMap(t *testing.T) {
	if err := checkIntegrity(cleanIndexMap()); err != nil {
		t.Errorf("clean map: unexpected error %v", err)
	}
}

func TestCheckIntegrityMessagesCountMismatch(t *testing.T) {
	im := cleanIndexMap()
	im.header.MessagesCount = 99
	if err := checkIntegrity(im); err == nil {
		t.Error("messages_count mismatch: want error, got nil")
	}
}

func TestCheckIntegrityNonIncreasingUID(t *testing.T) {
	im := cleanIndexMap()
	setRecordUID(im.records.recordAt(3), 2) // duplicate of seq 2's uid
	if err := checkIntegrity(im); err == nil {
		t.Error("non-increasing uid: want error, got nil")
	}
}

func TestCheckIntegritySeenCountMismatch(t *testing.T) {
	im := cleanIndexMap()
	im.header.SeenMessagesCount = 2
	if err := checkIntegrity(im); err == nil {
		t.Error("seen_messages_count mismatch: want error, got nil")
	}
}

func TestCheckIntegrityDeletedCountMismatch(t *testing.T) {
	im := cleanIndexMap()
	im.header.DeletedMessagesCount = 0
	if err := checkIntegrity(im); err == nil {
		t.Error("deleted_messages_count mismatch: want error, got nil")
	}
}

func TestCheckIntegrityNextUIDTooLow(t *testing.T) {
	im := cleanIndexMap()
	im.header.NextUID = 3
	if err := checkIntegrity(im); err == nil {
		t.Error("next_uid not above highest uid: want error, got nil")
	}
}

func TestCheckIntegrityLowwaterBounds(t *testing.T) {
	im := cleanIndexMap()
	im.header.FirstUnseenUIDLowwater = 100
	if err := checkIntegrity(im); err == nil {
		t.Error("first_unseen_uid_lowwater beyond next_uid: want error, got nil")
	}

	im2 := cleanIndexMap()
	im2.header.FirstDeletedUIDLowwater = 100
	if err := checkIntegrity(im2); err == nil {
		t.Error("first_deleted_uid_lowwater beyond next_uid: want error, got nil")
	}
}

func TestCheckIntegrityModseqVectorLengthMismatch(t *testing.T) {
	im := cleanIndexMap()
	im.modseqEnabled = true
	im.modseqVec = []uint64{1, 1}
	if err := checkIntegrity(im); err == nil {
		t.Error("modseq vector length mismatch: want error, got nil")
	}
}
