package mdxsync

import (
	"testing"

	json "github.com/goccy/go-json"
)

func viewWithSampleMap(alg ChecksumAlgorithm) *View {
	im := newIndexMap(1, BaseRecordSize, MinHeaderSize)
	im.records.append(1, FlagSeen)
	im.records.append(2, FlagDeleted)
	im.header.MessagesCount = 2
	idx := &Index{published: im, checksumAlg: alg}
	return &View{index: idx, mapRef: im}
}

func TestSnapshotRoundTripWithoutChecksums(t *testing.T) {
	v := viewWithSampleMap(ChecksumNone)
	data, err := v.Snapshot()
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	snap, err := DecodeSnapshot(data)
	if err != nil {
		t.Fatalf("DecodeSnapshot: %v", err)
	}
	if len(snap.Records) != 2 {
		t.Fatalf("records = %d, want 2", len(snap.Records))
	}
	if snap.Records[0].UID != 1 || snap.Records[1].UID != 2 {
		t.Errorf("records = %+v, want uids [1 2]", snap.Records)
	}
	if snap.Records[0].Checksum != 0 || snap.Records[1].Checksum != 0 {
		t.Error("checksums present despite ChecksumNone")
	}
	if snap.Header.MessagesCount != 2 {
		t.Errorf("Header.MessagesCount = %d, want 2", snap.Header.MessagesCount)
	}
}

func TestSnapshotRoundTripWithChecksums(t *testing.T) {
	v := viewWithSampleMap(ChecksumXXH3)
	data, err := v.Snapshot()
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	snap, err := DecodeSnapshot(data)
	if err != nil {
		t.Fatalf("DecodeSnapshot: %v", err)
	}
	for _, sr := range snap.Records {
		if sr.Checksum == 0 {
			t.Errorf("record uid %d: checksum = 0, want non-zero with ChecksumXXH3 enabled", sr.UID)
		}
	}
}

func TestSnapshotIsCompressed(t *testing.T) {
	v := viewWithSampleMap(ChecksumNone)
	data, err := v.Snapshot()
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	var probe Snapshot
	if err := json.Unmarshal(data, &probe); err == nil {
		t.Error("Snapshot output parsed as plain JSON; want zstd-compressed bytes")
	}
}

func TestDebugJSONIsPlainJSON(t *testing.T) {
	v := viewWithSampleMap(ChecksumXXH3)
	out, err := v.DebugJSON()
	if err != nil {
		t.Fatalf("DebugJSON: %v", err)
	}
	var snap Snapshot
	if err := json.Unmarshal(out, &snap); err != nil {
		t.Fatalf("DebugJSON output is not plain JSON: %v", err)
	}
	if len(snap.Records) != 2 {
		t.Errorf("records = %d, want 2", len(snap.Records))
	}
	for _, sr := range snap.Records {
		if sr.Checksum != 0 {
			t.Error("DebugJSON included a checksum; it should never compute one")
		}
	}
}
