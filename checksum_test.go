package mdxsync

import "testing"

func TestChecksumRecordNoneIsZero(t *testing.T) {
	rec := []byte{1, 2, 3, 4, 5, 6, 7, 8}
	if got := checksumRecord(ChecksumNone, rec); got != 0 {
		t.Errorf("ChecksumNone = %d, want 0", got)
	}
}

func TestChecksumRecordUnrecognizedDegradesToZero(t *testing.T) {
	rec := []byte{1, 2, 3, 4, 5, 6, 7, 8}
	if got := checksumRecord(ChecksumAlgorithm(99), rec); got != 0 {
		t.Errorf("unrecognized algorithm = %d, want 0", got)
	}
}

func TestChecksumRecordAlgorithmsAreDeterministicAndDistinguishInput(t *testing.T) {
	a := []byte{1, 2, 3, 4, 5, 6, 7, 8}
	b := []byte{8, 7, 6, 5, 4, 3, 2, 1}

	for _, alg := range []ChecksumAlgorithm{ChecksumXXH3, ChecksumFNV1a, ChecksumBlake2b} {
		got1 := checksumRecord(alg, a)
		got2 := checksumRecord(alg, a)
		if got1 != got2 {
			t.Errorf("algorithm %v not deterministic: %d != %d", alg, got1, got2)
		}
		if got1 == 0 {
			t.Errorf("algorithm %v produced zero digest for non-empty input", alg)
		}
		if got1 == checksumRecord(alg, b) {
			t.Errorf("algorithm %v produced same digest for different inputs", alg)
		}
	}
}

func TestChecksumRecordAlgorithmsDisagree(t *testing.T) {
	rec := []byte{9, 9, 9, 9, 9, 9, 9, 9}
	x := checksumRecord(ChecksumXXH3, rec)
	f := checksumRecord(ChecksumFNV1a, rec)
	b := checksumRecord(ChecksumBlake2b, rec)
	if x == f || x == b || f == b {
		t.Errorf("distinct algorithms produced colliding digests: xxh3=%d fnv1a=%d blake2b=%d", x, f, b)
	}
}
