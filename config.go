// Index configuration (ambient stack): zero-value-defaulting options,
// with an optional JSON loader for callers that persist configuration
// alongside the index file rather than wiring it up in Go.
package mdxsync

import (
	"fmt"
	"io"

	json "github.com/goccy/go-json"
)

// Config holds index configuration options. The zero value is valid;
// withDefaults fills in anything left unset.
type Config struct {
	// RecordSize is the per-message record size in bytes, including
	// the BaseRecordSize header and any extension tail. Default 64.
	RecordSize uint32 `json:"record_size,omitempty"`

	// BaseHeaderSize is the header size in bytes, including
	// MinHeaderSize and any extension header space. Default
	// MinHeaderSize.
	BaseHeaderSize uint32 `json:"base_header_size,omitempty"`

	// ChecksumAlgorithm selects the digest View.Snapshot computes per
	// record. Default ChecksumNone.
	ChecksumAlgorithm ChecksumAlgorithm `json:"checksum_algorithm,omitempty"`

	// DebugChecks enables checkIntegrity at the end of every SyncMap
	// call. Expensive (a full record-array walk); meant for test and
	// development builds, not production replay of large mailboxes.
	DebugChecks bool `json:"debug_checks,omitempty"`

	// RewriteMinLogBytes is the log-growth-since-tail threshold past
	// which SyncResult.RewriteRecommended is set (§4.G step 4).
	// Default 128KiB.
	RewriteMinLogBytes int64 `json:"rewrite_min_log_bytes,omitempty"`
}

const (
	defaultRecordSize         = 64
	defaultRewriteMinLogBytes = 128 * 1024
)

// withDefaults returns a copy of cfg with zero-valued fields replaced
// by their defaults.
func (cfg Config) withDefaults() Config {
	if cfg.RecordSize == 0 {
		cfg.RecordSize = defaultRecordSize
	}
	if cfg.BaseHeaderSize == 0 {
		cfg.BaseHeaderSize = MinHeaderSize
	}
	if cfg.RewriteMinLogBytes == 0 {
		cfg.RewriteMinLogBytes = defaultRewriteMinLogBytes
	}
	return cfg
}

// LoadConfig decodes a Config from r (JSON) and applies defaults.
func LoadConfig(r io.Reader) (Config, error) {
	var cfg Config
	dec := json.NewDecoder(r)
	if err := dec.Decode(&cfg); err != nil {
		return Config{}, fmt.Errorf("mdxsync: decode config: %w", err)
	}
	if cfg.BaseHeaderSize != 0 && cfg.BaseHeaderSize < MinHeaderSize {
		return Config{}, fmt.Errorf("mdxsync: base_header_size %d below MinHeaderSize %d", cfg.BaseHeaderSize, MinHeaderSize)
	}
	if cfg.RecordSize != 0 {
		if err := validateRecordSize(cfg.RecordSize); err != nil {
			return Config{}, err
		}
	}
	return cfg.withDefaults(), nil
}
