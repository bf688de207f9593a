package docmeta

import "log/slog"

// DefaultMaxUploadBytes is the reference upload limit (16 MiB).
const DefaultMaxUploadBytes = 16 << 20

// Config configures the extraction pipeline.
type Config struct {
	// MaxUploadBytes is the largest input callers should accept. The
	// pipeline does not enforce it; boundaries reject larger inputs before
	// calling Process.
	MaxUploadBytes int64 `json:"max_upload_bytes" yaml:"max_upload_bytes"`

	// HashChunkSize is the buffer size used to stream content through SHA-256.
	HashChunkSize int `json:"hash_chunk_size" yaml:"hash_chunk_size"`

	// Logger for stage transitions.
	Logger *slog.Logger `json:"-" yaml:"-"`
}

func (c *Config) defaults() {
	if c.MaxUploadBytes <= 0 {
		c.MaxUploadBytes = DefaultMaxUploadBytes
	}
	if c.HashChunkSize <= 0 {
		c.HashChunkSize = DefaultHashChunkSize
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}
