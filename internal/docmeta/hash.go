package docmeta

import (
	"crypto/sha256"
	"encoding/hex"
	"io"
)

// DefaultHashChunkSize is the buffer used to stream content through the digest.
const DefaultHashChunkSize = 64 * 1024

// HashSHA256 streams r through SHA-256 in chunkSize pieces and returns the
// lowercase hex digest. r is rewound before and after hashing.
func HashSHA256(r io.ReadSeeker, chunkSize int) (string, error) {
	if chunkSize <= 0 {
		chunkSize = DefaultHashChunkSize
	}
	if _, err := r.Seek(0, io.SeekStart); err != nil {
		return "", newError(KindInternalFailure, "rewind before hashing", err)
	}

	hash := sha256.New()
	// Wrapping hides WriterTo/ReaderFrom so the fixed buffer is actually used.
	if _, err := io.CopyBuffer(struct{ io.Writer }{hash}, struct{ io.Reader }{r}, make([]byte, chunkSize)); err != nil {
		return "", newError(KindInternalFailure, "hash content", err)
	}

	if _, err := r.Seek(0, io.SeekStart); err != nil {
		return "", newError(KindInternalFailure, "rewind after hashing", err)
	}
	return hex.EncodeToString(hash.Sum(nil)), nil
}
