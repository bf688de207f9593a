package docmeta

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/gabriel-vasile/mimetype"
)

// headerSize is how many leading bytes the sniffer inspects.
const headerSize = 8

// Sniff checks that the content of r matches the format implied by filename.
// The reader is always rewound to offset 0 before Sniff returns.
func Sniff(r io.ReadSeeker, filename string) (Format, error) {
	format, err := FormatFromFilename(filename)
	if err != nil {
		return "", err
	}

	header, err := readHeader(r)
	if err != nil {
		return "", err
	}

	sig := signatures[format]
	if len(header) < len(sig) {
		return "", newError(KindMalformedDocument,
			fmt.Sprintf("%d byte(s) is too short for a %s header", len(header), format.Label()), nil)
	}
	if !bytes.HasPrefix(header, sig) {
		return "", newError(KindContentMismatch,
			fmt.Sprintf("content does not match claimed %s format (detected %s)", format.Label(), DetectMIME(header)), nil)
	}
	return format, nil
}

// DetectMIME returns the MIME type guessed from the leading bytes of data.
func DetectMIME(data []byte) string {
	return mimetype.Detect(data).String()
}

func readHeader(r io.ReadSeeker) ([]byte, error) {
	if _, err := r.Seek(0, io.SeekStart); err != nil {
		return nil, newError(KindInternalFailure, "rewind before sniffing", err)
	}
	buf := make([]byte, headerSize)
	n, err := io.ReadFull(r, buf)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
		return nil, newError(KindInternalFailure, "read header", err)
	}
	// Cursor goes back to the start for the hasher and the extractors.
	if _, err := r.Seek(0, io.SeekStart); err != nil {
		return nil, newError(KindInternalFailure, "rewind after sniffing", err)
	}
	return buf[:n], nil
}
