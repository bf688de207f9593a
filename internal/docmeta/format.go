package docmeta

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Format is a supported document container type.
type Format string

const (
	FormatDOCX Format = "docx"
	FormatPDF  Format = "pdf"
)

// signatures maps each format to the leading bytes its content must start with.
// It is never written after init and is safe to share.
var signatures = map[Format][]byte{
	FormatPDF:  []byte("%PDF"),
	FormatDOCX: []byte("PK"),
}

var labels = map[Format]string{
	FormatPDF:  "PDF",
	FormatDOCX: "DOCX",
}

// Label returns the human-readable file type shown to users.
func (f Format) Label() string {
	if l, ok := labels[f]; ok {
		return l
	}
	return strings.ToUpper(string(f))
}

// Signature returns a copy of the leading byte pattern for f.
func (f Format) Signature() []byte {
	return append([]byte(nil), signatures[f]...)
}

// SupportedFormats returns the accepted extensions without the dot.
func SupportedFormats() []string {
	return []string{string(FormatDOCX), string(FormatPDF)}
}

// FormatFromFilename maps the claimed file extension to a Format.
// The comparison is case-insensitive.
func FormatFromFilename(name string) (Format, error) {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(name), "."))
	switch Format(ext) {
	case FormatDOCX:
		return FormatDOCX, nil
	case FormatPDF:
		return FormatPDF, nil
	}
	if ext == "" {
		return "", newError(KindUnsupportedFormat, fmt.Sprintf("file %q has no extension", name), nil)
	}
	return "", newError(KindUnsupportedFormat, fmt.Sprintf("unsupported format: %q", "."+ext), nil)
}
