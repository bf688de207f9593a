package docmeta

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

var unsafeFilenameChars = regexp.MustCompile(`[^A-Za-z0-9_.-]`)

// SanitizeFilename reduces a client-supplied name to a safe ASCII file name:
// no directories, no separators, no characters outside [A-Za-z0-9_.-].
// It returns "" when nothing usable remains.
func SanitizeFilename(name string) string {
	name = norm.NFKD.String(name)
	name = strings.Map(func(r rune) rune {
		if r > unicode.MaxASCII {
			return -1
		}
		return r
	}, name)

	name = strings.NewReplacer("/", " ", "\\", " ").Replace(name)
	name = strings.Join(strings.Fields(name), "_")
	name = unsafeFilenameChars.ReplaceAllString(name, "")
	return strings.Trim(name, "._")
}

// displayName returns the sanitized name, or a generic one carrying the
// format extension when sanitizing leaves no base name.
func displayName(claimed string, format Format) string {
	if name := SanitizeFilename(claimed); name != "" && !strings.EqualFold(name, string(format)) {
		return name
	}
	return "document." + string(format)
}

// assemble appends file-level facts after the format-specific fields.
func assemble(rec Record, fileName string, format Format, size int64, digest string) Record {
	rec.Set(FieldFileHash, digest)
	rec.Set(FieldFileName, fileName)
	rec.Set(FieldFileType, format.Label())
	rec.Set(FieldFileSize, FormatSize(size))
	return rec
}
