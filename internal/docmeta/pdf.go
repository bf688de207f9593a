package docmeta

import (
	"bytes"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"
)

// PDF-only field names. Title, Author and Subject are shared with DOCX.
const (
	FieldCreator          = "Creator"
	FieldProducer         = "Producer"
	FieldCreationDate     = "Creation Date"
	FieldModificationDate = "Modification Date"
	FieldPages            = "Number of Pages"
	FieldEncrypted        = "Encrypted"
)

// pdfInfoFields maps record fields to document information dictionary keys.
var pdfInfoFields = []struct {
	field string
	key   string
}{
	{FieldTitle, "Title"},
	{FieldAuthor, "Author"},
	{FieldSubject, "Subject"},
	{FieldCreator, "Creator"},
	{FieldProducer, "Producer"},
}

// extractPDF reads the document information dictionary, page count and
// encryption flag. Any parser failure, including a panic inside pdfcpu,
// becomes a single malformed-document error. An encrypted PDF that cannot
// be opened without a user password yields lockedPDFRecord.
func extractPDF(data []byte) (rec Record, err error) {
	defer func() {
		if p := recover(); p != nil {
			rec, err = Record{}, newError(KindMalformedDocument, "parse PDF", fmt.Errorf("parser panic: %v", p))
		}
	}()

	declared := trailerDeclaresEncryption(data)

	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed

	ctx, err := api.ReadContext(bytes.NewReader(data), conf)
	if err != nil {
		if declared && isPasswordError(err) {
			return lockedPDFRecord(), nil
		}
		return Record{}, newError(KindMalformedDocument, "read PDF", err)
	}

	if err := api.ValidateContext(ctx); err != nil {
		return Record{}, newError(KindMalformedDocument, "validate PDF", err)
	}

	if err := setInfoFields(&rec, ctx); err != nil {
		return Record{}, err
	}
	rec.Set(FieldPages, ctx.PageCount)
	rec.Set(FieldEncrypted, yesNo(declared || ctx.Encrypt != nil))
	return rec, nil
}

func isPasswordError(err error) bool {
	return errors.Is(err, pdfcpu.ErrWrongPassword) ||
		strings.Contains(err.Error(), "correct password")
}

var xrefStreamHeader = regexp.MustCompile(`^\d+\s+\d+\s+obj\s*<<`)

// trailerDeclaresEncryption reports whether the trailer dictionary of the
// last cross-reference section has an /Encrypt entry. The section is found
// through startxref and may be a classic xref table or an xref stream.
// When startxref is unusable the last "trailer" keyword is tried instead.
func trailerDeclaresEncryption(data []byte) bool {
	if at, ok := trailerDictAt(data, lastStartXRef(data)); ok {
		return dictHasKey(data[at:], "Encrypt")
	}
	if i := bytes.LastIndex(data, []byte("trailer")); i >= 0 {
		if j := bytes.Index(data[i:], []byte("<<")); j >= 0 {
			return dictHasKey(data[i+j:], "Encrypt")
		}
	}
	return false
}

// lastStartXRef returns the byte offset named by the final startxref
// keyword, or -1.
func lastStartXRef(data []byte) int {
	i := bytes.LastIndex(data, []byte("startxref"))
	if i < 0 {
		return -1
	}
	rest := bytes.TrimLeft(data[i+len("startxref"):], pdfWhitespace)
	n, digits := 0, 0
	for _, c := range rest {
		if c < '0' || c > '9' {
			break
		}
		n = n*10 + int(c-'0')
		digits++
		if n >= len(data) {
			return -1
		}
	}
	if digits == 0 {
		return -1
	}
	return n
}

// trailerDictAt returns the offset of the "<<" opening the trailer
// dictionary for the cross-reference section starting at off.
func trailerDictAt(data []byte, off int) (int, bool) {
	if off < 0 || off >= len(data) {
		return 0, false
	}
	sect := bytes.TrimLeft(data[off:], pdfWhitespace)
	base := len(data) - len(sect)

	if bytes.HasPrefix(sect, []byte("xref")) {
		t := bytes.Index(sect, []byte("trailer"))
		if t < 0 {
			return 0, false
		}
		d := bytes.Index(sect[t:], []byte("<<"))
		if d < 0 {
			return 0, false
		}
		return base + t + d, true
	}
	if m := xrefStreamHeader.FindIndex(sect); m != nil {
		return base + m[1] - 2, true
	}
	return 0, false
}

const pdfWhitespace = " \t\r\n\f\x00"

// dictHasKey reports whether the dictionary at the start of b has key as a
// direct entry. String literals, hex strings, comments and nested
// dictionaries are skipped so their contents never match.
func dictHasKey(b []byte, key string) bool {
	depth := 0
	for i := 0; i < len(b); {
		c := b[i]
		switch {
		case c == '<' && i+1 < len(b) && b[i+1] == '<':
			depth++
			i += 2
		case c == '>' && i+1 < len(b) && b[i+1] == '>':
			depth--
			i += 2
			if depth <= 0 {
				return false
			}
		case c == '<':
			j := bytes.IndexByte(b[i:], '>')
			if j < 0 {
				return false
			}
			i += j + 1
		case c == '(':
			i = skipStringLiteral(b, i)
		case c == '%':
			j := bytes.IndexAny(b[i:], "\r\n")
			if j < 0 {
				return false
			}
			i += j
		case c == '/':
			j := i + 1
			for j < len(b) && !isPDFDelimiter(b[j]) {
				j++
			}
			if depth == 1 && string(b[i+1:j]) == key {
				return true
			}
			i = j
		default:
			i++
		}
	}
	return false
}

// skipStringLiteral returns the index just past the literal opening at i.
func skipStringLiteral(b []byte, i int) int {
	depth := 0
	for ; i < len(b); i++ {
		switch b[i] {
		case '\\':
			i++
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 {
				return i + 1
			}
		}
	}
	return len(b)
}

func isPDFDelimiter(c byte) bool {
	return strings.IndexByte(pdfWhitespace+"()<>[]{}/%", c) >= 0
}

func setInfoFields(rec *Record, ctx *model.Context) error {
	if ctx.Info == nil {
		for _, f := range pdfInfoFields {
			rec.Set(f.field, NotAvailable)
		}
		rec.Set(FieldCreationDate, NotAvailable)
		rec.Set(FieldModificationDate, NotAvailable)
		return nil
	}

	info, err := ctx.DereferenceDict(*ctx.Info)
	if err != nil {
		return newError(KindMalformedDocument, "read document information dictionary", err)
	}
	if info == nil {
		info = types.Dict{}
	}

	for _, f := range pdfInfoFields {
		rec.Set(f.field, valueOr(infoString(ctx, info, f.key), NotSpecified))
	}
	rec.Set(FieldCreationDate, formatDate(infoString(ctx, info, "CreationDate"), parsePDFDate))
	rec.Set(FieldModificationDate, formatDate(infoString(ctx, info, "ModDate"), parsePDFDate))
	return nil
}

// infoString returns the text of a string or hex literal entry, or "" when
// the entry is missing or of another type.
func infoString(ctx *model.Context, info types.Dict, key string) string {
	obj, found := info.Find(key)
	if !found || obj == nil {
		return ""
	}
	obj, err := ctx.Dereference(obj)
	if err != nil || obj == nil {
		return ""
	}

	var (
		s    string
		derr error
	)
	switch v := obj.(type) {
	case types.StringLiteral:
		s, derr = types.StringLiteralToString(v)
	case types.HexLiteral:
		s, derr = types.HexLiteralToString(v)
	case types.Name:
		s = string(v)
	default:
		return ""
	}
	if derr != nil {
		return ""
	}
	return s
}

func parsePDFDate(s string) (time.Time, bool) {
	return types.DateTime(s, true)
}

// lockedPDFRecord describes an encrypted PDF whose contents cannot be read.
func lockedPDFRecord() Record {
	var rec Record
	for _, f := range pdfInfoFields {
		rec.Set(f.field, NotAvailable)
	}
	rec.Set(FieldCreationDate, NotAvailable)
	rec.Set(FieldModificationDate, NotAvailable)
	rec.Set(FieldPages, NotAvailable)
	rec.Set(FieldEncrypted, yesNo(true))
	return rec
}

func yesNo(b bool) string {
	if b {
		return "Yes"
	}
	return "No"
}
