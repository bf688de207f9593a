package docmeta

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"
	"unicode/utf8"
)

// DOCX field names, in display order.
const (
	FieldTitle          = "Title"
	FieldSubject        = "Subject"
	FieldAuthor         = "Author"
	FieldKeywords       = "Keywords"
	FieldLastModifiedBy = "Last Modified By"
	FieldRevision       = "Revision"
	FieldCategory       = "Category"
	FieldComments       = "Comments"
	FieldModifiedDate   = "Modified Date"
	FieldCreatedDate    = "Created Date"
	FieldParagraphs     = "Number of Paragraphs"
	FieldTables         = "Number of Tables"
	FieldSections       = "Number of Sections"
	FieldWordCount      = "Approximate Word Count"
	FieldCharacterCount = "Character Count"
)

const (
	defaultMainPart = "word/document.xml"
	defaultCorePart = "docProps/core.xml"
	packageRelsPart = "_rels/.rels"

	// maxXMLDepth guards against pathological nesting.
	maxXMLDepth = 256
	// maxPartSize caps how much of one decompressed part is read.
	maxPartSize = 64 << 20
)

type packageRelationships struct {
	Relationships []struct {
		Type   string `xml:"Type,attr"`
		Target string `xml:"Target,attr"`
	} `xml:"Relationship"`
}

// coreProperties matches docProps/core.xml by local element name, so the
// dc:, cp: and dcterms: prefixes are all accepted.
type coreProperties struct {
	Title          string `xml:"title"`
	Subject        string `xml:"subject"`
	Creator        string `xml:"creator"`
	Keywords       string `xml:"keywords"`
	Description    string `xml:"description"`
	LastModifiedBy string `xml:"lastModifiedBy"`
	Revision       string `xml:"revision"`
	Category       string `xml:"category"`
	Created        string `xml:"created"`
	Modified       string `xml:"modified"`
}

type bodyStats struct {
	paragraphs int
	tables     int
	sections   int
	words      int
	chars      int
}

// extractDOCX reads document properties and body statistics from a DOCX
// container.
func extractDOCX(data []byte) (Record, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return Record{}, newError(KindMalformedDocument, "open DOCX container", err)
	}

	files := make(map[string]*zip.File, len(zr.File))
	for _, f := range zr.File {
		files[f.Name] = f
	}

	mainPart, corePart, err := locateParts(files)
	if err != nil {
		return Record{}, err
	}
	main, ok := files[mainPart]
	if !ok {
		return Record{}, newError(KindMalformedDocument, fmt.Sprintf("main document part %q not found", mainPart), nil)
	}

	var rec Record
	if err := setCoreProperties(&rec, files[corePart]); err != nil {
		return Record{}, err
	}

	stats, err := scanBody(main)
	if err != nil {
		return Record{}, err
	}
	rec.Set(FieldParagraphs, stats.paragraphs)
	rec.Set(FieldTables, stats.tables)
	rec.Set(FieldSections, stats.sections)
	rec.Set(FieldWordCount, stats.words)
	rec.Set(FieldCharacterCount, stats.chars)
	return rec, nil
}

// locateParts resolves the main document and core properties part names
// from the package relationships, falling back to the conventional names.
func locateParts(files map[string]*zip.File) (string, string, error) {
	mainPart, corePart := defaultMainPart, defaultCorePart

	relsFile, ok := files[packageRelsPart]
	if !ok {
		return mainPart, corePart, nil
	}
	data, err := readPart(relsFile)
	if err != nil {
		return "", "", err
	}
	var rels packageRelationships
	if err := xml.Unmarshal(data, &rels); err != nil {
		return "", "", newError(KindMalformedDocument, "parse package relationships", err)
	}
	for _, rel := range rels.Relationships {
		switch {
		case strings.HasSuffix(rel.Type, "/officeDocument"):
			mainPart = partName(rel.Target)
		case strings.HasSuffix(rel.Type, "/core-properties"):
			corePart = partName(rel.Target)
		}
	}
	return mainPart, corePart, nil
}

func partName(target string) string {
	return strings.TrimPrefix(path.Clean("/"+target), "/")
}

func setCoreProperties(rec *Record, f *zip.File) error {
	if f == nil {
		for _, name := range []string{
			FieldTitle, FieldSubject, FieldAuthor, FieldKeywords,
			FieldLastModifiedBy, FieldRevision, FieldCategory, FieldComments,
			FieldModifiedDate, FieldCreatedDate,
		} {
			rec.Set(name, NotAvailable)
		}
		return nil
	}

	data, err := readPart(f)
	if err != nil {
		return err
	}
	var cp coreProperties
	if err := xml.Unmarshal(data, &cp); err != nil {
		return newError(KindMalformedDocument, "parse core properties", err)
	}

	rec.Set(FieldTitle, valueOr(cp.Title, NotSpecified))
	rec.Set(FieldSubject, valueOr(cp.Subject, NotSpecified))
	rec.Set(FieldAuthor, valueOr(cp.Creator, NotSpecified))
	rec.Set(FieldKeywords, valueOr(cp.Keywords, NotSpecified))
	rec.Set(FieldLastModifiedBy, valueOr(cp.LastModifiedBy, NotSpecified))
	rec.Set(FieldRevision, valueOr(cp.Revision, NotSpecified))
	rec.Set(FieldCategory, valueOr(cp.Category, NotSpecified))
	rec.Set(FieldComments, valueOr(cp.Description, NotSpecified))
	rec.Set(FieldModifiedDate, formatDate(cp.Modified, parseW3CDTF))
	rec.Set(FieldCreatedDate, formatDate(cp.Created, parseW3CDTF))
	return nil
}

var w3cdtfLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02",
}

// parseW3CDTF parses core property timestamps and normalises them to UTC.
func parseW3CDTF(s string) (time.Time, bool) {
	for _, layout := range w3cdtfLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

func readPart(f *zip.File) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, newError(KindMalformedDocument, fmt.Sprintf("open part %q", f.Name), err)
	}
	defer rc.Close()

	data, err := io.ReadAll(io.LimitReader(rc, maxPartSize+1))
	if err != nil {
		return nil, newError(KindMalformedDocument, fmt.Sprintf("read part %q", f.Name), err)
	}
	if len(data) > maxPartSize {
		return nil, newError(KindMalformedDocument, fmt.Sprintf("part %q exceeds %d bytes", f.Name, maxPartSize), nil)
	}
	return data, nil
}

// scanBody walks the main document part counting body-level paragraphs,
// tables and section breaks, and accumulates word and character counts over
// the body-level paragraphs. Text inside text boxes is not paragraph text.
func scanBody(f *zip.File) (bodyStats, error) {
	var stats bodyStats

	rc, err := f.Open()
	if err != nil {
		return stats, newError(KindMalformedDocument, "open main document part", err)
	}
	defer rc.Close()

	var (
		dec       = xml.NewDecoder(io.LimitReader(rc, maxPartSize))
		stack     []string
		bodyDepth = -1
		inPara    bool
		inText    bool
		txbxDepth int
		text      strings.Builder
	)

	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return stats, newError(KindMalformedDocument, "parse main document part", err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			name := t.Name.Local
			stack = append(stack, name)
			depth := len(stack)
			if depth > maxXMLDepth {
				return stats, newError(KindMalformedDocument, fmt.Sprintf("XML nesting depth exceeds %d", maxXMLDepth), nil)
			}

			switch {
			case name == "body" && bodyDepth < 0:
				bodyDepth = depth
			case bodyDepth > 0 && depth == bodyDepth+1:
				switch name {
				case "p":
					stats.paragraphs++
					inPara = true
					text.Reset()
				case "tbl":
					stats.tables++
				case "sectPr":
					stats.sections++
				}
			case name == "sectPr" && inPara && depth == bodyDepth+3 && stack[depth-2] == "pPr":
				stats.sections++
			case name == "txbxContent":
				txbxDepth++
			case inPara && txbxDepth == 0 && depth >= 2 && stack[depth-2] == "r":
				switch name {
				case "t":
					inText = true
				case "tab":
					text.WriteByte('\t')
				case "br", "cr":
					text.WriteByte('\n')
				}
			}

		case xml.CharData:
			if inText {
				text.Write(t)
			}

		case xml.EndElement:
			depth := len(stack)
			switch name := t.Name.Local; {
			case name == "t":
				inText = false
			case name == "txbxContent":
				txbxDepth--
			case name == "p" && inPara && depth == bodyDepth+1:
				inPara = false
				s := text.String()
				stats.words += len(strings.Fields(s))
				stats.chars += utf8.RuneCountInString(s)
			}
			if depth > 0 {
				stack = stack[:depth-1]
			}
		}
	}
	return stats, nil
}
