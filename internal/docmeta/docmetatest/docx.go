package docmetatest

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
	"strings"
)

// CoreProperties are written to docProps/core.xml. Empty values are omitted.
type CoreProperties struct {
	Title          string
	Subject        string
	Creator        string
	Keywords       string
	Description    string
	LastModifiedBy string
	Revision       string
	Category       string
	Created        string
	Modified       string
}

// DOCXOptions describes the DOCX to build.
type DOCXOptions struct {
	// Core is nil to leave out the core properties part entirely.
	Core *CoreProperties
	// Paragraphs become body-level paragraphs with one text run each.
	Paragraphs []string
	// Tables holds one row of cell texts per table.
	Tables [][]string
	// RawBody is inserted verbatim inside w:body after paragraphs and tables.
	RawBody string
	// SectionBreaks adds paragraphs carrying a section break before the
	// final body-level w:sectPr.
	SectionBreaks int
	// OmitMainPart leaves out word/document.xml.
	OmitMainPart bool
}

const (
	contentTypesXML = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types">
<Default Extension="rels" ContentType="application/vnd.openxmlformats-package.relationships+xml"/>
<Default Extension="xml" ContentType="application/xml"/>
<Override PartName="/word/document.xml" ContentType="application/vnd.openxmlformats-officedocument.wordprocessingml.document.main+xml"/>
<Override PartName="/docProps/core.xml" ContentType="application/vnd.openxmlformats-package.core-properties+xml"/>
</Types>`

	relsXML = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">
<Relationship Id="rId1" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/officeDocument" Target="word/document.xml"/>
<Relationship Id="rId2" Type="http://schemas.openxmlformats.org/package/2006/relationships/metadata/core-properties" Target="docProps/core.xml"/>
</Relationships>`

	wordNS = "http://schemas.openxmlformats.org/wordprocessingml/2006/main"
)

// BuildDOCX returns a minimal DOCX package.
func BuildDOCX(opts DOCXOptions) []byte {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)

	mustWrite(zw, "[Content_Types].xml", contentTypesXML)
	mustWrite(zw, "_rels/.rels", relsXML)
	if !opts.OmitMainPart {
		mustWrite(zw, "word/document.xml", documentXML(opts))
	}
	if opts.Core != nil {
		mustWrite(zw, "docProps/core.xml", coreXML(*opts.Core))
	}
	if err := zw.Close(); err != nil {
		panic(fmt.Sprintf("docmetatest: close zip: %v", err))
	}
	return buf.Bytes()
}

func mustWrite(zw *zip.Writer, name, content string) {
	w, err := zw.Create(name)
	if err != nil {
		panic(fmt.Sprintf("docmetatest: create %s: %v", name, err))
	}
	if _, err := w.Write([]byte(content)); err != nil {
		panic(fmt.Sprintf("docmetatest: write %s: %v", name, err))
	}
}

func documentXML(opts DOCXOptions) string {
	var sb strings.Builder
	sb.WriteString(`<?xml version="1.0" encoding="UTF-8" standalone="yes"?>`)
	fmt.Fprintf(&sb, `<w:document xmlns:w="%s"><w:body>`, wordNS)
	for _, p := range opts.Paragraphs {
		fmt.Fprintf(&sb, `<w:p><w:r><w:t xml:space="preserve">%s</w:t></w:r></w:p>`, escape(p))
	}
	for _, row := range opts.Tables {
		sb.WriteString(`<w:tbl><w:tr>`)
		for _, cell := range row {
			fmt.Fprintf(&sb, `<w:tc><w:p><w:r><w:t>%s</w:t></w:r></w:p></w:tc>`, escape(cell))
		}
		sb.WriteString(`</w:tr></w:tbl>`)
	}
	sb.WriteString(opts.RawBody)
	for i := 0; i < opts.SectionBreaks; i++ {
		sb.WriteString(`<w:p><w:pPr><w:sectPr/></w:pPr></w:p>`)
	}
	sb.WriteString(`<w:sectPr/></w:body></w:document>`)
	return sb.String()
}

func coreXML(cp CoreProperties) string {
	var sb strings.Builder
	sb.WriteString(`<?xml version="1.0" encoding="UTF-8" standalone="yes"?>`)
	sb.WriteString(`<cp:coreProperties xmlns:cp="http://schemas.openxmlformats.org/package/2006/metadata/core-properties"` +
		` xmlns:dc="http://purl.org/dc/elements/1.1/" xmlns:dcterms="http://purl.org/dc/terms/"` +
		` xmlns:xsi="http://www.w3.org/2001/XMLSchema-instance">`)
	for _, e := range []struct{ tag, val string }{
		{"dc:title", cp.Title},
		{"dc:subject", cp.Subject},
		{"dc:creator", cp.Creator},
		{"cp:keywords", cp.Keywords},
		{"dc:description", cp.Description},
		{"cp:lastModifiedBy", cp.LastModifiedBy},
		{"cp:revision", cp.Revision},
		{"cp:category", cp.Category},
	} {
		if e.val != "" {
			fmt.Fprintf(&sb, "<%s>%s</%s>", e.tag, escape(e.val), e.tag)
		}
	}
	if cp.Created != "" {
		fmt.Fprintf(&sb, `<dcterms:created xsi:type="dcterms:W3CDTF">%s</dcterms:created>`, escape(cp.Created))
	}
	if cp.Modified != "" {
		fmt.Fprintf(&sb, `<dcterms:modified xsi:type="dcterms:W3CDTF">%s</dcterms:modified>`, escape(cp.Modified))
	}
	sb.WriteString(`</cp:coreProperties>`)
	return sb.String()
}

func escape(s string) string {
	var sb strings.Builder
	_ = xml.EscapeText(&sb, []byte(s))
	return sb.String()
}
