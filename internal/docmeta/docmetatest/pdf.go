// Package docmetatest builds small DOCX and PDF documents in memory for tests.
package docmetatest

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// PDFInfo holds document information dictionary entries. Empty entries are
// left out of the dictionary.
type PDFInfo struct {
	Title        string
	Author       string
	Subject      string
	Creator      string
	Producer     string
	CreationDate string
	ModDate      string
}

// PDFOptions describes the PDF to build. A nil Info omits the /Info entry
// from the trailer.
type PDFOptions struct {
	Pages int
	Info  *PDFInfo
}

// BuildPDF returns a minimal, valid PDF 1.4 file with a correct
// cross-reference table.
func BuildPDF(opts PDFOptions) []byte {
	if opts.Pages <= 0 {
		opts.Pages = 1
	}

	var objects []string
	kids := make([]string, opts.Pages)
	for i := range kids {
		kids[i] = fmt.Sprintf("%d 0 R", i+3)
	}
	objects = append(objects,
		"<< /Type /Catalog /Pages 2 0 R >>",
		fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d >>", strings.Join(kids, " "), opts.Pages),
	)
	for i := 0; i < opts.Pages; i++ {
		objects = append(objects, "<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] /Resources << >> >>")
	}

	infoRef := ""
	if opts.Info != nil {
		objects = append(objects, infoDict(*opts.Info))
		infoRef = fmt.Sprintf(" /Info %d 0 R", len(objects))
	}

	var b bytes.Buffer
	b.WriteString("%PDF-1.4\n")

	offsets := make([]int, len(objects)+1)
	for i, obj := range objects {
		offsets[i+1] = b.Len()
		fmt.Fprintf(&b, "%d 0 obj\n%s\nendobj\n", i+1, obj)
	}

	xrefOffset := b.Len()
	fmt.Fprintf(&b, "xref\n0 %d\n", len(objects)+1)
	b.WriteString("0000000000 65535 f \n")
	for i := 1; i <= len(objects); i++ {
		fmt.Fprintf(&b, "%010d 00000 n \n", offsets[i])
	}
	fmt.Fprintf(&b, "trailer\n<< /Size %d /Root 1 0 R%s >>\nstartxref\n%d\n%%%%EOF\n", len(objects)+1, infoRef, xrefOffset)
	return b.Bytes()
}

func infoDict(info PDFInfo) string {
	var sb strings.Builder
	sb.WriteString("<<")
	for _, e := range []struct{ key, val string }{
		{"Title", info.Title},
		{"Author", info.Author},
		{"Subject", info.Subject},
		{"Creator", info.Creator},
		{"Producer", info.Producer},
		{"CreationDate", info.CreationDate},
		{"ModDate", info.ModDate},
	} {
		if e.val == "" {
			continue
		}
		fmt.Fprintf(&sb, " /%s (%s)", e.key, escapeLiteral(e.val))
	}
	sb.WriteString(" >>")
	return sb.String()
}

func escapeLiteral(s string) string {
	return strings.NewReplacer(`\`, `\\`, "(", `\(`, ")", `\)`).Replace(s)
}

// EncryptPDF encrypts data with AES-256 using pdfcpu. An empty userPW gives a
// document anyone can open; a non-empty one locks it.
func EncryptPDF(data []byte, userPW, ownerPW string) ([]byte, error) {
	conf := model.NewAESConfiguration(userPW, ownerPW, 256)
	var out bytes.Buffer
	if err := api.Encrypt(bytes.NewReader(data), &out, conf); err != nil {
		return nil, fmt.Errorf("encrypt PDF: %w", err)
	}
	return out.Bytes(), nil
}
