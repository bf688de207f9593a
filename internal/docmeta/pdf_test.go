package docmeta

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Lllllllleong/documentmetadata/internal/docmeta/docmetatest"
)

func TestExtractPDF_InfoDictionary(t *testing.T) {
	req := require.New(t)

	// Given a three page PDF with a partial information dictionary
	data := docmetatest.BuildPDF(docmetatest.PDFOptions{
		Pages: 3,
		Info: &docmetatest.PDFInfo{
			Title:        "Annual Summary",
			Author:       "Finance Team",
			Producer:     "docmetatest",
			CreationDate: "D:20240102030405Z",
		},
	})

	// When extracting
	rec, err := extractPDF(data)

	// Then every field is present in display order
	req.NoError(err)
	req.Equal("Annual Summary", rec.String(FieldTitle))
	req.Equal("Finance Team", rec.String(FieldAuthor))
	req.Equal(NotSpecified, rec.String(FieldSubject))
	req.Equal(NotSpecified, rec.String(FieldCreator))
	req.Equal("docmetatest", rec.String(FieldProducer))
	req.Equal("2024-01-02 03:04:05", rec.String(FieldCreationDate))
	req.Equal(NotAvailable, rec.String(FieldModificationDate))
	req.Equal(3, mustGet(t, rec, FieldPages))
	req.Equal("No", rec.String(FieldEncrypted))

	var names []string
	for _, f := range rec.Fields() {
		names = append(names, f.Name)
	}
	req.Equal([]string{
		FieldTitle, FieldAuthor, FieldSubject, FieldCreator, FieldProducer,
		FieldCreationDate, FieldModificationDate, FieldPages, FieldEncrypted,
	}, names)
}

func TestExtractPDF_NoInfoDictionary(t *testing.T) {
	req := require.New(t)
	data := docmetatest.BuildPDF(docmetatest.PDFOptions{Pages: 1})

	rec, err := extractPDF(data)

	req.NoError(err)
	for _, name := range []string{FieldTitle, FieldAuthor, FieldSubject, FieldCreator, FieldProducer, FieldCreationDate, FieldModificationDate} {
		req.Equal(NotAvailable, rec.String(name), name)
	}
	req.Equal(1, mustGet(t, rec, FieldPages))
	req.Equal("No", rec.String(FieldEncrypted))
}

func TestExtractPDF_EscapedLiteral(t *testing.T) {
	req := require.New(t)
	data := docmetatest.BuildPDF(docmetatest.PDFOptions{Info: &docmetatest.PDFInfo{Title: "Costs (draft)"}})

	rec, err := extractPDF(data)

	req.NoError(err)
	req.Equal("Costs (draft)", rec.String(FieldTitle))
}

func TestExtractPDF_OwnerPasswordOnly(t *testing.T) {
	req := require.New(t)
	plain := docmetatest.BuildPDF(docmetatest.PDFOptions{Pages: 2, Info: &docmetatest.PDFInfo{Title: "Locked down"}})
	data, err := docmetatest.EncryptPDF(plain, "", "owner-secret")
	req.NoError(err)

	rec, err := extractPDF(data)

	req.NoError(err)
	req.Equal("Yes", rec.String(FieldEncrypted))
	req.Equal(2, mustGet(t, rec, FieldPages))
}

func TestExtractPDF_UserPasswordIsReportedNotFailed(t *testing.T) {
	req := require.New(t)
	plain := docmetatest.BuildPDF(docmetatest.PDFOptions{Pages: 2})
	data, err := docmetatest.EncryptPDF(plain, "user-secret", "owner-secret")
	req.NoError(err)

	rec, err := extractPDF(data)

	req.NoError(err)
	req.Equal("Yes", rec.String(FieldEncrypted))
	_, ok := rec.Get(FieldPages)
	req.True(ok)
}

func TestExtractPDF_Malformed(t *testing.T) {
	tests := map[string][]byte{
		"header only":   []byte("%PDF-1.4\nnot really a pdf\n"),
		"binary noise":  append([]byte("%PDF-1.7\n"), make([]byte, 512)...),
		"encrypt token": []byte("%PDF-1.4\ngarbage /Encrypt 1 0 R\n"),
	}
	for name, data := range tests {
		t.Run(name, func(t *testing.T) {
			req := require.New(t)

			_, err := extractPDF(data)

			req.Error(err)
			req.Equal(KindMalformedDocument, KindOf(err))
		})
	}
}

func TestLockedPDFRecord(t *testing.T) {
	req := require.New(t)

	rec := lockedPDFRecord()

	req.Equal(9, rec.Len())
	req.Equal(NotAvailable, rec.String(FieldPages))
	req.Equal("Yes", rec.String(FieldEncrypted))
}

func TestExtractPDF_EncryptTokenInInfoIsNotEncryption(t *testing.T) {
	req := require.New(t)

	// Given an unencrypted PDF whose title mentions an /Encrypt reference
	data := docmetatest.BuildPDF(docmetatest.PDFOptions{Pages: 1, Info: &docmetatest.PDFInfo{Title: "Notes on /Encrypt 5 0 R entries"}})

	rec, err := extractPDF(data)

	// Then only the trailer decides the encryption flag
	req.NoError(err)
	req.Equal("No", rec.String(FieldEncrypted))
	req.Equal("Notes on /Encrypt 5 0 R entries", rec.String(FieldTitle))
}

func TestExtractPDF_InfoValuesAreVerbatim(t *testing.T) {
	req := require.New(t)
	data := docmetatest.BuildPDF(docmetatest.PDFOptions{Info: &docmetatest.PDFInfo{Title: "  Padded Title  ", Author: "   "}})

	rec, err := extractPDF(data)

	req.NoError(err)
	req.Equal("  Padded Title  ", rec.String(FieldTitle))
	req.Equal(NotSpecified, rec.String(FieldAuthor))
}

func TestTrailerDeclaresEncryption(t *testing.T) {
	plain := docmetatest.BuildPDF(docmetatest.PDFOptions{Pages: 1})
	encrypted, err := docmetatest.EncryptPDF(plain, "", "owner-secret")
	require.NoError(t, err)

	xrefStream := func(dict string) []byte {
		body := "%PDF-1.5\n1 0 obj\n<</Type/Catalog>>\nendobj\n"
		off := len(body)
		return []byte(fmt.Sprintf("%s7 0 obj\n%s\nstream\n\nendstream\nendobj\nstartxref\n%d\n%%%%EOF\n", body, dict, off))
	}
	table := func(trailer string) []byte {
		body := "%PDF-1.4\n1 0 obj\n<</Type/Catalog>>\nendobj\n"
		off := len(body)
		return []byte(fmt.Sprintf("%sxref\n0 1\n0000000000 65535 f \ntrailer\n%s\nstartxref\n%d\n%%%%EOF\n", body, trailer, off))
	}

	tests := []struct {
		name string
		data []byte
		want bool
	}{
		{"plain", plain, false},
		{"encrypted", encrypted, true},
		{"xref table with reference", table("<</Size 1/Root 1 0 R/Encrypt 2 0 R>>"), true},
		{"xref stream with reference", xrefStream("<</Type/XRef/Size 8/Encrypt 3 0 R>>"), true},
		{"xref stream without entry", xrefStream("<</Type/XRef/Size 8>>"), false},
		{"name inside string", table("<</Size 1/Root 1 0 R/ID[(/Encrypt 2 0 R)(x)]>>"), false},
		{"name inside nested dictionary", table("<</Size 1/Root 1 0 R/Extra<</Encrypt 2 0 R>>>>"), false},
		{"no trailer", []byte("%PDF-1.4\ngarbage /Encrypt 1 0 R\n"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, trailerDeclaresEncryption(tt.data))
		})
	}
}
