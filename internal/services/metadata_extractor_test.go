package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/Lllllllleong/documentmetadata/internal/config"
	"github.com/Lllllllleong/documentmetadata/internal/docmeta"
	"github.com/Lllllllleong/documentmetadata/internal/docmeta/docmetatest"
	"github.com/Lllllllleong/documentmetadata/internal/metrics"
	"github.com/Lllllllleong/documentmetadata/internal/models"
)

type extractorFixture struct {
	fn        *MetadataExtractorFunction
	objects   *fakeObjects
	store     *fakeStore
	reports   *fakeReports
	workflows *fakeWorkflows
	metrics   *metrics.Metrics
}

func newExtractorFixture(objects map[string][]byte) *extractorFixture {
	fx := &extractorFixture{
		objects:   &fakeObjects{objects: objects},
		store:     newFakeStore(),
		reports:   &fakeReports{},
		workflows: &fakeWorkflows{},
		metrics:   metrics.New(prometheus.NewRegistry()),
	}
	cfg := config.Extractor{
		Pipeline: config.Pipeline{MaxUploadBytes: 1 << 20, HashChunkSize: 4096, LogLevel: "info"},
	}
	fx.fn = NewMetadataExtractorWith(cfg, ExtractorDeps{
		Objects:   fx.objects,
		Store:     fx.store,
		Reports:   fx.reports,
		Workflows: fx.workflows,
		Metrics:   fx.metrics,
		Logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	return fx
}

func TestMetadataExtractor_CompletesPDF(t *testing.T) {
	req := require.New(t)
	pdf := docmetatest.BuildPDF(docmetatest.PDFOptions{Pages: 2, Info: &docmetatest.PDFInfo{Title: "Data Sheet"}})
	fx := newExtractorFixture(map[string][]byte{"uploads/incoming/data sheet.pdf": pdf})

	// When a finalize event arrives for a valid PDF
	err := fx.fn.Process(context.Background(), GCSEvent{Bucket: "uploads", Name: "incoming/data sheet.pdf"})

	// Then the record is completed, a report is written and the workflow runs
	req.NoError(err)
	doc := fx.store.get("doc-1")
	req.Equal(models.StatusCompleted, doc.Status)
	req.Equal("data sheet.pdf", doc.OriginalFilename)
	req.Equal("data_sheet.pdf", doc.SanitizedFilename)
	req.Equal("gs://uploads/incoming/data sheet.pdf", doc.SourceURI)
	req.Equal("PDF", doc.FileType)
	req.Equal("executions/exec-1", doc.WorkflowExecutionID)
	req.Equal(docmeta.FieldTitle, doc.Fields[0].Name)
	req.Equal("Data Sheet", doc.Fields[0].Value)

	report, ok := fx.reports.reports[doc.FileHash+".json"]
	req.True(ok)
	var decoded models.MetadataDocument
	req.NoError(json.Unmarshal(report, &decoded))
	req.Equal(doc.FileHash, decoded.FileHash)
	req.Equal(models.StatusCompleted, decoded.Status)

	req.Len(fx.workflows.payloads, 1)
	payload := fx.workflows.payloads[0].(models.WorkflowPayload)
	req.Equal("doc-1", payload.DocumentID)
	req.Equal("gs://reports/"+doc.FileHash+".json", payload.ReportURI)

	req.Equal(1.0, testutil.ToFloat64(fx.metrics.ExtractionsTotal.WithLabelValues("pdf", metrics.OutcomeSuccess)))
}

func TestMetadataExtractor_SkipsDuplicates(t *testing.T) {
	req := require.New(t)
	docx := docmetatest.BuildDOCX(docmetatest.DOCXOptions{Paragraphs: []string{"same"}})
	fx := newExtractorFixture(map[string][]byte{
		"uploads/a.docx": docx,
		"uploads/b.docx": docx,
	})

	req.NoError(fx.fn.Process(context.Background(), GCSEvent{Bucket: "uploads", Name: "a.docx"}))
	req.NoError(fx.fn.Process(context.Background(), GCSEvent{Bucket: "uploads", Name: "b.docx"}))

	req.Len(fx.store.docs, 1)
	req.Len(fx.workflows.payloads, 1)
	req.Equal(1.0, testutil.ToFloat64(fx.metrics.ExtractionsTotal.WithLabelValues("unknown", metrics.OutcomeDuplicate)))
}

func TestMetadataExtractor_RecordsDocumentFailures(t *testing.T) {
	tests := []struct {
		name     string
		object   string
		data     []byte
		wantKind docmeta.Kind
	}{
		{"unsupported", "notes.txt", []byte("plain text"), docmeta.KindUnsupportedFormat},
		{"mismatch", "fake.docx", docmetatest.BuildPDF(docmetatest.PDFOptions{}), docmeta.KindContentMismatch},
		{"malformed", "broken.pdf", []byte("%PDF-1.4\nnot really a pdf\n"), docmeta.KindMalformedDocument},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := require.New(t)
			fx := newExtractorFixture(map[string][]byte{"uploads/" + tt.object: tt.data})

			err := fx.fn.Process(context.Background(), GCSEvent{Bucket: "uploads", Name: tt.object})

			// Then the event is acknowledged and the record explains why
			req.NoError(err)
			doc := fx.store.get("doc-1")
			req.Equal(models.StatusFailed, doc.Status)
			req.Equal(string(tt.wantKind), doc.ErrorKind)
			req.NotEmpty(doc.ErrorDetails)
			req.Empty(fx.reports.reports)
			req.Empty(fx.workflows.payloads)
		})
	}
}

func TestMetadataExtractor_TooLargeIsSkipped(t *testing.T) {
	req := require.New(t)
	fx := newExtractorFixture(map[string][]byte{"uploads/huge.pdf": make([]byte, 2<<20)})

	err := fx.fn.Process(context.Background(), GCSEvent{Bucket: "uploads", Name: "huge.pdf"})

	req.NoError(err)
	req.Empty(fx.store.docs)
}

func TestMetadataExtractor_InfrastructureErrorsAreReturned(t *testing.T) {
	req := require.New(t)
	fx := newExtractorFixture(nil)
	fx.objects.err = errors.New("storage unavailable")

	err := fx.fn.Process(context.Background(), GCSEvent{Bucket: "uploads", Name: "a.pdf"})

	req.Error(err)
}

func TestMetadataExtractor_PersistFailureMarksRecordFailed(t *testing.T) {
	req := require.New(t)
	fx := newExtractorFixture(map[string][]byte{"uploads/a.pdf": docmetatest.BuildPDF(docmetatest.PDFOptions{})})
	fx.store.updateErr = errors.New("firestore unavailable")

	err := fx.fn.Process(context.Background(), GCSEvent{Bucket: "uploads", Name: "a.pdf"})

	req.Error(err)
	doc := fx.store.get("doc-1")
	req.Equal(models.StatusFailed, doc.Status)
	req.Equal(string(docmeta.KindInternalFailure), doc.ErrorKind)
	req.Empty(fx.workflows.payloads)
}

func TestMetadataExtractor_WithoutOptionalSteps(t *testing.T) {
	req := require.New(t)
	fx := newExtractorFixture(map[string][]byte{"uploads/a.pdf": docmetatest.BuildPDF(docmetatest.PDFOptions{})})
	fx.fn.deps.Reports = nil
	fx.fn.deps.Workflows = nil

	req.NoError(fx.fn.Process(context.Background(), GCSEvent{Bucket: "uploads", Name: "a.pdf"}))

	doc := fx.store.get("doc-1")
	req.Equal(models.StatusCompleted, doc.Status)
	req.Empty(doc.WorkflowExecutionID)
}

func TestMetadataExtractor_RedeliveryAfterPersistFailureCompletes(t *testing.T) {
	req := require.New(t)
	fx := newExtractorFixture(map[string][]byte{"uploads/a.pdf": docmetatest.BuildPDF(docmetatest.PDFOptions{Pages: 1})})
	event := GCSEvent{Bucket: "uploads", Name: "a.pdf"}

	// Given a first attempt that fails while persisting
	fx.store.updateErr = errors.New("firestore unavailable")
	req.Error(fx.fn.Process(context.Background(), event))
	req.Equal(models.StatusFailed, fx.store.get("doc-1").Status)

	// When the event is redelivered after the store recovers
	fx.store.updateErr = nil
	err := fx.fn.Process(context.Background(), event)

	// Then the same record is reused and ends COMPLETED
	req.NoError(err)
	req.Equal(1, fx.store.count())
	doc := fx.store.get("doc-1")
	req.Equal(models.StatusCompleted, doc.Status)
	req.Empty(doc.ErrorKind)
	req.Empty(doc.ErrorDetails)
	req.Len(fx.workflows.payloads, 1)
	req.Equal(0.0, testutil.ToFloat64(fx.metrics.ExtractionsTotal.WithLabelValues("unknown", metrics.OutcomeDuplicate)))
}

func TestMetadataExtractor_ResumesRecordLeftExtracting(t *testing.T) {
	req := require.New(t)
	pdf := docmetatest.BuildPDF(docmetatest.PDFOptions{})
	fx := newExtractorFixture(map[string][]byte{"uploads/b.pdf": pdf})
	hash, err := docmeta.HashSHA256(bytes.NewReader(pdf), 0)
	req.NoError(err)
	id, err := fx.store.Create(context.Background(), &models.MetadataDocument{FileHash: hash, OriginalFilename: "a.pdf", Status: models.StatusExtracting})
	req.NoError(err)

	err = fx.fn.Process(context.Background(), GCSEvent{Bucket: "uploads", Name: "b.pdf"})

	req.NoError(err)
	req.Equal(1, fx.store.count())
	doc := fx.store.get(id)
	req.Equal(models.StatusCompleted, doc.Status)
	req.Equal("b.pdf", doc.OriginalFilename)
	req.Equal("gs://uploads/b.pdf", doc.SourceURI)
}
