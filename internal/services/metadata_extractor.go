package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"path"
	"time"

	"cloud.google.com/go/storage"
	executions "cloud.google.com/go/workflows/executions/apiv1"
	"golang.org/x/sync/errgroup"

	"github.com/Lllllllleong/documentmetadata/internal/config"
	"github.com/Lllllllleong/documentmetadata/internal/docmeta"
	"github.com/Lllllllleong/documentmetadata/internal/gcp"
	"github.com/Lllllllleong/documentmetadata/internal/metrics"
	"github.com/Lllllllleong/documentmetadata/internal/models"
)

// ObjectReader fetches uploaded documents.
type ObjectReader interface {
	ReadObject(ctx context.Context, bucket, name string, limit int64) ([]byte, error)
}

// RecordStore persists one metadata record per distinct content hash.
// FindByHash returns an empty ID when no record exists.
type RecordStore interface {
	FindByHash(ctx context.Context, fileHash string) (id, status string, err error)
	Create(ctx context.Context, doc *models.MetadataDocument) (string, error)
	MarkExtracting(ctx context.Context, id string, doc *models.MetadataDocument) error
	MarkCompleted(ctx context.Context, id string, doc *models.MetadataDocument) error
	MarkFailed(ctx context.Context, id, kind, details string) error
	RecordExecution(ctx context.Context, id, executionID string) error
}

// ReportWriter stores a JSON report and returns its URI.
type ReportWriter interface {
	SaveReport(ctx context.Context, objectName string, data []byte) (string, error)
}

// WorkflowTrigger starts the post-extraction workflow.
type WorkflowTrigger interface {
	Trigger(ctx context.Context, payload any) (string, error)
}

// GCSEvent is the payload of a storage object finalize event.
type GCSEvent struct {
	Bucket string `json:"bucket"`
	Name   string `json:"name"`
}

// ExtractorDeps are the collaborators of a MetadataExtractorFunction.
// Reports and Workflows may be nil to disable those steps.
type ExtractorDeps struct {
	Objects   ObjectReader
	Store     RecordStore
	Reports   ReportWriter
	Workflows WorkflowTrigger
	Metrics   *metrics.Metrics
	Logger    *slog.Logger
}

type MetadataExtractorFunction struct {
	deps     ExtractorDeps
	pipeline *docmeta.Pipeline
	config   config.Extractor
	logger   *slog.Logger
}

// NewMetadataExtractor wires the function to Cloud Storage, Firestore and
// Workflows using configuration from the environment.
func NewMetadataExtractor(ctx context.Context, m *metrics.Metrics) (*MetadataExtractorFunction, error) {
	cfg, err := config.LoadExtractor()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	firestoreClient, err := gcp.NewFirestoreClient(ctx, cfg.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("failed to create firestore client: %w", err)
	}
	storageClient, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create Storage client: %w", err)
	}

	deps := ExtractorDeps{
		Objects: gcp.NewObjectStore(storageClient),
		Store:   gcp.NewMetadataStore(firestoreClient, cfg.FirestoreCollection),
		Metrics: m,
		Logger:  slog.Default(),
	}
	if cfg.ReportBucket != "" {
		deps.Reports = gcp.NewReportBucket(storageClient, cfg.ReportBucket)
	}
	if cfg.WorkflowID != "" {
		executionsClient, err := executions.NewClient(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to create Workflows Executions client: %w", err)
		}
		deps.Workflows = gcp.NewWorkflowClient(executionsClient, cfg.ProjectID, cfg.WorkflowLocation, cfg.WorkflowID)
	}

	f := NewMetadataExtractorWith(cfg, deps)
	f.logger.Info("Metadata extractor initialized.",
		"collection", cfg.FirestoreCollection,
		"reportBucket", cfg.ReportBucket,
		"workflowId", cfg.WorkflowID)
	return f, nil
}

// NewMetadataExtractorWith builds the function from explicit collaborators.
func NewMetadataExtractorWith(cfg config.Extractor, deps ExtractorDeps) *MetadataExtractorFunction {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	pcfg := cfg.DocmetaConfig()
	pcfg.Logger = deps.Logger
	return &MetadataExtractorFunction{
		deps:     deps,
		pipeline: docmeta.New(pcfg),
		config:   cfg,
		logger:   deps.Logger,
	}
}

// Process extracts metadata from one uploaded object. Document problems are
// recorded on the Firestore record and are not returned, so the event is
// not redelivered; infrastructure failures are returned.
func (f *MetadataExtractorFunction) Process(ctx context.Context, e GCSEvent) error {
	logCtx := f.logger.With("gcsBucket", e.Bucket, "gcsObject", e.Name)
	logCtx.Info("Processing new GCS object.")
	start := time.Now()

	data, err := f.deps.Objects.ReadObject(ctx, e.Bucket, e.Name, f.pipeline.MaxUploadBytes())
	if errors.Is(err, gcp.ErrObjectTooLarge) {
		logCtx.Warn("Object exceeds upload limit. Skipping.", "limit", f.pipeline.MaxUploadBytes())
		f.deps.Metrics.ObserveExtraction("", "too_large", time.Since(start), f.pipeline.MaxUploadBytes())
		return nil
	}
	if err != nil {
		logCtx.Error("Failed to download source object", "error", err)
		return err
	}

	fileHash, err := docmeta.HashSHA256(bytes.NewReader(data), f.config.HashChunkSize)
	if err != nil {
		logCtx.Error("Failed to calculate file hash", "error", err)
		return fmt.Errorf("failed to calculate file hash: %w", err)
	}
	logCtx = logCtx.With("fileHash", fileHash)

	existingID, status, err := f.deps.Store.FindByHash(ctx, fileHash)
	if err != nil {
		logCtx.Error("Failed to check for duplicate", "error", err)
		return err
	}
	if existingID != "" && status == models.StatusCompleted {
		logCtx.Info("Duplicate file detected. Skipping.", "existingDocId", existingID)
		f.deps.Metrics.ObserveExtraction("", metrics.OutcomeDuplicate, time.Since(start), int64(len(data)))
		return nil
	}

	filename := path.Base(e.Name)
	docID, err := f.startRecord(ctx, logCtx, existingID, &models.MetadataDocument{
		FileHash:         fileHash,
		OriginalFilename: filename,
		SourceURI:        fmt.Sprintf("gs://%s/%s", e.Bucket, e.Name),
		SizeBytes:        int64(len(data)),
		Status:           models.StatusExtracting,
		CreatedAt:        time.Now(),
	})
	if err != nil {
		return err
	}
	logCtx = logCtx.With("documentId", docID)

	res, err := f.pipeline.Process(docmeta.Upload{Data: data, Filename: filename})
	if err != nil {
		return f.handleError(ctx, logCtx, docID, err, start, int64(len(data)))
	}
	f.deps.Metrics.ObserveExtraction(string(res.Format), metrics.OutcomeSuccess, time.Since(start), res.SizeBytes)

	doc := completedDocument(fileHash, filename, res)
	reportURI, err := f.persist(ctx, logCtx, docID, doc)
	if err != nil {
		return err
	}

	if err := f.triggerWorkflow(ctx, logCtx, docID, doc, reportURI); err != nil {
		return err
	}

	logCtx.Info("Metadata extraction complete.", "fileType", res.FileType, "fields", res.Record.Len())
	return nil
}

// startRecord creates the EXTRACTING record, or resets the record left by an
// earlier attempt that never completed so the retry reuses its ID.
func (f *MetadataExtractorFunction) startRecord(ctx context.Context, logCtx *slog.Logger, existingID string, doc *models.MetadataDocument) (string, error) {
	if existingID != "" {
		if err := f.deps.Store.MarkExtracting(ctx, existingID, doc); err != nil {
			logCtx.Error("Failed to reset existing Firestore document", "documentId", existingID, "error", err)
			return "", err
		}
		logCtx.Info("Retrying extraction for incomplete document.", "documentId", existingID)
		return existingID, nil
	}

	docID, err := f.deps.Store.Create(ctx, doc)
	if err != nil {
		logCtx.Error("Failed to create initial Firestore document", "error", err)
		return "", err
	}
	logCtx.Info("Created metadata document in Firestore.", "documentId", docID)
	return docID, nil
}

func completedDocument(fileHash, filename string, res *docmeta.Result) *models.MetadataDocument {
	return &models.MetadataDocument{
		FileHash:          fileHash,
		OriginalFilename:  filename,
		SanitizedFilename: res.FileName,
		FileType:          res.FileType,
		MIMEType:          res.MIMEType,
		SizeBytes:         res.SizeBytes,
		FormattedSize:     res.FormattedSize,
		Status:            models.StatusCompleted,
		Fields:            res.Record.Fields(),
		CompletedAt:       time.Now(),
	}
}

// persist writes the Firestore record and the JSON report concurrently.
func (f *MetadataExtractorFunction) persist(ctx context.Context, logCtx *slog.Logger, docID string, doc *models.MetadataDocument) (string, error) {
	var reportURI string
	eg, gctx := errgroup.WithContext(ctx)
	eg.SetLimit(2)

	eg.Go(func() error {
		return f.deps.Store.MarkCompleted(gctx, docID, doc)
	})
	if f.deps.Reports != nil {
		eg.Go(func() error {
			report, err := json.MarshalIndent(doc, "", "  ")
			if err != nil {
				return fmt.Errorf("failed to marshal report: %w", err)
			}
			uri, err := f.deps.Reports.SaveReport(gctx, doc.FileHash+".json", report)
			if err != nil {
				return err
			}
			reportURI = uri
			return nil
		})
	}

	if err := eg.Wait(); err != nil {
		logCtx.Error("Failed to persist extraction results", "error", err)
		if ferr := f.deps.Store.MarkFailed(ctx, docID, string(docmeta.KindInternalFailure), err.Error()); ferr != nil {
			logCtx.Error("CRITICAL: Failed to update Firestore status to FAILED after a persistence error.", "updateError", ferr)
		}
		return "", err
	}
	if reportURI != "" {
		logCtx.Info("Report written.", "reportUri", reportURI)
	}
	return reportURI, nil
}

func (f *MetadataExtractorFunction) triggerWorkflow(ctx context.Context, logCtx *slog.Logger, docID string, doc *models.MetadataDocument, reportURI string) error {
	if f.deps.Workflows == nil {
		return nil
	}
	logCtx.Info("Triggering workflow.")
	executionID, err := f.deps.Workflows.Trigger(ctx, models.WorkflowPayload{
		DocumentID: docID,
		FileHash:   doc.FileHash,
		FileType:   doc.FileType,
		ReportURI:  reportURI,
	})
	if err != nil {
		logCtx.Error("Failed to trigger workflow execution", "error", err)
		return err
	}
	if err := f.deps.Store.RecordExecution(ctx, docID, executionID); err != nil {
		logCtx.Warn("Failed to record workflow execution on document", "executionId", executionID, "error", err)
	}
	return nil
}

// handleError marks the record FAILED. Only internal failures are returned
// to the caller; a bad document will not get better on retry.
func (f *MetadataExtractorFunction) handleError(ctx context.Context, logCtx *slog.Logger, docID string, err error, start time.Time, size int64) error {
	kind := docmeta.KindOf(err)
	f.deps.Metrics.ObserveExtraction("", string(kind), time.Since(start), size)

	if kind == docmeta.KindInternalFailure {
		logCtx.Error("Extraction failed", "kind", kind, "error", err)
	} else {
		logCtx.Warn("Document rejected", "kind", kind, "error", err)
	}
	if uerr := f.deps.Store.MarkFailed(ctx, docID, string(kind), err.Error()); uerr != nil {
		logCtx.Error("CRITICAL: Failed to update Firestore status to FAILED after a processing error.", "updateError", uerr)
		return uerr
	}
	if kind == docmeta.KindInternalFailure {
		return err
	}
	return nil
}
