package services

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/Lllllllleong/documentmetadata/internal/config"
	"github.com/Lllllllleong/documentmetadata/internal/docmeta"
	"github.com/Lllllllleong/documentmetadata/internal/metrics"
	"github.com/Lllllllleong/documentmetadata/internal/models"
)

const (
	uploadFormField = "file"
	// multipartOverhead is allowed on top of the file limit for boundaries
	// and part headers.
	multipartOverhead = 64 << 10
	maxFormMemory     = 1 << 20

	msgNoFile   = "No file selected"
	msgTooLarge = "File is too large. Maximum size is %s."
	msgInternal = "Internal error while processing the file."
)

// UploadHandler accepts a multipart document upload and responds with its
// extracted metadata as JSON.
type UploadHandler struct {
	pipeline *docmeta.Pipeline
	metrics  *metrics.Metrics
	logger   *slog.Logger
}

func NewUploadHandler(cfg config.Upload, m *metrics.Metrics, logger *slog.Logger) *UploadHandler {
	if logger == nil {
		logger = slog.Default()
	}
	pcfg := cfg.DocmetaConfig()
	pcfg.Logger = logger
	return &UploadHandler{
		pipeline: docmeta.New(pcfg),
		metrics:  m,
		logger:   logger,
	}
}

func (h *UploadHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	requestID := uuid.NewString()
	w.Header().Set("X-Request-ID", requestID)
	logCtx := h.logger.With("requestId", requestID)

	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		h.writeError(w, http.StatusMethodNotAllowed, requestID, "method_not_allowed", "Only POST is supported.")
		return
	}

	limit := h.pipeline.MaxUploadBytes()
	r.Body = http.MaxBytesReader(w, r.Body, limit+multipartOverhead)

	if err := r.ParseMultipartForm(maxFormMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			logCtx.Warn("Upload rejected: request body too large", "limit", limit)
			h.writeError(w, http.StatusRequestEntityTooLarge, requestID, "too_large", fmt.Sprintf(msgTooLarge, docmeta.FormatSize(limit)))
			return
		}
		logCtx.Warn("Could not parse multipart form", "error", err)
		h.writeError(w, http.StatusBadRequest, requestID, "bad_request", msgNoFile)
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	file, header, err := r.FormFile(uploadFormField)
	if err != nil || header.Filename == "" {
		h.writeError(w, http.StatusBadRequest, requestID, "bad_request", msgNoFile)
		return
	}
	defer file.Close()
	logCtx = logCtx.With("filename", header.Filename)

	data, err := io.ReadAll(io.LimitReader(file, limit+1))
	if err != nil {
		logCtx.Error("Failed to read uploaded file", "error", err)
		h.writeError(w, http.StatusInternalServerError, requestID, string(docmeta.KindInternalFailure), msgInternal)
		return
	}
	if int64(len(data)) > limit {
		logCtx.Warn("Upload rejected: file too large", "limit", limit)
		h.writeError(w, http.StatusRequestEntityTooLarge, requestID, "too_large", fmt.Sprintf(msgTooLarge, docmeta.FormatSize(limit)))
		return
	}

	start := time.Now()
	res, err := h.pipeline.Process(docmeta.Upload{Data: data, Filename: header.Filename, Size: header.Size})
	if err != nil {
		kind := docmeta.KindOf(err)
		h.metrics.ObserveExtraction("", string(kind), time.Since(start), int64(len(data)))
		status, msg := statusForKind(kind), err.Error()
		if kind == docmeta.KindInternalFailure {
			logCtx.Error("Extraction failed", "error", err)
			msg = msgInternal
		} else {
			logCtx.Info("Document rejected", "kind", kind, "error", err)
		}
		h.writeError(w, status, requestID, string(kind), msg)
		return
	}
	h.metrics.ObserveExtraction(string(res.Format), metrics.OutcomeSuccess, time.Since(start), res.SizeBytes)
	logCtx.Info("Metadata extracted.", "fileType", res.FileType, "sha256", res.SHA256)

	h.writeJSON(w, http.StatusOK, models.ExtractResponse{
		RequestID: requestID,
		FileName:  res.FileName,
		FileType:  res.FileType,
		SHA256:    res.SHA256,
		Metadata:  res.Record,
	})
}

func statusForKind(kind docmeta.Kind) int {
	switch kind {
	case docmeta.KindUnsupportedFormat:
		return http.StatusUnsupportedMediaType
	case docmeta.KindContentMismatch, docmeta.KindMalformedDocument:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func (h *UploadHandler) writeError(w http.ResponseWriter, status int, requestID, kind, msg string) {
	h.writeJSON(w, status, models.ErrorResponse{RequestID: requestID, Kind: kind, Error: msg})
}

func (h *UploadHandler) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		h.logger.Error("Failed to write response", "error", err)
	}
}
