// Package docmeta validates uploaded office documents and extracts their
// descriptive metadata.
//
// Supported formats:
//   - .docx: core properties (docProps/core.xml) and body statistics
//     (word/document.xml), read with archive/zip and encoding/xml
//   - .pdf: document information dictionary, page count and encryption
//     flag, read with pdfcpu
//
// Every upload runs through the same linear stages:
//
//	received → validated → hashed → extracted → assembled → delivered
//
// A failure at any stage stops the run and is returned as an *Error whose
// Kind tells the caller how to report it.
//
// Usage:
//
//	pipe := docmeta.New(docmeta.Config{})
//	res, err := pipe.Process(docmeta.Upload{Data: data, Filename: "report.pdf"})
//	if err != nil {
//		kind := docmeta.KindOf(err)
//	}
//	fmt.Println(res.Record.String(docmeta.FieldPages))
package docmeta

import (
	"bytes"
	"fmt"
	"log/slog"
)

// Upload is one document handed to the pipeline. Data is only read.
type Upload struct {
	Data     []byte
	Filename string
	// Size is the declared size. Zero means len(Data).
	Size int64
}

// Result is a successfully extracted document.
type Result struct {
	Record        Record `json:"metadata" yaml:"metadata"`
	Format        Format `json:"format" yaml:"format"`
	FileName      string `json:"file_name" yaml:"file_name"`
	FileType      string `json:"file_type" yaml:"file_type"`
	SizeBytes     int64  `json:"size_bytes" yaml:"size_bytes"`
	FormattedSize string `json:"formatted_size" yaml:"formatted_size"`
	SHA256        string `json:"sha256" yaml:"sha256"`
	MIMEType      string `json:"mime_type" yaml:"mime_type"`
}

// Pipeline runs uploads through sniffing, hashing, extraction and assembly.
// It holds no per-upload state and may be used from several goroutines.
type Pipeline struct {
	cfg    Config
	logger *slog.Logger
}

// New creates a Pipeline with the given configuration.
func New(cfg Config) *Pipeline {
	cfg.defaults()
	return &Pipeline{
		cfg:    cfg,
		logger: cfg.Logger,
	}
}

// MaxUploadBytes is the configured input limit callers must enforce.
func (p *Pipeline) MaxUploadBytes() int64 { return p.cfg.MaxUploadBytes }

// Process validates up and extracts its metadata. On failure the error is
// always an *Error and the Result is nil.
func (p *Pipeline) Process(up Upload) (res *Result, err error) {
	stage := StageReceived
	defer func() {
		if r := recover(); r != nil {
			res, err = nil, &Error{Kind: KindInternalFailure, Stage: stage, Msg: "unexpected panic", Err: fmt.Errorf("%v", r)}
		}
		if err != nil {
			p.logger.Debug("pipeline failed", "file", up.Filename, "stage", stage, "kind", KindOf(err), "error", err)
		}
	}()

	size := int64(len(up.Data))
	if up.Size != 0 && up.Size != size {
		p.logger.Warn("declared size does not match content", "file", up.Filename, "declared", up.Size, "actual", size)
	}
	r := bytes.NewReader(up.Data)

	format, err := Sniff(r, up.Filename)
	if err != nil {
		return nil, classify(stage, err)
	}
	stage = StageValidated
	p.logger.Debug("content validated", "file", up.Filename, "format", format)

	digest, err := HashSHA256(r, p.cfg.HashChunkSize)
	if err != nil {
		return nil, classify(stage, err)
	}
	stage = StageHashed

	var rec Record
	switch format {
	case FormatDOCX:
		rec, err = extractDOCX(up.Data)
	case FormatPDF:
		rec, err = extractPDF(up.Data)
	default:
		err = newError(KindUnsupportedFormat, fmt.Sprintf("no extractor for %s", format), nil)
	}
	if err != nil {
		return nil, classify(stage, err)
	}
	stage = StageExtracted

	name := displayName(up.Filename, format)
	rec = assemble(rec, name, format, size, digest)
	stage = StageAssembled

	res = &Result{
		Record:        rec,
		Format:        format,
		FileName:      name,
		FileType:      format.Label(),
		SizeBytes:     size,
		FormattedSize: FormatSize(size),
		SHA256:        digest,
		MIMEType:      DetectMIME(up.Data),
	}
	stage = StageDelivered
	p.logger.Debug("metadata extracted", "file", name, "format", format, "sha256", digest, "fields", rec.Len())
	return res, nil
}
