package models

import "github.com/Lllllllleong/documentmetadata/internal/docmeta"

// These structs define the JSON bodies returned by the upload function and
// the argument passed to the downstream workflow.

// ExtractResponse is the success body of the upload function.
type ExtractResponse struct {
	RequestID string         `json:"requestId"`
	FileName  string         `json:"fileName"`
	FileType  string         `json:"fileType"`
	SHA256    string         `json:"sha256"`
	Metadata  docmeta.Record `json:"metadata"`
}

// ErrorResponse is the failure body of the upload function.
type ErrorResponse struct {
	RequestID string `json:"requestId,omitempty"`
	Kind      string `json:"kind"`
	Error     string `json:"error"`
}

// WorkflowPayload is the execution argument for the post-extraction workflow.
type WorkflowPayload struct {
	DocumentID string `json:"documentId"`
	FileHash   string `json:"fileHash"`
	FileType   string `json:"fileType"`
	ReportURI  string `json:"reportUri,omitempty"`
}
