package models

import (
	"time"

	"github.com/Lllllllleong/documentmetadata/internal/docmeta"
)

// Record status values.
const (
	StatusExtracting = "EXTRACTING"
	StatusCompleted  = "COMPLETED"
	StatusFailed     = "FAILED"
)

// MetadataDocument is the Firestore record for one extracted upload.
// It is keyed by the SHA-256 of the content so re-uploads are detected.
type MetadataDocument struct {
	FileHash            string          `firestore:"fileHash,omitempty" json:"fileHash"`
	OriginalFilename    string          `firestore:"originalFilename,omitempty" json:"originalFilename"`
	SanitizedFilename   string          `firestore:"sanitizedFilename,omitempty" json:"sanitizedFilename,omitempty"`
	SourceURI           string          `firestore:"sourceUri,omitempty" json:"sourceUri,omitempty"`
	FileType            string          `firestore:"fileType,omitempty" json:"fileType,omitempty"`
	MIMEType            string          `firestore:"mimeType,omitempty" json:"mimeType,omitempty"`
	SizeBytes           int64           `firestore:"sizeBytes,omitempty" json:"sizeBytes"`
	FormattedSize       string          `firestore:"formattedSize,omitempty" json:"formattedSize,omitempty"`
	Status              string          `firestore:"status,omitempty" json:"status"`
	ErrorKind           string          `firestore:"errorKind,omitempty" json:"errorKind,omitempty"`
	ErrorDetails        string          `firestore:"errorDetails,omitempty" json:"errorDetails,omitempty"`
	Fields              []docmeta.Field `firestore:"fields,omitempty" json:"fields,omitempty"`
	WorkflowExecutionID string          `firestore:"workflowExecutionId,omitempty" json:"workflowExecutionId,omitempty"` // For traceability
	CreatedAt           time.Time       `firestore:"createdAt,omitempty" json:"createdAt"`
	CompletedAt         time.Time       `firestore:"completedAt,omitempty" json:"completedAt,omitempty"`
}
