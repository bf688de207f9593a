package gcp

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"

	"github.com/Lllllllleong/documentmetadata/internal/models"
)

// NewFirestoreClient creates and returns a new Firestore client for the given project ID.
// It centralizes client creation for all services.
func NewFirestoreClient(ctx context.Context, projectID string) (*firestore.Client, error) {
	if projectID == "" {
		return nil, fmt.Errorf("projectID must be provided to create a firestore client")
	}

	client, err := firestore.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to create Firestore client: %w", err)
	}

	return client, nil
}

// MetadataStore persists extraction records in one Firestore collection.
type MetadataStore struct {
	client     *firestore.Client
	collection string
}

func NewMetadataStore(client *firestore.Client, collection string) *MetadataStore {
	return &MetadataStore{client: client, collection: collection}
}

// FindByHash returns the ID and status of an existing record for fileHash.
// The ID is empty when there is none.
func (s *MetadataStore) FindByHash(ctx context.Context, fileHash string) (string, string, error) {
	docs, err := s.client.Collection(s.collection).Where("fileHash", "==", fileHash).Limit(1).Documents(ctx).GetAll()
	if err != nil {
		return "", "", fmt.Errorf("failed to query for duplicates: %w", err)
	}
	if len(docs) == 0 {
		return "", "", nil
	}
	var existing models.MetadataDocument
	if err := docs[0].DataTo(&existing); err != nil {
		return "", "", fmt.Errorf("failed to decode metadata document %s: %w", docs[0].Ref.ID, err)
	}
	return docs[0].Ref.ID, existing.Status, nil
}

// Create adds doc to the collection and returns its generated ID.
func (s *MetadataStore) Create(ctx context.Context, doc *models.MetadataDocument) (string, error) {
	docRef, _, err := s.client.Collection(s.collection).Add(ctx, doc)
	if err != nil {
		return "", fmt.Errorf("failed to create metadata document: %w", err)
	}
	return docRef.ID, nil
}

// MarkExtracting resets a record from an earlier unfinished attempt back to
// EXTRACTING for the upload described by doc.
func (s *MetadataStore) MarkExtracting(ctx context.Context, id string, doc *models.MetadataDocument) error {
	updates := []firestore.Update{
		{Path: "status", Value: models.StatusExtracting},
		{Path: "originalFilename", Value: doc.OriginalFilename},
		{Path: "sourceUri", Value: doc.SourceURI},
		{Path: "sizeBytes", Value: doc.SizeBytes},
		{Path: "errorKind", Value: firestore.Delete},
		{Path: "errorDetails", Value: firestore.Delete},
		{Path: "completedAt", Value: firestore.Delete},
	}
	return s.update(ctx, id, updates)
}

// MarkCompleted stores the extracted fields and marks the record COMPLETED.
func (s *MetadataStore) MarkCompleted(ctx context.Context, id string, doc *models.MetadataDocument) error {
	updates := []firestore.Update{
		{Path: "status", Value: models.StatusCompleted},
		{Path: "sanitizedFilename", Value: doc.SanitizedFilename},
		{Path: "fileType", Value: doc.FileType},
		{Path: "mimeType", Value: doc.MIMEType},
		{Path: "sizeBytes", Value: doc.SizeBytes},
		{Path: "formattedSize", Value: doc.FormattedSize},
		{Path: "fields", Value: doc.Fields},
		{Path: "completedAt", Value: time.Now()},
	}
	return s.update(ctx, id, updates)
}

// MarkFailed marks the record FAILED with the error classification.
func (s *MetadataStore) MarkFailed(ctx context.Context, id, kind, details string) error {
	updates := []firestore.Update{
		{Path: "status", Value: models.StatusFailed},
		{Path: "errorKind", Value: kind},
		{Path: "errorDetails", Value: details},
		{Path: "completedAt", Value: time.Now()},
	}
	return s.update(ctx, id, updates)
}

// RecordExecution links the record to the workflow execution it started.
func (s *MetadataStore) RecordExecution(ctx context.Context, id, executionID string) error {
	return s.update(ctx, id, []firestore.Update{{Path: "workflowExecutionId", Value: executionID}})
}

func (s *MetadataStore) update(ctx context.Context, id string, updates []firestore.Update) error {
	if _, err := s.client.Collection(s.collection).Doc(id).Update(ctx, updates); err != nil {
		return fmt.Errorf("failed to update metadata document %s: %w", id, err)
	}
	return nil
}
