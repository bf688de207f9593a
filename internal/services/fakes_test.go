package services

import (
	"context"
	"fmt"
	"sync"

	"github.com/Lllllllleong/documentmetadata/internal/gcp"
	"github.com/Lllllllleong/documentmetadata/internal/models"
)

type fakeObjects struct {
	objects map[string][]byte
	err     error
}

func (f *fakeObjects) ReadObject(_ context.Context, bucket, name string, limit int64) ([]byte, error) {
	if f.err != nil {
		return nil, f.err
	}
	data, ok := f.objects[bucket+"/"+name]
	if !ok {
		return nil, fmt.Errorf("gs://%s/%s: not found", bucket, name)
	}
	if limit > 0 && int64(len(data)) > limit {
		return nil, gcp.ErrObjectTooLarge
	}
	return data, nil
}

type fakeStore struct {
	mu        sync.Mutex
	docs      map[string]*models.MetadataDocument
	nextID    int
	createErr error
	updateErr error
}

func newFakeStore() *fakeStore {
	return &fakeStore{docs: map[string]*models.MetadataDocument{}}
}

func (s *fakeStore) FindByHash(_ context.Context, fileHash string) (string, string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, d := range s.docs {
		if d.FileHash == fileHash {
			return id, d.Status, nil
		}
	}
	return "", "", nil
}

func (s *fakeStore) Create(_ context.Context, doc *models.MetadataDocument) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.createErr != nil {
		return "", s.createErr
	}
	s.nextID++
	id := fmt.Sprintf("doc-%d", s.nextID)
	cp := *doc
	s.docs[id] = &cp
	return id, nil
}

func (s *fakeStore) MarkExtracting(_ context.Context, id string, doc *models.MetadataDocument) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	d := s.docs[id]
	d.Status = models.StatusExtracting
	d.OriginalFilename = doc.OriginalFilename
	d.SourceURI = doc.SourceURI
	d.SizeBytes = doc.SizeBytes
	d.ErrorKind = ""
	d.ErrorDetails = ""
	return nil
}

func (s *fakeStore) MarkCompleted(_ context.Context, id string, doc *models.MetadataDocument) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.updateErr != nil {
		return s.updateErr
	}
	d := s.docs[id]
	d.Status = models.StatusCompleted
	d.SanitizedFilename = doc.SanitizedFilename
	d.FileType = doc.FileType
	d.MIMEType = doc.MIMEType
	d.FormattedSize = doc.FormattedSize
	d.Fields = doc.Fields
	d.CompletedAt = doc.CompletedAt
	return nil
}

func (s *fakeStore) MarkFailed(_ context.Context, id, kind, details string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	d := s.docs[id]
	d.Status = models.StatusFailed
	d.ErrorKind = kind
	d.ErrorDetails = details
	return nil
}

func (s *fakeStore) RecordExecution(_ context.Context, id, executionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.docs[id].WorkflowExecutionID = executionID
	return nil
}

func (s *fakeStore) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.docs)
}

func (s *fakeStore) get(id string) models.MetadataDocument {
	s.mu.Lock()
	defer s.mu.Unlock()
	return *s.docs[id]
}

type fakeReports struct {
	mu      sync.Mutex
	reports map[string][]byte
}

func (r *fakeReports) SaveReport(_ context.Context, objectName string, data []byte) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.reports == nil {
		r.reports = map[string][]byte{}
	}
	r.reports[objectName] = data
	return "gs://reports/" + objectName, nil
}

type fakeWorkflows struct {
	payloads []any
	err      error
}

func (w *fakeWorkflows) Trigger(_ context.Context, payload any) (string, error) {
	if w.err != nil {
		return "", w.err
	}
	w.payloads = append(w.payloads, payload)
	return fmt.Sprintf("executions/exec-%d", len(w.payloads)), nil
}
