package gcp

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"cloud.google.com/go/storage"
	"google.golang.org/api/googleapi"
)

// ErrObjectTooLarge is returned when an object exceeds the read limit.
var ErrObjectTooLarge = errors.New("object exceeds size limit")

// SaveToGCSAtomically writes content to a GCS object only if it doesn't already exist.
// An existing object is not an error: reports are keyed by content hash.
func SaveToGCSAtomically(ctx context.Context, bucket *storage.BucketHandle, objectName string, content []byte, contentType string) error {
	writer := bucket.Object(objectName).If(storage.Conditions{DoesNotExist: true}).NewWriter(ctx)
	writer.ContentType = contentType

	if _, err := io.Copy(writer, bytes.NewReader(content)); err != nil {
		_ = writer.Close()
		if isPreconditionFailed(err) {
			slog.Info("Object already exists, skipping write.", "gcsObject", objectName)
			return nil
		}
		return fmt.Errorf("failed to write to GCS: %w", err)
	}

	if err := writer.Close(); err != nil {
		if isPreconditionFailed(err) {
			slog.Info("Object already exists, skipping write.", "gcsObject", objectName)
			return nil
		}
		return fmt.Errorf("failed to finalize GCS write: %w", err)
	}
	return nil
}

func isPreconditionFailed(err error) bool {
	var gerr *googleapi.Error
	return errors.As(err, &gerr) && gerr.Code == http.StatusPreconditionFailed
}

// ObjectStore reads uploaded documents from Cloud Storage.
type ObjectStore struct {
	client *storage.Client
}

func NewObjectStore(client *storage.Client) *ObjectStore {
	return &ObjectStore{client: client}
}

// ReadObject returns the full content of gs://bucket/name. Objects larger
// than limit bytes are rejected with ErrObjectTooLarge without reading them.
func (s *ObjectStore) ReadObject(ctx context.Context, bucket, name string, limit int64) ([]byte, error) {
	reader, err := s.client.Bucket(bucket).Object(name).NewReader(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get GCS object reader for gs://%s/%s: %w", bucket, name, err)
	}
	defer reader.Close()

	if limit > 0 && reader.Attrs.Size > limit {
		return nil, fmt.Errorf("gs://%s/%s is %d bytes: %w", bucket, name, reader.Attrs.Size, ErrObjectTooLarge)
	}
	return readLimited(reader, limit)
}

// readLimited reads r to the end, failing once more than limit bytes arrive.
// A limit of zero or less reads everything.
func readLimited(r io.Reader, limit int64) ([]byte, error) {
	if limit <= 0 {
		return io.ReadAll(r)
	}
	data, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read object: %w", err)
	}
	if int64(len(data)) > limit {
		return nil, ErrObjectTooLarge
	}
	return data, nil
}

// ReportBucket stores JSON extraction reports.
type ReportBucket struct {
	name   string
	bucket *storage.BucketHandle
}

func NewReportBucket(client *storage.Client, name string) *ReportBucket {
	return &ReportBucket{name: name, bucket: client.Bucket(name)}
}

// SaveReport writes data as objectName unless it already exists and
// returns the object URI.
func (b *ReportBucket) SaveReport(ctx context.Context, objectName string, data []byte) (string, error) {
	if err := SaveToGCSAtomically(ctx, b.bucket, objectName, data, "application/json"); err != nil {
		return "", err
	}
	return fmt.Sprintf("gs://%s/%s", b.name, objectName), nil
}
