package storage

import (
	"context"
	"io"

	gcs "cloud.google.com/go/storage"

	"github.com/mirelio/echodesk/internal/models"
)

type GCSStore struct {
	client *gcs.Client
	bucket string
}

func NewGCSStore(ctx context.Context, bucket string) (*GCSStore, error) {
	c, err := gcs.NewClient(ctx)
	if err != nil {
		return nil, err
	}
	return &GCSStore{client: c, bucket: bucket}, nil
}

func (s *GCSStore) Close() error { return s.client.Close() }

func (s *GCSStore) Kind() models.StorageKind { return models.StorageRemoteBlob }

// Upload stores the object and returns its name as the locator. Objects stay
// private; audio is always served through the API, never by direct URL.
func (s *GCSStore) Upload(ctx context.Context, objectName, contentType string, r io.Reader) (string, error) {
	obj := s.client.Bucket(s.bucket).Object(objectName)

	w := obj.NewWriter(ctx)
	w.ContentType = contentType

	if _, err := io.Copy(w, r); err != nil {
		_ = w.Close()
		return "", err
	}
	if err := w.Close(); err != nil {
		return "", err
	}

	return objectName, nil
}

func (s *GCSStore) Open(ctx context.Context, locator string) (io.ReadCloser, error) {
	return s.client.Bucket(s.bucket).Object(locator).NewReader(ctx)
}
