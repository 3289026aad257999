package storage

import (
	"context"
	"io"

	"github.com/mirelio/echodesk/internal/models"
)

// Store persists audio artifacts and streams them back. The locator returned
// by Upload is what gets recorded on the AudioArtifact row and handed back to
// Open later.
type Store interface {
	Upload(ctx context.Context, objectName, contentType string, r io.Reader) (locator string, err error)
	Open(ctx context.Context, locator string) (io.ReadCloser, error)
	Kind() models.StorageKind
}
