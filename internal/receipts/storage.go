package receipts

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"time"

	"cloud.google.com/go/storage"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/finledger/finledger/internal/domain"
)

// Archive stores original receipt images in a GCS bucket so scans can be
// audited later. Objects are keyed by owner and a fresh id, never overwritten.
type Archive struct {
	client *storage.Client
	bucket string
	log    zerolog.Logger
}

// NewArchive creates a receipt archive backed by the given bucket. It assumes
// Application Default Credentials are configured.
func NewArchive(ctx context.Context, bucket string, log zerolog.Logger) (*Archive, error) {
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("create storage client: %w", err)
	}
	return &Archive{client: client, bucket: bucket, log: log}, nil
}

// Store uploads the image bytes and returns the object's gs:// URI.
func (a *Archive) Store(ctx context.Context, ownerID uuid.UUID, imageBytes []byte, mimeType string) (string, error) {
	objectName := fmt.Sprintf("receipts/%s/%s", ownerID, uuid.NewString())

	ctx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	w := a.client.Bucket(a.bucket).Object(objectName).NewWriter(ctx)
	w.ContentType = mimeType

	if _, err := io.Copy(w, bytes.NewReader(imageBytes)); err != nil {
		_ = w.Close()
		return "", fmt.Errorf("%w: copy receipt to GCS writer: %v", domain.ErrUpstream, err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("%w: finalize receipt upload: %v", domain.ErrUpstream, err)
	}

	uri := fmt.Sprintf("gs://%s/%s", a.bucket, objectName)
	a.log.Info().Str("uri", uri).Msg("Receipt archived")
	return uri, nil
}

// Close releases the underlying storage client.
func (a *Archive) Close() error {
	return a.client.Close()
}
