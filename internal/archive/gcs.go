package archive

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"path"
	"path/filepath"
	"time"

	"cloud.google.com/go/storage"
	"github.com/google/uuid"
	"google.golang.org/api/googleapi"
)

// GCSStore writes originals to a bucket as <prefix><id>/<name>. Metadata
// becomes object metadata; uploaded_at is always set.
type GCSStore struct {
	bucket *storage.BucketHandle
	prefix string
	logger *slog.Logger
}

func NewGCSStore(client *storage.Client, bucket, prefix string, logger *slog.Logger) *GCSStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &GCSStore{bucket: client.Bucket(bucket), prefix: prefix, logger: logger}
}

// ObjectName is the object key an id and file name are stored under.
func (s *GCSStore) ObjectName(id, name string) string {
	return s.prefix + path.Join(id, filepath.Base(name))
}

func (s *GCSStore) Store(ctx context.Context, name string, data []byte, md Metadata) (string, error) {
	id := uuid.New().String()
	objectName := s.ObjectName(id, name)

	uploadedAt := md.UploadedAt
	if uploadedAt.IsZero() {
		uploadedAt = time.Now()
	}
	meta := make(map[string]string, len(md.Tags)+2)
	for k, v := range md.Tags {
		meta[k] = v
	}
	meta["uploaded_at"] = uploadedAt.UTC().Format(time.RFC3339Nano)
	meta["original_name"] = name

	w := s.bucket.Object(objectName).If(storage.Conditions{DoesNotExist: true}).NewWriter(ctx)
	w.Metadata = meta
	w.ContentType = contentType(name, data)

	if _, err := io.Copy(w, bytes.NewReader(data)); err != nil {
		_ = w.Close()
		return "", s.writeError(objectName, err)
	}
	if err := w.Close(); err != nil {
		return "", s.writeError(objectName, err)
	}
	s.logger.Info("archive.store.ok", "id", id, "object", objectName, "bytes", len(data))
	return id, nil
}

func (s *GCSStore) writeError(objectName string, err error) error {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) && gerr.Code == http.StatusPreconditionFailed {
		return fmt.Errorf("object %s already exists: %w", objectName, err)
	}
	s.logger.Error("archive.store.error", "object", objectName, "error", err)
	return fmt.Errorf("write object %s: %w", objectName, err)
}

func contentType(name string, data []byte) string {
	if ct := mime.TypeByExtension(filepath.Ext(name)); ct != "" {
		return ct
	}
	return http.DetectContentType(data)
}
