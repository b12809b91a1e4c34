package entity

import (
	"time"

	"github.com/google/uuid"
)

// ArchivedFile is the metadata row kept for every original file written to the archive.
type ArchivedFile struct {
	ID          uuid.UUID         `json:"id"`
	Name        string            `json:"name"`
	ContentHash []byte            `json:"content_hash"`
	FileExt     string            `json:"file_ext"`
	FileSize    int               `json:"file_size"`
	UploadedAt  time.Time         `json:"uploaded_at"`
	Tags        map[string]string `json:"tags,omitempty"`
}
