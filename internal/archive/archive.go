package archive

import (
	"context"
	"time"
)

// Metadata travels with every archived original.
type Metadata struct {
	UploadedAt time.Time
	Tags       map[string]string
}

// Archiver stores an original file and returns its archive id.
// Implementations must be safe for concurrent use.
type Archiver interface {
	Store(ctx context.Context, name string, data []byte, md Metadata) (string, error)
}
