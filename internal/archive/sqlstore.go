package archive

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"
	"github.com/google/uuid"

	"github.com/joseph-ayodele/docextract/constants"
	"github.com/joseph-ayodele/docextract/internal/entity"
)

const tableArchivedFiles = "archived_files"

// ErrNotFound is returned by Get for an unknown id.
var ErrNotFound = errors.New("archived file not found")

// SQLStore keeps originals and their metadata in one SQL table.
type SQLStore struct {
	drv    *entsql.Driver
	logger *slog.Logger
}

func NewSQLStore(drv *entsql.Driver, logger *slog.Logger) *SQLStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &SQLStore{drv: drv, logger: logger}
}

// Migrate creates the archive table when it does not exist yet.
func (s *SQLStore) Migrate(ctx context.Context) error {
	blob := "BLOB"
	if s.drv.Dialect() == dialect.Postgres {
		blob = "BYTEA"
	}
	query, args := entsql.Dialect(s.drv.Dialect()).
		CreateTable(tableArchivedFiles).
		IfNotExists().
		Columns(
			entsql.Column("id").Type("TEXT"),
			entsql.Column("name").Type("TEXT").Attr("NOT NULL"),
			entsql.Column("content_hash").Type(blob),
			entsql.Column("file_ext").Type("TEXT"),
			entsql.Column("file_size").Type("BIGINT"),
			entsql.Column("uploaded_at").Type("TEXT").Attr("NOT NULL"),
			entsql.Column("tags").Type("TEXT"),
			entsql.Column("data").Type(blob),
		).
		PrimaryKey("id").
		Query()
	if err := s.drv.Exec(ctx, query, args, nil); err != nil {
		return fmt.Errorf("create %s: %w", tableArchivedFiles, err)
	}
	return nil
}

// Store inserts one original and returns its generated id.
func (s *SQLStore) Store(ctx context.Context, name string, data []byte, md Metadata) (string, error) {
	uploadedAt := md.UploadedAt
	if uploadedAt.IsZero() {
		uploadedAt = time.Now()
	}
	tags, err := json.Marshal(md.Tags)
	if err != nil {
		return "", fmt.Errorf("encode tags: %w", err)
	}
	sum := sha256.Sum256(data)
	id := uuid.New()

	query, args := entsql.Dialect(s.drv.Dialect()).
		Insert(tableArchivedFiles).
		Columns("id", "name", "content_hash", "file_ext", "file_size", "uploaded_at", "tags", "data").
		Values(id.String(), name, sum[:], constants.NormalizeExt(filepath.Ext(name)), len(data),
			uploadedAt.UTC().Format(time.RFC3339Nano), string(tags), data).
		Query()
	if err := s.drv.Exec(ctx, query, args, nil); err != nil {
		s.logger.Error("archive.store.error", "name", name, "error", err)
		return "", fmt.Errorf("insert archived file: %w", err)
	}
	s.logger.Info("archive.store.ok", "id", id, "name", name, "bytes", len(data))
	return id.String(), nil
}

// Get loads the metadata row and the stored bytes for id.
func (s *SQLStore) Get(ctx context.Context, id string) (*entity.ArchivedFile, []byte, error) {
	b := entsql.Dialect(s.drv.Dialect())
	query, args := b.Select("id", "name", "content_hash", "file_ext", "file_size", "uploaded_at", "tags", "data").
		From(b.Table(tableArchivedFiles)).
		Where(entsql.EQ("id", id)).
		Query()

	var rows entsql.Rows
	if err := s.drv.Query(ctx, query, args, &rows); err != nil {
		return nil, nil, fmt.Errorf("query archived file: %w", err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			s.logger.Warn("archive.rows_close_error", "error", err)
		}
	}()
	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, nil, err
		}
		return nil, nil, ErrNotFound
	}

	var (
		rawID, name, ext, uploaded, tags string
		hash, data                       []byte
		size                             int64
	)
	if err := rows.Scan(&rawID, &name, &hash, &ext, &size, &uploaded, &tags, &data); err != nil {
		return nil, nil, fmt.Errorf("scan archived file: %w", err)
	}

	parsedID, err := uuid.Parse(rawID)
	if err != nil {
		return nil, nil, fmt.Errorf("parse id: %w", err)
	}
	uploadedAt, err := time.Parse(time.RFC3339Nano, uploaded)
	if err != nil {
		return nil, nil, fmt.Errorf("parse uploaded_at: %w", err)
	}
	f := &entity.ArchivedFile{
		ID:          parsedID,
		Name:        name,
		ContentHash: hash,
		FileExt:     ext,
		FileSize:    int(size),
		UploadedAt:  uploadedAt,
	}
	if tags != "" && tags != "null" {
		if err := json.Unmarshal([]byte(tags), &f.Tags); err != nil {
			return nil, nil, fmt.Errorf("decode tags: %w", err)
		}
	}
	return f, data, nil
}
