package ingest

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joseph-ayodele/docextract/internal/entity"
)

// CollectDirectory walks root and reads every matching file into a batch.
// Unreadable or oversized files are reported in the FileError slice and
// counted as failed; the walk continues past them. Files come back in
// lexical path order.
func CollectDirectory(ctx context.Context, root string, opts Options, logger *slog.Logger) ([]entity.BatchFile, DirStats, []FileError, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if strings.TrimSpace(root) == "" {
		return nil, DirStats{}, nil, errors.New("root path is required")
	}
	start := time.Now()

	var (
		files    []entity.BatchFile
		failures []FileError
		stats    DirStats
	)
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		stats.Scanned++
		if walkErr != nil {
			failures = append(failures, FileError{Path: path, Err: walkErr})
			stats.Failed++
			return nil
		}
		if path != root && opts.SkipHidden && IsHidden(path) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() || !opts.allowed(path) {
			return nil
		}
		stats.Matched++

		data, err := readFile(path, d, opts.MaxFileSize)
		if err != nil {
			logger.Warn("ingest.file.failed", "path", path, "error", err)
			failures = append(failures, FileError{Path: path, Err: err})
			stats.Failed++
			return nil
		}
		rel, relErr := filepath.Rel(root, path)
		if relErr != nil {
			rel = filepath.Base(path)
		}
		files = append(files, entity.BatchFile{
			FileName: filepath.ToSlash(rel),
			Data:     data,
			Type:     HintFromPath(path),
		})
		return nil
	})
	if err != nil {
		return files, stats, failures, fmt.Errorf("walk: %w", err)
	}

	logger.Info("ingest.directory.done",
		"root", root,
		"scanned", stats.Scanned,
		"matched", stats.Matched,
		"failed", stats.Failed,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return files, stats, failures, nil
}

// ReadFile loads a single path as a batch file named by its base name.
func ReadFile(path string, opts Options) (entity.BatchFile, error) {
	info, err := os.Stat(path)
	if err != nil {
		return entity.BatchFile{}, err
	}
	if info.IsDir() {
		return entity.BatchFile{}, fmt.Errorf("%s is a directory", path)
	}
	if !opts.allowed(path) {
		return entity.BatchFile{}, fmt.Errorf("unsupported or missing extension: %s", path)
	}
	data, err := readFile(path, fs.FileInfoToDirEntry(info), opts.MaxFileSize)
	if err != nil {
		return entity.BatchFile{}, err
	}
	return entity.BatchFile{FileName: filepath.Base(path), Data: data, Type: HintFromPath(path)}, nil
}

func readFile(path string, d fs.DirEntry, maxSize int64) ([]byte, error) {
	if maxSize > 0 {
		info, err := d.Info()
		if err != nil {
			return nil, err
		}
		if info.Size() > maxSize {
			return nil, fmt.Errorf("file is %d bytes, limit is %d", info.Size(), maxSize)
		}
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, errors.New("file is empty")
	}
	return data, nil
}
