package catalog

import (
	"bufio"
	"context"
	"crypto/rand"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/hpungsan/cassettes/internal/config"
	"github.com/hpungsan/cassettes/internal/errors"
	"github.com/hpungsan/cassettes/internal/tape"
)

// ExportSchemaVersion is written in every export header.
const ExportSchemaVersion = "1.0"

// ExportInput contains parameters for Export.
type ExportInput struct {
	Path string // optional, default: <exports dir>/tapes-<timestamp>.jsonl
}

// ExportOutput contains the result of Export.
type ExportOutput struct {
	Path       string `json:"path"`
	ExportID   string `json:"export_id"`
	Count      int    `json:"count"`
	ExportedAt int64  `json:"exported_at"`
}

// ExportHeader is the first line of a JSONL export file.
type ExportHeader struct {
	CassettesExport bool   `json:"_cassettes_export"`
	SchemaVersion   string `json:"schema_version"`
	ExportID        string `json:"export_id"`
	ExportedAt      int64  `json:"exported_at"`
}

// Export writes the loaded records to a JSONL file: one header line, then
// one record per line, most recent first. The file is written to a temp
// name and renamed into place, so an existing file is never left half written.
func (c *Catalog) Export(ctx context.Context, cfg *config.Config, input ExportInput) (*ExportOutput, error) {
	now := time.Now()
	exportID := newULID(now)

	path := input.Path
	if path == "" {
		path = filepath.Join(c.exportsDir, fmt.Sprintf("tapes-%s.jsonl", now.Format("2006-01-02T150405")))
	}
	if err := ValidatePath(path, PathWrite, cfg, c.exportsDir); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, errors.NewInternal(fmt.Errorf("failed to create export directory: %w", err))
	}

	records := c.snapshot()

	tempPath := path + "." + exportID + ".tmp"
	file, err := createNoFollow(tempPath)
	if err != nil {
		return nil, errors.NewInternal(fmt.Errorf("failed to create export file: %w", err))
	}

	done := false
	defer func() {
		if file != nil {
			file.Close()
		}
		if !done {
			os.Remove(tempPath)
		}
	}()

	w := bufio.NewWriter(file)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)

	header := ExportHeader{
		CassettesExport: true,
		SchemaVersion:   ExportSchemaVersion,
		ExportID:        exportID,
		ExportedAt:      now.Unix(),
	}
	if err := enc.Encode(header); err != nil {
		return nil, errors.NewInternal(err)
	}

	for _, t := range records {
		if ctx.Err() != nil {
			return nil, errors.NewCancelled("export")
		}
		if err := enc.Encode(tape.TapeToExportRecord(t)); err != nil {
			return nil, errors.NewInternal(err)
		}
	}

	if err := w.Flush(); err != nil {
		return nil, errors.NewInternal(err)
	}
	if err := file.Sync(); err != nil {
		return nil, errors.NewInternal(err)
	}
	// Windows cannot rename an open file.
	if err := file.Close(); err != nil {
		return nil, errors.NewInternal(fmt.Errorf("failed to close export file: %w", err))
	}
	file = nil

	// os.Rename would follow a symlink planted after validation.
	if isSymlink(path) {
		return nil, errors.NewValidation("export path must not be a symlink")
	}
	if err := os.Rename(tempPath, path); err != nil {
		if runtime.GOOS == "windows" {
			if _, statErr := os.Stat(path); statErr == nil {
				return nil, errors.NewValidation("export destination already exists; choose a new path")
			}
		}
		return nil, errors.NewInternal(fmt.Errorf("failed to finalize export: %w", err))
	}

	done = true
	c.log.Info().Str("path", path).Int("count", len(records)).Str("export_id", exportID).Msg("catalog exported")

	return &ExportOutput{
		Path:       path,
		ExportID:   exportID,
		Count:      len(records),
		ExportedAt: now.Unix(),
	}, nil
}

// newULID returns a lexically sortable id stamped with t.
func newULID(t time.Time) string {
	return ulid.MustNew(ulid.Timestamp(t), ulid.Monotonic(rand.Reader, 0)).String()
}
