package catalog

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"slices"

	"github.com/hpungsan/cassettes/internal/config"
	"github.com/hpungsan/cassettes/internal/errors"
	"github.com/hpungsan/cassettes/internal/tape"
)

// ImportMode controls what happens to invalid lines.
type ImportMode string

const (
	ImportModeError ImportMode = "error" // any invalid line aborts, nothing is written
	ImportModeSkip  ImportMode = "skip"  // invalid lines are reported and skipped
)

// maxImportLine bounds a single JSONL line.
const maxImportLine = 1 << 20

// ImportInput contains parameters for Import.
type ImportInput struct {
	Path string     // required
	Mode ImportMode // default: error
}

// ImportOutput contains the result of Import.
type ImportOutput struct {
	Imported int           `json:"imported"`
	Skipped  int           `json:"skipped"`
	Errors   []ImportError `json:"errors,omitempty"`
}

// Aborted reports whether an error-mode import rejected the file, in which
// case nothing was written.
func (o *ImportOutput) Aborted() bool {
	return len(o.Errors) > 0 && o.Skipped == 0
}

// ImportError describes one rejected line.
type ImportError struct {
	Line    int    `json:"line"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Import reads a JSONL export and stores its records in one transaction,
// then reloads. Ids in the file are ignored; storage assigns new ones.
// Creation times are kept when present. Records are listed newest first,
// as Export writes them, so they are inserted in reverse to keep that order.
func (c *Catalog) Import(ctx context.Context, cfg *config.Config, input ImportInput) (*ImportOutput, error) {
	if input.Mode == "" {
		input.Mode = ImportModeError
	}
	if input.Mode != ImportModeError && input.Mode != ImportModeSkip {
		return nil, errors.NewValidation("mode must be one of: error, skip")
	}
	if err := ValidatePath(input.Path, PathRead, cfg, c.exportsDir); err != nil {
		return nil, err
	}

	file, err := openNoFollow(input.Path)
	if err != nil {
		if _, ok := err.(*errors.CatalogError); ok {
			return nil, err
		}
		return nil, errors.NewInternal(fmt.Errorf("failed to open import file: %w", err))
	}
	defer file.Close()

	tapes, lineErrors := parseExport(file)

	if input.Mode == ImportModeError && len(lineErrors) > 0 {
		return &ImportOutput{Errors: lineErrors}, nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if len(tapes) > 0 {
		slices.Reverse(tapes)
		if err := c.store.InsertBatch(ctx, tapes); err != nil {
			c.log.Error().Err(err).Str("path", input.Path).Msg("import failed")
			return nil, err
		}
	}
	c.log.Info().Str("path", input.Path).Int("imported", len(tapes)).Int("skipped", len(lineErrors)).Msg("catalog imported")

	if err := c.reloadAfterWrite(ctx); err != nil {
		return nil, err
	}

	return &ImportOutput{
		Imported: len(tapes),
		Skipped:  len(lineErrors),
		Errors:   lineErrors,
	}, nil
}

// parseExport reads records from r, skipping the header line.
func parseExport(r io.Reader) ([]tape.Tape, []ImportError) {
	var (
		tapes  []tape.Tape
		errs   []ImportError
		lineNo int
	)

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxImportLine)

	for scanner.Scan() {
		lineNo++
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var record tape.ExportRecord
		if err := json.Unmarshal(line, &record); err != nil {
			errs = append(errs, ImportError{
				Line:    lineNo,
				Code:    "PARSE_ERROR",
				Message: fmt.Sprintf("invalid JSON: %v", err),
			})
			continue
		}
		if record.CassettesExport {
			continue
		}

		t := record.ToTape()
		if t.Title == "" || t.Tape == "" {
			errs = append(errs, ImportError{
				Line:    lineNo,
				Code:    string(errors.ErrValidation),
				Message: "title and tape must not be empty",
			})
			continue
		}
		tapes = append(tapes, t)
	}

	if err := scanner.Err(); err != nil {
		errs = append(errs, ImportError{
			Line:    lineNo + 1,
			Code:    "READ_ERROR",
			Message: fmt.Sprintf("failed to read file: %v", err),
		})
	}

	return tapes, errs
}
