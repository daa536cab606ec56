package catalog

import (
	"bufio"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/hpungsan/cassettes/internal/config"
	"github.com/hpungsan/cassettes/internal/errors"
	"github.com/hpungsan/cassettes/internal/tape"
)

func TestExport_DefaultPath(t *testing.T) {
	c, database := newTestCatalog(t)
	ctx := t.Context()
	require.NoError(t, c.Add(ctx, "Alien", "VHS-001"))
	require.NoError(t, c.Add(ctx, "Matrix", "VHS-002"))

	out, err := c.Export(ctx, config.DefaultConfig(), ExportInput{})
	require.NoError(t, err)
	require.Equal(t, 2, out.Count)
	require.NotEmpty(t, out.ExportID)
	require.Equal(t, ExportsDir(database.Path()), filepath.Dir(out.Path))
	require.True(t, strings.HasPrefix(filepath.Base(out.Path), "tapes-"))

	f, err := os.Open(out.Path)
	require.NoError(t, err)
	defer f.Close()

	var lines []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	require.NoError(t, scanner.Err())
	require.Len(t, lines, 3)

	var header ExportHeader
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &header))
	require.True(t, header.CassettesExport)
	require.Equal(t, ExportSchemaVersion, header.SchemaVersion)
	require.Equal(t, out.ExportID, header.ExportID)

	var first tape.ExportRecord
	require.NoError(t, json.Unmarshal([]byte(lines[1]), &first))
	require.Equal(t, "Matrix", first.Title)
	require.Equal(t, "VHS-002", first.Tape)
	require.False(t, first.CassettesExport)

	// No temp files left behind
	entries, err := os.ReadDir(filepath.Dir(out.Path))
	require.NoError(t, err)
	require.Len(t, entries, 1)
}

func TestExport_RejectsPathOutsideAllowedDirs(t *testing.T) {
	c, _ := newTestCatalog(t)

	_, err := c.Export(t.Context(), config.DefaultConfig(), ExportInput{
		Path: filepath.Join(t.TempDir(), "backup.jsonl"),
	})
	require.True(t, errors.Is(err, errors.ErrValidation), "got %v", err)
}

func TestExport_AllowedPath(t *testing.T) {
	c, _ := newTestCatalog(t)
	require.NoError(t, c.Add(t.Context(), "Alien", "VHS-001"))

	dir := t.TempDir()
	cfg := config.DefaultConfig()
	cfg.AllowedPaths = []string{dir}

	out, err := c.Export(t.Context(), cfg, ExportInput{Path: filepath.Join(dir, "backup.jsonl")})
	require.NoError(t, err)
	require.Equal(t, 1, out.Count)
}

func TestExport_Cancelled(t *testing.T) {
	c, _ := newTestCatalog(t)
	require.NoError(t, c.Add(t.Context(), "Alien", "VHS-001"))

	ctx, cancel := context.WithCancel(t.Context())
	cancel()

	_, err := c.Export(ctx, config.DefaultConfig(), ExportInput{})
	require.True(t, errors.Is(err, errors.ErrCancelled), "got %v", err)
}

func TestExportImport_RoundTrip(t *testing.T) {
	src, _ := newTestCatalog(t)
	ctx := t.Context()
	require.NoError(t, src.Add(ctx, "Alien", "VHS-001"))
	require.NoError(t, src.Add(ctx, "Matrix", "VHS-002"))

	dir := t.TempDir()
	cfg := config.DefaultConfig()
	cfg.AllowedPaths = []string{dir}

	out, err := src.Export(ctx, cfg, ExportInput{Path: filepath.Join(dir, "backup.jsonl")})
	require.NoError(t, err)

	dst, _ := newTestCatalog(t)
	res, err := dst.Import(ctx, cfg, ImportInput{Path: out.Path})
	require.NoError(t, err)
	require.Equal(t, 2, res.Imported)
	require.Empty(t, res.Errors)

	got := dst.Records()
	want := src.Records()
	require.Equal(t, titles(want), titles(got))
	for i := range want {
		require.True(t, want[i].CreatedAt.Equal(got[i].CreatedAt))
	}
}

func writeImportFile(t *testing.T, dir string, lines ...string) string {
	t.Helper()
	path := filepath.Join(dir, "import.jsonl")
	require.NoError(t, os.WriteFile(path, []byte(strings.Join(lines, "\n")+"\n"), 0600))
	return path
}

func TestImport_ModeError(t *testing.T) {
	c, _ := newTestCatalog(t)
	dir := t.TempDir()
	cfg := &config.Config{AllowedPaths: []string{dir}}

	path := writeImportFile(t, dir,
		`{"_cassettes_export":true,"schema_version":"1.0"}`,
		`{"title":"Alien","tape":"VHS-001","created_at":"2004-07-01T18:30:00Z"}`,
		`{"title":"","tape":"VHS-002","created_at":""}`,
		`not json`,
	)

	res, err := c.Import(t.Context(), cfg, ImportInput{Path: path})
	require.NoError(t, err)
	require.Equal(t, 0, res.Imported)
	require.Len(t, res.Errors, 2)
	require.Equal(t, 3, res.Errors[0].Line)
	require.Equal(t, "VALIDATION", res.Errors[0].Code)
	require.Equal(t, "PARSE_ERROR", res.Errors[1].Code)
	require.True(t, res.Aborted())
	require.Equal(t, 0, c.Count(), "nothing written in error mode")
}

func TestImport_ModeSkip(t *testing.T) {
	c, _ := newTestCatalog(t)
	dir := t.TempDir()
	cfg := &config.Config{AllowedPaths: []string{dir}}

	path := writeImportFile(t, dir,
		`{"_cassettes_export":true,"schema_version":"1.0"}`,
		`{"id":77,"title":"Alien","tape":"VHS-001","created_at":"2004-07-01T18:30:00Z"}`,
		`{"title":"Matrix","tape":"  ","created_at":""}`,
		`{"title":"Brazil","tape":"K7-12","created_at":"garbage"}`,
	)

	res, err := c.Import(t.Context(), cfg, ImportInput{Path: path, Mode: ImportModeSkip})
	require.NoError(t, err)
	require.Equal(t, 2, res.Imported)
	require.Equal(t, 1, res.Skipped)
	require.False(t, res.Aborted())

	require.Equal(t, []string{"Alien", "Brazil"}, titles(c.Records()))

	alien := c.Records()[0]
	require.NotEqual(t, int64(77), alien.ID, "ids are reassigned")
	require.True(t, alien.CreatedAt.Equal(time.Date(2004, 7, 1, 18, 30, 0, 0, time.UTC)))

	brazil := c.Records()[1]
	require.False(t, brazil.CreatedAt.IsZero(), "bad timestamp falls back to storage default")
}

func TestImport_InvalidMode(t *testing.T) {
	c, _ := newTestCatalog(t)

	_, err := c.Import(t.Context(), nil, ImportInput{Path: "x.jsonl", Mode: "replace"})
	require.True(t, errors.Is(err, errors.ErrValidation))
}

func TestImport_FileNotFound(t *testing.T) {
	c, _ := newTestCatalog(t)
	dir := t.TempDir()

	_, err := c.Import(t.Context(), &config.Config{AllowedPaths: []string{dir}}, ImportInput{
		Path: filepath.Join(dir, "missing.jsonl"),
	})
	require.True(t, errors.Is(err, errors.ErrFileNotFound), "got %v", err)
}
