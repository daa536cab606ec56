package catalog

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/hpungsan/cassettes/internal/config"
	"github.com/hpungsan/cassettes/internal/errors"
)

// PathMode says whether a checked path will be read (import) or written (export).
type PathMode int

const (
	PathRead PathMode = iota
	PathWrite
)

// ExportExt is the only extension accepted for export and import files.
const ExportExt = ".jsonl"

// ValidatePath checks an export or import path before it is opened:
//   - no ".." components
//   - .jsonl extension
//   - the file sits directly in exportsDir or in one of cfg.AllowedPaths,
//     unless cfg.AllowUnsafePaths is set
//   - neither the file nor its directory is a symlink
//
// Nested directories are refused so that no intermediate component can be
// swapped for a symlink between the check and the open.
func ValidatePath(path string, mode PathMode, cfg *config.Config, exportsDir string) error {
	if strings.TrimSpace(path) == "" {
		return errors.NewValidation("path is required")
	}
	if hasTraversal(path) {
		return errors.NewValidation("path must not contain directory traversal (..)")
	}

	absPath, err := filepath.Abs(filepath.Clean(path))
	if err != nil {
		return errors.NewValidation(fmt.Sprintf("invalid path: %v", err))
	}
	if filepath.Ext(absPath) != ExportExt {
		return errors.NewValidation("path must have " + ExportExt + " extension")
	}

	if cfg == nil || !cfg.AllowUnsafePaths {
		allowed, err := allowedDirs(cfg, exportsDir)
		if err != nil {
			return err
		}
		parent := filepath.Dir(absPath)
		if !slices.Contains(allowed, parent) {
			return errors.NewValidation(fmt.Sprintf(
				"file must be directly in an allowed directory; allowed: %v", allowed))
		}
		if isSymlink(parent) {
			return errors.NewValidation("parent directory must not be a symlink")
		}
	}

	if mode == PathRead {
		if _, err := os.Stat(absPath); os.IsNotExist(err) {
			return errors.NewFileNotFound(path)
		}
	}
	if isSymlink(absPath) {
		return errors.NewValidation("path must not be a symlink")
	}
	return nil
}

// allowedDirs returns exportsDir plus the absolute entries of
// cfg.AllowedPaths, with symlinked entries resolved.
func allowedDirs(cfg *config.Config, exportsDir string) ([]string, error) {
	var candidates []string
	if exportsDir != "" {
		candidates = append(candidates, exportsDir)
	}
	if cfg != nil {
		for _, p := range cfg.AllowedPaths {
			// Relative entries are ignored
			if filepath.IsAbs(p) {
				candidates = append(candidates, p)
			}
		}
	}

	dirs := make([]string, 0, len(candidates))
	for _, d := range candidates {
		abs, err := filepath.Abs(filepath.Clean(d))
		if err != nil {
			return nil, errors.NewValidation(fmt.Sprintf("invalid allowed path: %v", err))
		}
		if isSymlink(abs) {
			resolved, err := filepath.EvalSymlinks(abs)
			if err != nil {
				return nil, errors.NewValidation(fmt.Sprintf("cannot resolve allowed path %s: %v", d, err))
			}
			abs = resolved
		}
		dirs = append(dirs, abs)
	}
	return dirs, nil
}

func isSymlink(path string) bool {
	info, err := os.Lstat(path)
	return err == nil && info.Mode()&os.ModeSymlink != 0
}

// hasTraversal reports whether any component of path is "..", splitting on
// both the OS separator and forward slashes.
func hasTraversal(path string) bool {
	parts := strings.FieldsFunc(path, func(r rune) bool {
		return r == '/' || r == filepath.Separator
	})
	return slices.Contains(parts, "..")
}

// ExportsDir returns the exports directory that belongs to a storage file.
func ExportsDir(dbPath string) string {
	return filepath.Join(filepath.Dir(dbPath), "exports")
}
