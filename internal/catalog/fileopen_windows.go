//go:build windows

package catalog

import (
	"os"

	"github.com/hpungsan/cassettes/internal/errors"
)

// createNoFollow creates a new file for an export. Windows has no
// O_NOFOLLOW; ValidatePath has already rejected symlinks.
func createNoFollow(path string) (*os.File, error) {
	return os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0600)
}

// openNoFollow opens an import file for reading.
func openNoFollow(path string) (*os.File, error) {
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return nil, errors.NewFileNotFound(path)
	}
	return f, err
}
