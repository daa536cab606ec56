//go:build !windows

package catalog

import (
	stderrors "errors"
	"os"
	"syscall"

	"github.com/hpungsan/cassettes/internal/errors"
)

// createNoFollow creates a new file for an export, refusing a symlink as
// the final path component.
func createNoFollow(path string) (*os.File, error) {
	flags := os.O_CREATE | os.O_EXCL | os.O_WRONLY | syscall.O_NOFOLLOW | syscall.O_CLOEXEC
	fd, err := syscall.Open(path, flags, 0600)
	if err != nil {
		if stderrors.Is(err, syscall.ELOOP) {
			return nil, errors.NewValidation("export path must not be a symlink")
		}
		return nil, err
	}
	return os.NewFile(uintptr(fd), path), nil
}

// openNoFollow opens an import file for reading, refusing a symlink as the
// final path component. Directory components are checked by ValidatePath.
func openNoFollow(path string) (*os.File, error) {
	fd, err := syscall.Open(path, os.O_RDONLY|syscall.O_NOFOLLOW|syscall.O_CLOEXEC, 0)
	if err != nil {
		switch {
		case stderrors.Is(err, syscall.ELOOP):
			return nil, errors.NewValidation("import path must not be a symlink")
		case stderrors.Is(err, syscall.ENOENT):
			return nil, errors.NewFileNotFound(path)
		}
		return nil, err
	}
	return os.NewFile(uintptr(fd), path), nil
}
