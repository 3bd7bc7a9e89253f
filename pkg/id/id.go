// SPDX-License-Identifier: BSD-3-Clause

package id

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

// NewID generates and returns a new UUID as a string.
func NewID() string {
	return uuid.New().String()
}

// GetOrCreatePersistentID retrieves an existing UUID from a file or
// creates and stores a new one if the file doesn't exist. The id is
// written via a temporary file and rename so a crashed process never
// leaves a half-written id behind.
func GetOrCreatePersistentID(name, path string) (string, error) {
	fullPath := filepath.Join(path, name)

	b, err := os.ReadFile(fullPath)
	switch {
	case err == nil:
		parsed, perr := uuid.ParseBytes(bytes.TrimSpace(b))
		if perr != nil {
			return "", fmt.Errorf("%w: %w", ErrInvalidUUID, perr)
		}
		return parsed.String(), nil
	case os.IsNotExist(err):
	default:
		return "", fmt.Errorf("%w: %w", ErrFileRead, err)
	}

	if err := os.MkdirAll(path, 0o755); err != nil {
		return "", fmt.Errorf("%w: %w", ErrDirectoryCreation, err)
	}

	idstr := uuid.New().String()
	if err := atomicWriteFile(fullPath, []byte(idstr), 0o600); err != nil {
		return "", fmt.Errorf("%w: %w", ErrFileCreation, err)
	}

	return idstr, nil
}

// atomicWriteFile writes data to a temporary file in the target directory
// and renames it into place.
func atomicWriteFile(filename string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(filename)
	tmpfile, err := os.CreateTemp(dir, fmt.Sprintf(".%s.tmp.*", filepath.Base(filename)))
	if err != nil {
		return err
	}
	tmpname := tmpfile.Name()

	if _, err := tmpfile.Write(data); err != nil {
		_ = tmpfile.Close()
		_ = os.Remove(tmpname)
		return err
	}
	if err := tmpfile.Close(); err != nil {
		_ = os.Remove(tmpname)
		return err
	}
	if err := os.Chmod(tmpname, perm); err != nil {
		_ = os.Remove(tmpname)
		return err
	}
	if err := os.Rename(tmpname, filename); err != nil {
		_ = os.Remove(tmpname)
		return err
	}
	return nil
}
