// SPDX-License-Identifier: BSD-3-Clause

package id

import "errors"

var (
	// ErrFileRead indicates the id file exists but could not be read.
	ErrFileRead = errors.New("failed to read id file")
	// ErrFileCreation indicates the id file could not be created.
	ErrFileCreation = errors.New("failed to create id file")
	// ErrDirectoryCreation indicates the id directory could not be created.
	ErrDirectoryCreation = errors.New("failed to create id directory")
	// ErrInvalidUUID indicates the stored id is not a valid UUID.
	ErrInvalidUUID = errors.New("stored id is not a valid UUID")
)
