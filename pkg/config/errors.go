// SPDX-License-Identifier: BSD-3-Clause

package config

import "errors"

var (
	// ErrConfigInvalid indicates one or more validation failures; the
	// wrapped error enumerates them.
	ErrConfigInvalid = errors.New("invalid configuration")
	// ErrConfigRead indicates the configuration file could not be read.
	ErrConfigRead = errors.New("failed to read configuration file")
	// ErrConfigParse indicates the configuration file is not valid YAML.
	ErrConfigParse = errors.New("failed to parse configuration file")
	// ErrSyncRead indicates the sync file could not be read.
	ErrSyncRead = errors.New("failed to read sync file")
	// ErrSyncParse indicates the sync file is not valid YAML.
	ErrSyncParse = errors.New("failed to parse sync file")
)
