// SPDX-License-Identifier: BSD-3-Clause

// Package process adapts the Governor's services into child processes of
// an oversight supervision tree, converting panics into restartable
// errors.
package process
