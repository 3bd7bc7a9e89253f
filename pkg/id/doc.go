// SPDX-License-Identifier: BSD-3-Clause

// Package id provides the Governor's process instance identity. The id is
// a UUID, optionally persisted to disk so an endstation keeps a stable
// identity across restarts, and is published on the {Gov}Sts:Id-I channel.
package id
