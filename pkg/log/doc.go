// SPDX-License-Identifier: BSD-3-Clause

// Package log provides structured logging for the Governor with
// multi-target output. Console logs are rendered by zerolog for human
// operators while the same records are fanned out to the global
// OpenTelemetry logger provider for observability backends.
//
// The package is built around the standard library slog package and adds
// adapters for the embedded NATS server and for the oversight process
// supervisor so that every component of the process logs through one
// pipeline.
//
// The console level is process-wide and selected on the command line with
// -l {DEBUG,INFO,WARNING,ERROR,CRITICAL}:
//
//	level, err := log.ParseLevel("INFO")
//	if err != nil { ... }
//	log.SetGlobalLevel(level)
//	logger := log.GetGlobalLogger().With("service", "governor")
package log
