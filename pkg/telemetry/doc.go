// SPDX-License-Identifier: BSD-3-Clause

// Package telemetry provides thin accessors over the global OpenTelemetry
// providers plus trace propagation across the message bus. The Governor
// ships no exporter; without an SDK configured every tracer and meter is
// a no-op, so instrumented code paths cost nothing in production unless
// an operator wires a provider.
package telemetry
