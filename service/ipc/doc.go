// SPDX-License-Identifier: BSD-3-Clause

// Package ipc runs the Governor's embedded NATS server: the in-process
// bus carrying every process-variable channel of the §6 naming schema as
// subjects, plus the request/response endpoints of the binding layer.
//
// The server does not listen on a network socket by default; services
// reach it through in-process connections handed out by GetConnProvider.
// An external gateway re-exporting the channels to the beamline control
// network is a deployment concern outside this process.
package ipc
