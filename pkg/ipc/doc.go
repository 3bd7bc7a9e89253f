// SPDX-License-Identifier: BSD-3-Clause

// Package ipc defines the process-variable channel schema of the Governor
// and small helpers shared by everything that talks to the in-process
// message bus.
//
// Channel names follow the fixed convention, all relative to a
// configurable prefix:
//
//	{Gov}...                  global scope
//	{Gov:NAME}...             one state machine
//	{Gov:NAME-Dev:KEY}...     one device of a machine
//	{Gov:NAME-St:KEY}...      one state of a machine
//	{Gov:NAME-Tr:FROM-TO}...  one transition of a machine
//
// Suffixes carry the access mode: -Sel is a read/write enumeration, -Cmd
// is write-only, -Sts is a read-only status, -I is read-only
// informational text, -Pos is a read/write number.
//
// On the bus a channel maps to three subjects: pv.put.<name> for writes,
// pv.get.<name> for reads, and pv.update.<name> for eager status
// publications. Entity keys are restricted to [A-Za-z0-9_] so every
// channel name is a single valid subject token.
package ipc
