// SPDX-License-Identifier: BSD-3-Clause

package ipc

import (
	"fmt"
	"strings"
)

// Fields published on the global {Gov} scope.
const (
	FieldActiveSel = "Sel:Active-Sel"
	FieldConfigSel = "Sel:Config-Sel"
	FieldKillCmd   = "Cmd:Kill-Cmd"
	FieldAbortCmd  = "Cmd:Abort-Cmd"
	FieldVerInfo   = "Sts:Ver-I"
	FieldIDInfo    = "Sts:Id-I"
	FieldConfigs   = "Sts:Config-I"
)

// Fields published per machine on {Gov:NAME}.
const (
	FieldGoCmd     = "Cmd:Go-Cmd"
	FieldStatusSts = "Sts:Status-Sts"
	FieldStateInfo = "Sts:State-I"
	FieldReachInfo = "Sts:Reach-I"
	FieldMsgInfo   = "Sts:Msg-I"
	FieldBusySts   = "Sts:Busy-Sts"
)

// Fields published per device on {Gov:NAME-Dev:KEY}.
const (
	FieldConnSts = "Sts:Conn-Sts"
	FieldPosInfo = "Pos:Pos-I"
)

// Fields published per state and per transition.
const (
	FieldReachSts  = "Sts:Reach-Sts"
	FieldActiveSts = "Sts:Active-Sts"
)

// Values of the Active-Sel enumeration.
const (
	ActiveSelActive   = "Active"
	ActiveSelInactive = "Inactive"
)

// Scope identifies which level of the channel tree a channel belongs to.
type Scope int

const (
	// ScopeGlobal is the {Gov} scope shared by the whole process.
	ScopeGlobal Scope = iota
	// ScopeMachine is the {Gov:NAME} scope of one state machine.
	ScopeMachine
	// ScopeDevice is the {Gov:NAME-Dev:KEY} scope of one device.
	ScopeDevice
	// ScopeState is the {Gov:NAME-St:KEY} scope of one state.
	ScopeState
	// ScopeTransition is the {Gov:NAME-Tr:FROM-TO} scope of one transition.
	ScopeTransition
)

// Channel is a decoded channel name. The entity fields are populated
// according to Scope; Field always carries the suffix part after the
// closing brace.
type Channel struct {
	Scope   Scope
	Machine string
	Device  string
	State   string
	From    string
	To      string
	Field   string
}

// Global constructs a channel in the {Gov} scope.
func Global(field string) Channel {
	return Channel{Scope: ScopeGlobal, Field: field}
}

// Machine constructs a channel in the {Gov:NAME} scope.
func Machine(machine, field string) Channel {
	return Channel{Scope: ScopeMachine, Machine: machine, Field: field}
}

// Device constructs a channel in the {Gov:NAME-Dev:KEY} scope.
func Device(machine, device, field string) Channel {
	return Channel{Scope: ScopeDevice, Machine: machine, Device: device, Field: field}
}

// State constructs a channel in the {Gov:NAME-St:KEY} scope.
func State(machine, state, field string) Channel {
	return Channel{Scope: ScopeState, Machine: machine, State: state, Field: field}
}

// Transition constructs a channel in the {Gov:NAME-Tr:FROM-TO} scope.
func Transition(machine, from, to, field string) Channel {
	return Channel{Scope: ScopeTransition, Machine: machine, From: from, To: to, Field: field}
}

// TargetPosField returns the read/write setpoint field of a named target,
// e.g. "Pos:Up-Pos" for target "Up".
func TargetPosField(target string) string {
	return "Pos:" + target + "-Pos"
}

// TargetFromPosField is the inverse of TargetPosField. The second return
// value is false if the field is not a target setpoint field.
func TargetFromPosField(field string) (string, bool) {
	name, ok := strings.CutPrefix(field, "Pos:")
	if !ok {
		return "", false
	}
	name, ok = strings.CutSuffix(name, "-Pos")
	if !ok || name == "" || name == "Pos-I" {
		return "", false
	}
	return name, true
}

// Name renders the channel name including the configured prefix.
func (c Channel) Name(prefix string) string {
	var scope string
	switch c.Scope {
	case ScopeGlobal:
		scope = "{Gov}"
	case ScopeMachine:
		scope = "{Gov:" + c.Machine + "}"
	case ScopeDevice:
		scope = "{Gov:" + c.Machine + "-Dev:" + c.Device + "}"
	case ScopeState:
		scope = "{Gov:" + c.Machine + "-St:" + c.State + "}"
	case ScopeTransition:
		scope = "{Gov:" + c.Machine + "-Tr:" + c.From + "-" + c.To + "}"
	}
	return prefix + scope + c.Field
}

// ValidKey reports whether a machine, device, state, or target key can
// appear in a channel name. Keys are limited to [A-Za-z0-9_] so that
// every channel name parses unambiguously and forms a single bus subject
// token.
func ValidKey(key string) bool {
	if key == "" {
		return false
	}
	for _, r := range key {
		switch {
		case r >= 'a' && r <= 'z':
		case r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9':
		case r == '_':
		default:
			return false
		}
	}
	return true
}

// Parse decodes a channel name back into its components. The prefix must
// match the configured one exactly.
func Parse(prefix, name string) (Channel, error) {
	rest, ok := strings.CutPrefix(name, prefix)
	if !ok {
		return Channel{}, fmt.Errorf("%w: %q does not start with prefix %q", ErrInvalidChannel, name, prefix)
	}
	if !strings.HasPrefix(rest, "{Gov") {
		return Channel{}, fmt.Errorf("%w: %q", ErrInvalidChannel, name)
	}
	end := strings.IndexByte(rest, '}')
	if end < 0 || end == len(rest)-1 {
		return Channel{}, fmt.Errorf("%w: %q", ErrInvalidChannel, name)
	}
	scope := rest[1:end]
	field := rest[end+1:]

	if scope == "Gov" {
		return Channel{Scope: ScopeGlobal, Field: field}, nil
	}
	machine, ok := strings.CutPrefix(scope, "Gov:")
	if !ok {
		return Channel{}, fmt.Errorf("%w: %q", ErrInvalidChannel, name)
	}

	switch {
	case strings.Contains(machine, "-Dev:"):
		m, d, _ := strings.Cut(machine, "-Dev:")
		if !ValidKey(m) || !ValidKey(d) {
			return Channel{}, fmt.Errorf("%w: %q", ErrInvalidChannel, name)
		}
		return Channel{Scope: ScopeDevice, Machine: m, Device: d, Field: field}, nil
	case strings.Contains(machine, "-St:"):
		m, s, _ := strings.Cut(machine, "-St:")
		if !ValidKey(m) || !ValidKey(s) {
			return Channel{}, fmt.Errorf("%w: %q", ErrInvalidChannel, name)
		}
		return Channel{Scope: ScopeState, Machine: m, State: s, Field: field}, nil
	case strings.Contains(machine, "-Tr:"):
		m, edge, _ := strings.Cut(machine, "-Tr:")
		from, to, ok := strings.Cut(edge, "-")
		if !ok || !ValidKey(m) || !ValidKey(from) || !ValidKey(to) {
			return Channel{}, fmt.Errorf("%w: %q", ErrInvalidChannel, name)
		}
		return Channel{Scope: ScopeTransition, Machine: m, From: from, To: to, Field: field}, nil
	default:
		if !ValidKey(machine) {
			return Channel{}, fmt.Errorf("%w: %q", ErrInvalidChannel, name)
		}
		return Channel{Scope: ScopeMachine, Machine: machine, Field: field}, nil
	}
}

// Bus subject roots for the three channel operations.
const (
	subjectPut    = "pv.put."
	subjectGet    = "pv.get."
	subjectUpdate = "pv.update."

	// SubjectPutWildcard is what the binding layer subscribes to for
	// incoming channel writes.
	SubjectPutWildcard = "pv.put.>"
)

// PutSubject returns the bus subject written to set a channel's value.
func PutSubject(prefix string, c Channel) string {
	return subjectPut + c.Name(prefix)
}

// GetSubject returns the bus subject served for reading a channel's value.
func GetSubject(prefix string, c Channel) string {
	return subjectGet + c.Name(prefix)
}

// UpdateSubject returns the bus subject on which value changes of a
// channel are eagerly published.
func UpdateSubject(prefix string, c Channel) string {
	return subjectUpdate + c.Name(prefix)
}

// ChannelFromPutSubject extracts and parses the channel name from a
// pv.put subject.
func ChannelFromPutSubject(prefix, subject string) (Channel, error) {
	name, ok := strings.CutPrefix(subject, subjectPut)
	if !ok {
		return Channel{}, fmt.Errorf("%w: subject %q", ErrInvalidChannel, subject)
	}
	return Parse(prefix, name)
}
