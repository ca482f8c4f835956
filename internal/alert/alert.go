// Package alert defines the typed alert record the rest of the system emits
// and a debounced dispatcher that delivers alerts to one or more outbound
// transports.
package alert

import (
	"time"
)

// Kind tags the category of an alert.
type Kind string

const (
	// KindDelinquency fires when a vote account stops producing credited votes.
	KindDelinquency Kind = "delinquency"
	// KindSSHFailure fires on sustained SSH unreachability to a host.
	KindSSHFailure Kind = "ssh_failure"
	// KindRPCFailure fires on sustained RPC unavailability.
	KindRPCFailure Kind = "rpc_failure"
	// KindSwitchSuccess fires when an identity switch completes and verifies.
	KindSwitchSuccess Kind = "switch_success"
	// KindSwitchFailure fires when an identity switch aborts at some phase.
	KindSwitchFailure Kind = "switch_failure"
	// KindTest is a synthetic alert used to validate transport wiring.
	KindTest Kind = "test"
)

// Severity is a coarse priority for display/routing purposes.
type Severity string

const (
	// SeverityInfo is an informational alert, e.g. a successful switch.
	SeverityInfo Severity = "info"
	// SeverityWarning is a degraded-but-not-yet-failed condition.
	SeverityWarning Severity = "warning"
	// SeverityCritical is a condition requiring immediate operator attention.
	SeverityCritical Severity = "critical"
)

// Alert is a tagged record describing one noteworthy event for one pair.
type Alert struct {
	Kind      Kind
	Severity  Severity
	Message   string
	Timestamp time.Time
	PairIndex int
}

// Transport delivers an alert to some outbound destination.
type Transport interface {
	Send(a Alert) error
}

// debounced reports whether kind is subject to the debounce window. Switch
// results and test alerts always go through.
func debounced(kind Kind) bool {
	switch kind {
	case KindSwitchSuccess, KindSwitchFailure, KindTest:
		return false
	default:
		return true
	}
}
