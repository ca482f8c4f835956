// Package switcherr classifies failures into the error taxonomy the
// orchestrator, monitor and CLI layer use to decide propagation and alerting.
package switcherr

import (
	"errors"
	"fmt"
)

// Kind classifies a failure for alerting and CLI exit behavior.
type Kind string

const (
	// KindConfigInvalid is a malformed or semantically wrong configuration.
	KindConfigInvalid Kind = "config_invalid"
	// KindSSHAuth is a credentials-rejected failure, fatal for the affected host.
	KindSSHAuth Kind = "ssh_auth"
	// KindSSHTransport is a connection lost/timeout/unreachable failure.
	KindSSHTransport Kind = "ssh_transport"
	// KindRemoteExit is a command that ran and returned a non-zero exit code.
	KindRemoteExit Kind = "remote_exit"
	// KindProbeNotFound is raised when no known validator process is running.
	KindProbeNotFound Kind = "probe_not_found"
	// KindProbeAmbiguous is raised when more than one validator kind is found.
	KindProbeAmbiguous Kind = "probe_ambiguous"
	// KindProbeParse is raised when required probe fields are missing.
	KindProbeParse Kind = "probe_parse"
	// KindStateNoActive is raised when neither host in a pair holds the funded identity.
	KindStateNoActive Kind = "state_no_active"
	// KindStateDualActive is raised when both hosts in a pair hold the funded identity.
	KindStateDualActive Kind = "state_dual_active"
	// KindStateIdentityMismatch is raised when the standby host's identity matches neither role.
	KindStateIdentityMismatch Kind = "state_identity_mismatch"
	// KindSwitchPhaseFailure wraps a phase-specific orchestrator fault.
	KindSwitchPhaseFailure Kind = "switch_phase_failure"
	// KindRPCUnavailable is a network or JSON-RPC error.
	KindRPCUnavailable Kind = "rpc_unavailable"
	// KindAlertTransport is raised when outbound alert delivery fails.
	KindAlertTransport Kind = "alert_transport"
)

// Error is a classified, wrapped error carrying its Kind and, for
// KindSwitchPhaseFailure, the phase name it occurred in.
type Error struct {
	Kind  Kind
	Phase string
	Err   error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Phase != "" {
		return fmt.Sprintf("%s (phase=%s): %v", e.Kind, e.Phase, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

// Unwrap allows errors.Is/As to see through to the underlying error.
func (e *Error) Unwrap() error {
	return e.Err
}

// New wraps err as a classified error of the given kind.
func New(kind Kind, err error) *Error {
	return &Error{Kind: kind, Err: err}
}

// Newf classifies a newly-formatted error.
func Newf(kind Kind, format string, a ...any) *Error {
	return &Error{Kind: kind, Err: fmt.Errorf(format, a...)}
}

// NewPhase wraps err as a switch-phase failure naming the failed phase.
func NewPhase(phase string, err error) *Error {
	return &Error{Kind: KindSwitchPhaseFailure, Phase: phase, Err: err}
}

// Is reports whether err is a classified *Error of the given kind.
func Is(err error, kind Kind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}
