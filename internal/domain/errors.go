package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrNetwork marks transient transport failures. Cached state is
	// retained and the operation is eligible for retry.
	ErrNetwork = errors.New("network_failure")
	// ErrAuthExpired is fatal to the session: all caches and the ledger
	// are cleared and re-authentication is signalled.
	ErrAuthExpired = errors.New("authorization_expired")
	// ErrServerRejected marks a mutation the authoritative source
	// declined. It always wins over any optimistic prediction.
	ErrServerRejected = errors.New("server_rejected")
	// ErrInvariant marks a local pre-flight violation that never reached
	// the network.
	ErrInvariant = errors.New("invariant_violation")
	// ErrStateUnknown is surfaced when an optimistic mutation outlived its
	// retry without the authoritative source ever resolving it.
	ErrStateUnknown = errors.New("state_unknown")
	ErrNotFound     = errors.New("not_found")
)

type NetworkError struct {
	Op  string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("network failure during %s: %v", e.Op, e.Err)
}

func (e *NetworkError) Unwrap() error { return ErrNetwork }

func NewNetworkError(op string, err error) error {
	return &NetworkError{Op: op, Err: err}
}

// ServerRejectedError carries the authoritative refusal verbatim so callers
// can display the server-provided reason.
type ServerRejectedError struct {
	Status  int
	Code    string
	Message string
}

func (e *ServerRejectedError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("server rejected (%s): %s", e.Code, e.Message)
	}
	return fmt.Sprintf("server rejected: status %d", e.Status)
}

func (e *ServerRejectedError) Unwrap() error { return ErrServerRejected }

// ViolationCode names the specific invariant a local mutation would break.
type ViolationCode string

const (
	ViolationSelfRelation ViolationCode = "self_relation"
	ViolationNotCaptain   ViolationCode = "not_captain"
	ViolationTeamFull     ViolationCode = "team_full"
	ViolationKickCaptain  ViolationCode = "kick_captain"
	ViolationCaptainLeave ViolationCode = "captain_leave"
	ViolationTeamNotEmpty ViolationCode = "team_not_empty"
	ViolationNotMember    ViolationCode = "not_member"
	ViolationNoRequest    ViolationCode = "no_request"
)

type InvariantViolation struct {
	Code    ViolationCode
	Message string
}

func (e *InvariantViolation) Error() string {
	return fmt.Sprintf("invariant violation %s: %s", e.Code, e.Message)
}

func (e *InvariantViolation) Unwrap() error { return ErrInvariant }

func NewInvariantViolation(code ViolationCode, message string) *InvariantViolation {
	return &InvariantViolation{Code: code, Message: message}
}
