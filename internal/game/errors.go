package game

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidGuess         = errors.New("invalid guess")
	ErrMissingIdentity      = errors.New("identity is required")
	ErrRoundNotAccepting    = errors.New("round not accepting joins")
	ErrRoundFull            = errors.New("round full")
	ErrDuplicateParticipant = errors.New("duplicate join")
	ErrNegativeStake        = errors.New("stake must not be negative")
	ErrRoundNotActive       = errors.New("round not active")
	ErrAlreadyResolved      = errors.New("round already resolved")
	ErrNoRound              = errors.New("no round")
)

// Kind classifies a join failure for the transport layer.
type Kind string

const (
	KindValidation    Kind = "validation"
	KindRejection     Kind = "rejection"
	KindExecutor      Kind = "executor"
	KindInconsistency Kind = "inconsistency"
	KindInternal      Kind = "internal"
)

// ValidationError reports a malformed request. It never reaches the executor.
type ValidationError struct {
	Reason string
	Err    error
}

func (e *ValidationError) Error() string { return e.Reason }
func (e *ValidationError) Unwrap() error { return e.Err }

// RejectionError reports a join refused by the round's admission rules.
type RejectionError struct {
	RoundID string
	Err     error
}

func (e *RejectionError) Error() string {
	return fmt.Sprintf("round %s: %v", e.RoundID, e.Err)
}

func (e *RejectionError) Unwrap() error { return e.Err }

// ExecutorError reports a failed or timed out settlement call. No state was
// mutated and the join may be retried.
type ExecutorError struct {
	Err error
}

func (e *ExecutorError) Error() string { return "settlement failed: " + e.Err.Error() }
func (e *ExecutorError) Unwrap() error { return e.Err }

// InconsistencyError reports a transfer that completed while the round
// refused the participant afterwards. Funds moved; the participant is not
// recorded.
type InconsistencyError struct {
	RoundID  string
	Identity string
	Receipt  TransferReceipt
	Err      error
}

func (e *InconsistencyError) Error() string {
	return fmt.Sprintf("transfer %s completed but round %s rejected %s: %v",
		e.Receipt.TxID, e.RoundID, e.Identity, e.Err)
}

func (e *InconsistencyError) Unwrap() error { return e.Err }

// KindOf classifies err. Inconsistency is checked first because it wraps the
// admission error that caused it.
func KindOf(err error) Kind {
	var (
		inc *InconsistencyError
		val *ValidationError
		rej *RejectionError
		exe *ExecutorError
	)
	switch {
	case err == nil:
		return ""
	case errors.As(err, &inc):
		return KindInconsistency
	case errors.As(err, &val):
		return KindValidation
	case errors.As(err, &rej):
		return KindRejection
	case errors.As(err, &exe):
		return KindExecutor
	default:
		return KindInternal
	}
}
