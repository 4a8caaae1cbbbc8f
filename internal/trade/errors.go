// =============================
// File: internal/trade/errors.go
// =============================
package trade

import (
	"errors"
	"fmt"
)

// ErrorCode is the actionable failure class a trade can end in. Codes map
// one-to-one onto the messages surfaced to the operator, so classification
// happens once, here, and not in the presentation layer.
type ErrorCode int

const (
	ErrCodeUnknown ErrorCode = iota

	// ErrCodeInsufficientBalance: the wallet cannot cover the spend plus fees.
	ErrCodeInsufficientBalance

	// ErrCodeNoLiquidity: no pricing regime applies, or the program reported
	// both of its token reservoirs empty.
	ErrCodeNoLiquidity

	// ErrCodeAccountNotFound: a required account is absent after the full
	// resolution fallback chain.
	ErrCodeAccountNotFound

	// ErrCodeAuthorityMismatch: token accounts exist but none under the
	// expected pool authority.
	ErrCodeAuthorityMismatch

	// ErrCodeSerialization: the program rejected the instruction payload.
	// Almost always a layout drift between client and program.
	ErrCodeSerialization

	// ErrCodeSimulationFailed: simulation reported a program error that has
	// no more specific class. Carries the custom program code when present.
	ErrCodeSimulationFailed

	// ErrCodeAlreadyProcessed: the transaction landed through another path
	// (a retry, a race). Informational, not a failure of the trade itself.
	ErrCodeAlreadyProcessed

	// ErrCodeConfirmationTimeout: confirmation polling gave up. The
	// transaction may still have executed; the outcome is unknown.
	ErrCodeConfirmationTimeout
)

func (c ErrorCode) String() string {
	switch c {
	case ErrCodeInsufficientBalance:
		return "insufficient-balance"
	case ErrCodeNoLiquidity:
		return "no-liquidity"
	case ErrCodeAccountNotFound:
		return "account-not-found"
	case ErrCodeAuthorityMismatch:
		return "authority-mismatch"
	case ErrCodeSerialization:
		return "serialization-error"
	case ErrCodeSimulationFailed:
		return "simulation-failed"
	case ErrCodeAlreadyProcessed:
		return "already-processed"
	case ErrCodeConfirmationTimeout:
		return "confirmation-timeout"
	default:
		return "unknown"
	}
}

// Error is the classified trade failure carried inside TradeResult.
type Error struct {
	Code ErrorCode

	// ProgramCode is the custom program error number when Code is
	// ErrCodeSimulationFailed and the program reported one; -1 otherwise.
	ProgramCode int64

	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// Informational reports whether the code describes an outcome rather than a
// failure: the operator should be told, but nothing went wrong with the
// request itself.
func (e *Error) Informational() bool {
	return e.Code == ErrCodeAlreadyProcessed || e.Code == ErrCodeConfirmationTimeout
}

func newError(code ErrorCode, msg string, err error) *Error {
	return &Error{Code: code, ProgramCode: -1, Message: msg, Err: err}
}

// CodeOf extracts the classification from any error in the chain, defaulting
// to unknown.
func CodeOf(err error) ErrorCode {
	var te *Error
	if errors.As(err, &te) {
		return te.Code
	}
	return ErrCodeUnknown
}
