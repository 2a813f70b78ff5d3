package staking

import (
	"errors"
	"fmt"

	"staking-engine/internal/ledger"
)

// customErrorOffset is where program-defined error codes start on the host ledger.
const customErrorOffset = 6000

// Error is a failure kind of the staking program. It carries no dynamic
// payload: two failures of the same kind are the same value.
type Error struct {
	Code uint32
	Name string
	msg  string
}

func newError(index uint32, name, msg string) *Error {
	return &Error{Code: customErrorOffset + index, Name: name, msg: msg}
}

func (e *Error) Error() string {
	return e.msg
}

// Program errors, in code order.
var (
	ErrMinimumStakeNotMet   = newError(0, "MinimumStakeNotMet", "minimum stake not met")
	ErrOverflow             = newError(1, "Overflow", "arithmetic overflow")
	ErrUserNotActive        = newError(2, "UserNotActive", "user not active")
	ErrMaxMultiplierReached = newError(3, "MaxMultiplierReached", "max multiplier reached")
	ErrInsufficientBalance  = newError(4, "InsufficientBalance", "insufficient balance")
	ErrPackageNotMatured    = newError(5, "PackageNotMatured", "package not matured")
	ErrPackageNotActive     = newError(6, "PackageNotActive", "package not active")
)

// Engine errors that are not program failures.
var (
	ErrMissingAccount     = errors.New("required account missing")
	ErrUnknownInstruction = errors.New("unknown instruction")
	ErrTrailingData       = errors.New("trailing instruction data")
)

// CodeOf returns the program error code carried by err.
func CodeOf(err error) (uint32, bool) {
	var se *Error
	if errors.As(err, &se) {
		return se.Code, true
	}
	return 0, false
}

// transferError maps a ledger failure onto the program taxonomy. A short
// balance becomes ErrInsufficientBalance; anything else is an infrastructure
// failure and is passed through.
func transferError(err error) error {
	if errors.Is(err, ledger.ErrInsufficientFunds) {
		return ErrInsufficientBalance
	}
	return fmt.Errorf("token transfer failed: %w", err)
}
