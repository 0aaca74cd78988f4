package core

import (
	"errors"
	"fmt"
)

// Common errors that can be returned by smart contracts
var (
	ErrInvalidArgument   = errors.New("invalid argument")
	ErrInvalidOperation  = errors.New("invalid operation")
	ErrUnauthorized      = errors.New("unauthorized operation")
	ErrContractNotFound  = errors.New("contract not found")
	ErrFunctionNotFound  = errors.New("function not found")
	ErrExecutionReverted = errors.New("execution reverted")
	ErrObjectNotFound    = errors.New("object not found")
	ErrOutOfGas          = errors.New("out of gas")
)

// RevertError is raised by a contract that rejects a call. The reason is
// carried verbatim to the caller.
type RevertError struct {
	Reason string
	Kind   error
}

func (e *RevertError) Error() string {
	return fmt.Sprintf("%s: %s", ErrExecutionReverted, e.Reason)
}

// Unwrap lets callers match both ErrExecutionReverted and the kind of the
// rejection, e.g. ErrInvalidOperation
func (e *RevertError) Unwrap() []error {
	if e.Kind == nil {
		return []error{ErrExecutionReverted}
	}
	return []error{ErrExecutionReverted, e.Kind}
}

// Require rejects the current call with an invalid-operation revert when
// condition is false. State written by the call is discarded.
func Require(condition bool, reason string) {
	if !condition {
		panic(&RevertError{Reason: reason, Kind: ErrInvalidOperation})
	}
}

// Assert aborts the current call when err is not nil
func Assert(err error) {
	if err != nil {
		panic(err)
	}
}

// ReasonOf returns the revert reason carried by err, if any
func ReasonOf(err error) (string, bool) {
	var revert *RevertError
	if errors.As(err, &revert) {
		return revert.Reason, true
	}
	return "", false
}
