package models

import (
	"fmt"
	"strings"
)

// TransactionType is the kind of operation a transfer performs against the archive.
type TransactionType int

const (
	// TransactionAdd uploads a file that must not exist yet.
	TransactionAdd TransactionType = iota + 1
	// TransactionReplace uploads a file, overwriting any existing copy.
	TransactionReplace
	// TransactionGet downloads a file.
	TransactionGet
)

var transactionTypeNames = map[TransactionType]string{
	TransactionAdd:     "ADD",
	TransactionReplace: "REPLACE",
	TransactionGet:     "GET",
}

// String returns the upper-case name of the transaction type
func (t TransactionType) String() string {
	if name, ok := transactionTypeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("TransactionType(%d)", int(t))
}

// Valid reports whether t is one of the recognised transaction types
func (t TransactionType) Valid() bool {
	_, ok := transactionTypeNames[t]
	return ok
}

// IsUpload returns true for ADD and REPLACE
func (t TransactionType) IsUpload() bool {
	return t == TransactionAdd || t == TransactionReplace
}

// ParseTransactionType converts a name such as "add" or "REPLACE" into a TransactionType.
func ParseTransactionType(s string) (TransactionType, error) {
	for t, name := range transactionTypeNames {
		if strings.EqualFold(name, s) {
			return t, nil
		}
	}
	return 0, fmt.Errorf("%w: unknown transaction type %q", ErrInvalidArgument, s)
}

// TransferState is the progress state of a transfer record.
type TransferState int

const (
	StateInitialized TransferState = iota + 1
	StateTransferring
	StateComplete
	StateAborted
	StateError
)

var transferStateNames = map[TransferState]string{
	StateInitialized:  "INITIALIZED",
	StateTransferring: "TRANSFERRING",
	StateComplete:     "COMPLETE",
	StateAborted:      "ABORTED",
	StateError:        "ERROR",
}

// AllStates lists the states in lifecycle order.
var AllStates = []TransferState{
	StateInitialized,
	StateTransferring,
	StateComplete,
	StateAborted,
	StateError,
}

// String returns the upper-case name of the state
func (s TransferState) String() string {
	if name, ok := transferStateNames[s]; ok {
		return name
	}
	return fmt.Sprintf("TransferState(%d)", int(s))
}

// Valid reports whether s is one of the five recognised states
func (s TransferState) Valid() bool {
	_, ok := transferStateNames[s]
	return ok
}

// IsFinished returns true if no further progress is expected
func (s TransferState) IsFinished() bool {
	return s == StateComplete || s == StateAborted || s == StateError
}

// IsCancelled returns true for ABORTED and ERROR
func (s TransferState) IsCancelled() bool {
	return s == StateAborted || s == StateError
}

// ParseTransferState converts a state name into a TransferState.
func ParseTransferState(s string) (TransferState, error) {
	for st, name := range transferStateNames {
		if strings.EqualFold(name, s) {
			return st, nil
		}
	}
	return 0, fmt.Errorf("%w: unknown transfer state %q", ErrInvalidArgument, s)
}
