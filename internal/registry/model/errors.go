package model

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned when a referenced asset or version does not exist.
var ErrNotFound = errors.New("not found")

// ErrConflict is returned when an optimistic-concurrency precondition failed,
// or when a mutation is attempted on a voided asset. Callers should re-read
// the current state and retry; the registry never retries internally.
var ErrConflict = errors.New("sequence conflict")

// ErrDuplicateAsset is returned by genesis creation when the asset identifier
// is already registered.
var ErrDuplicateAsset = errors.New("asset id already exists")

// ErrValidation indicates a payload that fails the schema or the status
// state machine. It never mutates state.
type ErrValidation struct{ Msg string }

func (e *ErrValidation) Error() string { return e.Msg }

// ErrIntegrity indicates a hash-chain verification failure. It is fatal and
// never retried: the store is treated as corrupted and the affected asset is
// refused service until an operator intervenes.
type ErrIntegrity struct {
	AssetID  string
	Sequence int
	Reason   string
}

func (e *ErrIntegrity) Error() string {
	return fmt.Sprintf("integrity fault on asset %s at sequence %d: %s", e.AssetID, e.Sequence, e.Reason)
}

// IsIntegrity reports whether err is (or wraps) an ErrIntegrity.
func IsIntegrity(err error) bool {
	var ie *ErrIntegrity
	return errors.As(err, &ie)
}
