package model

import "fmt"

// Status is the lifecycle state of an asset, carried in each version payload.
type Status string

const (
	StatusActive      Status = "active"
	StatusTransferred Status = "transferred"
	StatusDisputed    Status = "disputed"
	// StatusVoided is terminal: no further versions may be appended.
	StatusVoided Status = "voided"
)

// statusTransitions is the fixed transition table for asset status.
// A same-status append is allowed for non-terminal states so that boundary
// or ownership details can be corrected without a status change.
var statusTransitions = map[Status]map[Status]bool{
	StatusActive: {
		StatusActive:      true,
		StatusTransferred: true,
		StatusDisputed:    true,
	},
	StatusTransferred: {
		StatusActive:      true,
		StatusTransferred: true,
	},
	StatusDisputed: {
		StatusActive:   true,
		StatusDisputed: true,
		StatusVoided:   true,
	},
	StatusVoided: {},
}

// ValidStatus reports whether s is a recognised status value.
func ValidStatus(s Status) bool {
	_, ok := statusTransitions[s]
	return ok
}

// CanTransition reports whether the status change from → to is legal.
func CanTransition(from, to Status) bool {
	return statusTransitions[from][to]
}

// ValidatePayload checks a version payload against the recognised schema.
// It does not check the status transition; see ValidateTransition.
func ValidatePayload(p Payload) error {
	if !ValidStatus(p.Status) {
		return &ErrValidation{Msg: fmt.Sprintf("unknown status %q", p.Status)}
	}
	if p.Owner == "" {
		return &ErrValidation{Msg: "owner is required"}
	}
	if p.Name == "" {
		return &ErrValidation{Msg: "name is required"}
	}
	if p.LocationLat < -90 || p.LocationLat > 90 {
		return &ErrValidation{Msg: "location_lat must be between -90 and 90"}
	}
	if p.LocationLon < -180 || p.LocationLon > 180 {
		return &ErrValidation{Msg: "location_lon must be between -180 and 180"}
	}
	if p.SizeHectares <= 0 {
		return &ErrValidation{Msg: "size_hectares must be positive"}
	}
	return nil
}

// ValidateGenesisPayload checks the payload of a sequence-0 version.
// Genesis versions always open the record in the active state.
func ValidateGenesisPayload(p Payload) error {
	if err := ValidatePayload(p); err != nil {
		return err
	}
	if p.Status != StatusActive {
		return &ErrValidation{Msg: fmt.Sprintf("genesis status must be %q, got %q", StatusActive, p.Status)}
	}
	return nil
}

// ValidateTransition checks the status change implied by appending a payload
// on top of the current status.
func ValidateTransition(current Status, p Payload) error {
	if !CanTransition(current, p.Status) {
		return &ErrValidation{Msg: fmt.Sprintf("illegal status transition %s -> %s", current, p.Status)}
	}
	return nil
}
