package protocol

import "fmt"

// InvalidOutputError reports a payload a capability cannot work with: a
// missing upstream phase output, a response of the wrong shape, or a
// document that failed to render.
type InvalidOutputError struct {
	CapabilityID string
	Reason       string
}

func (e *InvalidOutputError) Error() string {
	return fmt.Sprintf("capability %s: invalid output: %s", e.CapabilityID, e.Reason)
}

func NewInvalidOutputError(capabilityID, reason string) *InvalidOutputError {
	return &InvalidOutputError{CapabilityID: capabilityID, Reason: reason}
}
