package orders

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound indicates no order with the given id exists in the ledger.
	ErrNotFound = errors.New("order not found")

	// ErrForbidden indicates the order belongs to a different department.
	ErrForbidden = errors.New("order belongs to another department")

	// ErrPollTimeout indicates the remote service did not report completion
	// within the configured budget.
	ErrPollTimeout = errors.New("polling timed out before completion")

	// ErrArtifactUnavailable indicates the remote artifact could not be
	// fetched yet. Callers should surface this as "not ready", not as a
	// hard failure.
	ErrArtifactUnavailable = errors.New("artifact not yet available")
)

// ValidationError reports a missing or malformed request field, detected
// before any remote call or storage write.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// RemoteError reports a non-success response from an external service. It is
// never retried on the submission path.
type RemoteError struct {
	Service string
	Status  int
	Body    string
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("%s service returned status %d: %s", e.Service, e.Status, e.Body)
}
