package orchestrator

import "errors"

var (
	// ErrShuttingDown rejects submissions arriving after Shutdown started.
	ErrShuttingDown = errors.New("orchestrator is shutting down")

	// ErrAlreadyTerminal rejects cancellation of finished workflows.
	ErrAlreadyTerminal = errors.New("workflow is already terminal")
)

// ValidationError wraps request validation failures so callers can map them
// to client errors.
type ValidationError struct {
	Err error
}

func (e *ValidationError) Error() string {
	return "invalid analysis request: " + e.Err.Error()
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

func IsValidationError(err error) bool {
	validationErr := &ValidationError{}

	return errors.As(err, &validationErr)
}
