package recommend

import (
	"errors"
	"fmt"
)

var (
	// ErrMissingAPIKey is returned when the LLM client has no API key.
	ErrMissingAPIKey = errors.New("OPENAI_API_KEY is not set")

	// ErrCircuitOpen is returned while the circuit breaker rejects calls.
	ErrCircuitOpen = errors.New("circuit breaker is open")

	// ErrEmptyCompletion is returned when the API answered without content.
	ErrEmptyCompletion = errors.New("completion has no content")
)

// ExternalServiceError reports a failed call to the language-model API.
type ExternalServiceError struct {
	Service    string
	StatusCode int
	Err        error
}

// Error implements the error interface.
func (e *ExternalServiceError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s request failed with status %d: %v", e.Service, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s request failed: %v", e.Service, e.Err)
}

// Unwrap returns the underlying error.
func (e *ExternalServiceError) Unwrap() error {
	return e.Err
}

// IsExternalServiceError reports whether err is or wraps an ExternalServiceError.
func IsExternalServiceError(err error) bool {
	var svcErr *ExternalServiceError
	return errors.As(err, &svcErr)
}
