package compare

import "fmt"

// InsufficientDataError is returned when there is nothing to compare:
// the target page failed, or every competitor did.
type InsufficientDataError struct {
	Reason string
}

// Error implements the error interface.
func (e *InsufficientDataError) Error() string {
	return fmt.Sprintf("insufficient data for comparison: %s", e.Reason)
}
