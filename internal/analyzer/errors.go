package analyzer

import (
	"errors"
	"fmt"
)

// ParseError is returned when a body cannot be analyzed as HTML:
// it is empty, binary, or contains no element nodes.
type ParseError struct {
	URL    string
	Reason string
}

// Error implements the error interface.
func (e *ParseError) Error() string {
	if e.URL == "" {
		return fmt.Sprintf("parse error: %s", e.Reason)
	}
	return fmt.Sprintf("parse error for %s: %s", e.URL, e.Reason)
}

// IsParseError reports whether err is or wraps a *ParseError.
func IsParseError(err error) bool {
	var pe *ParseError
	return errors.As(err, &pe)
}
