package cfdi

import (
	"errors"
	"fmt"
)

// Common invoice document errors
var (
	// ErrMalformedDocument is returned when the XML cannot be decoded at all.
	ErrMalformedDocument = errors.New("malformed CFDI document")

	// ErrInvalidRecipient is returned when the Receptor RFC does not match
	// the configured recipient, meaning the invoice belongs to another
	// legal entity filed in the same folder tree.
	ErrInvalidRecipient = errors.New("invalid recipient RFC")

	// ErrMissingDate is returned when the Fecha attribute is absent or not
	// a valid ISO-8601 timestamp.
	ErrMissingDate = errors.New("missing or invalid issue date")

	// ErrMissingAmount is returned when SubTotal or Total is absent or not
	// a valid decimal amount.
	ErrMissingAmount = errors.New("missing or invalid amount")
)

// ParseError wraps failures to decode a document's structure.
type ParseError struct {
	// File is the path of the document that failed to parse.
	File string

	// Err is the underlying error.
	Err error
}

// Error implements the error interface.
func (e *ParseError) Error() string {
	return fmt.Sprintf("cfdi: parsing %s: %v", e.File, e.Err)
}

// Unwrap returns the underlying error for error unwrapping.
func (e *ParseError) Unwrap() error {
	return e.Err
}

// ValidationError reports a structurally valid document whose content fails
// one of the acceptance checks.
type ValidationError struct {
	// File is the path of the offending document.
	File string

	// Err is one of the sentinel errors above.
	Err error

	// Detail carries the offending value, when one exists.
	Detail string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("cfdi: validating %s: %v: %s", e.File, e.Err, e.Detail)
	}
	return fmt.Sprintf("cfdi: validating %s: %v", e.File, e.Err)
}

// Unwrap returns the underlying error for error unwrapping.
func (e *ValidationError) Unwrap() error {
	return e.Err
}

// Is implements error matching for Go 1.13+ error handling.
func (e *ValidationError) Is(target error) bool {
	return errors.Is(e.Err, target)
}
