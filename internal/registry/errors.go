package registry

import (
	"errors"
	"fmt"
)

// ErrorCode categorizes registry errors.
type ErrorCode string

const (
	// ErrCodeDuplicateRule indicates a rule id is already registered.
	ErrCodeDuplicateRule ErrorCode = "DUPLICATE_RULE"

	// ErrCodeDuplicateConstraint indicates a constraint id is already registered.
	ErrCodeDuplicateConstraint ErrorCode = "DUPLICATE_CONSTRAINT"
)

// DuplicateIDError is returned when an id is registered twice in the same
// namespace. It indicates a programming mistake, not a runtime condition.
type DuplicateIDError struct {
	Code ErrorCode
	ID   string
}

// Error implements the error interface.
func (e *DuplicateIDError) Error() string {
	kind := "rule"
	if e.Code == ErrCodeDuplicateConstraint {
		kind = "constraint"
	}
	return fmt.Sprintf("%s: %s %q already registered", e.Code, kind, e.ID)
}

// IsDuplicateID returns true if err is a DuplicateIDError.
// Uses errors.As to handle wrapped errors.
func IsDuplicateID(err error) bool {
	var de *DuplicateIDError
	return errors.As(err, &de)
}
