package behaviorledger

import (
	"errors"
	"fmt"
)

// ErrorCode identifies a ledger error category.
type ErrorCode string

const (
	ErrCodeDuplicateEntry ErrorCode = "DUPLICATE_ENTRY"
	ErrCodeInvalidEntry   ErrorCode = "INVALID_ENTRY"
	ErrCodeUnknownEntry   ErrorCode = "UNKNOWN_ENTRY"
	ErrCodeNotActive      ErrorCode = "NOT_ACTIVE"
)

// DuplicateEntryError is returned by Append when the entry id is taken.
type DuplicateEntryError struct {
	ID string
}

func (e *DuplicateEntryError) Error() string {
	return fmt.Sprintf("%s: entry %q already appended", ErrCodeDuplicateEntry, e.ID)
}

// IsDuplicateEntry reports whether err is a DuplicateEntryError.
func IsDuplicateEntry(err error) bool {
	var de *DuplicateEntryError
	return errors.As(err, &de)
}

// LedgerError reports any other rejected ledger operation.
type LedgerError struct {
	Code    ErrorCode
	EntryID string
	Message string
}

func (e *LedgerError) Error() string {
	if e.EntryID == "" {
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
	return fmt.Sprintf("%s: entry %q: %s", e.Code, e.EntryID, e.Message)
}

// ErrorCodeOf returns the code of a ledger error, or "" if err is not one.
func ErrorCodeOf(err error) ErrorCode {
	var de *DuplicateEntryError
	if errors.As(err, &de) {
		return ErrCodeDuplicateEntry
	}
	var le *LedgerError
	if errors.As(err, &le) {
		return le.Code
	}
	return ""
}
