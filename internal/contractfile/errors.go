package contractfile

import (
	"errors"
	"fmt"

	"cuelang.org/go/cue/token"
)

// Error codes for manifest loading.
const (
	ErrCodeRead        = "E201" // File could not be read
	ErrCodeParse       = "E202" // YAML or CUE syntax error
	ErrCodeInvalid     = "E203" // Descriptor failed validation
	ErrCodeUnsupported = "E204" // Unknown file extension
	ErrCodeNoFiles     = "E205" // No manifest files found
)

// LoadError reports a manifest that could not be loaded.
type LoadError struct {
	Code    string
	Path    string
	ID      string
	Message string
	Pos     token.Pos
	Err     error
}

func (e *LoadError) Error() string {
	loc := e.Path
	if e.Pos.IsValid() {
		loc = fmt.Sprintf("%s:%d:%d", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column())
	}
	msg := e.Message
	if e.ID != "" {
		msg = fmt.Sprintf("%q: %s", e.ID, msg)
	}
	if loc == "" {
		return fmt.Sprintf("%s: %s", e.Code, msg)
	}
	return fmt.Sprintf("%s: %s: %s", loc, e.Code, msg)
}

func (e *LoadError) Unwrap() error { return e.Err }

// IsLoadError reports whether err is a LoadError with the given code.
func IsLoadError(err error, code string) bool {
	var le *LoadError
	return errors.As(err, &le) && le.Code == code
}
