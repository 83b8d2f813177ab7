package metadata

import "fmt"

// Error kinds reported through ErrorKind.
const (
	KindMalformed    = "malformed_metadata"
	KindMissingField = "missing_field"
)

// MalformedMetadataError reports a descriptor that is not a JSON object.
type MalformedMetadataError struct {
	Path string
	Err  error
}

func (e *MalformedMetadataError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("malformed metadata %s", e.Path)
	}
	return fmt.Sprintf("malformed metadata %s: %v", e.Path, e.Err)
}

func (e *MalformedMetadataError) Unwrap() error { return e.Err }

// ErrorKind implements the error classification used across pairmux.
func (e *MalformedMetadataError) ErrorKind() string { return KindMalformed }

// MissingFieldError reports a required field that is absent, empty or of the wrong shape.
type MissingFieldError struct {
	Path   string
	Field  string
	Reason string
}

func (e *MissingFieldError) Error() string {
	msg := fmt.Sprintf("metadata %s: missing field %q", e.Path, e.Field)
	if e.Reason != "" {
		msg += " (" + e.Reason + ")"
	}
	return msg
}

// ErrorKind implements the error classification used across pairmux.
func (e *MissingFieldError) ErrorKind() string { return KindMissingField }
