package discovery

import (
	"fmt"

	"pairmux/internal/metadata"
)

// Discovery error kinds.
const (
	KindMalformedMetadata = metadata.KindMalformed
	KindMissingField      = metadata.KindMissingField
	KindSourceNotFound    = "source_not_found"
	KindOutputCollision   = "output_collision"
)

// DiscoveryError describes why a subdirectory did not produce a task.
type DiscoveryError struct {
	// Dir is the offending subdirectory, relative to the discovery root.
	Dir   string `json:"dir"`
	Kind  string `json:"kind"`
	Field string `json:"field,omitempty"`
	// Path is the missing source file or the contested output file, when relevant.
	Path string `json:"path,omitempty"`
	Err  error  `json:"-"`
}

func (e *DiscoveryError) Error() string {
	switch e.Kind {
	case KindMissingField:
		return fmt.Sprintf("%s: missing field %s", e.Dir, e.Field)
	case KindSourceNotFound:
		return fmt.Sprintf("%s: %s source not found: %s", e.Dir, e.Field, e.Path)
	case KindOutputCollision:
		return fmt.Sprintf("%s: output %s collides with an earlier episode", e.Dir, e.Path)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Dir, e.Kind, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Dir, e.Kind)
}

func (e *DiscoveryError) Unwrap() error { return e.Err }

// ErrorKind implements the error classification used across pairmux.
func (e *DiscoveryError) ErrorKind() string { return e.Kind }

// Detail returns the underlying cause as text for reports.
func (e *DiscoveryError) Detail() string {
	if e.Err == nil {
		return ""
	}
	return e.Err.Error()
}
