package typedesc

import "fmt"

// MetadataError reports that a referenced type could not be resolved or
// that a description violates the model's invariants. It is always
// surfaced, never silently defaulted.
type MetadataError struct {
	TypeName string
	Reason   string
	Err      error // underlying cause, if any
}

func (e *MetadataError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("typedesc: %s: %s: %v", e.TypeName, e.Reason, e.Err)
	}
	return fmt.Sprintf("typedesc: %s: %s", e.TypeName, e.Reason)
}

func (e *MetadataError) Unwrap() error {
	return e.Err
}
