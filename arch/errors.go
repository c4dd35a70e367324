package arch

import (
	"errors"
	"fmt"
)

// ErrUnknownRegister is returned by register lookups that miss.
var ErrUnknownRegister = errors.New("unknown register")

// ErrUnknownSpace is returned by address-space lookups that miss.
var ErrUnknownSpace = errors.New("unknown address space")

// SpecParseError reports an unreadable or malformed architecture
// description. Construction fails; there is nothing to retry.
type SpecParseError struct {
	Path string
	Err  error
}

func (e *SpecParseError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("parsing architecture description: %v", e.Err)
	}
	return fmt.Sprintf("parsing architecture description %s: %v", e.Path, e.Err)
}

func (e *SpecParseError) Unwrap() error {
	return e.Err
}
