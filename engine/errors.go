package engine

import (
	"errors"
	"fmt"
)

// ErrNoImage is returned by decode calls on an engine with no bound
// image.
var ErrNoImage = errors.New("no image bound")

// ErrContextSealed is returned when a context value is set after the
// first decode. The backend reads its context once, so later writes
// would silently not take effect.
var ErrContextSealed = errors.New("context sealed after first decode")

// DecodeError reports that the backend found no valid instruction
// encoding at an address. Decoding at a different address may still
// succeed.
type DecodeError struct {
	Addr uint64
	Err  error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decoding at %#x: %v", e.Addr, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}
