package engine

import (
	"fmt"
	"sort"
	"sync"

	"github.com/birchlake/pcodebind/arch"
)

// MemoryReader supplies instruction bytes to a backend during one
// decode call. ReadAt fills buf from the bound image, zero-filling
// uncovered bytes, and returns the number of covered bytes; it fails
// with the image package's unavailable-memory condition when nothing
// is covered.
type MemoryReader interface {
	ReadAt(addr uint64, buf []byte) (int, error)
}

// Backend is one instantiation of an external decoder bound to one
// architecture description. Implementations are not required to be
// safe for concurrent use; the owning Engine serializes access.
type Backend interface {
	// SetContext sets one named disassembly-context value. Backends
	// may be called any number of times before the first DecodeAt.
	SetContext(name string, value uint32) error

	// DecodeAt decodes a single instruction at addr, reading bytes
	// through mem and emitting output through asm and ops. It returns
	// the encoded instruction length in bytes.
	DecodeAt(mem MemoryReader, addr uint64, asm *AsmEmitter, ops *PcodeEmitter) (int, error)
}

// Driver creates backends for one decoder family. Drivers register
// themselves by name, typically from an init function, and are looked
// up by the decoder field of an architecture description.
type Driver interface {
	Open(spec *arch.Spec) (Backend, error)
}

var (
	driversMu sync.RWMutex
	drivers   = make(map[string]Driver)
)

// RegisterDriver makes a decoder driver available under the given
// name. It panics if called twice with the same name or with a nil
// driver.
func RegisterDriver(name string, driver Driver) {
	driversMu.Lock()
	defer driversMu.Unlock()
	if driver == nil {
		panic("engine: RegisterDriver driver is nil")
	}
	if _, dup := drivers[name]; dup {
		panic("engine: RegisterDriver called twice for driver " + name)
	}
	drivers[name] = driver
}

// Drivers returns the names of the registered drivers, sorted.
func Drivers() []string {
	driversMu.RLock()
	defer driversMu.RUnlock()
	names := make([]string, 0, len(drivers))
	for name := range drivers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func openBackend(spec *arch.Spec) (Backend, error) {
	driversMu.RLock()
	driver, ok := drivers[spec.Decoder]
	driversMu.RUnlock()
	if !ok {
		return nil, &arch.SpecParseError{
			Err: fmt.Errorf("unknown decoder %q (forgotten import?)", spec.Decoder),
		}
	}
	return driver.Open(spec)
}
