// Package x86 provides the x86 decoder backend. The instruction tables
// come from golang.org/x/arch; this package lowers each decoded
// instruction to pcode operations over the spaces and registers of the
// architecture description. Importing the package registers the "x86"
// driver.
package x86

import (
	"fmt"
	"strings"

	"golang.org/x/arch/x86/x86asm"

	"github.com/birchlake/pcodebind/arch"
	"github.com/birchlake/pcodebind/engine"
	"github.com/birchlake/pcodebind/pcode"
)

// maxInstLen is the architectural limit on one encoded instruction.
// The decoder looks ahead this far, so reads near a section tail rely
// on the image's zero-fill behavior.
const maxInstLen = 15

func init() {
	engine.RegisterDriver("x86", driver{})
}

type driver struct{}

func (driver) Open(spec *arch.Spec) (engine.Backend, error) {
	b := &backend{spec: spec}

	var err error
	if b.consts, err = spec.ConstantSpace(); err != nil {
		return nil, err
	}
	if b.unique, err = spec.UniqueSpace(); err != nil {
		return nil, err
	}
	if b.regs, err = spec.RegisterSpace(); err != nil {
		return nil, err
	}
	b.ram = spec.DefaultCodeSpace()

	switch spec.PointerSize {
	case 4:
		b.mode = 32
	case 8:
		b.mode = 64
	default:
		return nil, fmt.Errorf("unsupported pointer size %d", spec.PointerSize)
	}
	return b, nil
}

type backend struct {
	spec *arch.Spec
	mode int

	consts *pcode.AddressSpace
	unique *pcode.AddressSpace
	regs   *pcode.AddressSpace
	ram    *pcode.AddressSpace
}

// SetContext understands the context variables of the shipped x86
// descriptions: addrsize selects the decode mode, opsize is accepted
// for parity but the instruction tables derive operand size from the
// encoding itself.
func (b *backend) SetContext(name string, value uint32) error {
	switch name {
	case "addrsize":
		switch value {
		case 1:
			b.mode = 32
		case 2:
			b.mode = 64
		default:
			return fmt.Errorf("addrsize %d not supported", value)
		}
	case "opsize":
		if value > 2 {
			return fmt.Errorf("opsize %d not supported", value)
		}
	default:
		return fmt.Errorf("unknown context variable %q", name)
	}
	return nil
}

func (b *backend) DecodeAt(mem engine.MemoryReader, addr uint64, asm *engine.AsmEmitter, ops *engine.PcodeEmitter) (int, error) {
	buf := make([]byte, maxInstLen)
	if _, err := mem.ReadAt(addr, buf); err != nil {
		return 0, err
	}

	inst, err := x86asm.Decode(buf, b.mode)
	if err != nil {
		return 0, fmt.Errorf("no valid encoding: %w", err)
	}

	text := x86asm.IntelSyntax(inst, addr, nil)
	operands := ""
	if i := strings.IndexByte(text, ' '); i >= 0 {
		operands = text[i+1:]
	}
	asm.Emit(inst.Op.String(), operands)

	l := &lifter{b: b, addr: addr, inst: inst}
	for _, op := range l.lift() {
		ops.Emit(op)
	}
	return inst.Len, nil
}
