package arch

import (
	"fmt"

	"github.com/birchlake/pcodebind/pcode"
)

// AllRegisters returns every named register in the canonical order of
// the description's register table (by space, then offset, then size).
// The ordering is stable across loads of the same description. The
// slice is shared; callers must not modify it.
func (s *Spec) AllRegisters() []Register {
	return s.registers
}

// RegisterByName resolves a register name to its storage location.
func (s *Spec) RegisterByName(name string) (pcode.Varnode, error) {
	if reg, ok := s.regByName[name]; ok {
		return reg.Varnode, nil
	}
	return pcode.Varnode{}, fmt.Errorf("%w: %q", ErrUnknownRegister, name)
}

// NameOfVarnode resolves a storage location back to its register name.
// The location must match a table entry exactly; sub-ranges of a named
// register do not resolve.
func (s *Spec) NameOfVarnode(v pcode.Varnode) (string, error) {
	if v.Space == nil {
		return "", fmt.Errorf("%w: varnode has no space", ErrUnknownRegister)
	}
	key := regKey{space: v.Space.Index, offset: v.Offset, size: v.Size}
	if name, ok := s.regByLoc[key]; ok {
		return name, nil
	}
	return "", fmt.Errorf("%w: %s", ErrUnknownRegister, v)
}
