package pcode

import (
	"fmt"
	"strings"
)

// Disassembly is the textual form of one decoded instruction.
type Disassembly struct {
	Mnemonic string
	Operands string
}

func (d Disassembly) String() string {
	if d.Operands == "" {
		return d.Mnemonic
	}
	return d.Mnemonic + " " + d.Operands
}

// Instruction is one fully decoded machine instruction: its location,
// encoded length, disassembly text, and the ordered pcode operations it
// expands to. Values are owned by the caller and hold no reference to
// engine state.
type Instruction struct {
	Address     uint64
	Length      uint32
	Disassembly Disassembly
	Ops         []RawPcodeOp
}

// NextAddr returns the address immediately after this instruction.
func (i Instruction) NextAddr() uint64 {
	return i.Address + uint64(i.Length)
}

// TerminatesBasicBlock reports whether any operation transfers control,
// which ends a straight-line block during linear sweeps.
func (i Instruction) TerminatesBasicBlock() bool {
	for _, op := range i.Ops {
		if op.Opcode.IsBranch() {
			return true
		}
	}
	return false
}

// Clone returns a deep copy sharing no slices with the receiver.
func (i Instruction) Clone() Instruction {
	out := i
	if i.Ops != nil {
		out.Ops = make([]RawPcodeOp, len(i.Ops))
		for k, op := range i.Ops {
			out.Ops[k] = op.Clone()
		}
	}
	return out
}

func (i Instruction) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%#x: %s", i.Address, i.Disassembly)
	return b.String()
}
