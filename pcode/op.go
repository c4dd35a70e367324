package pcode

import (
	"fmt"
	"strings"
)

// RawPcodeOp is one operation of the intermediate representation as the
// decoder emitted it: an opcode, zero or more order-significant inputs,
// and an optional output. Space is the address space the operation was
// decoded in.
type RawPcodeOp struct {
	Opcode OpCode
	Output *Varnode
	Inputs []Varnode
	Space  *AddressSpace
}

// HasOutput reports whether the operation writes a result.
func (op RawPcodeOp) HasOutput() bool {
	return op.Output != nil
}

// Clone returns a deep copy sharing no slices with the receiver.
func (op RawPcodeOp) Clone() RawPcodeOp {
	out := op
	if op.Output != nil {
		o := *op.Output
		out.Output = &o
	}
	if op.Inputs != nil {
		out.Inputs = make([]Varnode, len(op.Inputs))
		copy(out.Inputs, op.Inputs)
	}
	return out
}

// String renders the operation as "out = OPCODE in0, in1".
func (op RawPcodeOp) String() string {
	var b strings.Builder
	if op.Output != nil {
		fmt.Fprintf(&b, "%s = ", op.Output)
	}
	b.WriteString(op.Opcode.String())
	for i, in := range op.Inputs {
		if i == 0 {
			b.WriteString(" ")
		} else {
			b.WriteString(", ")
		}
		b.WriteString(in.String())
	}
	return b.String()
}
