package engine

import "github.com/birchlake/pcodebind/pcode"

// AsmEmitter accumulates the disassembly text a backend emits during
// one decode call. A fresh emitter is constructed per call; reusing one
// across calls is a correctness bug.
type AsmEmitter struct {
	dis     pcode.Disassembly
	emitted bool
}

// Emit records the mnemonic and operand text. A backend calls this
// exactly once per successful decode; later calls overwrite.
func (e *AsmEmitter) Emit(mnemonic, operands string) {
	e.dis = pcode.Disassembly{Mnemonic: mnemonic, Operands: operands}
	e.emitted = true
}

// Disassembly returns the accumulated text and whether anything was
// emitted.
func (e *AsmEmitter) Disassembly() (pcode.Disassembly, bool) {
	return e.dis, e.emitted
}

// PcodeEmitter accumulates the operations a backend emits during one
// decode call, in the order the architecture's semantics produce them.
type PcodeEmitter struct {
	ops []pcode.RawPcodeOp
}

// Emit appends one operation.
func (e *PcodeEmitter) Emit(op pcode.RawPcodeOp) {
	e.ops = append(e.ops, op)
}

// Ops returns the accumulated operations.
func (e *PcodeEmitter) Ops() []pcode.RawPcodeOp {
	return e.ops
}
