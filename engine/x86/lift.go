package x86

import (
	"golang.org/x/arch/x86/x86asm"

	"github.com/birchlake/pcodebind/pcode"
)

// lifter lowers one decoded instruction to pcode. Operations buffer in
// l.buf so a lowering that hits an unsupported shape can be discarded
// wholesale and replaced by the CALLOTHER fallback.
type lifter struct {
	b      *backend
	addr   uint64
	inst   x86asm.Inst
	buf    []pcode.RawPcodeOp
	uniq   uint64
	failed bool
}

func (l *lifter) lift() []pcode.RawPcodeOp {
	switch l.inst.Op {
	case x86asm.NOP:
		return nil
	case x86asm.PUSH:
		l.liftPush()
	case x86asm.POP:
		l.liftPop()
	case x86asm.MOV:
		l.liftMov()
	case x86asm.MOVZX:
		l.liftExtend(pcode.OpIntZExt)
	case x86asm.MOVSX, x86asm.MOVSXD:
		l.liftExtend(pcode.OpIntSExt)
	case x86asm.LEA:
		l.liftLea()
	case x86asm.ADD:
		l.liftArith(pcode.OpIntAdd, false)
	case x86asm.SUB:
		l.liftArith(pcode.OpIntSub, false)
	case x86asm.CMP:
		l.liftArith(pcode.OpIntSub, true)
	case x86asm.AND:
		l.liftArith(pcode.OpIntAnd, false)
	case x86asm.OR:
		l.liftArith(pcode.OpIntOr, false)
	case x86asm.XOR:
		l.liftArith(pcode.OpIntXor, false)
	case x86asm.TEST:
		l.liftArith(pcode.OpIntAnd, true)
	case x86asm.INC:
		l.liftStep(pcode.OpIntAdd, pcode.OpIntSCarry)
	case x86asm.DEC:
		l.liftStep(pcode.OpIntSub, pcode.OpIntSBorrow)
	case x86asm.NEG:
		l.liftNeg()
	case x86asm.NOT:
		l.liftNot()
	case x86asm.SHL:
		l.liftShift(pcode.OpIntLeft)
	case x86asm.SHR:
		l.liftShift(pcode.OpIntRight)
	case x86asm.SAR:
		l.liftShift(pcode.OpIntSRight)
	case x86asm.RET:
		l.liftRet()
	case x86asm.CALL:
		l.liftCall()
	case x86asm.JMP:
		l.liftJmp()
	case x86asm.JE, x86asm.JNE, x86asm.JL, x86asm.JLE, x86asm.JG, x86asm.JGE,
		x86asm.JB, x86asm.JBE, x86asm.JA, x86asm.JAE,
		x86asm.JS, x86asm.JNS, x86asm.JO, x86asm.JNO, x86asm.JP, x86asm.JNP:
		l.liftJcc()
	case x86asm.LEAVE:
		l.liftLeave()
	default:
		l.failed = true
	}

	if l.failed {
		return l.fallback()
	}
	return l.buf
}

// fallback represents a decoded but unlowered instruction as a single
// CALLOTHER carrying the decoder's numeric operation id, so consumers
// still see the instruction boundary and its block behavior.
func (l *lifter) fallback() []pcode.RawPcodeOp {
	return []pcode.RawPcodeOp{{
		Opcode: pcode.OpCallOther,
		Inputs: []pcode.Varnode{{Space: l.b.consts, Offset: uint64(l.inst.Op), Size: 4}},
		Space:  l.b.ram,
	}}
}

func (l *lifter) emit(op pcode.OpCode, out *pcode.Varnode, ins ...pcode.Varnode) {
	l.buf = append(l.buf, pcode.RawPcodeOp{
		Opcode: op,
		Output: out,
		Inputs: ins,
		Space:  l.b.ram,
	})
}

func (l *lifter) asize() uint32 {
	return uint32(l.b.mode / 8)
}

// opSize is the operand size in bytes for this encoding.
func (l *lifter) opSize() uint32 {
	if l.inst.DataSize >= 8 {
		return uint32(l.inst.DataSize / 8)
	}
	return l.asize()
}

func (l *lifter) con(v uint64, size uint32) pcode.Varnode {
	return pcode.Varnode{Space: l.b.consts, Offset: v, Size: size}
}

func (l *lifter) temp(size uint32) pcode.Varnode {
	v := pcode.Varnode{Space: l.b.unique, Offset: l.uniq, Size: size}
	l.uniq += 0x10
	return v
}

// spaceID names the load/store target space as a constant input, the
// form LOAD and STORE expect for input0.
func (l *lifter) spaceID() pcode.Varnode {
	return l.con(uint64(l.b.ram.Index), l.asize())
}

func (l *lifter) reg(r x86asm.Reg) pcode.Varnode {
	vn, err := l.b.spec.RegisterByName(r.String())
	if err != nil {
		l.failed = true
		return pcode.Varnode{}
	}
	return vn
}

func (l *lifter) regNamed(name string) pcode.Varnode {
	vn, err := l.b.spec.RegisterByName(name)
	if err != nil {
		l.failed = true
		return pcode.Varnode{}
	}
	return vn
}

func (l *lifter) sp() pcode.Varnode {
	if l.b.mode == 64 {
		return l.regNamed("RSP")
	}
	return l.regNamed("ESP")
}

func (l *lifter) bp() pcode.Varnode {
	if l.b.mode == 64 {
		return l.regNamed("RBP")
	}
	return l.regNamed("EBP")
}

func (l *lifter) flag(name string) pcode.Varnode {
	return l.regNamed(name)
}

func (l *lifter) memSize() uint32 {
	if l.inst.MemBytes <= 0 {
		l.failed = true
		return 0
	}
	return uint32(l.inst.MemBytes)
}

// memAddr lowers an addressing-mode computation, returning the varnode
// holding the effective address.
func (l *lifter) memAddr(m x86asm.Mem) pcode.Varnode {
	if m.Segment == x86asm.FS || m.Segment == x86asm.GS {
		l.failed = true
		return pcode.Varnode{}
	}

	var cur pcode.Varnode
	have := false
	if m.Base != 0 {
		cur = l.reg(m.Base)
		have = true
	}
	if m.Index != 0 {
		scaled := l.temp(l.asize())
		l.emit(pcode.OpIntMult, &scaled, l.reg(m.Index), l.con(uint64(m.Scale), l.asize()))
		if have {
			sum := l.temp(l.asize())
			l.emit(pcode.OpIntAdd, &sum, cur, scaled)
			cur = sum
		} else {
			cur = scaled
			have = true
		}
	}
	if m.Disp != 0 || !have {
		disp := l.con(uint64(m.Disp), l.asize())
		if have {
			sum := l.temp(l.asize())
			l.emit(pcode.OpIntAdd, &sum, cur, disp)
			cur = sum
		} else {
			cur = disp
		}
	}
	return cur
}

// value lowers a source operand to the varnode holding its value,
// emitting a LOAD for memory operands.
func (l *lifter) value(arg x86asm.Arg, size uint32) pcode.Varnode {
	switch a := arg.(type) {
	case x86asm.Reg:
		return l.reg(a)
	case x86asm.Imm:
		return l.con(uint64(int64(a)), size)
	case x86asm.Mem:
		addr := l.memAddr(a)
		t := l.temp(l.memSize())
		l.emit(pcode.OpLoad, &t, l.spaceID(), addr)
		return t
	default:
		l.failed = true
		return pcode.Varnode{}
	}
}

// store lowers a write of val to a destination operand.
func (l *lifter) store(dst x86asm.Arg, val pcode.Varnode) {
	switch d := dst.(type) {
	case x86asm.Reg:
		out := l.reg(d)
		l.emit(pcode.OpCopy, &out, val)
	case x86asm.Mem:
		addr := l.memAddr(d)
		l.emit(pcode.OpStore, nil, l.spaceID(), addr, val)
	default:
		l.failed = true
	}
}

// relTarget computes the destination of a relative branch.
func (l *lifter) relTarget(rel x86asm.Rel) uint64 {
	return uint64(int64(l.addr) + int64(l.inst.Len) + int64(rel))
}

// codeAddr is the branch-target form: a varnode in the code space.
func (l *lifter) codeAddr(dest uint64) pcode.Varnode {
	return pcode.Varnode{Space: l.b.ram, Offset: dest, Size: l.asize()}
}

// setResultFlags lowers the SF and ZF updates shared by the
// arithmetic and logic forms.
func (l *lifter) setResultFlags(res pcode.Varnode) {
	zero := l.con(0, res.Size)
	sf := l.flag("SF")
	l.emit(pcode.OpIntSLess, &sf, res, zero)
	zf := l.flag("ZF")
	l.emit(pcode.OpIntEqual, &zf, res, zero)
}

func (l *lifter) liftPush() {
	size := l.opSize()
	val := l.value(l.inst.Args[0], size)
	t := l.temp(size)
	l.emit(pcode.OpCopy, &t, val)
	sp := l.sp()
	l.emit(pcode.OpIntSub, &sp, sp, l.con(uint64(size), sp.Size))
	l.emit(pcode.OpStore, nil, l.spaceID(), sp, t)
}

func (l *lifter) liftPop() {
	dst, ok := l.inst.Args[0].(x86asm.Reg)
	if !ok {
		l.failed = true
		return
	}
	out := l.reg(dst)
	sp := l.sp()
	l.emit(pcode.OpLoad, &out, l.spaceID(), sp)
	l.emit(pcode.OpIntAdd, &sp, sp, l.con(uint64(out.Size), sp.Size))
}

func (l *lifter) liftMov() {
	size := l.opSize()
	val := l.value(l.inst.Args[1], size)
	l.store(l.inst.Args[0], val)
}

func (l *lifter) liftExtend(op pcode.OpCode) {
	dst, ok := l.inst.Args[0].(x86asm.Reg)
	if !ok {
		l.failed = true
		return
	}
	out := l.reg(dst)
	val := l.value(l.inst.Args[1], out.Size)
	l.emit(op, &out, val)
}

func (l *lifter) liftLea() {
	dst, ok := l.inst.Args[0].(x86asm.Reg)
	if !ok {
		l.failed = true
		return
	}
	m, ok := l.inst.Args[1].(x86asm.Mem)
	if !ok {
		l.failed = true
		return
	}
	out := l.reg(dst)
	addr := l.memAddr(m)
	switch {
	case addr.Size == out.Size:
		l.emit(pcode.OpCopy, &out, addr)
	case addr.Size > out.Size:
		l.emit(pcode.OpSubPiece, &out, addr, l.con(0, 4))
	default:
		l.emit(pcode.OpIntZExt, &out, addr)
	}
}

// liftArith lowers the two-operand arithmetic and logic forms. discard
// is set for CMP and TEST, which update flags without writing the
// destination.
func (l *lifter) liftArith(op pcode.OpCode, discard bool) {
	dst, src := l.inst.Args[0], l.inst.Args[1]
	size := l.opSize()
	a := l.value(dst, size)
	bv := l.value(src, size)

	cf := l.flag("CF")
	of := l.flag("OF")
	switch op {
	case pcode.OpIntAdd:
		l.emit(pcode.OpIntCarry, &cf, a, bv)
		l.emit(pcode.OpIntSCarry, &of, a, bv)
	case pcode.OpIntSub:
		l.emit(pcode.OpIntLess, &cf, a, bv)
		l.emit(pcode.OpIntSBorrow, &of, a, bv)
	default:
		// Logic forms clear CF and OF.
		l.emit(pcode.OpCopy, &cf, l.con(0, 1))
		l.emit(pcode.OpCopy, &of, l.con(0, 1))
	}

	res := l.resultLoc(dst, size, discard)
	l.emit(op, &res, a, bv)
	l.setResultFlags(res)
	if !discard {
		if _, isMem := dst.(x86asm.Mem); isMem {
			l.store(dst, res)
		}
	}
}

// resultLoc picks where a result lands: the destination register when
// it can take the value directly, a temporary otherwise.
func (l *lifter) resultLoc(dst x86asm.Arg, size uint32, discard bool) pcode.Varnode {
	if r, ok := dst.(x86asm.Reg); ok && !discard {
		return l.reg(r)
	}
	return l.temp(size)
}

func (l *lifter) liftStep(op, overflowOp pcode.OpCode) {
	dst := l.inst.Args[0]
	size := l.opSize()
	a := l.value(dst, size)
	one := l.con(1, size)

	// INC and DEC leave CF alone.
	of := l.flag("OF")
	l.emit(overflowOp, &of, a, one)

	res := l.resultLoc(dst, size, false)
	l.emit(op, &res, a, one)
	l.setResultFlags(res)
	if _, isMem := dst.(x86asm.Mem); isMem {
		l.store(dst, res)
	}
}

func (l *lifter) liftNeg() {
	dst := l.inst.Args[0]
	size := l.opSize()
	a := l.value(dst, size)

	cf := l.flag("CF")
	l.emit(pcode.OpIntNotEq, &cf, a, l.con(0, size))

	res := l.resultLoc(dst, size, false)
	l.emit(pcode.OpInt2Comp, &res, a)
	l.setResultFlags(res)
	if _, isMem := dst.(x86asm.Mem); isMem {
		l.store(dst, res)
	}
}

func (l *lifter) liftNot() {
	dst := l.inst.Args[0]
	size := l.opSize()
	a := l.value(dst, size)
	res := l.resultLoc(dst, size, false)
	l.emit(pcode.OpIntNegate, &res, a)
	if _, isMem := dst.(x86asm.Mem); isMem {
		l.store(dst, res)
	}
}

func (l *lifter) liftShift(op pcode.OpCode) {
	dst, src := l.inst.Args[0], l.inst.Args[1]
	size := l.opSize()
	a := l.value(dst, size)
	count := l.value(src, 1)

	res := l.resultLoc(dst, size, false)
	l.emit(op, &res, a, count)
	l.setResultFlags(res)
	if _, isMem := dst.(x86asm.Mem); isMem {
		l.store(dst, res)
	}
}

func (l *lifter) liftRet() {
	sp := l.sp()
	t := l.temp(l.asize())
	l.emit(pcode.OpLoad, &t, l.spaceID(), sp)
	l.emit(pcode.OpIntAdd, &sp, sp, l.con(uint64(l.asize()), sp.Size))
	if imm, ok := l.inst.Args[0].(x86asm.Imm); ok {
		l.emit(pcode.OpIntAdd, &sp, sp, l.con(uint64(int64(imm)), sp.Size))
	}
	l.emit(pcode.OpReturn, nil, t)
}

// pushReturn lowers the return-address push shared by the call forms.
func (l *lifter) pushReturn() {
	sp := l.sp()
	l.emit(pcode.OpIntSub, &sp, sp, l.con(uint64(l.asize()), sp.Size))
	next := l.con(l.addr+uint64(l.inst.Len), l.asize())
	l.emit(pcode.OpStore, nil, l.spaceID(), sp, next)
}

func (l *lifter) liftCall() {
	switch target := l.inst.Args[0].(type) {
	case x86asm.Rel:
		l.pushReturn()
		l.emit(pcode.OpCall, nil, l.codeAddr(l.relTarget(target)))
	case x86asm.Reg, x86asm.Mem:
		val := l.value(target, l.asize())
		l.pushReturn()
		l.emit(pcode.OpCallInd, nil, val)
	default:
		l.failed = true
	}
}

func (l *lifter) liftJmp() {
	switch target := l.inst.Args[0].(type) {
	case x86asm.Rel:
		l.emit(pcode.OpBranch, nil, l.codeAddr(l.relTarget(target)))
	case x86asm.Reg, x86asm.Mem:
		val := l.value(target, l.asize())
		l.emit(pcode.OpBranchInd, nil, val)
	default:
		l.failed = true
	}
}

func (l *lifter) liftJcc() {
	rel, ok := l.inst.Args[0].(x86asm.Rel)
	if !ok {
		l.failed = true
		return
	}
	cond := l.condition()
	if l.failed {
		return
	}
	l.emit(pcode.OpCBranch, nil, l.codeAddr(l.relTarget(rel)), cond)
}

// condition lowers the flag predicate of a conditional jump into a
// one-byte varnode.
func (l *lifter) condition() pcode.Varnode {
	not := func(v pcode.Varnode) pcode.Varnode {
		t := l.temp(1)
		l.emit(pcode.OpBoolNegate, &t, v)
		return t
	}
	both := func(op pcode.OpCode, a, b pcode.Varnode) pcode.Varnode {
		t := l.temp(1)
		l.emit(op, &t, a, b)
		return t
	}

	switch l.inst.Op {
	case x86asm.JE:
		return l.flag("ZF")
	case x86asm.JNE:
		return not(l.flag("ZF"))
	case x86asm.JL:
		return both(pcode.OpIntNotEq, l.flag("SF"), l.flag("OF"))
	case x86asm.JGE:
		return both(pcode.OpIntEqual, l.flag("SF"), l.flag("OF"))
	case x86asm.JLE:
		ne := both(pcode.OpIntNotEq, l.flag("SF"), l.flag("OF"))
		return both(pcode.OpBoolOr, ne, l.flag("ZF"))
	case x86asm.JG:
		eq := both(pcode.OpIntEqual, l.flag("SF"), l.flag("OF"))
		return both(pcode.OpBoolAnd, eq, not(l.flag("ZF")))
	case x86asm.JB:
		return l.flag("CF")
	case x86asm.JAE:
		return not(l.flag("CF"))
	case x86asm.JBE:
		return both(pcode.OpBoolOr, l.flag("CF"), l.flag("ZF"))
	case x86asm.JA:
		return not(both(pcode.OpBoolOr, l.flag("CF"), l.flag("ZF")))
	case x86asm.JS:
		return l.flag("SF")
	case x86asm.JNS:
		return not(l.flag("SF"))
	case x86asm.JO:
		return l.flag("OF")
	case x86asm.JNO:
		return not(l.flag("OF"))
	case x86asm.JP:
		return l.flag("PF")
	case x86asm.JNP:
		return not(l.flag("PF"))
	}
	l.failed = true
	return pcode.Varnode{}
}

func (l *lifter) liftLeave() {
	sp := l.sp()
	bp := l.bp()
	l.emit(pcode.OpCopy, &sp, bp)
	l.emit(pcode.OpLoad, &bp, l.spaceID(), sp)
	l.emit(pcode.OpIntAdd, &sp, sp, l.con(uint64(l.asize()), sp.Size))
}
