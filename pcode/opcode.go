// Package pcode defines the value types produced by a decoding engine:
// address spaces, varnodes, pcode operations, and decoded instructions.
package pcode

import "fmt"

// OpCode identifies one pcode operation kind. The numeric values match
// the operation table of the architecture-description format and are
// stable across engine instances.
type OpCode int

const (
	OpCopy       OpCode = 1
	OpLoad       OpCode = 2
	OpStore      OpCode = 3
	OpBranch     OpCode = 4
	OpCBranch    OpCode = 5
	OpBranchInd  OpCode = 6
	OpCall       OpCode = 7
	OpCallInd    OpCode = 8
	OpCallOther  OpCode = 9
	OpReturn     OpCode = 10
	OpIntEqual   OpCode = 11
	OpIntNotEq   OpCode = 12
	OpIntSLess   OpCode = 13
	OpIntSLessEq OpCode = 14
	OpIntLess    OpCode = 15
	OpIntLessEq  OpCode = 16
	OpIntZExt    OpCode = 17
	OpIntSExt    OpCode = 18
	OpIntAdd     OpCode = 19
	OpIntSub     OpCode = 20
	OpIntCarry   OpCode = 21
	OpIntSCarry  OpCode = 22
	OpIntSBorrow OpCode = 23
	OpInt2Comp   OpCode = 24
	OpIntNegate  OpCode = 25
	OpIntXor     OpCode = 26
	OpIntAnd     OpCode = 27
	OpIntOr      OpCode = 28
	OpIntLeft    OpCode = 29
	OpIntRight   OpCode = 30
	OpIntSRight  OpCode = 31
	OpIntMult    OpCode = 32
	OpIntDiv     OpCode = 33
	OpIntSDiv    OpCode = 34
	OpIntRem     OpCode = 35
	OpIntSRem    OpCode = 36
	OpBoolNegate OpCode = 37
	OpBoolXor    OpCode = 38
	OpBoolAnd    OpCode = 39
	OpBoolOr     OpCode = 40
	OpFloatEqual OpCode = 41
	OpFloatNotEq OpCode = 42
	OpFloatLess  OpCode = 43
	OpFloatLessE OpCode = 44
	OpFloatNaN   OpCode = 46
	OpFloatAdd   OpCode = 47
	OpFloatDiv   OpCode = 48
	OpFloatMult  OpCode = 49
	OpFloatSub   OpCode = 50
	OpFloatNeg   OpCode = 51
	OpFloatAbs   OpCode = 52
	OpFloatSqrt  OpCode = 53
	OpInt2Float  OpCode = 54
	OpFloat2Flt  OpCode = 55
	OpFloatTrunc OpCode = 56
	OpFloatCeil  OpCode = 57
	OpFloatFloor OpCode = 58
	OpFloatRound OpCode = 59
	OpMultiEqual OpCode = 60
	OpIndirect   OpCode = 61
	OpPiece      OpCode = 62
	OpSubPiece   OpCode = 63
	OpCast       OpCode = 64
	OpPtrAdd     OpCode = 65
	OpPtrSub     OpCode = 66
	OpSegmentOp  OpCode = 67
	OpCPoolRef   OpCode = 68
	OpNew        OpCode = 69
	OpInsert     OpCode = 70
	OpExtract    OpCode = 71
	OpPopCount   OpCode = 72
	OpLzCount    OpCode = 73
)

var opNames = map[OpCode]string{
	OpCopy:       "COPY",
	OpLoad:       "LOAD",
	OpStore:      "STORE",
	OpBranch:     "BRANCH",
	OpCBranch:    "CBRANCH",
	OpBranchInd:  "BRANCHIND",
	OpCall:       "CALL",
	OpCallInd:    "CALLIND",
	OpCallOther:  "CALLOTHER",
	OpReturn:     "RETURN",
	OpIntEqual:   "INT_EQUAL",
	OpIntNotEq:   "INT_NOTEQUAL",
	OpIntSLess:   "INT_SLESS",
	OpIntSLessEq: "INT_SLESSEQUAL",
	OpIntLess:    "INT_LESS",
	OpIntLessEq:  "INT_LESSEQUAL",
	OpIntZExt:    "INT_ZEXT",
	OpIntSExt:    "INT_SEXT",
	OpIntAdd:     "INT_ADD",
	OpIntSub:     "INT_SUB",
	OpIntCarry:   "INT_CARRY",
	OpIntSCarry:  "INT_SCARRY",
	OpIntSBorrow: "INT_SBORROW",
	OpInt2Comp:   "INT_2COMP",
	OpIntNegate:  "INT_NEGATE",
	OpIntXor:     "INT_XOR",
	OpIntAnd:     "INT_AND",
	OpIntOr:      "INT_OR",
	OpIntLeft:    "INT_LEFT",
	OpIntRight:   "INT_RIGHT",
	OpIntSRight:  "INT_SRIGHT",
	OpIntMult:    "INT_MULT",
	OpIntDiv:     "INT_DIV",
	OpIntSDiv:    "INT_SDIV",
	OpIntRem:     "INT_REM",
	OpIntSRem:    "INT_SREM",
	OpBoolNegate: "BOOL_NEGATE",
	OpBoolXor:    "BOOL_XOR",
	OpBoolAnd:    "BOOL_AND",
	OpBoolOr:     "BOOL_OR",
	OpFloatEqual: "FLOAT_EQUAL",
	OpFloatNotEq: "FLOAT_NOTEQUAL",
	OpFloatLess:  "FLOAT_LESS",
	OpFloatLessE: "FLOAT_LESSEQUAL",
	OpFloatNaN:   "FLOAT_NAN",
	OpFloatAdd:   "FLOAT_ADD",
	OpFloatDiv:   "FLOAT_DIV",
	OpFloatMult:  "FLOAT_MULT",
	OpFloatSub:   "FLOAT_SUB",
	OpFloatNeg:   "FLOAT_NEG",
	OpFloatAbs:   "FLOAT_ABS",
	OpFloatSqrt:  "FLOAT_SQRT",
	OpInt2Float:  "INT2FLOAT",
	OpFloat2Flt:  "FLOAT2FLOAT",
	OpFloatTrunc: "TRUNC",
	OpFloatCeil:  "CEIL",
	OpFloatFloor: "FLOOR",
	OpFloatRound: "ROUND",
	OpMultiEqual: "MULTIEQUAL",
	OpIndirect:   "INDIRECT",
	OpPiece:      "PIECE",
	OpSubPiece:   "SUBPIECE",
	OpCast:       "CAST",
	OpPtrAdd:     "PTRADD",
	OpPtrSub:     "PTRSUB",
	OpSegmentOp:  "SEGMENTOP",
	OpCPoolRef:   "CPOOLREF",
	OpNew:        "NEW",
	OpInsert:     "INSERT",
	OpExtract:    "EXTRACT",
	OpPopCount:   "POPCOUNT",
	OpLzCount:    "LZCOUNT",
}

// String returns the canonical operation name, e.g. "INT_ADD".
func (op OpCode) String() string {
	if name, ok := opNames[op]; ok {
		return name
	}
	return fmt.Sprintf("OPCODE(%d)", int(op))
}

// IsBranch reports whether the operation transfers control: any of
// BRANCH, CBRANCH, BRANCHIND, CALL, CALLIND, and RETURN.
func (op OpCode) IsBranch() bool {
	switch op {
	case OpBranch, OpCBranch, OpBranchInd, OpCall, OpCallInd, OpReturn:
		return true
	}
	return false
}
