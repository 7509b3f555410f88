package arm64

import "github.com/albanread/fasterbasic-arm64cg/internal/ir"

// RecordKind is the structured-stream's closed kind tag (spec.md §4.9):
// one value per concrete mnemonic family, plus labels, function
// begin/end, data directives, and comments.
type RecordKind byte

const (
	RecLabel RecordKind = iota
	RecFuncBegin
	RecFuncEnd
	RecComment
	RecDirective

	RecMovz
	RecMovn
	RecOrr
	RecMovk
	RecAdd
	RecSub
	RecMul
	RecMadd
	RecMsub
	RecFmadd
	RecFmsub
	RecAnd
	RecEor
	RecNeg
	RecMvn
	RecSdiv
	RecUdiv
	RecLsl
	RecLsr
	RecAsr
	RecCmp
	RecCset
	RecMov
	RecLdr
	RecStr
	RecLdp
	RecStp
	RecAdrp
	RecAdr
	RecBl
	RecBlr
	RecBr
	RecB
	RecBCond
	RecCbz
	RecCbnz
	RecBrk
	RecRet
	RecHint
	RecMrs
	RecFmov
	RecSmov
	RecAddv
	RecFaddp
	RecVecAdd
	RecVecSub
	RecVecMul
	RecVecAnd
	RecVecOr
	RecVecXor
	RecVecFma
	RecLd1
	RecSt1
)

// RegSlot is the record format's fixed-width register reference: 0 is
// "none", a small set of positive sentinels name SP/FP/LR/IP0/IP1/ZR, a
// positive range above those names GPRs, and a negative range names NEON
// registers (spec.md §6).
type RegSlot int16

const (
	RSNone RegSlot = 0
	RSSP   RegSlot = 1
	RSFP   RegSlot = 2
	RSLR   RegSlot = 3
	RSIP0  RegSlot = 4
	RSIP1  RegSlot = 5
	RSZR   RegSlot = 6
	rsGPR0 RegSlot = 7 // GPR n encodes as rsGPR0+n
)

// EncodeReg converts a physical register into its structured-stream slot.
func EncodeReg(r ir.PReg) RegSlot {
	switch r.Kind {
	case ir.PRNone:
		return RSNone
	case ir.PRSP:
		return RSSP
	case ir.PRFP:
		return RSFP
	case ir.PRLR:
		return RSLR
	case ir.PRIP0:
		return RSIP0
	case ir.PRIP1:
		return RSIP1
	case ir.PRZR:
		return RSZR
	case ir.PRGPR:
		return rsGPR0 + RegSlot(r.Num)
	case ir.PRVReg:
		return -RegSlot(r.Num) - 1
	default:
		return RSNone
	}
}

// symbolBufLen is the inline symbol-name buffer's capacity: 79 characters
// plus a null terminator (spec.md §4.9).
const symbolBufLen = 80

// Record is one fixed-width entry in the structured instruction stream
// (spec.md §4.9): a kind tag, a class tag, a condition tag, a shift tag,
// four register slots, two immediates, a branch-target id, and an inline
// symbol-name buffer. This is the out-of-process-encoder-facing sibling of
// the text emitter. Records follow the text path's instruction order, except
// that the shifted-operand and indexed-addressing folds are not applied and
// slot offsets are recorded without the text path's out-of-range fixup.
type Record struct {
	Kind  RecordKind
	Class ir.Class
	Cond  ir.CondFlag

	ShiftKind byte // 0 none, 1 LSL, 2 LSR, 3 ASR
	ShiftAmt  byte

	Regs [4]RegSlot
	Imm  [2]int64

	BranchTarget uint64
	Symbol       [symbolBufLen]byte
}

func recordSymbol(s string) (buf [symbolBufLen]byte) {
	if len(s) > symbolBufLen-1 {
		s = s[:symbolBufLen-1]
	}
	copy(buf[:], s)
	return buf
}

// Stream is a flat, growable array of Records (spec.md §4.9).
type Stream struct {
	Records []Record
}

func (s *Stream) append(r Record) { s.Records = append(s.Records, r) }

// Label appends a label record using target-id only (spec.md §4.9: "label
// emission uses target-id only").
func (s *Stream) Label(id uint64) { s.append(Record{Kind: RecLabel, BranchTarget: id}) }

func (s *Stream) FuncBegin(name string) {
	s.append(Record{Kind: RecFuncBegin, Symbol: recordSymbol(name)})
}

func (s *Stream) FuncEnd(name string) {
	s.append(Record{Kind: RecFuncEnd, Symbol: recordSymbol(name)})
}

func (s *Stream) Comment(text string) {
	s.append(Record{Kind: RecComment, Symbol: recordSymbol(text)})
}

// Reg3 appends a record filling all four register slots (dst, arg0, arg1,
// arg2; pass ir.None.Reg for an unused arg2) — covers the common
// three-register ALU shape and the four-register MADD/MSUB/FMADD/FMSUB results
// (spec_full.md §4.9's added fmadd/fmsub record kinds, closing the gap the
// distilled spec left open).
func (s *Stream) Reg3(kind RecordKind, class ir.Class, dst, a0, a1, a2 ir.PReg) {
	s.append(Record{Kind: kind, Class: class, Regs: [4]RegSlot{EncodeReg(dst), EncodeReg(a0), EncodeReg(a1), EncodeReg(a2)}})
}

func (s *Stream) Reg2(kind RecordKind, class ir.Class, dst, a0 ir.PReg) {
	s.append(Record{Kind: kind, Class: class, Regs: [4]RegSlot{EncodeReg(dst), EncodeReg(a0)}})
}

func (s *Stream) RegImm(kind RecordKind, class ir.Class, dst ir.PReg, imm int64, shiftAmt byte) {
	s.append(Record{Kind: kind, Class: class, Regs: [4]RegSlot{EncodeReg(dst)}, Imm: [2]int64{imm}, ShiftAmt: shiftAmt})
}

func (s *Stream) Mem(kind RecordKind, class ir.Class, valueReg ir.PReg, baseReg ir.PReg, offset int64) {
	s.append(Record{Kind: kind, Class: class, Regs: [4]RegSlot{EncodeReg(valueReg), EncodeReg(baseReg)}, Imm: [2]int64{offset}})
}

func (s *Stream) Pair(kind RecordKind, class ir.Class, r1, r2, base ir.PReg, offset int64) {
	s.append(Record{Kind: kind, Class: class, Regs: [4]RegSlot{EncodeReg(r1), EncodeReg(r2), EncodeReg(base)}, Imm: [2]int64{offset}})
}

func (s *Stream) CondBranch(kind RecordKind, cond ir.CondFlag, testReg ir.PReg, target uint64) {
	s.append(Record{Kind: kind, Cond: cond, Regs: [4]RegSlot{EncodeReg(testReg)}, BranchTarget: target})
}

func (s *Stream) Branch(kind RecordKind, target uint64) {
	s.append(Record{Kind: kind, BranchTarget: target})
}

func (s *Stream) Call(sym string) {
	s.append(Record{Kind: RecBl, Symbol: recordSymbol(sym)})
}

func (s *Stream) Simple(kind RecordKind) { s.append(Record{Kind: kind}) }

// StreamMadd appends the fused multiply-add/subtract record the text
// emitter's tryMaddMsub would have produced for the same fusion decision
// (spec_full.md §4.9).
func (s *Stream) StreamMadd(class ir.Class, isFloat, isSub bool, dst, a, b, addend ir.PReg) {
	kind := RecMadd
	switch {
	case isFloat && !isSub:
		kind = RecFmadd
	case isFloat && isSub:
		kind = RecFmsub
	case !isFloat && isSub:
		kind = RecMsub
	}
	s.Reg3(kind, class, dst, a, b, addend)
}
