package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/albanread/fasterbasic-arm64cg/internal/ir"
)

// parseFixture reads the tiny s-expression fixture grammar the demo needs
// (spec_full.md §4.13): one function literal, its blocks, and their
// instructions/terminators. This is deliberately not a general IR parser —
// spec.md §1 places that upstream — just enough surface to drive the
// emitter from a text file for manual inspection.
func parseFixture(src string) (*ir.Function, error) {
	toks := tokenize(src)
	p := &fixtureParser{toks: toks}
	fn, err := p.parseFunc()
	if err != nil {
		return nil, err
	}
	return fn, nil
}

func tokenize(src string) []string {
	var toks []string
	var cur strings.Builder
	flush := func() {
		if cur.Len() > 0 {
			toks = append(toks, cur.String())
			cur.Reset()
		}
	}
	for _, r := range src {
		switch {
		case r == '(' || r == ')':
			flush()
			toks = append(toks, string(r))
		case r == ';':
			flush()
		case r == ' ' || r == '\t' || r == '\n' || r == '\r':
			flush()
		default:
			cur.WriteRune(r)
		}
	}
	flush()
	return toks
}

type fixtureParser struct {
	toks []string
	pos  int
}

func (p *fixtureParser) peek() string {
	if p.pos >= len(p.toks) {
		return ""
	}
	return p.toks[p.pos]
}

func (p *fixtureParser) next() (string, error) {
	if p.pos >= len(p.toks) {
		return "", fmt.Errorf("fixture: unexpected end of input")
	}
	t := p.toks[p.pos]
	p.pos++
	return t, nil
}

func (p *fixtureParser) expect(tok string) error {
	t, err := p.next()
	if err != nil {
		return err
	}
	if t != tok {
		return fmt.Errorf("fixture: expected %q, got %q", tok, t)
	}
	return nil
}

func (p *fixtureParser) parseFunc() (*ir.Function, error) {
	if err := p.expect("("); err != nil {
		return nil, err
	}
	if err := p.expect("func"); err != nil {
		return nil, err
	}
	name, err := p.next()
	if err != nil {
		return nil, err
	}
	fn := &ir.Function{Name: strings.Trim(name, `"`)}

	for p.peek() != "(" && p.peek() != ")" {
		tok, _ := p.next()
		switch tok {
		case "exported":
			fn.Link.Exported = true
		case "vararg":
			fn.Vararg = true
		case "dynamicalloca":
			fn.DynamicAlloca = true
		case "slots":
			n, err := p.next()
			if err != nil {
				return nil, err
			}
			fn.SpillSlots, _ = strconv.Atoi(n)
		case "save":
			n, err := p.next()
			if err != nil {
				return nil, err
			}
			v, _ := strconv.ParseUint(n, 0, 32)
			fn.UsedCalleeSaveMask = uint32(v)
		default:
			return nil, fmt.Errorf("fixture: unknown function attribute %q", tok)
		}
	}

	for p.peek() == "(" {
		b, err := p.parseBlock()
		if err != nil {
			return nil, err
		}
		fn.Blocks = append(fn.Blocks, b)
	}

	if err := p.expect(")"); err != nil {
		return nil, err
	}
	return fn, nil
}

func (p *fixtureParser) parseBlock() (*ir.Block, error) {
	if err := p.expect("("); err != nil {
		return nil, err
	}
	if err := p.expect("block"); err != nil {
		return nil, err
	}
	idTok, err := p.next()
	if err != nil {
		return nil, err
	}
	id, _ := strconv.Atoi(idTok)
	b := &ir.Block{ID: ir.BlockID(id)}

	if p.peek() == "preds" {
		p.next()
		n, err := p.next()
		if err != nil {
			return nil, err
		}
		b.NumPreds, _ = strconv.Atoi(n)
	}

	for p.peek() == "(" {
		save := p.pos
		p.next()
		head, err := p.next()
		if err != nil {
			return nil, err
		}
		p.pos = save
		if isTerminatorKeyword(head) {
			term, err := p.parseTerminator()
			if err != nil {
				return nil, err
			}
			b.Term = term
			break
		}
		instr, err := p.parseInstr()
		if err != nil {
			return nil, err
		}
		b.Instrs = append(b.Instrs, instr)
	}

	if err := p.expect(")"); err != nil {
		return nil, err
	}
	return b, nil
}

func isTerminatorKeyword(s string) bool {
	switch s {
	case "ret", "halt", "jmp", "br", "brtable":
		return true
	default:
		return false
	}
}

func (p *fixtureParser) parseTerminator() (ir.Terminator, error) {
	if err := p.expect("("); err != nil {
		return ir.Terminator{}, err
	}
	kw, err := p.next()
	if err != nil {
		return ir.Terminator{}, err
	}
	var term ir.Terminator
	switch kw {
	case "ret":
		term.Kind = ir.TermReturn
	case "halt":
		term.Kind = ir.TermHalt
	case "jmp":
		term.Kind = ir.TermJump
		s1, err := p.next()
		if err != nil {
			return term, err
		}
		term.S1 = parseBlockID(s1)
	case "br":
		term.Kind = ir.TermCondBranch
		condTok, err := p.next()
		if err != nil {
			return term, err
		}
		term.Cond = parseCond(condTok)
		s1, err := p.next()
		if err != nil {
			return term, err
		}
		s2, err := p.next()
		if err != nil {
			return term, err
		}
		term.S1, term.S2 = parseBlockID(s1), parseBlockID(s2)
		if p.peek() != ")" {
			a0, err := p.next()
			if err != nil {
				return term, err
			}
			term.CmpArg0 = parseOperand(a0)
			if p.peek() != ")" {
				a1, err := p.next()
				if err != nil {
					return term, err
				}
				term.CmpArg1 = parseOperand(a1)
			}
		}
	case "brtable":
		term.Kind = ir.TermBrTable
		idx, err := p.next()
		if err != nil {
			return term, err
		}
		term.IndexReg = parseOperand(idx)
		for p.peek() != ")" {
			t, err := p.next()
			if err != nil {
				return term, err
			}
			term.Targets = append(term.Targets, parseBlockID(t))
		}
	default:
		return term, fmt.Errorf("fixture: unknown terminator %q", kw)
	}
	if err := p.expect(")"); err != nil {
		return term, err
	}
	return term, nil
}

func parseBlockID(s string) ir.BlockID {
	n, _ := strconv.Atoi(s)
	return ir.BlockID(n)
}

func (p *fixtureParser) parseInstr() (*ir.Instruction, error) {
	if err := p.expect("("); err != nil {
		return nil, err
	}
	opTok, err := p.next()
	if err != nil {
		return nil, err
	}
	op, ok := opcodeByName[opTok]
	if !ok {
		return nil, fmt.Errorf("fixture: unknown opcode %q", opTok)
	}
	classTok, err := p.next()
	if err != nil {
		return nil, err
	}
	instr := &ir.Instruction{Op: op, Class: parseClass(classTok)}

	var operands []string
	for p.peek() != ")" {
		t, err := p.next()
		if err != nil {
			return nil, err
		}
		operands = append(operands, t)
	}
	if err := p.expect(")"); err != nil {
		return nil, err
	}

	switch op {
	case ir.OpCall:
		if len(operands) > 0 {
			instr.Sym = strings.Trim(operands[0], `"`)
		}
		if len(operands) > 1 {
			instr.Dst = parseOperand(operands[1])
		}
	case ir.OpCSet:
		instr.Dst = parseOperand(operands[0])
		if len(operands) > 1 {
			instr.Cond = parseCond(operands[1])
		}
	default:
		if len(operands) > 0 {
			instr.Dst = parseOperand(operands[0])
		}
		if len(operands) > 1 {
			instr.Arg0 = parseOperand(operands[1])
		}
		if len(operands) > 2 {
			instr.Arg1 = parseOperand(operands[2])
		}
	}
	if arr, ok := arrangementSuffix(classTok); ok {
		instr.Arr = arr
	}
	return instr, nil
}

var opcodeByName = map[string]ir.Opcode{
	"copy": ir.OpCopy, "add": ir.OpAdd, "sub": ir.OpSub, "mul": ir.OpMul,
	"sdiv": ir.OpSDiv, "udiv": ir.OpUDiv, "and": ir.OpAnd, "or": ir.OpOr,
	"xor": ir.OpXor, "neg": ir.OpNeg, "not": ir.OpNot, "shl": ir.OpShl,
	"shr": ir.OpShr, "sar": ir.OpSar, "cmp": ir.OpCmp, "cset": ir.OpCSet,
	"sext": ir.OpSExt, "zext": ir.OpZExt, "load": ir.OpLoad, "store": ir.OpStore,
	"swap": ir.OpSwap, "takeaddr": ir.OpTakeAddr, "alloca": ir.OpAlloca,
	"call": ir.OpCall, "callind": ir.OpCallInd,
	"vecadd": ir.OpVecAdd, "vecsub": ir.OpVecSub, "vecmul": ir.OpVecMul,
	"vecand": ir.OpVecAnd, "vecor": ir.OpVecOr, "vecxor": ir.OpVecXor,
	"vecfma": ir.OpVecFMA, "vecload": ir.OpVecLoad, "vecstore": ir.OpVecStore,
	"vecreduceadd": ir.OpVecReduceAdd,
}

func parseClass(s string) ir.Class {
	base := strings.SplitN(s, ".", 2)[0]
	switch strings.ToUpper(base) {
	case "W":
		return ir.ClassW
	case "L":
		return ir.ClassL
	case "S":
		return ir.ClassS
	case "D":
		return ir.ClassD
	default:
		return ir.ClassL
	}
}

func arrangementSuffix(s string) (ir.VecArrangement, bool) {
	switch {
	case strings.HasSuffix(s, ".4s"):
		return ir.Arr4S, true
	case strings.HasSuffix(s, ".2d"):
		return ir.Arr2D, true
	case strings.HasSuffix(s, ".8h"):
		return ir.Arr8H, true
	case strings.HasSuffix(s, ".16b"):
		return ir.Arr16B, true
	default:
		return ir.ArrNone, false
	}
}

func parseCond(s string) ir.CondFlag {
	names := map[string]ir.CondFlag{
		"eq": ir.EQ, "ne": ir.NE, "hs": ir.HS, "lo": ir.LO, "mi": ir.MI, "pl": ir.PL,
		"vs": ir.VS, "vc": ir.VC, "hi": ir.HI, "ls": ir.LS, "ge": ir.GE, "lt": ir.LT,
		"gt": ir.GT, "le": ir.LE, "al": ir.AL, "nv": ir.NV,
	}
	return names[strings.ToLower(s)]
}

func parseOperand(s string) ir.Reference {
	switch {
	case s == "_":
		return ir.None
	case s == "sp":
		return ir.Reg(ir.SP)
	case s == "fp":
		return ir.Reg(ir.FP)
	case s == "lr":
		return ir.Reg(ir.LR)
	case s == "zr":
		return ir.Reg(ir.ZR)
	case strings.HasPrefix(s, "#"):
		n := parseIntLiteral(s[1:])
		return ir.ConstRef(int(n))
	case strings.HasPrefix(s, "slot"):
		n, _ := strconv.Atoi(s[len("slot"):])
		return ir.SlotRef(n)
	case strings.HasPrefix(s, "r"):
		n, _ := strconv.Atoi(s[1:])
		return ir.Reg(ir.GPR(byte(n)))
	case strings.HasPrefix(s, "v"):
		n, _ := strconv.Atoi(s[1:])
		return ir.Reg(ir.VReg(byte(n)))
	default:
		return ir.None
	}
}

func parseIntLiteral(s string) int64 {
	n, err := strconv.ParseInt(s, 0, 64)
	if err != nil {
		u, uerr := strconv.ParseUint(s, 0, 64)
		if uerr == nil {
			return int64(u)
		}
		return 0
	}
	return n
}
