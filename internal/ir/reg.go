package ir

import "fmt"

// PRegKind is the tag of a physical register reference. Following the
// "register sentinels vs. physical ids" design note (spec.md §9), this is a
// closed tagged sum rather than a bare negative-range integer, so a missing
// case in a switch is a compile-time-visible TODO rather than a silent bug.
type PRegKind byte

const (
	PRNone PRegKind = iota
	PRSP            // stack pointer, valid only at 64-bit class
	PRFP            // frame pointer, x29
	PRLR            // link register, x30
	PRIP0           // ip0 / x16, intra-procedure scratch
	PRIP1           // ip1 / x17, intra-procedure scratch
	PRZR            // zero register, xzr/wzr
	PRGPR           // general-purpose register Num (x0-x28, excluding fp/lr/ip0/ip1)
	PRVReg          // NEON/FP register Num (v0-v31)
)

// PReg is a physical register identity. After register allocation, every
// Reference in a Function that denotes a value is a PReg.
type PReg struct {
	Kind PRegKind
	Num  byte
}

var (
	SP  = PReg{Kind: PRSP}
	FP  = PReg{Kind: PRFP}
	LR  = PReg{Kind: PRLR}
	IP0 = PReg{Kind: PRIP0}
	IP1 = PReg{Kind: PRIP1}
	ZR  = PReg{Kind: PRZR}
)

// GPR constructs a general-purpose register reference x0..x28.
func GPR(n byte) PReg { return PReg{Kind: PRGPR, Num: n} }

// VReg constructs a NEON/FP register reference v0..v31.
func VReg(n byte) PReg { return PReg{Kind: PRVReg, Num: n} }

// IsFloat reports whether the register lives in the vector/FP bank.
func (r PReg) IsFloat() bool { return r.Kind == PRVReg }

func (r PReg) String() string {
	switch r.Kind {
	case PRNone:
		return "<none>"
	case PRSP:
		return "sp"
	case PRFP:
		return "fp"
	case PRLR:
		return "lr"
	case PRIP0:
		return "ip0"
	case PRIP1:
		return "ip1"
	case PRZR:
		return "zr"
	case PRGPR:
		return fmt.Sprintf("r%d", r.Num)
	case PRVReg:
		return fmt.Sprintf("v%d", r.Num)
	default:
		return "?"
	}
}

// Equal reports whether two physical registers name the same location.
func (r PReg) Equal(o PReg) bool { return r.Kind == o.Kind && r.Num == o.Num }
