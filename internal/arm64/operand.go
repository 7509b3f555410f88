package arm64

import (
	"fmt"

	"github.com/albanread/fasterbasic-arm64cg/internal/ir"
)

// FormatReg renders a physical register under the naming rules of spec.md
// §4.1: sp is only valid at 64-bit class; general registers format as
// w<n>/x<n>; NEON registers as s<n>/d<n>, with v31 reserved as the FP
// scratch register.
func FormatReg(r ir.PReg, class ir.Class) string {
	switch r.Kind {
	case ir.PRSP:
		if class != ir.ClassL {
			die("sp", class, "stack pointer is only valid at 64-bit class")
		}
		return "sp"
	case ir.PRZR:
		if class.Float() {
			die("zr", class, "zero register has no float form")
		}
		if class == ir.ClassW {
			return "wzr"
		}
		return "xzr"
	case ir.PRFP:
		return gprName(29, class)
	case ir.PRLR:
		return gprName(30, class)
	case ir.PRIP0:
		return gprName(16, class)
	case ir.PRIP1:
		return gprName(17, class)
	case ir.PRGPR:
		return gprName(r.Num, class)
	case ir.PRVReg:
		return vregName(r.Num, class)
	default:
		die("<reg>", class, "invalid register reference kind %v", r.Kind)
		return ""
	}
}

func gprName(n byte, class ir.Class) string {
	switch class {
	case ir.ClassW:
		return fmt.Sprintf("w%d", n)
	case ir.ClassL:
		return fmt.Sprintf("x%d", n)
	default:
		die("<reg>", class, "general-purpose register used at non-integer class")
		return ""
	}
}

// fpScratchVReg is the distinguished NEON register (v31) reserved as an FP
// scratch, e.g. when C3's slot fixup routes a store's value through the
// vector bank to free up a GPR scratch for the address (spec.md §4.3).
const fpScratchVReg byte = 31

func vregName(n byte, class ir.Class) string {
	switch class {
	case ir.ClassS:
		return fmt.Sprintf("s%d", n)
	case ir.ClassD:
		return fmt.Sprintf("d%d", n)
	default:
		die("<reg>", class, "vector register used at non-float class")
		return ""
	}
}

// FormatMemReg renders a register-base memory operand: [x<n>].
func FormatMemReg(base ir.PReg) string {
	return "[" + FormatReg(base, ir.ClassL) + "]"
}

// FormatMemFrame renders a frame-relative memory operand: [x29, #<offset>].
func FormatMemFrame(offset int64) string {
	if offset == 0 {
		return "[x29]"
	}
	return "[x29, " + hexSigned(offset) + "]"
}

// FormatImm12 renders a second-operand constant under the rules of
// spec.md §4.1:
//   - if bits above the low 24 are set, the value must be encodable as a
//     bitmask logical immediate (die if not);
//   - else if the value is representable only as a 12-bit field shifted
//     left by 12, print with ", lsl #12";
//   - else print a plain unsigned 12-bit immediate.
func FormatImm12(op string, class ir.Class, v uint64) string {
	if v>>24 != 0 {
		if !IsBitmaskImmediate(v, class) {
			die(op, class, "immediate %#x has no bitmask-logical encoding", v)
		}
		return hex(v)
	}
	if v&0xfff == 0 && v != 0 {
		return hex(v>>12) + ", lsl #12"
	}
	if v > 0xfff {
		die(op, class, "immediate %#x does not fit a 12-bit field", v)
	}
	return hex(v)
}
