package ir

// Class is the result class of an instruction: 32-bit int, 64-bit int,
// 32-bit float, or 64-bit float. ClassAny tags diagnostics that are not tied
// to one class (for example an unknown terminator kind).
type Class byte

const (
	ClassW   Class = iota // 32-bit general-purpose register (w<n>)
	ClassL                // 64-bit general-purpose register (x<n>)
	ClassS                // 32-bit float register (s<n>)
	ClassD                // 64-bit float register (d<n>)
	ClassAny              // not tied to one class; never appears on a real instruction
)

// Integer reports whether the class denotes a general-purpose register class.
func (c Class) Integer() bool { return c == ClassW || c == ClassL }

// Float reports whether the class denotes an FP/NEON scalar class.
func (c Class) Float() bool { return c == ClassS || c == ClassD }

// Bits returns the bit width that a value of this class occupies.
func (c Class) Bits() byte {
	switch c {
	case ClassW, ClassS:
		return 32
	case ClassL, ClassD:
		return 64
	default:
		return 0
	}
}

func (c Class) String() string {
	switch c {
	case ClassW:
		return "W"
	case ClassL:
		return "L"
	case ClassS:
		return "S"
	case ClassD:
		return "D"
	case ClassAny:
		return "any"
	default:
		return "?"
	}
}
