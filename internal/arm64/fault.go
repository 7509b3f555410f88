package arm64

import (
	"fmt"

	"github.com/albanread/fasterbasic-arm64cg/internal/ir"
)

// Trace receives one formatted diagnostic line per fusion attempt when the
// corresponding DEBUG_* gate is set (spec.md §6).
type Trace func(format string, args ...any)

// Fault is the core's only error type: any table miss, unencodable
// immediate, invalid register class, or impossible operand is a fatal
// programmer error (spec.md §4.4, §4.10, §7) — the IR is ill-typed for this
// target and there is no recovery to attempt beyond reporting where.
type Fault struct {
	Op     string
	Class  ir.Class
	Detail string
}

func (f Fault) Error() string {
	if f.Detail == "" {
		return fmt.Sprintf("no match for %s(%s)", f.Op, f.Class)
	}
	return fmt.Sprintf("no match for %s(%s): %s", f.Op, f.Class, f.Detail)
}

// die raises a Fault, following the teacher's own idiom of panicking with a
// descriptive diagnostic at the point an invariant is violated (instr.go /
// lower_mem.go's "panic(fmt.Sprintf(...))" / "panic(\"BUG\")" throughout)
// rather than threading an error return through every selector call.
func die(op string, class ir.Class, detail string, args ...any) {
	panic(Fault{Op: op, Class: class, Detail: fmt.Sprintf(detail, args...)})
}

// recoverFault converts a panic(Fault{...}) into a returned error, and
// re-panics anything else (a genuine bug in this package, not a malformed
// input). This is the single recover() site the core uses (spec_full.md
// §4.10); every other internal call path is free to panic on Fault.
func recoverFault(errp *error) {
	if r := recover(); r != nil {
		if f, ok := r.(Fault); ok {
			*errp = f
			return
		}
		panic(r)
	}
}
