package arm64

import "github.com/albanread/fasterbasic-arm64cg/internal/ir"

// Target captures every platform-specific sequence behind a small trait
// interface (spec.md §9: "capture platform-specific sequences ... behind a
// target-trait interface with a small number of methods; keep the assembly
// templates as data, not conditionals in every path").
type Target interface {
	// Apple reports whether this is the Apple/Mach-O convention (vs. ELF).
	Apple() bool

	// CalleeSaved lists the callee-saved registers available for use,
	// in save/restore order (spec.md §6).
	CalleeSaved() []ir.PReg

	// SymbolPrefix is prepended to an external symbol name, unless the name
	// begins with a literal `"` (spec.md §4.2).
	SymbolPrefix() string

	// LocalLabelPrefix is prepended to generated local label names
	// (spec.md §6).
	LocalLabelPrefix() string

	// AddressLoad renders the instruction sequence that materializes the
	// address of a symbol into register rd (spec.md §4.2). kind selects
	// between a plain global load and a GOT-indirect load for imported
	// symbols (spec_full.md §4.2).
	AddressLoad(rd string, sym string, addend int64, tls bool, kind AddressLoadKind) []string

	// FunctionPrologueDirectives/EpilogueDirectives emit the linkage
	// directives a function needs on entry/exit (e.g. ELF's trailing
	// .type/.size; Apple emits neither) — spec.md §6's "function-linkage
	// emission callback".
	FunctionPrologueDirectives(name string, link ir.Linkage) []string
	FunctionEpilogueDirectives(name string) []string

	// ScratchRegisters lists the registers C3's slot fixup may use to
	// materialize an out-of-range address, in preference order. Apple
	// reserves fewer than ELF (spec.md §4.3).
	ScratchRegisters() []ir.PReg

	// VarargSaveArea reports whether a vararg function reserves the fixed
	// 192-byte register-save area in its frame (spec.md §4.5: "non-Apple
	// vararg only").
	VarargSaveArea() bool
}

// AddressLoadKind selects the address-materialization form (spec_full.md §4.2).
type AddressLoadKind byte

const (
	AddressLoadPlain AddressLoadKind = iota // locally-defined symbol: ADRP+ADD / TLS forms
	AddressLoadGOT                          // imported symbol: GOT-indirect load
)

func symbolName(prefix, sym string) string {
	if len(sym) > 0 && sym[0] == '"' {
		return sym[1:]
	}
	return prefix + sym
}

// --- Darwin / Apple (Mach-O) ---

type darwinTarget struct{}

// DarwinTarget returns the Apple Mach-O target trait.
func DarwinTarget() Target { return darwinTarget{} }

func (darwinTarget) Apple() bool             { return true }
func (darwinTarget) SymbolPrefix() string    { return "_" }
func (darwinTarget) LocalLabelPrefix() string { return "L" }

func (darwinTarget) CalleeSaved() []ir.PReg {
	regs := make([]ir.PReg, 0, 10+8)
	for n := byte(19); n <= 28; n++ {
		regs = append(regs, ir.GPR(n))
	}
	for n := byte(8); n <= 15; n++ {
		regs = append(regs, ir.VReg(n))
	}
	return regs
}

// ScratchRegisters: Apple reserves only ip0 (x16) for address-of-slot
// materialization, keeping ip1 free for the runtime/linker's own use
// (spec.md §4.3: "Apple ABI reserves fewer scratch registers than ELF").
func (darwinTarget) ScratchRegisters() []ir.PReg { return []ir.PReg{ir.IP0} }

func (darwinTarget) VarargSaveArea() bool { return false }

func (t darwinTarget) AddressLoad(rd, sym string, addend int64, tls bool, kind AddressLoadKind) []string {
	full := symbolName(t.SymbolPrefix(), sym)
	if tls {
		return []string{
			"adrp " + rd + ", " + full + "@TLVPPAGE",
			"ldr " + rd + ", [" + rd + ", " + full + "@TLVPPAGEOFF]",
		}
	}
	switch kind {
	case AddressLoadGOT:
		return []string{
			"adrp " + rd + ", " + full + "@GOTPAGE",
			"ldr " + rd + ", [" + rd + ", " + full + "@GOTPAGEOFF]",
		}
	default:
		lines := []string{
			"adrp " + rd + ", " + full + "@PAGE",
			"add " + rd + ", " + rd + ", " + full + "@PAGEOFF",
		}
		if addend != 0 {
			lines = append(lines, addAddendLine(rd, addend))
		}
		return lines
	}
}

func (darwinTarget) FunctionPrologueDirectives(name string, link ir.Linkage) []string {
	var lines []string
	if link.Exported {
		lines = append(lines, ".globl _"+name)
	}
	lines = append(lines, "_"+name+":")
	return lines
}

func (darwinTarget) FunctionEpilogueDirectives(string) []string { return nil }

// --- Linux / ELF ---

type elfTarget struct{}

// ELFTarget returns the GNU-assembler-compatible ELF (SysV AArch64) target trait.
func ELFTarget() Target { return elfTarget{} }

func (elfTarget) Apple() bool              { return false }
func (elfTarget) SymbolPrefix() string     { return "" }
func (elfTarget) LocalLabelPrefix() string { return ".L" }

func (elfTarget) CalleeSaved() []ir.PReg {
	regs := make([]ir.PReg, 0, 10+8)
	for n := byte(19); n <= 28; n++ {
		regs = append(regs, ir.GPR(n))
	}
	for n := byte(8); n <= 15; n++ {
		regs = append(regs, ir.VReg(n))
	}
	return regs
}

// ScratchRegisters: ELF may use both ip0 (x16) and ip1 (x17) when a store's
// address-of operand needs a register and its value also needs one
// (spec.md §4.3).
func (elfTarget) ScratchRegisters() []ir.PReg { return []ir.PReg{ir.IP0, ir.IP1} }

func (elfTarget) VarargSaveArea() bool { return true }

func (t elfTarget) AddressLoad(rd, sym string, addend int64, tls bool, kind AddressLoadKind) []string {
	full := symbolName(t.SymbolPrefix(), sym)
	if tls {
		return []string{
			"mrs " + rd + ", tpidr_el0",
			"add " + rd + ", " + rd + ", :tprel_hi12:" + full + ", lsl #12",
			"add " + rd + ", " + rd + ", :tprel_lo12_nc:" + full,
		}
	}
	switch kind {
	case AddressLoadGOT:
		return []string{
			"adrp " + rd + ", :got:" + full,
			"ldr " + rd + ", [" + rd + ", #:got_lo12:" + full + "]",
		}
	default:
		lines := []string{
			"adrp " + rd + ", " + full,
			"add " + rd + ", " + rd + ", :lo12:" + full,
		}
		if addend != 0 {
			lines = append(lines, addAddendLine(rd, addend))
		}
		return lines
	}
}

func (elfTarget) FunctionPrologueDirectives(name string, link ir.Linkage) []string {
	var lines []string
	if link.Exported {
		lines = append(lines, ".globl "+name)
	}
	lines = append(lines, ".type "+name+", %function")
	lines = append(lines, name+":")
	return lines
}

func (elfTarget) FunctionEpilogueDirectives(name string) []string {
	return []string{".size " + name + ", . - " + name}
}

// addAddendLine folds a residual byte addend into the materialized address
// register with a plain immediate add/sub, after the page-relative load.
func addAddendLine(rd string, addend int64) string {
	if addend >= 0 {
		return "add " + rd + ", " + rd + ", #" + itoa(addend)
	}
	return "sub " + rd + ", " + rd + ", #" + itoa(-addend)
}
