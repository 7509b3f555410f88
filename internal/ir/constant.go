package ir

// SymbolKind distinguishes an ordinary global symbol from a thread-local one
// (spec.md §3: "symbol kind is global or thread-local").
type SymbolKind byte

const (
	SymGlobal SymbolKind = iota
	SymThreadLocal
)

// Address is a symbol-relative constant: a named symbol plus a byte addend.
// A leading `"` in Symbol suppresses the target's external-symbol prefix
// (spec.md §4.2).
type Address struct {
	Symbol string
	Addend int64
	Kind   SymbolKind
}

// Constant is either a 64-bit integer bit pattern or a symbol address
// (spec.md §3). Exactly one of the two forms is populated, selected by IsAddr.
type Constant struct {
	IsAddr bool
	Bits   uint64 // valid when !IsAddr; interpreted per the using instruction's Class
	Addr   Address
}

// IntConst builds an integer bit-pattern constant.
func IntConst(bits uint64) Constant { return Constant{Bits: bits} }

// AddrConst builds a symbol-address constant.
func AddrConst(a Address) Constant { return Constant{IsAddr: true, Addr: a} }
