package arm64

import "github.com/albanread/fasterbasic-arm64cg/internal/ir"

// IsBitmaskImmediate reports whether v has a bitmask-logical-immediate
// encoding at the given class's width (spec.md §4.1, §4.2): AArch64's
// AND/ORR/EOR/MOV-alias immediate form is a single contiguous run of set
// bits of some width e ∈ {2,4,8,16,32,64} (e ≤ 32 for a 32-bit destination),
// rotated by some amount within that width, and replicated to fill the
// register. This checks encodability only — the text emitter (C1) prints
// the immediate's decimal/hex value as written by the caller, not a machine
// encoding, so unlike a binary assembler this package never needs to
// recover (N, immr, imms): only whether some (width, rotation, run-length)
// triple reproduces v.
func IsBitmaskImmediate(v uint64, class ir.Class) bool {
	width := 32
	if class == ir.ClassL {
		width = 64
	}
	if width == 32 {
		v &= 0xffffffff
	}
	if v == 0 || (width == 32 && v == 0xffffffff) || (width == 64 && v == ^uint64(0)) {
		return false // all-zero / all-one patterns have no encoding.
	}

	for e := 2; e <= width; e *= 2 {
		mask := elementMask(e)
		for run := 1; run < e; run++ {
			runPattern := (uint64(1)<<run - 1) & mask
			for rot := 0; rot < e; rot++ {
				elem := rotateRight(runPattern, rot, e) & mask
				if replicate(elem, e, width) == v {
					return true
				}
			}
		}
	}
	return false
}

func elementMask(e int) uint64 {
	if e >= 64 {
		return ^uint64(0)
	}
	return uint64(1)<<e - 1
}

func rotateRight(x uint64, n, width int) uint64 {
	if n == 0 {
		return x
	}
	mask := elementMask(width)
	x &= mask
	return ((x >> n) | (x << (width - n))) & mask
}

func replicate(elem uint64, elemWidth, totalWidth int) uint64 {
	var out uint64
	for filled := 0; filled < totalWidth; filled += elemWidth {
		out |= elem << filled
	}
	return out
}
