package arm64

import "github.com/albanread/fasterbasic-arm64cg/internal/ir"

// lowerIntConstant renders the minimal MOV/MOVZ/MOVK sequence that
// materializes an integer bit pattern into register rd of the given class
// (spec.md §4.2). Cases, in priority order:
//
//  1. v is exactly one 16-bit lane (all other lanes zero) -> a single MOVZ.
//  2. ^v (within the class width) is exactly one 16-bit lane -> a single MOVN.
//  3. v has a bitmask-logical-immediate encoding -> a single MOV, rendered
//     as the ORR-with-zero-register form the architecture actually uses.
//  4. Otherwise: MOVZ on the lowest nonzero lane (or lane 0, if v == 0),
//     then one MOVK per remaining nonzero 16-bit lane.
func lowerIntConstant(rd ir.PReg, class ir.Class, v uint64) []string {
	lanes := laneCount(class)
	width := uint64(class.Bits())
	if width < 64 {
		v &= (1 << width) - 1
	}

	if shift, lane, ok := singleLane(v, lanes); ok {
		return []string{movLine("movz", rd, class, lane, shift)}
	}

	inv := (^v) & laneWidthMask(width)
	if shift, lane, ok := singleLane(inv, lanes); ok && v != 0 {
		return []string{movLine("movn", rd, class, lane, shift)}
	}

	if IsBitmaskImmediate(v, class) {
		return []string{"orr " + FormatReg(rd, class) + ", " + FormatReg(ir.ZR, class) + ", " + hex(v)}
	}

	var lines []string
	first := true
	for i := 0; i < lanes; i++ {
		shift := uint(i * 16)
		lane := (v >> shift) & 0xffff
		if lane == 0 && !(first && i == lanes-1) {
			continue
		}
		if first {
			lines = append(lines, movLine("movz", rd, class, lane, shift))
			first = false
		} else {
			lines = append(lines, movLine("movk", rd, class, lane, shift))
		}
	}
	if len(lines) == 0 {
		lines = append(lines, movLine("movz", rd, class, 0, 0))
	}
	return lines
}

func laneCount(class ir.Class) int {
	if class == ir.ClassL {
		return 4
	}
	return 2
}

func laneWidthMask(width uint64) uint64 {
	if width >= 64 {
		return ^uint64(0)
	}
	return (1 << width) - 1
}

// singleLane reports whether v is nonzero in at most one 16-bit lane, and if
// so returns that lane's shift amount and value. v == 0 reports lane 0 at
// shift 0 so the trivial "load zero" case renders as "movz rd, #0".
func singleLane(v uint64, lanes int) (shift uint, lane uint64, ok bool) {
	nonZero := 0
	for i := 0; i < lanes; i++ {
		s := uint(i * 16)
		l := (v >> s) & 0xffff
		if l != 0 {
			nonZero++
			shift, lane = s, l
		}
	}
	if nonZero == 0 {
		return 0, 0, true
	}
	return shift, lane, nonZero == 1
}

func movLine(mnem string, rd ir.PReg, class ir.Class, lane uint64, shift uint) string {
	return mnem + " " + FormatReg(rd, class) + ", " + hex(lane) + ", LSL " + itoa(int64(shift))
}

// lowerAddressConstant renders the platform sequence that materializes a
// symbol address into register rd (spec.md §4.2).
func lowerAddressConstant(t Target, rd ir.PReg, class ir.Class, addr ir.Address, kind AddressLoadKind) []string {
	if class != ir.ClassL {
		die("adr", class, "address loads always target a 64-bit register")
	}
	return t.AddressLoad(FormatReg(rd, class), addr.Symbol, addr.Addend, addr.Kind == ir.SymThreadLocal, kind)
}
