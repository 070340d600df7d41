// Package isa defines how instructions are represented between the fetch
// path and the decoder.
package isa

// Instruction geometry.
const (
	// PCAlign is the smallest instruction alignment.
	PCAlign = 2

	// MaxLength is the length in bytes of the longest instruction.
	MaxLength = 8

	// ParcelSize is the size of the unit instructions are fetched in.
	ParcelSize = 2
)

// PCSerialize is returned by an ExecFunc instead of a next PC when the
// instruction retired but the PC must be reloaded from the architectural
// state. Real PCs are always aligned, so the value cannot collide with one.
const PCSerialize uint64 = 5

// Insn holds the raw bits of one instruction. Parcels above the instruction
// length are sign-extended copies of the top parcel.
type Insn uint64

// Length returns the length in bytes of an instruction whose first parcel is
// p.
func Length(p uint16) int {
	switch {
	case p&0x03 != 0x03:
		return 2
	case p&0x1f != 0x1f:
		return 4
	case p&0x3f != 0x3f:
		return 6
	default:
		return 8
	}
}

// Length returns the length of the instruction in bytes.
func (i Insn) Length() int {
	return Length(uint16(i))
}

// Bits returns the instruction bits without the sign extension.
func (i Insn) Bits() uint64 {
	n := i.Length()
	if n == MaxLength {
		return uint64(i)
	}

	return uint64(i) & (uint64(1)<<(8*n) - 1)
}

// Assemble builds an instruction from its parcels, first parcel first. Only
// as many parcels as the first one announces are used.
func Assemble(parcels ...uint16) Insn {
	n := Length(parcels[0]) / ParcelSize
	top := n - 1

	insn := int64(int16(parcels[top])) << (16 * top)
	for i := 0; i < top; i++ {
		insn |= int64(parcels[i]) << (16 * i)
	}

	return Insn(insn)
}
