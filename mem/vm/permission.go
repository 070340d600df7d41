package vm

// A TypeCode is the 4-bit type field of a page attribute or page-table entry.
// It selects one row of the permission matrix.
type TypeCode uint8

// The 16 type codes. The encoding is visible to guest software.
const (
	TypeNext     TypeCode = 0  // pointer to next level table
	TypeGNext    TypeCode = 1  // pointer to next level table, global
	TypeSRURX    TypeCode = 2  // S: r, U: rx
	TypeSRWURWX  TypeCode = 3  // S: rw, U: rwx
	TypeSRUR     TypeCode = 4  // S: r, U: r
	TypeSRWURW   TypeCode = 5  // S: rw, U: rw
	TypeSRXURX   TypeCode = 6  // S: rx, U: rx
	TypeSRWXURWX TypeCode = 7  // S: rwx, U: rwx
	TypeSR       TypeCode = 8  // S: r
	TypeSRW      TypeCode = 9  // S: rw
	TypeSRX      TypeCode = 10 // S: rx
	TypeSRWX     TypeCode = 11 // S: rwx
	TypeGSR      TypeCode = 12 // S: r, global
	TypeGSRW     TypeCode = 13 // S: rw, global
	TypeGSRX     TypeCode = 14 // S: rx, global
	TypeGSRWX    TypeCode = 15 // S: rwx, global
)

const (
	typeCodeMask TypeCode = 0xf
	numTypeCodes          = 16
)

func rows(codes ...TypeCode) uint16 {
	var m uint16
	for _, c := range codes {
		m |= 1 << c
	}

	return m
}

// One mask per {privilege, capability}. Bit i is set when type code i grants
// the capability.
var (
	maskSR = rows(TypeSRURX, TypeSRWURWX, TypeSRUR, TypeSRWURW, TypeSRXURX,
		TypeSRWXURWX, TypeSR, TypeSRW, TypeSRX, TypeSRWX,
		TypeGSR, TypeGSRW, TypeGSRX, TypeGSRWX)
	maskSW = rows(TypeSRWURWX, TypeSRWURW, TypeSRWXURWX, TypeSRW, TypeSRWX,
		TypeGSRW, TypeGSRWX)
	maskSX = rows(TypeSRXURX, TypeSRWXURWX, TypeSRX, TypeSRWX,
		TypeGSRX, TypeGSRWX)
	maskUR = rows(TypeSRURX, TypeSRWURWX, TypeSRUR, TypeSRWURW, TypeSRXURX,
		TypeSRWXURWX)
	maskUW = rows(TypeSRWURWX, TypeSRWURW, TypeSRWXURWX)
	maskUX = rows(TypeSRURX, TypeSRWURWX, TypeSRXURX, TypeSRWXURWX)
)

var typeNames = [numTypeCodes]string{
	"NEXT", "G_NEXT", "SR_URX", "SRW_URWX", "SR_UR", "SRW_URW", "SRX_URX",
	"SRWX_URWX", "SR", "SRW", "SRX", "SRWX", "G_SR", "G_SRW", "G_SRX",
	"G_SRWX",
}

func (t TypeCode) String() string {
	return typeNames[t&typeCodeMask]
}

// IsTable returns true if the type code points to a next-level table rather
// than describing a leaf mapping.
func (t TypeCode) IsTable() bool {
	t &= typeCodeMask
	return t == TypeNext || t == TypeGNext
}

// IsGlobal returns true for the rows that are not tied to an address space.
func (t TypeCode) IsGlobal() bool {
	t &= typeCodeMask
	return t == TypeGNext || t >= TypeGSR
}

// CheckPerm tells if a mapping of type t allows the access.
func CheckPerm(t TypeCode, supervisor bool, kind AccessKind) bool {
	var mask uint16

	switch kind {
	case Load:
		mask = maskUR
		if supervisor {
			mask = maskSR
		}
	case Store:
		mask = maskUW
		if supervisor {
			mask = maskSW
		}
	default:
		mask = maskUX
		if supervisor {
			mask = maskSX
		}
	}

	return (mask>>(t&typeCodeMask))&1 == 1
}
