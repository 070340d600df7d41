// Package vm provides the models for address translations.
package vm

import "fmt"

// Page geometry shared by both translation backends.
const (
	Log2PageSize     = 12
	PageSize         = uint64(1) << Log2PageSize
	Log2MegapageSize = 22
	MegapageSize     = uint64(1) << Log2MegapageSize
)

// AccessKind tells what an access does with the memory it touches.
type AccessKind int

// The three kinds of accesses that go through translation.
const (
	Load AccessKind = iota
	Store
	Fetch
)

func (k AccessKind) String() string {
	switch k {
	case Load:
		return "load"
	case Store:
		return "store"
	case Fetch:
		return "fetch"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// A Privilege is a guest privilege level.
type Privilege int

// Privilege levels, encoded the way the PRV fields of mstatus encode them.
const (
	PrivUser       Privilege = 0
	PrivSupervisor Privilege = 1
	PrivHypervisor Privilege = 2
	PrivMachine    Privilege = 3
)

// IsSupervisor returns true for every level above user. The permission
// matrix only distinguishes user from everything else.
func (p Privilege) IsSupervisor() bool {
	return p > PrivUser
}

func (p Privilege) String() string {
	switch p {
	case PrivUser:
		return "U"
	case PrivSupervisor:
		return "S"
	case PrivHypervisor:
		return "H"
	case PrivMachine:
		return "M"
	default:
		return fmt.Sprintf("prv(%d)", int(p))
	}
}

// Mode is the virtual memory mode held in the VM field of mstatus.
type Mode int

// Supported modes. The values match the mstatus VM field.
const (
	ModeBare Mode = 0
	ModeSv32 Mode = 8
	ModeSv39 Mode = 9
	ModeSv48 Mode = 10
)

// ParseMode converts a mode name ("bare", "sv32", "sv39", "sv48") into a Mode.
func ParseMode(s string) (Mode, error) {
	switch s {
	case "bare", "":
		return ModeBare, nil
	case "sv32":
		return ModeSv32, nil
	case "sv39":
		return ModeSv39, nil
	case "sv48":
		return ModeSv48, nil
	}

	return ModeBare, fmt.Errorf("%w: %q", ErrUnsupportedMode, s)
}

func (m Mode) String() string {
	switch m {
	case ModeBare:
		return "bare"
	case ModeSv32:
		return "sv32"
	case ModeSv39:
		return "sv39"
	case ModeSv48:
		return "sv48"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}

// Geometry describes the page-table shape of a paged mode.
type Geometry struct {
	Levels       int
	PTEIndexBits int
	PTESize      uint64
}

// VABits returns the number of significant virtual address bits.
func (g Geometry) VABits() int {
	return Log2PageSize + g.Levels*g.PTEIndexBits
}

// Geometry returns the page-table shape of the mode. Bare and unknown modes
// report ok == false.
func (m Mode) Geometry() (g Geometry, ok bool) {
	switch m {
	case ModeSv32:
		return Geometry{Levels: 2, PTEIndexBits: 10, PTESize: 4}, true
	case ModeSv39:
		return Geometry{Levels: 3, PTEIndexBits: 9, PTESize: 8}, true
	case ModeSv48:
		return Geometry{Levels: 4, PTEIndexBits: 9, PTESize: 8}, true
	default:
		return Geometry{}, false
	}
}

// PageNumber returns the virtual page number of an address.
func PageNumber(addr uint64) uint64 {
	return addr >> Log2PageSize
}

// PageOffset returns the offset of an address within its page.
func PageOffset(addr uint64) uint64 {
	return addr & (PageSize - 1)
}
