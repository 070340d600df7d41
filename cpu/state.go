package cpu

import "github.com/sarchlab/rvcore/mem/vm"

// Fields of mstatus. The low twelve bits hold a stack of four {IE, PRV}
// pairs, the current one at the bottom.
const (
	MStatusIE   uint64 = 0x00000001
	MStatusPRV  uint64 = 0x00000006
	MStatusIE1  uint64 = 0x00000008
	MStatusPRV1 uint64 = 0x00000030
	MStatusIE2  uint64 = 0x00000040
	MStatusPRV2 uint64 = 0x00000180
	MStatusIE3  uint64 = 0x00000200
	MStatusPRV3 uint64 = 0x00000c00
	MStatusMPRV uint64 = 0x00010000
	MStatusVM   uint64 = 0x003e0000

	privStack     uint64 = 0xfff
	mstatusWrite         = privStack | MStatusMPRV | MStatusVM
	mappingFields        = MStatusPRV | MStatusPRV1 | MStatusMPRV | MStatusVM
)

// Pending interrupt bits of mip and mie.
const (
	MIPSSIP uint64 = 1 << 1
	MIPHSIP uint64 = 1 << 2
	MIPMSIP uint64 = 1 << 3
	MIPSTIP uint64 = 1 << 5
	MIPHTIP uint64 = 1 << 6
	MIPMTIP uint64 = 1 << 7
	MIPSXIP uint64 = 1 << 9
	MIPHXIP uint64 = 1 << 10
	MIPMXIP uint64 = 1 << 11

	mipSoftware = MIPSSIP | MIPHSIP | MIPMSIP
	mipTimer    = MIPSTIP | MIPHTIP | MIPMTIP
	mipExternal = MIPSXIP | MIPHXIP | MIPMXIP
)

func lowestBit(mask uint64) uint64 {
	return mask & (^mask + 1)
}

func getField(reg, mask uint64) uint64 {
	return (reg & mask) / lowestBit(mask)
}

func setField(reg, mask, val uint64) uint64 {
	return reg&^mask | (val*lowestBit(mask))&mask
}

// State is the architectural state of a core.
type State struct {
	PC  uint64
	XPR [32]uint64

	MStatus  uint64
	MIE      uint64
	MIP      uint64
	MTVec    uint64
	MScratch uint64
	MEPC     uint64
	MCause   uint64
	MBadAddr uint64
	SPTBR    uint64
	MInstret uint64

	// Serialized is set while an instruction that asked for serialization
	// is executed again.
	Serialized bool

	xlen int
}

// NewState creates the reset state of a core that starts in machine mode at
// pc.
func NewState(xlen int, pc uint64) *State {
	if xlen != 32 && xlen != 64 {
		panic("xlen must be 32 or 64")
	}

	s := &State{PC: pc, xlen: xlen}
	s.MStatus = setField(s.MStatus, MStatusPRV, uint64(vm.PrivMachine))

	return s
}

// XLen returns the register width in bits.
func (s *State) XLen() int {
	return s.xlen
}

// Privilege returns the current privilege level.
func (s *State) Privilege() vm.Privilege {
	return vm.Privilege(getField(s.MStatus, MStatusPRV))
}

// EffectivePrivilege returns the privilege an access of kind is checked
// against. With MPRV set, loads and stores use the previous privilege.
func (s *State) EffectivePrivilege(kind vm.AccessKind) vm.Privilege {
	if kind != vm.Fetch && s.MStatus&MStatusMPRV != 0 {
		return vm.Privilege(getField(s.MStatus, MStatusPRV1))
	}

	return s.Privilege()
}

// VMMode returns the virtual memory mode.
func (s *State) VMMode() vm.Mode {
	return vm.Mode(getField(s.MStatus, MStatusVM))
}

// PageTableRoot returns the physical address of the root page table.
func (s *State) PageTableRoot() uint64 {
	return s.SPTBR
}

func (s *State) supportsMode(m vm.Mode) bool {
	switch m {
	case vm.ModeBare:
		return true
	case vm.ModeSv32:
		return s.xlen == 32
	case vm.ModeSv39, vm.ModeSv48:
		return s.xlen == 64
	}

	return false
}

// pushPrivilege enters machine mode with interrupts disabled and keeps the
// previous level one slot up the stack.
func pushPrivilege(mstatus uint64) uint64 {
	s := mstatus&^privStack | (mstatus<<3)&privStack
	s = setField(s, MStatusPRV, uint64(vm.PrivMachine))
	s = setField(s, MStatusIE, 0)

	return s
}

// popPrivilege returns to the previous level. The top of the stack becomes
// user mode with interrupts enabled.
func popPrivilege(mstatus uint64) uint64 {
	s := mstatus&^privStack | (mstatus>>3)&(privStack>>3)
	s = setField(s, MStatusPRV3, uint64(vm.PrivUser))
	s = setField(s, MStatusIE3, 1)

	return s
}
