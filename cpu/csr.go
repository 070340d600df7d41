package cpu

import (
	"errors"
	"fmt"

	"github.com/sarchlab/rvcore/mem/vm"
	"github.com/sarchlab/rvcore/trap"
)

// CSR addresses owned by the core.
const (
	CSRSPTBR    uint16 = 0x180
	CSRMStatus  uint16 = 0x300
	CSRMTVec    uint16 = 0x301
	CSRMIE      uint16 = 0x304
	CSRMScratch uint16 = 0x340
	CSRMEPC     uint16 = 0x341
	CSRMCause   uint16 = 0x342
	CSRMBadAddr uint16 = 0x343
	CSRMIP      uint16 = 0x344
	CSRCycle    uint16 = 0xc00
	CSRInstret  uint16 = 0xc02
	CSRMHartID  uint16 = 0xf10
)

// ErrIllegalCSR is the cause of traps raised by CSR accesses that do not
// exist, are read-only or need a higher privilege.
var ErrIllegalCSR = errors.New("illegal csr access")

// A CSRHandler serves CSRs that belong to other hardware, such as the
// associative TLB. Addresses it does not handle are served by the core.
type CSRHandler interface {
	ReadCSR(addr uint16) (uint64, bool)
	WriteCSR(addr uint16, val uint64) (handled, mappingChanged bool)
}

func illegalCSR(addr uint16) error {
	return &trap.Trap{
		Kind: trap.IllegalInsn,
		Err:  fmt.Errorf("%w 0x%03x", ErrIllegalCSR, addr),
	}
}

// The address of a CSR encodes the lowest privilege that can access it in
// bits 9:8 and read-only registers with 3 in bits 11:10.
func (c *Core) csrAccessible(addr uint16, write bool) bool {
	if vm.Privilege((addr>>8)&3) > c.state.Privilege() {
		return false
	}

	return !write || (addr>>10)&3 != 3
}

// ReadCSR reads a CSR.
func (c *Core) ReadCSR(addr uint16) (uint64, error) {
	if !c.csrAccessible(addr, false) {
		return 0, illegalCSR(addr)
	}

	if c.csrHandler != nil {
		if v, ok := c.csrHandler.ReadCSR(addr); ok {
			return v, nil
		}
	}

	s := c.state

	switch addr {
	case CSRSPTBR:
		return s.SPTBR, nil
	case CSRMStatus:
		return s.MStatus, nil
	case CSRMTVec:
		return s.MTVec, nil
	case CSRMIE:
		return s.MIE, nil
	case CSRMScratch:
		return s.MScratch, nil
	case CSRMEPC:
		return s.MEPC, nil
	case CSRMCause:
		return s.MCause, nil
	case CSRMBadAddr:
		return s.MBadAddr, nil
	case CSRMIP:
		return s.MIP, nil
	case CSRCycle, CSRInstret:
		return s.MInstret, nil
	case CSRMHartID:
		return uint64(c.id), nil
	}

	return 0, illegalCSR(addr)
}

// WriteCSR writes a CSR. Writes that change how addresses are translated
// drop the cached translations of the core.
func (c *Core) WriteCSR(addr uint16, v uint64) error {
	if !c.csrAccessible(addr, true) {
		return illegalCSR(addr)
	}

	if c.csrHandler != nil {
		if handled, changed := c.csrHandler.WriteCSR(addr, v); handled {
			if changed {
				c.mmu.FlushTLB()
			}

			return nil
		}
	}

	s := c.state

	switch addr {
	case CSRSPTBR:
		root := v &^ (vm.PageSize - 1)
		if root != s.SPTBR {
			s.SPTBR = root
			c.mmu.FlushTLB()
		}
	case CSRMStatus:
		c.setMStatus(v)
	case CSRMTVec:
		s.MTVec = v &^ 3
	case CSRMIE:
		s.MIE = v & (mipSoftware | mipTimer | mipExternal)
	case CSRMScratch:
		s.MScratch = v
	case CSRMEPC:
		s.MEPC = v &^ 1
	case CSRMCause:
		s.MCause = v
	case CSRMBadAddr:
		s.MBadAddr = v
	case CSRMIP:
		s.MIP = s.MIP&^mipSoftware | v&mipSoftware
	default:
		return illegalCSR(addr)
	}

	return nil
}

func (c *Core) setMStatus(v uint64) {
	s := c.state
	old := s.MStatus

	next := old&^mstatusWrite | v&mstatusWrite
	if !s.supportsMode(vm.Mode(getField(next, MStatusVM))) {
		next = setField(next, MStatusVM, getField(old, MStatusVM))
	}

	s.MStatus = next

	if (old^next)&mappingFields != 0 {
		c.mmu.FlushTLB()
	}
}
