package tlb

import "github.com/sarchlab/rvcore/mem/vm"

// Control registers of the TLB. Writing a PATTR register installs an entry
// for the address latched in the matching VADDR register. Writing an
// ENTRY_SCAN register latches one entry for the ENTRY_PATTR and ENTRY_VADDR
// registers to read back.
const (
	CSRIPAttr      uint16 = 0x7a0
	CSRIVAddr      uint16 = 0x7a1
	CSRDPAttr      uint16 = 0x7a2
	CSRDVAddr      uint16 = 0x7a3
	CSRIEntryScan  uint16 = 0x7a4
	CSRDEntryScan  uint16 = 0x7a5
	CSRIEntryPAttr uint16 = 0x7a6
	CSRIEntryVAddr uint16 = 0x7a7
	CSRDEntryPAttr uint16 = 0x7a8
	CSRDEntryVAddr uint16 = 0x7a9
)

// ReadCSR reads a TLB control register. It returns false if addr is not one.
func (c *Comp) ReadCSR(addr uint16) (uint64, bool) {
	switch addr {
	case CSRIPAttr, CSRDPAttr:
		return 0, true
	case CSRIVAddr:
		return c.VAddr(SideInsn), true
	case CSRDVAddr:
		return c.VAddr(SideData), true
	case CSRIEntryScan:
		return c.arrays[SideInsn].scan, true
	case CSRDEntryScan:
		return c.arrays[SideData].scan, true
	case CSRIEntryPAttr:
		return uint64(c.Scanned(SideInsn).Attr), true
	case CSRIEntryVAddr:
		return uint64(c.Scanned(SideInsn).VAddr), true
	case CSRDEntryPAttr:
		return uint64(c.Scanned(SideData).Attr), true
	case CSRDEntryVAddr:
		return uint64(c.Scanned(SideData).VAddr), true
	}

	return 0, false
}

// WriteCSR writes a TLB control register. handled is false if addr is not a
// writable TLB register. mappingChanged tells the caller to drop whatever it
// derived from earlier translations.
func (c *Comp) WriteCSR(addr uint16, val uint64) (handled, mappingChanged bool) {
	switch addr {
	case CSRIPAttr:
		c.Install(SideInsn, vm.PageAttr(val))
		return true, true
	case CSRDPAttr:
		c.Install(SideData, vm.PageAttr(val))
		return true, true
	case CSRIVAddr:
		c.SetVAddr(SideInsn, val)
		return true, false
	case CSRDVAddr:
		c.SetVAddr(SideData, val)
		return true, false
	case CSRIEntryScan:
		c.Scan(SideInsn, val)
		return true, false
	case CSRDEntryScan:
		c.Scan(SideData, val)
		return true, false
	}

	return false, false
}
