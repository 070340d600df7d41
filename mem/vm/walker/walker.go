// Package walker translates addresses by reading the page tables that the
// guest keeps in its own memory.
package walker

import (
	"github.com/sarchlab/rvcore/mem/vm"
	"github.com/sarchlab/rvcore/sim/hooking"
	"github.com/sarchlab/rvcore/sim/naming"
)

// Page-table entry fields. Only the low word holds flags, so the referenced
// and dirty bits are updated with a 32-bit read-modify-write for every
// entry size.
const (
	pteValid      uint64 = 1 << 0
	pteTypeOffset        = 1
	pteTypeMask   uint64 = 0xf << pteTypeOffset
	pteReferenced uint32 = 1 << 5
	pteDirty      uint32 = 1 << 6
	ptePPNOffset         = 10
)

// Registers provides the architectural state the walker depends on. The root
// is read again on every walk.
type Registers interface {
	PageTableRoot() uint64
	VMMode() vm.Mode
	XLen() int
}

// Memory is the physical memory that holds the page tables.
type Memory interface {
	Size() uint64
	LoadUint32(addr uint64) uint32
	LoadUint64(addr uint64) uint64
	StoreUint32(addr uint64, v uint32)
}

// A Walker is the translation backend that walks Sv32, Sv39 and Sv48 page
// tables.
type Walker struct {
	naming.NamedBase
	hooking.HookableBase

	mem  Memory
	regs Registers
}

// Translate walks the page table for vAddr. It returns the physical page
// base, with the low virtual page-number bits merged in for superpage leaves.
func (w *Walker) Translate(
	vAddr uint64,
	priv vm.Privilege,
	kind vm.AccessKind,
) (uint64, error) {
	pBase, err := w.walk(vAddr, priv.IsSupervisor(), kind)

	if w.NumHooks() > 0 {
		w.report(vAddr, kind, err)
	}

	return pBase, err
}

func (w *Walker) walk(
	vAddr uint64,
	supervisor bool,
	kind vm.AccessKind,
) (uint64, error) {
	g, ok := w.regs.VMMode().Geometry()
	if !ok {
		return 0, vm.ErrUnsupportedMode
	}

	if !isCanonical(vAddr, g.VABits(), w.regs.XLen()) {
		return 0, vm.ErrNonCanonical
	}

	base := w.regs.PageTableRoot()
	idxMask := uint64(1)<<g.PTEIndexBits - 1

	for level := g.Levels - 1; level >= 0; level-- {
		ptShift := uint(level * g.PTEIndexBits)
		idx := (vAddr >> (vm.Log2PageSize + ptShift)) & idxMask
		pteAddr := base + idx*g.PTESize

		if !w.inMemory(pteAddr, g.PTESize) {
			return 0, vm.ErrPTEOutOfRange
		}

		pte := w.loadPTE(pteAddr, g.PTESize)
		if pte&pteValid == 0 {
			return 0, vm.ErrTranslationMiss
		}

		ppn := pte >> ptePPNOffset
		t := vm.TypeCode((pte & pteTypeMask) >> pteTypeOffset)

		if t.IsTable() {
			base = ppn << vm.Log2PageSize
			continue
		}

		if !vm.CheckPerm(t, supervisor, kind) {
			return 0, vm.ErrTranslationDenied
		}

		w.markAccessed(pteAddr, kind)

		vpn := vAddr >> vm.Log2PageSize
		superMask := uint64(1)<<ptShift - 1

		return (ppn | (vpn & superMask)) << vm.Log2PageSize, nil
	}

	return 0, vm.ErrTranslationMiss
}

// isCanonical checks that the bits above vaBits-1 are all copies of bit
// vaBits-1. Addresses as wide as the register are always canonical.
func isCanonical(vAddr uint64, vaBits, xlen int) bool {
	if vaBits >= xlen {
		return true
	}

	mask := uint64(1)<<uint(xlen-(vaBits-1)) - 1
	msbs := (vAddr >> uint(vaBits-1)) & mask

	return msbs == 0 || msbs == mask
}

func (w *Walker) inMemory(addr, n uint64) bool {
	size := w.mem.Size()
	return addr < size && n <= size-addr
}

func (w *Walker) loadPTE(addr, size uint64) uint64 {
	if size == 4 {
		return uint64(w.mem.LoadUint32(addr))
	}

	return w.mem.LoadUint64(addr)
}

func (w *Walker) markAccessed(pteAddr uint64, kind vm.AccessKind) {
	flags := pteReferenced
	if kind == vm.Store {
		flags |= pteDirty
	}

	word := w.mem.LoadUint32(pteAddr)
	if word&flags != flags {
		w.mem.StoreUint32(pteAddr, word|flags)
	}
}

func (w *Walker) report(vAddr uint64, kind vm.AccessKind, err error) {
	what := "hit"

	switch err {
	case nil:
	case vm.ErrTranslationDenied:
		what = "deny"
	default:
		what = "miss"
	}

	w.InvokeHook(hooking.HookCtx{
		Domain: w,
		Pos:    vm.HookPosTLBEvent,
		Item: vm.TLBEvent{
			What:  what,
			Side:  kind.String(),
			VAddr: vAddr,
		},
	})
}
