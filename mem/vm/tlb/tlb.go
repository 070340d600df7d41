// Package tlb provides a software-managed, set-associative TLB. The TLB never
// walks page tables. Software installs every mapping through control
// registers, and a lookup that finds nothing fails.
package tlb

import (
	"github.com/sarchlab/rvcore/mem/vm"
	"github.com/sarchlab/rvcore/mem/vm/tlb/internal"
	"github.com/sarchlab/rvcore/sim/hooking"
	"github.com/sarchlab/rvcore/sim/naming"
)

// Way is the content of one TLB way.
type Way = internal.Way

// Side selects the instruction or the data array.
type Side int

// The two sides of the TLB.
const (
	SideInsn Side = iota
	SideData
	numSides
)

func (s Side) String() string {
	if s == SideInsn {
		return "I"
	}

	return "D"
}

// SideFor returns the side that serves an access kind.
func SideFor(kind vm.AccessKind) Side {
	if kind == vm.Fetch {
		return SideInsn
	}

	return SideData
}

// An InstallReq installs one mapping. VAddr may carry page-offset bits; they
// are masked off according to the granularity of Attr.
type InstallReq struct {
	Side  Side
	VAddr uint32
	Attr  vm.PageAttr
}

type array struct {
	sets []internal.Set

	vAddr uint32 // latched by VADDR writes and by failed lookups
	info  Way    // latched by ENTRY_SCAN writes
	scan  uint64
}

func (a *array) setIndex(vAddr uint32, megapage bool) int {
	shift := vm.Log2PageSize
	if megapage {
		shift = vm.Log2MegapageSize
	}

	return int(vAddr>>shift) & (len(a.sets) - 1)
}

// Comp is the architectural TLB of one core. It implements vm.Backend.
type Comp struct {
	naming.NamedBase
	hooking.HookableBase

	arrays [numSides]*array
}

func baseOf(vAddr uint32, megapage bool) uint32 {
	if megapage {
		return vAddr &^ uint32(vm.MegapageSize-1)
	}

	return vAddr &^ uint32(vm.PageSize-1)
}

func (c *Comp) search(s Side, vAddr uint32) (internal.Set, int, bool) {
	a := c.arrays[s]

	set := a.sets[a.setIndex(vAddr, true)]
	if wayID, found := set.Lookup(baseOf(vAddr, true), true); found {
		return set, wayID, true
	}

	set = a.sets[a.setIndex(vAddr, false)]
	if wayID, found := set.Lookup(baseOf(vAddr, false), false); found {
		return set, wayID, true
	}

	return nil, 0, false
}

// Translate looks the address up in the side that serves kind. Only the low
// 32 bits of the virtual address take part in the lookup.
func (c *Comp) Translate(
	vAddr uint64,
	priv vm.Privilege,
	kind vm.AccessKind,
) (uint64, error) {
	side := SideFor(kind)
	va := uint32(vAddr)

	set, wayID, found := c.search(side, va)
	if !found {
		c.arrays[side].vAddr = va
		c.report("miss", side, va, 0)

		return 0, vm.ErrTranslationMiss
	}

	e := set.Entry(wayID)
	if !vm.CheckPerm(e.Attr.Type(), priv.IsSupervisor(), kind) {
		c.arrays[side].vAddr = va
		c.report("deny", side, va, e.Attr)

		return 0, vm.ErrTranslationDenied
	}

	e.Attr = e.Attr.WithAccess(kind)
	set.Update(wayID, e)

	pBase := e.Attr.PhysBase()
	if e.Attr.Megapage() {
		pBase |= uint64(va) & (vm.MegapageSize - 1) &^ (vm.PageSize - 1)
	}

	c.report("hit", side, va, e.Attr)

	return pBase, nil
}

// SetVAddr latches the virtual address used by the next Install on side.
func (c *Comp) SetVAddr(side Side, vAddr uint64) {
	c.arrays[side].vAddr = uint32(vAddr)
}

// VAddr returns the latched virtual address of side. After a failed lookup it
// holds the faulting address.
func (c *Comp) VAddr(side Side) uint64 {
	return uint64(c.arrays[side].vAddr)
}

// Install installs attr for the virtual address latched on side.
func (c *Comp) Install(side Side, attr vm.PageAttr) {
	c.InstallEntry(InstallReq{
		Side:  side,
		VAddr: c.arrays[side].vAddr,
		Attr:  attr,
	})
}

// InstallEntry installs a mapping. An entry of the same granularity that
// already maps the page is overwritten in place. Otherwise an invalid way is
// filled, and, when the set is full, the oldest way is evicted. An invalid
// attribute installs nothing; it invalidates whichever entry translates the
// address, megapage first.
func (c *Comp) InstallEntry(req InstallReq) {
	if !req.Attr.Valid() {
		c.invalidate(req)
		return
	}

	a := c.arrays[req.Side]
	megapage := req.Attr.Megapage()
	e := Way{VAddr: baseOf(req.VAddr, megapage), Attr: req.Attr}
	set := a.sets[a.setIndex(req.VAddr, megapage)]

	if wayID, found := set.Lookup(e.VAddr, megapage); found {
		set.Update(wayID, e)
		c.report("install", req.Side, e.VAddr, e.Attr)

		return
	}

	if wayID, found := set.FindInvalid(); found {
		set.Update(wayID, e)
		c.report("install", req.Side, e.VAddr, e.Attr)

		return
	}

	evicted := set.Entry(0)
	set.Rotate(e)
	c.report("evict", req.Side, evicted.VAddr, evicted.Attr)
	c.report("install", req.Side, e.VAddr, e.Attr)
}

func (c *Comp) invalidate(req InstallReq) {
	set, wayID, found := c.search(req.Side, req.VAddr)
	if !found {
		return
	}

	e := set.Entry(wayID)
	e.Attr = req.Attr
	set.Update(wayID, e)
	c.report("invalidate", req.Side, e.VAddr, e.Attr)
}

// Scan latches and returns the entry at flat index way*sets+set. The index
// wraps around the number of entries.
func (c *Comp) Scan(side Side, index uint64) Way {
	a := c.arrays[side]
	numSets := uint64(len(a.sets))
	numEntries := numSets * uint64(a.sets[0].NumWays())
	index %= numEntries

	a.scan = index
	a.info = a.sets[index%numSets].Entry(int(index / numSets))

	return a.info
}

// Scanned returns the entry latched by the last Scan on side.
func (c *Comp) Scanned(side Side) Way {
	return c.arrays[side].info
}

// Flush invalidates every entry on both sides and clears the latches.
func (c *Comp) Flush() {
	for s, a := range c.arrays {
		for _, set := range a.sets {
			set.Reset()
		}

		a.vAddr = 0
		a.info = Way{}
		a.scan = 0

		c.report("flush", Side(s), 0, 0)
	}
}

// NumSets returns the number of sets on side.
func (c *Comp) NumSets(side Side) int {
	return len(c.arrays[side].sets)
}

// NumWays returns the number of ways per set on side.
func (c *Comp) NumWays(side Side) int {
	return c.arrays[side].sets[0].NumWays()
}

func (c *Comp) report(what string, side Side, vAddr uint32, attr vm.PageAttr) {
	if c.NumHooks() == 0 {
		return
	}

	c.InvokeHook(hooking.HookCtx{
		Domain: c,
		Pos:    vm.HookPosTLBEvent,
		Item: vm.TLBEvent{
			What:  what,
			Side:  side.String(),
			VAddr: uint64(vAddr),
			Attr:  attr,
		},
	})
}
