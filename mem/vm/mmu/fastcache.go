package mmu

import "github.com/sarchlab/rvcore/mem/vm"

const invalidTag = ^uint64(0)

// A FastCache remembers recent page translations so that loads, stores and
// fetches to a known page skip the translation backend.
//
// Each slot keeps one tag per access kind and the offset between the
// physical and the virtual page base. Slots are indexed by the virtual page
// number modulo the number of slots.
type FastCache struct {
	tags   [3][]uint64
	offset []uint64
}

// NewFastCache creates a fast cache with n slots.
func NewFastCache(n int) *FastCache {
	if n <= 0 {
		panic("fast cache must have at least one slot")
	}

	c := &FastCache{offset: make([]uint64, n)}
	for k := range c.tags {
		c.tags[k] = make([]uint64, n)
	}

	c.InvalidateAll()

	return c
}

// Len returns the number of slots.
func (c *FastCache) Len() int {
	return len(c.offset)
}

func (c *FastCache) index(vpn uint64) int {
	return int(vpn % uint64(len(c.offset)))
}

// Lookup returns the physical address of vAddr if the page is cached for
// kind.
func (c *FastCache) Lookup(vAddr uint64, kind vm.AccessKind) (uint64, bool) {
	vpn := vm.PageNumber(vAddr)
	i := c.index(vpn)

	if c.tags[kind][i] != vpn {
		return 0, false
	}

	return vAddr + c.offset[i], true
}

// Refill records that the page holding vAddr maps to the page holding pAddr
// for kind. The other kinds keep the slot only if they cached the same page.
func (c *FastCache) Refill(vAddr, pAddr uint64, kind vm.AccessKind) {
	vpn := vm.PageNumber(vAddr)
	i := c.index(vpn)
	offset := (pAddr &^ (vm.PageSize - 1)) - (vAddr &^ (vm.PageSize - 1))

	for k := range c.tags {
		if vm.AccessKind(k) == kind {
			continue
		}

		if c.tags[k][i] != vpn || c.offset[i] != offset {
			c.tags[k][i] = invalidTag
		}
	}

	c.tags[kind][i] = vpn
	c.offset[i] = offset
}

// InvalidateAll drops every cached translation.
func (c *FastCache) InvalidateAll() {
	for k := range c.tags {
		for i := range c.tags[k] {
			c.tags[k][i] = invalidTag
		}
	}
}
