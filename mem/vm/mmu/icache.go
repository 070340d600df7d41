package mmu

import "github.com/sarchlab/rvcore/isa"

// An ICacheEntry holds a decoded instruction and the PC it was fetched from.
type ICacheEntry struct {
	Tag  uint64
	Data isa.Fetch
}

// An ICache is a direct-mapped cache of decoded instructions.
type ICache struct {
	entries []ICacheEntry
}

// NewICache creates an instruction cache with n entries.
func NewICache(n int) *ICache {
	if n <= 0 {
		panic("instruction cache must have at least one entry")
	}

	c := &ICache{entries: make([]ICacheEntry, n)}
	c.Flush()

	return c
}

// Len returns the number of entries.
func (c *ICache) Len() int {
	return len(c.entries)
}

// Index returns the entry that pc maps to.
func (c *ICache) Index(pc uint64) int {
	return int((pc / isa.PCAlign) % uint64(len(c.entries)))
}

// Entry returns the i-th entry.
func (c *ICache) Entry(i int) *ICacheEntry {
	return &c.entries[i]
}

// Flush invalidates every entry.
func (c *ICache) Flush() {
	for i := range c.entries {
		c.entries[i] = ICacheEntry{Tag: invalidTag}
	}
}
