// Package bus routes physical accesses that fall outside guest memory to
// memory-mapped devices.
package bus

import (
	"log"
	"sort"
)

// A Device is a memory-mapped peripheral. Addresses are offsets from the
// base the device is mapped at. Returning false rejects the access.
type Device interface {
	Load(offset uint64, p []byte) bool
	Store(offset uint64, p []byte) bool
}

type mapping struct {
	base uint64
	dev  Device
}

// A Bus finds the device that holds an address. An address belongs to the
// device with the greatest base that is not above it.
type Bus struct {
	mappings []mapping
}

// New creates an empty bus.
func New() *Bus {
	return &Bus{}
}

// AddDevice maps dev at base. Mapping two devices at the same base panics.
func (b *Bus) AddDevice(base uint64, dev Device) {
	i := sort.Search(len(b.mappings), func(i int) bool {
		return b.mappings[i].base >= base
	})

	if i < len(b.mappings) && b.mappings[i].base == base {
		log.Panicf("two devices mapped at 0x%x", base)
	}

	b.mappings = append(b.mappings, mapping{})
	copy(b.mappings[i+1:], b.mappings[i:])
	b.mappings[i] = mapping{base: base, dev: dev}
}

func (b *Bus) find(addr uint64) (mapping, bool) {
	i := sort.Search(len(b.mappings), func(i int) bool {
		return b.mappings[i].base > addr
	})

	if i == 0 {
		return mapping{}, false
	}

	return b.mappings[i-1], true
}

// Load reads len(p) bytes at addr. It returns false if no device takes the
// access.
func (b *Bus) Load(addr uint64, p []byte) bool {
	m, ok := b.find(addr)
	if !ok {
		return false
	}

	return m.dev.Load(addr-m.base, p)
}

// Store writes p at addr. It returns false if no device takes the access.
func (b *Bus) Store(addr uint64, p []byte) bool {
	m, ok := b.find(addr)
	if !ok {
		return false
	}

	return m.dev.Store(addr-m.base, p)
}

// Bases returns the bases of all mapped devices in ascending order.
func (b *Bus) Bases() []uint64 {
	bases := make([]uint64, len(b.mappings))
	for i, m := range b.mappings {
		bases[i] = m.base
	}

	return bases
}
