package mmu

import (
	"log"

	"github.com/sarchlab/rvcore/isa"
	"github.com/sarchlab/rvcore/mem/vm"
	"github.com/sarchlab/rvcore/sim/naming"
)

// A Builder can build MMUs.
type Builder struct {
	mem            Memory
	bus            Bus
	backend        vm.Backend
	decoder        isa.Decoder
	numFastEntries int
	numICacheLines int
}

// MakeBuilder creates a new builder with 256 fast cache slots and 1024
// instruction cache entries.
func MakeBuilder() Builder {
	return Builder{
		decoder:        isa.IllegalDecoder{},
		numFastEntries: 256,
		numICacheLines: 1024,
	}
}

// WithMemory sets the guest memory.
func (b Builder) WithMemory(mem Memory) Builder {
	b.mem = mem
	return b
}

// WithBus sets the bus that serves addresses outside guest memory.
func (b Builder) WithBus(bus Bus) Builder {
	b.bus = bus
	return b
}

// WithBackend sets the translation backend.
func (b Builder) WithBackend(backend vm.Backend) Builder {
	b.backend = backend
	return b
}

// WithDecoder sets the instruction decoder.
func (b Builder) WithDecoder(d isa.Decoder) Builder {
	b.decoder = d
	return b
}

// WithNumFastCacheEntries sets the number of fast translation cache slots.
func (b Builder) WithNumFastCacheEntries(n int) Builder {
	if n <= 0 {
		log.Panicf("invalid number of fast cache entries %d", n)
	}

	b.numFastEntries = n

	return b
}

// WithNumICacheEntries sets the number of instruction cache entries.
func (b Builder) WithNumICacheEntries(n int) Builder {
	if n <= 0 {
		log.Panicf("invalid number of icache entries %d", n)
	}

	b.numICacheLines = n

	return b
}

// Build creates a new MMU.
func (b Builder) Build(name string) *MMU {
	if b.mem == nil {
		log.Panic("mmu requires a memory")
	}

	if b.decoder == nil {
		log.Panic("mmu requires a decoder")
	}

	return &MMU{
		NamedBase: naming.MakeNamedBase(name),
		mem:       b.mem,
		bus:       b.bus,
		backend:   b.backend,
		decoder:   b.decoder,
		fast:      NewFastCache(b.numFastEntries),
		icache:    NewICache(b.numICacheLines),
	}
}
