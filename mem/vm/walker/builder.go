package walker

import (
	"log"

	"github.com/sarchlab/rvcore/sim/naming"
)

// A Builder can build page-table walkers.
type Builder struct {
	mem  Memory
	regs Registers
}

// MakeBuilder returns a Builder.
func MakeBuilder() Builder {
	return Builder{}
}

// WithMemory sets the memory that holds the page tables.
func (b Builder) WithMemory(mem Memory) Builder {
	b.mem = mem
	return b
}

// WithRegisters sets where the walker reads the root and the mode from.
func (b Builder) WithRegisters(regs Registers) Builder {
	b.regs = regs
	return b
}

// Build creates a new Walker.
func (b Builder) Build(name string) *Walker {
	if b.mem == nil {
		log.Panicf("walker %s: memory is not set", name)
	}

	if b.regs == nil {
		log.Panicf("walker %s: registers are not set", name)
	}

	return &Walker{
		NamedBase: naming.MakeNamedBase(name),
		mem:       b.mem,
		regs:      b.regs,
	}
}
