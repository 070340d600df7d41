package cpu

import (
	"log"

	"github.com/sarchlab/rvcore/mem/vm/mmu"
	"github.com/sarchlab/rvcore/sim/naming"
)

// A Builder can build cores.
type Builder struct {
	id         int
	xlen       int
	startPC    uint64
	trapVector uint64
	state      *State
	mmu        *mmu.MMU
	csrHandler CSRHandler
	irq        IRQSource
	debug      bool
}

// MakeBuilder creates a builder for 64-bit cores that start at 0x200 and trap
// to 0x100.
func MakeBuilder() Builder {
	return Builder{
		xlen:       64,
		startPC:    0x200,
		trapVector: 0x100,
	}
}

// WithID sets the hart ID.
func (b Builder) WithID(id int) Builder {
	b.id = id
	return b
}

// WithXLen sets the register width. Only 32 and 64 are supported.
func (b Builder) WithXLen(xlen int) Builder {
	if xlen != 32 && xlen != 64 {
		log.Panicf("unsupported xlen %d", xlen)
	}

	b.xlen = xlen

	return b
}

// WithStartPC sets the reset PC.
func (b Builder) WithStartPC(pc uint64) Builder {
	b.startPC = pc
	return b
}

// WithTrapVector sets the reset value of mtvec.
func (b Builder) WithTrapVector(addr uint64) Builder {
	b.trapVector = addr
	return b
}

// WithState makes the core use an existing state, so that hardware built
// before the core, such as a page table walker, can read its registers. The
// xlen and start PC of the state are kept.
func (b Builder) WithState(s *State) Builder {
	b.state = s
	return b
}

// WithMMU sets the memory port.
func (b Builder) WithMMU(m *mmu.MMU) Builder {
	b.mmu = m
	return b
}

// WithCSRHandler sets the hardware that serves the CSRs the core does not
// own.
func (b Builder) WithCSRHandler(h CSRHandler) Builder {
	b.csrHandler = h
	return b
}

// WithIRQSource sets the interrupt controller line.
func (b Builder) WithIRQSource(irq IRQSource) Builder {
	b.irq = irq
	return b
}

// WithDebug makes the core fetch and log every instruction.
func (b Builder) WithDebug(debug bool) Builder {
	b.debug = debug
	return b
}

// Build creates a new core and attaches it to its MMU.
func (b Builder) Build(name string) *Core {
	if b.mmu == nil {
		log.Panic("core requires an mmu")
	}

	state := b.state
	if state == nil {
		state = NewState(b.xlen, b.startPC)
	}

	state.MTVec = b.trapVector

	c := &Core{
		NamedBase:  naming.MakeNamedBase(name),
		id:         b.id,
		state:      state,
		mmu:        b.mmu,
		csrHandler: b.csrHandler,
		irq:        b.irq,
		debug:      b.debug,
	}

	b.mmu.SetProcessor(state)

	return c
}
