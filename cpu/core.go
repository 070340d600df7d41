// Package cpu models the architectural state of a core and runs the
// fetch-execute loop over the decoded instruction cache.
package cpu

import (
	"errors"
	"log"

	"github.com/sarchlab/rvcore/isa"
	"github.com/sarchlab/rvcore/mem/vm"
	"github.com/sarchlab/rvcore/mem/vm/mmu"
	"github.com/sarchlab/rvcore/sim/hooking"
	"github.com/sarchlab/rvcore/sim/naming"
	"github.com/sarchlab/rvcore/trap"
)

// HookPosTrap marks the hooks invoked when the core takes a trap. The item is
// the *trap.Trap and the detail is the PC it was raised at.
var HookPosTrap = &hooking.HookPos{Name: "Trap"}

// IRQSource is the interrupt controller line of a core.
type IRQSource interface {
	IsIRQActive() bool
}

// Stats counts what the core did.
type Stats struct {
	Retired        uint64
	Traps          uint64
	Interrupts     uint64
	Serializations uint64
}

// Core is one hart.
type Core struct {
	naming.NamedBase
	hooking.HookableBase

	id         int
	state      *State
	mmu        *mmu.MMU
	csrHandler CSRHandler
	irq        IRQSource
	debug      bool

	stats Stats
}

// ID returns the hart ID.
func (c *Core) ID() int {
	return c.id
}

// State returns the architectural state.
func (c *Core) State() *State {
	return c.state
}

// MMU returns the memory port of the core.
func (c *Core) MMU() *mmu.MMU {
	return c.mmu
}

// Stats returns a copy of the counters.
func (c *Core) Stats() Stats {
	return c.stats
}

// SetDebug switches between the cached loop and the one that fetches and
// logs every instruction.
func (c *Core) SetDebug(debug bool) {
	c.debug = debug
}

// SetTimerPending drives the machine timer interrupt line.
func (c *Core) SetTimerPending(pending bool) {
	if pending {
		c.state.MIP |= MIPMTIP
	} else {
		c.state.MIP &^= MIPMTIP
	}
}

// XReg returns integer register i. x0 always reads zero.
func (c *Core) XReg(i int) uint64 {
	if i == 0 {
		return 0
	}

	return c.state.XPR[i]
}

// SetXReg sets integer register i. Writes to x0 are ignored.
func (c *Core) SetXReg(i int, v uint64) {
	if i == 0 {
		return
	}

	c.state.XPR[i] = v
}

// Load reads guest memory through the MMU.
func (c *Core) Load(addr uint64, size int) (uint64, error) {
	return c.mmu.Load(addr, size)
}

// Store writes guest memory through the MMU.
func (c *Core) Store(addr uint64, size int, v uint64) error {
	return c.mmu.Store(addr, size, v)
}

// Serialize implements isa.Hart.
func (c *Core) Serialize() bool {
	if c.state.Serialized {
		c.state.Serialized = false
		return true
	}

	return false
}

// Step runs up to n instructions. A trap ends the current batch and costs
// one step. The instructions retired before it still count.
func (c *Core) Step(n uint64) {
	for n > 0 {
		instret, pc, err := c.runBatch(n)
		if err != nil {
			c.takeTrap(err, pc)
		}

		c.state.MInstret += instret
		c.stats.Retired += instret
		n -= instret

		if err != nil && n > 0 {
			n--
		}
	}
}

func (c *Core) runBatch(n uint64) (instret, pc uint64, err error) {
	pc = c.state.PC

	advance := func() bool {
		if pc == isa.PCSerialize {
			pc = c.state.PC
			c.state.Serialized = true
			c.stats.Serializations++

			return false
		}

		c.state.PC = pc
		instret++

		return true
	}

	if err = c.takeInterrupt(); err != nil {
		return instret, pc, err
	}

	if c.debug {
		for instret < n {
			var fetch isa.Fetch

			fetch, err = c.mmu.FetchInsn(pc)
			if err != nil {
				return instret, pc, err
			}

			if !c.state.Serialized {
				log.Printf("%s: 0x%016x (0x%08x)", c.Name(), pc, fetch.Insn.Bits())
			}

			var npc uint64

			npc, err = c.execute(fetch, pc)
			if err != nil {
				return instret, pc, err
			}

			pc = npc

			if !advance() {
				break
			}
		}

		return instret, pc, nil
	}

	ic := c.mmu.ICache()

	for instret < n {
		i := ic.Index(pc)

		var e *mmu.ICacheEntry

		e, err = c.mmu.AccessICache(pc)
		if err != nil {
			return instret, pc, err
		}

		miss := false

		// Run through the following entries for as long as they hold the
		// next PC.
		for {
			var npc uint64

			npc, err = c.execute(e.Data, pc)
			if err != nil {
				return instret, pc, err
			}

			pc = npc

			if i == ic.Len()-1 {
				break
			}

			next := ic.Entry(i + 1)
			if next.Tag != pc {
				miss = true
				break
			}

			if instret+1 == n {
				break
			}

			instret++
			c.state.PC = pc
			i++
			e = next
		}

		if !advance() {
			break
		}

		// Fell off the end of a straight-line run rather than took a branch.
		// A failed refill is left for the access at the top of the loop,
		// which raises it once the instruction is actually reached.
		if miss && pc > e.Tag && pc <= e.Tag+isa.MaxLength {
			if j := ic.Index(pc); ic.Entry(j).Tag != pc {
				_, _ = c.mmu.RefillICache(pc, j)
			}
		}
	}

	return instret, pc, nil
}

func (c *Core) execute(fetch isa.Fetch, pc uint64) (uint64, error) {
	npc, err := fetch.Func(c, fetch.Insn, pc)
	if err != nil {
		return 0, err
	}

	if c.irq != nil {
		if c.irq.IsIRQActive() {
			c.state.MIP |= mipExternal
		} else {
			c.state.MIP &^= mipExternal
		}
	}

	return npc, nil
}

func (c *Core) takeInterrupt() error {
	pending := c.state.MIP & c.state.MIE
	if pending == 0 {
		return nil
	}

	if c.state.Privilege() == vm.PrivMachine && c.state.MStatus&MStatusIE == 0 {
		return nil
	}

	c.stats.Interrupts++

	bit := lowestBit(pending)

	switch {
	case bit&mipSoftware != 0:
		return trap.Interrupt(trap.SoftwareInterrupt)
	case bit&mipTimer != 0:
		return trap.Interrupt(trap.TimerInterrupt)
	default:
		return trap.Interrupt(trap.ExternalInterrupt)
	}
}

// takeTrap records the trap and redirects the core to the trap vector in
// machine mode.
func (c *Core) takeTrap(err error, epc uint64) {
	var t *trap.Trap
	if !errors.As(err, &t) {
		log.Panicf("%s: instruction at 0x%x failed without a trap: %v",
			c.Name(), epc, err)
	}

	c.stats.Traps++

	if c.NumHooks() > 0 {
		c.InvokeHook(hooking.HookCtx{
			Domain: c,
			Pos:    HookPosTrap,
			Item:   t,
			Detail: epc,
		})
	}

	s := c.state
	s.PC = s.MTVec
	s.MEPC = epc
	s.MCause = t.Kind.Cause(s.xlen)

	if t.HasTVal {
		s.MBadAddr = t.TVal
	}

	s.Serialized = false
	c.setMStatusRaw(pushPrivilege(s.MStatus))
}

// TrapReturn leaves the trap handler and returns the PC to resume at.
func (c *Core) TrapReturn() uint64 {
	c.setMStatusRaw(popPrivilege(c.state.MStatus))
	return c.state.MEPC
}

func (c *Core) setMStatusRaw(v uint64) {
	old := c.state.MStatus
	c.state.MStatus = v

	if (old^v)&mappingFields != 0 {
		c.mmu.FlushTLB()
	}
}
