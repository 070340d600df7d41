// Package machine puts guest memory, the device bus and the cores together
// and schedules the cores round robin.
package machine

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"sync"

	"github.com/rs/xid"

	"github.com/sarchlab/rvcore/config"
	"github.com/sarchlab/rvcore/cpu"
	"github.com/sarchlab/rvcore/mem/bus"
	"github.com/sarchlab/rvcore/mem/guestmem"
	"github.com/sarchlab/rvcore/mem/trace"
	"github.com/sarchlab/rvcore/mem/vm/tlb"
	"github.com/sarchlab/rvcore/mem/vm/walker"
	"github.com/sarchlab/rvcore/sim/hooking"
	"github.com/sarchlab/rvcore/sim/naming"
	"github.com/sarchlab/rvcore/sim/timing"
)

// ErrExited is returned once the first core reaches the exit address.
var ErrExited = errors.New("guest reached the exit address")

// Argument registers reported when the guest exits.
const (
	regA0 = 10
	regA1 = 11
	regA2 = 12
)

// A Machine is an emulation session.
//
// All guest state is guarded by one lock. The cores advance in quanta of
// Interleave instructions; the lock is held for a whole Step call, so
// Inspect, Pause and the accessors used from other goroutines observe the
// machine between calls only.
type Machine struct {
	naming.NamedBase

	id    xid.ID
	cfg   config.Config
	mem   *guestmem.Memory
	bus   *bus.Bus
	timer *bus.MTimer
	clock *timing.InstCounter

	cores   []*cpu.Core
	walkers []*walker.Walker
	tlbs    []*tlb.Comp

	mu     sync.Mutex
	cond   *sync.Cond
	paused bool
	exited bool

	currentStep uint64
	currentCore int
	rtcHandlers []func(ticks uint64)
}

// ID returns the session ID.
func (m *Machine) ID() string {
	return m.id.String()
}

// Config returns the configuration the machine was built from.
func (m *Machine) Config() config.Config {
	return m.cfg
}

// NumCores returns the number of cores.
func (m *Machine) NumCores() int {
	return len(m.cores)
}

// Core returns core i.
func (m *Machine) Core(i int) *cpu.Core {
	return m.cores[i]
}

// Walker returns the page-table walker of core i, or nil when the machine
// uses software TLBs.
func (m *Machine) Walker(i int) *walker.Walker {
	return m.walkers[i]
}

// TLB returns the software TLB of core i, or nil when the machine walks
// page tables.
func (m *Machine) TLB(i int) *tlb.Comp {
	return m.tlbs[i]
}

// Memory returns guest memory.
func (m *Machine) Memory() *guestmem.Memory {
	return m.mem
}

// Bus returns the device bus.
func (m *Machine) Bus() *bus.Bus {
	return m.bus
}

// Timer returns the machine timer, or nil if none is mapped.
func (m *Machine) Timer() *bus.MTimer {
	return m.timer
}

// Clock tells the number of instructions the scheduler has given out.
func (m *Machine) Clock() timing.TimeTeller {
	return m.clock
}

// OnRTCTick registers a function that receives the RTC ticks at the end of
// every scheduling round.
func (m *Machine) OnRTCTick(f func(ticks uint64)) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.rtcHandlers = append(m.rtcHandlers, f)
}

// LoadImages loads every image in the configuration. Memory images are
// copied into guest memory and ROM images are mapped on the bus.
func (m *Machine) LoadImages() error {
	for _, img := range m.cfg.Images {
		if err := m.LoadImage(img); err != nil {
			return err
		}
	}

	return nil
}

// LoadImage loads one image.
func (m *Machine) LoadImage(img config.Image) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if img.ROM {
		data, err := os.ReadFile(img.Path)
		if err != nil {
			return err
		}

		m.bus.AddDevice(img.Addr, bus.NewROM(data))

		return nil
	}

	f, err := os.Open(img.Path)
	if err != nil {
		return err
	}
	defer f.Close()

	n, err := m.mem.LoadImage(f, img.Addr)
	if err != nil {
		return fmt.Errorf("loading %s: %w", img.Path, err)
	}

	log.Printf("%s: loaded %d bytes of %s at 0x%x", m.Name(), n, img.Path, img.Addr)

	for _, c := range m.cores {
		c.MMU().FlushICache()
	}

	return nil
}

// RegisterTracer hooks a memory tracer to every core.
func (m *Machine) RegisterTracer(t trace.Tracer) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, c := range m.cores {
		c.MMU().RegisterTracer(t)
	}
}

// AcceptHook hooks h to every core and every translation backend.
func (m *Machine) AcceptHook(h hooking.Hook) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i, c := range m.cores {
		c.AcceptHook(h)

		if m.walkers[i] != nil {
			m.walkers[i].AcceptHook(h)
		}

		if m.tlbs[i] != nil {
			m.tlbs[i].AcceptHook(h)
		}
	}
}

// FlushTranslations drops every cached translation, including the entries
// of the software TLBs.
func (m *Machine) FlushTranslations() {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i, c := range m.cores {
		if m.tlbs[i] != nil {
			m.tlbs[i].Flush()
		}

		c.MMU().FlushTLB()
	}
}

// Inspect runs f while no core executes.
func (m *Machine) Inspect(f func()) {
	m.mu.Lock()
	defer m.mu.Unlock()

	f()
}

// Pause stops Run before its next quantum.
func (m *Machine) Pause() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.paused = true
}

// Continue lets a paused Run go on.
func (m *Machine) Continue() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.paused = false
	m.cond.Broadcast()
}

// Paused tells if the machine is paused.
func (m *Machine) Paused() bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.paused
}

// Exited tells if the guest has reached the exit address.
func (m *Machine) Exited() bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.exited
}

// Step gives out n instructions to the cores, ignoring Pause.
func (m *Machine) Step(n uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.step(n)
}

// Run steps the machine until n instructions are given out, the guest exits
// or ctx is done. A zero n runs without a limit. Run waits while the machine
// is paused.
func (m *Machine) Run(ctx context.Context, n uint64) error {
	stop := context.AfterFunc(ctx, func() {
		m.mu.Lock()
		defer m.mu.Unlock()

		m.cond.Broadcast()
	})
	defer stop()

	for done := uint64(0); n == 0 || done < n; {
		quantum := m.cfg.Interleave
		if n != 0 && n-done < quantum {
			quantum = n - done
		}

		if err := m.runQuantum(ctx, quantum); err != nil {
			return err
		}

		done += quantum
	}

	return nil
}

func (m *Machine) runQuantum(ctx context.Context, n uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for m.paused && ctx.Err() == nil {
		m.cond.Wait()
	}

	if err := ctx.Err(); err != nil {
		return err
	}

	return m.step(n)
}
