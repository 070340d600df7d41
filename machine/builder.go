package machine

import (
	"log"
	"sync"

	"github.com/rs/xid"

	"github.com/sarchlab/rvcore/config"
	"github.com/sarchlab/rvcore/cpu"
	"github.com/sarchlab/rvcore/isa"
	"github.com/sarchlab/rvcore/mem/bus"
	"github.com/sarchlab/rvcore/mem/guestmem"
	"github.com/sarchlab/rvcore/mem/vm"
	"github.com/sarchlab/rvcore/mem/vm/mmu"
	"github.com/sarchlab/rvcore/mem/vm/tlb"
	"github.com/sarchlab/rvcore/mem/vm/walker"
	"github.com/sarchlab/rvcore/sim/naming"
	"github.com/sarchlab/rvcore/sim/timing"
)

type deviceMapping struct {
	base uint64
	dev  bus.Device
}

// A Builder can build machines.
type Builder struct {
	cfg     config.Config
	decoder isa.Decoder
	irq     cpu.IRQSource
	devices []deviceMapping
}

// MakeBuilder returns a Builder that uses the default configuration and
// decodes every instruction as illegal.
func MakeBuilder() Builder {
	return Builder{
		cfg:     config.Default(),
		decoder: isa.IllegalDecoder{},
	}
}

// WithConfig sets the configuration.
func (b Builder) WithConfig(c config.Config) Builder {
	b.cfg = c
	return b
}

// WithDecoder sets the instruction decoder shared by all cores.
func (b Builder) WithDecoder(d isa.Decoder) Builder {
	b.decoder = d
	return b
}

// WithIRQSource connects the interrupt line of every core to irq.
func (b Builder) WithIRQSource(irq cpu.IRQSource) Builder {
	b.irq = irq
	return b
}

// WithDevice maps a device on the bus.
func (b Builder) WithDevice(base uint64, dev bus.Device) Builder {
	b.devices = append(b.devices, deviceMapping{base: base, dev: dev})
	return b
}

// Build creates a machine. Images listed in the configuration are not
// loaded; call LoadImages for that. An invalid configuration panics.
func (b Builder) Build(name string) *Machine {
	if err := b.cfg.Validate(); err != nil {
		log.Panicf("machine %s: %v", name, err)
	}

	m := &Machine{
		NamedBase: naming.MakeNamedBase(name),
		id:        xid.New(),
		cfg:       b.cfg,
		mem:       guestmem.New(b.cfg.MemorySize),
		bus:       bus.New(),
		clock:     &timing.InstCounter{},
	}
	m.cond = sync.NewCond(&m.mu)

	for _, d := range b.devices {
		m.bus.AddDevice(d.base, d.dev)
	}

	for i := 0; i < b.cfg.NumCores; i++ {
		b.buildCore(m, i)
	}

	if b.cfg.MTimerBase != 0 {
		sinks := make([]bus.TimerSink, len(m.cores))
		for i, c := range m.cores {
			sinks[i] = c
		}

		m.timer = bus.NewMTimer(sinks...)
		m.bus.AddDevice(b.cfg.MTimerBase, m.timer)
	}

	return m
}

func (b Builder) buildCore(m *Machine, i int) {
	name := m.Name()
	state := cpu.NewState(b.cfg.XLen, b.cfg.StartPC)

	var (
		backend    vm.Backend
		csrHandler cpu.CSRHandler
		w          *walker.Walker
		t          *tlb.Comp
	)

	switch b.cfg.Backend {
	case config.BackendTLB:
		t = tlb.MakeBuilder().
			WithNumSets(tlb.SideInsn, b.cfg.TLB.ISets).
			WithNumWays(tlb.SideInsn, b.cfg.TLB.IWays).
			WithNumSets(tlb.SideData, b.cfg.TLB.DSets).
			WithNumWays(tlb.SideData, b.cfg.TLB.DWays).
			Build(naming.Child(name, "TLB", i))
		backend = t
		csrHandler = t
	default:
		w = walker.MakeBuilder().
			WithMemory(m.mem).
			WithRegisters(state).
			Build(naming.Child(name, "Walker", i))
		backend = w
	}

	port := mmu.MakeBuilder().
		WithMemory(m.mem).
		WithBus(m.bus).
		WithBackend(backend).
		WithDecoder(b.decoder).
		WithNumFastCacheEntries(b.cfg.FastCacheEntries).
		WithNumICacheEntries(b.cfg.ICacheEntries).
		Build(naming.Child(name, "MMU", i))

	builder := cpu.MakeBuilder().
		WithID(i).
		WithXLen(b.cfg.XLen).
		WithState(state).
		WithTrapVector(b.cfg.TrapVector).
		WithMMU(port).
		WithIRQSource(b.irq).
		WithDebug(b.cfg.Debug)
	if csrHandler != nil {
		builder = builder.WithCSRHandler(csrHandler)
	}

	m.cores = append(m.cores, builder.Build(naming.Child(name, "Core", i)))
	m.walkers = append(m.walkers, w)
	m.tlbs = append(m.tlbs, t)
}
