// Package mmu is the memory port of a core. It translates guest virtual
// addresses, keeps the fast translation and decoded instruction caches, and
// forwards physical addresses outside guest memory to the device bus.
package mmu

import (
	"encoding/binary"
	"errors"

	"github.com/sarchlab/rvcore/isa"
	"github.com/sarchlab/rvcore/mem/trace"
	"github.com/sarchlab/rvcore/mem/vm"
	"github.com/sarchlab/rvcore/sim/naming"
	"github.com/sarchlab/rvcore/trap"
)

// ErrUnmapped means that no memory and no device claims a physical address.
var ErrUnmapped = errors.New("physical address not mapped")

// ProcessorState is the part of the core state that decides how addresses
// are translated.
type ProcessorState interface {
	// EffectivePrivilege returns the privilege an access of kind uses.
	EffectivePrivilege(kind vm.AccessKind) vm.Privilege
	VMMode() vm.Mode
	XLen() int
}

// Memory is the guest memory the MMU reads and writes directly.
type Memory interface {
	Size() uint64
	Contains(addr, n uint64) bool
	Bytes(addr, n uint64) []byte
}

// Bus serves the physical addresses that are not in guest memory. A false
// return means no device claimed the access.
type Bus interface {
	Load(addr uint64, p []byte) bool
	Store(addr uint64, p []byte) bool
}

// Stats counts what the MMU did.
type Stats struct {
	FastHits     uint64
	FastMisses   uint64
	ICacheHits   uint64
	ICacheMisses uint64
	Decodes      uint64
	MMIOAccesses uint64
	Flushes      uint64
}

// MMU is the memory port of one core.
type MMU struct {
	naming.NamedBase

	mem     Memory
	bus     Bus
	backend vm.Backend
	decoder isa.Decoder
	proc    ProcessorState

	fast    *FastCache
	icache  *ICache
	tracers trace.List

	stats Stats
}

// SetProcessor attaches the core whose state drives translation.
func (m *MMU) SetProcessor(p ProcessorState) {
	m.proc = p
	m.FlushTLB()
}

// ICache returns the instruction cache.
func (m *MMU) ICache() *ICache {
	return m.icache
}

// Stats returns a copy of the counters.
func (m *MMU) Stats() Stats {
	return m.stats
}

// FlushTLB drops every cached translation and every decoded instruction. It
// must be called whenever the mapping state of the guest changes.
func (m *MMU) FlushTLB() {
	m.fast.InvalidateAll()
	m.icache.Flush()
	m.stats.Flushes++
}

// FlushICache drops every decoded instruction.
func (m *MMU) FlushICache() {
	m.icache.Flush()
}

// RegisterTracer adds a memory tracer. Cached translations are dropped first
// so that no access the tracer is interested in skips it.
func (m *MMU) RegisterTracer(t trace.Tracer) {
	m.FlushTLB()
	m.tracers.Hook(t)
}

func (m *MMU) translate(vAddr uint64, kind vm.AccessKind) (uint64, error) {
	if m.proc == nil {
		return vAddr, nil
	}

	priv := m.proc.EffectivePrivilege(kind)
	if m.proc.VMMode() == vm.ModeBare || priv == vm.PrivMachine {
		return vAddr & xlenMask(m.proc.XLen()), nil
	}

	if m.backend == nil {
		return 0, trap.AccessFault(kind, vAddr, vm.ErrUnsupportedMode)
	}

	base, err := m.backend.Translate(vAddr, priv, kind)
	if err != nil {
		return 0, trap.AccessFault(kind, vAddr, err)
	}

	return base | vm.PageOffset(vAddr), nil
}

func xlenMask(xlen int) uint64 {
	return uint64(2)<<(xlen-1) - 1
}

// refill caches the translation when the whole physical page lies in guest
// memory, the only case the fast path can serve.
func (m *MMU) refill(vAddr, pAddr uint64, kind vm.AccessKind) {
	pBase := pAddr &^ (vm.PageSize - 1)
	if !m.mem.Contains(pBase, vm.PageSize) {
		return
	}

	m.fast.Refill(vAddr, pAddr, kind)
}

func checkSize(size int) {
	switch size {
	case 1, 2, 4, 8:
	default:
		panic("access size must be 1, 2, 4 or 8")
	}
}

// Load reads size bytes at the virtual address addr and zero-extends them.
func (m *MMU) Load(addr uint64, size int) (uint64, error) {
	checkSize(size)

	if addr&uint64(size-1) != 0 {
		return 0, trap.Misaligned(vm.Load, addr)
	}

	n := uint64(size)

	if pAddr, ok := m.fast.Lookup(addr, vm.Load); ok {
		m.stats.FastHits++
		return decode(m.mem.Bytes(pAddr, n)), nil
	}

	m.stats.FastMisses++

	var buf [8]byte
	if err := m.loadSlowPath(addr, buf[:n]); err != nil {
		return 0, err
	}

	return decode(buf[:n]), nil
}

func (m *MMU) loadSlowPath(addr uint64, p []byte) error {
	pAddr, err := m.translate(addr, vm.Load)
	if err != nil {
		return err
	}

	n := uint64(len(p))

	if m.mem.Contains(pAddr, n) {
		copy(p, m.mem.Bytes(pAddr, n))

		if m.tracers.InterestedInRange(pAddr, pAddr+vm.PageSize, vm.Load) {
			m.tracers.Trace(pAddr, n, vm.Load)
		} else {
			m.refill(addr, pAddr, vm.Load)
		}

		return nil
	}

	m.stats.MMIOAccesses++
	if m.bus == nil || !m.bus.Load(pAddr, p) {
		return trap.AccessFault(vm.Load, addr, ErrUnmapped)
	}

	return nil
}

// Store writes the low size bytes of v to the virtual address addr.
func (m *MMU) Store(addr uint64, size int, v uint64) error {
	checkSize(size)

	if addr&uint64(size-1) != 0 {
		return trap.Misaligned(vm.Store, addr)
	}

	n := uint64(size)

	if pAddr, ok := m.fast.Lookup(addr, vm.Store); ok {
		m.stats.FastHits++
		encode(m.mem.Bytes(pAddr, n), v)

		return nil
	}

	m.stats.FastMisses++

	var buf [8]byte
	encode(buf[:n], v)

	return m.storeSlowPath(addr, buf[:n])
}

func (m *MMU) storeSlowPath(addr uint64, p []byte) error {
	pAddr, err := m.translate(addr, vm.Store)
	if err != nil {
		return err
	}

	n := uint64(len(p))

	if m.mem.Contains(pAddr, n) {
		copy(m.mem.Bytes(pAddr, n), p)

		if m.tracers.InterestedInRange(pAddr, pAddr+vm.PageSize, vm.Store) {
			m.tracers.Trace(pAddr, n, vm.Store)
		} else {
			m.refill(addr, pAddr, vm.Store)
		}

		return nil
	}

	m.stats.MMIOAccesses++
	if m.bus == nil || !m.bus.Store(pAddr, p) {
		return trap.AccessFault(vm.Store, addr, ErrUnmapped)
	}

	return nil
}

func decode(b []byte) uint64 {
	switch len(b) {
	case 1:
		return uint64(b[0])
	case 2:
		return uint64(binary.LittleEndian.Uint16(b))
	case 4:
		return uint64(binary.LittleEndian.Uint32(b))
	default:
		return binary.LittleEndian.Uint64(b)
	}
}

func encode(b []byte, v uint64) {
	switch len(b) {
	case 1:
		b[0] = byte(v)
	case 2:
		binary.LittleEndian.PutUint16(b, uint16(v))
	case 4:
		binary.LittleEndian.PutUint32(b, uint32(v))
	default:
		binary.LittleEndian.PutUint64(b, v)
	}
}
