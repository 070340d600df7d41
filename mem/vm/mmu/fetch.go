package mmu

import (
	"encoding/binary"

	"github.com/sarchlab/rvcore/isa"
	"github.com/sarchlab/rvcore/mem/vm"
	"github.com/sarchlab/rvcore/trap"
)

type fetchedParcel struct {
	bits  uint16
	pAddr uint64
	inMem bool
}

// AccessICache returns the decoded instruction at pc, fetching and decoding
// it on a miss.
func (m *MMU) AccessICache(pc uint64) (*ICacheEntry, error) {
	i := m.icache.Index(pc)

	e := m.icache.Entry(i)
	if e.Tag == pc {
		m.stats.ICacheHits++
		return e, nil
	}

	return m.RefillICache(pc, i)
}

// RefillICache fetches and decodes the instruction at pc into entry i. The
// entry is left invalid when the instruction has to be observed by a tracer
// or does not come from guest memory.
func (m *MMU) RefillICache(pc uint64, i int) (*ICacheEntry, error) {
	m.stats.ICacheMisses++

	e := m.icache.Entry(i)

	fetch, p0, err := m.fetch(pc)
	if err != nil {
		return nil, err
	}

	e.Tag = pc
	e.Data = fetch

	if !p0.inMem {
		e.Tag = invalidTag
		return e, nil
	}

	if m.tracers.InterestedInRange(p0.pAddr, p0.pAddr+1, vm.Fetch) {
		e.Tag = invalidTag
		m.tracers.Trace(p0.pAddr, uint64(fetch.Insn.Length()), vm.Fetch)
	}

	return e, nil
}

// FetchInsn fetches and decodes the instruction at pc without going through
// the instruction cache.
func (m *MMU) FetchInsn(pc uint64) (isa.Fetch, error) {
	fetch, _, err := m.fetch(pc)
	return fetch, err
}

func (m *MMU) fetch(pc uint64) (isa.Fetch, fetchedParcel, error) {
	if pc%isa.PCAlign != 0 {
		return isa.Fetch{}, fetchedParcel{}, trap.Misaligned(vm.Fetch, pc)
	}

	p0, err := m.fetchParcel(pc)
	if err != nil {
		return isa.Fetch{}, p0, err
	}

	var parcels [isa.MaxLength / isa.ParcelSize]uint16
	parcels[0] = p0.bits

	n := isa.Length(p0.bits) / isa.ParcelSize
	for k := 1; k < n; k++ {
		addr := pc + uint64(k*isa.ParcelSize)
		pAddr := p0.pAddr + uint64(k*isa.ParcelSize)

		if p0.inMem && vm.PageOffset(addr) != 0 &&
			m.mem.Contains(pAddr, isa.ParcelSize) {
			parcels[k] = binary.LittleEndian.Uint16(
				m.mem.Bytes(pAddr, isa.ParcelSize))

			continue
		}

		p, err := m.fetchParcel(addr)
		if err != nil {
			return isa.Fetch{}, p0, err
		}

		parcels[k] = p.bits
	}

	insn := isa.Assemble(parcels[:n]...)

	m.stats.Decodes++

	fn, err := m.decoder.Decode(insn)
	if err != nil {
		return isa.Fetch{}, p0, trap.IllegalInstruction(insn.Bits(), err)
	}

	return isa.Fetch{Func: fn, Insn: insn}, p0, nil
}

func (m *MMU) fetchParcel(addr uint64) (fetchedParcel, error) {
	if pAddr, ok := m.fast.Lookup(addr, vm.Fetch); ok {
		m.stats.FastHits++

		return fetchedParcel{
			bits:  binary.LittleEndian.Uint16(m.mem.Bytes(pAddr, isa.ParcelSize)),
			pAddr: pAddr,
			inMem: true,
		}, nil
	}

	m.stats.FastMisses++

	pAddr, err := m.translate(addr, vm.Fetch)
	if err != nil {
		return fetchedParcel{}, err
	}

	if m.mem.Contains(pAddr, isa.ParcelSize) {
		m.refill(addr, pAddr, vm.Fetch)

		return fetchedParcel{
			bits:  binary.LittleEndian.Uint16(m.mem.Bytes(pAddr, isa.ParcelSize)),
			pAddr: pAddr,
			inMem: true,
		}, nil
	}

	m.stats.MMIOAccesses++

	var buf [isa.ParcelSize]byte
	if m.bus == nil || !m.bus.Load(pAddr, buf[:]) {
		return fetchedParcel{}, trap.AccessFault(vm.Fetch, addr, ErrUnmapped)
	}

	return fetchedParcel{bits: binary.LittleEndian.Uint16(buf[:]), pAddr: pAddr}, nil
}
