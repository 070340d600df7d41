// Package trace provides tracers that observe guest memory accesses.
package trace

import (
	"log"

	"github.com/rs/xid"

	"github.com/sarchlab/rvcore/datarecording"
	"github.com/sarchlab/rvcore/mem/vm"
	"github.com/sarchlab/rvcore/sim/timing"
)

// A Tracer observes physical memory accesses. Accesses to ranges the tracer
// is interested in are never served from a cache that would hide them.
type Tracer interface {
	InterestedInRange(begin, end uint64, kind vm.AccessKind) bool
	Trace(addr, size uint64, kind vm.AccessKind)
}

// Range is the half-open physical address range [Begin, End).
type Range struct {
	Begin, End uint64
}

// All covers every physical address.
var All = Range{Begin: 0, End: ^uint64(0)}

// Overlaps tells if [begin, end) shares an address with r.
func (r Range) Overlaps(begin, end uint64) bool {
	return begin < r.End && r.Begin < end
}

// memoryAccessEntry represents a memory access in the database
type memoryAccessEntry struct {
	ID       string `json:"id"`
	Location string `json:"location"`
	What     string `json:"what"`
	Time     uint64 `json:"time"`
	Address  uint64 `json:"address"`
	ByteSize uint64 `json:"byte_size"`
}

// A tracer is a hook that can write memory accesses to a log.
type tracer struct {
	timeTeller timing.TimeTeller
	logger     *log.Logger
	rng        Range
}

// NewTracer creates a tracer that logs the accesses inside rng.
func NewTracer(
	logger *log.Logger,
	timeTeller timing.TimeTeller,
	rng Range,
) Tracer {
	t := new(tracer)
	t.logger = logger
	t.timeTeller = timeTeller
	t.rng = rng

	return t
}

func (t *tracer) InterestedInRange(begin, end uint64, _ vm.AccessKind) bool {
	return t.rng.Overlaps(begin, end)
}

func (t *tracer) Trace(addr, size uint64, kind vm.AccessKind) {
	if !t.rng.Overlaps(addr, addr+size) {
		return
	}

	t.logger.Printf("%d, %s, 0x%x, %d\n",
		t.timeTeller.CurrentTime(), kind, addr, size)
}

const memoryAccessTable = "memory_accesses"

// A dbTracer is a hook that can record the memory accesses into a database
// using the data recorder.
type dbTracer struct {
	timeTeller   timing.TimeTeller
	dataRecorder datarecording.DataRecorder
	location     string
	rng          Range
}

// NewDBTracer creates a tracer that records the accesses inside rng. The
// location names the agent in every record.
func NewDBTracer(
	dataRecorder datarecording.DataRecorder,
	timeTeller timing.TimeTeller,
	location string,
	rng Range,
) Tracer {
	t := &dbTracer{
		timeTeller:   timeTeller,
		dataRecorder: dataRecorder,
		location:     location,
		rng:          rng,
	}

	t.dataRecorder.CreateTable(memoryAccessTable, memoryAccessEntry{})

	return t
}

func (t *dbTracer) InterestedInRange(begin, end uint64, _ vm.AccessKind) bool {
	return t.rng.Overlaps(begin, end)
}

func (t *dbTracer) Trace(addr, size uint64, kind vm.AccessKind) {
	if !t.rng.Overlaps(addr, addr+size) {
		return
	}

	entry := memoryAccessEntry{
		ID:       xid.New().String(),
		Location: t.location,
		What:     kind.String(),
		Time:     t.timeTeller.CurrentTime(),
		Address:  addr,
		ByteSize: size,
	}

	t.dataRecorder.InsertData(memoryAccessTable, entry)
}
