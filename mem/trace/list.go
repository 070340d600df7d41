package trace

import "github.com/sarchlab/rvcore/mem/vm"

// A List fans accesses out to a set of tracers.
type List struct {
	tracers []Tracer
}

// Hook adds a tracer.
func (l *List) Hook(t Tracer) {
	l.tracers = append(l.tracers, t)
}

// Empty returns true if no tracer is hooked.
func (l *List) Empty() bool {
	return len(l.tracers) == 0
}

// InterestedInRange returns true if any tracer is interested.
func (l *List) InterestedInRange(begin, end uint64, kind vm.AccessKind) bool {
	for _, t := range l.tracers {
		if t.InterestedInRange(begin, end, kind) {
			return true
		}
	}

	return false
}

// Trace passes the access to every interested tracer.
func (l *List) Trace(addr, size uint64, kind vm.AccessKind) {
	for _, t := range l.tracers {
		if t.InterestedInRange(addr, addr+size, kind) {
			t.Trace(addr, size, kind)
		}
	}
}
