package bus

import (
	"encoding/binary"
	"time"
)

// Register offsets of the machine timer.
const (
	MTimerControl = 0x0
	MTimerDivider = 0x4
	MTimerTimer   = 0x8
	MTimerCompare = 0x10

	mtimerSize = 0x18
)

// Control register bits.
const (
	MTimerEnable   uint32 = 1 << 0
	MTimerRealTime uint32 = 1 << 1
)

// A TimerSink receives the timer interrupt line.
type TimerSink interface {
	SetTimerPending(pending bool)
}

// MTimer is a memory-mapped machine timer. The timer counts RTC ticks, or
// microseconds when MTimerRealTime is set, divided by divider+1. It raises
// the timer interrupt of every sink once the timer reaches the compare value
// and keeps it raised until compare is written.
type MTimer struct {
	control uint32
	divider uint32
	timer   uint64
	compare uint64

	pending bool
	div     uint64
	prev    time.Time
	now     func() time.Time

	sinks []TimerSink
}

// NewMTimer creates an enabled timer that counts RTC ticks.
func NewMTimer(sinks ...TimerSink) *MTimer {
	return &MTimer{
		control: MTimerEnable,
		now:     time.Now,
		sinks:   sinks,
	}
}

func (t *MTimer) badAccess(offset uint64, n int) bool {
	return n%4 != 0 || offset%4 != 0 || offset+uint64(n) > mtimerSize
}

func (t *MTimer) regs() []byte {
	b := make([]byte, mtimerSize)
	binary.LittleEndian.PutUint32(b[MTimerControl:], t.control)
	binary.LittleEndian.PutUint32(b[MTimerDivider:], t.divider)
	binary.LittleEndian.PutUint64(b[MTimerTimer:], t.timer)
	binary.LittleEndian.PutUint64(b[MTimerCompare:], t.compare)

	return b
}

// Load reads timer registers. Accesses must be word sized and aligned.
func (t *MTimer) Load(offset uint64, p []byte) bool {
	if t.badAccess(offset, len(p)) {
		return false
	}

	copy(p, t.regs()[offset:])

	return true
}

// Store writes timer registers. Writing compare drops the interrupt, and
// writing the divider or the timer restarts the count from zero.
func (t *MTimer) Store(offset uint64, p []byte) bool {
	if t.badAccess(offset, len(p)) {
		return false
	}

	end := offset + uint64(len(p))

	if end > MTimerCompare {
		t.pending = false
		t.raise(false)
	}

	b := t.regs()
	copy(b[offset:], p)

	t.control = binary.LittleEndian.Uint32(b[MTimerControl:]) &
		(MTimerEnable | MTimerRealTime)
	t.divider = binary.LittleEndian.Uint32(b[MTimerDivider:]) & 0x3ff
	t.timer = binary.LittleEndian.Uint64(b[MTimerTimer:])
	t.compare = binary.LittleEndian.Uint64(b[MTimerCompare:])

	if offset < MTimerCompare && end > MTimerDivider {
		t.timer = 0
	}

	return true
}

// Increment advances the timer by ticks RTC ticks.
func (t *MTimer) Increment(ticks uint64) {
	if t.control&MTimerEnable == 0 {
		return
	}

	if t.control&MTimerRealTime == 0 {
		t.div += ticks
	} else {
		now := t.now()
		if !t.prev.IsZero() {
			t.div += uint64(now.Sub(t.prev).Microseconds())
		}

		t.prev = now
	}

	period := uint64(t.divider) + 1
	for t.div >= period {
		t.div -= period
		t.timer++
	}

	if t.timer == t.compare || t.pending {
		t.pending = true
		t.raise(true)

		return
	}

	t.raise(false)
}

// Timer returns the current count.
func (t *MTimer) Timer() uint64 {
	return t.timer
}

func (t *MTimer) raise(pending bool) {
	for _, s := range t.sinks {
		s.SetTimerPending(pending)
	}
}
