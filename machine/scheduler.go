package machine

import "log"

func (m *Machine) step(n uint64) error {
	if m.exited {
		return ErrExited
	}

	interleave := m.cfg.Interleave

	for i := uint64(0); i < n; {
		steps := min(n-i, interleave-m.currentStep)

		m.cores[m.currentCore].Step(steps)
		m.clock.Advance(steps)
		m.currentStep += steps
		i += steps

		if m.currentStep == interleave {
			m.currentStep = 0
			m.currentCore++

			if m.currentCore == len(m.cores) {
				m.currentCore = 0
				m.tick(interleave / m.cfg.InsnsPerRTCTick)
			}
		}

		if m.reachedExit() {
			m.exited = true
			return ErrExited
		}
	}

	return nil
}

func (m *Machine) tick(ticks uint64) {
	if m.timer != nil {
		m.timer.Increment(ticks)
	}

	for _, f := range m.rtcHandlers {
		f(ticks)
	}
}

func (m *Machine) reachedExit() bool {
	if m.cfg.ExitPC == 0 {
		return false
	}

	c := m.cores[0]
	if c.State().PC&0xffffffff != m.cfg.ExitPC&0xffffffff {
		return false
	}

	log.Printf("%s: exit at 0x%x, a0 0x%x, a1 0x%x, a2 0x%x", m.Name(),
		c.State().PC, c.XReg(regA0), c.XReg(regA1), c.XReg(regA2))

	return true
}
