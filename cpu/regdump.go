package cpu

import (
	"fmt"
	"io"
)

// DumpRegs writes the PC, the integer registers and the trap CSRs.
func (c *Core) DumpRegs(w io.Writer) error {
	s := c.state

	if _, err := fmt.Fprintf(w, "%s pc: 0x%016x prv: %s\n",
		c.Name(), s.PC, s.Privilege()); err != nil {
		return err
	}

	for i := 0; i < len(s.XPR); i++ {
		if _, err := fmt.Fprintf(w, "X%d: 0x%016x\n", i, c.XReg(i)); err != nil {
			return err
		}
	}

	_, err := fmt.Fprintf(w,
		"mstatus: 0x%016x mepc: 0x%016x mcause: 0x%016x mbadaddr: 0x%016x\n",
		s.MStatus, s.MEPC, s.MCause, s.MBadAddr)

	return err
}
