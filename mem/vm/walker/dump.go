package walker

import (
	"fmt"
	"io"
	"strings"

	"github.com/sarchlab/rvcore/mem/vm"
)

// Dump writes every valid entry of the current page table to out, one entry
// per line, indented by depth.
func (w *Walker) Dump(out io.Writer) error {
	mode := w.regs.VMMode()

	g, ok := mode.Geometry()
	if !ok {
		_, err := fmt.Fprintf(out, "%s: no page table in %s mode\n",
			w.Name(), mode)
		return err
	}

	root := w.regs.PageTableRoot()
	if _, err := fmt.Fprintf(out, "%s: %s root 0x%x\n",
		w.Name(), mode, root); err != nil {
		return err
	}

	return w.dumpTable(out, g, root, g.Levels-1, 0)
}

func (w *Walker) dumpTable(
	out io.Writer,
	g vm.Geometry,
	base uint64,
	level int,
	vBase uint64,
) error {
	indent := strings.Repeat("  ", g.Levels-1-level)
	ptShift := uint(vm.Log2PageSize + level*g.PTEIndexBits)
	numEntries := uint64(1) << g.PTEIndexBits

	if !w.inMemory(base, numEntries*g.PTESize) {
		_, err := fmt.Fprintf(out, "%stable 0x%x outside memory\n",
			indent, base)
		return err
	}

	for idx := uint64(0); idx < numEntries; idx++ {
		pte := w.loadPTE(base+idx*g.PTESize, g.PTESize)
		if pte&pteValid == 0 {
			continue
		}

		vAddr := vBase | idx<<ptShift
		ppn := pte >> ptePPNOffset
		t := vm.TypeCode((pte & pteTypeMask) >> pteTypeOffset)

		if t.IsTable() {
			if _, err := fmt.Fprintf(out, "%s[%d] va 0x%x %s -> table 0x%x\n",
				indent, idx, vAddr, t, ppn<<vm.Log2PageSize); err != nil {
				return err
			}

			if level == 0 {
				continue
			}

			err := w.dumpTable(out, g, ppn<<vm.Log2PageSize, level-1, vAddr)
			if err != nil {
				return err
			}

			continue
		}

		if _, err := fmt.Fprintf(out,
			"%s[%d] va 0x%x size 0x%x -> pa 0x%x %s%s%s\n",
			indent, idx, vAddr, uint64(1)<<ptShift, ppn<<vm.Log2PageSize, t,
			flag(pte, uint64(pteReferenced), " R"),
			flag(pte, uint64(pteDirty), " D")); err != nil {
			return err
		}
	}

	return nil
}

func flag(pte, bit uint64, s string) string {
	if pte&bit != 0 {
		return s
	}

	return ""
}
