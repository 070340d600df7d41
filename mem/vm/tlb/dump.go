package tlb

import (
	"fmt"
	"io"
	"strings"
)

// Dump writes the content of one side, one row per set. The first line of a
// row lists vaddr,paddr per way and the second line the type and flags.
func (c *Comp) Dump(w io.Writer, side Side) error {
	a := c.arrays[side]

	if _, err := fmt.Fprintf(w, "%s %s: %d sets x %d ways\n",
		c.Name(), side, len(a.sets), a.sets[0].NumWays()); err != nil {
		return err
	}

	for i, set := range a.sets {
		var addrs, attrs strings.Builder

		for way := 0; way < set.NumWays(); way++ {
			e := set.Entry(way)
			fmt.Fprintf(&addrs, " %08x,%08x", e.VAddr, e.Attr.PhysBase())
			fmt.Fprintf(&attrs, " %9s  %s", e.Attr.Type(), e.Attr.Flags())
		}

		if _, err := fmt.Fprintf(w, "%03d:%s\n    %s\n",
			i, addrs.String(), attrs.String()); err != nil {
			return err
		}
	}

	return nil
}
