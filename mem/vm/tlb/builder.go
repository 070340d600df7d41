package tlb

import (
	"log"

	"github.com/sarchlab/rvcore/mem/vm/tlb/internal"
	"github.com/sarchlab/rvcore/sim/naming"
)

// A Builder can build TLBs
type Builder struct {
	numSets [numSides]int
	numWays [numSides]int
}

// MakeBuilder returns a Builder with 8 sets of 4 ways on each side.
func MakeBuilder() Builder {
	return Builder{
		numSets: [numSides]int{8, 8},
		numWays: [numSides]int{4, 4},
	}
}

// WithNumSets sets the number of sets on one side. It must be a power of 2.
func (b Builder) WithNumSets(side Side, n int) Builder {
	if n <= 0 || n&(n-1) != 0 {
		log.Panicf("number of sets must be a power of 2, got %d", n)
	}

	b.numSets[side] = n

	return b
}

// WithNumWays sets the number of ways per set on one side.
func (b Builder) WithNumWays(side Side, n int) Builder {
	if n <= 0 {
		log.Panicf("number of ways must be positive, got %d", n)
	}

	b.numWays[side] = n

	return b
}

// Build creates a new TLB
func (b Builder) Build(name string) *Comp {
	c := &Comp{NamedBase: naming.MakeNamedBase(name)}

	for s := range c.arrays {
		a := &array{sets: make([]internal.Set, b.numSets[s])}
		for i := range a.sets {
			a.sets[i] = internal.NewSet(b.numWays[s])
		}

		c.arrays[s] = a
	}

	return c
}
