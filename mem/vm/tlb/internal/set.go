// Package internal provides the definition required for defining TLB.
package internal

import (
	"github.com/sarchlab/rvcore/mem/vm"
)

// A Way is one entry of a TLB set. VAddr holds the page- or megapage-aligned
// virtual base the entry maps.
type Way struct {
	VAddr uint32
	Attr  vm.PageAttr
}

// Valid tells if the entry holds a mapping.
func (e Way) Valid() bool {
	return e.Attr.Valid()
}

// A Set holds a certain number of entries. Ways are searched in order and
// rotated on replacement, so way 0 holds the oldest entry once the set is
// full.
type Set interface {
	Lookup(vAddrBase uint32, megapage bool) (wayID int, found bool)
	Entry(wayID int) Way
	Update(wayID int, e Way)
	FindInvalid() (wayID int, found bool)
	Rotate(e Way)
	NumWays() int
	Reset()
}

// NewSet creates a new TLB set.
func NewSet(numWays int) Set {
	return &setImpl{ways: make([]Way, numWays)}
}

type setImpl struct {
	ways []Way
}

// Lookup finds the valid entry of the given granularity whose base equals
// vAddrBase.
func (s *setImpl) Lookup(vAddrBase uint32, megapage bool) (int, bool) {
	for i, e := range s.ways {
		if e.Valid() && e.Attr.Megapage() == megapage && e.VAddr == vAddrBase {
			return i, true
		}
	}

	return 0, false
}

func (s *setImpl) Entry(wayID int) Way {
	return s.ways[wayID]
}

func (s *setImpl) Update(wayID int, e Way) {
	s.ways[wayID] = e
}

func (s *setImpl) FindInvalid() (int, bool) {
	for i, e := range s.ways {
		if !e.Valid() {
			return i, true
		}
	}

	return 0, false
}

// Rotate drops way 0, moves every other way down by one and puts e in the
// last way.
func (s *setImpl) Rotate(e Way) {
	copy(s.ways, s.ways[1:])
	s.ways[len(s.ways)-1] = e
}

func (s *setImpl) NumWays() int {
	return len(s.ways)
}

func (s *setImpl) Reset() {
	clear(s.ways)
}
