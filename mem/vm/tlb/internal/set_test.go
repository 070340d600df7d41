package internal

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/rvcore/mem/vm"
)

func entry(vAddr uint32, ppn uint64, megapage bool) Way {
	return Way{
		VAddr: vAddr,
		Attr: vm.PageAttrBuilder{}.
			WithValid(true).
			WithType(vm.TypeSRWX).
			WithMegapage(megapage).
			WithPPN(ppn).
			Build(),
	}
}

var _ = Describe("Set", func() {
	var s Set

	BeforeEach(func() {
		s = NewSet(4)
	})

	It("should find an empty way in a new set", func() {
		wayID, found := s.FindInvalid()

		Expect(found).To(BeTrue())
		Expect(wayID).To(Equal(0))
	})

	It("should look up by base and granularity", func() {
		s.Update(2, entry(0x400000, 1, true))

		wayID, found := s.Lookup(0x400000, true)
		Expect(found).To(BeTrue())
		Expect(wayID).To(Equal(2))

		_, found = s.Lookup(0x400000, false)
		Expect(found).To(BeFalse())
	})

	It("should not match invalid entries", func() {
		s.Update(0, Way{VAddr: 0x1000})

		_, found := s.Lookup(0x1000, false)
		Expect(found).To(BeFalse())
	})

	It("should rotate ways", func() {
		for i := uint32(0); i < 4; i++ {
			s.Update(int(i), entry(i<<12, uint64(i), false))
		}

		_, found := s.FindInvalid()
		Expect(found).To(BeFalse())

		s.Rotate(entry(4<<12, 4, false))

		Expect(s.Entry(0).VAddr).To(Equal(uint32(1 << 12)))
		Expect(s.Entry(3).VAddr).To(Equal(uint32(4 << 12)))

		_, found = s.Lookup(0, false)
		Expect(found).To(BeFalse())
	})

	It("should reset", func() {
		s.Update(1, entry(0x1000, 1, false))
		s.Reset()

		_, found := s.Lookup(0x1000, false)
		Expect(found).To(BeFalse())
		Expect(s.NumWays()).To(Equal(4))
	})
})
