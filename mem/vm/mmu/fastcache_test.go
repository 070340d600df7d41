package mmu

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/rvcore/mem/vm"
)

var _ = Describe("FastCache", func() {
	var c *FastCache

	BeforeEach(func() {
		c = NewFastCache(16)
	})

	It("should miss when empty", func() {
		for _, kind := range []vm.AccessKind{vm.Load, vm.Store, vm.Fetch} {
			_, ok := c.Lookup(0, kind)
			Expect(ok).To(BeFalse())
		}
	})

	It("should return the refilled page for every offset in it", func() {
		c.Refill(0x5123, 0x9123, vm.Load)

		for _, off := range []uint64{0, 0x4, 0x123, 0xffc} {
			pAddr, ok := c.Lookup(0x5000+off, vm.Load)
			Expect(ok).To(BeTrue())
			Expect(pAddr).To(Equal(0x9000 + off))
		}
	})

	It("should keep kinds apart", func() {
		c.Refill(0x5000, 0x9000, vm.Load)

		_, ok := c.Lookup(0x5000, vm.Store)
		Expect(ok).To(BeFalse())
		_, ok = c.Lookup(0x5000, vm.Fetch)
		Expect(ok).To(BeFalse())
	})

	It("should keep other kinds that cached the same mapping", func() {
		c.Refill(0x5000, 0x9000, vm.Load)
		c.Refill(0x5000, 0x9000, vm.Fetch)

		pAddr, ok := c.Lookup(0x5010, vm.Load)
		Expect(ok).To(BeTrue())
		Expect(pAddr).To(Equal(uint64(0x9010)))
	})

	It("should drop other kinds when the slot moves to another page", func() {
		c.Refill(0x5000, 0x9000, vm.Load)
		c.Refill(0x5000+16*vm.PageSize, 0xa000, vm.Store)

		_, ok := c.Lookup(0x5000, vm.Load)
		Expect(ok).To(BeFalse())

		pAddr, ok := c.Lookup(0x5000+16*vm.PageSize, vm.Store)
		Expect(ok).To(BeTrue())
		Expect(pAddr).To(Equal(uint64(0xa000)))
	})

	It("should never serve a page that shares the slot", func() {
		c.Refill(0x5000, 0x9000, vm.Load)

		_, ok := c.Lookup(0x5000+16*vm.PageSize, vm.Load)
		Expect(ok).To(BeFalse())
	})

	It("should keep mappings until overwritten or invalidated", func() {
		for vpn := uint64(0); vpn < 16; vpn++ {
			c.Refill(vpn<<vm.Log2PageSize, (vpn+100)<<vm.Log2PageSize, vm.Fetch)
		}

		for vpn := uint64(0); vpn < 16; vpn++ {
			pAddr, ok := c.Lookup(vpn<<vm.Log2PageSize|0x10, vm.Fetch)
			Expect(ok).To(BeTrue())
			Expect(pAddr).To(Equal((vpn+100)<<vm.Log2PageSize | 0x10))
		}

		c.InvalidateAll()

		for vpn := uint64(0); vpn < 16; vpn++ {
			_, ok := c.Lookup(vpn<<vm.Log2PageSize, vm.Fetch)
			Expect(ok).To(BeFalse())
		}
	})

	It("should map pages downwards", func() {
		c.Refill(0x9000, 0x1000, vm.Load)

		pAddr, ok := c.Lookup(0x9abc, vm.Load)
		Expect(ok).To(BeTrue())
		Expect(pAddr).To(Equal(uint64(0x1abc)))
	})
})
