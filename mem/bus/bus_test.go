package bus

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/mock/gomock"
)

var _ = Describe("Bus", func() {
	var (
		mockCtrl *gomock.Controller
		low      *MockDevice
		high     *MockDevice
		b        *Bus
	)

	BeforeEach(func() {
		mockCtrl = gomock.NewController(GinkgoT())
		low = NewMockDevice(mockCtrl)
		high = NewMockDevice(mockCtrl)

		b = New()
		b.AddDevice(0x2000_0000, high)
		b.AddDevice(0x1000_0000, low)
	})

	AfterEach(func() {
		mockCtrl.Finish()
	})

	It("should keep devices sorted", func() {
		Expect(b.Bases()).To(Equal([]uint64{0x1000_0000, 0x2000_0000}))
	})

	It("should route by the closest base below the address", func() {
		p := make([]byte, 4)

		low.EXPECT().Load(uint64(0x10), p).Return(true)
		Expect(b.Load(0x1000_0010, p)).To(BeTrue())

		high.EXPECT().Store(uint64(0), p).Return(false)
		Expect(b.Store(0x2000_0000, p)).To(BeFalse())
	})

	It("should reject addresses below every device", func() {
		Expect(b.Load(0x100, make([]byte, 1))).To(BeFalse())
		Expect(b.Store(0x100, make([]byte, 1))).To(BeFalse())
	})

	It("should panic on a duplicated base", func() {
		Expect(func() { b.AddDevice(0x1000_0000, low) }).To(Panic())
	})
})

var _ = Describe("ROM", func() {
	It("should be readable but not writable", func() {
		rom := NewROM([]byte{1, 2, 3, 4})
		p := make([]byte, 2)

		Expect(rom.Load(2, p)).To(BeTrue())
		Expect(p).To(Equal([]byte{3, 4}))
		Expect(rom.Load(3, p)).To(BeFalse())
		Expect(rom.Store(0, p)).To(BeFalse())
		Expect(rom.Size()).To(Equal(uint64(4)))
	})
})
