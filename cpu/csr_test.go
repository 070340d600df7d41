package cpu

import (
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/mock/gomock"

	"github.com/sarchlab/rvcore/mem/guestmem"
	"github.com/sarchlab/rvcore/mem/vm"
	"github.com/sarchlab/rvcore/mem/vm/mmu"
	"github.com/sarchlab/rvcore/trap"
)

func expectIllegalCSR(err error) {
	kind, ok := trap.KindOf(err)
	ExpectWithOffset(1, ok).To(BeTrue())
	ExpectWithOffset(1, kind).To(Equal(trap.IllegalInsn))
	ExpectWithOffset(1, errors.Is(err, ErrIllegalCSR)).To(BeTrue())
}

var _ = Describe("CSRs", func() {
	var (
		mockCtrl *gomock.Controller
		m        *mmu.MMU
		builder  Builder
		core     *Core
	)

	BeforeEach(func() {
		mockCtrl = gomock.NewController(GinkgoT())
		m = mmu.MakeBuilder().
			WithMemory(guestmem.New(4096)).
			Build("MMU")
		builder = MakeBuilder().WithID(3).WithMMU(m)
		core = builder.Build("Core")
	})

	AfterEach(func() {
		mockCtrl.Finish()
	})

	It("should read and write machine registers", func() {
		Expect(core.WriteCSR(CSRMScratch, 0x1234)).To(Succeed())
		Expect(core.WriteCSR(CSRMEPC, 0x1235)).To(Succeed())
		Expect(core.WriteCSR(CSRMTVec, 0x203)).To(Succeed())

		v, err := core.ReadCSR(CSRMScratch)
		Expect(err).NotTo(HaveOccurred())
		Expect(v).To(Equal(uint64(0x1234)))

		v, _ = core.ReadCSR(CSRMEPC)
		Expect(v).To(Equal(uint64(0x1234)))

		v, _ = core.ReadCSR(CSRMTVec)
		Expect(v).To(Equal(uint64(0x200)))

		v, _ = core.ReadCSR(CSRMHartID)
		Expect(v).To(Equal(uint64(3)))
	})

	It("should count retired instructions in instret", func() {
		core.State().MInstret = 42

		v, err := core.ReadCSR(CSRInstret)

		Expect(err).NotTo(HaveOccurred())
		Expect(v).To(Equal(uint64(42)))
	})

	It("should reject unknown and read-only registers", func() {
		_, err := core.ReadCSR(0x7c0)
		expectIllegalCSR(err)

		expectIllegalCSR(core.WriteCSR(CSRInstret, 0))
		expectIllegalCSR(core.WriteCSR(CSRMHartID, 0))
	})

	It("should flush cached translations when the mapping changes", func() {
		flushes := m.Stats().Flushes

		Expect(core.WriteCSR(CSRSPTBR, 0x5123)).To(Succeed())
		Expect(core.State().SPTBR).To(Equal(uint64(0x5000)))
		Expect(m.Stats().Flushes).To(Equal(flushes + 1))

		Expect(core.WriteCSR(CSRSPTBR, 0x5000)).To(Succeed())
		Expect(m.Stats().Flushes).To(Equal(flushes + 1))

		mstatus := setField(core.State().MStatus, MStatusVM, uint64(vm.ModeSv39))
		Expect(core.WriteCSR(CSRMStatus, mstatus)).To(Succeed())
		Expect(core.State().VMMode()).To(Equal(vm.ModeSv39))
		Expect(m.Stats().Flushes).To(Equal(flushes + 2))

		Expect(core.WriteCSR(CSRMStatus, mstatus|MStatusIE)).To(Succeed())
		Expect(m.Stats().Flushes).To(Equal(flushes + 2))
	})

	It("should keep the mode when an unsupported one is written", func() {
		mstatus := setField(core.State().MStatus, MStatusVM, uint64(vm.ModeSv32))

		Expect(core.WriteCSR(CSRMStatus, mstatus)).To(Succeed())

		Expect(core.State().VMMode()).To(Equal(vm.ModeBare))
	})

	It("should only let software interrupts be written to mip", func() {
		core.SetTimerPending(true)

		Expect(core.WriteCSR(CSRMIP, MIPMSIP)).To(Succeed())

		v, _ := core.ReadCSR(CSRMIP)
		Expect(v).To(Equal(MIPMSIP | MIPMTIP))
	})

	It("should check the privilege encoded in the address", func() {
		mstatus := setField(core.State().MStatus, MStatusPRV, uint64(vm.PrivUser))
		Expect(core.WriteCSR(CSRMStatus, mstatus)).To(Succeed())

		_, err := core.ReadCSR(CSRMStatus)
		expectIllegalCSR(err)

		_, err = core.ReadCSR(CSRSPTBR)
		expectIllegalCSR(err)

		_, err = core.ReadCSR(CSRInstret)
		Expect(err).NotTo(HaveOccurred())
	})

	Context("with a CSR handler", func() {
		var handler *MockCSRHandler

		BeforeEach(func() {
			handler = NewMockCSRHandler(mockCtrl)
			core = builder.WithCSRHandler(handler).Build("Core")
		})

		It("should let the handler serve its registers", func() {
			handler.EXPECT().ReadCSR(uint16(0x7a4)).Return(uint64(7), true)

			v, err := core.ReadCSR(0x7a4)

			Expect(err).NotTo(HaveOccurred())
			Expect(v).To(Equal(uint64(7)))
		})

		It("should flush when the handler changed a mapping", func() {
			flushes := m.Stats().Flushes
			handler.EXPECT().WriteCSR(uint16(0x7a0), uint64(0x123)).Return(true, true)
			handler.EXPECT().WriteCSR(uint16(0x7a1), uint64(0x1000)).Return(true, false)

			Expect(core.WriteCSR(0x7a0, 0x123)).To(Succeed())
			Expect(core.WriteCSR(0x7a1, 0x1000)).To(Succeed())

			Expect(m.Stats().Flushes).To(Equal(flushes + 1))
		})

		It("should fall back to the core registers", func() {
			handler.EXPECT().WriteCSR(CSRMScratch, uint64(9)).Return(false, false)
			handler.EXPECT().ReadCSR(CSRMScratch).Return(uint64(0), false)

			Expect(core.WriteCSR(CSRMScratch, 9)).To(Succeed())

			v, err := core.ReadCSR(CSRMScratch)
			Expect(err).NotTo(HaveOccurred())
			Expect(v).To(Equal(uint64(9)))
		})

		It("should reject what nobody handles", func() {
			handler.EXPECT().WriteCSR(uint16(0x7a6), gomock.Any()).Return(false, false)

			expectIllegalCSR(core.WriteCSR(0x7a6, 1))
		})
	})
})
