package tlb

import (
	"bytes"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/mock/gomock"

	"github.com/sarchlab/rvcore/mem/vm"
	"github.com/sarchlab/rvcore/mem/vm/tlb/internal"
	"github.com/sarchlab/rvcore/sim/hooking"
)

func pageAttr(t vm.TypeCode, ppn uint64, megapage bool) vm.PageAttr {
	return vm.PageAttrBuilder{}.
		WithValid(true).
		WithType(t).
		WithMegapage(megapage).
		WithPPN(ppn).
		Build()
}

// Supervisor/user capabilities per type code.
var grants = [16]string{
	"/", "/", "r/rx", "rw/rwx", "r/r", "rw/rw", "rx/rx", "rwx/rwx",
	"r/", "rw/", "rx/", "rwx/", "r/", "rw/", "rx/", "rwx/",
}

func granted(t vm.TypeCode, priv vm.Privilege, kind vm.AccessKind) bool {
	parts := strings.Split(grants[t], "/")
	caps := parts[1]
	if priv.IsSupervisor() {
		caps = parts[0]
	}

	letter := map[vm.AccessKind]string{vm.Load: "r", vm.Store: "w", vm.Fetch: "x"}

	return strings.Contains(caps, letter[kind])
}

var _ = Describe("TLB", func() {
	var tlb *Comp

	BeforeEach(func() {
		tlb = MakeBuilder().Build("TLB")
	})

	It("should miss on every kind when empty", func() {
		for _, kind := range []vm.AccessKind{vm.Load, vm.Store, vm.Fetch} {
			_, err := tlb.Translate(0x1234, vm.PrivSupervisor, kind)

			Expect(err).To(MatchError(vm.ErrTranslationMiss))
			Expect(tlb.VAddr(SideFor(kind))).To(Equal(uint64(0x1234)))
		}
	})

	It("should translate exactly the permitted accesses", func() {
		privs := []vm.Privilege{vm.PrivUser, vm.PrivSupervisor}
		kinds := []vm.AccessKind{vm.Load, vm.Store, vm.Fetch}

		for t := vm.TypeCode(0); t < 16; t++ {
			for _, priv := range privs {
				for _, kind := range kinds {
					side := SideFor(kind)
					tlb.SetVAddr(side, 0x5000)
					tlb.Install(side, pageAttr(t, 7, false))

					pBase, err := tlb.Translate(0x5678, priv, kind)

					if granted(t, priv, kind) {
						Expect(err).NotTo(HaveOccurred(), "%s %s %s", t, priv, kind)
						Expect(pBase).To(Equal(uint64(0x7000)))
					} else {
						Expect(err).To(MatchError(vm.ErrTranslationDenied),
							"%s %s %s", t, priv, kind)
						Expect(tlb.VAddr(side)).To(Equal(uint64(0x5678)))
					}
				}
			}
		}
	})

	It("should set referenced and dirty bits on hits", func() {
		tlb.InstallEntry(InstallReq{
			Side:  SideData,
			VAddr: 0x3000,
			Attr:  pageAttr(vm.TypeSRW, 3, false),
		})

		_, err := tlb.Translate(0x3000, vm.PrivSupervisor, vm.Load)
		Expect(err).NotTo(HaveOccurred())

		e := tlb.Scan(SideData, 3)
		Expect(e.VAddr).To(Equal(uint32(0x3000)))
		Expect(e.Attr.Referenced()).To(BeTrue())
		Expect(e.Attr.Dirty()).To(BeFalse())

		_, err = tlb.Translate(0x3000, vm.PrivSupervisor, vm.Store)
		Expect(err).NotTo(HaveOccurred())
		Expect(tlb.Scan(SideData, 3).Attr.Dirty()).To(BeTrue())
	})

	It("should keep the most recently installed pages of a set", func() {
		numSets := uint32(tlb.NumSets(SideData))
		numWays := tlb.NumWays(SideData)
		pages := numWays + 2

		for k := 0; k < pages; k++ {
			tlb.InstallEntry(InstallReq{
				Side:  SideData,
				VAddr: uint32(k) * numSets << vm.Log2PageSize,
				Attr:  pageAttr(vm.TypeSRWX, uint64(k+1), false),
			})
		}

		for k := 0; k < pages; k++ {
			vAddr := uint64(k) * uint64(numSets) << vm.Log2PageSize
			pBase, err := tlb.Translate(vAddr, vm.PrivSupervisor, vm.Load)

			if k < pages-numWays {
				Expect(err).To(MatchError(vm.ErrTranslationMiss))
				continue
			}

			Expect(err).NotTo(HaveOccurred())
			Expect(pBase).To(Equal(uint64(k+1) << vm.Log2PageSize))
		}

		Expect(tlb.Scan(SideData, 0).VAddr).
			To(Equal(uint32(pages-numWays) * numSets << vm.Log2PageSize))
	})

	It("should prefer megapages", func() {
		tlb.InstallEntry(InstallReq{
			Side:  SideData,
			VAddr: 0x401000,
			Attr:  pageAttr(vm.TypeSRWX, 9, false),
		})
		tlb.InstallEntry(InstallReq{
			Side:  SideData,
			VAddr: 0x400000,
			Attr:  pageAttr(vm.TypeSRWX, 2, true),
		})

		pBase, err := tlb.Translate(0x401234, vm.PrivSupervisor, vm.Load)

		Expect(err).NotTo(HaveOccurred())
		Expect(pBase).To(Equal(uint64(0x801000)))
	})

	It("should fall back to the regular page outside the megapage", func() {
		tlb.InstallEntry(InstallReq{
			Side:  SideData,
			VAddr: 0x401000,
			Attr:  pageAttr(vm.TypeSRWX, 9, false),
		})

		pBase, err := tlb.Translate(0x401234, vm.PrivSupervisor, vm.Load)

		Expect(err).NotTo(HaveOccurred())
		Expect(pBase).To(Equal(uint64(0x9000)))
	})

	It("should invalidate with an invalid attribute", func() {
		req := InstallReq{
			Side:  SideInsn,
			VAddr: 0x2000,
			Attr:  pageAttr(vm.TypeSRX, 2, false),
		}
		tlb.InstallEntry(req)

		req.Attr = 0
		tlb.InstallEntry(req)

		_, err := tlb.Translate(0x2000, vm.PrivSupervisor, vm.Fetch)
		Expect(err).To(MatchError(vm.ErrTranslationMiss))
	})

	It("should not install an invalid attribute for an unknown page", func() {
		tlb.InstallEntry(InstallReq{Side: SideData, VAddr: 0x2000})

		for i := uint64(0); i < 32; i++ {
			Expect(tlb.Scan(SideData, i).Attr).To(BeZero())
		}
	})

	It("should keep the two sides apart", func() {
		tlb.InstallEntry(InstallReq{
			Side:  SideInsn,
			VAddr: 0x2000,
			Attr:  pageAttr(vm.TypeSRWX, 2, false),
		})

		_, err := tlb.Translate(0x2000, vm.PrivSupervisor, vm.Load)
		Expect(err).To(MatchError(vm.ErrTranslationMiss))

		_, err = tlb.Translate(0x2000, vm.PrivSupervisor, vm.Fetch)
		Expect(err).NotTo(HaveOccurred())
	})

	It("should flush", func() {
		tlb.InstallEntry(InstallReq{
			Side:  SideData,
			VAddr: 0x2000,
			Attr:  pageAttr(vm.TypeSRWX, 2, false),
		})

		tlb.Flush()

		_, err := tlb.Translate(0x2000, vm.PrivSupervisor, vm.Load)
		Expect(err).To(MatchError(vm.ErrTranslationMiss))
	})

	Context("control registers", func() {
		It("should install through the latch and trigger registers", func() {
			attr := pageAttr(vm.TypeSRURX, 3, false)

			handled, changed := tlb.WriteCSR(CSRIVAddr, 0x0)
			Expect(handled).To(BeTrue())
			Expect(changed).To(BeFalse())

			handled, changed = tlb.WriteCSR(CSRIPAttr, uint64(attr))
			Expect(handled).To(BeTrue())
			Expect(changed).To(BeTrue())

			pBase, err := tlb.Translate(0, vm.PrivUser, vm.Fetch)
			Expect(err).NotTo(HaveOccurred())
			Expect(pBase).To(Equal(uint64(0x3000)))
		})

		It("should read back scanned entries", func() {
			tlb.WriteCSR(CSRDVAddr, 0x5000)
			tlb.WriteCSR(CSRDPAttr, uint64(pageAttr(vm.TypeSRW, 6, false)))

			tlb.WriteCSR(CSRDEntryScan, 5)

			vAddr, ok := tlb.ReadCSR(CSRDEntryVAddr)
			Expect(ok).To(BeTrue())
			Expect(vAddr).To(Equal(uint64(0x5000)))

			pattr, _ := tlb.ReadCSR(CSRDEntryPAttr)
			Expect(vm.PageAttr(pattr).PPN()).To(Equal(uint64(6)))

			scan, _ := tlb.ReadCSR(CSRDEntryScan)
			Expect(scan).To(Equal(uint64(5)))
		})

		It("should let a handler install the faulting address", func() {
			_, err := tlb.Translate(0x7123, vm.PrivSupervisor, vm.Store)
			Expect(err).To(MatchError(vm.ErrTranslationMiss))

			badAddr, _ := tlb.ReadCSR(CSRDVAddr)
			Expect(badAddr).To(Equal(uint64(0x7123)))

			tlb.WriteCSR(CSRDPAttr, uint64(pageAttr(vm.TypeSRW, 1, false)))

			pBase, err := tlb.Translate(0x7123, vm.PrivSupervisor, vm.Store)
			Expect(err).NotTo(HaveOccurred())
			Expect(pBase).To(Equal(uint64(0x1000)))
		})

		It("should invalidate a megapage with an invalid attribute", func() {
			tlb.WriteCSR(CSRDVAddr, 0x400000)
			tlb.WriteCSR(CSRDPAttr, uint64(pageAttr(vm.TypeSRW, 2, true)))

			_, err := tlb.Translate(0x400123, vm.PrivSupervisor, vm.Load)
			Expect(err).NotTo(HaveOccurred())

			tlb.WriteCSR(CSRDVAddr, 0x400000)
			handled, changed := tlb.WriteCSR(CSRDPAttr, 0)
			Expect(handled).To(BeTrue())
			Expect(changed).To(BeTrue())

			_, err = tlb.Translate(0x400123, vm.PrivSupervisor, vm.Load)
			Expect(err).To(MatchError(vm.ErrTranslationMiss))
		})

		It("should reject other registers", func() {
			_, ok := tlb.ReadCSR(0x300)
			Expect(ok).To(BeFalse())

			handled, _ := tlb.WriteCSR(CSRIEntryPAttr, 1)
			Expect(handled).To(BeFalse())
		})
	})

	It("should report events to hooks", func() {
		var whats []string
		tlb.AcceptHook(hooking.HookFunc(func(ctx hooking.HookCtx) {
			whats = append(whats, ctx.Item.(vm.TLBEvent).What)
		}))

		_, _ = tlb.Translate(0x1000, vm.PrivSupervisor, vm.Load)
		tlb.InstallEntry(InstallReq{
			Side:  SideData,
			VAddr: 0x1000,
			Attr:  pageAttr(vm.TypeSR, 1, false),
		})
		_, _ = tlb.Translate(0x1000, vm.PrivSupervisor, vm.Load)
		_, _ = tlb.Translate(0x1000, vm.PrivSupervisor, vm.Store)

		Expect(whats).To(Equal([]string{"miss", "install", "hit", "deny"}))
	})

	It("should dump a side", func() {
		tlb.InstallEntry(InstallReq{
			Side:  SideInsn,
			VAddr: 0x1000,
			Attr:  pageAttr(vm.TypeSRX, 4, false),
		})

		buf := new(bytes.Buffer)
		Expect(tlb.Dump(buf, SideInsn)).To(Succeed())

		Expect(buf.String()).To(ContainSubstring("TLB I: 8 sets x 4 ways"))
		Expect(buf.String()).To(ContainSubstring("001: 00001000,00004000"))
		Expect(buf.String()).To(ContainSubstring("SRX      V"))
	})

	Context("with a mocked set", func() {
		var (
			mockCtrl *gomock.Controller
			set      *MockSet
		)

		BeforeEach(func() {
			mockCtrl = gomock.NewController(GinkgoT())
			set = NewMockSet(mockCtrl)

			tlb = MakeBuilder().WithNumSets(SideData, 1).Build("TLB")
			tlb.arrays[SideData].sets = []internal.Set{set}
		})

		AfterEach(func() {
			mockCtrl.Finish()
		})

		It("should write the accessed bits back to the way", func() {
			attr := pageAttr(vm.TypeSRW, 1, false)

			set.EXPECT().Lookup(uint32(0), true).Return(0, false)
			set.EXPECT().Lookup(uint32(0x1000), false).Return(2, true)
			set.EXPECT().Entry(2).Return(Way{VAddr: 0x1000, Attr: attr})
			set.EXPECT().Update(2, Way{
				VAddr: 0x1000,
				Attr:  attr.WithAccess(vm.Store),
			})

			pBase, err := tlb.Translate(0x1234, vm.PrivSupervisor, vm.Store)

			Expect(err).NotTo(HaveOccurred())
			Expect(pBase).To(Equal(uint64(0x1000)))
		})

		It("should rotate a full set", func() {
			old := Way{VAddr: 0x2000, Attr: pageAttr(vm.TypeSRW, 2, false)}
			attr := pageAttr(vm.TypeSRW, 1, false)

			set.EXPECT().Lookup(uint32(0x1000), false).Return(0, false)
			set.EXPECT().FindInvalid().Return(0, false)
			set.EXPECT().Entry(0).Return(old)
			set.EXPECT().Rotate(Way{VAddr: 0x1000, Attr: attr})

			tlb.InstallEntry(InstallReq{Side: SideData, VAddr: 0x1fff, Attr: attr})
		})
	})
})
