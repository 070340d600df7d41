package trap

import (
	"errors"
	"fmt"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/rvcore/mem/vm"
)

var _ = Describe("Trap", func() {
	It("should pick the access fault for the access kind", func() {
		Expect(AccessFault(vm.Load, 0, nil).Kind).To(Equal(LoadAccessFault))
		Expect(AccessFault(vm.Store, 0, nil).Kind).To(Equal(StoreAccessFault))
		Expect(AccessFault(vm.Fetch, 0, nil).Kind).To(Equal(InsnAccessFault))
	})

	It("should pick the misaligned trap for the access kind", func() {
		Expect(Misaligned(vm.Load, 1).Kind).To(Equal(LoadAddrMisaligned))
		Expect(Misaligned(vm.Store, 1).Kind).To(Equal(StoreAddrMisaligned))
		Expect(Misaligned(vm.Fetch, 1).Kind).To(Equal(InsnAddrMisaligned))
	})

	It("should keep the translation failure reachable", func() {
		var err error = AccessFault(vm.Store, 0x10, vm.ErrTranslationDenied)
		wrapped := fmt.Errorf("step: %w", err)

		Expect(errors.Is(wrapped, vm.ErrTranslationDenied)).To(BeTrue())
		Expect(errors.Is(wrapped, vm.ErrTranslationMiss)).To(BeFalse())

		kind, ok := KindOf(wrapped)
		Expect(ok).To(BeTrue())
		Expect(kind).To(Equal(StoreAccessFault))
	})

	It("should describe itself", func() {
		err := AccessFault(vm.Load, 0x20, vm.ErrTranslationMiss)

		Expect(err.Error()).To(Equal("load access fault at 0x20: no translation"))
		Expect(Interrupt(TimerInterrupt).Error()).To(Equal("timer interrupt"))
	})

	It("should place the interrupt bit at the top of XLEN", func() {
		Expect(ExternalInterrupt.Cause(32)).To(Equal(uint64(0x80000002)))
		Expect(ExternalInterrupt.Cause(64)).To(Equal(uint64(1)<<63 | 2))
		Expect(StoreAccessFault.Cause(32)).To(Equal(uint64(7)))
	})

	It("should not find a kind in other errors", func() {
		_, ok := KindOf(errors.New("other"))
		Expect(ok).To(BeFalse())
	})
})
