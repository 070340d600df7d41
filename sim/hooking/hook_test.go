package hooking

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

type countingHook struct {
	calls []HookCtx
}

func (h *countingHook) Func(ctx HookCtx) {
	h.calls = append(h.calls, ctx)
}

var _ = Describe("HookableBase", func() {
	var (
		base *HookableBase
		pos  *HookPos
	)

	BeforeEach(func() {
		base = &HookableBase{}
		pos = &HookPos{Name: "Test"}
	})

	It("should invoke every hook in order", func() {
		var order []int
		first := &countingHook{}
		base.AcceptHook(first)
		base.AcceptHook(HookFunc(func(HookCtx) { order = append(order, 2) }))

		base.InvokeHook(HookCtx{Pos: pos, Item: 7})

		Expect(base.NumHooks()).To(Equal(2))
		Expect(first.calls).To(HaveLen(1))
		Expect(first.calls[0].Pos).To(BeIdenticalTo(pos))
		Expect(first.calls[0].Item).To(Equal(7))
		Expect(order).To(Equal([]int{2}))
	})

	It("should panic when the same hook is added twice", func() {
		h := &countingHook{}
		base.AcceptHook(h)

		Expect(func() { base.AcceptHook(h) }).To(Panic())
	})

	It("should accept the same function twice", func() {
		f := HookFunc(func(HookCtx) {})

		base.AcceptHook(f)
		base.AcceptHook(f)

		Expect(base.Hooks()).To(HaveLen(2))
	})
})
