package vm

import (
	"fmt"
	"io"

	"github.com/sarchlab/rvcore/sim/hooking"
	"github.com/sarchlab/rvcore/sim/naming"
	"github.com/sarchlab/rvcore/sim/timing"
)

// HookPosTLBEvent marks hooks that report what a translation structure did.
// The hook item is a TLBEvent.
var HookPosTLBEvent = &hooking.HookPos{Name: "TLBEvent"}

// TLBEvent describes one lookup, install or flush in a translation structure.
type TLBEvent struct {
	What  string // hit, miss, deny, install, evict, flush
	Side  string
	VAddr uint64
	Attr  PageAttr
}

// A TLBTracer write logs for what happened in a TLB
type TLBTracer struct {
	timeTeller timing.TimeTeller
	writer     io.Writer
}

// NewTLBTracer produce a new TLBTracer, injecting the dependency of a writer.
func NewTLBTracer(w io.Writer, timeTeller timing.TimeTeller) *TLBTracer {
	t := new(TLBTracer)
	t.writer = w
	t.timeTeller = timeTeller

	return t
}

// Func prints the tlb trace information.
func (t *TLBTracer) Func(ctx hooking.HookCtx) {
	if ctx.Pos != HookPosTLBEvent {
		return
	}

	evt, ok := ctx.Item.(TLBEvent)
	if !ok {
		return
	}

	name := "?"
	if named, ok := ctx.Domain.(naming.Named); ok {
		name = named.Name()
	}

	_, err := fmt.Fprintf(t.writer,
		"%d,%s,%s,%s,0x%x,%s\n",
		t.timeTeller.CurrentTime(),
		name,
		evt.Side,
		evt.What,
		evt.VAddr,
		evt.Attr.Flags())
	if err != nil {
		panic(err)
	}
}
