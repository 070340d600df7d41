// Package trap defines the architectural exceptions and interrupts that stop
// an instruction.
package trap

import (
	"errors"
	"fmt"

	"github.com/sarchlab/rvcore/mem/vm"
)

// Kind is the cause code of a trap. Interrupts carry InterruptBit.
type Kind uint64

// InterruptBit marks interrupt causes. It is moved to bit XLEN-1 when the
// cause is written to mcause.
const InterruptBit Kind = 1 << 63

// Exception causes.
const (
	InsnAddrMisaligned  Kind = 0
	InsnAccessFault     Kind = 1
	IllegalInsn         Kind = 2
	Breakpoint          Kind = 3
	LoadAddrMisaligned  Kind = 4
	LoadAccessFault     Kind = 5
	StoreAddrMisaligned Kind = 6
	StoreAccessFault    Kind = 7
	UserECall           Kind = 8
	SupervisorECall     Kind = 9
	HypervisorECall     Kind = 10
	MachineECall        Kind = 11
)

// Interrupt causes.
const (
	SoftwareInterrupt Kind = InterruptBit | 0
	TimerInterrupt    Kind = InterruptBit | 1
	ExternalInterrupt Kind = InterruptBit | 2
)

var kindNames = map[Kind]string{
	InsnAddrMisaligned:  "instruction address misaligned",
	InsnAccessFault:     "instruction access fault",
	IllegalInsn:         "illegal instruction",
	Breakpoint:          "breakpoint",
	LoadAddrMisaligned:  "load address misaligned",
	LoadAccessFault:     "load access fault",
	StoreAddrMisaligned: "store address misaligned",
	StoreAccessFault:    "store access fault",
	UserECall:           "user ecall",
	SupervisorECall:     "supervisor ecall",
	HypervisorECall:     "hypervisor ecall",
	MachineECall:        "machine ecall",
	SoftwareInterrupt:   "software interrupt",
	TimerInterrupt:      "timer interrupt",
	ExternalInterrupt:   "external interrupt",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}

	return fmt.Sprintf("trap(0x%x)", uint64(k))
}

// IsInterrupt tells if the kind is an interrupt rather than an exception.
func (k Kind) IsInterrupt() bool {
	return k&InterruptBit != 0
}

// Cause returns the value written to mcause on a machine with the given XLEN.
func (k Kind) Cause(xlen int) uint64 {
	code := uint64(k &^ InterruptBit)
	if k.IsInterrupt() {
		code |= uint64(1) << uint(xlen-1)
	}

	return code
}

// A Trap stops the current instruction. It is returned as an error by
// anything that can fault.
type Trap struct {
	Kind    Kind
	TVal    uint64
	HasTVal bool

	// Err is why the trap was raised, when known.
	Err error
}

func (t *Trap) Error() string {
	s := t.Kind.String()
	if t.HasTVal {
		s = fmt.Sprintf("%s at 0x%x", s, t.TVal)
	}

	if t.Err != nil {
		s += ": " + t.Err.Error()
	}

	return s
}

// Unwrap returns the cause, so that errors.Is can look past the trap kind.
func (t *Trap) Unwrap() error {
	return t.Err
}

// New creates a trap with a trap value.
func New(kind Kind, tval uint64) *Trap {
	return &Trap{Kind: kind, TVal: tval, HasTVal: true}
}

// AccessFault creates the access fault that matches the access kind.
func AccessFault(kind vm.AccessKind, addr uint64, cause error) *Trap {
	k := LoadAccessFault

	switch kind {
	case vm.Store:
		k = StoreAccessFault
	case vm.Fetch:
		k = InsnAccessFault
	}

	return &Trap{Kind: k, TVal: addr, HasTVal: true, Err: cause}
}

// Misaligned creates the misaligned-address trap that matches the access
// kind.
func Misaligned(kind vm.AccessKind, addr uint64) *Trap {
	k := LoadAddrMisaligned

	switch kind {
	case vm.Store:
		k = StoreAddrMisaligned
	case vm.Fetch:
		k = InsnAddrMisaligned
	}

	return New(k, addr)
}

// IllegalInstruction creates an illegal-instruction trap.
func IllegalInstruction(bits uint64, cause error) *Trap {
	return &Trap{Kind: IllegalInsn, TVal: bits, HasTVal: true, Err: cause}
}

// Interrupt creates an interrupt trap. Interrupts carry no trap value.
func Interrupt(kind Kind) *Trap {
	return &Trap{Kind: kind}
}

// KindOf returns the kind of the trap wrapped in err.
func KindOf(err error) (Kind, bool) {
	var t *Trap
	if errors.As(err, &t) {
		return t.Kind, true
	}

	return 0, false
}
