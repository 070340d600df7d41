package isa

// Hart is what an instruction can touch when it executes.
type Hart interface {
	XReg(i int) uint64
	SetXReg(i int, v uint64)

	Load(addr uint64, size int) (uint64, error)
	Store(addr uint64, size int, v uint64) error

	ReadCSR(addr uint16) (uint64, error)
	WriteCSR(addr uint16, v uint64) error

	// Serialize reports whether the instruction runs serialized. When it
	// returns false the instruction must return PCSerialize without side
	// effects; it is executed again and the second call returns true.
	Serialize() bool

	// TrapReturn leaves the current trap handler and returns the PC to
	// resume at.
	TrapReturn() uint64
}

// An ExecFunc executes one decoded instruction at pc and returns the next PC
// or PCSerialize. A returned error is a trap that stops the instruction.
type ExecFunc func(h Hart, insn Insn, pc uint64) (uint64, error)

// A Decoder turns instruction bits into an executable function.
type Decoder interface {
	Decode(insn Insn) (ExecFunc, error)
}

// Fetch is a decoded instruction ready to execute.
type Fetch struct {
	Func ExecFunc
	Insn Insn
}
