package isa

import (
	"errors"

	"github.com/sarchlab/rvcore/trap"
)

// ErrNoDecoder is the cause of the traps raised by IllegalDecoder.
var ErrNoDecoder = errors.New("no decoder for instruction")

// IllegalDecoder decodes every instruction into one that raises an
// illegal-instruction trap when executed.
type IllegalDecoder struct{}

// Decode implements Decoder.
func (IllegalDecoder) Decode(insn Insn) (ExecFunc, error) {
	return illegal, nil
}

func illegal(_ Hart, insn Insn, _ uint64) (uint64, error) {
	return 0, trap.IllegalInstruction(insn.Bits(), ErrNoDecoder)
}
