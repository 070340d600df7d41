// Package guestmem holds the physical memory image of the guest.
package guestmem

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"log"
)

// ErrOutOfRange is returned when an access does not fit in the memory image.
var ErrOutOfRange = errors.New("address outside guest memory")

// A Memory keeps the physical storage of the guest system.
//
// A memory is one flat buffer allocated when the session starts. Every
// address is bounds checked against the buffer before it is used.
type Memory struct {
	data []byte
}

// New creates a zero-filled memory image of the given size.
func New(size uint64) *Memory {
	if size == 0 {
		log.Panic("guest memory size must not be 0")
	}

	return &Memory{data: make([]byte, size)}
}

// Size returns the number of bytes in the image.
func (m *Memory) Size() uint64 {
	return uint64(len(m.data))
}

// Contains tells if [addr, addr+n) lies inside the image.
func (m *Memory) Contains(addr, n uint64) bool {
	size := m.Size()
	return addr < size && n <= size-addr
}

func (m *Memory) mustContain(addr, n uint64) {
	if !m.Contains(addr, n) {
		log.Panicf("access [0x%x, 0x%x) outside guest memory of size 0x%x",
			addr, addr+n, m.Size())
	}
}

// Read copies len(p) bytes starting at addr into p.
func (m *Memory) Read(addr uint64, p []byte) error {
	if !m.Contains(addr, uint64(len(p))) {
		return fmt.Errorf("%w: read 0x%x+%d", ErrOutOfRange, addr, len(p))
	}

	copy(p, m.data[addr:])

	return nil
}

// Write copies p into the image starting at addr.
func (m *Memory) Write(addr uint64, p []byte) error {
	if !m.Contains(addr, uint64(len(p))) {
		return fmt.Errorf("%w: write 0x%x+%d", ErrOutOfRange, addr, len(p))
	}

	copy(m.data[addr:], p)

	return nil
}

// Bytes returns the slice of the image backing [addr, addr+n). The caller
// must have checked the range with Contains; an out-of-range request panics.
func (m *Memory) Bytes(addr, n uint64) []byte {
	m.mustContain(addr, n)
	return m.data[addr : addr+n : addr+n]
}

// LoadUint8 reads one byte. The range must be inside the image.
func (m *Memory) LoadUint8(addr uint64) uint8 {
	m.mustContain(addr, 1)
	return m.data[addr]
}

// LoadUint16 reads a little-endian half word.
func (m *Memory) LoadUint16(addr uint64) uint16 {
	return binary.LittleEndian.Uint16(m.Bytes(addr, 2))
}

// LoadUint32 reads a little-endian word.
func (m *Memory) LoadUint32(addr uint64) uint32 {
	return binary.LittleEndian.Uint32(m.Bytes(addr, 4))
}

// LoadUint64 reads a little-endian double word.
func (m *Memory) LoadUint64(addr uint64) uint64 {
	return binary.LittleEndian.Uint64(m.Bytes(addr, 8))
}

// StoreUint8 writes one byte.
func (m *Memory) StoreUint8(addr uint64, v uint8) {
	m.mustContain(addr, 1)
	m.data[addr] = v
}

// StoreUint16 writes a little-endian half word.
func (m *Memory) StoreUint16(addr uint64, v uint16) {
	binary.LittleEndian.PutUint16(m.Bytes(addr, 2), v)
}

// StoreUint32 writes a little-endian word.
func (m *Memory) StoreUint32(addr uint64, v uint32) {
	binary.LittleEndian.PutUint32(m.Bytes(addr, 4), v)
}

// StoreUint64 writes a little-endian double word.
func (m *Memory) StoreUint64(addr uint64, v uint64) {
	binary.LittleEndian.PutUint64(m.Bytes(addr, 8), v)
}

// LoadImage copies everything r produces into the image at addr and returns
// the number of bytes loaded.
func (m *Memory) LoadImage(r io.Reader, addr uint64) (uint64, error) {
	if addr >= m.Size() {
		return 0, fmt.Errorf("%w: image base 0x%x", ErrOutOfRange, addr)
	}

	n, err := io.ReadFull(r, m.data[addr:])

	switch {
	case err == nil:
		var extra [1]byte
		if k, _ := r.Read(extra[:]); k > 0 {
			return uint64(n), fmt.Errorf("%w: image larger than memory",
				ErrOutOfRange)
		}
	case errors.Is(err, io.ErrUnexpectedEOF), errors.Is(err, io.EOF):
		err = nil
	}

	return uint64(n), err
}
