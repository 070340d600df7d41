package bus

// A ROM is a read-only device.
type ROM struct {
	data []byte
}

// NewROM creates a ROM holding a copy of data.
func NewROM(data []byte) *ROM {
	return &ROM{data: append([]byte(nil), data...)}
}

// Load copies from the ROM. Reads past the end are rejected.
func (r *ROM) Load(offset uint64, p []byte) bool {
	size := uint64(len(r.data))
	if offset >= size || uint64(len(p)) > size-offset {
		return false
	}

	copy(p, r.data[offset:])

	return true
}

// Store always fails.
func (r *ROM) Store(uint64, []byte) bool {
	return false
}

// Size returns the number of bytes in the ROM.
func (r *ROM) Size() uint64 {
	return uint64(len(r.data))
}
