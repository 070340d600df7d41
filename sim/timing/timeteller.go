// Package timing provides the virtual clock used by tracers. The emulator is
// functional, so time is measured in retired instructions.
package timing

// TimeTeller can be used to get the current time.
type TimeTeller interface {
	CurrentTime() uint64
}

// InstCounter is a TimeTeller that counts retired instructions.
type InstCounter struct {
	count uint64
}

// CurrentTime returns the number of instructions retired so far.
func (c *InstCounter) CurrentTime() uint64 {
	return c.count
}

// Advance adds n retired instructions.
func (c *InstCounter) Advance(n uint64) {
	c.count += n
}
