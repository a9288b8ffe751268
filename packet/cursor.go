// Package packet implements the low-level payload access primitives:
// a length-tracked byte cursor and the self-delimiting varint codec.
//
// This package provides:
//   - Cursor: a forward-only reader over one payload, carrying the remaining
//     length at every step so that any overrun is detected structurally
//   - Varint encoding/decoding (7 data bits per byte, MSB as continuation flag)
//   - NUL-terminated string extraction with bounded destination capacity
//
// Overruns raise an internal panic value that DecodeAdapter converts into
// ErrMalformed, so field decoders stay free of per-read error plumbing.
package packet

import "errors"

// Standard errors for payload decoding.
var (
	// ErrMalformed reports a structurally invalid payload: a read past the
	// declared payload length, or a varint missing its terminating byte.
	ErrMalformed = errors.New("malformed payload: truncated field or overrun")
)

// overrun is the panic value raised by Cursor reads that would pass the
// payload end. It never escapes DecodeAdapter.
type overrun struct{}

// Cursor is a forward-only reader over a single payload buffer.
// It is not safe for concurrent use; one decode owns one Cursor.
type Cursor struct {
	// buf is the full payload (pkt_size = len(buf)).
	buf []byte
	// offset tracks the current reading position.
	offset int
}

// NewCursor creates a Cursor over the provided payload.
func NewCursor(payload []byte) *Cursor {
	return &Cursor{
		buf:    payload,
		offset: 0,
	}
}

// ReadByte consumes and returns a single byte.
// Panics with overrun{} if the payload is exhausted.
func (c *Cursor) ReadByte() byte {
	if c.offset >= len(c.buf) {
		panic(overrun{})
	}
	res := c.buf[c.offset]
	c.offset++
	return res
}

// Read consumes and returns the next n bytes.
// The returned slice shares memory with the payload.
// Panics with overrun{} if fewer than n bytes remain.
func (c *Cursor) Read(n int) []byte {
	if n < 0 || c.offset+n > len(c.buf) {
		panic(overrun{})
	}
	res := c.buf[c.offset : c.offset+n]
	c.offset += n
	return res
}

// Position returns the current cursor index.
func (c *Cursor) Position() int {
	return c.offset
}

// Remaining returns how many bytes are left before the payload end.
func (c *Cursor) Remaining() int {
	return len(c.buf) - c.offset
}

// Empty reports whether the Cursor has reached the payload end.
func (c *Cursor) Empty() bool {
	return c.offset >= len(c.buf)
}

// DecodeAdapter runs decode and converts any cursor overrun panic into
// ErrMalformed. Decode failure is terminal: callers must not use partial
// results after a non-nil error.
func DecodeAdapter(decode func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			if _, ok := r.(overrun); !ok {
				panic(r)
			}
			err = ErrMalformed
		}
	}()
	return decode()
}
