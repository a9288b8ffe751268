package packet

// Varint wire format: each byte carries 7 data bits, least significant
// group first. A set MSB (0x80) means another byte follows; the first byte
// with MSB clear terminates the integer. Multi-byte values must reassemble
// bit-exactly with the protocol compressor, otherwise every downstream
// field offset shifts.

// Compress encodes v into its varint wire bytes.
func Compress(v uint64) []byte {
	bb := make([]byte, 0, 10)
	for {
		chunk := byte(v & 0x7F)
		v >>= 7
		if v != 0 {
			chunk |= 0x80
		}
		bb = append(bb, chunk)
		if v == 0 {
			break
		}
	}
	return bb
}

// Decompress folds one varint byte run (as returned by NextVarIntBytes)
// back into an integer. Continuation bits are masked off; byte i
// contributes bits [7i, 7i+7).
func Decompress(run []byte) uint64 {
	v := uint64(0)
	for i, b := range run {
		v |= uint64(b&0x7F) << uint(7*i)
	}
	return v
}

// NextVarIntBytes consumes one varint byte run from the cursor and returns
// it. Returns nil if the payload ends before a byte with a clear MSB is
// found; the cursor position is unspecified after a nil return and the
// decode must be abandoned.
func NextVarIntBytes(c *Cursor) []byte {
	start := c.offset
	for !c.Empty() {
		b := c.ReadByte()
		if b&0x80 == 0 {
			return c.buf[start:c.offset]
		}
	}
	return nil
}

// NextVarInt reads and folds one varint in a single step.
// Panics with overrun{} when the terminating byte is missing, so it is
// only usable inside DecodeAdapter.
func (c *Cursor) NextVarInt() uint64 {
	run := NextVarIntBytes(c)
	if run == nil {
		panic(overrun{})
	}
	return Decompress(run)
}

// String reads a NUL-terminated byte run and returns it without the
// terminator. Panics with overrun{} if the payload ends before the NUL.
func (c *Cursor) String() string {
	start := c.offset
	for {
		if c.ReadByte() == 0 {
			return string(c.buf[start : c.offset-1])
		}
	}
}

// BoundedString reads a NUL-terminated run like String but truncates the
// result at cap-1 bytes (copy length = min(source length, cap-1)), matching
// the fixed-size destination buffers of the wire protocol.
func (c *Cursor) BoundedString(capacity int) string {
	s := c.String()
	if capacity > 0 && len(s) > capacity-1 {
		s = s[:capacity-1]
	}
	return s
}
