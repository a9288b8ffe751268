package packet

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

// TestVarIntRoundTrip verifies encode-then-decode identity over the
// boundary values of the 7-bit group encoding.
func TestVarIntRoundTrip(t *testing.T) {
	for _, v := range []uint64{0, 1, 127, 128, 16383, 16384, math.MaxUint64} {
		c := NewCursor(Compress(v))
		run := NextVarIntBytes(c)
		require.NotNil(t, run, "value %d", v)
		require.Equal(t, v, Decompress(run), "value %d", v)
		require.True(t, c.Empty(), "value %d left trailing bytes", v)
	}
}

// TestVarIntWireBytes pins the exact wire encoding of the group boundaries.
func TestVarIntWireBytes(t *testing.T) {
	require := require.New(t)
	require.Equal([]byte{0x00}, Compress(0))
	require.Equal([]byte{0x7F}, Compress(127))
	require.Equal([]byte{0x80, 0x01}, Compress(128))
	require.Equal([]byte{0xFF, 0x7F}, Compress(16383))
	require.Equal([]byte{0x80, 0x80, 0x01}, Compress(16384))
}

// TestVarIntTruncated verifies that a run missing its terminating byte
// (MSB clear) fails instead of returning a partial value.
func TestVarIntTruncated(t *testing.T) {
	t.Run("all continuation bytes", func(t *testing.T) {
		c := NewCursor([]byte{0x80, 0x80, 0x80})
		require.Nil(t, NextVarIntBytes(c))
	})

	t.Run("empty payload", func(t *testing.T) {
		c := NewCursor(nil)
		require.Nil(t, NextVarIntBytes(c))
	})

	t.Run("adapter maps overrun to ErrMalformed", func(t *testing.T) {
		c := NewCursor([]byte{0x80})
		err := DecodeAdapter(func() error {
			_ = c.NextVarInt()
			return nil
		})
		require.Equal(t, ErrMalformed, err)
	})
}

// TestCursorStrings covers NUL-terminated extraction and the capacity
// truncation point (cap-1 bytes kept).
func TestCursorStrings(t *testing.T) {
	t.Run("terminated", func(t *testing.T) {
		require := require.New(t)
		c := NewCursor([]byte("Quantum\x00rest"))
		require.Equal("Quantum", c.String())
		require.Equal(4, c.Remaining())
	})

	t.Run("truncated at capacity", func(t *testing.T) {
		require := require.New(t)
		c := NewCursor([]byte("abcdefgh\x00"))
		require.Equal("abcd", c.BoundedString(5))
		// cursor still advanced past the full NUL-terminated run
		require.True(c.Empty())
	})

	t.Run("missing terminator", func(t *testing.T) {
		c := NewCursor([]byte("no terminator"))
		err := DecodeAdapter(func() error {
			_ = c.String()
			return nil
		})
		require.Equal(t, ErrMalformed, err)
	})
}

// TestCursorReads covers the low-level cursor accounting.
func TestCursorReads(t *testing.T) {
	require := require.New(t)
	c := NewCursor([]byte{1, 2, 3, 4})
	require.Equal(byte(1), c.ReadByte())
	require.Equal([]byte{2, 3}, c.Read(2))
	require.Equal(3, c.Position())
	require.Equal(1, c.Remaining())
	require.False(c.Empty())
	require.Equal(byte(4), c.ReadByte())
	require.True(c.Empty())

	err := DecodeAdapter(func() error {
		_ = c.ReadByte()
		return nil
	})
	require.Equal(ErrMalformed, err)
}
