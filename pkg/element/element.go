// Package element implements the 512-bit lane-oriented value that the
// Itsuku memory builder and Omega chain operate on.
package element

import "encoding/binary"

// LaneCount is the number of 64-bit lanes in an Element (8*64 = 512 bits).
const LaneCount = 8

// ByteSize is the canonical little-endian-per-lane byte width of an Element.
const ByteSize = LaneCount * 8

// Element is a 512-bit value represented as eight 64-bit lanes. The zero
// value is the all-zero Element.
type Element struct {
	Lanes [LaneCount]uint64
}

// AddAssign performs lane-wise wrapping unsigned 64-bit addition of other
// into e.
func (e *Element) AddAssign(other Element) {
	for i := range e.Lanes {
		e.Lanes[i] += other.Lanes[i]
	}
}

// XorAssign performs lane-wise XOR of other into e.
func (e *Element) XorAssign(other Element) {
	for i := range e.Lanes {
		e.Lanes[i] ^= other.Lanes[i]
	}
}

// XorAssignBytes reinterprets the first min(len(data), ByteSize) bytes of
// data as little-endian 64-bit lane values and XORs them into e. Lanes
// beyond the supplied data are left unchanged.
func (e *Element) XorAssignBytes(data []byte) {
	n := len(data)
	if n > ByteSize {
		n = ByteSize
	}

	var buf [8]byte
	for lane := 0; lane*8 < n; lane++ {
		start := lane * 8
		end := start + 8
		if end > n {
			// Partial lane: zero-pad the remainder so unread bytes don't
			// pick up stale buffer contents from a previous iteration.
			for i := range buf {
				buf[i] = 0
			}
			copy(buf[:], data[start:n])
			e.Lanes[lane] ^= binary.LittleEndian.Uint64(buf[:])
			continue
		}
		e.Lanes[lane] ^= binary.LittleEndian.Uint64(data[start:end])
	}
}

// FromLEBytes parses exactly ByteSize little-endian bytes into a new
// Element. Panics if len(data) != ByteSize; callers that need a partial
// load should use XorAssignBytes against a zero Element instead.
func FromLEBytes(data []byte) Element {
	if len(data) != ByteSize {
		panic("element: FromLEBytes requires exactly ByteSize bytes")
	}
	var e Element
	for i := range e.Lanes {
		e.Lanes[i] = binary.LittleEndian.Uint64(data[i*8 : i*8+8])
	}
	return e
}

// ToLEBytes serializes e to exactly ByteSize bytes, little-endian per lane.
func (e Element) ToLEBytes() [ByteSize]byte {
	var out [ByteSize]byte
	for i, lane := range e.Lanes {
		binary.LittleEndian.PutUint64(out[i*8:i*8+8], lane)
	}
	return out
}

// WriteLEBytes serializes e into dst, which must be at least ByteSize bytes
// long. It avoids the array-copy FromLEBytes/ToLEBytes incur when a caller
// already owns a scratch buffer (the memory builder's compression-phase
// loop reuses one pair of buffers across every iteration this way).
func (e Element) WriteLEBytes(dst []byte) {
	for i, lane := range e.Lanes {
		binary.LittleEndian.PutUint64(dst[i*8:i*8+8], lane)
	}
}
