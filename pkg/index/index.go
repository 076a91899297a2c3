// Package index implements the Argon2-style dependency index and the
// twelve phi selector variants the Itsuku memory builder uses to pick each
// new element's antecedents.
package index

import "encoding/binary"

// PhiVariantCount is the number of distinct phi selectors (k is always
// reduced modulo this count).
const PhiVariantCount = 12

// Argon2Index computes the Argon2-style dependency index for position i,
// given the first four bytes of a seed (in practice the little-endian
// prefix of the previous element's byte form). seed must have length >= 4;
// only the first four bytes are read.
//
//	u := LE32(seed[0:4])
//	x := (u*u) >> 32
//	y := (i*x) >> 32
//	return i - 1 - y   (wrapping uint64 subtraction)
func Argon2Index(seed []byte, i uint64) uint64 {
	u := uint64(binary.LittleEndian.Uint32(seed[:4]))
	x := (u * u) >> 32
	y := (i * x) >> 32
	return i - 1 - y
}

// Phi evaluates the k-th selector variant (k reduced modulo PhiVariantCount)
// at position i with the given Argon2 index a, then reduces the result
// modulo i so it lies in [0, i). Phi(k, 0, a) is 0 for every k.
func Phi(k int, i, a uint64) uint64 {
	if i == 0 {
		return 0
	}

	var v uint64
	switch variant := ((k % PhiVariantCount) + PhiVariantCount) % PhiVariantCount; variant {
	case 0:
		v = i - 1
	case 1:
		v = a
	case 2:
		v = (a + i) / 2
	case 3:
		v = 7 * i / 8
	case 4:
		v = (a + 3*i) / 4
	case 5:
		v = (a + 5*i) / 8
	case 6:
		v = 3 * i / 4
	case 7:
		v = i / 2
	case 8:
		v = i / 4
	case 9:
		v = 0
	case 10:
		v = 7 * a / 8
	case 11:
		v = 7 * i / 8
	}

	return v % i
}
