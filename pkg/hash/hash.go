// Package hash adapts a variable-output-length cryptographic hash (BLAKE3,
// via lukechampine.com/blake3) to the streaming init/update/finalize-to-N
// contract the Itsuku scheme is built on (see spec §6 "Hash primitive
// contract"). Every other package in this module hashes exclusively through
// this adapter, so swapping the underlying primitive only touches this file.
package hash

import "lukechampine.com/blake3"

// Hasher is a single-use, finalize-to-N-bytes streaming hash. Its zero value
// is not usable; construct one with New.
type Hasher struct {
	h *blake3.Hasher
	n int
}

// New returns a Hasher that will finalize to exactly n bytes. n may be less
// than, equal to, or greater than BLAKE3's natural 32-byte digest — the
// underlying primitive is an XOF and supports arbitrary output lengths.
func New(n int) *Hasher {
	return &Hasher{h: blake3.New(n, nil), n: n}
}

// Write feeds more input bytes into the hash state. It never returns an
// error; the signature matches hash.Hash for interop with io.Writer callers.
func (h *Hasher) Write(p []byte) (int, error) {
	return h.h.Write(p)
}

// Sum finalizes the hash and returns exactly n bytes, where n is the value
// passed to New. The Hasher must not be reused after calling Sum.
func (h *Hasher) Sum() []byte {
	return h.h.Sum(make([]byte, 0, h.n))
}

// Sum computes H(parts[0] || parts[1] || ... ) finalized to exactly n
// bytes in one call — the common case of every one-shot hash in the
// memory builder, Merkle tree, and Omega chain (spec §4.2-§4.4).
func Sum(n int, parts ...[]byte) []byte {
	h := New(n)
	for _, p := range parts {
		h.Write(p)
	}
	return h.Sum()
}
