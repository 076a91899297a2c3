// Package challenge defines the opaque challenge identifier used to
// personalise every hash and XOR operation in the Itsuku scheme.
package challenge

// ID is an owned, opaque byte sequence of arbitrary length (typically 64
// bytes) supplied by the caller. It keys or salts every hash and XOR mixing
// step in the memory builder, Merkle tree, and Omega chain.
type ID struct {
	bytes []byte
}

// New copies b into a new ID. The caller's slice may be reused or mutated
// afterwards without affecting the returned ID.
func New(b []byte) ID {
	cp := make([]byte, len(b))
	copy(cp, b)
	return ID{bytes: cp}
}

// Bytes returns the challenge's raw bytes. Callers must not mutate the
// returned slice.
func (c ID) Bytes() []byte {
	return c.bytes
}
