// Package omega implements the Itsuku Omega chain (spec §4.4): the
// nonce-driven hash walk that selects L leaves from a memory view, folds
// their XOR-masked elements into a running path-hash sequence, and reduces
// the whole walk to a single 64-byte difficulty target.
package omega

import (
	"context"
	"encoding/binary"
	"fmt"

	"github.com/go-itsuku/itsuku/config"
	"github.com/go-itsuku/itsuku/pkg/challenge"
	"github.com/go-itsuku/itsuku/pkg/element"
	"github.com/go-itsuku/itsuku/pkg/hash"
)

// omegaSize is the fixed width of Y[0..L] and the final Omega value.
const omegaSize = 64

// ElementSource is the minimal memory-view shape the chain needs: given a
// global index, produce the element there. Both *memory.Memory and the
// verifier's partial-memory view satisfy this without either importing the
// other.
type ElementSource interface {
	GetElement(index uint64) element.Element
}

// Result is the output of one Omega chain evaluation: the selected leaf
// indices in walk order, the full path-hash sequence Y[0..L] (len L+1), and
// the final 64-byte Omega.
type Result struct {
	SelectedLeaves []uint64
	PathHashes     [][]byte
	Omega          []byte
}

// Compute runs the Omega chain for one nonce against mem, a memory_size of
// totalElements, and a root hash already right-padded to 64 bytes (spec
// §4.4 takes root_hash_padded, not the raw M-byte root, as input).
func Compute(ctx context.Context, cfg config.Config, chall challenge.ID, mem ElementSource, rootHashPadded []byte, totalElements, nonce uint64) (Result, error) {
	if len(rootHashPadded) != omegaSize {
		return Result{}, fmt.Errorf("omega: root_hash_padded must be %d bytes, got %d", omegaSize, len(rootHashPadded))
	}

	pathHashes := make([][]byte, cfg.SearchLength+1)
	selected := make([]uint64, cfg.SearchLength)

	pathHashes[0] = hash.Sum(omegaSize, le8(nonce), rootHashPadded, chall.Bytes())

	for j := uint64(0); j < cfg.SearchLength; j++ {
		select {
		case <-ctx.Done():
			return Result{}, ctx.Err()
		default:
		}

		leaf := binary.LittleEndian.Uint64(pathHashes[j][:8]) % totalElements
		selected[j] = leaf

		e := mem.GetElement(leaf)
		e.XorAssignBytes(chall.Bytes())
		eb := e.ToLEBytes()

		pathHashes[j+1] = hash.Sum(omegaSize, pathHashes[j], eb[:])
	}

	omg := finalReduce(chall, pathHashes)
	return Result{SelectedLeaves: selected, PathHashes: pathHashes, Omega: omg}, nil
}

// finalReduce implements step 3 of spec §4.4: hash Y[L..1] in reverse order,
// then Y[0] reinterpreted as an Element and XOR-masked with the challenge.
func finalReduce(chall challenge.ID, pathHashes [][]byte) []byte {
	h := hash.New(omegaSize)
	for j := len(pathHashes) - 1; j >= 1; j-- {
		h.Write(pathHashes[j])
	}

	e0 := element.FromLEBytes(pathHashes[0])
	e0.XorAssignBytes(chall.Bytes())
	e0Bytes := e0.ToLEBytes()
	h.Write(e0Bytes[:])

	return h.Sum()
}

// LeadingZeroBits counts the number of leading zero bits of b, from the
// most-significant end of byte 0, up to (not including) the first set bit. A
// fully zero slice counts every bit.
func LeadingZeroBits(b []byte) int {
	count := 0
	for _, by := range b {
		if by == 0 {
			count += 8
			continue
		}
		for mask := byte(0x80); mask != 0; mask >>= 1 {
			if by&mask != 0 {
				return count
			}
			count++
		}
	}
	return count
}

// MeetsDifficulty reports whether omg satisfies the configured difficulty
// target d.
func MeetsDifficulty(omg []byte, d uint64) bool {
	return uint64(LeadingZeroBits(omg)) >= d
}

// PadRoot right-pads an M-byte Merkle root to the fixed 64-byte width the
// Omega chain operates on. This padding is a protocol detail, not an
// incidental artifact: every Omega computation (prover and verifier alike)
// must pad identically for the chain to agree.
func PadRoot(root []byte) []byte {
	padded := make([]byte, omegaSize)
	copy(padded, root)
	return padded
}

func le8(x uint64) []byte {
	buf := make([]byte, 8)
	binary.LittleEndian.PutUint64(buf, x)
	return buf
}
