// Package verifier implements the Itsuku proof verifier (spec §4.6):
// reconstruct the elements a proof touched, cross-check them against the
// Merkle opening, replay the Omega chain, and check the difficulty target.
//
// This implementation takes the stricter reading of two points the scheme
// leaves as design notes (spec §9): a missing partial-memory lookup during
// Omega replay fails eagerly with ErrRequiredElementMissing rather than
// falling back to a zero Element, and every internal Merkle node on a
// selected leaf's authentication path is recomputed bottom-up and
// cross-checked against the opening rather than merely trusted.
package verifier

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"github.com/go-itsuku/itsuku/config"
	"github.com/go-itsuku/itsuku/pkg/challenge"
	"github.com/go-itsuku/itsuku/pkg/element"
	"github.com/go-itsuku/itsuku/pkg/memory"
	"github.com/go-itsuku/itsuku/pkg/merkletree"
	"github.com/go-itsuku/itsuku/pkg/omega"
	"github.com/go-itsuku/itsuku/pkg/proof"
)

// Sentinel errors, one per spec §7 failure mode this verifier can reach.
var (
	ErrInvalidAntecedentCount   = errors.New("verifier: invalid antecedent count")
	ErrMissingOpeningForLeaf    = errors.New("verifier: missing opening for leaf")
	ErrLeafHashMismatch         = errors.New("verifier: leaf hash mismatch")
	ErrIntermediateHashMismatch = errors.New("verifier: intermediate hash mismatch")
	ErrMissingMerkleRoot        = errors.New("verifier: missing merkle root")
	ErrMalformedProofPath       = errors.New("verifier: malformed proof path")
	ErrUnprovenLeafInPath       = errors.New("verifier: unproven leaf in path")
	ErrDifficultyNotMet         = errors.New("verifier: difficulty not met")
	ErrRequiredElementMissing   = errors.New("verifier: required element missing")
	ErrMissingChildNode         = errors.New("verifier: missing child node")
)

// partialMemory is the verifier's reconstructed view of the elements a
// proof actually touched, keyed by global index. It implements
// omega.ElementSource so Omega replay can run unmodified against it.
// reconstructPartialMemory populates every entry the proof claims to prove
// before replay ever starts, and Omega replay itself only ever reads
// indices it just selected, so a lookup miss here means the proof
// selected an element it never proved, which GetElement reports as
// ErrRequiredElementMissing via the panic/recover boundary in Verify.
type partialMemory map[uint64]element.Element

func (p partialMemory) GetElement(g uint64) element.Element {
	e, ok := p[g]
	if !ok {
		panic(missingElementPanic{index: g})
	}
	return e
}

type missingElementPanic struct{ index uint64 }

// Verify checks p against every invariant of spec §4.6 and returns nil
// only if all six steps succeed.
func Verify(ctx context.Context, p *proof.Proof) (err error) {
	defer func() {
		if r := recover(); r != nil {
			if mp, ok := r.(missingElementPanic); ok {
				err = fmt.Errorf("%w: index %d", ErrRequiredElementMissing, mp.index)
				return
			}
			panic(r)
		}
	}()

	cfg := p.Config
	chall := p.ChallengeID

	mem, err := reconstructPartialMemory(cfg, chall, p)
	if err != nil {
		return err
	}

	root, ok := p.TreeOpening[0]
	if !ok {
		return ErrMissingMerkleRoot
	}

	if err := verifyLeavesAndPaths(cfg, chall, p, mem); err != nil {
		return err
	}

	rootPadded := omega.PadRoot(root)

	res, err := omega.Compute(ctx, cfg, chall, mem, rootPadded, cfg.TotalElements(), p.Nonce)
	if err != nil {
		return fmt.Errorf("verifier: omega replay: %w", err)
	}

	for _, leaf := range res.SelectedLeaves {
		if _, ok := p.LeafAntecedents[leaf]; !ok {
			return fmt.Errorf("%w: leaf %d", ErrUnprovenLeafInPath, leaf)
		}
	}

	if !omega.MeetsDifficulty(res.Omega, cfg.D) {
		return ErrDifficultyNotMet
	}

	return nil
}

// reconstructPartialMemory implements spec §4.6 step 1: for every
// (leaf, antecedents) entry, determine the expected antecedent count from
// the leaf's position within its chunk, and either take the single base
// element directly or recompress it.
func reconstructPartialMemory(cfg config.Config, chall challenge.ID, p *proof.Proof) (partialMemory, error) {
	mem := make(partialMemory, len(p.LeafAntecedents))

	for leaf, antecedents := range p.LeafAntecedents {
		pos := leaf % cfg.L
		expected := uint64(1)
		if pos >= cfg.N {
			expected = cfg.N
		}

		switch {
		case expected == 1 && len(antecedents) == 1:
			mem[leaf] = antecedents[0]
		case expected == cfg.N && uint64(len(antecedents)) == cfg.N:
			mem[leaf] = memory.Compress(antecedents, cfg.N, leaf, chall)
		default:
			return nil, fmt.Errorf("%w: leaf %d expected %d antecedents, got %d", ErrInvalidAntecedentCount, leaf, expected, len(antecedents))
		}
	}

	return mem, nil
}

// verifyLeavesAndPaths implements spec §4.6 step 2 plus the stricter
// intermediate-hash recomputation called for in §9: for every
// reconstructed leaf, check its leaf hash against the opening, then
// recompute every internal node on its authentication path bottom-up and
// cross-check each against the opening.
func verifyLeavesAndPaths(cfg config.Config, chall challenge.ID, p *proof.Proof, mem partialMemory) error {
	m := cfg.NodeSize()

	for leaf, e := range mem {
		k := cfg.TotalElements() - 1 + leaf
		leafHash := merkletree.LeafHash(chall, e, m)

		opened, ok := p.TreeOpening[k]
		if !ok {
			return fmt.Errorf("%w: leaf %d (node %d)", ErrMissingOpeningForLeaf, leaf, k)
		}
		if !bytes.Equal(opened, leafHash) {
			return fmt.Errorf("%w: leaf %d (node %d)", ErrLeafHashMismatch, leaf, k)
		}

		if err := recomputePathToRoot(chall, p.TreeOpening, k, m); err != nil {
			return err
		}
	}

	return nil
}

// recomputePathToRoot walks from node k up to the root, recomputing each
// parent's hash from its two children as found in opening and requiring it
// to match the opening's own entry for that parent. This is the verifier's
// half of the authentication path check; the prover's TraceNode guarantees
// every node visited here was inserted into opening.
func recomputePathToRoot(chall challenge.ID, opening map[uint64][]byte, k uint64, m int) error {
	for k != 0 {
		var left, right uint64
		if k%2 == 1 {
			left, right = k, k+1
		} else {
			left, right = k-1, k
		}

		leftHash, ok := opening[left]
		if !ok {
			return fmt.Errorf("%w: node %d", ErrMissingChildNode, left)
		}
		rightHash, ok := opening[right]
		if !ok {
			return fmt.Errorf("%w: node %d", ErrMissingChildNode, right)
		}

		parent := (k - 1) / 2
		parentHash, ok := opening[parent]
		if !ok {
			return fmt.Errorf("%w: node %d", ErrMalformedProofPath, parent)
		}

		recomputed := merkletree.IntermediateHash(chall, leftHash, rightHash, m)
		if !bytes.Equal(recomputed, parentHash) {
			return fmt.Errorf("%w: node %d", ErrIntermediateHashMismatch, parent)
		}

		k = parent
	}
	return nil
}
