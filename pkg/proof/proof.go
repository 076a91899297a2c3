// Package proof defines the Itsuku proof object produced by a search and
// consumed by a verify (spec §4.4 / §5).
package proof

import (
	"github.com/go-itsuku/itsuku/config"
	"github.com/go-itsuku/itsuku/pkg/challenge"
	"github.com/go-itsuku/itsuku/pkg/element"
)

// Proof is the output of a successful search: the nonce that met the
// difficulty target, plus enough of the memory array and Merkle tree for a
// verifier to replay the Omega chain and check every leaf's authentication
// path without rebuilding the full array.
type Proof struct {
	Config      config.Config
	ChallengeID challenge.ID
	Nonce       uint64

	// LeafAntecedents maps each selected leaf's global index to the n
	// elements its TraceElement produced, so the verifier can recompute
	// the leaf element itself (or read it directly, for seed positions).
	LeafAntecedents map[uint64][]element.Element

	// TreeOpening maps flat Merkle node indices to their hash, covering
	// every selected leaf's full authentication path plus the root.
	TreeOpening map[uint64][]byte
}

// New builds an empty Proof ready to be populated by a prover.
func New(cfg config.Config, chall challenge.ID, nonce uint64) *Proof {
	return &Proof{
		Config:          cfg,
		ChallengeID:     chall,
		Nonce:           nonce,
		LeafAntecedents: make(map[uint64][]element.Element),
		TreeOpening:     make(map[uint64][]byte),
	}
}
