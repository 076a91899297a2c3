// Package prover implements the Itsuku search loop (spec §4.5): sweeping
// nonces against a built Memory and MerkleTree until one produces an Omega
// meeting the configured difficulty, then assembling the compact Proof.
package prover

import (
	"context"
	"fmt"
	"runtime"
	"sync"

	"github.com/go-itsuku/itsuku/config"
	"github.com/go-itsuku/itsuku/pkg/challenge"
	"github.com/go-itsuku/itsuku/pkg/element"
	"github.com/go-itsuku/itsuku/pkg/omega"
	"github.com/go-itsuku/itsuku/pkg/proof"
)

// MemorySource is what the search loop needs from a built Memory: element
// lookup for the Omega chain and antecedent tracing for proof assembly.
type MemorySource interface {
	omega.ElementSource
	TraceElement(g uint64) []element.Element
}

// TreeSource is what the search loop needs from a built MerkleTree: the
// root for Omega's root_hash_padded input and authentication-path tracing
// for proof assembly.
type TreeSource interface {
	Root() []byte
	TraceNode(k uint64, opening map[uint64][]byte)
}

// Search runs a single-threaded nonce sweep starting at 1. It returns the
// first proof found, or an error if ctx is cancelled first.
func Search(ctx context.Context, cfg config.Config, chall challenge.ID, mem MemorySource, tree TreeSource) (*proof.Proof, error) {
	total := cfg.TotalElements()
	rootPadded := omega.PadRoot(tree.Root())

	for nonce := uint64(1); ; nonce++ {
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("prover: search cancelled: %w", ctx.Err())
		default:
		}

		res, err := omega.Compute(ctx, cfg, chall, mem, rootPadded, total, nonce)
		if err != nil {
			return nil, fmt.Errorf("prover: omega compute for nonce %d: %w", nonce, err)
		}
		if omega.MeetsDifficulty(res.Omega, cfg.D) {
			return assembleProof(cfg, chall, mem, tree, nonce, res), nil
		}
	}
}

// SearchParallel runs the sweep across numWorkers goroutines, each scanning
// a disjoint residue class of the nonce space starting at 1. Workers share
// only the immutable mem and tree; the first worker to find a solution
// cancels the rest (spec §5 "discovery race" — there is no requirement
// that the smallest valid nonce win).
func SearchParallel(ctx context.Context, cfg config.Config, chall challenge.ID, mem MemorySource, tree TreeSource, numWorkers int) (*proof.Proof, error) {
	if numWorkers < 1 {
		numWorkers = runtime.NumCPU()
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		mu       sync.Mutex
		winner   *proof.Proof
		firstErr error
	)

	total := cfg.TotalElements()
	rootPadded := omega.PadRoot(tree.Root())

	var wg sync.WaitGroup
	for w := 0; w < numWorkers; w++ {
		w := w
		wg.Add(1)
		go func() {
			defer wg.Done()
			for nonce := uint64(w) + 1; ; nonce += uint64(numWorkers) {
				select {
				case <-ctx.Done():
					return
				default:
				}

				res, err := omega.Compute(ctx, cfg, chall, mem, rootPadded, total, nonce)
				if err != nil {
					mu.Lock()
					if firstErr == nil {
						firstErr = err
					}
					mu.Unlock()
					cancel()
					return
				}
				if !omega.MeetsDifficulty(res.Omega, cfg.D) {
					continue
				}

				p := assembleProof(cfg, chall, mem, tree, nonce, res)
				mu.Lock()
				if winner == nil {
					winner = p
				}
				mu.Unlock()
				cancel()
				return
			}
		}()
	}
	wg.Wait()

	if winner != nil {
		return winner, nil
	}
	if firstErr != nil {
		return nil, fmt.Errorf("prover: parallel search: %w", firstErr)
	}
	return nil, fmt.Errorf("prover: search cancelled: %w", ctx.Err())
}

// assembleProof performs spec §4.5 steps 1-3: snapshot the selected leaves,
// record each one's traced antecedents and authentication path, and return
// the finished Proof.
func assembleProof(cfg config.Config, chall challenge.ID, mem MemorySource, tree TreeSource, nonce uint64, res omega.Result) *proof.Proof {
	p := proof.New(cfg, chall, nonce)

	for _, leaf := range res.SelectedLeaves {
		p.LeafAntecedents[leaf] = mem.TraceElement(leaf)
		tree.TraceNode(cfg.TotalElements()-1+leaf, p.TreeOpening)
	}

	return p
}
