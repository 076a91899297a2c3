package verifier

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/go-itsuku/itsuku/config"
	"github.com/go-itsuku/itsuku/pkg/challenge"
	"github.com/go-itsuku/itsuku/pkg/memory"
	"github.com/go-itsuku/itsuku/pkg/merkletree"
	"github.com/go-itsuku/itsuku/pkg/prover"
)

func easyConfig() config.Config {
	return config.Config{L: 16, P: 1, N: 4, D: 2, SearchLength: 3}
}

func testChallenge() challenge.ID {
	b := make([]byte, 64)
	for i := range b {
		b[i] = byte(i)
	}
	return challenge.New(b)
}

func TestVerifyAcceptsProverOutput(t *testing.T) {
	cfg := easyConfig()
	chall := testChallenge()

	mem, err := memory.Build(context.Background(), cfg, chall)
	require.NoError(t, err)
	tree, err := merkletree.Build(context.Background(), cfg, mem, chall)
	require.NoError(t, err)

	p, err := prover.Search(context.Background(), cfg, chall, mem, tree)
	require.NoError(t, err)

	require.NoError(t, Verify(context.Background(), p))
}

func TestVerifyRejectsTamperedAntecedent(t *testing.T) {
	cfg := easyConfig()
	chall := testChallenge()

	mem, err := memory.Build(context.Background(), cfg, chall)
	require.NoError(t, err)
	tree, err := merkletree.Build(context.Background(), cfg, mem, chall)
	require.NoError(t, err)

	p, err := prover.Search(context.Background(), cfg, chall, mem, tree)
	require.NoError(t, err)

	for leaf, ants := range p.LeafAntecedents {
		ants[0].Lanes[0] ^= 0xff
		p.LeafAntecedents[leaf] = ants
		break
	}

	err = Verify(context.Background(), p)
	require.Error(t, err)
}

func TestVerifyRejectsTamperedOpening(t *testing.T) {
	cfg := easyConfig()
	chall := testChallenge()

	mem, err := memory.Build(context.Background(), cfg, chall)
	require.NoError(t, err)
	tree, err := merkletree.Build(context.Background(), cfg, mem, chall)
	require.NoError(t, err)

	p, err := prover.Search(context.Background(), cfg, chall, mem, tree)
	require.NoError(t, err)

	leafStart := cfg.TotalElements() - 1
	tamperedAny := false
	for k, hashBytes := range p.TreeOpening {
		if k == 0 || k >= leafStart {
			continue // skip the root (checked separately) and leaf nodes (caught by ErrLeafHashMismatch instead)
		}
		tampered := make([]byte, len(hashBytes))
		copy(tampered, hashBytes)
		tampered[0] ^= 0xff
		p.TreeOpening[k] = tampered
		tamperedAny = true
		break
	}
	require.True(t, tamperedAny, "fixture must contain at least one internal non-root node")

	require.ErrorIs(t, Verify(context.Background(), p), ErrIntermediateHashMismatch)
}

func TestVerifyRejectsMissingRoot(t *testing.T) {
	cfg := easyConfig()
	chall := testChallenge()

	mem, err := memory.Build(context.Background(), cfg, chall)
	require.NoError(t, err)
	tree, err := merkletree.Build(context.Background(), cfg, mem, chall)
	require.NoError(t, err)

	p, err := prover.Search(context.Background(), cfg, chall, mem, tree)
	require.NoError(t, err)

	delete(p.TreeOpening, 0)

	require.ErrorIs(t, Verify(context.Background(), p), ErrMissingMerkleRoot)
}

func TestVerifyRejectsUnmetDifficulty(t *testing.T) {
	cfg := easyConfig()
	chall := testChallenge()

	// The node width M depends on D, so the tree is built under the forged
	// difficulty: its opening then has the width the verifier derives from
	// the forged proof, and the leaf and path checks still pass.
	forged := cfg
	forged.D = 10000

	mem, err := memory.Build(context.Background(), cfg, chall)
	require.NoError(t, err)
	tree, err := merkletree.Build(context.Background(), forged, mem, chall)
	require.NoError(t, err)

	p, err := prover.Search(context.Background(), cfg, chall, mem, tree)
	require.NoError(t, err)

	// Forge an artificially high difficulty requirement onto an otherwise
	// valid proof: verification must now reject on the difficulty check
	// specifically, not some earlier step.
	p.Config.D = forged.D

	require.ErrorIs(t, Verify(context.Background(), p), ErrDifficultyNotMet)
}

func TestVerifyRejectsInvalidAntecedentCount(t *testing.T) {
	cfg := easyConfig()
	chall := testChallenge()

	mem, err := memory.Build(context.Background(), cfg, chall)
	require.NoError(t, err)
	tree, err := merkletree.Build(context.Background(), cfg, mem, chall)
	require.NoError(t, err)

	p, err := prover.Search(context.Background(), cfg, chall, mem, tree)
	require.NoError(t, err)

	for leaf, ants := range p.LeafAntecedents {
		p.LeafAntecedents[leaf] = ants[:len(ants)-1]
		break
	}

	require.ErrorIs(t, Verify(context.Background(), p), ErrInvalidAntecedentCount)
}
