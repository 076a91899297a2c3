package merkletree

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/go-itsuku/itsuku/config"
	"github.com/go-itsuku/itsuku/pkg/challenge"
	"github.com/go-itsuku/itsuku/pkg/memory"
)

func smallConfig() config.Config {
	return config.Config{L: 8, P: 2, N: 4, D: 24, SearchLength: 9}
}

func testChallenge() challenge.ID {
	b := make([]byte, 64)
	for i := range b {
		b[i] = byte(i)
	}
	return challenge.New(b)
}

// TestRootGoldenPrefix pins the root's first 5 bytes against the fixture
// quoted in the scheme's test-scenario catalogue for the same config and
// challenge as the memory package's seed-element golden test.
func TestRootGoldenPrefix(t *testing.T) {
	cfg := smallConfig()
	chall := testChallenge()

	mem, err := memory.Build(context.Background(), cfg, chall)
	require.NoError(t, err)

	tree, err := Build(context.Background(), cfg, mem, chall)
	require.NoError(t, err)

	require.Equal(t, cfg.NodeSize(), tree.NodeSize())
	want := []byte{0x68, 0x19, 0x65, 0xc4, 0xab}
	require.Equal(t, want, tree.Root()[:len(want)])
}

// TestAuthenticationPathCardinality reproduces the scheme's scenario 7:
// tracing leaf node 30 of a T=16 tree must touch exactly the nine nodes
// {0, 1, 2, 5, 6, 13, 14, 29, 30}.
func TestAuthenticationPathCardinality(t *testing.T) {
	cfg := config.Config{L: 16, P: 1, N: 2, D: 8, SearchLength: 1}
	chall := testChallenge()

	mem, err := memory.Build(context.Background(), cfg, chall)
	require.NoError(t, err)
	tree, err := Build(context.Background(), cfg, mem, chall)
	require.NoError(t, err)
	require.Equal(t, uint64(16), tree.Total())

	opening := make(map[uint64][]byte)
	tree.TraceNode(30, opening)

	want := []uint64{0, 1, 2, 5, 6, 13, 14, 29, 30}
	require.Len(t, opening, len(want))
	for _, k := range want {
		require.Containsf(t, opening, k, "expected node %d in authentication path", k)
	}
}

// TestBuildRejectsInvalidConfig exercises the same fail-fast contract the
// memory package uses, so misconfigured trees never silently build.
func TestBuildRejectsInvalidConfig(t *testing.T) {
	chall := testChallenge()
	_, err := Build(context.Background(), config.Config{L: 1, N: 4}, nil, chall)
	require.Error(t, err)
}

// TestTraceNodeStopsAtRoot ensures the authentication path never attempts to
// insert a sibling for the root, which has none.
func TestTraceNodeStopsAtRoot(t *testing.T) {
	cfg := smallConfig()
	chall := testChallenge()
	mem, err := memory.Build(context.Background(), cfg, chall)
	require.NoError(t, err)
	tree, err := Build(context.Background(), cfg, mem, chall)
	require.NoError(t, err)

	opening := make(map[uint64][]byte)
	tree.TraceNode(0, opening)
	require.Len(t, opening, 1)
	require.Contains(t, opening, uint64(0))
}
