// Package merkletree builds the flat, fixed-width binary Merkle tree that
// binds a Memory to a single root hash (spec §4.3). Unlike the teacher's
// pointer-linked MerkleNode tree, Itsuku's tree is a dense array of exactly
// 2T-1 fixed-size nodes indexed the way a binary heap is: node k's children
// live at 2k+1 and 2k+2, its parent at (k-1)/2. That shape makes leaf
// hashing trivially parallel across a worker pool the same way the teacher's
// GenerateMerkleTree hashes its leaf level before folding upward.
package merkletree

import (
	"context"
	"fmt"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/go-itsuku/itsuku/config"
	"github.com/go-itsuku/itsuku/pkg/challenge"
	"github.com/go-itsuku/itsuku/pkg/element"
	"github.com/go-itsuku/itsuku/pkg/hash"
)

// ElementSource is the minimal shape Build needs from a Memory; Tree never
// imports the memory package directly so *memory.Memory satisfies this
// implicitly.
type ElementSource interface {
	GetElement(g uint64) element.Element
}

// Tree is the built, immutable Merkle tree over one Memory. The zero value
// is not usable; construct one with Build.
type Tree struct {
	nodeSize int
	total    uint64 // T, the leaf count
	nodes    [][]byte
}

// NodeSize returns M, the byte width of every node in this tree.
func (t *Tree) NodeSize() int { return t.nodeSize }

// Total returns T, the number of leaves (== cfg.TotalElements()).
func (t *Tree) Total() uint64 { return t.total }

// Root returns the root node's hash (node 0).
func (t *Tree) Root() []byte { return t.nodes[0] }

// Node returns the hash stored at flat index k. k must be in
// [0, 2*Total()-1); out-of-range access panics, matching a plain slice
// index.
func (t *Tree) Node(k uint64) []byte { return t.nodes[k] }

// LeafIndex converts a global element index g into its flat node index.
func (t *Tree) LeafIndex(g uint64) uint64 { return t.total - 1 + g }

// Build constructs the full Merkle tree over mem's T = cfg.TotalElements()
// elements. Leaves are hashed in parallel across a bounded worker pool;
// internal nodes (including the root) are then folded bottom-up in a single
// sequential pass, since each depends on both its children.
func Build(ctx context.Context, cfg config.Config, mem ElementSource, chall challenge.ID) (*Tree, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("merkletree: invalid config: %w", err)
	}

	total := cfg.TotalElements()
	m := cfg.NodeSize()
	nodes := make([][]byte, 2*total-1)
	leafStart := total - 1

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.NumCPU())
	for pos := uint64(0); pos < total; pos++ {
		pos := pos
		g.Go(func() error {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}
			nodes[leafStart+pos] = LeafHash(chall, mem.GetElement(pos), m)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("merkletree: build: %w", err)
	}

	// Internal nodes depend on both children, so this pass runs
	// sequentially from the deepest internal level up to the root. Folding
	// node 0 into the same loop (rather than a separate post-loop branch)
	// guarantees the root is computed exactly once.
	for p := int64(total) - 2; p >= 0; p-- {
		left := uint64(2*p + 1)
		right := uint64(2*p + 2)
		nodes[p] = IntermediateHash(chall, nodes[left], nodes[right], m)
	}

	return &Tree{nodeSize: m, total: total, nodes: nodes}, nil
}

// LeafHash computes a leaf node's hash: H(element_bytes || challenge) ->
// m bytes.
func LeafHash(chall challenge.ID, e element.Element, m int) []byte {
	eb := e.ToLEBytes()
	return hash.Sum(m, eb[:], chall.Bytes())
}

// IntermediateHash computes an internal node's hash from its two children:
// H(left || right || challenge) -> m bytes.
func IntermediateHash(chall challenge.ID, left, right []byte, m int) []byte {
	return hash.Sum(m, left, right, chall.Bytes())
}

// TraceNode records node k and its authentication path up to and including
// the root into opening, keyed by flat node index. Every value inserted is a
// defensive copy so callers may freely mutate the Proof's opening map
// afterwards without aliasing the tree's internal storage.
func (t *Tree) TraceNode(k uint64, opening map[uint64][]byte) {
	for {
		insertCopy(opening, k, t.nodes[k])
		if k == 0 {
			return
		}

		var sibling uint64
		if k%2 == 1 {
			sibling = k + 1 // k is a left child
		} else {
			sibling = k - 1 // k is a right child
		}
		insertCopy(opening, sibling, t.nodes[sibling])

		k = (k - 1) / 2
	}
}

func insertCopy(opening map[uint64][]byte, k uint64, node []byte) {
	if _, ok := opening[k]; ok {
		return
	}
	cp := make([]byte, len(node))
	copy(cp, node)
	opening[k] = cp
}
