// Package memory builds and serves the deterministic P*L element array the
// Itsuku prover and verifier search over. Chunks are built independently of
// one another (spec §4.2) so the build fans out across goroutines the same
// way the teacher's GenerateSparseMerkleTree leaf pass does, via a bounded
// worker pool rather than one goroutine per chunk.
package memory

import (
	"context"
	"encoding/binary"
	"fmt"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/go-itsuku/itsuku/config"
	"github.com/go-itsuku/itsuku/pkg/challenge"
	"github.com/go-itsuku/itsuku/pkg/element"
	"github.com/go-itsuku/itsuku/pkg/hash"
	"github.com/go-itsuku/itsuku/pkg/index"
)

// Memory is the built, immutable P*L element array for one (Config,
// ChallengeId) pair. The zero value is not usable; construct one with
// Build.
type Memory struct {
	cfg    config.Config
	chall  challenge.ID
	chunks [][]element.Element // len(chunks) == cfg.P, len(chunks[c]) == cfg.L
}

// Config returns the Config this Memory was built under.
func (m *Memory) Config() config.Config { return m.cfg }

// ChallengeID returns the challenge identifier this Memory was built under.
func (m *Memory) ChallengeID() challenge.ID { return m.chall }

// GetElement returns the element at global index g = c*L + i. g must be in
// [0, cfg.TotalElements()); out-of-range access panics, matching a plain
// slice index.
func (m *Memory) GetElement(g uint64) element.Element {
	c, i := m.split(g)
	return m.chunks[c][i]
}

func (m *Memory) split(g uint64) (chunk, pos uint64) {
	return g / m.cfg.L, g % m.cfg.L
}

// Build constructs the full element array for cfg and chall. Chunks are
// built independently and in parallel across a bounded worker pool; the
// result is deterministic regardless of how many workers ran.
func Build(ctx context.Context, cfg config.Config, chall challenge.ID) (*Memory, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("memory: invalid config: %w", err)
	}

	m := &Memory{
		cfg:    cfg,
		chall:  chall,
		chunks: make([][]element.Element, cfg.P),
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.NumCPU())
	for c := uint64(0); c < cfg.P; c++ {
		c := c
		g.Go(func() error {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}
			m.chunks[c] = buildChunk(cfg, chall, c)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("memory: build: %w", err)
	}
	return m, nil
}

// buildChunk runs the seed phase followed by the compression phase for one
// chunk (spec §4.2).
func buildChunk(cfg config.Config, chall challenge.ID, c uint64) []element.Element {
	chunk := make([]element.Element, cfg.L)

	// Seed phase: i in [0, n).
	for i := uint64(0); i < cfg.N; i++ {
		digest := hash.Sum(element.ByteSize, le8(i), le8(c), chall.Bytes())
		chunk[i] = element.FromLEBytes(digest)
	}

	// Compression phase: i in [n, L). evenBuf/oddBuf are reused across every
	// iteration rather than allocated fresh per-element, since this loop
	// runs L-n times per chunk across P chunks.
	antecedents := make([]element.Element, cfg.N)
	var evenBuf, oddBuf [element.ByteSize]byte
	for i := cfg.N; i < cfg.L; i++ {
		idx := antecedentIndices(cfg.N, i, chunk[i-1])
		for k, id := range idx {
			antecedents[k] = chunk[id]
		}
		chunk[i] = compress(antecedents, cfg.N, c*cfg.L+i, chall, evenBuf[:], oddBuf[:])
	}

	return chunk
}

// antecedentIndices computes idx[0..n) = phi_k(i, argon2Index) for the
// given position i within a chunk, using prev (chunk[i-1]) to derive the
// Argon2 seed (spec §4.2 step 2.a-2.c).
func antecedentIndices(n, i uint64, prev element.Element) []uint64 {
	prevBytes := prev.ToLEBytes()
	a := index.Argon2Index(prevBytes[:4], i)

	idx := make([]uint64, n)
	for k := uint64(0); k < n; k++ {
		// phi already reduces into [0, i); the spec's additional "mod L"
		// at this call site is a no-op here because i < L throughout the
		// compression phase.
		idx[k] = index.Phi(int(k), i, a)
	}
	return idx
}

// Compress implements the compression function Phi (spec §4.2 "Compression
// Phi"): it folds n antecedents plus the global index g and the challenge
// into one new Element. It is exported because the verifier must reproduce
// it from a proof's antecedent list without a full Memory.
func Compress(antecedents []element.Element, n, g uint64, chall challenge.ID) element.Element {
	var evenBuf, oddBuf [element.ByteSize]byte
	return compress(antecedents, n, g, chall, evenBuf[:], oddBuf[:])
}

// compress is Compress's buffer-reusing core: evenBuf and oddBuf must each
// be at least element.ByteSize long. buildChunk's compression-phase loop
// passes in the same two buffers on every iteration instead of allocating
// fresh ones per element.
func compress(antecedents []element.Element, n, g uint64, chall challenge.ID, evenBuf, oddBuf []byte) element.Element {
	var even, odd element.Element

	evenCount := (n + 1) / 2 // ceil(n/2)
	for k := uint64(0); k < evenCount; k++ {
		even.AddAssign(antecedents[2*k])
	}
	even.Lanes[0] ^= g

	oddCount := n / 2 // floor(n/2)
	for k := uint64(0); k < oddCount; k++ {
		odd.AddAssign(antecedents[2*k+1])
	}
	odd.XorAssignBytes(chall.Bytes())

	even.WriteLEBytes(evenBuf)
	odd.WriteLEBytes(oddBuf)
	digest := hash.Sum(element.ByteSize, evenBuf, oddBuf)
	return element.FromLEBytes(digest)
}

// TraceElement reconstructs the antecedent sequence that produced the
// element at global index g (spec §4.2 "Trace"): a single-element slice for
// a seed-phase position, or exactly n antecedents for a compression-phase
// position.
func (m *Memory) TraceElement(g uint64) []element.Element {
	c, i := m.split(g)
	if i < m.cfg.N {
		return []element.Element{m.chunks[c][i]}
	}

	idx := antecedentIndices(m.cfg.N, i, m.chunks[c][i-1])
	out := make([]element.Element, m.cfg.N)
	for k, id := range idx {
		out[k] = m.chunks[c][id]
	}
	return out
}

func le8(x uint64) []byte {
	buf := make([]byte, 8)
	binary.LittleEndian.PutUint64(buf, x)
	return buf
}
