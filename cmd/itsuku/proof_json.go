package main

import (
	"encoding/hex"
	"fmt"

	"github.com/go-itsuku/itsuku/config"
	"github.com/go-itsuku/itsuku/pkg/challenge"
	"github.com/go-itsuku/itsuku/pkg/element"
	"github.com/go-itsuku/itsuku/pkg/proof"
)

// proofJSON is the machine-parseable rendering of a Proof (spec §6 "Proof
// wire/record layout"): five config integers, a hex challenge, the nonce,
// and the two proof maps with their keys and byte values hex-encoded so
// the result round-trips cleanly through encoding/json.
type proofJSON struct {
	Config          configJSON          `json:"config"`
	ChallengeID     string              `json:"challenge_id"`
	Nonce           uint64              `json:"nonce"`
	LeafAntecedents map[string][]string `json:"leaf_antecedents"`
	TreeOpening     map[string]string   `json:"tree_opening"`
}

type configJSON struct {
	L            uint64 `json:"l"`
	P            uint64 `json:"p"`
	N            uint64 `json:"n"`
	D            uint64 `json:"d"`
	SearchLength uint64 `json:"search_length"`
}

func toProofJSON(p *proof.Proof) *proofJSON {
	pj := &proofJSON{
		Config: configJSON{
			L: p.Config.L, P: p.Config.P, N: p.Config.N,
			D: p.Config.D, SearchLength: p.Config.SearchLength,
		},
		ChallengeID:     hex.EncodeToString(p.ChallengeID.Bytes()),
		Nonce:           p.Nonce,
		LeafAntecedents: make(map[string][]string, len(p.LeafAntecedents)),
		TreeOpening:     make(map[string]string, len(p.TreeOpening)),
	}

	for leaf, ants := range p.LeafAntecedents {
		key := fmt.Sprintf("%d", leaf)
		encoded := make([]string, len(ants))
		for i, a := range ants {
			b := a.ToLEBytes()
			encoded[i] = hex.EncodeToString(b[:])
		}
		pj.LeafAntecedents[key] = encoded
	}

	for node, h := range p.TreeOpening {
		pj.TreeOpening[fmt.Sprintf("%d", node)] = hex.EncodeToString(h)
	}

	return pj
}

func (pj *proofJSON) toProof() (*proof.Proof, error) {
	challBytes, err := hex.DecodeString(pj.ChallengeID)
	if err != nil {
		return nil, fmt.Errorf("decode challenge_id: %w", err)
	}

	p := proof.New(config.Config{
		L: pj.Config.L, P: pj.Config.P, N: pj.Config.N,
		D: pj.Config.D, SearchLength: pj.Config.SearchLength,
	}, challenge.New(challBytes), pj.Nonce)

	for key, encoded := range pj.LeafAntecedents {
		var leaf uint64
		if _, err := fmt.Sscanf(key, "%d", &leaf); err != nil {
			return nil, fmt.Errorf("parse leaf index %q: %w", key, err)
		}
		ants := make([]element.Element, len(encoded))
		for i, hexStr := range encoded {
			b, err := hex.DecodeString(hexStr)
			if err != nil {
				return nil, fmt.Errorf("decode antecedent for leaf %d: %w", leaf, err)
			}
			ants[i] = element.FromLEBytes(b)
		}
		p.LeafAntecedents[leaf] = ants
	}

	for key, hexStr := range pj.TreeOpening {
		var node uint64
		if _, err := fmt.Sscanf(key, "%d", &node); err != nil {
			return nil, fmt.Errorf("parse node index %q: %w", key, err)
		}
		b, err := hex.DecodeString(hexStr)
		if err != nil {
			return nil, fmt.Errorf("decode opening for node %d: %w", node, err)
		}
		p.TreeOpening[node] = b
	}

	return p, nil
}
