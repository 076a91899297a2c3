// Command itsuku drives the Itsuku memory-hard proof-of-work scheme from
// the command line: build the memory array and Merkle tree for a challenge,
// search for a nonce meeting a difficulty target, verify a proof, or
// benchmark the search loop. This driver, its flag parsing, and its
// diagnostics are explicitly outside the scheme's core (see the scheme's
// own scope notes) — everything here is a thin shell around pkg/prover and
// pkg/verifier.
package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/urfave/cli/v2"

	"github.com/go-itsuku/itsuku/config"
	"github.com/go-itsuku/itsuku/pkg/challenge"
	"github.com/go-itsuku/itsuku/pkg/memory"
	"github.com/go-itsuku/itsuku/pkg/merkletree"
	"github.com/go-itsuku/itsuku/pkg/prover"
	"github.com/go-itsuku/itsuku/pkg/verifier"
)

var log zerolog.Logger

func main() {
	log = newLogger()

	app := &cli.App{
		Name:  "itsuku",
		Usage: "Itsuku memory-hard proof-of-work: search for and verify proofs",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "json-logs", Usage: "emit structured JSON diagnostics instead of console output"},
		},
		Before: func(c *cli.Context) error {
			if c.Bool("json-logs") {
				log = zerolog.New(os.Stderr).With().Timestamp().Logger()
			}
			return nil
		},
		Commands: []*cli.Command{
			searchCommand(),
			verifyCommand(),
			benchCommand(),
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Error().Err(err).Msg("itsuku: command failed")
		os.Exit(1)
	}
}

func newLogger() zerolog.Logger {
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).
		With().Timestamp().Logger()
}

func configFlags() []cli.Flag {
	def := config.DefaultConfig()
	return []cli.Flag{
		&cli.Uint64Flag{Name: "l", Usage: "chunk size (elements)", Value: def.L},
		&cli.Uint64Flag{Name: "p", Usage: "chunk count", Value: def.P},
		&cli.Uint64Flag{Name: "n", Usage: "antecedent count", Value: def.N},
		&cli.Uint64Flag{Name: "d", Usage: "required leading zero bits", Value: def.D},
		&cli.Uint64Flag{Name: "search-length", Usage: "leaves selected per proof", Value: def.SearchLength},
		&cli.StringFlag{Name: "challenge", Usage: "hex-encoded challenge id (random if omitted)"},
		&cli.IntFlag{Name: "workers", Usage: "parallel search workers (0 = sequential)", Value: 0},
	}
}

func configFromFlags(c *cli.Context) config.Config {
	return config.Config{
		L:            c.Uint64("l"),
		P:            c.Uint64("p"),
		N:            c.Uint64("n"),
		D:            c.Uint64("d"),
		SearchLength: c.Uint64("search-length"),
	}
}

func challengeFromFlags(c *cli.Context) (challenge.ID, error) {
	if hexChall := c.String("challenge"); hexChall != "" {
		b, err := hex.DecodeString(hexChall)
		if err != nil {
			return challenge.ID{}, fmt.Errorf("itsuku: decode --challenge: %w", err)
		}
		return challenge.New(b), nil
	}

	b := make([]byte, 64)
	if _, err := rand.Read(b); err != nil {
		return challenge.ID{}, fmt.Errorf("itsuku: generate random challenge: %w", err)
	}
	return challenge.New(b), nil
}

func searchCommand() *cli.Command {
	return &cli.Command{
		Name:  "search",
		Usage: "build memory, search for a solving nonce, and print the proof as JSON",
		Flags: configFlags(),
		Action: func(c *cli.Context) error {
			cfg := configFromFlags(c)
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("itsuku: invalid config: %w", err)
			}
			chall, err := challengeFromFlags(c)
			if err != nil {
				return err
			}

			log.Info().
				Uint64("l", cfg.L).Uint64("p", cfg.P).Uint64("n", cfg.N).
				Uint64("d", cfg.D).Uint64("search_length", cfg.SearchLength).
				Str("challenge", hex.EncodeToString(chall.Bytes())).
				Msg("building memory and merkle tree")

			ctx := c.Context
			start := time.Now()
			mem, err := memory.Build(ctx, cfg, chall)
			if err != nil {
				return fmt.Errorf("itsuku: build memory: %w", err)
			}
			tree, err := merkletree.Build(ctx, cfg, mem, chall)
			if err != nil {
				return fmt.Errorf("itsuku: build merkle tree: %w", err)
			}
			log.Info().Dur("elapsed", time.Since(start)).Msg("memory and tree built")

			var p *proofJSON
			searchStart := time.Now()
			if workers := c.Int("workers"); workers > 0 {
				pr, err := prover.SearchParallel(ctx, cfg, chall, mem, tree, workers)
				if err != nil {
					return fmt.Errorf("itsuku: search: %w", err)
				}
				p = toProofJSON(pr)
			} else {
				pr, err := prover.Search(ctx, cfg, chall, mem, tree)
				if err != nil {
					return fmt.Errorf("itsuku: search: %w", err)
				}
				p = toProofJSON(pr)
			}
			log.Info().Dur("elapsed", time.Since(searchStart)).Uint64("nonce", p.Nonce).Msg("solution found")

			return json.NewEncoder(os.Stdout).Encode(p)
		},
	}
}

func verifyCommand() *cli.Command {
	return &cli.Command{
		Name:  "verify",
		Usage: "read a proof as JSON from standard input and verify it",
		Action: func(c *cli.Context) error {
			var pj proofJSON
			if err := json.NewDecoder(os.Stdin).Decode(&pj); err != nil {
				return fmt.Errorf("itsuku: decode proof: %w", err)
			}
			p, err := pj.toProof()
			if err != nil {
				return fmt.Errorf("itsuku: malformed proof: %w", err)
			}

			if err := verifier.Verify(c.Context, p); err != nil {
				log.Error().Err(err).Msg("proof rejected")
				return err
			}

			log.Info().Msg("proof accepted")
			fmt.Fprintln(os.Stdout, "OK")
			return nil
		},
	}
}

func benchCommand() *cli.Command {
	return &cli.Command{
		Name:  "bench",
		Usage: "time a single search over the given config and challenge",
		Flags: configFlags(),
		Action: func(c *cli.Context) error {
			cfg := configFromFlags(c)
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("itsuku: invalid config: %w", err)
			}
			chall, err := challengeFromFlags(c)
			if err != nil {
				return err
			}

			ctx := context.Background()
			buildStart := time.Now()
			mem, err := memory.Build(ctx, cfg, chall)
			if err != nil {
				return fmt.Errorf("itsuku: build memory: %w", err)
			}
			tree, err := merkletree.Build(ctx, cfg, mem, chall)
			if err != nil {
				return fmt.Errorf("itsuku: build merkle tree: %w", err)
			}
			buildElapsed := time.Since(buildStart)

			searchStart := time.Now()
			if _, err := prover.Search(ctx, cfg, chall, mem, tree); err != nil {
				return fmt.Errorf("itsuku: search: %w", err)
			}
			searchElapsed := time.Since(searchStart)

			log.Info().
				Dur("build", buildElapsed).
				Dur("search", searchElapsed).
				Uint64("total_elements", cfg.TotalElements()).
				Msg("bench complete")
			return nil
		},
	}
}
