// Package rng derives deterministic pseudo-random generators from a match seed.
//
// Every consumer that needs randomness (auction tie-breaks, bot decision
// providers, challenge selection) derives its own generator from the match
// seed, a purpose label, the round number, and optionally a personality.
// No generator is ever shared between consumers, so there is no coordination
// on a mutable RNG and no ordering sensitivity between draws.
//
// Two runs with the same match seed produce byte-identical value sequences
// from every derived generator.
package rng

import (
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"math/rand"
	"strings"
)

// Key builds the derivation key for a generator.
//
// Format: "{matchSeed}:{purpose}:{round}" with an optional ":{personality}"
// suffix. This format is shared by every deterministic consumer so that
// replays and bot decisions remain reproducible across processes.
func Key(matchSeed, purpose string, round int, personality ...string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s:%s:%d", matchSeed, purpose, round)
	for _, p := range personality {
		b.WriteByte(':')
		b.WriteString(p)
	}
	return b.String()
}

// State returns the 64-bit generator state for a derivation key.
// It is the first 8 bytes (big-endian) of the key's SHA-256 digest.
func State(key string) uint64 {
	sum := sha256.Sum256([]byte(key))
	return binary.BigEndian.Uint64(sum[:8])
}

// New derives a fresh generator for (matchSeed, purpose, round[, personality]).
//
// The returned generator is exclusively owned by the caller and is NOT safe
// for concurrent use. Derive per use site instead of sharing.
func New(matchSeed, purpose string, round int, personality ...string) *rand.Rand {
	state := State(Key(matchSeed, purpose, round, personality...))
	return rand.New(rand.NewSource(int64(state)))
}
