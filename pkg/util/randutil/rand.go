// Copyright 2024 The Quarry Authors.
//
// Use of this software is governed by the Apache License, Version 2.0,
// included in the file LICENSE.

package randutil

import (
	"math/rand"
	"os"
	"strconv"
	"testing"
)

// envSeed overrides the process-wide random seed when set, so that a failing
// randomized test can be replayed deterministically.
const envSeed = "QUARRY_RANDOM_SEED"

// NewPseudoRand returns an instance of math/rand.Rand seeded from a fresh
// random seed (or the QUARRY_RANDOM_SEED environment variable, if set), and
// its seed so that the caller can easily enable reproducible behavior by
// logging the seed on failure.
func NewPseudoRand() (*rand.Rand, int64) {
	seed := NewPseudoSeed()
	return rand.New(rand.NewSource(seed)), seed
}

// NewPseudoSeed generates a seed from crypto-free entropy sources, honoring
// the QUARRY_RANDOM_SEED override.
func NewPseudoSeed() int64 {
	if str, ok := os.LookupEnv(envSeed); ok {
		seed, err := strconv.ParseInt(str, 10, 64)
		if err != nil {
			panic("invalid " + envSeed + ": " + str)
		}
		return seed
	}
	return rand.Int63()
}

// NewTestRand returns an instance of math/rand.Rand seeded like NewPseudoRand
// and logs the seed through the testing.T so failures can be reproduced.
func NewTestRand(t testing.TB) (*rand.Rand, int64) {
	rng, seed := NewPseudoRand()
	t.Logf("random seed: %d", seed)
	return rng, seed
}
