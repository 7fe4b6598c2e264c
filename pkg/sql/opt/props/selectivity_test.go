// Copyright 2024 The Quarry Authors.
//
// Use of this software is governed by the Apache License, Version 2.0,
// included in the file LICENSE.

package props

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSelectivity(t *testing.T) {
	s := MakeSelectivity(0.5)
	require.Equal(t, 0.5, s.AsFloat())

	// Values clamp into (0, 1]: zero input becomes epsilon so that chained
	// multiplications stay non-degenerate.
	require.Equal(t, epsilon, MakeSelectivity(0).AsFloat())
	require.Equal(t, epsilon, MakeSelectivity(-1).AsFloat())
	require.Equal(t, 1.0, MakeSelectivity(2).AsFloat())

	// ZeroSelectivity bypasses the floor: contradictions keep exact zero.
	require.Equal(t, 0.0, ZeroSelectivity.AsFloat())
	require.Equal(t, 1.0, OneSelectivity.AsFloat())
}

func TestSelectivityFromFraction(t *testing.T) {
	require.Equal(t, 0.25, MakeSelectivityFromFraction(1, 4).AsFloat())
	// Degenerate denominators fall back to full selectivity.
	require.Equal(t, 1.0, MakeSelectivityFromFraction(1, 0).AsFloat())
	require.Equal(t, 1.0, MakeSelectivityFromFraction(5, 4).AsFloat())
}

func TestSelectivityArithmetic(t *testing.T) {
	s := MakeSelectivity(0.5)
	s.Multiply(MakeSelectivity(0.5))
	require.Equal(t, 0.25, s.AsFloat())

	s.Add(MakeSelectivity(0.5))
	require.Equal(t, 0.75, s.AsFloat())

	// Multiplication never underflows to zero.
	tiny := MakeSelectivity(epsilon)
	tiny.Multiply(MakeSelectivity(epsilon))
	require.Equal(t, epsilon, tiny.AsFloat())

	require.Equal(t, 0.25, MinSelectivity(MakeSelectivity(0.25), MakeSelectivity(0.75)).AsFloat())
}
