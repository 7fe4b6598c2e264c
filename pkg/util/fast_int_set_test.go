// Copyright 2024 The Quarry Authors.
//
// Use of this software is governed by the Apache License, Version 2.0,
// included in the file LICENSE.

package util

import (
	"fmt"
	"testing"

	"github.com/quarrydb/quarry/pkg/util/randutil"
	"github.com/stretchr/testify/require"
)

func TestFastIntSetBasics(t *testing.T) {
	var s FastIntSet
	require.True(t, s.Empty())
	require.Equal(t, 0, s.Len())
	require.False(t, s.Contains(0))
	require.Nil(t, s.Ordered())

	s.Add(3)
	s.Add(127)
	s.Add(3)
	require.False(t, s.Empty())
	require.Equal(t, 2, s.Len())
	require.True(t, s.Contains(3))
	require.True(t, s.Contains(127))
	require.False(t, s.Contains(4))
	require.Equal(t, []int{3, 127}, s.Ordered())

	s.Remove(3)
	require.Equal(t, []int{127}, s.Ordered())
	s.Remove(127)
	require.True(t, s.Empty())
}

// Values at or beyond smallCutoff, and negative values, switch the set to
// its sparse representation. The set must behave identically on both sides
// of the switch.
func TestFastIntSetLargeValues(t *testing.T) {
	s := MakeFastIntSet(5, 100)
	s.Add(smallCutoff)
	s.Add(-2)
	s.Add(100000)
	require.Equal(t, []int{-2, 5, 100, smallCutoff, 100000}, s.Ordered())
	require.True(t, s.Contains(-2))
	require.True(t, s.Contains(100))
	require.False(t, s.Contains(0))

	s.Remove(100000)
	s.Remove(-2)
	s.Remove(smallCutoff)
	require.Equal(t, []int{5, 100}, s.Ordered())

	// A set that grew large and shrank back compares equal to one that never
	// left the bitmap.
	require.True(t, s.Equals(MakeFastIntSet(5, 100)))
	require.True(t, MakeFastIntSet(5, 100).Equals(s))
}

func TestFastIntSetAddRange(t *testing.T) {
	var s FastIntSet
	s.AddRange(1, 5)
	require.Equal(t, []int{1, 2, 3, 4, 5}, s.Ordered())

	// Spanning the lo/hi word boundary and the small/large boundary.
	var span FastIntSet
	span.AddRange(62, 66)
	require.Equal(t, []int{62, 63, 64, 65, 66}, span.Ordered())
	span.AddRange(smallCutoff-1, smallCutoff+1)
	require.Equal(t, []int{62, 63, 64, 65, 66, 127, 128, 129}, span.Ordered())

	require.Panics(t, func() { s.AddRange(5, 1) })
}

// Converting to the sparse representation iterates the bitmap past its last
// value. With the top bit (127) set that iteration reaches startVal 128,
// which must terminate rather than wrap around the hi-word shift.
func TestFastIntSetGrowWithTopBitSet(t *testing.T) {
	s := MakeFastIntSet(0, 127)
	s.Add(smallCutoff)
	require.Equal(t, []int{0, 127, 128}, s.Ordered())

	var r FastIntSet
	r.AddRange(smallCutoff-1, smallCutoff+1)
	require.Equal(t, []int{127, 128, 129}, r.Ordered())

	_, ok := MakeFastIntSet(127).Next(smallCutoff)
	require.False(t, ok)
}

func TestFastIntSetNext(t *testing.T) {
	s := MakeFastIntSet(2, 70, 140)
	testCases := []struct {
		start    int
		expected int
		ok       bool
	}{
		{-10, 2, true},
		{2, 2, true},
		{3, 70, true},
		{70, 70, true},
		{71, 140, true},
		{141, 0, false},
	}
	for _, tc := range testCases {
		v, ok := s.Next(tc.start)
		require.Equal(t, tc.ok, ok, "Next(%d)", tc.start)
		if ok {
			require.Equal(t, tc.expected, v, "Next(%d)", tc.start)
		}
	}
}

func TestFastIntSetCopyIndependence(t *testing.T) {
	orig := MakeFastIntSet(1, 2, 500)
	c := orig.Copy()
	c.Add(9)
	c.Remove(500)
	require.Equal(t, []int{1, 2, 500}, orig.Ordered())
	require.Equal(t, []int{1, 2, 9}, c.Ordered())

	var target FastIntSet
	target.Add(99)
	target.CopyFrom(orig)
	target.Add(7)
	require.Equal(t, []int{1, 2, 500}, orig.Ordered())
	require.Equal(t, []int{1, 2, 7, 500}, target.Ordered())
}

func TestFastIntSetSetOperations(t *testing.T) {
	a := MakeFastIntSet(1, 2, 3)
	b := MakeFastIntSet(3, 4, 200)

	require.Equal(t, []int{1, 2, 3, 4, 200}, a.Union(b).Ordered())
	require.Equal(t, []int{3}, a.Intersection(b).Ordered())
	require.Equal(t, []int{1, 2}, a.Difference(b).Ordered())
	require.Equal(t, []int{4, 200}, b.Difference(a).Ordered())
	require.True(t, a.Intersects(b))
	require.False(t, a.Intersects(MakeFastIntSet(4, 5)))

	require.True(t, MakeFastIntSet(1, 3).SubsetOf(a))
	require.False(t, a.SubsetOf(b))
	require.True(t, MakeFastIntSet().SubsetOf(a))
	// Mixed representations on both sides.
	require.True(t, MakeFastIntSet(3, 200).SubsetOf(b))
	require.False(t, b.SubsetOf(MakeFastIntSet(3, 4)))
}

func TestFastIntSetShift(t *testing.T) {
	s := MakeFastIntSet(0, 1, 64)
	require.Equal(t, []int{10, 11, 74}, s.Shift(10).Ordered())
	require.Equal(t, []int{-5, -4, 59}, s.Shift(-5).Ordered())
	// Shifting past the bitmap range and back is lossless.
	shifted := s.Shift(1000)
	require.Equal(t, s.Ordered(), shifted.Shift(-1000).Ordered())
}

func TestFastIntSetSingleValue(t *testing.T) {
	_, ok := MakeFastIntSet().SingleValue()
	require.False(t, ok)
	v, ok := MakeFastIntSet(42).SingleValue()
	require.True(t, ok)
	require.Equal(t, 42, v)
	_, ok = MakeFastIntSet(1, 2).SingleValue()
	require.False(t, ok)
}

func TestFastIntSetString(t *testing.T) {
	testCases := []struct {
		vals     []int
		expected string
	}{
		{nil, "()"},
		{[]int{1}, "(1)"},
		{[]int{1, 2}, "(1,2)"},
		{[]int{1, 2, 3}, "(1-3)"},
		{[]int{1, 2, 3, 5, 9, 10, 11}, "(1-3,5,9-11)"},
		{[]int{-3, -1, 2}, "(-3,-1,2)"},
	}
	for _, tc := range testCases {
		require.Equal(t, tc.expected, MakeFastIntSet(tc.vals...).String())
	}
}

// TestFastIntSetAgainstOracle cross-checks randomized operation sequences
// against a map-backed set, in two value regimes: one that stays inside the
// bitmap and one that forces the sparse representation.
func TestFastIntSetAgainstOracle(t *testing.T) {
	rng, _ := randutil.NewTestRand(t)
	regimes := []struct {
		name     string
		min, max int
	}{
		{"small", 0, smallCutoff - 1},
		{"mixed", -10, 10 * smallCutoff},
	}
	for _, regime := range regimes {
		t.Run(regime.name, func(t *testing.T) {
			var s FastIntSet
			oracle := map[int]bool{}
			randVal := func() int {
				return regime.min + rng.Intn(regime.max-regime.min+1)
			}
			check := func() {
				require.Equal(t, len(oracle), s.Len())
				prev := regime.min - 1
				s.ForEach(func(i int) {
					require.True(t, oracle[i], "unexpected element %d", i)
					require.Greater(t, i, prev, "ForEach out of order")
					prev = i
				})
			}
			for step := 0; step < 1000; step++ {
				v := randVal()
				switch rng.Intn(4) {
				case 0, 1:
					s.Add(v)
					oracle[v] = true
				case 2:
					s.Remove(v)
					delete(oracle, v)
				case 3:
					require.Equal(t, oracle[v], s.Contains(v),
						fmt.Sprintf("Contains(%d)", v))
				}
				check()
			}

			// The union with an independently built set matches the merged
			// oracles.
			var other FastIntSet
			otherOracle := map[int]bool{}
			for i := 0; i < 100; i++ {
				v := randVal()
				other.Add(v)
				otherOracle[v] = true
			}
			union := s.Union(other)
			intersection := s.Intersection(other)
			for v := range otherOracle {
				require.True(t, union.Contains(v))
				require.Equal(t, oracle[v], intersection.Contains(v))
			}
			require.True(t, s.SubsetOf(union))
			require.True(t, intersection.SubsetOf(s))
		})
	}
}
