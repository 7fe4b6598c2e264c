// Copyright 2024 The Quarry Authors.
//
// Use of this software is governed by the Apache License, Version 2.0,
// included in the file LICENSE.

package props

import (
	"fmt"
	"math"

	"github.com/cockroachdb/errors"
)

const (
	// infiniteToFiniteOverlapFactor is the fraction of an unbounded range
	// assumed to be captured by a finite sub-range, when no distinct counts
	// are available to do better.
	infiniteToFiniteOverlapFactor = 0.25

	// infiniteToInfiniteOverlapFactor is the fraction of an unbounded range
	// assumed to be captured by another unbounded range.
	infiniteToInfiniteOverlapFactor = 0.5
)

// Range is a closed interval on the stats number line, together with the
// estimated count of distinct values within it. Endpoints may be ±Inf for
// unbounded ranges; NaN is never stored. An unknown endpoint enters as ±Inf,
// with the unknown-ness remembered by the caller.
type Range struct {
	// Low and High are the interval endpoints, inclusive.
	Low, High float64

	// DistinctCount estimates the distinct values in [Low, High].
	DistinctCount Stat
}

// MakeRange constructs a Range. NaN endpoints are a contract violation.
func MakeRange(low, high float64, distinct Stat) Range {
	if math.IsNaN(low) || math.IsNaN(high) {
		panic(errors.AssertionFailedf("NaN range endpoint"))
	}
	return Range{Low: low, High: high, DistinctCount: distinct}
}

// EmptyRange returns the canonical empty range.
func EmptyRange() Range {
	return Range{Low: math.Inf(1), High: math.Inf(-1), DistinctCount: MakeStat(0)}
}

// UnboundedRange returns the range covering the whole number line.
func UnboundedRange(distinct Stat) Range {
	return Range{Low: math.Inf(-1), High: math.Inf(1), DistinctCount: distinct}
}

// Empty returns true if the range contains no values.
func (r Range) Empty() bool {
	return r.Low > r.High
}

// Length returns the extent of the range, 0 for empty or degenerate ranges
// and +Inf for unbounded ones.
func (r Range) Length() float64 {
	if r.Empty() {
		return 0
	}
	l := r.High - r.Low
	if math.IsNaN(l) {
		// Both endpoints at the same infinity.
		return 0
	}
	return l
}

// IsSingleValue returns true if the range contains exactly one point.
func (r Range) IsSingleValue() bool {
	return !r.Empty() && r.Low == r.High && !math.IsInf(r.Low, 0)
}

// Intersect returns the intersection of the two ranges. The distinct count of
// the result is scaled by the overlap fractions, taking the most pessimistic
// of both directions, and never exceeds either input's count.
func (r Range) Intersect(other Range) Range {
	low := math.Max(r.Low, other.Low)
	high := math.Min(r.High, other.High)
	if low > high {
		return EmptyRange()
	}
	res := Range{Low: low, High: high}
	res.DistinctCount = overlappingDistinct(r, other, res)
	return res
}

func overlappingDistinct(a, b, intersection Range) Stat {
	known := false
	min := math.Inf(1)
	consider := func(v float64) {
		if v < min {
			min = v
		}
		known = true
	}
	if a.DistinctCount.Known() {
		consider(a.DistinctCount.V())
		consider(a.DistinctCount.V() * a.OverlapFraction(intersection))
	}
	if b.DistinctCount.Known() {
		consider(b.DistinctCount.V())
		consider(b.DistinctCount.V() * b.OverlapFraction(intersection))
	}
	if !known {
		return UnknownStat()
	}
	return MakeStat(min)
}

// OverlapFraction returns the fraction of this range captured by its
// intersection with other, the linear-interpolation proxy for selectivity
// under a uniform-distribution assumption:
//
//   - either range empty, or no intersection: 0
//   - both finite: intersection length over this length, where a
//     single-point side counts as fully captured and a single-point
//     intersection of a wider side picks one value out of the side's
//     distinct count
//   - unbounded intersection: the ratio of distinct counts when both are
//     known, a fixed heuristic factor otherwise
//   - this unbounded, intersection finite: a fixed heuristic factor
func (r Range) OverlapFraction(other Range) float64 {
	if r.Empty() || other.Empty() {
		return 0
	}
	low := math.Max(r.Low, other.Low)
	high := math.Min(r.High, other.High)
	if low > high {
		return 0
	}
	intersectLen := high - low
	if math.IsNaN(intersectLen) {
		// Intersection degenerate at infinity.
		return 0
	}
	if math.IsInf(intersectLen, 1) {
		if r.DistinctCount.Known() && other.DistinctCount.Known() {
			return math.Min(other.DistinctCount.V()/math.Max(r.DistinctCount.V(), 1), 1)
		}
		return infiniteToInfiniteOverlapFactor
	}
	if math.IsInf(r.Length(), 1) {
		return infiniteToFiniteOverlapFactor
	}
	if r.Length() == 0 {
		// This range is a point contained in other.
		return 1
	}
	if intersectLen == 0 {
		// Other pins this range to a single point: one value out of this
		// range's distinct values.
		return 1 / math.Max(r.DistinctCount.OrElse(1), 1)
	}
	return intersectLen / r.Length()
}

// AddSumDistinct unions the ranges, summing the distinct counts. Used when
// combining estimates of disjoint predicates (IN lists, OR terms before
// overlap subtraction).
func (r Range) AddSumDistinct(other Range) Range {
	var distinct Stat
	if r.DistinctCount.Known() && other.DistinctCount.Known() {
		distinct = MakeStat(r.DistinctCount.V() + other.DistinctCount.V())
	}
	return r.union(other, distinct)
}

// AddMaxDistinct unions the ranges, keeping the larger distinct count.
func (r Range) AddMaxDistinct(other Range) Range {
	var distinct Stat
	if r.DistinctCount.Known() && other.DistinctCount.Known() {
		distinct = MakeStat(math.Max(r.DistinctCount.V(), other.DistinctCount.V()))
	}
	return r.union(other, distinct)
}

// AddCollapseDistinct unions the ranges, counting the overlapping part of the
// other range's distinct values only once.
func (r Range) AddCollapseDistinct(other Range) Range {
	var distinct Stat
	if r.DistinctCount.Known() && other.DistinctCount.Known() {
		overlap := other.OverlapFraction(r)
		distinct = MakeStat(r.DistinctCount.V() + (1-overlap)*other.DistinctCount.V())
	}
	return r.union(other, distinct)
}

func (r Range) union(other Range, distinct Stat) Range {
	if r.Empty() {
		other.DistinctCount = distinct
		return other
	}
	if other.Empty() {
		r.DistinctCount = distinct
		return r
	}
	return Range{
		Low:           math.Min(r.Low, other.Low),
		High:          math.Max(r.High, other.High),
		DistinctCount: distinct,
	}
}

func (r Range) String() string {
	if r.Empty() {
		return "[empty]"
	}
	return fmt.Sprintf("[%g - %g, distinct=%s]", r.Low, r.High, r.DistinctCount)
}
