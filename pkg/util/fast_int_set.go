// Copyright 2024 The Quarry Authors.
//
// Use of this software is governed by the Apache License, Version 2.0,
// included in the file LICENSE.

package util

import (
	"bytes"
	"fmt"
	"math/bits"

	"golang.org/x/tools/container/intsets"
)

// FastIntSet keeps track of a set of integers. It is optimized for the case
// when the values are small, in which case the set is stored as a bitmap.
//
// The zero value is a valid empty set.
type FastIntSet struct {
	// small is a bitmap that stores values in [0, smallCutoff).
	small bitmap
	// large is only allocated if values are added to the set that are not in
	// the range [0, smallCutoff). Once allocated, it holds every element of
	// the set; small is kept in sync for values within its range.
	large *intsets.Sparse
}

// smallCutoff is the size of the small bitmap.
const smallCutoff = 128

// bitmap implements a bitmap of size smallCutoff.
type bitmap struct {
	// We don't use an array because that makes Go always keep the struct on
	// the stack (see https://github.com/golang/go/issues/24416).
	lo, hi uint64
}

// MakeFastIntSet returns a set initialized with the given values.
func MakeFastIntSet(vals ...int) FastIntSet {
	var res FastIntSet
	for _, v := range vals {
		res.Add(v)
	}
	return res
}

func (s *FastIntSet) toLarge() *intsets.Sparse {
	res := new(intsets.Sparse)
	if s.large != nil {
		res.Copy(s.large)
		return res
	}
	for i, ok := s.small.Next(0); ok; i, ok = s.small.Next(i + 1) {
		res.Insert(i)
	}
	return res
}

// Add adds a value to the set. No-op if the value is already in the set.
func (s *FastIntSet) Add(i int) {
	withinSmallBounds := i >= 0 && i < smallCutoff
	if withinSmallBounds {
		s.small.Set(i)
	}
	if !withinSmallBounds && s.large == nil {
		s.large = s.toLarge()
	}
	if s.large != nil {
		s.large.Insert(i)
	}
}

// AddRange adds values 'from' up to 'to' (inclusively) to the set.
// E.g. AddRange(1,5) adds the values 1, 2, 3, 4, 5 to the set.
// 'to' must be >= 'from'.
func (s *FastIntSet) AddRange(from, to int) {
	if to < from {
		panic("invalid range when adding range to FastIntSet")
	}
	if s.large == nil && from >= 0 && to < smallCutoff {
		s.small.SetRange(from, to)
	} else {
		for v := from; v <= to; v++ {
			s.Add(v)
		}
	}
}

// Remove removes a value from the set. No-op if the value is not in the set.
func (s *FastIntSet) Remove(i int) {
	if i >= 0 && i < smallCutoff {
		s.small.Unset(i)
	}
	if s.large != nil {
		s.large.Remove(i)
	}
}

// Contains returns true if the set contains the value.
func (s FastIntSet) Contains(i int) bool {
	if i >= 0 && i < smallCutoff {
		return s.small.IsSet(i)
	}
	if s.large != nil {
		return s.large.Has(i)
	}
	return false
}

// Empty returns true if the set is empty.
func (s FastIntSet) Empty() bool {
	return s.small == bitmap{} && (s.large == nil || s.large.IsEmpty())
}

// Len returns the number of the elements in the set.
func (s FastIntSet) Len() int {
	if s.large != nil {
		return s.large.Len()
	}
	return s.small.OnesCount()
}

// Next returns the first value in the set which is >= startVal. If there is
// no value, the second return value is false.
func (s FastIntSet) Next(startVal int) (int, bool) {
	if s.large != nil {
		res := s.large.LowerBound(startVal)
		return res, res != intsets.MaxInt
	}
	if startVal < 0 {
		startVal = 0
	}
	if startVal < smallCutoff {
		if nextVal, ok := s.small.Next(startVal); ok {
			return nextVal, true
		}
	}
	return intsets.MaxInt, false
}

// ForEach calls a function for each value in the set (in increasing order).
func (s FastIntSet) ForEach(f func(i int)) {
	if s.large != nil {
		for x := s.large.Min(); x != intsets.MaxInt; x = s.large.LowerBound(x + 1) {
			f(x)
		}
		return
	}
	for v := s.small.lo; v != 0; {
		i := bits.TrailingZeros64(v)
		f(i)
		v &^= 1 << uint(i)
	}
	for v := s.small.hi; v != 0; {
		i := bits.TrailingZeros64(v)
		f(64 + i)
		v &^= 1 << uint(i)
	}
}

// Ordered returns a slice with all the integers in the set, in increasing
// order.
func (s FastIntSet) Ordered() []int {
	if s.Empty() {
		return nil
	}
	result := make([]int, 0, s.Len())
	s.ForEach(func(i int) {
		result = append(result, i)
	})
	return result
}

// Copy returns a copy of s which can be modified independently.
func (s FastIntSet) Copy() FastIntSet {
	var c FastIntSet
	c.small = s.small
	if s.large != nil {
		c.large = new(intsets.Sparse)
		c.large.Copy(s.large)
	}
	return c
}

// CopyFrom sets the receiver to a copy of other, which can then be modified
// independently.
func (s *FastIntSet) CopyFrom(other FastIntSet) {
	s.small = other.small
	if other.large != nil {
		if s.large == nil {
			s.large = new(intsets.Sparse)
		}
		s.large.Copy(other.large)
	} else {
		s.large = nil
	}
}

// UnionWith adds all the elements from rhs to this set.
func (s *FastIntSet) UnionWith(rhs FastIntSet) {
	s.small.UnionWith(rhs.small)
	if s.large == nil && rhs.large == nil {
		// Fast path.
		return
	}
	if s.large == nil {
		s.large = s.toLarge()
	}
	if rhs.large == nil {
		for i, ok := rhs.small.Next(0); ok; i, ok = rhs.small.Next(i + 1) {
			s.large.Insert(i)
		}
	} else {
		s.large.UnionWith(rhs.large)
	}
}

// Union returns the union of s and rhs as a new set.
func (s FastIntSet) Union(rhs FastIntSet) FastIntSet {
	r := s.Copy()
	r.UnionWith(rhs)
	return r
}

// IntersectionWith removes any elements not in rhs from this set.
func (s *FastIntSet) IntersectionWith(rhs FastIntSet) {
	s.small.IntersectionWith(rhs.small)
	if rhs.large == nil {
		// All elements in the intersection are covered by small; the result
		// fits in small.
		s.large = nil
	} else if s.large != nil {
		s.large.IntersectionWith(rhs.large)
	}
}

// Intersection returns the intersection of s and rhs as a new set.
func (s FastIntSet) Intersection(rhs FastIntSet) FastIntSet {
	r := s.Copy()
	r.IntersectionWith(rhs)
	return r
}

// Intersects returns true if s has any elements in common with rhs.
func (s FastIntSet) Intersects(rhs FastIntSet) bool {
	if s.small.Intersects(rhs.small) {
		return true
	}
	if s.large == nil || rhs.large == nil {
		return false
	}
	return s.large.Intersects(rhs.large)
}

// DifferenceWith removes any elements in rhs from this set.
func (s *FastIntSet) DifferenceWith(rhs FastIntSet) {
	s.small.DifferenceWith(rhs.small)
	if s.large == nil {
		// Fast path.
		return
	}
	if rhs.large == nil {
		for i, ok := rhs.small.Next(0); ok; i, ok = rhs.small.Next(i + 1) {
			s.large.Remove(i)
		}
	} else {
		s.large.DifferenceWith(rhs.large)
	}
}

// Difference returns the elements of s that are not in rhs as a new set.
func (s FastIntSet) Difference(rhs FastIntSet) FastIntSet {
	r := s.Copy()
	r.DifferenceWith(rhs)
	return r
}

// Equals returns true if the two sets are identical.
func (s FastIntSet) Equals(rhs FastIntSet) bool {
	if s.small != rhs.small {
		return false
	}
	if s.large != nil && rhs.large != nil {
		return s.large.Equals(rhs.large)
	}
	// One of the sets is large and the other is not. They can still be equal
	// if the large set contains no values outside the small range.
	var excess bool
	if s.large != nil && !s.large.IsEmpty() {
		excess = s.large.Min() < 0 || s.large.Max() >= smallCutoff
	} else if rhs.large != nil && !rhs.large.IsEmpty() {
		excess = rhs.large.Min() < 0 || rhs.large.Max() >= smallCutoff
	}
	return !excess
}

// SubsetOf returns true if rhs contains all the elements in s.
func (s FastIntSet) SubsetOf(rhs FastIntSet) bool {
	if s.large == nil {
		if rhs.large == nil {
			return s.small.SubsetOf(rhs.small)
		}
		for i, ok := s.small.Next(0); ok; i, ok = s.small.Next(i + 1) {
			if !rhs.large.Has(i) {
				return false
			}
		}
		return true
	}
	if rhs.large != nil {
		return s.large.SubsetOf(rhs.large)
	}
	// s is large but rhs is not: s can only be a subset if it contains no
	// values outside the small range.
	if !s.large.IsEmpty() && (s.large.Min() < 0 || s.large.Max() >= smallCutoff) {
		return false
	}
	return s.small.SubsetOf(rhs.small)
}

// Shift generates a new set which contains elements i+delta for elements i in
// the original set.
func (s *FastIntSet) Shift(delta int) FastIntSet {
	var result FastIntSet
	s.ForEach(func(i int) {
		result.Add(i + delta)
	})
	return result
}

// SingleValue returns true if the set has exactly one element, and returns
// that element.
func (s FastIntSet) SingleValue() (int, bool) {
	if s.Len() != 1 {
		return 0, false
	}
	v, _ := s.Next(intsets.MinInt)
	return v, true
}

func (s FastIntSet) String() string {
	var buf bytes.Buffer
	buf.WriteByte('(')
	appendRange := func(start, end int) {
		if buf.Len() > 1 {
			buf.WriteByte(',')
		}
		if start == end {
			fmt.Fprintf(&buf, "%d", start)
		} else if start+1 == end {
			fmt.Fprintf(&buf, "%d,%d", start, end)
		} else {
			fmt.Fprintf(&buf, "%d-%d", start, end)
		}
	}
	rangeStart, rangeEnd := -1, -1
	s.ForEach(func(i int) {
		if i < 0 {
			// Negative values are printed one by one; a range of them would
			// be unreadable.
			appendRange(i, i)
			return
		}
		if rangeStart != -1 && rangeEnd == i-1 {
			rangeEnd = i
		} else {
			if rangeStart != -1 {
				appendRange(rangeStart, rangeEnd)
			}
			rangeStart, rangeEnd = i, i
		}
	})
	if rangeStart != -1 {
		appendRange(rangeStart, rangeEnd)
	}
	buf.WriteByte(')')
	return buf.String()
}

func (v bitmap) IsSet(i int) bool {
	w := v.lo
	if i >= 64 {
		w = v.hi
	}
	return w&(1<<uint64(i&63)) != 0
}

func (v *bitmap) Set(i int) {
	if i < 64 {
		v.lo |= 1 << uint64(i)
	} else {
		v.hi |= 1 << uint64(i&63)
	}
}

func (v *bitmap) Unset(i int) {
	if i < 64 {
		v.lo &^= 1 << uint64(i)
	} else {
		v.hi &^= 1 << uint64(i&63)
	}
}

// SetRange sets all values in [from, to]; both bounds must be within
// [0, smallCutoff).
func (v *bitmap) SetRange(from, to int) {
	mask := func(from, to int) uint64 {
		return (1<<uint64(to-from+1) - 1) << uint64(from)
	}
	switch {
	case to < 64:
		v.lo |= mask(from, to)
	case from >= 64:
		v.hi |= mask(from&63, to&63)
	default:
		v.lo |= mask(from, 63)
		v.hi |= mask(0, to&63)
	}
}

func (v *bitmap) UnionWith(other bitmap) {
	v.lo |= other.lo
	v.hi |= other.hi
}

func (v *bitmap) IntersectionWith(other bitmap) {
	v.lo &= other.lo
	v.hi &= other.hi
}

func (v bitmap) Intersects(other bitmap) bool {
	return (v.lo&other.lo)|(v.hi&other.hi) != 0
}

func (v *bitmap) DifferenceWith(other bitmap) {
	v.lo &^= other.lo
	v.hi &^= other.hi
}

func (v bitmap) SubsetOf(other bitmap) bool {
	return v.lo&other.lo == v.lo && v.hi&other.hi == v.hi
}

func (v bitmap) OnesCount() int {
	return bits.OnesCount64(v.lo) + bits.OnesCount64(v.hi)
}

// Next returns the next set value at or after startVal, which must be
// non-negative. Values of startVal at or beyond smallCutoff find nothing:
// the shift below is by 64 or more, which in Go yields zero.
func (v bitmap) Next(startVal int) (int, bool) {
	if startVal < 64 {
		if ntz := bits.TrailingZeros64(v.lo >> uint64(startVal)); ntz < 64 {
			return startVal + ntz, true
		}
		startVal = 64
	}
	if ntz := bits.TrailingZeros64(v.hi >> uint64(startVal-64)); ntz < 64 {
		return startVal + ntz, true
	}
	return -1, false
}
