// Copyright 2024 The Quarry Authors.
//
// Use of this software is governed by the Apache License, Version 2.0,
// included in the file LICENSE.

package props

import "fmt"

// epsilon is the minimum value Selectivity can hold, since the row count
// estimates it scales must not collapse to zero through repeated
// multiplication of small fractions.
const epsilon = 1e-10

// Selectivity is a value is within the range of [epsilon, 1.0] representing
// the estimated fraction of rows that pass a predicate. A separate type
// exists so that selectivities cannot be mixed up with other floats and so
// that every construction site goes through the range clamp.
type Selectivity struct {
	selectivity float64
}

// OneSelectivity is a Selectivity with value 1.0.
var OneSelectivity = MakeSelectivity(1.0)

// ZeroSelectivity is used when a predicate provably filters every row. It is
// exempt from the epsilon floor, which only guards estimated fractions
// against collapsing to zero; a contradiction is not an estimate.
var ZeroSelectivity = Selectivity{0}

// MakeSelectivity initializes and validates a float64 to ensure it is in a
// valid range.
func MakeSelectivity(sel float64) Selectivity {
	return Selectivity{selectivityInRange(sel)}
}

// MakeSelectivityFromFraction calculates selectivity as a fraction of a and b
// if a is less than b and returns OneSelectivity otherwise. A zero
// denominator yields OneSelectivity rather than a division by zero.
func MakeSelectivityFromFraction(a, b float64) Selectivity {
	if a < b && b > 0 {
		return MakeSelectivity(a / b)
	}
	return OneSelectivity
}

// AsFloat returns the private selectivity field.
func (s Selectivity) AsFloat() float64 {
	return s.selectivity
}

// Multiply is a multiplication between two selectivities that clamps the
// result at epsilon.
func (s *Selectivity) Multiply(other Selectivity) {
	s.selectivity = selectivityInRange(s.selectivity * other.selectivity)
}

// Add is an addition between two selectivities that clamps the result at 1.0.
func (s *Selectivity) Add(other Selectivity) {
	s.selectivity = selectivityInRange(s.selectivity + other.selectivity)
}

// MinSelectivity returns the smaller value of two selectivities.
func MinSelectivity(a, b Selectivity) Selectivity {
	if a.selectivity < b.selectivity {
		return a
	}
	return b
}

// selectivityInRange performs the range check, if the selectivity falls
// outside of the range, this method will return the appropriate min/max value.
func selectivityInRange(sel float64) float64 {
	switch {
	case sel < epsilon:
		return epsilon
	case sel > 1.0:
		return 1.0
	default:
		return sel
	}
}

func (s Selectivity) String() string {
	return fmt.Sprintf("%g", s.selectivity)
}
