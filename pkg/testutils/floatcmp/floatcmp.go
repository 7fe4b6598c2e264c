// Copyright 2024 The Quarry Authors.
//
// Use of this software is governed by the Apache License, Version 2.0,
// included in the file LICENSE.

// Package floatcmp provides functions for determining float values to be
// equal if they are within a tolerance. It is designed to be used in tests.
package floatcmp

import (
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

const (
	// CloseFraction can be used to check that two floats are within a
	// fraction of each other. The value should be sufficient for the vast
	// majority of computations performed on 64-bit floats.
	CloseFraction float64 = 1e-14

	// CloseMargin can be used to check that two floats are within an absolute
	// distance of each other. It is the square of CloseFraction so it is only
	// used when comparing floats very close to zero, where a relative check
	// loses meaning.
	CloseMargin float64 = CloseFraction * CloseFraction
)

// EqualApprox reports whether expected and actual are deeply equal with the
// following modifications for float64 and float32 types:
//
//   - If both expected and actual are not NaN or infinite, they are equal if
//     they are within fraction of each other or within margin of each other.
//   - If both expected and actual are NaN, they are equal.
//
// It is intended to be used in tests when comparing either floats directly or
// structs containing float fields.
func EqualApprox(expected interface{}, actual interface{}, fraction float64, margin float64) bool {
	return cmp.Equal(expected, actual, cmpopts.EquateApprox(fraction, margin), cmpopts.EquateNaNs())
}

// EqualClose reports whether expected and actual are equal within CloseFraction
// or CloseMargin tolerances.
func EqualClose(expected float64, actual float64) bool {
	return EqualApprox(expected, actual, CloseFraction, CloseMargin)
}
