// Copyright 2024 The Quarry Authors.
//
// Use of this software is governed by the Apache License, Version 2.0,
// included in the file LICENSE.

// Package props holds the immutable statistic value types produced and
// consumed by the estimators.
package props

import (
	"math"
	"strconv"

	"github.com/cockroachdb/errors"
)

// Stat is a single statistic value that is either known or unknown. The zero
// value is unknown.
//
// Stat replaces the IEEE NaN-as-unknown convention: NaN can never be stored
// in a Stat, so an arithmetic bug that produces NaN surfaces as an assertion
// failure instead of being silently treated as legitimate missing data.
// ±Inf remains a legal known value, used for unbounded range endpoints.
type Stat struct {
	value float64
	known bool
}

// MakeStat returns a known Stat. NaN input is a contract violation.
func MakeStat(v float64) Stat {
	if math.IsNaN(v) {
		panic(errors.AssertionFailedf("NaN cannot be a known statistic"))
	}
	return Stat{value: v, known: true}
}

// StatFromFloat is the lenient boundary constructor: NaN maps to unknown.
// It is meant for values arriving from external statistics sources, which
// still use NaN to mean missing.
func StatFromFloat(v float64) Stat {
	if math.IsNaN(v) {
		return Stat{}
	}
	return Stat{value: v, known: true}
}

// UnknownStat returns the unknown Stat.
func UnknownStat() Stat {
	return Stat{}
}

// Known returns true if the statistic has a value.
func (s Stat) Known() bool { return s.known }

// Unknown returns true if the statistic has no value.
func (s Stat) Unknown() bool { return !s.known }

// V returns the value. Calling V on an unknown Stat is a contract violation:
// callers must check Known first.
func (s Stat) V() float64 {
	if !s.known {
		panic(errors.AssertionFailedf("value of unknown statistic"))
	}
	return s.value
}

// OrElse returns the value, or def if the statistic is unknown.
func (s Stat) OrElse(def float64) float64 {
	if !s.known {
		return def
	}
	return s.value
}

func (s Stat) String() string {
	if !s.known {
		return "unknown"
	}
	return strconv.FormatFloat(s.value, 'g', 6, 64)
}
