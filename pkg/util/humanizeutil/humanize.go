// Copyright 2024 The Quarry Authors.
//
// Use of this software is governed by the Apache License, Version 2.0,
// included in the file LICENSE.

package humanizeutil

import (
	"math"

	"github.com/cockroachdb/redact"
	"github.com/dustin/go-humanize"
)

// Count formats a unitless integer value like a row count. It uses separating
// commas for large values (e.g. "1,000,000").
func Count(val uint64) redact.SafeString {
	if val > math.MaxInt64 {
		val = math.MaxInt64
	}
	return redact.SafeString(humanize.Comma(int64(val)))
}

// Countf is like Count but takes a float, rounding to the nearest integer.
// Fractional row estimates read better rounded.
func Countf(val float64) redact.SafeString {
	if math.IsNaN(val) || val < 0 {
		return "0"
	}
	return Count(uint64(math.Round(val)))
}
