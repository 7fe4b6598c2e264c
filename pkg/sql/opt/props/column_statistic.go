// Copyright 2024 The Quarry Authors.
//
// Use of this software is governed by the Apache License, Version 2.0,
// included in the file LICENSE.

package props

import (
	"bytes"
	"fmt"
	"math"
)

// ColumnStatistic is the statistical summary of a single column within a row
// set: how often it is NULL, how many distinct non-null values it takes, the
// interval its values fall in and how wide the values are. All fields are
// individually optional; a column absent from a statistics map is equivalent
// to a ColumnStatistic with every field unknown.
//
// ColumnStatistic is a value type and is treated as immutable: derivations
// copy it and set the fields that change.
type ColumnStatistic struct {
	// NullsFraction is the fraction of rows with a NULL value, in [0, 1].
	NullsFraction Stat

	// DistinctCount is the estimated number of distinct non-null values.
	// It is a float because derived counts are scaled fractionally.
	DistinctCount Stat

	// Low and High bound the column's values on the stats number line.
	// They are unknown for non-orderable types; ±Inf is a legal known bound.
	Low, High Stat

	// AvgSize is the average size of a value in bytes.
	AvgSize Stat
}

// UnknownColumnStatistic returns a ColumnStatistic with every field unknown.
func UnknownColumnStatistic() ColumnStatistic {
	return ColumnStatistic{}
}

// ZeroColumnStatistic returns the statistic of a column within an empty row
// set: no nulls, no distinct values, no bounds.
func ZeroColumnStatistic() ColumnStatistic {
	return ColumnStatistic{
		NullsFraction: MakeStat(0),
		DistinctCount: MakeStat(0),
		AvgSize:       MakeStat(0),
	}
}

// IsUnknown returns true if every field is unknown. Columns in this state
// carry no information and are pruned from statistics maps.
func (c ColumnStatistic) IsUnknown() bool {
	return c.NullsFraction.Unknown() && c.DistinctCount.Unknown() &&
		c.Low.Unknown() && c.High.Unknown() && c.AvgSize.Unknown()
}

// IsSingleValue returns true if the column provably holds at most one
// distinct non-null value.
func (c ColumnStatistic) IsSingleValue() bool {
	if c.Low.Unknown() || c.High.Unknown() || c.DistinctCount.Unknown() {
		return false
	}
	low, high := c.Low.V(), c.High.V()
	return low == high && !math.IsInf(low, 0) && c.DistinctCount.V() <= 1
}

// Range places the column's bounds and distinct count on the number line.
// Unknown bounds widen to ±Inf; the caller remembers which side was unknown.
func (c ColumnStatistic) Range() Range {
	return Range{
		Low:           c.Low.OrElse(math.Inf(-1)),
		High:          c.High.OrElse(math.Inf(1)),
		DistinctCount: c.DistinctCount,
	}
}

func (c ColumnStatistic) String() string {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "distinct=%s nulls=%s", c.DistinctCount, c.NullsFraction)
	if c.Low.Known() || c.High.Known() {
		fmt.Fprintf(&buf, " low=%s high=%s", c.Low, c.High)
	}
	if c.AvgSize.Known() {
		fmt.Fprintf(&buf, " avgsize=%s", c.AvgSize)
	}
	return buf.String()
}
