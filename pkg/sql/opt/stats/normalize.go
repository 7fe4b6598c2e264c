// Copyright 2024 The Quarry Authors.
//
// Use of this software is governed by the Apache License, Version 2.0,
// included in the file LICENSE.

package stats

import (
	"math"

	"github.com/cockroachdb/errors"
	"github.com/quarrydb/quarry/pkg/sql/opt"
	"github.com/quarrydb/quarry/pkg/sql/opt/props"
	"github.com/quarrydb/quarry/pkg/sql/types"
	"github.com/quarrydb/quarry/pkg/util/buildutil"
)

// normalizeStats repairs statistically impossible estimates before they are
// returned to a caller. It is applied at the exit of every estimation step,
// so every Statistics observed outside this package satisfies:
//
//   - RowCount is known, finite and non-negative (otherwise the whole
//     estimate degrades to unknown, since per-column statistics are
//     meaningless without a row-count denominator);
//   - each NullsFraction is within [0, 1];
//   - each DistinctCount does not exceed the non-null row count, nor the
//     count of representable values for discrete column types;
//   - bounds are ordered;
//   - only columns known to the metadata appear.
func normalizeStats(md *opt.Metadata, stats props.Statistics) props.Statistics {
	if stats.RowCount.Unknown() {
		return props.Unknown()
	}
	rowCount := stats.RowCount.V()
	if rowCount < 0 || math.IsInf(rowCount, 0) {
		return props.Unknown()
	}
	b := props.MakeStatsBuilder()
	b.SetRowCount(stats.RowCount)
	stats.ForEachColumn(func(col opt.ColumnID, cs props.ColumnStatistic) {
		if !md.HasColumn(col) {
			return
		}
		if rowCount == 0 {
			b.AddColumnStat(col, props.ZeroColumnStatistic())
			return
		}
		b.AddColumnStat(col, normalizeColumnStat(md.ColumnMeta(col).Type, rowCount, cs))
	})
	res := b.Build()
	if buildutil.Invariants {
		verifyNormalized(&res)
	}
	return res
}

// verifyNormalized checks the postconditions documented on normalizeStats.
// It is only run under the invariants or race build tags.
func verifyNormalized(stats *props.Statistics) {
	rowCount := stats.RowCount.V()
	stats.ForEachColumn(func(col opt.ColumnID, cs props.ColumnStatistic) {
		if cs.NullsFraction.Known() && (cs.NullsFraction.V() < 0 || cs.NullsFraction.V() > 1) {
			panic(errors.AssertionFailedf(
				"nulls fraction %v out of range for column %d", cs.NullsFraction.V(), col))
		}
		if cs.DistinctCount.Known() && cs.DistinctCount.V() > rowCount {
			panic(errors.AssertionFailedf(
				"distinct count %v exceeds row count %v for column %d",
				cs.DistinctCount.V(), rowCount, col))
		}
		if cs.Low.Known() && cs.High.Known() && cs.Low.V() > cs.High.V() {
			panic(errors.AssertionFailedf("inverted bounds for column %d", col))
		}
	})
}

func normalizeColumnStat(
	typ *types.T, rowCount float64, cs props.ColumnStatistic,
) props.ColumnStatistic {
	if cs.NullsFraction.Known() {
		nf := cs.NullsFraction.V()
		if nf < 0 {
			cs.NullsFraction = props.MakeStat(0)
		} else if nf > 1 {
			cs.NullsFraction = props.MakeStat(1)
		}
	}
	if cs.Low.Known() && cs.High.Known() && cs.Low.V() > cs.High.V() {
		// Inverted bounds carry no usable information.
		cs.Low, cs.High = props.UnknownStat(), props.UnknownStat()
	}
	if cs.DistinctCount.Known() {
		distinct := math.Max(cs.DistinctCount.V(), 0)
		nonNullRows := rowCount
		if cs.NullsFraction.Known() {
			nonNullRows = rowCount * (1 - cs.NullsFraction.V())
		}
		distinct = math.Min(distinct, nonNullRows)
		if typ.IsDiscrete() && cs.Low.Known() && cs.High.Known() &&
			!math.IsInf(cs.Low.V(), 0) && !math.IsInf(cs.High.V(), 0) {
			distinct = math.Min(distinct, math.Floor(cs.High.V()-cs.Low.V())+1)
		}
		if math.IsInf(distinct, 0) {
			cs.DistinctCount = props.UnknownStat()
		} else {
			cs.DistinctCount = props.MakeStat(distinct)
		}
	}
	if cs.AvgSize.Known() && cs.AvgSize.V() < 0 {
		cs.AvgSize = props.MakeStat(0)
	}
	return cs
}

// zeroStats returns the statistics of the empty subset of input: zero rows,
// every known column's statistics zeroed.
func zeroStats(md *opt.Metadata, input *props.Statistics) props.Statistics {
	b := props.MakeStatsBuilderFrom(input)
	b.SetRowCount(props.MakeStat(0))
	return normalizeStats(md, b.Build())
}
