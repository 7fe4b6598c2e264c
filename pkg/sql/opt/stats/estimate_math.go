// Copyright 2024 The Quarry Authors.
//
// Use of this software is governed by the Apache License, Version 2.0,
// included in the file LICENSE.

package stats

import (
	"math"

	"github.com/quarrydb/quarry/pkg/sql/opt"
	"github.com/quarrydb/quarry/pkg/sql/opt/props"
)

// This file holds the algebra over whole estimates: union-style addition
// with different distinct-count strategies, subset subtraction and capping.
// All operations return unknown when either operand's row count is unknown,
// and normalize their result.

// distinctStrategy selects how the addStats combinators merge per-column
// distinct counts.
type distinctStrategy int8

const (
	// sumDistinct adds the distinct counts; correct when the operands cover
	// disjoint value sets (IN-list elements, pre-subtraction OR terms).
	sumDistinct distinctStrategy = iota
	// maxDistinct keeps the larger distinct count.
	maxDistinct
	// collapseDistinct counts the overlapping part of the value ranges once.
	collapseDistinct
)

// addStatsAndSumDistinctValues unions two estimates, summing row counts and
// per-column distinct counts.
func addStatsAndSumDistinctValues(md *opt.Metadata, a, b *props.Statistics) props.Statistics {
	return addStats(md, a, b, sumDistinct)
}

// addStatsAndMaxDistinctValues unions two estimates, summing row counts and
// keeping the larger distinct count per column.
func addStatsAndMaxDistinctValues(md *opt.Metadata, a, b *props.Statistics) props.Statistics {
	return addStats(md, a, b, maxDistinct)
}

// addStatsAndCollapseDistinctValues unions two estimates, summing row counts
// and collapsing overlapping distinct values per column.
func addStatsAndCollapseDistinctValues(md *opt.Metadata, a, b *props.Statistics) props.Statistics {
	return addStats(md, a, b, collapseDistinct)
}

func addStats(
	md *opt.Metadata, a, b *props.Statistics, strategy distinctStrategy,
) props.Statistics {
	if a.RowCount.Unknown() || b.RowCount.Unknown() {
		return props.Unknown()
	}
	aRows, bRows := a.RowCount.V(), b.RowCount.V()
	rowCount := aRows + bRows
	bld := props.MakeStatsBuilder()
	bld.SetRowCount(props.MakeStat(rowCount))
	union := a.KnownColumns().Union(b.KnownColumns())
	for _, col := range opt.ColSetToList(union) {
		ca := a.ColumnStatisticOrUnknown(col)
		cb := b.ColumnStatisticOrUnknown(col)
		bld.AddColumnStat(col, addColumnStats(aRows, bRows, rowCount, ca, cb, strategy))
	}
	return normalizeStats(md, bld.Build())
}

func addColumnStats(
	aRows, bRows, rowCount float64, ca, cb props.ColumnStatistic, strategy distinctStrategy,
) props.ColumnStatistic {
	if rowCount == 0 {
		return props.ZeroColumnStatistic()
	}
	var res props.ColumnStatistic

	// Null counts recombine by absolute counts, not by averaging fractions.
	if ca.NullsFraction.Known() && cb.NullsFraction.Known() {
		nulls := aRows*ca.NullsFraction.V() + bRows*cb.NullsFraction.V()
		res.NullsFraction = props.MakeStat(nulls / rowCount)
	}

	ra, rb := ca.Range(), cb.Range()
	var combined props.Range
	switch strategy {
	case sumDistinct:
		combined = ra.AddSumDistinct(rb)
	case maxDistinct:
		combined = ra.AddMaxDistinct(rb)
	case collapseDistinct:
		combined = ra.AddCollapseDistinct(rb)
	}
	res.DistinctCount = combined.DistinctCount
	if ca.Low.Known() && cb.Low.Known() {
		res.Low = props.MakeStat(combined.Low)
	}
	if ca.High.Known() && cb.High.Known() {
		res.High = props.MakeStat(combined.High)
	}

	// Average size is weighted by the non-null row counts contributing the
	// values.
	if ca.AvgSize.Known() && cb.AvgSize.Known() {
		wa, wb := aRows, bRows
		if ca.NullsFraction.Known() {
			wa *= 1 - ca.NullsFraction.V()
		}
		if cb.NullsFraction.Known() {
			wb *= 1 - cb.NullsFraction.V()
		}
		if wa+wb > 0 {
			res.AvgSize = props.MakeStat((wa*ca.AvgSize.V() + wb*cb.AvgSize.V()) / (wa + wb))
		} else {
			res.AvgSize = props.MakeStat(0)
		}
	}
	return res
}

// subtractSubsetStats computes the element-wise complement "superset minus
// subset", assuming the subset's rows are contained in the superset's. Used
// for NOT and for the inclusion-exclusion overlap term of OR.
func subtractSubsetStats(md *opt.Metadata, superset, subset *props.Statistics) props.Statistics {
	if superset.RowCount.Unknown() || subset.RowCount.Unknown() {
		return props.Unknown()
	}
	supRows, subRows := superset.RowCount.V(), subset.RowCount.V()
	rowCount := math.Max(supRows-subRows, 0)
	bld := props.MakeStatsBuilder()
	bld.SetRowCount(props.MakeStat(rowCount))
	superset.ForEachColumn(func(col opt.ColumnID, cSup props.ColumnStatistic) {
		cSub := subset.ColumnStatisticOrUnknown(col)
		bld.AddColumnStat(col, subtractColumnStats(supRows, subRows, rowCount, cSup, cSub))
	})
	return normalizeStats(md, bld.Build())
}

func subtractColumnStats(
	supRows, subRows, rowCount float64, cSup, cSub props.ColumnStatistic,
) props.ColumnStatistic {
	if rowCount == 0 {
		return props.ZeroColumnStatistic()
	}
	// The superset's bounds and average size are kept: removing a subset
	// cannot widen the range.
	res := cSup

	var supNulls, subNulls float64
	nullsKnown := cSup.NullsFraction.Known() && cSub.NullsFraction.Known()
	if nullsKnown {
		supNulls = supRows * cSup.NullsFraction.V()
		subNulls = subRows * cSub.NullsFraction.V()
		nulls := math.Max(supNulls-subNulls, 0)
		res.NullsFraction = props.MakeStat(math.Min(nulls, rowCount) / rowCount)
	} else {
		res.NullsFraction = props.UnknownStat()
	}

	switch {
	case cSup.DistinctCount.Unknown() || cSub.DistinctCount.Unknown():
		res.DistinctCount = props.UnknownStat()
	case cSup.DistinctCount.V() == 0:
		res.DistinctCount = props.MakeStat(0)
	case cSub.DistinctCount.V() == 0:
		// Nothing was removed from the value set.
	default:
		supDistinct := cSup.DistinctCount.V()
		subDistinct := cSub.DistinctCount.V()
		if !nullsKnown {
			supNulls, subNulls = 0, 0
		}
		// Subtracting removes whole distinct values only when the subset is
		// at least as dense per distinct value as the superset; a sparser
		// subset thins rows out of values that remain present.
		supPerDistinct := (supRows - supNulls) / supDistinct
		subPerDistinct := (subRows - subNulls) / subDistinct
		if supPerDistinct <= subPerDistinct {
			res.DistinctCount = props.MakeStat(math.Max(supDistinct-subDistinct, 0))
		} else {
			res.DistinctCount = props.MakeStat(supDistinct)
		}
	}
	return res
}

// capStats bounds one estimate by another: the row count and every
// per-column statistic of stats are capped by cap's. Used to keep the OR
// combination from exceeding its input.
func capStats(md *opt.Metadata, stats, cap *props.Statistics) props.Statistics {
	if stats.RowCount.Unknown() || cap.RowCount.Unknown() {
		return props.Unknown()
	}
	statsRows, capRows := stats.RowCount.V(), cap.RowCount.V()
	cappedRows := math.Min(statsRows, capRows)
	bld := props.MakeStatsBuilder()
	bld.SetRowCount(props.MakeStat(cappedRows))
	stats.ForEachColumn(func(col opt.ColumnID, cs props.ColumnStatistic) {
		cc := cap.ColumnStatisticOrUnknown(col)
		bld.AddColumnStat(col, capColumnStats(statsRows, capRows, cappedRows, cs, cc))
	})
	return normalizeStats(md, bld.Build())
}

func capColumnStats(
	statsRows, capRows, cappedRows float64, cs, cc props.ColumnStatistic,
) props.ColumnStatistic {
	if cappedRows == 0 {
		return props.ZeroColumnStatistic()
	}
	res := props.ColumnStatistic{AvgSize: cs.AvgSize}
	if cs.NullsFraction.Known() && cc.NullsFraction.Known() {
		nulls := math.Min(statsRows*cs.NullsFraction.V(), capRows*cc.NullsFraction.V())
		res.NullsFraction = props.MakeStat(math.Min(nulls, cappedRows) / cappedRows)
	}
	if cs.DistinctCount.Known() && cc.DistinctCount.Known() {
		res.DistinctCount = props.MakeStat(math.Min(cs.DistinctCount.V(), cc.DistinctCount.V()))
	}
	if cs.Low.Known() && cc.Low.Known() {
		res.Low = props.MakeStat(math.Max(cs.Low.V(), cc.Low.V()))
	}
	if cs.High.Known() && cc.High.Known() {
		res.High = props.MakeStat(math.Min(cs.High.V(), cc.High.V()))
	}
	return res
}
