// Copyright 2024 The Quarry Authors.
//
// Use of this software is governed by the Apache License, Version 2.0,
// included in the file LICENSE.

package stats

import (
	"math"

	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/redact"
	"github.com/quarrydb/quarry/pkg/sql/opt"
	"github.com/quarrydb/quarry/pkg/sql/opt/props"
	"github.com/quarrydb/quarry/pkg/sql/sem/eval"
)

// EstimateComparisonToValue estimates the statistics of the rows satisfying
// "left OP value", where value is a literal placed on the stats number line
// (unknown for literals with no numeric position). leftCol identifies the
// column whose statistics should be refined in the result, or 0 when the
// left side is not a bare column.
//
// The function is total on well-typed input: statistically uninformative
// operands produce the unknown estimate, never an error. An operator outside
// the comparison enum is a contract violation.
func EstimateComparisonToValue(
	md *opt.Metadata,
	input *props.Statistics,
	leftStat props.ColumnStatistic,
	leftCol opt.ColumnID,
	value props.Stat,
	op opt.ComparisonOperator,
) props.Statistics {
	if leftStat.IsUnknown() {
		return props.Unknown()
	}
	switch op {
	case opt.EqOp:
		if value.Unknown() {
			return estimateEqualToUnknownValue(md, input, leftStat, leftCol)
		}
		return estimateFilterRange(md, input, leftStat, leftCol, pointRange(value.V()))
	case opt.NeOp:
		return estimateNotEqualToValue(md, input, leftStat, leftCol, value)
	case opt.LtOp, opt.LeOp:
		if value.Unknown() {
			return props.Unknown()
		}
		filter := props.MakeRange(math.Inf(-1), value.V(), props.UnknownStat())
		return estimateFilterRange(md, input, leftStat, leftCol, filter)
	case opt.GtOp, opt.GeOp:
		if value.Unknown() {
			return props.Unknown()
		}
		filter := props.MakeRange(value.V(), math.Inf(1), props.UnknownStat())
		return estimateFilterRange(md, input, leftStat, leftCol, filter)
	}
	panic(errors.AssertionFailedf("unhandled comparison operator %s", redact.Safe(op)))
}

// pointRange is the filter range of an equality against a known literal.
func pointRange(v float64) props.Range {
	return props.MakeRange(v, v, props.MakeStat(1))
}

// estimateEqualToUnknownValue estimates equality against a literal with no
// position on the stats number line: one value out of the column's distinct
// count, with no refinement of the bounds.
func estimateEqualToUnknownValue(
	md *opt.Metadata,
	input *props.Statistics,
	leftStat props.ColumnStatistic,
	leftCol opt.ColumnID,
) props.Statistics {
	if input.RowCount.Unknown() || leftStat.NullsFraction.Unknown() ||
		leftStat.DistinctCount.Unknown() {
		return props.Unknown()
	}
	sel := props.MakeSelectivityFromFraction(1, leftStat.DistinctCount.V())
	sel.Multiply(props.MakeSelectivity(1 - leftStat.NullsFraction.V()))
	rowCount := input.RowCount.V() * sel.AsFloat()

	bld := props.MakeStatsBuilderFrom(input)
	bld.SetRowCount(props.MakeStat(rowCount))
	if leftCol != 0 {
		cs := leftStat
		cs.NullsFraction = props.MakeStat(0)
		cs.DistinctCount = props.MakeStat(math.Min(leftStat.DistinctCount.V(), 1))
		bld.AddColumnStat(leftCol, cs)
	}
	return normalizeStats(md, bld.Build())
}

// estimateFilterRange intersects the column's value range with the filter
// range and scales the input row count by the captured fraction of the range
// and the non-null fraction. This is the shared core of equality and
// inequality estimation against a literal.
func estimateFilterRange(
	md *opt.Metadata,
	input *props.Statistics,
	leftStat props.ColumnStatistic,
	leftCol opt.ColumnID,
	filter props.Range,
) props.Statistics {
	if input.RowCount.Unknown() || leftStat.NullsFraction.Unknown() {
		return props.Unknown()
	}
	exprRange := leftStat.Range()
	intersect := exprRange.Intersect(filter)
	fraction := exprRange.OverlapFraction(intersect)
	sel := props.ZeroSelectivity
	if fraction > 0 {
		sel = props.MakeSelectivity(fraction)
		sel.Multiply(props.MakeSelectivity(1 - leftStat.NullsFraction.V()))
	}
	rowCount := input.RowCount.V() * sel.AsFloat()

	bld := props.MakeStatsBuilderFrom(input)
	bld.SetRowCount(props.MakeStat(rowCount))
	if leftCol != 0 && !intersect.Empty() {
		bld.AddColumnStat(leftCol, props.ColumnStatistic{
			NullsFraction: props.MakeStat(0),
			DistinctCount: intersect.DistinctCount,
			Low:           intersectBound(intersect.Low, leftStat.Low, filter.Low),
			High:          intersectBound(intersect.High, leftStat.High, filter.High),
			AvgSize:       leftStat.AvgSize,
		})
	}
	return normalizeStats(md, bld.Build())
}

// intersectBound keeps track of whether an intersected bound is actually
// known: a bound that is ±Inf only because both contributing sides were
// unknown stays unknown.
func intersectBound(v float64, orig props.Stat, filterBound float64) props.Stat {
	if orig.Known() || !math.IsInf(filterBound, 0) {
		return props.MakeStat(v)
	}
	return props.UnknownStat()
}

func estimateNotEqualToValue(
	md *opt.Metadata,
	input *props.Statistics,
	leftStat props.ColumnStatistic,
	leftCol opt.ColumnID,
	value props.Stat,
) props.Statistics {
	if input.RowCount.Unknown() || leftStat.NullsFraction.Unknown() {
		return props.Unknown()
	}
	// Subtractive complement of the equality on the null-filtered rows:
	// NULLs never satisfy <>.
	var fraction float64
	if value.Known() {
		exprRange := leftStat.Range()
		fraction = exprRange.OverlapFraction(exprRange.Intersect(pointRange(value.V())))
	} else if leftStat.DistinctCount.Known() {
		fraction = 1 / math.Max(leftStat.DistinctCount.V(), 1)
	} else {
		return props.Unknown()
	}
	rowCount := input.RowCount.V() * (1 - fraction) * (1 - leftStat.NullsFraction.V())

	bld := props.MakeStatsBuilderFrom(input)
	bld.SetRowCount(props.MakeStat(rowCount))
	if leftCol != 0 {
		cs := leftStat
		cs.NullsFraction = props.MakeStat(0)
		if cs.DistinctCount.Known() {
			cs.DistinctCount = props.MakeStat(math.Max(cs.DistinctCount.V()-1, 0))
		}
		bld.AddColumnStat(leftCol, cs)
	}
	return normalizeStats(md, bld.Build())
}

// EstimateComparisonToColumn estimates the statistics of the rows satisfying
// "left OP right" where both sides are expressions with derived statistics.
// leftCol and rightCol identify bare columns (0 otherwise) whose statistics
// are refined in the result.
func EstimateComparisonToColumn(
	md *opt.Metadata,
	evalCtx *eval.Context,
	input *props.Statistics,
	leftStat props.ColumnStatistic,
	leftCol opt.ColumnID,
	rightStat props.ColumnStatistic,
	rightCol opt.ColumnID,
	op opt.ComparisonOperator,
) props.Statistics {
	if leftStat.IsUnknown() || rightStat.IsUnknown() {
		return props.Unknown()
	}
	switch op {
	case opt.EqOp:
		return estimateEqualToColumn(md, input, leftStat, leftCol, rightStat, rightCol)
	case opt.NeOp:
		return estimateNotEqualToColumn(md, input, leftStat, leftCol, rightStat, rightCol)
	case opt.LtOp, opt.LeOp:
		if !evalCtx.SessionData().OptimizerUseExprInequalityStats {
			return props.Unknown()
		}
		return estimateLessThanColumn(md, input, leftStat, leftCol, rightStat, rightCol, op == opt.LeOp)
	case opt.GtOp, opt.GeOp:
		if !evalCtx.SessionData().OptimizerUseExprInequalityStats {
			return props.Unknown()
		}
		// a > b is b < a with the sides swapped.
		return estimateLessThanColumn(md, input, rightStat, rightCol, leftStat, leftCol, op == opt.GeOp)
	}
	panic(errors.AssertionFailedf("unhandled comparison operator %s", redact.Safe(op)))
}

func estimateEqualToColumn(
	md *opt.Metadata,
	input *props.Statistics,
	leftStat props.ColumnStatistic,
	leftCol opt.ColumnID,
	rightStat props.ColumnStatistic,
	rightCol opt.ColumnID,
) props.Statistics {
	if input.RowCount.Unknown() ||
		leftStat.NullsFraction.Unknown() || rightStat.NullsFraction.Unknown() ||
		leftStat.DistinctCount.Unknown() || rightStat.DistinctCount.Unknown() {
		return props.Unknown()
	}
	lRange, rRange := leftStat.Range(), rightStat.Range()
	intersect := lRange.Intersect(rRange)
	if intersect.Empty() {
		return zeroStats(md, input)
	}
	// Distinct counts within the intersection drive the selectivity: under
	// uniformity, each left value matches with probability 1/ndv of the side
	// with more values.
	ndvLeft := leftStat.DistinctCount.V() * lRange.OverlapFraction(intersect)
	ndvRight := rightStat.DistinctCount.V() * rRange.OverlapFraction(intersect)
	nullsFactor := (1 - leftStat.NullsFraction.V()) * (1 - rightStat.NullsFraction.V())
	selectivity := nullsFactor / math.Max(math.Max(ndvLeft, ndvRight), 1)
	rowCount := input.RowCount.V() * selectivity

	bld := props.MakeStatsBuilderFrom(input)
	bld.SetRowCount(props.MakeStat(rowCount))
	refined := func(own props.ColumnStatistic, other props.ColumnStatistic) props.ColumnStatistic {
		return props.ColumnStatistic{
			NullsFraction: props.MakeStat(0),
			DistinctCount: props.MakeStat(math.Min(ndvLeft, ndvRight)),
			Low:           intersectStatBound(intersect.Low, own.Low, other.Low),
			High:          intersectStatBound(intersect.High, own.High, other.High),
			AvgSize:       own.AvgSize,
		}
	}
	if leftCol != 0 {
		bld.AddColumnStat(leftCol, refined(leftStat, rightStat))
	}
	if rightCol != 0 {
		bld.AddColumnStat(rightCol, refined(rightStat, leftStat))
	}
	return normalizeStats(md, bld.Build())
}

func intersectStatBound(v float64, a, b props.Stat) props.Stat {
	if a.Known() || b.Known() {
		return props.MakeStat(v)
	}
	return props.UnknownStat()
}

func estimateNotEqualToColumn(
	md *opt.Metadata,
	input *props.Statistics,
	leftStat props.ColumnStatistic,
	leftCol opt.ColumnID,
	rightStat props.ColumnStatistic,
	rightCol opt.ColumnID,
) props.Statistics {
	eq := estimateEqualToColumn(md, input, leftStat, 0, rightStat, 0)
	if eq.RowCount.Unknown() || input.RowCount.Unknown() {
		return props.Unknown()
	}
	nullsFactor := (1 - leftStat.NullsFraction.V()) * (1 - rightStat.NullsFraction.V())
	nonNullRows := input.RowCount.V() * nullsFactor
	rowCount := math.Max(nonNullRows-eq.RowCount.V(), 0)

	bld := props.MakeStatsBuilderFrom(input)
	bld.SetRowCount(props.MakeStat(rowCount))
	setComplement := func(col opt.ColumnID, cs props.ColumnStatistic) {
		if col == 0 {
			return
		}
		cs.NullsFraction = props.MakeStat(0)
		if cs.DistinctCount.Known() {
			cs.DistinctCount = props.MakeStat(math.Max(cs.DistinctCount.V()-1, 0))
		}
		bld.AddColumnStat(col, cs)
	}
	setComplement(leftCol, leftStat)
	setComplement(rightCol, rightStat)
	return normalizeStats(md, bld.Build())
}

// estimateLessThanColumn estimates "left < right" (or <=) between two
// expressions by modeling both sides as independent uniform variables over
// their ranges and computing P(L < R) in closed form.
func estimateLessThanColumn(
	md *opt.Metadata,
	input *props.Statistics,
	leftStat props.ColumnStatistic,
	leftCol opt.ColumnID,
	rightStat props.ColumnStatistic,
	rightCol opt.ColumnID,
	orEqual bool,
) props.Statistics {
	if input.RowCount.Unknown() ||
		leftStat.NullsFraction.Unknown() || rightStat.NullsFraction.Unknown() {
		return props.Unknown()
	}
	nullsFactor := (1 - leftStat.NullsFraction.V()) * (1 - rightStat.NullsFraction.V())

	// Disjoint ranges short-circuit, whenever the deciding bounds are known.
	if leftStat.High.Known() && rightStat.Low.Known() {
		lHigh, rLow := leftStat.High.V(), rightStat.Low.V()
		if lHigh < rLow || (orEqual && lHigh == rLow) {
			// Entirely satisfying: every non-null pair compares true.
			return passNonNullRows(md, input, nullsFactor, leftStat, leftCol, rightStat, rightCol)
		}
	}
	if leftStat.Low.Known() && rightStat.High.Known() {
		lLow, rHigh := leftStat.Low.V(), rightStat.High.V()
		if lLow > rHigh || (!orEqual && lLow == rHigh) {
			// Entirely contradicting.
			return zeroStats(md, input)
		}
	}

	// The closed form needs all four bounds finite.
	lLow, lHigh, lOK := finiteBounds(leftStat)
	rLow, rHigh, rOK := finiteBounds(rightStat)
	if !lOK || !rOK {
		return props.Unknown()
	}
	p := probabilityLessThan(lLow, lHigh, rLow, rHigh)
	if orEqual {
		p += equalityMass(leftStat, rightStat)
	}
	sel := props.MakeSelectivity(p)
	rowCount := input.RowCount.V() * nullsFactor * sel.AsFloat()

	bld := props.MakeStatsBuilderFrom(input)
	bld.SetRowCount(props.MakeStat(rowCount))
	if leftCol != 0 {
		// Satisfying left values cannot exceed the largest right value.
		bld.AddColumnStat(leftCol, capHighBound(leftStat, math.Min(lHigh, rHigh)))
	}
	if rightCol != 0 {
		// Satisfying right values cannot fall below the smallest left value.
		bld.AddColumnStat(rightCol, raiseLowBound(rightStat, math.Max(rLow, lLow)))
	}
	return normalizeStats(md, bld.Build())
}

// probabilityLessThan returns P(X < Y) for independent X ~ U[a,b] and
// Y ~ U[c,d], handling degenerate point ranges as limits. The closed form
// integrates the clamped CDF ramp of X over Y's density: for y below a the
// ramp contributes 0, above b it contributes 1, and across [a,b] it rises
// linearly, making the integral the area of a trapezoid.
func probabilityLessThan(a, b, c, d float64) float64 {
	clamp := func(v, lo, hi float64) float64 {
		return math.Min(math.Max(v, lo), hi)
	}
	if a == b {
		if c == d {
			if a < c {
				return 1
			}
			return 0
		}
		return clamp((d-a)/(d-c), 0, 1)
	}
	if c == d {
		return clamp((c-a)/(b-a), 0, 1)
	}
	y1 := clamp(a, c, d)
	y2 := clamp(b, c, d)
	total := d - y2
	if y2 > y1 {
		total += (y2 - y1) * ((y1+y2)/2 - a) / (b - a)
	}
	return total / (d - c)
}

// equalityMass is the probability added by the "or equal" half of <=: both
// sides land in the overlapping range and pick the same value.
func equalityMass(leftStat, rightStat props.ColumnStatistic) float64 {
	if leftStat.DistinctCount.Unknown() || rightStat.DistinctCount.Unknown() {
		return 0
	}
	lRange, rRange := leftStat.Range(), rightStat.Range()
	intersect := lRange.Intersect(rRange)
	if intersect.Empty() {
		return 0
	}
	pOverlap := lRange.OverlapFraction(intersect) * rRange.OverlapFraction(intersect)
	return pOverlap / math.Max(math.Max(leftStat.DistinctCount.V(), rightStat.DistinctCount.V()), 1)
}

func finiteBounds(cs props.ColumnStatistic) (low, high float64, ok bool) {
	if cs.Low.Unknown() || cs.High.Unknown() {
		return 0, 0, false
	}
	low, high = cs.Low.V(), cs.High.V()
	if math.IsInf(low, 0) || math.IsInf(high, 0) {
		return 0, 0, false
	}
	return low, high, true
}

// passNonNullRows returns the input with both comparison operands filtered
// to their non-null rows, for comparisons that every non-null pair
// satisfies.
func passNonNullRows(
	md *opt.Metadata,
	input *props.Statistics,
	nullsFactor float64,
	leftStat props.ColumnStatistic,
	leftCol opt.ColumnID,
	rightStat props.ColumnStatistic,
	rightCol opt.ColumnID,
) props.Statistics {
	bld := props.MakeStatsBuilderFrom(input)
	bld.SetRowCount(props.MakeStat(input.RowCount.V() * nullsFactor))
	setNotNull := func(col opt.ColumnID, cs props.ColumnStatistic) {
		if col == 0 {
			return
		}
		cs.NullsFraction = props.MakeStat(0)
		bld.AddColumnStat(col, cs)
	}
	setNotNull(leftCol, leftStat)
	setNotNull(rightCol, rightStat)
	return normalizeStats(md, bld.Build())
}

func capHighBound(cs props.ColumnStatistic, newHigh float64) props.ColumnStatistic {
	res := cs
	res.NullsFraction = props.MakeStat(0)
	res.High = props.MakeStat(newHigh)
	res.DistinctCount = scaleDistinctToRange(cs, cs.Low.OrElse(math.Inf(-1)), newHigh)
	return res
}

func raiseLowBound(cs props.ColumnStatistic, newLow float64) props.ColumnStatistic {
	res := cs
	res.NullsFraction = props.MakeStat(0)
	res.Low = props.MakeStat(newLow)
	res.DistinctCount = scaleDistinctToRange(cs, newLow, cs.High.OrElse(math.Inf(1)))
	return res
}

// scaleDistinctToRange shrinks a column's distinct count proportionally to
// the fraction of its range retained by [newLow, newHigh].
func scaleDistinctToRange(cs props.ColumnStatistic, newLow, newHigh float64) props.Stat {
	if cs.DistinctCount.Unknown() {
		return props.UnknownStat()
	}
	fraction := cs.Range().OverlapFraction(props.Range{Low: newLow, High: newHigh})
	return props.MakeStat(cs.DistinctCount.V() * fraction)
}
