// Copyright 2024 The Quarry Authors.
//
// Use of this software is governed by the Apache License, Version 2.0,
// included in the file LICENSE.

package stats

import (
	"math"

	"github.com/quarrydb/quarry/pkg/sql/opt"
	"github.com/quarrydb/quarry/pkg/sql/opt/props"
	"github.com/quarrydb/quarry/pkg/sql/sem/eval"
	"github.com/quarrydb/quarry/pkg/sql/sem/tree"
	"github.com/quarrydb/quarry/pkg/sql/types"
)

// colStatScalar derives a column statistic for an arbitrary scalar
// expression evaluated over the rows of input. Constants fold to a point
// statistic; bare columns read straight from input; arithmetic, casts and
// COALESCE derive a statistic from their operands' statistics. Anything
// else is unknown.
func (e *estimator) colStatScalar(ex opt.ScalarExpr, input *props.Statistics) props.ColumnStatistic {
	if d, ok := eval.Expr(e.evalCtx, ex); ok {
		return constColumnStatistic(d)
	}
	if v, ok := ex.(*opt.VariableExpr); ok {
		return input.ColumnStatisticOrUnknown(v.Col)
	}
	if !e.evalCtx.SessionData().OptimizerUseScalarExprStats {
		return props.UnknownColumnStatistic()
	}
	switch t := ex.(type) {
	case *opt.UnaryMinusExpr:
		return negateColumnStatistic(e.colStatScalar(t.Input, input))
	case *opt.BinaryExpr:
		return e.colStatBinary(t, input)
	case *opt.CastExpr:
		return castColumnStatistic(e.colStatScalar(t.Input, input), t.Type)
	case *opt.CoalesceExpr:
		return e.colStatCoalesce(t, input)
	}
	return props.UnknownColumnStatistic()
}

// constColumnStatistic is the statistic of a column holding a single
// constant in every row.
func constColumnStatistic(d tree.Datum) props.ColumnStatistic {
	if d == tree.DNull {
		return props.ColumnStatistic{
			NullsFraction: props.MakeStat(1),
			DistinctCount: props.MakeStat(0),
		}
	}
	cs := props.ColumnStatistic{
		NullsFraction: props.MakeStat(0),
		DistinctCount: props.MakeStat(1),
	}
	if v, ok := statsValue(d); ok {
		cs.Low = props.MakeStat(v)
		cs.High = props.MakeStat(v)
	}
	return cs
}

func negateColumnStatistic(cs props.ColumnStatistic) props.ColumnStatistic {
	res := props.ColumnStatistic{
		NullsFraction: cs.NullsFraction,
		DistinctCount: cs.DistinctCount,
		AvgSize:       cs.AvgSize,
	}
	if cs.High.Known() {
		res.Low = props.MakeStat(-cs.High.V())
	}
	if cs.Low.Known() {
		res.High = props.MakeStat(-cs.Low.V())
	}
	return res
}

func (e *estimator) colStatBinary(ex *opt.BinaryExpr, input *props.Statistics) props.ColumnStatistic {
	left := e.colStatScalar(ex.Left, input)
	right := e.colStatScalar(ex.Right, input)

	res := props.ColumnStatistic{}
	if left.NullsFraction.Known() && right.NullsFraction.Known() {
		// A binary expression is NULL when either operand is NULL; assuming
		// independence of the operands' null positions.
		nf := 1 - (1-left.NullsFraction.V())*(1-right.NullsFraction.V())
		res.NullsFraction = props.MakeStat(nf)
	}
	if left.DistinctCount.Known() && right.DistinctCount.Known() {
		ndv := left.DistinctCount.V() * right.DistinctCount.V()
		if input.RowCount.Known() {
			ndv = math.Min(ndv, input.RowCount.V())
		}
		res.DistinctCount = props.MakeStat(ndv)
	}
	if left.AvgSize.Known() && right.AvgSize.Known() {
		res.AvgSize = props.MakeStat(math.Max(left.AvgSize.V(), right.AvgSize.V()))
	}
	res.Low, res.High = binaryBounds(ex.BinOp, left, right)
	return res
}

// binaryBounds derives the value range of a binary arithmetic expression
// from the operand ranges. Division by a range spanning zero and any corner
// producing NaN yield unknown bounds.
func binaryBounds(op opt.BinaryOperator, left, right props.ColumnStatistic) (low, high props.Stat) {
	lLow, lHigh, lOK := finiteBounds(left)
	rLow, rHigh, rOK := finiteBounds(right)
	if !lOK || !rOK {
		return props.UnknownStat(), props.UnknownStat()
	}
	switch op {
	case opt.DivOp:
		if rLow <= 0 && rHigh >= 0 {
			return props.UnknownStat(), props.UnknownStat()
		}
	case opt.ModOp:
		// The result magnitude is bounded by the divisor magnitude.
		m := math.Max(math.Abs(rLow), math.Abs(rHigh))
		if lLow >= 0 {
			return props.MakeStat(0), props.MakeStat(m)
		}
		return props.MakeStat(-m), props.MakeStat(m)
	}
	apply := func(l, r float64) (float64, bool) {
		var v float64
		switch op {
		case opt.PlusOp:
			v = l + r
		case opt.MinusOp:
			v = l - r
		case opt.MultOp:
			v = l * r
		case opt.DivOp:
			v = l / r
		default:
			return 0, false
		}
		if math.IsNaN(v) {
			return 0, false
		}
		return v, true
	}
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, l := range [2]float64{lLow, lHigh} {
		for _, r := range [2]float64{rLow, rHigh} {
			v, ok := apply(l, r)
			if !ok {
				return props.UnknownStat(), props.UnknownStat()
			}
			lo = math.Min(lo, v)
			hi = math.Max(hi, v)
		}
	}
	return props.MakeStat(lo), props.MakeStat(hi)
}

func castColumnStatistic(cs props.ColumnStatistic, typ *types.T) props.ColumnStatistic {
	if !typ.IsNumeric() {
		// Only the null positions survive a cast out of the number line.
		return props.ColumnStatistic{NullsFraction: cs.NullsFraction}
	}
	res := cs
	if typ.Family() == types.IntFamily {
		if res.Low.Known() {
			res.Low = props.MakeStat(math.Floor(res.Low.V()))
		}
		if res.High.Known() {
			res.High = props.MakeStat(math.Ceil(res.High.V()))
		}
		if res.DistinctCount.Known() && res.Low.Known() && res.High.Known() {
			maxDistinct := math.Floor(res.High.V()-res.Low.V()) + 1
			res.DistinctCount = props.MakeStat(math.Min(res.DistinctCount.V(), maxDistinct))
		}
	}
	return res
}

// colStatCoalesce combines the argument statistics pairwise: the result is
// NULL only when every argument is NULL, its range covers every argument's
// range, and its distinct values are at most the sum of the arguments'.
func (e *estimator) colStatCoalesce(ex *opt.CoalesceExpr, input *props.Statistics) props.ColumnStatistic {
	res := e.colStatScalar(ex.Args[0], input)
	for _, arg := range ex.Args[1:] {
		next := e.colStatScalar(arg, input)
		res = combineCoalesce(res, next)
	}
	return res
}

func combineCoalesce(a, b props.ColumnStatistic) props.ColumnStatistic {
	res := props.ColumnStatistic{}
	if a.NullsFraction.Known() && b.NullsFraction.Known() {
		res.NullsFraction = props.MakeStat(a.NullsFraction.V() * b.NullsFraction.V())
	}
	if a.DistinctCount.Known() && b.DistinctCount.Known() {
		res.DistinctCount = props.MakeStat(a.DistinctCount.V() + b.DistinctCount.V())
	}
	if a.Low.Known() && b.Low.Known() {
		res.Low = props.MakeStat(math.Min(a.Low.V(), b.Low.V()))
	}
	if a.High.Known() && b.High.Known() {
		res.High = props.MakeStat(math.Max(a.High.V(), b.High.V()))
	}
	if a.AvgSize.Known() && b.AvgSize.Known() {
		res.AvgSize = props.MakeStat(math.Max(a.AvgSize.V(), b.AvgSize.V()))
	}
	return res
}
