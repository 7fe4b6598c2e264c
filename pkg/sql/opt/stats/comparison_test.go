// Copyright 2024 The Quarry Authors.
//
// Use of this software is governed by the Apache License, Version 2.0,
// included in the file LICENSE.

package stats

import (
	"testing"

	"github.com/quarrydb/quarry/pkg/sql/opt"
	"github.com/quarrydb/quarry/pkg/sql/opt/props"
	"github.com/quarrydb/quarry/pkg/sql/sem/eval"
	"github.com/quarrydb/quarry/pkg/sql/types"
	"github.com/quarrydb/quarry/pkg/testutils/floatcmp"
	"github.com/quarrydb/quarry/pkg/util/log"
	"github.com/stretchr/testify/require"
)

// testInput builds a metadata and input statistics with a single column "a"
// of 1000 rows, 10 distinct values uniform over [0, 100] and no nulls.
func testInput(t *testing.T) (*opt.Metadata, props.Statistics, opt.ColumnID) {
	t.Helper()
	md := &opt.Metadata{}
	col := md.AddColumn("a", types.Int)
	bld := props.MakeStatsBuilder()
	bld.SetRowCount(props.MakeStat(1000))
	bld.AddColumnStat(col, props.ColumnStatistic{
		NullsFraction: props.MakeStat(0),
		DistinctCount: props.MakeStat(10),
		Low:           props.MakeStat(0),
		High:          props.MakeStat(100),
	})
	return md, bld.Build(), col
}

func TestEstimateComparisonToValue(t *testing.T) {
	defer log.Scope(t).Close(t)

	md, input, col := testInput(t)
	leftStat, _ := input.ColumnStatistic(col)

	t.Run("equality", func(t *testing.T) {
		res := EstimateComparisonToValue(md, &input, leftStat, col, props.MakeStat(5), opt.EqOp)
		require.True(t, floatcmp.EqualClose(100, res.RowCount.V()))
		cs, ok := res.ColumnStatistic(col)
		require.True(t, ok)
		require.Equal(t, 1.0, cs.DistinctCount.V())
		require.Equal(t, 5.0, cs.Low.V())
		require.Equal(t, 5.0, cs.High.V())
		require.Equal(t, 0.0, cs.NullsFraction.V())
	})

	t.Run("equality outside range", func(t *testing.T) {
		res := EstimateComparisonToValue(md, &input, leftStat, col, props.MakeStat(500), opt.EqOp)
		require.Equal(t, 0.0, res.RowCount.V())
	})

	t.Run("equality unknown value", func(t *testing.T) {
		// One value out of the column's distinct count.
		res := EstimateComparisonToValue(md, &input, leftStat, col, props.UnknownStat(), opt.EqOp)
		require.True(t, floatcmp.EqualClose(100, res.RowCount.V()))
	})

	t.Run("less than", func(t *testing.T) {
		res := EstimateComparisonToValue(md, &input, leftStat, col, props.MakeStat(50), opt.LtOp)
		require.True(t, floatcmp.EqualClose(500, res.RowCount.V()))
		cs, _ := res.ColumnStatistic(col)
		require.Equal(t, 0.0, cs.Low.V())
		require.Equal(t, 50.0, cs.High.V())
	})

	t.Run("greater than full range", func(t *testing.T) {
		res := EstimateComparisonToValue(md, &input, leftStat, col, props.MakeStat(-10), opt.GtOp)
		require.True(t, floatcmp.EqualClose(1000, res.RowCount.V()))
	})

	t.Run("not equal", func(t *testing.T) {
		res := EstimateComparisonToValue(md, &input, leftStat, col, props.MakeStat(5), opt.NeOp)
		require.True(t, floatcmp.EqualClose(900, res.RowCount.V()))
		cs, _ := res.ColumnStatistic(col)
		require.Equal(t, 9.0, cs.DistinctCount.V())
		// The bounds are not tightened by a single removed value.
		require.Equal(t, 0.0, cs.Low.V())
		require.Equal(t, 100.0, cs.High.V())
	})

	t.Run("unknown column stat", func(t *testing.T) {
		res := EstimateComparisonToValue(
			md, &input, props.UnknownColumnStatistic(), col, props.MakeStat(5), opt.EqOp)
		require.True(t, res.RowCount.Unknown())
	})

	t.Run("nulls scale the estimate", func(t *testing.T) {
		withNulls := leftStat
		withNulls.NullsFraction = props.MakeStat(0.2)
		res := EstimateComparisonToValue(md, &input, withNulls, col, props.MakeStat(5), opt.EqOp)
		require.True(t, floatcmp.EqualClose(80, res.RowCount.V()))
	})

	t.Run("tiny fraction never rounds to zero", func(t *testing.T) {
		wide := props.ColumnStatistic{
			NullsFraction: props.MakeStat(0),
			DistinctCount: props.MakeStat(1e6),
			Low:           props.MakeStat(0),
			High:          props.MakeStat(1e12),
		}
		// The captured fraction 1e-11 is below the selectivity floor of 1e-10,
		// so the estimate lands at rows * 1e-10 rather than vanishing.
		res := EstimateComparisonToValue(md, &input, wide, col, props.MakeStat(10), opt.LtOp)
		require.True(t, floatcmp.EqualClose(1e-7, res.RowCount.V()))

		// A provably empty filter is a contradiction, not an estimate, and is
		// exempt from the floor.
		res = EstimateComparisonToValue(md, &input, wide, col, props.MakeStat(2e12), opt.GtOp)
		require.Equal(t, 0.0, res.RowCount.V())
	})

	t.Run("invalid operator panics", func(t *testing.T) {
		require.Panics(t, func() {
			EstimateComparisonToValue(
				md, &input, leftStat, col, props.MakeStat(5), opt.NumComparisonOperators)
		})
	})
}

func twoColumnInput(
	t *testing.T, a, b props.ColumnStatistic, rows float64,
) (*opt.Metadata, props.Statistics, opt.ColumnID, opt.ColumnID) {
	t.Helper()
	md := &opt.Metadata{}
	colA := md.AddColumn("a", types.Int)
	colB := md.AddColumn("b", types.Int)
	bld := props.MakeStatsBuilder()
	bld.SetRowCount(props.MakeStat(rows))
	bld.AddColumnStat(colA, a)
	bld.AddColumnStat(colB, b)
	return md, bld.Build(), colA, colB
}

func uniformColumn(low, high, distinct float64) props.ColumnStatistic {
	return props.ColumnStatistic{
		NullsFraction: props.MakeStat(0),
		DistinctCount: props.MakeStat(distinct),
		Low:           props.MakeStat(low),
		High:          props.MakeStat(high),
	}
}

func TestEstimateComparisonToColumn(t *testing.T) {
	defer log.Scope(t).Close(t)

	evalCtx := eval.MakeTestingEvalContext()

	t.Run("equality", func(t *testing.T) {
		a := uniformColumn(0, 100, 10)
		b := uniformColumn(0, 100, 50)
		md, input, colA, colB := twoColumnInput(t, a, b, 1000)
		res := EstimateComparisonToColumn(md, &evalCtx, &input, a, colA, b, colB, opt.EqOp)
		// Each row matches with probability 1/max(ndvA, ndvB).
		require.True(t, floatcmp.EqualClose(20, res.RowCount.V()))
		cs, _ := res.ColumnStatistic(colA)
		require.Equal(t, 10.0, cs.DistinctCount.V())
	})

	t.Run("equality disjoint ranges", func(t *testing.T) {
		a := uniformColumn(0, 100, 10)
		b := uniformColumn(200, 300, 10)
		md, input, colA, colB := twoColumnInput(t, a, b, 1000)
		res := EstimateComparisonToColumn(md, &evalCtx, &input, a, colA, b, colB, opt.EqOp)
		require.Equal(t, 0.0, res.RowCount.V())
	})

	t.Run("not equal", func(t *testing.T) {
		a := uniformColumn(0, 100, 10)
		b := uniformColumn(0, 100, 10)
		md, input, colA, colB := twoColumnInput(t, a, b, 1000)
		res := EstimateComparisonToColumn(md, &evalCtx, &input, a, colA, b, colB, opt.NeOp)
		require.True(t, floatcmp.EqualClose(900, res.RowCount.V()))
	})

	t.Run("less than identical ranges", func(t *testing.T) {
		a := uniformColumn(0, 100, 100)
		b := uniformColumn(0, 100, 100)
		md, input, colA, colB := twoColumnInput(t, a, b, 1000)
		res := EstimateComparisonToColumn(md, &evalCtx, &input, a, colA, b, colB, opt.LtOp)
		require.True(t, floatcmp.EqualClose(500, res.RowCount.V()))
	})

	t.Run("less than entirely true", func(t *testing.T) {
		a := uniformColumn(0, 10, 10)
		b := uniformColumn(20, 30, 10)
		md, input, colA, colB := twoColumnInput(t, a, b, 1000)
		res := EstimateComparisonToColumn(md, &evalCtx, &input, a, colA, b, colB, opt.LtOp)
		require.True(t, floatcmp.EqualClose(1000, res.RowCount.V()))
	})

	t.Run("less than entirely false", func(t *testing.T) {
		a := uniformColumn(20, 30, 10)
		b := uniformColumn(0, 10, 10)
		md, input, colA, colB := twoColumnInput(t, a, b, 1000)
		res := EstimateComparisonToColumn(md, &evalCtx, &input, a, colA, b, colB, opt.LtOp)
		require.Equal(t, 0.0, res.RowCount.V())
	})

	t.Run("greater than flips the sides", func(t *testing.T) {
		a := uniformColumn(0, 10, 10)
		b := uniformColumn(20, 30, 10)
		md, input, colA, colB := twoColumnInput(t, a, b, 1000)
		res := EstimateComparisonToColumn(md, &evalCtx, &input, a, colA, b, colB, opt.GtOp)
		require.Equal(t, 0.0, res.RowCount.V())
	})

	t.Run("inequality disabled by session setting", func(t *testing.T) {
		off := eval.MakeTestingEvalContext()
		off.SessionData().OptimizerUseExprInequalityStats = false
		a := uniformColumn(0, 100, 100)
		b := uniformColumn(0, 100, 100)
		md, input, colA, colB := twoColumnInput(t, a, b, 1000)
		res := EstimateComparisonToColumn(md, &off, &input, a, colA, b, colB, opt.LtOp)
		require.True(t, res.RowCount.Unknown())
	})

	t.Run("unbounded side is inestimable", func(t *testing.T) {
		a := uniformColumn(0, 100, 100)
		b := props.ColumnStatistic{
			NullsFraction: props.MakeStat(0),
			DistinctCount: props.MakeStat(100),
		}
		md, input, colA, colB := twoColumnInput(t, a, b, 1000)
		res := EstimateComparisonToColumn(md, &evalCtx, &input, a, colA, b, colB, opt.LtOp)
		require.True(t, res.RowCount.Unknown())
	})
}

func TestProbabilityLessThan(t *testing.T) {
	testCases := []struct {
		a, b, c, d float64
		expected   float64
	}{
		{0, 1, 0, 1, 0.5},
		{0, 2, 1, 3, 7.0 / 8},
		{0, 1, 2, 3, 1},
		{2, 3, 0, 1, 0},
		{0, 10, 0, 1, 0.05},
		{0, 1, 0, 10, 0.95},
		// Point ranges degenerate gracefully.
		{5, 5, 0, 10, 0.5},
		{0, 10, 5, 5, 0.5},
		{5, 5, 5, 5, 0},
		{4, 4, 5, 5, 1},
	}
	for _, tc := range testCases {
		actual := probabilityLessThan(tc.a, tc.b, tc.c, tc.d)
		if !floatcmp.EqualClose(tc.expected, actual) {
			t.Errorf("P(U[%v,%v] < U[%v,%v]): expected %v, got %v",
				tc.a, tc.b, tc.c, tc.d, tc.expected, actual)
		}
	}
}
