// Copyright 2024 The Quarry Authors.
//
// Use of this software is governed by the Apache License, Version 2.0,
// included in the file LICENSE.

package stats

import (
	"context"
	"testing"

	"github.com/quarrydb/quarry/pkg/sql/opt"
	"github.com/quarrydb/quarry/pkg/sql/opt/props"
	"github.com/quarrydb/quarry/pkg/sql/sem/eval"
	"github.com/quarrydb/quarry/pkg/sql/sem/tree"
	"github.com/quarrydb/quarry/pkg/sql/types"
	"github.com/quarrydb/quarry/pkg/util/log"
	"github.com/stretchr/testify/require"
)

func newTestEstimator(md *opt.Metadata) (*estimator, *eval.Context) {
	evalCtx := eval.MakeTestingEvalContext()
	var e estimator
	e.init(context.Background(), &evalCtx, md)
	return &e, e.evalCtx
}

func TestColStatScalar(t *testing.T) {
	defer log.Scope(t).Close(t)

	md := &opt.Metadata{}
	col := md.AddColumn("x", types.Float)
	bld := props.MakeStatsBuilder()
	bld.SetRowCount(props.MakeStat(1000))
	bld.AddColumnStat(col, props.ColumnStatistic{
		NullsFraction: props.MakeStat(0.1),
		DistinctCount: props.MakeStat(20),
		Low:           props.MakeStat(-10),
		High:          props.MakeStat(10),
	})
	input := bld.Build()
	e, _ := newTestEstimator(md)
	x := &opt.VariableExpr{Col: col}

	t.Run("constant", func(t *testing.T) {
		cs := e.colStatScalar(&opt.ConstExpr{Value: tree.NewDInt(7)}, &input)
		require.Equal(t, 1.0, cs.DistinctCount.V())
		require.Equal(t, 0.0, cs.NullsFraction.V())
		require.Equal(t, 7.0, cs.Low.V())
		require.Equal(t, 7.0, cs.High.V())
	})

	t.Run("null constant", func(t *testing.T) {
		cs := e.colStatScalar(opt.NullExpr, &input)
		require.Equal(t, 1.0, cs.NullsFraction.V())
		require.Equal(t, 0.0, cs.DistinctCount.V())
		require.True(t, cs.Low.Unknown())
	})

	t.Run("string constant", func(t *testing.T) {
		cs := e.colStatScalar(&opt.ConstExpr{Value: tree.NewDString("x")}, &input)
		require.Equal(t, 1.0, cs.DistinctCount.V())
		require.True(t, cs.Low.Unknown())
	})

	t.Run("variable", func(t *testing.T) {
		cs := e.colStatScalar(x, &input)
		require.Equal(t, 20.0, cs.DistinctCount.V())
	})

	t.Run("unary minus", func(t *testing.T) {
		cs := e.colStatScalar(&opt.UnaryMinusExpr{Input: x}, &input)
		require.Equal(t, -10.0, cs.Low.V())
		require.Equal(t, 10.0, cs.High.V())
		require.Equal(t, 20.0, cs.DistinctCount.V())
		require.Equal(t, 0.1, cs.NullsFraction.V())
	})

	t.Run("binary plus", func(t *testing.T) {
		plus := &opt.BinaryExpr{
			BinOp: opt.PlusOp,
			Left:  x,
			Right: &opt.ConstExpr{Value: tree.NewDInt(5)},
		}
		cs := e.colStatScalar(plus, &input)
		require.Equal(t, -5.0, cs.Low.V())
		require.Equal(t, 15.0, cs.High.V())
		require.Equal(t, 20.0, cs.DistinctCount.V())
		require.InDelta(t, 0.1, cs.NullsFraction.V(), 1e-12)
	})

	t.Run("binary div spanning zero", func(t *testing.T) {
		div := &opt.BinaryExpr{BinOp: opt.DivOp, Left: &opt.ConstExpr{Value: tree.NewDInt(1)}, Right: x}
		cs := e.colStatScalar(div, &input)
		require.True(t, cs.Low.Unknown())
		require.True(t, cs.High.Unknown())
	})

	t.Run("binary mod", func(t *testing.T) {
		mod := &opt.BinaryExpr{BinOp: opt.ModOp, Left: x, Right: &opt.ConstExpr{Value: tree.NewDInt(3)}}
		cs := e.colStatScalar(mod, &input)
		require.Equal(t, -3.0, cs.Low.V())
		require.Equal(t, 3.0, cs.High.V())
	})

	t.Run("cast to int", func(t *testing.T) {
		cs := e.colStatScalar(&opt.CastExpr{Input: x, Type: types.Int}, &input)
		require.Equal(t, -10.0, cs.Low.V())
		require.Equal(t, 10.0, cs.High.V())
		require.Equal(t, 20.0, cs.DistinctCount.V())
	})

	t.Run("cast to string keeps only nulls", func(t *testing.T) {
		cs := e.colStatScalar(&opt.CastExpr{Input: x, Type: types.String}, &input)
		require.Equal(t, 0.1, cs.NullsFraction.V())
		require.True(t, cs.Low.Unknown())
		require.True(t, cs.DistinctCount.Unknown())
	})

	t.Run("coalesce", func(t *testing.T) {
		co := &opt.CoalesceExpr{Args: []opt.ScalarExpr{
			x, &opt.ConstExpr{Value: tree.NewDInt(100)},
		}}
		cs := e.colStatScalar(co, &input)
		require.Equal(t, 0.0, cs.NullsFraction.V())
		require.Equal(t, 21.0, cs.DistinctCount.V())
		require.Equal(t, -10.0, cs.Low.V())
		require.Equal(t, 100.0, cs.High.V())
	})

	t.Run("function is unknown", func(t *testing.T) {
		fn := &opt.FunctionExpr{Name: "abs", Args: []opt.ScalarExpr{x}}
		require.True(t, e.colStatScalar(fn, &input).IsUnknown())
	})

	t.Run("gated by session setting", func(t *testing.T) {
		e2, sd := newTestEstimator(md)
		sd.SessionData().OptimizerUseScalarExprStats = false
		plus := &opt.BinaryExpr{BinOp: opt.PlusOp, Left: x, Right: x}
		require.True(t, e2.colStatScalar(plus, &input).IsUnknown())
		// Variables and constants are unaffected by the gate.
		require.Equal(t, 20.0, e2.colStatScalar(x, &input).DistinctCount.V())
	})
}
