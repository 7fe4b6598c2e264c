// Copyright 2024 The Quarry Authors.
//
// Use of this software is governed by the Apache License, Version 2.0,
// included in the file LICENSE.

package eval

import (
	"math"
	"testing"

	"github.com/quarrydb/quarry/pkg/sql/opt"
	"github.com/quarrydb/quarry/pkg/sql/sem/tree"
	"github.com/quarrydb/quarry/pkg/sql/types"
	"github.com/stretchr/testify/require"
)

func intConst(i int64) opt.ScalarExpr {
	return &opt.ConstExpr{Value: tree.NewDInt(i)}
}

func floatConst(f float64) opt.ScalarExpr {
	return &opt.ConstExpr{Value: tree.NewDFloat(f)}
}

func decimalConst(t *testing.T, s string) opt.ScalarExpr {
	t.Helper()
	d, err := tree.ParseDDecimal(s)
	require.NoError(t, err)
	return &opt.ConstExpr{Value: d}
}

func binary(op opt.BinaryOperator, l, r opt.ScalarExpr) opt.ScalarExpr {
	return &opt.BinaryExpr{BinOp: op, Left: l, Right: r}
}

func TestExprFolding(t *testing.T) {
	evalCtx := MakeTestingEvalContext()

	testCases := []struct {
		name     string
		expr     opt.ScalarExpr
		expected string
	}{
		{"const", intConst(42), "42"},
		{"negate", &opt.UnaryMinusExpr{Input: intConst(7)}, "-7"},
		{"int plus", binary(opt.PlusOp, intConst(2), intConst(3)), "5"},
		{"int minus", binary(opt.MinusOp, intConst(2), intConst(3)), "-1"},
		{"int mult", binary(opt.MultOp, intConst(6), intConst(7)), "42"},
		{"int div is exact", binary(opt.DivOp, intConst(7), intConst(2)), "3.5"},
		{"int mod", binary(opt.ModOp, intConst(7), intConst(3)), "1"},
		{"float plus", binary(opt.PlusOp, floatConst(1.5), floatConst(2)), "3.5"},
		{"mixed int float", binary(opt.MultOp, intConst(2), floatConst(1.5)), "3"},
		{"decimal plus", binary(opt.PlusOp, decimalConst(t, "1.1"), decimalConst(t, "2.2")), "3.3"},
		{"decimal int mixed", binary(opt.MultOp, decimalConst(t, "1.5"), intConst(4)), "6.0"},
		{"nested", binary(opt.PlusOp,
			binary(opt.MultOp, intConst(2), intConst(3)), intConst(4)), "10"},
		{"null propagates", binary(opt.PlusOp, opt.NullExpr, intConst(1)), "NULL"},
		{"coalesce picks first non-null", &opt.CoalesceExpr{Args: []opt.ScalarExpr{
			opt.NullExpr, intConst(3), intConst(4)}}, "3"},
		{"coalesce all null", &opt.CoalesceExpr{Args: []opt.ScalarExpr{
			opt.NullExpr, opt.NullExpr}}, "NULL"},
		{"cast float to int truncates", &opt.CastExpr{Input: floatConst(3.7), Type: types.Int}, "3"},
		{"cast int to float", &opt.CastExpr{Input: intConst(3), Type: types.Float}, "3"},
		{"cast int to string", &opt.CastExpr{Input: intConst(3), Type: types.String}, `"3"`},
		{"cast bool to int", &opt.CastExpr{Input: opt.TrueExpr, Type: types.Int}, "1"},
		{"cast float to bool", &opt.CastExpr{Input: floatConst(0), Type: types.Bool}, "false"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			d, ok := Expr(&evalCtx, tc.expr)
			require.True(t, ok)
			require.Equal(t, tc.expected, d.String())
		})
	}
}

func TestExprFoldingFails(t *testing.T) {
	evalCtx := MakeTestingEvalContext()

	maxInt := intConst(math.MaxInt64)
	minInt := intConst(math.MinInt64)

	testCases := []struct {
		name string
		expr opt.ScalarExpr
	}{
		{"variable", &opt.VariableExpr{Col: 1}},
		{"int overflow", binary(opt.PlusOp, maxInt, intConst(1))},
		{"int underflow", binary(opt.MinusOp, minInt, intConst(1))},
		{"mult overflow", binary(opt.MultOp, maxInt, intConst(2))},
		{"negate min int", &opt.UnaryMinusExpr{Input: minInt}},
		{"div by zero", binary(opt.DivOp, intConst(1), intConst(0))},
		{"float div by zero", binary(opt.DivOp, floatConst(1), floatConst(0))},
		{"mod by zero", binary(opt.ModOp, intConst(1), intConst(0))},
		{"decimal div by zero", binary(opt.DivOp, decimalConst(t, "1"), decimalConst(t, "0"))},
		{"float overflow to inf", binary(opt.MultOp, floatConst(1e308), floatConst(10))},
		{"cast of unfoldable input", &opt.CastExpr{Input: binary(
			opt.DivOp, floatConst(1), floatConst(0)), Type: types.Int}},
		{"variable operand", binary(opt.PlusOp, intConst(1), &opt.VariableExpr{Col: 1})},
		{"comparison is not a constant", &opt.ComparisonExpr{
			CompareOp: opt.EqOp, Left: intConst(1), Right: intConst(1)}},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, ok := Expr(&evalCtx, tc.expr)
			require.False(t, ok)
		})
	}
}
