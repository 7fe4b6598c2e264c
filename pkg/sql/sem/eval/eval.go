// Copyright 2024 The Quarry Authors.
//
// Use of this software is governed by the Apache License, Version 2.0,
// included in the file LICENSE.

package eval

import (
	"math"

	"github.com/cockroachdb/apd/v3"
	"github.com/quarrydb/quarry/pkg/sql/opt"
	"github.com/quarrydb/quarry/pkg/sql/sem/tree"
	"github.com/quarrydb/quarry/pkg/sql/types"
)

// decimalCtx is the arithmetic context used when folding decimal operations.
var decimalCtx = apd.BaseContext.WithPrecision(20)

// Expr constant-folds the given scalar expression. The second return value is
// false if the expression is not a constant, or if folding it would raise an
// error (overflow, division by zero). Folding never panics on well-typed
// input: an unfoldable expression is normal data flow for the estimators,
// which degrade to range arithmetic or unknown.
func Expr(evalCtx *Context, e opt.ScalarExpr) (tree.Datum, bool) {
	switch t := e.(type) {
	case *opt.ConstExpr:
		return t.Value, true

	case *opt.UnaryMinusExpr:
		d, ok := Expr(evalCtx, t.Input)
		if !ok {
			return nil, false
		}
		if d == tree.DNull {
			return tree.DNull, true
		}
		return negate(d)

	case *opt.BinaryExpr:
		l, ok := Expr(evalCtx, t.Left)
		if !ok {
			return nil, false
		}
		r, ok := Expr(evalCtx, t.Right)
		if !ok {
			return nil, false
		}
		if l == tree.DNull || r == tree.DNull {
			return tree.DNull, true
		}
		return foldBinary(t.BinOp, l, r)

	case *opt.CastExpr:
		d, ok := Expr(evalCtx, t.Input)
		if !ok {
			return nil, false
		}
		return castDatum(d, t.Type)

	case *opt.CoalesceExpr:
		for _, arg := range t.Args {
			d, ok := Expr(evalCtx, arg)
			if !ok {
				return nil, false
			}
			if d != tree.DNull {
				return d, true
			}
		}
		return tree.DNull, true
	}
	return nil, false
}

func negate(d tree.Datum) (tree.Datum, bool) {
	switch v := d.(type) {
	case *tree.DInt:
		if int64(*v) == math.MinInt64 {
			return nil, false
		}
		return tree.NewDInt(-int64(*v)), true
	case *tree.DFloat:
		return tree.NewDFloat(-float64(*v)), true
	case *tree.DDecimal:
		res := &tree.DDecimal{}
		res.Neg(&v.Decimal)
		return res, true
	}
	return nil, false
}

func foldBinary(op opt.BinaryOperator, l, r tree.Datum) (tree.Datum, bool) {
	li, lIsInt := l.(*tree.DInt)
	ri, rIsInt := r.(*tree.DInt)
	if lIsInt && rIsInt {
		return foldIntBinary(op, int64(*li), int64(*ri))
	}
	if ld, ok := l.(*tree.DDecimal); ok {
		if rd, ok := decimalOperand(r); ok {
			return foldDecimalBinary(op, &ld.Decimal, rd)
		}
		return nil, false
	}
	if rd, ok := r.(*tree.DDecimal); ok {
		if ld, ok := decimalOperand(l); ok {
			return foldDecimalBinary(op, ld, &rd.Decimal)
		}
		return nil, false
	}
	lf, lOK := floatOperand(l)
	rf, rOK := floatOperand(r)
	if !lOK || !rOK {
		return nil, false
	}
	return foldFloatBinary(op, lf, rf)
}

func foldIntBinary(op opt.BinaryOperator, l, r int64) (tree.Datum, bool) {
	switch op {
	case opt.PlusOp:
		res := l + r
		if (res > l) != (r > 0) {
			return nil, false
		}
		return tree.NewDInt(res), true
	case opt.MinusOp:
		res := l - r
		if (res < l) != (r > 0) {
			return nil, false
		}
		return tree.NewDInt(res), true
	case opt.MultOp:
		if l == 0 || r == 0 {
			return tree.NewDInt(0), true
		}
		res := l * r
		if res/r != l || (l == math.MinInt64 && r == -1) || (r == math.MinInt64 && l == -1) {
			return nil, false
		}
		return tree.NewDInt(res), true
	case opt.DivOp:
		// SQL integer division of non-multiples is exact, so fold in floats.
		if r == 0 {
			return nil, false
		}
		return tree.NewDFloat(float64(l) / float64(r)), true
	case opt.ModOp:
		if r == 0 || (l == math.MinInt64 && r == -1) {
			return nil, false
		}
		return tree.NewDInt(l % r), true
	}
	return nil, false
}

func foldFloatBinary(op opt.BinaryOperator, l, r float64) (tree.Datum, bool) {
	var res float64
	switch op {
	case opt.PlusOp:
		res = l + r
	case opt.MinusOp:
		res = l - r
	case opt.MultOp:
		res = l * r
	case opt.DivOp:
		if r == 0 {
			return nil, false
		}
		res = l / r
	case opt.ModOp:
		if r == 0 {
			return nil, false
		}
		res = math.Mod(l, r)
	default:
		return nil, false
	}
	if math.IsNaN(res) || math.IsInf(res, 0) {
		return nil, false
	}
	return tree.NewDFloat(res), true
}

func foldDecimalBinary(op opt.BinaryOperator, l, r *apd.Decimal) (tree.Datum, bool) {
	res := &tree.DDecimal{}
	var err error
	switch op {
	case opt.PlusOp:
		_, err = decimalCtx.Add(&res.Decimal, l, r)
	case opt.MinusOp:
		_, err = decimalCtx.Sub(&res.Decimal, l, r)
	case opt.MultOp:
		_, err = decimalCtx.Mul(&res.Decimal, l, r)
	case opt.DivOp:
		if r.IsZero() {
			return nil, false
		}
		_, err = decimalCtx.Quo(&res.Decimal, l, r)
	case opt.ModOp:
		if r.IsZero() {
			return nil, false
		}
		_, err = decimalCtx.Rem(&res.Decimal, l, r)
	default:
		return nil, false
	}
	if err != nil {
		return nil, false
	}
	return res, true
}

func decimalOperand(d tree.Datum) (*apd.Decimal, bool) {
	switch v := d.(type) {
	case *tree.DDecimal:
		return &v.Decimal, true
	case *tree.DInt:
		var dec apd.Decimal
		dec.SetInt64(int64(*v))
		return &dec, true
	}
	return nil, false
}

func floatOperand(d tree.Datum) (float64, bool) {
	switch v := d.(type) {
	case *tree.DInt:
		return float64(*v), true
	case *tree.DFloat:
		return float64(*v), true
	case *tree.DDecimal:
		f, err := v.Float64()
		if err != nil {
			return 0, false
		}
		return f, true
	}
	return 0, false
}

func castDatum(d tree.Datum, typ *types.T) (tree.Datum, bool) {
	if d == tree.DNull {
		return tree.DNull, true
	}
	if d.ResolvedType().Family() == typ.Family() {
		return d, true
	}
	switch typ.Family() {
	case types.IntFamily:
		f, ok := floatOperand(d)
		if b, isBool := d.(*tree.DBool); isBool {
			f, ok = 0, true
			if bool(*b) {
				f = 1
			}
		}
		if !ok || math.IsNaN(f) || f < math.MinInt64 || f > math.MaxInt64 {
			return nil, false
		}
		return tree.NewDInt(int64(f)), true
	case types.FloatFamily:
		f, ok := floatOperand(d)
		if !ok {
			return nil, false
		}
		return tree.NewDFloat(f), true
	case types.DecimalFamily:
		dec, ok := decimalOperand(d)
		if !ok {
			if f, isFloat := d.(*tree.DFloat); isFloat {
				res := &tree.DDecimal{}
				if _, err := res.SetFloat64(float64(*f)); err != nil {
					return nil, false
				}
				return res, true
			}
			return nil, false
		}
		return tree.NewDDecimal(dec), true
	case types.BoolFamily:
		f, ok := floatOperand(d)
		if !ok {
			return nil, false
		}
		return tree.MakeDBool(f != 0), true
	case types.StringFamily:
		return tree.NewDString(d.String()), true
	}
	return nil, false
}
