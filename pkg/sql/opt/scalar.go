// Copyright 2024 The Quarry Authors.
//
// Use of this software is governed by the Apache License, Version 2.0,
// included in the file LICENSE.

package opt

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/quarrydb/quarry/pkg/sql/sem/tree"
	"github.com/quarrydb/quarry/pkg/sql/types"
)

// DynamicFilterFunction is the name of the function call that marks a
// dynamic filter. Dynamic filters are pushed into scans at execution time;
// during planning the marker passes every row, so the estimators treat it as
// TRUE.
const DynamicFilterFunction = "$dynamic_filter"

// ScalarExpr is a node in a scalar expression tree. Expressions handed to the
// estimators are already type-checked, so the tree carries no type
// annotations beyond what constants and column references imply.
//
// Expressions are immutable once built and safe to share between concurrent
// estimation passes.
type ScalarExpr interface {
	fmt.Stringer

	// Op returns the kind of this expression node.
	Op() Operator
}

// ConstExpr is a constant value, including the boolean literals and NULL.
type ConstExpr struct {
	Value tree.Datum
}

// TrueExpr and FalseExpr are the boolean literal singletons.
var (
	TrueExpr  = &ConstExpr{Value: tree.MakeDBool(true)}
	FalseExpr = &ConstExpr{Value: tree.MakeDBool(false)}
	NullExpr  = &ConstExpr{Value: tree.DNull}
)

// Op is part of the ScalarExpr interface.
func (e *ConstExpr) Op() Operator { return ConstOp }

func (e *ConstExpr) String() string { return e.Value.String() }

// VariableExpr is a reference to a column by id.
type VariableExpr struct {
	Col ColumnID
}

// Op is part of the ScalarExpr interface.
func (e *VariableExpr) Op() Operator { return VariableOp }

func (e *VariableExpr) String() string { return fmt.Sprintf("@%d", e.Col) }

// AndExpr is the n-ary boolean conjunction of its terms, evaluated left to
// right. It always has at least two terms.
type AndExpr struct {
	Terms []ScalarExpr
}

// Op is part of the ScalarExpr interface.
func (e *AndExpr) Op() Operator { return AndOp }

func (e *AndExpr) String() string { return formatNary("AND", e.Terms) }

// OrExpr is the n-ary boolean disjunction of its terms. It always has at
// least two terms.
type OrExpr struct {
	Terms []ScalarExpr
}

// Op is part of the ScalarExpr interface.
func (e *OrExpr) Op() Operator { return OrOp }

func (e *OrExpr) String() string { return formatNary("OR", e.Terms) }

// NotExpr is the boolean negation of its input.
type NotExpr struct {
	Input ScalarExpr
}

// Op is part of the ScalarExpr interface.
func (e *NotExpr) Op() Operator { return NotOp }

func (e *NotExpr) String() string { return fmt.Sprintf("NOT (%s)", e.Input) }

// ComparisonExpr compares two scalar operands.
type ComparisonExpr struct {
	CompareOp ComparisonOperator
	Left      ScalarExpr
	Right     ScalarExpr
}

// Op is part of the ScalarExpr interface.
func (e *ComparisonExpr) Op() Operator { return ComparisonOp }

func (e *ComparisonExpr) String() string {
	return fmt.Sprintf("(%s %s %s)", e.Left, e.CompareOp, e.Right)
}

// BetweenExpr is the range predicate "input BETWEEN lower AND upper", with
// both endpoints inclusive.
type BetweenExpr struct {
	Input ScalarExpr
	Lower ScalarExpr
	Upper ScalarExpr
}

// Op is part of the ScalarExpr interface.
func (e *BetweenExpr) Op() Operator { return BetweenOp }

func (e *BetweenExpr) String() string {
	return fmt.Sprintf("(%s BETWEEN %s AND %s)", e.Input, e.Lower, e.Upper)
}

// InExpr is the list membership predicate "input IN (e1, e2, ...)".
type InExpr struct {
	Input ScalarExpr
	List  []ScalarExpr
}

// Op is part of the ScalarExpr interface.
func (e *InExpr) Op() Operator { return InOp }

func (e *InExpr) String() string {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "(%s IN (", e.Input)
	for i, elem := range e.List {
		if i > 0 {
			buf.WriteString(", ")
		}
		buf.WriteString(elem.String())
	}
	buf.WriteString("))")
	return buf.String()
}

// IsNullExpr is the predicate "input IS NULL".
type IsNullExpr struct {
	Input ScalarExpr
}

// Op is part of the ScalarExpr interface.
func (e *IsNullExpr) Op() Operator { return IsNullOp }

func (e *IsNullExpr) String() string { return fmt.Sprintf("(%s IS NULL)", e.Input) }

// IsNotNullExpr is the predicate "input IS NOT NULL".
type IsNotNullExpr struct {
	Input ScalarExpr
}

// Op is part of the ScalarExpr interface.
func (e *IsNotNullExpr) Op() Operator { return IsNotNullOp }

func (e *IsNotNullExpr) String() string { return fmt.Sprintf("(%s IS NOT NULL)", e.Input) }

// FunctionExpr is a call to a named function. The estimators understand no
// functions except the dynamic filter marker; everything else estimates as
// unknown.
type FunctionExpr struct {
	Name string
	Args []ScalarExpr
}

// Op is part of the ScalarExpr interface.
func (e *FunctionExpr) Op() Operator { return FunctionOp }

func (e *FunctionExpr) String() string {
	args := make([]string, len(e.Args))
	for i := range e.Args {
		args[i] = e.Args[i].String()
	}
	return fmt.Sprintf("%s(%s)", e.Name, strings.Join(args, ", "))
}

// CoalesceExpr returns the first non-NULL argument. It always has at least
// one argument.
type CoalesceExpr struct {
	Args []ScalarExpr
}

// Op is part of the ScalarExpr interface.
func (e *CoalesceExpr) Op() Operator { return CoalesceOp }

func (e *CoalesceExpr) String() string {
	args := make([]string, len(e.Args))
	for i := range e.Args {
		args[i] = e.Args[i].String()
	}
	return fmt.Sprintf("COALESCE(%s)", strings.Join(args, ", "))
}

// UnaryMinusExpr negates its numeric input.
type UnaryMinusExpr struct {
	Input ScalarExpr
}

// Op is part of the ScalarExpr interface.
func (e *UnaryMinusExpr) Op() Operator { return UnaryMinusOp }

func (e *UnaryMinusExpr) String() string { return fmt.Sprintf("(-%s)", e.Input) }

// BinaryExpr combines two scalar operands with an arithmetic operator.
type BinaryExpr struct {
	BinOp BinaryOperator
	Left  ScalarExpr
	Right ScalarExpr
}

// Op is part of the ScalarExpr interface.
func (e *BinaryExpr) Op() Operator { return BinaryOp }

func (e *BinaryExpr) String() string {
	return fmt.Sprintf("(%s %s %s)", e.Left, e.BinOp, e.Right)
}

// CastExpr converts its input to another type.
type CastExpr struct {
	Input ScalarExpr
	Type  *types.T
}

// Op is part of the ScalarExpr interface.
func (e *CastExpr) Op() Operator { return CastOp }

func (e *CastExpr) String() string { return fmt.Sprintf("(%s::%s)", e.Input, e.Type) }

func formatNary(op string, terms []ScalarExpr) string {
	var buf bytes.Buffer
	for i, term := range terms {
		if i > 0 {
			buf.WriteByte(' ')
			buf.WriteString(op)
			buf.WriteByte(' ')
		}
		fmt.Fprintf(&buf, "(%s)", term)
	}
	return buf.String()
}
