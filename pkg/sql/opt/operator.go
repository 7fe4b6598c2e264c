// Copyright 2024 The Quarry Authors.
//
// Use of this software is governed by the Apache License, Version 2.0,
// included in the file LICENSE.

package opt

import "fmt"

// Operator describes the kind of a scalar expression node.
type Operator uint8

const (
	// UnknownOp should never appear in a well-formed expression.
	UnknownOp Operator = iota

	// ConstOp is a leaf expression that has a constant value.
	ConstOp

	// VariableOp is a leaf expression that represents a column reference.
	VariableOp

	// AndOp is the boolean conjunction of two or more terms.
	AndOp

	// OrOp is the boolean disjunction of two or more terms.
	OrOp

	// NotOp is the boolean negation of its input.
	NotOp

	// ComparisonOp compares two scalar operands (=, <, <=, >, >=, <>).
	ComparisonOp

	// BetweenOp is the ternary range predicate "input BETWEEN lower AND upper".
	BetweenOp

	// InOp is the list membership predicate "input IN (e1, e2, ...)".
	InOp

	// IsNullOp is the predicate "input IS NULL".
	IsNullOp

	// IsNotNullOp is the predicate "input IS NOT NULL".
	IsNotNullOp

	// FunctionOp is a call to a named function.
	FunctionOp

	// CoalesceOp returns the first non-NULL argument.
	CoalesceOp

	// UnaryMinusOp negates its numeric input.
	UnaryMinusOp

	// BinaryOp combines two scalar operands with an arithmetic operator.
	BinaryOp

	// CastOp converts its input to another type.
	CastOp

	// NumOperators should be last.
	NumOperators
)

var operatorNames = [NumOperators]string{
	UnknownOp:    "unknown",
	ConstOp:      "const",
	VariableOp:   "variable",
	AndOp:        "and",
	OrOp:         "or",
	NotOp:        "not",
	ComparisonOp: "comparison",
	BetweenOp:    "between",
	InOp:         "in",
	IsNullOp:     "is-null",
	IsNotNullOp:  "is-not-null",
	FunctionOp:   "function",
	CoalesceOp:   "coalesce",
	UnaryMinusOp: "unary-minus",
	BinaryOp:     "binary",
	CastOp:       "cast",
}

func (op Operator) String() string {
	if op >= NumOperators {
		return fmt.Sprintf("operator(%d)", uint8(op))
	}
	return operatorNames[op]
}

// ComparisonOperator is the operator of a ComparisonExpr.
type ComparisonOperator uint8

const (
	// EqOp is the = operator.
	EqOp ComparisonOperator = iota
	// LtOp is the < operator.
	LtOp
	// GtOp is the > operator.
	GtOp
	// LeOp is the <= operator.
	LeOp
	// GeOp is the >= operator.
	GeOp
	// NeOp is the <> operator.
	NeOp

	// NumComparisonOperators should be last.
	NumComparisonOperators
)

var comparisonOpNames = [NumComparisonOperators]string{
	EqOp: "=",
	LtOp: "<",
	GtOp: ">",
	LeOp: "<=",
	GeOp: ">=",
	NeOp: "<>",
}

func (op ComparisonOperator) String() string {
	if op >= NumComparisonOperators {
		return fmt.Sprintf("comparison-operator(%d)", uint8(op))
	}
	return comparisonOpNames[op]
}

// CommuteComparison returns the comparison operator that produces an
// equivalent predicate when the operands are swapped: a < b equals b > a.
func CommuteComparison(op ComparisonOperator) ComparisonOperator {
	switch op {
	case EqOp, NeOp:
		return op
	case LtOp:
		return GtOp
	case GtOp:
		return LtOp
	case LeOp:
		return GeOp
	case GeOp:
		return LeOp
	}
	return op
}

// BinaryOperator is the operator of a BinaryExpr.
type BinaryOperator uint8

const (
	// PlusOp is the + operator.
	PlusOp BinaryOperator = iota
	// MinusOp is the - operator.
	MinusOp
	// MultOp is the * operator.
	MultOp
	// DivOp is the / operator.
	DivOp
	// ModOp is the % operator.
	ModOp

	// NumBinaryOperators should be last.
	NumBinaryOperators
)

var binaryOpNames = [NumBinaryOperators]string{
	PlusOp:  "+",
	MinusOp: "-",
	MultOp:  "*",
	DivOp:   "/",
	ModOp:   "%",
}

func (op BinaryOperator) String() string {
	if op >= NumBinaryOperators {
		return fmt.Sprintf("binary-operator(%d)", uint8(op))
	}
	return binaryOpNames[op]
}
