// Copyright 2024 The Quarry Authors.
//
// Use of this software is governed by the Apache License, Version 2.0,
// included in the file LICENSE.

// Package types defines the column type descriptors used by the optimizer.
// Only the properties the statistics code cares about are modeled: the type
// family, an optional width, and whether values of the type are discrete on
// the numeric line.
package types

// Family classifies types into groups that share semantics.
type Family int

const (
	// UnknownFamily is used for NULL and untyped expressions.
	UnknownFamily Family = iota
	// BoolFamily is the family of booleans.
	BoolFamily
	// IntFamily is the family of signed integers of any width.
	IntFamily
	// FloatFamily is the family of 64-bit floats.
	FloatFamily
	// DecimalFamily is the family of arbitrary-precision decimals.
	DecimalFamily
	// StringFamily is the family of variable-length strings.
	StringFamily
	// TimestampFamily is the family of timestamps without time zone.
	TimestampFamily
	// DateFamily is the family of dates (whole days).
	DateFamily
)

// T is an immutable type descriptor. The exported singletons below cover
// every type the engine understands; code compares descriptors by pointer
// when possible and by family otherwise.
type T struct {
	family Family
	// width is the size in bits for IntFamily (0 means 64).
	width int32
	name  string
}

var (
	// Unknown is the type of NULL and of expressions with undetermined type.
	Unknown = &T{family: UnknownFamily, name: "unknown"}
	// Bool is the boolean type.
	Bool = &T{family: BoolFamily, name: "bool"}
	// Int is the 64-bit integer type.
	Int = &T{family: IntFamily, width: 64, name: "int"}
	// Int4 is the 32-bit integer type.
	Int4 = &T{family: IntFamily, width: 32, name: "int4"}
	// Int2 is the 16-bit integer type.
	Int2 = &T{family: IntFamily, width: 16, name: "int2"}
	// Float is the 64-bit float type.
	Float = &T{family: FloatFamily, name: "float"}
	// Decimal is the arbitrary-precision decimal type.
	Decimal = &T{family: DecimalFamily, name: "decimal"}
	// String is the variable-length string type.
	String = &T{family: StringFamily, name: "string"}
	// Timestamp is the timestamp-without-time-zone type.
	Timestamp = &T{family: TimestampFamily, name: "timestamp"}
	// Date is the date type.
	Date = &T{family: DateFamily, name: "date"}
)

// Family returns the type's family.
func (t *T) Family() Family { return t.family }

// Width returns the size in bits for integer types and 0 otherwise.
func (t *T) Width() int32 {
	if t.family == IntFamily {
		return t.width
	}
	return 0
}

// Name returns the SQL-ish name of the type.
func (t *T) Name() string { return t.name }

func (t *T) String() string { return t.name }

// IsNumeric returns true if values of the type live on the numeric line and
// support the range arithmetic used by the estimators. Timestamps and dates
// count: they map onto the line as epoch seconds and days.
func (t *T) IsNumeric() bool {
	switch t.family {
	case IntFamily, FloatFamily, DecimalFamily, TimestampFamily, DateFamily, BoolFamily:
		return true
	}
	return false
}

// IsDiscrete returns true if the type's values are integral points on the
// numeric line, which lets a finite range cap the number of distinct values.
func (t *T) IsDiscrete() bool {
	switch t.family {
	case IntFamily, DateFamily, BoolFamily:
		return true
	}
	return false
}
