// Copyright 2024 The Quarry Authors.
//
// Use of this software is governed by the Apache License, Version 2.0,
// included in the file LICENSE.

// Package tree holds the typed literal values (datums) that appear in scalar
// expressions handed to the optimizer.
package tree

import (
	"fmt"
	"strconv"
	"time"

	"github.com/cockroachdb/apd/v3"
	"github.com/cockroachdb/errors"
	"github.com/quarrydb/quarry/pkg/sql/types"
)

// A Datum holds a typed literal value.
type Datum interface {
	fmt.Stringer

	// ResolvedType returns the type of the datum.
	ResolvedType() *types.T

	// Compare returns -1 if the receiver is less than other, 0 if the receiver
	// is equal to other and +1 if the receiver is greater than other. NULL
	// sorts before every other value. Comparing datums of incomparable types
	// is a programming error.
	Compare(other Datum) int
}

// DNull is the NULL Datum.
var DNull Datum = dNull{}

type dNull struct{}

func (dNull) ResolvedType() *types.T { return types.Unknown }

func (dNull) Compare(other Datum) int {
	if other == DNull {
		return 0
	}
	return -1
}

func (dNull) String() string { return "NULL" }

// DBool is the boolean Datum.
type DBool bool

// DBoolTrue and DBoolFalse avoid allocating on each use of a boolean literal.
var (
	DBoolTrue  = DBool(true)
	DBoolFalse = DBool(false)
)

// MakeDBool converts a bool to the shared Datum values.
func MakeDBool(b bool) *DBool {
	if b {
		return &DBoolTrue
	}
	return &DBoolFalse
}

// ResolvedType implements the Datum interface.
func (d *DBool) ResolvedType() *types.T { return types.Bool }

// Compare implements the Datum interface.
func (d *DBool) Compare(other Datum) int {
	if other == DNull {
		return 1
	}
	o := mustBeNumeric(other, d)
	return compareFloats(boolToFloat(bool(*d)), o)
}

func (d *DBool) String() string {
	if *d {
		return "true"
	}
	return "false"
}

// DInt is the int64 Datum.
type DInt int64

// NewDInt allocates a DInt.
func NewDInt(i int64) *DInt {
	d := DInt(i)
	return &d
}

// ResolvedType implements the Datum interface.
func (d *DInt) ResolvedType() *types.T { return types.Int }

// Compare implements the Datum interface.
func (d *DInt) Compare(other Datum) int {
	if other == DNull {
		return 1
	}
	if o, ok := other.(*DInt); ok {
		switch {
		case *d < *o:
			return -1
		case *d > *o:
			return 1
		}
		return 0
	}
	return compareFloats(float64(*d), mustBeNumeric(other, d))
}

func (d *DInt) String() string { return strconv.FormatInt(int64(*d), 10) }

// DFloat is the float64 Datum.
type DFloat float64

// NewDFloat allocates a DFloat.
func NewDFloat(f float64) *DFloat {
	d := DFloat(f)
	return &d
}

// ResolvedType implements the Datum interface.
func (d *DFloat) ResolvedType() *types.T { return types.Float }

// Compare implements the Datum interface.
func (d *DFloat) Compare(other Datum) int {
	if other == DNull {
		return 1
	}
	return compareFloats(float64(*d), mustBeNumeric(other, d))
}

func (d *DFloat) String() string { return strconv.FormatFloat(float64(*d), 'g', -1, 64) }

// DDecimal is the arbitrary-precision decimal Datum.
type DDecimal struct {
	apd.Decimal
}

// NewDDecimal allocates a DDecimal from an apd.Decimal.
func NewDDecimal(d *apd.Decimal) *DDecimal {
	dd := &DDecimal{}
	dd.Set(d)
	return dd
}

// ParseDDecimal parses a decimal literal.
func ParseDDecimal(s string) (*DDecimal, error) {
	dd := &DDecimal{}
	if _, _, err := dd.SetString(s); err != nil {
		return nil, errors.Wrapf(err, "could not parse %q as decimal", s)
	}
	return dd, nil
}

// ResolvedType implements the Datum interface.
func (d *DDecimal) ResolvedType() *types.T { return types.Decimal }

// Compare implements the Datum interface.
func (d *DDecimal) Compare(other Datum) int {
	if other == DNull {
		return 1
	}
	if o, ok := other.(*DDecimal); ok {
		return d.Cmp(&o.Decimal)
	}
	f, _ := d.Float64()
	return compareFloats(f, mustBeNumeric(other, d))
}

func (d *DDecimal) String() string { return d.Decimal.String() }

// DString is the string Datum.
type DString string

// NewDString allocates a DString.
func NewDString(s string) *DString {
	d := DString(s)
	return &d
}

// ResolvedType implements the Datum interface.
func (d *DString) ResolvedType() *types.T { return types.String }

// Compare implements the Datum interface.
func (d *DString) Compare(other Datum) int {
	if other == DNull {
		return 1
	}
	o, ok := other.(*DString)
	if !ok {
		panic(makeUnsupportedComparisonError(d, other))
	}
	switch {
	case *d < *o:
		return -1
	case *d > *o:
		return 1
	}
	return 0
}

func (d *DString) String() string { return strconv.Quote(string(*d)) }

// DTimestamp is the timestamp Datum, always in UTC.
type DTimestamp struct {
	Time time.Time
}

// MakeDTimestamp creates a DTimestamp, truncating to microsecond precision.
func MakeDTimestamp(t time.Time) *DTimestamp {
	return &DTimestamp{Time: t.UTC().Truncate(time.Microsecond)}
}

// ResolvedType implements the Datum interface.
func (d *DTimestamp) ResolvedType() *types.T { return types.Timestamp }

// Compare implements the Datum interface.
func (d *DTimestamp) Compare(other Datum) int {
	if other == DNull {
		return 1
	}
	if o, ok := other.(*DTimestamp); ok {
		switch {
		case d.Time.Before(o.Time):
			return -1
		case o.Time.Before(d.Time):
			return 1
		}
		return 0
	}
	return compareFloats(UnixSeconds(d.Time), mustBeNumeric(other, d))
}

func (d *DTimestamp) String() string { return d.Time.Format("2006-01-02 15:04:05.999999") }

// UnixSeconds places a timestamp on the stats number line as fractional
// seconds since the Unix epoch.
func UnixSeconds(t time.Time) float64 {
	return float64(t.Unix()) + float64(t.Nanosecond())/1e9
}

// DDate is the date Datum, stored as days since the Unix epoch.
type DDate int64

// NewDDate allocates a DDate.
func NewDDate(days int64) *DDate {
	d := DDate(days)
	return &d
}

// ResolvedType implements the Datum interface.
func (d *DDate) ResolvedType() *types.T { return types.Date }

// Compare implements the Datum interface.
func (d *DDate) Compare(other Datum) int {
	if other == DNull {
		return 1
	}
	if o, ok := other.(*DDate); ok {
		switch {
		case *d < *o:
			return -1
		case *d > *o:
			return 1
		}
		return 0
	}
	return compareFloats(float64(*d), mustBeNumeric(other, d))
}

func (d *DDate) String() string {
	return time.Unix(int64(*d)*86400, 0).UTC().Format("2006-01-02")
}

func boolToFloat(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

func compareFloats(l, r float64) int {
	switch {
	case l < r:
		return -1
	case l > r:
		return 1
	}
	return 0
}

// mustBeNumeric returns the other datum's position on the numeric line, for
// cross-type numeric comparisons. Non-numeric others are a contract
// violation: the analyzer must have rejected the comparison.
func mustBeNumeric(other Datum, self Datum) float64 {
	switch o := other.(type) {
	case *DBool:
		return boolToFloat(bool(*o))
	case *DInt:
		return float64(*o)
	case *DFloat:
		return float64(*o)
	case *DDecimal:
		f, _ := o.Float64()
		return f
	case *DTimestamp:
		return UnixSeconds(o.Time)
	case *DDate:
		return float64(*o)
	}
	panic(makeUnsupportedComparisonError(self, other))
}

func makeUnsupportedComparisonError(l, r Datum) error {
	return errors.AssertionFailedf(
		"unsupported comparison: %s to %s", l.ResolvedType(), r.ResolvedType())
}
