// Copyright 2024 The Quarry Authors.
//
// Use of this software is governed by the Apache License, Version 2.0,
// included in the file LICENSE.

package stats

import (
	"math"

	"github.com/quarrydb/quarry/pkg/sql/sem/tree"
)

// statsValue places a datum on the stats number line: integers and floats
// directly, decimals through their float approximation, booleans as 0/1,
// timestamps as epoch seconds and dates as epoch days. The second return
// value is false for values with no numeric position (strings, NULL).
func statsValue(d tree.Datum) (float64, bool) {
	switch v := d.(type) {
	case *tree.DBool:
		if *v {
			return 1, true
		}
		return 0, true
	case *tree.DInt:
		return float64(*v), true
	case *tree.DFloat:
		f := float64(*v)
		if math.IsNaN(f) {
			return 0, false
		}
		return f, true
	case *tree.DDecimal:
		f, err := v.Float64()
		if err != nil || math.IsNaN(f) {
			return 0, false
		}
		return f, true
	case *tree.DTimestamp:
		return tree.UnixSeconds(v.Time), true
	case *tree.DDate:
		return float64(*v), true
	}
	return 0, false
}
