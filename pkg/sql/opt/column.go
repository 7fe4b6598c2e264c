// Copyright 2024 The Quarry Authors.
//
// Use of this software is governed by the Apache License, Version 2.0,
// included in the file LICENSE.

// Package opt holds the scalar expression tree and column metadata consumed
// by the statistics estimators.
package opt

import (
	"github.com/quarrydb/quarry/pkg/util"
)

// ColumnID uniquely identifies the usage of a column within the scope of a
// query. ColumnID 0 is reserved to mean "unknown column". See the comment for
// Metadata for more details.
type ColumnID int32

// ColSet efficiently stores an unordered set of column ids.
type ColSet = util.FastIntSet

// ColList is a list of column ids.
type ColList = []ColumnID

// ColSetToList converts a column id set to a column id list, in ascending
// order.
func ColSetToList(colSet ColSet) ColList {
	colList := make(ColList, 0, colSet.Len())
	colSet.ForEach(func(i int) {
		colList = append(colList, ColumnID(i))
	})
	return colList
}
