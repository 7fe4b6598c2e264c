// Copyright 2024 The Quarry Authors.
//
// Use of this software is governed by the Apache License, Version 2.0,
// included in the file LICENSE.

package opt

import (
	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/redact"
	"github.com/quarrydb/quarry/pkg/sql/types"
)

// ColumnMeta stores information about one of the columns tracked by the
// metadata.
type ColumnMeta struct {
	// MetaID is the identifier for this column that is unique within the query
	// metadata.
	MetaID ColumnID

	// Alias is the best-effort name of this column. Since the same column can
	// have multiple aliases, one of those is chosen to be used for pretty
	// printing and debugging. This might be different than what is stored in
	// the physical properties and is presented to end users.
	Alias string

	// Type is the scalar SQL type of this column.
	Type *types.T
}

// Metadata assigns unique ids to the columns used within in the scope of a
// particular query plan. Every column reference in a scalar expression is a
// ColumnID assigned by a Metadata, and the per-column statistics maps are
// keyed by the same ids. The metadata also serves as the symbol-to-type
// binding table used by the estimators.
//
// Even though the metadata's MetaID is unique within a query, more than one
// column in the query can have the same alias: the id, not the alias, is the
// identity of a column.
type Metadata struct {
	// cols stores information about each metadata column, indexed by
	// ColumnID.index().
	cols []ColumnMeta
}

// AddColumn assigns a new unique id to a column and records its alias and
// type. ColumnIDs are assigned from 1; 0 is reserved to mean "unknown
// column".
func (md *Metadata) AddColumn(alias string, typ *types.T) ColumnID {
	if typ == nil {
		panic(errors.AssertionFailedf("column %s must have a type", alias))
	}
	colID := ColumnID(len(md.cols) + 1)
	md.cols = append(md.cols, ColumnMeta{MetaID: colID, Alias: alias, Type: typ})
	return colID
}

// NumColumns returns the count of columns tracked by this Metadata instance.
func (md *Metadata) NumColumns() int {
	return len(md.cols)
}

// ColumnMeta looks up the metadata for the column associated with the given
// column id. The same column can be added multiple times to the query
// metadata and associated with multiple column ids.
func (md *Metadata) ColumnMeta(colID ColumnID) *ColumnMeta {
	if colID < 1 || int(colID) > len(md.cols) {
		panic(errors.AssertionFailedf("invalid column id %d", redact.Safe(colID)))
	}
	return &md.cols[colID-1]
}

// HasColumn returns true if the column id was assigned by this metadata.
func (md *Metadata) HasColumn(colID ColumnID) bool {
	return colID >= 1 && int(colID) <= len(md.cols)
}
