// Copyright 2024 The Quarry Authors.
//
// Use of this software is governed by the Apache License, Version 2.0,
// included in the file LICENSE.

package props

import (
	"bytes"
	"fmt"

	"github.com/cockroachdb/errors"
	"github.com/olekukonko/tablewriter"
	"github.com/quarrydb/quarry/pkg/sql/opt"
	"github.com/quarrydb/quarry/pkg/util/humanizeutil"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

// Statistics is the statistical summary of the row set produced by a plan
// node: the estimated number of rows and a per-column summary for every
// column with known statistics. Columns absent from the map are implicitly
// unknown.
//
// The zero value is the fully unknown Statistics. A Statistics is immutable
// once built; estimators derive new ones through StatsBuilder.
type Statistics struct {
	// RowCount is the estimated number of rows, fractional estimates allowed.
	RowCount Stat

	// colStats maps column ids to their summaries. Only columns with at
	// least one known field appear.
	colStats map[opt.ColumnID]ColumnStatistic
}

// Unknown returns the fully unknown Statistics.
func Unknown() Statistics {
	return Statistics{}
}

// ColumnStatistic returns the summary for the given column, and false if the
// column has no known statistics.
func (s *Statistics) ColumnStatistic(col opt.ColumnID) (ColumnStatistic, bool) {
	cs, ok := s.colStats[col]
	return cs, ok
}

// ColumnStatisticOrUnknown returns the summary for the given column, or the
// all-unknown summary if the column has no known statistics.
func (s *Statistics) ColumnStatisticOrUnknown(col opt.ColumnID) ColumnStatistic {
	return s.colStats[col]
}

// KnownColumns returns the set of columns with known statistics.
func (s *Statistics) KnownColumns() opt.ColSet {
	var set opt.ColSet
	for col := range s.colStats {
		set.Add(int(col))
	}
	return set
}

// NumColumns returns the number of columns with known statistics.
func (s *Statistics) NumColumns() int {
	return len(s.colStats)
}

// ForEachColumn calls fn for every column with known statistics, in
// ascending column id order so that output and iteration-dependent
// derivations are deterministic.
func (s *Statistics) ForEachColumn(fn func(opt.ColumnID, ColumnStatistic)) {
	cols := maps.Keys(s.colStats)
	slices.Sort(cols)
	for _, col := range cols {
		fn(col, s.colStats[col])
	}
}

func (s Statistics) String() string {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "[rows=%s]", s.RowCount)
	s.ForEachColumn(func(col opt.ColumnID, cs ColumnStatistic) {
		fmt.Fprintf(&buf, "\n@%d: %s", col, cs)
	})
	return buf.String()
}

// FormatTable renders the statistics as a table for debug output, resolving
// column aliases through the metadata.
func (s *Statistics) FormatTable(md *opt.Metadata) string {
	var buf bytes.Buffer
	if s.RowCount.Unknown() {
		buf.WriteString("rows: unknown\n")
	} else {
		fmt.Fprintf(&buf, "rows: %s\n", humanizeutil.Countf(s.RowCount.V()))
	}
	if s.NumColumns() == 0 {
		return buf.String()
	}
	table := tablewriter.NewWriter(&buf)
	table.SetHeader([]string{"column", "type", "distinct", "nulls", "low", "high", "avgsize"})
	table.SetAutoFormatHeaders(false)
	table.SetAlignment(tablewriter.ALIGN_RIGHT)
	s.ForEachColumn(func(col opt.ColumnID, cs ColumnStatistic) {
		alias, typ := fmt.Sprintf("@%d", col), "?"
		if md.HasColumn(col) {
			cm := md.ColumnMeta(col)
			alias, typ = cm.Alias, cm.Type.Name()
		}
		table.Append([]string{
			alias, typ,
			cs.DistinctCount.String(), cs.NullsFraction.String(),
			cs.Low.String(), cs.High.String(), cs.AvgSize.String(),
		})
	})
	table.Render()
	return buf.String()
}

// StatsBuilder constructs a Statistics, either from scratch or seeded with a
// copy of an existing one. Builders are single use: Build hands the column
// map over to the result.
type StatsBuilder struct {
	rowCount Stat
	colStats map[opt.ColumnID]ColumnStatistic
	built    bool
}

// MakeStatsBuilder returns an empty builder.
func MakeStatsBuilder() StatsBuilder {
	return StatsBuilder{colStats: make(map[opt.ColumnID]ColumnStatistic)}
}

// MakeStatsBuilderFrom returns a builder seeded with a copy of the given
// statistics.
func MakeStatsBuilderFrom(s *Statistics) StatsBuilder {
	b := StatsBuilder{
		rowCount: s.RowCount,
		colStats: make(map[opt.ColumnID]ColumnStatistic, len(s.colStats)),
	}
	for col, cs := range s.colStats {
		b.colStats[col] = cs
	}
	return b
}

// SetRowCount sets the row count.
func (b *StatsBuilder) SetRowCount(rowCount Stat) {
	b.checkNotBuilt()
	b.rowCount = rowCount
}

// AddColumnStat sets the summary for a column, replacing any previous one.
// Fully unknown summaries remove the column instead, preserving the
// invariant that mapped columns carry information.
func (b *StatsBuilder) AddColumnStat(col opt.ColumnID, cs ColumnStatistic) {
	b.checkNotBuilt()
	if cs.IsUnknown() {
		delete(b.colStats, col)
		return
	}
	b.colStats[col] = cs
}

// RemoveColumnStat removes the summary for a column.
func (b *StatsBuilder) RemoveColumnStat(col opt.ColumnID) {
	b.checkNotBuilt()
	delete(b.colStats, col)
}

// Build returns the finished Statistics. The builder must not be used again.
func (b *StatsBuilder) Build() Statistics {
	b.checkNotBuilt()
	b.built = true
	s := Statistics{RowCount: b.rowCount, colStats: b.colStats}
	b.colStats = nil
	return s
}

func (b *StatsBuilder) checkNotBuilt() {
	if b.built {
		panic(errors.AssertionFailedf("stats builder reused after Build"))
	}
}
