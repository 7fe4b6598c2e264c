// Copyright 2024 The Quarry Authors.
//
// Use of this software is governed by the Apache License, Version 2.0,
// included in the file LICENSE.

package props

import (
	"testing"

	"github.com/quarrydb/quarry/pkg/sql/opt"
	"github.com/stretchr/testify/require"
)

func TestStatsBuilder(t *testing.T) {
	bld := MakeStatsBuilder()
	bld.SetRowCount(MakeStat(1000))
	bld.AddColumnStat(1, ColumnStatistic{
		NullsFraction: MakeStat(0),
		DistinctCount: MakeStat(10),
		Low:           MakeStat(0),
		High:          MakeStat(100),
	})
	bld.AddColumnStat(2, ColumnStatistic{DistinctCount: MakeStat(5)})
	s := bld.Build()

	require.Equal(t, 1000.0, s.RowCount.V())
	require.Equal(t, 2, s.NumColumns())

	cs, ok := s.ColumnStatistic(1)
	require.True(t, ok)
	require.Equal(t, 10.0, cs.DistinctCount.V())

	_, ok = s.ColumnStatistic(3)
	require.False(t, ok)
	require.True(t, s.ColumnStatisticOrUnknown(3).IsUnknown())

	var expected opt.ColSet
	expected.Add(1)
	expected.Add(2)
	require.True(t, expected.Equals(s.KnownColumns()))
}

func TestStatsBuilderSingleUse(t *testing.T) {
	bld := MakeStatsBuilder()
	bld.Build()
	require.Panics(t, func() { bld.Build() })
	require.Panics(t, func() { bld.SetRowCount(MakeStat(1)) })
}

func TestStatsBuilderFrom(t *testing.T) {
	bld := MakeStatsBuilder()
	bld.SetRowCount(MakeStat(100))
	bld.AddColumnStat(1, ColumnStatistic{DistinctCount: MakeStat(10)})
	orig := bld.Build()

	// Deriving from a copy must not mutate the original.
	derived := MakeStatsBuilderFrom(&orig)
	derived.SetRowCount(MakeStat(50))
	derived.AddColumnStat(1, ColumnStatistic{DistinctCount: MakeStat(5)})
	derived.AddColumnStat(2, ColumnStatistic{DistinctCount: MakeStat(1)})
	res := derived.Build()

	require.Equal(t, 100.0, orig.RowCount.V())
	require.Equal(t, 1, orig.NumColumns())
	cs, _ := orig.ColumnStatistic(1)
	require.Equal(t, 10.0, cs.DistinctCount.V())

	require.Equal(t, 50.0, res.RowCount.V())
	require.Equal(t, 2, res.NumColumns())

	// Adding an all-unknown statistic prunes the column.
	prune := MakeStatsBuilderFrom(&res)
	prune.AddColumnStat(2, UnknownColumnStatistic())
	pruned := prune.Build()
	require.Equal(t, 1, pruned.NumColumns())
}

func TestStatisticsString(t *testing.T) {
	bld := MakeStatsBuilder()
	bld.SetRowCount(MakeStat(1000))
	bld.AddColumnStat(2, ColumnStatistic{
		NullsFraction: MakeStat(0.25),
		DistinctCount: MakeStat(10),
	})
	bld.AddColumnStat(1, ColumnStatistic{
		NullsFraction: MakeStat(0),
		DistinctCount: MakeStat(3),
		Low:           MakeStat(0),
		High:          MakeStat(100),
		AvgSize:       MakeStat(8),
	})
	s := bld.Build()

	// Columns print in ascending order regardless of insertion order.
	expected := "[rows=1000]\n" +
		"@1: distinct=3 nulls=0 low=0 high=100 avgsize=8\n" +
		"@2: distinct=10 nulls=0.25"
	require.Equal(t, expected, s.String())

	require.Equal(t, "[rows=unknown]", Unknown().String())
}
